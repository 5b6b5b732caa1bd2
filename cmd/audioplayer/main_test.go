package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "audioplayer version dev\n", out.String())
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: http://example.test/file.wav\nobserver: noop\n"), 0644))

	require.NoError(t, playCmd.ParseFlags([]string{"--config", path}))
	cfg, err := loadConfig(playCmd)
	require.NoError(t, err)
	assert.Equal(t, "http://example.test/file.wav", cfg.URL)
	assert.Equal(t, "noop", cfg.Observer)

	require.NoError(t, playCmd.ParseFlags([]string{"--url", "http://example.test/flag.wav"}))
	cfg, err = loadConfig(playCmd)
	require.NoError(t, err)
	assert.Equal(t, "http://example.test/flag.wav", cfg.URL)
}
