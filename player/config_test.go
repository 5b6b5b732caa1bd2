package player_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/audioplayer/media"
	"github.com/tailored-agentic-units/audioplayer/player"
)

func TestDefaultConfig(t *testing.T) {
	cfg := player.DefaultConfig()

	assert.NotEmpty(t, cfg.URL)
	assert.Equal(t, media.Duration(5*time.Second), cfg.PreferredForwardBuffer)
	assert.Equal(t, media.Duration(200*time.Millisecond), cfg.PeriodicInterval)
	assert.Equal(t, "slog", cfg.Observer)
	assert.Equal(t, media.DefaultConfig(), cfg.Media)
}

func TestConfig_Merge_ZeroValuesPreserveDefaults(t *testing.T) {
	cfg := player.DefaultConfig()
	cfg.Merge(&player.Config{})

	assert.Equal(t, player.DefaultConfig(), cfg)
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "config.json",
			content: `{
				"url": "http://example.test/a.wav",
				"periodic_interval": "500ms",
				"observer": "noop",
				"media": {"retry_max": 7, "tick": "10ms"}
			}`,
		},
		{
			name: "toml",
			file: "config.toml",
			content: `
url = "http://example.test/a.wav"
periodic_interval = "500ms"
observer = "noop"

[media]
retry_max = 7
tick = "10ms"
`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `
url: http://example.test/a.wav
periodic_interval: 500ms
observer: noop
media:
  retry_max: 7
  tick: 10ms
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			cfg, err := player.LoadConfig(path)
			require.NoError(t, err)

			assert.Equal(t, "http://example.test/a.wav", cfg.URL)
			assert.Equal(t, media.Duration(500*time.Millisecond), cfg.PeriodicInterval)
			assert.Equal(t, "noop", cfg.Observer)
			assert.Equal(t, 7, cfg.Media.RetryMax)
			assert.Equal(t, media.Duration(10*time.Millisecond), cfg.Media.Tick)

			// untouched sections keep defaults
			assert.Equal(t, media.Duration(5*time.Second), cfg.PreferredForwardBuffer)
			assert.Equal(t, media.DefaultConfig().ChunkSize, cfg.Media.ChunkSize)
		})
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := player.LoadConfig(filepath.Join(dir, "missing.json"))
		assert.Error(t, err)
	})

	t.Run("unknown extension", func(t *testing.T) {
		path := filepath.Join(dir, "config.ini")
		require.NoError(t, os.WriteFile(path, []byte("url=x"), 0644))

		_, err := player.LoadConfig(path)
		assert.ErrorIs(t, err, player.ErrUnknownFormat)
	})

	t.Run("invalid duration", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"periodic_interval": "soon"}`), 0644))

		_, err := player.LoadConfig(path)
		assert.Error(t, err)
	})
}
