package player

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/audioplayer/media"
)

const (
	defaultURL                    = "https://archive.org/download/George-Orwell-1984-Audio-book/1984-01.mp3"
	defaultPreferredForwardBuffer = 5 * time.Second
	defaultPeriodicInterval       = 200 * time.Millisecond
	defaultObserver               = "slog"
)

// Config holds initialization parameters for the playback controller and the
// media engine beneath it.
type Config struct {
	URL                    string         `json:"url,omitempty" toml:"url,omitempty" yaml:"url,omitempty"`
	PreferredForwardBuffer media.Duration `json:"preferred_forward_buffer,omitempty" toml:"preferred_forward_buffer,omitempty" yaml:"preferred_forward_buffer,omitempty"`
	PeriodicInterval       media.Duration `json:"periodic_interval,omitempty" toml:"periodic_interval,omitempty" yaml:"periodic_interval,omitempty"`
	Observer               string         `json:"observer,omitempty" toml:"observer,omitempty" yaml:"observer,omitempty"` // name registered with observability
	Media                  media.Config   `json:"media" toml:"media" yaml:"media"`
}

// DefaultConfig returns a Config with defaults for every section.
func DefaultConfig() Config {
	return Config{
		URL:                    defaultURL,
		PreferredForwardBuffer: media.Duration(defaultPreferredForwardBuffer),
		PeriodicInterval:       media.Duration(defaultPeriodicInterval),
		Observer:               defaultObserver,
		Media:                  media.DefaultConfig(),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	c.Media.Merge(&source.Media)

	if source.URL != "" {
		c.URL = source.URL
	}
	if source.PreferredForwardBuffer > 0 {
		c.PreferredForwardBuffer = source.PreferredForwardBuffer
	}
	if source.PeriodicInterval > 0 {
		c.PeriodicInterval = source.PeriodicInterval
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadConfig reads a config file, merges it with defaults, and returns the
// result. The format follows the extension: .json, .toml, or .yaml/.yml.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		err = json.Unmarshal(data, &loaded)
	case ".toml":
		err = toml.Unmarshal(data, &loaded)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
