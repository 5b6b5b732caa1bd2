package media

import (
	"fmt"
	"time"
)

// Duration is a time.Duration that reads and writes as "250ms" style text in
// every config format.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

const (
	defaultTick           = 50 * time.Millisecond
	defaultRetryMax       = 3
	defaultRetryWaitMin   = 250 * time.Millisecond
	defaultRetryWaitMax   = 2 * time.Second
	defaultChunkSize      = 32 * 1024
	defaultMaxBytes       = 256 << 20
	defaultNominalBitrate = 128000
)

// Config holds media engine parameters.
type Config struct {
	Tick           Duration `json:"tick,omitempty" toml:"tick,omitempty" yaml:"tick,omitempty"`                // playback clock resolution
	RetryMax       int      `json:"retry_max,omitempty" toml:"retry_max,omitempty" yaml:"retry_max,omitempty"` // HTTP retries per load
	RetryWaitMin   Duration `json:"retry_wait_min,omitempty" toml:"retry_wait_min,omitempty" yaml:"retry_wait_min,omitempty"`
	RetryWaitMax   Duration `json:"retry_wait_max,omitempty" toml:"retry_wait_max,omitempty" yaml:"retry_wait_max,omitempty"`
	ChunkSize      int      `json:"chunk_size,omitempty" toml:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`
	MaxBytes       int64    `json:"max_bytes,omitempty" toml:"max_bytes,omitempty" yaml:"max_bytes,omitempty"`
	NominalBitrate int      `json:"nominal_bitrate,omitempty" toml:"nominal_bitrate,omitempty" yaml:"nominal_bitrate,omitempty"` // bits/s for non-WAV estimates
}

// DefaultConfig returns the default media configuration.
func DefaultConfig() Config {
	return Config{
		Tick:           Duration(defaultTick),
		RetryMax:       defaultRetryMax,
		RetryWaitMin:   Duration(defaultRetryWaitMin),
		RetryWaitMax:   Duration(defaultRetryWaitMax),
		ChunkSize:      defaultChunkSize,
		MaxBytes:       defaultMaxBytes,
		NominalBitrate: defaultNominalBitrate,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Tick > 0 {
		c.Tick = source.Tick
	}
	if source.RetryMax > 0 {
		c.RetryMax = source.RetryMax
	}
	if source.RetryWaitMin > 0 {
		c.RetryWaitMin = source.RetryWaitMin
	}
	if source.RetryWaitMax > 0 {
		c.RetryWaitMax = source.RetryWaitMax
	}
	if source.ChunkSize > 0 {
		c.ChunkSize = source.ChunkSize
	}
	if source.MaxBytes > 0 {
		c.MaxBytes = source.MaxBytes
	}
	if source.NominalBitrate > 0 {
		c.NominalBitrate = source.NominalBitrate
	}
}
