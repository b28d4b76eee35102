package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the capture and feature extraction pipeline.
// All values are fixed at startup; Validate must pass before any component is
// constructed from them.
type Config struct {
	// Audio capture
	SampleRate int `yaml:"sample_rate"` // Hz, mono

	// Feature extraction
	FFTSize   int     `yaml:"fft_size"`   // analysis window length, power of two
	NumMels   int     `yaml:"num_mels"`   // mel bands per frame
	NumFrames int     `yaml:"num_frames"` // frames per spectrogram
	HopLength int     `yaml:"hop_length"` // samples between frame starts
	MinFreq   float64 `yaml:"min_freq"`   // lower edge of the mel range, Hz
	MaxFreq   float64 `yaml:"max_freq"`   // upper edge of the mel range, Hz

	// Classification
	Labels []string `yaml:"labels"` // one label per model output class

	// Loop pacing, in milliseconds
	SettleDelayMS    int `yaml:"settle_delay_ms"`    // pause after a classified cycle
	CaptureBackoffMS int `yaml:"capture_backoff_ms"` // pause after a failed or rejected capture
}

// DefaultConfig returns the pipeline defaults: 16 kHz mono capture, a 40x49
// mel spectrogram over 20 Hz..8 kHz, and the stock household sound classes.
func DefaultConfig() *Config {
	return &Config{
		SampleRate:       16000,
		FFTSize:          512,
		NumMels:          40,
		NumFrames:        49,
		HopLength:        160,
		MinFreq:          20,
		MaxFreq:          8000,
		Labels:           []string{"glass break", "door", "floor creak"},
		SettleDelayMS:    2000,
		CaptureBackoffMS: 1000,
	}
}

// SettleDelay is the pause after a classified cycle.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// CaptureBackoff is the pause after a failed or rejected capture.
func (c *Config) CaptureBackoff() time.Duration {
	return time.Duration(c.CaptureBackoffMS) * time.Millisecond
}

// BufferSize is the raw capture length in samples: enough for NumFrames hops
// plus one full analysis window.
func (c *Config) BufferSize() int {
	return c.NumFrames*c.HopLength + c.FFTSize
}

// TensorLen is the flattened feature tensor length handed to the inference
// engine.
func (c *Config) TensorLen() int {
	return c.NumMels * c.NumFrames
}

// NumClasses is the number of configured output classes.
func (c *Config) NumClasses() int {
	return len(c.Labels)
}

// Validate checks the startup invariants. A config that passes here needs no
// further bounds checking downstream.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("config: sample rate must be positive, got %d", c.SampleRate)
	}
	// FFTSize 1 would divide by zero in the Hann window; anything below 2 is
	// rejected here rather than at call time.
	if c.FFTSize < 2 {
		return fmt.Errorf("config: fft size must be at least 2, got %d", c.FFTSize)
	}
	if !isPowerOfTwo(c.FFTSize) {
		return fmt.Errorf("config: fft size must be a power of two, got %d", c.FFTSize)
	}
	if c.NumMels <= 0 {
		return fmt.Errorf("config: num mels must be positive, got %d", c.NumMels)
	}
	if c.NumFrames <= 0 {
		return fmt.Errorf("config: num frames must be positive, got %d", c.NumFrames)
	}
	if c.HopLength <= 0 {
		return fmt.Errorf("config: hop length must be positive, got %d", c.HopLength)
	}
	if c.MinFreq < 0 || c.MinFreq >= c.MaxFreq {
		return fmt.Errorf("config: frequency range [%g, %g] is invalid", c.MinFreq, c.MaxFreq)
	}
	if nyquist := float64(c.SampleRate) / 2; c.MaxFreq > nyquist {
		return fmt.Errorf("config: max freq %g exceeds nyquist %g", c.MaxFreq, nyquist)
	}
	if len(c.Labels) == 0 {
		return fmt.Errorf("config: at least one class label is required")
	}
	if c.SettleDelayMS < 0 || c.CaptureBackoffMS < 0 {
		return fmt.Errorf("config: delays must not be negative")
	}
	return nil
}

// Load reads a yaml config file on top of the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
