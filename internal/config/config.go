package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete worker configuration
type Config struct {
	Store       StoreConfig       `yaml:"store"`
	Audio       AudioConfig       `yaml:"audio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Worker      WorkerConfig      `yaml:"worker"`
	HTTP        HTTPConfig        `yaml:"http"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// StoreConfig contains recording store configuration
type StoreConfig struct {
	Path string `yaml:"path"`
}

// AudioConfig contains audio normalization parameters
type AudioConfig struct {
	SampleRate   int    `yaml:"sample_rate"`
	FFmpegPath   string `yaml:"ffmpeg_path"`
	DebugDumpDir string `yaml:"debug_dump_dir"`
}

// RecognitionConfig contains speech recognition configuration
type RecognitionConfig struct {
	ModelPath     string  `yaml:"model_path"`
	ChunkDuration float64 `yaml:"chunk_duration"` // seconds
}

// WorkerConfig contains processing loop timing parameters
type WorkerConfig struct {
	PollInterval float64 `yaml:"poll_interval"` // seconds
	ErrorBackoff float64 `yaml:"error_backoff"` // seconds
	ClaimTimeout float64 `yaml:"claim_timeout"` // seconds
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "./data/recordings",
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			FFmpegPath: "ffmpeg",
		},
		Recognition: RecognitionConfig{
			ModelPath:     "./models/vosk-model-small-en-us-0.15",
			ChunkDuration: 1.0,
		},
		Worker: WorkerConfig{
			PollInterval: 5,
			ErrorBackoff: 10,
			ClaimTimeout: 600,
		},
		HTTP: HTTPConfig{
			Port:    8090,
			Address: "0.0.0.0",
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file. An empty path returns
// the defaults, so the worker runs without a config file.
func Load(path string) (*Config, error) {
	config := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides config values from the environment. Deployment
// overrides the two paths that differ per machine without needing a
// full config file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("VOSK_MODEL_PATH"); v != "" {
		c.Recognition.ModelPath = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		c.Store.Path = v
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Recognition.Validate(); err != nil {
		return fmt.Errorf("recognition config: %w", err)
	}

	if err := c.Worker.Validate(); err != nil {
		return fmt.Errorf("worker config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates store configuration
func (s *StoreConfig) Validate() error {
	if s.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 8000 && a.SampleRate != 16000 && a.SampleRate != 44100 && a.SampleRate != 48000 {
		return fmt.Errorf("sample_rate must be one of [8000, 16000, 44100, 48000], got %d", a.SampleRate)
	}

	if a.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg_path cannot be empty")
	}

	return nil
}

// Validate validates recognition configuration
func (r *RecognitionConfig) Validate() error {
	if r.ModelPath == "" {
		return fmt.Errorf("model_path cannot be empty")
	}

	if r.ChunkDuration <= 0 {
		return fmt.Errorf("chunk_duration must be positive, got %f", r.ChunkDuration)
	}

	if r.ChunkDuration > 60 {
		return fmt.Errorf("chunk_duration must be at most 60 seconds, got %f", r.ChunkDuration)
	}

	return nil
}

// Validate validates worker configuration
func (w *WorkerConfig) Validate() error {
	if w.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %f", w.PollInterval)
	}

	if w.ErrorBackoff <= 0 {
		return fmt.Errorf("error_backoff must be positive, got %f", w.ErrorBackoff)
	}

	if w.ClaimTimeout <= w.PollInterval {
		return fmt.Errorf("claim_timeout (%f) must be greater than poll_interval (%f)",
			w.ClaimTimeout, w.PollInterval)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetChunkDuration returns the recognition chunk duration as a time.Duration
func (r *RecognitionConfig) GetChunkDuration() time.Duration {
	return time.Duration(r.ChunkDuration * float64(time.Second))
}

// GetPollInterval returns the poll interval as a time.Duration
func (w *WorkerConfig) GetPollInterval() time.Duration {
	return time.Duration(w.PollInterval * float64(time.Second))
}

// GetErrorBackoff returns the error backoff as a time.Duration
func (w *WorkerConfig) GetErrorBackoff() time.Duration {
	return time.Duration(w.ErrorBackoff * float64(time.Second))
}

// GetClaimTimeout returns the claim timeout as a time.Duration
func (w *WorkerConfig) GetClaimTimeout() time.Duration {
	return time.Duration(w.ClaimTimeout * float64(time.Second))
}
