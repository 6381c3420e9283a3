// Package config loads pipeline configuration from layered sources:
// struct defaults, an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"huella.yaml",
	"huella.yml",
	"/etc/huella/config.yaml",
	"/etc/huella/config.yml",
}

// ConfigPathEnvVar overrides the config file search path
const ConfigPathEnvVar = "HUELLA_CONFIG_PATH"

// EnvPrefix namespaces the environment variables read by Load
const EnvPrefix = "HUELLA_"

// AudioConfig controls decoding and spectral analysis
type AudioConfig struct {
	SampleRate       int     `koanf:"sample_rate"`
	WindowSize       int     `koanf:"window_size"`
	HopSize          int     `koanf:"hop_size"`
	MelBands         int     `koanf:"mel_bands"`
	MFCCCoefficients int     `koanf:"mfcc_coefficients"`
	SegmentDuration  float64 `koanf:"segment_duration"` // Reserved for segmented extraction
	SegmentOverlap   float64 `koanf:"segment_overlap"`  // Reserved for segmented extraction
}

// StagesConfig enables or disables each optional capability
type StagesConfig struct {
	Genre       bool `koanf:"genre"`
	Emotion     bool `koanf:"emotion"`
	Fingerprint bool `koanf:"fingerprint"`
	Embedding   bool `koanf:"embedding"`
}

// CacheConfig controls the feature record cache
type CacheConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
	// Dir is the shared tier location. Empty disables the shared tier.
	Dir string `koanf:"dir"`
}

// Config is the full pipeline configuration
type Config struct {
	Audio    AudioConfig  `koanf:"audio"`
	Stages   StagesConfig `koanf:"stages"`
	Cache    CacheConfig  `koanf:"cache"`
	Workers  int          `koanf:"workers"`
	LogLevel string       `koanf:"log_level"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:       22050,
			WindowSize:       2048,
			HopSize:          512,
			MelBands:         26,
			MFCCCoefficients: 20,
			SegmentDuration:  0,
			SegmentOverlap:   0,
		},
		Stages: StagesConfig{
			Genre:       true,
			Emotion:     true,
			Fingerprint: true,
			Embedding:   true,
		},
		Cache: CacheConfig{
			TTL:           time.Hour,
			SweepInterval: time.Minute,
			Dir:           "",
		},
		Workers:  0, // 0 means runtime.NumCPU()
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// HUELLA_ environment variables, then validates it. An explicit path
// overrides the search list; empty means search.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := path
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.WindowSize <= 0 || c.Audio.WindowSize&(c.Audio.WindowSize-1) != 0 {
		return fmt.Errorf("audio.window_size must be a positive power of two, got %d", c.Audio.WindowSize)
	}
	if c.Audio.HopSize <= 0 || c.Audio.HopSize > c.Audio.WindowSize {
		return fmt.Errorf("audio.hop_size must be in (0, window_size], got %d", c.Audio.HopSize)
	}
	if c.Audio.MelBands <= 0 {
		return fmt.Errorf("audio.mel_bands must be positive, got %d", c.Audio.MelBands)
	}
	if c.Audio.MFCCCoefficients <= 0 || c.Audio.MFCCCoefficients > c.Audio.MelBands {
		return fmt.Errorf("audio.mfcc_coefficients must be in (0, mel_bands], got %d", c.Audio.MFCCCoefficients)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps HUELLA_ environment variable names to koanf paths:
// HUELLA_AUDIO_SAMPLE_RATE -> audio.sample_rate
// HUELLA_CACHE_TTL -> cache.ttl
// HUELLA_WORKERS -> workers
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

	for _, section := range []string{"audio", "stages", "cache"} {
		prefix := section + "_"
		if strings.HasPrefix(key, prefix) {
			return section + "." + strings.TrimPrefix(key, prefix)
		}
	}
	return key
}
