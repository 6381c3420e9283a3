package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration failed validation: %v", err)
	}
	if cfg.Audio.SampleRate != 22050 {
		t.Errorf("default sample rate = %d, want 22050", cfg.Audio.SampleRate)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("default cache TTL = %s, want 1h", cfg.Cache.TTL)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := Default()
	if cfg.Audio.WindowSize != want.Audio.WindowSize {
		t.Errorf("window size = %d, want %d", cfg.Audio.WindowSize, want.Audio.WindowSize)
	}
	if !cfg.Stages.Genre || !cfg.Stages.Fingerprint {
		t.Error("optional stages should default to enabled")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huella.yaml")
	content := []byte("audio:\n  sample_rate: 44100\n  window_size: 4096\nworkers: 2\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", cfg.Audio.SampleRate)
	}
	if cfg.Audio.WindowSize != 4096 {
		t.Errorf("window size = %d, want 4096", cfg.Audio.WindowSize)
	}
	if cfg.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Workers)
	}
	// Untouched fields keep their defaults
	if cfg.Audio.HopSize != 512 {
		t.Errorf("hop size = %d, want default 512", cfg.Audio.HopSize)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huella.yaml")
	if err := os.WriteFile(path, []byte("audio:\n  sample_rate: 44100\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HUELLA_AUDIO_SAMPLE_RATE", "48000")
	t.Setenv("HUELLA_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("sample rate = %d, want env override 48000", cfg.Audio.SampleRate)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }},
		{"non power of two window", func(c *Config) { c.Audio.WindowSize = 1000 }},
		{"hop larger than window", func(c *Config) { c.Audio.HopSize = c.Audio.WindowSize * 2 }},
		{"zero mel bands", func(c *Config) { c.Audio.MelBands = 0 }},
		{"more coefficients than bands", func(c *Config) { c.Audio.MFCCCoefficients = c.Audio.MelBands + 1 }},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
