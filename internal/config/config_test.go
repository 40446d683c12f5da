package config

import (
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LLM.URL == "" {
		t.Error("LLM URL should not be empty")
	}
	if cfg.LLM.Model == "" {
		t.Error("LLM Model should not be empty")
	}
	if cfg.LLM.MaxTokens <= 0 {
		t.Error("LLM MaxTokens should be positive")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		t.Error("LLM Temperature should be between 0 and 2")
	}

	if cfg.ExampleGen.MaxTokens <= 0 {
		t.Error("ExampleGen MaxTokens should be positive")
	}

	if cfg.Refine.MaxIterations <= 0 {
		t.Error("Refine MaxIterations should be positive")
	}
	if cfg.Refine.NumExamples <= 0 {
		t.Error("Refine NumExamples should be positive")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		t.Error("Server Port should be valid")
	}
	if cfg.Server.Host == "" {
		t.Error("Server Host should not be empty")
	}

	if cfg.Data.Dir == "" {
		t.Error("Data Dir should not be empty")
	}
	if cfg.Data.HistoryFile == "" {
		t.Error("Data HistoryFile should not be empty")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Run("envString sets value when env var exists", func(t *testing.T) {
		target := "original"
		t.Setenv("TEST_VAR", "new_value")
		envString("TEST_VAR", &target)
		if target != "new_value" {
			t.Errorf("expected 'new_value', got '%s'", target)
		}
	})

	t.Run("envString keeps value when env var is unset", func(t *testing.T) {
		target := "original"
		envString("NONEXISTENT_VAR", &target)
		if target != "original" {
			t.Errorf("expected 'original', got '%s'", target)
		}
	})

	t.Run("envInt ignores invalid values", func(t *testing.T) {
		target := 42
		t.Setenv("TEST_INT", "not-a-number")
		envInt("TEST_INT", &target)
		if target != 42 {
			t.Errorf("expected 42, got %d", target)
		}
	})

	t.Run("envFloat parses valid values", func(t *testing.T) {
		target := 0.7
		t.Setenv("TEST_FLOAT", "1.3")
		envFloat("TEST_FLOAT", &target)
		if target != 1.3 {
			t.Errorf("expected 1.3, got %f", target)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server port"},
		{"bad temperature", func(c *Config) { c.LLM.Temperature = 3 }, "temperature"},
		{"zero max tokens", func(c *Config) { c.LLM.MaxTokens = 0 }, "max_tokens"},
		{"missing LLM URL", func(c *Config) { c.LLM.URL = "" }, "LLM URL is required"},
		{"malformed LLM URL", func(c *Config) { c.LLM.URL = "not-a-url" }, "valid URL"},
		{"zero iterations", func(c *Config) { c.Refine.MaxIterations = 0 }, "max_iterations"},
		{"zero examples", func(c *Config) { c.Refine.NumExamples = 0 }, "num_examples"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestExampleGenModel(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ExampleGenModel(); got != cfg.LLM.Model {
		t.Errorf("empty override should fall back to LLM model, got %s", got)
	}

	cfg.ExampleGen.Model = "small-model"
	if got := cfg.ExampleGenModel(); got != "small-model" {
		t.Errorf("expected small-model, got %s", got)
	}
}
