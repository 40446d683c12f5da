package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration for Refinery
type Config struct {
	LLM        LLMConfig        `json:"llm"`
	ExampleGen ExampleGenConfig `json:"example_gen"`
	Refine     RefineConfig     `json:"refine"`
	Server     ServerConfig     `json:"server"`
	Data       DataConfig       `json:"data"`
}

// LLMConfig holds LLM API configuration (vLLM/LiteLLM, OpenAI-compatible)
type LLMConfig struct {
	URL         string  `json:"url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// ExampleGenConfig holds the optional separate model used for exemplar
// generation. An empty Model means the main LLM model is used.
type ExampleGenConfig struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
}

// RefineConfig holds refinement loop defaults
type RefineConfig struct {
	MaxIterations int `json:"max_iterations"` // metric-guided loop cap (default: 3)
	NumExamples   int `json:"num_examples"`   // exemplars per example-guided run (default: 3)
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DataConfig holds local data paths
type DataConfig struct {
	Dir          string `json:"dir"`           // base directory for caches and history
	HistoryFile  string `json:"history_file"`  // JSONL run history
	ExamplesFile string `json:"examples_file"` // default exemplar cache
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".refinery")

	return &Config{
		LLM: LLMConfig{
			URL:         "http://localhost:8000/v1",
			APIKey:      "",
			Model:       "Qwen/Qwen3-8B-AWQ",
			MaxTokens:   8000,
			Temperature: 0.7,
		},
		ExampleGen: ExampleGenConfig{
			Model:     "",
			MaxTokens: 8000,
		},
		Refine: RefineConfig{
			MaxIterations: 3,
			NumExamples:   3,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Data: DataConfig{
			Dir:          dataDir,
			HistoryFile:  filepath.Join(dataDir, "history.jsonl"),
			ExamplesFile: filepath.Join(dataDir, "examples.json"),
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envFloat loads a float64 environment variable into the target pointer if set and valid
func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	envString("REFINERY_LLM_URL", &cfg.LLM.URL)
	envString("REFINERY_LLM_API_KEY", &cfg.LLM.APIKey)
	envString("REFINERY_LLM_MODEL", &cfg.LLM.Model)
	envInt("REFINERY_LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	envFloat("REFINERY_LLM_TEMPERATURE", &cfg.LLM.Temperature)

	envString("REFINERY_EXAMPLE_MODEL", &cfg.ExampleGen.Model)
	envInt("REFINERY_EXAMPLE_MAX_TOKENS", &cfg.ExampleGen.MaxTokens)

	envInt("REFINERY_MAX_ITERATIONS", &cfg.Refine.MaxIterations)
	envInt("REFINERY_NUM_EXAMPLES", &cfg.Refine.NumExamples)

	envString("REFINERY_SERVER_HOST", &cfg.Server.Host)
	envInt("REFINERY_SERVER_PORT", &cfg.Server.Port)

	envString("REFINERY_DATA_DIR", &cfg.Data.Dir)
	envString("REFINERY_HISTORY_FILE", &cfg.Data.HistoryFile)
	envString("REFINERY_EXAMPLES_FILE", &cfg.Data.ExamplesFile)

	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "LLM temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, "LLM max_tokens must be positive")
	}
	if c.LLM.URL == "" {
		errs = append(errs, "LLM URL is required")
	} else if !isValidURL(c.LLM.URL) {
		errs = append(errs, "LLM URL must be a valid URL")
	}

	if c.ExampleGen.MaxTokens < 1 {
		errs = append(errs, "example generation max_tokens must be positive")
	}

	if c.Refine.MaxIterations < 1 {
		errs = append(errs, "max_iterations must be at least 1")
	}
	if c.Refine.NumExamples < 1 {
		errs = append(errs, "num_examples must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ExampleGenModel resolves the model name used for exemplar generation.
func (c *Config) ExampleGenModel() string {
	if c.ExampleGen.Model != "" {
		return c.ExampleGen.Model
	}
	return c.LLM.Model
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("REFINERY_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	// Check ~/.config/refinery/config.json first
	configDir := filepath.Join(homeDir, ".config", "refinery")
	configPath := filepath.Join(configDir, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	// Check ~/.refinery/config.json
	altPath := filepath.Join(homeDir, ".refinery", "config.json")
	if _, err := os.Stat(altPath); err == nil {
		return altPath
	}

	return configPath
}
