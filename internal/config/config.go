package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	Engine struct {
		EstimateCharsPerLine int     `yaml:"estimate_chars_per_line"`
		MaxSuggestions       int     `yaml:"max_suggestions"`
		SimilarityThreshold  float64 `yaml:"similarity_threshold"`
		PreviewLines         int     `yaml:"preview_lines"`
	} `yaml:"engine"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Store.Path = "docedit.db"
	cfg.Engine.EstimateCharsPerLine = 50
	cfg.Engine.MaxSuggestions = 3
	cfg.Engine.SimilarityThreshold = 0.5
	cfg.Engine.PreviewLines = 10
	return cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, err
	}

	// 3. Override with Environment Variables if present
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if path := os.Getenv("DOCEDIT_STORE_PATH"); path != "" {
		cfg.Store.Path = path
	}
	if raw := os.Getenv("DOCEDIT_PREVIEW_LINES"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.Engine.PreviewLines = n
		}
	}
}
