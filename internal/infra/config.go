package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application settings. Deployment-specific values may be
// overridden through environment variables after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Portfolio struct {
		ID string `yaml:"id"`
	} `yaml:"portfolio"`

	Watch struct {
		Symbols []string `yaml:"symbols"`
	} `yaml:"watch"`

	API struct {
		BaseURL   string `yaml:"base_url"`
		FeedWSURL string `yaml:"feed_ws_url"`
	} `yaml:"api"`

	Feedback struct {
		PollIntervalMS int `yaml:"poll_interval_ms"`
		WindowMS       int `yaml:"window_ms"`
	} `yaml:"feedback"`

	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies environment
// overrides, fills defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Feedback.PollIntervalMS == 0 {
		c.Feedback.PollIntervalMS = 2000
	}
	if c.Feedback.WindowMS == 0 {
		c.Feedback.WindowMS = 30000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Portfolio.ID == "" {
		return fmt.Errorf("portfolio id is required")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("API base URL is required")
	}
	if !strings.HasPrefix(c.API.FeedWSURL, "ws://") && !strings.HasPrefix(c.API.FeedWSURL, "wss://") {
		return fmt.Errorf("invalid feed WS URL: %s", c.API.FeedWSURL)
	}
	if len(c.Watch.Symbols) == 0 {
		return fmt.Errorf("at least one watch symbol is required")
	}
	if c.Feedback.PollIntervalMS <= 0 {
		return fmt.Errorf("feedback poll interval must be positive")
	}
	if c.Feedback.WindowMS < c.Feedback.PollIntervalMS {
		return fmt.Errorf("feedback window must be at least one poll interval")
	}
	return nil
}

// overrideWithEnv applies environment variables on top of file values.
// Environment always wins over the config file.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("CRIPTO_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("CRIPTO_FEED_WS_URL"); v != "" {
		cfg.API.FeedWSURL = v
	}
	if v := os.Getenv("CRIPTO_PORTFOLIO_ID"); v != "" {
		cfg.Portfolio.ID = v
	}
	if v := os.Getenv("CRIPTO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
