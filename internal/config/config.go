// Package config loads runtime settings from an optional YAML file
// with environment-variable overrides. A .env file is honored first.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the crawler, ranker and server.
type Config struct {
	DBPath           string  `yaml:"db_path"`
	ListenAddr       string  `yaml:"listen_addr"`
	SeedURL          string  `yaml:"seed_url"`
	Workers          int     `yaml:"workers"`
	FetchTimeoutSecs int     `yaml:"fetch_timeout_secs"`
	RateLimit        float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
	UserAgent        string  `yaml:"user_agent"`
	TitleWeight      float64 `yaml:"title_weight"`
	PhraseWeight     float64 `yaml:"phrase_weight"`
	ExportLimit      int     `yaml:"export_limit"`
	LogFile          string  `yaml:"log_file"`
}

// FetchTimeout is the bounded per-request timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

func defaults() *Config {
	return &Config{
		DBPath:           "sitesearch.db",
		ListenAddr:       ":8080",
		Workers:          5,
		FetchTimeoutSecs: 10,
		RateLimit:        10,
		UserAgent:        "SiteSearchBot/1.0",
		TitleWeight:      3.0,
		PhraseWeight:     2.0,
		ExportLimit:      30,
		LogFile:          "sitesearch.log",
	}
}

// Load builds the config: defaults, then the YAML file at path (if
// path is empty, sitesearch.yml is tried but not required), then
// environment overrides.
func Load(path string) (*Config, error) {
	godotenv.Load()

	cfg := defaults()

	required := path != ""
	if path == "" {
		path = "sitesearch.yml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if required {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.DBPath = getEnv("SITESEARCH_DB", cfg.DBPath)
	cfg.ListenAddr = getEnv("SITESEARCH_ADDR", cfg.ListenAddr)
	cfg.SeedURL = getEnv("SITESEARCH_SEED", cfg.SeedURL)
	cfg.Workers = getEnvInt("SITESEARCH_WORKERS", cfg.Workers)
	cfg.UserAgent = getEnv("SITESEARCH_USER_AGENT", cfg.UserAgent)
	cfg.LogFile = getEnv("SITESEARCH_LOG", cfg.LogFile)

	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
