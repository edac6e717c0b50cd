// Package config loads the scan engine's configuration from a YAML
// file, then layers environment-variable overrides on top the way
// spec.md §6 names them (SCAN_WORKERS_MAX_CONCURRENCY and friends).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ScannerConfig controls the default fetch behavior for the Page
// Pipeline, shared by static HTTP fetches and the Browser Worker.
type ScannerConfig struct {
	UserAgent        string   `yaml:"userAgent"`
	RequestTimeoutMs int      `yaml:"requestTimeoutMs"`
	UseBrowser       bool     `yaml:"useBrowser"`
	DeviceProfiles   []string `yaml:"deviceProfiles"`
	BrowserTimeoutMs int      `yaml:"browserTimeoutMs"`
	MaxPages         int      `yaml:"maxPages"`
	DefaultSiteDepth int      `yaml:"defaultSiteDepth"`
	RespectRobots    bool     `yaml:"respectRobots"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig is optional: when URL is empty the robots/sitemap cache
// simply runs without memoization.
type RedisConfig struct {
	URL       string `yaml:"url"`
	TTLSecond int    `yaml:"ttlSeconds"`
}

type WorkerConfig struct {
	MaxConcurrency int `yaml:"maxConcurrency"`
	PollIntervalMs int `yaml:"pollIntervalMs"`
}

type JobTTLConfig struct {
	DefaultDays int `yaml:"defaultDays"`
}

type RetentionConfig struct {
	Enabled                bool         `yaml:"enabled"`
	CleanupIntervalMinutes int          `yaml:"cleanupIntervalMinutes"`
	Jobs                   JobTTLConfig `yaml:"jobs"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Worker    WorkerConfig    `yaml:"worker"`
	Retention RetentionConfig `yaml:"retention"`
}

// Default returns a Config populated with the defaults named in
// spec.md §6, before any YAML file or environment overrides are
// applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Scanner: ScannerConfig{
			UserAgent:        "BunSEOChecker/1.0",
			RequestTimeoutMs: 15000,
			UseBrowser:       true,
			DeviceProfiles:   []string{"desktop"},
			BrowserTimeoutMs: 30000,
			MaxPages:         100,
			DefaultSiteDepth: 2,
			RespectRobots:    false,
		},
		Worker: WorkerConfig{
			MaxConcurrency: 5,
			PollIntervalMs: 2000,
		},
		Retention: RetentionConfig{
			Enabled:                false,
			CleanupIntervalMinutes: 60,
			Jobs:                   JobTTLConfig{DefaultDays: 0},
		},
	}
}

// Load reads a YAML config file at path, falling back to Default()
// values for anything the file omits. A missing file is not an error:
// callers that only rely on environment variables can pass "".
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays the environment variables named in spec.md §6 on
// top of an already-loaded Config.
func (cfg *Config) ApplyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := envInt("SCAN_WORKERS_MAX_CONCURRENCY"); v != nil {
		cfg.Worker.MaxConcurrency = clamp(*v, 1, 50)
	}
	if v := envInt("SCANNER_MAX_PAGES"); v != nil {
		cfg.Scanner.MaxPages = *v
	}
	if v := envInt("SCANNER_DEFAULT_SITE_DEPTH"); v != nil {
		cfg.Scanner.DefaultSiteDepth = *v
	}
	if v := os.Getenv("SCANNER_USER_AGENT"); v != "" {
		cfg.Scanner.UserAgent = v
	}
	if v := envInt("SCANNER_REQUEST_TIMEOUT_MS"); v != nil {
		cfg.Scanner.RequestTimeoutMs = clamp(*v, 1000, 120000)
	}
	if v := envBool("SCANNER_USE_BROWSER"); v != nil {
		cfg.Scanner.UseBrowser = *v
	}
	if v := os.Getenv("SCANNER_DEVICE_PROFILES"); v != "" {
		parts := strings.Split(v, ",")
		profiles := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				profiles = append(profiles, p)
			}
		}
		if len(profiles) > 0 {
			cfg.Scanner.DeviceProfiles = profiles
		}
	}
	if v := envInt("SCANNER_BROWSER_TIMEOUT_MS"); v != nil {
		cfg.Scanner.BrowserTimeoutMs = *v
	}
	if v := envBool("SCANNER_RESPECT_ROBOTS"); v != nil {
		cfg.Scanner.RespectRobots = *v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
}

func envInt(name string) *int {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

func envBool(name string) *bool {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
