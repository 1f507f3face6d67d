// Package config loads service configuration from an optional YAML file,
// with every field overridable through environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"`

	Map struct {
		Token         string `yaml:"token"`
		BlockLayer    string `yaml:"block_layer"`
		BoundaryLayer string `yaml:"boundary_layer"`
		Source        string `yaml:"source"`
		SourceLayer   string `yaml:"source_layer"`
	} `yaml:"map"`

	// Path to the block polygon dataset backing the map surface.
	BlocksPath string `yaml:"blocks_path"`

	Boundaries struct {
		// Source is one of http, postgres, file.
		Source      string `yaml:"source"`
		URL         string `yaml:"url"`
		DatabaseURL string `yaml:"database_url"`
		Path        string `yaml:"path"`
	} `yaml:"boundaries"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	// Session TTL is env-only (SESSION_TTL, Go duration syntax).
	Session struct {
		TTL time.Duration `yaml:"-"`
	} `yaml:"session"`

	// Wizard step order; empty means the default flow.
	Steps []string `yaml:"steps"`
}

func Default() Config {
	var c Config
	c.Addr = ":8080"
	c.LogLevel = "info"
	c.Map.BlockLayer = "blocks-fill"
	c.Map.BoundaryLayer = "neighborhoods-line"
	c.Map.Source = "blocks"
	c.Map.SourceLayer = "blocks"
	c.Boundaries.Source = "http"
	c.Session.TTL = 30 * time.Minute
	return c
}

// Load reads the YAML file at path (optional) and applies env overrides.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return c, fmt.Errorf("parse config: %w", err)
		}
	}

	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	c.Addr = envOr("HTTP_ADDR", c.Addr)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.Map.Token = envOr("MAP_TOKEN", c.Map.Token)
	c.Map.BlockLayer = envOr("MAP_BLOCK_LAYER", c.Map.BlockLayer)
	c.Map.BoundaryLayer = envOr("MAP_BOUNDARY_LAYER", c.Map.BoundaryLayer)
	c.Map.Source = envOr("MAP_SOURCE", c.Map.Source)
	c.Map.SourceLayer = envOr("MAP_SOURCE_LAYER", c.Map.SourceLayer)
	c.BlocksPath = envOr("BLOCKS_PATH", c.BlocksPath)
	c.Boundaries.Source = envOr("BOUNDARY_SOURCE", c.Boundaries.Source)
	c.Boundaries.URL = envOr("BOUNDARY_URL", c.Boundaries.URL)
	c.Boundaries.DatabaseURL = envOr("DATABASE_URL", c.Boundaries.DatabaseURL)
	c.Boundaries.Path = envOr("BOUNDARY_PATH", c.Boundaries.Path)
	c.Redis.Addr = envOr("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envOr("REDIS_PASSWORD", c.Redis.Password)
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Redis.DB = n
		}
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Session.TTL = d
		}
	}
	if v := os.Getenv("WIZARD_STEPS"); v != "" {
		parts := strings.Split(v, ",")
		steps := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				steps = append(steps, p)
			}
		}
		if len(steps) > 0 {
			c.Steps = steps
		}
	}
}

func envOr(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
