package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog sources understood by the server.
const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
)

type Config struct {
	Server struct {
		Bind string `yaml:"bind"`
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		File   string `yaml:"file"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Catalog struct {
		Source string `yaml:"source"`
		Path   string `yaml:"path"`
		URL    string `yaml:"url"`
		TTL    string `yaml:"ttl"`
	} `yaml:"catalog"`
}

// Load reads YAML config from path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyDefaults() {
	if c.Server.Bind == "" {
		c.Server.Bind = "0.0.0.0"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = SourceEmbedded
		if c.Postgres.URL != "" {
			c.Catalog.Source = SourcePostgres
		}
	}
}

// Validate checks durations and that the chosen catalog source has what it needs.
func (c Config) Validate() error {
	if err := checkTTL("redis.ttl", c.Redis.TTL, false); err != nil {
		return err
	}
	if err := checkTTL("catalog.ttl", c.Catalog.TTL, true); err != nil {
		return err
	}

	switch c.Catalog.Source {
	case SourceEmbedded:
	case SourceFile:
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog source %q requires catalog.path", c.Catalog.Source)
		}
	case SourceHTTP:
		if c.Catalog.URL == "" {
			return fmt.Errorf("catalog source %q requires catalog.url", c.Catalog.Source)
		}
	case SourcePostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("catalog source %q requires postgres.url", c.Catalog.Source)
		}
	default:
		return fmt.Errorf("unknown catalog source %q", c.Catalog.Source)
	}
	return nil
}

// checkTTL rejects a set duration that does not parse. catalog.ttl may be
// zero to cache for the process lifetime; redis.ttl must be positive.
func checkTTL(name, raw string, allowZero bool) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 || (d == 0 && !allowZero) {
		return fmt.Errorf("%s must be positive, got %s", name, raw)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
