package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL         = "http://localhost:8080"
	DefaultReconcileDelay = 500 * time.Millisecond
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Client struct {
		APIURL   string `yaml:"api_url"`
		Timeout  string `yaml:"timeout"`
		StateDir string `yaml:"state_dir"`
		// Storage selects the durable key-value backend: "file" (default) or "redis".
		Storage string `yaml:"storage"`
	} `yaml:"client"`
	Auth struct {
		Secret   string `yaml:"secret"`
		TokenTTL string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Catalog struct {
		TTL string `yaml:"ttl"`
	} `yaml:"catalog"`
	Reconcile struct {
		Delay    string `yaml:"delay"`
		Attempts int    `yaml:"attempts"`
	} `yaml:"reconcile"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads .env files, then the YAML config at path, then applies env overrides.
// A missing config file is not an error; defaults are used instead.
func Load(path string) (Config, error) {
	loadDotEnvs()

	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

// .env.local wins over .env; godotenv never overrides variables already set.
func loadDotEnvs() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TRACKER_API_URL"); v != "" {
		cfg.Client.APIURL = v
	}
	if v := os.Getenv("TRACKER_STATE_DIR"); v != "" {
		cfg.Client.StateDir = v
	}
	if v := os.Getenv("JWT_SECRET_KEY"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Postgres.URL = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Client.APIURL == "" {
		cfg.Client.APIURL = DefaultAPIURL
	}
	if cfg.Client.StateDir == "" {
		cfg.Client.StateDir = defaultStateDir()
	}
	if cfg.Client.Storage == "" {
		cfg.Client.Storage = "file"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "tracker:"
	}
	if cfg.Reconcile.Attempts <= 0 {
		cfg.Reconcile.Attempts = 1
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".tracker"
	}
	return filepath.Join(dir, "dsa-tracker")
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
