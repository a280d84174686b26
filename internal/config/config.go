package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port    int    `yaml:"port"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		StoragePath   string `yaml:"storage_path"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		SlotsTTLSeconds int    `yaml:"slots_ttl_seconds"`
	} `yaml:"redis"`

	Booking struct {
		HorizonDays         int    `yaml:"horizon_days"`
		SlotMinutes         int    `yaml:"slot_minutes"`
		RequireVerification bool   `yaml:"require_verification"`
		Timezone            string `yaml:"timezone"`
	} `yaml:"booking"`

	Google struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RedirectURL  string `yaml:"redirect_url"`
	} `yaml:"google"`

	Email struct {
		ResendAPIKey  string  `yaml:"resend_api_key"`
		From          string  `yaml:"from"`
		RatePerSecond float64 `yaml:"rate_per_second"`
	} `yaml:"email"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/mentorasi.db"
	}
	if cfg.Booking.HorizonDays <= 0 {
		cfg.Booking.HorizonDays = 90
	}
	if cfg.Booking.SlotMinutes <= 0 {
		cfg.Booking.SlotMinutes = 60
	}
	if cfg.Booking.Timezone == "" {
		cfg.Booking.Timezone = "America/Sao_Paulo"
	}
	if cfg.Backup.StoragePath == "" {
		cfg.Backup.StoragePath = "data/backups"
	}
	if cfg.Backup.IntervalHours <= 0 {
		cfg.Backup.IntervalHours = 24
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Location resolves the configured booking timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid booking timezone %q: %w", c.Booking.Timezone, err)
	}
	return loc, nil
}

// SlotsCacheTTL returns the redis cache TTL for slot listings.
func (c *Config) SlotsCacheTTL() time.Duration {
	if c.Redis.SlotsTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.SlotsTTLSeconds) * time.Second
}
