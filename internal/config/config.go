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
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Hydration struct {
		Timezone                 string `yaml:"timezone"`
		DefaultGoalML            int    `yaml:"default_goal_ml"`
		CustomGoalMinML          int    `yaml:"custom_goal_min_ml"`
		CustomGoalMaxML          int    `yaml:"custom_goal_max_ml"`
		ReconcileIntervalMinutes int    `yaml:"reconcile_interval_minutes"`
	} `yaml:"hydration"`

	Notifications struct {
		ChannelID     string  `yaml:"channel_id"`
		ChannelName   string  `yaml:"channel_name"`
		Sound         string  `yaml:"sound"`
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
	} `yaml:"notifications"`

	Permissions struct {
		Notifications       bool `yaml:"notifications"`
		ExactAlarms         bool `yaml:"exact_alarms"`
		BatteryOptimization bool `yaml:"battery_optimization"`
	} `yaml:"permissions"`
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

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/hydromate.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Location resolves the configured timezone; an empty or "Local" value
// means the device-local zone. Aggregation buckets depend on this.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Hydration.Timezone
	if tz == "" || tz == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return loc, nil
}

func (c *Config) DefaultGoal() int {
	if c.Hydration.DefaultGoalML <= 0 {
		return 2500
	}
	return c.Hydration.DefaultGoalML
}

// CustomGoalBand returns the accepted [min, max] range for user-entered
// custom goals.
func (c *Config) CustomGoalBand() (int, int) {
	min, max := c.Hydration.CustomGoalMinML, c.Hydration.CustomGoalMaxML
	if min <= 0 {
		min = 500
	}
	if max <= 0 {
		max = 1500
	}
	return min, max
}

func (c *Config) ReconcileInterval() time.Duration {
	if c.Hydration.ReconcileIntervalMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Hydration.ReconcileIntervalMinutes) * time.Minute
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}
