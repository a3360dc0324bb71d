// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type AdminConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type WeChatConfig struct {
	AppID  string `yaml:"app_id"`
	MchID  string `yaml:"mch_id"`
	APIKey string `yaml:"api_key"`
}

type AlipayConfig struct {
	AppID  string `yaml:"app_id"`
	Secret string `yaml:"secret"`
}

type PaymentConfig struct {
	WeChat WeChatConfig `yaml:"wechat"`
	Alipay AlipayConfig `yaml:"alipay"`
}

type OrderConfig struct {
	TimeoutMinutes int `yaml:"timeout_minutes"` // pending orders expire after this
}

type SchedulerConfig struct {
	TimeoutSweepInterval   time.Duration `yaml:"timeout_sweep_interval"`   // default 1m
	ReconcileInterval      time.Duration `yaml:"reconcile_interval"`       // default 10m
	DailyHour              int           `yaml:"daily_hour"`               // wall-clock hour for daily jobs
	ReminderThresholdsDays []int         `yaml:"reminder_thresholds_days"` // before expiry
	WinbackDays            []int         `yaml:"winback_days"`             // after expiry
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Web       WebConfig       `yaml:"web"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	Order     OrderConfig     `yaml:"order"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Web.Port <= 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Admin.Port <= 0 {
		cfg.Admin.Port = 9090
	}
	if cfg.Order.TimeoutMinutes <= 0 {
		cfg.Order.TimeoutMinutes = 30
	}
	if cfg.Scheduler.TimeoutSweepInterval <= 0 {
		cfg.Scheduler.TimeoutSweepInterval = time.Minute
	}
	if cfg.Scheduler.ReconcileInterval <= 0 {
		cfg.Scheduler.ReconcileInterval = 10 * time.Minute
	}
	if cfg.Scheduler.DailyHour < 0 || cfg.Scheduler.DailyHour > 23 {
		cfg.Scheduler.DailyHour = 9
	}
	if len(cfg.Scheduler.ReminderThresholdsDays) == 0 {
		cfg.Scheduler.ReminderThresholdsDays = []int{7, 3, 1}
	}
	if len(cfg.Scheduler.WinbackDays) == 0 {
		cfg.Scheduler.WinbackDays = []int{7}
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
