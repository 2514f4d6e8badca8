package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"PORT"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`
	Storage struct {
		// Driver selects the key/value backend: memory, redis, postgres or sqlite.
		Driver     string `yaml:"driver" env:"STORAGE_DRIVER"`
		SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		URL      string `yaml:"url" env:"REDIS_URL"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	Quiz    Quiz    `yaml:"quiz" envPrefix:"QUIZ_"`
	Rewards Rewards `yaml:"rewards" envPrefix:"REWARDS_"`
	Users   Users   `yaml:"users"`
}

type Quiz struct {
	HomepageCategory string `yaml:"homepage_category" env:"HOMEPAGE_CATEGORY"`
	HomepageCount    int    `yaml:"homepage_count" env:"HOMEPAGE_COUNT"`
	CategoryCount    int    `yaml:"category_count" env:"CATEGORY_COUNT"`
	QuestionTimeout  string `yaml:"question_timeout" env:"QUESTION_TIMEOUT"`
	RevealDelay      string `yaml:"reveal_delay" env:"REVEAL_DELAY"`
	AutoAdvance      *bool  `yaml:"auto_advance" env:"AUTO_ADVANCE"`
	DefaultEntryFee  int    `yaml:"default_entry_fee" env:"DEFAULT_ENTRY_FEE"`
	CacheTTL         string `yaml:"cache_ttl" env:"CACHE_TTL"`
}

type Users struct {
	StartingCoins int `yaml:"starting_coins" env:"USERS_STARTING_COINS"`
}

type Rewards struct {
	Correct      int `yaml:"correct" env:"CORRECT"`
	Bonus        int `yaml:"bonus" env:"BONUS"`
	StreakValue  int `yaml:"streak_value" env:"STREAK_VALUE"`
	StreakWindow int `yaml:"streak_window" env:"STREAK_WINDOW"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Storage.Driver = "memory"
	cfg.Storage.SQLitePath = "data/techkwiz.db"
	cfg.Redis.TTL = "30m"
	cfg.Quiz = Quiz{
		HomepageCategory: "homepage",
		HomepageCount:    5,
		CategoryCount:    5,
		QuestionTimeout:  "30s",
		RevealDelay:      "1s",
		DefaultEntryFee:  100,
		CacheTTL:         "5m",
	}
	cfg.Rewards = Rewards{Correct: 50, Bonus: 100, StreakValue: 10, StreakWindow: 1}
	return cfg
}

// Load reads YAML config from path on top of Default, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return cfg, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// AutoAdvanceEnabled defaults to true when unset.
func (q Quiz) AutoAdvanceEnabled() bool {
	return q.AutoAdvance == nil || *q.AutoAdvance
}

// LogLevel maps the configured level name to a slog level, defaulting to info.
func (c Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
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
