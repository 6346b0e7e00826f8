package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type HTTP struct {
	Host string
	Port int
}

type DB struct {
	Driver string // "mysql" or "sqlite"
	Host   string
	Port   int
	User   string
	Pass   string
	Name   string
	Path   string // sqlite file path
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Cloudflare struct {
	BaseURL string
	Timeout time.Duration
}

type Sweep struct {
	Interval time.Duration
	Window   time.Duration
	PageSize int
}

type Config struct {
	HTTP       HTTP
	DB         DB
	Redis      Redis
	Cloudflare Cloudflare
	Sweep      Sweep
	JWT        struct {
		Secret string
		Issuer string
		ExpMin int
	}
	Admin struct {
		Email    string
		Password string
	}
	LogLevel string
	BaseURL  string // public URL used in verification links
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("http.host", "127.0.0.1")
	v.SetDefault("http.port", 9300)
	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.host", "127.0.0.1")
	v.SetDefault("db.port", 3306)
	v.SetDefault("db.user", "root")
	v.SetDefault("db.pass", "")
	v.SetDefault("db.name", "klik_guard")
	v.SetDefault("db.path", "klik_guard.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cloudflare.base_url", "https://api.cloudflare.com/client/v4")
	v.SetDefault("cloudflare.timeout_sec", 15)
	v.SetDefault("sweep.interval_sec", 300)
	v.SetDefault("sweep.window_sec", 300)
	v.SetDefault("sweep.page_size", 1000)
	v.SetDefault("log_level", "info")
	v.SetDefault("base_url", "http://127.0.0.1:9300")

	if err := v.ReadInConfig(); err != nil {
		// A missing file means defaults; anything else is a real error.
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		HTTP: HTTP{Host: v.GetString("http.host"), Port: v.GetInt("http.port")},
		DB: DB{
			Driver: v.GetString("db.driver"),
			Host:   v.GetString("db.host"),
			Port:   v.GetInt("db.port"),
			User:   v.GetString("db.user"),
			Pass:   v.GetString("db.pass"),
			Name:   v.GetString("db.name"),
			Path:   v.GetString("db.path"),
		},
		Redis: Redis{Addr: v.GetString("redis.addr"), Password: v.GetString("redis.password"), DB: v.GetInt("redis.db")},
		Cloudflare: Cloudflare{
			BaseURL: v.GetString("cloudflare.base_url"),
			Timeout: time.Duration(v.GetInt("cloudflare.timeout_sec")) * time.Second,
		},
		Sweep: Sweep{
			Interval: time.Duration(v.GetInt("sweep.interval_sec")) * time.Second,
			Window:   time.Duration(v.GetInt("sweep.window_sec")) * time.Second,
			PageSize: v.GetInt("sweep.page_size"),
		},
		LogLevel: v.GetString("log_level"),
		BaseURL:  v.GetString("base_url"),
	}
	cfg.JWT.Secret = v.GetString("jwt.secret")
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "dev-secret"
	}
	cfg.JWT.Issuer = v.GetString("jwt.issuer")
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "klik-guard"
	}
	cfg.JWT.ExpMin = v.GetInt("jwt.exp_min")
	if cfg.JWT.ExpMin <= 0 {
		cfg.JWT.ExpMin = 60
	}
	cfg.Admin.Email = v.GetString("admin.email")
	cfg.Admin.Password = v.GetString("admin.password")

	return cfg, nil
}

// Watch re-reads the config file on change and reports the new log level.
// Only the log level is applied at runtime; everything else needs a restart.
func Watch(path string, onLevel func(level string)) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		if lvl := v.GetString("log_level"); lvl != "" {
			onLevel(lvl)
		}
	})
	v.WatchConfig()
}
