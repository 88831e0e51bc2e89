// Package config carries the two configuration layers: static app
// config loaded from YAML at startup, and user Settings persisted in
// the key-value store and re-read at the start of every operation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// App is the static application configuration.
type App struct {
	HTTP struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"http"`

	Storage struct {
		RedisAddr   string `yaml:"redis_addr"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"storage"`

	RateLimit struct {
		RequestsPerWindow int           `yaml:"requests_per_window"`
		Window            time.Duration `yaml:"window"`
	} `yaml:"rate_limit"`

	Fetch struct {
		RequestTimeout time.Duration `yaml:"request_timeout"`
		MaxAttempts    int           `yaml:"max_attempts"`
		BackoffBase    time.Duration `yaml:"backoff_base"`
	} `yaml:"fetch"`

	Providers struct {
		DexscreenerURL string `yaml:"dexscreener_url"`
		GoplusURL      string `yaml:"goplus_url"`
		HoneypotURL    string `yaml:"honeypot_url"`
		RugcheckURL    string `yaml:"rugcheck_url"`
	} `yaml:"providers"`

	Monitor struct {
		ItemDelay time.Duration `yaml:"item_delay"`
	} `yaml:"monitor"`
}

// Default returns the built-in configuration.
func Default() App {
	var app App
	app.HTTP.Host = "127.0.0.1"
	app.HTTP.Port = 8347
	app.RateLimit.RequestsPerWindow = 30
	app.RateLimit.Window = time.Minute
	app.Fetch.RequestTimeout = 15 * time.Second
	app.Fetch.MaxAttempts = 3
	app.Fetch.BackoffBase = time.Second
	app.Monitor.ItemDelay = 2 * time.Second
	return app
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (App, error) {
	app := Default()
	if path == "" {
		return app, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return app, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &app); err != nil {
		return app, fmt.Errorf("parsing config YAML: %w", err)
	}

	if app.RateLimit.RequestsPerWindow <= 0 {
		app.RateLimit.RequestsPerWindow = Default().RateLimit.RequestsPerWindow
	}
	if app.RateLimit.Window <= 0 {
		app.RateLimit.Window = Default().RateLimit.Window
	}
	return app, nil
}
