package commands

import (
	"citibike-scraper/lib/configutil"
	"citibike-scraper/lib/scrapers/citibike"
	"citibike-scraper/lib/telemetry"
	"citibike-scraper/lib/timezone"
	"errors"
	"fmt"
	"os"
	"time"
)

const CONFIG_FILE = "citibike.json5"

type HttpConfig struct {
	UserAgent               string `json:"user_agent"`
	TimeoutSeconds          int    `json:"timeout_seconds"`
	DisableCloudflareBypass bool   `json:"disable_cloudflare_bypass"`
}

type NatsConfig struct {
	Url string `json:"url"`
	// trips are published under <subject>.<run id>
	Subject string `json:"subject"`
}

type Config struct {
	Username string `json:"username"`
	Password string `json:"password"`

	BaseUrl   string              `json:"base_url"`
	Timezone  string              `json:"timezone"`
	Selectors citibike.Selectors  `json:"selectors"`
	Http      HttpConfig          `json:"http"`
	Log       telemetry.LogConfig `json:"log"`

	// if set, every scrape is also written to this database
	Database string     `json:"database"`
	Nats     NatsConfig `json:"nats"`
	// seconds between perf stat samples, 0 disables them
	PerfStatsSeconds int `json:"perf_stats_seconds"`
}

func defaultConfig() Config {
	client := citibike.DefaultClientOptions()
	return Config{
		BaseUrl:   client.BaseUrl,
		Timezone:  timezone.DEFAULT_LOCATION,
		Selectors: client.Selectors,
		Http: HttpConfig{
			UserAgent:      client.UserAgent,
			TimeoutSeconds: int(client.Timeout / time.Second),
		},
		Log:  telemetry.DefaultLogConfig(),
		Nats: NatsConfig{Subject: "citibike"},
	}
}

// loadConfig reads citibike.json5 (if there is one) over the defaults, the
// credentials in the environment or .env take precedence over the file.
func loadConfig() (Config, error) {
	err := configutil.LoadEnv()
	if err != nil {
		return Config{}, err
	}

	cfg, err := configutil.ReadConfig[Config](CONFIG_FILE)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", CONFIG_FILE, err)
	}
	cfg, err = configutil.WithDefaults(cfg, defaultConfig())
	if err != nil {
		return Config{}, err
	}

	cfg.Username = configutil.Env("CITIBIKE_USERNAME", cfg.Username)
	cfg.Password = configutil.Env("CITIBIKE_PASSWORD", cfg.Password)
	cfg.Database = configutil.Env("CITIBIKE_DATABASE", cfg.Database)
	cfg.Nats.Url = configutil.Env("CITIBIKE_NATS_URL", cfg.Nats.Url)

	err = cfg.Selectors.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) clientOptions() citibike.ClientOptions {
	opts := citibike.DefaultClientOptions()
	opts.BaseUrl = c.BaseUrl
	opts.Selectors = c.Selectors
	opts.UserAgent = c.Http.UserAgent
	opts.Timeout = time.Duration(c.Http.TimeoutSeconds) * time.Second
	opts.CloudflareBypass = !c.Http.DisableCloudflareBypass
	return opts
}

func (c Config) location() (*time.Location, error) {
	return timezone.Load(c.Timezone)
}

// now is the current time in the configured time zone.
func (c Config) now() (time.Time, error) {
	loc, err := c.location()
	if err != nil {
		return time.Time{}, err
	}
	return time.Now().In(loc), nil
}
