package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/viper"
)

// Config holds all configuration, read from an optional config file and
// overridden by environment variables.
type Config struct {
	Port            string
	RABURL          string
	UpstreamTimeout time.Duration
	UpstreamRPS     float64
	UpstreamBurst   int
	CacheTTL        time.Duration
	CacheMaxEntries int
	RateLimitWindow time.Duration
	RateLimitMax    int
	TrustProxy      bool
	CORSOrigin      string
	StaticDir       string
	NATSURL         string
	NATSSubject     string
	Log             LogConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

func loadConfig() (Config, error) {
	v := viper.New()

	v.SetDefault("port", "3000")
	v.SetDefault("rab_url", "https://sistemas.anac.gov.br/aeronaves/cons_rab_resposta.asp")
	v.SetDefault("upstream_timeout_ms", 15000)
	v.SetDefault("upstream_rps", 5)
	v.SetDefault("upstream_burst", 5)
	v.SetDefault("cache_ttl_ms", 600000)
	v.SetDefault("cache_max_entries", 500)
	v.SetDefault("rate_limit_window_ms", 60000)
	v.SetDefault("rate_limit_max", 30)
	v.SetDefault("trust_proxy", false)
	v.SetDefault("cors_origin", "*")
	v.SetDefault("static_dir", "public")
	v.SetDefault("nats_url", "")
	v.SetDefault("nats_subject", "rab.lookups")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if path := os.Getenv("RAB_PROXY_CONFIG"); path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Config{
		Port:            v.GetString("port"),
		RABURL:          v.GetString("rab_url"),
		UpstreamTimeout: millis(v.GetInt64("upstream_timeout_ms")),
		UpstreamRPS:     v.GetFloat64("upstream_rps"),
		UpstreamBurst:   v.GetInt("upstream_burst"),
		CacheTTL:        millis(v.GetInt64("cache_ttl_ms")),
		CacheMaxEntries: v.GetInt("cache_max_entries"),
		RateLimitWindow: millis(v.GetInt64("rate_limit_window_ms")),
		RateLimitMax:    v.GetInt("rate_limit_max"),
		TrustProxy:      v.GetBool("trust_proxy"),
		CORSOrigin:      v.GetString("cors_origin"),
		StaticDir:       v.GetString("static_dir"),
		NATSURL:         v.GetString("nats_url"),
		NATSSubject:     v.GetString("nats_subject"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := validate(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func millis(n int64) time.Duration { return time.Duration(n) * time.Millisecond }

func validate(cfg Config) error {
	if cfg.Port == "" {
		return fmt.Errorf("port is required")
	}
	if cfg.RABURL == "" {
		return fmt.Errorf("rab_url is required")
	}
	if cfg.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream_timeout_ms must be greater than 0")
	}
	if cfg.UpstreamRPS < 0 {
		return fmt.Errorf("upstream_rps must not be negative")
	}
	if cfg.UpstreamRPS > 0 && cfg.UpstreamBurst <= 0 {
		return fmt.Errorf("upstream_burst must be greater than 0 when upstream_rps is set")
	}
	if cfg.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl_ms must be greater than 0")
	}
	if cfg.CacheMaxEntries <= 0 {
		return fmt.Errorf("cache_max_entries must be greater than 0")
	}
	if cfg.RateLimitWindow <= 0 {
		return fmt.Errorf("rate_limit_window_ms must be greater than 0")
	}
	if cfg.RateLimitMax <= 0 {
		return fmt.Errorf("rate_limit_max must be greater than 0")
	}
	if cfg.NATSURL != "" && cfg.NATSSubject == "" {
		return fmt.Errorf("nats_subject is required when nats_url is set")
	}
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s (must be text, json, or console)", cfg.Log.Format)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", s)
}

func newLogger(cfg LogConfig) *slog.Logger {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "console":
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	case "text":
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
}
