package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration for the conversation engine.
type Config struct {
	APIBaseURL        string
	RealtimeURL       string
	AppID             string
	HistoryPageSize   int
	TypingIdleTimeout time.Duration
	UploadMaxSizeMB   int
	HTTPTimeout       time.Duration
	PingInterval      time.Duration
}

// Load reads configuration from environment variables and an optional .env
// file. Variables use the CONVERSE prefix, e.g. CONVERSE_API_BASE_URL.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CONVERSE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("api.base_url", "https://api.mindbehind.com")
	v.SetDefault("realtime.url", "wss://realtime.mindbehind.com/v1")
	v.SetDefault("history.page_size", 20)
	v.SetDefault("typing.idle_timeout", "10s")
	v.SetDefault("upload.max_size_mb", 25)
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("realtime.ping_interval", "25s")

	idle, err := time.ParseDuration(v.GetString("typing.idle_timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid typing idle timeout: %w", err)
	}

	httpTimeout, err := time.ParseDuration(v.GetString("http.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid http timeout: %w", err)
	}

	pingInterval, err := time.ParseDuration(v.GetString("realtime.ping_interval"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid realtime ping interval: %w", err)
	}

	cfg := Config{
		APIBaseURL:        v.GetString("api.base_url"),
		RealtimeURL:       v.GetString("realtime.url"),
		AppID:             v.GetString("app.id"),
		HistoryPageSize:   v.GetInt("history.page_size"),
		TypingIdleTimeout: idle,
		UploadMaxSizeMB:   v.GetInt("upload.max_size_mb"),
		HTTPTimeout:       httpTimeout,
		PingInterval:      pingInterval,
	}

	if cfg.AppID == "" {
		return Config{}, fmt.Errorf("app id must be provided")
	}

	if cfg.HistoryPageSize <= 0 {
		cfg.HistoryPageSize = 20
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 25
	}

	return cfg, nil
}
