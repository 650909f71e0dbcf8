package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"modbot/model"
)

// Load reads configuration from environment variables (secrets) and
// data/config.yaml (scheduler tuning and per-guild settings).
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg(".env file not found, relying on environment variables")
	}

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		return nil, errors.New("BOT_TOKEN environment variable not set")
	}
	appID := os.Getenv("APP_ID")
	if appID == "" {
		return nil, errors.New("APP_ID environment variable not set")
	}
	logChannelID := os.Getenv("LOG_CHANNEL_ID")
	if logChannelID == "" {
		log.Warn().Msg("LOG_CHANNEL_ID not set, resolution notifications are disabled")
	}
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/moderation.db"
	}

	cfg := &model.Config{
		BotToken:      token,
		AppID:         appID,
		LogChannelID:  logChannelID,
		DatabasePath:  dbPath,
		ServerConfigs: make(map[string]model.ServerConfig),
	}

	if err := loadFile(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *model.Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("data")

	v.SetDefault("scheduler.engine", "sweep")
	v.SetDefault("scheduler.sweep_interval", 30*time.Second)
	v.SetDefault("scheduler.sweep_workers", 5)
	v.SetDefault("scheduler.forbidden_retry_after", time.Hour)
	v.SetDefault("scheduler.transient_retry_base", 30*time.Second)
	v.SetDefault("scheduler.transient_retry_max", 15*time.Minute)
	v.SetDefault("scheduler.max_attempts", 0)
	v.SetDefault("scheduler.rate_per_sec", 5)
	v.SetDefault("scheduler.daily_report_cron", "0 9 * * *")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read data/config.yaml: %w", err)
		}
		log.Warn().Msg("data/config.yaml not found, using defaults")
	}

	if err := v.UnmarshalKey("scheduler", &cfg.Scheduler); err != nil {
		return fmt.Errorf("failed to parse scheduler config: %w", err)
	}
	if err := v.UnmarshalKey("servers", &cfg.ServerConfigs); err != nil {
		return fmt.Errorf("failed to parse server configs: %w", err)
	}
	return nil
}
