// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Data      DataConfig      `mapstructure:"data"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Game      GameConfig      `mapstructure:"game"`
	Log       LogConfig       `mapstructure:"log"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DataConfig holds the locations of the durable data files and how often
// dirty player state is flushed to disk.
type DataConfig struct {
	PlayersFile      string        `mapstructure:"players_file"`
	EnemiesFile      string        `mapstructure:"enemies_file"`
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// GameConfig holds game tuning configuration.
type GameConfig struct {
	LuckModifier       float64       `mapstructure:"luck_modifier"`
	DailyBonus         int64         `mapstructure:"daily_bonus"`
	DailyCooldownHours int           `mapstructure:"daily_cooldown_hours"`
	HealCostPerHP      int64         `mapstructure:"heal_cost_per_hp"`
	RestHealFraction   float64       `mapstructure:"rest_heal_fraction"`
	RestCooldown       time.Duration `mapstructure:"rest_cooldown"`
	SessionTimeout     time.Duration `mapstructure:"session_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string        `mapstructure:"level"`
	File  LogFileConfig `mapstructure:"file"`
}

// LogFileConfig holds rotating log file configuration.
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the given directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, DATA_PLAYERS_FILE.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars can provide all config
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("data.players_file", "data/players.json")
	v.SetDefault("data.enemies_file", "data/enemies.yaml")
	v.SetDefault("data.autosave_interval", "5m")

	v.SetDefault("game.luck_modifier", 1.0)
	v.SetDefault("game.daily_bonus", 100)
	v.SetDefault("game.daily_cooldown_hours", 24)
	v.SetDefault("game.heal_cost_per_hp", 5)
	v.SetDefault("game.rest_heal_fraction", 0.3)
	v.SetDefault("game.rest_cooldown", "5m")
	v.SetDefault("game.session_timeout", "5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "logs/bot.log")
	v.SetDefault("log.file.max_size_mb", 50)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
