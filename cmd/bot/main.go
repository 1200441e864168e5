// Package main is the entry point for the Telegram RPG bot.
package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"telegram-rpg-bot/internal/bot"
	"telegram-rpg-bot/internal/catalog"
	"telegram-rpg-bot/internal/combat"
	"telegram-rpg-bot/internal/config"
	"telegram-rpg-bot/internal/drop"
	"telegram-rpg-bot/internal/pkg/lock"
	"telegram-rpg-bot/internal/pkg/rng"
	"telegram-rpg-bot/internal/player"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg)

	log.Info().Msg("Configuration loaded successfully")

	enemies, err := catalog.Load(cfg.Data.EnemiesFile)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Data.EnemiesFile).
			Msg("Failed to load enemy catalog, combat will be unavailable")
		enemies = catalog.Empty()
	}
	log.Info().Int("enemies", enemies.Count()).Msg("Enemy catalog loaded")

	players := player.NewStore(cfg.Data.PlayersFile)
	log.Info().Int("players", players.Count()).Msg("Player store loaded")

	userLock := lock.NewUserLock()
	random := rng.NewTimeSeeded()
	drops := drop.NewResolver(random)
	engine := combat.NewEngine(enemies, players, drops, random, cfg.Game.LuckModifier)
	sessions := combat.NewSessionStore()

	deps := &bot.Dependencies{
		Config:   cfg,
		Players:  players,
		Engine:   engine,
		Sessions: sessions,
		UserLock: userLock,
	}

	telegramBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()

	// Flush any unsaved player state before exiting.
	players.MarkDirty()
	if err := players.Save(); err != nil {
		log.Error().Err(err).Msg("Failed to save players on shutdown")
	}

	log.Info().Msg("Bot stopped gracefully")
}

// setupLogging applies the configured log level and optional rotating file
// output on top of the console writer.
func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if !cfg.Log.File.Enabled {
		log.Logger = log.Output(console)
		return
	}

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.Log.File.Path,
		MaxSize:    cfg.Log.File.MaxSizeMB,
		MaxBackups: cfg.Log.File.MaxBackups,
		MaxAge:     cfg.Log.File.MaxAgeDays,
		Compress:   true,
	}
	log.Logger = log.Output(io.MultiWriter(console, fileWriter))
}
