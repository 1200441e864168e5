package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-rpg-bot/internal/combat"
	"telegram-rpg-bot/internal/config"
	"telegram-rpg-bot/internal/handler"
	"telegram-rpg-bot/internal/pkg/lock"
	"telegram-rpg-bot/internal/player"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot      *tele.Bot
	cfg      *config.Config
	players  *player.Store
	sessions *combat.SessionStore
	userLock *lock.UserLock

	combatHandler *handler.CombatHandler
	menuHandler   *handler.MenuHandler
	adminHandler  *handler.AdminHandler

	// stop terminates the background loops (session sweeper, autosaver).
	stop chan struct{}
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config   *config.Config
	Players  *player.Store
	Engine   *combat.Engine
	Sessions *combat.SessionStore
	UserLock *lock.UserLock
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:     deps.Config.Bot.Token,
		Poller:    &tele.LongPoller{Timeout: 10 * time.Second},
		ParseMode: tele.ModeHTML,
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:      teleBot,
		cfg:      deps.Config,
		players:  deps.Players,
		sessions: deps.Sessions,
		userLock: deps.UserLock,
		stop:     make(chan struct{}),
	}

	b.combatHandler = handler.NewCombatHandler(deps.Players, deps.Engine, deps.Sessions, deps.UserLock)
	b.menuHandler = handler.NewMenuHandler(deps.Config, deps.Players, deps.UserLock)
	b.adminHandler = handler.NewAdminHandler(deps.Players, deps.UserLock)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.menuHandler.HandleStart)
	b.bot.Handle("/menu", b.menuHandler.HandleMenu)
	b.bot.Handle("/stats", b.menuHandler.HandleStats)
	b.bot.Handle("/inventory", b.menuHandler.HandleInventory)
	b.bot.Handle("/heal", b.menuHandler.HandleHeal)

	b.bot.Handle("/fight", b.combatHandler.HandleFight)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/admin_stat", b.adminHandler.HandleAdminStat)
	adminGroup.Handle("/admin_info", b.adminHandler.HandleAdminInfo)
	adminGroup.Handle("/admin_delete", b.adminHandler.HandleAdminDelete)
	adminGroup.Handle("/admin_save", b.adminHandler.HandleAdminSave)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes callbacks by data prefix.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data.
	data := strings.TrimPrefix(callback.Data, "\f")
	log.Debug().Str("data", data).Msg("Callback received")

	switch {
	case data == handler.CallbackMenuFight:
		return b.combatHandler.HandleFightFromMenu(c)
	case strings.HasPrefix(data, "fight_"), strings.HasPrefix(data, "combat_"):
		return b.combatHandler.HandleCombatCallback(c, data)
	case strings.HasPrefix(data, "menu_"), strings.HasPrefix(data, "heal_"), strings.HasPrefix(data, "inv_"):
		return b.menuHandler.HandleMenuCallback(c, data)
	}

	log.Warn().Str("data", data).Msg("Unroutable callback")
	return c.Respond(&tele.CallbackResponse{Text: "❌ Неизвестное действие"})
}

// Start starts the bot polling and the background loops.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")

	go b.runSessionSweeper()
	log.Info().Dur("timeout", b.cfg.Game.SessionTimeout).Msg("Session sweeper started")

	go b.runAutosaver()
	log.Info().Dur("interval", b.cfg.Data.AutosaveInterval).Msg("Autosaver started")

	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	close(b.stop)
	b.bot.Stop()
}

// runSessionSweeper periodically drops combat sessions abandoned longer than
// the configured timeout.
func (b *Bot) runSessionSweeper() {
	interval := b.cfg.Game.SessionTimeout / 2
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := b.sessions.SweepAbandoned(b.cfg.Game.SessionTimeout); removed > 0 {
				log.Info().Int("removed", removed).Msg("Swept abandoned combat sessions")
			}
		case <-b.stop:
			return
		}
	}
}

// runAutosaver periodically flushes dirty player state to disk. A failed
// flush leaves the store dirty, so the next tick retries it.
func (b *Bot) runAutosaver() {
	interval := b.cfg.Data.AutosaveInterval
	if interval <= 0 {
		log.Warn().Msg("Autosave disabled: non-positive interval")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := b.players.Save(); err != nil {
				log.Error().Err(err).Msg("Autosave failed")
			}
		case <-b.stop:
			return
		}
	}
}

// GetBot returns the underlying telebot instance.
func (b *Bot) GetBot() *tele.Bot {
	return b.bot
}
