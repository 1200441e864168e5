package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-rpg-bot/internal/combat"
	"telegram-rpg-bot/internal/model"
	"telegram-rpg-bot/internal/pkg/lock"
	"telegram-rpg-bot/internal/player"
)

// CombatHandler handles the /fight command and all combat callbacks.
type CombatHandler struct {
	players  *player.Store
	engine   *combat.Engine
	sessions *combat.SessionStore
	userLock *lock.UserLock
}

// NewCombatHandler creates a new CombatHandler.
func NewCombatHandler(
	players *player.Store,
	engine *combat.Engine,
	sessions *combat.SessionStore,
	userLock *lock.UserLock,
) *CombatHandler {
	return &CombatHandler{
		players:  players,
		engine:   engine,
		sessions: sessions,
		userLock: userLock,
	}
}

// HandleFight handles the /fight command.
func (h *CombatHandler) HandleFight(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	h.userLock.Lock(sender.ID)
	defer h.userLock.Unlock(sender.ID)

	return h.initiateFight(c, sender, false)
}

// initiateFight starts enemy selection. Callers must hold the user lock.
// edit selects between editing the triggering message and sending a new one.
func (h *CombatHandler) initiateFight(c tele.Context, sender *tele.User, edit bool) error {
	p := h.players.GetOrCreate(sender.ID, displayName(sender))
	defer h.save(sender.ID)

	s, eligible, err := h.engine.Initiate(p)
	if err != nil {
		var msg string
		switch {
		case errors.Is(err, combat.ErrPlayerDead):
			msg = "💀 Вы не можете сражаться с 0 HP! Используйте /heal для восстановления."
		case errors.Is(err, combat.ErrNoEligibleEnemies):
			msg = "🚫 Пока нет доступных врагов для вашего уровня."
		default:
			log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to initiate fight")
			msg = "❌ Произошла ошибка при начале боя."
		}
		return h.respond(c, edit, msg, nil)
	}

	h.sessions.Put(s)
	return h.respond(c, edit, FormatEnemySelection(p.Level), BuildEnemySelectionKeyboard(eligible, p.Level))
}

// HandleFightFromMenu starts enemy selection from a main-menu button,
// replacing the menu message.
func (h *CombatHandler) HandleFightFromMenu(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	h.userLock.Lock(sender.ID)
	defer h.userLock.Unlock(sender.ID)

	return h.initiateFight(c, sender, true)
}

// respond either edits the triggering message or sends a new one.
func (h *CombatHandler) respond(c tele.Context, edit bool, text string, markup *tele.ReplyMarkup) error {
	if edit {
		if markup != nil {
			return c.Edit(text, markup)
		}
		return c.Edit(text)
	}
	if markup != nil {
		return c.Send(text, markup)
	}
	return c.Send(text)
}

// HandleCombatCallback routes fight_ and combat_ callbacks.
func (h *CombatHandler) HandleCombatCallback(c tele.Context, data string) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	h.userLock.Lock(sender.ID)
	defer h.userLock.Unlock(sender.ID)

	if data == CallbackFightCancel {
		h.sessions.Delete(sender.ID)
		return c.Edit("❌ Бой отменен.")
	}

	s, ok := h.sessions.Get(sender.ID)
	if !ok {
		// Stale button from a finished or swept session.
		_ = c.Respond(&tele.CallbackResponse{Text: "❌ Бой уже завершен."})
		return c.Edit("❌ Произошла ошибка. Начните бой заново: /fight")
	}

	p := h.players.GetOrCreate(sender.ID, displayName(sender))
	defer h.save(sender.ID)

	switch {
	case strings.HasPrefix(data, CallbackFightSelect):
		return h.selectEnemy(c, p, s, strings.TrimPrefix(data, CallbackFightSelect))
	case data == CallbackFightRandom:
		return h.selectRandomEnemy(c, p, s)
	case strings.HasPrefix(data, CallbackCombatAttack):
		return h.attack(c, p, s, strings.TrimPrefix(data, CallbackCombatAttack))
	case data == CallbackCombatDefend:
		return h.defend(c, p, s)
	case data == CallbackCombatFlee:
		return h.flee(c, p, s)
	case data == CallbackCombatStats:
		return h.stats(c, p, s)
	}

	log.Warn().Str("data", data).Int64("user_id", sender.ID).Msg("Unknown combat callback")
	return c.Respond(&tele.CallbackResponse{Text: "❌ Неизвестное действие"})
}

func (h *CombatHandler) selectEnemy(c tele.Context, p *model.Player, s *combat.Session, name string) error {
	if err := h.engine.SelectEnemy(p, s, name); err != nil {
		if errors.Is(err, combat.ErrUnknownEnemy) {
			return c.Respond(&tele.CallbackResponse{Text: "❌ Враг не найден!"})
		}
		return h.terminate(c, p.UserID, err)
	}
	return h.showCombat(c, p, s, "")
}

func (h *CombatHandler) selectRandomEnemy(c tele.Context, p *model.Player, s *combat.Session) error {
	if _, err := h.engine.SelectRandomEnemy(p, s); err != nil {
		return h.terminate(c, p.UserID, err)
	}
	return h.showCombat(c, p, s, "")
}

func (h *CombatHandler) attack(c tele.Context, p *model.Player, s *combat.Session, indexArg string) error {
	index, convErr := strconv.Atoi(indexArg)
	if convErr != nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Неверная атака!"})
	}

	// The typing indicator is pure theater; game state never depends on it.
	_ = c.Notify(tele.Typing)

	out, err := h.engine.Attack(p, s, index)
	if err != nil {
		if errors.Is(err, combat.ErrInvalidAttack) {
			return c.Respond(&tele.CallbackResponse{Text: "❌ Неверная атака!"})
		}
		return h.terminate(c, p.UserID, err)
	}
	return h.renderOutcome(c, p, s, out)
}

func (h *CombatHandler) defend(c tele.Context, p *model.Player, s *combat.Session) error {
	out, err := h.engine.Defend(p, s)
	if err != nil {
		return h.terminate(c, p.UserID, err)
	}
	return h.renderOutcome(c, p, s, out)
}

func (h *CombatHandler) flee(c tele.Context, p *model.Player, s *combat.Session) error {
	out, err := h.engine.Flee(p, s)
	if err != nil {
		return h.terminate(c, p.UserID, err)
	}
	return h.renderOutcome(c, p, s, out)
}

func (h *CombatHandler) stats(c tele.Context, p *model.Player, s *combat.Session) error {
	if s.Enemy == nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Бой еще не начался"})
	}
	return c.Respond(&tele.CallbackResponse{
		Text:      FormatCombatStats(p, s.Enemy),
		ShowAlert: true,
	})
}

// renderOutcome renders the turn result and ends the session on a terminal
// outcome.
func (h *CombatHandler) renderOutcome(c tele.Context, p *model.Player, s *combat.Session, out *combat.Outcome) error {
	enemyName := ""
	if s.Enemy != nil {
		enemyName = s.Enemy.Name
	}
	actionLog := FormatTurnReport(out.Turn, enemyName)

	switch out.Terminal {
	case combat.TerminalVictory:
		h.sessions.Delete(p.UserID)
		return c.Edit(FormatVictory(actionLog, out.Victory))
	case combat.TerminalDefeat:
		h.sessions.Delete(p.UserID)
		return c.Edit(FormatDefeat(actionLog, p, out.Defeat))
	case combat.TerminalFled:
		h.sessions.Delete(p.UserID)
		return c.Edit(FormatFled(enemyName, out.FledMoneyLost))
	}

	return h.showCombat(c, p, s, actionLog)
}

func (h *CombatHandler) showCombat(c tele.Context, p *model.Player, s *combat.Session, actionLog string) error {
	if err := c.Edit(FormatCombatMessage(p, s.Enemy, actionLog, s.TurnCount), BuildCombatKeyboard(p, s.Enemy)); err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{})
}

// terminate clears a session that reached an inconsistent state and tells
// the user to start over. The player is never left in a lingering broken
// session.
func (h *CombatHandler) terminate(c tele.Context, userID int64, err error) error {
	log.Error().Err(err).Int64("user_id", userID).Msg("Combat session in inconsistent state, clearing")
	h.sessions.Delete(userID)
	return c.Edit("❌ Произошла ошибка. Начните бой заново: /fight")
}

// save flushes the player store once per logical request.
func (h *CombatHandler) save(userID int64) {
	if err := h.players.Save(); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to persist players after combat action")
	}
}

// displayName picks the best available name for a Telegram user.
func displayName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}
