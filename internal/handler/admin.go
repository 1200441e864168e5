package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-rpg-bot/internal/pkg/lock"
	"telegram-rpg-bot/internal/player"
)

// AdminHandler handles admin-related commands.
type AdminHandler struct {
	players  *player.Store
	userLock *lock.UserLock
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(players *player.Store, userLock *lock.UserLock) *AdminHandler {
	return &AdminHandler{
		players:  players,
		userLock: userLock,
	}
}

// HandleAdminStat handles the /admin_stat command.
// Format: /admin_stat <user_id> <field> <delta>
func (h *AdminHandler) HandleAdminStat(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 3 {
		return c.Reply(fmt.Sprintf(
			"❌ Использование: /admin_stat <ID> <поле> <изменение>\n"+
				"Например: /admin_stat 123456789 strength 5\n\n"+
				"Доступные поля: %s",
			strings.Join(statFieldNames(), ", "),
		))
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Reply("❌ Неверный формат ID пользователя")
	}

	field, err := player.ParseStatField(args[1])
	if err != nil {
		if errors.Is(err, player.ErrUnknownStat) {
			return c.Reply(fmt.Sprintf(
				"❌ Неизвестное поле %q\nДоступные поля: %s",
				args[1], strings.Join(statFieldNames(), ", "),
			))
		}
		return c.Reply("❌ Ошибка разбора поля")
	}

	delta, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return c.Reply("❌ Изменение должно быть целым числом")
	}

	h.userLock.Lock(targetID)
	defer h.userLock.Unlock(targetID)

	p, ok := h.players.Get(targetID)
	if !ok {
		return c.Reply("❌ Игрок не найден")
	}

	value, err := h.players.ApplyStatDelta(p, field, delta)
	if err != nil {
		return c.Reply("❌ Ошибка применения изменения")
	}
	if err := h.players.Save(); err != nil {
		log.Error().Err(err).Int64("target_id", targetID).Msg("Failed to persist admin stat change")
		return c.Reply("❌ Не удалось сохранить изменения")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Str("field", string(field)).
		Int64("delta", delta).
		Int64("new_value", value).
		Str("operation", "admin_stat").
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf(
		"✅ Характеристика изменена\n\n"+
			"👤 Игрок: %s (ID: %d)\n"+
			"📊 Поле: %s\n"+
			"🔀 Изменение: %+d\n"+
			"🆕 Новое значение: %d",
		p.Name, targetID, field, delta, value,
	))
}

// HandleAdminInfo handles the /admin_info command.
// Format: /admin_info <user_id>
func (h *AdminHandler) HandleAdminInfo(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Использование: /admin_info <ID>\nНапример: /admin_info 123456789")
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Reply("❌ Неверный формат ID пользователя")
	}

	h.userLock.Lock(targetID)
	defer h.userLock.Unlock(targetID)

	p, ok := h.players.Get(targetID)
	if !ok {
		return c.Reply("❌ Игрок не найден")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Str("operation", "admin_info").
		Msg("Admin operation executed")

	return c.Reply(formatCharacterSheet(p))
}

// HandleAdminDelete handles the /admin_delete command.
// Format: /admin_delete <user_id>
func (h *AdminHandler) HandleAdminDelete(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Использование: /admin_delete <ID>\nНапример: /admin_delete 123456789")
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Reply("❌ Неверный формат ID пользователя")
	}

	h.userLock.Lock(targetID)
	defer h.userLock.Unlock(targetID)

	if !h.players.Delete(targetID) {
		return c.Reply("❌ Игрок не найден")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Str("operation", "admin_delete").
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf("✅ Игрок %d удален", targetID))
}

// HandleAdminSave handles the /admin_save command, forcing a snapshot write.
func (h *AdminHandler) HandleAdminSave(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	h.players.MarkDirty()
	if err := h.players.Save(); err != nil {
		log.Error().Err(err).Msg("Failed to force save")
		return c.Reply("❌ Не удалось сохранить данные")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Str("operation", "admin_save").
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf("✅ Данные сохранены (%d игроков)", h.players.Count()))
}

func statFieldNames() []string {
	fields := player.StatFields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}
