package handler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-rpg-bot/internal/config"
	"telegram-rpg-bot/internal/model"
	"telegram-rpg-bot/internal/pkg/lock"
	"telegram-rpg-bot/internal/player"
)

// ItemsPerPage is the inventory pagination size.
const ItemsPerPage = 10

// MenuHandler handles the main menu, character sheet, inventory, healing,
// and daily bonus.
type MenuHandler struct {
	cfg      *config.Config
	players  *player.Store
	userLock *lock.UserLock

	restTimes sync.Map // map[int64]time.Time - last rest per user
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(cfg *config.Config, players *player.Store, userLock *lock.UserLock) *MenuHandler {
	return &MenuHandler{
		cfg:      cfg,
		players:  players,
		userLock: userLock,
	}
}

// HandleStart handles the /start command.
func (m *MenuHandler) HandleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	m.userLock.Lock(sender.ID)
	defer m.userLock.Unlock(sender.ID)

	isNew := !m.players.Exists(sender.ID)
	p := m.players.GetOrCreate(sender.ID, displayName(sender))
	defer m.save(sender.ID)

	if err := c.Send(m.formatWelcome(p, isNew), m.buildMainMenuKeyboard(p)); err != nil {
		return err
	}

	if isNew {
		tutorial := "💡 <b>Быстрый старт:</b>\n" +
			"• Нажмите «⚔️ Сражаться» для боя\n" +
			"• Проверьте «👤 Персонаж» для характеристик\n" +
			"• Используйте «🎁 Дневной бонус» для денег\n" +
			"• Нажмите «🆘 Помощь» для подробного руководства"
		return c.Send(tutorial)
	}
	return nil
}

// HandleMenu handles the /menu command.
func (m *MenuHandler) HandleMenu(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	m.userLock.Lock(sender.ID)
	defer m.userLock.Unlock(sender.ID)

	p := m.players.GetOrCreate(sender.ID, displayName(sender))
	defer m.save(sender.ID)

	return c.Send(m.formatWelcome(p, false), m.buildMainMenuKeyboard(p))
}

// HandleStats handles the /stats command.
func (m *MenuHandler) HandleStats(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	m.userLock.Lock(sender.ID)
	defer m.userLock.Unlock(sender.ID)

	p := m.players.GetOrCreate(sender.ID, displayName(sender))
	defer m.save(sender.ID)

	return c.Send(formatCharacterSheet(p), buildBackKeyboard())
}

// HandleInventory handles the /inventory command.
func (m *MenuHandler) HandleInventory(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	m.userLock.Lock(sender.ID)
	defer m.userLock.Unlock(sender.ID)

	p := m.players.GetOrCreate(sender.ID, displayName(sender))
	defer m.save(sender.ID)

	return c.Send(formatInventory(p, 0), buildInventoryKeyboard(p, 0))
}

// HandleHeal handles the /heal command.
func (m *MenuHandler) HandleHeal(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	m.userLock.Lock(sender.ID)
	defer m.userLock.Unlock(sender.ID)

	p := m.players.GetOrCreate(sender.ID, displayName(sender))
	defer m.save(sender.ID)

	if p.Health >= p.MaxHealth {
		return c.Reply("❤️ Вы уже полностью здоровы!")
	}
	return c.Send(m.formatHealMenu(p), m.buildHealKeyboard(p))
}

// HandleMenuCallback routes menu_, heal_ and inv_ callbacks.
func (m *MenuHandler) HandleMenuCallback(c tele.Context, data string) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	m.userLock.Lock(sender.ID)
	defer m.userLock.Unlock(sender.ID)

	p := m.players.GetOrCreate(sender.ID, displayName(sender))
	defer m.save(sender.ID)

	switch {
	case data == CallbackMenuMain:
		return m.edit(c, m.formatWelcome(p, false), m.buildMainMenuKeyboard(p))
	case data == CallbackMenuCharacter:
		return m.edit(c, formatCharacterSheet(p), buildBackKeyboard())
	case data == CallbackMenuInventory:
		return m.edit(c, formatInventory(p, 0), buildInventoryKeyboard(p, 0))
	case strings.HasPrefix(data, CallbackInvPage):
		page, err := strconv.Atoi(strings.TrimPrefix(data, CallbackInvPage))
		if err != nil {
			page = 0
		}
		return m.edit(c, formatInventory(p, page), buildInventoryKeyboard(p, page))
	case data == CallbackMenuHeal:
		if p.Health >= p.MaxHealth {
			return c.Respond(&tele.CallbackResponse{Text: "❤️ Вы уже полностью здоровы!"})
		}
		return m.edit(c, m.formatHealMenu(p), m.buildHealKeyboard(p))
	case data == CallbackHealFull:
		return m.healFull(c, p)
	case data == CallbackHealHalf:
		return m.healHalf(c, p)
	case data == CallbackMenuRest:
		return m.rest(c, p)
	case data == CallbackMenuDaily:
		return m.dailyBonus(c, p)
	case data == CallbackMenuHelp:
		return m.edit(c, helpText(), buildBackKeyboard())
	}

	log.Warn().Str("data", data).Int64("user_id", sender.ID).Msg("Unknown menu callback")
	return c.Respond(&tele.CallbackResponse{Text: "❌ Неизвестное действие"})
}

func (m *MenuHandler) edit(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if err := c.Edit(text, markup); err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{})
}

func (m *MenuHandler) healFull(c tele.Context, p *model.Player) error {
	missing := p.MaxHealth - p.Health
	if missing <= 0 {
		return c.Respond(&tele.CallbackResponse{Text: "❤️ Вы уже полностью здоровы!"})
	}
	cost := int64(missing) * m.cfg.Game.HealCostPerHP
	if !m.players.SpendMoney(p, cost) {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Недостаточно денег!"})
	}
	m.players.Heal(p, missing)
	return c.Edit(fmt.Sprintf(
		"💚 Вы полностью излечились!\n❤️ Здоровье: %d/%d\n💰 Потрачено: %d монет\n💰 Осталось: %d монет",
		p.Health, p.MaxHealth, cost, p.Money,
	))
}

func (m *MenuHandler) healHalf(c tele.Context, p *model.Player) error {
	amount := (p.MaxHealth - p.Health) / 2
	if amount <= 0 {
		return c.Respond(&tele.CallbackResponse{Text: "❤️ Вы уже полностью здоровы!"})
	}
	cost := int64(amount) * m.cfg.Game.HealCostPerHP
	if !m.players.SpendMoney(p, cost) {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Недостаточно денег!"})
	}
	m.players.Heal(p, amount)
	return c.Edit(fmt.Sprintf(
		"💛 Вы частично излечились!\n%s\n💰 Потрачено: %d монет\n💰 Осталось: %d монет",
		HealthBar(p.Health, p.MaxHealth, 10), cost, p.Money,
	))
}

func (m *MenuHandler) rest(c tele.Context, p *model.Player) error {
	if last, ok := m.restTimes.Load(p.UserID); ok {
		if remaining := m.cfg.Game.RestCooldown - time.Since(last.(time.Time)); remaining > 0 {
			return c.Respond(&tele.CallbackResponse{
				Text: fmt.Sprintf("💤 Отдых будет доступен через %d сек.", int(remaining.Seconds())+1),
			})
		}
	}

	amount := int(float64(p.MaxHealth) * m.cfg.Game.RestHealFraction)
	healed := m.players.Heal(p, amount)
	if healed == 0 {
		return c.Respond(&tele.CallbackResponse{Text: "❤️ Вы уже полностью здоровы!"})
	}

	m.restTimes.Store(p.UserID, time.Now())
	return c.Edit(fmt.Sprintf(
		"🛏️ Вы отдохнули и восстановили %d HP\n%s\n💤 Отдых доступен снова через %d мин.",
		healed, HealthBar(p.Health, p.MaxHealth, 10), int(m.cfg.Game.RestCooldown.Minutes()),
	))
}

func (m *MenuHandler) dailyBonus(c tele.Context, p *model.Player) error {
	cooldown := time.Duration(m.cfg.Game.DailyCooldownHours) * time.Hour
	since := time.Since(time.Unix(p.LastDailyTime, 0))
	if p.LastDailyTime > 0 && since < cooldown {
		remaining := cooldown - since
		return c.Respond(&tele.CallbackResponse{
			Text: fmt.Sprintf("🕐 Следующий бонус через %dч %dм",
				int(remaining.Hours()), int(remaining.Minutes())%60),
		})
	}

	m.players.AddMoney(p, m.cfg.Game.DailyBonus)
	m.players.MarkDailyClaimed(p, time.Now())

	return c.Edit(fmt.Sprintf(
		"🎁 <b>ДНЕВНОЙ БОНУС ПОЛУЧЕН!</b>\n\n💰 Получено: %d монет\n💰 Всего денег: %d монет\n\n🕐 Следующий бонус через %d часа",
		m.cfg.Game.DailyBonus, p.Money, m.cfg.Game.DailyCooldownHours,
	))
}

func (m *MenuHandler) formatWelcome(p *model.Player, isNew bool) string {
	var b strings.Builder
	if isNew {
		b.WriteString("🎉 <b>Добро пожаловать в игру, герой!</b>\n\n")
		b.WriteString("🗡️ Вас ждут эпические сражения и великие приключения!\n")
		b.WriteString("💪 Сражайтесь с монстрами, повышайте уровень и становитесь сильнее!\n\n")
	} else {
		b.WriteString("🌟 С возвращением, герой!\n\n")
	}

	fmt.Fprintf(&b, "👤 <b>%s</b> (Уровень %d)\n", p.Name, p.Level)
	fmt.Fprintf(&b, "%s %d/%d HP\n", HealthBar(p.Health, p.MaxHealth, 10), p.Health, p.MaxHealth)
	fmt.Fprintf(&b, "💰 <b>Деньги:</b> %d монет\n", p.Money)
	fmt.Fprintf(&b, "%s\n", FormatRequiredExp(p))
	b.WriteString("\n🎯 <b>Что хотите сделать?</b>")
	return b.String()
}

func (m *MenuHandler) buildMainMenuKeyboard(p *model.Player) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	fightBtn := markup.Data("⚔️ Сражаться", CallbackMenuFight)
	characterBtn := markup.Data("👤 Персонаж", CallbackMenuCharacter)
	inventoryBtn := markup.Data("🎒 Инвентарь", CallbackMenuInventory)
	dailyBtn := markup.Data("🎁 Дневной бонус", CallbackMenuDaily)
	restBtn := markup.Data("🛏️ Отдых", CallbackMenuRest)
	helpBtn := markup.Data("🆘 Помощь", CallbackMenuHelp)

	rows := []tele.Row{
		markup.Row(fightBtn),
		markup.Row(characterBtn, inventoryBtn),
	}
	if p.Health < p.MaxHealth {
		rows = append(rows, markup.Row(markup.Data("🏥 Лечение", CallbackMenuHeal)))
	}
	rows = append(rows,
		markup.Row(dailyBtn, restBtn),
		markup.Row(helpBtn),
	)

	markup.Inline(rows...)
	return markup
}

func (m *MenuHandler) formatHealMenu(p *model.Player) string {
	missing := p.MaxHealth - p.Health
	var b strings.Builder
	b.WriteString("🏥 <b>ЛЕЧЕНИЕ</b>\n\n")
	fmt.Fprintf(&b, "Текущее здоровье: %s %d/%d\n", HealthBar(p.Health, p.MaxHealth, 10), p.Health, p.MaxHealth)
	fmt.Fprintf(&b, "Нужно восстановить: %d HP\n", missing)
	fmt.Fprintf(&b, "Ваши деньги: %d монет\n\n", p.Money)
	fmt.Fprintf(&b, "💰 Стоимость: %d монет за HP\n", m.cfg.Game.HealCostPerHP)
	fmt.Fprintf(&b, "🛏️ Отдых: восстанавливает %d HP бесплатно\n", int(float64(p.MaxHealth)*m.cfg.Game.RestHealFraction))
	b.WriteString("Выберите способ лечения:")
	return b.String()
}

func (m *MenuHandler) buildHealKeyboard(p *model.Player) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	missing := p.MaxHealth - p.Health
	fullCost := int64(missing) * m.cfg.Game.HealCostPerHP
	halfCost := int64(missing/2) * m.cfg.Game.HealCostPerHP

	var rows []tele.Row
	if missing > 0 && p.Money >= fullCost {
		rows = append(rows, markup.Row(markup.Data(
			fmt.Sprintf("💚 Полное лечение (%d монет)", fullCost), CallbackHealFull)))
	}
	if missing > 1 && p.Money >= halfCost {
		rows = append(rows, markup.Row(markup.Data(
			fmt.Sprintf("💛 Половина HP (%d монет)", halfCost), CallbackHealHalf)))
	}
	rows = append(rows,
		markup.Row(markup.Data("🛏️ Отдых (бесплатно)", CallbackMenuRest)),
		markup.Row(markup.Data("🔙 Назад", CallbackMenuMain)),
	)

	markup.Inline(rows...)
	return markup
}

func formatCharacterSheet(p *model.Player) string {
	var b strings.Builder
	b.WriteString("👤 <b>ЛИСТ ПЕРСОНАЖА</b>\n\n")
	fmt.Fprintf(&b, "📛 <b>Имя:</b> %s\n", p.Name)
	fmt.Fprintf(&b, "⭐ <b>Уровень:</b> %d\n", p.Level)
	fmt.Fprintf(&b, "❤️ <b>Здоровье:</b> %s %d/%d\n", HealthBar(p.Health, p.MaxHealth, 10), p.Health, p.MaxHealth)
	fmt.Fprintf(&b, "💰 <b>Деньги:</b> %d монет\n\n", p.Money)

	b.WriteString("📊 <b>ХАРАКТЕРИСТИКИ:</b>\n")
	fmt.Fprintf(&b, "⚔️ Сила: %d\n", p.Strength)
	fmt.Fprintf(&b, "🛡️ Защита: %d\n", p.Defense)
	fmt.Fprintf(&b, "🏃 Ловкость: %d\n", p.Agility)
	fmt.Fprintf(&b, "🧠 Интеллект: %d\n\n", p.Intelligence)

	fmt.Fprintf(&b, "✨ <b>ОПЫТ:</b> %s\n\n", FormatRequiredExp(p))

	hours := p.PlayTime / 3600
	minutes := (p.PlayTime % 3600) / 60
	fmt.Fprintf(&b, "⏰ <b>Время игры:</b> %dч %dм\n", hours, minutes)
	fmt.Fprintf(&b, "🏆 <b>Побед:</b> %d\n", p.BattlesWon)
	fmt.Fprintf(&b, "💥 <b>Общий урон:</b> %d\n", p.TotalDamageDealt)
	return b.String()
}

func formatInventory(p *model.Player, page int) string {
	items := make([]model.Item, len(p.Inventory))
	copy(items, p.Inventory)
	sort.Slice(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})

	totalPages := (len(items) + ItemsPerPage - 1) / ItemsPerPage
	if page < 0 {
		page = 0
	}
	if totalPages > 0 && page >= totalPages {
		page = totalPages - 1
	}

	var b strings.Builder
	b.WriteString("🎒 <b>ИНВЕНТАРЬ</b>\n")
	if len(items) == 0 {
		b.WriteString("📦 Инвентарь пуст\n")
		b.WriteString("💡 Сражайтесь с монстрами, чтобы получить предметы!")
		return b.String()
	}

	fmt.Fprintf(&b, "Страница %d/%d\n", page+1, totalPages)

	start := page * ItemsPerPage
	end := start + ItemsPerPage
	if end > len(items) {
		end = len(items)
	}
	pageItems := items[start:end]

	sections := []struct {
		title string
		typ   model.ItemType
	}{
		{"⚔️ <b>ОРУЖИЕ:</b>", model.ItemTypeWeapon},
		{"🛡️ <b>БРОНЯ:</b>", model.ItemTypeArmor},
		{"🧪 <b>РАСХОДНИКИ:</b>", model.ItemTypeConsumable},
		{"💎 <b>ПРОЧЕЕ:</b>", model.ItemTypeMisc},
	}
	for _, section := range sections {
		var lines []string
		for _, item := range pageItems {
			if item.Type != section.typ {
				continue
			}
			switch item.Type {
			case model.ItemTypeWeapon:
				lines = append(lines, fmt.Sprintf("• %s (+%d урон) x%d", item.Name, item.Damage, item.Quantity))
			case model.ItemTypeArmor:
				lines = append(lines, fmt.Sprintf("• %s (+%d защита) x%d", item.Name, item.Defense, item.Quantity))
			default:
				lines = append(lines, fmt.Sprintf("• %s x%d", item.Name, item.Quantity))
			}
		}
		if len(lines) > 0 {
			fmt.Fprintf(&b, "\n%s\n%s\n", section.title, strings.Join(lines, "\n"))
		}
	}
	return b.String()
}

func buildInventoryKeyboard(p *model.Player, page int) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	totalPages := (len(p.Inventory) + ItemsPerPage - 1) / ItemsPerPage
	var rows []tele.Row
	if totalPages > 1 {
		var nav []tele.Btn
		if page > 0 {
			nav = append(nav, markup.Data("⬅️ Назад", fmt.Sprintf("%s%d", CallbackInvPage, page-1)))
		}
		if page < totalPages-1 {
			nav = append(nav, markup.Data("Вперед ➡️", fmt.Sprintf("%s%d", CallbackInvPage, page+1)))
		}
		if len(nav) > 0 {
			rows = append(rows, markup.Row(nav...))
		}
	}
	rows = append(rows, markup.Row(markup.Data("🔙 Главное меню", CallbackMenuMain)))

	markup.Inline(rows...)
	return markup
}

func buildBackKeyboard() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("🔙 Назад", CallbackMenuMain)))
	return markup
}

func helpText() string {
	return "🆘 <b>РУКОВОДСТВО ПО ИГРЕ</b>\n\n" +
		"🎮 <b>Основы:</b>\n" +
		"• Сражайтесь с монстрами для получения опыта\n" +
		"• Повышайте уровень для доступа к новым врагам\n" +
		"• Собирайте предметы и деньги\n\n" +
		"⚔️ <b>Сражения:</b>\n" +
		"• Выбирайте противников по уровню сложности\n" +
		"• Используйте разные атаки и защиту\n" +
		"• Можете сбежать, если бой идет плохо\n\n" +
		"🏥 <b>Лечение:</b>\n" +
		"• Платное лечение в меню\n" +
		"• Бесплатный отдых каждые 5 минут\n" +
		"• При поражении теряете деньги, но не умираете\n\n" +
		"💰 <b>Экономика:</b>\n" +
		"• Получайте деньги за победы\n" +
		"• Дневной бонус каждые 24 часа\n" +
		"• Тратьте на лечение и улучшения\n\n" +
		"🎯 <b>Команды:</b>\n" +
		"/start - Главное меню\n" +
		"/stats - Характеристики\n" +
		"/fight - Быстрый бой\n" +
		"/inventory - Инвентарь\n" +
		"/heal - Лечение\n" +
		"/menu - Открыть меню"
}

// save flushes the player store once per logical request.
func (m *MenuHandler) save(userID int64) {
	if err := m.players.Save(); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to persist players after menu action")
	}
}
