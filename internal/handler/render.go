// Package handler provides Telegram bot command and callback handlers.
package handler

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"telegram-rpg-bot/internal/catalog"
	"telegram-rpg-bot/internal/combat"
	"telegram-rpg-bot/internal/drop"
	"telegram-rpg-bot/internal/model"
	"telegram-rpg-bot/internal/player"
)

// Callback data prefixes.
const (
	CallbackFightSelect = "fight_select:"
	CallbackFightRandom = "fight_random"
	CallbackFightCancel = "fight_cancel"

	CallbackCombatAttack = "combat_attack:"
	CallbackCombatDefend = "combat_defend"
	CallbackCombatFlee   = "combat_flee"
	CallbackCombatStats  = "combat_stats"

	CallbackMenuMain      = "menu_main"
	CallbackMenuFight     = "menu_fight"
	CallbackMenuCharacter = "menu_character"
	CallbackMenuInventory = "menu_inventory"
	CallbackMenuHeal      = "menu_heal"
	CallbackMenuDaily     = "menu_daily"
	CallbackMenuRest      = "menu_rest"
	CallbackMenuHelp      = "menu_help"
	CallbackHealFull      = "heal_full"
	CallbackHealHalf      = "heal_half"
	CallbackInvPage       = "inv_page:"
)

// HealthBar renders a visual health bar of the given length.
func HealthBar(current, maximum, length int) string {
	if maximum <= 0 {
		return "💀"
	}
	if current < 0 {
		current = 0
	}
	if current > maximum {
		current = maximum
	}
	filled := current * length / maximum
	empty := length - filled

	switch {
	case current == 0:
		return "💀" + strings.Repeat("⬜", length-1)
	case current*5 <= maximum: // at or below 20%
		return strings.Repeat("🟥", filled) + strings.Repeat("⬜", empty)
	case current*2 <= maximum: // at or below 50%
		return strings.Repeat("🟨", filled) + strings.Repeat("⬜", empty)
	default:
		return strings.Repeat("🟩", filled) + strings.Repeat("⬜", empty)
	}
}

// LevelProgressBar renders experience progress toward the next level.
func LevelProgressBar(exp, required, length int) string {
	if required <= 0 {
		return "⭐ MAX"
	}
	if exp > required {
		exp = required
	}
	filled := exp * length / required
	return fmt.Sprintf("⭐ %s%s (%d/%d)",
		strings.Repeat("🟦", filled), strings.Repeat("⬜", length-filled), exp, required)
}

// estimatedDamage previews the damage an attack would deal before defense
// variance.
func estimatedDamage(p *model.Player, attack model.Attack, enemy *catalog.Enemy) int {
	if d := p.Strength + attack.Damage - enemy.Defense; d > 0 {
		return d
	}
	return 0
}

func accuracyIcon(accuracy float64) string {
	switch {
	case accuracy >= 0.8:
		return "🎯"
	case accuracy >= 0.6:
		return "⚡"
	default:
		return "💫"
	}
}

// FormatCombatMessage renders the main combat screen.
func FormatCombatMessage(p *model.Player, enemy *catalog.Enemy, lastAction string, turn int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚔️ <b>БОЙ</b> (Раунд %d)\n\n", turn)

	fmt.Fprintf(&b, "🧙‍♂️ <b>Вы</b> (ур.%d)\n", p.Level)
	fmt.Fprintf(&b, "%s %d/%d HP\n", HealthBar(p.Health, p.MaxHealth, 10), p.Health, p.MaxHealth)
	fmt.Fprintf(&b, "⚔️ Сила: %d | 🛡️ Защита: %d\n\n", p.Strength, p.Defense)

	fmt.Fprintf(&b, "👹 <b>%s</b> (ур.%d)\n", enemy.Name, enemy.Level)
	fmt.Fprintf(&b, "%s %d HP\n", HealthBar(enemy.Health, enemy.MaxHealth, 10), enemy.Health)
	fmt.Fprintf(&b, "⚔️ Сила: %d | 🛡️ Защита: %d\n\n", enemy.Strength, enemy.Defense)

	if lastAction != "" {
		fmt.Fprintf(&b, "📝 <b>Последнее действие:</b>\n%s\n\n", lastAction)
	}

	b.WriteString("🎯 <b>Выберите действие:</b>")
	return b.String()
}

// FormatTurnReport renders one resolved turn as an action log.
func FormatTurnReport(t combat.TurnReport, enemyName string) string {
	var lines []string

	switch {
	case t.FleeFailed:
		lines = append(lines, "💨 Побег не удался!")
	case t.DefenseBonus > 0 || t.AttackName == "":
		lines = append(lines, fmt.Sprintf("🛡️ Вы заняли оборонительную позицию (+%d защиты)", t.DefenseBonus))
	case t.PlayerHit && t.Critical:
		lines = append(lines, fmt.Sprintf("💥 <b>КРИТИЧЕСКИЙ УДАР!</b>\n🗡️ Вы нанесли %d урона атакой «%s»", t.DamageDealt, t.AttackName))
	case t.PlayerHit:
		lines = append(lines, fmt.Sprintf("🗡️ Вы нанесли %d урона атакой «%s»", t.DamageDealt, t.AttackName))
	default:
		lines = append(lines, fmt.Sprintf("💨 Промах! Атака «%s» не достигла цели", t.AttackName))
	}

	if t.EnemyAttackName != "" {
		if t.EnemyHit {
			lines = append(lines, fmt.Sprintf("🩸 %s нанес вам %d урона атакой «%s»", enemyName, t.DamageTaken, t.EnemyAttackName))
		} else {
			lines = append(lines, fmt.Sprintf("🛡️ Вы уклонились от атаки «%s»", t.EnemyAttackName))
		}
	}

	return strings.Join(lines, "\n")
}

// FormatDrops renders drops grouped by rarity, rarest first.
func FormatDrops(drops []drop.Drop) string {
	if len(drops) == 0 {
		return "📦 Дроп: Ничего"
	}

	groups := make(map[drop.Rarity][]drop.Drop)
	for _, d := range drops {
		groups[d.Rarity] = append(groups[d.Rarity], d)
	}

	order := []drop.Rarity{drop.RarityVeryRare, drop.RarityRare, drop.RarityUncommon, drop.RarityCommon}
	var b strings.Builder
	b.WriteString("🎁 <b>Выпавшие предметы:</b>")
	for _, rarity := range order {
		group, ok := groups[rarity]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n%s <b>%s:</b>", rarity.Emoji(), rarity.Label())
		for _, d := range group {
			fmt.Fprintf(&b, "\n  • %s x%d", d.Name, d.Quantity)
		}
	}
	return b.String()
}

// FormatVictory renders the victory summary.
func FormatVictory(actionLog string, v *combat.VictoryReport) string {
	var b strings.Builder
	if actionLog != "" {
		b.WriteString(actionLog)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "🎉 <b>ПОБЕДА!</b> %s побежден!\n\n", v.EnemyName)
	b.WriteString("🏆 <b>Награды:</b>\n")
	fmt.Fprintf(&b, "⚡ Опыт: +%d XP\n", v.Exp)
	fmt.Fprintf(&b, "💰 Деньги: +%d монет\n", v.Money)
	b.WriteString(FormatDrops(v.Drops))
	if v.LeveledUp {
		fmt.Fprintf(&b, "\n\n⬆️ <b>УРОВЕНЬ ПОВЫШЕН!</b> Теперь %d уровень!", v.NewLevel)
	}
	return b.String()
}

// FormatDefeat renders the defeat summary.
func FormatDefeat(actionLog string, p *model.Player, d *combat.DefeatReport) string {
	var b strings.Builder
	if actionLog != "" {
		b.WriteString(actionLog)
		b.WriteString("\n\n")
	}
	b.WriteString("💀 <b>ПОРАЖЕНИЕ!</b>\n")
	fmt.Fprintf(&b, "🏥 Здоровье восстановлено до %d/%d\n", d.RestoredHealth, p.MaxHealth)
	fmt.Fprintf(&b, "💸 Потеряно %d монет\n", d.MoneyLost)
	fmt.Fprintf(&b, "💰 Осталось: %d монет\n", p.Money)
	b.WriteString("💪 Не сдавайтесь! Тренируйтесь и возвращайтесь сильнее!")
	return b.String()
}

// FormatFled renders the successful escape summary.
func FormatFled(enemyName string, moneyLost int64) string {
	return fmt.Sprintf("🏃 Вы успешно сбежали от %s!\n💸 Потеряно %d монет за трусость.", enemyName, moneyLost)
}

// FormatCombatStats renders the in-combat stats overview.
func FormatCombatStats(p *model.Player, enemy *catalog.Enemy) string {
	var b strings.Builder
	b.WriteString("📊 <b>Статистика боя:</b>\n\n")
	b.WriteString("👤 <b>Ваши характеристики:</b>\n")
	fmt.Fprintf(&b, "❤️ Здоровье: %d/%d\n", p.Health, p.MaxHealth)
	fmt.Fprintf(&b, "⚔️ Сила: %d\n", p.Strength)
	fmt.Fprintf(&b, "🛡️ Защита: %d\n", p.Defense)
	fmt.Fprintf(&b, "⭐ Уровень: %d\n\n", p.Level)

	fmt.Fprintf(&b, "👹 <b>%s:</b>\n", enemy.Name)
	fmt.Fprintf(&b, "❤️ Здоровье: %d\n", enemy.Health)
	fmt.Fprintf(&b, "⚔️ Сила: %d\n", enemy.Strength)
	fmt.Fprintf(&b, "🛡️ Защита: %d\n", enemy.Defense)
	fmt.Fprintf(&b, "⭐ Уровень: %d\n\n", enemy.Level)

	b.WriteString("🎯 <b>Ваши атаки:</b>\n")
	for _, attack := range p.Attacks {
		fmt.Fprintf(&b, "• %s: ~%d урона (%d%% точность)\n",
			attack.Name, estimatedDamage(p, attack, enemy), int(attack.Accuracy*100))
	}
	return b.String()
}

// BuildCombatKeyboard builds the in-combat action keyboard: one button per
// attack with a damage preview, then defend/flee/stats.
func BuildCombatKeyboard(p *model.Player, enemy *catalog.Enemy) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	for i, attack := range p.Attacks {
		btn := markup.Data(
			fmt.Sprintf("%s %s (~%d урона)", accuracyIcon(attack.Accuracy), attack.Name, estimatedDamage(p, attack, enemy)),
			fmt.Sprintf("%s%d", CallbackCombatAttack, i),
		)
		rows = append(rows, markup.Row(btn))
	}

	defendBtn := markup.Data("🛡️ Защита", CallbackCombatDefend)
	fleeBtn := markup.Data("🏃 Бежать", CallbackCombatFlee)
	statsBtn := markup.Data("📊 Статистика", CallbackCombatStats)
	rows = append(rows, markup.Row(defendBtn, fleeBtn), markup.Row(statsBtn))

	markup.Inline(rows...)
	return markup
}

// BuildEnemySelectionKeyboard builds the opponent picker with difficulty
// markers relative to the player's level.
func BuildEnemySelectionKeyboard(enemies []*catalog.Enemy, playerLevel int) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	for _, enemy := range enemies {
		difficulty := "🔴"
		switch {
		case enemy.Level < playerLevel:
			difficulty = "🟢"
		case enemy.Level == playerLevel:
			difficulty = "🟡"
		}
		btn := markup.Data(
			fmt.Sprintf("%s %s (ур.%d)", difficulty, enemy.Name, enemy.Level),
			CallbackFightSelect+enemy.Name,
		)
		rows = append(rows, markup.Row(btn))
	}

	randomBtn := markup.Data("🎲 Случайный враг", CallbackFightRandom)
	cancelBtn := markup.Data("❌ Отмена", CallbackFightCancel)
	rows = append(rows, markup.Row(randomBtn), markup.Row(cancelBtn))

	markup.Inline(rows...)
	return markup
}

// FormatEnemySelection renders the opponent picker header.
func FormatEnemySelection(playerLevel int) string {
	return fmt.Sprintf(
		"🎯 <b>Выберите противника:</b>\n\n🟢 - Легкий\n🟡 - Равный\n🔴 - Сложный\n\nВаш уровень: %d",
		playerLevel,
	)
}

// FormatRequiredExp is a small helper for menu rendering.
func FormatRequiredExp(p *model.Player) string {
	return LevelProgressBar(p.Exp, player.RequiredExp(p.Level), 10)
}
