package handler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-rpg-bot/internal/catalog"
	"telegram-rpg-bot/internal/combat"
	"telegram-rpg-bot/internal/drop"
	"telegram-rpg-bot/internal/model"
)

func TestHealthBar(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		maximum  int
		expected string
	}{
		{"full", 100, 100, strings.Repeat("🟩", 10)},
		{"above half is green", 60, 100, "🟩🟩🟩🟩🟩🟩⬜⬜⬜⬜"},
		{"exactly half is yellow", 50, 100, "🟨🟨🟨🟨🟨⬜⬜⬜⬜⬜"},
		{"exactly twenty percent is red", 20, 100, "🟥🟥⬜⬜⬜⬜⬜⬜⬜⬜"},
		{"dead", 0, 100, "💀⬜⬜⬜⬜⬜⬜⬜⬜⬜"},
		{"negative clamped to dead", -5, 100, "💀⬜⬜⬜⬜⬜⬜⬜⬜⬜"},
		{"overheal clamped to full", 150, 100, strings.Repeat("🟩", 10)},
		{"zero max", 10, 0, "💀"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HealthBar(tt.current, tt.maximum, 10))
		})
	}
}

func TestLevelProgressBar(t *testing.T) {
	assert.Equal(t, "⭐ 🟦🟦🟦🟦🟦⬜⬜⬜⬜⬜ (10/20)", LevelProgressBar(10, 20, 10))
	assert.Equal(t, "⭐ ⬜⬜⬜⬜⬜⬜⬜⬜⬜⬜ (0/20)", LevelProgressBar(0, 20, 10))
	assert.Equal(t, "⭐ MAX", LevelProgressBar(10, 0, 10))

	// Experience past the threshold does not overflow the bar.
	assert.Contains(t, LevelProgressBar(25, 20, 10), "(20/20)")
}

func TestAccuracyIcon(t *testing.T) {
	assert.Equal(t, "🎯", accuracyIcon(0.9))
	assert.Equal(t, "🎯", accuracyIcon(0.8))
	assert.Equal(t, "⚡", accuracyIcon(0.7))
	assert.Equal(t, "💫", accuracyIcon(0.5))
}

func testEnemy() *catalog.Enemy {
	return &catalog.Enemy{
		Name:      "Гоблин",
		Level:     1,
		Health:    30,
		MaxHealth: 50,
		Strength:  8,
		Defense:   5,
		Attacks:   []model.Attack{{Name: "Удар дубинкой", Damage: 6, Accuracy: 0.85}},
	}
}

func TestEstimatedDamage(t *testing.T) {
	p := model.NewPlayer(1, "hero")
	enemy := testEnemy()

	// str 10 + attack 10 - def 5.
	assert.Equal(t, 15, estimatedDamage(p, p.Attacks[0], enemy))

	weak := model.Attack{Name: "x", Damage: 0}
	enemy.Defense = 100
	assert.Equal(t, 0, estimatedDamage(p, weak, enemy))
}

func TestFormatTurnReport(t *testing.T) {
	tests := []struct {
		name     string
		report   combat.TurnReport
		contains []string
	}{
		{
			"hit",
			combat.TurnReport{AttackName: "Удар мечом", PlayerHit: true, DamageDealt: 15},
			[]string{"15 урона", "Удар мечом"},
		},
		{
			"critical hit",
			combat.TurnReport{AttackName: "Удар мечом", PlayerHit: true, Critical: true, DamageDealt: 22},
			[]string{"КРИТИЧЕСКИЙ УДАР", "22 урона"},
		},
		{
			"miss",
			combat.TurnReport{AttackName: "Мощный удар"},
			[]string{"Промах", "Мощный удар"},
		},
		{
			"defend",
			combat.TurnReport{DefenseBonus: 2},
			[]string{"оборонительную позицию", "+2 защиты"},
		},
		{
			"flee failed",
			combat.TurnReport{FleeFailed: true},
			[]string{"Побег не удался"},
		},
		{
			"enemy hit",
			combat.TurnReport{AttackName: "Удар мечом", EnemyAttackName: "Укус", EnemyHit: true, DamageTaken: 9},
			[]string{"Гоблин нанес вам 9 урона", "Укус"},
		},
		{
			"enemy miss",
			combat.TurnReport{AttackName: "Удар мечом", EnemyAttackName: "Укус"},
			[]string{"уклонились", "Укус"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatTurnReport(tt.report, "Гоблин")
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestFormatDrops(t *testing.T) {
	assert.Equal(t, "📦 Дроп: Ничего", FormatDrops(nil))

	drops := []drop.Drop{
		{Name: "Кость", Quantity: 2, Rarity: drop.RarityCommon},
		{Name: "Древний амулет", Quantity: 1, Rarity: drop.RarityVeryRare},
		{Name: "Клык волка", Quantity: 1, Rarity: drop.RarityUncommon},
	}
	got := FormatDrops(drops)

	// Rarest group first.
	rareIdx := strings.Index(got, "Древний амулет")
	uncommonIdx := strings.Index(got, "Клык волка")
	commonIdx := strings.Index(got, "Кость")
	require.True(t, rareIdx >= 0 && uncommonIdx >= 0 && commonIdx >= 0)
	assert.Less(t, rareIdx, uncommonIdx)
	assert.Less(t, uncommonIdx, commonIdx)
	assert.Contains(t, got, "Кость x2")
}

func TestFormatVictory(t *testing.T) {
	v := &combat.VictoryReport{
		EnemyName: "Гоблин",
		Exp:       25,
		Money:     40,
		LeveledUp: true,
		NewLevel:  2,
	}
	got := FormatVictory("лог", v)

	assert.Contains(t, got, "лог")
	assert.Contains(t, got, "ПОБЕДА")
	assert.Contains(t, got, "+25 XP")
	assert.Contains(t, got, "+40 монет")
	assert.Contains(t, got, "УРОВЕНЬ ПОВЫШЕН")
	assert.Contains(t, got, "2 уровень")

	noLevel := FormatVictory("", &combat.VictoryReport{EnemyName: "Гоблин"})
	assert.NotContains(t, noLevel, "УРОВЕНЬ ПОВЫШЕН")
}

func TestFormatDefeat(t *testing.T) {
	p := model.NewPlayer(1, "hero")
	p.Health = 50
	p.Money = 86
	got := FormatDefeat("", p, &combat.DefeatReport{RestoredHealth: 50, MoneyLost: 9})

	assert.Contains(t, got, "ПОРАЖЕНИЕ")
	assert.Contains(t, got, "50/100")
	assert.Contains(t, got, "Потеряно 9 монет")
	assert.Contains(t, got, "Осталось: 86 монет")
}

func TestFormatFled(t *testing.T) {
	got := FormatFled("Гоблин", 5)
	assert.Contains(t, got, "сбежали от Гоблин")
	assert.Contains(t, got, "5 монет")
}

func TestBuildCombatKeyboard(t *testing.T) {
	p := model.NewPlayer(1, "hero")
	markup := BuildCombatKeyboard(p, testEnemy())

	// One row per attack plus defend/flee row plus stats row.
	require.Len(t, markup.InlineKeyboard, len(p.Attacks)+2)

	first := markup.InlineKeyboard[0][0]
	assert.Contains(t, first.Text, "Удар мечом")
	assert.Contains(t, first.Text, "~15 урона")
	assert.Contains(t, first.Unique, "combat_attack")
}

func TestBuildEnemySelectionKeyboard(t *testing.T) {
	enemies := []*catalog.Enemy{
		{Name: "Волк", Level: 1},
		{Name: "Тролль", Level: 3},
	}
	markup := BuildEnemySelectionKeyboard(enemies, 2)

	// One row per enemy, a random row, and a cancel row.
	require.Len(t, markup.InlineKeyboard, 4)
	assert.Contains(t, markup.InlineKeyboard[0][0].Text, "🟢")
	assert.Contains(t, markup.InlineKeyboard[1][0].Text, "🔴")
	assert.Contains(t, markup.InlineKeyboard[1][0].Unique, "Тролль")
}

func TestFormatCombatMessage(t *testing.T) {
	p := model.NewPlayer(1, "hero")
	got := FormatCombatMessage(p, testEnemy(), "удар", 3)

	assert.Contains(t, got, "Раунд 3")
	assert.Contains(t, got, "Гоблин")
	assert.Contains(t, got, "Последнее действие")

	noLog := FormatCombatMessage(p, testEnemy(), "", 1)
	assert.NotContains(t, noLog, "Последнее действие")
}
