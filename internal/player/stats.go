package player

import (
	"errors"
	"fmt"

	"telegram-rpg-bot/internal/model"
)

// StatField enumerates the player attributes the admin surface may adjust.
// Unknown names are rejected at the boundary instead of reflecting into
// arbitrary fields.
type StatField string

// Adjustable stat fields.
const (
	StatHealth           StatField = "health"
	StatMaxHealth        StatField = "max_health"
	StatMoney            StatField = "money"
	StatLevel            StatField = "level"
	StatExp              StatField = "exp"
	StatStrength         StatField = "strength"
	StatDefense          StatField = "defense"
	StatAgility          StatField = "agility"
	StatIntelligence     StatField = "intelligence"
	StatPlayTime         StatField = "play_time"
	StatBattlesWon       StatField = "battles_won"
	StatTotalDamageDealt StatField = "total_damage_dealt"
)

// ErrUnknownStat is returned for stat names outside the enumerated set.
var ErrUnknownStat = errors.New("unknown stat field")

// StatFields returns all adjustable fields in display order.
func StatFields() []StatField {
	return []StatField{
		StatHealth, StatMaxHealth, StatMoney, StatLevel, StatExp,
		StatStrength, StatDefense, StatAgility, StatIntelligence,
		StatPlayTime, StatBattlesWon, StatTotalDamageDealt,
	}
}

// ParseStatField validates a stat name coming from the admin surface.
func ParseStatField(name string) (StatField, error) {
	f := StatField(name)
	for _, known := range StatFields() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStat, name)
}

// ApplyStatDelta adjusts one enumerated stat by delta and returns the new
// value. Health is clamped to [0, max_health], level never drops below 1,
// and the remaining fields never go negative.
func (s *Store) ApplyStatDelta(p *model.Player, field StatField, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clampMin := func(v, min int64) int64 {
		if v < min {
			return min
		}
		return v
	}

	var value int64
	switch field {
	case StatHealth:
		h := clampMin(int64(p.Health)+delta, 0)
		if h > int64(p.MaxHealth) {
			h = int64(p.MaxHealth)
		}
		p.Health = int(h)
		value = h
	case StatMaxHealth:
		p.MaxHealth = int(clampMin(int64(p.MaxHealth)+delta, 1))
		if p.Health > p.MaxHealth {
			p.Health = p.MaxHealth
		}
		value = int64(p.MaxHealth)
	case StatMoney:
		p.Money = clampMin(p.Money+delta, 0)
		value = p.Money
	case StatLevel:
		p.Level = int(clampMin(int64(p.Level)+delta, 1))
		value = int64(p.Level)
	case StatExp:
		p.Exp = int(clampMin(int64(p.Exp)+delta, 0))
		value = int64(p.Exp)
	case StatStrength:
		p.Strength = int(clampMin(int64(p.Strength)+delta, 0))
		value = int64(p.Strength)
	case StatDefense:
		p.Defense = int(clampMin(int64(p.Defense)+delta, 0))
		value = int64(p.Defense)
	case StatAgility:
		p.Agility = int(clampMin(int64(p.Agility)+delta, 0))
		value = int64(p.Agility)
	case StatIntelligence:
		p.Intelligence = int(clampMin(int64(p.Intelligence)+delta, 0))
		value = int64(p.Intelligence)
	case StatPlayTime:
		p.PlayTime = clampMin(p.PlayTime+delta, 0)
		value = p.PlayTime
	case StatBattlesWon:
		p.BattlesWon = clampMin(p.BattlesWon+delta, 0)
		value = p.BattlesWon
	case StatTotalDamageDealt:
		p.TotalDamageDealt = clampMin(p.TotalDamageDealt+delta, 0)
		value = p.TotalDamageDealt
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStat, field)
	}

	s.dirty = true
	return value, nil
}
