package player

import (
	"time"

	"telegram-rpg-bot/internal/model"
)

// Level-up rewards.
const (
	LevelUpHealthBonus   = 10
	LevelUpStrengthBonus = 2
	expPerLevel          = 20
)

// RequiredExp returns the experience needed to advance past the given level.
// The curve is deliberately linear.
func RequiredExp(level int) int {
	return level * expPerLevel
}

// Every mutator below takes s.mu for the duration of the field writes.
// Callers hold the per-user lock, which serializes actions for one player,
// but Save marshals every player under s.mu on whatever goroutine the
// handler runs on; writing fields outside s.mu would tear the snapshot.

// AddExp adds experience to the player and applies at most one level-up per
// call; experience beyond a single threshold is kept as leftover, not
// cascaded. Non-positive amounts are a no-op. Returns whether the player
// leveled up.
func (s *Store) AddExp(p *model.Player, amount int) bool {
	if amount <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p.Exp += amount
	leveled := false
	if required := RequiredExp(p.Level); p.Exp >= required {
		p.Exp -= required
		p.Level++
		p.MaxHealth += LevelUpHealthBonus
		p.Health = p.MaxHealth
		p.Strength += LevelUpStrengthBonus
		leveled = true
	}
	s.dirty = true
	return leveled
}

// AddMoney adjusts the player's money by delta. The balance is clamped at
// zero; callers that must not overdraw should use SpendMoney instead.
func (s *Store) AddMoney(p *model.Player, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Money += delta
	if p.Money < 0 {
		p.Money = 0
	}
	s.dirty = true
}

// SpendMoney deducts amount if the player can afford it. Returns false and
// leaves the balance untouched on insufficient funds.
func (s *Store) SpendMoney(p *model.Player, amount int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount < 0 || p.Money < amount {
		return false
	}
	p.Money -= amount
	s.dirty = true
	return true
}

// Heal restores health up to the player's maximum and returns the amount
// actually restored.
func (s *Store) Heal(p *model.Player, amount int) int {
	if amount <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := p.Health
	p.Health += amount
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
	healed := p.Health - old
	if healed > 0 {
		s.dirty = true
	}
	return healed
}

// Damage reduces health, never below zero, and returns the damage actually
// applied.
func (s *Store) Damage(p *model.Player, amount int) int {
	if amount <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := p.Health
	p.Health -= amount
	if p.Health < 0 {
		p.Health = 0
	}
	dealt := old - p.Health
	if dealt > 0 {
		s.dirty = true
	}
	return dealt
}

// SetHealth sets health clamped to [0, max_health] and returns the stored
// value.
func (s *Store) SetHealth(p *model.Player, health int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if health < 0 {
		health = 0
	}
	if health > p.MaxHealth {
		health = p.MaxHealth
	}
	p.Health = health
	s.dirty = true
	return p.Health
}

// AddItem merges the item into the matching stack (same name and type),
// appending a new stack when none exists.
func (s *Store) AddItem(p *model.Player, item model.Item) {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range p.Inventory {
		if p.Inventory[i].SameStack(item) {
			p.Inventory[i].Quantity += item.Quantity
			s.dirty = true
			return
		}
	}
	p.Inventory = append(p.Inventory, item)
	s.dirty = true
}

// RecordDamageDealt adds to the player's lifetime damage counter.
func (s *Store) RecordDamageDealt(p *model.Player, amount int) {
	if amount <= 0 {
		return
	}
	s.mu.Lock()
	p.TotalDamageDealt += int64(amount)
	s.dirty = true
	s.mu.Unlock()
}

// RecordBattleWon increments the player's victory counter.
func (s *Store) RecordBattleWon(p *model.Player) {
	s.mu.Lock()
	p.BattlesWon++
	s.dirty = true
	s.mu.Unlock()
}

// MarkDailyClaimed records when the player last took the daily bonus.
func (s *Store) MarkDailyClaimed(p *model.Player, when time.Time) {
	s.mu.Lock()
	p.LastDailyTime = when.Unix()
	s.dirty = true
	s.mu.Unlock()
}
