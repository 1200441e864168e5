// Package model defines the data models for the Telegram RPG bot.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ItemType categorizes inventory items.
type ItemType string

// Item types.
const (
	ItemTypeWeapon     ItemType = "weapon"
	ItemTypeArmor      ItemType = "armor"
	ItemTypeConsumable ItemType = "consumable"
	ItemTypeMisc       ItemType = "misc"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeWeapon, ItemTypeArmor, ItemTypeConsumable, ItemTypeMisc:
		return true
	}
	return false
}

// Item is a stackable inventory entry. Two items belong to the same stack
// iff both name and type match.
type Item struct {
	Name       string   `json:"name"`
	Type       ItemType `json:"type"`
	Quantity   int      `json:"quantity"`
	Damage     int      `json:"damage"`
	Defense    int      `json:"defense"`
	HealAmount int      `json:"heal_amount"`
}

// SameStack reports whether other merges into the same stack as i.
func (i Item) SameStack(other Item) bool {
	return i.Name == other.Name && i.Type == other.Type
}

// UnmarshalJSON accepts both the current object form and the legacy form
// where an inventory entry was a bare item name string.
func (i *Item) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*i = Item{Name: name, Type: ItemTypeMisc, Quantity: 1}
		return nil
	}

	type itemAlias Item
	var a itemAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*i = Item(a)
	if i.Type == "" {
		i.Type = ItemTypeMisc
	}
	if !i.Type.Valid() {
		return fmt.Errorf("unknown item type %q", i.Type)
	}
	if i.Quantity <= 0 {
		i.Quantity = 1
	}
	return nil
}

// Attack belongs to a player or an enemy.
type Attack struct {
	Name     string  `json:"name" yaml:"name"`
	Damage   int     `json:"damage" yaml:"damage"`
	Accuracy float64 `json:"accuracy" yaml:"accuracy"`
}

// DefaultPlayerName is used when Telegram provides no display name.
const DefaultPlayerName = "Безымянный герой"

// Default stats for a freshly created player.
const (
	DefaultMaxHealth    = 100
	DefaultStrength     = 10
	DefaultDefense      = 5
	DefaultAgility      = 10
	DefaultIntelligence = 10
)

// StartingAttacks returns the two attacks every new player knows.
func StartingAttacks() []Attack {
	return []Attack{
		{Name: "Удар мечом", Damage: 10, Accuracy: 0.9},
		{Name: "Мощный удар", Damage: 15, Accuracy: 0.7},
	}
}

// Player is the durable per-user game state.
type Player struct {
	UserID           int64    `json:"user_id"`
	Name             string   `json:"name"`
	Health           int      `json:"health"`
	MaxHealth        int      `json:"max_health"`
	Money            int64    `json:"money"`
	Level            int      `json:"level"`
	Exp              int      `json:"exp"`
	Strength         int      `json:"strength"`
	Defense          int      `json:"defense"`
	Agility          int      `json:"agility"`
	Intelligence     int      `json:"intelligence"`
	PlayTime         int64    `json:"play_time"`
	BattlesWon       int64    `json:"battles_won"`
	TotalDamageDealt int64    `json:"total_damage_dealt"`
	LastActivityTime int64    `json:"last_activity_time"`
	LastDailyTime    int64    `json:"last_daily_time"`
	Inventory        []Item   `json:"inventory"`
	Attacks          []Attack `json:"attacks"`
}

// NewPlayer creates a player with default stats and the starting attacks.
func NewPlayer(userID int64, name string) *Player {
	if name == "" {
		name = DefaultPlayerName
	}
	return &Player{
		UserID:           userID,
		Name:             name,
		Health:           DefaultMaxHealth,
		MaxHealth:        DefaultMaxHealth,
		Level:            1,
		Strength:         DefaultStrength,
		Defense:          DefaultDefense,
		Agility:          DefaultAgility,
		Intelligence:     DefaultIntelligence,
		LastActivityTime: time.Now().Unix(),
		Attacks:          StartingAttacks(),
	}
}

// UnmarshalJSON decodes a persisted record, upgrading legacy records that
// predate newer fields to defined defaults instead of failing.
func (p *Player) UnmarshalJSON(data []byte) error {
	type playerAlias Player
	a := playerAlias{Level: 1}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = Player(a)
	p.normalize()
	return nil
}

// normalize repairs a loaded record so the in-memory invariants hold.
func (p *Player) normalize() {
	if p.Name == "" {
		p.Name = DefaultPlayerName
	}
	if p.Level < 1 {
		p.Level = 1
	}
	if p.MaxHealth <= 0 {
		p.MaxHealth = DefaultMaxHealth
	}
	if p.Health < 0 {
		p.Health = 0
	}
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
	if p.Money < 0 {
		p.Money = 0
	}
	if p.Exp < 0 {
		p.Exp = 0
	}
	if len(p.Attacks) == 0 {
		p.Attacks = StartingAttacks()
	}
	if p.LastActivityTime == 0 {
		p.LastActivityTime = time.Now().Unix()
	}
}

// Alive reports whether the player can enter combat.
func (p *Player) Alive() bool {
	return p.Health > 0
}

// Clone returns a deep copy of the player.
func (p *Player) Clone() *Player {
	c := *p
	c.Inventory = make([]Item, len(p.Inventory))
	copy(c.Inventory, p.Inventory)
	c.Attacks = make([]Attack, len(p.Attacks))
	copy(c.Attacks, p.Attacks)
	return &c
}
