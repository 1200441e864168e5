// Package catalog loads the static enemy definitions used by combat.
// The catalog is read-only after load and is shared by all sessions;
// combat always works on snapshots, never on catalog entries.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"telegram-rpg-bot/internal/drop"
	"telegram-rpg-bot/internal/model"
)

// EligibleLevelMargin is how far above the player's level an enemy may be
// and still be offered as an opponent.
const EligibleLevelMargin = 2

// Enemy is a catalog-defined opponent. Instances handed to combat are
// snapshots so health mutations during a fight never touch the catalog.
type Enemy struct {
	Name      string         `yaml:"name"`
	Level     int            `yaml:"level"`
	Health    int            `yaml:"health"`
	MaxHealth int            `yaml:"max_health"`
	Strength  int            `yaml:"strength"`
	Defense   int            `yaml:"defense"`
	Speed     int            `yaml:"speed"`
	Attacks   []model.Attack `yaml:"attacks"`
	Exp       int            `yaml:"exp"`
	Reward    int64          `yaml:"reward"`
	Drops     []drop.Entry   `yaml:"drops"`
}

// Snapshot returns a deep copy safe to mutate during one fight.
func (e *Enemy) Snapshot() *Enemy {
	c := *e
	c.Attacks = make([]model.Attack, len(e.Attacks))
	copy(c.Attacks, e.Attacks)
	c.Drops = make([]drop.Entry, len(e.Drops))
	copy(c.Drops, e.Drops)
	return &c
}

func (e *Enemy) validate(key string) error {
	if e.Level < 1 {
		return fmt.Errorf("enemy %q: level must be >= 1", key)
	}
	if e.Health <= 0 {
		return fmt.Errorf("enemy %q: health must be positive", key)
	}
	if e.Health > e.MaxHealth {
		return fmt.Errorf("enemy %q: health %d exceeds max_health %d", key, e.Health, e.MaxHealth)
	}
	if len(e.Attacks) == 0 {
		return fmt.Errorf("enemy %q: needs at least one attack", key)
	}
	for _, a := range e.Attacks {
		if a.Accuracy < 0 || a.Accuracy > 1 {
			return fmt.Errorf("enemy %q: attack %q accuracy %v out of [0,1]", key, a.Name, a.Accuracy)
		}
	}
	for _, d := range e.Drops {
		if d.Chance < 0 || d.Chance > 1 {
			return fmt.Errorf("enemy %q: drop %q chance %v out of [0,1]", key, d.Item, d.Chance)
		}
	}
	return nil
}

// enemiesFile is the on-disk layout of the catalog file.
type enemiesFile struct {
	Enemies map[string]*Enemy `yaml:"enemies"`
}

// Store holds the loaded catalog, keyed by enemy name.
type Store struct {
	enemies map[string]*Enemy
}

// Empty returns a catalog with no enemies. Used as the degraded fallback
// when the data file is missing or malformed.
func Empty() *Store {
	return &Store{enemies: make(map[string]*Enemy)}
}

// Load reads the enemy catalog from a YAML file. A read or schema error is
// returned to the caller; the caller decides whether to degrade to Empty.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read enemies file: %w", err)
	}

	var file enemiesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse enemies file: %w", err)
	}

	s := Empty()
	for key, e := range file.Enemies {
		if e == nil {
			return nil, fmt.Errorf("enemy %q: empty definition", key)
		}
		if e.Name == "" {
			e.Name = key
		}
		if e.MaxHealth <= 0 {
			e.MaxHealth = e.Health
		}
		if err := e.validate(key); err != nil {
			return nil, err
		}
		if _, dup := s.enemies[e.Name]; dup {
			return nil, fmt.Errorf("duplicate enemy name %q", e.Name)
		}
		s.enemies[e.Name] = e
	}
	return s, nil
}

// Get returns the catalog entry with the given name.
func (s *Store) Get(name string) (*Enemy, bool) {
	e, ok := s.enemies[name]
	return e, ok
}

// All returns every enemy, sorted by level then name for stable rendering.
func (s *Store) All() []*Enemy {
	out := make([]*Enemy, 0, len(s.enemies))
	for _, e := range s.enemies {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Eligible returns the enemies a player of the given level may fight.
func (s *Store) Eligible(playerLevel int) []*Enemy {
	var out []*Enemy
	for _, e := range s.All() {
		if e.Level <= playerLevel+EligibleLevelMargin {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of catalog entries.
func (s *Store) Count() int {
	return len(s.enemies)
}
