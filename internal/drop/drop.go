// Package drop implements rarity-tiered probabilistic loot rolling.
package drop

import "fmt"

// Rarity classifies a drop-table entry by its base chance.
type Rarity string

// Rarity tiers, rarest last.
const (
	RarityCommon   Rarity = "common"    // chance > 0.5
	RarityUncommon Rarity = "uncommon"  // chance > 0.1
	RarityRare     Rarity = "rare"      // chance > 0.05
	RarityVeryRare Rarity = "very_rare" // everything below
)

// Rarity classification thresholds.
const (
	commonThreshold   = 0.5
	uncommonThreshold = 0.1
	rareThreshold     = 0.05
)

// Label returns the human-readable tier name.
func (r Rarity) Label() string {
	switch r {
	case RarityCommon:
		return "Обычные"
	case RarityUncommon:
		return "Необычные"
	case RarityRare:
		return "Редкие"
	case RarityVeryRare:
		return "Очень редкие"
	}
	return string(r)
}

// Emoji returns the marker shown next to the tier in drop summaries.
func (r Rarity) Emoji() string {
	switch r {
	case RarityCommon:
		return "⚪"
	case RarityUncommon:
		return "🟢"
	case RarityRare:
		return "🔵"
	case RarityVeryRare:
		return "🟣"
	}
	return "⚪"
}

// Classify maps a base drop chance to its rarity tier.
// The base chance is used, never the luck-adjusted one.
func Classify(chance float64) Rarity {
	switch {
	case chance > commonThreshold:
		return RarityCommon
	case chance > uncommonThreshold:
		return RarityUncommon
	case chance > rareThreshold:
		return RarityRare
	default:
		return RarityVeryRare
	}
}

// Entry is one row of an enemy's drop table.
type Entry struct {
	Item   string  `yaml:"item"`
	Chance float64 `yaml:"chance"`
}

// Drop is the ephemeral result of a successful roll.
type Drop struct {
	Name     string
	Quantity int
	Rarity   Rarity
}

func (d Drop) String() string {
	return fmt.Sprintf("%s x%d (%s)", d.Name, d.Quantity, d.Rarity)
}

// Source is the randomness needed by the resolver. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// Resolver rolls loot from drop tables.
type Resolver struct {
	rng Source
}

// NewResolver creates a resolver backed by the given randomness source.
func NewResolver(rng Source) *Resolver {
	return &Resolver{rng: rng}
}

// Roll samples every table entry independently. The effective chance is the
// base chance scaled by luck and capped at 1.0; an entry drops when a uniform
// [0,1) draw falls strictly below it. Quantity depends on the tier: common
// rolls 1-3, uncommon 1-2, rarer tiers always drop exactly one.
func (r *Resolver) Roll(table []Entry, luck float64) []Drop {
	var drops []Drop
	for _, entry := range table {
		effective := entry.Chance * luck
		if effective > 1.0 {
			effective = 1.0
		}
		if r.rng.Float64() >= effective {
			continue
		}
		rarity := Classify(entry.Chance)
		drops = append(drops, Drop{
			Name:     entry.Item,
			Quantity: r.quantity(rarity),
			Rarity:   rarity,
		})
	}
	return drops
}

func (r *Resolver) quantity(rarity Rarity) int {
	switch rarity {
	case RarityCommon:
		return 1 + r.rng.Intn(3)
	case RarityUncommon:
		return 1 + r.rng.Intn(2)
	default:
		return 1
	}
}
