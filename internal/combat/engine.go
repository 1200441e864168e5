package combat

import (
	"errors"
	"time"

	"telegram-rpg-bot/internal/catalog"
	"telegram-rpg-bot/internal/drop"
	"telegram-rpg-bot/internal/model"
	"telegram-rpg-bot/internal/player"
)

// Combat tuning constants.
const (
	CriticalHitChance = 0.15
	FleeSuccessChance = 0.7

	// Flee costs 1/20 of the player's money, defeat costs 1/10; both use
	// integer floor division with a minimum of 1 coin (capped at what the
	// player actually has).
	FleeMoneyDivisor   = 20
	DefeatMoneyDivisor = 10
)

// User-input errors, reported back as rejected actions.
var (
	ErrPlayerDead        = errors.New("player has no health left")
	ErrNoEligibleEnemies = errors.New("no eligible enemies for player level")
	ErrUnknownEnemy      = errors.New("unknown enemy")
	ErrInvalidAttack     = errors.New("invalid attack index")
	ErrWrongPhase        = errors.New("action not valid in current session phase")
)

// Source is the randomness needed by turn resolution. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// Terminal marks how a combat session ended.
type Terminal int

// Terminal outcomes. TerminalNone means the session continues.
const (
	TerminalNone Terminal = iota
	TerminalVictory
	TerminalDefeat
	TerminalFled
)

// TurnReport captures what happened during one resolved turn, for rendering.
type TurnReport struct {
	AttackName  string // player attack used; empty on defend/flee
	PlayerHit   bool
	Critical    bool
	DamageDealt int

	DefenseBonus int // defend only

	EnemyAttackName string
	EnemyHit        bool
	DamageTaken     int

	FleeFailed bool
}

// VictoryReport carries the rewards granted on victory.
type VictoryReport struct {
	EnemyName string
	Exp       int
	Money     int64
	Drops     []drop.Drop
	LeveledUp bool
	NewLevel  int
}

// DefeatReport carries the soft-death penalty applied on defeat.
type DefeatReport struct {
	RestoredHealth int
	MoneyLost      int64
}

// Outcome is the result of one combat action.
type Outcome struct {
	Terminal Terminal
	Turn     TurnReport
	Victory  *VictoryReport
	Defeat   *DefeatReport

	// FledMoneyLost is the cowardice tax on a successful flee.
	FledMoneyLost int64
}

// Engine resolves combat actions. It mutates players only through the
// player store so the dirty-then-save discipline is never skipped; callers
// persist once per logical request after the engine returns.
type Engine struct {
	catalog *catalog.Store
	players *player.Store
	drops   *drop.Resolver
	rng     Source
	luck    float64
}

// NewEngine creates an engine. luckModifier scales drop chances; 1.0 is
// neutral.
func NewEngine(cat *catalog.Store, players *player.Store, drops *drop.Resolver, rng Source, luckModifier float64) *Engine {
	if luckModifier <= 0 {
		luckModifier = 1.0
	}
	return &Engine{
		catalog: cat,
		players: players,
		drops:   drops,
		rng:     rng,
		luck:    luckModifier,
	}
}

// Initiate starts enemy selection for a living player. It returns the new
// session and the eligible opponents. No session is created on failure.
func (e *Engine) Initiate(p *model.Player) (*Session, []*catalog.Enemy, error) {
	if !p.Alive() {
		return nil, nil, ErrPlayerDead
	}
	eligible := e.catalog.Eligible(p.Level)
	if len(eligible) == 0 {
		return nil, nil, ErrNoEligibleEnemies
	}

	now := time.Now()
	s := &Session{
		PlayerID:     p.UserID,
		Phase:        PhaseSelectingEnemy,
		StartedAt:    now,
		LastActionAt: now,
	}
	return s, eligible, nil
}

// SelectEnemy moves the session into combat against the named enemy. The
// enemy must be eligible for the player's level; an invalid name leaves the
// session unchanged.
func (e *Engine) SelectEnemy(p *model.Player, s *Session, name string) error {
	if s.Phase != PhaseSelectingEnemy {
		return ErrWrongPhase
	}
	for _, enemy := range e.catalog.Eligible(p.Level) {
		if enemy.Name == name {
			e.enterCombat(s, enemy)
			return nil
		}
	}
	return ErrUnknownEnemy
}

// SelectRandomEnemy picks a uniformly random eligible enemy and enters
// combat against it.
func (e *Engine) SelectRandomEnemy(p *model.Player, s *Session) (*catalog.Enemy, error) {
	if s.Phase != PhaseSelectingEnemy {
		return nil, ErrWrongPhase
	}
	eligible := e.catalog.Eligible(p.Level)
	if len(eligible) == 0 {
		return nil, ErrNoEligibleEnemies
	}
	enemy := eligible[e.rng.Intn(len(eligible))]
	e.enterCombat(s, enemy)
	return s.Enemy, nil
}

func (e *Engine) enterCombat(s *Session, enemy *catalog.Enemy) {
	s.Phase = PhaseInCombat
	s.Enemy = enemy.Snapshot()
	s.TurnCount = 1
	s.LastActionAt = time.Now()
}

// Attack resolves one full turn: the player's strike, the victory check,
// then the enemy's counter and the defeat check. The player's turn is fully
// applied and checked before the enemy acts; a dead enemy never counters.
func (e *Engine) Attack(p *model.Player, s *Session, attackIndex int) (*Outcome, error) {
	if s.Phase != PhaseInCombat || s.Enemy == nil {
		return nil, ErrWrongPhase
	}
	if attackIndex < 0 || attackIndex >= len(p.Attacks) {
		return nil, ErrInvalidAttack
	}

	attack := p.Attacks[attackIndex]
	out := &Outcome{Turn: TurnReport{AttackName: attack.Name}}

	if e.rng.Float64() < attack.Accuracy {
		damage := baseDamage(p.Strength, attack.Damage, s.Enemy.Defense)
		if e.rng.Float64() < CriticalHitChance {
			damage = damage * 3 / 2
			out.Turn.Critical = true
		}
		s.Enemy.Health -= damage
		e.players.RecordDamageDealt(p, damage)
		out.Turn.PlayerHit = true
		out.Turn.DamageDealt = damage
	}

	if s.Enemy.Health <= 0 {
		out.Terminal = TerminalVictory
		out.Victory = e.victory(p, s.Enemy)
		return out, nil
	}

	e.enemyTurn(p, s, p.Defense, &out.Turn)
	if !p.Alive() {
		out.Terminal = TerminalDefeat
		out.Defeat = e.defeat(p)
		return out, nil
	}

	s.TurnCount++
	s.LastActionAt = time.Now()
	return out, nil
}

// Defend skips the player's strike in exchange for a temporary defense
// bonus of half the player's defense, applied only to this turn's counter.
// Defending can never defeat the enemy.
func (e *Engine) Defend(p *model.Player, s *Session) (*Outcome, error) {
	if s.Phase != PhaseInCombat || s.Enemy == nil {
		return nil, ErrWrongPhase
	}

	bonus := p.Defense / 2
	out := &Outcome{Turn: TurnReport{DefenseBonus: bonus}}

	e.enemyTurn(p, s, p.Defense+bonus, &out.Turn)
	if !p.Alive() {
		out.Terminal = TerminalDefeat
		out.Defeat = e.defeat(p)
		return out, nil
	}

	s.TurnCount++
	s.LastActionAt = time.Now()
	return out, nil
}

// Flee attempts to escape. Success ends the session at the cost of a
// cowardice tax; failure gives the enemy one free, undefendable attack.
func (e *Engine) Flee(p *model.Player, s *Session) (*Outcome, error) {
	if s.Phase != PhaseInCombat || s.Enemy == nil {
		return nil, ErrWrongPhase
	}

	out := &Outcome{}
	if e.rng.Float64() < FleeSuccessChance {
		loss := moneyPenalty(p.Money, FleeMoneyDivisor)
		e.players.AddMoney(p, -loss)
		out.Terminal = TerminalFled
		out.FledMoneyLost = loss
		return out, nil
	}

	out.Turn.FleeFailed = true
	e.enemyTurn(p, s, p.Defense, &out.Turn)
	if !p.Alive() {
		out.Terminal = TerminalDefeat
		out.Defeat = e.defeat(p)
		return out, nil
	}

	s.TurnCount++
	s.LastActionAt = time.Now()
	return out, nil
}

// enemyTurn resolves the enemy's strike against the given effective defense.
func (e *Engine) enemyTurn(p *model.Player, s *Session, defense int, report *TurnReport) {
	attack := s.Enemy.Attacks[e.rng.Intn(len(s.Enemy.Attacks))]
	report.EnemyAttackName = attack.Name
	if e.rng.Float64() >= attack.Accuracy {
		return
	}
	damage := baseDamage(s.Enemy.Strength, attack.Damage, defense)
	report.EnemyHit = true
	report.DamageTaken = e.players.Damage(p, damage)
}

// victory rolls drops, merges them into the inventory, and grants the
// experience and money rewards.
func (e *Engine) victory(p *model.Player, enemy *catalog.Enemy) *VictoryReport {
	drops := e.drops.Roll(enemy.Drops, e.luck)
	for _, d := range drops {
		e.players.AddItem(p, model.Item{
			Name:     d.Name,
			Type:     model.ItemTypeMisc,
			Quantity: d.Quantity,
		})
	}

	leveled := e.players.AddExp(p, enemy.Exp)
	e.players.AddMoney(p, enemy.Reward)
	e.players.RecordBattleWon(p)

	return &VictoryReport{
		EnemyName: enemy.Name,
		Exp:       enemy.Exp,
		Money:     enemy.Reward,
		Drops:     drops,
		LeveledUp: leveled,
		NewLevel:  p.Level,
	}
}

// defeat applies the soft-death penalty: the player is never left
// unplayable.
func (e *Engine) defeat(p *model.Player) *DefeatReport {
	restored := e.players.SetHealth(p, p.MaxHealth/2)
	loss := moneyPenalty(p.Money, DefeatMoneyDivisor)
	e.players.AddMoney(p, -loss)
	return &DefeatReport{
		RestoredHealth: restored,
		MoneyLost:      loss,
	}
}

// baseDamage is the shared damage formula, clamped at zero.
func baseDamage(strength, attackBonus, defense int) int {
	if d := strength + attackBonus - defense; d > 0 {
		return d
	}
	return 0
}

// moneyPenalty is money/divisor floored, at least 1 coin, but never more
// than the player has.
func moneyPenalty(money int64, divisor int64) int64 {
	loss := money / divisor
	if loss < 1 {
		loss = 1
	}
	if loss > money {
		loss = money
	}
	return loss
}
