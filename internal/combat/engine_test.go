package combat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-rpg-bot/internal/catalog"
	"telegram-rpg-bot/internal/drop"
	"telegram-rpg-bot/internal/model"
	"telegram-rpg-bot/internal/player"
)

// scriptedSource replays a fixed sequence of rolls so turns resolve
// deterministically.
type scriptedSource struct {
	floats []float64
	ints   []int
}

func (s *scriptedSource) Float64() float64 {
	if len(s.floats) == 0 {
		return 0.999999
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scriptedSource) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0] % n
	s.ints = s.ints[1:]
	return v
}

const testEnemies = `
enemies:
  Гоблин:
    level: 1
    health: 30
    strength: 8
    defense: 5
    speed: 12
    exp: 25
    reward: 40
    attacks:
      - name: "Удар дубинкой"
        damage: 6
        accuracy: 0.85
    drops:
      - item: "Гоблинское ухо"
        chance: 0.6
  Дракон:
    level: 8
    health: 350
    strength: 35
    defense: 18
    speed: 14
    exp: 200
    reward: 400
    attacks:
      - name: "Огненное дыхание"
        damage: 40
        accuracy: 0.65
    drops: []
`

func testCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "enemies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testEnemies), 0o644))
	cat, err := catalog.Load(path)
	require.NoError(t, err)
	return cat
}

// newTestEngine builds an engine where combat and drop randomness are
// scripted independently.
func newTestEngine(t *testing.T, combatSrc, dropSrc Source) (*Engine, *player.Store) {
	t.Helper()
	players := player.NewStore(filepath.Join(t.TempDir(), "players.json"))
	engine := NewEngine(testCatalog(t), players, drop.NewResolver(dropSrc), combatSrc, 1.0)
	return engine, players
}

func missEverything() *scriptedSource { return &scriptedSource{} }

func TestInitiate(t *testing.T) {
	engine, players := newTestEngine(t, missEverything(), missEverything())
	p := players.GetOrCreate(1, "hero")

	s, eligible, err := engine.Initiate(p)
	require.NoError(t, err)

	assert.Equal(t, PhaseSelectingEnemy, s.Phase)
	assert.Equal(t, int64(1), s.PlayerID)
	assert.Nil(t, s.Enemy)

	// Level 1 player sees only enemies up to level 3.
	require.Len(t, eligible, 1)
	assert.Equal(t, "Гоблин", eligible[0].Name)
}

func TestInitiate_DeadPlayer(t *testing.T) {
	engine, players := newTestEngine(t, missEverything(), missEverything())
	p := players.GetOrCreate(1, "hero")
	p.Health = 0

	_, _, err := engine.Initiate(p)
	assert.ErrorIs(t, err, ErrPlayerDead)
}

func TestSelectEnemy(t *testing.T) {
	engine, players := newTestEngine(t, missEverything(), missEverything())
	p := players.GetOrCreate(1, "hero")
	s, _, err := engine.Initiate(p)
	require.NoError(t, err)

	require.NoError(t, engine.SelectEnemy(p, s, "Гоблин"))
	assert.Equal(t, PhaseInCombat, s.Phase)
	assert.Equal(t, 1, s.TurnCount)
	require.NotNil(t, s.Enemy)
	assert.Equal(t, 30, s.Enemy.Health)
}

func TestSelectEnemy_RejectsIneligible(t *testing.T) {
	engine, players := newTestEngine(t, missEverything(), missEverything())
	p := players.GetOrCreate(1, "hero")
	s, _, err := engine.Initiate(p)
	require.NoError(t, err)

	// The dragon exists in the catalog but is above level+2.
	assert.ErrorIs(t, engine.SelectEnemy(p, s, "Дракон"), ErrUnknownEnemy)
	assert.ErrorIs(t, engine.SelectEnemy(p, s, "Никто"), ErrUnknownEnemy)
	assert.Equal(t, PhaseSelectingEnemy, s.Phase)
}

func TestSelectEnemy_SnapshotDoesNotMutateCatalog(t *testing.T) {
	cat := testCatalog(t)
	players := player.NewStore(filepath.Join(t.TempDir(), "players.json"))
	engine := NewEngine(cat, players, drop.NewResolver(missEverything()), missEverything(), 1.0)

	p := players.GetOrCreate(1, "hero")
	s, _, err := engine.Initiate(p)
	require.NoError(t, err)
	require.NoError(t, engine.SelectEnemy(p, s, "Гоблин"))

	s.Enemy.Health = 1

	fresh, ok := cat.Get("Гоблин")
	require.True(t, ok)
	assert.Equal(t, 30, fresh.Health)
}

func inCombat(t *testing.T, engine *Engine, p *model.Player) *Session {
	t.Helper()
	s, _, err := engine.Initiate(p)
	require.NoError(t, err)
	require.NoError(t, engine.SelectEnemy(p, s, "Гоблин"))
	return s
}

func TestAttack_HitNoCrit(t *testing.T) {
	// Rolls: player accuracy 0.5 (hit, < 0.9), crit 0.5 (no crit),
	// enemy attack index 0, enemy accuracy 0.9 (miss, >= 0.85).
	src := &scriptedSource{floats: []float64{0.5, 0.5, 0.9}, ints: []int{0}}
	engine, players := newTestEngine(t, src, missEverything())
	p := players.GetOrCreate(1, "hero")
	s := inCombat(t, engine, p)

	out, err := engine.Attack(p, s, 0)
	require.NoError(t, err)

	// str 10 + attack 10 - enemy def 5 = 15.
	assert.True(t, out.Turn.PlayerHit)
	assert.False(t, out.Turn.Critical)
	assert.Equal(t, 15, out.Turn.DamageDealt)
	assert.Equal(t, 15, s.Enemy.Health)
	assert.Equal(t, int64(15), p.TotalDamageDealt)

	assert.False(t, out.Turn.EnemyHit)
	assert.Equal(t, "Удар дубинкой", out.Turn.EnemyAttackName)
	assert.Equal(t, TerminalNone, out.Terminal)
	assert.Equal(t, 2, s.TurnCount)
}

func TestAttack_CriticalUsesIntegerMath(t *testing.T) {
	// Hit and crit, enemy misses.
	src := &scriptedSource{floats: []float64{0.5, 0.1, 0.9}, ints: []int{0}}
	engine, players := newTestEngine(t, src, missEverything())
	p := players.GetOrCreate(1, "hero")
	s := inCombat(t, engine, p)

	out, err := engine.Attack(p, s, 0)
	require.NoError(t, err)

	// 15 * 3 / 2 = 22, truncated.
	assert.True(t, out.Turn.Critical)
	assert.Equal(t, 22, out.Turn.DamageDealt)
}

func TestAttack_PlayerMiss(t *testing.T) {
	// Miss (0.95 >= 0.9), enemy hits (0.5 < 0.85).
	src := &scriptedSource{floats: []float64{0.95, 0.5}, ints: []int{0}}
	engine, players := newTestEngine(t, src, missEverything())
	p := players.GetOrCreate(1, "hero")
	s := inCombat(t, engine, p)

	out, err := engine.Attack(p, s, 0)
	require.NoError(t, err)

	assert.False(t, out.Turn.PlayerHit)
	assert.Equal(t, 30, s.Enemy.Health)

	// Enemy str 8 + attack 6 - player def 5 = 9.
	assert.True(t, out.Turn.EnemyHit)
	assert.Equal(t, 9, out.Turn.DamageTaken)
	assert.Equal(t, 91, p.Health)
}

func TestAttack_InvalidIndex(t *testing.T) {
	engine, players := newTestEngine(t, missEverything(), missEverything())
	p := players.GetOrCreate(1, "hero")
	s := inCombat(t, engine, p)

	_, err := engine.Attack(p, s, -1)
	assert.ErrorIs(t, err, ErrInvalidAttack)
	_, err = engine.Attack(p, s, len(p.Attacks))
	assert.ErrorIs(t, err, ErrInvalidAttack)
}

func TestAttack_WrongPhase(t *testing.T) {
	engine, players := newTestEngine(t, missEverything(), missEverything())
	p := players.GetOrCreate(1, "hero")
	s, _, err := engine.Initiate(p)
	require.NoError(t, err)

	_, err = engine.Attack(p, s, 0)
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestAttack_VictorySkipsEnemyTurn(t *testing.T) {
	// Two hit-no-crit rounds kill the 30 HP goblin (15 damage each); the
	// second round must end before the enemy can counter.
	src := &scriptedSource{floats: []float64{
		0.5, 0.5, 0.9, // round 1: hit, no crit, enemy misses
		0.5, 0.5, // round 2: hit, no crit -> victory, no enemy rolls
	}, ints: []int{0}}
	// Drop roll: 0.5 < 0.6 drops, quantity Intn(3)=0 -> 1.
	dropSrc := &scriptedSource{floats: []float64{0.5}, ints: []int{0}}

	engine, players := newTestEngine(t, src, dropSrc)
	p := players.GetOrCreate(1, "hero")
	s := inCombat(t, engine, p)

	_, err := engine.Attack(p, s, 0)
	require.NoError(t, err)

	out, err := engine.Attack(p, s, 0)
	require.NoError(t, err)

	require.Equal(t, TerminalVictory, out.Terminal)
	require.NotNil(t, out.Victory)
	assert.Equal(t, "Гоблин", out.Victory.EnemyName)
	assert.Equal(t, 25, out.Victory.Exp)
	assert.Equal(t, int64(40), out.Victory.Money)
	assert.Equal(t, 100, p.Health, "victory turn has no enemy counter")

	// 25 exp at level 1 levels up.
	assert.True(t, out.Victory.LeveledUp)
	assert.Equal(t, 2, out.Victory.NewLevel)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, int64(40), p.Money)
	assert.Equal(t, int64(1), p.BattlesWon)

	require.Len(t, out.Victory.Drops, 1)
	require.Len(t, p.Inventory, 1)
	assert.Equal(t, "Гоблинское ухо", p.Inventory[0].Name)
	assert.Equal(t, model.ItemTypeMisc, p.Inventory[0].Type)
}

func TestAttack_DefeatAppliesSoftDeath(t *testing.T) {
	src := &scriptedSource{floats: []float64{0.95, 0.5}, ints: []int{0}}
	engine, players := newTestEngine(t, src, missEverything())
	p := players.GetOrCreate(1, "hero")
	p.Health = 5
	p.Money = 95
	s := inCombat(t, engine, p)

	out, err := engine.Attack(p, s, 0)
	require.NoError(t, err)

	require.Equal(t, TerminalDefeat, out.Terminal)
	require.NotNil(t, out.Defeat)
	assert.Equal(t, p.MaxHealth/2, p.Health)
	assert.Equal(t, p.Health, out.Defeat.RestoredHealth)

	// 95 / 10 floors to 9.
	assert.Equal(t, int64(9), out.Defeat.MoneyLost)
	assert.Equal(t, int64(86), p.Money)
}

func TestDefend(t *testing.T) {
	// Enemy hits through the raised defense.
	src := &scriptedSource{floats: []float64{0.5}, ints: []int{0}}
	engine, players := newTestEngine(t, src, missEverything())
	p := players.GetOrCreate(1, "hero")
	s := inCombat(t, engine, p)

	out, err := engine.Defend(p, s)
	require.NoError(t, err)

	// Bonus is def/2 = 2; enemy damage 8 + 6 - (5 + 2) = 7.
	assert.Equal(t, 2, out.Turn.DefenseBonus)
	assert.Equal(t, 7, out.Turn.DamageTaken)
	assert.Equal(t, 93, p.Health)
	assert.Equal(t, TerminalNone, out.Terminal)
	assert.Equal(t, 30, s.Enemy.Health, "defending never damages the enemy")
}

func TestFlee_Success(t *testing.T) {
	tests := []struct {
		name     string
		money    int64
		expected int64
	}{
		{"floor division", 100, 5},
		{"minimum one coin", 15, 1},
		{"capped at balance", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &scriptedSource{floats: []float64{0.5}} // 0.5 < 0.7 escapes
			engine, players := newTestEngine(t, src, missEverything())
			p := players.GetOrCreate(1, "hero")
			p.Money = tt.money
			s := inCombat(t, engine, p)

			out, err := engine.Flee(p, s)
			require.NoError(t, err)

			assert.Equal(t, TerminalFled, out.Terminal)
			assert.Equal(t, tt.expected, out.FledMoneyLost)
			assert.Equal(t, tt.money-tt.expected, p.Money)
		})
	}
}

func TestFlee_FailureGivesFreeEnemyAttack(t *testing.T) {
	// Flee roll 0.8 >= 0.7 fails; enemy hits with 0.5.
	src := &scriptedSource{floats: []float64{0.8, 0.5}, ints: []int{0}}
	engine, players := newTestEngine(t, src, missEverything())
	p := players.GetOrCreate(1, "hero")
	p.Money = 100
	s := inCombat(t, engine, p)

	out, err := engine.Flee(p, s)
	require.NoError(t, err)

	assert.True(t, out.Turn.FleeFailed)
	assert.Equal(t, TerminalNone, out.Terminal)
	assert.Equal(t, int64(100), p.Money, "failed flee costs nothing")
	assert.Equal(t, 9, out.Turn.DamageTaken)
	assert.Equal(t, 2, s.TurnCount)
}

func TestBaseDamage_NeverNegative(t *testing.T) {
	assert.Equal(t, 0, baseDamage(1, 1, 100))
	assert.Equal(t, 0, baseDamage(5, 0, 5))
	assert.Equal(t, 3, baseDamage(5, 3, 5))
}
