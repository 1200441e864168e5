package combat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_PutGetDelete(t *testing.T) {
	st := NewSessionStore()

	_, ok := st.Get(1)
	assert.False(t, ok)

	st.Put(&Session{PlayerID: 1, Phase: PhaseSelectingEnemy})
	s, ok := st.Get(1)
	require.True(t, ok)
	assert.Equal(t, int64(1), s.PlayerID)
	assert.Equal(t, 1, st.Count())

	// Put replaces an existing session.
	st.Put(&Session{PlayerID: 1, Phase: PhaseInCombat})
	s, _ = st.Get(1)
	assert.Equal(t, PhaseInCombat, s.Phase)
	assert.Equal(t, 1, st.Count())

	st.Delete(1)
	_, ok = st.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, st.Count())
}

func TestSweepAbandoned(t *testing.T) {
	st := NewSessionStore()
	now := time.Now()

	st.Put(&Session{PlayerID: 1, LastActionAt: now})
	st.Put(&Session{PlayerID: 2, LastActionAt: now.Add(-10 * time.Minute)})
	st.Put(&Session{PlayerID: 3, StartedAt: now.Add(-10 * time.Minute)}) // never acted

	removed := st.SweepAbandoned(5 * time.Minute)

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, st.Count())
	_, ok := st.Get(1)
	assert.True(t, ok, "active session survives the sweep")
}

func TestSweepAbandoned_NothingToSweep(t *testing.T) {
	st := NewSessionStore()
	st.Put(&Session{PlayerID: 1, LastActionAt: time.Now()})

	assert.Equal(t, 0, st.SweepAbandoned(time.Minute))
	assert.Equal(t, 1, st.Count())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "selecting_enemy", PhaseSelectingEnemy.String())
	assert.Equal(t, "in_combat", PhaseInCombat.String())
	assert.Equal(t, "unknown", Phase(0).String())
}
