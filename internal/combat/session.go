// Package combat implements the turn-based combat engine: enemy selection,
// turn resolution, and victory/defeat/flee outcomes. Turn resolution is a
// synchronous computation over (player, session, action, randomness); the
// engine performs no I/O and never sleeps.
package combat

import (
	"sync"
	"time"

	"telegram-rpg-bot/internal/catalog"
)

// Phase is the explicit state of a combat session.
type Phase int

// Session phases.
const (
	PhaseSelectingEnemy Phase = iota + 1
	PhaseInCombat
)

func (p Phase) String() string {
	switch p {
	case PhaseSelectingEnemy:
		return "selecting_enemy"
	case PhaseInCombat:
		return "in_combat"
	}
	return "unknown"
}

// Session is the ephemeral state of one player's active fight. The engine
// treats sessions as values passed in and returned; ownership stays with
// the handler layer's SessionStore.
type Session struct {
	PlayerID     int64
	Phase        Phase
	Enemy        *catalog.Enemy // snapshot, nil while selecting
	TurnCount    int
	StartedAt    time.Time
	LastActionAt time.Time
}

// SessionStore holds active sessions keyed by player id.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*Session)}
}

// Get returns the active session for a player.
func (st *SessionStore) Get(playerID int64) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[playerID]
	return s, ok
}

// Put stores (or replaces) the player's session.
func (st *SessionStore) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.PlayerID] = s
}

// Delete discards the player's session, if any.
func (st *SessionStore) Delete(playerID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, playerID)
}

// Count returns the number of active sessions.
func (st *SessionStore) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// SweepAbandoned discards sessions with no activity for longer than maxIdle
// and returns how many were removed. Called periodically by the bot layer.
func (st *SessionStore) SweepAbandoned(maxIdle time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, s := range st.sessions {
		last := s.LastActionAt
		if last.IsZero() {
			last = s.StartedAt
		}
		if now.Sub(last) > maxIdle {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}
