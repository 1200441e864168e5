// Package player provides the durable player store and progression rules.
// The store is the single source of truth for player state: every mutator
// marks it dirty, and handlers flush it exactly once per logical request.
package player

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-rpg-bot/internal/model"
)

// Store keeps all players in memory, backed by a JSON snapshot file.
// It is safe for concurrent use: all player field writes go through Store
// methods, which take s.mu so they never interleave with a snapshot write.
// Callers additionally hold the per-user lock so turns for one player never
// interleave with each other.
type Store struct {
	path string

	mu      sync.Mutex
	players map[int64]*model.Player
	dirty   bool

	now func() time.Time
}

// NewStore creates a store backed by the given file and loads any existing
// snapshot. A missing file starts empty; a corrupt file is logged and the
// store starts empty rather than refusing to run.
func NewStore(path string) *Store {
	s := &Store{
		path:    path,
		players: make(map[int64]*model.Player),
		now:     time.Now,
	}
	if err := s.load(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to load players, starting with empty store")
	}
	return s
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read players file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	players := make(map[int64]*model.Player)
	if err := json.Unmarshal(data, &players); err != nil {
		return fmt.Errorf("parse players file: %w", err)
	}
	s.players = players
	return nil
}

// GetOrCreate returns the player for the given id, creating one with default
// stats on first contact. Creation persists immediately. Every lookup
// advances play time by the wall-clock delta since the last activity.
func (s *Store) GetOrCreate(id int64, displayName string) *model.Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	p, ok := s.players[id]
	if !ok {
		p = model.NewPlayer(id, displayName)
		p.LastActivityTime = now.Unix()
		s.players[id] = p
		s.dirty = true
		if err := s.saveLocked(); err != nil {
			log.Error().Err(err).Int64("user_id", id).Msg("Failed to persist new player")
		}
		return p
	}

	if elapsed := now.Unix() - p.LastActivityTime; elapsed > 0 {
		p.PlayTime += elapsed
	}
	p.LastActivityTime = now.Unix()
	s.dirty = true
	return p
}

// Get returns the player without creating or touching activity accounting.
func (s *Store) Get(id int64) (*model.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	return p, ok
}

// Exists reports whether a player record is present.
func (s *Store) Exists(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.players[id]
	return ok
}

// Delete removes a player and persists the removal.
// Returns whether the player existed.
func (s *Store) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[id]; !ok {
		return false
	}
	delete(s.players, id)
	s.dirty = true
	if err := s.saveLocked(); err != nil {
		log.Error().Err(err).Int64("user_id", id).Msg("Failed to persist player deletion")
	}
	return true
}

// All returns a defensive copy of every player. Mutating the returned map or
// its players does not affect the store.
func (s *Store) All() map[int64]*model.Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int64]*model.Player, len(s.players))
	for id, p := range s.players {
		out[id] = p.Clone()
	}
	return out
}

// MarkDirty records that in-memory state has diverged from the snapshot.
func (s *Store) MarkDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Save flushes all players to the snapshot file if there are unsaved
// changes. A failed write is logged and leaves the store dirty so the next
// save retries; in-memory state stays authoritative either way.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if !s.dirty {
		return nil
	}

	if err := s.writeSnapshot(); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("Failed to save players")
		return err
	}
	s.dirty = false
	return nil
}

// writeSnapshot writes the full player map to a temp file and renames it
// into place so a crash mid-write never corrupts the previous snapshot.
func (s *Store) writeSnapshot() error {
	data, err := json.MarshalIndent(s.players, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "players-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Count returns the number of players in the store.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}
