// Package rng provides a rand.Rand that is safe for concurrent use.
// Combat actions for different players may resolve on different goroutines
// while sharing one randomness source.
package rng

import (
	"math/rand"
	"sync"
	"time"
)

type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// New returns a *rand.Rand seeded with the given value whose underlying
// source is guarded by a mutex.
func New(seed int64) *rand.Rand {
	return rand.New(&lockedSource{src: rand.NewSource(seed).(rand.Source64)})
}

// NewTimeSeeded returns a concurrency-safe *rand.Rand seeded from the clock.
func NewTimeSeeded() *rand.Rand {
	return New(time.Now().UnixNano())
}
