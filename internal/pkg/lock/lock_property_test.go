package lock

import (
	"sync"
	"testing"

	"pgregory.net/rapid"
)

// TestSerializedMutationProperty checks that concurrent read-modify-write
// operations on one player, run under the per-user lock, produce the same
// result as sequential execution.
func TestSerializedMutationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(0, 100000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		deltas := make([]int64, numOps)
		expected := initial
		for i := range deltas {
			deltas[i] = rapid.Int64Range(-500, 500).Draw(t, "delta")
			expected += deltas[i]
		}

		ul := NewUserLock()
		value := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, d := range deltas {
			go func(delta int64) {
				defer wg.Done()
				ul.Lock(userID)
				defer ul.Unlock(userID)
				value += delta
			}(d)
		}
		wg.Wait()

		if value != expected {
			t.Fatalf("value %d after concurrent mutations, want %d", value, expected)
		}
	})
}

// TestIndependentUsersProperty checks that locks for different users never
// interfere: holding one user's lock does not block another's.
func TestIndependentUsersProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userA := rapid.Int64Range(1, 1000).Draw(t, "userA")
		userB := userA + rapid.Int64Range(1, 1000).Draw(t, "offset")

		ul := NewUserLock()
		ul.Lock(userA)
		defer ul.Unlock(userA)

		if !ul.TryLock(userB) {
			t.Fatalf("lock for user %d blocked by lock for user %d", userB, userA)
		}
		ul.Unlock(userB)
	})
}

func TestTryLock(t *testing.T) {
	ul := NewUserLock()

	if !ul.TryLock(1) {
		t.Fatal("first TryLock failed")
	}
	if ul.TryLock(1) {
		t.Fatal("second TryLock succeeded while held")
	}
	ul.Unlock(1)
	if !ul.TryLock(1) {
		t.Fatal("TryLock failed after unlock")
	}
	ul.Unlock(1)
}

func TestWithLock(t *testing.T) {
	ul := NewUserLock()

	called := false
	err := ul.WithLock(1, func() error {
		called = true
		if ul.TryLock(1) {
			t.Fatal("lock not held inside WithLock")
		}
		return nil
	})
	if err != nil || !called {
		t.Fatalf("WithLock err=%v called=%v", err, called)
	}

	// The lock is released after WithLock returns.
	if !ul.TryLock(1) {
		t.Fatal("lock still held after WithLock")
	}
	ul.Unlock(1)
}
