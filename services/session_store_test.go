package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat-backend/models"
)

func TestSessionGetOrCreate(t *testing.T) {
	store := NewSessionStore(time.Hour)

	session := store.GetOrCreate("abc")
	assert.Equal(t, "abc", session.ID)
	assert.Empty(t, session.Turns)
	assert.Equal(t, 1, store.Len())

	// Second lookup reuses the same session.
	store.Append("abc", models.Turn{Role: "user", Message: "hi", Timestamp: time.Now()})
	again := store.GetOrCreate("abc")
	assert.Len(t, again.Turns, 1)
	assert.Equal(t, 1, store.Len())
}

func TestConcurrentAppendsToSameSession(t *testing.T) {
	store := NewSessionStore(time.Hour)
	const n = 64

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Append("shared", models.Turn{
				Role:      "user",
				Message:   fmt.Sprintf("message %d", i),
				Timestamp: time.Now(),
			})
		}(i)
	}
	wg.Wait()

	session := store.GetOrCreate("shared")
	require.Len(t, session.Turns, n)

	seen := make(map[string]bool, n)
	for _, turn := range session.Turns {
		seen[turn.Message] = true
	}
	for i := 0; i < n; i++ {
		assert.True(t, seen[fmt.Sprintf("message %d", i)], "message %d missing", i)
	}
}

func TestAppendCommitsTurnPairAtomically(t *testing.T) {
	store := NewSessionStore(time.Hour)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Append("s",
				models.Turn{Role: "user", Message: "q", Timestamp: now},
				models.Turn{Role: "assistant", Message: "a", Timestamp: now},
			)
		}()
	}
	wg.Wait()

	session := store.GetOrCreate("s")
	require.Len(t, session.Turns, 64)
	// Pairs never interleave: every even position is a user turn.
	for i, turn := range session.Turns {
		if i%2 == 0 {
			assert.Equal(t, "user", turn.Role, "position %d", i)
		} else {
			assert.Equal(t, "assistant", turn.Role, "position %d", i)
		}
	}
}

func TestSnapshotIsolation(t *testing.T) {
	store := NewSessionStore(time.Hour)
	store.Append("s", models.Turn{Role: "user", Message: "original", Timestamp: time.Now()})

	snapshot := store.GetOrCreate("s")
	snapshot.Turns[0].Message = "mutated"
	snapshot.Turns = append(snapshot.Turns, models.Turn{Role: "user", Message: "extra"})

	fresh := store.GetOrCreate("s")
	require.Len(t, fresh.Turns, 1)
	assert.Equal(t, "original", fresh.Turns[0].Message)
}

func TestEvictExpired(t *testing.T) {
	store := NewSessionStore(30 * time.Minute)
	store.Append("old", models.Turn{Role: "user", Message: "hi", Timestamp: time.Now()})
	store.Append("fresh", models.Turn{Role: "user", Message: "hi", Timestamp: time.Now()})
	require.Equal(t, 2, store.Len())

	// Nothing has aged past the TTL yet.
	assert.Equal(t, 0, store.EvictExpired(time.Now()))
	assert.Equal(t, 2, store.Len())

	// An hour later both sessions are stale.
	assert.Equal(t, 2, store.EvictExpired(time.Now().Add(time.Hour)))
	assert.Equal(t, 0, store.Len())

	// Evicted sessions restart empty.
	session := store.GetOrCreate("old")
	assert.Empty(t, session.Turns)
}

func TestAppendNeverLandsOnEvictedEntry(t *testing.T) {
	store := NewSessionStore(30 * time.Minute)
	store.Append("s", models.Turn{Role: "user", Message: "first", Timestamp: time.Now()})

	// Hold the live entry the way an in-flight Append would, then evict.
	stale := store.entry("s")
	require.Equal(t, 1, store.EvictExpired(time.Now().Add(time.Hour)))
	assert.True(t, stale.evicted)

	// A new append must land on a fresh session, not the orphan.
	store.Append("s", models.Turn{Role: "user", Message: "second", Timestamp: time.Now()})
	session := store.GetOrCreate("s")
	require.Len(t, session.Turns, 1)
	assert.Equal(t, "second", session.Turns[0].Message)

	stale.mu.Lock()
	orphanTurns := len(stale.session.Turns)
	stale.mu.Unlock()
	assert.Equal(t, 1, orphanTurns, "orphaned entry must not receive new turns")
}

func TestConcurrentAppendAndEviction(t *testing.T) {
	store := NewSessionStore(time.Nanosecond)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.Append("s", models.Turn{Role: "user", Message: "m", Timestamp: time.Now()})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.EvictExpired(time.Now().Add(time.Minute))
			}
		}()
	}
	wg.Wait()

	// With eviction quiesced, an append is always observable afterwards.
	store.Append("s", models.Turn{Role: "user", Message: "final", Timestamp: time.Now()})
	session := store.GetOrCreate("s")
	require.NotEmpty(t, session.Turns)
	assert.Equal(t, "final", session.Turns[len(session.Turns)-1].Message)
}
