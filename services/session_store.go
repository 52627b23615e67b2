package services

import (
	"sync"
	"time"

	"docchat-backend/models"
)

// SessionStore holds per-session conversation history in memory.
// Appends to the same session are serialized through a per-session lock
// while distinct sessions proceed fully in parallel. Sessions expire as
// a whole after the inactivity TTL; individual turns are never rewritten.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
}

type sessionEntry struct {
	mu      sync.Mutex
	evicted bool
	session models.Session
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
	}
}

// GetOrCreate returns a snapshot of the session, creating it on first
// use. The returned value is a copy: mutations go through Append.
func (s *SessionStore) GetOrCreate(sessionID string) models.Session {
	for {
		entry := s.entry(sessionID)

		entry.mu.Lock()
		if entry.evicted {
			// Lost a race with EvictExpired; the next lookup creates
			// a fresh entry.
			entry.mu.Unlock()
			continue
		}
		snapshot := entry.session
		snapshot.Turns = make([]models.Turn, len(entry.session.Turns))
		copy(snapshot.Turns, entry.session.Turns)
		entry.mu.Unlock()
		return snapshot
	}
}

// Append adds turns to the session in one atomic step, so a request's
// user and assistant turns commit together or not at all. An entry
// evicted between lookup and lock is abandoned and the append retried,
// so no turn ever lands on an orphaned session.
func (s *SessionStore) Append(sessionID string, turns ...models.Turn) {
	if len(turns) == 0 {
		return
	}
	for {
		entry := s.entry(sessionID)

		entry.mu.Lock()
		if entry.evicted {
			entry.mu.Unlock()
			continue
		}
		entry.session.Turns = append(entry.session.Turns, turns...)
		entry.session.LastActive = time.Now()
		entry.mu.Unlock()
		return
	}
}

// EvictExpired removes sessions inactive past the TTL as of now and
// returns how many were evicted.
func (s *SessionStore) EvictExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, entry := range s.sessions {
		entry.mu.Lock()
		expired := now.Sub(entry.session.LastActive) > s.ttl
		if expired {
			// Marked under the entry lock so an Append holding a stale
			// pointer notices and retries instead of writing here.
			entry.evicted = true
		}
		entry.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) entry(sessionID string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		now := time.Now()
		entry = &sessionEntry{
			session: models.Session{
				ID:         sessionID,
				Turns:      []models.Turn{},
				CreatedAt:  now,
				LastActive: now,
			},
		}
		s.sessions[sessionID] = entry
	}
	return entry
}
