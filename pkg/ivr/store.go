package ivr

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound covers unknown and expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore holds live sessions keyed by session id, last write
// wins. Swapping the backend never touches the state-machine logic.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, session *Session) error
	Remove(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process memory, the default for a
// single-node simulator. A positive TTL expires idle sessions the way
// the Redis backend does; zero keeps them until the process exits.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.sweep()
	}
	return s
}

// Get returns a copy of the stored session, so callers mutate freely
// and persist with Put, same as the Redis backend.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.ttl > 0 && time.Now().After(entry.expiresAt) {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}

	session := entry.session
	session.DTMF = append([]string(nil), entry.session.DTMF...)
	return &session, nil
}

func (s *MemoryStore) Put(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *session
	stored.DTMF = append([]string(nil), session.DTMF...)
	s.sessions[session.ID] = memoryEntry{
		session:   stored,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Close stops the expiry sweeper.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for id, entry := range s.sessions {
				if now.After(entry.expiresAt) {
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
