package counsel

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/verdictlabs/verdict/pkg/logger"
)

// Message is one transcript entry. Role is "system", "user", or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type session struct {
	messages []Message
	lastUsed time.Time
}

// SessionStore is an in-memory registry of counsel sessions. A single mutex
// serializes every operation: mutation bodies are cheap slice appends and
// copies, never I/O, so coarse locking is sufficient at this session volume.
// Sessions do not survive process restart.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	logger   *logger.Logger
	done     chan struct{}
	stopOnce sync.Once
}

// NewSessionStore builds a store. A positive ttl starts a background sweeper
// that evicts sessions idle longer than ttl; zero disables eviction.
func NewSessionStore(log *logger.Logger, ttl time.Duration) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*session),
		logger:   log,
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.sweep(ttl)
	}
	return s
}

// Create allocates a new session seeded with the panel system prompt and
// returns its id.
func (s *SessionStore) Create() string {
	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = &session{
		messages: []Message{{Role: "system", Content: systemPrompt}},
		lastUsed: time.Now(),
	}
	s.mu.Unlock()

	s.logger.Debug("Created counsel session", "session_id", id)
	return id
}

// Snapshot returns an independent copy of the session's transcript. The copy
// lets the orchestrator compose a prompt while other requests append; an
// in-flight model call never observes partial mutation.
func (s *SessionStore) Snapshot(sessionID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	sess.lastUsed = time.Now()

	snapshot := make([]Message, len(sess.messages))
	copy(snapshot, sess.messages)
	return snapshot, nil
}

// Append atomically adds the given entries to the session's transcript in
// order. The transcript only grows; entries are never removed or reordered.
func (s *SessionStore) Append(sessionID string, messages ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	sess.messages = append(sess.messages, messages...)
	sess.lastUsed = time.Now()
	return nil
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the TTL sweeper if one is running.
func (s *SessionStore) Close() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *SessionStore) sweep(ttl time.Duration) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-ttl)
			s.mu.Lock()
			for id, sess := range s.sessions {
				if sess.lastUsed.Before(cutoff) {
					delete(s.sessions, id)
					s.logger.Info("Evicted idle counsel session", "session_id", id)
				}
			}
			s.mu.Unlock()
		}
	}
}
