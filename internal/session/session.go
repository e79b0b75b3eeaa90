// Package session holds per-browser-session launch identity.
// A session is created whole on every successful launch and read-only
// afterwards; no operation can observe a partially-written context.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coursekit/policywizard/internal/role"
)

// CookieName is the browser cookie carrying the session ID.
const CookieName = "pw_session"

// ErrNotEstablished means no session exists (never launched, or expired).
var ErrNotEstablished = errors.New("session not established")

// Context is the authenticated identity established by a launch.
type Context struct {
	CourseID  string
	ContextID string
	Role      role.Role
	PersonID  string
}

type entry struct {
	ctx    Context
	expiry time.Time
}

// Store is an in-memory session store with TTL expiry. Sessions are
// keyed by opaque random IDs; two browser sessions never share state.
type Store struct {
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]entry
}

// NewStore creates a Store whose sessions expire after ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		sessions: make(map[string]entry),
	}
}

// Establish stores a complete Context under a fresh session ID and
// returns the ID. The write is atomic: the whole context value lands
// under one lock, so a concurrent Get sees either all fields or none.
func (s *Store) Establish(ctx Context) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(time.Now())
	s.sessions[id] = entry{ctx: ctx, expiry: time.Now().Add(s.ttl)}
	return id
}

// Get returns the Context for a session ID, or ErrNotEstablished when
// the ID is unknown or the session has expired.
func (s *Store) Get(id string) (Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok || time.Now().After(e.expiry) {
		delete(s.sessions, id)
		return Context{}, ErrNotEstablished
	}
	return e.ctx, nil
}

// Drop removes a session. Missing IDs are a no-op.
func (s *Store) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// prune removes expired sessions. Caller holds the lock.
func (s *Store) prune(now time.Time) {
	for id, e := range s.sessions {
		if now.After(e.expiry) {
			delete(s.sessions, id)
		}
	}
}
