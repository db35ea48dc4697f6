package main

import (
	"net"
	"sort"
	"sync"
	"time"

	"ghostline/shared"
)

// Session is one accepted connection plus its identifier and metadata. The
// connection handle is exclusively owned by the session; Close may be called
// from multiple paths (monitor, operator kill, failed exchange) and closes
// the handle exactly once.
type Session struct {
	ID         int
	Codename   string
	Conn       net.Conn
	RemoteAddr string
	Created    time.Time

	// exchangeMu serializes command exchanges. The transport is a single
	// ordered byte stream with no multiplexing, so a second outstanding
	// exchange would corrupt both.
	exchangeMu sync.Mutex
	closeOnce  sync.Once
}

// Close closes the underlying connection. Safe to call repeatedly.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		_ = s.Conn.Close()
	})
}

// Registry maps session identifiers to live sessions. Identifiers are
// strictly increasing and never reused, even across removal.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int]*Session
	lastID   int
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int]*Session)}
}

// Seed raises the identifier counter so that ids issued before a restart are
// never handed out again.
func (r *Registry) Seed(lastID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lastID > r.lastID {
		r.lastID = lastID
	}
}

// Register assigns the next identifier to conn and starts tracking the
// session.
func (r *Registry) Register(conn net.Conn) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastID++
	sess := &Session{
		ID:         r.lastID,
		Codename:   shared.GenerateCodename(),
		Conn:       conn,
		RemoteAddr: conn.RemoteAddr().String(),
		Created:    time.Now(),
	}
	r.sessions[sess.ID] = sess
	return sess
}

// Remove deregisters id and closes its connection. Removing an unknown or
// already-removed id is a no-op.
func (r *Registry) Remove(id int) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if ok {
		sess.Close()
	}
}

func (r *Registry) Get(id int) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// List returns a snapshot of live sessions ordered by identifier.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
