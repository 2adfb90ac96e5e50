package game

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	sessionIDLength   = 6
	sessionIDAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// SessionRegistry owns the session-id to session map and is the only
// component allowed to create or destroy sessions. It is constructed once at
// process start; there is no ambient global registry.
type SessionRegistry struct {
	// TurnTimeout is applied to every session created afterwards.
	TurnTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*GameSession
	clock    Clock
	sinks    SinkFactory
	rng      *rand.Rand
}

// NewSessionRegistry builds an empty registry. The factory supplies each new
// session with its broadcast and direct sinks.
func NewSessionRegistry(clock Clock, sinks SinkFactory) *SessionRegistry {
	return &SessionRegistry{
		TurnTimeout: DefaultTurnTimeout,
		sessions:    make(map[string]*GameSession),
		clock:       clock,
		sinks:       sinks,
		rng:         rand.New(rand.NewSource(clock.Now().UnixNano())),
	}
}

// Create builds a session with a fresh join code and the owner already
// seated, and registers it.
func (r *SessionRegistry) Create(ownerName string, ownerConnID uuid.UUID) *GameSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.newSessionID()
	broadcast, direct := r.sinks(id)
	s := NewGameSession(id, ownerName, ownerConnID, r.clock, broadcast, direct)
	s.TurnTimeout = r.TurnTimeout
	r.sessions[id] = s
	log.Printf("session %s created by %s", id, ownerName)
	return s
}

// newSessionID generates a short uppercase join code, regenerating on a
// collision with a live session. Assumes the registry lock is held.
func (r *SessionRegistry) newSessionID() string {
	for {
		b := make([]byte, sessionIDLength)
		for i := range b {
			b[i] = sessionIDAlphabet[r.rng.Intn(len(sessionIDAlphabet))]
		}
		id := string(b)
		if _, taken := r.sessions[id]; !taken {
			return id
		}
	}
}

// Get resolves a session by id.
func (r *SessionRegistry) Get(id string) (*GameSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, found := r.sessions[id]
	return s, found
}

// Count returns the number of live sessions.
func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Destroy cancels the session's timers and forgets it.
func (r *SessionRegistry) Destroy(id string) {
	r.mu.Lock()
	s, found := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if found {
		s.Close()
		log.Printf("session %s destroyed", id)
	}
}

// HandleDisconnect removes the connection from every session it occupies.
// Sessions left empty are destroyed; the surviving sessions it was removed
// from are returned so the transport can publish updated snapshots.
func (r *SessionRegistry) HandleDisconnect(connID uuid.UUID) []*GameSession {
	r.mu.Lock()
	all := make([]*GameSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.Unlock()

	var affected []*GameSession
	for _, s := range all {
		if !s.RemovePlayer(connID) {
			continue
		}
		if s.IsEmpty() {
			r.Destroy(s.ID)
			continue
		}
		affected = append(affected, s)
	}
	return affected
}
