package server

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/caretstudio/pkg/errors"
	"github.com/YuminosukeSato/caretstudio/wizard"
)

// Sessions is the in-memory registry of wizard sessions. Sessions idle for
// longer than the TTL are dropped by Sweep, and Add evicts the least
// recently used session once the registry is full. Saved artifacts stay in
// the store either way.
type Sessions struct {
	mu  sync.Mutex
	m   map[string]*entry
	ttl time.Duration
	max int
	now func() time.Time
}

type entry struct {
	sess     *wizard.Session
	lastUsed time.Time
}

// NewSessions returns an empty registry. A zero ttl or max disables that
// limit.
func NewSessions(ttl time.Duration, max int) *Sessions {
	return &Sessions{
		m:   make(map[string]*entry),
		ttl: ttl,
		max: max,
		now: time.Now,
	}
}

// NewID returns a fresh session ID.
func NewID() string {
	return uuid.NewString()
}

// Add registers s under s.ID and returns the IDs it evicted to stay within
// the cap.
func (r *Sessions) Add(s *wizard.Session) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for r.max > 0 && len(r.m) >= r.max {
		oldest := ""
		for id, e := range r.m {
			if oldest == "" || e.lastUsed.Before(r.m[oldest].lastUsed) {
				oldest = id
			}
		}
		delete(r.m, oldest)
		evicted = append(evicted, oldest)
	}
	r.m[s.ID] = &entry{sess: s, lastUsed: r.now()}
	return evicted
}

// Get returns the session with id or a SessionNotFoundError, and marks it
// used. Malformed IDs are not found either.
func (r *Sessions) Get(id string) (*wizard.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NewSessionNotFoundError(id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.m[id]
	if !ok {
		return nil, errors.NewSessionNotFoundError(id)
	}
	e.lastUsed = r.now()
	return e.sess, nil
}

// Sweep drops every session idle for longer than the TTL and returns their
// IDs, sorted.
func (r *Sessions) Sweep() []string {
	if r.ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	var expired []string
	for id, e := range r.m {
		if e.lastUsed.Before(cutoff) {
			delete(r.m, id)
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	return expired
}

// IDs lists the registered sessions, sorted.
func (r *Sessions) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.m))
	for id := range r.m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
