package appointments

import (
	"sync"
	"time"
)

// Registry hands out view sessions keyed by the UI's session id. Sessions
// expire after sitting idle; expired entries are pruned lazily on access.
// Two sessions on one instance share the cache and roster, mirroring the
// original's "two components share module caches, two tabs do not" model.
type Registry struct {
	svc      *Service
	idleTTL  time.Duration
	now      func() time.Time
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a session registry with the given idle TTL.
func NewRegistry(svc *Service, idleTTL time.Duration) *Registry {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &Registry{
		svc:      svc,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for id, creating it if needed.
func (r *Registry) Get(id string) *Session {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(now)
	sess, ok := r.sessions[id]
	if !ok {
		sess = r.svc.NewSession()
		r.sessions[id] = sess
	}
	sess.touch(now)
	return sess
}

// Len reports how many live sessions the registry holds.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) pruneLocked(now time.Time) {
	for id, sess := range r.sessions {
		if sess.idleSince(now) > r.idleTTL {
			delete(r.sessions, id)
		}
	}
}
