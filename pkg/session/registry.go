package session

import (
	"sort"
	"sync"
	"time"
)

// Registry tracks live sessions for the listener, the API and the monitor,
// and owns the idle-expiry machinery.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	expiry   *ExpiryManager
	idle     time.Duration
}

func NewRegistry(idleTimeout time.Duration) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		idle:     idleTimeout,
	}
	r.expiry = NewExpiryManager(r.onExpiry)
	return r
}

func (r *Registry) Start() {
	r.expiry.Start()
}

func (r *Registry) Stop() {
	r.expiry.Stop()
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	r.Touch(s.ID())
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	r.expiry.Remove(id)
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns session infos ordered by connect time.
func (r *Registry) List() []Info {
	r.mu.RLock()
	infos := make([]Info, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, s.Info())
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ConnectedAt.Before(infos[j].ConnectedAt)
	})
	return infos
}

// Touch pushes the session's idle deadline forward.
func (r *Registry) Touch(id string) {
	if r.idle <= 0 {
		return
	}
	r.expiry.Set(id, time.Now().Add(r.idle))
}

// CloseAll force-closes every live session, used on daemon shutdown.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (r *Registry) onExpiry(id string, _ time.Time) {
	if s, ok := r.Get(id); ok {
		s.Expire()
	}
}
