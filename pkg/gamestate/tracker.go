package gamestate

import (
	"sync"
	"time"

	"github.com/raccoonforest/ailink/pkg/protocol"
)

// Snapshot is one received state update plus receive metadata.
type Snapshot struct {
	protocol.StateUpdate
	Seq        uint64
	ReceivedAt time.Time
}

// Tracker holds the latest game state for a session. The receive loop
// writes, the command loop and the brains read.
type Tracker struct {
	mu       sync.RWMutex
	latest   Snapshot
	hasState bool
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Update records a state update and reports whether any game-visible field
// changed since the previous one.
func (t *Tracker) Update(s protocol.StateUpdate) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := !t.hasState || t.latest.StateUpdate != s

	t.latest = Snapshot{
		StateUpdate: s,
		Seq:         t.latest.Seq + 1,
		ReceivedAt:  time.Now(),
	}
	t.hasState = true

	return t.latest, changed
}

func (t *Tracker) Latest() (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest, t.hasState
}

// Ended reports whether the tracked episode has reached a terminal state.
func (t *Tracker) Ended() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hasState && t.latest.Terminal()
}
