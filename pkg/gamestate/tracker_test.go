package gamestate

import (
	"testing"

	"github.com/raccoonforest/ailink/pkg/protocol"
)

func TestTrackerEmpty(t *testing.T) {
	tr := NewTracker()
	if _, ok := tr.Latest(); ok {
		t.Fatal("Latest() reported state before any update")
	}
	if tr.Ended() {
		t.Fatal("Ended() true before any update")
	}
}

func TestTrackerUpdate(t *testing.T) {
	tr := NewTracker()

	snap, changed := tr.Update(protocol.StateUpdate{NumActivePlayers: 2})
	if !changed {
		t.Error("first update should report changed")
	}
	if snap.Seq != 1 {
		t.Errorf("Seq = %d, want 1", snap.Seq)
	}
	if snap.ReceivedAt.IsZero() {
		t.Error("ReceivedAt not set")
	}

	// identical payload, seq still advances
	snap, changed = tr.Update(protocol.StateUpdate{NumActivePlayers: 2})
	if changed {
		t.Error("identical update should not report changed")
	}
	if snap.Seq != 2 {
		t.Errorf("Seq = %d, want 2", snap.Seq)
	}

	snap, changed = tr.Update(protocol.StateUpdate{NumActivePlayers: 2, HasWeapon: true})
	if !changed {
		t.Error("field change should report changed")
	}
	if snap.Seq != 3 {
		t.Errorf("Seq = %d, want 3", snap.Seq)
	}
}

func TestTrackerLatest(t *testing.T) {
	tr := NewTracker()
	tr.Update(protocol.StateUpdate{NumWeapons: 1})
	tr.Update(protocol.StateUpdate{NumWeapons: 4})

	snap, ok := tr.Latest()
	if !ok {
		t.Fatal("Latest() reported no state")
	}
	if snap.NumWeapons != 4 || snap.Seq != 2 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestTrackerEnded(t *testing.T) {
	tr := NewTracker()
	tr.Update(protocol.StateUpdate{NumActivePlayers: 3})
	if tr.Ended() {
		t.Fatal("Ended() true for live state")
	}

	tr.Update(protocol.StateUpdate{IsDead: true})
	if !tr.Ended() {
		t.Fatal("Ended() false after death")
	}
}
