package brain

import (
	"testing"

	"github.com/raccoonforest/ailink/pkg/frame"
	"github.com/raccoonforest/ailink/pkg/gamestate"
	"github.com/raccoonforest/ailink/pkg/protocol"
)

func snapshot(s protocol.StateUpdate) gamestate.Snapshot {
	return gamestate.Snapshot{StateUpdate: s, Seq: 1}
}

func hasAction(cmd protocol.Command, action protocol.Action) bool {
	for _, step := range cmd {
		if step.Action == action {
			return true
		}
	}
	return false
}

func TestRegistry(t *testing.T) {
	names := List()
	want := []string{"random", "reflex", "visual"}
	if len(names) != len(want) {
		t.Fatalf("List() = %v, want %v", names, want)
	}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("List() = %v, want %v", names, want)
		}
	}
}

func TestNewUnknownStrategy(t *testing.T) {
	if _, err := New("psychic", nil); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestParamsGet(t *testing.T) {
	p := Params{"jump_bias": 0.9}
	if got := p.Get("jump_bias", 0.3); got != 0.9 {
		t.Errorf("Get() = %v, want 0.9", got)
	}
	if got := p.Get("missing", 0.3); got != 0.3 {
		t.Errorf("Get() default = %v, want 0.3", got)
	}
	var nilParams Params
	if got := nilParams.Get("any", 1.5); got != 1.5 {
		t.Errorf("nil Params Get() = %v, want 1.5", got)
	}
}

func TestRandomAlwaysDecides(t *testing.T) {
	b, err := New("random", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 50; i++ {
		cmd, ok := b.Decide(snapshot(protocol.StateUpdate{}), nil)
		if !ok || len(cmd) != 1 {
			t.Fatalf("Decide() = %v, %v", cmd, ok)
		}
	}
}

func TestReflexNoStateNoCommand(t *testing.T) {
	b, err := New("reflex", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := b.Decide(gamestate.Snapshot{}, nil); ok {
		t.Error("decided before any state arrived")
	}
	if _, ok := b.Decide(snapshot(protocol.StateUpdate{IsDead: true}), nil); ok {
		t.Error("decided on terminal state")
	}
}

func TestReflexPicksUpWeapon(t *testing.T) {
	b, err := New("reflex", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := snapshot(protocol.StateUpdate{NumWeapons: 2, NumActivePlayers: 3})
	for i := 0; i < 20; i++ {
		cmd, ok := b.Decide(snap, nil)
		if !ok {
			t.Fatal("no decision for pickup state")
		}
		if !hasAction(cmd, protocol.ActionPickup) {
			t.Fatalf("unarmed near weapons, got %s", cmd.Encode())
		}
	}
}

func TestReflexShootsWhenArmed(t *testing.T) {
	b, err := New("reflex", Params{"shoot_bias": 1.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := snapshot(protocol.StateUpdate{HasWeapon: true, NumActivePlayers: 2})
	for i := 0; i < 20; i++ {
		cmd, ok := b.Decide(snap, nil)
		if !ok || !hasAction(cmd, protocol.ActionShoot) {
			t.Fatalf("armed with opponents and shoot_bias 1.0, got %s", cmd.Encode())
		}
	}
}

func TestReflexPatrolsWhenAlone(t *testing.T) {
	b, err := New("reflex", Params{"jump_bias": 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := snapshot(protocol.StateUpdate{HasWeapon: true, NumActivePlayers: 1})
	for i := 0; i < 20; i++ {
		cmd, ok := b.Decide(snap, nil)
		if !ok {
			t.Fatal("no decision for patrol state")
		}
		if !hasAction(cmd, protocol.ActionLeft) && !hasAction(cmd, protocol.ActionRight) {
			t.Fatalf("patrol without movement: %s", cmd.Encode())
		}
		if hasAction(cmd, protocol.ActionShoot) {
			t.Fatalf("shot with no opponents: %s", cmd.Encode())
		}
	}
}

func TestVisualSteersTowardBrightSide(t *testing.T) {
	b, err := New("visual", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := snapshot(protocol.StateUpdate{NumActivePlayers: 2})

	left := &frame.Analysis{BrightestCol: 0}
	cmd, ok := b.Decide(snap, left)
	if !ok || !hasAction(cmd, protocol.ActionLeft) {
		t.Errorf("bright left, got %s", cmd.Encode())
	}

	right := &frame.Analysis{BrightestCol: 7}
	cmd, ok = b.Decide(snap, right)
	if !ok || !hasAction(cmd, protocol.ActionRight) {
		t.Errorf("bright right, got %s", cmd.Encode())
	}
}

func TestVisualDeadband(t *testing.T) {
	b, err := New("visual", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// brightness dead center, nothing else to do
	snap := snapshot(protocol.StateUpdate{NumActivePlayers: 1})
	centered := &frame.Analysis{BrightestCol: 3}
	if cmd, ok := b.Decide(snap, centered); ok {
		if hasAction(cmd, protocol.ActionLeft) || hasAction(cmd, protocol.ActionRight) {
			t.Errorf("steered inside deadband: %s", cmd.Encode())
		}
	}
}

func TestVisualShootsWhileSteering(t *testing.T) {
	b, err := New("visual", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := snapshot(protocol.StateUpdate{HasWeapon: true, NumActivePlayers: 2})
	cmd, ok := b.Decide(snap, &frame.Analysis{BrightestCol: 7})
	if !ok || !hasAction(cmd, protocol.ActionShoot) {
		t.Errorf("armed visual brain did not shoot: %s", cmd.Encode())
	}
}

func TestVisualFallsBackWithoutFrame(t *testing.T) {
	b, err := New("visual", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := snapshot(protocol.StateUpdate{NumWeapons: 1, NumActivePlayers: 2})
	cmd, ok := b.Decide(snap, nil)
	if !ok || !hasAction(cmd, protocol.ActionPickup) {
		t.Errorf("fallback decision missing pickup: %s", cmd.Encode())
	}
}
