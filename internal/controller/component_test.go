package controller

import (
	"context"
	"testing"
	"time"

	"github.com/raccoonforest/ailink/pkg/component"
	"github.com/raccoonforest/ailink/pkg/config"
	"github.com/raccoonforest/ailink/pkg/events"
	"github.com/raccoonforest/ailink/pkg/events/local"
	"github.com/raccoonforest/ailink/pkg/session"
)

func newTestController(t *testing.T, strategy string, iterations int) (*Component, events.Bus) {
	t.Helper()

	cfg := config.Default()
	cfg.Brain.Strategy = strategy
	cfg.Game.TrainIterations = iterations

	bus := local.NewBus()
	t.Cleanup(func() { bus.Close() })

	c, err := New(component.Dependencies{EventBus: bus, Config: cfg})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { c.Stop(ctx) })

	return c, bus
}

func disconnect(bus events.Bus, id, outcome string) {
	bus.Publish(events.TopicSessionLifecycle, events.Event{
		Type:   events.SessionDisconnected,
		Source: id,
		Data: session.LifecycleEvent{
			SessionID: id,
			Type:      events.SessionDisconnected,
			Info:      session.Info{ID: id, Outcome: outcome},
		},
	})
}

func waitIteration(t *testing.T, c *Component, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Status().Iteration == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Iteration = %d, want %d", c.Status().Iteration, want)
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	cfg := config.Default()
	cfg.Brain.Strategy = "psychic"

	bus := local.NewBus()
	defer bus.Close()

	if _, err := New(component.Dependencies{EventBus: bus, Config: cfg}); err == nil {
		t.Fatal("expected error for unregistered strategy")
	}
}

func TestEpisodeCounting(t *testing.T) {
	c, bus := newTestController(t, "random", 3)

	disconnect(bus, "s1", session.OutcomeCompleted)
	waitIteration(t, c, 1)

	disconnect(bus, "s2", session.OutcomeDied)
	waitIteration(t, c, 2)

	status := c.Status()
	if status.RunComplete {
		t.Error("RunComplete before budget reached")
	}
	if status.Outcomes[session.OutcomeCompleted] != 1 || status.Outcomes[session.OutcomeDied] != 1 {
		t.Errorf("Outcomes = %v", status.Outcomes)
	}
	if status.LastOutcome != session.OutcomeDied {
		t.Errorf("LastOutcome = %q", status.LastOutcome)
	}

	disconnect(bus, "s3", session.OutcomeCompleted)
	waitIteration(t, c, 3)
	if !c.Status().RunComplete {
		t.Error("RunComplete not reported after budget reached")
	}
}

func TestNonEpisodeOutcomesIgnored(t *testing.T) {
	c, bus := newTestController(t, "random", 5)

	disconnect(bus, "s1", session.OutcomeDisconnected)
	disconnect(bus, "s2", session.OutcomeIdle)
	disconnect(bus, "s3", session.OutcomeShutdown)

	time.Sleep(100 * time.Millisecond)
	if got := c.Status().Iteration; got != 0 {
		t.Errorf("Iteration = %d, want 0", got)
	}
}

func TestEpisodeFinishedPublished(t *testing.T) {
	c, bus := newTestController(t, "random", 5)

	received := make(chan events.Event, 1)
	bus.Subscribe(events.TopicEpisodeFinished, func(ev events.Event) {
		received <- ev
	})

	disconnect(bus, "s1", session.OutcomeCompleted)
	waitIteration(t, c, 1)

	select {
	case ev := <-received:
		ee, ok := ev.Data.(EpisodeEvent)
		if !ok {
			t.Fatalf("unexpected payload %T", ev.Data)
		}
		if ee.SessionID != "s1" || ee.Outcome != session.OutcomeCompleted || ee.Iteration != 1 {
			t.Errorf("unexpected event: %+v", ee)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("episode finished event not published")
	}
}

func TestSetStrategy(t *testing.T) {
	c, _ := newTestController(t, "random", 1)

	if err := c.SetStrategy("reflex"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	name, _ := c.CurrentStrategy()
	if name != "reflex" {
		t.Errorf("CurrentStrategy() = %q", name)
	}

	if err := c.SetStrategy("psychic"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
	name, _ = c.CurrentStrategy()
	if name != "reflex" {
		t.Errorf("failed SetStrategy changed strategy to %q", name)
	}
}
