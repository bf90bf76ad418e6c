package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raccoonforest/ailink/pkg/component"
	"github.com/raccoonforest/ailink/pkg/events"
	"github.com/raccoonforest/ailink/pkg/events/local"
	"github.com/raccoonforest/ailink/pkg/frame"
	"github.com/raccoonforest/ailink/pkg/gamestate"
	"github.com/raccoonforest/ailink/pkg/protocol"
	"github.com/raccoonforest/ailink/pkg/session"
)

func startRecorder(t *testing.T) (*Component, events.Bus) {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "episodes.db"))
	require.NoError(t, err)

	bus := local.NewBus()
	t.Cleanup(func() { bus.Close() })

	c, err := New(component.Dependencies{EventBus: bus}, store)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { c.Stop(ctx) })

	return c, bus
}

func waitSteps(t *testing.T, store *Store, episodeID string, want int) []Step {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		steps, err := store.GetSteps(context.Background(), episodeID, 0)
		require.NoError(t, err)
		if len(steps) >= want {
			return steps
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("episode %s never reached %d steps", episodeID, want)
	return nil
}

func TestRecorderCapturesEpisode(t *testing.T) {
	c, bus := startRecorder(t)
	store := c.Store()
	ctx := context.Background()

	connectedAt := time.Now()
	bus.Publish(events.TopicSessionLifecycle, events.Event{
		Type: events.SessionConnected,
		Data: session.LifecycleEvent{
			SessionID: "ep1",
			Type:      events.SessionConnected,
			Info: session.Info{
				ID:          "ep1",
				Remote:      "127.0.0.1:40000",
				Strategy:    "reflex",
				ConnectedAt: connectedAt,
			},
		},
	})

	bus.Publish(events.TopicGameState, events.Event{
		Data: session.StateEvent{
			SessionID: "ep1",
			Snapshot: gamestate.Snapshot{
				StateUpdate: protocol.StateUpdate{NumActivePlayers: 2},
				Seq:         1,
			},
		},
	})
	bus.Publish(events.TopicGameCommand, events.Event{
		Data: session.CommandEvent{SessionID: "ep1", Command: "SHOOT", StateSeq: 1},
	})
	bus.Publish(events.TopicFrameCaptured, events.Event{
		Data: session.FrameEvent{SessionID: "ep1", Analysis: &frame.Analysis{BrightestCol: 4}},
	})

	steps := waitSteps(t, store, "ep1", 3)

	// ordered delivery persists steps in publish order
	require.Len(t, steps, 3)
	assert.Equal(t, StepState, steps[0].Kind)
	assert.Equal(t, StepCommand, steps[1].Kind)
	assert.Equal(t, StepFrame, steps[2].Kind)
	for i, st := range steps {
		assert.Equal(t, int64(i+1), st.Seq)
		assert.NotEmpty(t, st.Payload)
	}

	bus.Publish(events.TopicSessionLifecycle, events.Event{
		Type: events.SessionDisconnected,
		Data: session.LifecycleEvent{
			SessionID: "ep1",
			Type:      events.SessionDisconnected,
			Info:      session.Info{ID: "ep1", Outcome: session.OutcomeCompleted},
		},
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		episodes, err := store.ListEpisodes(ctx, 10)
		require.NoError(t, err)
		if len(episodes) == 1 && episodes[0].EndedAt != nil {
			assert.Equal(t, "reflex", episodes[0].Strategy)
			assert.Equal(t, session.OutcomeCompleted, episodes[0].Outcome)
			assert.Equal(t, 3, episodes[0].Steps)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("episode never finalized")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRecorderSkipsEmptyEpisode(t *testing.T) {
	c, bus := startRecorder(t)
	store := c.Store()

	// a health check connects and drops without a single state or command
	bus.Publish(events.TopicSessionLifecycle, events.Event{
		Type: events.SessionConnected,
		Data: session.LifecycleEvent{
			SessionID: "hc1",
			Type:      events.SessionConnected,
			Info:      session.Info{ID: "hc1", Remote: "127.0.0.1:50000", Strategy: "random", ConnectedAt: time.Now()},
		},
	})
	bus.Publish(events.TopicSessionLifecycle, events.Event{
		Type: events.SessionDisconnected,
		Data: session.LifecycleEvent{
			SessionID: "hc1",
			Type:      events.SessionDisconnected,
			Info:      session.Info{ID: "hc1", Outcome: session.OutcomeDisconnected},
		},
	})

	// a real episode recorded afterwards still lands
	bus.Publish(events.TopicSessionLifecycle, events.Event{
		Type: events.SessionConnected,
		Data: session.LifecycleEvent{
			SessionID: "ep2",
			Type:      events.SessionConnected,
			Info:      session.Info{ID: "ep2", Remote: "127.0.0.1:50001", Strategy: "reflex", ConnectedAt: time.Now()},
		},
	})
	bus.Publish(events.TopicGameState, events.Event{
		Data: session.StateEvent{
			SessionID: "ep2",
			Snapshot:  gamestate.Snapshot{StateUpdate: protocol.StateUpdate{NumActivePlayers: 1}, Seq: 1},
		},
	})

	waitSteps(t, store, "ep2", 1)

	episodes, err := store.ListEpisodes(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, "ep2", episodes[0].ID)
}

func TestRecorderIgnoresForeignPayloads(t *testing.T) {
	c, bus := startRecorder(t)
	store := c.Store()

	bus.Publish(events.TopicGameState, events.Event{Data: "not a state event"})

	time.Sleep(100 * time.Millisecond)
	episodes, err := store.ListEpisodes(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, episodes)
}
