package recorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/raccoonforest/ailink/pkg/component"
	"github.com/raccoonforest/ailink/pkg/events"
	"github.com/raccoonforest/ailink/pkg/logger"
	"github.com/raccoonforest/ailink/pkg/session"
)

// episodeMeta holds the connect-time details until the first step arrives.
// Episodes begin lazily so watchdog health checks and other empty
// connections never reach the store.
type episodeMeta struct {
	strategy    string
	remote      string
	connectedAt time.Time
}

// Component streams every session's states, commands and frame digests into
// the episode store. It subscribes ordered, so steps are persisted in
// publish order and sequence numbers never collide.
type Component struct {
	*component.Base

	logger *slog.Logger
	bus    events.Bus
	store  *Store

	mu      sync.Mutex
	seqs    map[string]int64
	pending map[string]episodeMeta

	subs []events.Subscription
}

func New(deps component.Dependencies, store *Store) (*Component, error) {
	return &Component{
		Base:    component.NewBase("recorder"),
		logger:  logger.Component(logger.Recorder),
		bus:     deps.EventBus,
		store:   store,
		seqs:    make(map[string]int64),
		pending: make(map[string]episodeMeta),
	}, nil
}

func (c *Component) Store() *Store {
	return c.store
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting episode recorder")

	c.subs = append(c.subs,
		c.bus.SubscribeOrdered(events.TopicSessionLifecycle, c.handleLifecycle),
		c.bus.SubscribeOrdered(events.TopicGameState, c.handleState),
		c.bus.SubscribeOrdered(events.TopicGameCommand, c.handleCommand),
		c.bus.SubscribeOrdered(events.TopicFrameCaptured, c.handleFrame),
	)
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping episode recorder")

	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.StopContext()

	return c.store.Close()
}

func (c *Component) handleLifecycle(ev events.Event) {
	le, ok := ev.Data.(session.LifecycleEvent)
	if !ok {
		return
	}

	switch le.Type {
	case events.SessionConnected:
		c.mu.Lock()
		c.pending[le.SessionID] = episodeMeta{
			strategy:    le.Info.Strategy,
			remote:      le.Info.Remote,
			connectedAt: le.Info.ConnectedAt,
		}
		c.mu.Unlock()
	case events.SessionDisconnected:
		c.mu.Lock()
		_, empty := c.pending[le.SessionID]
		delete(c.pending, le.SessionID)
		delete(c.seqs, le.SessionID)
		c.mu.Unlock()

		if empty {
			c.logger.Debug("Skipping empty episode", "episode", le.SessionID)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.store.EndEpisode(ctx, le.SessionID, le.Info.Outcome, time.Now()); err != nil {
			c.logger.Error("Failed to finalize episode", "episode", le.SessionID, "error", err)
		}
	}
}

func (c *Component) handleState(ev events.Event) {
	se, ok := ev.Data.(session.StateEvent)
	if !ok {
		return
	}
	c.append(se.SessionID, StepState, se.Snapshot)
}

func (c *Component) handleCommand(ev events.Event) {
	ce, ok := ev.Data.(session.CommandEvent)
	if !ok {
		return
	}
	c.append(ce.SessionID, StepCommand, ce)
}

func (c *Component) handleFrame(ev events.Event) {
	fe, ok := ev.Data.(session.FrameEvent)
	if !ok || fe.Analysis == nil {
		return
	}
	c.append(fe.SessionID, StepFrame, fe.Analysis)
}

func (c *Component) append(episodeID, kind string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("Failed to encode step", "kind", kind, "error", err)
		return
	}

	c.mu.Lock()
	meta, first := c.pending[episodeID]
	delete(c.pending, episodeID)
	c.seqs[episodeID]++
	seq := c.seqs[episodeID]
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if first {
		if err := c.store.BeginEpisode(ctx, episodeID, meta.strategy, meta.remote, meta.connectedAt); err != nil {
			c.logger.Error("Failed to begin episode", "episode", episodeID, "error", err)
		}
	}

	if err := c.store.AppendStep(ctx, episodeID, seq, kind, data); err != nil {
		c.logger.Error("Failed to append step", "episode", episodeID, "kind", kind, "error", err)
	}
}
