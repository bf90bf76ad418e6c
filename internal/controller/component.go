package controller

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/raccoonforest/ailink/pkg/brain"
	"github.com/raccoonforest/ailink/pkg/component"
	"github.com/raccoonforest/ailink/pkg/events"
	"github.com/raccoonforest/ailink/pkg/logger"
	"github.com/raccoonforest/ailink/pkg/session"
)

// EpisodeEvent rides on events.TopicEpisodeFinished.
type EpisodeEvent struct {
	SessionID string
	Outcome   string
	Iteration int
}

// Status describes the training run for the API and the CLI.
type Status struct {
	Strategy        string         `json:"strategy"`
	Params          brain.Params   `json:"params,omitempty"`
	Iteration       int            `json:"iteration"`
	TrainIterations int            `json:"train-iterations"`
	RunComplete     bool           `json:"run-complete"`
	Outcomes        map[string]int `json:"outcomes"`
	LastOutcome     string         `json:"last-outcome,omitempty"`
	StartedAt       time.Time      `json:"started-at"`
}

// Component supervises the training run: it counts finished episodes against
// the configured iteration budget and owns the active strategy, which the
// API can swap between episodes.
type Component struct {
	*component.Base

	logger *slog.Logger
	bus    events.Bus

	mu              sync.RWMutex
	strategy        string
	params          brain.Params
	iteration       int
	trainIterations int
	outcomes        map[string]int
	lastOutcome     string
	startedAt       time.Time

	sub events.Subscription
}

func New(deps component.Dependencies) (*Component, error) {
	cfg := deps.Config

	if !slices.Contains(brain.List(), cfg.Brain.Strategy) {
		return nil, fmt.Errorf("brain.strategy %q not registered, available: %v",
			cfg.Brain.Strategy, brain.List())
	}

	return &Component{
		Base:            component.NewBase("controller"),
		logger:          logger.Component(logger.Controller),
		bus:             deps.EventBus,
		strategy:        cfg.Brain.Strategy,
		params:          brain.Params(cfg.Brain.Params),
		trainIterations: cfg.Game.TrainIterations,
		outcomes:        make(map[string]int),
		startedAt:       time.Now(),
	}, nil
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting controller",
		"strategy", c.strategy,
		"train_iterations", c.trainIterations)

	c.sub = c.bus.Subscribe(events.TopicSessionLifecycle, c.handleLifecycle)
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping controller")
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
	c.StopContext()
	return nil
}

// CurrentStrategy implements listener.StrategyProvider.
func (c *Component) CurrentStrategy() (string, brain.Params) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.strategy, c.params
}

// SetStrategy swaps the strategy used for subsequent sessions. Sessions that
// are already running keep the brain they started with.
func (c *Component) SetStrategy(name string) error {
	if !slices.Contains(brain.List(), name) {
		return fmt.Errorf("unknown strategy %q, available: %v", name, brain.List())
	}

	c.mu.Lock()
	old := c.strategy
	c.strategy = name
	c.mu.Unlock()

	c.logger.Info("Strategy changed", "from", old, "to", name)
	return nil
}

func (c *Component) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	outcomes := make(map[string]int, len(c.outcomes))
	for k, v := range c.outcomes {
		outcomes[k] = v
	}

	return Status{
		Strategy:        c.strategy,
		Params:          c.params,
		Iteration:       c.iteration,
		TrainIterations: c.trainIterations,
		RunComplete:     c.iteration >= c.trainIterations,
		Outcomes:        outcomes,
		LastOutcome:     c.lastOutcome,
		StartedAt:       c.startedAt,
	}
}

func (c *Component) handleLifecycle(ev events.Event) {
	le, ok := ev.Data.(session.LifecycleEvent)
	if !ok || le.Type != events.SessionDisconnected {
		return
	}

	outcome := le.Info.Outcome
	if outcome != session.OutcomeCompleted && outcome != session.OutcomeDied {
		// transport losses and idle kills don't count as training episodes
		return
	}

	c.mu.Lock()
	c.iteration++
	c.outcomes[outcome]++
	c.lastOutcome = outcome
	iteration := c.iteration
	done := iteration >= c.trainIterations
	c.mu.Unlock()

	c.logger.Info("Episode finished",
		"session", session.ShortID(le.SessionID),
		"outcome", outcome,
		"iteration", iteration,
		"of", c.trainIterations)

	c.bus.Publish(events.TopicEpisodeFinished, events.Event{
		Source: le.SessionID,
		Data: EpisodeEvent{
			SessionID: le.SessionID,
			Outcome:   outcome,
			Iteration: iteration,
		},
	})

	if done {
		c.logger.Info("Training run complete, still accepting connections",
			"iterations", iteration)
	}
}
