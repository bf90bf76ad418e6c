package watchdog

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/raccoonforest/ailink/pkg/component"
	"github.com/raccoonforest/ailink/pkg/logger"
)

// Watchdog runs health checks against registered targets and backs the
// readiness endpoint.
type Watchdog struct {
	*component.Base
	logger  *slog.Logger
	runners map[string]*targetRunner
	mu      sync.RWMutex
}

func New() *Watchdog {
	return &Watchdog{
		Base:    component.NewBase("watchdog"),
		logger:  logger.Get(logger.Watchdog),
		runners: make(map[string]*targetRunner),
	}
}

func (w *Watchdog) Register(target Target, config RunnerConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()

	name := target.Name()
	if _, exists := w.runners[name]; exists {
		w.logger.Warn("target already registered, replacing", "target", name)
	}

	w.runners[name] = newTargetRunner(target, config, w.logger)
	w.logger.Info("registered target", "target", name, "critical", target.Critical())
}

func (w *Watchdog) Start(ctx context.Context) error {
	w.StartContext(ctx)
	w.logger.Info("starting watchdog")

	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, runner := range w.runners {
		runner.start(w.Ctx)
	}

	return nil
}

func (w *Watchdog) Stop(ctx context.Context) error {
	w.logger.Info("stopping watchdog")

	w.mu.RLock()
	runners := make([]*targetRunner, 0, len(w.runners))
	for _, r := range w.runners {
		runners = append(runners, r)
	}
	w.mu.RUnlock()

	for _, r := range runners {
		r.stop()
	}

	w.StopContext()
	return nil
}

func (w *Watchdog) GetAllStates() []StateInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()

	states := make([]StateInfo, 0, len(w.runners))
	for _, r := range w.runners {
		states = append(states, r.stateInfo())
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Name < states[j].Name })
	return states
}

// IsReady reports whether every critical target is up.
func (w *Watchdog) IsReady() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, r := range w.runners {
		if r.target.Critical() && !r.isUp() {
			return false
		}
	}
	return true
}
