package watchdog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type RunnerConfig struct {
	CheckInterval    time.Duration
	CheckTimeout     time.Duration
	FailureThreshold int
}

// targetRunner checks one target on an interval. A target only transitions
// down after FailureThreshold consecutive failures, so a single slow check
// doesn't flip readiness.
type targetRunner struct {
	target Target
	config RunnerConfig
	logger *slog.Logger

	mu           sync.RWMutex
	state        TargetState
	lastCheck    *HealthResult
	consecFails  int64
	totalFails   int64
	stateChanged time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newTargetRunner(target Target, config RunnerConfig, logger *slog.Logger) *targetRunner {
	if config.CheckInterval <= 0 {
		config.CheckInterval = 10 * time.Second
	}
	if config.CheckTimeout <= 0 {
		config.CheckTimeout = 5 * time.Second
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 3
	}
	return &targetRunner{
		target:       target,
		config:       config,
		logger:       logger.With("target", target.Name()),
		state:        StateInit,
		stateChanged: time.Now(),
	}
}

func (r *targetRunner) start(parentCtx context.Context) {
	ctx, cancel := context.WithCancel(parentCtx)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
}

func (r *targetRunner) stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *targetRunner) run(ctx context.Context) {
	ticker := time.NewTicker(r.config.CheckInterval)
	defer ticker.Stop()

	r.check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.check(ctx)
		}
	}
}

func (r *targetRunner) check(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, r.config.CheckTimeout)
	result := r.target.Check(checkCtx)
	cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastCheck = result

	if result.Healthy {
		r.consecFails = 0
		if r.state != StateUp {
			r.logger.Info("Target healthy", "latency_ms", result.LatencyMs)
			r.state = StateUp
			r.stateChanged = time.Now()
		}
		return
	}

	r.consecFails++
	r.totalFails++
	r.logger.Warn("Target check failed",
		"error", result.Error,
		"consecutive", r.consecFails,
		"threshold", r.config.FailureThreshold)

	if r.consecFails >= int64(r.config.FailureThreshold) && r.state != StateDown {
		r.logger.Error("Target down", "failures", r.consecFails)
		r.state = StateDown
		r.stateChanged = time.Now()
	}
}

func (r *targetRunner) stateInfo() StateInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return StateInfo{
		Name:            r.target.Name(),
		State:           r.state.String(),
		Critical:        r.target.Critical(),
		LastCheck:       r.lastCheck,
		ConsecFailures:  r.consecFails,
		TotalFailures:   r.totalFails,
		LastStateChange: r.stateChanged,
	}
}

func (r *targetRunner) isUp() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state == StateUp
}
