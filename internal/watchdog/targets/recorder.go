package targets

import (
	"context"
	"time"

	"github.com/raccoonforest/ailink/internal/watchdog"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// RecorderTarget pings the episode database. Non-critical: losing the
// recorder degrades to unrecorded play, it doesn't stop the controller.
type RecorderTarget struct {
	store Pinger
}

func NewRecorderTarget(store Pinger) *RecorderTarget {
	return &RecorderTarget{store: store}
}

func (t *RecorderTarget) Name() string   { return "recorder" }
func (t *RecorderTarget) Critical() bool { return false }

func (t *RecorderTarget) Check(ctx context.Context) *watchdog.HealthResult {
	start := time.Now()
	err := t.store.Ping(ctx)
	return watchdog.NewHealthResult(err == nil, err, time.Since(start))
}
