package targets

import (
	"context"
	"net"
	"time"

	"github.com/raccoonforest/ailink/internal/watchdog"
)

// ListenerTarget probes the controller's own game port with a short-lived
// TCP dial, catching a wedged accept loop from outside the process path the
// game uses.
type ListenerTarget struct {
	addr string
}

func NewListenerTarget(addr string) *ListenerTarget {
	return &ListenerTarget{addr: addr}
}

func (t *ListenerTarget) Name() string   { return "listener" }
func (t *ListenerTarget) Critical() bool { return true }

func (t *ListenerTarget) Check(ctx context.Context) *watchdog.HealthResult {
	start := time.Now()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	latency := time.Since(start)
	if err != nil {
		return watchdog.NewHealthResult(false, err, latency)
	}
	conn.Close()

	return watchdog.NewHealthResult(true, nil, latency)
}
