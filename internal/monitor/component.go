package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/raccoonforest/ailink/internal/controller"
	"github.com/raccoonforest/ailink/internal/listener"
	"github.com/raccoonforest/ailink/pkg/cache"
	"github.com/raccoonforest/ailink/pkg/component"
	"github.com/raccoonforest/ailink/pkg/events"
	"github.com/raccoonforest/ailink/pkg/logger"
	"github.com/raccoonforest/ailink/pkg/session"
)

// Cache keys the API and the exporter read snapshots from.
const (
	KeyListener   = "ailink:state:listener"
	KeySessions   = "ailink:state:sessions"
	KeyController = "ailink:state:controller"
	KeyEvents     = "ailink:state:events"
)

type Config struct {
	Cache      cache.Cache
	Bus        events.Bus
	Sessions   *session.Registry
	Listener   *listener.Component
	Controller *controller.Component
	Interval   time.Duration
	TTL        time.Duration
}

// Component snapshots component state into the cache on an interval so the
// read surfaces never touch live components.
type Component struct {
	*component.Base

	logger *slog.Logger
	cfg    Config
}

func New(cfg Config) *Component {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return &Component{
		Base:   component.NewBase("monitor"),
		logger: logger.Component(logger.Monitor),
		cfg:    cfg,
	}
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting monitor", "interval", c.cfg.Interval)

	c.Go(c.collectLoop)
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping monitor")
	c.StopContext()
	return nil
}

func (c *Component) collectLoop() {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	// one immediate pass so the cache is warm before the first tick
	c.collect()

	for {
		select {
		case <-c.Ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *Component) collect() {
	c.put(KeyListener, c.cfg.Listener.Status())
	c.put(KeySessions, c.cfg.Sessions.List())
	c.put(KeyController, c.cfg.Controller.Status())
	c.put(KeyEvents, c.cfg.Bus.Stats())
}

func (c *Component) put(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("Failed to encode snapshot", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Ctx, time.Second)
	defer cancel()

	if err := c.cfg.Cache.Set(ctx, key, data, c.cfg.TTL); err != nil {
		c.logger.Error("Failed to cache snapshot", "key", key, "error", err)
	}
}
