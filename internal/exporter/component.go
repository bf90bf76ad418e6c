package exporter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raccoonforest/ailink/pkg/component"
	"github.com/raccoonforest/ailink/pkg/logger"
)

// Component serves controller metrics for Prometheus scrapes, sourced from
// the monitor's cached snapshots.
type Component struct {
	*component.Base

	logger *slog.Logger
	deps   component.Dependencies
	addr   string
	server *http.Server
}

func New(deps component.Dependencies) *Component {
	return &Component{
		Base:   component.NewBase("exporter"),
		logger: logger.Component(logger.Exporter),
		deps:   deps,
		addr:   deps.Config.Exporter.Address,
	}
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting metrics exporter", "addr", c.addr)

	registry := prometheus.NewRegistry()
	registry.MustRegister(newStateCollector(c.deps.Cache, c.logger))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	c.server = &http.Server{
		Addr:    c.addr,
		Handler: mux,
	}

	c.Go(func() {
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("Metrics server failed", "error", err)
		}
	})

	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping metrics exporter")

	if c.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.server.Shutdown(shutdownCtx)
	}

	c.StopContext()
	return nil
}
