package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/raccoonforest/ailink/internal/controller"
	"github.com/raccoonforest/ailink/internal/listener"
	"github.com/raccoonforest/ailink/internal/recorder"
	"github.com/raccoonforest/ailink/internal/watchdog"
	"github.com/raccoonforest/ailink/pkg/component"
	"github.com/raccoonforest/ailink/pkg/logger"
)

// Component serves the management API the CLI talks to.
type Component struct {
	*component.Base

	logger *slog.Logger
	deps   component.Dependencies
	addr   string
	server *http.Server

	controller *controller.Component
	listener   *listener.Component
	store      *recorder.Store
	watchdog   *watchdog.Watchdog
}

func New(deps component.Dependencies, ctrl *controller.Component, lst *listener.Component, store *recorder.Store, wd *watchdog.Watchdog) *Component {
	return &Component{
		Base:       component.NewBase("api"),
		logger:     logger.Component(logger.API),
		deps:       deps,
		addr:       deps.Config.API.Address,
		controller: ctrl,
		listener:   lst,
		store:      store,
		watchdog:   wd,
	}
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting management API", "addr", c.addr)

	c.server = &http.Server{
		Addr:    c.addr,
		Handler: c.routes(),
	}

	c.Go(func() {
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("API server failed", "error", err)
		}
	})

	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping management API")

	if c.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.server.Shutdown(shutdownCtx)
	}

	c.StopContext()
	return nil
}

func (c *Component) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/status", c.handleStatus)
	mux.HandleFunc("GET /v1/sessions", c.handleSessions)
	mux.HandleFunc("GET /v1/episodes", c.handleEpisodes)
	mux.HandleFunc("GET /v1/episodes/{id}", c.handleEpisodeSteps)
	mux.HandleFunc("GET /v1/strategy", c.handleGetStrategy)
	mux.HandleFunc("PUT /v1/strategy", c.handleSetStrategy)
	mux.HandleFunc("GET /v1/logging", c.handleGetLogging)
	mux.HandleFunc("PUT /v1/logging", c.handleSetLogging)
	mux.HandleFunc("GET /openapi.json", c.handleOpenAPI)

	if c.watchdog != nil {
		mux.HandleFunc("GET /healthz", watchdog.HealthzHandler(c.watchdog))
		mux.HandleFunc("GET /readyz", watchdog.ReadyzHandler(c.watchdog))
	}

	return mux
}
