package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raccoonforest/ailink/internal/api"
	"github.com/raccoonforest/ailink/internal/controller"
	"github.com/raccoonforest/ailink/internal/exporter"
	"github.com/raccoonforest/ailink/internal/listener"
	"github.com/raccoonforest/ailink/internal/monitor"
	"github.com/raccoonforest/ailink/internal/recorder"
	"github.com/raccoonforest/ailink/internal/watchdog"
	"github.com/raccoonforest/ailink/internal/watchdog/targets"
	"github.com/raccoonforest/ailink/pkg/cache/memory"
	"github.com/raccoonforest/ailink/pkg/component"
	"github.com/raccoonforest/ailink/pkg/config"
	"github.com/raccoonforest/ailink/pkg/events/local"
	"github.com/raccoonforest/ailink/pkg/gameconfig"
	"github.com/raccoonforest/ailink/pkg/logger"
	"github.com/raccoonforest/ailink/pkg/session"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	port := flag.Int("port", 0, "Override the game listener port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *port > 0 {
		if err := cfg.SetListenerPort(*port); err != nil {
			log.Fatalf("Failed to override listener port: %v", err)
		}
	}

	logger.Configure(cfg.Logging.Format, cfg.Logging.Level, cfg.Logging.Components)

	mainLog := logger.Component(logger.Main)
	mainLog.Info("Starting ailinkd", "listener", cfg.Listener.Address, "strategy", cfg.Brain.Strategy)

	if cfg.Unity.ConfigPath != "" {
		listenerPort, err := cfg.ListenerPort()
		if err != nil {
			log.Fatalf("Failed to resolve listener port: %v", err)
		}
		if err := gameconfig.Apply(cfg.Unity.ConfigPath, listenerPort, cfg.Unity); err != nil {
			log.Fatalf("Failed to update game config %s: %v", cfg.Unity.ConfigPath, err)
		}
	}

	eventBus := local.NewBus()
	cache := memory.New()
	sessions := session.NewRegistry(time.Duration(cfg.Listener.IdleTimeout))

	deps := component.Dependencies{
		EventBus: eventBus,
		Cache:    cache,
		Config:   cfg,
		Sessions: sessions,
	}

	controllerComp, err := controller.New(deps)
	if err != nil {
		log.Fatalf("Failed to create controller component: %v", err)
	}

	listenerComp, err := listener.New(deps, controllerComp)
	if err != nil {
		log.Fatalf("Failed to create listener component: %v", err)
	}

	var store *recorder.Store
	var recorderComp *recorder.Component
	if cfg.Recorder.Enabled {
		store, err = recorder.Open(cfg.Recorder.Path)
		if err != nil {
			log.Fatalf("Failed to open episode store %s: %v", cfg.Recorder.Path, err)
		}
		recorderComp, err = recorder.New(deps, store)
		if err != nil {
			log.Fatalf("Failed to create recorder component: %v", err)
		}
	}

	monitorComp := monitor.New(monitor.Config{
		Cache:      cache,
		Bus:        eventBus,
		Sessions:   sessions,
		Listener:   listenerComp,
		Controller: controllerComp,
	})

	wd := watchdog.New()
	runnerConfig := func(name string) watchdog.RunnerConfig {
		rc := cfg.Watchdog.Runner(name)
		return watchdog.RunnerConfig{
			CheckInterval:    rc.CheckInterval.Std(),
			CheckTimeout:     rc.CheckTimeout.Std(),
			FailureThreshold: rc.FailureThreshold,
		}
	}
	wd.Register(targets.NewListenerTarget(cfg.Listener.Address), runnerConfig("listener"))
	if store != nil {
		wd.Register(targets.NewRecorderTarget(store), runnerConfig("recorder"))
	}

	apiComp := api.New(deps, controllerComp, listenerComp, store, wd)

	orch := component.NewOrchestrator()
	orch.Register(controllerComp)
	if recorderComp != nil {
		orch.Register(recorderComp)
	}
	orch.Register(listenerComp)
	orch.Register(monitorComp)
	if cfg.Exporter.Enabled {
		orch.Register(exporter.New(deps))
	}
	orch.Register(apiComp)
	orch.Register(wd)

	ctx := context.Background()
	if err := orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start components: %v", err)
	}

	mainLog.Info("ailinkd started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	mainLog.Info("Shutting down ailinkd...")

	if err := orch.Stop(ctx); err != nil {
		mainLog.Error("Error stopping components", "error", err)
	}

	if err := eventBus.Close(); err != nil {
		mainLog.Error("Error closing event bus", "error", err)
	}

	if err := cache.Close(); err != nil {
		mainLog.Error("Error closing cache", "error", err)
	}

	mainLog.Info("ailinkd stopped")
}
