package exporter

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/raccoonforest/ailink/internal/controller"
	"github.com/raccoonforest/ailink/internal/listener"
	"github.com/raccoonforest/ailink/internal/monitor"
	"github.com/raccoonforest/ailink/pkg/cache"
	"github.com/raccoonforest/ailink/pkg/events"
)

var (
	descSessionsActive = prometheus.NewDesc(
		"ailink_sessions_active",
		"Number of currently connected game sessions.",
		nil, nil)
	descSessionsAccepted = prometheus.NewDesc(
		"ailink_sessions_accepted_total",
		"Game connections accepted since start.",
		nil, nil)
	descSessionsRejected = prometheus.NewDesc(
		"ailink_sessions_rejected_total",
		"Game connections rejected by the session limit or brain setup.",
		nil, nil)
	descStatesReceived = prometheus.NewDesc(
		"ailink_states_received_total",
		"Game state updates received across all sessions.",
		nil, nil)
	descCommandsSent = prometheus.NewDesc(
		"ailink_commands_sent_total",
		"Action commands sent across all sessions.",
		nil, nil)
	descFramesFetched = prometheus.NewDesc(
		"ailink_frames_fetched_total",
		"Screen frames fetched across all sessions.",
		nil, nil)
	descDecodeErrors = prometheus.NewDesc(
		"ailink_state_decode_errors_total",
		"Malformed state lines dropped across all sessions.",
		nil, nil)
	descEpisodes = prometheus.NewDesc(
		"ailink_episodes_total",
		"Finished training episodes by outcome.",
		[]string{"outcome"}, nil)
	descIteration = prometheus.NewDesc(
		"ailink_training_iteration",
		"Completed training iterations.",
		nil, nil)
	descEventsPublished = prometheus.NewDesc(
		"ailink_events_published_total",
		"Events published on the internal bus.",
		nil, nil)
	descEventsDropped = prometheus.NewDesc(
		"ailink_events_dropped_total",
		"Events dropped because the bus buffer was full.",
		nil, nil)
)

// stateCollector reads the monitor's cached snapshots at scrape time.
type stateCollector struct {
	cache  cache.Cache
	logger *slog.Logger
}

func newStateCollector(c cache.Cache, logger *slog.Logger) *stateCollector {
	return &stateCollector{cache: c, logger: logger}
}

func (sc *stateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descSessionsActive
	ch <- descSessionsAccepted
	ch <- descSessionsRejected
	ch <- descStatesReceived
	ch <- descCommandsSent
	ch <- descFramesFetched
	ch <- descDecodeErrors
	ch <- descEpisodes
	ch <- descIteration
	ch <- descEventsPublished
	ch <- descEventsDropped
}

func (sc *stateCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var ls listener.Status
	if sc.get(ctx, monitor.KeyListener, &ls) {
		ch <- prometheus.MustNewConstMetric(descSessionsActive, prometheus.GaugeValue, float64(ls.ActiveSessions))
		ch <- prometheus.MustNewConstMetric(descSessionsAccepted, prometheus.CounterValue, float64(ls.Accepted))
		ch <- prometheus.MustNewConstMetric(descSessionsRejected, prometheus.CounterValue, float64(ls.Rejected))
		ch <- prometheus.MustNewConstMetric(descStatesReceived, prometheus.CounterValue, float64(ls.StatesReceived))
		ch <- prometheus.MustNewConstMetric(descCommandsSent, prometheus.CounterValue, float64(ls.CommandsSent))
		ch <- prometheus.MustNewConstMetric(descFramesFetched, prometheus.CounterValue, float64(ls.FramesFetched))
		ch <- prometheus.MustNewConstMetric(descDecodeErrors, prometheus.CounterValue, float64(ls.DecodeErrors))
	}

	var cs controller.Status
	if sc.get(ctx, monitor.KeyController, &cs) {
		ch <- prometheus.MustNewConstMetric(descIteration, prometheus.GaugeValue, float64(cs.Iteration))
		for outcome, count := range cs.Outcomes {
			ch <- prometheus.MustNewConstMetric(descEpisodes, prometheus.CounterValue, float64(count), outcome)
		}
	}

	var es events.Stats
	if sc.get(ctx, monitor.KeyEvents, &es) {
		ch <- prometheus.MustNewConstMetric(descEventsPublished, prometheus.CounterValue, float64(es.Published))
		ch <- prometheus.MustNewConstMetric(descEventsDropped, prometheus.CounterValue, float64(es.Dropped))
	}
}

func (sc *stateCollector) get(ctx context.Context, key string, out any) bool {
	data, err := sc.cache.Get(ctx, key)
	if err != nil {
		// snapshot not collected yet, or expired during shutdown
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		sc.logger.Warn("Bad snapshot in cache", "key", key, "error", err)
		return false
	}
	return true
}
