package session

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raccoonforest/ailink/pkg/brain"
	"github.com/raccoonforest/ailink/pkg/events"
	"github.com/raccoonforest/ailink/pkg/frame"
	"github.com/raccoonforest/ailink/pkg/gamestate"
	"github.com/raccoonforest/ailink/pkg/logger"
	"github.com/raccoonforest/ailink/pkg/protocol"
)

// Outcome values a session can end with.
const (
	OutcomeCompleted    = "completed"
	OutcomeDied         = "died"
	OutcomeDisconnected = "disconnected"
	OutcomeIdle         = "idle"
	OutcomeShutdown     = "shutdown"
)

type Config struct {
	CommandInterval time.Duration
	FetchFrames     bool
	SaveLatestFrame bool
	FrameSavePath   string
	MaxFrameBytes   int
	FrameTimeout    time.Duration

	// ReadTimeout bounds each blocking read, so a stalled connection
	// still notices Close and context cancellation.
	ReadTimeout time.Duration
}

// StateEvent rides on events.TopicGameState.
type StateEvent struct {
	SessionID string
	Snapshot  gamestate.Snapshot
}

// CommandEvent rides on events.TopicGameCommand.
type CommandEvent struct {
	SessionID string
	Command   string
	StateSeq  uint64
}

// FrameEvent rides on events.TopicFrameCaptured.
type FrameEvent struct {
	SessionID string
	Analysis  *frame.Analysis
}

// LifecycleEvent rides on events.TopicSessionLifecycle.
type LifecycleEvent struct {
	SessionID string
	Type      string
	Info      Info
}

// Info is the read-only view handed to the API and the monitor.
type Info struct {
	ID             string              `json:"id"`
	Remote         string              `json:"remote"`
	Strategy       string              `json:"strategy"`
	ConnectedAt    time.Time           `json:"connected-at"`
	StatesReceived uint64              `json:"states-received"`
	CommandsSent   uint64              `json:"commands-sent"`
	FramesFetched  uint64              `json:"frames-fetched"`
	DecodeErrors   uint64              `json:"decode-errors"`
	LastState      *gamestate.Snapshot `json:"last-state,omitempty"`
	Outcome        string              `json:"outcome,omitempty"`
}

// Session drives one game connection: the receive loop owns all reads
// (state lines and frame replies), the command loop paces writes of the
// latest brain decision.
type Session struct {
	id      string
	conn    *protocol.Conn
	tracker *gamestate.Tracker
	brain   brain.Brain
	bus     events.Bus
	logger  *slog.Logger
	cfg     Config
	reg     *Registry

	mu      sync.Mutex
	pending protocol.Command
	latest  *frame.Analysis

	statesReceived atomic.Uint64
	commandsSent   atomic.Uint64
	framesFetched  atomic.Uint64
	decodeErrors   atomic.Uint64

	connectedAt time.Time
	remote      string

	outcomeMu sync.Mutex
	outcome   string

	done      chan struct{}
	closeOnce sync.Once
}

func New(raw net.Conn, b brain.Brain, bus events.Bus, reg *Registry, cfg Config) *Session {
	id := GenerateID()

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Second
	}

	s := &Session{
		id:          id,
		conn:        protocol.NewConn(raw, cfg.MaxFrameBytes, cfg.FrameTimeout),
		tracker:     gamestate.NewTracker(),
		brain:       b,
		bus:         bus,
		logger:      logger.Get(logger.Session).With("sid", ShortID(id)),
		cfg:         cfg,
		reg:         reg,
		connectedAt: time.Now(),
		remote:      raw.RemoteAddr().String(),
		done:        make(chan struct{}),
	}
	return s
}

func (s *Session) ID() string { return s.id }

// Run blocks until the session ends, for whatever reason, and reports the
// final Info. The caller invokes it on its own goroutine.
func (s *Session) Run(ctx context.Context) Info {
	s.logger.Info("Game connected", "remote", s.remote, "strategy", s.brain.Name())
	s.publishLifecycle(events.SessionConnected)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.commandLoop(ctx)
	}()

	s.receiveLoop(ctx)

	s.Close()
	wg.Wait()

	info := s.Info()
	s.logger.Info("Session ended",
		"outcome", info.Outcome,
		"states", info.StatesReceived,
		"commands", info.CommandsSent,
		"frames", info.FramesFetched)
	s.publishLifecycle(events.SessionDisconnected)

	return info
}

// Close is idempotent and safe from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.setOutcome(OutcomeShutdown)
		close(s.done)
		s.conn.Close()
	})
}

// Expire closes the session marked as idle; called by the registry's expiry
// manager.
func (s *Session) Expire() {
	s.setOutcome(OutcomeIdle)
	s.logger.Warn("Session idle timeout")
	s.Close()
}

func (s *Session) receiveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			s.setOutcome(OutcomeDisconnected)
			return
		}

		line, err := s.conn.ReadLine()
		if err != nil {
			if protocol.IsTimeout(err) {
				continue
			}
			s.setOutcome(OutcomeDisconnected)
			s.logger.Debug("Read loop ended", "error", err)
			return
		}

		if len(line) == 0 {
			continue
		}

		if s.reg != nil {
			s.reg.Touch(s.id)
		}

		state, err := protocol.DecodeState(line)
		if err != nil {
			s.decodeErrors.Add(1)
			s.logger.Warn("Dropping malformed state line", "error", err, "line", string(line))
			continue
		}

		snap, changed := s.tracker.Update(state)
		s.statesReceived.Add(1)

		if changed {
			s.logger.Debug("State changed",
				"dead", snap.IsDead,
				"players", snap.NumActivePlayers,
				"armed", snap.HasWeapon,
				"weapons", snap.NumWeapons,
				"ended", snap.GameEnded)
		}

		s.bus.Publish(events.TopicGameState, events.Event{
			Source: s.id,
			Data:   StateEvent{SessionID: s.id, Snapshot: snap},
		})

		if snap.Terminal() {
			if snap.GameEnded {
				s.setOutcome(OutcomeCompleted)
			} else {
				s.setOutcome(OutcomeDied)
			}
			s.logger.Info("Episode over", "ended", snap.GameEnded, "dead", snap.IsDead)
			return
		}

		analysis := s.maybeFetchFrame()
		s.decide(snap, analysis)
	}
}

// maybeFetchFrame pulls a screen dump inline on the read path, matching the
// request/reply framing. Frame failures degrade the session to state-only
// play instead of killing it, unless the transport itself is gone.
func (s *Session) maybeFetchFrame() *frame.Analysis {
	if !s.cfg.FetchFrames {
		return nil
	}

	data, err := s.conn.RequestFrame()
	if err != nil {
		s.logger.Warn("Frame fetch failed", "error", err)
		if !protocol.IsTimeout(err) {
			s.setOutcome(OutcomeDisconnected)
			s.Close()
		}
		return s.latestAnalysis()
	}
	if data == nil {
		return s.latestAnalysis()
	}

	analysis, err := frame.Analyze(data)
	if err != nil {
		s.logger.Warn("Frame analysis failed", "error", err, "bytes", len(data))
		return s.latestAnalysis()
	}

	s.framesFetched.Add(1)

	if s.cfg.SaveLatestFrame && s.cfg.FrameSavePath != "" {
		if err := frame.SaveLatest(s.cfg.FrameSavePath, data); err != nil {
			s.logger.Warn("Failed to save frame", "path", s.cfg.FrameSavePath, "error", err)
		}
	}

	s.mu.Lock()
	s.latest = analysis
	s.mu.Unlock()

	s.bus.Publish(events.TopicFrameCaptured, events.Event{
		Source: s.id,
		Data:   FrameEvent{SessionID: s.id, Analysis: analysis},
	})

	return analysis
}

func (s *Session) latestAnalysis() *frame.Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Session) decide(snap gamestate.Snapshot, analysis *frame.Analysis) {
	cmd, ok := s.brain.Decide(snap, analysis)
	if !ok || cmd.Empty() {
		return
	}

	s.mu.Lock()
	s.pending = cmd
	s.mu.Unlock()
}

func (s *Session) commandLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CommandInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		cmd := s.pending
		s.pending = nil
		s.mu.Unlock()

		if cmd.Empty() {
			continue
		}

		if err := s.conn.WriteCommand(cmd); err != nil {
			s.setOutcome(OutcomeDisconnected)
			s.logger.Debug("Command write failed", "error", err)
			s.Close()
			return
		}

		s.commandsSent.Add(1)

		var stateSeq uint64
		if snap, ok := s.tracker.Latest(); ok {
			stateSeq = snap.Seq
		}

		s.bus.Publish(events.TopicGameCommand, events.Event{
			Source: s.id,
			Data:   CommandEvent{SessionID: s.id, Command: cmd.Encode(), StateSeq: stateSeq},
		})
	}
}

// setOutcome latches the first outcome; later calls lose.
func (s *Session) setOutcome(outcome string) {
	s.outcomeMu.Lock()
	defer s.outcomeMu.Unlock()
	if s.outcome == "" {
		s.outcome = outcome
	}
}

func (s *Session) Info() Info {
	s.outcomeMu.Lock()
	outcome := s.outcome
	s.outcomeMu.Unlock()

	info := Info{
		ID:             s.id,
		Remote:         s.remote,
		Strategy:       s.brain.Name(),
		ConnectedAt:    s.connectedAt,
		StatesReceived: s.statesReceived.Load(),
		CommandsSent:   s.commandsSent.Load(),
		FramesFetched:  s.framesFetched.Load(),
		DecodeErrors:   s.decodeErrors.Load(),
		Outcome:        outcome,
	}

	if snap, ok := s.tracker.Latest(); ok {
		info.LastState = &snap
	}
	return info
}

func (s *Session) publishLifecycle(eventType string) {
	s.bus.Publish(events.TopicSessionLifecycle, events.Event{
		Type:   eventType,
		Source: s.id,
		Data:   LifecycleEvent{SessionID: s.id, Type: eventType, Info: s.Info()},
	})
}
