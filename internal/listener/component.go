package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raccoonforest/ailink/pkg/brain"
	"github.com/raccoonforest/ailink/pkg/component"
	"github.com/raccoonforest/ailink/pkg/logger"
	"github.com/raccoonforest/ailink/pkg/session"
)

// StrategyProvider yields the brain strategy to assign to the next session.
// The controller implements it and may swap strategies at runtime.
type StrategyProvider interface {
	CurrentStrategy() (string, brain.Params)
}

// Status is the snapshot the monitor caches for the API and the exporter.
type Status struct {
	Address        string `json:"address"`
	ActiveSessions int    `json:"active-sessions"`
	MaxSessions    int    `json:"max-sessions"`
	Accepted       uint64 `json:"accepted"`
	Rejected       uint64 `json:"rejected"`

	StatesReceived uint64 `json:"states-received"`
	CommandsSent   uint64 `json:"commands-sent"`
	FramesFetched  uint64 `json:"frames-fetched"`
	DecodeErrors   uint64 `json:"decode-errors"`
}

// Component accepts game connections and runs one session per connection.
type Component struct {
	*component.Base

	logger   *slog.Logger
	deps     component.Dependencies
	provider StrategyProvider

	ln net.Listener

	accepted atomic.Uint64
	rejected atomic.Uint64

	// lifetime totals folded in as sessions end
	totalsMu      sync.Mutex
	doneStates    uint64
	doneCommands  uint64
	doneFrames    uint64
	doneDecodeErr uint64
}

func New(deps component.Dependencies, provider StrategyProvider) (*Component, error) {
	if provider == nil {
		return nil, fmt.Errorf("listener requires a strategy provider")
	}
	return &Component{
		Base:     component.NewBase("listener"),
		logger:   logger.Component(logger.Listener),
		deps:     deps,
		provider: provider,
	}, nil
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)

	addr := c.deps.Config.Listener.Address
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	c.ln = ln

	c.deps.Sessions.Start()

	c.logger.Info("Waiting for game connections", "addr", addr)
	c.Go(c.acceptLoop)

	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping listener")

	if c.ln != nil {
		c.ln.Close()
	}
	c.deps.Sessions.CloseAll()
	c.StopContext()
	c.deps.Sessions.Stop()

	return nil
}

func (c *Component) acceptLoop() {
	tcpLn, _ := c.ln.(*net.TCPListener)

	for {
		select {
		case <-c.Ctx.Done():
			return
		default:
		}

		if tcpLn != nil {
			tcpLn.SetDeadline(time.Now().Add(time.Second))
		}

		conn, err := c.ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			c.logger.Warn("Accept failed", "error", err)
			continue
		}

		c.handleConn(conn)
	}
}

func (c *Component) handleConn(conn net.Conn) {
	cfg := c.deps.Config

	if c.deps.Sessions.Count() >= cfg.Listener.MaxSessions {
		c.rejected.Add(1)
		c.logger.Warn("Rejecting connection, session limit reached",
			"remote", conn.RemoteAddr(),
			"limit", cfg.Listener.MaxSessions)
		conn.Close()
		return
	}

	strategy, params := c.provider.CurrentStrategy()
	b, err := brain.New(strategy, params)
	if err != nil {
		c.rejected.Add(1)
		c.logger.Error("Cannot build brain for session", "strategy", strategy, "error", err)
		conn.Close()
		return
	}

	sess := session.New(conn, b, c.deps.EventBus, c.deps.Sessions, session.Config{
		CommandInterval: cfg.Game.CommandInterval.Std(),
		FetchFrames:     cfg.Game.FetchFrames,
		SaveLatestFrame: cfg.Game.SaveLatestFrame,
		FrameSavePath:   cfg.Game.FrameSavePath,
		MaxFrameBytes:   cfg.Game.MaxFrameBytes,
		ReadTimeout:     cfg.Listener.ReadTimeout.Std(),
	})

	c.accepted.Add(1)
	c.deps.Sessions.Add(sess)

	c.Go(func() {
		info := sess.Run(c.Ctx)
		c.deps.Sessions.Remove(sess.ID())
		c.foldTotals(info)
	})
}

// Addr reports the bound address, which differs from the configured one
// when the port is 0.
func (c *Component) Addr() string {
	if c.ln != nil {
		return c.ln.Addr().String()
	}
	return c.deps.Config.Listener.Address
}

func (c *Component) foldTotals(info session.Info) {
	c.totalsMu.Lock()
	defer c.totalsMu.Unlock()
	c.doneStates += info.StatesReceived
	c.doneCommands += info.CommandsSent
	c.doneFrames += info.FramesFetched
	c.doneDecodeErr += info.DecodeErrors
}

// Status folds finished-session totals with the live sessions' counters.
func (c *Component) Status() Status {
	st := Status{
		Address:     c.deps.Config.Listener.Address,
		MaxSessions: c.deps.Config.Listener.MaxSessions,
		Accepted:    c.accepted.Load(),
		Rejected:    c.rejected.Load(),
	}

	c.totalsMu.Lock()
	st.StatesReceived = c.doneStates
	st.CommandsSent = c.doneCommands
	st.FramesFetched = c.doneFrames
	st.DecodeErrors = c.doneDecodeErr
	c.totalsMu.Unlock()

	live := c.deps.Sessions.List()
	st.ActiveSessions = len(live)
	for _, info := range live {
		st.StatesReceived += info.StatesReceived
		st.CommandsSent += info.CommandsSent
		st.FramesFetched += info.FramesFetched
		st.DecodeErrors += info.DecodeErrors
	}

	return st
}
