package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/fpsnet/internal/level"
	"github.com/vovakirdan/fpsnet/internal/predict"
	"github.com/vovakirdan/fpsnet/internal/protocol"
	"github.com/vovakirdan/fpsnet/internal/sim"
	"github.com/vovakirdan/fpsnet/internal/transport"
)

// ErrInvalidConfig is returned by New for unusable settings.
var ErrInvalidConfig = errors.New("session: invalid configuration")

// Config is everything a run needs, resolved from files and flags.
type Config struct {
	Mode Mode

	// Seed selects the level. Zero picks a random seed. Ignored by clients,
	// which always use the seed sent by the server.
	Seed  uint64
	Level level.Params

	Server sim.Config     // Movement inside is the shared movement tuning
	Client predict.Config // Used by client and solo
	WS     transport.WSOptions

	Listen string // server: address to accept WebSocket clients on
	Remote string // client: WebSocket URL of the server

	// StopAfter ends the run after this many ticks. Zero runs until the
	// context is cancelled or the client disconnects.
	StopAfter uint64
}

// Deps are the collaborators outside the simulation core. Zero values are
// replaced by headless defaults.
type Deps struct {
	Input   InputSource
	Sink    FrameSink
	Events  EventSink
	History HistoryStore
	Logger  *log.Logger
}

// Controller owns one run.
type Controller struct {
	cfg    Config
	deps   Deps
	logger *log.Logger

	seed     uint64
	geo      *level.Geometry
	interval time.Duration

	ticks    uint64
	server   *sim.Server
	client   *predict.Client
	serveTr  transport.Transport
	clientTr transport.Transport
	ws       *transport.WSServer
	history  *History
	ended    string
}

// New validates cfg and prepares a run. For server and solo modes the level
// is generated here, before any component starts.
func New(cfg Config, deps Deps) (*Controller, error) {
	if cfg.Mode < ModeServer || cfg.Mode > ModeSolo {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, cfg.Mode)
	}
	if err := cfg.Server.Validate(); err != nil {
		return nil, fmt.Errorf("%w: server: %w", ErrInvalidConfig, err)
	}
	if cfg.Mode.RunsClient() {
		if err := cfg.Client.Validate(); err != nil {
			return nil, fmt.Errorf("%w: client: %w", ErrInvalidConfig, err)
		}
	}
	switch {
	case cfg.Mode == ModeServer && cfg.Listen == "":
		return nil, fmt.Errorf("%w: server mode needs a listen address", ErrInvalidConfig)
	case cfg.Mode == ModeClient && cfg.Remote == "":
		return nil, fmt.Errorf("%w: client mode needs a server URL", ErrInvalidConfig)
	}

	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if deps.Input == nil {
		deps.Input = IdleInput{}
	}
	if deps.Sink == nil {
		deps.Sink = DiscardSink{}
	}
	if deps.Events == nil {
		deps.Events = DiscardEvents{}
	}
	c := &Controller{
		cfg:      cfg,
		deps:     deps,
		logger:   deps.Logger,
		interval: time.Second / time.Duration(cfg.Server.Movement.TickRate),
	}

	if cfg.Mode.RunsServer() {
		seed := cfg.Seed
		if seed == 0 {
			var err error
			if seed, err = level.RandomSeed(); err != nil {
				return nil, fmt.Errorf("session: pick seed: %w", err)
			}
		}
		if err := level.ValidateSeed(seed); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		geo, err := level.Generate(seed, cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		c.seed, c.geo = seed, geo
	}
	if deps.History != nil {
		c.history = NewHistory(deps.History, c.logger)
	}
	return c, nil
}

// Mode returns the session mode.
func (c *Controller) Mode() Mode { return c.cfg.Mode }

// Seed returns the level seed, zero for a client before it joined.
func (c *Controller) Seed() uint64 {
	if c.geo == nil && c.client != nil && c.client.Geometry() != nil {
		return c.client.Geometry().Seed()
	}
	return c.seed
}

// Geometry returns the session level once it exists.
func (c *Controller) Geometry() *level.Geometry {
	if c.geo != nil {
		return c.geo
	}
	if c.client != nil {
		return c.client.Geometry()
	}
	return nil
}

// Server returns the authoritative simulation, nil in client mode.
func (c *Controller) Server() *sim.Server { return c.server }

// Client returns the local client, nil in server mode.
func (c *Controller) Client() *predict.Client { return c.client }

// TickInterval returns the wall-clock time between ticks. A client adopts the
// server's tick rate once it is in session.
func (c *Controller) TickInterval() time.Duration { return c.interval }

// Ticks returns the number of completed ticks.
func (c *Controller) Ticks() uint64 { return c.ticks }

// HistoryID returns the recorded session id, empty without history.
func (c *Controller) HistoryID() string {
	if c.history == nil {
		return ""
	}
	return c.history.ID()
}

// Addr returns the WebSocket listen address in server mode.
func (c *Controller) Addr() string {
	if c.ws == nil {
		return ""
	}
	return c.ws.Addr()
}

// URL returns the WebSocket URL clients dial in server mode.
func (c *Controller) URL() string {
	if c.ws == nil {
		return ""
	}
	return c.ws.URL()
}

// Start brings up the transports and the simulation roles.
func (c *Controller) Start(ctx context.Context) error {
	serverCfg := c.cfg.Server
	serverCfg.Logger = c.logger.WithPrefix("fpsnet-server")
	clientCfg := c.cfg.Client
	clientCfg.Logger = c.logger.WithPrefix("fpsnet-client")
	wsOpts := c.cfg.WS
	if wsOpts.Logger == nil {
		wsOpts.Logger = c.logger.WithPrefix("fpsnet-ws")
	}
	if c.history != nil {
		serverCfg.Recorder = c.history
	}

	switch c.cfg.Mode {
	case ModeServer:
		ws, err := transport.ListenWS(c.cfg.Listen, wsOpts)
		if err != nil {
			return err
		}
		c.ws, c.serveTr = ws, ws
		c.logger.Info("listening", "addr", ws.Addr(), "url", ws.URL())
	case ModeClient:
		cl, err := transport.DialWS(ctx, c.cfg.Remote, wsOpts)
		if err != nil {
			return err
		}
		c.clientTr = cl
	case ModeSolo:
		c.serveTr, c.clientTr = transport.NewLoopback(transport.Conditioner{})
	}

	if c.serveTr != nil {
		srv, err := sim.NewServer(serverCfg, c.geo, c.serveTr)
		if err != nil {
			c.closeTransports()
			return err
		}
		c.server = srv
		if c.history != nil {
			c.history.Begin(c.cfg.Mode, c.seed, protocol.FormatChecksum(c.geo.Checksum()))
		}
		c.logger.Info("level generated", "seed", c.seed, "checksum", protocol.FormatChecksum(c.geo.Checksum()),
			"rooms", len(c.geo.Rooms()), "walls", c.geo.Count(level.Wall))
	}
	if c.clientTr != nil {
		cl, err := predict.New(clientCfg, c.clientTr)
		if err != nil {
			c.closeTransports()
			return err
		}
		c.client = cl
		cl.Start()
	}
	return nil
}

// Step runs one tick: the server first, then the client. done reports
// whether the run is over.
func (c *Controller) Step() (done bool, err error) {
	c.ticks++
	if c.server != nil {
		c.server.Tick()
		for _, e := range c.server.Events() {
			c.deps.Events.ServerEvent(e)
		}
	}
	if c.client != nil {
		intent := c.deps.Input.Next(c.ticks, c.client.Frame())
		err = c.client.Tick(intent)
		c.deps.Sink.Present(c.client.Frame())
		if c.cfg.Mode == ModeClient && c.client.Status() == predict.InSession {
			c.adoptTickRate(c.client.TickRate())
			if c.history != nil {
				geo := c.client.Geometry()
				c.history.Begin(ModeClient, geo.Seed(), protocol.FormatChecksum(geo.Checksum()))
			}
		}
		for _, e := range c.client.Events() {
			c.deps.Events.ClientEvent(e)
			if c.history != nil && c.cfg.Mode == ModeClient {
				c.history.RecordClient(e)
			}
		}
		if c.client.Status() == predict.Disconnected {
			c.ended = c.client.Reason()
			return true, err
		}
	}
	if c.cfg.StopAfter > 0 && c.ticks >= c.cfg.StopAfter {
		c.ended = "stop after"
		return true, nil
	}
	return false, nil
}

func (c *Controller) adoptTickRate(rate int) {
	if rate < 1 {
		return
	}
	interval := time.Second / time.Duration(rate)
	if interval == c.interval {
		return
	}
	c.logger.Info("tick rate set by server", "rate", rate, "local", c.cfg.Server.Movement.TickRate)
	c.interval = interval
}

// Run starts the session and steps it at the movement tick rate until the
// context ends, the client disconnects or StopAfter ticks have passed.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}

	interval := c.interval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var runErr error
	for done := false; !done; {
		select {
		case <-ticker.C:
			done, runErr = c.Step()
			if c.interval != interval {
				interval = c.interval
				ticker.Reset(interval)
			}
		case <-ctx.Done():
			c.ended = protocol.ReasonServerShutdown
			if c.cfg.Mode == ModeClient {
				c.ended = protocol.ReasonQuit
			}
			done = true
		}
	}
	if err := c.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Close ends the session: clients are told, transports shut down, and the
// history entry is closed.
func (c *Controller) Close() error {
	if c.ended == "" {
		c.ended = protocol.ReasonQuit
	}
	if c.server != nil {
		c.server.Shutdown()
	}
	if c.client != nil && c.client.Status() != predict.Disconnected {
		// Picks up the server's goodbye on a loopback link.
		c.client.Receive()
	}
	err := c.closeTransports()
	if c.history != nil {
		c.history.End(c.ticks, c.ended)
	}
	c.logger.Info("session ended", "mode", c.cfg.Mode, "ticks", c.ticks, "reason", c.ended)
	return err
}

func (c *Controller) closeTransports() error {
	var errs []error
	if c.clientTr != nil {
		if c.client != nil {
			errs = append(errs, c.client.Close())
		} else {
			errs = append(errs, c.clientTr.Close())
		}
		c.clientTr = nil
	}
	if c.serveTr != nil {
		errs = append(errs, c.serveTr.Close())
		c.serveTr = nil
	}
	return errors.Join(errs...)
}
