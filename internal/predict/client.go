// Package predict is the client half of a session. It predicts the local
// player with the shared movement function, reconciles against authoritative
// snapshots and interpolates every other entity for display.
package predict

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/vovakirdan/fpsnet/internal/fixed"
	"github.com/vovakirdan/fpsnet/internal/level"
	"github.com/vovakirdan/fpsnet/internal/movement"
	"github.com/vovakirdan/fpsnet/internal/protocol"
	"github.com/vovakirdan/fpsnet/internal/transport"
)

var (
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("predict: invalid configuration")
	// ErrGenerationMismatch means the locally generated level differs from the
	// server's. The session cannot continue.
	ErrGenerationMismatch = errors.New("predict: generated level does not match the server")
	// ErrSessionFull means the server refused the connection for capacity.
	ErrSessionFull = errors.New("predict: session full")
	// ErrRejected means the server refused the connection for another reason.
	ErrRejected = errors.New("predict: connection rejected")
)

// Status is the connection state of a client.
type Status uint8

const (
	Connecting Status = iota
	Loading
	InSession
	Disconnected
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Loading:
		return "loading"
	case InSession:
		return "in session"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Config holds the client tuning.
type Config struct {
	Name     string
	ClientID string // generated when empty

	MaxPendingInputs int     // Unacknowledged commands kept before a forced resync
	InputRedundancy  int     // Newest commands repeated in every input message
	SmoothingFactor  float32 // Share of the visual correction removed per tick
	SnapDistance     float32 // Corrections larger than this are applied at once
	StaleTicks       int     // Ticks without a snapshot before the view is degraded
	TimeoutTicks     int     // Ticks without any server traffic before giving up
	RemoteSamples    int     // Snapshot samples kept per remote entity

	Logger *log.Logger
}

// DefaultConfig returns the client defaults for a 60 Hz session.
func DefaultConfig() Config {
	return Config{
		Name:             "player",
		MaxPendingInputs: 128,
		InputRedundancy:  4,
		SmoothingFactor:  0.2,
		SnapDistance:     2,
		StaleTicks:       30,
		TimeoutTicks:     300,
		RemoteSamples:    32,
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	switch {
	case c.MaxPendingInputs < 1:
		return fmt.Errorf("%w: max pending inputs must be at least 1", ErrInvalidConfig)
	case c.InputRedundancy < 1 || c.InputRedundancy > c.MaxPendingInputs:
		return fmt.Errorf("%w: input redundancy %d not in 1..%d", ErrInvalidConfig, c.InputRedundancy, c.MaxPendingInputs)
	case c.SmoothingFactor <= 0 || c.SmoothingFactor > 1:
		return fmt.Errorf("%w: smoothing factor %v not in (0, 1]", ErrInvalidConfig, c.SmoothingFactor)
	case c.SnapDistance < 0:
		return fmt.Errorf("%w: snap distance must not be negative", ErrInvalidConfig)
	case c.StaleTicks < 1 || c.TimeoutTicks < c.StaleTicks:
		return fmt.Errorf("%w: need 1 <= stale ticks <= timeout ticks", ErrInvalidConfig)
	case c.RemoteSamples < 2:
		return fmt.Errorf("%w: at least 2 remote samples are needed to interpolate", ErrInvalidConfig)
	}
	return nil
}

// Intent is what the input collaborator wants the player to do this tick.
type Intent struct {
	Forward fixed.Fixed
	Strafe  fixed.Fixed
	Yaw     fixed.Angle
	Pitch   fixed.Angle
	Actions movement.ActionFlags
}

// Stats are running counters for diagnostics.
type Stats struct {
	Commands       uint64 // Commands produced
	Snapshots      uint64 // Snapshots used
	StaleSnapshots uint64 // Snapshots ignored for being older than the newest
	Corrections    uint64 // Reconciliations that moved the predicted state
	Snaps          uint64 // Corrections applied without smoothing
	Resyncs        uint64
	Overflows      uint64 // Commands dropped from a full input buffer
	LastAck        uint32 // Newest own sequence confirmed by the server
}

// Client is one participant's view of a session. It is single-writer: Start,
// Tick and Receive must be called from the tick goroutine.
type Client struct {
	cfg    Config
	tr     transport.Transport
	logger *log.Logger

	status   Status
	degraded bool
	reason   string
	err      error

	accept     protocol.Accept
	acceptAt   uint64 // local tick the accept arrived
	geo        *level.Geometry
	params     movement.Params
	localTick  uint64
	lastHeard  uint64
	seq        uint32 // highest sequence produced
	pending    []movement.Command
	state      movement.State
	correction mgl32.Vec3

	haveSnap      bool
	lastSnap      uint64
	lastSnapLocal uint64
	resyncPending bool

	remotes *orderedmap.OrderedMap[protocol.EntityID, *remote]
	events  []Event
	stats   Stats
}

// New creates a client speaking over tr. Nothing is sent before Start.
func New(cfg Config, tr transport.Transport) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{
		cfg:     cfg,
		tr:      tr,
		logger:  logger,
		remotes: orderedmap.NewOrderedMap[protocol.EntityID, *remote](),
	}, nil
}

// Start sends the handshake request.
func (c *Client) Start() {
	c.tr.Send(transport.ServerConn, protocol.Connect{
		ClientID: c.cfg.ClientID,
		Name:     c.cfg.Name,
		Version:  protocol.Version,
	})
}

// Status returns the connection state.
func (c *Client) Status() Status { return c.status }

// Degraded reports whether snapshots have stopped arriving recently.
func (c *Client) Degraded() bool { return c.degraded }

// Reason returns why the client disconnected.
func (c *Client) Reason() string { return c.reason }

// Err returns the fatal error that ended the session, if any.
func (c *Client) Err() error { return c.err }

// Entity returns the locally controlled entity id, zero before accept.
func (c *Client) Entity() protocol.EntityID { return c.accept.Entity }

// Geometry returns the generated level, nil until the client is in session.
func (c *Client) Geometry() *level.Geometry { return c.geo }

// State returns the predicted state of the local player.
func (c *Client) State() movement.State { return c.state }

// Stats returns the diagnostic counters.
func (c *Client) Stats() Stats { return c.stats }

// TickRate returns the server's tick rate once accepted, zero before. The
// client must tick at this rate for its commands to match the server's steps.
func (c *Client) TickRate() int { return c.accept.Movement.TickRate }

// Tick advances the client by one fixed step: drain the network, check
// liveness, then turn in into a command that is predicted locally and sent.
// It returns an error only when the session ended for a reason that retrying
// cannot fix.
func (c *Client) Tick(in Intent) error {
	if c.status == Disconnected {
		return c.err
	}
	c.localTick++
	c.Receive()
	if c.status == Disconnected {
		return c.err
	}
	c.checkLiveness()

	switch c.status {
	case Loading:
		if err := c.enterSession(); err != nil {
			return err
		}
		c.produce(in)
	case InSession:
		c.produce(in)
	}
	c.decayCorrection()
	return c.err
}

// Receive drains every message delivered since the previous call.
func (c *Client) Receive() {
	for env := range c.tr.Poll() {
		if c.status == Disconnected {
			continue
		}
		switch env.Kind {
		case transport.KindConnected:
			c.lastHeard = c.localTick
		case transport.KindDisconnected:
			reason := env.Reason
			if reason == "" {
				reason = protocol.ReasonTransportClosed
			}
			c.disconnect(reason, nil, false)
		case transport.KindMessage:
			c.lastHeard = c.localTick
			c.handle(env.Message)
		}
	}
}

func (c *Client) handle(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.Accept:
		if c.status != Connecting {
			return
		}
		c.accept = m
		c.acceptAt = c.localTick
		c.state = m.Spawn
		c.status = Loading
		c.logger.Info("accepted", "entity", m.Entity, "seed", m.Seed, "tick", m.Tick)
	case protocol.Reject:
		err := ErrRejected
		if m.Reason == protocol.ReasonServerFull {
			err = ErrSessionFull
		}
		c.disconnect(m.Reason, fmt.Errorf("%w: %s", err, m.Reason), false)
	case protocol.Snapshot:
		if c.status == InSession {
			c.reconcile(m)
		}
	case protocol.Joined:
		if m.Entity != c.accept.Entity {
			c.addRemote(m.Entity, m.Name, m.Color)
		}
	case protocol.Left:
		c.removeRemote(m.Entity, m.Reason)
	case protocol.Disconnect:
		c.disconnect(m.Reason, nil, false)
	}
}

// enterSession builds the level from the accepted seed and confirms it.
func (c *Client) enterSession() error {
	a := c.accept
	if err := a.Movement.Validate(); err != nil {
		return c.fail(fmt.Errorf("predict: server movement parameters: %w", err))
	}
	geo, err := level.Generate(a.Seed, a.Level)
	if err != nil {
		return c.fail(fmt.Errorf("predict: generate level: %w", err))
	}
	sum := protocol.FormatChecksum(geo.Checksum())
	if sum != a.Checksum {
		c.logger.Error("level checksum mismatch", "seed", a.Seed, "want", a.Checksum, "got", sum)
		return c.fail(fmt.Errorf("%w: seed %d gave %s, server has %s", ErrGenerationMismatch, a.Seed, sum, a.Checksum))
	}
	c.geo = geo
	c.params = a.Movement
	c.status = InSession
	c.lastHeard = c.localTick
	c.tr.Send(transport.ServerConn, protocol.Ready{Checksum: sum})
	c.logger.Info("level ready", "checksum", sum, "shapes", len(geo.Shapes()))
	return nil
}

// fail ends the session with a fatal error and tells the server why.
func (c *Client) fail(err error) error {
	reason := protocol.ReasonProtocolViolation
	if errors.Is(err, ErrGenerationMismatch) {
		reason = protocol.ReasonGenerationMismatch
	}
	c.disconnect(reason, err, true)
	return err
}

func (c *Client) disconnect(reason string, err error, notify bool) {
	if c.status == Disconnected {
		return
	}
	if notify {
		c.tr.Send(transport.ServerConn, protocol.Disconnect{Reason: reason})
	}
	c.status = Disconnected
	c.reason = reason
	c.err = err
	c.logger.Warn("disconnected", "reason", reason)
}

// Close leaves the session and closes the transport.
func (c *Client) Close() error {
	c.disconnect(protocol.ReasonQuit, nil, true)
	return c.tr.Close()
}

func (c *Client) checkLiveness() {
	if c.localTick-c.lastHeard > uint64(c.cfg.TimeoutTicks) {
		c.disconnect(protocol.ReasonTimeout, nil, true)
		return
	}
	if c.status == InSession {
		since := c.localTick - c.acceptAt
		if c.haveSnap {
			since = c.localTick - c.lastSnapLocal
		}
		stale := since > uint64(c.cfg.StaleTicks)
		if stale && !c.degraded {
			c.logger.Warn("snapshots stalled, view degraded", "ticks", since)
		}
		c.degraded = stale
	}
}

// ServerTick estimates the server's current tick from the newest snapshot.
func (c *Client) ServerTick() uint64 {
	if c.haveSnap {
		return c.lastSnap + (c.localTick - c.lastSnapLocal)
	}
	return c.accept.Tick + (c.localTick - c.acceptAt)
}

// produce turns the intent into the next command, predicts it and sends the
// newest unacknowledged commands.
func (c *Client) produce(in Intent) {
	c.seq++
	cmd := movement.Command{
		Sequence: c.seq,
		Tick:     c.ServerTick(),
		Forward:  fixed.Clamp(in.Forward, -fixed.One, fixed.One),
		Strafe:   fixed.Clamp(in.Strafe, -fixed.One, fixed.One),
		Yaw:      in.Yaw,
		Pitch:    in.Pitch,
		Actions:  in.Actions,
	}
	if len(c.pending) >= c.cfg.MaxPendingInputs {
		c.pending = slices.Delete(c.pending, 0, len(c.pending)-c.cfg.MaxPendingInputs+1)
		c.stats.Overflows++
		if !c.resyncPending {
			c.logger.Warn("input buffer full, resync requested", "pending", len(c.pending))
		}
		c.resyncPending = true
	}
	c.pending = append(c.pending, cmd)
	c.state = movement.Step(c.state, cmd, c.params, c.geo)
	c.stats.Commands++

	from := max(0, len(c.pending)-c.cfg.InputRedundancy)
	c.tr.Send(transport.ServerConn, protocol.Input{
		Ack:      c.lastSnap,
		Commands: slices.Clone(c.pending[from:]),
	})
}
