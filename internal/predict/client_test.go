package predict

import (
	"errors"
	"iter"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/vovakirdan/fpsnet/internal/fixed"
	"github.com/vovakirdan/fpsnet/internal/level"
	"github.com/vovakirdan/fpsnet/internal/movement"
	"github.com/vovakirdan/fpsnet/internal/protocol"
	"github.com/vovakirdan/fpsnet/internal/transport"
)

// fakeTransport hands the client exactly the messages a test delivers.
type fakeTransport struct {
	in     []transport.Envelope
	sent   []protocol.Message
	closed bool
}

func (f *fakeTransport) Send(_ protocol.ConnID, m protocol.Message) {
	f.sent = append(f.sent, m)
}

func (f *fakeTransport) Poll() iter.Seq[transport.Envelope] {
	return func(yield func(transport.Envelope) bool) {
		items := f.in
		f.in = nil
		for i, e := range items {
			if !yield(e) {
				f.in = append(items[i+1:], f.in...)
				return
			}
		}
	}
}

func (f *fakeTransport) Drop(protocol.ConnID, string) {}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func (f *fakeTransport) deliver(msgs ...protocol.Message) {
	for _, m := range msgs {
		f.in = append(f.in, transport.Envelope{Conn: transport.ServerConn, Kind: transport.KindMessage, Message: m})
	}
}

func (f *fakeTransport) last() protocol.Message {
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func testAccept(t *testing.T) (protocol.Accept, *level.Geometry) {
	t.Helper()
	geo, err := level.Generate(42, level.DefaultParams())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return protocol.Accept{
		Entity:           1,
		Seed:             42,
		Tick:             5,
		SnapshotInterval: 2,
		Level:            level.DefaultParams(),
		Movement:         movement.DefaultParams(),
		Checksum:         protocol.FormatChecksum(geo.Checksum()),
		Spawn:            movement.Spawn(geo.SpawnPoint(1)),
	}, geo
}

// inSession returns a client that completed the handshake and produced its
// first command.
func inSession(t *testing.T, cfg Config) (*Client, *fakeTransport, protocol.Accept, *level.Geometry) {
	t.Helper()
	ft := &fakeTransport{}
	c, err := New(cfg, ft)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.Start()
	accept, geo := testAccept(t)
	ft.deliver(accept)
	if err := c.Tick(Intent{}); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if c.Status() != InSession {
		t.Fatalf("Status() = %v, expected in session", c.Status())
	}
	return c, ft, accept, geo
}

func own(accept protocol.Accept, lastInput uint32, s movement.State) protocol.EntityState {
	return protocol.EntityState{ID: accept.Entity, Owner: 1, LastInput: lastInput, State: s, Predicted: s}
}

var forward = Intent{Forward: fixed.One}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no buffer", func(c *Config) { c.MaxPendingInputs = 0 }},
		{"redundancy above buffer", func(c *Config) { c.InputRedundancy = c.MaxPendingInputs + 1 }},
		{"smoothing zero", func(c *Config) { c.SmoothingFactor = 0 }},
		{"timeout below stale", func(c *Config) { c.TimeoutTicks = c.StaleTicks - 1 }},
		{"one sample", func(c *Config) { c.RemoteSamples = 1 }},
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, expected ErrInvalidConfig", err)
			}
		})
	}
}

func TestHandshake(t *testing.T) {
	ft := &fakeTransport{}
	c, err := New(DefaultConfig(), ft)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.Start()
	conn, ok := ft.last().(protocol.Connect)
	if !ok || conn.Version != protocol.Version {
		t.Fatalf("first message = %+v, expected connect", ft.last())
	}
	if _, err := uuid.Parse(conn.ClientID); err != nil {
		t.Errorf("generated client id %q is not a uuid: %v", conn.ClientID, err)
	}

	if err := c.Tick(forward); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if c.Status() != Connecting || len(ft.sent) != 1 {
		t.Fatalf("client must not send input before accept, sent %d", len(ft.sent))
	}

	accept, geo := testAccept(t)
	ft.deliver(accept)
	if err := c.Tick(forward); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if c.Status() != InSession {
		t.Fatalf("Status() = %v, expected in session", c.Status())
	}
	if c.Geometry() == nil || c.Geometry().Checksum() != geo.Checksum() {
		t.Error("client geometry differs from the server's")
	}
	ready, ok := ft.sent[1].(protocol.Ready)
	if !ok || ready.Checksum != accept.Checksum {
		t.Errorf("second message = %+v, expected ready", ft.sent[1])
	}
	in, ok := ft.sent[2].(protocol.Input)
	if !ok || len(in.Commands) != 1 || in.Commands[0].Sequence != 1 {
		t.Errorf("third message = %+v, expected input seq 1", ft.sent[2])
	}
}

func TestGenerationMismatch(t *testing.T) {
	ft := &fakeTransport{}
	c, _ := New(DefaultConfig(), ft)
	c.Start()
	accept, _ := testAccept(t)
	accept.Checksum = "0000000000000001"
	ft.deliver(accept)

	err := c.Tick(forward)
	if !errors.Is(err, ErrGenerationMismatch) {
		t.Fatalf("Tick() error = %v, expected ErrGenerationMismatch", err)
	}
	if c.Status() != Disconnected {
		t.Errorf("Status() = %v, expected disconnected", c.Status())
	}
	if d, ok := ft.last().(protocol.Disconnect); !ok || d.Reason != protocol.ReasonGenerationMismatch {
		t.Errorf("last message = %+v, expected disconnect", ft.last())
	}
	if !errors.Is(c.Tick(forward), ErrGenerationMismatch) {
		t.Error("later ticks should keep reporting the fatal error")
	}
}

func TestReject(t *testing.T) {
	ft := &fakeTransport{}
	c, _ := New(DefaultConfig(), ft)
	c.Start()
	ft.deliver(protocol.Reject{Reason: protocol.ReasonServerFull})

	if err := c.Tick(forward); !errors.Is(err, ErrSessionFull) {
		t.Fatalf("Tick() error = %v, expected ErrSessionFull", err)
	}
	if c.Reason() != protocol.ReasonServerFull {
		t.Errorf("Reason() = %q", c.Reason())
	}
}

func TestInputRedundancy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputRedundancy = 3
	c, ft, _, _ := inSession(t, cfg)
	for i := 0; i < 5; i++ {
		c.Tick(forward)
	}
	in, ok := ft.last().(protocol.Input)
	if !ok {
		t.Fatalf("last message = %+v, expected input", ft.last())
	}
	var seqs []uint32
	for _, cmd := range in.Commands {
		seqs = append(seqs, cmd.Sequence)
	}
	if len(seqs) != 3 || seqs[0] != 4 || seqs[2] != 6 {
		t.Errorf("sent sequences %v, expected [4 5 6]", seqs)
	}
}

func TestReconcile(t *testing.T) {
	c, ft, accept, geo := inSession(t, DefaultConfig())
	p := movement.DefaultParams()

	var cmds []movement.Command
	for _, m := range ft.sent {
		if in, ok := m.(protocol.Input); ok {
			cmds = append(cmds, in.Commands...)
		}
	}
	for i := 0; i < 4; i++ {
		c.Tick(forward)
		sent := ft.last().(protocol.Input).Commands
		cmds = append(cmds, sent[len(sent)-1])
	}
	predicted := c.State()

	// An exact authoritative state leaves the prediction alone.
	confirmed := movement.Replay(accept.Spawn, cmds[:2], p, geo)
	ft.deliver(protocol.Snapshot{Tick: 10, Entities: []protocol.EntityState{own(accept, 2, confirmed)}})
	c.Receive()
	if c.State() != predicted {
		t.Errorf("State() = %+v, expected unchanged %+v", c.State(), predicted)
	}
	st := c.Stats()
	if st.Corrections != 0 || st.LastAck != 2 || c.Frame().Pending != 3 {
		t.Errorf("stats = %+v pending = %d", st, c.Frame().Pending)
	}

	// A small disagreement is replayed and smoothed.
	shifted := movement.Replay(accept.Spawn, cmds[:3], p, geo)
	shifted.Position.X += fixed.One
	ft.deliver(protocol.Snapshot{Tick: 12, Entities: []protocol.EntityState{own(accept, 3, shifted)}})
	c.Receive()
	want := movement.Replay(shifted, cmds[3:], p, geo)
	if c.State() != want {
		t.Errorf("State() = %+v, expected replay from the snapshot %+v", c.State(), want)
	}
	f := c.Frame()
	if f.Stats.Corrections != 1 || f.Correction.Len() < 0.9 || f.Correction.Len() > 1.1 {
		t.Errorf("correction = %v stats = %+v", f.Correction, f.Stats)
	}
	before := f.Correction.Len()
	c.Tick(Intent{})
	if after := c.Frame().Correction.Len(); after >= before {
		t.Errorf("correction did not decay: %v -> %v", before, after)
	}

	// A large one snaps.
	far := c.State()
	far.Position.X += fixed.FromInt(5)
	ft.deliver(protocol.Snapshot{Tick: 14, Entities: []protocol.EntityState{own(accept, c.seq, far)}})
	c.Receive()
	if f := c.Frame(); f.Stats.Snaps != 1 || f.Correction != (mgl32.Vec3{}) {
		t.Errorf("expected a snap, got correction %v stats %+v", f.Correction, f.Stats)
	}
}

func TestStaleSnapshotIgnored(t *testing.T) {
	c, ft, accept, _ := inSession(t, DefaultConfig())
	ft.deliver(protocol.Snapshot{Tick: 10, Entities: []protocol.EntityState{own(accept, 0, accept.Spawn)}})
	c.Receive()
	before := c.State()

	moved := accept.Spawn
	moved.Position.X += fixed.One
	ft.deliver(protocol.Snapshot{Tick: 9, Entities: []protocol.EntityState{own(accept, 1, moved)}})
	c.Receive()

	if c.State() != before {
		t.Error("older snapshot changed the prediction")
	}
	if st := c.Stats(); st.StaleSnapshots != 1 || st.Snapshots != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestOverflowForcesResync(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPendingInputs = 4
	cfg.InputRedundancy = 2
	c, ft, accept, _ := inSession(t, cfg)
	for i := 0; i < 6; i++ {
		c.Tick(forward)
	}
	if st := c.Stats(); st.Overflows != 3 {
		t.Errorf("Overflows = %d, expected 3", st.Overflows)
	}
	if n := c.Frame().Pending; n != 4 {
		t.Errorf("Pending = %d, expected 4", n)
	}

	server := accept.Spawn
	server.Position.Z += fixed.Half
	ft.deliver(protocol.Snapshot{Tick: 20, Entities: []protocol.EntityState{own(accept, 3, server)}})
	c.Receive()

	if c.Stats().Resyncs != 1 {
		t.Errorf("Resyncs = %d, expected 1", c.Stats().Resyncs)
	}
	if c.State() != server || c.Frame().Pending != 0 {
		t.Errorf("resync should adopt the server state and clear the buffer")
	}
	c.Tick(forward)
	if in := ft.last().(protocol.Input); in.Commands[len(in.Commands)-1].Sequence != 8 {
		t.Errorf("sequence restarted: %+v", in.Commands)
	}
}

func TestDesyncForcesResync(t *testing.T) {
	c, ft, accept, _ := inSession(t, DefaultConfig())
	ft.deliver(protocol.Snapshot{Tick: 10, Entities: []protocol.EntityState{own(accept, 100, accept.Spawn)}})
	c.Receive()
	if c.Stats().Resyncs != 1 {
		t.Fatalf("Resyncs = %d, expected 1", c.Stats().Resyncs)
	}
	c.Tick(forward)
	if in := ft.last().(protocol.Input); in.Commands[len(in.Commands)-1].Sequence != 101 {
		t.Errorf("next sequence = %+v, expected 101", in.Commands)
	}
}

func TestInvalidSnapshotDefersResync(t *testing.T) {
	tests := []struct {
		name     string
		entities func(protocol.Accept, *level.Geometry) []protocol.EntityState
	}{
		{
			name: "own entity missing",
			entities: func(a protocol.Accept, _ *level.Geometry) []protocol.EntityState {
				return []protocol.EntityState{{ID: 7, State: a.Spawn, Predicted: a.Spawn}}
			},
		},
		{
			name: "outside bounds",
			entities: func(a protocol.Accept, geo *level.Geometry) []protocol.EntityState {
				s := a.Spawn
				s.Position.X = geo.Bounds().Max.X + fixed.One
				return []protocol.EntityState{own(a, 0, s)}
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, ft, accept, geo := inSession(t, DefaultConfig())
			before := c.State()
			ft.deliver(protocol.Snapshot{Tick: 10, Entities: tc.entities(accept, geo)})
			c.Receive()
			if c.State() != before || c.Stats().Resyncs != 0 {
				t.Fatal("invalid snapshot must not be applied")
			}
			ft.deliver(protocol.Snapshot{Tick: 12, Entities: []protocol.EntityState{own(accept, 1, accept.Spawn)}})
			c.Receive()
			if c.Stats().Resyncs != 1 || c.State() != accept.Spawn {
				t.Errorf("next valid snapshot should resync, stats %+v", c.Stats())
			}
		})
	}
}

func TestDegradedAndTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StaleTicks = 5
	cfg.TimeoutTicks = 20
	c, ft, accept, _ := inSession(t, cfg)
	ft.deliver(protocol.Snapshot{Tick: 10, Entities: []protocol.EntityState{own(accept, 0, accept.Spawn)}})
	c.Tick(Intent{})

	for i := 0; i < 5; i++ {
		c.Tick(Intent{})
	}
	if c.Degraded() {
		t.Fatal("degraded too early")
	}
	c.Tick(Intent{})
	if !c.Degraded() || !c.Frame().Degraded {
		t.Fatal("expected degraded after stale ticks")
	}

	ft.deliver(protocol.Snapshot{Tick: 30, Entities: []protocol.EntityState{own(accept, 0, accept.Spawn)}})
	c.Tick(Intent{})
	if c.Degraded() {
		t.Error("fresh snapshot should clear degraded")
	}

	for i := 0; i < 21; i++ {
		if err := c.Tick(Intent{}); err != nil {
			t.Fatalf("timeout surfaced as error: %v", err)
		}
	}
	if c.Status() != Disconnected || c.Reason() != protocol.ReasonTimeout {
		t.Errorf("Status() = %v reason %q, expected timeout", c.Status(), c.Reason())
	}
	if d, ok := ft.last().(protocol.Disconnect); !ok || d.Reason != protocol.ReasonTimeout {
		t.Errorf("last message = %+v, expected disconnect", ft.last())
	}
}

func TestTransportDisconnect(t *testing.T) {
	c, ft, _, _ := inSession(t, DefaultConfig())
	ft.in = append(ft.in, transport.Envelope{Kind: transport.KindDisconnected, Reason: protocol.ReasonServerShutdown})
	if err := c.Tick(forward); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if c.Status() != Disconnected || c.Reason() != protocol.ReasonServerShutdown {
		t.Errorf("Status() = %v reason %q", c.Status(), c.Reason())
	}
}

func TestRemoteInterpolation(t *testing.T) {
	c, ft, accept, geo := inSession(t, DefaultConfig())
	base := geo.SpawnPoint(2)
	at := func(dx int, yaw fixed.Angle) movement.State {
		s := movement.Spawn(base.Add(fixed.Vi(dx, 0, 0)))
		s.Yaw = yaw
		return s
	}
	other := func(s movement.State) protocol.EntityState {
		return protocol.EntityState{ID: 2, Owner: 2, State: s, Predicted: s}
	}
	ft.deliver(
		protocol.Joined{Entity: 2, Name: "bob", Color: "#ff0000"},
		protocol.Snapshot{Tick: 10, Entities: []protocol.EntityState{own(accept, 0, accept.Spawn), other(at(0, 0))}},
		protocol.Snapshot{Tick: 12, Entities: []protocol.EntityState{own(accept, 0, accept.Spawn), other(at(2, fixed.QuarterTurn))}},
	)
	c.Tick(Intent{})

	x0 := base.X.Float32()
	tests := []struct {
		renderTick uint64
		x          float32
		yaw        float32
		frozen     bool
	}{
		{10, x0, 0, false},
		{11, x0 + 1, 45, false},
		{12, x0 + 2, 90, false},
		{13, x0 + 2, 90, true},
	}
	for i, tc := range tests {
		if i > 0 {
			c.Tick(Intent{})
		}
		f := c.Frame()
		if f.RenderTick != tc.renderTick {
			t.Fatalf("RenderTick = %d, expected %d", f.RenderTick, tc.renderTick)
		}
		if len(f.Remotes) != 1 {
			t.Fatalf("Remotes = %+v, expected one", f.Remotes)
		}
		r := f.Remotes[0]
		if r.Name != "bob" || r.Color != "#ff0000" {
			t.Errorf("identity = %q %q", r.Name, r.Color)
		}
		if math32.Abs(r.Position.X()-tc.x) > 1e-3 {
			t.Errorf("tick %d: x = %v, expected %v", tc.renderTick, r.Position.X(), tc.x)
		}
		if math32.Abs(r.Yaw-tc.yaw) > 1e-3 {
			t.Errorf("tick %d: yaw = %v, expected %v", tc.renderTick, r.Yaw, tc.yaw)
		}
		if r.Frozen != tc.frozen {
			t.Errorf("tick %d: frozen = %v, expected %v", tc.renderTick, r.Frozen, tc.frozen)
		}
	}

	ft.deliver(protocol.Left{Entity: 2, Reason: protocol.ReasonQuit})
	c.Tick(Intent{})
	if n := len(c.Frame().Remotes); n != 0 {
		t.Errorf("Remotes after left = %d, expected 0", n)
	}
}

func TestRemoteFollowsPredictedState(t *testing.T) {
	c, ft, accept, geo := inSession(t, DefaultConfig())
	confirmed := movement.Spawn(geo.SpawnPoint(2))
	guessed := confirmed
	guessed.Position = confirmed.Position.Add(fixed.Vi(1, 0, 0))
	ft.deliver(
		protocol.Joined{Entity: 2, Name: "bob"},
		protocol.Snapshot{Tick: 10, Entities: []protocol.EntityState{
			own(accept, 0, accept.Spawn),
			{ID: 2, Owner: 2, State: confirmed, Predicted: guessed},
		}},
	)
	c.Tick(Intent{})

	f := c.Frame()
	if len(f.Remotes) != 1 {
		t.Fatalf("Remotes = %+v, expected one", f.Remotes)
	}
	if want := guessed.Position.X.Float32(); math32.Abs(f.Remotes[0].Position.X()-want) > 1e-3 {
		t.Errorf("remote x = %v, expected the dead-reckoned %v", f.Remotes[0].Position.X(), want)
	}
}

func TestUnknownEntityForcesResync(t *testing.T) {
	c, ft, accept, geo := inSession(t, DefaultConfig())
	stranger := movement.Spawn(geo.SpawnPoint(3))
	snap := func(tick uint64) protocol.Snapshot {
		return protocol.Snapshot{Tick: tick, Entities: []protocol.EntityState{
			own(accept, 1, accept.Spawn),
			{ID: 99, Owner: 9, State: stranger, Predicted: stranger},
		}}
	}

	ft.deliver(snap(10))
	c.Receive()
	if c.Stats().Resyncs != 1 {
		t.Fatalf("Resyncs = %d, expected 1 for an unannounced entity", c.Stats().Resyncs)
	}
	if n := len(c.Frame().Remotes); n != 1 {
		t.Fatalf("Remotes = %d, expected the stranger to be adopted by the resync", n)
	}

	ft.deliver(snap(12))
	c.Receive()
	if c.Stats().Resyncs != 1 {
		t.Errorf("Resyncs = %d, an adopted entity must not resync again", c.Stats().Resyncs)
	}
	events := c.Events()
	if len(events) != 1 {
		t.Fatalf("Events() = %+v, expected one join", events)
	}
	if j, ok := events[0].(RemoteJoined); !ok || j.Entity != 99 {
		t.Errorf("event = %+v, expected RemoteJoined for 99", events[0])
	}
}

func TestRemoteEvents(t *testing.T) {
	c, ft, accept, geo := inSession(t, DefaultConfig())
	s := movement.Spawn(geo.SpawnPoint(2))
	ft.deliver(
		protocol.Joined{Entity: accept.Entity, Name: "me"},
		protocol.Joined{Entity: 2, Name: "bob", Color: "#00ff00"},
		protocol.Joined{Entity: 3, Name: "carol"},
		protocol.Snapshot{Tick: 10, Entities: []protocol.EntityState{
			own(accept, 0, accept.Spawn),
			{ID: 2, Owner: 2, State: s, Predicted: s},
			{ID: 3, Owner: 3, State: s, Predicted: s},
		}},
		protocol.Left{Entity: 2, Reason: protocol.ReasonTimeout},
		protocol.Snapshot{Tick: 12, Entities: []protocol.EntityState{own(accept, 0, accept.Spawn)}},
		protocol.Left{Entity: 3, Reason: protocol.ReasonQuit},
	)
	c.Receive()

	events := c.Events()
	want := []Event{
		RemoteJoined{Entity: 2, Name: "bob", Color: "#00ff00"},
		RemoteJoined{Entity: 3, Name: "carol"},
		RemoteLeft{Entity: 2, Reason: protocol.ReasonTimeout},
		RemoteLeft{Entity: 3, Reason: "missing from snapshot"},
	}
	if len(events) != len(want) {
		t.Fatalf("Events() = %+v, expected %d events", events, len(want))
	}
	for i, e := range events {
		switch got := e.(type) {
		case RemoteJoined:
			got.Tick = 0
			e = got
		case RemoteLeft:
			got.Tick = 0
			e = got
		}
		if e != want[i] {
			t.Errorf("event %d = %+v, expected %+v", i, e, want[i])
		}
	}
	if rest := c.Events(); len(rest) != 0 {
		t.Errorf("Events() not cleared: %+v", rest)
	}
	if c.Stats().Resyncs != 0 {
		t.Errorf("Resyncs = %d, announced entities must not resync", c.Stats().Resyncs)
	}
}

func TestTickRateFollowsServer(t *testing.T) {
	ft := &fakeTransport{}
	c, err := New(DefaultConfig(), ft)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.TickRate() != 0 {
		t.Errorf("TickRate() = %d before accept, expected 0", c.TickRate())
	}
	c.Start()
	accept, _ := testAccept(t)
	accept.Movement.TickRate = 30
	ft.deliver(accept)
	if err := c.Tick(Intent{}); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if c.TickRate() != 30 {
		t.Errorf("TickRate() = %d, expected the server's 30", c.TickRate())
	}
}

func TestLerpAngleShortArc(t *testing.T) {
	if got := lerpAngle(170, -170, 0.5); math32.Abs(math32.Abs(got)-180) > 1e-3 {
		t.Errorf("lerpAngle(170, -170) = %v, expected the 180 seam", got)
	}
	if got := lerpAngle(-10, 10, 0.5); math32.Abs(got) > 1e-3 {
		t.Errorf("lerpAngle(-10, 10) = %v, expected 0", got)
	}
}

func TestTransformMatrix(t *testing.T) {
	tr := Transform{Position: mgl32.Vec3{1, 2, 3}, Rotation: mgl32.QuatIdent()}
	if col := tr.Matrix().Col(3); col != (mgl32.Vec4{1, 2, 3, 1}) {
		t.Errorf("translation column = %v", col)
	}
}

func TestCloseSendsQuit(t *testing.T) {
	c, ft, _, _ := inSession(t, DefaultConfig())
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if d, ok := ft.last().(protocol.Disconnect); !ok || d.Reason != protocol.ReasonQuit || !ft.closed {
		t.Errorf("last message = %+v closed = %v", ft.last(), ft.closed)
	}
}
