package predict

import (
	"testing"

	"github.com/vovakirdan/fpsnet/internal/fixed"
	"github.com/vovakirdan/fpsnet/internal/level"
	"github.com/vovakirdan/fpsnet/internal/protocol"
	"github.com/vovakirdan/fpsnet/internal/sim"
	"github.com/vovakirdan/fpsnet/internal/transport"
)

func newSession(t *testing.T, cond transport.Conditioner) (*sim.Server, *transport.Hub) {
	t.Helper()
	geo, err := level.Generate(42, level.DefaultParams())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	hub := transport.NewHub(cond)
	srv, err := sim.NewServer(sim.DefaultConfig(), geo, hub.Server())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv, hub
}

func wander(n uint64) Intent {
	return Intent{
		Forward: fixed.One,
		Strafe:  fixed.Half,
		Yaw:     fixed.Angle(n * 1500),
		Actions: 0,
	}
}

// dropSeq loses the input message whose newest command is seq.
func dropSeq(seq uint32) func(protocol.Message) bool {
	return func(m protocol.Message) bool {
		in, ok := m.(protocol.Input)
		return ok && len(in.Commands) > 0 && in.Commands[len(in.Commands)-1].Sequence == seq
	}
}

func TestPredictionConvergesThroughLossAndDelay(t *testing.T) {
	srv, hub := newSession(t, transport.Conditioner{DelayPolls: 3, Drop: dropSeq(5)})
	c, err := New(DefaultConfig(), hub.Dial())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.Start()

	for i := 0; i < 200 && c.Stats().Commands < 10; i++ {
		srv.Tick()
		if err := c.Tick(wander(c.Stats().Commands)); err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
	}
	if c.Stats().Commands != 10 {
		t.Fatalf("client produced %d commands, expected 10", c.Stats().Commands)
	}

	// Stop issuing commands and let the server catch up.
	for i := 0; i < 200 && c.Stats().LastAck < 10; i++ {
		srv.Tick()
		c.Receive()
	}

	st := c.Stats()
	if st.LastAck != 10 {
		t.Fatalf("LastAck = %d, expected 10", st.LastAck)
	}
	if hub.Dropped() == 0 {
		t.Error("the input carrying seq 5 should have been dropped")
	}
	view, ok := srv.Entity(c.Entity())
	if !ok {
		t.Fatal("server lost the client's entity")
	}
	if c.State() != view.Confirmed {
		t.Errorf("predicted %+v, server confirmed %+v", c.State(), view.Confirmed)
	}
	if st.Corrections != 0 || st.Resyncs != 0 {
		t.Errorf("prediction should have been exact: %+v", st)
	}
	if f := c.Frame(); f.Pending != 0 || f.Status != InSession {
		t.Errorf("frame = pending %d status %v", f.Pending, f.Status)
	}
}

func TestOverflowResyncAgainstServer(t *testing.T) {
	srv, hub := newSession(t, transport.Conditioner{})
	cfg := DefaultConfig()
	cfg.MaxPendingInputs = 4
	cfg.InputRedundancy = 4
	c, _ := New(cfg, hub.Dial())
	c.Start()
	for i := 0; i < 20 && c.Status() != InSession; i++ {
		srv.Tick()
		c.Tick(Intent{})
	}
	if c.Status() != InSession {
		t.Fatal("client never entered the session")
	}

	// The server stalls while the client keeps predicting.
	for i := 0; i < 8; i++ {
		c.Tick(wander(uint64(i)))
	}
	if c.Stats().Overflows == 0 {
		t.Fatal("expected the input buffer to overflow")
	}

	for i := 0; i < 10 && c.Stats().Resyncs == 0; i++ {
		srv.Tick()
		c.Receive()
	}
	if c.Stats().Resyncs != 1 {
		t.Fatalf("Resyncs = %d, expected 1", c.Stats().Resyncs)
	}
	view, _ := srv.Entity(c.Entity())
	if c.State() != view.Confirmed {
		t.Errorf("after resync predicted %+v, server confirmed %+v", c.State(), view.Confirmed)
	}
}

func TestClientsSeeEachOther(t *testing.T) {
	srv, hub := newSession(t, transport.Conditioner{})
	cfgA, cfgB := DefaultConfig(), DefaultConfig()
	cfgA.Name, cfgB.Name = "alice", "bob"
	a, _ := New(cfgA, hub.Dial())
	b, _ := New(cfgB, hub.Dial())
	a.Start()
	b.Start()

	for i := 0; i < 30; i++ {
		srv.Tick()
		a.Tick(wander(uint64(i)))
		b.Tick(Intent{})
	}

	fa := a.Frame()
	if len(fa.Remotes) != 1 || fa.Remotes[0].Entity != b.Entity() || fa.Remotes[0].Name != "bob" {
		t.Errorf("alice sees %+v", fa.Remotes)
	}
	fb := b.Frame()
	if len(fb.Remotes) != 1 || fb.Remotes[0].Name != "alice" {
		t.Fatalf("bob sees %+v", fb.Remotes)
	}
	if fb.Remotes[0].Position == fb.Local.Position {
		t.Error("remote and local entities should not overlap")
	}
}
