package predict

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/vovakirdan/fpsnet/internal/movement"
	"github.com/vovakirdan/fpsnet/internal/protocol"
)

// reconcile folds an authoritative snapshot into the local view.
func (c *Client) reconcile(snap protocol.Snapshot) {
	if c.haveSnap && snap.Tick <= c.lastSnap {
		c.stats.StaleSnapshots++
		return
	}
	c.haveSnap = true
	c.lastSnap = snap.Tick
	c.lastSnapLocal = c.localTick
	c.degraded = false
	c.stats.Snapshots++

	bounds := c.geo.Bounds()
	for _, e := range snap.Entities {
		if !bounds.Contains(e.State.Position) || !bounds.Contains(e.Predicted.Position) {
			c.requestResync("entity outside the level", "entity", e.ID, "tick", snap.Tick)
			return
		}
	}
	if id, ok := c.unknownEntity(snap); ok {
		c.requestResync("entity unknown to the client", "entity", id, "tick", snap.Tick)
	}

	own, ok := snap.Find(c.accept.Entity)
	if !ok {
		c.updateRemotes(snap, false)
		c.requestResync("own entity missing from snapshot", "tick", snap.Tick)
		return
	}
	if own.LastInput > c.seq {
		c.requestResync("server acknowledged input never sent", "ack", own.LastInput, "sent", c.seq)
	}
	if c.resyncPending {
		c.updateRemotes(snap, true)
		c.resync(own)
		return
	}
	c.updateRemotes(snap, false)

	c.stats.LastAck = own.LastInput
	c.pending = slices.DeleteFunc(c.pending, func(cmd movement.Command) bool {
		return cmd.Sequence <= own.LastInput
	})
	prev := c.state
	c.state = movement.Replay(own.State, c.pending, c.params, c.geo)
	if prev.Position == c.state.Position {
		return
	}

	c.stats.Corrections++
	c.correction = c.correction.Add(toVec(prev.Position).Sub(toVec(c.state.Position)))
	if c.correction.Len() > c.cfg.SnapDistance {
		c.correction = mgl32.Vec3{}
		c.stats.Snaps++
	}
}

func (c *Client) requestResync(why string, kv ...any) {
	if !c.resyncPending {
		c.logger.Warn("resync requested: "+why, kv...)
	}
	c.resyncPending = true
}

// resync drops every buffered command and adopts the authoritative state.
func (c *Client) resync(own protocol.EntityState) {
	c.state = own.State
	c.pending = c.pending[:0]
	c.seq = max(c.seq, own.LastInput)
	c.correction = mgl32.Vec3{}
	c.resyncPending = false
	c.stats.Resyncs++
	c.stats.LastAck = own.LastInput
	c.logger.Info("resynchronized", "tick", c.lastSnap, "ack", own.LastInput)
}

func (c *Client) decayCorrection() {
	if c.correction == (mgl32.Vec3{}) {
		return
	}
	c.correction = c.correction.Mul(1 - c.cfg.SmoothingFactor)
	if c.correction.Len() < 1e-3 {
		c.correction = mgl32.Vec3{}
	}
}
