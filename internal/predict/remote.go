package predict

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vovakirdan/fpsnet/internal/fixed"
	"github.com/vovakirdan/fpsnet/internal/movement"
	"github.com/vovakirdan/fpsnet/internal/protocol"
)

type sample struct {
	tick  uint64
	pos   mgl32.Vec3
	rot   mgl32.Quat
	yaw   float32
	pitch float32
}

// remote is another player's entity, kept as a short history of snapshot
// samples that the view interpolates between.
type remote struct {
	id      protocol.EntityID
	name    string
	color   string
	samples []sample // ascending by tick
}

func (r *remote) setIdentity(name, color string) {
	r.name = name
	r.color = color
}

func (r *remote) push(s sample, limit int) {
	if n := len(r.samples); n > 0 && r.samples[n-1].tick >= s.tick {
		return
	}
	r.samples = append(r.samples, s)
	if over := len(r.samples) - limit; over > 0 {
		r.samples = append(r.samples[:0], r.samples[over:]...)
	}
}

// at returns the interpolated sample for a render tick. Past the newest
// sample the entity is frozen there.
func (r *remote) at(tick uint64) (sample, bool) {
	n := len(r.samples)
	if n == 0 {
		return sample{}, false
	}
	if tick >= r.samples[n-1].tick {
		return r.samples[n-1], tick > r.samples[n-1].tick
	}
	if tick <= r.samples[0].tick {
		return r.samples[0], false
	}
	i := 1
	for r.samples[i].tick < tick {
		i++
	}
	a, b := r.samples[i-1], r.samples[i]
	t := math32.Min(1, float32(tick-a.tick)/float32(b.tick-a.tick))
	return sample{
		tick:  tick,
		pos:   a.pos.Add(b.pos.Sub(a.pos).Mul(t)),
		rot:   mgl32.QuatSlerp(a.rot, b.rot, t),
		yaw:   lerpAngle(a.yaw, b.yaw, t),
		pitch: a.pitch + (b.pitch-a.pitch)*t,
	}, false
}

// lerpAngle interpolates degrees along the shorter arc.
func lerpAngle(a, b, t float32) float32 {
	d := math32.Mod(b-a+540, 360) - 180
	v := a + d*t
	switch {
	case v > 180:
		v -= 360
	case v <= -180:
		v += 360
	}
	return v
}

// updateRemotes pushes a sample for every known remote in the snapshot and
// drops the remotes it no longer lists. Entities the client has not been told
// about are only adopted during a resync.
func (c *Client) updateRemotes(snap protocol.Snapshot, adopt bool) {
	for _, e := range snap.Entities {
		if e.ID == c.accept.Entity {
			continue
		}
		r, ok := c.remotes.Get(e.ID)
		if !ok {
			if !adopt {
				continue
			}
			r = c.addRemote(e.ID, "", "")
		}
		r.push(sampleOf(snap.Tick, e.Predicted), c.cfg.RemoteSamples)
	}
	var gone []protocol.EntityID
	for el := c.remotes.Front(); el != nil; el = el.Next() {
		if _, ok := snap.Find(el.Key); !ok {
			gone = append(gone, el.Key)
		}
	}
	for _, id := range gone {
		c.removeRemote(id, "missing from snapshot")
	}
}

// unknownEntity returns the first snapshot entity that is neither the local
// player nor a remote the client has been told about.
func (c *Client) unknownEntity(snap protocol.Snapshot) (protocol.EntityID, bool) {
	for _, e := range snap.Entities {
		if e.ID == c.accept.Entity {
			continue
		}
		if _, ok := c.remotes.Get(e.ID); !ok {
			return e.ID, true
		}
	}
	return 0, false
}

func sampleOf(tick uint64, s movement.State) sample {
	return sample{
		tick:  tick,
		pos:   toVec(s.Position),
		rot:   orientation(s.Yaw, s.Pitch),
		yaw:   float32(s.Yaw.Degrees()),
		pitch: float32(s.Pitch.Degrees()),
	}
}

func toVec(v fixed.Vec3) mgl32.Vec3 {
	x, y, z := v.Floats()
	return mgl32.Vec3{x, y, z}
}

func orientation(yaw, pitch fixed.Angle) mgl32.Quat {
	return mgl32.AnglesToQuat(float32(yaw.Radians()), float32(pitch.Radians()), 0, mgl32.YXZ)
}
