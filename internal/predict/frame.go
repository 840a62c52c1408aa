package predict

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vovakirdan/fpsnet/internal/level"
	"github.com/vovakirdan/fpsnet/internal/protocol"
)

// Transform places an entity in the rendered world.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Yaw      float32 // degrees
	Pitch    float32 // degrees
}

// Matrix returns the model matrix for the transform.
func (t Transform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).Mul4(t.Rotation.Mat4())
}

// RemoteTransform is an interpolated remote entity.
type RemoteTransform struct {
	Entity protocol.EntityID
	Name   string
	Color  string
	Transform
	Frozen bool // no newer sample to move towards
}

// Frame is a read-only view for a renderer. It is rebuilt on every call and
// shares nothing mutable with the client, except the immutable geometry.
type Frame struct {
	Tick       uint64 // local ticks run
	ServerTick uint64
	RenderTick uint64 // server tick remote entities are shown at
	Status     Status
	Degraded   bool

	Entity     protocol.EntityID
	Local      Transform
	Correction mgl32.Vec3 // visual offset still being smoothed away
	Remotes    []RemoteTransform
	Geometry   *level.Geometry

	Pending int
	Stats   Stats
}

// Frame builds the current view.
func (c *Client) Frame() Frame {
	f := Frame{
		Tick:       c.localTick,
		ServerTick: c.ServerTick(),
		Status:     c.status,
		Degraded:   c.degraded,
		Entity:     c.accept.Entity,
		Correction: c.correction,
		Geometry:   c.geo,
		Pending:    len(c.pending),
		Stats:      c.stats,
	}
	if c.status == Connecting {
		return f
	}

	s := sampleOf(0, c.state)
	f.Local = Transform{Position: s.pos.Add(c.correction), Rotation: s.rot, Yaw: s.yaw, Pitch: s.pitch}

	interval := uint64(max(1, c.accept.SnapshotInterval))
	if f.ServerTick > interval {
		f.RenderTick = f.ServerTick - interval
	}
	f.Remotes = make([]RemoteTransform, 0, c.remotes.Len())
	for el := c.remotes.Front(); el != nil; el = el.Next() {
		r := el.Value
		at, frozen := r.at(f.RenderTick)
		if len(r.samples) == 0 {
			continue
		}
		f.Remotes = append(f.Remotes, RemoteTransform{
			Entity:    r.id,
			Name:      r.name,
			Color:     r.color,
			Transform: Transform{Position: at.pos, Rotation: at.rot, Yaw: at.yaw, Pitch: at.pitch},
			Frozen:    frozen,
		})
	}
	return f
}
