package level

import (
	"encoding/binary"

	"github.com/vovakirdan/fpsnet/internal/fixed"
	"github.com/zeebo/xxh3"
)

// ShapeKind identifies what a static shape is.
type ShapeKind uint8

const (
	Floor ShapeKind = iota
	Wall
	Spawn
)

func (k ShapeKind) String() string {
	switch k {
	case Floor:
		return "floor"
	case Wall:
		return "wall"
	case Spawn:
		return "spawn"
	default:
		return "unknown"
	}
}

// Shape is one static element of the level.
type Shape struct {
	Kind ShapeKind
	Room int // Owning room index, -1 for level-wide shapes
	Box  fixed.Box
}

// Geometry is the immutable static level produced by Generate.
// It is safe for concurrent readers.
type Geometry struct {
	seed   uint64
	params Params
	rooms  []Room
	doors  []Door
	shapes []Shape
	walls  []fixed.Box
	spawns []fixed.Vec3
	bounds fixed.Box
}

func (g *Geometry) addShape(kind ShapeKind, room int, box fixed.Box) {
	g.shapes = append(g.shapes, Shape{Kind: kind, Room: room, Box: box})
	if kind == Wall {
		g.walls = append(g.walls, box)
	}
}

// Seed returns the seed the level was generated from.
func (g *Geometry) Seed() uint64 { return g.seed }

// Params returns the generation parameters.
func (g *Geometry) Params() Params { return g.params }

// Rooms returns a copy of the room grid in row-major order.
func (g *Geometry) Rooms() []Room { return append([]Room(nil), g.rooms...) }

// Doors returns a copy of the door list, tree doors first.
func (g *Geometry) Doors() []Door { return append([]Door(nil), g.doors...) }

// Shapes returns a copy of all shapes in generation order.
func (g *Geometry) Shapes() []Shape { return append([]Shape(nil), g.shapes...) }

// Walls returns the wall boxes in generation order. The slice is shared and
// must not be modified; movement calls this every step.
func (g *Geometry) Walls() []fixed.Box { return g.walls }

// Spawns returns a copy of the spawn points.
func (g *Geometry) Spawns() []fixed.Vec3 { return append([]fixed.Vec3(nil), g.spawns...) }

// SpawnPoint returns spawn i, cycling through the list.
func (g *Geometry) SpawnPoint(i int) fixed.Vec3 {
	if len(g.spawns) == 0 {
		return g.bounds.Center()
	}
	if i < 0 {
		i = -i
	}
	return g.spawns[i%len(g.spawns)]
}

// Bounds returns the playable volume.
func (g *Geometry) Bounds() fixed.Box { return g.bounds }

// Count returns how many shapes of a kind exist.
func (g *Geometry) Count(kind ShapeKind) int {
	n := 0
	for _, s := range g.shapes {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

const binaryMagic = "FPSL"
const binaryVersion = 1

// MarshalBinary returns the canonical big-endian encoding of the level.
// Two levels are identical exactly when their encodings are.
func (g *Geometry) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 64+len(g.shapes)*52)
	buf = append(buf, binaryMagic...)
	buf = append(buf, binaryVersion)
	buf = binary.BigEndian.AppendUint64(buf, g.seed)

	p := g.params
	for _, v := range []int{p.Cols, p.Rows, p.LoopChance, p.SpawnsPerRoom} {
		buf = binary.BigEndian.AppendUint32(buf, uint32(v))
	}
	for _, v := range []fixed.Fixed{p.RoomSize, p.WallHeight, p.WallThickness, p.DoorWidth} {
		buf = appendFixed(buf, v)
	}

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(g.rooms)))
	for _, r := range g.rooms {
		buf = append(buf, byte(r.Type))
		buf = binary.BigEndian.AppendUint16(buf, uint16(r.Depth))
	}

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(g.doors)))
	for _, d := range g.doors {
		buf = binary.BigEndian.AppendUint16(buf, uint16(d.A))
		buf = binary.BigEndian.AppendUint16(buf, uint16(d.B))
		if d.Extra {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(g.shapes)))
	for _, s := range g.shapes {
		buf = append(buf, byte(s.Kind))
		buf = binary.BigEndian.AppendUint32(buf, uint32(int32(s.Room)))
		buf = appendVec(buf, s.Box.Min)
		buf = appendVec(buf, s.Box.Max)
	}
	return buf, nil
}

// Checksum returns the xxh3 hash of the canonical encoding. Peers exchange it
// during the handshake to detect generation divergence.
func (g *Geometry) Checksum() uint64 {
	data, _ := g.MarshalBinary()
	return xxh3.Hash(data)
}

func appendFixed(buf []byte, f fixed.Fixed) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(f))
}

func appendVec(buf []byte, v fixed.Vec3) []byte {
	buf = appendFixed(buf, v.X)
	buf = appendFixed(buf, v.Y)
	return appendFixed(buf, v.Z)
}
