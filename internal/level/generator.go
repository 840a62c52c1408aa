package level

import "github.com/vovakirdan/fpsnet/internal/fixed"

// RoomType is the zone type of a room.
type RoomType uint8

const (
	Hub RoomType = iota
	Corridor
	Utility
	Industrial
	Objective
	Storage
)

var roomTypeNames = [...]string{"hub", "corridor", "utility", "industrial", "objective", "storage"}

func (t RoomType) String() string {
	if int(t) < len(roomTypeNames) {
		return roomTypeNames[t]
	}
	return "unknown"
}

// Room is one cell of the room grid.
type Room struct {
	Col, Row int
	Type     RoomType
	Depth    int // Manhattan distance from room 0
}

// Door connects two adjacent rooms. A is always the lower index.
type Door struct {
	A, B  int
	Extra bool // Opened by the loop pass, not part of the spanning tree
}

// Generate builds the level for a seed. It is a pure function: the same seed
// and parameters always produce byte-identical geometry.
//
// Random draws happen in a fixed order:
//  1. one room type roll per room, row-major
//  2. the spanning-tree carve from room 0 (neighbours N, E, S, W)
//  3. one loop roll per closed interior boundary, row-major, east before south
//  4. one angle per spawn marker, Hub and Storage rooms row-major
func Generate(seed uint64, p Params) (*Geometry, error) {
	if err := ValidateSeed(seed); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rng := NewRNG(seed)
	g := &Geometry{seed: seed, params: p}

	g.rooms = assignRooms(rng, p)

	// east[i] opens the boundary between room i and i+1;
	// south[i] the one between room i and i+Cols.
	n := p.Cols * p.Rows
	east := make([]bool, n)
	south := make([]bool, n)

	g.doors = carveTree(rng, p, east, south)
	g.doors = append(g.doors, addLoops(rng, p, east, south)...)

	g.buildShapes(east, south)
	g.placeSpawns(rng)
	return g, nil
}

func assignRooms(rng *RNG, p Params) []Room {
	maxDepth := (p.Cols - 1) + (p.Rows - 1)
	rooms := make([]Room, 0, p.Cols*p.Rows)
	for row := 0; row < p.Rows; row++ {
		for col := 0; col < p.Cols; col++ {
			depth := col + row
			t := rollRoomType(rng.Intn(100))
			if t == Objective && depth*2 <= maxDepth {
				t = Storage
			}
			if col == 0 && row == 0 {
				t = Hub
			}
			rooms = append(rooms, Room{Col: col, Row: row, Type: t, Depth: depth})
		}
	}
	return rooms
}

func rollRoomType(roll int) RoomType {
	switch {
	case roll < 15:
		return Hub
	case roll < 35:
		return Corridor
	case roll < 50:
		return Utility
	case roll < 70:
		return Industrial
	case roll < 85:
		return Objective
	default:
		return Storage
	}
}

// carveTree runs a randomized depth-first search from room 0 and opens one
// door per tree edge.
func carveTree(rng *RNG, p Params, east, south []bool) []Door {
	n := p.Cols * p.Rows
	visited := make([]bool, n)
	visited[0] = true
	stack := []int{0}
	doors := make([]Door, 0, n-1)
	candidates := make([]int, 0, 4)

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		col, row := cur%p.Cols, cur/p.Cols

		candidates = candidates[:0]
		if row > 0 && !visited[cur-p.Cols] {
			candidates = append(candidates, cur-p.Cols)
		}
		if col < p.Cols-1 && !visited[cur+1] {
			candidates = append(candidates, cur+1)
		}
		if row < p.Rows-1 && !visited[cur+p.Cols] {
			candidates = append(candidates, cur+p.Cols)
		}
		if col > 0 && !visited[cur-1] {
			candidates = append(candidates, cur-1)
		}

		if len(candidates) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		next := candidates[rng.Intn(len(candidates))]
		a, b := min(cur, next), max(cur, next)
		if b-a == 1 {
			east[a] = true
		} else {
			south[a] = true
		}
		doors = append(doors, Door{A: a, B: b})
		visited[next] = true
		stack = append(stack, next)
	}
	return doors
}

func addLoops(rng *RNG, p Params, east, south []bool) []Door {
	var doors []Door
	for row := 0; row < p.Rows; row++ {
		for col := 0; col < p.Cols; col++ {
			i := row*p.Cols + col
			if col < p.Cols-1 && !east[i] && rng.Intn(100) < p.LoopChance {
				east[i] = true
				doors = append(doors, Door{A: i, B: i + 1, Extra: true})
			}
			if row < p.Rows-1 && !south[i] && rng.Intn(100) < p.LoopChance {
				south[i] = true
				doors = append(doors, Door{A: i, B: i + p.Cols, Extra: true})
			}
		}
	}
	return doors
}

func (g *Geometry) buildShapes(east, south []bool) {
	p := g.params
	s := p.RoomSize
	t := p.WallThickness
	h := p.WallHeight
	w := s.MulInt(p.Cols)
	d := s.MulInt(p.Rows)

	g.bounds = fixed.Box{Min: fixed.Vec3{}, Max: fixed.V(w, h, d)}

	g.addShape(Floor, -1, fixed.Box{Min: fixed.V(0, -t, 0), Max: fixed.V(w, 0, d)})

	// Perimeter, inside the bounds: N (z=0), E (x=w), S (z=d), W (x=0).
	g.addShape(Wall, -1, fixed.Box{Min: fixed.V(0, 0, 0), Max: fixed.V(w, h, t)})
	g.addShape(Wall, -1, fixed.Box{Min: fixed.V(w-t, 0, 0), Max: fixed.V(w, h, d)})
	g.addShape(Wall, -1, fixed.Box{Min: fixed.V(0, 0, d-t), Max: fixed.V(w, h, d)})
	g.addShape(Wall, -1, fixed.Box{Min: fixed.V(0, 0, 0), Max: fixed.V(t, h, d)})

	half := t / 2
	gap := p.DoorWidth / 2
	for row := 0; row < p.Rows; row++ {
		for col := 0; col < p.Cols; col++ {
			i := row*p.Cols + col
			x0 := s.MulInt(col)
			z0 := s.MulInt(row)
			if col < p.Cols-1 {
				// Boundary at x = x0+s spanning z0..z0+s.
				x := x0 + s
				if east[i] {
					mid := z0 + s/2
					g.addShape(Wall, i, fixed.Box{Min: fixed.V(x-half, 0, z0), Max: fixed.V(x+half, h, mid-gap)})
					g.addShape(Wall, i, fixed.Box{Min: fixed.V(x-half, 0, mid+gap), Max: fixed.V(x+half, h, z0+s)})
				} else {
					g.addShape(Wall, i, fixed.Box{Min: fixed.V(x-half, 0, z0), Max: fixed.V(x+half, h, z0+s)})
				}
			}
			if row < p.Rows-1 {
				// Boundary at z = z0+s spanning x0..x0+s.
				z := z0 + s
				if south[i] {
					mid := x0 + s/2
					g.addShape(Wall, i, fixed.Box{Min: fixed.V(x0, 0, z-half), Max: fixed.V(mid-gap, h, z+half)})
					g.addShape(Wall, i, fixed.Box{Min: fixed.V(mid+gap, 0, z-half), Max: fixed.V(x0+s, h, z+half)})
				} else {
					g.addShape(Wall, i, fixed.Box{Min: fixed.V(x0, 0, z-half), Max: fixed.V(x0+s, h, z+half)})
				}
			}
		}
	}
}

// placeSpawns puts markers on a ring of radius RoomSize/4 around the centre
// of every Hub and Storage room.
func (g *Geometry) placeSpawns(rng *RNG) {
	p := g.params
	radius := p.RoomSize / 4
	marker := fixed.V(p.WallThickness/2, 0, p.WallThickness/2)
	for i, room := range g.rooms {
		if room.Type != Hub && room.Type != Storage {
			continue
		}
		cx := p.RoomSize.MulInt(room.Col) + p.RoomSize/2
		cz := p.RoomSize.MulInt(room.Row) + p.RoomSize/2
		for k := 0; k < p.SpawnsPerRoom; k++ {
			a := fixed.Angle(rng.Intn(65536))
			pos := fixed.V(cx+a.Cos().Mul(radius), 0, cz+a.Sin().Mul(radius))
			g.spawns = append(g.spawns, pos)
			g.addShape(Spawn, i, fixed.BoxAround(pos, marker))
		}
	}
}
