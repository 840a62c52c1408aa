package level

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRNGKnownSequence(t *testing.T) {
	// Reference values of SplitMix64 seeded with 0.
	rng := NewRNG(0)
	expected := []uint64{0xE220A8397B1DCDAF, 0x6E789E6AA1B965F4, 0x06C45D188009454F}
	for i, want := range expected {
		if got := rng.Next(); got != want {
			t.Errorf("Next() #%d = %#x, expected %#x", i, got, want)
		}
	}
}

func TestRNGIntnRange(t *testing.T) {
	rng := NewRNG(7)
	for i := 0; i < 1000; i++ {
		if v := rng.Intn(6); v < 0 || v >= 6 {
			t.Fatalf("Intn(6) = %d", v)
		}
	}
	if v := rng.Intn(0); v != 0 {
		t.Errorf("Intn(0) = %d, expected 0", v)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	seeds := []uint64{1, 42, 12345, 987654321, MaxSeed}
	for _, seed := range seeds {
		a, err := Generate(seed, DefaultParams())
		if err != nil {
			t.Fatalf("Generate(%d) error = %v", seed, err)
		}
		b, err := Generate(seed, DefaultParams())
		if err != nil {
			t.Fatalf("Generate(%d) error = %v", seed, err)
		}
		ab, _ := a.MarshalBinary()
		bb, _ := b.MarshalBinary()
		if !bytes.Equal(ab, bb) {
			t.Errorf("seed %d: encodings differ", seed)
		}
		if a.Checksum() != b.Checksum() {
			t.Errorf("seed %d: checksums differ", seed)
		}
	}
}

func TestGenerateSeedsDiffer(t *testing.T) {
	a, _ := Generate(1, DefaultParams())
	b, _ := Generate(2, DefaultParams())
	if a.Checksum() == b.Checksum() {
		t.Error("different seeds produced the same checksum")
	}
}

func TestGenerateInvalidSeed(t *testing.T) {
	for _, seed := range []uint64{0, MaxSeed + 1, ^uint64(0)} {
		if _, err := Generate(seed, DefaultParams()); !errors.Is(err, ErrInvalidSeed) {
			t.Errorf("Generate(%d) error = %v, expected ErrInvalidSeed", seed, err)
		}
	}
}

func TestGenerateInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero cols", func(p *Params) { p.Cols = 0 }},
		{"too many rows", func(p *Params) { p.Rows = 17 }},
		{"door too wide", func(p *Params) { p.DoorWidth = p.RoomSize }},
		{"negative loop chance", func(p *Params) { p.LoopChance = -1 }},
		{"no spawns", func(p *Params) { p.SpawnsPerRoom = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			if _, err := Generate(42, p); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Generate() error = %v, expected ErrInvalidParams", err)
			}
		})
	}
}

func TestSpanningTreeConnectsAllRooms(t *testing.T) {
	p := DefaultParams()
	p.LoopChance = 0
	g, err := Generate(42, p)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	n := p.Cols * p.Rows
	doors := g.Doors()
	if len(doors) != n-1 {
		t.Fatalf("len(Doors()) = %d, expected %d", len(doors), n-1)
	}

	// Union-find over the door list must end with a single component.
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	for _, d := range doors {
		parent[find(d.A)] = find(d.B)
	}
	root := find(0)
	for i := 1; i < n; i++ {
		if find(i) != root {
			t.Errorf("room %d is not reachable from room 0", i)
		}
	}
}

func TestWallCount(t *testing.T) {
	tests := []struct {
		name       string
		loopChance int
	}{
		{"tree only", 0},
		{"every boundary open", 100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			p.LoopChance = tc.loopChance
			g, err := Generate(42, p)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			boundaries := (p.Cols-1)*p.Rows + p.Cols*(p.Rows-1)
			open := len(g.Doors())
			expected := 4 + (boundaries - open) + 2*open
			if got := g.Count(Wall); got != expected {
				t.Errorf("Count(Wall) = %d, expected %d", got, expected)
			}
			if got := len(g.Walls()); got != expected {
				t.Errorf("len(Walls()) = %d, expected %d", got, expected)
			}
			if tc.loopChance == 100 && open != boundaries {
				t.Errorf("open doors = %d, expected %d", open, boundaries)
			}
		})
	}
}

func TestRoomTypes(t *testing.T) {
	p := DefaultParams()
	maxDepth := p.Cols - 1 + p.Rows - 1
	for seed := uint64(1); seed <= 50; seed++ {
		g, err := Generate(seed, p)
		if err != nil {
			t.Fatalf("Generate(%d) error = %v", seed, err)
		}
		rooms := g.Rooms()
		if rooms[0].Type != Hub {
			t.Fatalf("seed %d: room 0 is %v, expected hub", seed, rooms[0].Type)
		}
		for i, r := range rooms {
			if r.Type == Objective && r.Depth*2 <= maxDepth {
				t.Errorf("seed %d: room %d objective at shallow depth %d", seed, i, r.Depth)
			}
		}
	}
}

func TestSpawnsInsideBounds(t *testing.T) {
	p := DefaultParams()
	g, err := Generate(42, p)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	spawns := g.Spawns()
	if len(spawns) < p.SpawnsPerRoom {
		t.Fatalf("len(Spawns()) = %d, expected at least %d", len(spawns), p.SpawnsPerRoom)
	}
	for i, s := range spawns {
		if !g.Bounds().Contains(s) {
			t.Errorf("spawn %d at %v outside bounds", i, s)
		}
		for _, w := range g.Walls() {
			if w.ContainsXZ(s) {
				t.Errorf("spawn %d at %v inside a wall", i, s)
			}
		}
	}
	if g.SpawnPoint(len(spawns)) != spawns[0] {
		t.Error("SpawnPoint() should wrap around")
	}
	if g.Count(Spawn) != len(spawns) {
		t.Errorf("Count(Spawn) = %d, expected %d", g.Count(Spawn), len(spawns))
	}
}

func TestShapeOrder(t *testing.T) {
	g, _ := Generate(42, DefaultParams())
	shapes := g.Shapes()
	if shapes[0].Kind != Floor {
		t.Errorf("first shape = %v, expected floor", shapes[0].Kind)
	}
	seenSpawn := false
	for _, s := range shapes[1:] {
		if s.Kind == Spawn {
			seenSpawn = true
		} else if seenSpawn {
			t.Fatal("wall emitted after spawn markers")
		}
	}
}

func TestRandomSeedInRange(t *testing.T) {
	for i := 0; i < 20; i++ {
		seed, err := RandomSeed()
		if err != nil {
			t.Fatalf("RandomSeed() error = %v", err)
		}
		if err := ValidateSeed(seed); err != nil {
			t.Errorf("RandomSeed() = %d: %v", seed, err)
		}
	}
}

func TestRenderASCII(t *testing.T) {
	p := DefaultParams()
	g, _ := Generate(42, p)
	out := RenderASCII(g, DefaultRenderOptions())
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

	wantRows := p.RoomSize.MulInt(p.Rows).Int()
	wantCols := p.RoomSize.MulInt(p.Cols).Int()
	if len(lines) != wantRows {
		t.Fatalf("rendered %d rows, expected %d", len(lines), wantRows)
	}
	for i, line := range lines {
		if len([]rune(line)) != wantCols {
			t.Fatalf("row %d has %d columns, expected %d", i, len([]rune(line)), wantCols)
		}
	}
	if strings.Trim(lines[0], "#") != "" {
		t.Errorf("north wall row = %q, expected all walls", lines[0])
	}
	if !strings.Contains(out, "S") {
		t.Error("no spawn marker rendered")
	}
}
