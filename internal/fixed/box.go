package fixed

// Box is an axis-aligned bounding box used for collision detection.
type Box struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// NewBox creates a box from its minimum corner and size.
func NewBox(min, size Vec3) Box {
	return Box{Min: min, Max: min.Add(size)}
}

// BoxAround creates a box centred on c with the given half extents.
func BoxAround(c, half Vec3) Box {
	return Box{Min: c.Sub(half), Max: c.Add(half)}
}

// Size returns the extent along each axis.
func (b Box) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the centre point of the box.
func (b Box) Center() Vec3 {
	return Vec3{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

// Intersects returns true if this box overlaps with another.
// Touching faces do not count as overlap.
func (b Box) Intersects(other Box) bool {
	if b.Min.X >= other.Max.X || other.Min.X >= b.Max.X {
		return false
	}
	if b.Min.Y >= other.Max.Y || other.Min.Y >= b.Max.Y {
		return false
	}
	if b.Min.Z >= other.Max.Z || other.Min.Z >= b.Max.Z {
		return false
	}
	return true
}

// Contains returns true if the point is inside the box, faces included.
func (b Box) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// ContainsXZ ignores height.
func (b Box) ContainsXZ(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Expand grows the box by d on every side. Negative d shrinks it.
func (b Box) Expand(d Vec3) Box {
	return Box{Min: b.Min.Sub(d), Max: b.Max.Add(d)}
}

// ClampPoint moves p to the nearest point inside the box.
func (b Box) ClampPoint(p Vec3) Vec3 {
	return Vec3{
		X: Clamp(p.X, b.Min.X, b.Max.X),
		Y: Clamp(p.Y, b.Min.Y, b.Max.Y),
		Z: Clamp(p.Z, b.Min.Z, b.Max.Z),
	}
}
