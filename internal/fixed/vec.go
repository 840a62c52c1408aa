package fixed

import "fmt"

// Vec3 is a fixed-point 3D vector. Y is up.
type Vec3 struct {
	X Fixed `json:"x" yaml:"x"`
	Y Fixed `json:"y" yaml:"y"`
	Z Fixed `json:"z" yaml:"z"`
}

// V creates a vector from fixed components.
func V(x, y, z Fixed) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Vi creates a vector from integer components.
func Vi(x, y, z int) Vec3 {
	return Vec3{X: FromInt(x), Y: FromInt(y), Z: FromInt(z)}
}

// Add returns v+w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{X: v.X + w.X, Y: v.Y + w.Y, Z: v.Z + w.Z}
}

// Sub returns v-w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{X: v.X - w.X, Y: v.Y - w.Y, Z: v.Z - w.Z}
}

// Scale returns v*s.
func (v Vec3) Scale(s Fixed) Vec3 {
	return Vec3{X: v.X.Mul(s), Y: v.Y.Mul(s), Z: v.Z.Mul(s)}
}

// Dot returns the dot product.
func (v Vec3) Dot(w Vec3) Fixed {
	return v.X.Mul(w.X) + v.Y.Mul(w.Y) + v.Z.Mul(w.Z)
}

// LengthSq returns the squared length.
func (v Vec3) LengthSq() Fixed {
	return v.Dot(v)
}

// Length returns the length.
func (v Vec3) Length() Fixed {
	return Sqrt(v.LengthSq())
}

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Floats returns the components as float32 for rendering.
func (v Vec3) Floats() (float32, float32, float32) {
	return v.X.Float32(), v.Y.Float32(), v.Z.Float32()
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%s, %s, %s)", v.X, v.Y, v.Z)
}
