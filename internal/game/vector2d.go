package game

import "math"

// normalizeEpsilon is the shortest vector Normalize will scale up.
const normalizeEpsilon = 0.1

// Vec2 is an immutable 2D vector.
type Vec2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

func NewVec2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vec2) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

func (v Vec2) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Normalize returns the unit vector in v's direction. Vectors shorter than
// normalizeEpsilon have no reliable direction and yield the zero vector.
func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l <= normalizeEpsilon {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// Perpendicular returns v rotated a quarter turn: (-y, x).
func (v Vec2) Perpendicular() Vec2 {
	return Vec2{X: -v.Y, Y: v.X}
}

func (v Vec2) Distance(o Vec2) float64 {
	return v.Sub(o).Length()
}

func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}
