// Package field holds pitch geometry and the read-only world snapshot an
// agent decides on each cycle.
package field

import "math"

// Vector is a point or velocity on the pitch, in metres.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec is shorthand for Vector{x, y}.
func Vec(x, y float64) Vector { return Vector{X: x, Y: y} }

func (v Vector) Add(o Vector) Vector { return Vector{v.X + o.X, v.Y + o.Y} }
func (v Vector) Sub(o Vector) Vector { return Vector{v.X - o.X, v.Y - o.Y} }
func (v Vector) Scale(k float64) Vector { return Vector{v.X * k, v.Y * k} }
func (v Vector) Len() float64 { return math.Hypot(v.X, v.Y) }
func (v Vector) Dist(o Vector) float64 { return v.Sub(o).Len() }
func (v Vector) Dir() float64 { return math.Atan2(v.Y, v.X) * 180 / math.Pi }
func (v Vector) IsFinite() bool { return finite(v.X) && finite(v.Y) }
func (v Vector) Equal(o Vector) bool { return v.X == o.X && v.Y == o.Y }

// Towards moves d metres from v in the direction of o.
func (v Vector) Towards(o Vector, d float64) Vector {
	delta := o.Sub(v)
	l := delta.Len()
	if l == 0 {
		return v
	}
	return v.Add(delta.Scale(d / l))
}

// Polar returns the vector of length r pointing at deg degrees.
func Polar(r, deg float64) Vector {
	rad := deg * math.Pi / 180
	return Vector{r * math.Cos(rad), r * math.Sin(rad)}
}

// SegmentDist returns the distance from p to the segment a-b.
func SegmentDist(p, a, b Vector) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Dist(a.Add(ab.Scale(t)))
}

// NormalizeAngle maps deg into (-180, 180].
func NormalizeAngle(deg float64) float64 {
	for deg > 180 {
		deg -= 360
	}
	for deg <= -180 {
		deg += 360
	}
	return deg
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
