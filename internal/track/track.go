// Package track turns an ordered sequence of raw track points into the
// arc-length-uniform sample arrays the velocity solver works on: positions,
// curvature, and apex locations on a closed (periodic) lap.
package track

import (
	"fmt"
	"math"

	"github.com/apexsim/lapsim-engine/internal/interp"
)

// NormalisedLength is the total arc length every track is rescaled to,
// in length units. Fixing it keeps the curvature arithmetic well conditioned
// regardless of the raw coordinate scale.
const NormalisedLength = 1000.0

// GeometryError reports a track that is too short or degenerate to discretize.
type GeometryError struct {
	Reason string
}

func (e *GeometryError) Error() string { return "track geometry: " + e.Reason }

// Point is a position sample. Z is zero for 2D tracks.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// Discretized is a closed lap resampled at uniform arc-length spacing.
// Sample i+1 follows sample i along the driving direction and the last
// sample wraps to the first.
type Discretized struct {
	Points    []Point   `json:"points"`
	Elevation []float64 `json:"elevation"` // slope angle per sample, radians; zero for 2D input
	DS        float64   `json:"ds"`        // arc length between consecutive samples
}

// Steps returns the number of samples.
func (d *Discretized) Steps() int { return len(d.Points) }

// rotated returns a copy of d with all per-sample arrays cyclically shifted
// left by k, so the old sample k becomes the new sample 0.
func (d *Discretized) rotated(k int) *Discretized {
	n := len(d.Points)
	out := &Discretized{
		Points:    make([]Point, n),
		Elevation: make([]float64, n),
		DS:        d.DS,
	}
	for j := 0; j < n; j++ {
		src := (j + k) % n
		out.Points[j] = d.Points[src]
		out.Elevation[j] = d.Elevation[src]
	}
	return out
}

// Discretize resamples the raw ordered points into steps arc-length-uniform
// samples. The raw sequence is treated as a closed loop (the last point
// connects back to the first) and the coordinates are rescaled so the total
// lap length is exactly NormalisedLength.
//
// Input is considered 3D when any point has a nonzero Z; elevation angles are
// then derived from centred wraparound differences.
func Discretize(pts []Point, steps int) (*Discretized, error) {
	if steps < 3 {
		return nil, &GeometryError{Reason: fmt.Sprintf("need at least 3 samples, got %d", steps)}
	}
	if distinctPoints(pts) < 3 {
		return nil, &GeometryError{Reason: fmt.Sprintf("need at least 3 distinct points, got %d", distinctPoints(pts))}
	}

	n := len(pts)
	threeD := false
	for _, p := range pts {
		if p.Z != 0 {
			threeD = true
			break
		}
	}

	// Per-segment displacement norms with wraparound, and the total length.
	segLen := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		segLen[i] = dist(pts[i], pts[(i+1)%n], threeD)
		total += segLen[i]
	}
	if total < 1e-9 {
		return nil, &GeometryError{Reason: "total track length is zero"}
	}

	// Normalised cumulative arc-length parameter per raw point, s[0] = 0.
	// The periodic spline closes the loop at parameter 1 internally.
	s := make([]float64, n)
	for i := 1; i < n; i++ {
		s[i] = s[i-1] + segLen[i-1]/total
	}

	scale := NormalisedLength / total
	axes := []func(Point) float64{
		func(p Point) float64 { return p.X },
		func(p Point) float64 { return p.Y },
	}
	if threeD {
		axes = append(axes, func(p Point) float64 { return p.Z })
	}

	splines := make([]*interp.Spline, len(axes))
	for a, get := range axes {
		ys := make([]float64, n)
		for i, p := range pts {
			ys[i] = get(p) * scale
		}
		sp, err := interp.NewPeriodicSpline(s, ys, 1)
		if err != nil {
			return nil, &GeometryError{Reason: fmt.Sprintf("fitting axis %d: %v", a, err)}
		}
		splines[a] = sp
	}

	out := &Discretized{
		Points:    make([]Point, steps),
		Elevation: make([]float64, steps),
		DS:        NormalisedLength / float64(steps),
	}
	for i := 0; i < steps; i++ {
		u := float64(i) / float64(steps)
		out.Points[i].X = splines[0].Eval(u)
		out.Points[i].Y = splines[1].Eval(u)
		if threeD {
			out.Points[i].Z = splines[2].Eval(u)
		}
	}

	if threeD {
		for i := 0; i < steps; i++ {
			prev := out.Points[(i-1+steps)%steps]
			next := out.Points[(i+1)%steps]
			dx := (next.X - prev.X) / 2
			dy := (next.Y - prev.Y) / 2
			dz := (next.Z - prev.Z) / 2
			out.Elevation[i] = math.Atan2(dz, math.Hypot(dx, dy))
		}
	}

	return out, nil
}

// Ellipse generates raw points on an axis-aligned ellipse with semi-axes a
// and b, sampled at resolution evenly spaced angles. Used by tests and the
// CLI demo input.
func Ellipse(a, b float64, resolution int) []Point {
	pts := make([]Point, resolution)
	for i := 0; i < resolution; i++ {
		t := 2 * math.Pi * float64(i) / float64(resolution)
		pts[i] = Point{X: a * math.Cos(t), Y: b * math.Sin(t)}
	}
	return pts
}

func dist(a, b Point, threeD bool) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	if !threeD {
		return math.Hypot(dx, dy)
	}
	dz := b.Z - a.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func distinctPoints(pts []Point) int {
	seen := make(map[Point]struct{}, len(pts))
	for _, p := range pts {
		seen[p] = struct{}{}
	}
	return len(seen)
}
