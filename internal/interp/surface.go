package interp

import (
	"fmt"
	"math"
	"sort"
)

// Surface interpolates scattered (x, y) → z data, used for the fuel-efficiency
// map of an engine (x = angular speed, y = torque, z = efficiency).
//
// Queries below the table's lower x or y bound are clamped to that bound
// (constant extrapolation toward low speed/torque). Queries outside the convex
// hull of the data are answered with the nearest sample's value and reported
// as out of range so the caller can surface a warning.
type Surface struct {
	xs, ys, zs []float64
	hull       []surfacePoint // convex hull vertices, counter-clockwise
	minX, minY float64
	spanX      float64 // coordinate normalisation for distance weighting
	spanY      float64
}

type surfacePoint struct {
	x, y float64
}

// NewSurface builds a Surface from parallel coordinate and value slices.
// At least 3 non-collinear points are required to span a usable hull.
func NewSurface(xs, ys, zs []float64) (*Surface, error) {
	if len(xs) != len(ys) || len(xs) != len(zs) {
		return nil, fmt.Errorf("surface: mismatched lengths %d/%d/%d", len(xs), len(ys), len(zs))
	}
	if len(xs) < 3 {
		return nil, fmt.Errorf("surface: need at least 3 points, got %d", len(xs))
	}

	s := &Surface{
		xs: append([]float64(nil), xs...),
		ys: append([]float64(nil), ys...),
		zs: append([]float64(nil), zs...),
	}

	s.minX, s.minY = s.xs[0], s.ys[0]
	maxX, maxY := s.xs[0], s.ys[0]
	for i := range s.xs {
		s.minX = math.Min(s.minX, s.xs[i])
		s.minY = math.Min(s.minY, s.ys[i])
		maxX = math.Max(maxX, s.xs[i])
		maxY = math.Max(maxY, s.ys[i])
	}
	s.spanX = maxX - s.minX
	s.spanY = maxY - s.minY
	if s.spanX == 0 || s.spanY == 0 {
		return nil, fmt.Errorf("surface: points are collinear along an axis")
	}

	s.hull = convexHull(s.xs, s.ys)
	return s, nil
}

// MinX returns the table's lower angular-speed bound.
func (s *Surface) MinX() float64 { return s.minX }

// MinY returns the table's lower torque bound.
func (s *Surface) MinY() float64 { return s.minY }

// At evaluates the surface at (x, y).
//
// Coordinates below the table minima are clamped first. The returned bool is
// false when the (clamped) query lies outside the convex hull of the data;
// the value is then the nearest sample's z rather than an interpolation.
func (s *Surface) At(x, y float64) (float64, bool) {
	if x < s.minX {
		x = s.minX
	}
	if y < s.minY {
		y = s.minY
	}

	if !s.inHull(x, y) {
		return s.nearest(x, y), false
	}
	return s.shepard(x, y), true
}

// shepard is inverse-distance-squared weighting in span-normalised
// coordinates. Exact at the data points.
func (s *Surface) shepard(x, y float64) float64 {
	const eps = 1e-12
	var num, den float64
	for i := range s.xs {
		dx := (x - s.xs[i]) / s.spanX
		dy := (y - s.ys[i]) / s.spanY
		d2 := dx*dx + dy*dy
		if d2 < eps {
			return s.zs[i]
		}
		w := 1 / d2
		num += w * s.zs[i]
		den += w
	}
	return num / den
}

func (s *Surface) nearest(x, y float64) float64 {
	best, bestD2 := 0, math.Inf(1)
	for i := range s.xs {
		dx := (x - s.xs[i]) / s.spanX
		dy := (y - s.ys[i]) / s.spanY
		if d2 := dx*dx + dy*dy; d2 < bestD2 {
			best, bestD2 = i, d2
		}
	}
	return s.zs[best]
}

// inHull reports whether (x, y) lies inside or on the convex hull.
func (s *Surface) inHull(x, y float64) bool {
	const tol = 1e-9
	n := len(s.hull)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		a, b := s.hull[i], s.hull[(i+1)%n]
		if cross2(b.x-a.x, b.y-a.y, x-a.x, y-a.y) < -tol {
			return false
		}
	}
	return true
}

func cross2(ax, ay, bx, by float64) float64 { return ax*by - ay*bx }

// convexHull computes the counter-clockwise convex hull of the points using
// Andrew's monotone chain.
func convexHull(xs, ys []float64) []surfacePoint {
	pts := make([]surfacePoint, len(xs))
	for i := range xs {
		pts[i] = surfacePoint{xs[i], ys[i]}
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].x != pts[j].x {
			return pts[i].x < pts[j].x
		}
		return pts[i].y < pts[j].y
	})

	build := func(in []surfacePoint) []surfacePoint {
		var h []surfacePoint
		for _, p := range in {
			for len(h) >= 2 {
				a, b := h[len(h)-2], h[len(h)-1]
				if cross2(b.x-a.x, b.y-a.y, p.x-a.x, p.y-a.y) > 0 {
					break
				}
				h = h[:len(h)-1]
			}
			h = append(h, p)
		}
		return h
	}

	lower := build(pts)
	upper := build(reversed(pts))
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

func reversed(pts []surfacePoint) []surfacePoint {
	out := make([]surfacePoint, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}
