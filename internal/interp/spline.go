// Package interp provides the interpolation primitives used by the lap-time
// pipeline: 1D cubic splines for track resampling and engine power curves,
// and a scattered-data surface for fuel-efficiency lookups.
package interp

import (
	"fmt"
	"sort"
)

// Spline is a natural cubic spline over a table of (x, y) samples.
// The x values must be strictly increasing.
type Spline struct {
	xs, ys []float64
	y2s    []float64 // second derivatives at the knots
}

// NewSpline builds a natural cubic spline from the given table.
// xs and ys are copied; the caller may reuse its slices.
func NewSpline(xs, ys []float64) (*Spline, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("spline: len(xs)=%d but len(ys)=%d", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("spline: need at least 2 points, got %d", len(xs))
	}
	for i := 0; i < len(xs)-1; i++ {
		if xs[i+1] <= xs[i] {
			return nil, fmt.Errorf("spline: xs not strictly increasing at index %d", i)
		}
	}

	sp := &Spline{
		xs:  append([]float64(nil), xs...),
		ys:  append([]float64(nil), ys...),
		y2s: make([]float64, len(xs)),
	}
	sp.calcY2s()
	return sp, nil
}

// calcY2s solves the tridiagonal system for the knot second derivatives.
// Natural boundary conditions: y'' = 0 at both ends.
func (sp *Spline) calcY2s() {
	n := len(sp.xs)
	if n == 2 {
		return // both second derivatives stay zero; the spline is a line
	}
	as := make([]float64, n-2)
	bs := make([]float64, n-2)
	cs := make([]float64, n-2)
	rs := make([]float64, n-2)

	xs, ys := sp.xs, sp.ys
	for i := range rs {
		j := i + 1
		as[i] = (xs[j] - xs[j-1]) / 6
		bs[i] = (xs[j+1] - xs[j-1]) / 3
		cs[i] = (xs[j+1] - xs[j]) / 6
		rs[i] = (ys[j+1]-ys[j])/(xs[j+1]-xs[j]) -
			(ys[j]-ys[j-1])/(xs[j]-xs[j-1])
	}

	triDiagAt(as, bs, cs, rs, sp.y2s[1:n-1])
}

// triDiagAt solves the tridiagonal system with sub-diagonal as, diagonal bs,
// super-diagonal cs, and right-hand side rs, writing the solution into out.
// Standard Thomas algorithm; the inputs are left unmodified (as[0] and the
// last cs entry are never read).
func triDiagAt(as, bs, cs, rs, out []float64) {
	n := len(bs)
	gam := make([]float64, n)

	beta := bs[0]
	out[0] = rs[0] / beta
	for i := 1; i < n; i++ {
		gam[i] = cs[i-1] / beta
		beta = bs[i] - as[i]*gam[i]
		out[i] = (rs[i] - as[i]*out[i-1]) / beta
	}
	for i := n - 2; i >= 0; i-- {
		out[i] -= gam[i+1] * out[i+1]
	}
}

// Eval computes the spline value at x. Outside the knot range the boundary
// cubic segment is extended, which matches cubic extrapolation at the ends.
func (sp *Spline) Eval(x float64) float64 {
	i := sp.segment(x)
	h := sp.xs[i+1] - sp.xs[i]
	a := (sp.xs[i+1] - x) / h
	b := (x - sp.xs[i]) / h
	return a*sp.ys[i] + b*sp.ys[i+1] +
		((a*a*a-a)*sp.y2s[i]+(b*b*b-b)*sp.y2s[i+1])*(h*h)/6
}

// MinX returns the smallest knot x value.
func (sp *Spline) MinX() float64 { return sp.xs[0] }

// MaxX returns the largest knot x value.
func (sp *Spline) MaxX() float64 { return sp.xs[len(sp.xs)-1] }

// segment returns the index of the knot interval containing x, clamped to
// the boundary intervals for out-of-range x.
func (sp *Spline) segment(x float64) int {
	if x <= sp.xs[0] {
		return 0
	}
	if x >= sp.xs[len(sp.xs)-1] {
		return len(sp.xs) - 2
	}
	// sort.SearchFloat64s returns the first index with xs[i] >= x.
	i := sort.SearchFloat64s(sp.xs, x)
	return i - 1
}

// NewPeriodicSpline builds a cubic spline over one period of a closed curve
// coordinate with periodic boundary conditions (matching first and second
// derivatives across the seam). xs holds the parameter of each sample and ys
// the coordinate; the closing knot at xs[0]+period (equal to ys[0]) is
// appended internally, so evaluation just below the period lands back on the
// start point without a boundary artifact.
func NewPeriodicSpline(xs, ys []float64, period float64) (*Spline, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("periodic spline: len(xs)=%d but len(ys)=%d", len(xs), len(ys))
	}
	n := len(xs)
	if n < 3 {
		return nil, fmt.Errorf("periodic spline: need at least 3 points, got %d", n)
	}
	if period <= 0 {
		return nil, fmt.Errorf("periodic spline: period must be positive, got %g", period)
	}
	for i := 0; i < n-1; i++ {
		if xs[i+1] <= xs[i] {
			return nil, fmt.Errorf("periodic spline: xs not strictly increasing at index %d", i)
		}
	}
	if xs[n-1] >= xs[0]+period {
		return nil, fmt.Errorf("periodic spline: samples span more than one period")
	}

	cx := append(append([]float64(nil), xs...), xs[0]+period)
	cy := append(append([]float64(nil), ys...), ys[0])

	sp := &Spline{
		xs:  cx,
		ys:  cy,
		y2s: make([]float64, n+1),
	}

	// Cyclic tridiagonal system for the knot second derivatives, one row per
	// unique knot; the closing knot shares y'' with knot 0.
	h := make([]float64, n)
	for j := 0; j < n; j++ {
		h[j] = cx[j+1] - cx[j]
	}
	sub := make([]float64, n)
	diag := make([]float64, n)
	sup := make([]float64, n)
	rhs := make([]float64, n)
	for j := 0; j < n; j++ {
		hPrev := h[(j-1+n)%n]
		yPrev := cy[(j-1+n)%n]
		sub[j] = hPrev / 6
		diag[j] = (hPrev + h[j]) / 3
		sup[j] = h[j] / 6
		rhs[j] = (cy[j+1]-cy[j])/h[j] - (cy[j]-yPrev)/hPrev
	}

	cyclicTriDiag(sub, diag, sup, rhs, sp.y2s[:n])
	sp.y2s[n] = sp.y2s[0]

	return sp, nil
}

// cyclicTriDiag solves the cyclically-coupled tridiagonal system where row 0
// also references out[n-1] (coefficient sub[0]) and row n-1 references out[0]
// (coefficient sup[n-1]). Sherman-Morrison reduction to two ordinary
// tridiagonal solves.
func cyclicTriDiag(sub, diag, sup, rhs, out []float64) {
	n := len(diag)
	alpha := sup[n-1] // bottom-left corner
	beta := sub[0]    // top-right corner
	gamma := -diag[0]

	bs := append([]float64(nil), diag...)
	bs[0] = diag[0] - gamma
	bs[n-1] = diag[n-1] - alpha*beta/gamma

	triDiagAt(sub, bs, sup, rhs, out)

	u := make([]float64, n)
	u[0] = gamma
	u[n-1] = alpha
	z := make([]float64, n)
	triDiagAt(sub, bs, sup, u, z)

	fact := (out[0] + beta*out[n-1]/gamma) /
		(1 + z[0] + beta*z[n-1]/gamma)
	for i := range out {
		out[i] -= fact * z[i]
	}
}
