package track

import "math"

// Curvature holds the per-sample position derivatives and radius of
// curvature, indexed 1:1 with the Discretized samples that produced it.
type Curvature struct {
	DPDS   []Point   // first derivative of position w.r.t. arc length
	D2PDS2 []Point   // second derivative
	Radius []float64 // radius of curvature; +Inf on locally straight sections
}

// rotated returns a copy of c with all arrays cyclically shifted left by k.
func (c *Curvature) rotated(k int) *Curvature {
	n := len(c.Radius)
	out := &Curvature{
		DPDS:   make([]Point, n),
		D2PDS2: make([]Point, n),
		Radius: make([]float64, n),
	}
	for j := 0; j < n; j++ {
		src := (j + k) % n
		out.DPDS[j] = c.DPDS[src]
		out.D2PDS2[j] = c.D2PDS2[src]
		out.Radius[j] = c.Radius[src]
	}
	return out
}

// EstimateCurvature derives first and second position derivatives by centred
// circular differences and computes the radius of curvature
// r = |p'|³ / |p' × p''| at every sample.
//
// Straight sections (vanishing cross product) get r = +Inf. A single 3-point
// circular smoothing pass is applied; on mixed straight/curved neighbourhoods
// this averages finite and infinite radii, leaving the straight side infinite,
// which matches the reference behaviour.
func EstimateCurvature(d *Discretized) *Curvature {
	n := d.Steps()
	c := &Curvature{
		DPDS:   make([]Point, n),
		D2PDS2: make([]Point, n),
		Radius: make([]float64, n),
	}

	// Average of backward and forward differences, i.e. the centred
	// difference over the circular index space. Curvature is planar: only
	// the X/Y components participate.
	for i := 0; i < n; i++ {
		prev := d.Points[(i-1+n)%n]
		next := d.Points[(i+1)%n]
		c.DPDS[i] = Point{
			X: (next.X - prev.X) / 2 / d.DS,
			Y: (next.Y - prev.Y) / 2 / d.DS,
		}
	}
	for i := 0; i < n; i++ {
		prev := c.DPDS[(i-1+n)%n]
		next := c.DPDS[(i+1)%n]
		c.D2PDS2[i] = Point{
			X: (next.X - prev.X) / 2 / d.DS,
			Y: (next.Y - prev.Y) / 2 / d.DS,
		}
	}

	for i := 0; i < n; i++ {
		v, a := c.DPDS[i], c.D2PDS2[i]
		speed := math.Hypot(v.X, v.Y)
		den := math.Abs(v.X*a.Y - v.Y*a.X)
		if den < 1e-12 {
			c.Radius[i] = math.Inf(1)
			continue
		}
		c.Radius[i] = speed * speed * speed / den
	}

	// One pass of 3-point circular smoothing.
	smoothed := make([]float64, n)
	for i := 0; i < n; i++ {
		smoothed[i] = (c.Radius[i] + c.Radius[(i-1+n)%n] + c.Radius[(i+1)%n]) / 3
	}
	c.Radius = smoothed

	return c
}
