package track

import "math"

// ApexSet is the ordered list of sample indices that are local minima of the
// radius of curvature. After FindApexes the indices refer to the rotated
// frame, where index 0 is always an apex.
type ApexSet []int

// FindApexes locates the corner apexes and re-anchors the lap on the first
// one. It returns the apex indices together with rotated copies of the
// discretized track and curvature field, so that sample 0 of the returned
// structures is an apex; the inputs are left untouched.
//
// Detection: the discrete derivative of the radius changes sign from
// decreasing to increasing at a curvature minimum, which makes the second
// difference of the sign sequence take its most negative value there. Every
// index achieving that minimum is an apex; sign flips in the other direction
// (local maxima, straight-section exits) are ignored.
//
// A lap with uniform curvature (a perfect circle) has no sign variation at
// all: the flip array is identically zero and its minimum selects every
// sample. That degenerate all-apex set is kept as-is; the solver then skips
// the relaxation entirely and the apex segment accounting alone yields the
// constant-speed lap.
func FindApexes(d *Discretized, c *Curvature) (ApexSet, *Discretized, *Curvature) {
	n := len(c.Radius)
	r := c.Radius

	sign := make([]int, n)
	for i := 0; i < n; i++ {
		sign[i] = signOf(r[i] - r[(i-1+n)%n])
	}

	flip := make([]int, n)
	minFlip := math.MaxInt
	for i := 0; i < n; i++ {
		flip[i] = sign[i] - sign[(i+1)%n]
		if flip[i] < minFlip {
			minFlip = flip[i]
		}
	}

	var raw []int
	for i := 0; i < n; i++ {
		if flip[i] == minFlip {
			raw = append(raw, i)
		}
	}

	// Rotate everything left by the first apex index so that apex becomes
	// sample 0, and re-express the apex indices in the rotated frame.
	shift := raw[0]
	apexes := make(ApexSet, len(raw))
	for i, idx := range raw {
		apexes[i] = (idx - shift + n) % n
	}

	return apexes, d.rotated(shift), c.rotated(shift)
}

// signOf maps a difference to -1, 0, or +1. Differences between two infinite
// radii are NaN; treating them as 0 keeps straight sections from contributing
// sign flips instead of poisoning the minimum the way NaN comparisons would.
func signOf(d float64) int {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	default:
		return 0
	}
}
