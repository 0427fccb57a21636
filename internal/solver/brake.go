package solver

// FindBrakePoints returns the sample indices where the velocity profile
// transitions from increasing to decreasing, the mirror of the apex
// detection rule: the second difference of the velocity-difference sign
// sequence takes its maximum value at a brake point.
func FindBrakePoints(v []float64) []int {
	n := len(v)
	sign := make([]int, n)
	for i := 0; i < n; i++ {
		sign[i] = diffSign(v[i] - v[(i-1+n)%n])
	}

	flip := make([]int, n)
	var maxFlip int
	for i := 0; i < n; i++ {
		flip[i] = sign[i] - sign[(i+1)%n]
		if i == 0 || flip[i] > maxFlip {
			maxFlip = flip[i]
		}
	}

	var brakes []int
	for i := 0; i < n; i++ {
		if flip[i] == maxFlip {
			brakes = append(brakes, i)
		}
	}
	return brakes
}

func diffSign(d float64) int {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	default:
		return 0
	}
}
