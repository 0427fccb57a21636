package solver

import (
	"math"

	"github.com/apexsim/lapsim-engine/internal/powertrain"
)

// stepResult is the outcome of resolving one sample from its neighbour.
type stepResult struct {
	v        float64
	gear     int
	energy   EnergySplit
	t        float64
	kind     LimitKind
	powerICE float64
	warn     bool
}

// calcStep resolves the velocity one sample away from a point with known
// velocity vin, lateral demand ap, and gear. roc is the radius of curvature
// at the target sample.
//
// Four candidate speeds compete through the constant-acceleration relation
// v² = vin² + 2·a·ds; the lowest wins. A candidate whose margin vanishes
// (zero combined-traction headroom, infinite radius) is treated as not
// binding rather than allowed to produce NaN that would win the minimum.
func calcStep(pt powertrain.Model, vin, ap float64, gear int, roc, ds, alim float64) stepResult {
	lim := pt.Limit(vin, gear)

	// Torque-limited.
	vTor := math.Sqrt(2*lim.Accel*ds + vin*vin)

	// Combined-traction-limited: longitudinal headroom on the friction circle.
	vTrac := math.Inf(1)
	if margin := alim*alim - ap*ap; margin > 0 {
		vTrac = math.Sqrt(2*math.Sqrt(margin)*ds + vin*vin)
	}

	// Lateral-traction-limited at the target radius; +Inf on straights.
	vTracL := math.Sqrt(alim * roc)

	// Rpm-ceiling-limited.
	vRPM := powertrain.WheelSpeed(lim.WheelMaxRPM, pt.WheelRadius())

	v, kind := vTor, LimitTorque
	if vTrac < v {
		v, kind = vTrac, LimitTraction
	}
	if vTracL < v {
		v, kind = vTracL, LimitLateral
	}
	if vRPM < v {
		v, kind = vRPM, LimitRPM
	}

	// t = (v - vin)/a and t = 2·ds/(v + vin) are the same number under
	// constant acceleration; the latter stays finite when a → 0.
	var t float64
	if v+vin > 0 {
		t = 2 * ds / (v + vin)
	}
	a := (v*v - vin*vin) / (2 * ds)

	power := pt.Mass() * a * v
	powerICE := power * pt.PowerSplit()
	powerEM := power - powerICE

	eICE, inRange := pt.ICEEnergy(lim.Gear, v, powerICE, t)

	return stepResult{
		v:    v,
		gear: lim.Gear,
		energy: EnergySplit{
			ICE: eICE,
			EM:  powerEM * t / pt.MotorEfficiency(),
		},
		t:        t,
		kind:     kind,
		powerICE: powerICE,
		warn:     !inRange,
	}
}
