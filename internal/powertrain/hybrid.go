package powertrain

import (
	"fmt"
	"math"

	"github.com/apexsim/lapsim-engine/internal/interp"
)

// redlineFraction caps usable engine rpm below the hard limit when choosing
// a gear, so the shift happens slightly before the redline.
const redlineFraction = 0.95

// PowerSample is one point of an engine power curve.
type PowerSample struct {
	RPM   float64 `json:"rpm"`
	Power float64 `json:"power"` // W
}

// EfficiencySample is one point of an engine fuel-efficiency map.
type EfficiencySample struct {
	Speed  float64 `json:"speed"`  // engine angular speed, rad/s
	Torque float64 `json:"torque"` // Nm
	Eta    float64 `json:"eta"`    // efficiency, percent
}

// EngineParams is the JSON shape of a combustion engine.
type EngineParams struct {
	MinRPM        float64            `json:"min_rpm"`
	MaxRPM        float64            `json:"max_rpm"`
	FinalDrive    float64            `json:"final_drive"`
	PrimaryRatio  float64            `json:"primary_ratio"`
	GearRatios    []float64          `json:"gear_ratios"` // gear 1 first
	PowerCurve    []PowerSample      `json:"power_curve"`
	EfficiencyMap []EfficiencySample `json:"efficiency_map"`
}

// HybridParams is the JSON shape of a hybrid powertrain.
type HybridParams struct {
	MassKg      float64      `json:"mass"`         // kg
	Mu          float64      `json:"mu"`           // tire friction coefficient
	WheelRadius float64      `json:"wheel_radius"` // metres
	PowerSplit  float64      `json:"power_split"`  // ICE fraction of propulsive power [0, 1]
	Engine      EngineParams `json:"engine"`
	Motor       MotorParams  `json:"motor"`
}

// Hybrid combines a geared combustion engine with a single-speed electric
// motor. Gear selection picks the lowest gear whose engine rpm lies in
// [min_rpm, redlineFraction·max_rpm); below idle the current gear is held
// with idle power, and with no usable gear the engine is pinned at redline.
type Hybrid struct {
	p     HybridParams
	power *interp.Spline // engine power over rpm
	eff   *interp.Surface
}

// NewHybrid validates the parameters, fits the power curve spline and the
// fuel-efficiency surface, and returns the powertrain.
func NewHybrid(p HybridParams) (*Hybrid, error) {
	if p.MassKg <= 0 {
		return nil, fmt.Errorf("hybrid powertrain: mass must be positive, got %g", p.MassKg)
	}
	if p.Mu <= 0 {
		return nil, fmt.Errorf("hybrid powertrain: mu must be positive, got %g", p.Mu)
	}
	if p.WheelRadius <= 0 {
		return nil, fmt.Errorf("hybrid powertrain: wheel_radius must be positive, got %g", p.WheelRadius)
	}
	if p.PowerSplit < 0 || p.PowerSplit > 1 {
		return nil, fmt.Errorf("hybrid powertrain: power_split must be in [0, 1], got %g", p.PowerSplit)
	}
	if err := p.Motor.validate(); err != nil {
		return nil, fmt.Errorf("hybrid powertrain: %w", err)
	}

	e := p.Engine
	if e.MinRPM <= 0 || e.MaxRPM <= e.MinRPM {
		return nil, fmt.Errorf("hybrid powertrain: engine rpm range [%g, %g] invalid", e.MinRPM, e.MaxRPM)
	}
	if e.FinalDrive <= 0 || e.PrimaryRatio <= 0 {
		return nil, fmt.Errorf("hybrid powertrain: engine drive ratios must be positive")
	}
	if len(e.GearRatios) == 0 {
		return nil, fmt.Errorf("hybrid powertrain: engine needs at least one gear ratio")
	}
	for i, g := range e.GearRatios {
		if g <= 0 {
			return nil, fmt.Errorf("hybrid powertrain: gear ratio %d must be positive, got %g", i+1, g)
		}
	}
	if len(e.PowerCurve) < 2 {
		return nil, fmt.Errorf("hybrid powertrain: engine power curve needs at least 2 points")
	}

	rpms := make([]float64, len(e.PowerCurve))
	powers := make([]float64, len(e.PowerCurve))
	for i, s := range e.PowerCurve {
		rpms[i] = s.RPM
		powers[i] = s.Power
	}
	powerSpline, err := interp.NewSpline(rpms, powers)
	if err != nil {
		return nil, fmt.Errorf("hybrid powertrain: power curve: %w", err)
	}

	xs := make([]float64, len(e.EfficiencyMap))
	ys := make([]float64, len(e.EfficiencyMap))
	zs := make([]float64, len(e.EfficiencyMap))
	for i, s := range e.EfficiencyMap {
		xs[i], ys[i], zs[i] = s.Speed, s.Torque, s.Eta
	}
	effSurface, err := interp.NewSurface(xs, ys, zs)
	if err != nil {
		return nil, fmt.Errorf("hybrid powertrain: efficiency map: %w", err)
	}

	return &Hybrid{p: p, power: powerSpline, eff: effSurface}, nil
}

// overall returns the total engine-to-wheel ratio for the 1-based gear.
func (h *Hybrid) overall(gear int) float64 {
	return h.p.Engine.GearRatios[gear-1] * h.p.Engine.FinalDrive * h.p.Engine.PrimaryRatio
}

// powerAt evaluates the engine power curve, clamped to its rpm range.
func (h *Hybrid) powerAt(rpm float64) float64 {
	if rpm < h.power.MinX() {
		rpm = h.power.MinX()
	}
	if rpm > h.power.MaxX() {
		rpm = h.power.MaxX()
	}
	return h.power.Eval(rpm)
}

func (h *Hybrid) Limit(v float64, gear int) Limit {
	e := h.p.Engine
	rpm0 := WheelRPM(v, h.p.WheelRadius)

	// Engine rpm in every gear at the current wheel speed.
	rpmAt := make([]float64, len(e.GearRatios))
	for i := range e.GearRatios {
		rpmAt[i] = rpm0 * h.overall(i+1)
	}

	var (
		gearNew   int
		rpmAtGear float64
		powerICE  float64
	)
	switch {
	case gear == 1 && rpmAt[0] < e.MinRPM:
		// Entering below idle: hold first gear and use idle power
		// (constant extrapolation toward v = 0).
		gearNew = gear
		rpmAtGear = rpmAt[0]
		powerICE = h.powerAt(e.MinRPM)
	default:
		gearNew = 0
		for i, rpm := range rpmAt {
			if rpm > e.MinRPM && rpm < redlineFraction*e.MaxRPM {
				gearNew = i + 1
				rpmAtGear = rpm
				break
			}
		}
		if gearNew == 0 {
			// No gear keeps the engine in band: pinned at redline.
			gearNew = gear
			if gearNew < 1 {
				gearNew = 1
			}
			rpmAtGear = e.MaxRPM
		}
		powerICE = h.powerAt(rpmAtGear)
	}

	// Power at rpm → torque at the engine → torque at the wheel through the
	// chosen gear ratio → force at the contact patch → acceleration.
	var torqueICEAtWheel float64
	if omega := rpmAtGear / 60 * 2 * math.Pi; omega != 0 {
		torqueICEAtWheel = powerICE / omega * e.GearRatios[gearNew-1]
	}
	torqueEMAtWheel := h.p.Motor.TorqueMax * h.p.Motor.FinalDrive
	accel := (torqueEMAtWheel + torqueICEAtWheel) / (h.p.WheelRadius * h.p.MassKg)

	// The rpm ceiling is whichever of engine (through the full ratio) and
	// motor runs out first, expressed at the wheel.
	wheelMaxICE := e.MaxRPM / h.overall(gearNew)
	wheelMaxEM := h.p.Motor.MaxRPM / h.p.Motor.FinalDrive

	return Limit{
		Accel:       accel,
		WheelMaxRPM: math.Min(wheelMaxICE, wheelMaxEM),
		Gear:        gearNew,
	}
}

func (h *Hybrid) Mass() float64            { return h.p.MassKg }
func (h *Hybrid) Mu() float64              { return h.p.Mu }
func (h *Hybrid) WheelRadius() float64     { return h.p.WheelRadius }
func (h *Hybrid) PowerSplit() float64      { return h.p.PowerSplit }
func (h *Hybrid) MotorEfficiency() float64 { return h.p.Motor.Efficiency }

// ICEEnergy converts delivered engine power over t seconds into fuel energy
// through the efficiency map. The engine operating point is (angular speed,
// torque) at the given gear; points below the map's lower bounds are clamped
// (constant extrapolation for near-zero speed), points outside its convex
// hull use the nearest map value and report false.
func (h *Hybrid) ICEEnergy(gear int, v, power, t float64) (float64, bool) {
	if power == 0 {
		return 0, true
	}
	if gear < 1 {
		gear = 1
	}

	omega := v / h.p.WheelRadius * h.overall(gear) // engine angular speed, rad/s
	if omega < h.eff.MinX() {
		omega = h.eff.MinX()
	}
	torque := power / omega

	eta, inRange := h.eff.At(omega, torque)
	return power * 100 / eta * t, inRange
}
