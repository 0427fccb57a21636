// Package solver implements the minimum-lap-time velocity profile relaxation.
//
// Starting from the traction/rpm-limited speeds at the corner apexes, the
// solver alternates two phases around the circular sample sequence:
//
//  1. Accelerating - integrate forward from an apex, taking at each step the
//     lowest of the four candidate speeds (torque-, combined-traction-,
//     lateral-traction-, and rpm-limited), until holding the next corner at
//     the carried speed would exceed the friction circle.
//
//  2. Braking - integrate backward from the next apex until the backward
//     profile meets the forward one; the meeting sample is the corner's
//     brake point.
//
// The alternation terminates when every sample holds a resolved velocity.
package solver

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/apexsim/lapsim-engine/internal/powertrain"
	"github.com/apexsim/lapsim-engine/internal/track"
)

// Phase is the integration direction of the relaxation.
type Phase int

const (
	Accelerating Phase = iota
	Braking
)

func (p Phase) String() string {
	if p == Braking {
		return "braking"
	}
	return "accelerating"
}

// ConvergenceError reports that the forward/backward alternation did not
// settle within the iteration cap.
type ConvergenceError struct {
	Iterations int
	Reason     string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("velocity profile did not converge after %d iterations: %s",
		e.Iterations, e.Reason)
}

// LimitKind identifies which candidate bound produced a sample's velocity.
type LimitKind int

const (
	LimitNone     LimitKind = iota
	LimitTorque             // powertrain torque
	LimitTraction           // combined friction circle
	LimitLateral            // lateral traction at the next sample's radius
	LimitRPM                // engine/motor rpm ceiling
)

func (k LimitKind) String() string {
	switch k {
	case LimitTorque:
		return "torque"
	case LimitTraction:
		return "traction"
	case LimitLateral:
		return "lateral"
	case LimitRPM:
		return "rpm"
	default:
		return "none"
	}
}

// EnergySplit is the per-sample energy pair.
type EnergySplit struct {
	ICE float64 `json:"ice"` // combustion energy, J (fuel side)
	EM  float64 `json:"em"`  // electric energy, J (battery side)
}

// EfficiencyWarning reports a fuel-efficiency lookup whose engine operating
// point fell outside the known map; the energy at that sample is a
// nearest-point estimate rather than an interpolation.
type EfficiencyWarning struct {
	Sample int     `json:"sample"`
	Gear   int     `json:"gear"`
	Power  float64 `json:"power"` // ICE power share at the sample, W
}

// Profile is the resolved lap: one entry per track sample.
type Profile struct {
	V        []float64           `json:"v"`    // m/s
	Gear     []int               `json:"gear"` // selected gear
	Time     []float64           `json:"time"` // segment time increment, s
	Energy   []EnergySplit       `json:"energy"`
	Bound    []LimitKind         `json:"bound"` // binding limit per sample
	Warnings []EfficiencyWarning `json:"warnings,omitempty"`
}

// LapTime returns the sum of the per-sample time increments.
func (p *Profile) LapTime() float64 {
	return lo.Sum(p.Time)
}

// Options tunes the solver. The zero value is usable.
type Options struct {
	// IterationCap bounds the total number of relaxation steps before the
	// solver gives up with a ConvergenceError. Zero means 20 × steps.
	IterationCap int
	// Logger receives state-transition narration at Debug level.
	// Nil means no logging.
	Logger *zap.Logger
}

// Solve computes the velocity profile over the apex-anchored sample arrays.
// d and c must be the rotated structures returned by track.FindApexes, so
// that sample 0 is an apex.
func Solve(d *track.Discretized, c *track.Curvature, apexes track.ApexSet,
	pt powertrain.Model, opts Options,
) (*Profile, error) {
	n := d.Steps()
	if len(apexes) == 0 {
		return nil, &ConvergenceError{Reason: "no apexes to anchor the relaxation"}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	iterCap := opts.IterationCap
	if iterCap <= 0 {
		iterCap = 20 * n
	}

	ds := d.DS
	alim := pt.Mu() * powertrain.Gravity

	p := &Profile{
		V:      make([]float64, n),
		Gear:   make([]int, n),
		Time:   make([]float64, n),
		Energy: make([]EnergySplit, n),
		Bound:  make([]LimitKind, n),
	}

	// Apex initialisation: each apex holds the lower of the lateral-traction
	// speed and the rpm-ceiling speed, with the gear the powertrain selects
	// at that speed. Sample 0 always starts in first gear.
	for _, i := range apexes {
		vTrac := math.Sqrt(alim * c.Radius[i])
		lim := pt.Limit(vTrac, 0)
		vRPM := powertrain.WheelSpeed(lim.WheelMaxRPM, pt.WheelRadius())
		p.V[i] = math.Min(vTrac, vRPM)
		p.Gear[i] = lim.Gear
	}
	p.Gear[0] = 1

	phase := Accelerating
	i := 0
	apexIdx := 0

relax:
	for iter := 0; ; iter++ {
		if iter >= iterCap {
			return nil, &ConvergenceError{
				Iterations: iter,
				Reason:     fmt.Sprintf("still %s at sample %d", phase, i),
			}
		}

		switch phase {
		case Accelerating:
			next := (i + 1) % n
			if p.V[next] != 0 {
				// Reached the far side of an already-resolved apex without
				// braking: advance the apex cursor, or stop once the whole
				// lap is resolved.
				if lo.Min(p.V) > 0 {
					logger.Debug("reached end of lap", zap.Int("sample", i))
					break relax
				}
				i = next
				apexIdx = (apexIdx + 1) % len(apexes)
				continue
			}

			ap := p.V[i] * p.V[i] / c.Radius[next]
			if ap < alim {
				st := calcStep(pt, p.V[i], ap, p.Gear[i], c.Radius[next], ds, alim)
				p.apply(next, st)
				i = next
				continue
			}

			// Traction insufficient to hold the corner at the carried
			// speed: brake backward from the next apex.
			phase = Braking
			apexIdx = (apexIdx + 1) % len(apexes)
			logger.Debug("losing traction, braking back from next apex",
				zap.Int("sample", i), zap.Int("apex", apexes[apexIdx]))
			i = apexes[apexIdx]

		case Braking:
			prev := (i - 1 + n) % n
			ap := p.V[i] * p.V[i] / c.Radius[prev]

			if p.V[prev] == 0 {
				st := calcStep(pt, p.V[i], ap, p.Gear[i], c.Radius[prev], ds, alim)
				p.apply(prev, st)
				i = prev
				continue
			}

			if alim < ap {
				// The predecessor is itself an apex: traction lost going
				// backward, resume forward from the current apex.
				phase = Accelerating
				logger.Debug("losing traction backward, resuming forward",
					zap.Int("apex", apexes[apexIdx]))
				i = apexes[apexIdx]
				continue
			}

			st := calcStep(pt, p.V[i], ap, p.Gear[i], c.Radius[prev], ds, alim)
			if st.v < p.V[prev] {
				// Still tightening the envelope: overwrite the forward
				// value and keep braking backward.
				p.apply(prev, st)
				i = prev
				continue
			}

			// Profiles intersected: prev is the corner's brake point.
			phase = Accelerating
			logger.Debug("brake point found, resuming forward",
				zap.Int("sample", prev), zap.Int("apex", apexes[apexIdx]))
			i = apexes[apexIdx]
		}
	}

	p.accountApexSegments(d, apexes, pt)
	p.zeroDeceleration()

	return p, nil
}

// apply writes a step result at sample idx.
func (p *Profile) apply(idx int, st stepResult) {
	p.V[idx] = st.v
	p.Gear[idx] = st.gear
	p.Energy[idx] = st.energy
	p.Time[idx] = st.t
	p.Bound[idx] = st.kind
	if st.warn {
		p.Warnings = append(p.Warnings, EfficiencyWarning{
			Sample: idx,
			Gear:   st.gear,
			Power:  st.powerICE,
		})
	}
}

// accountApexSegments computes energy and time for the segment immediately
// following each apex. Both end velocities are already fixed there, so the
// acceleration comes from the kinematic identity a = (v₁² − v₀²)/(2·ds)
// instead of a limit search.
func (p *Profile) accountApexSegments(d *track.Discretized, apexes track.ApexSet, pt powertrain.Model) {
	n := d.Steps()
	for _, i := range apexes {
		next := (i + 1) % n
		v0, v1 := p.V[i], p.V[next]
		if v0+v1 == 0 {
			continue
		}
		a := (v1*v1 - v0*v0) / (2 * d.DS)
		t := 2 * d.DS / (v0 + v1)
		p.Time[i] = t

		power := pt.Mass() * a * v0
		powerICE := power * pt.PowerSplit()
		powerEM := power - powerICE

		eICE, inRange := pt.ICEEnergy(p.Gear[i], v0, powerICE, t)
		if !inRange {
			p.Warnings = append(p.Warnings, EfficiencyWarning{
				Sample: i, Gear: p.Gear[i], Power: powerICE,
			})
		}
		p.Energy[i] = EnergySplit{
			ICE: eICE,
			EM:  powerEM * t / pt.MotorEfficiency(),
		}
	}
}

// zeroDeceleration clears the energy at every sample whose velocity is about
// to decrease: coasting and braking consume no propulsive energy here. Any
// efficiency warnings recorded for those samples go with the discarded
// energy, so the reported warnings always refer to energy that survived.
func (p *Profile) zeroDeceleration() {
	n := len(p.V)
	zeroed := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		if p.V[i] > p.V[(i+1)%n] {
			p.Energy[i] = EnergySplit{}
			zeroed[i] = true
		}
	}
	if len(zeroed) == 0 {
		return
	}
	p.Warnings = lo.Reject(p.Warnings, func(w EfficiencyWarning, _ int) bool {
		return zeroed[w.Sample]
	})
}
