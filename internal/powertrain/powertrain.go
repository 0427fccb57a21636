// Package powertrain defines the Model contract the velocity solver depends
// on (limiting acceleration, rpm ceiling, and gear selection) along with
// the built-in electric and hybrid implementations.
//
// Adding a new powertrain requires only implementing Model and registering it
// in the JSON discriminator below; the solver itself never needs to change.
package powertrain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Gravity is the gravitational acceleration, m/s².
const Gravity = 9.81

// Limit is the powertrain's answer for a single solver step.
type Limit struct {
	Accel       float64 // torque-limited acceleration at the wheel, m/s²
	WheelMaxRPM float64 // rpm ceiling expressed at the wheel
	Gear        int     // selected gear; always 1 for single-speed powertrains
}

// Model is the contract every powertrain implementation must satisfy.
// Velocities are in m/s, distances in metres, power in watts, torque in Nm.
type Model interface {
	// Limit evaluates the powertrain at speed v in the given gear and
	// returns the usable acceleration, the wheel-rpm ceiling, and the gear
	// chosen for the next step. gear 0 means "not yet in gear" (apex
	// initialisation).
	Limit(v float64, gear int) Limit

	// Mass returns the vehicle mass, kg.
	Mass() float64

	// Mu returns the tire friction coefficient.
	Mu() float64

	// WheelRadius returns the wheel radius, metres.
	WheelRadius() float64

	// PowerSplit returns the fraction of propulsive power supplied by the
	// combustion engine. Zero for electric-only powertrains.
	PowerSplit() float64

	// MotorEfficiency returns the electric motor efficiency fraction (0, 1].
	MotorEfficiency() float64

	// ICEEnergy returns the fuel energy consumed delivering power watts for
	// t seconds at speed v in the given gear. The bool is false when the
	// engine operating point fell outside the fuel-efficiency map and the
	// returned energy is a nearest-point estimate.
	ICEEnergy(gear int, v, power, t float64) (float64, bool)
}

// Discriminator strings for the JSON "type" field.
const (
	ElectricModelName = "electric"
	HybridModelName   = "hybrid"
)

// Descriptor wraps a Model for JSON decoding. The payload must carry a
// "type" discriminator selecting the concrete implementation; the remaining
// fields are forwarded to that implementation's parameter struct.
//
// Supported types: "electric", "hybrid".
type Descriptor struct {
	Model Model
}

type modelDisc struct {
	Type string `json:"type"`
}

// UnmarshalJSON implements json.Unmarshaler for Descriptor.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var disc modelDisc
	if err := json.Unmarshal(data, &disc); err != nil {
		return fmt.Errorf("reading powertrain type discriminator: %w", err)
	}

	switch disc.Type {
	case ElectricModelName:
		var p ElectricParams
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("parsing electric powertrain: %w", err)
		}
		m, err := NewElectric(p)
		if err != nil {
			return err
		}
		d.Model = m
	case HybridModelName:
		var p HybridParams
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("parsing hybrid powertrain: %w", err)
		}
		m, err := NewHybrid(p)
		if err != nil {
			return err
		}
		d.Model = m
	default:
		return fmt.Errorf("unknown powertrain type %q", disc.Type)
	}
	return nil
}

// WheelRPM converts a road speed (m/s) to wheel revolutions per minute.
func WheelRPM(v, radius float64) float64 {
	return v / (radius * 2 * math.Pi) * 60
}

// WheelSpeed converts a wheel rpm back to road speed (m/s).
func WheelSpeed(rpm, radius float64) float64 {
	return rpm / 60 * (radius * 2 * math.Pi)
}
