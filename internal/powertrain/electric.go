package powertrain

import "fmt"

// MotorParams are the electric motor parameters shared by the electric and
// hybrid powertrains.
type MotorParams struct {
	TorqueMax  float64 `json:"torque_max"`  // peak torque, Nm
	PowerMax   float64 `json:"power_max"`   // peak power, W
	MaxRPM     float64 `json:"max_rpm"`     // motor rpm ceiling
	FinalDrive float64 `json:"final_drive"` // motor revolutions per wheel revolution
	Efficiency float64 `json:"efficiency"`  // drive efficiency fraction (0, 1]
}

func (m MotorParams) validate() error {
	if m.TorqueMax <= 0 {
		return fmt.Errorf("motor: torque_max must be positive, got %g", m.TorqueMax)
	}
	if m.MaxRPM <= 0 {
		return fmt.Errorf("motor: max_rpm must be positive, got %g", m.MaxRPM)
	}
	if m.FinalDrive <= 0 {
		return fmt.Errorf("motor: final_drive must be positive, got %g", m.FinalDrive)
	}
	if m.Efficiency <= 0 || m.Efficiency > 1 {
		return fmt.Errorf("motor: efficiency must be in (0, 1], got %g", m.Efficiency)
	}
	return nil
}

// ElectricParams is the JSON shape of an electric-only powertrain.
type ElectricParams struct {
	MassKg      float64     `json:"mass"`         // kg
	Mu          float64     `json:"mu"`           // tire friction coefficient
	WheelRadius float64     `json:"wheel_radius"` // metres
	Motor       MotorParams `json:"motor"`
}

// Electric is a single-speed electric powertrain. The usable acceleration is
// constant (peak motor torque at the wheel) and the speed ceiling comes from
// the motor rpm limit through the final drive.
type Electric struct {
	p ElectricParams
}

// NewElectric validates the parameters and returns the powertrain.
func NewElectric(p ElectricParams) (*Electric, error) {
	if p.MassKg <= 0 {
		return nil, fmt.Errorf("electric powertrain: mass must be positive, got %g", p.MassKg)
	}
	if p.Mu <= 0 {
		return nil, fmt.Errorf("electric powertrain: mu must be positive, got %g", p.Mu)
	}
	if p.WheelRadius <= 0 {
		return nil, fmt.Errorf("electric powertrain: wheel_radius must be positive, got %g", p.WheelRadius)
	}
	if err := p.Motor.validate(); err != nil {
		return nil, fmt.Errorf("electric powertrain: %w", err)
	}
	return &Electric{p: p}, nil
}

func (e *Electric) Limit(_ float64, _ int) Limit {
	torqueAtWheel := e.p.Motor.TorqueMax * e.p.Motor.FinalDrive
	return Limit{
		Accel:       torqueAtWheel / (e.p.WheelRadius * e.p.MassKg),
		WheelMaxRPM: e.p.Motor.MaxRPM / e.p.Motor.FinalDrive,
		Gear:        1,
	}
}

func (e *Electric) Mass() float64            { return e.p.MassKg }
func (e *Electric) Mu() float64              { return e.p.Mu }
func (e *Electric) WheelRadius() float64     { return e.p.WheelRadius }
func (e *Electric) PowerSplit() float64      { return 0 }
func (e *Electric) MotorEfficiency() float64 { return e.p.Motor.Efficiency }

// ICEEnergy is always zero for an electric powertrain.
func (e *Electric) ICEEnergy(_ int, _, _, _ float64) (float64, bool) { return 0, true }
