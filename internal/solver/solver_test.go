package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexsim/lapsim-engine/internal/powertrain"
	"github.com/apexsim/lapsim-engine/internal/track"
)

func electricModel(t *testing.T, torqueMax float64) powertrain.Model {
	t.Helper()
	m, err := powertrain.NewElectric(powertrain.ElectricParams{
		MassKg:      250,
		Mu:          1.0,
		WheelRadius: 0.23,
		Motor: powertrain.MotorParams{
			TorqueMax:  torqueMax,
			PowerMax:   80e3,
			MaxRPM:     6500,
			FinalDrive: 3.5,
			Efficiency: 0.9,
		},
	})
	require.NoError(t, err)
	return m
}

func ellipseTrack(t *testing.T) (*track.Discretized, *track.Curvature, track.ApexSet) {
	t.Helper()
	d, err := track.Discretize(track.Ellipse(300, 200, 40), 50)
	require.NoError(t, err)
	c := track.EstimateCurvature(d)
	apexes, d, c := track.FindApexes(d, c)
	return d, c, apexes
}

func TestCalcStepTorqueBound(t *testing.T) {
	// A weak motor binds before traction on a straight.
	pt := electricModel(t, 60)
	alim := pt.Mu() * powertrain.Gravity

	st := calcStep(pt, 20, 0, 1, math.Inf(1), 20, alim)
	assert.Equal(t, LimitTorque, st.kind)

	accel := 60 * 3.5 / (0.23 * 250)
	assert.InDelta(t, math.Sqrt(2*accel*20+400), st.v, 1e-9)
	assert.Equal(t, 1, st.gear)
}

func TestCalcStepTractionBound(t *testing.T) {
	// A strong motor on a straight is held by the friction circle instead.
	pt := electricModel(t, 240)
	alim := pt.Mu() * powertrain.Gravity

	st := calcStep(pt, 20, 0, 1, math.Inf(1), 20, alim)
	assert.Equal(t, LimitTraction, st.kind)
	assert.InDelta(t, math.Sqrt(2*alim*20+400), st.v, 1e-9)
}

func TestCalcStepLateralBound(t *testing.T) {
	// A tight target radius caps the speed below every longitudinal limit.
	pt := electricModel(t, 240)
	alim := pt.Mu() * powertrain.Gravity

	st := calcStep(pt, 10, 5, 1, 30, 20, alim)
	assert.Equal(t, LimitLateral, st.kind)
	assert.InDelta(t, math.Sqrt(alim*30), st.v, 1e-9)
}

func TestCalcStepRPMBound(t *testing.T) {
	// Near the motor ceiling the rpm candidate wins.
	pt := electricModel(t, 240)
	alim := pt.Mu() * powertrain.Gravity

	vCeil := powertrain.WheelSpeed(6500/3.5, 0.23)
	st := calcStep(pt, vCeil-0.5, 0, 1, math.Inf(1), 20, alim)
	assert.Equal(t, LimitRPM, st.kind)
	assert.InDelta(t, vCeil, st.v, 1e-9)
}

func TestCalcStepSaturatedLateralNotBinding(t *testing.T) {
	// With the friction circle fully spent laterally the combined-traction
	// candidate must drop out instead of producing NaN.
	pt := electricModel(t, 60)
	alim := pt.Mu() * powertrain.Gravity

	st := calcStep(pt, 20, alim, 1, math.Inf(1), 20, alim)
	assert.Equal(t, LimitTorque, st.kind)
	assert.False(t, math.IsNaN(st.v))
}

func TestCalcStepTimeIdentity(t *testing.T) {
	// t = 2·ds/(v+vin) must agree with (v-vin)/a whenever a is nonzero.
	pt := electricModel(t, 240)
	alim := pt.Mu() * powertrain.Gravity

	st := calcStep(pt, 20, 0, 1, math.Inf(1), 20, alim)
	a := (st.v*st.v - 400) / (2 * 20)
	require.NotZero(t, a)
	assert.InDelta(t, (st.v-20)/a, st.t, 1e-9)
}

func TestSolveEllipseRespectsLimits(t *testing.T) {
	d, c, apexes := ellipseTrack(t)
	pt := electricModel(t, 240)
	alim := pt.Mu() * powertrain.Gravity
	vCeil := powertrain.WheelSpeed(6500/3.5, 0.23)

	p, err := Solve(d, c, apexes, pt, Options{})
	require.NoError(t, err)

	require.Len(t, p.V, d.Steps())
	for i, v := range p.V {
		require.Greater(t, v, 0.0, "sample %d unresolved", i)
		assert.LessOrEqual(t, v, math.Sqrt(alim*c.Radius[i])*(1+1e-9),
			"lateral traction exceeded at sample %d", i)
		assert.LessOrEqual(t, v, vCeil*(1+1e-9), "rpm ceiling exceeded at sample %d", i)
	}

	assert.Greater(t, p.LapTime(), 0.0)
	total := 0.0
	for _, dt := range p.Time {
		assert.GreaterOrEqual(t, dt, 0.0)
		total += dt
	}
	assert.InDelta(t, total, p.LapTime(), 1e-9)
}

func TestSolveApexHoldsCornerSpeed(t *testing.T) {
	d, c, apexes := ellipseTrack(t)
	pt := electricModel(t, 240)
	alim := pt.Mu() * powertrain.Gravity

	p, err := Solve(d, c, apexes, pt, Options{})
	require.NoError(t, err)

	for _, i := range apexes {
		assert.InDelta(t, math.Sqrt(alim*c.Radius[i]), p.V[i], 1e-9,
			"apex %d speed", i)
	}
}

func TestSolveDeterministic(t *testing.T) {
	d, c, apexes := ellipseTrack(t)
	pt := electricModel(t, 240)

	p1, err := Solve(d, c, apexes, pt, Options{})
	require.NoError(t, err)
	p2, err := Solve(d, c, apexes, pt, Options{})
	require.NoError(t, err)

	assert.Equal(t, p1.V, p2.V)
	assert.Equal(t, p1.Gear, p2.Gear)
	assert.Equal(t, p1.Time, p2.Time)
	assert.Equal(t, p1.Energy, p2.Energy)
}

func TestSolveDecelerationCostsNoEnergy(t *testing.T) {
	d, c, apexes := ellipseTrack(t)
	pt := electricModel(t, 240)

	p, err := Solve(d, c, apexes, pt, Options{})
	require.NoError(t, err)

	n := len(p.V)
	braking := 0
	for i := 0; i < n; i++ {
		if p.V[i] > p.V[(i+1)%n] {
			assert.Zero(t, p.Energy[i], "braking sample %d must cost nothing", i)
			braking++
		}
	}
	assert.Greater(t, braking, 0, "an ellipse lap must contain braking samples")
}

func TestSolveIterationCap(t *testing.T) {
	d, c, apexes := ellipseTrack(t)
	pt := electricModel(t, 240)

	_, err := Solve(d, c, apexes, pt, Options{IterationCap: 1})
	require.Error(t, err)
	var convErr *ConvergenceError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, 1, convErr.Iterations)
}

func TestSolveNoApexes(t *testing.T) {
	d, c, _ := ellipseTrack(t)
	pt := electricModel(t, 240)

	_, err := Solve(d, c, nil, pt, Options{})
	var convErr *ConvergenceError
	require.True(t, errors.As(err, &convErr))
}

func hybridModel(t *testing.T) powertrain.Model {
	t.Helper()
	var effMap []powertrain.EfficiencySample
	for _, speed := range []float64{100, 500, 1000} {
		for _, torque := range []float64{20, 100, 200} {
			effMap = append(effMap, powertrain.EfficiencySample{Speed: speed, Torque: torque, Eta: 30})
		}
	}
	m, err := powertrain.NewHybrid(powertrain.HybridParams{
		MassKg:      800,
		Mu:          1.3,
		WheelRadius: 0.3,
		PowerSplit:  0.7,
		Engine: powertrain.EngineParams{
			MinRPM:       2000,
			MaxRPM:       10000,
			FinalDrive:   3.0,
			PrimaryRatio: 1.5,
			GearRatios:   []float64{2.5, 1.8, 1.2},
			PowerCurve: []powertrain.PowerSample{
				{RPM: 1000, Power: 20e3},
				{RPM: 4000, Power: 50e3},
				{RPM: 7000, Power: 70e3},
				{RPM: 10000, Power: 60e3},
			},
			EfficiencyMap: effMap,
		},
		Motor: powertrain.MotorParams{
			TorqueMax:  150,
			PowerMax:   30e3,
			MaxRPM:     10000,
			FinalDrive: 4,
			Efficiency: 0.9,
		},
	})
	require.NoError(t, err)
	return m
}

func TestSolveEllipseHybrid(t *testing.T) {
	d, c, apexes := ellipseTrack(t)
	pt := hybridModel(t)

	p, err := Solve(d, c, apexes, pt, Options{})
	require.NoError(t, err)

	iceTotal := 0.0
	for i := range p.V {
		require.Greater(t, p.V[i], 0.0, "sample %d unresolved", i)
		assert.GreaterOrEqual(t, p.Gear[i], 1, "sample %d has no gear", i)
		iceTotal += p.Energy[i].ICE
	}
	// With a 70% combustion split the accelerating samples must burn fuel.
	assert.Greater(t, iceTotal, 0.0)
}

func TestSolveUniformCurvatureLap(t *testing.T) {
	// Every sample an apex (a perfect circle): the relaxation is a no-op and
	// the lap runs at constant corner speed with zero propulsive energy.
	n := 8
	radius := 100.0
	d := &track.Discretized{
		Points:    make([]track.Point, n),
		Elevation: make([]float64, n),
		DS:        10,
	}
	c := &track.Curvature{
		DPDS:   make([]track.Point, n),
		D2PDS2: make([]track.Point, n),
		Radius: make([]float64, n),
	}
	apexes := make(track.ApexSet, n)
	for i := 0; i < n; i++ {
		c.Radius[i] = radius
		apexes[i] = i
	}

	pt := electricModel(t, 240)
	alim := pt.Mu() * powertrain.Gravity
	want := math.Sqrt(alim * radius)

	p, err := Solve(d, c, apexes, pt, Options{})
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		assert.InDelta(t, want, p.V[i], 1e-9)
		assert.InDelta(t, d.DS/want, p.Time[i], 1e-9)
		assert.Zero(t, p.Energy[i])
	}
	assert.InDelta(t, float64(n)*d.DS/want, p.LapTime(), 1e-9)
}

func TestFindBrakePoints(t *testing.T) {
	// Circular profile rising to a single peak at index 3.
	brakes := FindBrakePoints([]float64{2, 3, 4, 5, 4, 3})
	assert.Equal(t, []int{3}, brakes)
}

func TestFindBrakePointsConstantProfile(t *testing.T) {
	// No variation: the flip array is identically zero and every index ties.
	brakes := FindBrakePoints([]float64{5, 5, 5, 5})
	assert.Equal(t, []int{0, 1, 2, 3}, brakes)
}

func TestZeroDecelerationDropsWarnings(t *testing.T) {
	// Warnings recorded while resolving samples whose energy is later
	// discarded must not survive into the reported profile.
	p := &Profile{
		V:      []float64{10, 12, 11, 10},
		Energy: []EnergySplit{{EM: 1}, {EM: 2}, {EM: 3}, {EM: 4}},
		Warnings: []EfficiencyWarning{
			{Sample: 0, Gear: 1, Power: 5e3},
			{Sample: 1, Gear: 1, Power: 6e3},
		},
	}

	p.zeroDeceleration()

	// Samples 1 and 2 decelerate: their energy is cleared and sample 1's
	// warning goes with it; sample 0 keeps both.
	assert.Zero(t, p.Energy[1])
	assert.Zero(t, p.Energy[2])
	assert.NotZero(t, p.Energy[0])
	require.Len(t, p.Warnings, 1)
	assert.Equal(t, 0, p.Warnings[0].Sample)
}

func TestSolveWarningsOnlyForReportedEnergy(t *testing.T) {
	d, c, apexes := ellipseTrack(t)
	pt := hybridModel(t)

	p, err := Solve(d, c, apexes, pt, Options{})
	require.NoError(t, err)

	for _, w := range p.Warnings {
		assert.NotZero(t, p.Energy[w.Sample],
			"warning for sample %d whose energy was discarded", w.Sample)
	}
}

func TestFindBrakePointsPeakAtStart(t *testing.T) {
	// Peak at index 0 exercises the maximum seeding on the first flip.
	brakes := FindBrakePoints([]float64{5, 4, 3, 2, 3, 4})
	assert.Equal(t, []int{0}, brakes)
}

func TestFindBrakePointsTwoCorners(t *testing.T) {
	// Two accelerate/brake cycles: one brake point per corner approach.
	v := []float64{10, 14, 18, 15, 12, 10, 13, 16, 19, 14}
	brakes := FindBrakePoints(v)
	assert.Equal(t, []int{2, 8}, brakes)
}
