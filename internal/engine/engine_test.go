package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexsim/lapsim-engine/internal/powertrain"
	"github.com/apexsim/lapsim-engine/internal/track"
)

func electricInput(t *testing.T) SimulationInput {
	t.Helper()
	m, err := powertrain.NewElectric(powertrain.ElectricParams{
		MassKg:      250,
		Mu:          1.0,
		WheelRadius: 0.23,
		Motor: powertrain.MotorParams{
			TorqueMax:  240,
			PowerMax:   80e3,
			MaxRPM:     6500,
			FinalDrive: 3.5,
			Efficiency: 0.9,
		},
	})
	require.NoError(t, err)

	return SimulationInput{
		Steps:      50,
		Track:      track.Ellipse(300, 200, 40),
		Powertrain: powertrain.Descriptor{Model: m},
	}
}

func TestLapSimRun(t *testing.T) {
	sim, err := NewLapSim(electricInput(t), nil)
	require.NoError(t, err)

	res, err := sim.Run()
	require.NoError(t, err)

	assert.Greater(t, res.LapTime, 0.0)
	assert.Greater(t, res.AvgSpeed, 0.0)
	require.Len(t, res.V, 50)
	require.Len(t, res.Time, 50)
	require.Len(t, res.Energy, 50)

	// An ellipse lap anchors on two apexes and brakes into each corner.
	assert.Len(t, res.Apexes, 2)
	assert.Equal(t, 0, res.Apexes[0])
	assert.NotEmpty(t, res.BrakePoints)

	// The electric powertrain draws energy but burns no fuel.
	assert.Greater(t, res.TotalEnergy, 0.0)
	for _, e := range res.Energy {
		assert.Zero(t, e.ICE)
	}

	// The returned track is the apex-anchored resampling.
	require.NotNil(t, res.Track)
	assert.Equal(t, 50, res.Track.Steps())
}

func TestLapSimRunDefaultsSteps(t *testing.T) {
	in := electricInput(t)
	in.Steps = 0
	sim, err := NewLapSim(in, nil)
	require.NoError(t, err)

	res, err := sim.Run()
	require.NoError(t, err)
	assert.Len(t, res.V, DefaultSteps)
}

func TestNewLapSimValidation(t *testing.T) {
	in := electricInput(t)
	in.Track = in.Track[:2]
	_, err := NewLapSim(in, nil)
	assert.Error(t, err)

	in = electricInput(t)
	in.Powertrain.Model = nil
	_, err = NewLapSim(in, nil)
	assert.Error(t, err)
}

func TestLapSimRunDegenerateTrack(t *testing.T) {
	in := electricInput(t)
	in.Track = []track.Point{{X: 1}, {X: 1}, {X: 1}, {X: 2}}
	sim, err := NewLapSim(in, nil)
	require.NoError(t, err)

	_, err = sim.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discretizing track")
}

func TestRunJSONRoundTrip(t *testing.T) {
	input := `{
		"steps": 50,
		"track": [
			{"x": 300, "y": 0}, {"x": 260, "y": 100}, {"x": 150, "y": 173},
			{"x": 0, "y": 200}, {"x": -150, "y": 173}, {"x": -260, "y": 100},
			{"x": -300, "y": 0}, {"x": -260, "y": -100}, {"x": -150, "y": -173},
			{"x": 0, "y": -200}, {"x": 150, "y": -173}, {"x": 260, "y": -100}
		],
		"powertrain": {
			"type": "electric",
			"mass": 250,
			"mu": 1.0,
			"wheel_radius": 0.23,
			"motor": {
				"torque_max": 240,
				"power_max": 80000,
				"max_rpm": 6500,
				"final_drive": 3.5,
				"efficiency": 0.9
			}
		}
	}`

	out, err := RunJSON(input)
	require.NoError(t, err)

	var res Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Greater(t, res.LapTime, 0.0)
	assert.Len(t, res.V, 50)
	for _, v := range res.V {
		assert.Greater(t, v, 0.0)
	}
}

func TestRunJSONInvalidInput(t *testing.T) {
	_, err := RunJSON(`{`)
	assert.Error(t, err)

	_, err = RunJSON(`{"track": [], "powertrain": {"type": "electric"}}`)
	assert.Error(t, err)

	_, err = RunJSON(`{"track": [{"x":1},{"x":2},{"x":3}], "powertrain": {"type": "warp"}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warp")
}
