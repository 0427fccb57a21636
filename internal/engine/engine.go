// Package engine wires the lap-time pipeline together. Each stage consumes
// the previous stage's output:
//
//	discretize → curvature → apexes → velocity profile → brake points
//
// The engine itself performs no I/O; RunJSON is the string-in/string-out
// entry point shared by the CLI and WASM targets.
package engine

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/apexsim/lapsim-engine/internal/solver"
	"github.com/apexsim/lapsim-engine/internal/track"
)

// LapSim holds a validated simulation set-up ready to run.
type LapSim struct {
	input  SimulationInput
	logger *zap.Logger
}

// NewLapSim validates a SimulationInput and returns a runnable LapSim.
// logger may be nil for a silent run.
func NewLapSim(input SimulationInput, logger *zap.Logger) (*LapSim, error) {
	if len(input.Track) < 3 {
		return nil, fmt.Errorf("input track has %d points, need at least 3", len(input.Track))
	}
	if input.Powertrain.Model == nil {
		return nil, fmt.Errorf("input has no powertrain")
	}
	if input.Steps == 0 {
		input.Steps = DefaultSteps
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LapSim{input: input, logger: logger}, nil
}

// Run executes the full pipeline and returns the lap result.
func (s *LapSim) Run() (*Result, error) {
	d, err := track.Discretize(s.input.Track, s.input.Steps)
	if err != nil {
		return nil, fmt.Errorf("discretizing track: %w", err)
	}

	c := track.EstimateCurvature(d)

	apexes, d, c := track.FindApexes(d, c)
	s.logger.Debug("apexes located", zap.Int("count", len(apexes)))

	prof, err := solver.Solve(d, c, apexes, s.input.Powertrain.Model, solver.Options{
		IterationCap: s.input.IterationCap,
		Logger:       s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("solving velocity profile: %w", err)
	}

	brakes := solver.FindBrakePoints(prof.V)

	totalEnergy := lo.SumBy(prof.Energy, func(e solver.EnergySplit) float64 {
		return e.ICE + e.EM
	})

	return &Result{
		LapTime:     prof.LapTime(),
		AvgSpeed:    lo.Sum(prof.V) / float64(len(prof.V)),
		TotalEnergy: totalEnergy,
		V:           prof.V,
		Gear:        prof.Gear,
		Time:        prof.Time,
		Energy:      prof.Energy,
		Bound:       prof.Bound,
		Apexes:      apexes,
		BrakePoints: brakes,
		Warnings:    prof.Warnings,
		Track:       d,
	}, nil
}

// RunJSON is the primary entry point for the CLI and WASM targets. It accepts
// a JSON-encoded SimulationInput, runs the pipeline silently, and returns a
// JSON-encoded Result.
func RunJSON(jsonInput string) (string, error) {
	var input SimulationInput
	if err := json.Unmarshal([]byte(jsonInput), &input); err != nil {
		return "", fmt.Errorf("invalid input JSON: %w", err)
	}

	sim, err := NewLapSim(input, nil)
	if err != nil {
		return "", err
	}

	result, err := sim.Run()
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(out), nil
}
