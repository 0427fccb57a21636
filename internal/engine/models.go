package engine

import (
	"github.com/apexsim/lapsim-engine/internal/powertrain"
	"github.com/apexsim/lapsim-engine/internal/solver"
	"github.com/apexsim/lapsim-engine/internal/track"
)

// SimulationInput is the JSON-serialisable input to the engine: the raw
// ordered track points, the sample count, and the powertrain descriptor.
type SimulationInput struct {
	// Steps is the number of arc-length-uniform samples the track is
	// resampled to. Defaults to DefaultSteps when zero.
	Steps int `json:"steps,omitempty"`
	// Track is the ordered raw point sequence; the last point connects back
	// to the first. 2D points leave z at zero.
	Track []track.Point `json:"track"`
	// Powertrain selects and parameterises the limit model via the "type"
	// discriminator ("electric" or "hybrid").
	Powertrain powertrain.Descriptor `json:"powertrain"`
	// IterationCap overrides the solver's relaxation bound. Zero keeps the
	// solver default.
	IterationCap int `json:"iteration_cap,omitempty"`
}

// DefaultSteps is the sample count used when the input leaves Steps at zero.
const DefaultSteps = 50

// Result is the complete output of a lap-time computation. All per-sample
// slices are indexed in the apex-anchored frame (sample 0 is an apex) and
// Track holds the samples in that same frame.
type Result struct {
	LapTime     float64                    `json:"lap_time"`     // s
	AvgSpeed    float64                    `json:"avg_speed"`    // m/s
	TotalEnergy float64                    `json:"total_energy"` // J, ICE + EM
	V           []float64                  `json:"v"`            // m/s per sample
	Gear        []int                      `json:"gear"`
	Time        []float64                  `json:"time"` // s per segment
	Energy      []solver.EnergySplit       `json:"energy"`
	Bound       []solver.LimitKind         `json:"bound"`
	Apexes      []int                      `json:"apexes"`
	BrakePoints []int                      `json:"brake_points"`
	Warnings    []solver.EfficiencyWarning `json:"warnings,omitempty"`
	Track       *track.Discretized         `json:"track"`
}
