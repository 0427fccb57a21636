// Command lapsim computes minimum-lap-time velocity profiles.
//
//	lapsim solve input.json      run the pipeline on a SimulationInput file
//	lapsim solve -               read the input from stdin
//	lapsim demo                  print a ready-to-solve sample input
//
// Flags can also be provided through the environment with the LAPSIM prefix,
// e.g. LAPSIM_LOG_LEVEL=debug.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/apexsim/lapsim-engine/internal/config"
	"github.com/apexsim/lapsim-engine/internal/engine"
	"github.com/apexsim/lapsim-engine/internal/log"
	"github.com/apexsim/lapsim-engine/internal/track"
)

const envPrefix = "LAPSIM"

var rootCmd = &cobra.Command{
	Use:   "lapsim",
	Short: "Minimum-lap-time velocity profile solver for closed tracks",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&config.LogLevel, "log-level", "info",
		"log level (debug, info, warn, error)")

	rootCmd.AddCommand(newSolveCmd())
	rootCmd.AddCommand(newDemoCmd())
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	bindFlags(rootCmd, viper.GetViper())
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, viper.GetViper())
	}
}

// Bind each cobra flag to its associated viper configuration (environment
// variable); dashes in flag names map to underscores in the variable name.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not set flag value for %s: %v", f.Name, err)
			}
		}
	})
}

func newSolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve [input.json]",
		Short: "Run the lap-time pipeline on a SimulationInput file (or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			log.InitLogger(config.LogLevel)
			defer func() { _ = log.Logger.Sync() }()

			data, err := readInput(args)
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			var input engine.SimulationInput
			if err := json.Unmarshal(data, &input); err != nil {
				return fmt.Errorf("invalid input JSON: %w", err)
			}
			if config.Steps > 0 {
				input.Steps = config.Steps
			}
			if config.IterationCap > 0 {
				input.IterationCap = config.IterationCap
			}

			sim, err := engine.NewLapSim(input, log.Logger)
			if err != nil {
				return err
			}
			result, err := sim.Run()
			if err != nil {
				return err
			}

			log.Logger.Info("lap solved",
				zap.Float64("lap_time", result.LapTime),
				zap.Float64("avg_speed", result.AvgSpeed),
				zap.Int("apexes", len(result.Apexes)),
				zap.Int("warnings", len(result.Warnings)))

			out, err := json.Marshal(result)
			if err != nil {
				return fmt.Errorf("marshaling result: %w", err)
			}
			return writeOutput(out)
		},
	}

	cmd.Flags().IntVar(&config.Steps, "steps", 0,
		"override the sample count from the input file")
	cmd.Flags().IntVar(&config.IterationCap, "iteration-cap", 0,
		"override the solver iteration cap")
	cmd.Flags().StringVarP(&config.Output, "output", "o", "",
		"write the result JSON to this file instead of stdout")
	return cmd
}

// newDemoCmd prints a sample input: an ellipse track with an electric
// powertrain, ready to pipe back into `lapsim solve -`.
func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Print a sample SimulationInput (ellipse track, electric powertrain)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := map[string]any{
				"steps": engine.DefaultSteps,
				"track": track.Ellipse(300, 200, 10),
				"powertrain": map[string]any{
					"type":         "electric",
					"mass":         250.0,
					"mu":           1.0,
					"wheel_radius": 0.23,
					"motor": map[string]any{
						"torque_max":  240.0,
						"power_max":   80e3,
						"max_rpm":     6500.0,
						"final_drive": 3.5,
						"efficiency":  0.9,
					},
				},
			}
			out, err := json.MarshalIndent(input, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(args[0])
}

func writeOutput(out []byte) error {
	if config.Output == "" {
		fmt.Println(string(out))
		return nil
	}
	return os.WriteFile(config.Output, append(out, '\n'), 0o644)
}
