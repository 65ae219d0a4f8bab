package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/featherstone/internal/config"
)

var (
	dataDir string
	verbose bool
	logger  = zap.NewNop()
)

// simFlags are shared by every command that builds a scenario. Explicit
// flags override the preset, which is overridden by a config file.
type simFlags struct {
	configFile string
	preset     string
	controller string
	dt         float64
	duration   float64
	subSteps   int
	seed       int64
	kp, kd     float64
	angle      float64
	links      int
	fixedBase  bool
	inverse    bool
}

func (f *simFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.configFile, "config", "", "config file path (yaml)")
	fl.StringVar(&f.preset, "preset", "", "use preset configuration")
	fl.StringVar(&f.controller, "controller", "", "controller (none, pd, computed_torque, lqr)")
	fl.Float64Var(&f.dt, "dt", config.DefaultDt, "timestep")
	fl.Float64Var(&f.duration, "time", config.DefaultDuration, "duration")
	fl.IntVar(&f.subSteps, "substeps", config.DefaultSubSteps, "world steps per control step")
	fl.Int64Var(&f.seed, "seed", 0, "random seed")
	fl.Float64Var(&f.kp, "kp", config.DefaultKp, "position gain")
	fl.Float64Var(&f.kd, "kd", config.DefaultKd, "velocity gain")
	fl.Float64Var(&f.angle, "angle", 0, "initial joint angle")
	fl.IntVar(&f.links, "links", config.DefaultLinks, "number of links (chain)")
	fl.BoolVar(&f.fixedBase, "fixed-base", false, "pin the base to the world")
	fl.BoolVar(&f.inverse, "inverse-model", true, "feed the inverse model (computed_torque)")
}

func (f *simFlags) resolve(cmd *cobra.Command, scenario string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Scenario = scenario

	if f.preset != "" {
		cfg = config.GetPreset(scenario, f.preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", f.preset, config.ListPresets(scenario))
		}
	}
	if f.configFile != "" {
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if cfg.Scenario == "" {
			cfg.Scenario = scenario
		}
	}

	changed := cmd.Flags().Changed
	if changed("controller") {
		cfg.Controller = f.controller
	}
	if changed("dt") {
		cfg.Dt = f.dt
	}
	if changed("time") {
		cfg.Duration = f.duration
	}
	if changed("substeps") {
		cfg.SubSteps = f.subSteps
	}
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("kp") {
		cfg.Control.Kp = f.kp
	}
	if changed("kd") {
		cfg.Control.Kd = f.kd
	}
	if changed("angle") {
		cfg.Body.InitialAngle = f.angle
	}
	if changed("links") {
		cfg.Body.Links = f.links
	}
	if changed("fixed-base") {
		cfg.Body.FixedBase = f.fixedBase
	}
	if changed("inverse-model") {
		cfg.Control.UseInverseModel = f.inverse
	}
	return cfg, cfg.Validate()
}

func newLogger() (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "featherstone",
		Short:         "articulated multibody dynamics lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger()
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".featherstone", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		newRunCmd(),
		newLiveCmd(),
		newListCmd(),
		newPlotCmd(),
		newPhaseCmd(),
		newAnalyzeCmd(),
		newExportCmd(),
		newExportJSONCmd(),
		newExportCSVCmd(),
		newPresetsCmd(),
		newBenchCmd(),
		newEnsembleCmd(),
		newTuneCmd(),
		newChaosCmd(),
		newTreeCmd(),
		newIDCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
