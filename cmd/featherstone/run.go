package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/featherstone/internal/experiment"
	"github.com/san-kum/featherstone/internal/export"
	"github.com/san-kum/featherstone/internal/storage"
	"github.com/san-kum/featherstone/internal/viz"
)

func newRunCmd() *cobra.Command {
	var (
		flags    simFlags
		snapshot string
		noSave   bool
	)
	cmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args[0])
			if err != nil {
				return err
			}

			exp := experiment.New(cfg, experiment.WithLogger(logger))
			if err := exp.Setup(); err != nil {
				return err
			}
			defer exp.Close()

			fmt.Printf("running %s with %s...\n", cfg.Scenario, cfg.Controller)
			start := time.Now()
			result, err := exp.Run(cmd.Context())
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			fmt.Printf("completed in %v\n", elapsed)
			if !noSave {
				st := storage.New(dataDir)
				if err := st.Init(); err != nil {
					return err
				}
				runID, err := st.Save(storage.RunInfo{
					Scenario:   cfg.Scenario,
					Preset:     flags.preset,
					Controller: cfg.Controller,
					Seed:       cfg.Seed,
					Dt:         cfg.Dt,
					Duration:   cfg.Duration,
					SubSteps:   cfg.SubSteps,
				}, result)
				if err != nil {
					return err
				}
				fmt.Printf("run id: %s\n", runID)
			}
			fmt.Printf("steps: %d\n", result.StepsTaken)
			fmt.Printf("energy drift: %.6f\n", result.EnergyDrift)
			if len(result.Errors) > 0 {
				fmt.Printf("errors: %d (first: %v)\n", len(result.Errors), result.Errors[0])
			}

			names := make([]string, 0, len(result.Metrics))
			for name := range result.Metrics {
				names = append(names, name)
			}
			sort.Strings(names)
			fmt.Println("\nmetrics:")
			for _, name := range names {
				fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
			}

			if snapshot != "" {
				body := exp.Body()
				svg := export.SceneToSVG(viz.Skeleton(body), viz.NewCamera(viz.Reach(body)), 600, 600)
				if err := os.WriteFile(snapshot, []byte(svg), 0644); err != nil {
					return err
				}
				fmt.Printf("\nfinal pose written to %s\n", snapshot)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "write the final pose as SVG")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	return cmd
}

func newLiveCmd() *cobra.Command {
	var flags simFlags
	cmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "run simulation with live visualization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args[0])
			if err != nil {
				return err
			}

			// The TUI owns the terminal, so the live view never logs.
			build := experiment.Builder(cfg, experiment.WithLogger(zap.NewNop()))
			title := cfg.Scenario
			if flags.preset != "" {
				title += " / " + flags.preset
			}
			m, err := viz.NewModel(build, cfg.Seed, cfg.Dt, title)
			if err != nil {
				return err
			}

			final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			fm, ok := final.(viz.Model)
			if !ok {
				fm = m
			}
			if cerr := fm.Close(); cerr != nil && err == nil {
				err = cerr
			}
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
