package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/featherstone/internal/analysis"
	"github.com/san-kum/featherstone/internal/experiment"
	"github.com/san-kum/featherstone/internal/optim"
)

func newBenchCmd() *cobra.Command {
	var flags simFlags
	cmd := &cobra.Command{
		Use:   "bench [scenario]",
		Short: "benchmark stepping throughput",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := flags.resolve(cmd, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("benchmarking %s (%s)\n\n", base.Scenario, base.Controller)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DURATION\tDT\tSTEPS\tTIME\tSTEPS/SEC\tDRIFT")

			for _, dt := range []float64{1e-4, 1e-3, 1e-2} {
				cfg := base.Clone()
				cfg.Dt = dt

				exp := experiment.New(cfg, experiment.WithLogger(logger))
				if err := exp.Setup(); err != nil {
					return err
				}
				start := time.Now()
				result, err := exp.Run(cmd.Context())
				elapsed := time.Since(start)
				exp.Close()
				if err != nil {
					return err
				}

				fmt.Fprintf(w, "%.1fs\t%.4fs\t%d\t%v\t%.0f\t%.2e\n",
					cfg.Duration, dt, result.StepsTaken, elapsed.Round(time.Microsecond),
					float64(result.StepsTaken)/elapsed.Seconds(), result.EnergyDrift)
			}
			return w.Flush()
		},
	}
	flags.register(cmd)
	return cmd
}

func newEnsembleCmd() *cobra.Command {
	var (
		flags  simFlags
		runs   int
		spread float64
	)
	cmd := &cobra.Command{
		Use:   "ensemble [scenario]",
		Short: "run perturbed copies concurrently and summarize metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args[0])
			if err != nil {
				return err
			}

			start := time.Now()
			results, err := experiment.Ensemble(cmd.Context(), cfg, runs, spread, experiment.WithLogger(logger))
			if err != nil {
				return err
			}
			fmt.Printf("%d runs of %s in %v (spread ±%.3f rad)\n\n", len(results), cfg.Scenario, time.Since(start), spread)

			values := make(map[string][]float64)
			failed := 0
			for _, r := range results {
				if len(r.Errors) > 0 {
					failed++
				}
				for name, v := range r.Metrics {
					values[name] = append(values[name], v)
				}
				values["energy_drift_total"] = append(values["energy_drift_total"], r.EnergyDrift)
			}
			names := make([]string, 0, len(values))
			for name := range values {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "METRIC\tMEAN\tSTD\tMIN\tMAX")
			for _, name := range names {
				v := values[name]
				mean, std := stat.MeanStdDev(v, nil)
				fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%.6f\t%.6f\n", name, mean, std, floats.Min(v), floats.Max(v))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				fmt.Printf("\n%d runs recorded errors\n", failed)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&runs, "runs", 8, "number of runs")
	cmd.Flags().Float64Var(&spread, "spread", 0.1, "initial angle perturbation (rad)")
	return cmd
}

// parseParam reads "name=v1,v2,...".
func parseParam(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("parameter %q: expected name=v1,v2", s)
	}
	var values []float64
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("parameter %q: %w", s, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

func newTuneCmd() *cobra.Command {
	var (
		flags  simFlags
		params []string
		metric string
	)
	cmd := &cobra.Command{
		Use:   "tune [scenario]",
		Short: "grid search over configuration parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args[0])
			if err != nil {
				return err
			}
			if len(params) == 0 {
				return fmt.Errorf("at least one --param is required (known: %s)", strings.Join(optim.ParamNames(), ", "))
			}

			names := make([]string, 0, len(params))
			ranges := make([][]float64, 0, len(params))
			for _, p := range params {
				name, values, err := parseParam(p)
				if err != nil {
					return err
				}
				names = append(names, name)
				ranges = append(ranges, values)
			}

			g, err := optim.NewGridSearch(names, ranges)
			if err != nil {
				return err
			}
			g.SetLogger(logger)

			best, all, err := g.Search(cmd.Context(), cfg, metric)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(metric))
			for _, c := range all {
				cols := make([]string, 0, len(names)+1)
				for _, n := range names {
					cols = append(cols, strconv.FormatFloat(c.Params[n], 'g', 6, 64))
				}
				if c.Err != nil {
					cols = append(cols, "error: "+c.Err.Error())
				} else {
					cols = append(cols, strconv.FormatFloat(c.Value, 'g', 6, 64))
				}
				fmt.Fprintln(w, strings.Join(cols, "\t"))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Printf("\nbest %s = %.6f at", metric, best.Value)
			for _, n := range names {
				fmt.Printf(" %s=%g", n, best.Params[n])
			}
			fmt.Println()
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringArrayVar(&params, "param", nil, "swept parameter as name=v1,v2,... (repeatable)")
	cmd.Flags().StringVar(&metric, "metric", "tracking_error", "metric to minimize")
	return cmd
}

func newChaosCmd() *cobra.Command {
	var (
		flags        simFlags
		perturbation float64
	)
	cmd := &cobra.Command{
		Use:   "chaos [scenario]",
		Short: "estimate the largest Lyapunov exponent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args[0])
			if err != nil {
				return err
			}
			build := experiment.Builder(cfg, experiment.WithLogger(logger))
			lambda, err := analysis.LyapunovExponent(cmd.Context(), build, perturbation, cfg.Dt, cfg.Duration)
			if err != nil {
				return err
			}

			fmt.Printf("largest lyapunov exponent: %.4f 1/s\n", lambda)
			if lambda > 0 {
				fmt.Printf("separation doubles every %.3f s\n", math.Ln2/lambda)
			} else {
				fmt.Println("no exponential divergence")
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&perturbation, "perturbation", 1e-8, "initial displacement of joint 0")
	return cmd
}
