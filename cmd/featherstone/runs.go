package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/featherstone/internal/analysis"
	"github.com/san-kum/featherstone/internal/config"
	"github.com/san-kum/featherstone/internal/export"
	"github.com/san-kum/featherstone/internal/storage"
	"github.com/san-kum/featherstone/internal/viz"
)

const maxSeries = 6

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := storage.New(dataDir).List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSCENARIO\tPRESET\tCTRL\tTIME\tDURATION\tDT\tSTEPS\tERRORS")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
					run.ID,
					run.Scenario,
					run.Preset,
					run.Controller,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Duration,
					run.Dt,
					run.Steps,
					len(run.Errors),
				)
			}
			return w.Flush()
		},
	}
}

// column extracts one value per sample from a recorded series.
func column[T ~[]float64](rows []T, idx int) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if idx < len(r) {
			out = append(out, r[idx])
		}
	}
	return out
}

func seriesFor[T ~[]float64](rows []T, prefix string, from, to int) []viz.Series {
	series := make([]viz.Series, 0, to-from)
	for i := from; i < to && len(series) < maxSeries; i++ {
		series = append(series, viz.Series{Name: fmt.Sprintf("%s%d", prefix, i-from), Values: column(rows, i)})
	}
	return series
}

func newPlotCmd() *cobra.Command {
	var (
		group         string
		width, height int
	)
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, result, err := storage.New(dataDir).LoadResult(args[0])
			if err != nil {
				return err
			}
			if len(result.States) == 0 {
				return fmt.Errorf("no data to plot")
			}

			fmt.Printf("run: %s\n", meta.ID)
			fmt.Printf("scenario: %s (%s)\n", meta.Scenario, meta.Controller)
			fmt.Printf("samples: %d\n\n", len(result.States))

			n := meta.StateDim / 2
			charts := []struct {
				name, caption string
				series        []viz.Series
			}{
				{"q", "generalized positions", seriesFor(result.States, "q", 0, n)},
				{"qd", "generalized velocities", seriesFor(result.States, "qd", n, 2*n)},
				{"u", "joint torques", seriesFor(result.Controls, "u", 0, meta.ControlDim)},
			}
			for _, c := range charts {
				if group != "all" && group != c.name {
					continue
				}
				if out := viz.Plot(c.caption, width, height, c.series...); out != "" {
					fmt.Println(out)
					fmt.Println()
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&group, "var", "all", "series group: q, qd, u or all")
	cmd.Flags().IntVar(&width, "width", 80, "plot width")
	cmd.Flags().IntVar(&height, "height", 10, "plot height")
	return cmd
}

func newPhaseCmd() *cobra.Command {
	var (
		xAxis, yAxis int
		svgPath      string
	)
	cmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, result, err := storage.New(dataDir).LoadResult(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("y-axis") {
				yAxis = xAxis + meta.StateDim/2
			}

			rows := make([][]float64, len(result.States))
			for i, s := range result.States {
				rows[i] = s
			}
			portrait, err := analysis.PortraitFromStates(rows, xAxis, yAxis)
			if err != nil {
				return err
			}

			fmt.Printf("phase portrait: x%d vs x%d (%s)\n\n", xAxis, yAxis, meta.Scenario)
			fmt.Print(portrait.Render(60, 20))
			minX, maxX, minY, maxY := portrait.Bounds()
			fmt.Printf("\nx: [%.3f, %.3f]  y: [%.3f, %.3f]\n", minX, maxX, minY, maxY)

			if svgPath != "" {
				f, err := os.Create(svgPath)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := export.Write(f, export.PortraitToSVG(portrait, 600, 600)); err != nil {
					return err
				}
				fmt.Printf("written to %s\n", svgPath)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	cmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis (default: velocity of x)")
	cmd.Flags().StringVar(&svgPath, "svg", "", "also write the portrait as SVG")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, result, err := storage.New(dataDir).LoadResult(args[0])
			if err != nil {
				return err
			}
			data := column(result.States, index)
			ps, err := analysis.PowerSpectrum(data)
			if err != nil {
				return err
			}

			fmt.Printf("frequency analysis: %s\n", meta.ID)
			fmt.Printf("scenario: %s\n\n", meta.Scenario)
			fmt.Println(viz.Plot(fmt.Sprintf("power spectrum (x%d)", index), 80, 15,
				viz.Series{Name: "power", Values: ps[:max(len(ps)/4, 2)]}))
			fmt.Println()

			freq, err := analysis.DominantFrequency(data, meta.Dt)
			if err != nil {
				return err
			}
			fmt.Printf("dominant frequency: %.3f hz\n", freq)
			if freq > 0 {
				fmt.Printf("period: %.3f s\n", 1/freq)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&index, "index", 0, "state index to analyze")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := storage.New(dataDir).Load(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(meta)
		},
	}
}

func newExportJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, result, err := storage.New(dataDir).LoadResult(args[0])
			if err != nil {
				return err
			}
			return storage.ExportJSON(os.Stdout, meta.RunInfo, result)
		},
	}
}

func newExportCSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, result, err := storage.New(dataDir).LoadResult(args[0])
			if err != nil {
				return err
			}
			return storage.ExportCSV(os.Stdout, result)
		},
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios := config.ListScenarios()
			if len(args) == 1 {
				scenarios = args[:1]
			}
			for _, s := range scenarios {
				presets := config.ListPresets(s)
				if len(presets) == 0 {
					fmt.Printf("no presets for scenario: %s\n", s)
					continue
				}
				fmt.Printf("presets for %s:\n", s)
				for _, p := range presets {
					cfg := config.GetPreset(s, p)
					fmt.Printf("  %-12s %s\n", p, cfg.Controller)
				}
			}
			return nil
		},
	}
}
