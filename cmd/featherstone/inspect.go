package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/featherstone/internal/config"
	"github.com/san-kum/featherstone/internal/experiment"
	"github.com/san-kum/featherstone/internal/invdyn"
	"github.com/san-kum/featherstone/internal/multibody"
)

func buildBody(cfg *config.Config) (*multibody.MultiBody, error) {
	scenario, err := experiment.NewRegistry().GetScenario(cfg.Scenario)
	if err != nil {
		return nil, err
	}
	return scenario(cfg.Body)
}

func newTreeCmd() *cobra.Command {
	var flags simFlags
	cmd := &cobra.Command{
		Use:   "tree [scenario]",
		Short: "print the link topology of a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args[0])
			if err != nil {
				return err
			}
			mb, err := buildBody(cfg)
			if err != nil {
				return err
			}
			topo := mb.Topology()

			base := "floating"
			if mb.HasFixedBase() {
				base = "fixed"
			}
			fmt.Printf("%s: %d links, %d dofs (%d with base), %d position variables, %s base\n\n",
				cfg.Scenario, mb.NumLinks(), mb.NumDofs(), mb.NumFullDofs(), mb.NumPosVars(), base)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LINK\tPARENT\tJOINT\tMASS\tDOFS\tPOS\tCHILDREN")
			for i := 0; i < mb.NumLinks(); i++ {
				l, err := mb.Link(i)
				if err != nil {
					return err
				}
				name := strings.Repeat("  ", topo.Depth(i)) + fmt.Sprint(i)
				fmt.Fprintf(w, "%s\t%d\t%s\t%.3f\t%d+%d\t%d+%d\t%v\n",
					name, l.Parent, l.Joint.Type, l.Mass,
					topo.DofOffset[i], topo.DofCount[i],
					topo.PosOffset[i], topo.PosCount[i],
					topo.Children[i])
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\norder: %v\n", topo.Order)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newIDCmd() *cobra.Command {
	var (
		flags    simFlags
		accel    float64
		velocity float64
	)
	cmd := &cobra.Command{
		Use:   "id [scenario]",
		Short: "print inverse dynamics and the mass matrix at the initial pose",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args[0])
			if err != nil {
				return err
			}
			mb, err := buildBody(cfg)
			if err != nil {
				return err
			}
			tree, err := invdyn.CreateFromMultiBody(mb)
			if err != nil {
				return err
			}
			tree.SetGravity(mgl64.Vec3(cfg.Gravity))
			tree.SetBasePose(mb.BasePose())

			n := tree.NumFullDofs()
			q := mb.GeneralizedPositions()
			qdot := make([]float64, n)
			qddot := make([]float64, n)
			off := n - tree.NumDofs()
			for i := off; i < n; i++ {
				qdot[i] = velocity
				qddot[i] = accel
			}

			tau := make([]float64, n)
			if err := tree.CalculateInverseDynamics(tree.HasFixedBase(), q, qdot, qddot, tau); err != nil {
				return err
			}
			m, err := tree.CalculateMassMatrix(q)
			if err != nil {
				return err
			}

			fmt.Printf("%s: %d dofs, gravity %v\n\n", cfg.Scenario, n, cfg.Gravity)
			fmt.Printf("q     = %.4f\n", q)
			fmt.Printf("qdot  = %.4f\n", qdot)
			fmt.Printf("qddot = %.4f\n", qddot)
			fmt.Printf("tau   = %.4f\n\n", tau)
			fmt.Printf("M(q) = %.4f\n", mat.Formatted(m, mat.Prefix("       "), mat.Squeeze()))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&accel, "qddot", 0, "desired joint acceleration for every joint DOF")
	cmd.Flags().Float64Var(&velocity, "qdot", 0, "joint velocity for every joint DOF")
	return cmd
}
