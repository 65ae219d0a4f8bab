package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/san-kum/featherstone/internal/config"
)

func TestParseParam(t *testing.T) {
	name, values, err := parseParam("kp=10, 50,100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "kp" || len(values) != 3 || values[1] != 50 {
		t.Errorf("unexpected parse %s %v", name, values)
	}

	for _, bad := range []string{"kp", "=1", "kp=", "kp=a,b"} {
		if _, _, err := parseParam(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func newFlagCmd(f *simFlags, args ...string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		panic(err)
	}
	return cmd
}

func TestResolve_Precedence(t *testing.T) {
	var f simFlags
	cmd := newFlagCmd(&f, "--preset", "hold", "--kp", "250", "--links", "2")

	cfg, err := f.resolve(cmd, "chain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Controller != "computed_torque" {
		t.Errorf("expected preset controller, got %s", cfg.Controller)
	}
	if cfg.Control.Kp != 250 || cfg.Control.Kd != 20 {
		t.Errorf("expected kp override only, got %+v", cfg.Control)
	}
	if cfg.Body.Links != 2 {
		t.Errorf("expected 2 links, got %d", cfg.Body.Links)
	}
}

func TestResolve_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	file := config.DefaultConfig()
	file.Scenario = ""
	file.Duration = 2
	if err := config.Save(path, file); err != nil {
		t.Fatalf("save: %v", err)
	}

	var f simFlags
	cmd := newFlagCmd(&f, "--config", path, "--time", "0.5")
	cfg, err := f.resolve(cmd, "chain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scenario != "chain" || cfg.Duration != 0.5 {
		t.Errorf("expected scenario from args and duration from flags, got %s %f", cfg.Scenario, cfg.Duration)
	}
}

func TestResolve_Errors(t *testing.T) {
	var f simFlags
	if _, err := f.resolve(newFlagCmd(&f, "--preset", "nope"), "chain"); err == nil {
		t.Error("expected unknown preset error")
	}

	var g simFlags
	if _, err := g.resolve(newFlagCmd(&g, "--dt", "-1"), "chain"); err == nil {
		t.Error("expected validation error")
	}
}
