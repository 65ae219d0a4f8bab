package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/san-kum/featherstone/internal/analysis"
	"github.com/san-kum/featherstone/internal/models"
	"github.com/san-kum/featherstone/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)

	svg := CanvasToSVG(c, 10)
	if got := strings.Count(svg, "<circle"); got != 2 {
		t.Errorf("expected 2 circles, got %d", got)
	}
	if !strings.Contains(svg, `width="40" height="40"`) {
		t.Errorf("expected 40x40 document, got %q", svg[:120])
	}
	if CanvasToSVG(nil, 1) != "" {
		t.Error("expected empty output for nil canvas")
	}
}

func TestSceneToSVG(t *testing.T) {
	mb, err := models.NewChain(3).Build()
	if err != nil {
		t.Fatalf("build chain: %v", err)
	}
	svg := SceneToSVG(viz.Skeleton(mb), viz.NewCamera(viz.Reach(mb)), 400, 400)
	if got := strings.Count(svg, "<line"); got != 6 {
		t.Errorf("expected 6 lines, got %d", got)
	}
	if got := strings.Count(svg, "<circle"); got != 3 {
		t.Errorf("expected 3 markers, got %d", got)
	}
}

func TestPortraitToSVG(t *testing.T) {
	p, err := analysis.PortraitFromStates([][]float64{{0, 1}, {1, 0}, {0, -1}}, 0, 1)
	if err != nil {
		t.Fatalf("portrait: %v", err)
	}
	svg := PortraitToSVG(p, 100, 100)
	if !strings.Contains(svg, "M") || strings.Count(svg, " L") != 2 {
		t.Errorf("unexpected path %q", svg)
	}

	var buf bytes.Buffer
	if err := Write(&buf, svg); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != svg {
		t.Error("expected document written verbatim")
	}
	if err := Write(&buf, PortraitToSVG(nil, 1, 1)); err == nil {
		t.Error("expected error for empty document")
	}
}
