package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/featherstone/internal/analysis"
	"github.com/san-kum/featherstone/internal/viz"
)

const (
	background = "#0a0a0a"
	stroke     = "#00ff88"
)

func header(b *strings.Builder, w, h float64) {
	fmt.Fprintf(b, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, w, h, w, h, background)
}

// CanvasToSVG draws every lit braille dot as a circle, scale pixels apart.
func CanvasToSVG(c *viz.Canvas, scale float64) string {
	if c == nil {
		return ""
	}
	pw, ph := c.PixelSize()
	var b strings.Builder
	header(&b, float64(pw)*scale, float64(ph)*scale)
	fmt.Fprintf(&b, "<g fill=\"%s\">\n", stroke)
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if c.IsSet(x, y) {
				fmt.Fprintf(&b, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					(float64(x)+0.5)*scale, (float64(y)+0.5)*scale, scale*0.4)
			}
		}
	}
	b.WriteString("</g>\n</svg>\n")
	return b.String()
}

// SceneToSVG draws a body skeleton as vector lines through cam.
func SceneToSVG(s viz.Scene, cam *viz.Camera, width, height int) string {
	var b strings.Builder
	header(&b, float64(width), float64(height))
	fmt.Fprintf(&b, "<g stroke=\"%s\" stroke-width=\"3\" stroke-linecap=\"round\">\n", stroke)
	for _, seg := range s.Segments {
		x0, y0, _, ok0 := cam.Project(seg.Start, width, height)
		x1, y1, _, ok1 := cam.Project(seg.End, width, height)
		if ok0 || ok1 {
			fmt.Fprintf(&b, "<line x1=\"%d\" y1=\"%d\" x2=\"%d\" y2=\"%d\"/>\n", x0, y0, x1, y1)
		}
	}
	b.WriteString("</g>\n<g fill=\"#ffffff\">\n")
	for _, p := range s.Coms {
		if x, y, _, ok := cam.Project(p, width, height); ok {
			fmt.Fprintf(&b, "<circle cx=\"%d\" cy=\"%d\" r=\"4\"/>\n", x, y)
		}
	}
	b.WriteString("</g>\n</svg>\n")
	return b.String()
}

// PortraitToSVG draws a phase portrait as a single path.
func PortraitToSVG(p *analysis.PhasePortrait, width, height int) string {
	if p == nil || len(p.Points) < 2 {
		return ""
	}
	minX, maxX, minY, maxY := p.Bounds()
	var b strings.Builder
	header(&b, float64(width), float64(height))
	fmt.Fprintf(&b, "<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"", stroke)
	for i, pt := range p.Points {
		x := (pt.X - minX) / (maxX - minX) * float64(width)
		y := float64(height) - (pt.Y-minY)/(maxY-minY)*float64(height)
		if i == 0 {
			fmt.Fprintf(&b, "M%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&b, " L%.1f,%.1f", x, y)
		}
	}
	b.WriteString("\"/>\n</svg>\n")
	return b.String()
}

// Write writes an SVG document to w.
func Write(w io.Writer, svg string) error {
	if svg == "" {
		return fmt.Errorf("export: nothing to draw")
	}
	_, err := io.WriteString(w, svg)
	return err
}
