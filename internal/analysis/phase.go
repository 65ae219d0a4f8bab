package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/featherstone/internal/viz"
)

type Point struct{ X, Y float64 }

// PhasePortrait is a trajectory projected onto two state variables.
type PhasePortrait struct {
	XIndex, YIndex int
	Points         []Point
}

// PortraitFromStates collects states[i][xIdx] against states[i][yIdx].
func PortraitFromStates(states [][]float64, xIdx, yIdx int) (*PhasePortrait, error) {
	if len(states) == 0 {
		return nil, ErrShortSeries
	}
	if xIdx < 0 || yIdx < 0 || xIdx >= len(states[0]) || yIdx >= len(states[0]) {
		return nil, fmt.Errorf("analysis: axis out of range for state of length %d", len(states[0]))
	}
	p := &PhasePortrait{XIndex: xIdx, YIndex: yIdx, Points: make([]Point, 0, len(states))}
	for _, s := range states {
		if len(s) <= max(xIdx, yIdx) {
			continue
		}
		p.Points = append(p.Points, Point{X: s[xIdx], Y: s[yIdx]})
	}
	return p, nil
}

// Bounds returns the padded extent of the portrait.
func (p *PhasePortrait) Bounds() (minX, maxX, minY, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, pt := range p.Points {
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
	}
	padX := math.Max(maxX-minX, 1e-9) * 0.1
	padY := math.Max(maxY-minY, 1e-9) * 0.1
	return minX - padX, maxX + padX, minY - padY, maxY + padY
}

// Render draws the portrait on a braille canvas of width×height cells with
// axes where they cross the visible range.
func (p *PhasePortrait) Render(width, height int) string {
	c := viz.NewCanvas(width, height)
	if len(p.Points) == 0 {
		return c.String()
	}
	w, h := c.PixelSize()
	minX, maxX, minY, maxY := p.Bounds()
	col := func(x float64) int { return int((x - minX) / (maxX - minX) * float64(w-1)) }
	row := func(y float64) int { return h - 1 - int((y-minY)/(maxY-minY)*float64(h-1)) }

	if minX <= 0 && maxX >= 0 {
		x := col(0)
		c.DrawLine(x, 0, x, h-1)
	}
	if minY <= 0 && maxY >= 0 {
		y := row(0)
		c.DrawLine(0, y, w-1, y)
	}

	prevX, prevY := col(p.Points[0].X), row(p.Points[0].Y)
	for _, pt := range p.Points[1:] {
		x, y := col(pt.X), row(pt.Y)
		c.DrawLine(prevX, prevY, x, y)
		prevX, prevY = x, y
	}
	return c.String()
}
