package viz

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/featherstone/internal/multibody"
)

// Segment is a world-space line between two points.
type Segment struct {
	Start, End mgl64.Vec3
}

// Scene is the drawable skeleton of a body: one segment from each parent
// centre of mass to the joint pivot and one from the pivot to the link's
// centre of mass.
type Scene struct {
	Base     mgl64.Vec3
	Segments []Segment
	Joints   []mgl64.Vec3
	Coms     []mgl64.Vec3
}

// Skeleton reads the current link poses of mb.
func Skeleton(mb *multibody.MultiBody) Scene {
	base := mb.BasePose()
	s := Scene{
		Base:     base.Position,
		Segments: make([]Segment, 0, 2*mb.NumLinks()),
		Joints:   make([]mgl64.Vec3, 0, mb.NumLinks()),
		Coms:     make([]mgl64.Vec3, 0, mb.NumLinks()),
	}
	for i := 0; i < mb.NumLinks(); i++ {
		l, err := mb.Link(i)
		if err != nil {
			continue
		}
		pose, _ := mb.LinkPose(i)
		parent, _ := mb.LinkPose(l.Parent)

		pivot := pose.Apply(l.Joint.PivotToCom.Mul(-1))
		s.Segments = append(s.Segments,
			Segment{Start: parent.Position, End: pivot},
			Segment{Start: pivot, End: pose.Position},
		)
		s.Joints = append(s.Joints, pivot)
		s.Coms = append(s.Coms, pose.Position)
	}
	return s
}

// Reach is the summed length of every link offset, used to frame the body.
func Reach(mb *multibody.MultiBody) float64 {
	reach := 0.0
	for i := 0; i < mb.NumLinks(); i++ {
		l, err := mb.Link(i)
		if err != nil {
			continue
		}
		reach += l.Joint.ParentToPivot.Len() + l.Joint.PivotToCom.Len()
	}
	return max(reach, 0.5)
}

// Tip returns the centre of mass of the last link, or the base position.
func (s Scene) Tip() mgl64.Vec3 {
	if len(s.Coms) == 0 {
		return s.Base
	}
	return s.Coms[len(s.Coms)-1]
}

type projectedSegment struct {
	x0, y0, x1, y1 int
	depth          float64
}

// Render draws the scene onto c, far segments first, with discs on the
// base and on each centre of mass.
func Render(c *Canvas, cam *Camera, s Scene) {
	if c == nil || cam == nil {
		return
	}
	w, h := c.PixelSize()
	proj := make([]projectedSegment, 0, len(s.Segments))
	for _, seg := range s.Segments {
		x0, y0, d0, ok0 := cam.Project(seg.Start, w, h)
		x1, y1, d1, ok1 := cam.Project(seg.End, w, h)
		if ok0 || ok1 {
			proj = append(proj, projectedSegment{x0, y0, x1, y1, (d0 + d1) / 2})
		}
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, p := range proj {
		c.DrawLine(p.x0, p.y0, p.x1, p.y1)
	}

	if x, y, _, ok := cam.Project(s.Base, w, h); ok {
		c.DrawDisc(x, y, 2)
	}
	for _, p := range s.Coms {
		if x, y, _, ok := cam.Project(p, w, h); ok {
			c.DrawDisc(x, y, 1)
		}
	}
}

// RenderTrail marks each projected point with a single dot.
func RenderTrail(c *Canvas, cam *Camera, trail []mgl64.Vec3) {
	w, h := c.PixelSize()
	for _, p := range trail {
		if x, y, _, ok := cam.Project(p, w, h); ok {
			c.Set(x, y)
		}
	}
}
