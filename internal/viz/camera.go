package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	minZoom = 0.1
	maxZoom = 10
)

// Camera orbits a target point and projects world points onto a canvas
// with a simple pinhole model.
type Camera struct {
	Target     mgl64.Vec3
	Yaw, Pitch float64
	Zoom       float64
	// Reach is the world length that fills a little less than half of
	// the smaller canvas dimension at zoom 1.
	Reach float64
	Near  float64
}

// NewCamera looks down the world x axis, so a hinge about x swings in the
// screen plane.
func NewCamera(reach float64) *Camera {
	if reach <= 0 {
		reach = 1
	}
	return &Camera{Yaw: -math.Pi / 2, Pitch: 0.15, Zoom: 1, Reach: reach, Near: 0.1}
}

func (c *Camera) Orbit(dyaw, dpitch float64) {
	c.Yaw += dyaw
	c.Pitch = mgl64.Clamp(c.Pitch+dpitch, -math.Pi/2, math.Pi/2)
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(maxZoom, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(minZoom, c.Zoom/1.2) }

func (c *Camera) view() mgl64.Mat4 {
	return mgl64.HomogRotate3DX(c.Pitch).
		Mul4(mgl64.HomogRotate3DY(c.Yaw)).
		Mul4(mgl64.Translate3D(-c.Target.X(), -c.Target.Y(), -c.Target.Z()))
}

// Project maps p to pixel coordinates on a w×h pixel canvas. It returns the
// view depth and whether the point lies in front of the camera and on the
// canvas.
func (c *Camera) Project(p mgl64.Vec3, w, h int) (int, int, float64, bool) {
	v := c.view().Mul4x1(p.Vec4(1)).Vec3()
	dist := 4 * c.Reach
	if v.Z() >= dist-c.Near {
		return 0, 0, 0, false
	}
	persp := dist / (dist - v.Z())
	scale := float64(min(w, h)) / (2.2 * c.Reach) * c.Zoom * persp

	sx := int(math.Round(v.X()*scale)) + w/2
	sy := int(math.Round(-v.Y()*scale)) + h/2
	return sx, sy, v.Z(), sx >= 0 && sx < w && sy >= 0 && sy < h
}
