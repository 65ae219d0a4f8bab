package models

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/featherstone/internal/multibody"
)

// Shape is a collider shape that can also supply the diagonal inertia of a
// solid body of uniform density.
type Shape interface {
	multibody.Shape
	LocalInertia(mass float64) mgl64.Vec3
}

type Box struct {
	HalfExtents mgl64.Vec3
}

func (Box) Name() string { return "box" }

func (b Box) LocalInertia(mass float64) mgl64.Vec3 {
	lx, ly, lz := 2*b.HalfExtents[0], 2*b.HalfExtents[1], 2*b.HalfExtents[2]
	return mgl64.Vec3{
		mass / 12 * (ly*ly + lz*lz),
		mass / 12 * (lx*lx + lz*lz),
		mass / 12 * (lx*lx + ly*ly),
	}
}

type Sphere struct {
	Radius float64
}

func (Sphere) Name() string { return "sphere" }

func (s Sphere) LocalInertia(mass float64) mgl64.Vec3 {
	i := 0.4 * mass * s.Radius * s.Radius
	return mgl64.Vec3{i, i, i}
}
