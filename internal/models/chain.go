package models

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/featherstone/internal/joint"
	"github.com/san-kum/featherstone/internal/multibody"
	"github.com/san-kum/featherstone/internal/spatial"
	"github.com/san-kum/featherstone/internal/world"
)

// Chain is a serial chain of identical box links hanging along -y. Every
// joint is a revolute hinge about Axis, or a slider when Prismatic is set.
type Chain struct {
	Links         int
	HalfExtents   mgl64.Vec3
	LinkMass      float64
	BaseMass      float64
	Axis          mgl64.Vec3
	Prismatic     bool
	SelfCollision bool
	CanSleep      bool
	Damping       float64
	InitialAngle  float64
	BasePose      spatial.Pose
}

func NewChain(links int) *Chain {
	return &Chain{
		Links:       links,
		HalfExtents: mgl64.Vec3{0.05, 0.25, 0.05},
		LinkMass:    1,
		Axis:        mgl64.Vec3{1, 0, 0},
		BasePose:    spatial.IdentityPose(),
	}
}

func (c *Chain) Build() (*multibody.MultiBody, error) {
	if c.Links <= 0 {
		return nil, fmt.Errorf("chain: need at least one link, got %d", c.Links)
	}

	opts := multibody.Options{
		NumLinks:       c.Links,
		CanSleep:       c.CanSleep,
		SelfCollision:  c.SelfCollision,
		UseGyroTerm:    true,
		LinearDamping:  c.Damping,
		AngularDamping: c.Damping,
	}
	if c.BaseMass > 0 {
		opts.BaseMass = c.BaseMass
		opts.BaseInertia = Box{HalfExtents: c.HalfExtents}.LocalInertia(c.BaseMass)
	}
	mb, err := multibody.New(opts)
	if err != nil {
		return nil, err
	}
	mb.SetBasePose(c.BasePose)

	typ := joint.Revolute
	if c.Prismatic {
		typ = joint.Prismatic
	}
	shape := Box{HalfExtents: c.HalfExtents}
	pivotToCom := mgl64.Vec3{0, -c.HalfExtents[1], 0}
	for i := 0; i < c.Links; i++ {
		parentToPivot := mgl64.Vec3{0, -c.HalfExtents[1], 0}
		if i == 0 {
			parentToPivot = mgl64.Vec3{}
		}
		if _, err := mb.AddLink(i-1, typ, c.LinkMass, shape.LocalInertia(c.LinkMass), parentToPivot, pivotToCom, c.Axis); err != nil {
			return nil, fmt.Errorf("chain link %d: %w", i, err)
		}
	}
	if err := mb.Finalize(); err != nil {
		return nil, err
	}
	if c.InitialAngle != 0 {
		if err := mb.SetJointPosition(0, c.InitialAngle); err != nil {
			return nil, err
		}
	}

	for i := 0; i < c.Links; i++ {
		col := &multibody.Collider{Shape: shape, Group: world.DefaultFilter, Mask: world.AllFilter}
		if err := mb.SetLinkCollider(i, col); err != nil {
			return nil, err
		}
	}
	mb.SyncColliders()
	return mb, nil
}
