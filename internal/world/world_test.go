package world_test

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/featherstone/internal/constraint"
	"github.com/san-kum/featherstone/internal/joint"
	"github.com/san-kum/featherstone/internal/multibody"
	"github.com/san-kum/featherstone/internal/world"
)

type sphere struct{}

func (sphere) Name() string { return "sphere" }

type recordingHost struct {
	added   []*multibody.Collider
	removed []*multibody.Collider
	updates int
}

func (h *recordingHost) AddCollisionObject(c *multibody.Collider, group, mask int) {
	h.added = append(h.added, c)
}

func (h *recordingHost) RemoveCollisionObject(c *multibody.Collider) {
	h.removed = append(h.removed, c)
}

func (h *recordingHost) UpdateCollisionObject(c *multibody.Collider) {
	h.updates++
}

var errNoRows = errors.New("no rows")

type brokenConstraint struct {
	body *multibody.MultiBody
}

func (c brokenConstraint) Body() *multibody.MultiBody                 { return c.body }
func (c brokenConstraint) Rows(dt float64) ([]constraint.Row, error)  { return nil, errNoRows }
func (c brokenConstraint) SetAppliedImpulse(row int, impulse float64) {}

type phaseRecorder struct {
	phases []world.Phase
}

func (r *phaseRecorder) OnPhase(p world.Phase, dt float64) {
	r.phases = append(r.phases, p)
}

func newPendulum(opts multibody.Options, finalize bool) *multibody.MultiBody {
	mb, err := multibody.New(opts)
	Expect(err).NotTo(HaveOccurred())
	_, err = mb.AddLink(multibody.BaseIndex, joint.Revolute, 1, mgl64.Vec3{0.01, 0.01, 0.01},
		mgl64.Vec3{}, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{1, 0, 0})
	Expect(err).NotTo(HaveOccurred())
	_, err = mb.AddLink(0, joint.Revolute, 1, mgl64.Vec3{0.01, 0.01, 0.01},
		mgl64.Vec3{0, -1, 0}, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{1, 0, 0})
	Expect(err).NotTo(HaveOccurred())
	if finalize {
		Expect(mb.Finalize()).To(Succeed())
		Expect(mb.SetJointPosition(0, 0.5)).To(Succeed())
	}
	return mb
}

var _ = Describe("World", func() {
	var (
		w    *world.World
		host *recordingHost
		mb   *multibody.MultiBody
	)

	BeforeEach(func() {
		host = &recordingHost{}
		w = world.New(world.DefaultConfig(), world.WithCollisionHost(host))
		mb = newPendulum(multibody.Options{SelfCollision: true, UseGyroTerm: true}, true)
		Expect(mb.SetLinkCollider(0, &multibody.Collider{Shape: sphere{}, Group: world.DefaultFilter, Mask: world.AllFilter})).To(Succeed())
		Expect(mb.SetLinkCollider(1, &multibody.Collider{Shape: sphere{}, Group: world.DefaultFilter, Mask: world.AllFilter})).To(Succeed())
		Expect(w.AddMultiBody(mb)).To(Succeed())
	})

	AfterEach(func() {
		Expect(w.Close()).To(Succeed())
	})

	Describe("Step", func() {
		It("moves through every phase and returns to idle", func() {
			rec := &phaseRecorder{}
			w.AddObserver(rec)

			Expect(w.Step(0.01)).To(Succeed())
			Expect(rec.phases).To(Equal([]world.Phase{
				world.ForcesApplied,
				world.ConstraintsSolved,
				world.DynamicsIntegrated,
				world.TransformsSynced,
				world.Idle,
			}))
			Expect(w.Phase()).To(Equal(world.Idle))
			Expect(w.StepCount()).To(Equal(1))
			Expect(w.Time()).To(BeNumerically("~", 0.01, 1e-12))
		})

		It("swings the pendulum under gravity", func() {
			for i := 0; i < 10; i++ {
				Expect(w.Step(0.01)).To(Succeed())
			}
			v, err := mb.JointVelocity(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeNumerically("<", 0))
		})

		It("leaves the body flags unchanged", func() {
			before := mb.Options()
			Expect(w.Step(0.01)).To(Succeed())
			Expect(mb.Options()).To(Equal(before))
		})

		It("syncs collider transforms to the host", func() {
			Expect(w.Step(0.01)).To(Succeed())
			Expect(host.updates).To(Equal(2))

			pose, err := mb.LinkPose(1)
			Expect(err).NotTo(HaveOccurred())
			l, err := mb.Link(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(l.Collider.Transform).To(Equal(pose))
		})

		It("skips an unfinalized body and keeps stepping the rest", func() {
			broken := newPendulum(multibody.Options{}, false)
			Expect(w.AddMultiBody(broken)).To(Succeed())

			err := w.Step(0.01)
			Expect(err).To(MatchError(multibody.ErrNotFinalized))

			var bodyErr *world.BodyError
			Expect(errors.As(err, &bodyErr)).To(BeTrue())
			Expect(bodyErr.Index).To(Equal(1))

			v, err := mb.JointVelocity(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).NotTo(BeZero())
			Expect(w.Phase()).To(Equal(world.Idle))
		})

		It("consumes user forces", func() {
			Expect(mb.AddJointTorque(1, 3)).To(Succeed())
			Expect(w.Step(0.01)).To(Succeed())

			tau, err := mb.JointTorque(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(tau).To(BeZero())
		})

		It("rejects a non-positive time step", func() {
			Expect(w.Step(0)).To(MatchError(world.ErrInvalidTimeStep))
		})
	})

	Describe("PreserveForces", func() {
		It("keeps user forces across steps", func() {
			cfg := world.DefaultConfig()
			cfg.PreserveForces = true
			keep := world.New(cfg)
			body := newPendulum(multibody.Options{}, true)
			Expect(keep.AddMultiBody(body)).To(Succeed())

			Expect(body.AddJointTorque(0, 2)).To(Succeed())
			Expect(keep.Step(0.01)).To(Succeed())

			tau, err := body.JointTorque(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(tau).To(Equal(2.0))
			Expect(keep.Close()).To(Succeed())
		})
	})

	Describe("constraints", func() {
		It("drives a joint with a motor", func() {
			w.SetGravity(mgl64.Vec3{})
			motor, err := constraint.NewJointMotor(mb, 1, 0, 1.5, 1000)
			Expect(err).NotTo(HaveOccurred())
			Expect(w.AddConstraint(motor)).To(Succeed())

			Expect(w.Step(0.01)).To(Succeed())
			v, err := mb.JointVelocity(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeNumerically("~", 1.5, 1e-6))
		})

		It("skips only the body whose constraint fails", func() {
			w.SetGravity(mgl64.Vec3{})
			motor, err := constraint.NewJointMotor(mb, 1, 0, 1.5, 1000)
			Expect(err).NotTo(HaveOccurred())
			Expect(w.AddConstraint(motor)).To(Succeed())

			other := newPendulum(multibody.Options{}, true)
			Expect(other.SetJointVelocity(0, 2)).To(Succeed())
			Expect(w.AddMultiBody(other)).To(Succeed())
			Expect(w.AddConstraint(brokenConstraint{body: other})).To(Succeed())

			err = w.Step(0.01)
			Expect(err).To(MatchError(errNoRows))
			var bodyErr *world.BodyError
			Expect(errors.As(err, &bodyErr)).To(BeTrue())
			Expect(bodyErr.Index).To(Equal(1))

			v, err := mb.JointVelocity(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeNumerically("~", 1.5, 1e-6))

			q, err := other.JointPosition(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(q).To(Equal(0.5))
		})

		It("refuses a constraint on a foreign body", func() {
			other := newPendulum(multibody.Options{}, true)
			motor, err := constraint.NewJointMotor(other, 0, 0, 1, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(w.AddConstraint(motor)).To(MatchError(world.ErrBodyNotFound))
		})
	})

	Describe("RemoveMultiBody", func() {
		It("detaches colliders and dependent constraints first", func() {
			motor, err := constraint.NewJointMotor(mb, 0, 0, 0, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(w.AddConstraint(motor)).To(Succeed())

			Expect(w.RemoveMultiBody(mb)).To(Succeed())
			Expect(w.Constraints()).To(BeEmpty())
			Expect(w.NumBodies()).To(Equal(0))
			Expect(host.removed).To(HaveLen(2))
			Expect(mb.Colliders()).To(BeEmpty())

			Expect(w.RemoveMultiBody(mb)).To(MatchError(world.ErrBodyNotFound))
		})
	})

	Describe("StepSimulation", func() {
		It("drains the accumulator in fixed steps", func() {
			n, err := w.StepSimulation(0.5, 10, 0.125)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(4))
			Expect(w.Time()).To(BeNumerically("~", 0.5, 1e-12))
		})

		It("clamps to the sub-step limit", func() {
			n, err := w.StepSimulation(2, 3, 0.125)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(3))
		})

		It("takes one variable step without sub-steps", func() {
			n, err := w.StepSimulation(0.02, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))
			Expect(w.Time()).To(BeNumerically("~", 0.02, 1e-12))
		})

		It("rejects a negative sub-step limit without losing time", func() {
			n, err := w.StepSimulation(0.5, -1, 0.125)
			Expect(err).To(MatchError(world.ErrInvalidTimeStep))
			Expect(n).To(Equal(0))
			Expect(w.Time()).To(BeZero())

			n, err = w.StepSimulation(0.25, 10, 0.125)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
			Expect(w.Time()).To(BeNumerically("~", 0.25, 1e-12))
		})
	})

	Describe("Close", func() {
		It("tears down and refuses further steps", func() {
			Expect(w.Close()).To(Succeed())
			Expect(host.removed).To(HaveLen(2))
			Expect(w.NumBodies()).To(Equal(0))
			Expect(w.Step(0.01)).To(MatchError(world.ErrClosed))
			Expect(w.Close()).To(Succeed())
		})

		It("is safe on a nil world", func() {
			var nilWorld *world.World
			Expect(nilWorld.Close()).To(Succeed())
		})
	})

	Describe("NeedsCollision", func() {
		It("filters parent/child pairs on a self-colliding body", func() {
			colliders := mb.Colliders()
			Expect(colliders).To(HaveLen(2))
			Expect(world.NeedsCollision(colliders[0], colliders[1])).To(BeFalse())
		})

		It("honours the self-collision flag", func() {
			solo := newPendulum(multibody.Options{}, false)
			_, err := solo.AddLink(multibody.BaseIndex, joint.Fixed, 1, mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{}, mgl64.Vec3{})
			Expect(err).NotTo(HaveOccurred())
			Expect(solo.Finalize()).To(Succeed())

			a := &multibody.Collider{Group: world.DefaultFilter, Mask: world.AllFilter}
			b := &multibody.Collider{Group: world.DefaultFilter, Mask: world.AllFilter}
			Expect(solo.SetLinkCollider(1, a)).To(Succeed())
			Expect(solo.SetLinkCollider(2, b)).To(Succeed())
			Expect(world.NeedsCollision(a, b)).To(BeFalse())
		})

		It("applies group and mask filters across bodies", func() {
			other := newPendulum(multibody.Options{}, true)
			static := &multibody.Collider{Group: world.StaticFilter, Mask: world.AllFilter ^ world.StaticFilter}
			Expect(other.SetLinkCollider(0, static)).To(Succeed())

			dynamic := mb.Colliders()[0]
			Expect(world.NeedsCollision(dynamic, static)).To(BeTrue())

			otherStatic := &multibody.Collider{Group: world.StaticFilter, Mask: world.AllFilter ^ world.StaticFilter}
			Expect(other.SetLinkCollider(1, otherStatic)).To(Succeed())
			Expect(world.NeedsCollision(static, otherStatic)).To(BeFalse())
		})
	})
})
