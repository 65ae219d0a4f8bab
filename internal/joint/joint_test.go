package joint

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestType_Counts(t *testing.T) {
	tests := []struct {
		typ     Type
		dofs    int
		posVars int
		axis    bool
	}{
		{Fixed, 0, 0, false},
		{Revolute, 1, 1, true},
		{Prismatic, 1, 1, true},
		{Spherical, 3, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			if got := tt.typ.DOFs(); got != tt.dofs {
				t.Errorf("expected %d dofs, got %d", tt.dofs, got)
			}
			if got := tt.typ.PosVars(); got != tt.posVars {
				t.Errorf("expected %d position vars, got %d", tt.posVars, got)
			}
			if got := tt.typ.RequiresAxis(); got != tt.axis {
				t.Errorf("expected RequiresAxis %v, got %v", tt.axis, got)
			}
			if got := len(Joint{Type: tt.typ, Axis: mgl64.Vec3{1, 0, 0}}.MotionSubspace()); got != tt.dofs {
				t.Errorf("expected %d subspace columns, got %d", tt.dofs, got)
			}
		})
	}
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("Revolute")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != Revolute {
		t.Errorf("expected revolute, got %v", typ)
	}

	if _, err := ParseType("planar"); err == nil {
		t.Error("expected error for unknown joint type")
	}
}

func TestRevolute_Kinematics(t *testing.T) {
	j := Joint{
		Type:          Revolute,
		Axis:          mgl64.Vec3{1, 0, 0},
		ZeroRot:       mgl64.QuatIdent(),
		ParentToPivot: mgl64.Vec3{0, 0.5, 0},
		PivotToCom:    mgl64.Vec3{0, -1, 0},
	}

	rot, r := j.Kinematics([]float64{0})
	if !r.ApproxEqualThreshold(mgl64.Vec3{0, -0.5, 0}, 1e-12) {
		t.Errorf("zero pose offset: got %v", r)
	}
	if !rot.ApproxEqual(mgl64.QuatIdent()) {
		t.Errorf("zero pose rotation: got %v", rot)
	}

	// A quarter turn about x carries the pivot offset from +y to +z in the
	// parent, which the link sees as -z.
	_, r = j.Kinematics([]float64{math.Pi / 2})
	if !r.ApproxEqualThreshold(mgl64.Vec3{0, -1, -0.5}, 1e-12) {
		t.Errorf("quarter turn offset: got %v", r)
	}
}

func TestPrismatic_Kinematics(t *testing.T) {
	j := Joint{
		Type:       Prismatic,
		Axis:       mgl64.Vec3{0, 0, 1},
		ZeroRot:    mgl64.QuatIdent(),
		PivotToCom: mgl64.Vec3{1, 0, 0},
	}

	rot, r := j.Kinematics([]float64{0.25})
	if !rot.ApproxEqual(mgl64.QuatIdent()) {
		t.Errorf("prismatic joint should not rotate, got %v", rot)
	}
	if !r.ApproxEqualThreshold(mgl64.Vec3{1, 0, 0.25}, 1e-12) {
		t.Errorf("expected slide along axis, got %v", r)
	}
}

func TestSpherical_IntegrateStaysNormalized(t *testing.T) {
	j := Joint{Type: Spherical, ZeroRot: mgl64.QuatIdent()}
	q := make([]float64, 4)
	j.Reset(q)

	qd := []float64{1.5, -0.3, 2}
	for i := 0; i < 500; i++ {
		j.Integrate(q, qd, 0.01)
	}

	n := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if math.Abs(n-1) > 1e-12 {
		t.Errorf("expected unit quaternion, got norm %f", n)
	}
}

func TestSpherical_Coordinates(t *testing.T) {
	j := Joint{Type: Spherical, ZeroRot: mgl64.QuatIdent()}
	q := make([]float64, 4)
	j.Reset(q)

	j.SetCoordinate(q, 2, 0.4)
	if got := j.Coordinate(q, 2); math.Abs(got-0.4) > 1e-12 {
		t.Errorf("expected 0.4, got %f", got)
	}
	if got := j.Coordinate(q, 0); math.Abs(got) > 1e-12 {
		t.Errorf("expected 0, got %f", got)
	}
}

func TestRevolute_Integrate(t *testing.T) {
	j := Joint{Type: Revolute, Axis: mgl64.Vec3{0, 0, 1}}
	q := []float64{0.1}
	j.Integrate(q, []float64{2}, 0.5)
	if math.Abs(q[0]-1.1) > 1e-12 {
		t.Errorf("expected 1.1, got %f", q[0])
	}
}
