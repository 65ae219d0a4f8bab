package multibody

import (
	"errors"
	"fmt"
)

// Domain errors for building and querying articulated bodies.
var (
	// ErrInvalidTopology indicates a link that cannot be added to the tree.
	ErrInvalidTopology = errors.New("multibody: invalid topology")

	// ErrFinalizedTopology indicates an edit after Finalize.
	ErrFinalizedTopology = errors.New("multibody: topology already finalized")

	// ErrNotFinalized indicates a state query or step before Finalize.
	ErrNotFinalized = errors.New("multibody: topology not finalized")

	// ErrIndexOutOfRange indicates a bad link or DOF index.
	ErrIndexOutOfRange = errors.New("multibody: index out of range")

	// ErrTreeConstruction indicates an inverse dynamics tree could not be
	// built from a multibody.
	ErrTreeConstruction = errors.New("multibody: inverse dynamics tree construction failed")

	// ErrUnsupportedJointType indicates a joint the requested algorithm
	// cannot handle.
	ErrUnsupportedJointType = errors.New("multibody: unsupported joint type")

	// ErrDimensionMismatch indicates input vectors of the wrong length.
	ErrDimensionMismatch = errors.New("multibody: dimension mismatch")

	// ErrSingularInertia indicates a joint or base with no effective inertia.
	ErrSingularInertia = errors.New("multibody: singular articulated inertia")
)

// TopologyError carries the offending link of a rejected edit.
type TopologyError struct {
	Link   int
	Parent int
	Reason string
	Err    error
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("%v: link %d (parent %d): %s", e.Err, e.Link, e.Parent, e.Reason)
}

func (e *TopologyError) Unwrap() error {
	return e.Err
}

func indexError(kind string, index, size int) error {
	return fmt.Errorf("%w: %s %d not in [0, %d)", ErrIndexOutOfRange, kind, index, size)
}
