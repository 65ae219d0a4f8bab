package world

import (
	"github.com/san-kum/featherstone/internal/multibody"
)

// NeedsCollision reports whether a broadphase pair should reach the narrow
// phase. Group and mask must match both ways. Colliders on the same body
// only collide when the body allows self-collision, and never between a
// link and its parent.
func NeedsCollision(a, b *multibody.Collider) bool {
	if a == nil || b == nil || a == b {
		return false
	}
	if a.Group&b.Mask == 0 || b.Group&a.Mask == 0 {
		return false
	}

	owner := a.Owner()
	if owner == nil || owner != b.Owner() {
		return true
	}
	if !owner.SelfCollision() || a.Link == b.Link {
		return false
	}
	if !owner.Finalized() {
		return false
	}
	return !owner.Topology().IsParentChild(a.Link, b.Link)
}
