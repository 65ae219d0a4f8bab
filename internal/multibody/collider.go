package multibody

import (
	"github.com/san-kum/featherstone/internal/spatial"
)

// Shape is the geometry of a collider. Collision detection itself lives
// behind the world's collision host.
type Shape interface {
	Name() string
}

// Collider attaches a shape to the base (Link == BaseIndex) or to a link.
// Transform is the collider's world pose, refreshed by SyncColliders.
type Collider struct {
	Link      int
	Shape     Shape
	Group     int
	Mask      int
	Transform spatial.Pose

	owner *MultiBody
}

// Owner returns the body the collider is attached to, or nil.
func (c *Collider) Owner() *MultiBody {
	return c.owner
}

// SetBaseCollider attaches c to the base.
func (m *MultiBody) SetBaseCollider(c *Collider) {
	if c != nil {
		c.Link = BaseIndex
		c.Transform = m.basePose
		c.owner = m
	}
	m.baseCollider = c
}

func (m *MultiBody) BaseCollider() *Collider {
	return m.baseCollider
}

// SetLinkCollider attaches c to a link.
func (m *MultiBody) SetLinkCollider(link int, c *Collider) error {
	if link < 0 || link >= len(m.links) {
		return indexError("link", link, len(m.links))
	}
	if c != nil {
		c.Link = link
		c.Transform = m.links[link].pose
		c.owner = m
	}
	m.links[link].Collider = c
	return nil
}

// Colliders returns the attached colliders, base first.
func (m *MultiBody) Colliders() []*Collider {
	var out []*Collider
	if m.baseCollider != nil {
		out = append(out, m.baseCollider)
	}
	for _, l := range m.links {
		if l.Collider != nil {
			out = append(out, l.Collider)
		}
	}
	return out
}

// SyncColliders copies the current world poses into the colliders and
// returns them.
func (m *MultiBody) SyncColliders() []*Collider {
	if m.baseCollider != nil {
		m.baseCollider.Transform = m.basePose
	}
	for i := range m.links {
		if c := m.links[i].Collider; c != nil {
			c.Transform = m.links[i].pose
		}
	}
	return m.Colliders()
}

// DetachColliders removes every collider from the body and returns them.
func (m *MultiBody) DetachColliders() []*Collider {
	out := m.Colliders()
	for _, c := range out {
		c.owner = nil
	}
	m.baseCollider = nil
	for i := range m.links {
		m.links[i].Collider = nil
	}
	return out
}
