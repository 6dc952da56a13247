package engine

import (
	"errors"
	"fmt"
	"slices"
)

// ErrLeaked reports editor associations still attached when a scene is
// disposed.
var ErrLeaked = errors.New("scene resources leaked")

// GizmoMode selects the manipulation handle shown for a node.
type GizmoMode string

const (
	GizmoPosition GizmoMode = "position"
	GizmoRotation GizmoMode = "rotation"
	GizmoScaling  GizmoMode = "scaling"
)

// Gizmo is the manipulation handle attached to a node.
type Gizmo struct {
	NodeID string
	Mode   GizmoMode
}

// Scene is the set of live nodes and clips.
type Scene struct {
	nodes   []*Node
	clips   []*Clip
	sun     *Node
	env     Environment
	gizmos  map[string]*Gizmo
	shadows map[string]*Node

	disposed bool
}

// NewScene creates an empty scene with the default environment.
func NewScene() *Scene {
	return &Scene{
		env:     defaultEnvironment(),
		gizmos:  make(map[string]*Gizmo),
		shadows: make(map[string]*Node),
	}
}

// Nodes returns the persisted nodes in insertion order. The sun proxy is not
// included.
func (s *Scene) Nodes() []*Node { return slices.Clone(s.nodes) }

// Clips returns every clip in insertion order.
func (s *Scene) Clips() []*Clip { return slices.Clone(s.clips) }

// Environment returns the mutable environment.
func (s *Scene) Environment() *Environment { return &s.env }

// Disposed reports whether Dispose has run.
func (s *Scene) Disposed() bool { return s.disposed }

// AddNode adds n. Names are unique within a scene.
func (s *Scene) AddNode(n *Node) error {
	if n.Name() == SunName {
		return fmt.Errorf("node name %q is reserved", SunName)
	}
	if _, ok := s.FindNode(n.Name()); ok {
		return fmt.Errorf("node %q already exists", n.Name())
	}
	s.nodes = append(s.nodes, n)
	return nil
}

// RemoveNode removes n together with its clips and editor associations. It
// returns the removed clips.
func (s *Scene) RemoveNode(n *Node) []*Clip {
	if n == s.sun {
		s.sun = nil
	} else {
		s.nodes = slices.DeleteFunc(s.nodes, func(o *Node) bool { return o == n })
	}
	removed := s.ClipsOf(n.Name())
	s.clips = slices.DeleteFunc(s.clips, func(c *Clip) bool { return c.Owner() == n.Name() })
	delete(s.gizmos, n.ID())
	delete(s.shadows, n.ID())
	return removed
}

// FindNode looks a node up by name, including the sun proxy.
func (s *Scene) FindNode(name string) (*Node, bool) {
	if s.sun != nil && name == SunName {
		return s.sun, true
	}
	for _, n := range s.nodes {
		if n.Name() == name {
			return n, true
		}
	}
	return nil, false
}

// NodesByTag returns every node carrying tag in insertion order.
func (s *Scene) NodesByTag(tag string) []*Node {
	var out []*Node
	for _, n := range s.nodes {
		if n.HasTag(tag) {
			out = append(out, n)
		}
	}
	return out
}

// AddClip adds c. Clip names are unique and the owner must exist.
func (s *Scene) AddClip(c *Clip) error {
	if _, ok := s.FindClip(c.Name()); ok {
		return fmt.Errorf("clip %q already exists", c.Name())
	}
	if _, ok := s.FindNode(c.Owner()); !ok {
		return fmt.Errorf("clip %q: owner %q not in scene", c.Name(), c.Owner())
	}
	s.clips = append(s.clips, c)
	return nil
}

// RemoveClip removes c. Removing a clip that is not in the scene is a no-op.
func (s *Scene) RemoveClip(c *Clip) {
	s.clips = slices.DeleteFunc(s.clips, func(o *Clip) bool { return o == c })
}

// FindClip looks a clip up by name.
func (s *Scene) FindClip(name string) (*Clip, bool) {
	for _, c := range s.clips {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// ClipsOf returns the clips owned by the named node.
func (s *Scene) ClipsOf(owner string) []*Clip {
	var out []*Clip
	for _, c := range s.clips {
		if c.Owner() == owner {
			out = append(out, c)
		}
	}
	return out
}

// Sun returns the sun proxy, or nil.
func (s *Scene) Sun() *Node { return s.sun }

// EnsureSun returns the sun proxy, creating it with an identity rotation.
func (s *Scene) EnsureSun() *Node {
	if s.sun == nil {
		s.sun = NewNode(SunName, KindSun)
	}
	return s.sun
}

// AttachGizmo attaches a handle to n, replacing any previous one.
func (s *Scene) AttachGizmo(n *Node, mode GizmoMode) *Gizmo {
	g := &Gizmo{NodeID: n.ID(), Mode: mode}
	s.gizmos[n.ID()] = g
	return g
}

// DetachGizmo removes the handle of n.
func (s *Scene) DetachGizmo(n *Node) { delete(s.gizmos, n.ID()) }

// Gizmo returns the handle attached to n.
func (s *Scene) Gizmo(n *Node) (*Gizmo, bool) {
	g, ok := s.gizmos[n.ID()]
	return g, ok
}

// AddShadowCaster registers n with the sun's shadow generator.
func (s *Scene) AddShadowCaster(n *Node) { s.shadows[n.ID()] = n }

// RemoveShadowCaster unregisters n from the shadow generator.
func (s *Scene) RemoveShadowCaster(n *Node) { delete(s.shadows, n.ID()) }

// ShadowCasters returns the number of registered shadow casters.
func (s *Scene) ShadowCasters() int { return len(s.shadows) }

// Dispose tears the scene down. Gizmos and shadow casters must have been
// released by their owners first; leftovers are reported as ErrLeaked after
// the scene is cleared.
func (s *Scene) Dispose() error {
	if s.disposed {
		return nil
	}
	gizmos, shadows := len(s.gizmos), len(s.shadows)

	for _, c := range s.clips {
		c.Stop()
	}
	s.nodes = nil
	s.clips = nil
	s.sun = nil
	clear(s.gizmos)
	clear(s.shadows)
	s.disposed = true

	if gizmos > 0 || shadows > 0 {
		return fmt.Errorf("%w: %d gizmos, %d shadow casters", ErrLeaked, gizmos, shadows)
	}
	return nil
}
