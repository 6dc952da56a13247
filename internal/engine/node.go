package engine

import (
	"slices"

	"cogentcore.org/core/math32"
	"github.com/google/uuid"

	"github.com/ivlev/storyboard/internal/keyframe"
)

// TagStoryboard marks nodes whose transforms are animated by boards.
const TagStoryboard = "storyboard"

// Kind classifies a node.
type Kind string

const (
	KindMesh  Kind = "mesh"
	KindModel Kind = "model"
	KindSun   Kind = "sun"
)

// Node is a named scene object with a transform and optional keyframe tracks.
type Node struct {
	id       string
	name     string
	kind     Kind
	tags     []string
	geometry *Geometry

	position math32.Vector3
	rotation math32.Quat
	scaling  math32.Vector3

	tracks map[keyframe.Property][]keyframe.Key
}

// NewNode creates a node with an identity transform.
func NewNode(name string, kind Kind, tags ...string) *Node {
	return &Node{
		id:       uuid.NewString(),
		name:     name,
		kind:     kind,
		tags:     slices.Clone(tags),
		rotation: math32.NewQuat(0, 0, 0, 1),
		scaling:  math32.Vec3(1, 1, 1),
		tracks:   make(map[keyframe.Property][]keyframe.Key),
	}
}

func (n *Node) ID() string          { return n.id }
func (n *Node) Name() string        { return n.name }
func (n *Node) Kind() Kind          { return n.kind }
func (n *Node) Geometry() *Geometry { return n.geometry }

// SetGeometry attaches mesh geometry.
func (n *Node) SetGeometry(g *Geometry) { n.geometry = g }

// Tags returns a copy of the node tags.
func (n *Node) Tags() []string { return slices.Clone(n.tags) }

// HasTag reports whether the node carries tag.
func (n *Node) HasTag(tag string) bool { return slices.Contains(n.tags, tag) }

// AddTag adds tag once.
func (n *Node) AddTag(tag string) {
	if !n.HasTag(tag) {
		n.tags = append(n.tags, tag)
	}
}

func (n *Node) Position() math32.Vector3     { return n.position }
func (n *Node) SetPosition(v math32.Vector3) { n.position = v }
func (n *Node) Rotation() math32.Quat        { return n.rotation }
func (n *Node) Scaling() math32.Vector3      { return n.scaling }
func (n *Node) SetScaling(v math32.Vector3)  { n.scaling = v }

// SetRotation stores q normalized.
func (n *Node) SetRotation(q math32.Quat) {
	q.Normalize()
	n.rotation = q
}

// Track returns a copy of the keys for prop.
func (n *Node) Track(prop keyframe.Property) ([]keyframe.Key, bool) {
	keys, ok := n.tracks[prop]
	if !ok {
		return nil, false
	}
	return slices.Clone(keys), true
}

// SetTrack replaces the keys for prop. An empty slice removes the track.
func (n *Node) SetTrack(prop keyframe.Property, keys []keyframe.Key) {
	if len(keys) == 0 {
		delete(n.tracks, prop)
		return
	}
	n.tracks[prop] = slices.Clone(keys)
}

// ClearTracks drops every track.
func (n *Node) ClearTracks() {
	clear(n.tracks)
}

// Forward returns the node's local -Z axis rotated into world space.
func (n *Node) Forward() math32.Vector3 {
	return math32.Vec3(0, 0, -1).MulQuat(n.rotation)
}
