package storyboard

import (
	"fmt"
	"sort"

	"cogentcore.org/core/math32"
	"github.com/google/uuid"

	"github.com/ivlev/storyboard/internal/keyframe"
)

// Transform is an engine object with a world transform.
type Transform interface {
	Name() string
	Position() math32.Vector3
	SetPosition(math32.Vector3)
	Rotation() math32.Quat
	SetRotation(math32.Quat)
	Scaling() math32.Vector3
	SetScaling(math32.Vector3)
}

// Tracked is implemented by transforms that carry keyframe tracks consumed by
// the engine's continuous interpolation and scene serializer.
type Tracked interface {
	Track(prop keyframe.Property) ([]keyframe.Key, bool)
	SetTrack(prop keyframe.Property, keys []keyframe.Key)
}

// Clip is a pre-authored animation with its own playhead.
type Clip interface {
	Name() string
	CurrentFrame() float32
	GoToFrame(frame float32)
	Play(loop bool)
	Pause()
	Stop()
	FirstFrame() float32
	LastFrame() float32
}

// Target is an animatable thing. The set of implementations is closed:
// *TransformTarget and *NestedTarget.
type Target interface {
	ID() string
	Name() string
	Channels() []*Channel
	isTarget()
}

// TransformTarget animates the transform of an engine object. It owns one
// channel per transform property and any nested clip targets attached to it.
type TransformTarget struct {
	id       string
	node     Transform
	channels map[keyframe.Property]*Channel
	nested   []*NestedTarget

	observers map[int]func(*TransformTarget)
	nextObs   int
	disposed  bool
}

func newTransformTarget(node Transform, n int) *TransformTarget {
	t := &TransformTarget{
		id:       uuid.NewString(),
		node:     node,
		channels: make(map[keyframe.Property]*Channel, len(keyframe.TransformProperties)),
	}
	for _, prop := range keyframe.TransformProperties {
		live, _ := t.live(prop)
		t.channels[prop] = newChannel(t.id, prop, repeatValue(live, n))
	}
	return t
}

func (t *TransformTarget) isTarget() {}

// ID returns the target identifier.
func (t *TransformTarget) ID() string { return t.id }

// Name returns the engine object name.
func (t *TransformTarget) Name() string { return t.node.Name() }

// Node returns the wrapped engine object.
func (t *TransformTarget) Node() Transform { return t.node }

// Channels returns position, rotation and scaling channels in that order.
func (t *TransformTarget) Channels() []*Channel {
	chans := make([]*Channel, 0, len(t.channels))
	for _, prop := range keyframe.TransformProperties {
		if ch, ok := t.channels[prop]; ok {
			chans = append(chans, ch)
		}
	}
	return chans
}

// Channel returns the channel for prop, or nil.
func (t *TransformTarget) Channel(prop keyframe.Property) *Channel {
	return t.channels[prop]
}

// Nested returns the nested clip targets owned by this target.
func (t *TransformTarget) Nested() []*NestedTarget {
	cp := make([]*NestedTarget, len(t.nested))
	copy(cp, t.nested)
	return cp
}

// Position returns the live position.
func (t *TransformTarget) Position() math32.Vector3 { return t.node.Position() }

// SetPosition writes the live position only. Channels are not touched.
func (t *TransformTarget) SetPosition(v math32.Vector3) { t.node.SetPosition(v) }

// Rotation returns the live rotation.
func (t *TransformTarget) Rotation() math32.Quat { return t.node.Rotation() }

// SetRotation writes the live rotation only. Channels are not touched.
func (t *TransformTarget) SetRotation(q math32.Quat) { t.node.SetRotation(q) }

// Scaling returns the live scaling.
func (t *TransformTarget) Scaling() math32.Vector3 { return t.node.Scaling() }

// SetScaling writes the live scaling only. Channels are not touched.
func (t *TransformTarget) SetScaling(v math32.Vector3) { t.node.SetScaling(v) }

// Subscribe registers fn to run when the registry settles after writing this
// target's live state. The returned function removes the subscription.
func (t *TransformTarget) Subscribe(fn func(*TransformTarget)) (unsubscribe func()) {
	if t.observers == nil {
		t.observers = make(map[int]func(*TransformTarget))
	}
	id := t.nextObs
	t.nextObs++
	t.observers[id] = fn
	return func() { delete(t.observers, id) }
}

func (t *TransformTarget) publish() {
	if len(t.observers) == 0 {
		return
	}
	ids := make([]int, 0, len(t.observers))
	for id := range t.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := t.observers[id]; ok {
			fn(t)
		}
	}
}

func (t *TransformTarget) live(prop keyframe.Property) (keyframe.Value, error) {
	switch prop {
	case keyframe.Position:
		return keyframe.FromVector3(t.node.Position()), nil
	case keyframe.Rotation:
		return keyframe.FromQuat(t.node.Rotation()), nil
	case keyframe.Scaling:
		return keyframe.FromVector3(t.node.Scaling()), nil
	}
	return keyframe.Value{}, fmt.Errorf("%w: transform target %q has no %q channel", ErrUnsupportedChannel, t.Name(), prop)
}

func (t *TransformTarget) setLive(prop keyframe.Property, v keyframe.Value) error {
	switch prop {
	case keyframe.Position:
		t.node.SetPosition(v.Vector3())
	case keyframe.Rotation:
		t.node.SetRotation(v.Quat())
	case keyframe.Scaling:
		t.node.SetScaling(v.Vector3())
	default:
		return fmt.Errorf("%w: transform target %q has no %q channel", ErrUnsupportedChannel, t.Name(), prop)
	}
	return nil
}

func (t *TransformTarget) dispose() {
	for _, n := range t.nested {
		n.dispose()
	}
	t.nested = nil
	for _, ch := range t.channels {
		ch.dispose()
	}
	t.observers = nil
	t.disposed = true
}

// NestedTarget animates the playhead of a pre-authored clip owned by a
// transform target.
type NestedTarget struct {
	id       string
	clip     Clip
	owner    *TransformTarget
	channel  *Channel
	disposed bool
}

func (n *NestedTarget) isTarget() {}

// ID returns the target identifier.
func (n *NestedTarget) ID() string { return n.id }

// Name returns the clip name.
func (n *NestedTarget) Name() string { return n.clip.Name() }

// Clip returns the wrapped clip.
func (n *NestedTarget) Clip() Clip { return n.clip }

// Owner returns the transform target this clip belongs to.
func (n *NestedTarget) Owner() *TransformTarget { return n.owner }

// Channels returns the single playhead channel.
func (n *NestedTarget) Channels() []*Channel { return []*Channel{n.channel} }

// Channel returns the playhead channel.
func (n *NestedTarget) Channel() *Channel { return n.channel }

// PlayheadFrame returns the clip's current frame.
func (n *NestedTarget) PlayheadFrame() float32 { return n.clip.CurrentFrame() }

// SeekPlayhead jumps the clip to frame without interpolation.
func (n *NestedTarget) SeekPlayhead(frame float32) { n.clip.GoToFrame(frame) }

// Play starts the clip.
func (n *NestedTarget) Play(loop bool) { n.clip.Play(loop) }

// Pause pauses the clip.
func (n *NestedTarget) Pause() { n.clip.Pause() }

// Stop stops the clip.
func (n *NestedTarget) Stop() { n.clip.Stop() }

// FirstFrame returns the clip's authored start frame, 0 until evaluated.
func (n *NestedTarget) FirstFrame() float32 { return n.clip.FirstFrame() }

// LastFrame returns the clip's authored end frame, 0 until evaluated.
func (n *NestedTarget) LastFrame() float32 { return n.clip.LastFrame() }

func (n *NestedTarget) dispose() {
	n.channel.dispose()
	n.disposed = true
}

// liveValue reads the current live value backing a channel of target.
func liveValue(target Target, prop keyframe.Property) (keyframe.Value, error) {
	switch t := target.(type) {
	case *TransformTarget:
		return t.live(prop)
	case *NestedTarget:
		if prop != keyframe.PlayheadFrame {
			return keyframe.Value{}, fmt.Errorf("%w: nested target %q has no %q channel", ErrUnsupportedChannel, t.Name(), prop)
		}
		return keyframe.FromScalar(t.clip.CurrentFrame()), nil
	default:
		return keyframe.Value{}, fmt.Errorf("%w: target type %T", ErrUnsupportedChannel, target)
	}
}

// applyValue writes v into the live state behind a channel of target. Nested
// clips are seeked, never interpolated.
func applyValue(target Target, prop keyframe.Property, v keyframe.Value) error {
	switch t := target.(type) {
	case *TransformTarget:
		return t.setLive(prop, v)
	case *NestedTarget:
		if prop != keyframe.PlayheadFrame {
			return fmt.Errorf("%w: nested target %q has no %q channel", ErrUnsupportedChannel, t.Name(), prop)
		}
		t.clip.GoToFrame(v.Scalar())
		return nil
	default:
		return fmt.Errorf("%w: target type %T", ErrUnsupportedChannel, target)
	}
}
