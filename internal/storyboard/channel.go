package storyboard

import (
	"fmt"

	"cogentcore.org/core/math32"
	"github.com/google/uuid"

	"github.com/ivlev/storyboard/internal/keyframe"
)

// Channel is the per-board value track for one property of one target.
type Channel struct {
	id       string
	ownerID  string
	prop     keyframe.Property
	keys     []keyframe.Value
	disposed bool
}

func newChannel(ownerID string, prop keyframe.Property, keys []keyframe.Value) *Channel {
	c := &Channel{
		id:      uuid.NewString(),
		ownerID: ownerID,
		prop:    prop,
		keys:    make([]keyframe.Value, len(keys)),
	}
	for i, v := range keys {
		c.keys[i] = c.canonical(v)
	}
	return c
}

// ID returns the channel identifier.
func (c *Channel) ID() string { return c.id }

// OwnerID returns the identifier of the owning target.
func (c *Channel) OwnerID() string { return c.ownerID }

// Property returns the animated property kind.
func (c *Channel) Property() keyframe.Property { return c.prop }

// Len returns the number of keys, which equals the timeline length.
func (c *Channel) Len() int { return len(c.keys) }

// Disposed reports whether the channel was released with its target.
func (c *Channel) Disposed() bool { return c.disposed }

// Keys returns a copy of the keys in board order.
func (c *Channel) Keys() []keyframe.Value {
	cp := make([]keyframe.Value, len(c.keys))
	copy(cp, c.keys)
	return cp
}

// Key returns the key stored for a board.
func (c *Channel) Key(board int) (keyframe.Value, error) {
	if board < 0 || board >= len(c.keys) {
		return keyframe.Value{}, fmt.Errorf("%w: channel %s has no key for board %d", ErrInvariantViolation, c.prop, board)
	}
	return c.keys[board], nil
}

func (c *Channel) append(v keyframe.Value) {
	c.keys = append(c.keys, c.canonical(v))
}

func (c *Channel) set(board int, v keyframe.Value) error {
	if board < 0 || board >= len(c.keys) {
		return fmt.Errorf("%w: channel %s has no key for board %d", ErrInvariantViolation, c.prop, board)
	}
	c.keys[board] = c.canonical(v)
	return nil
}

// unitTolerance is how far a rotation key may drift from unit length before
// it is renormalized.
const unitTolerance = 1e-5

// canonical keeps rotation keys unit length. Other kinds pass through.
func (c *Channel) canonical(v keyframe.Value) keyframe.Value {
	if c.prop != keyframe.Rotation {
		return v
	}
	q := v.Quat()
	if math32.Abs(q.Length()-1) <= unitTolerance {
		return v
	}
	q.Normalize()
	return keyframe.FromQuat(q)
}

func (c *Channel) dispose() {
	c.keys = nil
	c.disposed = true
}

func repeatValue(v keyframe.Value, n int) []keyframe.Value {
	keys := make([]keyframe.Value, n)
	for i := range keys {
		keys[i] = v
	}
	return keys
}
