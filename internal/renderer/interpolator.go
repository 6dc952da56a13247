package renderer

import (
	"cogentcore.org/core/math32"

	"github.com/ivlev/storyboard/internal/keyframe"
)

// Sample calculates the value of a keyframe track at a given frame by
// interpolating between the surrounding keys. Vectors and scalars are
// interpolated linearly, rotations spherically.
func Sample(keys []keyframe.Key, prop keyframe.Property, frame float32) keyframe.Value {
	if len(keys) == 0 {
		return identity(prop)
	}

	// Before the first key, hold the first key
	if frame <= float32(keys[0].Frame) {
		return keys[0].Value
	}

	// After the last key, hold the last key
	last := keys[len(keys)-1]
	if frame >= float32(last.Frame) {
		return last.Value
	}

	// Find surrounding keys. Boards sharing a frame number collapse onto the
	// later one.
	i := Segment(keys, frame)
	prev, next := keys[i], keys[i+1]

	span := float32(next.Frame - prev.Frame)
	if span <= 0 {
		return next.Value
	}
	t := (frame - float32(prev.Frame)) / span

	return Interpolate(prev.Value, next.Value, prop, t)
}

// Segment returns the index of the key that starts the segment containing
// frame. The result is in [0, len(keys)-2] for tracks with two or more keys.
func Segment(keys []keyframe.Key, frame float32) int {
	lo, hi := 0, len(keys)-1
	for lo < hi-1 {
		mid := (lo + hi) / 2
		if float32(keys[mid].Frame) <= frame {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// Interpolate blends a towards b by t in [0, 1] using the default curve for
// the property kind.
func Interpolate(a, b keyframe.Value, prop keyframe.Property, t float32) keyframe.Value {
	switch prop {
	case keyframe.Rotation:
		q := a.Quat()
		q.Slerp(b.Quat(), t)
		return keyframe.FromQuat(q)
	case keyframe.PlayheadFrame:
		return keyframe.FromScalar(math32.Lerp(a.Scalar(), b.Scalar(), t))
	default:
		return keyframe.Value{
			X: math32.Lerp(a.X, b.X, t),
			Y: math32.Lerp(a.Y, b.Y, t),
			Z: math32.Lerp(a.Z, b.Z, t),
		}
	}
}

// identity returns the neutral value for a property with no keys.
func identity(prop keyframe.Property) keyframe.Value {
	switch prop {
	case keyframe.Rotation:
		return keyframe.Value{W: 1}
	case keyframe.Scaling:
		return keyframe.Value{X: 1, Y: 1, Z: 1}
	}
	return keyframe.Value{}
}
