// Package keyframe defines the value types shared by storyboard channels, the
// engine's keyframe tracks and the archive codec.
package keyframe

import (
	"fmt"

	"cogentcore.org/core/math32"
)

// Property names an animatable property of a target.
type Property string

const (
	Position      Property = "position"
	Rotation      Property = "rotation"
	Scaling       Property = "scaling"
	PlayheadFrame Property = "playheadFrame"
)

// TransformProperties lists the properties every transform target animates, in
// channel order.
var TransformProperties = []Property{Position, Rotation, Scaling}

// Valid reports whether p is one of the four known property kinds.
func (p Property) Valid() bool {
	switch p {
	case Position, Rotation, Scaling, PlayheadFrame:
		return true
	}
	return false
}

// ParseProperty converts a property name into a Property.
func ParseProperty(name string) (Property, error) {
	p := Property(name)
	if !p.Valid() {
		return "", fmt.Errorf("unknown property %q", name)
	}
	return p, nil
}

// Value is a four-component payload. Vectors use X, Y and Z, quaternions use
// all four components and scalars use X.
type Value struct {
	X float32 `yaml:"x" json:"x"`
	Y float32 `yaml:"y" json:"y"`
	Z float32 `yaml:"z" json:"z"`
	W float32 `yaml:"w" json:"w"`
}

// FromVector3 wraps a 3-vector.
func FromVector3(v math32.Vector3) Value {
	return Value{X: v.X, Y: v.Y, Z: v.Z}
}

// FromQuat wraps a quaternion.
func FromQuat(q math32.Quat) Value {
	return Value{X: q.X, Y: q.Y, Z: q.Z, W: q.W}
}

// FromScalar wraps a scalar frame number.
func FromScalar(f float32) Value {
	return Value{X: f}
}

// Vector3 returns the vector view of v.
func (v Value) Vector3() math32.Vector3 {
	return math32.Vec3(v.X, v.Y, v.Z)
}

// Quat returns the quaternion view of v.
func (v Value) Quat() math32.Quat {
	return math32.NewQuat(v.X, v.Y, v.Z, v.W)
}

// Scalar returns the scalar view of v.
func (v Value) Scalar() float32 {
	return v.X
}

// ApproxEqual compares two values component-wise within tol.
func (v Value) ApproxEqual(o Value, tol float32) bool {
	return math32.Abs(v.X-o.X) <= tol &&
		math32.Abs(v.Y-o.Y) <= tol &&
		math32.Abs(v.Z-o.Z) <= tol &&
		math32.Abs(v.W-o.W) <= tol
}

func (v Value) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f, %.3f)", v.X, v.Y, v.Z, v.W)
}

// Key is a value pinned to a frame number on the continuous timeline.
type Key struct {
	Frame int   `yaml:"frame" json:"frame"`
	Value Value `yaml:"value" json:"value"`
}

// Keys pairs frame numbers with values. The shorter slice bounds the result.
func Keys(frames []int, values []Value) []Key {
	n := len(frames)
	if len(values) < n {
		n = len(values)
	}
	keys := make([]Key, n)
	for i := 0; i < n; i++ {
		keys[i] = Key{Frame: frames[i], Value: values[i]}
	}
	return keys
}

// Values strips the frame numbers from keys.
func Values(keys []Key) []Value {
	values := make([]Value, len(keys))
	for i, k := range keys {
		values[i] = k.Value
	}
	return values
}
