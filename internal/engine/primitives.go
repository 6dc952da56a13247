package engine

import (
	"fmt"

	"cogentcore.org/core/math32"
)

// Geometry describes the mesh attached to a node.
type Geometry struct {
	Primitive string
	Size      math32.Vector3
	Segments  int
	// Source is the model file an imported mesh came from.
	Source   string
	Vertices int
}

// PrimitiveKinds lists the primitives NewPrimitive accepts.
var PrimitiveKinds = []string{"box", "sphere", "plane", "cylinder"}

// NewPrimitive creates geometry for the specified primitive variant
func NewPrimitive(variant string) (*Geometry, error) {
	switch variant {
	case "box", "":
		return &Geometry{Primitive: "box", Size: math32.Vec3(1, 1, 1), Vertices: 24}, nil
	case "sphere":
		return &Geometry{Primitive: "sphere", Size: math32.Vec3(1, 1, 1), Segments: 32, Vertices: 33 * 33}, nil
	case "plane":
		return &Geometry{Primitive: "plane", Size: math32.Vec3(1, 0, 1), Vertices: 4}, nil
	case "cylinder":
		return &Geometry{Primitive: "cylinder", Size: math32.Vec3(1, 2, 1), Segments: 24, Vertices: 4 * 25}, nil
	default:
		return nil, fmt.Errorf("unknown primitive variant: %s", variant)
	}
}
