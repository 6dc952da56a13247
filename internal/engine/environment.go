package engine

import (
	"image/color"

	"cogentcore.org/core/math32"
)

// SunName is the name of the synthetic sun proxy node.
const SunName = "skySun"

// Sky is the procedural sky state derived from the sun.
type Sky struct {
	SunDirection math32.Vector3
	// Elevation is the sun angle above the horizon in radians.
	Elevation float32
	Zenith    color.RGBA
	Horizon   color.RGBA
	Exposure  float32
	Revision  int
}

// DirectionalLight is the scene's single sun light.
type DirectionalLight struct {
	Direction math32.Vector3
	Intensity float32
	Color     color.RGBA
}

// Environment holds lighting that is rebuilt from the sun and never persisted
// with the scene.
type Environment struct {
	Sky   Sky
	Light DirectionalLight
}

func defaultEnvironment() Environment {
	down := math32.Vec3(0, -1, 0)
	return Environment{
		Sky: Sky{
			SunDirection: down,
			Elevation:    math32.Pi / 2,
			Zenith:       color.RGBA{R: 70, G: 130, B: 220, A: 255},
			Horizon:      color.RGBA{R: 200, G: 220, B: 240, A: 255},
			Exposure:     1,
		},
		Light: DirectionalLight{
			Direction: down,
			Intensity: 1,
			Color:     color.RGBA{R: 255, G: 255, B: 255, A: 255},
		},
	}
}
