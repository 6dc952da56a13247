// Package effects derives presentation state from animated targets.
package effects

import (
	"image/color"

	"cogentcore.org/core/math32"

	"github.com/ivlev/storyboard/internal/engine"
	"github.com/ivlev/storyboard/internal/storyboard"
)

// Effect recomputes environment state from the rotation of a target.
type Effect interface {
	Apply(env *engine.Environment, rotation math32.Quat)
}

// Bind applies eff to env whenever target settles, and once immediately.
// The returned function removes the binding.
func Bind(target *storyboard.TransformTarget, env *engine.Environment, eff Effect) (unbind func()) {
	eff.Apply(env, target.Rotation())
	return target.Subscribe(func(t *storyboard.TransformTarget) {
		eff.Apply(env, t.Rotation())
	})
}

var (
	nightZenith  = color.RGBA{R: 8, G: 12, B: 35, A: 255}
	dayZenith    = color.RGBA{R: 70, G: 130, B: 220, A: 255}
	dayHorizon   = color.RGBA{R: 200, G: 220, B: 240, A: 255}
	duskHorizon  = color.RGBA{R: 245, G: 140, B: 70, A: 255}
	nightHorizon = color.RGBA{R: 20, G: 25, B: 50, A: 255}
)

// SkyEffect lights a procedural sky from the sun's orientation. The sun
// shines along its local -Z axis.
type SkyEffect struct {
	// MinExposure keeps the sky visible at night.
	MinExposure float32
}

// NewSkyEffect returns a sky effect with default settings.
func NewSkyEffect() *SkyEffect {
	return &SkyEffect{MinExposure: 0.1}
}

func (e *SkyEffect) Apply(env *engine.Environment, rotation math32.Quat) {
	dir := math32.Vec3(0, 0, -1).MulQuat(rotation)
	dir = dir.Normal()

	// Light travelling downwards means the sun is above the horizon.
	elevation := math32.Asin(math32.Clamp(-dir.Y, -1, 1))
	height := math32.Sin(elevation)
	day := math32.Clamp(height*2, 0, 1)
	dusk := 1 - math32.Clamp(math32.Abs(height)*4, 0, 1)

	horizon := mix(nightHorizon, dayHorizon, day)
	if height > -0.25 {
		horizon = mix(horizon, duskHorizon, dusk)
	}

	env.Sky.SunDirection = dir
	env.Sky.Elevation = elevation
	env.Sky.Zenith = mix(nightZenith, dayZenith, day)
	env.Sky.Horizon = horizon
	env.Sky.Exposure = math32.Max(e.MinExposure, math32.Clamp(height, 0, 1))
	env.Sky.Revision++

	env.Light.Direction = dir
	env.Light.Intensity = math32.Max(0, height)
	env.Light.Color = mix(duskHorizon, color.RGBA{R: 255, G: 255, B: 255, A: 255}, day)
}

func mix(a, b color.RGBA, t float32) color.RGBA {
	lerp := func(x, y uint8) uint8 {
		return uint8(math32.Round(math32.Lerp(float32(x), float32(y), t)))
	}
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: lerp(a.A, b.A)}
}
