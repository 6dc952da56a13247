package effects

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/storyboard/internal/engine"
	"github.com/ivlev/storyboard/internal/keyframe"
	"github.com/ivlev/storyboard/internal/storyboard"
)

func TestSkyEffectElevation(t *testing.T) {
	eff := NewSkyEffect()
	env := &engine.Environment{}

	// Pitching -Z down by 90 degrees points the light straight down.
	noon := math32.NewQuatAxisAngle(math32.Vec3(1, 0, 0), -math32.Pi/2)
	eff.Apply(env, noon)
	assert.InDelta(t, math32.Pi/2, env.Sky.Elevation, 1e-3)
	assert.InDelta(t, 1, env.Light.Intensity, 1e-3)
	assert.InDelta(t, -1, env.Light.Direction.Y, 1e-3)

	// Identity shines along the horizon.
	eff.Apply(env, math32.NewQuat(0, 0, 0, 1))
	assert.InDelta(t, 0, env.Sky.Elevation, 1e-3)
	assert.InDelta(t, 0, env.Light.Intensity, 1e-3)

	// Below the horizon the sky keeps a minimum exposure.
	night := math32.NewQuatAxisAngle(math32.Vec3(1, 0, 0), math32.Pi/3)
	eff.Apply(env, night)
	assert.Less(t, env.Sky.Elevation, float32(0))
	assert.Zero(t, env.Light.Intensity)
	assert.Equal(t, float32(0.1), env.Sky.Exposure)
	assert.Equal(t, 3, env.Sky.Revision)
}

func TestBindRefreshesOnSettle(t *testing.T) {
	scene := engine.NewScene()
	sun := scene.EnsureSun()
	reg := storyboard.New(storyboard.Options{})
	target, err := reg.AddTransform(sun)
	require.NoError(t, err)

	env := scene.Environment()
	unbind := Bind(target, env, NewSkyEffect())
	require.Equal(t, 1, env.Sky.Revision, "bind applies once immediately")

	// Live writes alone do not refresh the sky.
	noon := math32.NewQuatAxisAngle(math32.Vec3(1, 0, 0), -math32.Pi/2)
	target.SetRotation(noon)
	assert.Equal(t, 1, env.Sky.Revision)

	require.NoError(t, reg.WriteLiveValueToCurrentKey(target, keyframe.Rotation, keyframe.FromQuat(noon)))
	assert.Equal(t, 2, env.Sky.Revision)
	assert.InDelta(t, math32.Pi/2, env.Sky.Elevation, 1e-3)

	unbind()
	require.NoError(t, reg.WriteLiveValueToCurrentKey(target, keyframe.Rotation, keyframe.FromQuat(noon)))
	assert.Equal(t, 2, env.Sky.Revision)
}
