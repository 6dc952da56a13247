package engine

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/storyboard/internal/keyframe"
)

func TestSceneNodesAndTags(t *testing.T) {
	s := NewScene()
	box := NewNode("box1", KindMesh, TagStoryboard)
	ground := NewNode("ground", KindMesh)
	require.NoError(t, s.AddNode(box))
	require.NoError(t, s.AddNode(ground))

	assert.Error(t, s.AddNode(NewNode("box1", KindMesh)), "duplicate names are rejected")
	assert.Error(t, s.AddNode(NewNode(SunName, KindMesh)), "sun name is reserved")

	tagged := s.NodesByTag(TagStoryboard)
	require.Len(t, tagged, 1)
	assert.Same(t, box, tagged[0])

	found, ok := s.FindNode("ground")
	require.True(t, ok)
	assert.Same(t, ground, found)
}

func TestSceneClipsFollowOwner(t *testing.T) {
	s := NewScene()
	hero := NewNode("hero", KindModel, TagStoryboard)
	require.NoError(t, s.AddNode(hero))
	walk := NewClip("walk", "hero", 0, 30)
	require.NoError(t, s.AddClip(walk))
	assert.Error(t, s.AddClip(NewClip("run", "ghost", 0, 10)))

	s.AttachGizmo(hero, GizmoPosition)
	s.AddShadowCaster(hero)

	removed := s.RemoveNode(hero)
	require.Len(t, removed, 1)
	assert.Same(t, walk, removed[0])
	assert.Empty(t, s.Clips())
	assert.Zero(t, s.ShadowCasters())
	_, ok := s.Gizmo(hero)
	assert.False(t, ok)
}

func TestClipEvaluation(t *testing.T) {
	c := NewClip("wave", "hero", 10, 40)

	assert.Zero(t, c.FirstFrame(), "never evaluated")
	assert.Zero(t, c.LastFrame(), "never evaluated")

	c.GoToFrame(25)
	assert.Equal(t, float32(10), c.FirstFrame())
	assert.Equal(t, float32(40), c.LastFrame())
	assert.Equal(t, float32(25), c.CurrentFrame())

	c.Play(true)
	assert.True(t, c.Playing())
	assert.True(t, c.Looping())
	c.Pause()
	assert.False(t, c.Playing())
	assert.Equal(t, float32(25), c.CurrentFrame())

	c.Stop()
	assert.Equal(t, float32(10), c.CurrentFrame())
}

func TestSunProxy(t *testing.T) {
	s := NewScene()
	assert.Nil(t, s.Sun())

	sun := s.EnsureSun()
	assert.Same(t, sun, s.EnsureSun())
	assert.Equal(t, KindSun, sun.Kind())

	found, ok := s.FindNode(SunName)
	require.True(t, ok)
	assert.Same(t, sun, found)
	assert.Empty(t, s.Nodes(), "sun is not a persisted node")
}

func TestNodeTracks(t *testing.T) {
	n := NewNode("box", KindMesh, TagStoryboard)
	n.SetTrack(keyframe.Position, []keyframe.Key{
		{Frame: 0, Value: keyframe.FromVector3(math32.Vec3(0, 0, 0))},
		{Frame: 60, Value: keyframe.FromVector3(math32.Vec3(6, 0, 0))},
	})
	track, ok := n.Track(keyframe.Position)
	require.True(t, ok)
	assert.Len(t, track, 2)

	n.SetTrack(keyframe.Position, nil)
	_, ok = n.Track(keyframe.Position)
	assert.False(t, ok)
}

func TestDisposeReportsLeaks(t *testing.T) {
	s := NewScene()
	n := NewNode("box", KindMesh)
	require.NoError(t, s.AddNode(n))
	s.AttachGizmo(n, GizmoRotation)

	err := s.Dispose()
	require.ErrorIs(t, err, ErrLeaked)
	assert.True(t, s.Disposed())
	assert.Empty(t, s.Nodes())
	assert.NoError(t, s.Dispose(), "second dispose is a no-op")
}

func TestNewPrimitive(t *testing.T) {
	for _, kind := range PrimitiveKinds {
		g, err := NewPrimitive(kind)
		require.NoError(t, err, kind)
		assert.Equal(t, kind, g.Primitive)
	}

	g, err := NewPrimitive("")
	require.NoError(t, err)
	assert.Equal(t, "box", g.Primitive)

	_, err = NewPrimitive("teapot")
	assert.Error(t, err)
}
