package editor

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/storyboard/internal/config"
	"github.com/ivlev/storyboard/internal/engine"
	"github.com/ivlev/storyboard/internal/keyframe"
	"github.com/ivlev/storyboard/internal/playback"
	"github.com/ivlev/storyboard/internal/source"
	"github.com/ivlev/storyboard/internal/storyboard"
)

type stubLoader struct {
	model   *source.Model
	err     error
	release chan struct{}
}

func (l *stubLoader) Load(ctx context.Context, path string) (*source.Model, error) {
	if l.release != nil {
		select {
		case <-l.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.err != nil {
		return nil, l.err
	}
	m := *l.model
	m.Path = path
	return &m, nil
}

func robot() *source.Model {
	return &source.Model{
		Name:   "robot",
		Meshes: []source.Mesh{{Name: "body", Primitive: "box", Size: [3]float32{1, 2, 1}, Vertices: 24}},
		Clips:  []source.Clip{{Name: "walk", From: 0, To: 40}},
	}
}

func livePosition(t *testing.T, e *Editor, name string) math32.Vector3 {
	t.Helper()
	var pos math32.Vector3
	e.View(func(scene *engine.Scene, _ *storyboard.Registry) {
		node, ok := scene.FindNode(name)
		require.True(t, ok, "node %q", name)
		pos = node.Position()
	})
	return pos
}

func TestAddPrimitive(t *testing.T) {
	e := New(Options{})

	name, err := e.AddPrimitive("box", "")
	require.NoError(t, err)
	assert.Equal(t, "box1", name)
	assert.Equal(t, "box1", e.Selected())
	assert.Equal(t, []string{"box1"}, e.Objects())

	e.View(func(scene *engine.Scene, reg *storyboard.Registry) {
		node, ok := scene.FindNode("box1")
		require.True(t, ok)
		assert.True(t, node.HasTag(engine.TagStoryboard))
		_, hasGizmo := scene.Gizmo(node)
		assert.True(t, hasGizmo)
		assert.Equal(t, 1, scene.ShadowCasters())
		assert.Len(t, reg.Transforms(), 1)
	})

	_, err = e.AddPrimitive("teapot", "")
	assert.Error(t, err)

	_, err = e.AddPrimitive("sphere", "box1")
	assert.Error(t, err)
}

func TestWriteLiveValueKeysCurrentBoard(t *testing.T) {
	e := New(Options{})
	_, err := e.AddPrimitive("box", "crate")
	require.NoError(t, err)

	require.NoError(t, e.SetCurrentBoard(1))
	assert.Equal(t, 2, e.TimelineLength())
	assert.Equal(t, 1, e.CurrentBoard())

	require.NoError(t, e.WriteLiveValue("crate", keyframe.Position, keyframe.FromVector3(math32.Vec3(1, 2, 3))))
	assert.Equal(t, math32.Vec3(1, 2, 3), livePosition(t, e, "crate"))

	require.NoError(t, e.SetCurrentBoard(0))
	assert.Equal(t, math32.Vec3(0, 0, 0), livePosition(t, e, "crate"))

	require.NoError(t, e.SetCurrentBoard(1))
	assert.Equal(t, math32.Vec3(1, 2, 3), livePosition(t, e, "crate"))

	err = e.WriteLiveValue("missing", keyframe.Position, keyframe.Value{})
	assert.ErrorIs(t, err, storyboard.ErrNotFound)
}

func TestWriteLiveValueKeysNormalizedRotation(t *testing.T) {
	e := New(Options{})
	_, err := e.AddPrimitive("box", "crate")
	require.NoError(t, err)

	require.NoError(t, e.WriteLiveValue("crate", keyframe.Rotation, keyframe.Value{W: 2}))

	e.View(func(scene *engine.Scene, reg *storyboard.Registry) {
		node, ok := scene.FindNode("crate")
		require.True(t, ok)
		target, err := reg.FindTransform("crate")
		require.NoError(t, err)

		key, err := target.Channel(keyframe.Rotation).Key(0)
		require.NoError(t, err)
		assert.Equal(t, keyframe.FromQuat(node.Rotation()), key)
		assert.InDelta(t, 1, key.Quat().Length(), 1e-6)
		assert.InDelta(t, 1, key.W, 1e-6)
	})
}

func TestAttachClipKeysPlayhead(t *testing.T) {
	e := New(Options{})
	_, err := e.AddPrimitive("box", "crate")
	require.NoError(t, err)
	require.NoError(t, e.AttachClip("crate", "spin", 0, 30))
	require.NoError(t, e.AddBoard())

	require.NoError(t, e.SetCurrentBoard(1))
	require.NoError(t, e.WriteLiveValue("spin", keyframe.PlayheadFrame, keyframe.FromScalar(12)))

	e.View(func(scene *engine.Scene, reg *storyboard.Registry) {
		clip, ok := scene.FindClip("spin")
		require.True(t, ok)
		assert.InDelta(t, 12, clip.CurrentFrame(), 1e-6)

		nested, err := reg.FindNested("spin")
		require.NoError(t, err)
		values := nested.Channel().Keys()
		require.Len(t, values, 2)
		assert.InDelta(t, 12, values[1].Scalar(), 1e-6)
	})

	assert.Error(t, e.AttachClip("crate", "spin", 0, 10))
	assert.ErrorIs(t, e.AttachClip("ghost", "idle", 0, 10), storyboard.ErrNotFound)
}

func TestPlayRunsCallbackOutsideLock(t *testing.T) {
	e := New(Options{FPS: 60, DefaultGap: 60})
	_, err := e.AddPrimitive("box", "crate")
	require.NoError(t, err)
	require.NoError(t, e.SetCurrentBoard(1))
	require.NoError(t, e.WriteLiveValue("crate", keyframe.Position, keyframe.FromVector3(math32.Vec3(6, 0, 0))))

	calls := 0
	require.NoError(t, e.Play(func() {
		calls++
		// Re-entering the editor would deadlock if the callback ran under
		// its lock.
		assert.Equal(t, playback.Stopped, e.PlaybackState())
	}))
	assert.Equal(t, playback.Playing, e.PlaybackState())

	done, err := e.Step(500 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, done)
	assert.InDelta(t, 3, livePosition(t, e, "crate").X, 1e-3)
	assert.Zero(t, calls)

	done, err = e.Step(time.Second)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 1, calls)
	assert.InDelta(t, 6, livePosition(t, e, "crate").X, 1e-3)
}

func TestPauseResumeStop(t *testing.T) {
	e := New(Options{})
	require.NoError(t, e.AddBoard())

	assert.Error(t, e.Resume())

	require.NoError(t, e.Play(nil))
	e.Pause()
	assert.Equal(t, playback.Paused, e.PlaybackState())
	require.NoError(t, e.Resume())
	assert.Equal(t, playback.Playing, e.PlaybackState())
	e.Stop()
	assert.Equal(t, playback.Stopped, e.PlaybackState())
}

func TestRealTimePlaybackFinishes(t *testing.T) {
	e := New(Options{FPS: 600, DefaultGap: 6, Tick: time.Millisecond, RealTime: true})
	require.NoError(t, e.AddBoard())

	ended := make(chan struct{})
	require.NoError(t, e.Play(func() { close(ended) }))

	select {
	case <-ended:
	case <-time.After(5 * time.Second):
		t.Fatal("playback did not finish")
	}
	assert.Equal(t, playback.Stopped, e.PlaybackState())
}

func TestRealTimePlaybackReportsDriverError(t *testing.T) {
	failed := make(chan error, 1)
	e := New(Options{FPS: 60, DefaultGap: 6000, Tick: time.Millisecond, RealTime: true, OnError: func(err error) { failed <- err }})
	require.NoError(t, e.AddBoard())

	ended := false
	require.NoError(t, e.Play(func() { ended = true }))
	e.View(func(_ *engine.Scene, reg *storyboard.Registry) {
		require.NoError(t, reg.Dispose())
	})

	select {
	case err := <-failed:
		assert.ErrorIs(t, err, storyboard.ErrInvariantViolation)
	case <-time.After(5 * time.Second):
		t.Fatal("driver error was not reported")
	}
	assert.Equal(t, playback.Stopped, e.PlaybackState())
	assert.False(t, ended)
}

func sampleArchive(t *testing.T) []byte {
	t.Helper()
	e := New(Options{})
	_, err := e.AddPrimitive("box", "crate")
	require.NoError(t, err)
	require.NoError(t, e.AddSun())
	require.NoError(t, e.SetCurrentBoard(1))
	require.NoError(t, e.WriteLiveValue("crate", keyframe.Position, keyframe.FromVector3(math32.Vec3(0, 5, 0))))
	data, err := e.Serialize()
	require.NoError(t, err)
	return data
}

func TestDeserializeReplacesDocument(t *testing.T) {
	data := sampleArchive(t)

	e := New(Options{})
	_, err := e.AddPrimitive("sphere", "ball")
	require.NoError(t, err)
	require.NoError(t, e.SetCurrentBoard(1))
	require.NoError(t, e.SetCurrentBoard(2))

	require.NoError(t, e.Deserialize(data))
	assert.ElementsMatch(t, []string{"crate", engine.SunName}, e.Objects())
	assert.Equal(t, 2, e.TimelineLength())
	assert.Equal(t, 0, e.CurrentBoard())
	assert.Empty(t, e.Selected())
	assert.Empty(t, e.Unresolved())
	assert.Empty(t, e.Warnings())

	require.NoError(t, e.SetCurrentBoard(1))
	assert.Equal(t, math32.Vec3(0, 5, 0), livePosition(t, e, "crate"))

	var before int
	e.View(func(scene *engine.Scene, _ *storyboard.Registry) {
		before = scene.Environment().Sky.Revision
		assert.Equal(t, 1, scene.ShadowCasters())
	})
	tilt := math32.NewQuatAxisAngle(math32.Vec3(1, 0, 0), -math32.Pi/4)
	require.NoError(t, e.WriteLiveValue(engine.SunName, keyframe.Rotation, keyframe.FromQuat(tilt)))
	e.View(func(scene *engine.Scene, _ *storyboard.Registry) {
		assert.Greater(t, scene.Environment().Sky.Revision, before)
	})
}

func TestSunClipSurvivesSaveAndLoad(t *testing.T) {
	src := New(Options{})
	require.NoError(t, src.AddSun())
	require.NoError(t, src.AttachClip(engine.SunName, "dayCycle", 0, 100))
	require.NoError(t, src.SetCurrentBoard(1))
	require.NoError(t, src.WriteLiveValue("dayCycle", keyframe.PlayheadFrame, keyframe.FromScalar(50)))
	data, err := src.Serialize()
	require.NoError(t, err)

	dst := New(Options{})
	require.NoError(t, dst.Deserialize(data))
	assert.Empty(t, dst.Unresolved())

	require.NoError(t, dst.SetCurrentBoard(1))
	dst.View(func(scene *engine.Scene, reg *storyboard.Registry) {
		clip, ok := scene.FindClip("dayCycle")
		require.True(t, ok)
		assert.InDelta(t, 50, clip.CurrentFrame(), 1e-6)
		nested, err := reg.FindNested("dayCycle")
		require.NoError(t, err)
		assert.Equal(t, engine.SunName, nested.Owner().Name())
	})
}

func TestDeserializeMalformedKeepsDocument(t *testing.T) {
	e := New(Options{})
	_, err := e.AddPrimitive("box", "crate")
	require.NoError(t, err)

	err = e.Deserialize([]byte("not an archive"))
	require.ErrorIs(t, err, storyboard.ErrSerialization)
	assert.Equal(t, []string{"crate"}, e.Objects())
	assert.Equal(t, "crate", e.Selected())
}

func TestImportModel(t *testing.T) {
	e := New(Options{Loader: &stubLoader{model: robot()}})

	require.NoError(t, <-e.ImportModel(context.Background(), "robot.yaml", "hero"))
	assert.Contains(t, e.Objects(), "hero")

	e.View(func(scene *engine.Scene, reg *storyboard.Registry) {
		nested, err := reg.FindNested("hero.walk")
		require.NoError(t, err)
		assert.Equal(t, "hero", nested.Owner().Name())

		node, ok := scene.FindNode("hero")
		require.True(t, ok)
		assert.Equal(t, engine.KindModel, node.Kind())
		assert.Equal(t, "robot.yaml", node.Geometry().Source)
	})
}

func TestImportModelDroppedAfterLoad(t *testing.T) {
	data := sampleArchive(t)
	loader := &stubLoader{model: robot(), release: make(chan struct{})}
	e := New(Options{Loader: loader})

	done := e.ImportModel(context.Background(), "robot.yaml", "hero")
	require.NoError(t, e.Deserialize(data))
	close(loader.release)

	assert.ErrorIs(t, <-done, ErrImportDropped)
	assert.NotContains(t, e.Objects(), "hero")
	e.View(func(scene *engine.Scene, _ *storyboard.Registry) {
		_, ok := scene.FindNode("hero")
		assert.False(t, ok)
	})
}

func TestImportModelLoaderError(t *testing.T) {
	e := New(Options{Loader: &stubLoader{err: assert.AnError}})
	assert.ErrorIs(t, <-e.ImportModel(context.Background(), "broken.yaml", ""), assert.AnError)
	assert.Empty(t, e.Objects())
}

func TestSelectAndDelete(t *testing.T) {
	e := New(Options{})
	_, err := e.AddPrimitive("box", "a")
	require.NoError(t, err)
	_, err = e.AddPrimitive("box", "b")
	require.NoError(t, err)
	require.NoError(t, e.AttachClip("b", "b.spin", 0, 10))

	require.NoError(t, e.Select("a"))
	assert.Equal(t, "a", e.Selected())
	assert.ErrorIs(t, e.Select("zzz"), storyboard.ErrNotFound)

	require.NoError(t, e.DeleteObject("b"))
	require.NoError(t, e.DeleteObject("a"))
	assert.Empty(t, e.Selected())
	assert.Empty(t, e.Objects())

	e.View(func(scene *engine.Scene, reg *storyboard.Registry) {
		assert.Zero(t, scene.ShadowCasters())
		assert.Empty(t, scene.Clips())
		assert.Empty(t, reg.Targets())
	})
	assert.ErrorIs(t, e.DeleteObject("a"), storyboard.ErrNotFound)
}

func TestAddSunTwice(t *testing.T) {
	e := New(Options{})
	require.NoError(t, e.AddSun())
	require.NoError(t, e.AddSun())
	assert.Equal(t, []string{engine.SunName}, e.Objects())
}

func TestSaveAndLoadFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scene"+config.ArchiveExt)

	src := New(Options{})
	_, err := src.AddPrimitive("cylinder", "pillar")
	require.NoError(t, err)
	require.NoError(t, src.AddBoard())
	require.NoError(t, src.SaveFile(ctx, path))

	dst := New(Options{})
	require.NoError(t, dst.LoadFile(ctx, path))
	assert.Equal(t, []string{"pillar"}, dst.Objects())
	assert.Equal(t, 2, dst.TimelineLength())

	assert.Error(t, dst.LoadFile(ctx, filepath.Join(t.TempDir(), "missing.zip")))
}

func TestConcurrentEditsAreSerialized(t *testing.T) {
	e := New(Options{})
	_, err := e.AddPrimitive("box", "crate")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := keyframe.FromVector3(math32.Vec3(float32(i), 0, 0))
			assert.NoError(t, e.WriteLiveValue("crate", keyframe.Position, v))
		}(i)
	}
	wg.Wait()

	e.View(func(_ *engine.Scene, reg *storyboard.Registry) {
		assert.NoError(t, reg.Validate())
	})
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	opts := OptionsFromConfig(&cfg, nil)
	assert.Equal(t, cfg.Timeline.FPS, opts.FPS)
	assert.Equal(t, 16*time.Millisecond, opts.Tick)
	assert.Equal(t, cfg.Project.Basename, opts.Basename)
}
