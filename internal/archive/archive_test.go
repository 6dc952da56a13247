package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/storyboard/internal/engine"
	"github.com/ivlev/storyboard/internal/keyframe"
	"github.com/ivlev/storyboard/internal/storyboard"
)

type fixture struct {
	scene *engine.Scene
	reg   *storyboard.Registry
	hero  *engine.Node
	walk  *engine.Clip
	sun   *engine.Node
}

// newFixture builds a mesh owning one clip and a sun, with three boards
// whose playhead keys are 0, 10 and 5.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{scene: engine.NewScene(), reg: storyboard.New(storyboard.Options{DefaultGap: 60})}

	f.hero = engine.NewNode("hero", engine.KindModel, engine.TagStoryboard)
	require.NoError(t, f.scene.AddNode(f.hero))
	f.walk = engine.NewClip("walk", "hero", 0, 30)
	require.NoError(t, f.scene.AddClip(f.walk))
	f.sun = f.scene.EnsureSun()

	target, err := f.reg.AddTransform(f.hero)
	require.NoError(t, err)
	_, err = f.reg.AttachNested(target, f.walk)
	require.NoError(t, err)
	_, err = f.reg.AddTransform(f.sun)
	require.NoError(t, err)

	f.walk.GoToFrame(10)
	f.hero.SetPosition(math32.Vec3(1, 0, 0))
	f.sun.SetRotation(math32.NewQuatAxisAngle(math32.Vec3(1, 0, 0), -math32.Pi/4))
	require.NoError(t, f.reg.AddBoard(0))

	f.walk.GoToFrame(5)
	f.hero.SetPosition(math32.Vec3(2, 0, 3))
	require.NoError(t, f.reg.AddBoard(30))
	return f
}

func scalars(values []keyframe.Value) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = v.Scalar()
	}
	return out
}

// rewrite returns a copy of archive data with entry replaced, or removed when
// content is nil.
func rewrite(t *testing.T, data []byte, entry string, content []byte) []byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		body := content
		if f.Name != entry {
			rc, err := f.Open()
			require.NoError(t, err)
			body, err = io.ReadAll(rc)
			require.NoError(t, err)
			rc.Close()
		} else if content == nil {
			continue
		}
		w, err := zw.Create(f.Name)
		require.NoError(t, err)
		_, err = w.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestSerializeWritesEntriesInOrder(t *testing.T) {
	f := newFixture(t)
	codec := NewCodec(Options{Basename: "shot"})

	data, err := codec.Serialize(f.reg, f.scene)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var got []string
	for _, file := range zr.File {
		got = append(got, file.Name)
	}
	assert.Equal(t, []string{
		"shot.yaml",
		"shot_keyframes.json",
		"shot_skySun_rotation_animation.json",
		"shot_m2a.json",
		"shot_a2aa.json",
	}, got)

	entries, err := readEntries(zr)
	require.NoError(t, err)
	assert.JSONEq(t, `[0,60,90]`, string(entries["shot_keyframes.json"]))
	assert.JSONEq(t, `{"hero":["walk"]}`, string(entries["shot_m2a.json"]))
	assert.JSONEq(t, `{"walk":[{"frame":0,"value":0},{"frame":60,"value":10},{"frame":90,"value":5}]}`, string(entries["shot_a2aa.json"]))
	assert.NotContains(t, string(entries["shot.yaml"]), "environment")
}

func TestRoundTrip(t *testing.T) {
	f := newFixture(t)
	codec := NewCodec(Options{})

	data, err := codec.Serialize(f.reg, f.scene)
	require.NoError(t, err)
	res, err := codec.Deserialize(data)
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	require.Empty(t, res.Unresolved)

	reg := res.Registry
	require.NoError(t, reg.Validate())
	assert.Equal(t, f.reg.FrameNumbers(), reg.FrameNumbers())

	hero, err := reg.FindTransform("hero")
	require.NoError(t, err)
	orig, err := f.reg.FindTransform("hero")
	require.NoError(t, err)
	for _, prop := range keyframe.TransformProperties {
		want := orig.Channel(prop).Keys()
		got := hero.Channel(prop).Keys()
		require.Len(t, got, len(want), prop)
		for i := range want {
			assert.True(t, want[i].ApproxEqual(got[i], 1e-5), "%s board %d: %s != %s", prop, i, want[i], got[i])
		}
	}

	sun, err := reg.FindTransform(engine.SunName)
	require.NoError(t, err)
	origSun, err := f.reg.FindTransform(engine.SunName)
	require.NoError(t, err)
	assert.Equal(t, origSun.Channel(keyframe.Rotation).Keys(), sun.Channel(keyframe.Rotation).Keys())
	assert.NotNil(t, res.Scene.Sun())
}

func TestNestedPlayheadKeysSurviveRoundTrip(t *testing.T) {
	f := newFixture(t)
	codec := NewCodec(Options{})

	data, err := codec.Serialize(f.reg, f.scene)
	require.NoError(t, err)
	res, err := codec.Deserialize(data)
	require.NoError(t, err)

	nested, err := res.Registry.FindNested("walk")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 10, 5}, scalars(nested.Channel().Keys()))
	assert.Equal(t, "hero", nested.Owner().Name())
}

func attachDayCycle(t *testing.T, f *fixture) *engine.Clip {
	t.Helper()
	clip := engine.NewClip("dayCycle", engine.SunName, 0, 100)
	require.NoError(t, f.scene.AddClip(clip))
	sun, err := f.reg.FindTransform(engine.SunName)
	require.NoError(t, err)
	clip.GoToFrame(50)
	_, err = f.reg.AttachNested(sun, clip)
	require.NoError(t, err)
	return clip
}

func TestSunOwnedClipSurvivesRoundTrip(t *testing.T) {
	f := newFixture(t)
	attachDayCycle(t, f)
	codec := NewCodec(Options{Basename: "shot"})

	data, err := codec.Serialize(f.reg, f.scene)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	entries, err := readEntries(zr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hero":["walk"],"skySun":["dayCycle"]}`, string(entries["shot_m2a.json"]))

	res, err := codec.Deserialize(data)
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	require.Empty(t, res.Unresolved)
	require.NoError(t, res.Registry.Validate())

	nested, err := res.Registry.FindNested("dayCycle")
	require.NoError(t, err)
	assert.Equal(t, engine.SunName, nested.Owner().Name())
	assert.Equal(t, []float32{50, 50, 50}, scalars(nested.Channel().Keys()))
	assert.Same(t, res.Scene.Sun(), nested.Owner().Node())

	sun, err := res.Registry.FindTransform(engine.SunName)
	require.NoError(t, err)
	origSun, err := f.reg.FindTransform(engine.SunName)
	require.NoError(t, err)
	assert.Equal(t, origSun.Channel(keyframe.Rotation).Keys(), sun.Channel(keyframe.Rotation).Keys())
}

func TestEmptySunEntryWithSunClipDegrades(t *testing.T) {
	f := newFixture(t)
	attachDayCycle(t, f)
	codec := NewCodec(Options{})
	data, err := codec.Serialize(f.reg, f.scene)
	require.NoError(t, err)

	names := codec.Names()
	data = rewrite(t, data, names.Sun, []byte(`[]`))

	res, err := codec.Deserialize(data)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, names.Sun, res.Warnings[0].Entry)
	assert.Empty(t, res.Unresolved)

	_, err = res.Registry.FindTransform(engine.SunName)
	require.NoError(t, err)
	_, err = res.Registry.FindNested("dayCycle")
	assert.NoError(t, err)
}

func TestMissingClipIsReportedNotFatal(t *testing.T) {
	f := newFixture(t)
	codec := NewCodec(Options{})
	data, err := codec.Serialize(f.reg, f.scene)
	require.NoError(t, err)

	names := codec.Names()
	data = rewrite(t, data, names.M2A, []byte(`{"hero":["walk","ghost"]}`))

	res, err := codec.Deserialize(data)
	require.NoError(t, err)
	require.Len(t, res.Unresolved, 1)
	ref := res.Unresolved[0]
	assert.Equal(t, RefClip, ref.Kind)
	assert.Equal(t, "ghost", ref.Clip)
	assert.ErrorIs(t, ref, storyboard.ErrNotFound)

	_, err = res.Registry.FindNested("ghost")
	assert.ErrorIs(t, err, storyboard.ErrNotFound)
	_, err = res.Registry.FindNested("walk")
	assert.NoError(t, err)
}

func TestUnknownMeshAndOrphanKeys(t *testing.T) {
	f := newFixture(t)
	codec := NewCodec(Options{})
	data, err := codec.Serialize(f.reg, f.scene)
	require.NoError(t, err)

	names := codec.Names()
	data = rewrite(t, data, names.M2A, []byte(`{"villain":["walk"]}`))
	data = rewrite(t, data, names.A2AA, []byte(`{"walk":[],"dance":[]}`))

	res, err := codec.Deserialize(data)
	require.NoError(t, err)
	require.Len(t, res.Unresolved, 2)
	assert.Equal(t, RefMesh, res.Unresolved[0].Kind)
	assert.Equal(t, "villain", res.Unresolved[0].Mesh)
	assert.Equal(t, RefOrphan, res.Unresolved[1].Kind)
	assert.Equal(t, "dance", res.Unresolved[1].Clip)
}

func TestOptionalEntriesDegrade(t *testing.T) {
	f := newFixture(t)
	codec := NewCodec(Options{})
	data, err := codec.Serialize(f.reg, f.scene)
	require.NoError(t, err)

	names := codec.Names()
	data = rewrite(t, data, names.Sun, []byte(`not json`))
	data = rewrite(t, data, names.A2AA, nil)

	res, err := codec.Deserialize(data)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, names.Sun, res.Warnings[0].Entry)
	assert.Equal(t, names.A2AA, res.Warnings[1].Entry)

	// The sun falls back to its live rotation on every board.
	sun, err := res.Registry.FindTransform(engine.SunName)
	require.NoError(t, err)
	keys := sun.Channel(keyframe.Rotation).Keys()
	require.Len(t, keys, 3)
	assert.Equal(t, keys[0], keys[2])

	// The clip is attached with its live playhead.
	nested, err := res.Registry.FindNested("walk")
	require.NoError(t, err)
	assert.Len(t, nested.Channel().Keys(), 3)
	assert.Empty(t, res.Unresolved)
}

func TestRequiredEntries(t *testing.T) {
	f := newFixture(t)
	codec := NewCodec(Options{})
	data, err := codec.Serialize(f.reg, f.scene)
	require.NoError(t, err)
	names := codec.Names()

	tests := []struct {
		name  string
		entry string
		body  []byte
	}{
		{"missing scene", names.Scene, nil},
		{"missing keyframes", names.Keyframes, nil},
		{"malformed keyframes", names.Keyframes, []byte(`{"a":1}`)},
		{"empty timeline", names.Keyframes, []byte(`[]`)},
		{"non monotonic timeline", names.Keyframes, []byte(`[0,60,30]`)},
		{"malformed scene", names.Scene, []byte("version: [")},
		{"timeline shorter than tracks", names.Keyframes, []byte(`[0,60]`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Deserialize(rewrite(t, data, tt.entry, tt.body))
			assert.ErrorIs(t, err, storyboard.ErrSerialization)
		})
	}

	_, err = codec.Deserialize([]byte("not a zip"))
	assert.ErrorIs(t, err, storyboard.ErrSerialization)
}

func TestSerializeRejectsDisposedRegistry(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Dispose())
	_, err := NewCodec(Options{}).Serialize(f.reg, f.scene)
	assert.ErrorIs(t, err, storyboard.ErrSerialization)
}

func TestWriteAndReadFile(t *testing.T) {
	f := newFixture(t)
	codec := NewCodec(Options{})
	data, err := codec.Serialize(f.reg, f.scene)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "projects", "scene.storyboard.zip")
	ctx := context.Background()
	require.NoError(t, WriteFile(ctx, path, data))

	read, err := ReadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, data, read)

	_, err = ReadFile(ctx, filepath.Join(t.TempDir(), "absent.zip"))
	assert.Error(t, err)
}

func TestGeneratePath(t *testing.T) {
	path := GeneratePath("/tmp/projects", "scene", ".storyboard.zip")
	assert.Equal(t, "/tmp/projects", filepath.Dir(path))
	assert.Contains(t, filepath.Base(path), "scene_")
	assert.True(t, filepath.Ext(path) == ".zip")
}
