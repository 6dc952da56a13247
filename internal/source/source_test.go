package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/storyboard/internal/engine"
)

const robotYAML = `
name: robot
meshes:
  - name: body
    primitive: box
    size: [1, 2, 1]
    vertices: 24
  - name: head
    primitive: sphere
    size: [0.5, 0.5, 0.5]
    vertices: 1089
clips:
  - name: walk
    from: 0
    to: 30
  - name: wave
    from: 10
    to: 40
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(robotYAML))
	require.NoError(t, err)
	assert.Equal(t, "robot", m.Name)
	require.Len(t, m.Meshes, 2)
	require.Len(t, m.Clips, 2)
	assert.Equal(t, float32(40), m.Clips[1].To)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no name", "meshes: [{name: a}]"},
		{"no meshes", "name: x"},
		{"duplicate clip", "name: x\nmeshes: [{name: a}]\nclips: [{name: c}, {name: c}]"},
		{"backwards clip", "name: x\nmeshes: [{name: a}]\nclips: [{name: c, from: 5, to: 1}]"},
		{"bad yaml", "name: [x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestImportAsync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(robotYAML), 0o644))

	res := <-ImportAsync(context.Background(), FileLoader{}, path)
	require.NoError(t, res.Err)
	assert.Equal(t, path, res.Model.Path)

	res = <-ImportAsync(context.Background(), FileLoader{}, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, res.Err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = <-ImportAsync(ctx, FileLoader{}, path)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestInstantiate(t *testing.T) {
	m, err := Parse([]byte(robotYAML))
	require.NoError(t, err)
	scene := engine.NewScene()

	root, clips, err := m.Instantiate(scene, "robot1")
	require.NoError(t, err)
	assert.True(t, root.HasTag(engine.TagStoryboard))
	assert.Equal(t, engine.KindModel, root.Kind())
	assert.Equal(t, 24+1089, root.Geometry().Vertices)
	assert.Equal(t, math32.Vec3(1, 2, 1), root.Geometry().Size)

	require.Len(t, clips, 2)
	assert.Equal(t, "robot1.walk", clips[0].Name())
	assert.Len(t, scene.ClipsOf("robot1"), 2)

	_, _, err = m.Instantiate(scene, "robot1")
	assert.Error(t, err, "node names are unique")

	_, clips, err = m.Instantiate(scene, "robot2")
	require.NoError(t, err)
	assert.Equal(t, "robot2.wave", clips[1].Name())
}
