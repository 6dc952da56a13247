// Package source imports model descriptions into a scene.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cogentcore.org/core/math32"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/storyboard/internal/engine"
)

// Mesh is one mesh of a model.
type Mesh struct {
	Name      string     `yaml:"name"`
	Primitive string     `yaml:"primitive"`
	Size      [3]float32 `yaml:"size,flow"`
	Vertices  int        `yaml:"vertices"`
}

// Clip is a pre-authored animation of a model.
type Clip struct {
	Name string  `yaml:"name"`
	From float32 `yaml:"from"`
	To   float32 `yaml:"to"`
}

// Model is an importable asset description.
type Model struct {
	Name   string `yaml:"name"`
	Meshes []Mesh `yaml:"meshes"`
	Clips  []Clip `yaml:"clips"`

	Path string `yaml:"-"`
}

// Loader fetches and parses models.
type Loader interface {
	Load(ctx context.Context, path string) (*Model, error)
}

// FileLoader reads YAML model descriptions from disk.
type FileLoader struct{}

func (FileLoader) Load(ctx context.Context, path string) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Parse decodes and validates a YAML model description.
func Parse(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks names and clip ranges.
func (m *Model) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("model name is required")
	}
	if len(m.Meshes) == 0 {
		return fmt.Errorf("model %q has no meshes", m.Name)
	}
	seen := make(map[string]bool, len(m.Clips))
	for _, c := range m.Clips {
		if c.Name == "" {
			return fmt.Errorf("model %q: clip without name", m.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("model %q: duplicate clip %q", m.Name, c.Name)
		}
		seen[c.Name] = true
		if c.To < c.From {
			return fmt.Errorf("model %q: clip %q ends before it starts", m.Name, c.Name)
		}
	}
	return nil
}

// Result is the outcome of an asynchronous import.
type Result struct {
	Model *Model
	Err   error
}

// ImportAsync loads path on its own goroutine. The channel receives exactly
// one result and is then closed.
func ImportAsync(ctx context.Context, loader Loader, path string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		m, err := loader.Load(ctx, path)
		out <- Result{Model: m, Err: err}
	}()
	return out
}

// Instantiate adds the model to scene as one root node named name, tagged
// for the storyboard, with the model clips owned by it. Clip names are
// prefixed with the node name so repeated imports do not collide.
func (m *Model) Instantiate(scene *engine.Scene, name string) (*engine.Node, []*engine.Clip, error) {
	if name == "" {
		name = m.Name
	}
	root := engine.NewNode(name, engine.KindModel, engine.TagStoryboard)

	geom := &engine.Geometry{Primitive: "model", Size: math32.Vec3(0, 0, 0), Source: m.Path}
	for _, mesh := range m.Meshes {
		geom.Vertices += mesh.Vertices
		geom.Size.SetMax(math32.Vec3(mesh.Size[0], mesh.Size[1], mesh.Size[2]))
	}
	root.SetGeometry(geom)

	if err := scene.AddNode(root); err != nil {
		return nil, nil, err
	}

	clips := make([]*engine.Clip, 0, len(m.Clips))
	for _, c := range m.Clips {
		clip := engine.NewClip(name+"."+c.Name, name, c.From, c.To)
		if err := scene.AddClip(clip); err != nil {
			scene.RemoveNode(root)
			return nil, nil, err
		}
		clips = append(clips, clip)
	}
	return root, clips, nil
}
