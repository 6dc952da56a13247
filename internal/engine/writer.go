package engine

import (
	"fmt"

	"cogentcore.org/core/math32"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/storyboard/internal/keyframe"
)

const sceneVersion = 1

type sceneDoc struct {
	Version     int             `yaml:"version"`
	Nodes       []nodeDoc       `yaml:"nodes"`
	Clips       []clipDoc       `yaml:"clips,omitempty"`
	Environment *environmentDoc `yaml:"environment,omitempty"`
}

type nodeDoc struct {
	ID       string                    `yaml:"id"`
	Name     string                    `yaml:"name"`
	Kind     Kind                      `yaml:"kind"`
	Tags     []string                  `yaml:"tags,omitempty"`
	Geometry *geometryDoc              `yaml:"geometry,omitempty"`
	Position [3]float32                `yaml:"position,flow"`
	Rotation [4]float32                `yaml:"rotation,flow"`
	Scaling  [3]float32                `yaml:"scaling,flow"`
	Tracks   map[string][]keyframe.Key `yaml:"tracks,omitempty"`
}

type geometryDoc struct {
	Primitive string     `yaml:"primitive"`
	Size      [3]float32 `yaml:"size,flow"`
	Segments  int        `yaml:"segments,omitempty"`
	Source    string     `yaml:"source,omitempty"`
	Vertices  int        `yaml:"vertices,omitempty"`
}

type clipDoc struct {
	Name  string  `yaml:"name"`
	Owner string  `yaml:"owner"`
	From  float32 `yaml:"from"`
	To    float32 `yaml:"to"`
	Frame float32 `yaml:"frame"`
}

type environmentDoc struct {
	SunDirection   [3]float32 `yaml:"sun_direction,flow"`
	Exposure       float32    `yaml:"exposure"`
	LightIntensity float32    `yaml:"light_intensity"`
}

// MarshalOptions controls scene serialization.
type MarshalOptions struct {
	// StripEnvironment omits sky and light state, which are rebuilt from the
	// sun after loading.
	StripEnvironment bool
}

// Marshal encodes the persisted nodes and clips of s as YAML. The sun proxy
// is never included, but clips it owns are.
func Marshal(s *Scene, opts MarshalOptions) ([]byte, error) {
	doc := sceneDoc{Version: sceneVersion, Nodes: make([]nodeDoc, 0, len(s.nodes))}
	for _, n := range s.nodes {
		doc.Nodes = append(doc.Nodes, encodeNode(n))
	}
	for _, c := range s.clips {
		doc.Clips = append(doc.Clips, clipDoc{Name: c.name, Owner: c.owner, From: c.from, To: c.to, Frame: c.frame})
	}
	if !opts.StripEnvironment {
		env := s.env
		doc.Environment = &environmentDoc{
			SunDirection:   vec3(env.Sky.SunDirection),
			Exposure:       env.Sky.Exposure,
			LightIntensity: env.Light.Intensity,
		}
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshal scene: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a scene written by Marshal.
func Unmarshal(data []byte) (*Scene, error) {
	var doc sceneDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal scene: %w", err)
	}
	if doc.Version != sceneVersion {
		return nil, fmt.Errorf("unmarshal scene: unsupported version %d", doc.Version)
	}

	s := NewScene()
	for _, nd := range doc.Nodes {
		n, err := decodeNode(nd)
		if err != nil {
			return nil, err
		}
		if err := s.AddNode(n); err != nil {
			return nil, fmt.Errorf("unmarshal scene: %w", err)
		}
	}
	for _, cd := range doc.Clips {
		if cd.Owner == SunName {
			s.EnsureSun()
		}
		c := NewClip(cd.Name, cd.Owner, cd.From, cd.To)
		c.frame = cd.Frame
		if err := s.AddClip(c); err != nil {
			return nil, fmt.Errorf("unmarshal scene: %w", err)
		}
	}
	if env := doc.Environment; env != nil {
		s.env.Sky.SunDirection = math32.Vec3(env.SunDirection[0], env.SunDirection[1], env.SunDirection[2])
		s.env.Light.Direction = s.env.Sky.SunDirection
		s.env.Sky.Exposure = env.Exposure
		s.env.Light.Intensity = env.LightIntensity
	}
	return s, nil
}

func encodeNode(n *Node) nodeDoc {
	nd := nodeDoc{
		ID:       n.id,
		Name:     n.name,
		Kind:     n.kind,
		Tags:     n.Tags(),
		Position: vec3(n.position),
		Rotation: [4]float32{n.rotation.X, n.rotation.Y, n.rotation.Z, n.rotation.W},
		Scaling:  vec3(n.scaling),
	}
	if n.geometry != nil {
		g := n.geometry
		nd.Geometry = &geometryDoc{
			Primitive: g.Primitive,
			Size:      vec3(g.Size),
			Segments:  g.Segments,
			Source:    g.Source,
			Vertices:  g.Vertices,
		}
	}
	if len(n.tracks) > 0 {
		nd.Tracks = make(map[string][]keyframe.Key, len(n.tracks))
		for prop, keys := range n.tracks {
			nd.Tracks[string(prop)] = keys
		}
	}
	return nd
}

func decodeNode(nd nodeDoc) (*Node, error) {
	if nd.Name == "" {
		return nil, fmt.Errorf("unmarshal scene: node without name")
	}
	n := NewNode(nd.Name, nd.Kind, nd.Tags...)
	if nd.ID != "" {
		n.id = nd.ID
	}
	n.position = math32.Vec3(nd.Position[0], nd.Position[1], nd.Position[2])
	n.scaling = math32.Vec3(nd.Scaling[0], nd.Scaling[1], nd.Scaling[2])
	if nd.Rotation == [4]float32{} {
		nd.Rotation[3] = 1
	}
	n.SetRotation(math32.NewQuat(nd.Rotation[0], nd.Rotation[1], nd.Rotation[2], nd.Rotation[3]))
	if nd.Geometry != nil {
		g := nd.Geometry
		n.geometry = &Geometry{
			Primitive: g.Primitive,
			Size:      math32.Vec3(g.Size[0], g.Size[1], g.Size[2]),
			Segments:  g.Segments,
			Source:    g.Source,
			Vertices:  g.Vertices,
		}
	}
	for name, keys := range nd.Tracks {
		prop, err := keyframe.ParseProperty(name)
		if err != nil {
			return nil, fmt.Errorf("unmarshal scene: node %q: %w", nd.Name, err)
		}
		n.tracks[prop] = keys
	}
	return n, nil
}

func vec3(v math32.Vector3) [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}
