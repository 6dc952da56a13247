package archive

import (
	"fmt"
	"slices"

	"github.com/ivlev/storyboard/internal/engine"
	"github.com/ivlev/storyboard/internal/keyframe"
	"github.com/ivlev/storyboard/internal/storyboard"
)

// RefKind classifies an unresolved reference.
type RefKind string

const (
	// RefMesh is an m2a mesh name with no storyboard target.
	RefMesh RefKind = "mesh"
	// RefClip is an m2a clip name with no clip in the scene.
	RefClip RefKind = "clip"
	// RefKeys is a clip whose playhead keys are missing or mismatched; the
	// clip was attached with its live playhead.
	RefKeys RefKind = "keys"
	// RefOrphan is an a2aa entry no mesh references.
	RefOrphan RefKind = "orphan"
)

// UnresolvedRef is a persisted name that did not map to a live object.
type UnresolvedRef struct {
	Kind RefKind
	Mesh string
	Clip string
	Err  error
}

func (u UnresolvedRef) Error() string {
	return fmt.Sprintf("%s reference mesh=%q clip=%q: %v", u.Kind, u.Mesh, u.Clip, u.Err)
}

func (u UnresolvedRef) Unwrap() error { return u.Err }

// resolve attaches a nested target for every clip named in m2a whose mesh
// and clip exist, keyed from a2aa. Names that do not resolve are returned
// instead of failing. withKeys is false when the a2aa entry was unusable, in
// which case clips keep their live playhead without a report per clip.
func resolve(reg *storyboard.Registry, scene *engine.Scene, m2a map[string][]string, a2aa map[string][]keyPoint, withKeys bool) []UnresolvedRef {
	var unresolved []UnresolvedRef
	used := make(map[string]bool)

	meshes := make([]string, 0, len(m2a))
	for mesh := range m2a {
		meshes = append(meshes, mesh)
	}
	slices.Sort(meshes)

	for _, mesh := range meshes {
		clips := m2a[mesh]
		owner, err := reg.FindTransform(mesh)
		if err != nil {
			for _, clip := range clips {
				used[clip] = true
				unresolved = append(unresolved, UnresolvedRef{Kind: RefMesh, Mesh: mesh, Clip: clip, Err: err})
			}
			continue
		}

		for _, name := range clips {
			used[name] = true
			clip, ok := scene.FindClip(name)
			if !ok {
				unresolved = append(unresolved, UnresolvedRef{
					Kind: RefClip,
					Mesh: mesh,
					Clip: name,
					Err:  fmt.Errorf("%w: clip %q", storyboard.ErrNotFound, name),
				})
				continue
			}

			points, ok := a2aa[name]
			if !ok || len(points) != reg.Len() {
				if withKeys {
					unresolved = append(unresolved, UnresolvedRef{
						Kind: RefKeys,
						Mesh: mesh,
						Clip: name,
						Err:  fmt.Errorf("%w: %d playhead keys for %d boards", storyboard.ErrNotFound, len(points), reg.Len()),
					})
				}
				if _, err := reg.AttachNested(owner, clip); err != nil {
					unresolved = append(unresolved, UnresolvedRef{Kind: RefClip, Mesh: mesh, Clip: name, Err: err})
				}
				continue
			}

			keys := make([]keyframe.Value, len(points))
			for i, pt := range points {
				keys[i] = keyframe.FromScalar(pt.Value)
			}
			if _, err := reg.RestoreNested(owner, clip, keys); err != nil {
				unresolved = append(unresolved, UnresolvedRef{Kind: RefClip, Mesh: mesh, Clip: name, Err: err})
			}
		}
	}

	var orphans []string
	for clip := range a2aa {
		if !used[clip] {
			orphans = append(orphans, clip)
		}
	}
	slices.Sort(orphans)
	for _, clip := range orphans {
		unresolved = append(unresolved, UnresolvedRef{
			Kind: RefOrphan,
			Clip: clip,
			Err:  fmt.Errorf("%w: no mesh references clip %q", storyboard.ErrNotFound, clip),
		})
	}
	return unresolved
}
