package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ivlev/storyboard/internal/engine"
	"github.com/ivlev/storyboard/internal/keyframe"
	"github.com/ivlev/storyboard/internal/logging"
	"github.com/ivlev/storyboard/internal/storyboard"
)

var errMissingEntry = errors.New("entry missing")

// Result is a reconstructed scene and registry.
type Result struct {
	Registry   *storyboard.Registry
	Scene      *engine.Scene
	Unresolved []UnresolvedRef
	Warnings   []EntryWarning
}

// parsed holds the entries decoded in the first phase.
type parsed struct {
	frames []int
	sun    []keyframe.Value
	sunOK  bool
	m2a    map[string][]string
	a2aa   map[string][]keyPoint
	a2aaOK bool
	scene  []byte
}

// Deserialize reconstructs a registry and scene from archive data. The
// caller disposes the previous registry and scene before installing the
// result.
func (c *Codec) Deserialize(data []byte) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open archive: %v", storyboard.ErrSerialization, err)
	}
	entries, err := readEntries(zr)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	p, err := c.parse(entries, res)
	if err != nil {
		return nil, err
	}
	if err := c.build(p, res); err != nil {
		return nil, err
	}

	for _, w := range res.Warnings {
		c.logger.Warn("archive entry degraded", slog.String(logging.FieldEntry, w.Entry), logging.Error(w.Err))
	}
	for _, ref := range res.Unresolved {
		c.logger.Warn("unresolved reference",
			slog.String("kind", string(ref.Kind)),
			slog.String("mesh", ref.Mesh),
			slog.String("clip", ref.Clip),
			slog.String(logging.FieldErrorKind, storyboard.Kind(ref.Err)),
		)
	}
	c.logger.Info("archive deserialized",
		slog.Int("boards", res.Registry.Len()),
		slog.Int("targets", len(res.Registry.Targets())),
		slog.Int("unresolved", len(res.Unresolved)),
	)
	return res, nil
}

func readEntries(zr *zip.Reader) (map[string][]byte, error) {
	entries := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", storyboard.ErrSerialization, f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", storyboard.ErrSerialization, f.Name, err)
		}
		entries[f.Name] = data
	}
	return entries, nil
}

// parse decodes every entry except the scene.
func (c *Codec) parse(entries map[string][]byte, res *Result) (*parsed, error) {
	names := c.Names()
	p := &parsed{}

	raw, ok := entries[names.Keyframes]
	if !ok {
		return nil, fmt.Errorf("%w: %s: %v", storyboard.ErrSerialization, names.Keyframes, errMissingEntry)
	}
	if err := json.Unmarshal(raw, &p.frames); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", storyboard.ErrSerialization, names.Keyframes, err)
	}
	if len(p.frames) == 0 {
		return nil, fmt.Errorf("%w: %s: timeline is empty", storyboard.ErrSerialization, names.Keyframes)
	}

	if err := decodeOptional(entries, names.Sun, &p.sun); err != nil {
		res.Warnings = append(res.Warnings, EntryWarning{Entry: names.Sun, Err: err})
	} else {
		p.sunOK = true
	}
	if err := decodeOptional(entries, names.M2A, &p.m2a); err != nil {
		res.Warnings = append(res.Warnings, EntryWarning{Entry: names.M2A, Err: err})
		p.m2a = nil
	}
	if err := decodeOptional(entries, names.A2AA, &p.a2aa); err != nil {
		res.Warnings = append(res.Warnings, EntryWarning{Entry: names.A2AA, Err: err})
		p.a2aa = nil
	} else {
		p.a2aaOK = true
	}

	scene, ok := entries[names.Scene]
	if !ok {
		return nil, fmt.Errorf("%w: %s: %v", storyboard.ErrSerialization, names.Scene, errMissingEntry)
	}
	p.scene = scene
	return p, nil
}

func decodeOptional(entries map[string][]byte, name string, dst any) error {
	raw, ok := entries[name]
	if !ok {
		return errMissingEntry
	}
	return json.Unmarshal(raw, dst)
}

// build loads the scene and restores every target from the parsed entries.
func (c *Codec) build(p *parsed, res *Result) error {
	names := c.Names()

	scene, err := engine.Unmarshal(p.scene)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", storyboard.ErrSerialization, names.Scene, err)
	}

	reg, err := storyboard.Restore(p.frames, storyboard.Options{DefaultGap: c.fps, Logger: c.logger})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", storyboard.ErrSerialization, names.Keyframes, err)
	}

	for _, node := range scene.NodesByTag(engine.TagStoryboard) {
		keys := make(map[keyframe.Property][]keyframe.Value, len(keyframe.TransformProperties))
		for _, prop := range keyframe.TransformProperties {
			if track, ok := node.Track(prop); ok {
				keys[prop] = keyframe.Values(track)
			}
		}
		if _, err := reg.RestoreTransform(node, keys); err != nil {
			return fmt.Errorf("%w: %s: %v", storyboard.ErrSerialization, names.Scene, err)
		}
	}

	if err := c.restoreSun(p, reg, scene, res); err != nil {
		return err
	}

	res.Unresolved = resolve(reg, scene, p.m2a, p.a2aa, p.a2aaOK)
	res.Registry = reg
	res.Scene = scene
	return nil
}

func (c *Codec) restoreSun(p *parsed, reg *storyboard.Registry, scene *engine.Scene, res *Result) error {
	names := c.Names()
	if p.sunOK && len(p.sun) == 0 {
		if scene.Sun() == nil {
			return nil
		}
		// Clips owned by the sun brought the proxy back.
		res.Warnings = append(res.Warnings, EntryWarning{
			Entry: names.Sun,
			Err:   errors.New("no rotations for a sun that owns clips"),
		})
		p.sunOK = false
	}

	sun := scene.EnsureSun()
	if p.sunOK && len(p.sun) != reg.Len() {
		res.Warnings = append(res.Warnings, EntryWarning{
			Entry: names.Sun,
			Err:   fmt.Errorf("%d rotations for %d boards", len(p.sun), reg.Len()),
		})
		p.sunOK = false
	}
	if !p.sunOK {
		if _, err := reg.AddTransform(sun); err != nil {
			return fmt.Errorf("%w: %s: %v", storyboard.ErrSerialization, names.Sun, err)
		}
		return nil
	}

	if _, err := reg.RestoreTransform(sun, map[keyframe.Property][]keyframe.Value{keyframe.Rotation: p.sun}); err != nil {
		return fmt.Errorf("%w: %s: %v", storyboard.ErrSerialization, names.Sun, err)
	}
	return nil
}
