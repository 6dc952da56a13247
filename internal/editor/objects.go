package editor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ivlev/storyboard/internal/effects"
	"github.com/ivlev/storyboard/internal/engine"
	"github.com/ivlev/storyboard/internal/keyframe"
	"github.com/ivlev/storyboard/internal/logging"
	"github.com/ivlev/storyboard/internal/source"
	"github.com/ivlev/storyboard/internal/storyboard"
)

// AddPrimitive adds a primitive mesh, registers it with the storyboard and
// selects it. An empty name is generated from the primitive kind.
func (e *Editor) AddPrimitive(kind, name string) (string, error) {
	geom, err := engine.NewPrimitive(kind)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if name == "" {
		name = e.uniqueName(geom.Primitive)
	}
	node := engine.NewNode(name, engine.KindMesh, engine.TagStoryboard)
	node.SetGeometry(geom)
	if err := e.scene.AddNode(node); err != nil {
		return "", err
	}
	target, err := e.reg.AddTransform(node)
	if err != nil {
		e.scene.RemoveNode(node)
		return "", err
	}

	obj := &object{node: node, target: target}
	e.objects[name] = obj
	e.scene.AddShadowCaster(node)
	e.selectLocked(obj)
	e.logger.Info("primitive added", slog.String(logging.FieldTarget, name), slog.String("primitive", geom.Primitive))
	return name, nil
}

// AddSun adds the sun proxy whose rotation lights the sky. Adding it twice
// is a no-op.
func (e *Editor) AddSun() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.objects[engine.SunName]; ok {
		return nil
	}
	sun := e.scene.EnsureSun()
	target, err := e.reg.AddTransform(sun)
	if err != nil {
		return err
	}
	e.objects[engine.SunName] = &object{node: sun, target: target}
	e.unbindSky = effects.Bind(target, e.scene.Environment(), e.sky)
	return nil
}

// ImportModel loads a model description asynchronously and adds it as name.
// The returned channel receives the outcome once. The model is dropped with
// ErrImportDropped when a load replaced the document in the meantime.
func (e *Editor) ImportModel(ctx context.Context, path, name string) <-chan error {
	e.mu.Lock()
	gen := e.generation
	e.imports.Add(1)
	e.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		defer e.imports.Done()
		defer close(done)
		res := <-source.ImportAsync(ctx, e.opts.Loader, path)
		done <- e.finishImport(gen, res, name)
	}()
	return done
}

func (e *Editor) finishImport(gen int, res source.Result, name string) error {
	if res.Err != nil {
		e.logger.Warn("import failed", logging.Error(res.Err))
		return res.Err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation {
		e.logger.Warn("import dropped", slog.String("model", res.Model.Name), slog.Int("generation", gen))
		return fmt.Errorf("%w: %s", ErrImportDropped, res.Model.Name)
	}

	if name == "" {
		name = e.uniqueName(res.Model.Name)
	}
	root, clips, err := res.Model.Instantiate(e.scene, name)
	if err != nil {
		return err
	}
	target, err := e.reg.AddTransform(root)
	if err != nil {
		e.scene.RemoveNode(root)
		return err
	}
	for _, clip := range clips {
		if _, err := e.reg.AttachNested(target, clip); err != nil {
			_ = e.reg.RemoveTransform(target)
			e.scene.RemoveNode(root)
			return err
		}
	}

	obj := &object{node: root, target: target}
	e.objects[name] = obj
	e.scene.AddShadowCaster(root)
	e.logger.Info("model imported", slog.String(logging.FieldTarget, name), slog.Int("clips", len(clips)))
	return nil
}

// AttachClip adds a clip spanning [from, to] to an object and animates its
// playhead per board.
func (e *Editor) AttachClip(objectName, clipName string, from, to float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	obj, err := e.lookup(objectName)
	if err != nil {
		return err
	}
	clip := engine.NewClip(clipName, objectName, from, to)
	if err := e.scene.AddClip(clip); err != nil {
		return err
	}
	if _, err := e.reg.AttachNested(obj.target, clip); err != nil {
		e.scene.RemoveClip(clip)
		return err
	}
	return nil
}

// Select attaches the position gizmo to the named object and detaches it
// from the previous selection. An empty name clears the selection.
func (e *Editor) Select(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if name == "" {
		e.selectLocked(nil)
		return nil
	}
	obj, err := e.lookup(name)
	if err != nil {
		return err
	}
	e.selectLocked(obj)
	return nil
}

// Selected returns the selected object name, or "".
func (e *Editor) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected == nil {
		return ""
	}
	return e.selected.node.Name()
}

func (e *Editor) selectLocked(obj *object) {
	if e.selected != nil {
		e.scene.DetachGizmo(e.selected.node)
	}
	e.selected = obj
	if obj != nil {
		e.scene.AttachGizmo(obj.node, engine.GizmoPosition)
	}
}

// DeleteObject removes an object, its clips and every channel it owns.
func (e *Editor) DeleteObject(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	obj, err := e.lookup(name)
	if err != nil {
		return err
	}
	e.player.Stop()
	if e.selected == obj {
		e.selectLocked(nil)
	}
	if obj.node.Kind() == engine.KindSun && e.unbindSky != nil {
		e.unbindSky()
		e.unbindSky = nil
	}
	e.scene.RemoveShadowCaster(obj.node)
	if err := e.reg.RemoveTransform(obj.target); err != nil {
		return err
	}
	e.scene.RemoveNode(obj.node)
	delete(e.objects, name)
	e.logger.Info("object deleted", slog.String(logging.FieldTarget, name))
	return nil
}

// WriteLiveValue sets a property of a live object and records it on the
// current board. name is an object name or, for playheadFrame, a clip name.
func (e *Editor) WriteLiveValue(name string, prop keyframe.Property, value keyframe.Value) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var target storyboard.Target
	if prop == keyframe.PlayheadFrame {
		n, err := e.reg.FindNested(name)
		if err != nil {
			return err
		}
		target = n
	} else {
		obj, err := e.lookup(name)
		if err != nil {
			return err
		}
		target = obj.target
	}

	switch t := target.(type) {
	case *storyboard.TransformTarget:
		switch prop {
		case keyframe.Position:
			t.SetPosition(value.Vector3())
		case keyframe.Rotation:
			t.SetRotation(value.Quat())
			// Key what the object holds, which is normalized.
			value = keyframe.FromQuat(t.Rotation())
		case keyframe.Scaling:
			t.SetScaling(value.Vector3())
		default:
			return fmt.Errorf("%w: %q on %q", storyboard.ErrUnsupportedChannel, prop, name)
		}
	case *storyboard.NestedTarget:
		t.SeekPlayhead(value.Scalar())
	default:
		return fmt.Errorf("%w: target type %T", storyboard.ErrUnsupportedChannel, target)
	}
	return e.reg.WriteLiveValueToCurrentKey(target, prop, value)
}

// Objects returns the names of every registered object.
func (e *Editor) Objects() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.objects))
	for _, t := range e.reg.Transforms() {
		names = append(names, t.Name())
	}
	return names
}

func (e *Editor) lookup(name string) (*object, error) {
	obj, ok := e.objects[name]
	if !ok {
		return nil, fmt.Errorf("%w: object %q", storyboard.ErrNotFound, name)
	}
	return obj, nil
}

func (e *Editor) uniqueName(prefix string) string {
	for {
		e.seq++
		name := fmt.Sprintf("%s%d", prefix, e.seq)
		if _, ok := e.scene.FindNode(name); !ok {
			return name
		}
	}
}
