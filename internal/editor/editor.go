package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ivlev/storyboard/internal/archive"
	"github.com/ivlev/storyboard/internal/config"
	"github.com/ivlev/storyboard/internal/effects"
	"github.com/ivlev/storyboard/internal/engine"
	"github.com/ivlev/storyboard/internal/logging"
	"github.com/ivlev/storyboard/internal/playback"
	"github.com/ivlev/storyboard/internal/source"
	"github.com/ivlev/storyboard/internal/storyboard"
)

const defaultFPS = 60

// ErrImportDropped reports an import that completed after the scene it was
// started against had been replaced.
var ErrImportDropped = errors.New("import dropped: scene was replaced")

// Options configures an Editor.
type Options struct {
	FPS        int
	DefaultGap int
	Tick       time.Duration
	Basename   string
	// RealTime drives playback from a ticker goroutine. Without it the
	// caller advances playback with Step.
	RealTime bool
	// OnBoard is called under the editor lock whenever playback enters a
	// board. It must not call back into the editor.
	OnBoard func(board int)
	// OnError receives the error that stopped real-time playback. It runs
	// outside the editor lock.
	OnError func(err error)
	Loader  source.Loader
	Logger  *slog.Logger
}

// OptionsFromConfig maps the application configuration onto editor options.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		FPS:        cfg.Timeline.FPS,
		DefaultGap: cfg.Timeline.BoardGapFrames,
		Tick:       time.Duration(cfg.Playback.TickMillis) * time.Millisecond,
		Basename:   cfg.Project.Basename,
		Logger:     logger,
	}
}

type object struct {
	node   *engine.Node
	target *storyboard.TransformTarget
}

// Editor is the single-document storyboard editor.
type Editor struct {
	mu     sync.Mutex
	opts   Options
	logger *slog.Logger
	codec  *archive.Codec
	sky    *effects.SkyEffect

	scene      *engine.Scene
	reg        *storyboard.Registry
	player     *playback.Controller
	objects    map[string]*object
	selected   *object
	unbindSky  func()
	generation int
	seq        int

	unresolved []archive.UnresolvedRef
	warnings   []archive.EntryWarning
	pendingEnd []func()
	imports    sync.WaitGroup
}

// New creates an editor with an empty scene and a single board.
func New(opts Options) *Editor {
	if opts.FPS <= 0 {
		opts.FPS = defaultFPS
	}
	if opts.DefaultGap <= 0 {
		opts.DefaultGap = opts.FPS
	}
	if opts.Loader == nil {
		opts.Loader = source.FileLoader{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Editor{
		opts:   opts,
		logger: logger.With(logging.FieldComponent, "editor"),
		codec:  archive.NewCodec(archive.Options{Basename: opts.Basename, FPS: opts.DefaultGap, Logger: logger}),
		sky:    effects.NewSkyEffect(),
	}
	e.install(engine.NewScene(), storyboard.New(storyboard.Options{DefaultGap: opts.DefaultGap, Logger: logger}))
	return e
}

// install makes scene and reg the live document. Callers hold mu or have
// exclusive access.
func (e *Editor) install(scene *engine.Scene, reg *storyboard.Registry) {
	e.scene = scene
	e.reg = reg
	e.generation++
	e.objects = make(map[string]*object)
	e.selected = nil
	e.unbindSky = nil
	e.player = playback.New(reg, playback.Options{
		FPS:    e.opts.FPS,
		Tick:   e.opts.Tick,
		Locker: &e.mu,
		OnBoard: func(board int) {
			e.logger.Debug("playback board", slog.Int(logging.FieldBoard, board))
			if e.opts.OnBoard != nil {
				e.opts.OnBoard(board)
			}
		},
		Logger: e.logger,
	})

	for _, t := range reg.Transforms() {
		node, ok := t.Node().(*engine.Node)
		if !ok {
			continue
		}
		obj := &object{node: node, target: t}
		e.objects[node.Name()] = obj
		if node.Kind() == engine.KindSun {
			e.unbindSky = effects.Bind(t, scene.Environment(), e.sky)
			continue
		}
		scene.AddShadowCaster(node)
	}
}

// AddBoard appends a board one default gap after the last one, keyed with
// the live scene.
func (e *Editor) AddBoard() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.AddBoard(0)
}

// SetCurrentBoard scrubs to index. index may equal TimelineLength to append
// a board. Scrubbing stops playback.
func (e *Editor) SetCurrentBoard(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.player.Stop()
	return e.reg.SetCurrentBoard(index)
}

// TimelineLength returns the number of boards.
func (e *Editor) TimelineLength() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.Len()
}

// CurrentBoard returns the board cursor.
func (e *Editor) CurrentBoard() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.CurrentBoard()
}

// PlaybackState returns the playback state.
func (e *Editor) PlaybackState() playback.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.player.State()
}

// Play starts playback from the first board. onEnd runs once, outside the
// editor lock, when the last frame is reached.
func (e *Editor) Play(onEnd func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var wrapped func()
	if onEnd != nil {
		wrapped = func() { e.pendingEnd = append(e.pendingEnd, onEnd) }
	}
	if err := e.player.Play(wrapped); err != nil {
		return err
	}
	e.startDriver()
	return nil
}

// Pause suspends playback.
func (e *Editor) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.player.Pause()
}

// Resume continues paused playback.
func (e *Editor) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.player.Resume(); err != nil {
		return err
	}
	e.startDriver()
	return nil
}

// Stop ends playback without running the completion callback.
func (e *Editor) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.player.Stop()
}

// Step advances cooperative playback by elapsed time and reports whether it
// finished.
func (e *Editor) Step(elapsed time.Duration) (bool, error) {
	e.mu.Lock()
	done, err := e.player.Step(elapsed)
	e.mu.Unlock()
	e.flushEnd()
	return done, err
}

func (e *Editor) startDriver() {
	if !e.opts.RealTime {
		return
	}
	player := e.player
	go func() {
		err := player.Run(context.Background())
		if err != nil {
			e.logger.Error("playback failed", logging.Error(err), slog.String(logging.FieldErrorKind, storyboard.Kind(err)))
		}
		e.flushEnd()
		if err != nil && e.opts.OnError != nil {
			e.opts.OnError(err)
		}
	}()
}

func (e *Editor) flushEnd() {
	e.mu.Lock()
	pending := e.pendingEnd
	e.pendingEnd = nil
	e.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

// Serialize encodes the document as an archive.
func (e *Editor) Serialize() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.codec.Serialize(e.reg, e.scene)
}

// Deserialize replaces the document with the archive in data. The archive
// is decoded before anything is torn down, so a malformed archive leaves
// the current document untouched. A failed teardown of the previous
// document is reported as ErrDisposal after the new one is installed.
func (e *Editor) Deserialize(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.codec.Deserialize(data)
	if err != nil {
		return err
	}

	e.player.Stop()
	disposeErr := e.disposeLocked()
	e.install(res.Scene, res.Registry)
	e.unresolved = res.Unresolved
	e.warnings = res.Warnings

	if err := e.reg.SetCurrentBoard(0); err != nil {
		return err
	}
	if disposeErr != nil {
		e.logger.Error("previous scene not fully released", logging.Error(disposeErr))
		return disposeErr
	}
	return nil
}

// disposeLocked releases editor associations, then the registry and scene.
func (e *Editor) disposeLocked() error {
	if e.selected != nil {
		e.scene.DetachGizmo(e.selected.node)
		e.selected = nil
	}
	for _, obj := range e.objects {
		e.scene.RemoveShadowCaster(obj.node)
	}
	if e.unbindSky != nil {
		e.unbindSky()
		e.unbindSky = nil
	}

	var errs []error
	if err := e.reg.Dispose(); err != nil {
		errs = append(errs, err)
	}
	if err := e.scene.Dispose(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", storyboard.ErrDisposal, err))
	}
	return errors.Join(errs...)
}

// Unresolved returns the references the last load could not resolve.
func (e *Editor) Unresolved() []archive.UnresolvedRef {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]archive.UnresolvedRef(nil), e.unresolved...)
}

// Warnings returns the archive entries the last load degraded.
func (e *Editor) Warnings() []archive.EntryWarning {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]archive.EntryWarning(nil), e.warnings...)
}

// SaveFile serializes the document and writes it to path.
func (e *Editor) SaveFile(ctx context.Context, path string) error {
	data, err := e.Serialize()
	if err != nil {
		return err
	}
	if err := archive.WriteFile(ctx, path, data); err != nil {
		return err
	}
	e.logger.Info("archive saved", slog.String(logging.FieldPath, path))
	return nil
}

// LoadFile reads the archive at path and replaces the document with it.
func (e *Editor) LoadFile(ctx context.Context, path string) error {
	data, err := archive.ReadFile(ctx, path)
	if err != nil {
		return err
	}
	if err := e.Deserialize(data); err != nil {
		return err
	}
	e.logger.Info("archive loaded", slog.String(logging.FieldPath, path))
	return nil
}

// View runs fn with the live scene and registry under the editor lock. fn
// must not call back into the editor.
func (e *Editor) View(fn func(*engine.Scene, *storyboard.Registry)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.scene, e.reg)
}

// Close stops playback and waits for pending imports.
func (e *Editor) Close() {
	e.Stop()
	e.imports.Wait()
}
