package storyboard

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ivlev/storyboard/internal/keyframe"
	"github.com/ivlev/storyboard/internal/logging"
	"github.com/ivlev/storyboard/internal/renderer"
)

// DefaultGapFrames is the board gap used when none is configured: one second
// at 60 frames per second.
const DefaultGapFrames = 60

// Animation pairs a target with one of its channels.
type Animation struct {
	Target  Target
	Channel *Channel
}

// Options configures a Registry.
type Options struct {
	// DefaultGap is the frame offset used by AddBoard when called with a
	// non-positive gap.
	DefaultGap int
	Logger     *slog.Logger
}

// Registry owns the timeline and every targeted animation.
type Registry struct {
	id         string
	timeline   []int
	targets    []Target
	cursor     int
	defaultGap int

	// dirty is set while the live scene may differ from the keys at the
	// cursor; SetCurrentBoard skips the match pass when it is clear.
	dirty    bool
	matching bool
	pending  []*TransformTarget
	passes   int
	disposed bool

	logger *slog.Logger
}

// New creates a registry seeded with board 0 at frame 0.
func New(opts Options) *Registry {
	gap := opts.DefaultGap
	if gap <= 0 {
		gap = DefaultGapFrames
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		id:         uuid.NewString(),
		timeline:   []int{0},
		defaultGap: gap,
		dirty:      true,
		logger:     logger.With(logging.FieldComponent, "storyboard"),
	}
}

// Restore creates a registry from a persisted timeline. Targets are added
// afterwards with RestoreTransform and RestoreNested.
func Restore(frames []int, opts Options) (*Registry, error) {
	if err := validateTimeline(frames); err != nil {
		return nil, err
	}
	r := New(opts)
	r.timeline = append([]int(nil), frames...)
	return r, nil
}

// ID identifies this registry instance. A load replaces the registry, so the
// ID doubles as a generation marker.
func (r *Registry) ID() string { return r.id }

// Len returns the number of boards.
func (r *Registry) Len() int { return len(r.timeline) }

// CurrentBoard returns the board cursor.
func (r *Registry) CurrentBoard() int { return r.cursor }

// DefaultGap returns the gap used for AddBoard(0).
func (r *Registry) DefaultGap() int { return r.defaultGap }

// FrameNumbers returns a copy of the timeline.
func (r *Registry) FrameNumbers() []int {
	return append([]int(nil), r.timeline...)
}

// LastFrame returns the frame number of the last board.
func (r *Registry) LastFrame() int {
	if len(r.timeline) == 0 {
		return 0
	}
	return r.timeline[len(r.timeline)-1]
}

// Disposed reports whether Dispose has run.
func (r *Registry) Disposed() bool { return r.disposed }

// MatchPasses returns how many times MatchCurrentBoard has run.
func (r *Registry) MatchPasses() int { return r.passes }

// Targets returns every registered target, transforms before the nested
// targets they own.
func (r *Registry) Targets() []Target {
	return append([]Target(nil), r.targets...)
}

// Transforms returns the registered transform targets.
func (r *Registry) Transforms() []*TransformTarget {
	var out []*TransformTarget
	for _, t := range r.targets {
		if tt, ok := t.(*TransformTarget); ok {
			out = append(out, tt)
		}
	}
	return out
}

// FindTransform returns the transform target wrapping the named object.
func (r *Registry) FindTransform(name string) (*TransformTarget, error) {
	for _, t := range r.targets {
		if tt, ok := t.(*TransformTarget); ok && tt.Name() == name {
			return tt, nil
		}
	}
	return nil, fmt.Errorf("%w: transform target %q", ErrNotFound, name)
}

// FindNested returns the nested target wrapping the named clip.
func (r *Registry) FindNested(clip string) (*NestedTarget, error) {
	for _, t := range r.targets {
		if nt, ok := t.(*NestedTarget); ok && nt.Name() == clip {
			return nt, nil
		}
	}
	return nil, fmt.Errorf("%w: nested target %q", ErrNotFound, clip)
}

// Animations returns every (target, channel) pair in registration order.
func (r *Registry) Animations() []Animation {
	var anims []Animation
	for _, t := range r.targets {
		for _, ch := range t.Channels() {
			anims = append(anims, Animation{Target: t, Channel: ch})
		}
	}
	return anims
}

// AddTransform registers a transform target for node. Every board is keyed
// with the node's current live transform.
func (r *Registry) AddTransform(node Transform) (*TransformTarget, error) {
	if err := r.checkLive(); err != nil {
		return nil, err
	}
	if _, err := r.FindTransform(node.Name()); err == nil {
		return nil, fmt.Errorf("%w: transform target %q already registered", ErrInvariantViolation, node.Name())
	}
	t := newTransformTarget(node, len(r.timeline))
	r.targets = append(r.targets, t)
	r.logger.Debug("transform target added", "target", node.Name(), "boards", len(r.timeline))
	return t, nil
}

// RestoreTransform registers a transform target with persisted keys. Every
// transform property must be present with one key per board.
func (r *Registry) RestoreTransform(node Transform, keys map[keyframe.Property][]keyframe.Value) (*TransformTarget, error) {
	t, err := r.AddTransform(node)
	if err != nil {
		return nil, err
	}
	for _, prop := range keyframe.TransformProperties {
		values, ok := keys[prop]
		if !ok {
			continue
		}
		if len(values) != len(r.timeline) {
			r.removeTarget(t)
			return nil, fmt.Errorf("%w: %s channel of %q has %d keys for %d boards", ErrInvariantViolation, prop, node.Name(), len(values), len(r.timeline))
		}
		t.channels[prop] = newChannel(t.id, prop, values)
	}
	return t, nil
}

// AttachNested registers clip as a nested target of owner. Every board is
// keyed with the clip's current playhead.
func (r *Registry) AttachNested(owner *TransformTarget, clip Clip) (*NestedTarget, error) {
	return r.RestoreNested(owner, clip, repeatValue(keyframe.FromScalar(clip.CurrentFrame()), len(r.timeline)))
}

// RestoreNested registers clip as a nested target of owner with persisted
// playhead keys.
func (r *Registry) RestoreNested(owner *TransformTarget, clip Clip, keys []keyframe.Value) (*NestedTarget, error) {
	if err := r.checkLive(); err != nil {
		return nil, err
	}
	if !r.registered(owner) {
		return nil, fmt.Errorf("%w: owner %q is not registered", ErrNotFound, owner.Name())
	}
	if _, err := r.FindNested(clip.Name()); err == nil {
		return nil, fmt.Errorf("%w: clip %q already attached", ErrInvariantViolation, clip.Name())
	}
	if len(keys) != len(r.timeline) {
		return nil, fmt.Errorf("%w: playhead channel of %q has %d keys for %d boards", ErrInvariantViolation, clip.Name(), len(keys), len(r.timeline))
	}
	n := &NestedTarget{id: uuid.NewString(), clip: clip, owner: owner}
	n.channel = newChannel(n.id, keyframe.PlayheadFrame, keys)
	owner.nested = append(owner.nested, n)

	// Keep nested targets right after their owner.
	idx := r.indexOf(owner) + 1 + len(owner.nested) - 1
	r.targets = append(r.targets, nil)
	copy(r.targets[idx+1:], r.targets[idx:])
	r.targets[idx] = n

	r.logger.Debug("nested target attached", "owner", owner.Name(), "clip", clip.Name())
	return n, nil
}

// RemoveTransform unregisters t and disposes every channel and nested target
// it owns.
func (r *Registry) RemoveTransform(t *TransformTarget) error {
	if !r.registered(t) {
		return fmt.Errorf("%w: transform target %q", ErrNotFound, t.Name())
	}
	r.removeTarget(t)
	r.logger.Debug("transform target removed", "target", t.Name())
	return nil
}

// DetachNested unregisters n from its owner and disposes its channel.
func (r *Registry) DetachNested(n *NestedTarget) error {
	idx := r.indexOf(n)
	if idx < 0 {
		return fmt.Errorf("%w: nested target %q", ErrNotFound, n.Name())
	}
	r.targets = append(r.targets[:idx], r.targets[idx+1:]...)
	owner := n.owner
	for i, o := range owner.nested {
		if o == n {
			owner.nested = append(owner.nested[:i], owner.nested[i+1:]...)
			break
		}
	}
	n.dispose()
	return nil
}

func (r *Registry) removeTarget(t *TransformTarget) {
	drop := map[Target]struct{}{t: {}}
	for _, n := range t.nested {
		drop[n] = struct{}{}
	}
	kept := r.targets[:0]
	for _, target := range r.targets {
		if _, ok := drop[target]; !ok {
			kept = append(kept, target)
		}
	}
	for i := len(kept); i < len(r.targets); i++ {
		r.targets[i] = nil
	}
	r.targets = kept

	pending := r.pending[:0]
	for _, p := range r.pending {
		if p != t {
			pending = append(pending, p)
		}
	}
	r.pending = pending
	t.dispose()
}

// AddBoard appends a board gapFrames after the last one and keys every
// channel with its target's current live value. A non-positive gap uses the
// default gap.
func (r *Registry) AddBoard(gapFrames int) error {
	if err := r.checkLive(); err != nil {
		return err
	}
	if len(r.timeline) == 0 {
		return fmt.Errorf("%w: timeline is empty", ErrInvariantViolation)
	}
	if gapFrames <= 0 {
		gapFrames = r.defaultGap
	}

	// Snapshot every live value before anything advances.
	anims := r.Animations()
	snapshot := make([]keyframe.Value, len(anims))
	for i, a := range anims {
		if !a.Channel.Property().Valid() {
			return fmt.Errorf("%w: %q on %q", ErrUnsupportedChannel, a.Channel.Property(), a.Target.Name())
		}
		v, err := liveValue(a.Target, a.Channel.Property())
		if err != nil {
			return err
		}
		snapshot[i] = v
	}

	frame := r.timeline[len(r.timeline)-1] + gapFrames
	r.timeline = append(r.timeline, frame)
	for i, a := range anims {
		a.Channel.append(snapshot[i])
	}

	r.logger.Debug("board added", "board", len(r.timeline)-1, "frame", frame, "channels", len(anims))
	return nil
}

// SetCurrentBoard moves the cursor to index and matches the live scene to
// it. index may equal Len, in which case a board is appended first. Calling
// it again with the same index is a no-op.
func (r *Registry) SetCurrentBoard(index int) error {
	if err := r.checkLive(); err != nil {
		return err
	}
	if r.matching {
		return fmt.Errorf("%w: SetCurrentBoard re-entered while matching board %d", ErrInvariantViolation, r.cursor)
	}
	if index < 0 || index > len(r.timeline) {
		return fmt.Errorf("%w: board %d outside [0, %d]", ErrInvariantViolation, index, len(r.timeline))
	}
	if index == len(r.timeline) {
		if err := r.AddBoard(0); err != nil {
			return err
		}
	}
	if index == r.cursor && !r.dirty {
		return nil
	}
	r.cursor = index
	return r.MatchCurrentBoard()
}

// MatchCurrentBoard writes the keys at the cursor into every target's live
// state, then settles observers once.
func (r *Registry) MatchCurrentBoard() error {
	if err := r.checkLive(); err != nil {
		return err
	}
	r.matching = true
	defer func() { r.matching = false }()

	for _, a := range r.Animations() {
		v, err := a.Channel.Key(r.cursor)
		if err != nil {
			return err
		}
		if err := applyValue(a.Target, a.Channel.Property(), v); err != nil {
			return err
		}
		r.markPending(a.Target)
	}
	r.dirty = false
	r.passes++
	r.Settle()
	return nil
}

// WriteLiveValueToCurrentKey overwrites the key at the cursor for the given
// channel of target. The caller has already written value to the live
// object.
func (r *Registry) WriteLiveValueToCurrentKey(target Target, prop keyframe.Property, value keyframe.Value) error {
	if err := r.checkLive(); err != nil {
		return err
	}
	if r.indexOf(target) < 0 {
		return fmt.Errorf("%w: target %q", ErrNotFound, target.Name())
	}
	ch, err := channelFor(target, prop)
	if err != nil {
		return err
	}
	if err := ch.set(r.cursor, value); err != nil {
		return err
	}
	r.markPending(target)
	r.Settle()
	return nil
}

// SetPlaybackBoard moves the cursor without touching live state. Playback
// uses it to report the board the interpolation is currently in.
func (r *Registry) SetPlaybackBoard(index int) {
	if index < 0 {
		index = 0
	}
	if index >= len(r.timeline) {
		index = len(r.timeline) - 1
	}
	r.cursor = index
}

// ApplyFrame samples every channel at a continuous frame and writes the
// result into live state. Observers are notified on the next Settle.
func (r *Registry) ApplyFrame(frame float32) error {
	if err := r.checkLive(); err != nil {
		return err
	}
	for _, a := range r.Animations() {
		keys := keyframe.Keys(r.timeline, a.Channel.keys)
		v := renderer.Sample(keys, a.Channel.Property(), frame)
		if err := applyValue(a.Target, a.Channel.Property(), v); err != nil {
			return err
		}
		r.markPending(a.Target)
	}
	r.dirty = true
	return nil
}

// BoardAt returns the last board whose frame number is at or before frame.
func (r *Registry) BoardAt(frame float32) int {
	board := 0
	for i, f := range r.timeline {
		if float32(f) <= frame {
			board = i
		} else {
			break
		}
	}
	return board
}

// Settle notifies the observers of every transform target written since the
// last settle, once each, in write order.
func (r *Registry) Settle() {
	pending := r.pending
	r.pending = nil
	for _, t := range pending {
		if !t.disposed {
			t.publish()
		}
	}
}

// SyncTracks pushes (frame, value) pairs for every transform channel into
// the engine tracks of objects that carry them, where the scene serializer
// picks them up.
func (r *Registry) SyncTracks() {
	for _, t := range r.Transforms() {
		tracked, ok := t.node.(Tracked)
		if !ok {
			continue
		}
		for _, ch := range t.Channels() {
			tracked.SetTrack(ch.Property(), keyframe.Keys(r.timeline, ch.keys))
		}
	}
}

// Validate checks every structural invariant of the registry.
func (r *Registry) Validate() error {
	if err := r.checkLive(); err != nil {
		return err
	}
	if err := validateTimeline(r.timeline); err != nil {
		return err
	}
	if r.cursor < 0 || r.cursor >= len(r.timeline) {
		return fmt.Errorf("%w: cursor %d outside [0, %d)", ErrInvariantViolation, r.cursor, len(r.timeline))
	}
	for _, a := range r.Animations() {
		if !a.Channel.Property().Valid() {
			return fmt.Errorf("%w: %q on %q", ErrUnsupportedChannel, a.Channel.Property(), a.Target.Name())
		}
		if a.Channel.Len() != len(r.timeline) {
			return fmt.Errorf("%w: %s channel of %q has %d keys for %d boards", ErrInvariantViolation, a.Channel.Property(), a.Target.Name(), a.Channel.Len(), len(r.timeline))
		}
	}
	return nil
}

// Dispose releases every target and channel. The registry is unusable
// afterwards.
func (r *Registry) Dispose() error {
	if r.disposed {
		return nil
	}
	for _, t := range r.Transforms() {
		r.removeTarget(t)
	}
	if len(r.targets) != 0 {
		leaked := len(r.targets)
		return fmt.Errorf("%w: %d targets still registered", ErrDisposal, leaked)
	}
	r.pending = nil
	r.disposed = true
	return nil
}

func (r *Registry) markPending(target Target) {
	t, ok := target.(*TransformTarget)
	if !ok {
		return
	}
	for _, p := range r.pending {
		if p == t {
			return
		}
	}
	r.pending = append(r.pending, t)
}

func (r *Registry) registered(t Target) bool {
	return r.indexOf(t) >= 0
}

func (r *Registry) indexOf(t Target) int {
	for i, target := range r.targets {
		if target == t {
			return i
		}
	}
	return -1
}

func (r *Registry) checkLive() error {
	if r.disposed {
		return fmt.Errorf("%w: registry %s was disposed", ErrInvariantViolation, r.id)
	}
	return nil
}

func channelFor(target Target, prop keyframe.Property) (*Channel, error) {
	switch t := target.(type) {
	case *TransformTarget:
		if ch := t.Channel(prop); ch != nil {
			return ch, nil
		}
	case *NestedTarget:
		if prop == keyframe.PlayheadFrame {
			return t.channel, nil
		}
	default:
		return nil, fmt.Errorf("%w: target type %T", ErrUnsupportedChannel, target)
	}
	return nil, fmt.Errorf("%w: %q has no %q channel", ErrUnsupportedChannel, target.Name(), prop)
}

func validateTimeline(frames []int) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: timeline is empty", ErrInvariantViolation)
	}
	if frames[0] != 0 {
		return fmt.Errorf("%w: first board at frame %d, want 0", ErrInvariantViolation, frames[0])
	}
	for i := 1; i < len(frames); i++ {
		if frames[i] < frames[i-1] {
			return fmt.Errorf("%w: board %d at frame %d precedes board %d at frame %d", ErrInvariantViolation, i, frames[i], i-1, frames[i-1])
		}
	}
	return nil
}
