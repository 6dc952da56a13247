// Package playback drives continuous interpolated playback of a storyboard.
//
// A Controller is advanced by elapsed time, either by a caller through Step
// or by Run on a real-time ticker. The board index reported while playing is
// derived from the playback frame, so uneven board gaps are tracked exactly.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ivlev/storyboard/internal/logging"
	"github.com/ivlev/storyboard/internal/storyboard"
)

// State is the playback state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// DefaultTick is the Run interval when none is configured.
const DefaultTick = 16 * time.Millisecond

// Options configures a Controller.
type Options struct {
	FPS  int
	Tick time.Duration
	// Locker guards the registry while Run steps. Callers of Step hold it
	// themselves.
	Locker sync.Locker
	// OnBoard is called whenever the playback crosses into another board.
	OnBoard func(board int)
	Logger  *slog.Logger
}

// Controller plays a registry from frame 0 to its last frame.
type Controller struct {
	reg     *storyboard.Registry
	fps     float64
	tick    time.Duration
	locker  sync.Locker
	onBoard func(int)
	logger  *slog.Logger

	state  State
	frame  float64
	board  int
	onEnd  func()
	cancel context.CancelFunc
	cycle  int
}

// New creates a stopped controller for reg.
func New(reg *storyboard.Registry, opts Options) *Controller {
	fps := opts.FPS
	if fps <= 0 {
		fps = storyboard.DefaultGapFrames
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	locker := opts.Locker
	if locker == nil {
		locker = &sync.Mutex{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		reg:     reg,
		fps:     float64(fps),
		tick:    tick,
		locker:  locker,
		onBoard: opts.OnBoard,
		logger:  logger.With(logging.FieldComponent, "playback"),
	}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Frame returns the playback frame.
func (c *Controller) Frame() float32 { return float32(c.frame) }

// Board returns the board the playback frame is in.
func (c *Controller) Board() int { return c.board }

// Play starts a play cycle from frame 0. onEnd, if set, runs once when the
// last frame is reached. Calling Play during a cycle restarts it and drops
// the previous callback.
func (c *Controller) Play(onEnd func()) error {
	if c.state != Stopped {
		c.halt(Stopped)
	}
	c.reg.SetPlaybackBoard(0)
	c.frame = 0
	c.board = 0
	c.onEnd = onEnd
	c.cycle++
	c.state = Playing
	c.logger.Debug("play", slog.Int("cycle", c.cycle), slog.Int("last_frame", c.reg.LastFrame()))

	if err := c.reg.ApplyFrame(0); err != nil {
		c.halt(Stopped)
		return err
	}
	c.reg.Settle()
	return nil
}

// Pause suspends playback. The completion callback is kept for Resume.
func (c *Controller) Pause() {
	if c.state != Playing {
		return
	}
	c.halt(Paused)
	c.logger.Debug("pause", slog.Float64(logging.FieldFrame, c.frame))
}

// Resume continues a paused cycle.
func (c *Controller) Resume() error {
	if c.state != Paused {
		return fmt.Errorf("%w: resume while %s", storyboard.ErrInvariantViolation, c.state)
	}
	c.state = Playing
	return nil
}

// Stop ends the cycle without running the completion callback.
func (c *Controller) Stop() {
	if c.state == Stopped {
		return
	}
	c.halt(Stopped)
	c.onEnd = nil
}

// Step advances playback by elapsed time. It reports whether the cycle
// finished during this step.
func (c *Controller) Step(elapsed time.Duration) (bool, error) {
	if c.state != Playing {
		return false, nil
	}
	if elapsed > 0 {
		c.frame += elapsed.Seconds() * c.fps
	}

	last := float64(c.reg.LastFrame())
	done := c.frame >= last
	if done {
		c.frame = last
	}

	if err := c.reg.ApplyFrame(float32(c.frame)); err != nil {
		c.halt(Stopped)
		return false, err
	}

	board := c.reg.BoardAt(float32(c.frame))
	if done {
		board = c.reg.Len() - 1
	}
	if board != c.board {
		c.board = board
		c.reg.SetPlaybackBoard(board)
		if c.onBoard != nil {
			c.onBoard(board)
		}
	}

	c.reg.Settle()

	if done {
		c.finish()
	}
	return done, nil
}

// Run steps the controller on a real-time ticker until the cycle ends, the
// controller leaves the playing state, or ctx is cancelled. Only one Run
// drives a cycle at a time.
func (c *Controller) Run(ctx context.Context) error {
	c.locker.Lock()
	if c.state != Playing || c.cancel != nil {
		c.locker.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	cycle := c.cycle
	c.locker.Unlock()
	defer cancel()

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now

			c.locker.Lock()
			if c.state != Playing || c.cycle != cycle {
				c.locker.Unlock()
				return nil
			}
			done, err := c.Step(elapsed)
			c.locker.Unlock()
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

func (c *Controller) finish() {
	onEnd := c.onEnd
	c.onEnd = nil
	c.halt(Stopped)
	c.logger.Debug("playback finished", slog.Int(logging.FieldBoard, c.board))
	if onEnd != nil {
		onEnd()
	}
}

func (c *Controller) halt(next State) {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = next
}
