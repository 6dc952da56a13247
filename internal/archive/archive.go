// Package archive reads and writes storyboard archives.
//
// An archive is a zip file with five entries sharing a basename:
//
//	<base>.yaml                             static scene, environment stripped
//	<base>_keyframes.json                   board frame numbers
//	<base>_skySun_rotation_animation.json   sun rotation per board
//	<base>_m2a.json                         mesh name -> clip names
//	<base>_a2aa.json                        clip name -> playhead keys
//
// The scene and keyframes entries are required. The other three degrade to
// live values with a warning when they are missing or malformed.
package archive

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ivlev/storyboard/internal/logging"
)

// DefaultBasename is used when a Codec has no basename.
const DefaultBasename = "scene"

// Names holds the entry names for one basename.
type Names struct {
	Scene     string
	Keyframes string
	Sun       string
	M2A       string
	A2AA      string
}

// EntryNames returns the entry names for base.
func EntryNames(base string) Names {
	return Names{
		Scene:     base + ".yaml",
		Keyframes: base + "_keyframes.json",
		Sun:       base + "_skySun_rotation_animation.json",
		M2A:       base + "_m2a.json",
		A2AA:      base + "_a2aa.json",
	}
}

// Ordered returns the names in archive order.
func (n Names) Ordered() []string {
	return []string{n.Scene, n.Keyframes, n.Sun, n.M2A, n.A2AA}
}

// Codec serializes registries together with their scene.
type Codec struct {
	basename string
	fps      int
	logger   *slog.Logger
}

// Options configures a Codec.
type Options struct {
	Basename string
	// FPS is recorded for the registry's default gap on load.
	FPS    int
	Logger *slog.Logger
}

// NewCodec creates a codec.
func NewCodec(opts Options) *Codec {
	base := strings.TrimSpace(opts.Basename)
	if base == "" {
		base = DefaultBasename
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Codec{
		basename: base,
		fps:      opts.FPS,
		logger:   logger.With(logging.FieldComponent, "archive"),
	}
}

// Names returns the entry names this codec writes.
func (c *Codec) Names() Names { return EntryNames(c.basename) }

// keyPoint is one playhead key of the a2aa entry.
type keyPoint struct {
	Frame int     `json:"frame"`
	Value float32 `json:"value"`
}

// EntryWarning reports an optional entry that was missing or malformed and
// replaced by live values.
type EntryWarning struct {
	Entry string
	Err   error
}

func (w EntryWarning) Error() string {
	return fmt.Sprintf("entry %s: %v", w.Entry, w.Err)
}

func (w EntryWarning) Unwrap() error { return w.Err }
