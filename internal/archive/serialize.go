package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/storyboard/internal/engine"
	"github.com/ivlev/storyboard/internal/keyframe"
	"github.com/ivlev/storyboard/internal/storyboard"
)

// snapshot is the data of one archive, copied out of the live registry.
type snapshot struct {
	frames []int
	sun    []keyframe.Value
	m2a    map[string][]string
	a2aa   map[string][]keyPoint
	scene  []byte
}

// Serialize writes reg and scene as an archive. The caller must keep both
// unchanged until it returns.
func (c *Codec) Serialize(reg *storyboard.Registry, scene *engine.Scene) ([]byte, error) {
	snap, err := c.snapshot(reg, scene)
	if err != nil {
		return nil, err
	}

	names := c.Names()
	encoded := make(map[string][]byte, 5)
	payloads := map[string]any{
		names.Keyframes: snap.frames,
		names.Sun:       snap.sun,
		names.M2A:       snap.m2a,
		names.A2AA:      snap.a2aa,
	}
	results := make([][]byte, len(payloads))
	order := []string{names.Keyframes, names.Sun, names.M2A, names.A2AA}

	var g errgroup.Group
	for i, name := range order {
		g.Go(func() error {
			data, err := json.Marshal(payloads[name])
			if err != nil {
				return fmt.Errorf("%w: encode %s: %v", storyboard.ErrSerialization, name, err)
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	encoded[names.Scene] = snap.scene
	for i, name := range order {
		encoded[name] = results[i]
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := time.Now()
	for _, name := range names.Ordered() {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
		if err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", storyboard.ErrSerialization, name, err)
		}
		if _, err := w.Write(encoded[name]); err != nil {
			return nil, fmt.Errorf("%w: write %s: %v", storyboard.ErrSerialization, name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: close archive: %v", storyboard.ErrSerialization, err)
	}

	c.logger.Info("archive serialized",
		slog.Int("boards", len(snap.frames)),
		slog.Int("clips", len(snap.a2aa)),
		slog.Int("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

func (c *Codec) snapshot(reg *storyboard.Registry, scene *engine.Scene) (*snapshot, error) {
	frames := reg.FrameNumbers()
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: timeline is empty", storyboard.ErrSerialization)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storyboard.ErrSerialization, err)
	}

	// Tracks carry the transform channels inside the scene entry.
	reg.SyncTracks()

	snap := &snapshot{
		frames: frames,
		sun:    []keyframe.Value{},
		m2a:    make(map[string][]string),
		a2aa:   make(map[string][]keyPoint),
	}
	for _, t := range reg.Transforms() {
		if t.Name() == engine.SunName {
			snap.sun = t.Channel(keyframe.Rotation).Keys()
		}
		nested := t.Nested()
		if len(nested) == 0 {
			continue
		}
		clips := make([]string, 0, len(nested))
		for _, n := range nested {
			clips = append(clips, n.Name())
			keys := n.Channel().Keys()
			points := make([]keyPoint, len(keys))
			for i, k := range keys {
				points[i] = keyPoint{Frame: frames[i], Value: k.Scalar()}
			}
			snap.a2aa[n.Name()] = points
		}
		snap.m2a[t.Name()] = clips
	}

	data, err := engine.Marshal(scene, engine.MarshalOptions{StripEnvironment: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storyboard.ErrSerialization, err)
	}
	snap.scene = data
	return snap, nil
}
