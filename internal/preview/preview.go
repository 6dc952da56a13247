// Package preview renders a contact sheet with one top-down cell per board.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"

	"cogentcore.org/core/math32"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/storyboard/internal/archive"
	"github.com/ivlev/storyboard/internal/config"
	"github.com/ivlev/storyboard/internal/effects"
	"github.com/ivlev/storyboard/internal/engine"
	"github.com/ivlev/storyboard/internal/keyframe"
	"github.com/ivlev/storyboard/internal/logging"
	"github.com/ivlev/storyboard/internal/storyboard"
	"github.com/ivlev/storyboard/internal/system"
)

// supersample is the factor cells are painted at before scaling down.
const supersample = 2

var (
	// NoSky fills cells of scenes without a sun.
	NoSky = color.RGBA{R: 60, G: 60, B: 66, A: 255}

	axisColor  = color.RGBA{R: 255, G: 255, B: 255, A: 60}
	labelColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	kindColors = map[engine.Kind]color.RGBA{
		engine.KindMesh:  {R: 230, G: 90, B: 60, A: 255},
		engine.KindModel: {R: 80, G: 200, B: 120, A: 255},
	}
)

// Marker is one object as seen from above on a board.
type Marker struct {
	Name     string
	Kind     engine.Kind
	Position math32.Vector3
	// Extent is half the footprint in world units.
	Extent float32
}

// Board is the keyed state of one board.
type Board struct {
	Index   int
	Frame   int
	Sky     color.RGBA
	Markers []Marker
}

// Options configures a Renderer.
type Options struct {
	CellWidth  int
	CellHeight int
	Columns    int
	// WorldSize is the width of the world square shown in a cell.
	WorldSize float32
	Pool      *system.ImagePool
	Logger    *slog.Logger
}

// OptionsFromConfig maps the preview section of the configuration.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		CellWidth:  cfg.Preview.CellWidth,
		CellHeight: cfg.Preview.CellHeight,
		Columns:    cfg.Preview.Columns,
		WorldSize:  float32(cfg.Preview.WorldSize),
		Logger:     logger,
	}
}

// Renderer draws contact sheets.
type Renderer struct {
	opts   Options
	pool   *system.ImagePool
	sky    *effects.SkyEffect
	logger *slog.Logger
}

// New creates a renderer. Zero options fall back to the configuration
// defaults.
func New(opts Options) *Renderer {
	def := config.Default().Preview
	if opts.CellWidth <= 0 {
		opts.CellWidth = def.CellWidth
	}
	if opts.CellHeight <= 0 {
		opts.CellHeight = def.CellHeight
	}
	if opts.Columns <= 0 {
		opts.Columns = def.Columns
	}
	if opts.WorldSize <= 0 {
		opts.WorldSize = float32(def.WorldSize)
	}
	pool := opts.Pool
	if pool == nil {
		pool = system.NewImagePool()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{
		opts:   opts,
		pool:   pool,
		sky:    effects.NewSkyEffect(),
		logger: logger.With(logging.FieldComponent, "preview"),
	}
}

// Capture reads every board from the channel keys. Live state and the board
// cursor are left alone.
func (r *Renderer) Capture(reg *storyboard.Registry) ([]Board, error) {
	if reg.Disposed() {
		return nil, fmt.Errorf("%w: registry disposed", storyboard.ErrInvariantViolation)
	}
	frames := reg.FrameNumbers()
	boards := make([]Board, len(frames))
	for i, frame := range frames {
		boards[i] = Board{Index: i, Frame: frame, Sky: NoSky}
	}

	for _, t := range reg.Transforms() {
		node, ok := t.Node().(*engine.Node)
		if !ok {
			continue
		}
		for i := range boards {
			if node.Kind() == engine.KindSun {
				rot, err := t.Channel(keyframe.Rotation).Key(i)
				if err != nil {
					return nil, err
				}
				var env engine.Environment
				r.sky.Apply(&env, rot.Quat())
				boards[i].Sky = env.Sky.Horizon
				continue
			}

			pos, err := t.Channel(keyframe.Position).Key(i)
			if err != nil {
				return nil, err
			}
			scale, err := t.Channel(keyframe.Scaling).Key(i)
			if err != nil {
				return nil, err
			}
			boards[i].Markers = append(boards[i].Markers, Marker{
				Name:     node.Name(),
				Kind:     node.Kind(),
				Position: pos.Vector3(),
				Extent:   footprint(node.Geometry(), scale.Vector3()),
			})
		}
	}
	return boards, nil
}

func footprint(geom *engine.Geometry, scale math32.Vector3) float32 {
	size := math32.Vec3(1, 1, 1)
	if geom != nil {
		size = geom.Size
	}
	return math32.Max(math32.Abs(size.X*scale.X), math32.Abs(size.Z*scale.Z)) / 2
}

// Render lays boards out in rows of Columns cells.
func (r *Renderer) Render(boards []Board) (*image.RGBA, error) {
	if len(boards) == 0 {
		return nil, fmt.Errorf("%w: no boards to render", storyboard.ErrInvariantViolation)
	}
	w, h := r.opts.CellWidth, r.opts.CellHeight
	cols := min(r.opts.Columns, len(boards))
	rows := (len(boards) + cols - 1) / cols
	sheet := image.NewRGBA(image.Rect(0, 0, cols*w, rows*h))

	cellRect := image.Rect(0, 0, w*supersample, h*supersample)
	for i, b := range boards {
		cell := r.pool.Get(cellRect)
		r.paintCell(cell, b)

		x, y := (i%cols)*w, (i/cols)*h
		dst := image.Rect(x, y, x+w, y+h)
		draw.BiLinear.Scale(sheet, dst, cell, cell.Bounds(), draw.Src, nil)
		r.pool.Put(cell)

		label(sheet, x+4, y+13, fmt.Sprintf("#%d f%d", b.Index, b.Frame))
	}
	r.logger.Debug("contact sheet rendered", slog.Int("boards", len(boards)), slog.Int("columns", cols))
	return sheet, nil
}

func (r *Renderer) paintCell(cell *image.RGBA, b Board) {
	bounds := cell.Bounds()
	draw.Draw(cell, bounds, &image.Uniform{C: b.Sky}, image.Point{}, draw.Src)

	cx, cy := bounds.Dx()/2, bounds.Dy()/2
	axis := &image.Uniform{C: axisColor}
	draw.Draw(cell, image.Rect(0, cy, bounds.Dx(), cy+1), axis, image.Point{}, draw.Over)
	draw.Draw(cell, image.Rect(cx, 0, cx+1, bounds.Dy()), axis, image.Point{}, draw.Over)

	for _, m := range b.Markers {
		px, pz := r.project(m.Position, bounds)
		half := max(2, int(m.Extent/r.opts.WorldSize*float32(bounds.Dx())))
		fill, ok := kindColors[m.Kind]
		if !ok {
			fill = labelColor
		}
		rect := image.Rect(px-half, pz-half, px+half, pz+half)
		draw.Draw(cell, rect, &image.Uniform{C: fill}, image.Point{}, draw.Src)
	}
}

// project maps world X/Z onto cell pixels with the origin in the middle and
// +Z towards the bottom.
func (r *Renderer) project(p math32.Vector3, bounds image.Rectangle) (int, int) {
	u := p.X/r.opts.WorldSize + 0.5
	v := p.Z/r.opts.WorldSize + 0.5
	return int(math32.Round(u * float32(bounds.Dx()))), int(math32.Round(v * float32(bounds.Dy())))
}

func label(dst draw.Image, x, y int, text string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// Sheet captures and renders reg.
func (r *Renderer) Sheet(reg *storyboard.Registry) (*image.RGBA, error) {
	boards, err := r.Capture(reg)
	if err != nil {
		return nil, err
	}
	return r.Render(boards)
}

// Encode writes img as PNG.
func Encode(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// WriteFile encodes img as PNG and writes it to path.
func (r *Renderer) WriteFile(ctx context.Context, path string, img image.Image) error {
	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	if err := archive.WriteFile(ctx, path, buf.Bytes()); err != nil {
		return err
	}
	r.logger.Info("preview written", slog.String(logging.FieldPath, path))
	return nil
}
