package main

import (
	"fmt"
	"os"

	"cogentcore.org/core/math32"
	"github.com/spf13/cobra"

	"github.com/ivlev/storyboard/internal/archive"
	"github.com/ivlev/storyboard/internal/config"
	"github.com/ivlev/storyboard/internal/editor"
	"github.com/ivlev/storyboard/internal/engine"
	"github.com/ivlev/storyboard/internal/keyframe"
	"github.com/ivlev/storyboard/internal/storyboard"
)

func newNewCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var boards int
	var primitives []string
	var models []string
	var withSun bool
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "new [name]",
		Short: "Create an archive with a generated animation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if boards < 1 {
				return fmt.Errorf("--boards must be at least 1")
			}
			name := cfg.Project.Basename
			if len(args) > 0 {
				name = args[0]
			}

			ed, err := ctx.newEditor(nil)
			if err != nil {
				return err
			}
			defer ed.Close()

			for _, kind := range primitives {
				if _, err := ed.AddPrimitive(kind, ""); err != nil {
					return err
				}
			}
			for _, path := range models {
				expanded, err := config.ExpandPath(path)
				if err != nil {
					return err
				}
				if err := <-ed.ImportModel(cmd.Context(), expanded, ""); err != nil {
					return fmt.Errorf("import %s: %w", path, err)
				}
			}
			if withSun {
				if err := ed.AddSun(); err != nil {
					return err
				}
			}
			if err := animate(ed, boards); err != nil {
				return err
			}

			target := outputPath
			if target == "" {
				target = cfg.ArchivePath(name)
				if _, err := os.Stat(target); err == nil && !overwrite {
					target = archive.GeneratePath(cfg.Project.Dir, name, config.ArchiveExt)
				}
			} else if target, err = config.ExpandPath(target); err != nil {
				return err
			}

			if err := ed.SaveFile(cmd.Context(), target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d boards, %d objects)\n", target, ed.TimelineLength(), len(ed.Objects()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Archive path (default: <project dir>/<name>.storyboard.zip)")
	cmd.Flags().IntVarP(&boards, "boards", "b", 3, "Number of boards")
	cmd.Flags().StringSliceVarP(&primitives, "primitive", "p", []string{"box"}, "Primitives to add (box, sphere, plane, cylinder)")
	cmd.Flags().StringSliceVarP(&models, "model", "m", nil, "Model descriptions to import")
	cmd.Flags().BoolVar(&withSun, "sun", true, "Add an animated sun")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing archive of the same name")
	return cmd
}

type clipSpan struct {
	name     string
	from, to float32
}

// animate appends boards and keys a simple motion: objects walk along +X,
// clips advance through their range and the sun rises.
func animate(ed *editor.Editor, boards int) error {
	objects := ed.Objects()

	var clips []clipSpan
	ed.View(func(_ *engine.Scene, reg *storyboard.Registry) {
		for _, t := range reg.Transforms() {
			for _, n := range t.Nested() {
				if c, ok := n.Clip().(*engine.Clip); ok {
					from, to := c.Range()
					clips = append(clips, clipSpan{name: c.Name(), from: from, to: to})
				}
			}
		}
	})

	for b := 1; b < boards; b++ {
		if err := ed.SetCurrentBoard(b); err != nil {
			return err
		}
		progress := float32(b) / float32(boards-1)

		for i, name := range objects {
			if name == engine.SunName {
				rise := math32.NewQuatAxisAngle(math32.Vec3(1, 0, 0), -math32.Pi/2*progress)
				if err := ed.WriteLiveValue(name, keyframe.Rotation, keyframe.FromQuat(rise)); err != nil {
					return err
				}
				continue
			}
			pos := math32.Vec3(float32(b)*2, 0, float32(i)*2-float32(len(objects)))
			if err := ed.WriteLiveValue(name, keyframe.Position, keyframe.FromVector3(pos)); err != nil {
				return err
			}
		}
		for _, c := range clips {
			frame := math32.Lerp(c.from, c.to, progress)
			if err := ed.WriteLiveValue(c.name, keyframe.PlayheadFrame, keyframe.FromScalar(frame)); err != nil {
				return err
			}
		}
	}
	return ed.SetCurrentBoard(0)
}
