package main

import (
	"fmt"
	"image"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivlev/storyboard/internal/config"
	"github.com/ivlev/storyboard/internal/engine"
	"github.com/ivlev/storyboard/internal/preview"
	"github.com/ivlev/storyboard/internal/storyboard"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "preview [archive]",
		Short: "Render a contact sheet with one cell per board",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := ctx.archiveArg(args)
			if err != nil {
				return err
			}

			ed, err := ctx.newEditor(nil)
			if err != nil {
				return err
			}
			defer ed.Close()
			if err := ed.LoadFile(cmd.Context(), path); err != nil {
				return err
			}

			renderer := preview.New(preview.OptionsFromConfig(cfg, ctx.logger()))
			var sheet *image.RGBA
			var renderErr error
			ed.View(func(_ *engine.Scene, reg *storyboard.Registry) {
				sheet, renderErr = renderer.Sheet(reg)
			})
			if renderErr != nil {
				return renderErr
			}

			target := outputPath
			if target == "" {
				target = strings.TrimSuffix(path, config.ArchiveExt) + ".png"
			}
			if err := renderer.WriteFile(cmd.Context(), target, sheet); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote preview %s (%d boards)\n", target, ed.TimelineLength())
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "PNG path (default: next to the archive)")
	return cmd
}
