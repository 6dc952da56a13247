package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/storyboard/internal/archive"
	"github.com/ivlev/storyboard/internal/config"
	"github.com/ivlev/storyboard/internal/system"
)

type archiveSummary struct {
	path       string
	size       int64
	boards     int
	lastFrame  int
	objects    int
	clips      int
	unresolved int
	warnings   int
	err        error
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [archive...]",
		Short: "Summarize archives (default: every archive in the project directory)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			paths := args
			if len(paths) == 0 {
				paths, err = system.ListFiles(cfg.Project.Dir, config.ArchiveExt)
				if err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			if len(paths) == 0 {
				fmt.Fprintf(out, "No archives in %s\n", cfg.Project.Dir)
				return nil
			}

			codec := archive.NewCodec(archive.Options{
				Basename: cfg.Project.Basename,
				FPS:      cfg.Timeline.BoardGapFrames,
				Logger:   ctx.logger(),
			})

			summaries := make([]archiveSummary, len(paths))
			g, gctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(runtime.NumCPU())
			for i, path := range paths {
				g.Go(func() error {
					summaries[i] = summarize(gctx, codec, path)
					return gctx.Err()
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			rows := make([][]string, 0, len(summaries))
			failed := 0
			for _, s := range summaries {
				status := "ok"
				if s.err != nil {
					status = s.err.Error()
					failed++
				}
				rows = append(rows, []string{
					filepath.Base(s.path),
					system.FormatBytes(uint64(s.size)),
					strconv.Itoa(s.boards),
					strconv.Itoa(s.lastFrame),
					strconv.Itoa(s.objects),
					strconv.Itoa(s.clips),
					strconv.Itoa(s.unresolved),
					strconv.Itoa(s.warnings),
					status,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Archive", "Size", "Boards", "Last frame", "Objects", "Clips", "Unresolved", "Warnings", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			if failed > 0 {
				return fmt.Errorf("%d of %d archives could not be read", failed, len(summaries))
			}
			return nil
		},
	}
}

func summarize(ctx context.Context, codec *archive.Codec, path string) archiveSummary {
	s := archiveSummary{path: path}
	if info, err := os.Stat(path); err == nil {
		s.size = info.Size()
	}

	data, err := archive.ReadFile(ctx, path)
	if err != nil {
		s.err = err
		return s
	}
	res, err := codec.Deserialize(data)
	if err != nil {
		s.err = err
		return s
	}
	defer func() {
		_ = res.Registry.Dispose()
		_ = res.Scene.Dispose()
	}()

	transforms := res.Registry.Transforms()
	s.boards = res.Registry.Len()
	s.lastFrame = res.Registry.LastFrame()
	s.objects = len(transforms)
	s.clips = len(res.Registry.Targets()) - len(transforms)
	s.unresolved = len(res.Unresolved)
	s.warnings = len(res.Warnings)
	return s
}
