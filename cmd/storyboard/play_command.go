package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/storyboard/internal/editor"
	"github.com/ivlev/storyboard/internal/engine"
	"github.com/ivlev/storyboard/internal/storyboard"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var simulate bool

	cmd := &cobra.Command{
		Use:   "play [archive]",
		Short: "Play an archive from the first board to the last",
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

			out := cmd.OutOrStdout()
			failed := make(chan error, 1)
			ed, err := ctx.newEditor(func(o *editor.Options) {
				o.RealTime = !simulate
				o.OnBoard = func(board int) {
					fmt.Fprintf(out, "board %d\n", board)
				}
				o.OnError = func(err error) {
					select {
					case failed <- err:
					default:
					}
				}
			})
			if err != nil {
				return err
			}
			defer ed.Close()

			if err := ed.LoadFile(cmd.Context(), path); err != nil {
				return err
			}
			for _, ref := range ed.Unresolved() {
				fmt.Fprintf(out, "unresolved: %v\n", ref)
			}

			var lastFrame int
			ed.View(func(_ *engine.Scene, reg *storyboard.Registry) {
				lastFrame = reg.LastFrame()
			})

			done := make(chan struct{})
			start := time.Now()
			if err := ed.Play(func() { close(done) }); err != nil {
				return err
			}

			if simulate {
				tick := time.Duration(cfg.Playback.TickMillis) * time.Millisecond
				for {
					finished, err := ed.Step(tick)
					if err != nil {
						return err
					}
					if finished {
						break
					}
				}
			} else {
				sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()
				select {
				case <-done:
				case err := <-failed:
					return fmt.Errorf("playback: %w", err)
				case <-sigCtx.Done():
					ed.Stop()
					fmt.Fprintln(out, "Playback stopped")
					return nil
				}
			}

			fmt.Fprintf(out, "Played %d boards (%d frames) in %s\n", ed.TimelineLength(), lastFrame, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&simulate, "simulate", false, "Step playback with the configured tick instead of the wall clock")
	return cmd
}
