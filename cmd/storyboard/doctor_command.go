package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivlev/storyboard/internal/config"
	"github.com/ivlev/storyboard/internal/system"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Report configuration and host resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			configPath := ctx.configPath
			if !ctx.configSeen {
				configPath += " (not found, defaults used)"
			}
			archives, err := system.ListFiles(cfg.Project.Dir, config.ArchiveExt)
			archiveCount := strconv.Itoa(len(archives))
			if err != nil {
				archiveCount = err.Error()
			}

			report := system.HostReport(cmd.Context(), cfg.Project.Dir)
			rows := [][]string{
				{"Config file", configPath},
				{"Project dir", cfg.Project.Dir},
				{"Archives", archiveCount},
				{"Timeline", fmt.Sprintf("%d fps, %d frames per board", cfg.Timeline.FPS, cfg.Timeline.BoardGapFrames)},
				{"Log level", cfg.Logging.Level},
				{"Log file", yesNo(cfg.Logging.Dir != "")},
				{"Host", report.Hostname},
				{"Platform", report.Platform},
				{"Kernel", report.Kernel},
				{"CPUs", fmt.Sprintf("%d logical, %d physical", report.LogicalCPUs, report.PhysicalCPUs)},
				{"Memory", fmt.Sprintf("%s available of %s", system.FormatBytes(report.MemAvailable), system.FormatBytes(report.MemTotal))},
				{"Disk", fmt.Sprintf("%s free (%.0f%% used)", system.FormatBytes(report.DiskFree), report.DiskUsedPct)},
			}
			if len(report.Problems) > 0 {
				rows = append(rows, []string{"Problems", strings.Join(report.Problems, "; ")})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Value"}, rows, nil))
			return nil
		},
	}
}
