package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTimeline(); err != nil {
		return err
	}
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateProject(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validatePreview(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTimeline() error {
	if c.Timeline.FPS <= 0 || c.Timeline.FPS > maxFPS {
		return fmt.Errorf("timeline.fps must be between 1 and %d", maxFPS)
	}
	if c.Timeline.BoardGapFrames <= 0 {
		return errors.New("timeline.board_gap_frames must be positive")
	}
	return nil
}

func (c *Config) validatePlayback() error {
	if c.Playback.TickMillis <= 0 || c.Playback.TickMillis > maxTickMillis {
		return fmt.Errorf("playback.tick_millis must be between 1 and %d", maxTickMillis)
	}
	return nil
}

func (c *Config) validateProject() error {
	name := c.Project.Basename
	if name == "" {
		return errors.New("project.basename must be set")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("project.basename %q must not contain path separators", name)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validatePreview() error {
	p := c.Preview
	if p.CellWidth <= 0 || p.CellHeight <= 0 || p.CellWidth > maxPreviewCellPixel || p.CellHeight > maxPreviewCellPixel {
		return fmt.Errorf("preview cell size must be between 1 and %d pixels", maxPreviewCellPixel)
	}
	if p.Columns <= 0 {
		return errors.New("preview.columns must be positive")
	}
	if p.WorldSize <= 0 {
		return errors.New("preview.world_size must be positive")
	}
	return nil
}
