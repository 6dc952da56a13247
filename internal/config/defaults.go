package config

const (
	defaultConfigPath   = "~/.config/storyboard/config.toml"
	defaultFPS          = 60
	defaultTickMillis   = 16
	defaultProjectDir   = "~/.local/share/storyboard/projects"
	defaultBasename     = "scene"
	defaultLogLevel     = "info"
	defaultLogFormat    = "console"
	defaultCellWidth    = 240
	defaultCellHeight   = 160
	defaultColumns      = 4
	defaultWorldSize    = 20.0
	maxFPS              = 240
	maxTickMillis       = 1000
	maxPreviewCellPixel = 2048

	// ArchiveExt is the file extension of storyboard archives.
	ArchiveExt = ".storyboard.zip"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Timeline: Timeline{
			FPS:            defaultFPS,
			BoardGapFrames: defaultFPS,
		},
		Playback: Playback{
			TickMillis: defaultTickMillis,
		},
		Project: Project{
			Dir:      defaultProjectDir,
			Basename: defaultBasename,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Preview: Preview{
			CellWidth:  defaultCellWidth,
			CellHeight: defaultCellHeight,
			Columns:    defaultColumns,
			WorldSize:  defaultWorldSize,
		},
	}
}
