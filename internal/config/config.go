package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Timeline configures board spacing.
type Timeline struct {
	FPS            int `toml:"fps" env:"STORYBOARD_FPS"`
	BoardGapFrames int `toml:"board_gap_frames" env:"STORYBOARD_BOARD_GAP_FRAMES"`
}

// Playback configures the playback scheduler.
type Playback struct {
	TickMillis int `toml:"tick_millis" env:"STORYBOARD_TICK_MILLIS"`
}

// Project configures where archives live and how their entries are named.
type Project struct {
	Dir      string `toml:"dir" env:"STORYBOARD_PROJECT_DIR"`
	Basename string `toml:"basename" env:"STORYBOARD_BASENAME"`
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level" env:"STORYBOARD_LOG_LEVEL"`
	Format string `toml:"format" env:"STORYBOARD_LOG_FORMAT"`
	Dir    string `toml:"dir" env:"STORYBOARD_LOG_DIR"`
}

// Preview configures contact sheet rendering.
type Preview struct {
	CellWidth  int     `toml:"cell_width"`
	CellHeight int     `toml:"cell_height"`
	Columns    int     `toml:"columns"`
	WorldSize  float64 `toml:"world_size"`
}

// Config encapsulates every editor setting.
type Config struct {
	Timeline Timeline `toml:"timeline"`
	Playback Playback `toml:"playback"`
	Project  Project  `toml:"project"`
	Logging  Logging  `toml:"logging"`
	Preview  Preview  `toml:"preview"`
}

// DefaultConfigPath returns the absolute path of the default config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates and parses a configuration file, applies environment
// overrides, then normalizes and validates the result. The returned path is
// the resolved file location; exists reports whether it was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("storyboard.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Project.Basename = strings.TrimSpace(c.Project.Basename)

	if c.Timeline.BoardGapFrames <= 0 {
		// One second of frames.
		c.Timeline.BoardGapFrames = c.Timeline.FPS
	}

	var err error
	if c.Project.Dir, err = expandPath(c.Project.Dir); err != nil {
		return fmt.Errorf("project.dir: %w", err)
	}
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}

// EnsureDirectories creates the project and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Project.Dir, c.Logging.Dir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ArchivePath returns the archive location for a basename inside the project
// directory. An empty name uses the configured basename.
func (c *Config) ArchivePath(name string) string {
	if name == "" {
		name = c.Project.Basename
	}
	return filepath.Join(c.Project.Dir, name+ArchiveExt)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
