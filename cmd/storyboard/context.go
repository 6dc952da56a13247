package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ivlev/storyboard/internal/config"
	"github.com/ivlev/storyboard/internal/editor"
	"github.com/ivlev/storyboard/internal/logging"
	"github.com/ivlev/storyboard/internal/system"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	log        *slog.Logger
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
			if err := cfg.Validate(); err != nil {
				c.configErr = err
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.configErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
		c.log = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *slog.Logger {
	if c.log == nil {
		return logging.NewNop()
	}
	return c.log
}

func (c *commandContext) newEditor(opts func(*editor.Options)) (*editor.Editor, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	o := editor.OptionsFromConfig(cfg, c.logger())
	if opts != nil {
		opts(&o)
	}
	return editor.New(o), nil
}

// archiveArg returns the archive named on the command line, or the most
// recent archive in the project directory.
func (c *commandContext) archiveArg(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return config.ExpandPath(args[0])
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	latest, err := system.FindLatest(cfg.Project.Dir, config.ArchiveExt)
	if err != nil {
		return "", fmt.Errorf("no archive given: %w", err)
	}
	return latest, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
