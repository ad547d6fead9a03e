package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"vidbatch/internal/config"
	"vidbatch/internal/daemon"
	"vidbatch/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	// daemonOpts is appended to every daemon the CLI builds (tests inject runners).
	daemonOpts []daemon.Option
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
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
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// newSessionDaemon builds a daemon whose log output goes to the log file and
// the stream hub only, leaving the terminal to the command.
func (c *commandContext) newSessionDaemon() (*daemon.Daemon, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	hub := logging.NewStreamHub(cfg.Logging.TailSize)
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      "json",
		OutputPaths: []string{sessionLogPath(cfg)},
		Stream:      hub,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	d, err := daemon.New(cfg, logger, hub, c.daemonOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create daemon: %w", err)
	}
	return d, logger, nil
}

func sessionLogPath(cfg *config.Config) string {
	if cfg == nil || strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return "discard"
	}
	return filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
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
