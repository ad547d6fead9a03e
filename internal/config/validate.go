package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateProbe(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.InputDir != "" && within(c.Paths.InputDir, c.Paths.OutputDir) {
		return errors.New("paths.output_dir must not be paths.input_dir or inside it")
	}
	if filepath.Clean(c.Paths.WorkDir) == filepath.Clean(c.Paths.OutputDir) {
		return errors.New("paths.work_dir must differ from paths.output_dir")
	}
	if !strings.Contains(c.Paths.APIBind, ":") {
		return fmt.Errorf("paths.api_bind %q must be host:port", c.Paths.APIBind)
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if c.Encoder.DefaultResolution < 1 || c.Encoder.DefaultResolution > maxResolution {
		return fmt.Errorf("encoder.default_resolution must be between 1 and %d", maxResolution)
	}
	if c.Encoder.DefaultFPS < minFPS || c.Encoder.DefaultFPS > maxFPS {
		return fmt.Errorf("encoder.default_fps must be between %d and %d", minFPS, maxFPS)
	}
	return nil
}

func (c *Config) validateProbe() error {
	if c.Probe.Workers > maxProbeWorkers {
		return fmt.Errorf("probe.workers must be at most %d", maxProbeWorkers)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

// within reports whether path is root or nested below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
