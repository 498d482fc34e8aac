package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"lawfeed/internal/charset"
	"lawfeed/internal/feed"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateLanes(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.IncomingDir == "" {
		return errors.New("incoming_dir must be set")
	}
	if c.Paths.ArchiveDir == "" {
		return errors.New("archive_dir must be set")
	}
	if c.Paths.DataDir == "" {
		return errors.New("data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("log_dir must be set")
	}
	if filepath.Clean(c.Paths.IncomingDir) == filepath.Clean(c.Paths.ArchiveDir) {
		return errors.New("incoming_dir and archive_dir must differ")
	}
	return nil
}

func (c *Config) validateFeed() error {
	if _, err := charset.Lookup(c.Feed.DefaultEncoding); err != nil {
		return fmt.Errorf("default_encoding: %w", err)
	}
	for _, pattern := range c.Feed.FilePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("file_patterns: invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func (c *Config) validateLanes() error {
	if c.Collate.PollInterval <= 0 {
		return errors.New("collate.poll_interval must be positive")
	}
	if c.Dispatch.PollInterval <= 0 {
		return errors.New("dispatch.poll_interval must be positive")
	}
	if c.Dispatch.HandlerTimeoutSeconds < 0 {
		return errors.New("dispatch.handler_timeout_seconds must be zero or positive")
	}
	switch c.Dispatch.UnhandledPolicy {
	case UnhandledMarkProcessed, UnhandledLeavePending:
	default:
		return fmt.Errorf("dispatch.unhandled_policy: unsupported value %q", c.Dispatch.UnhandledPolicy)
	}
	for _, name := range c.Dispatch.DisabledTypes {
		if _, err := feed.ParseFragmentType(name); err != nil {
			return fmt.Errorf("dispatch.disabled_types: %w", err)
		}
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if !validLogLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.FileLevel != "" && !validLogLevel(c.Logging.FileLevel) {
		return fmt.Errorf("logging.file_level: unsupported value %q", c.Logging.FileLevel)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}

func validLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
