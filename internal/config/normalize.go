package config

import (
	"fmt"
	"os"
	"strings"

	"lawfeed/internal/charset"
)

func (c *Config) normalize() error {
	if value := strings.TrimSpace(os.Getenv("LAWFEED_DATA_DIR")); value != "" && strings.TrimSpace(c.Paths.DataDir) == defaultDataDir {
		c.Paths.DataDir = value
	}
	if value := strings.TrimSpace(os.Getenv("LAWFEED_DEFAULT_ENCODING")); value != "" && strings.TrimSpace(c.Feed.DefaultEncoding) == defaultEncoding {
		c.Feed.DefaultEncoding = value
	}

	var err error
	if c.Paths.IncomingDir, err = expandPath(c.Paths.IncomingDir); err != nil {
		return fmt.Errorf("incoming_dir: %w", err)
	}
	if c.Paths.ArchiveDir, err = expandPath(c.Paths.ArchiveDir); err != nil {
		return fmt.Errorf("archive_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}

	c.Feed.DefaultEncoding = strings.TrimSpace(c.Feed.DefaultEncoding)
	if c.Feed.DefaultEncoding == "" {
		c.Feed.DefaultEncoding = defaultEncoding
	}
	c.Feed.DefaultEncoding = charset.Canonical(c.Feed.DefaultEncoding)
	c.Feed.FilePatterns = normalizeStrings(c.Feed.FilePatterns, false)

	if c.Collate.PageSize <= 0 {
		c.Collate.PageSize = defaultPageSize
	}
	if c.Dispatch.PageSize <= 0 {
		c.Dispatch.PageSize = defaultPageSize
	}
	c.Dispatch.UnhandledPolicy = strings.ToLower(strings.TrimSpace(c.Dispatch.UnhandledPolicy))
	if c.Dispatch.UnhandledPolicy == "" {
		c.Dispatch.UnhandledPolicy = UnhandledMarkProcessed
	}
	c.Dispatch.DisabledTypes = normalizeStrings(c.Dispatch.DisabledTypes, true)

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.FileLevel = strings.ToLower(strings.TrimSpace(c.Logging.FileLevel))
	return nil
}

func normalizeStrings(values []string, lower bool) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if lower {
			value = strings.ToLower(value)
		}
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
