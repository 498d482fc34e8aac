package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	runLogPrefix = "lawfeed-"
	runLogSuffix = ".log"

	// RunStampLayout formats the start time embedded in run log names.
	RunStampLayout = "20060102T150405.000Z"
)

// RunStamp formats t as the stamp of a daemon run log.
func RunStamp(t time.Time) string {
	return t.UTC().Format(RunStampLayout)
}

// runLogTime extracts the start time from a run log name. Names without a
// parsable stamp fall back to the file modification time.
func runLogTime(entry os.DirEntry) (time.Time, bool) {
	name := entry.Name()
	if !strings.HasPrefix(name, runLogPrefix) || !strings.HasSuffix(name, runLogSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, runLogPrefix), runLogSuffix)
	if started, err := time.Parse(RunStampLayout, stamp); err == nil {
		return started, true
	}
	info, err := entry.Info()
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// PruneRunLogs removes daemon run logs in dir that started more than
// retentionDays before now and returns how many were removed. Paths in keep
// are never removed. retentionDays <= 0 disables pruning.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time, keep ...string) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	kept := make(map[string]struct{}, len(keep))
	for _, path := range keep {
		kept[filepath.Base(path)] = struct{}{}
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := kept[entry.Name()]; ok {
			continue
		}
		started, ok := runLogTime(entry)
		if !ok || !started.Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "old run log not removed", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on paths.log_dir"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("run log pruned", String("path", path))
		}
	}
	return removed
}
