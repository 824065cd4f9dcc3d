package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CleanupOldLogs removes files in dir matching pattern that are older than
// retentionDays, skipping any paths listed in exclude. A retentionDays value
// of 0 disables pruning. Failures are logged and otherwise ignored.
func CleanupOldLogs(logger *slog.Logger, dir, pattern string, retentionDays int, exclude ...string) {
	if retentionDays <= 0 {
		return
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	exclusions := make(map[string]struct{}, len(exclude))
	for _, path := range exclude {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			if abs, err := filepath.Abs(trimmed); err == nil {
				exclusions[abs] = struct{}{}
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if pat := strings.TrimSpace(pattern); pat != "" {
			matched, err := filepath.Match(pat, name)
			if err != nil || !matched {
				continue
			}
		}
		fullPath := filepath.Join(dir, name)
		if abs, err := filepath.Abs(fullPath); err == nil {
			fullPath = abs
		}
		if _, skip := exclusions[fullPath]; skip {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(fullPath); err != nil {
			if logger != nil {
				logger.Warn("log retention remove failed; file remains",
					String("path", fullPath),
					Error(err),
					String(FieldEventType, "log_retention_failed"),
					String(FieldErrorHint, "check file permissions and log_dir ownership"),
				)
			}
			continue
		}
		if logger != nil {
			logger.Info("log pruned",
				String("path", fullPath),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
}
