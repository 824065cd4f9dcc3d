// Package staging manages the per-run scratch directory that holds
// decrypted vault material before it is archived. Every run gets its own
// directory so concurrent or crashed runs never mix files, and the whole
// tree is removed when the run finishes.
package staging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"vaultback/internal/logging"
)

const (
	// RawDirName holds the export file and attachments inside a run
	// directory. The archive is built from this subtree.
	RawDirName = "raw"

	// AttachmentsDirName nests under RawDirName and holds one
	// subdirectory per vault item.
	AttachmentsDirName = "attachments"

	runPrefix = "run-"
)

// Dir is a live staging directory for one run.
type Dir struct {
	// RunID names the run. It doubles as the history record key.
	RunID string
	// Root is the run directory under the configured staging path.
	Root string

	logger  *slog.Logger
	cleanup sync.Once
}

// Create builds a fresh run directory tree under root. Decrypted vault
// material lands here, so the tree is owner-only.
func Create(root string, logger *slog.Logger) (*Dir, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	runID := uuid.NewString()
	dir := &Dir{
		RunID:  runID,
		Root:   filepath.Join(root, runPrefix+runID),
		logger: logger,
	}
	if err := os.MkdirAll(dir.AttachmentsDir(), 0o700); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	return dir, nil
}

// RawDir returns the directory the archive is built from.
func (d *Dir) RawDir() string {
	return filepath.Join(d.Root, RawDirName)
}

// AttachmentsDir returns the root of the per-item attachment tree.
func (d *Dir) AttachmentsDir() string {
	return filepath.Join(d.RawDir(), AttachmentsDirName)
}

// ItemDir returns (and creates) the attachment directory for one item.
func (d *Dir) ItemDir(itemID string) (string, error) {
	path := filepath.Join(d.AttachmentsDir(), itemID)
	if err := os.MkdirAll(path, 0o700); err != nil {
		return "", fmt.Errorf("create item directory: %w", err)
	}
	return path, nil
}

// ExportPath returns the location of the vault export file.
func (d *Dir) ExportPath(filename string) string {
	return filepath.Join(d.RawDir(), filename)
}

// ArchivePath returns where the intermediate tarball is written. It sits
// next to raw/, not inside it, so the archive never contains itself.
func (d *Dir) ArchivePath(filename string) string {
	return filepath.Join(d.Root, filename)
}

// Cleanup removes the run directory. It is safe to call more than once
// and never fails the run: a leftover directory is logged and left for
// the stale sweep.
func (d *Dir) Cleanup() {
	d.cleanup.Do(func() {
		if err := os.RemoveAll(d.Root); err != nil {
			d.logger.Warn("failed to remove staging directory",
				logging.String("path", d.Root),
				logging.Error(err))
			return
		}
		d.logger.Debug("staging directory removed", logging.String("path", d.Root))
	})
}

// CleanStale removes run directories under root older than maxAge,
// typically leftovers from crashed runs. Entries that do not look like
// run directories are ignored.
func CleanStale(root string, maxAge time.Duration, logger *slog.Logger) int {
	if logger == nil {
		logger = logging.NewNop()
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to scan staging directory", logging.Error(err))
		}
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || len(entry.Name()) <= len(runPrefix) || entry.Name()[:len(runPrefix)] != runPrefix {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("failed to remove stale staging directory",
				logging.String("path", path),
				logging.Error(err))
			continue
		}
		removed++
		logger.Info("removed stale staging directory", logging.String("path", path))
	}
	return removed
}
