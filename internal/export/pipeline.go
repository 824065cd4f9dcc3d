// Package export runs the backup pipeline: preflight, staging, session
// acquisition, vault export, attachment collection, archiving,
// encryption, and publication. The pipeline is sequential and fails fast;
// cleanup of staging and session state runs on every exit path.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"vaultback/internal/config"
	"vaultback/internal/fileutil"
	"vaultback/internal/history"
	"vaultback/internal/logging"
	"vaultback/internal/notifications"
	"vaultback/internal/passphrase"
	"vaultback/internal/services"
	"vaultback/internal/services/bitwarden"
	"vaultback/internal/staging"
	"vaultback/internal/textutil"
)

const timestampLayout = "2006-01-02_15-04-05"

// VaultClient is the vault surface the pipeline drives.
type VaultClient interface {
	Sync(ctx context.Context, session string) error
	Export(ctx context.Context, session, outputPath, format, passphrase string) error
	ListItems(ctx context.Context, session string) ([]bitwarden.Item, error)
	GetAttachment(ctx context.Context, session, itemID, attachmentID, outputPath string) error
}

// SessionManager acquires and retires session tokens.
type SessionManager interface {
	Acquire(ctx context.Context, explicit string) (string, error)
	Release(ctx context.Context, token string)
}

// Archiver bundles the staging tree into a tarball.
type Archiver interface {
	Create(ctx context.Context, workDir, sourceName, outputPath string) error
}

// Encryptor encrypts the tarball.
type Encryptor interface {
	EncryptSymmetric(ctx context.Context, inputPath, outputPath, passphrase string) error
}

// Recorder persists run outcomes.
type Recorder interface {
	Record(ctx context.Context, rec history.Record) error
}

// Dependencies carries the collaborators the pipeline is built from.
type Dependencies struct {
	Vault     VaultClient
	Sessions  SessionManager
	Archiver  Archiver
	Encryptor Encryptor
	Recorder  Recorder
	Notifier  notifications.Service

	// Preflight runs environment checks before any vault access. Nil
	// skips the checks.
	Preflight func(ctx context.Context) error
	// Prompt overrides the interactive passphrase prompt.
	Prompt passphrase.Prompt
	// Now overrides the clock.
	Now func() time.Time
}

// Result summarizes a finished run.
type Result struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	Status          string
	ArtifactPath    string
	ArtifactSize    int64
	ArtifactSHA256  string
	ItemCount       int
	AttachmentCount int
}

// Pipeline executes backup runs.
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger
	deps   Dependencies
}

// New builds a pipeline. Vault, Sessions, Archiver, and Encryptor are
// required; the rest default to no-ops.
func New(cfg *config.Config, logger *slog.Logger, deps Dependencies) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline requires configuration")
	}
	if deps.Vault == nil || deps.Sessions == nil || deps.Archiver == nil || deps.Encryptor == nil {
		return nil, fmt.Errorf("pipeline requires vault, session, archive, and encryption collaborators")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(&config.Config{})
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{cfg: cfg, logger: logger, deps: deps}, nil
}

// Run executes one backup. The returned result is populated even when an
// error is returned, so callers can report partial progress.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	result := &Result{StartedAt: p.deps.Now()}
	err := p.run(ctx, result)
	// An interrupt that lands mid external command surfaces as the child's
	// signal exit error, not context.Canceled.
	if err != nil && errors.Is(ctx.Err(), context.Canceled) && !errors.Is(err, context.Canceled) {
		err = fmt.Errorf("%w: %v", context.Canceled, err)
	}
	result.FinishedAt = p.deps.Now()
	result.Status = statusFor(err)

	p.finalize(ctx, result, err)
	return result, err
}

func (p *Pipeline) run(ctx context.Context, result *Result) error {
	if p.deps.Preflight != nil {
		stageCtx, logger := logging.WithStage(ctx, p.logger, "preflight")
		if err := p.deps.Preflight(stageCtx); err != nil {
			return err
		}
		logger.Debug("preflight passed")
	}

	runLock := flock.New(p.cfg.RunLockPath())
	locked, err := runLock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "lock", "", "acquire run lock", err)
	}
	if !locked {
		return services.Wrap(services.ErrConfiguration, "lock", "", "another backup is already running", nil)
	}
	defer func() { _ = runLock.Unlock() }()

	pass, err := passphrase.Resolve(p.cfg.Encryption.Passphrase, p.deps.Prompt)
	if err != nil {
		return err
	}

	dir, err := staging.Create(p.cfg.Paths.StagingDir, p.logger)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "staging", "", "create staging directory", err)
	}
	defer dir.Cleanup()
	result.RunID = dir.RunID
	ctx = services.WithRunID(ctx, dir.RunID)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("backup started", logging.String("staging", dir.Root))

	if err := p.deps.Notifier.NotifyBackupStarted(ctx); err != nil {
		logger.Warn("failed to send start notification", logging.Error(err))
	}

	token, err := p.deps.Sessions.Acquire(ctx, p.cfg.Vault.Session)
	if err != nil {
		return err
	}
	defer p.deps.Sessions.Release(context.WithoutCancel(ctx), token)

	stageCtx, stageLogger := logging.WithStage(ctx, logger, "sync")
	if err := p.deps.Vault.Sync(stageCtx, token); err != nil {
		return services.Wrap(services.ErrExternalTool, "sync", "", "refresh vault", err)
	}
	timestamp := p.deps.Now().Format(timestampLayout)
	stageLogger.Info("vault synced", logging.String("timestamp", timestamp))

	if err := p.exportVault(ctx, dir, token, pass); err != nil {
		return err
	}

	items, downloaded, err := p.collectAttachments(ctx, dir, token)
	if err != nil {
		return err
	}
	result.ItemCount = len(items)
	result.AttachmentCount = downloaded

	artifact, err := p.archive(ctx, dir, timestamp, pass)
	if err != nil {
		return err
	}
	result.ArtifactPath = artifact

	digest, size, err := fileutil.SHA256File(artifact)
	if err != nil {
		return services.Wrap(services.ErrValidation, "publish", "", "hash artifact", err)
	}
	result.ArtifactSHA256 = digest
	result.ArtifactSize = size

	logger.Info("backup complete",
		logging.String("artifact", artifact),
		logging.Int64("size", size),
		logging.Int("items", result.ItemCount),
		logging.Int("attachments", result.AttachmentCount),
		logging.Duration("elapsed", p.deps.Now().Sub(result.StartedAt)))
	return nil
}

func (p *Pipeline) exportVault(ctx context.Context, dir *staging.Dir, token, pass string) error {
	ctx, logger := logging.WithStage(ctx, logging.WithContext(ctx, p.logger), "export")

	format := bitwarden.FormatJSON
	exportPass := ""
	if p.cfg.Vault.EncryptExport {
		format = bitwarden.FormatEncryptedJSON
		exportPass = pass
	}
	output := dir.ExportPath(p.cfg.Archive.Prefix + ".json")
	if err := p.deps.Vault.Export(ctx, token, output, format, exportPass); err != nil {
		return services.Wrap(services.ErrExternalTool, "export", "", "export vault", err)
	}
	logger.Info("vault exported", logging.String("format", format))
	return nil
}

func (p *Pipeline) collectAttachments(ctx context.Context, dir *staging.Dir, token string) ([]bitwarden.Item, int, error) {
	ctx, logger := logging.WithStage(ctx, logging.WithContext(ctx, p.logger), "attachments")

	items, err := p.deps.Vault.ListItems(ctx, token)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrExternalTool, "attachments", "list", "enumerate vault items", err)
	}

	downloaded := 0
	for _, item := range items {
		if !item.HasAttachments() {
			continue
		}
		itemDir, err := dir.ItemDir(item.ID)
		if err != nil {
			return items, downloaded, services.Wrap(services.ErrConfiguration, "attachments", "stage", "create item directory", err)
		}
		taken := map[string]bool{}
		for _, att := range item.Attachments {
			name := textutil.SanitizeFileName(att.FileName, att.ID)
			name = textutil.UniqueName(name, taken)
			output := filepath.Join(itemDir, name)
			if err := p.deps.Vault.GetAttachment(ctx, token, item.ID, att.ID, output); err != nil {
				return items, downloaded, services.Wrap(services.ErrExternalTool, "attachments", "download",
					fmt.Sprintf("attachment %s of item %s", att.ID, item.ID), err)
			}
			downloaded++
			logger.Debug("attachment staged",
				logging.String("item", item.ID),
				logging.String("file", name))
		}
	}
	if downloaded == 0 {
		logger.Info("no attachments found, archiving export only")
	} else {
		logger.Info("attachments staged", logging.Int("count", downloaded))
	}
	return items, downloaded, nil
}

func (p *Pipeline) archive(ctx context.Context, dir *staging.Dir, timestamp, pass string) (string, error) {
	ctx, logger := logging.WithStage(ctx, logging.WithContext(ctx, p.logger), "archive")

	archiveName := fmt.Sprintf("%s_%s.tar.gz", p.cfg.Archive.Prefix, timestamp)
	archivePath := dir.ArchivePath(archiveName)
	if err := p.deps.Archiver.Create(ctx, dir.Root, staging.RawDirName, archivePath); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "archive", "", "create tarball", err)
	}

	encryptedPath := dir.ArchivePath(archiveName + ".gpg")
	if err := p.deps.Encryptor.EncryptSymmetric(ctx, archivePath, encryptedPath, pass); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "encrypt", "", "encrypt archive", err)
	}

	// Encrypt inside staging, then publish, so a failed run never leaves
	// a partial artifact in the export directory.
	finalPath := filepath.Join(p.cfg.Paths.ExportDir, archiveName+".gpg")
	if err := fileutil.MoveFile(encryptedPath, finalPath); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "publish", "", "publish artifact", err)
	}
	logger.Info("artifact published", logging.String("path", finalPath))
	return finalPath, nil
}

// finalize records history and sends the closing notification. Both are
// best-effort: the run outcome must not be masked by bookkeeping errors.
func (p *Pipeline) finalize(ctx context.Context, result *Result, runErr error) {
	ctx = context.WithoutCancel(ctx)
	logger := logging.WithContext(ctx, p.logger)

	if p.deps.Recorder != nil && result.RunID != "" {
		rec := history.Record{
			RunID:           result.RunID,
			StartedAt:       result.StartedAt,
			FinishedAt:      result.FinishedAt,
			Status:          result.Status,
			ArtifactPath:    result.ArtifactPath,
			ArtifactSize:    result.ArtifactSize,
			ArtifactSHA256:  result.ArtifactSHA256,
			ItemCount:       result.ItemCount,
			AttachmentCount: result.AttachmentCount,
		}
		if runErr != nil {
			rec.ErrorMessage = runErr.Error()
		}
		if err := p.deps.Recorder.Record(ctx, rec); err != nil {
			logger.Warn("failed to record run history", logging.Error(err))
		}
	}

	switch {
	case runErr == nil:
		err := p.deps.Notifier.NotifyBackupCompleted(ctx, result.ArtifactPath, result.ArtifactSize,
			result.ItemCount, result.AttachmentCount, result.FinishedAt.Sub(result.StartedAt))
		if err != nil {
			logger.Warn("failed to send completion notification", logging.Error(err))
		}
	case errors.Is(runErr, context.Canceled):
		logger.Info("backup aborted")
	default:
		if err := p.deps.Notifier.NotifyBackupFailed(ctx, runErr, ""); err != nil {
			logger.Warn("failed to send failure notification", logging.Error(err))
		}
	}
}

func statusFor(err error) string {
	switch {
	case err == nil:
		return history.StatusCompleted
	case errors.Is(err, context.Canceled):
		return history.StatusAborted
	default:
		return history.StatusFailed
	}
}
