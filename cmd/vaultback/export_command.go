package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"vaultback/internal/export"
	"vaultback/internal/history"
	"vaultback/internal/logging"
	"vaultback/internal/notifications"
	"vaultback/internal/passphrase"
	"vaultback/internal/preflight"
	"vaultback/internal/services/gpg"
	"vaultback/internal/services/tarball"
	"vaultback/internal/session"
	"vaultback/internal/staging"
)

func newExportCommand(cmdCtx *commandContext) *cobra.Command {
	var keepSession bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the vault into an encrypted archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if keepSession {
				cfg.Vault.KeepSession = true
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := cmdCtx.vaultClient()
			if err != nil {
				return err
			}
			archiver, err := tarball.New(cfg.Archive.Binary)
			if err != nil {
				return err
			}
			encryptor, err := gpg.New(cfg.Encryption.Binary, cfg.Encryption.Cipher)
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryDBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			swept := staging.CleanStale(cfg.Paths.StagingDir, 24*time.Hour,
				logging.NewComponentLogger(logger, "staging"))
			if swept > 0 {
				logger.Info("removed stale staging directories", logging.Int("count", swept))
			}
			logging.CleanupOldLogs(logger, cfg.Paths.LogDir, "*.log", cfg.Logging.RetentionDays,
				filepath.Join(cfg.Paths.LogDir, "vaultback.log"))

			sp := startSpinner(cmd.ErrOrStderr(), "Exporting vault...")
			defer sp.Stop()

			pipeline, err := export.New(cfg, logging.NewComponentLogger(logger, "export"), export.Dependencies{
				Vault: client,
				Sessions: cmdCtx.sessionManager(client, logger,
					session.WithPasswordPrompt(func() (string, error) {
						sp.Pause()
						defer sp.Resume()
						return session.ReadMasterPassword()
					})),
				Archiver:  archiver,
				Encryptor: encryptor,
				Recorder:  store,
				Notifier:  notifications.NewService(cfg),
				Preflight: func(ctx context.Context) error {
					return preflight.Run(ctx, cfg, client)
				},
				Prompt: sp.wrapPrompt(passphrase.ReadInteractive),
			})
			if err != nil {
				return err
			}

			result, runErr := pipeline.Run(ctx)
			sp.Stop()
			if runErr != nil {
				return runErr
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Backup complete\n", color.GreenString("✓"))
			fmt.Fprintf(out, "  Archive: %s (%s)\n", result.ArtifactPath, humanize.Bytes(uint64(result.ArtifactSize))) //nolint:gosec
			fmt.Fprintf(out, "  Items: %d, attachments: %d\n", result.ItemCount, result.AttachmentCount)
			fmt.Fprintf(out, "  SHA256: %s\n", result.ArtifactSHA256)
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepSession, "keep-session", false, "Leave the vault unlocked after the export")
	return cmd
}

// runSpinner wraps the progress spinner so interactive prompts can take
// over the terminal line. A nil receiver is an off-terminal no-op.
type runSpinner struct {
	s *spinner.Spinner
}

// startSpinner shows a spinner while the pipeline runs, but only on a
// terminal: prompts and log lines share stderr.
func startSpinner(w io.Writer, message string) *runSpinner {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return nil
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return &runSpinner{s: s}
}

func (r *runSpinner) Pause() {
	if r != nil && r.s.Active() {
		r.s.Stop()
	}
}

func (r *runSpinner) Resume() {
	if r != nil && !r.s.Active() {
		r.s.Start()
	}
}

func (r *runSpinner) Stop() {
	if r != nil {
		r.s.Stop()
	}
}

// wrapPrompt suspends the spinner while the prompt owns the terminal line.
func (r *runSpinner) wrapPrompt(read passphrase.Prompt) passphrase.Prompt {
	return func(label string) (string, error) {
		r.Pause()
		defer r.Resume()
		return read(label)
	}
}
