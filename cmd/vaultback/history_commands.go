package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vaultback/internal/history"
)

func newHistoryCommand(cmdCtx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past backup runs",
	}

	historyCmd.AddCommand(newHistoryListCommand(cmdCtx))
	historyCmd.AddCommand(newHistoryShowCommand(cmdCtx))
	historyCmd.AddCommand(newHistoryPruneCommand(cmdCtx))

	return historyCmd
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent backup runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withHistory(func(store *history.Store) error {
				records, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No backup runs recorded")
					return nil
				}

				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					size := ""
					if rec.ArtifactSize > 0 {
						size = humanize.Bytes(uint64(rec.ArtifactSize)) //nolint:gosec
					}
					rows = append(rows, []string{
						rec.RunID,
						rec.StartedAt.Local().Format("2006-01-02 15:04"),
						rec.Status,
						fmt.Sprintf("%d", rec.ItemCount),
						fmt.Sprintf("%d", rec.AttachmentCount),
						size,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Started", "Status", "Items", "Attachments", "Size"},
					rows, 4, 5, 6))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func newHistoryShowCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one backup run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withHistory(func(store *history.Store) error {
				rec, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:         %s\n", rec.RunID)
				fmt.Fprintf(out, "Status:      %s\n", rec.Status)
				fmt.Fprintf(out, "Started:     %s\n", rec.StartedAt.Local().Format(time.RFC1123))
				fmt.Fprintf(out, "Finished:    %s (%s)\n", rec.FinishedAt.Local().Format(time.RFC1123), rec.Duration().Round(time.Second))
				fmt.Fprintf(out, "Items:       %d\n", rec.ItemCount)
				fmt.Fprintf(out, "Attachments: %d\n", rec.AttachmentCount)
				if rec.ArtifactPath != "" {
					fmt.Fprintf(out, "Artifact:    %s (%s)\n", rec.ArtifactPath, humanize.Bytes(uint64(rec.ArtifactSize))) //nolint:gosec
					fmt.Fprintf(out, "SHA256:      %s\n", rec.ArtifactSHA256)
				}
				if rec.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:       %s\n", rec.ErrorMessage)
				}
				return nil
			})
		},
	}
}

func newHistoryPruneCommand(cmdCtx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete run records older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if days <= 0 {
				days = cfg.Logging.RetentionDays
			}
			return cmdCtx.withHistory(func(store *history.Store) error {
				cutoff := time.Now().AddDate(0, 0, -days)
				removed, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s) older than %d days\n", removed, days)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Retention window in days (defaults to logging.retention_days)")
	return cmd
}
