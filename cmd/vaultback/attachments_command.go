package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newAttachmentsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "attachments",
		Short: "List vault items that carry attachments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}
			client, err := cmdCtx.vaultClient()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			sessions := cmdCtx.sessionManager(client, logger)
			token, err := sessions.Acquire(ctx, cfg.Vault.Session)
			if err != nil {
				return err
			}
			defer sessions.Release(ctx, token)

			items, err := client.ListItems(ctx, token)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(items))
			total := 0
			for _, item := range items {
				if !item.HasAttachments() {
					continue
				}
				for _, att := range item.Attachments {
					rows = append(rows, []string{
						item.Name,
						att.FileName,
						humanize.Bytes(uint64(att.Size)), //nolint:gosec
					})
					total++
				}
			}

			out := cmd.OutOrStdout()
			if total == 0 {
				fmt.Fprintln(out, "No attachments found")
				return nil
			}
			fmt.Fprintln(out, renderTable([]string{"Item", "Attachment", "Size"}, rows, 3))
			fmt.Fprintf(out, "%d attachments across the vault\n", total)
			return nil
		},
	}
}
