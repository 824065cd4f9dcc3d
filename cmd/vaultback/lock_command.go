package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vaultback/internal/session"
)

func newLockCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Lock the vault and clear any cached session token",
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

			if err := client.Lock(cmd.Context(), cfg.Vault.Session); err != nil {
				return fmt.Errorf("lock vault: %w", err)
			}
			// Release only clears cached state here; KeepSession is
			// deliberately ignored so `lock` always means locked.
			manager := session.NewManager(client, session.Options{
				CacheSession: cfg.Vault.CacheSession,
			}, logger)
			manager.Release(cmd.Context(), "")

			fmt.Fprintln(cmd.OutOrStdout(), "Vault locked")
			return nil
		},
	}
}
