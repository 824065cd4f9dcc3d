package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vaultback/internal/preflight"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show environment readiness and vault account state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := cmdCtx.vaultClient()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, 8)
			ready := true

			for _, status := range preflight.CheckSystemDeps(cfg) {
				detail := status.Description
				if !status.Available {
					detail = status.Detail
					if !status.Optional {
						ready = false
					}
				}
				rows = append(rows, []string{status.Name, passFail(status.Available), detail})
			}
			for _, result := range preflight.CheckDirectories(cfg) {
				if !result.Passed {
					ready = false
				}
				rows = append(rows, []string{result.Name, passFail(result.Passed), result.Detail})
			}
			account := preflight.CheckVaultAccount(cmd.Context(), client)
			if !account.Passed {
				ready = false
			}
			rows = append(rows, []string{account.Name, passFail(account.Passed), account.Detail})

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows))
			if ready {
				fmt.Fprintf(out, "%s Ready to export\n", color.GreenString("✓"))
			} else {
				fmt.Fprintf(out, "%s Not ready; fix the failing checks above\n", color.RedString("✗"))
			}
			return nil
		},
	}
}

func passFail(ok bool) string {
	if ok {
		return color.GreenString("ok")
	}
	return color.RedString("fail")
}
