package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"vaultback/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Aborted, cleaned up staging data")
			os.Exit(services.ExitOK)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(services.ExitCode(err))
	}
}
