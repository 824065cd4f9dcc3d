// Package preflight verifies the environment before a backup run touches
// the vault: required binaries on PATH, writable directories, and a
// logged-in vault account.
package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"vaultback/internal/config"
	"vaultback/internal/deps"
	"vaultback/internal/services"
	"vaultback/internal/services/bitwarden"
)

// Result captures a single environment check outcome.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable, writable, and traversable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDirectories evaluates every directory a run writes to.
func CheckDirectories(cfg *config.Config) []Result {
	return []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Export directory", cfg.Paths.ExportDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
}

// CheckSystemDeps evaluates the external binaries a run shells out to.
// Both the export pipeline and the status command use this to avoid
// duplicating the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Bitwarden CLI",
			Command:     cfg.Vault.Binary,
			Description: "Required for vault access",
		},
		{
			Name:        "tar",
			Command:     cfg.Archive.Binary,
			Description: "Required for archive creation",
		},
	}
	requirements = append(requirements, deps.Requirement{
		Name:        "GnuPG",
		Command:     cfg.Encryption.Binary,
		Description: "Required for archive encryption",
	})
	return deps.CheckBinaries(requirements)
}

// CheckVaultAccount queries the vault client and reports whether an
// account is logged in.
func CheckVaultAccount(ctx context.Context, client *bitwarden.Client) Result {
	const name = "Vault account"
	status, err := client.Status(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("status check failed (%v)", err)}
	}
	if !status.Configured() {
		return Result{Name: name, Detail: "no account logged in (run bw login)"}
	}
	detail := status.UserEmail
	if status.State == bitwarden.StateUnlocked {
		detail += " (unlocked)"
	} else {
		detail += " (locked)"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// Run performs the full preflight and returns an error when any required
// check fails. The failing checks are folded into the error message.
func Run(ctx context.Context, cfg *config.Config, client *bitwarden.Client) error {
	var failures []string
	for _, result := range CheckDirectories(cfg) {
		if !result.Passed {
			failures = append(failures, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
	}
	for _, status := range CheckSystemDeps(cfg) {
		if !status.Available && !status.Optional {
			failures = append(failures, fmt.Sprintf("%s: %s", status.Name, status.Detail))
		}
	}
	if len(failures) > 0 {
		return services.Wrap(services.ErrConfiguration, "preflight", "", strings.Join(failures, "; "), nil)
	}

	if result := CheckVaultAccount(ctx, client); !result.Passed {
		return services.Wrap(services.ErrNotConfigured, "preflight", "vault account", result.Detail, nil)
	}
	return nil
}
