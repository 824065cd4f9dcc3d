package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured indicates the vault client has no logged-in account.
	ErrNotConfigured = errors.New("vault client not configured")
	// ErrNoSession indicates session acquisition yielded no usable token.
	ErrNoSession = errors.New("no session obtainable")
	// ErrPassphraseMismatch indicates the interactive passphrase entries differ.
	ErrPassphraseMismatch = errors.New("passphrase mismatch")
	// ErrExternalTool indicates an external command exited non-zero.
	ErrExternalTool = errors.New("external tool error")
	// ErrConfiguration indicates invalid or missing configuration values.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation indicates an internal consistency check failed.
	ErrValidation = errors.New("validation error")
)

// Exit statuses surfaced by the CLI. Interrupts exit with ExitOK.
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitNotConfigured      = 2
	ExitNoSession          = 3
	ExitPassphraseMismatch = 4
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for exit-code classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps an error to the process exit status the CLI should use.
// A user interrupt (context cancellation) is a clean termination.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return ExitOK
	case errors.Is(err, ErrNotConfigured):
		return ExitNotConfigured
	case errors.Is(err, ErrNoSession):
		return ExitNoSession
	case errors.Is(err, ErrPassphraseMismatch):
		return ExitPassphraseMismatch
	default:
		return ExitFailure
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
