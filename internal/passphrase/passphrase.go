// Package passphrase resolves the encryption passphrase for a run. A
// configured value wins; otherwise the user is prompted twice and the
// entries must match before any vault data is touched.
package passphrase

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"vaultback/internal/services"
)

// Prompt reads one hidden passphrase entry.
type Prompt func(label string) (string, error)

// Resolve returns the passphrase to use for archive encryption. The
// configured value is used as-is when present. Interactive entry asks
// twice and rejects mismatches and empty input.
func Resolve(configured string, prompt Prompt) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if prompt == nil {
		prompt = ReadInteractive
	}

	first, err := prompt("Encryption passphrase: ")
	if err != nil {
		return "", err
	}
	second, err := prompt("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", services.Wrap(services.ErrPassphraseMismatch, "passphrase", "confirm", "entries do not match", nil)
	}
	if strings.TrimSpace(first) == "" {
		return "", services.Wrap(services.ErrConfiguration, "passphrase", "confirm", "passphrase must not be empty", nil)
	}
	return first, nil
}

// ReadInteractive reads one hidden entry from the terminal. It is the
// default Prompt; callers that share the terminal line with other output
// wrap it.
func ReadInteractive(label string) (string, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return "", services.Wrap(services.ErrConfiguration, "passphrase", "prompt", "no passphrase configured and stdin is not a terminal; set ENC_PASS or encryption.passphrase", nil)
	}
	fmt.Fprint(os.Stderr, label)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(raw), nil
}
