package passphrase_test

import (
	"errors"
	"testing"

	"vaultback/internal/passphrase"
	"vaultback/internal/services"
)

func scriptedPrompt(t *testing.T, entries ...string) passphrase.Prompt {
	t.Helper()
	i := 0
	return func(string) (string, error) {
		if i >= len(entries) {
			t.Fatal("prompt called more times than scripted")
		}
		entry := entries[i]
		i++
		return entry, nil
	}
}

func TestResolveConfiguredValueWins(t *testing.T) {
	got, err := passphrase.Resolve("from-config", func(string) (string, error) {
		t.Fatal("prompt must not run with a configured passphrase")
		return "", nil
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "from-config" {
		t.Fatalf("unexpected passphrase: %q", got)
	}
}

func TestResolveMatchingEntries(t *testing.T) {
	got, err := passphrase.Resolve("", scriptedPrompt(t, "secret", "secret"))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "secret" {
		t.Fatalf("unexpected passphrase: %q", got)
	}
}

func TestResolveMismatch(t *testing.T) {
	_, err := passphrase.Resolve("", scriptedPrompt(t, "secret", "typo"))
	if !errors.Is(err, services.ErrPassphraseMismatch) {
		t.Fatalf("expected ErrPassphraseMismatch, got %v", err)
	}
	if services.ExitCode(err) != services.ExitPassphraseMismatch {
		t.Fatalf("unexpected exit code: %d", services.ExitCode(err))
	}
}

func TestResolveEmptyEntries(t *testing.T) {
	_, err := passphrase.Resolve("", scriptedPrompt(t, "  ", "  "))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestResolvePromptFailure(t *testing.T) {
	cause := errors.New("read failed")
	_, err := passphrase.Resolve("", func(string) (string, error) { return "", cause })
	if !errors.Is(err, cause) {
		t.Fatalf("expected prompt error, got %v", err)
	}
}
