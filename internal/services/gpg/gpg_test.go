package gpg_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"vaultback/internal/services/gpg"
)

type fakeExecutor struct {
	args  []string
	stdin string
	err   error
}

func (f *fakeExecutor) Run(_ context.Context, _ string, args []string, stdin string) (string, error) {
	f.args = args
	f.stdin = stdin
	return "", f.err
}

func TestNewValidatesInputs(t *testing.T) {
	if _, err := gpg.New("", "AES256"); err == nil {
		t.Fatal("expected error for empty binary")
	}
	if _, err := gpg.New("gpg", " "); err == nil {
		t.Fatal("expected error for empty cipher")
	}
}

func TestEncryptSymmetricArgs(t *testing.T) {
	exec := &fakeExecutor{}
	client, err := gpg.New("gpg", "AES256", gpg.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	err = client.EncryptSymmetric(context.Background(), "/staging/export.tar.gz", "/backups/export.tar.gz.gpg", "secret")
	if err != nil {
		t.Fatalf("EncryptSymmetric returned error: %v", err)
	}

	want := "--batch --yes --pinentry-mode loopback --passphrase-fd 0 --cipher-algo AES256 --symmetric --output /backups/export.tar.gz.gpg /staging/export.tar.gz"
	if got := strings.Join(exec.args, " "); got != want {
		t.Fatalf("unexpected args:\n got %q\nwant %q", got, want)
	}
	if exec.stdin != "secret" {
		t.Fatalf("expected passphrase on stdin, got %q", exec.stdin)
	}
	for _, arg := range exec.args {
		if arg == "secret" {
			t.Fatal("passphrase must not appear in argv")
		}
	}
}

func TestEncryptSymmetricPropagatesFailure(t *testing.T) {
	cause := errors.New("exit status 2")
	client, err := gpg.New("gpg", "AES256", gpg.WithExecutor(&fakeExecutor{err: cause}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := client.EncryptSymmetric(context.Background(), "/in", "/out", "pw"); !errors.Is(err, cause) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}
}
