package fileutil_test

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"vaultback/internal/fileutil"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	payload := []byte("archive payload")
	if err := os.WriteFile(src, payload, 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified returned error: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("unexpected destination contents: %q", got)
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := fileutil.CopyFileVerified(filepath.Join(dir, "absent"), filepath.Join(dir, "dst"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	if err := os.WriteFile(src, []byte("data"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := fileutil.MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile returned error: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected source removed after move")
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("expected destination present: %v", err)
	}
}

func TestSHA256File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	payload := []byte("hash me")
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	digest, size, err := fileutil.SHA256File(path)
	if err != nil {
		t.Fatalf("SHA256File returned error: %v", err)
	}
	if size != int64(len(payload)) {
		t.Fatalf("unexpected size: %d", size)
	}
	want := sha256.Sum256(payload)
	if digest != hex.EncodeToString(want[:]) {
		t.Fatalf("unexpected digest: %s", digest)
	}
}
