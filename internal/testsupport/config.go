// Package testsupport builds throwaway configurations and stub binaries
// for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vaultback/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
	onPath  bool
}

// NewConfig produces a config seeded with unique temp directories per
// test. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.ExportDir = filepath.Join(base, "backups")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Encryption.Passphrase = "test-passphrase"

	for _, dir := range []string{cfgVal.Paths.StagingDir, cfgVal.Paths.ExportDir, cfgVal.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external binaries
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"bw", "tar", "gpg"}
		}
		for _, name := range names {
			writeStub(b.t, b.binDir(), name, "#!/bin/sh\nexit 0\n")
		}
	}
}

// WithStubScript writes one stub executable with the given shell body and
// prepends the stub directory to PATH.
func WithStubScript(name, body string) ConfigOption {
	return func(b *configBuilder) {
		writeStub(b.t, b.binDir(), name, body)
	}
}

func (b *configBuilder) binDir() string {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	if !b.onPath {
		b.onPath = true
		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
	return binDir
}

func writeStub(t testing.TB, dir, name, body string) {
	t.Helper()
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte(body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
}
