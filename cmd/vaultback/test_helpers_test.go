package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vaultback/internal/config"
	"vaultback/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	for _, name := range []string{"ENC_PASS", "ENC_VAULT", "EXPORT_DIR", "SESSION", "BW_SESSION", "KEEP_SESSION"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}

	cfg := testsupport.NewConfig(t, opts...)

	configPath := filepath.Join(homeDir, ".config", "vaultback", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nstaging_dir = %q\nexport_dir = %q\nlog_dir = %q\n\n"+
			"[vault]\nbinary = %q\n\n"+
			"[archive]\nbinary = %q\n\n"+
			"[encryption]\nbinary = %q\npassphrase = %q\n",
		cfg.Paths.StagingDir,
		cfg.Paths.ExportDir,
		cfg.Paths.LogDir,
		cfg.Vault.Binary,
		cfg.Archive.Binary,
		cfg.Encryption.Binary,
		cfg.Encryption.Passphrase,
	)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
