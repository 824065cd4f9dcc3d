package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vaultback/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("EXPORT_DIR", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "vaultback", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if !filepath.IsAbs(cfg.Paths.ExportDir) {
		t.Fatalf("expected absolute export dir, got %q", cfg.Paths.ExportDir)
	}
	if cfg.Vault.Binary != "bw" {
		t.Fatalf("unexpected vault binary: %q", cfg.Vault.Binary)
	}
	if cfg.Vault.EncryptExport {
		t.Fatal("expected encrypt_export disabled by default")
	}
	if cfg.Archive.Prefix != "bw_export" {
		t.Fatalf("unexpected archive prefix: %q", cfg.Archive.Prefix)
	}
	if cfg.Encryption.Cipher != "AES256" {
		t.Fatalf("unexpected cipher: %q", cfg.Encryption.Cipher)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if cfg.HistoryDBPath() != filepath.Join(cfg.Paths.LogDir, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryDBPath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "vaultback.toml")

	type payload struct {
		Vault struct {
			Binary      string `toml:"binary"`
			SyncTimeout int    `toml:"sync_timeout"`
		} `toml:"vault"`
		Archive struct {
			Prefix string `toml:"prefix"`
		} `toml:"archive"`
	}
	custom := payload{}
	custom.Vault.Binary = "/opt/bw/bw"
	custom.Vault.SyncTimeout = 42
	custom.Archive.Prefix = "vault_backup"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Vault.Binary != "/opt/bw/bw" {
		t.Fatalf("expected vault binary override, got %q", cfg.Vault.Binary)
	}
	if cfg.Vault.SyncTimeout != 42 {
		t.Fatalf("expected sync timeout 42, got %d", cfg.Vault.SyncTimeout)
	}
	if cfg.Archive.Prefix != "vault_backup" {
		t.Fatalf("expected prefix override, got %q", cfg.Archive.Prefix)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "vaultback.toml")
	contents := strings.Join([]string{
		"[paths]",
		`export_dir = "` + filepath.Join(tempDir, "from-file") + `"`,
		"[encryption]",
		`passphrase = "file-pass"`,
	}, "\n")
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	envExport := filepath.Join(tempDir, "from-env")
	t.Setenv("EXPORT_DIR", envExport)
	t.Setenv("ENC_PASS", "env-pass")
	t.Setenv("ENC_VAULT", "")
	t.Setenv("KEEP_SESSION", "1")
	t.Setenv("SESSION", "env-session-token")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.ExportDir != envExport {
		t.Errorf("expected export dir from env, got %q", cfg.Paths.ExportDir)
	}
	if cfg.Encryption.Passphrase != "env-pass" {
		t.Errorf("expected passphrase from env, got %q", cfg.Encryption.Passphrase)
	}
	if !cfg.Vault.EncryptExport {
		t.Error("expected ENC_VAULT set-but-empty to enable encrypted export")
	}
	if !cfg.Vault.KeepSession {
		t.Error("expected KEEP_SESSION to enable session retention")
	}
	if cfg.Vault.Session != "env-session-token" {
		t.Errorf("expected session token from env, got %q", cfg.Vault.Session)
	}
}

func TestBWSessionFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BW_SESSION", "bw-token")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Vault.Session != "bw-token" {
		t.Fatalf("expected BW_SESSION fallback, got %q", cfg.Vault.Session)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "staging_dir") {
		t.Fatalf("sample config missing staging_dir: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.StagingDir, "vaultback") {
		t.Fatalf("expected staging dir to contain vaultback, got %q", cfg.Paths.StagingDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Vault.SyncTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive timeout")
	}

	cfg = config.Default()
	cfg.Archive.Prefix = "nested/prefix"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for prefix with path separator")
	}

	cfg = config.Default()
	cfg.Encryption.Cipher = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty cipher")
	}

	cfg = config.Default()
	cfg.Notifications.RequestTimeout = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative notification timeout")
	}
}
