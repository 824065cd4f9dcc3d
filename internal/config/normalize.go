package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeVault()
	c.normalizeArchive()
	c.normalizeEncryption()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("EXPORT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ExportDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeVault() {
	c.Vault.Binary = strings.TrimSpace(c.Vault.Binary)
	if c.Vault.Binary == "" {
		c.Vault.Binary = defaultVaultBinary
	}
	if c.Vault.SyncTimeout <= 0 {
		c.Vault.SyncTimeout = defaultSyncTimeout
	}
	if c.Vault.ExportTimeout <= 0 {
		c.Vault.ExportTimeout = defaultExportTimeout
	}
	if c.Vault.AttachmentTimeout <= 0 {
		c.Vault.AttachmentTimeout = defaultAttachmentTimeout
	}
	// ENC_VAULT and KEEP_SESSION follow the historical contract: any value,
	// including empty, means set.
	if _, ok := os.LookupEnv("ENC_VAULT"); ok {
		c.Vault.EncryptExport = true
	}
	if _, ok := os.LookupEnv("KEEP_SESSION"); ok {
		c.Vault.KeepSession = true
	}
	if value, ok := os.LookupEnv("SESSION"); ok && strings.TrimSpace(value) != "" {
		c.Vault.Session = strings.TrimSpace(value)
	} else if value, ok := os.LookupEnv("BW_SESSION"); ok && strings.TrimSpace(value) != "" {
		c.Vault.Session = strings.TrimSpace(value)
	}
}

func (c *Config) normalizeArchive() {
	c.Archive.Binary = strings.TrimSpace(c.Archive.Binary)
	if c.Archive.Binary == "" {
		c.Archive.Binary = defaultArchiveBinary
	}
	c.Archive.Prefix = strings.TrimSpace(c.Archive.Prefix)
	if c.Archive.Prefix == "" {
		c.Archive.Prefix = defaultArchivePrefix
	}
}

func (c *Config) normalizeEncryption() {
	c.Encryption.Binary = strings.TrimSpace(c.Encryption.Binary)
	if c.Encryption.Binary == "" {
		c.Encryption.Binary = defaultEncryptionBinary
	}
	c.Encryption.Cipher = strings.TrimSpace(c.Encryption.Cipher)
	if c.Encryption.Cipher == "" {
		c.Encryption.Cipher = defaultCipher
	}
	if value, ok := os.LookupEnv("ENC_PASS"); ok && value != "" {
		c.Encryption.Passphrase = value
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
