package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateVault(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateEncryption(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateVault() error {
	if strings.TrimSpace(c.Vault.Binary) == "" {
		return errors.New("vault.binary must be set")
	}
	return ensurePositiveMap(map[string]int{
		"vault.sync_timeout":       c.Vault.SyncTimeout,
		"vault.export_timeout":     c.Vault.ExportTimeout,
		"vault.attachment_timeout": c.Vault.AttachmentTimeout,
	})
}

func (c *Config) validateArchive() error {
	if strings.TrimSpace(c.Archive.Binary) == "" {
		return errors.New("archive.binary must be set")
	}
	prefix := strings.TrimSpace(c.Archive.Prefix)
	if prefix == "" {
		return errors.New("archive.prefix must be set")
	}
	if strings.ContainsAny(prefix, "/\\") {
		return fmt.Errorf("archive.prefix %q must not contain path separators", prefix)
	}
	return nil
}

func (c *Config) validateEncryption() error {
	if strings.TrimSpace(c.Encryption.Binary) == "" {
		return errors.New("encryption.binary must be set")
	}
	if strings.TrimSpace(c.Encryption.Cipher) == "" {
		return errors.New("encryption.cipher must be set")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
