package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"vaultback/internal/config"
	"vaultback/internal/logging"
	"vaultback/internal/services/bitwarden"
	"vaultback/internal/session"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) vaultClient() (*bitwarden.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return bitwarden.New(cfg.Vault.Binary, bitwarden.Timeouts{
		Sync:       cfg.Vault.SyncTimeout,
		Export:     cfg.Vault.ExportTimeout,
		Attachment: cfg.Vault.AttachmentTimeout,
	})
}

func (c *commandContext) sessionManager(client *bitwarden.Client, logger *slog.Logger, opts ...session.Option) *session.Manager {
	cfg := c.config
	return session.NewManager(client, session.Options{
		CacheSession: cfg.Vault.CacheSession,
		KeepSession:  cfg.Vault.KeepSession,
	}, logging.NewComponentLogger(logger, "session"), opts...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
