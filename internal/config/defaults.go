package config

const (
	defaultStagingDir        = "~/.local/share/vaultback/staging"
	defaultExportDir         = "."
	defaultLogDir            = "~/.local/share/vaultback/logs"
	defaultVaultBinary       = "bw"
	defaultSyncTimeout       = 120
	defaultExportTimeout     = 300
	defaultAttachmentTimeout = 300
	defaultArchiveBinary     = "tar"
	defaultArchivePrefix     = "bw_export"
	defaultEncryptionBinary  = "gpg"
	defaultCipher            = "AES256"
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			ExportDir:  defaultExportDir,
			LogDir:     defaultLogDir,
		},
		Vault: Vault{
			Binary:            defaultVaultBinary,
			SyncTimeout:       defaultSyncTimeout,
			ExportTimeout:     defaultExportTimeout,
			AttachmentTimeout: defaultAttachmentTimeout,
		},
		Archive: Archive{
			Binary: defaultArchiveBinary,
			Prefix: defaultArchivePrefix,
		},
		Encryption: Encryption{
			Binary: defaultEncryptionBinary,
			Cipher: defaultCipher,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completion:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
