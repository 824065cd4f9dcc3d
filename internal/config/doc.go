// Package config loads, normalizes, and validates vaultback configuration.
//
// Configuration comes from a TOML file with environment overrides applied
// during normalization. The environment surface mirrors the documented
// backup contract: ENC_PASS, ENC_VAULT, EXPORT_DIR, SESSION/BW_SESSION,
// and KEEP_SESSION always win over file values.
package config
