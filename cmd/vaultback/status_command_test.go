package main

import (
	"testing"

	"vaultback/internal/testsupport"
)

func TestStatusReady(t *testing.T) {
	env := setupCLITestEnv(t,
		testsupport.WithStubScript("bw", bwStub),
		testsupport.WithStubScript("tar", tarStub),
		testsupport.WithStubScript("gpg", gpgStub),
	)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Bitwarden CLI")
	requireContains(t, out, "user@example.com")
	requireContains(t, out, "Ready to export")
}

func TestStatusMissingBinary(t *testing.T) {
	env := setupCLITestEnv(t,
		testsupport.WithStubScript("bw", bwStub),
		testsupport.WithStubScript("tar", tarStub),
	)
	env.cfg.Encryption.Binary = "gpg-definitely-missing"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not ready")
}
