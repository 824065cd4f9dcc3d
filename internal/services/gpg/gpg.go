// Package gpg encrypts archives with a symmetric cipher through the
// system gpg binary. The passphrase travels over stdin so it never
// appears in the process table.
package gpg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Executor runs the gpg binary. Implementations are swapped in tests.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stdin string) (string, error)
}

// Option adjusts client construction.
type Option func(*Client)

// WithExecutor overrides the process executor.
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		c.exec = exec
	}
}

// Client drives the gpg command line tool.
type Client struct {
	binary string
	cipher string
	exec   Executor
}

// New validates the configured binary and cipher and returns a client.
func New(binary, cipher string, opts ...Option) (*Client, error) {
	trimmedBinary := strings.TrimSpace(binary)
	if trimmedBinary == "" {
		return nil, fmt.Errorf("gpg binary not configured")
	}
	trimmedCipher := strings.TrimSpace(cipher)
	if trimmedCipher == "" {
		return nil, fmt.Errorf("gpg cipher not configured")
	}
	client := &Client{binary: trimmedBinary, cipher: trimmedCipher, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// EncryptSymmetric encrypts inputPath to outputPath with the configured
// cipher. Loopback pinentry with --passphrase-fd 0 keeps the run
// non-interactive even when an agent is present.
func (c *Client) EncryptSymmetric(ctx context.Context, inputPath, outputPath, passphrase string) error {
	args := []string{
		"--batch", "--yes",
		"--pinentry-mode", "loopback",
		"--passphrase-fd", "0",
		"--cipher-algo", c.cipher,
		"--symmetric",
		"--output", outputPath,
		inputPath,
	}
	if _, err := c.exec.Run(ctx, c.binary, args, passphrase); err != nil {
		return fmt.Errorf("gpg encrypt %s: %w", inputPath, err)
	}
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stdin string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return stdout.String(), fmt.Errorf("%w: %s", err, detail)
		}
		return stdout.String(), err
	}
	return stdout.String(), nil
}
