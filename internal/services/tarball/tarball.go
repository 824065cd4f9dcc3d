// Package tarball bundles a staging directory into a compressed archive
// using the system tar binary.
package tarball

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Executor runs the tar binary. Implementations are swapped in tests.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (string, error)
}

// Option adjusts client construction.
type Option func(*Client)

// WithExecutor overrides the process executor.
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		c.exec = exec
	}
}

// Client drives the tar command line tool.
type Client struct {
	binary string
	exec   Executor
}

// New validates the configured binary and returns a client.
func New(binary string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(binary)
	if trimmed == "" {
		return nil, fmt.Errorf("tar binary not configured")
	}
	client := &Client{binary: trimmed, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Create writes a gzip-compressed archive of sourceName, resolved relative
// to workDir, at outputPath. Archiving relative to workDir keeps absolute
// staging paths out of the archive members.
func (c *Client) Create(ctx context.Context, workDir, sourceName, outputPath string) error {
	args := []string{"-C", workDir, "-czf", outputPath, sourceName}
	if _, err := c.exec.Run(ctx, c.binary, args); err != nil {
		return fmt.Errorf("tar create %s: %w", outputPath, err)
	}
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec

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
