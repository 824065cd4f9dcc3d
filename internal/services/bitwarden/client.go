package bitwarden

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stdin string) (string, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Timeouts bounds the slower client operations, in seconds. Zero values
// leave the operation unbounded.
type Timeouts struct {
	Sync       int
	Export     int
	Attachment int
}

// Client wraps Bitwarden CLI interactions.
type Client struct {
	binary   string
	timeouts Timeouts
	exec     Executor
}

// New constructs a Bitwarden client.
func New(binary string, timeouts Timeouts, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("bitwarden binary required")
	}
	client := &Client{
		binary:   binary,
		timeouts: timeouts,
		exec:     commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Status reports the client's login and lock state.
func (c *Client) Status(ctx context.Context) (Status, error) {
	out, err := c.exec.Run(ctx, c.binary, []string{"status"}, "")
	if err != nil {
		return Status{}, fmt.Errorf("bw status: %w", err)
	}
	var status Status
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &status); err != nil {
		return Status{}, fmt.Errorf("decode bw status: %w", err)
	}
	return status, nil
}

// Unlock prompts the vault open with the master password supplied on stdin
// and returns the raw session token.
func (c *Client) Unlock(ctx context.Context, masterPassword string) (string, error) {
	out, err := c.exec.Run(ctx, c.binary, []string{"unlock", "--raw"}, masterPassword)
	if err != nil {
		return "", fmt.Errorf("bw unlock: %w", err)
	}
	token := strings.TrimSpace(out)
	if token == "" {
		return "", errors.New("bw unlock returned an empty session token")
	}
	return token, nil
}

// CheckUnlocked probes whether the session token still opens the vault.
// The probe is advisory: some client versions report locked regardless, so
// a false result means "re-authenticate", never "give up".
func (c *Client) CheckUnlocked(ctx context.Context, session string) bool {
	if strings.TrimSpace(session) == "" {
		return false
	}
	_, err := c.exec.Run(ctx, c.binary, []string{"unlock", "--check", "--session", session}, "")
	return err == nil
}

// Sync refreshes the local vault cache from the server.
func (c *Client) Sync(ctx context.Context, session string) error {
	ctx, cancel := withTimeout(ctx, c.timeouts.Sync)
	defer cancel()
	if _, err := c.exec.Run(ctx, c.binary, []string{"sync", "--session", session}, ""); err != nil {
		return fmt.Errorf("bw sync: %w", err)
	}
	return nil
}

// Export writes the vault contents to outputPath. For the encrypted_json
// format the supplied passphrase protects the export file itself.
func (c *Client) Export(ctx context.Context, session, outputPath, format, passphrase string) error {
	ctx, cancel := withTimeout(ctx, c.timeouts.Export)
	defer cancel()

	args := []string{"export", "--output", outputPath, "--format", format}
	if format == FormatEncryptedJSON {
		args = append(args, "--password", passphrase)
	}
	args = append(args, "--session", session)
	if _, err := c.exec.Run(ctx, c.binary, args, ""); err != nil {
		return fmt.Errorf("bw export: %w", err)
	}
	return nil
}

// ListItems returns every vault item with the fields the exporter consumes.
func (c *Client) ListItems(ctx context.Context, session string) ([]Item, error) {
	out, err := c.exec.Run(ctx, c.binary, []string{"list", "items", "--session", session}, "")
	if err != nil {
		return nil, fmt.Errorf("bw list items: %w", err)
	}
	var items []Item
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &items); err != nil {
		return nil, fmt.Errorf("decode item list: %w", err)
	}
	return items, nil
}

// GetAttachment downloads one decrypted attachment to outputPath.
func (c *Client) GetAttachment(ctx context.Context, session, itemID, attachmentID, outputPath string) error {
	ctx, cancel := withTimeout(ctx, c.timeouts.Attachment)
	defer cancel()

	args := []string{
		"get", "attachment", attachmentID,
		"--itemid", itemID,
		"--output", outputPath,
		"--session", session,
	}
	if _, err := c.exec.Run(ctx, c.binary, args, ""); err != nil {
		return fmt.Errorf("bw get attachment %s: %w", attachmentID, err)
	}
	return nil
}

// Lock invalidates the active session.
func (c *Client) Lock(ctx context.Context, session string) error {
	args := []string{"lock"}
	if strings.TrimSpace(session) != "" {
		args = append(args, "--session", session)
	}
	if _, err := c.exec.Run(ctx, c.binary, args, ""); err != nil {
		return fmt.Errorf("bw lock: %w", err)
	}
	return nil
}

func withTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
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
			return stdout.String(), fmt.Errorf("%w: %s", err, lastLine(detail))
		}
		return stdout.String(), err
	}
	return stdout.String(), nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
