package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"vaultback/internal/config"
)

const userAgent = "vaultback/0.1.0"

// Service defines the notification surface exposed to the export
// pipeline.
type Service interface {
	NotifyBackupStarted(ctx context.Context) error
	NotifyBackupCompleted(ctx context.Context, artifactPath string, artifactSize int64, items, attachments int, duration time.Duration) error
	NotifyBackupFailed(ctx context.Context, err error, stage string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when a topic is
// configured, otherwise a noop implementation.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:         topic,
		client:           &http.Client{Timeout: timeout},
		sendCompletions:  cfg.Notifications.Completion,
		sendErrorReports: cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint         string
	client           *http.Client
	sendCompletions  bool
	sendErrorReports bool
}

func (n *ntfyService) NotifyBackupStarted(ctx context.Context) error {
	if !n.sendCompletions {
		return nil
	}
	data := payload{
		title:   "Vaultback - Backup Started",
		message: "Vault export started",
		tags:    []string{"vaultback", "backup", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBackupCompleted(ctx context.Context, artifactPath string, artifactSize int64, items, attachments int, duration time.Duration) error {
	if !n.sendCompletions {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	message := fmt.Sprintf("Backup complete: %d items, %d attachments in %s\nArchive: %s (%s)",
		items, attachments, duration,
		strings.TrimSpace(artifactPath),
		humanize.Bytes(uint64(artifactSize))) //nolint:gosec
	data := payload{
		title:   "Vaultback - Backup Complete",
		message: message,
		tags:    []string{"vaultback", "backup", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBackupFailed(ctx context.Context, err error, stage string) error {
	if !n.sendErrorReports {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Backup failed")
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" during ")
		builder.WriteString(stage)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Vaultback - Backup Failed",
		message:  builder.String(),
		tags:     []string{"vaultback", "backup", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Vaultback - Test",
		message:  "Notification system test",
		tags:     []string{"vaultback", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBackupStarted(context.Context) error { return nil }
func (noopService) NotifyBackupCompleted(context.Context, string, int64, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyBackupFailed(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
