package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vaultback/internal/config"
	"vaultback/internal/notifications"
)

type captured struct {
	title    string
	message  string
	tags     string
	priority string
}

func newCapturingService(t *testing.T, completion, errorsEnabled bool) (notifications.Service, *[]captured) {
	t.Helper()
	var requests []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, captured{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Completion = completion
	cfg.Notifications.Errors = errorsEnabled
	return notifications.NewService(&cfg), &requests
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyBackupStarted(context.Background()); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyBackupCompletedFormatsMessage(t *testing.T) {
	svc, requests := newCapturingService(t, true, true)

	err := svc.NotifyBackupCompleted(context.Background(),
		"/backups/bw_export_2026-08-30_10-00-00.tar.gz.gpg", 4096, 12, 3, 95*time.Second)
	if err != nil {
		t.Fatalf("NotifyBackupCompleted returned error: %v", err)
	}

	if len(*requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*requests))
	}
	got := (*requests)[0]
	if got.title != "Vaultback - Backup Complete" {
		t.Fatalf("unexpected title: %q", got.title)
	}
	if !strings.Contains(got.message, "12 items, 3 attachments in 1m35s") {
		t.Fatalf("unexpected message: %q", got.message)
	}
	if !strings.Contains(got.message, "4.1 kB") {
		t.Fatalf("expected human-readable size in message: %q", got.message)
	}
	if got.tags != "vaultback,backup,completed" {
		t.Fatalf("unexpected tags: %q", got.tags)
	}
}

func TestNotifyBackupFailedHighPriority(t *testing.T) {
	svc, requests := newCapturingService(t, true, true)

	err := svc.NotifyBackupFailed(context.Background(), errors.New("bw export: exit status 1"), "export")
	if err != nil {
		t.Fatalf("NotifyBackupFailed returned error: %v", err)
	}

	got := (*requests)[0]
	if got.priority != "high" {
		t.Fatalf("unexpected priority: %q", got.priority)
	}
	if !strings.Contains(got.message, "Backup failed during export: bw export: exit status 1") {
		t.Fatalf("unexpected message: %q", got.message)
	}
}

func TestCompletionToggleSuppressesLifecycleEvents(t *testing.T) {
	svc, requests := newCapturingService(t, false, true)

	if err := svc.NotifyBackupStarted(context.Background()); err != nil {
		t.Fatalf("NotifyBackupStarted returned error: %v", err)
	}
	if err := svc.NotifyBackupCompleted(context.Background(), "/a", 1, 1, 0, time.Second); err != nil {
		t.Fatalf("NotifyBackupCompleted returned error: %v", err)
	}
	if len(*requests) != 0 {
		t.Fatalf("expected no requests with completions disabled, got %d", len(*requests))
	}

	if err := svc.NotifyBackupFailed(context.Background(), errors.New("boom"), ""); err != nil {
		t.Fatalf("NotifyBackupFailed returned error: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatal("error notifications must still be delivered")
	}
}

func TestErrorToggleSuppressesFailureEvents(t *testing.T) {
	svc, requests := newCapturingService(t, true, false)

	if err := svc.NotifyBackupFailed(context.Background(), errors.New("boom"), "sync"); err != nil {
		t.Fatalf("NotifyBackupFailed returned error: %v", err)
	}
	if len(*requests) != 0 {
		t.Fatalf("expected no requests with error reports disabled, got %d", len(*requests))
	}
}

func TestTestNotificationAlwaysSends(t *testing.T) {
	svc, requests := newCapturingService(t, false, false)

	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("TestNotification returned error: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*requests))
	}
	if (*requests)[0].priority != "low" {
		t.Fatalf("unexpected priority: %q", (*requests)[0].priority)
	}
}

func TestSendSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic rejected", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
