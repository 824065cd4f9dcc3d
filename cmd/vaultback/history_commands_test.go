package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"vaultback/internal/history"
)

func seedHistory(t *testing.T, env *cliTestEnv, records ...history.Record) {
	t.Helper()
	store, err := history.Open(env.cfg.HistoryDBPath())
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	defer store.Close()
	for _, rec := range records {
		if err := store.Record(context.Background(), rec); err != nil {
			t.Fatalf("record run: %v", err)
		}
	}
}

func sampleRun(runID string, finished time.Time, status string) history.Record {
	return history.Record{
		RunID:           runID,
		StartedAt:       finished.Add(-time.Minute),
		FinishedAt:      finished,
		Status:          status,
		ArtifactPath:    "/backups/bw_export_2026-08-30_10-00-00.tar.gz.gpg",
		ArtifactSize:    2048,
		ArtifactSHA256:  "cafebabe",
		ItemCount:       10,
		AttachmentCount: 2,
	}
}

func TestHistoryListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "No backup runs recorded")
}

func TestHistoryListShowsRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	now := time.Now()
	seedHistory(t, env,
		sampleRun("run-1", now.Add(-time.Hour), history.StatusCompleted),
		sampleRun("run-2", now, history.StatusFailed),
	)

	out, _, err := runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "run-1")
	requireContains(t, out, "run-2")
	requireContains(t, out, history.StatusFailed)
}

func TestHistoryShow(t *testing.T) {
	env := setupCLITestEnv(t)
	seedHistory(t, env, sampleRun("run-1", time.Now(), history.StatusCompleted))

	out, _, err := runCLI(t, []string{"history", "show", "run-1"}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "run-1")
	requireContains(t, out, "cafebabe")
	requireContains(t, out, "bw_export_2026-08-30_10-00-00.tar.gz.gpg")

	_, _, err = runCLI(t, []string{"history", "show", "absent"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestHistoryPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	now := time.Now()
	seedHistory(t, env,
		sampleRun("run-old", now.AddDate(0, 0, -90), history.StatusCompleted),
		sampleRun("run-new", now, history.StatusCompleted),
	)

	out, _, err := runCLI(t, []string{"history", "prune", "--days", "30"}, env.configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Removed 1 run(s)")

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "run-new")
	if strings.Contains(out, "run-old") {
		t.Fatal("expected run-old pruned")
	}
}
