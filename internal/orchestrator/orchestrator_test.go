// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coldmove/coldmove/internal/config"
	"github.com/coldmove/coldmove/internal/fileservice"
	"github.com/coldmove/coldmove/internal/journal"
	"github.com/coldmove/coldmove/internal/migrate"
	"github.com/coldmove/coldmove/internal/telemetry"
	"github.com/coldmove/coldmove/internal/tier"
)

var orchShare = tier.ShareDescriptor{
	Share:         "projects",
	Volume:        "vol_projects",
	ArchiveShare:  "projects_archive",
	ArchiveVolume: "vol_projects_archive",
	Endpoint:      "filer01",
}

type orchEnv struct {
	root     string
	service  *fileservice.Local
	provider *telemetry.Static
	journal  *journal.DB
	orch     *Orchestrator
	now      time.Time
}

func newOrchEnv(t *testing.T) *orchEnv {
	t.Helper()
	env := &orchEnv{
		root: t.TempDir(),
		now:  time.Now().UTC(),
	}
	env.service = fileservice.NewLocal(env.root)
	env.provider = telemetry.NewStatic(orchShare)
	env.provider.SetCapacity(orchShare.Volume, telemetry.SpaceMetrics{Size: 100 << 30, Used: 92 << 30})
	env.provider.SetPerformance(orchShare.Share, telemetry.PerfMetrics{})
	env.provider.SetArchiveFree(orchShare.Share, 1<<30)

	db, err := journal.OpenTemp()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	env.journal = db

	exec, err := migrate.New(env.service, db, migrate.Options{StagingDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Wrap(filepath.Join(t.TempDir(), "config.json"), config.New())
	env.orch = New(cfg, env.provider, env.service, db, exec, Options{
		MaxWorkers: 2,
		Now:        func() time.Time { return env.now },
	})
	return env
}

func (env *orchEnv) writeData(t *testing.T, rel string, size int, when time.Time) {
	t.Helper()
	osPath := filepath.Join(env.root, orchShare.Endpoint, orchShare.Share, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(osPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(osPath, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(osPath, when, when); err != nil {
		t.Fatal(err)
	}
}

func TestTickArchivesColdFilesThenCoolsDown(t *testing.T) {
	t.Parallel()
	env := newOrchEnv(t)
	ctx := context.Background()

	old := env.now.AddDate(0, 0, -400)
	for _, name := range []string{"a.dat", "b.dat", "c.dat"} {
		env.writeData(t, name, 100, old)
	}

	entries, err := env.orch.RunTick(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries %d", len(entries))
	}
	first := entries[0]
	if !first.ShouldScan {
		t.Fatalf("should_scan false, score %v", first.Score)
	}
	if first.ArchiveSuccess != 3 || first.ArchiveFailed != 0 {
		t.Fatalf("archived %d failed %d, expected 3/0", first.ArchiveSuccess, first.ArchiveFailed)
	}
	// Data side now holds only stubs.
	if _, err := os.Stat(filepath.Join(env.root, "filer01", "projects", "a.dat")); !os.IsNotExist(err) {
		t.Error("a.dat still on data share")
	}
	if _, err := os.Stat(filepath.Join(env.root, "filer01", "projects", "a.dat_shortcut.bat")); err != nil {
		t.Error("no stub for a.dat")
	}
	if _, err := os.Stat(filepath.Join(env.root, "filer01", "projects_archive", "a.dat")); err != nil {
		t.Error("a.dat not on archive share")
	}

	// Immediate re-run is a cooldown no-op.
	entries, err = env.orch.RunTick(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second := entries[0]
	if second.ShouldScan || second.Score != 0 || second.Reason != reasonCooldown {
		t.Errorf("second tick %+v, expected cooldown no-op", second)
	}
	if second.ArchiveSuccess != 0 || second.RestoreSuccess != 0 {
		t.Errorf("second tick moved files: %+v", second)
	}

	movs, err := env.journal.RecentMovements(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(movs) != 3 {
		t.Errorf("journal has %d movements after both ticks, expected 3", len(movs))
	}

	decisions := env.orch.RecentDecisions(0)
	if len(decisions) != 2 || decisions[0].Reason != reasonCooldown {
		t.Errorf("decision log %+v", decisions)
	}
}

func TestTouchedArchiveFileRestoresAfterCooldown(t *testing.T) {
	t.Parallel()
	env := newOrchEnv(t)
	ctx := context.Background()

	env.writeData(t, "report.pdf", 100, env.now.AddDate(0, 0, -400))
	if _, err := env.orch.RunTick(ctx); err != nil {
		t.Fatal(err)
	}

	// Someone opens the archived copy; cooldown passes.
	archived := filepath.Join(env.root, "filer01", "projects_archive", "report.pdf")
	if err := os.Chtimes(archived, env.now, env.now.AddDate(0, 0, -400)); err != nil {
		t.Fatal(err)
	}
	env.now = env.now.Add(7 * time.Hour)

	entries, err := env.orch.RunTick(ctx)
	if err != nil {
		t.Fatal(err)
	}
	entry := entries[0]
	if entry.RestoreSuccess != 1 {
		t.Fatalf("restored %d, expected 1: %+v", entry.RestoreSuccess, entry)
	}
	if _, err := os.Stat(filepath.Join(env.root, "filer01", "projects", "report.pdf")); err != nil {
		t.Error("report.pdf not back on data share")
	}
	if _, err := os.Stat(filepath.Join(env.root, "filer01", "projects", "report.pdf_shortcut.bat")); !os.IsNotExist(err) {
		t.Error("stub still present after restore")
	}
	if _, err := os.Stat(archived); !os.IsNotExist(err) {
		t.Error("archive copy still present after restore")
	}
}

func TestCooldownWindowRespected(t *testing.T) {
	t.Parallel()
	env := newOrchEnv(t)
	ctx := context.Background()

	// Last scan two hours ago, window six hours.
	err := env.journal.RecordSummary(tier.ScanSummaryRecord{
		Share: orchShare.Share,
		When:  env.now.Add(-2 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	entries, err := env.orch.RunTick(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Reason != reasonCooldown || entries[0].Score != 0 {
		t.Errorf("entry %+v, expected cooldown", entries[0])
	}

	evals, err := env.journal.RecentEvaluations(orchShare.Share, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(evals) != 1 || evals[0].Reason != reasonCooldown || evals[0].ShouldScan {
		t.Errorf("evaluation %+v", evals)
	}
}

func TestPreviewDoesNotMove(t *testing.T) {
	t.Parallel()
	env := newOrchEnv(t)
	ctx := context.Background()

	env.writeData(t, "cold.dat", 100, env.now.AddDate(0, 0, -400))

	res, err := env.orch.Preview(ctx, orchShare.Share, tier.Filters{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != tier.StatusSuccess {
		t.Fatalf("status %s", res.Status)
	}
	if len(res.ArchiveCandidates) != 1 {
		t.Errorf("archive candidates %d", len(res.ArchiveCandidates))
	}
	if _, err := os.Stat(filepath.Join(env.root, "filer01", "projects", "cold.dat")); err != nil {
		t.Error("preview moved the file")
	}
	if movs, _ := env.journal.RecentMovements(10); len(movs) != 0 {
		t.Errorf("preview journaled %d movements", len(movs))
	}
}

func TestExecuteStatuses(t *testing.T) {
	t.Parallel()
	env := newOrchEnv(t)
	ctx := context.Background()

	if _, err := env.orch.Execute(ctx, "nope", tier.Filters{}, nil); err == nil {
		t.Error("expected error for unknown share")
	}

	// Empty share: nothing to do.
	res, err := env.orch.Execute(ctx, orchShare.Share, tier.Filters{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != tier.StatusNoFiles {
		t.Errorf("status %s, expected no_files", res.Status)
	}

	// Cold file present but nothing matches the filter.
	env.writeData(t, "cold.dat", 100, env.now.AddDate(0, 0, -400))
	res, err = env.orch.Execute(ctx, orchShare.Share, tier.Filters{FileTypes: []string{".pdf"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != tier.StatusNoMatches {
		t.Errorf("status %s, expected no_matches", res.Status)
	}

	// Matching filter executes the move.
	res, err = env.orch.Execute(ctx, orchShare.Share, tier.Filters{FileTypes: []string{".dat"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != tier.StatusSuccess || len(res.Archived) != 1 {
		t.Errorf("result %+v", res)
	}
}

func TestDirectArchiveAndRestore(t *testing.T) {
	t.Parallel()
	env := newOrchEnv(t)
	ctx := context.Background()

	env.writeData(t, "doc.txt", 100, env.now.AddDate(0, 0, -10))
	src := `\\filer01\projects\doc.txt`

	res, err := env.orch.ArchivePaths(ctx, orchShare.Share, []string{src})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != tier.StatusSuccess || len(res.Archived) != 1 {
		t.Fatalf("archive result %+v", res)
	}
	archived := filepath.Join(env.root, "filer01", "projects_archive", "doc.txt")
	if _, err := os.Stat(archived); err != nil {
		t.Fatal("doc.txt not on archive share")
	}

	res, err = env.orch.RestorePaths(ctx, []string{`\\filer01\projects_archive\doc.txt`})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != tier.StatusSuccess || len(res.Restored) != 1 {
		t.Fatalf("restore result %+v", res)
	}
	if _, err := os.Stat(filepath.Join(env.root, "filer01", "projects", "doc.txt")); err != nil {
		t.Error("doc.txt not back on data share")
	}

	// A path with no journal record is an error result, not a transport
	// failure.
	res, err = env.orch.RestorePaths(ctx, []string{`\\filer01\projects_archive\ghost.txt`})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != tier.StatusError || len(res.Failures) != 1 {
		t.Errorf("ghost restore result %+v", res)
	}
}

func TestCancelledTickReportsNoPhantomEntries(t *testing.T) {
	t.Parallel()
	env := newOrchEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries, err := env.orch.RunTick(ctx)
	if err == nil {
		t.Error("expected the context error")
	}
	for _, e := range entries {
		if e.Share == "" {
			t.Errorf("zero-value entry in tick result: %+v", e)
		}
	}
	for _, d := range env.orch.RecentDecisions(0) {
		if d.Share == "" {
			t.Errorf("zero-value entry in decision log: %+v", d)
		}
	}
}

func TestFailedEvaluationIsJournaled(t *testing.T) {
	t.Parallel()
	env := newOrchEnv(t)

	// A cancelled context makes the share walk fail; the journal must
	// still receive an evaluation row for the share.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	entry, err := env.orch.ScanShare(ctx, orchShare.Share)
	if err != nil {
		t.Fatal(err)
	}
	if entry.ShouldScan {
		t.Errorf("entry %+v, expected no scan", entry)
	}

	evals, err := env.journal.RecentEvaluations(orchShare.Share, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(evals) != 1 {
		t.Fatalf("evaluations %d, expected 1", len(evals))
	}
	if evals[0].ShouldScan || evals[0].Score != 0 {
		t.Errorf("evaluation %+v", evals[0])
	}
	if !strings.HasPrefix(evals[0].Reason, "evaluation failed") {
		t.Errorf("reason %q", evals[0].Reason)
	}
}

func TestManualScanMarksByUser(t *testing.T) {
	t.Parallel()
	env := newOrchEnv(t)
	ctx := context.Background()

	env.writeData(t, "cold.dat", 100, env.now.AddDate(0, 0, -400))

	entry, err := env.orch.ScanShare(ctx, orchShare.Share)
	if err != nil {
		t.Fatal(err)
	}
	if !entry.ShouldScan {
		t.Fatalf("entry %+v", entry)
	}

	sums, err := env.journal.RecentSummaries(orchShare.Share, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 1 || !sums[0].ByUser {
		t.Errorf("summaries %+v, expected by-user flag", sums)
	}
}
