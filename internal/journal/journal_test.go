// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package journal

import (
	"testing"
	"time"

	"github.com/coldmove/coldmove/internal/tier"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenTemp()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testMovement(src, dst string, action tier.Action, when time.Time) tier.MovementRecord {
	return tier.MovementRecord{
		SourcePath: src,
		DestPath:   dst,
		Created:    when.Add(-72 * time.Hour),
		Accessed:   when.Add(-48 * time.Hour),
		Modified:   when.Add(-24 * time.Hour),
		Size:       1234,
		Action:     action,
		When:       when,
	}
}

func TestMovementRoundTrip(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	now := time.Now().Truncate(time.Microsecond)
	recs := []tier.MovementRecord{
		testMovement(`\\filer\proj\a.pdf`, `\\filer\proj_archive\a.pdf`, tier.ActionMovedToArchive, now.Add(-time.Hour)),
		testMovement(`\\filer\proj\b.pdf`, `\\filer\proj_archive\b.pdf`, tier.ActionMovedToArchive, now),
	}
	if err := db.RecordMovements(recs); err != nil {
		t.Fatal(err)
	}

	got, err := db.RecentMovements(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, expected 2", len(got))
	}
	// Newest first.
	if got[0].SourcePath != recs[1].SourcePath {
		t.Errorf("order: got %s first", got[0].SourcePath)
	}
	if !got[0].When.Equal(recs[1].When) {
		t.Errorf("when %v != %v", got[0].When, recs[1].When)
	}
	if !got[0].Accessed.Equal(recs[1].Accessed) {
		t.Errorf("accessed %v != %v", got[0].Accessed, recs[1].Accessed)
	}
	if got[0].Size != 1234 || got[0].Action != tier.ActionMovedToArchive {
		t.Errorf("bad record %+v", got[0])
	}
}

func TestLookupOriginal(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	now := time.Now()
	dest := `\\filer\proj_archive\doc.pdf`
	err := db.RecordMovements([]tier.MovementRecord{
		testMovement(`\\filer\proj\old\doc.pdf`, dest, tier.ActionMovedToArchive, now.Add(-2*time.Hour)),
		testMovement(dest, `\\filer\proj\old\doc.pdf`, tier.ActionRestoredFromArchive, now.Add(-time.Hour)),
		testMovement(`\\filer\proj\new\doc.pdf`, dest, tier.ActionMovedToArchive, now),
	})
	if err != nil {
		t.Fatal(err)
	}

	rec, ok, err := db.LookupOriginal(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a match")
	}
	if rec.SourcePath != `\\filer\proj\new\doc.pdf` {
		t.Errorf("resolved to %s, expected the latest archival", rec.SourcePath)
	}

	_, ok, err = db.LookupOriginal(`\\filer\proj_archive\unknown.pdf`)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unexpected match for unknown path")
	}
}

func TestUniqueArchivedCount(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	now := time.Now()
	err := db.RecordMovements([]tier.MovementRecord{
		// a: archived, still out there
		testMovement(`\\filer\my_share\a.pdf`, `\\filer\my_share_archive\a.pdf`, tier.ActionMovedToArchive, now.Add(-3*time.Hour)),
		// b: archived then restored, not counted
		testMovement(`\\filer\my_share\b.pdf`, `\\filer\my_share_archive\b.pdf`, tier.ActionMovedToArchive, now.Add(-2*time.Hour)),
		testMovement(`\\filer\my_share_archive\b.pdf`, `\\filer\my_share\b.pdf`, tier.ActionRestoredFromArchive, now.Add(-time.Hour)),
		// different share; the underscore in the prefix must not act as a
		// wildcard and match this one
		testMovement(`\\filer\myXshare\c.pdf`, `\\filer\myXshare_archive\c.pdf`, tier.ActionMovedToArchive, now),
	})
	if err != nil {
		t.Fatal(err)
	}

	count, err := db.UniqueArchivedCount(`\\filer\my_share\`)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("unique archived %d, expected 1", count)
	}
}

func TestCooldown(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	now := time.Now()

	in, err := db.InCooldown("projects", 6*time.Hour, now)
	if err != nil {
		t.Fatal(err)
	}
	if in {
		t.Error("share with no history is in cooldown")
	}

	err = db.RecordSummary(tier.ScanSummaryRecord{
		Share:        "projects",
		FilesScanned: 42,
		When:         now.Add(-2 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	if in, err = db.InCooldown("projects", 6*time.Hour, now); err != nil {
		t.Fatal(err)
	} else if !in {
		t.Error("expected cooldown two hours after a scan")
	}
	if in, err = db.InCooldown("projects", time.Hour, now); err != nil {
		t.Fatal(err)
	} else if in {
		t.Error("cooldown with a one hour window")
	}

	last, ok, err := db.LastScanTime("projects")
	if err != nil || !ok {
		t.Fatalf("last scan time: %v %v", ok, err)
	}
	if got := now.Add(-2 * time.Hour); last.Sub(got).Abs() > time.Millisecond {
		t.Errorf("last scan %v, expected %v", last, got)
	}
}

func TestEvaluationRoundTrip(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	rec := tier.EvaluationRecord{
		Share:          "projects",
		Volume:         "vol_projects",
		Mode:           "default",
		ShouldScan:     true,
		Score:          0.8123,
		Reason:         "score above threshold",
		RawScores:      map[string]float64{"iops": 1, "fullness": 0.92},
		WeightedScores: map[string]float64{"iops": 0.1, "fullness": 0.276},
		ColdFiles:      80,
		RestoreFiles:   2,
	}
	if err := db.RecordEvaluation(rec); err != nil {
		t.Fatal(err)
	}

	got, err := db.RecentEvaluations("projects", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d evaluations", len(got))
	}
	if got[0].Score != rec.Score || !got[0].ShouldScan || got[0].Reason != rec.Reason {
		t.Errorf("bad evaluation %+v", got[0])
	}
	if got[0].RawScores["fullness"] != 0.92 {
		t.Errorf("raw scores %v", got[0].RawScores)
	}
	if got[0].WeightedScores["iops"] != 0.1 {
		t.Errorf("weighted scores %v", got[0].WeightedScores)
	}

	if all, err := db.RecentEvaluations("", 5); err != nil || len(all) != 1 {
		t.Errorf("all-shares listing: %d, %v", len(all), err)
	}
	if none, err := db.RecentEvaluations("other", 5); err != nil || len(none) != 0 {
		t.Errorf("other-share listing: %d, %v", len(none), err)
	}
}

func TestMovementStats(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	now := time.Now()
	err := db.RecordMovements([]tier.MovementRecord{
		testMovement(`\\f\s\a`, `\\f\sa\a`, tier.ActionMovedToArchive, now.Add(-48*time.Hour)),
		testMovement(`\\f\s\b`, `\\f\sa\b`, tier.ActionMovedToArchive, now),
		testMovement(`\\f\sa\c`, `\\f\s\c`, tier.ActionRestoredFromArchive, now),
	})
	if err != nil {
		t.Fatal(err)
	}

	all, err := db.Stats(time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if all.ArchivedCount != 2 || all.RestoredCount != 1 {
		t.Errorf("stats %+v", all)
	}
	if all.ArchivedBytes != 2468 || all.RestoredBytes != 1234 {
		t.Errorf("byte totals %+v", all)
	}

	recent, err := db.Stats(now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if recent.ArchivedCount != 1 || recent.RestoredCount != 1 {
		t.Errorf("recent stats %+v", recent)
	}
}
