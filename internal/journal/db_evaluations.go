// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package journal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/coldmove/coldmove/internal/tier"
)

type evaluationRow struct {
	ID             int64   `db:"id"`
	Share          string  `db:"share"`
	Volume         string  `db:"volume"`
	Mode           string  `db:"mode"`
	ShouldScan     bool    `db:"should_scan"`
	Score          float64 `db:"score"`
	Reason         string  `db:"reason"`
	RawScores      string  `db:"raw_scores"`
	WeightedScores string  `db:"weighted_scores"`
	ColdFiles      int     `db:"cold_files"`
	RestoreFiles   int     `db:"restore_files"`
	EvaluatedAt    int64   `db:"evaluated_at"`
}

func (r evaluationRow) record() tier.EvaluationRecord {
	rec := tier.EvaluationRecord{
		ID:           r.ID,
		Share:        r.Share,
		Volume:       r.Volume,
		Mode:         r.Mode,
		ShouldScan:   r.ShouldScan,
		Score:        r.Score,
		Reason:       r.Reason,
		ColdFiles:    r.ColdFiles,
		RestoreFiles: r.RestoreFiles,
		When:         time.Unix(0, r.EvaluatedAt).UTC(),
	}
	// Malformed score blobs degrade to empty maps rather than failing the
	// whole listing.
	_ = json.Unmarshal([]byte(r.RawScores), &rec.RawScores)
	_ = json.Unmarshal([]byte(r.WeightedScores), &rec.WeightedScores)
	return rec
}

// RecordEvaluation appends one per-share evaluation row.
func (s *DB) RecordEvaluation(rec tier.EvaluationRecord) error {
	when := rec.When
	if when.IsZero() {
		when = time.Now()
	}
	raw, err := json.Marshal(rec.RawScores)
	if err != nil {
		return wrap(err)
	}
	weighted, err := json.Marshal(rec.WeightedScores)
	if err != nil {
		return wrap(err)
	}

	s.updateLock.Lock()
	defer s.updateLock.Unlock()
	_, err = s.stmt(`
		INSERT INTO evaluations (share, volume, mode, should_scan, score, reason, raw_scores, weighted_scores, cold_files, restore_files, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`).Exec(rec.Share, rec.Volume, rec.Mode, rec.ShouldScan, rec.Score, rec.Reason, string(raw), string(weighted), rec.ColdFiles, rec.RestoreFiles, when.UnixNano())
	if err == nil {
		metricEvaluationsRecorded.Inc()
	}
	return wrap(err)
}

// RecentEvaluations returns up to limit evaluation rows, newest first. An
// empty share matches all shares.
func (s *DB) RecentEvaluations(share string, limit int) ([]tier.EvaluationRecord, error) {
	var rows []evaluationRow
	err := s.stmt(`
		SELECT id, share, volume, mode, should_scan, score, reason, raw_scores, weighted_scores, cold_files, restore_files, evaluated_at FROM evaluations
		WHERE (?1 = '' OR share = ?1)
		ORDER BY id DESC
		LIMIT ?2
	`).Select(&rows, share, limit)
	if err != nil {
		return nil, wrap(err)
	}
	recs := make([]tier.EvaluationRecord, len(rows))
	for i, r := range rows {
		recs[i] = r.record()
	}
	return recs, nil
}

type summaryRow struct {
	ID            int64  `db:"id"`
	Share         string `db:"share"`
	FilesScanned  int    `db:"files_scanned"`
	FilesArchived int    `db:"files_archived"`
	FilesRestored int    `db:"files_restored"`
	FiltersUsed   string `db:"filters_used"`
	ByUser        bool   `db:"by_user"`
	ScannedAt     int64  `db:"scanned_at"`
}

func (r summaryRow) record() tier.ScanSummaryRecord {
	return tier.ScanSummaryRecord{
		ID:            r.ID,
		Share:         r.Share,
		FilesScanned:  r.FilesScanned,
		FilesArchived: r.FilesArchived,
		FilesRestored: r.FilesRestored,
		FiltersUsed:   r.FiltersUsed,
		ByUser:        r.ByUser,
		When:          time.Unix(0, r.ScannedAt).UTC(),
	}
}

// RecordSummary appends one scan summary row. Every completed scan pass
// writes one; cooldown is measured from these.
func (s *DB) RecordSummary(rec tier.ScanSummaryRecord) error {
	when := rec.When
	if when.IsZero() {
		when = time.Now()
	}
	s.updateLock.Lock()
	defer s.updateLock.Unlock()
	_, err := s.stmt(`
		INSERT INTO scan_summaries (share, files_scanned, files_archived, files_restored, filters_used, by_user, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`).Exec(rec.Share, rec.FilesScanned, rec.FilesArchived, rec.FilesRestored, rec.FiltersUsed, rec.ByUser, when.UnixNano())
	return wrap(err)
}

// RecentSummaries returns up to limit scan summaries, newest first. An
// empty share matches all shares.
func (s *DB) RecentSummaries(share string, limit int) ([]tier.ScanSummaryRecord, error) {
	var rows []summaryRow
	err := s.stmt(`
		SELECT id, share, files_scanned, files_archived, files_restored, filters_used, by_user, scanned_at FROM scan_summaries
		WHERE (?1 = '' OR share = ?1)
		ORDER BY id DESC
		LIMIT ?2
	`).Select(&rows, share, limit)
	if err != nil {
		return nil, wrap(err)
	}
	recs := make([]tier.ScanSummaryRecord, len(rows))
	for i, r := range rows {
		recs[i] = r.record()
	}
	return recs, nil
}

// LastScanTime returns the time of the most recent scan of the share, or
// ok false when the share has never been scanned.
func (s *DB) LastScanTime(share string) (time.Time, bool, error) {
	var at int64
	err := s.stmt(`
		SELECT scanned_at FROM scan_summaries
		WHERE share = ?
		ORDER BY scanned_at DESC
		LIMIT 1
	`).Get(&at, share)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, wrap(err)
	}
	return time.Unix(0, at).UTC(), true, nil
}

// InCooldown reports whether the share was scanned more recently than the
// cooldown window allows. A share with no scan history is never in
// cooldown.
func (s *DB) InCooldown(share string, window time.Duration, now time.Time) (bool, error) {
	last, ok, err := s.LastScanTime(share)
	if err != nil || !ok {
		return false, err
	}
	return now.Sub(last) < window, nil
}
