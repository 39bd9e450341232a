// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package journal

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/coldmove/coldmove/internal/tier"
)

type movementRow struct {
	ID         int64  `db:"id"`
	SourcePath string `db:"source_path"`
	DestPath   string `db:"dest_path"`
	Created    int64  `db:"created"`
	Accessed   int64  `db:"accessed"`
	Modified   int64  `db:"modified"`
	Size       int64  `db:"size"`
	Action     string `db:"action"`
	MovedAt    int64  `db:"moved_at"`
}

func (r movementRow) record() tier.MovementRecord {
	return tier.MovementRecord{
		ID:         r.ID,
		SourcePath: r.SourcePath,
		DestPath:   r.DestPath,
		Created:    time.Unix(0, r.Created).UTC(),
		Accessed:   time.Unix(0, r.Accessed).UTC(),
		Modified:   time.Unix(0, r.Modified).UTC(),
		Size:       r.Size,
		Action:     tier.Action(r.Action),
		When:       time.Unix(0, r.MovedAt).UTC(),
	}
}

// RecordMovements appends the given movement records in a single
// transaction. Records with a zero When are stamped with the current time.
// Either all records are journaled or none are.
func (s *DB) RecordMovements(recs []tier.MovementRecord) error {
	if len(recs) == 0 {
		return nil
	}

	s.updateLock.Lock()
	defer s.updateLock.Unlock()

	tx, err := s.sql.Beginx()
	if err != nil {
		return wrap(err)
	}
	defer tx.Rollback() //nolint:errcheck

	ins, err := tx.Preparex(`
		INSERT INTO movements (source_path, dest_path, created, accessed, modified, size, action, moved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return wrap(err)
	}
	defer ins.Close()

	for _, rec := range recs {
		when := rec.When
		if when.IsZero() {
			when = time.Now()
		}
		if _, err := ins.Exec(
			rec.SourcePath, rec.DestPath,
			nanos(rec.Created), nanos(rec.Accessed), nanos(rec.Modified),
			rec.Size, string(rec.Action), when.UnixNano(),
		); err != nil {
			return wrap(err, rec.SourcePath)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap(err)
	}
	metricMovementsRecorded.Add(float64(len(recs)))
	return nil
}

// RecentMovements returns up to limit movement records, newest first.
func (s *DB) RecentMovements(limit int) ([]tier.MovementRecord, error) {
	var rows []movementRow
	err := s.stmt(`
		SELECT id, source_path, dest_path, created, accessed, modified, size, action, moved_at FROM movements
		ORDER BY id DESC
		LIMIT ?
	`).Select(&rows, limit)
	if err != nil {
		return nil, wrap(err)
	}
	recs := make([]tier.MovementRecord, len(rows))
	for i, r := range rows {
		recs[i] = r.record()
	}
	return recs, nil
}

// LookupOriginal resolves an archived copy back to its movement record by
// the archive-side path. The newest matching archival wins, so a file that
// has bounced between tiers resolves to its latest placement.
func (s *DB) LookupOriginal(destPath string) (tier.MovementRecord, bool, error) {
	var row movementRow
	err := s.stmt(`
		SELECT id, source_path, dest_path, created, accessed, modified, size, action, moved_at FROM movements
		WHERE dest_path = ? AND action = ?
		ORDER BY id DESC
		LIMIT 1
	`).Get(&row, destPath, string(tier.ActionMovedToArchive))
	if errors.Is(err, sql.ErrNoRows) {
		return tier.MovementRecord{}, false, nil
	}
	if err != nil {
		return tier.MovementRecord{}, false, wrap(err)
	}
	return row.record(), true, nil
}

// UniqueArchivedCount counts the distinct data-side paths under the given
// UNC prefix whose most recent movement left them on the archive side. An
// archival references the data path as source, a restore references it as
// destination; the newest of either wins per path.
func (s *DB) UniqueArchivedCount(prefix string) (int, error) {
	var count int
	err := s.stmt(`
		SELECT COUNT(*) FROM movements m
		WHERE m.action = ?1
		AND m.source_path LIKE ?2 ESCAPE '#'
		AND m.id = (
			SELECT MAX(id) FROM movements
			WHERE (action = ?1 AND source_path = m.source_path)
			OR (action = ?3 AND dest_path = m.source_path)
		)
	`).Get(&count, string(tier.ActionMovedToArchive), likePrefix(prefix), string(tier.ActionRestoredFromArchive))
	return count, wrap(err)
}

// MovementStats is the aggregate over the whole movement history.
type MovementStats struct {
	ArchivedCount int   `db:"archived_count"`
	ArchivedBytes int64 `db:"archived_bytes"`
	RestoredCount int   `db:"restored_count"`
	RestoredBytes int64 `db:"restored_bytes"`
}

// Stats aggregates movement counts and byte totals since the given time.
// A zero since covers the full history.
func (s *DB) Stats(since time.Time) (MovementStats, error) {
	var stats MovementStats
	err := s.stmt(`
		SELECT
			COUNT(*) FILTER (WHERE action = ?1) AS archived_count,
			COALESCE(SUM(size) FILTER (WHERE action = ?1), 0) AS archived_bytes,
			COUNT(*) FILTER (WHERE action = ?2) AS restored_count,
			COALESCE(SUM(size) FILTER (WHERE action = ?2), 0) AS restored_bytes
		FROM movements
		WHERE moved_at >= ?3
	`).Get(&stats, string(tier.ActionMovedToArchive), string(tier.ActionRestoredFromArchive), nanos(since))
	return stats, wrap(err)
}

// nanos is UnixNano with a sane zero: the zero time stores as 0, not as
// the undefined UnixNano of an uninitialized time.
func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// likePrefix turns a literal path prefix into a LIKE pattern, escaping the
// wildcard characters with '#'. Underscores are common in share names, so
// this matters.
func likePrefix(prefix string) string {
	r := strings.NewReplacer("#", "##", "%", "#%", "_", "#_")
	return r.Replace(prefix) + "%"
}
