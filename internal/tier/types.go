// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package tier holds the domain types shared between the scanner, planner,
// executor and journal: file metadata, share identities, scan statistics
// and journal records.
package tier

import (
	"time"
)

// Source tags where a scanned file currently lives.
type Source string

const (
	SourceData    Source = "data"
	SourceArchive Source = "archive"
)

// Action is the journaled movement type.
type Action string

const (
	ActionMovedToArchive      Action = "moved_to_archive"
	ActionRestoredFromArchive Action = "restored_from_archive"
)

// FileMeta describes one scanned file. It is immutable within a scan pass.
type FileMeta struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	Created      time.Time `json:"created"`
	Accessed     time.Time `json:"accessed"`
	Modified     time.Time `json:"modified"`
	Source       Source    `json:"source,omitempty"`
	OriginalPath string    `json:"originalPath,omitempty"` // set for archive-side files
}

// ShareDescriptor is the logical identity of a data share and its paired
// archive share.
type ShareDescriptor struct {
	Share         string `json:"share"`
	Volume        string `json:"volume"`
	ArchiveShare  string `json:"archiveShare"`
	ArchiveVolume string `json:"archiveVolume"`
	Endpoint      string `json:"endpoint"`
}

// ScanStats is the aggregate result of one share walk.
type ScanStats struct {
	TotalFiles         int
	TotalSize          int64
	ColdFiles          []FileMeta
	OldFileCount       int
	BlacklistedDirs    int
	BlacklistedFiles   int
	BlacklistRatioPct  float64
	FullnessPct        float64
	SizeAccessRatio    float64 // pre-supplied balance score, default 0.5
	RestorableCount    int
	UniqueArchivedHist int
}

// MovementRecord is one append-only journal row.
type MovementRecord struct {
	ID         int64     `json:"id"`
	SourcePath string    `json:"sourcePath"`
	DestPath   string    `json:"destPath"`
	Created    time.Time `json:"created"`
	Accessed   time.Time `json:"accessed"`
	Modified   time.Time `json:"modified"`
	Size       int64     `json:"size"`
	Action     Action    `json:"action"`
	When       time.Time `json:"when"`
}

// EvaluationRecord is the per-share decision log row.
type EvaluationRecord struct {
	ID             int64              `json:"id"`
	Share          string             `json:"share"`
	Volume         string             `json:"volume"`
	Mode           string             `json:"mode"`
	ShouldScan     bool               `json:"shouldScan"`
	Score          float64            `json:"score"`
	Reason         string             `json:"reason"`
	RawScores      map[string]float64 `json:"rawScores"`
	WeightedScores map[string]float64 `json:"weightedScores"`
	ColdFiles      int                `json:"coldFiles"`
	RestoreFiles   int                `json:"restoreFiles"`
	When           time.Time          `json:"when"`
}

// ScanSummaryRecord is the per-scan aggregate used for cooldown and history.
type ScanSummaryRecord struct {
	ID            int64     `json:"id"`
	Share         string    `json:"share"`
	FilesScanned  int       `json:"filesScanned"`
	FilesArchived int       `json:"filesArchived"`
	FilesRestored int       `json:"filesRestored"`
	FiltersUsed   string    `json:"filtersUsed"`
	ByUser        bool      `json:"triggeredByUser"`
	When          time.Time `json:"when"`
}

// DateRange bounds one timestamp axis, inclusive on both ends. Zero values
// leave that end open.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Filters are the admin-supplied constraints applied during planning.
type Filters struct {
	FileTypes []string             `json:"fileTypes,omitempty"` // extensions, e.g. ".pdf"
	Dates     map[string]DateRange `json:"dates,omitempty"`     // keys: created, accessed, modified
	MinSize   int64                `json:"minSize,omitempty"`
	MaxSize   int64                `json:"maxSize,omitempty"`   // 0 means unbounded
}

// Failure records one skipped file and the reason, per the migration
// failure taxonomy.
type Failure struct {
	Path   string `json:"path"`
	Reason string `json:"error"`
}

// Status codes returned by the manual admin operations.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialSuccess Status = "partial_success"
	StatusNoFiles        Status = "no_files"
	StatusNoMatches      Status = "no_matches"
	StatusNoSpace        Status = "no_space"
	StatusError          Status = "error"
)

// DecisionLogEntry is what one orchestrated pass over a share reports back.
type DecisionLogEntry struct {
	Share          string    `json:"share"`
	ShouldScan     bool      `json:"shouldScan"`
	Score          float64   `json:"score"`
	Reason         string    `json:"reason"`
	ArchiveSuccess int       `json:"archiveSuccess"`
	ArchiveFailed  int       `json:"archiveFailed"`
	RestoreSuccess int       `json:"restoreSuccess"`
	RestoreFailed  int       `json:"restoreFailed"`
	ArchivedFiles  []string  `json:"archivedFiles,omitempty"`
	RestoredFiles  []string  `json:"restoredFiles,omitempty"`
	Failures       []Failure `json:"failures,omitempty"`
	When           time.Time `json:"when"`
}
