// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package migrate executes archive and restore plans file by file. Each
// file streams through a local staging copy, metadata is preserved on the
// destination, and a launcher stub replaces every archived original.
// Journal records for a batch are committed in one transaction after the
// batch completes.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shirou/gopsutil/v4/disk"

	"github.com/coldmove/coldmove/internal/fileservice"
	"github.com/coldmove/coldmove/internal/slogutil"
	"github.com/coldmove/coldmove/internal/tier"
)

// Failure reasons, one per way a single-file migration can go wrong.
const (
	ReasonPermissionDenied = "permission denied"
	ReasonSourceNotFound   = "source not found"
	ReasonZeroSizeSource   = "zero-size source"
	ReasonDownloadFailed   = "download failed"
	ReasonUploadFailed     = "upload failed"
	ReasonSourceDelete     = "source delete failed"
	ReasonNoJournalRecord  = "no journal record for archive path"
	ReasonTimeout          = "timeout"
	ReasonFatal            = "fatal"
	reasonStagingSpace     = "insufficient staging space"
)

const (
	defaultFileTimeout     = 15 * time.Minute
	defaultLookupCacheSize = 4096
)

var errStagingSpace = errors.New(reasonStagingSpace)

// Journal is the slice of the journal store the executor needs.
type Journal interface {
	RecordMovements([]tier.MovementRecord) error
	LookupOriginal(destPath string) (tier.MovementRecord, bool, error)
}

// Result is the outcome of one batch. Moved holds the journaled records
// for the files that made it; Failures names the rest.
type Result struct {
	Moved    []tier.MovementRecord
	Failures []tier.Failure
}

// Options tune an Executor. The zero value is usable.
type Options struct {
	// StagingDir receives the intermediate local copies. Defaults to the
	// system temp directory.
	StagingDir string
	// FileTimeout bounds each single-file operation.
	FileTimeout time.Duration
}

// Executor moves files between a data share and its archive share.
type Executor struct {
	service     fileservice.Client
	journal     Journal
	stagingDir  string
	fileTimeout time.Duration

	// lookup caches archive path to movement record resolution; restore
	// plans routinely hit the same paths across ticks.
	lookup *lru.Cache[string, tier.MovementRecord]
}

func New(service fileservice.Client, jrnl Journal, opts Options) (*Executor, error) {
	if opts.StagingDir == "" {
		opts.StagingDir = os.TempDir()
	}
	if opts.FileTimeout <= 0 {
		opts.FileTimeout = defaultFileTimeout
	}
	if err := os.MkdirAll(opts.StagingDir, 0o755); err != nil {
		return nil, err
	}
	cache, err := lru.New[string, tier.MovementRecord](defaultLookupCacheSize)
	if err != nil {
		return nil, err
	}
	return &Executor{
		service:     service,
		journal:     jrnl,
		stagingDir:  opts.StagingDir,
		fileTimeout: opts.FileTimeout,
		lookup:      cache,
	}, nil
}

// Archive moves the given data-side files to the share's paired archive
// share. Files are independent; a failure is recorded and the batch
// continues. Successful moves are journaled in one transaction after the
// loop. On context cancellation the batch stops before the next file and
// the journal covers only completed files.
func (e *Executor) Archive(ctx context.Context, share tier.ShareDescriptor, files []tier.FileMeta) (Result, error) {
	var res Result
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		if tier.IsStub(f.Path) {
			continue
		}
		rec, reason := e.archiveOne(ctx, share, f)
		if reason != "" {
			slog.Warn("Archive failed", slog.String("path", f.Path), slog.String("reason", reason))
			res.Failures = append(res.Failures, tier.Failure{Path: f.Path, Reason: reason})
			metricFilesFailed.WithLabelValues("archive").Inc()
			continue
		}
		res.Moved = append(res.Moved, rec)
		metricFilesArchived.Inc()
		metricBytesArchived.Add(float64(rec.Size))
	}

	if err := e.journal.RecordMovements(res.Moved); err != nil {
		return res, err
	}
	return res, nil
}

func (e *Executor) archiveOne(ctx context.Context, share tier.ShareDescriptor, f tier.FileMeta) (tier.MovementRecord, string) {
	ctx, cancel := context.WithTimeout(ctx, e.fileTimeout)
	defer cancel()

	src := tier.NormalizePath(f.Path)
	_, _, rest, ok := tier.SplitUNC(src)
	if !ok || share.ArchiveShare == "" {
		return tier.MovementRecord{}, fmt.Sprintf("%s: no archive destination", ReasonFatal)
	}
	dest := tier.JoinPath(`\\`+share.Endpoint, share.ArchiveShare, rest)

	// Pre-check: permissions and size.
	if reason := e.probe(ctx, src); reason != "" {
		return tier.MovementRecord{}, reason
	}
	info, err := e.service.Stat(ctx, src)
	if err != nil {
		return tier.MovementRecord{}, e.classify(ctx, err, ReasonSourceNotFound)
	}
	if info.Size == 0 {
		return tier.MovementRecord{}, ReasonZeroSizeSource
	}

	staged, err := e.stage(ctx, src, info.Size)
	if err != nil {
		return tier.MovementRecord{}, e.classify(ctx, err, ReasonDownloadFailed)
	}
	defer os.Remove(staged)

	if err := e.upload(ctx, staged, dest); err != nil {
		return tier.MovementRecord{}, e.classify(ctx, err, ReasonUploadFailed)
	}

	if err := e.service.Remove(ctx, src); err != nil {
		return tier.MovementRecord{}, e.classify(ctx, err, ReasonSourceDelete)
	}

	// The archive copy keeps the original's recency so later archive walks
	// see truthful access times.
	if err := e.service.Chtimes(ctx, dest, f.Accessed, f.Modified); err != nil {
		slog.Warn("Preserving timestamps failed", slog.String("path", dest), slogutil.Error(err))
	}

	// Stub failure is logged but the move stands; the journal still
	// reflects it.
	if err := e.writeStub(ctx, src, dest); err != nil {
		slog.Warn("Writing launcher stub failed", slog.String("path", tier.StubPath(src)), slogutil.Error(err))
	}

	return tier.MovementRecord{
		SourcePath: src,
		DestPath:   dest,
		Created:    f.Created,
		Accessed:   f.Accessed,
		Modified:   f.Modified,
		Size:       info.Size,
		Action:     tier.ActionMovedToArchive,
		When:       time.Now().UTC(),
	}, ""
}

// Restore moves archived files back to their original data-side paths.
// Each entry's Path is the archive-side location; OriginalPath may be
// empty, in which case the journal resolves it.
func (e *Executor) Restore(ctx context.Context, files []tier.FileMeta) (Result, error) {
	var res Result
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		rec, reason := e.restoreOne(ctx, f)
		if reason != "" {
			slog.Warn("Restore failed", slog.String("path", f.Path), slog.String("reason", reason))
			res.Failures = append(res.Failures, tier.Failure{Path: f.Path, Reason: reason})
			metricFilesFailed.WithLabelValues("restore").Inc()
			continue
		}
		res.Moved = append(res.Moved, rec)
		metricFilesRestored.Inc()
		metricBytesRestored.Add(float64(rec.Size))
	}

	if err := e.journal.RecordMovements(res.Moved); err != nil {
		return res, err
	}
	return res, nil
}

func (e *Executor) restoreOne(ctx context.Context, f tier.FileMeta) (tier.MovementRecord, string) {
	ctx, cancel := context.WithTimeout(ctx, e.fileTimeout)
	defer cancel()

	archived := tier.NormalizePath(f.Path)
	original, accessed, modified, created, reason := e.resolveOriginal(archived, f)
	if reason != "" {
		return tier.MovementRecord{}, reason
	}

	if r := e.probe(ctx, archived); r != "" {
		return tier.MovementRecord{}, r
	}
	info, err := e.service.Stat(ctx, archived)
	if err != nil {
		return tier.MovementRecord{}, e.classify(ctx, err, ReasonSourceNotFound)
	}

	staged, err := e.stage(ctx, archived, info.Size)
	if err != nil {
		return tier.MovementRecord{}, e.classify(ctx, err, ReasonDownloadFailed)
	}
	defer os.Remove(staged)

	if err := e.upload(ctx, staged, original); err != nil {
		return tier.MovementRecord{}, e.classify(ctx, err, ReasonUploadFailed)
	}

	if err := e.service.Chtimes(ctx, original, accessed, modified); err != nil {
		slog.Warn("Restoring timestamps failed", slog.String("path", original), slogutil.Error(err))
	}

	// The restored copy is authoritative now; a failed archive-side delete
	// leaves an orphan, not a broken restore.
	if err := e.service.Remove(ctx, archived); err != nil {
		slog.Warn("Deleting archive copy failed", slog.String("path", archived), slogutil.Error(err))
	}
	if err := e.service.Remove(ctx, tier.StubPath(original)); err != nil && !fileservice.IsNotExist(err) {
		slog.Warn("Deleting launcher stub failed", slog.String("path", tier.StubPath(original)), slogutil.Error(err))
	}
	e.lookup.Remove(archived)

	return tier.MovementRecord{
		SourcePath: archived,
		DestPath:   original,
		Created:    created,
		Accessed:   accessed,
		Modified:   modified,
		Size:       info.Size,
		Action:     tier.ActionRestoredFromArchive,
		When:       time.Now().UTC(),
	}, ""
}

// resolveOriginal finds the data-side target and the preserved timestamps
// for an archived file: the journal record wins, the plan's own metadata
// is the fallback.
func (e *Executor) resolveOriginal(archived string, f tier.FileMeta) (original string, accessed, modified, created time.Time, reason string) {
	rec, ok := e.lookup.Get(archived)
	if !ok {
		var err error
		rec, ok, err = e.journal.LookupOriginal(archived)
		if err != nil {
			return "", time.Time{}, time.Time{}, time.Time{}, fmt.Sprintf("%s: %v", ReasonFatal, err)
		}
		if ok {
			e.lookup.Add(archived, rec)
		}
	}
	if ok {
		return tier.NormalizePath(rec.SourcePath), rec.Accessed, rec.Modified, rec.Created, ""
	}
	if f.OriginalPath != "" && f.OriginalPath != archived {
		return tier.NormalizePath(f.OriginalPath), f.Accessed, f.Modified, f.Created, ""
	}
	return "", time.Time{}, time.Time{}, time.Time{}, ReasonNoJournalRecord
}

// probe verifies the file opens for reading and yields at least one byte.
func (e *Executor) probe(ctx context.Context, path string) string {
	rc, err := e.service.Open(ctx, path)
	if err != nil {
		return e.classify(ctx, err, ReasonPermissionDenied)
	}
	defer rc.Close()
	buf := make([]byte, 1)
	if _, err := rc.Read(buf); err != nil && err != io.EOF {
		return e.classify(ctx, err, ReasonPermissionDenied)
	}
	return ""
}

// stage downloads the remote file into a fresh staging file and returns
// its path. The caller removes it.
func (e *Executor) stage(ctx context.Context, src string, size int64) (string, error) {
	if usage, err := disk.Usage(e.stagingDir); err == nil && uint64(size) > usage.Free {
		return "", errStagingSpace
	}

	rc, err := e.service.Open(ctx, src)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(e.stagingDir, "coldmove-*.staging")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func (e *Executor) upload(ctx context.Context, staged, dest string) error {
	in, err := os.Open(staged)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := e.service.Create(ctx, dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// writeStub leaves a launcher at the original path that opens the archived
// copy with the OS default handler.
func (e *Executor) writeStub(ctx context.Context, original, dest string) error {
	w, err := e.service.Create(ctx, tier.StubPath(original))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "@echo off\nstart \"\" \"%s\"\n", dest); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// classify maps an error to a failure reason, giving deadline expiry and
// permission problems precedence over the stage's default reason.
func (e *Executor) classify(ctx context.Context, err error, fallback string) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ReasonTimeout
	case fileservice.IsPermission(err):
		return ReasonPermissionDenied
	case fileservice.IsNotExist(err) && fallback == ReasonPermissionDenied:
		return ReasonSourceNotFound
	case errors.Is(err, errStagingSpace):
		return fmt.Sprintf("%s: %s", ReasonDownloadFailed, reasonStagingSpace)
	default:
		return fmt.Sprintf("%s: %v", fallback, err)
	}
}
