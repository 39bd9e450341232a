// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package scanner

import (
	"context"
	"log/slog"
	"time"

	"github.com/coldmove/coldmove/internal/fileservice"
	"github.com/coldmove/coldmove/internal/slogutil"
	"github.com/coldmove/coldmove/internal/tier"
)

// ArchiveWalker lists the contents of an archive share. Files whose last
// access is newer than the restore cutoff are restorable: someone touched
// them, so they belong back on the data side.
type ArchiveWalker struct {
	Share   tier.ShareDescriptor
	Service fileservice.Client
	// RestoreDays is the access-age below which an archived file counts
	// as recently touched.
	RestoreDays int
	Now         time.Time
}

// Walk returns every file on the archive share and the restorable subset.
// Both carry Source == tier.SourceArchive.
func (w *ArchiveWalker) Walk(ctx context.Context) (existing, restorable []tier.FileMeta, err error) {
	if w.Share.Endpoint == "" || w.Share.ArchiveShare == "" {
		return nil, nil, nil
	}

	now := w.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	cutoff := now.AddDate(0, 0, -w.RestoreDays)

	root := tier.JoinPath(`\\`+w.Share.Endpoint, w.Share.ArchiveShare)
	walkErr := w.Service.Walk(ctx, root, func(path string, info fileservice.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			slog.Warn("Skipping unreadable archive entry", slog.String("path", path), slogutil.Error(err))
			return nil
		}
		if info.IsDir || tier.IsStub(path) {
			return nil
		}

		accessed := info.Accessed.UTC()
		if accessed.After(now) {
			accessed = now
		}
		meta := tier.FileMeta{
			Path:     tier.NormalizePath(path),
			Size:     info.Size,
			Created:  info.Created.UTC(),
			Accessed: accessed,
			Modified: info.Modified.UTC(),
			Source:   tier.SourceArchive,
		}
		existing = append(existing, meta)
		if accessed.After(cutoff) {
			restorable = append(restorable, meta)
		}
		return nil
	})
	if walkErr != nil {
		if ctx.Err() != nil {
			return nil, nil, walkErr
		}
		slog.Warn("Archive walk failed", slog.String("share", w.Share.ArchiveShare), slogutil.Error(walkErr))
		return nil, nil, nil
	}
	return existing, restorable, nil
}
