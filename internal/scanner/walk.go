// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scanner walks a share and collects per-file metadata and the
// aggregate counters that feed scoring: cold and old files, blacklist
// density and totals.
package scanner

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/coldmove/coldmove/internal/fileservice"
	"github.com/coldmove/coldmove/internal/slogutil"
	"github.com/coldmove/coldmove/internal/tier"
)

// defaultSizeAccessRatio is the neutral size-vs-recency balance used when
// no precomputed value is available.
const defaultSizeAccessRatio = 0.5

type Walker struct {
	// Share identifies the share to walk; its Endpoint must resolve.
	Share tier.ShareDescriptor
	// Service is the remote file service.
	Service fileservice.Client
	// Blacklist tokens exclude any directory whose path contains one,
	// case-insensitively. Excluded directories and the files beneath them
	// are counted but not scanned.
	Blacklist []string
	// ColdDays and OldDays are the mode's age thresholds.
	ColdDays int
	OldDays  int
	// Now overrides the reference time, for tests.
	Now time.Time
}

// Walk traverses the share and returns its statistics. Unreadable files
// and directories are logged and skipped; they never abort the walk. A
// walker whose share has no endpoint returns empty stats.
func (w *Walker) Walk(ctx context.Context) (tier.ScanStats, error) {
	stats := tier.ScanStats{SizeAccessRatio: defaultSizeAccessRatio}
	if w.Share.Endpoint == "" || w.Share.Share == "" {
		slog.Warn("Share has no resolvable endpoint, skipping walk", slog.String("share", w.Share.Share))
		return stats, nil
	}

	now := w.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	coldCutoff := now.AddDate(0, 0, -w.ColdDays)
	oldCutoff := now.AddDate(0, 0, -w.OldDays)

	root := tier.JoinPath(`\\`+w.Share.Endpoint, w.Share.Share)
	var skipRoots []string

	err := w.Service.Walk(ctx, root, func(path string, info fileservice.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			slog.Warn("Skipping unreadable entry", slog.String("path", path), slogutil.Error(err))
			return nil
		}

		if underAny(path, skipRoots) {
			if !info.IsDir {
				stats.BlacklistedFiles++
			}
			return nil
		}

		if tier.Blacklisted(path, w.Blacklist) {
			if info.IsDir {
				stats.BlacklistedDirs++
				skipRoots = append(skipRoots, path+`\`)
			} else {
				stats.BlacklistedFiles++
			}
			return nil
		}

		if info.IsDir {
			return nil
		}
		if tier.IsStub(path) {
			return nil
		}

		stats.TotalFiles++
		stats.TotalSize += info.Size

		// A future access time reads as "accessed now" to avoid negative
		// ages on skewed clocks.
		accessed := info.Accessed.UTC()
		if accessed.After(now) {
			accessed = now
		}
		modified := info.Modified.UTC()
		if modified.After(now) {
			modified = now
		}

		if !accessed.After(coldCutoff) {
			stats.ColdFiles = append(stats.ColdFiles, tier.FileMeta{
				Path:     tier.NormalizePath(path),
				Size:     info.Size,
				Created:  info.Created.UTC(),
				Accessed: accessed,
				Modified: modified,
				Source:   tier.SourceData,
			})
		}
		if !accessed.After(oldCutoff) && !modified.After(oldCutoff) {
			stats.OldFileCount++
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return stats, err
		}
		slog.Warn("Walk failed", slog.String("share", w.Share.Share), slogutil.Error(err))
		return tier.ScanStats{SizeAccessRatio: defaultSizeAccessRatio}, nil
	}

	if denom := stats.TotalFiles + stats.BlacklistedFiles; denom > 0 {
		stats.BlacklistRatioPct = float64(stats.BlacklistedFiles) / float64(denom) * 100
	}
	return stats, nil
}

func underAny(path string, roots []string) bool {
	for _, root := range roots {
		if strings.HasPrefix(path, root) {
			return true
		}
	}
	return false
}
