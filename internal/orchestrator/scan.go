// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/coldmove/coldmove/internal/config"
	"github.com/coldmove/coldmove/internal/migrate"
	"github.com/coldmove/coldmove/internal/planner"
	"github.com/coldmove/coldmove/internal/scanner"
	"github.com/coldmove/coldmove/internal/scoring"
	"github.com/coldmove/coldmove/internal/slogutil"
	"github.com/coldmove/coldmove/internal/telemetry"
	"github.com/coldmove/coldmove/internal/tier"
)

// evaluation bundles what one share walk and scoring pass produced.
type evaluation struct {
	stats      tier.ScanStats
	vector     scoring.Vector
	shouldScan bool
	existing   []tier.FileMeta
	restorable []tier.FileMeta
}

// processShare runs the full pipeline for one share: cooldown check,
// walk, score, plan, execute, journal. It always returns a decision log
// entry and never panics the tick.
func (o *Orchestrator) processShare(ctx context.Context, snap config.Configuration, modeName string, mc config.ModeConfig, share tier.ShareDescriptor, byUser bool) (entry tier.DecisionLogEntry) {
	now := o.now().UTC()
	entry = tier.DecisionLogEntry{Share: share.Share, Reason: reasonScores, When: now}
	log := slog.With(slog.String("share", share.Share))

	window := time.Duration(mc.Thresholds.MinHoursBetweenScan * float64(time.Hour))
	if in, err := o.db.InCooldown(share.Share, window, now); err != nil {
		log.Warn("Cooldown check failed", slogutil.Error(err))
		entry.Reason = "cooldown check failed: " + err.Error()
		return entry
	} else if in {
		entry.Reason = reasonCooldown
		o.recordEvaluation(tier.EvaluationRecord{
			Share:      share.Share,
			Volume:     share.Volume,
			Mode:       modeName,
			ShouldScan: false,
			Score:      0,
			Reason:     reasonCooldown,
			When:       now,
		})
		metricSharesInCooldown.Inc()
		return entry
	}

	ev, err := o.evaluate(ctx, snap, mc, share, now)
	if err != nil {
		log.Warn("Share evaluation failed", slogutil.Error(err))
		entry.Reason = "evaluation failed: " + err.Error()
		// The decision log in the journal covers failed passes too.
		o.recordEvaluation(tier.EvaluationRecord{
			Share:      share.Share,
			Volume:     share.Volume,
			Mode:       modeName,
			ShouldScan: false,
			Score:      0,
			Reason:     entry.Reason,
			When:       now,
		})
		return entry
	}

	entry.ShouldScan = ev.shouldScan
	entry.Score = ev.vector.Score

	o.recordEvaluation(tier.EvaluationRecord{
		Share:          share.Share,
		Volume:         share.Volume,
		Mode:           modeName,
		ShouldScan:     ev.shouldScan,
		Score:          ev.vector.Score,
		Reason:         reasonScores,
		RawScores:      ev.vector.Raw,
		WeightedScores: ev.vector.Weighted,
		ColdFiles:      len(ev.stats.ColdFiles),
		RestoreFiles:   len(ev.restorable),
		When:           now,
	})

	var archived, restored migrate.Result
	if ev.shouldScan {
		freeBytes, _, err := o.provider.ArchiveFree(ctx, share.Share)
		if err != nil {
			log.Warn("Archive free-space lookup failed", slogutil.Error(err))
			freeBytes = 0
		}

		plan, err := planner.Build(planner.Input{
			Share:           share,
			ColdFiles:       ev.stats.ColdFiles,
			ExistingArchive: ev.existing,
			Restorable:      ev.restorable,
			FreeBytes:       freeBytes,
			Blacklist:       snap.Blacklist,
		})
		if err != nil {
			log.Warn("Planning failed", slogutil.Error(err))
		} else {
			restored, archived = o.executePlan(ctx, share, plan)
		}
	}

	// The summary stamps the share's last scan time; cooldown runs from
	// here.
	summary := tier.ScanSummaryRecord{
		Share:         share.Share,
		FilesScanned:  ev.stats.TotalFiles,
		FilesArchived: len(archived.Moved),
		FilesRestored: len(restored.Moved),
		ByUser:        byUser,
		When:          now,
	}
	if err := o.db.RecordSummary(summary); err != nil {
		log.Warn("Recording scan summary failed", slogutil.Error(err))
	}

	entry.ArchiveSuccess = len(archived.Moved)
	entry.RestoreSuccess = len(restored.Moved)
	entry.ArchiveFailed = len(archived.Failures)
	entry.RestoreFailed = len(restored.Failures)
	for _, rec := range archived.Moved {
		entry.ArchivedFiles = append(entry.ArchivedFiles, rec.SourcePath)
	}
	for _, rec := range restored.Moved {
		entry.RestoredFiles = append(entry.RestoredFiles, rec.DestPath)
	}
	entry.Failures = append(entry.Failures, archived.Failures...)
	entry.Failures = append(entry.Failures, restored.Failures...)

	log.Info("Share processed",
		slog.Bool("shouldScan", ev.shouldScan),
		slog.Float64("score", ev.vector.Score),
		slog.Int("archived", len(archived.Moved)),
		slog.Int("restored", len(restored.Moved)),
		slog.Int("failed", len(archived.Failures)+len(restored.Failures)))
	return entry
}

// evaluate walks the share and its archive, gathers telemetry and scores
// the result. Telemetry failures degrade to zeroed inputs rather than
// failing the share.
func (o *Orchestrator) evaluate(ctx context.Context, snap config.Configuration, mc config.ModeConfig, share tier.ShareDescriptor, now time.Time) (evaluation, error) {
	walker := &scanner.Walker{
		Share:     share,
		Service:   o.service,
		Blacklist: snap.Blacklist,
		ColdDays:  mc.Thresholds.MinColdFileAgeDays,
		OldDays:   mc.Thresholds.MinOldFileAgeDays,
		Now:       now,
	}
	stats, err := walker.Walk(ctx)
	if err != nil {
		return evaluation{}, err
	}

	var space telemetry.SpaceMetrics
	if m, err := o.provider.Capacity(ctx, share.Volume); err != nil {
		slog.Warn("Capacity telemetry unavailable", slog.String("volume", share.Volume), slogutil.Error(err))
	} else {
		space = m
	}
	var perf telemetry.PerfMetrics
	if m, err := o.provider.Performance(ctx, share.Share); err != nil {
		slog.Warn("Performance telemetry unavailable", slog.String("share", share.Share), slogutil.Error(err))
	} else {
		perf = m
	}
	stats.FullnessPct = space.PercentUsed

	aw := &scanner.ArchiveWalker{
		Share:       share,
		Service:     o.service,
		RestoreDays: mc.Thresholds.MinColdFileAgeDays,
		Now:         now,
	}
	existing, restorable, err := aw.Walk(ctx)
	if err != nil {
		return evaluation{}, err
	}
	o.resolveOriginals(existing)
	o.resolveOriginals(restorable)
	stats.RestorableCount = len(restorable)

	prefix := tier.JoinPath(`\\`+share.Endpoint, share.Share) + `\`
	if n, err := o.db.UniqueArchivedCount(prefix); err != nil {
		slog.Warn("Unique archived count failed", slog.String("share", share.Share), slogutil.Error(err))
	} else {
		stats.UniqueArchivedHist = n
	}

	vector := scoring.Evaluate(scoring.Inputs{
		TotalFiles:        stats.TotalFiles,
		TotalSize:         stats.TotalSize,
		ColdCount:         len(stats.ColdFiles),
		OldCount:          stats.OldFileCount,
		BlacklistRatioPct: stats.BlacklistRatioPct,
		FullnessPct:       space.PercentUsed,
		FullnessKnown:     space.Known,
		IOPS:              perf.IOPS,
		LatencyMs:         perf.LatencyMs,
		RestorableCount:   len(restorable),
		SizeAccessRatio:   stats.SizeAccessRatio,
	}, mc)

	return evaluation{
		stats:      stats,
		vector:     vector,
		shouldScan: scoring.ShouldScan(vector, mc),
		existing:   existing,
		restorable: restorable,
	}, nil
}

// resolveOriginals fills each archive-side file's original path and
// preserved timestamps from the journal, where known.
func (o *Orchestrator) resolveOriginals(files []tier.FileMeta) {
	for i := range files {
		rec, ok, err := o.db.LookupOriginal(files[i].Path)
		if err != nil || !ok {
			continue
		}
		files[i].OriginalPath = rec.SourcePath
		files[i].Created = rec.Created
		files[i].Modified = rec.Modified
	}
}

// executePlan runs restores before archives: restoring frees data-side
// room first. Files already under lease by another worker are dropped
// from this batch and picked up on a later tick.
func (o *Orchestrator) executePlan(ctx context.Context, share tier.ShareDescriptor, plan planner.Plan) (restored, archived migrate.Result) {
	restores := o.acquireLeases(plan.RestoreCandidates)
	archives := o.acquireLeases(plan.ArchiveCandidates)
	defer o.releaseLeases(restores)
	defer o.releaseLeases(archives)

	if len(restores) > 0 {
		res, err := o.exec.Restore(ctx, restores)
		if err != nil {
			slog.Warn("Restore batch journal commit failed", slog.String("share", share.Share), slogutil.Error(err))
		}
		restored = res
	}
	if len(archives) > 0 {
		res, err := o.exec.Archive(ctx, share, archives)
		if err != nil {
			slog.Warn("Archive batch journal commit failed", slog.String("share", share.Share), slogutil.Error(err))
		}
		archived = res
	}
	return restored, archived
}

func (o *Orchestrator) acquireLeases(files []tier.FileMeta) []tier.FileMeta {
	granted := files[:0:0]
	for _, f := range files {
		key := tier.NormalizePath(f.Path)
		if _, loaded := o.leases.LoadOrStore(key, struct{}{}); loaded {
			slog.Debug("Path under lease, skipping this batch", slog.String("path", f.Path))
			continue
		}
		granted = append(granted, f)
	}
	return granted
}

func (o *Orchestrator) releaseLeases(files []tier.FileMeta) {
	for _, f := range files {
		o.leases.Delete(tier.NormalizePath(f.Path))
	}
}

func (o *Orchestrator) recordEvaluation(rec tier.EvaluationRecord) {
	if err := o.db.RecordEvaluation(rec); err != nil {
		slog.Warn("Recording evaluation failed", slog.String("share", rec.Share), slogutil.Error(err))
	}
}
