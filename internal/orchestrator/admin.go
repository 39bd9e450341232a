// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package orchestrator

import (
	"context"
	"fmt"

	"github.com/coldmove/coldmove/internal/planner"
	"github.com/coldmove/coldmove/internal/tier"
)

// PreviewResult is the admin's dry run: the plan a manual execute would
// carry out, without any movement.
type PreviewResult struct {
	Status            tier.Status     `json:"status"`
	Share             string          `json:"share"`
	ArchiveCandidates []tier.FileMeta `json:"archiveCandidates"`
	RestoreCandidates []tier.FileMeta `json:"restoreCandidates"`
	StayInArchive     []tier.FileMeta `json:"stayInArchive"`
	FreeBytes         int64           `json:"freeBytes"`
}

// ExecuteResult is the outcome of a manual plan execution.
type ExecuteResult struct {
	Status   tier.Status    `json:"status"`
	Share    string         `json:"share"`
	Archived []string       `json:"archived,omitempty"`
	Restored []string       `json:"restored,omitempty"`
	Failures []tier.Failure `json:"failures,omitempty"`
}

// Preview plans movements for one share under the given filters without
// executing anything.
func (o *Orchestrator) Preview(ctx context.Context, shareName string, filters tier.Filters, blacklist []string) (PreviewResult, error) {
	plan, free, scanned, err := o.buildPlan(ctx, shareName, filters, blacklist)
	if err != nil {
		return PreviewResult{Status: tier.StatusError, Share: shareName}, err
	}

	res := PreviewResult{
		Status:            tier.StatusSuccess,
		Share:             shareName,
		ArchiveCandidates: plan.ArchiveCandidates,
		RestoreCandidates: plan.RestoreCandidates,
		StayInArchive:     plan.StayInArchive,
		FreeBytes:         free,
	}
	switch {
	case scanned == 0:
		res.Status = tier.StatusNoFiles
	case plan.Empty() && free <= 0:
		res.Status = tier.StatusNoSpace
	case plan.Empty():
		res.Status = tier.StatusNoMatches
	}
	return res, nil
}

// Execute plans and runs movements for one share under the given filters.
func (o *Orchestrator) Execute(ctx context.Context, shareName string, filters tier.Filters, blacklist []string) (ExecuteResult, error) {
	share, err := o.findShare(ctx, shareName)
	if err != nil {
		return ExecuteResult{Status: tier.StatusError, Share: shareName}, err
	}
	plan, free, scanned, err := o.buildPlan(ctx, shareName, filters, blacklist)
	if err != nil {
		return ExecuteResult{Status: tier.StatusError, Share: shareName}, err
	}

	res := ExecuteResult{Status: tier.StatusSuccess, Share: shareName}
	switch {
	case scanned == 0:
		res.Status = tier.StatusNoFiles
		return res, nil
	case plan.Empty() && free <= 0:
		res.Status = tier.StatusNoSpace
		return res, nil
	case plan.Empty():
		res.Status = tier.StatusNoMatches
		return res, nil
	}

	restored, archived := o.executePlan(ctx, share, plan)
	for _, rec := range archived.Moved {
		res.Archived = append(res.Archived, rec.SourcePath)
	}
	for _, rec := range restored.Moved {
		res.Restored = append(res.Restored, rec.DestPath)
	}
	res.Failures = append(res.Failures, archived.Failures...)
	res.Failures = append(res.Failures, restored.Failures...)

	switch {
	case len(res.Failures) > 0 && len(res.Archived)+len(res.Restored) == 0:
		res.Status = tier.StatusError
	case len(res.Failures) > 0:
		res.Status = tier.StatusPartialSuccess
	}
	return res, nil
}

// ArchivePaths archives the named data-side files directly, bypassing
// planning. Paths that cannot be statted are reported as failures.
func (o *Orchestrator) ArchivePaths(ctx context.Context, shareName string, paths []string) (ExecuteResult, error) {
	share, err := o.findShare(ctx, shareName)
	if err != nil {
		return ExecuteResult{Status: tier.StatusError, Share: shareName}, err
	}

	res := ExecuteResult{Status: tier.StatusSuccess, Share: shareName}
	var files []tier.FileMeta
	for _, p := range paths {
		info, err := o.service.Stat(ctx, p)
		if err != nil {
			res.Failures = append(res.Failures, tier.Failure{Path: p, Reason: "source not found: " + err.Error()})
			continue
		}
		files = append(files, tier.FileMeta{
			Path:     tier.NormalizePath(p),
			Size:     info.Size,
			Created:  info.Created,
			Accessed: info.Accessed,
			Modified: info.Modified,
			Source:   tier.SourceData,
		})
	}
	if len(files) == 0 && len(res.Failures) == 0 {
		res.Status = tier.StatusNoFiles
		return res, nil
	}

	_, archived := o.executePlan(ctx, share, planner.Plan{ArchiveCandidates: files})
	for _, rec := range archived.Moved {
		res.Archived = append(res.Archived, rec.SourcePath)
	}
	res.Failures = append(res.Failures, archived.Failures...)
	switch {
	case len(res.Failures) > 0 && len(res.Archived) == 0:
		res.Status = tier.StatusError
	case len(res.Failures) > 0:
		res.Status = tier.StatusPartialSuccess
	}
	return res, nil
}

// RestorePaths restores the named archive-side files to their journaled
// original locations.
func (o *Orchestrator) RestorePaths(ctx context.Context, paths []string) (ExecuteResult, error) {
	if len(paths) == 0 {
		return ExecuteResult{Status: tier.StatusNoFiles}, nil
	}
	files := make([]tier.FileMeta, len(paths))
	for i, p := range paths {
		files[i] = tier.FileMeta{Path: tier.NormalizePath(p), Source: tier.SourceArchive}
	}

	res := ExecuteResult{Status: tier.StatusSuccess}
	restored, _ := o.executePlan(ctx, tier.ShareDescriptor{}, planner.Plan{RestoreCandidates: files})
	for _, rec := range restored.Moved {
		res.Restored = append(res.Restored, rec.DestPath)
	}
	res.Failures = append(res.Failures, restored.Failures...)
	switch {
	case len(res.Failures) > 0 && len(res.Restored) == 0:
		res.Status = tier.StatusError
	case len(res.Failures) > 0:
		res.Status = tier.StatusPartialSuccess
	}
	return res, nil
}

// ScanShare runs the scheduled pipeline for a single share, on demand.
// Cooldown still applies.
func (o *Orchestrator) ScanShare(ctx context.Context, shareName string) (tier.DecisionLogEntry, error) {
	share, err := o.findShare(ctx, shareName)
	if err != nil {
		return tier.DecisionLogEntry{}, err
	}
	snap := o.cfg.Snapshot()
	modeName, mc := snap.ModeFor(snap.Mode)
	entry := o.processShare(ctx, snap, modeName, mc, share, true)
	o.recordDecisions([]tier.DecisionLogEntry{entry})
	return entry, nil
}

// buildPlan walks the share and its archive under the mode's thresholds
// and plans under the admin's filters. Returns the plan, the archive free
// bytes and the number of files scanned.
func (o *Orchestrator) buildPlan(ctx context.Context, shareName string, filters tier.Filters, blacklist []string) (planner.Plan, int64, int, error) {
	share, err := o.findShare(ctx, shareName)
	if err != nil {
		return planner.Plan{}, 0, 0, err
	}

	snap := o.cfg.Snapshot()
	_, mc := snap.ModeFor(snap.Mode)
	if blacklist == nil {
		blacklist = snap.Blacklist
	}

	ev, err := o.evaluate(ctx, snap, mc, share, o.now().UTC())
	if err != nil {
		return planner.Plan{}, 0, 0, err
	}

	free, _, err := o.provider.ArchiveFree(ctx, share.Share)
	if err != nil {
		free = 0
	}

	plan, err := planner.Build(planner.Input{
		Share:           share,
		ColdFiles:       ev.stats.ColdFiles,
		ExistingArchive: ev.existing,
		Restorable:      ev.restorable,
		FreeBytes:       free,
		Filters:         filters,
		Blacklist:       blacklist,
	})
	if err != nil {
		return planner.Plan{}, 0, 0, err
	}
	scanned := ev.stats.TotalFiles + len(ev.existing)
	return plan, free, scanned, nil
}

func (o *Orchestrator) findShare(ctx context.Context, name string) (tier.ShareDescriptor, error) {
	shares, err := o.provider.Shares(ctx)
	if err != nil {
		return tier.ShareDescriptor{}, err
	}
	for _, s := range shares {
		if s.Share == name {
			return s, nil
		}
	}
	return tier.ShareDescriptor{}, fmt.Errorf("unknown share %q", name)
}
