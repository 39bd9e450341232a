// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package planner decides which files move where. It merges data-side cold
// files with the archive share's contents, applies the admin filters, and
// splits the result into archive candidates, restore candidates and files
// that stay archived, under the archive free-space budget.
package planner

import (
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/coldmove/coldmove/internal/tier"
)

// Input is everything one planning pass needs. ExistingArchive entries
// carry OriginalPath where the journal knows it; Restorable is the subset
// of the archive that was recently touched and must return regardless of
// budget.
type Input struct {
	Share           tier.ShareDescriptor
	ColdFiles       []tier.FileMeta
	ExistingArchive []tier.FileMeta
	Restorable      []tier.FileMeta
	FreeBytes       int64
	Filters         tier.Filters
	Blacklist       []string
}

// Plan is the planner's output. The three sets are disjoint by path.
// RestoreCandidates keep their archive-side path in Path and the data-side
// target in OriginalPath.
type Plan struct {
	ArchiveCandidates []tier.FileMeta
	RestoreCandidates []tier.FileMeta
	StayInArchive     []tier.FileMeta
}

// Empty reports whether the plan calls for no movement at all.
func (p Plan) Empty() bool {
	return len(p.ArchiveCandidates) == 0 && len(p.RestoreCandidates) == 0
}

// Build runs the planning algorithm. It is deterministic: candidate order
// is last-access ascending with path as tie break, and files with an
// unknown access time sort last.
func Build(in Input) (Plan, error) {
	matcher, err := newFilterMatcher(in.Filters)
	if err != nil {
		return Plan{}, err
	}

	var plan Plan
	restorePaths := make(map[string]struct{})

	addRestore := func(f tier.FileMeta) {
		norm := tier.NormalizePath(f.Path)
		if _, dup := restorePaths[norm]; dup {
			return
		}
		restorePaths[norm] = struct{}{}
		if f.OriginalPath == "" {
			f.OriginalPath = f.Path
		}
		f.Source = tier.SourceArchive
		plan.RestoreCandidates = append(plan.RestoreCandidates, f)
	}

	// Recently touched archive files are restored unconditionally.
	for _, f := range in.Restorable {
		addRestore(f)
	}

	merged := make([]tier.FileMeta, 0, len(in.ColdFiles)+len(in.ExistingArchive))
	for _, f := range in.ColdFiles {
		f.Source = tier.SourceData
		merged = append(merged, f)
	}
	for _, f := range in.ExistingArchive {
		f.Source = tier.SourceArchive
		merged = append(merged, f)
	}

	var survivors []tier.FileMeta
	for _, f := range merged {
		if tier.IsStub(f.Path) {
			continue
		}
		if tier.Blacklisted(f.Path, in.Blacklist) {
			// A blacklisted path must not live on the archive side; it is
			// forced back to where it came from. Data-side matches are
			// simply excluded.
			if f.Source == tier.SourceArchive {
				addRestore(f)
			}
			continue
		}
		if !matcher.match(f) {
			// Archive files outside the admin's interest go home too.
			if f.Source == tier.SourceArchive {
				addRestore(f)
			}
			continue
		}
		survivors = append(survivors, f)
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		switch {
		case a.Accessed.IsZero() != b.Accessed.IsZero():
			return !a.Accessed.IsZero() // unknown access time sorts last
		case !a.Accessed.Equal(b.Accessed):
			return a.Accessed.Before(b.Accessed)
		default:
			return a.Path < b.Path
		}
	})

	// Oldest files claim the budget first. Archive-side files that fit stay
	// archived and consume budget; those that don't fit are demoted to
	// restores.
	var usedBytes int64
	for _, f := range survivors {
		if _, restoring := restorePaths[tier.NormalizePath(f.Path)]; restoring {
			continue
		}
		if usedBytes+f.Size <= in.FreeBytes {
			usedBytes += f.Size
			if f.Source == tier.SourceArchive {
				plan.StayInArchive = append(plan.StayInArchive, f)
			} else {
				plan.ArchiveCandidates = append(plan.ArchiveCandidates, f)
			}
			continue
		}
		if f.Source == tier.SourceArchive {
			addRestore(f)
		}
	}

	return plan, nil
}

// filterMatcher evaluates the admin filters against one file. A zero
// Filters value matches everything.
type filterMatcher struct {
	types   []glob.Glob
	dates   map[string]tier.DateRange
	minSize int64
	maxSize int64
}

func newFilterMatcher(f tier.Filters) (*filterMatcher, error) {
	m := &filterMatcher{
		dates:   f.Dates,
		minSize: f.MinSize,
		maxSize: f.MaxSize,
	}
	for _, t := range f.FileTypes {
		pattern := strings.ToLower(t)
		if !strings.ContainsAny(pattern, "*?[{") {
			// A plain extension like ".pdf" means "any name ending in it".
			pattern = "*" + pattern
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		m.types = append(m.types, g)
	}
	return m, nil
}

func (m *filterMatcher) match(f tier.FileMeta) bool {
	if len(m.types) > 0 {
		name := strings.ToLower(tier.BasePath(f.Path))
		any := false
		for _, g := range m.types {
			if g.Match(name) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}

	for axis, rng := range m.dates {
		var when time.Time
		switch axis {
		case "created":
			when = f.Created
		case "accessed":
			when = f.Accessed
		case "modified":
			when = f.Modified
		default:
			continue
		}
		if !rng.Start.IsZero() && when.Before(rng.Start) {
			return false
		}
		if !rng.End.IsZero() && when.After(rng.End) {
			return false
		}
	}

	if f.Size < m.minSize {
		return false
	}
	if m.maxSize > 0 && f.Size > m.maxSize {
		return false
	}
	return true
}
