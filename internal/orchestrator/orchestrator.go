// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package orchestrator drives the tiering pipeline: on every tick it
// evaluates each share, plans movements for the ones that score above the
// mode's threshold, and hands the plans to the executor. Shares are
// processed by a bounded worker pool; per-path leases keep two workers off
// the same file.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/coldmove/coldmove/internal/config"
	"github.com/coldmove/coldmove/internal/fileservice"
	"github.com/coldmove/coldmove/internal/journal"
	"github.com/coldmove/coldmove/internal/migrate"
	"github.com/coldmove/coldmove/internal/semaphore"
	"github.com/coldmove/coldmove/internal/slogutil"
	"github.com/coldmove/coldmove/internal/telemetry"
	"github.com/coldmove/coldmove/internal/tier"
)

const (
	defaultInterval   = 24 * time.Hour
	defaultMaxWorkers = 4

	reasonCooldown = "In cooldown window"
	reasonScores   = "Feature vector analysis"
)

// Options tune the orchestrator. The zero value is usable.
type Options struct {
	// Interval between scheduled ticks.
	Interval time.Duration
	// MaxWorkers bounds concurrent share processing.
	MaxWorkers int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type Orchestrator struct {
	cfg      *config.Wrapper
	provider telemetry.Provider
	service  fileservice.Client
	db       *journal.DB
	exec     *migrate.Executor

	interval   time.Duration
	maxWorkers int
	now        func() time.Time

	// leases hold the paths currently being migrated, across all share
	// workers. A file under lease is skipped by any other batch.
	leases  *xsync.MapOf[string, struct{}]
	trigger chan chan tickResponse

	decisionsMut sync.Mutex
	decisions    []tier.DecisionLogEntry
}

// maxDecisionLog bounds the in-memory decision history served by the API.
const maxDecisionLog = 1000

type tickResponse struct {
	entries []tier.DecisionLogEntry
	err     error
}

func New(cfg *config.Wrapper, provider telemetry.Provider, service fileservice.Client, db *journal.DB, exec *migrate.Executor, opts Options) *Orchestrator {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = defaultMaxWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		cfg:        cfg,
		provider:   provider,
		service:    service,
		db:         db,
		exec:       exec,
		interval:   opts.Interval,
		maxWorkers: opts.MaxWorkers,
		now:        opts.Now,
		leases:     xsync.NewMapOf[string, struct{}](),
		trigger:    make(chan chan tickResponse),
	}
}

func (o *Orchestrator) String() string {
	return fmt.Sprintf("orchestrator.Orchestrator@%p", o)
}

// TriggerScan requests a tick outside the schedule. The returned channel
// yields the tick's decision log.
func (o *Orchestrator) TriggerScan() <-chan []tier.DecisionLogEntry {
	resp := make(chan tickResponse, 1)
	out := make(chan []tier.DecisionLogEntry, 1)
	go func() {
		select {
		case o.trigger <- resp:
			r := <-resp
			out <- r.entries
		case <-time.After(time.Minute):
			out <- nil
		}
	}()
	return out
}

// Serve runs scheduled ticks until the context is cancelled. It implements
// suture.Service.
func (o *Orchestrator) Serve(ctx context.Context) error {
	// First tick shortly after start.
	timer := time.NewTimer(time.Minute)
	defer timer.Stop()

	for {
		var resp chan tickResponse
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		case resp = <-o.trigger:
		}

		entries, err := o.RunTick(ctx)
		if resp != nil {
			resp <- tickResponse{entries: entries, err: err}
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.WarnContext(ctx, "Tick failed", slogutil.Error(err))
		}

		timer.Reset(o.interval)
	}
}

// RunTick processes every share once under a configuration snapshot taken
// now. A share's failure never aborts the tick; the error return covers
// share enumeration only.
func (o *Orchestrator) RunTick(ctx context.Context) ([]tier.DecisionLogEntry, error) {
	t0 := o.now()
	snap := o.cfg.Snapshot()
	modeName, mc := snap.ModeFor(snap.Mode)

	shares, err := o.provider.Shares(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate shares: %w", err)
	}
	slog.InfoContext(ctx, "Tick started", slog.Int("shares", len(shares)), slog.String("mode", modeName))

	entries := make([]tier.DecisionLogEntry, len(shares))
	sem := semaphore.New(o.maxWorkers)
	var wg sync.WaitGroup
	started := 0
	for i, share := range shares {
		if err := sem.TakeWithContext(ctx); err != nil {
			break
		}
		started = i + 1
		i, share := i, share
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Give()
			entries[i] = o.processShare(ctx, snap, modeName, mc, share, false)
		}()
	}
	wg.Wait()
	// On cancellation mid-enumeration the tail of the slice was never
	// dispatched; only actually produced entries are reported.
	entries = entries[:started]

	o.recordDecisions(entries)
	metricTicks.Inc()
	metricTickSeconds.Observe(time.Since(t0).Seconds())
	slog.InfoContext(ctx, "Tick finished", slog.Duration("runtime", time.Since(t0)))
	return entries, ctx.Err()
}

// RecentDecisions returns the retained decision log entries, newest first.
func (o *Orchestrator) RecentDecisions(limit int) []tier.DecisionLogEntry {
	o.decisionsMut.Lock()
	defer o.decisionsMut.Unlock()
	if limit <= 0 || limit > len(o.decisions) {
		limit = len(o.decisions)
	}
	out := make([]tier.DecisionLogEntry, limit)
	for i := 0; i < limit; i++ {
		out[i] = o.decisions[len(o.decisions)-1-i]
	}
	return out
}

func (o *Orchestrator) recordDecisions(entries []tier.DecisionLogEntry) {
	o.decisionsMut.Lock()
	o.decisions = append(o.decisions, entries...)
	if len(o.decisions) > maxDecisionLog {
		o.decisions = o.decisions[len(o.decisions)-maxDecisionLog:]
	}
	o.decisionsMut.Unlock()
}
