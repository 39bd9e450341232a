// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coldmove/coldmove/internal/slogutil"
)

const defaultMaintenanceInterval = 24 * time.Hour

// Service runs periodic database maintenance: checkpointing the WAL and
// letting the query planner re-optimize. It implements suture.Service.
type Service struct {
	sdb                 *DB
	maintenanceInterval time.Duration
	start               chan chan error
}

func (s *Service) String() string {
	return fmt.Sprintf("journal.Service@%p", s)
}

// Service returns the maintenance service for the database. A zero
// interval uses the default of one day.
func (s *DB) Service(maintenanceInterval time.Duration) *Service {
	if maintenanceInterval == 0 {
		maintenanceInterval = defaultMaintenanceInterval
	}
	return &Service{
		sdb:                 s,
		maintenanceInterval: maintenanceInterval,
		start:               make(chan chan error),
	}
}

// StartMaintenance triggers a maintenance run outside the periodic
// schedule. The returned channel yields the run's result.
func (s *Service) StartMaintenance() <-chan error {
	finishChan := make(chan error, 1)
	select {
	case s.start <- finishChan:
	default:
	}
	return finishChan
}

func (s *Service) Serve(ctx context.Context) error {
	// First run shortly after start, to spread start load.
	timer := time.NewTimer(time.Minute)
	defer timer.Stop()

	for {
		var finishChan chan error
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		case finishChan = <-s.start:
		}

		err := s.periodic(ctx)
		if finishChan != nil {
			finishChan <- err
		}
		if err != nil {
			slog.WarnContext(ctx, "Periodic journal maintenance failed", slogutil.Error(err))
			return wrap(err)
		}

		timer.Reset(s.maintenanceInterval)
	}
}

func (s *Service) periodic(ctx context.Context) error {
	t0 := time.Now()
	defer func() {
		slog.DebugContext(ctx, "Journal maintenance done", slog.Duration("runtime", time.Since(t0)))
	}()

	s.sdb.updateLock.Lock()
	defer s.sdb.updateLock.Unlock()
	metricMaintenanceRuns.Inc()
	return s.sdb.vacuumAndOptimize()
}
