// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package journal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricMovementsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "coldmove",
		Subsystem: "journal",
		Name:      "movements_recorded_total",
		Help:      "Total number of movement records journaled",
	})
	metricEvaluationsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "coldmove",
		Subsystem: "journal",
		Name:      "evaluations_recorded_total",
		Help:      "Total number of share evaluations journaled",
	})
	metricMaintenanceRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "coldmove",
		Subsystem: "journal",
		Name:      "maintenance_runs_total",
		Help:      "Total number of periodic database maintenance runs",
	})
)
