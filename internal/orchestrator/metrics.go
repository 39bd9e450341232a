// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "coldmove",
		Subsystem: "orchestrator",
		Name:      "ticks_total",
		Help:      "Total number of orchestrator ticks run",
	})
	metricTickSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "coldmove",
		Subsystem: "orchestrator",
		Name:      "tick_seconds",
		Help:      "Tick runtime in seconds",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})
	metricSharesInCooldown = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "coldmove",
		Subsystem: "orchestrator",
		Name:      "cooldown_skips_total",
		Help:      "Total number of share evaluations short-circuited by cooldown",
	})
)
