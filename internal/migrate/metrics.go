// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package migrate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFilesArchived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "coldmove",
		Subsystem: "migrate",
		Name:      "files_archived_total",
		Help:      "Total number of files moved to archive shares",
	})
	metricFilesRestored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "coldmove",
		Subsystem: "migrate",
		Name:      "files_restored_total",
		Help:      "Total number of files restored from archive shares",
	})
	metricBytesArchived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "coldmove",
		Subsystem: "migrate",
		Name:      "bytes_archived_total",
		Help:      "Total bytes moved to archive shares",
	})
	metricBytesRestored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "coldmove",
		Subsystem: "migrate",
		Name:      "bytes_restored_total",
		Help:      "Total bytes restored from archive shares",
	})
	metricFilesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coldmove",
		Subsystem: "migrate",
		Name:      "files_failed_total",
		Help:      "Total number of failed single-file migrations, per direction",
	}, []string{"direction"})
)
