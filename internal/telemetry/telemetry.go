// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package telemetry abstracts the storage-array telemetry provider:
// per-volume capacity, IOPS and latency, and the share to volume and share
// to archive-share mappings.
package telemetry

import (
	"context"
	"errors"

	"github.com/coldmove/coldmove/internal/tier"
)

// ErrUnavailable indicates the provider could not be reached. Callers
// degrade to zeroed inputs; the scorer treats missing capacity as unknown.
var ErrUnavailable = errors.New("telemetry unavailable")

// SpaceMetrics is the capacity state of one volume. Known is false when the
// provider had no data, in which case the fullness feature scores zero.
type SpaceMetrics struct {
	Size        int64   `json:"size"`
	Used        int64   `json:"used"`
	PercentUsed float64 `json:"percentUsed"`
	Known       bool    `json:"known"`
}

// PerfMetrics is the performance state of one share's volume. Zero values
// read as idle.
type PerfMetrics struct {
	IOPS      float64 `json:"iops"`
	LatencyMs float64 `json:"latencyMs"`
}

// Provider is the storage-array telemetry source.
type Provider interface {
	// Shares enumerates the configured data shares with their paired
	// archive shares.
	Shares(ctx context.Context) ([]tier.ShareDescriptor, error)
	// Capacity reports size and usage for a volume.
	Capacity(ctx context.Context, volume string) (SpaceMetrics, error)
	// Performance reports IOPS and latency for the volume behind a share.
	Performance(ctx context.Context, share string) (PerfMetrics, error)
	// ArchiveFree reports the free bytes on the archive share paired with
	// the given data share, and the archive volume's name.
	ArchiveFree(ctx context.Context, share string) (int64, string, error)
}
