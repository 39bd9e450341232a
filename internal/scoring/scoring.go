// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scoring turns per-share telemetry and scan statistics into a scan
// score. The scorer is a pure function over the mode's weights and
// thresholds: same inputs, same output.
package scoring

import (
	"math"

	"github.com/coldmove/coldmove/internal/config"
)

// Feature names, in evaluation order.
const (
	FeatSmallVolume     = "small_volume"
	FeatIOPS            = "iops"
	FeatLatency         = "latency"
	FeatFullness        = "fullness"
	FeatColdRatio       = "cold_ratio"
	FeatOldRatio        = "old_ratio"
	FeatBlacklist       = "blacklist"
	FeatRestore         = "restore"
	FeatSizeAccessRatio = "size_access_ratio"
)

// featureOrder fixes the summation order so the score is bit-for-bit
// reproducible for the same inputs.
var featureOrder = []string{
	FeatSmallVolume,
	FeatIOPS,
	FeatLatency,
	FeatFullness,
	FeatColdRatio,
	FeatOldRatio,
	FeatBlacklist,
	FeatRestore,
	FeatSizeAccessRatio,
}

// Inputs are the raw signals for one share. Zero IOPS and latency read as
// idle; FullnessKnown false means capacity telemetry was missing and the
// fullness feature contributes nothing.
type Inputs struct {
	TotalFiles        int
	TotalSize         int64
	ColdCount         int
	OldCount          int
	BlacklistRatioPct float64
	FullnessPct       float64
	FullnessKnown     bool
	IOPS              float64
	LatencyMs         float64
	RestorableCount   int
	SizeAccessRatio   float64
}

// Vector is the scored feature decomposition. Score is the sum of the
// weighted contributions, rounded to four decimals.
type Vector struct {
	Raw      map[string]float64 `json:"raw"`
	Weighted map[string]float64 `json:"weighted"`
	Score    float64            `json:"score"`
}

const gib = 1 << 30

// Evaluate computes the feature vector for the given inputs under the
// given mode.
func Evaluate(in Inputs, mc config.ModeConfig) Vector {
	th := mc.Thresholds
	w := mc.Weights

	raw := make(map[string]float64, 9)

	if float64(in.TotalSize) >= th.SmallVolumeGB*gib {
		raw[FeatSmallVolume] = 1
	} else {
		raw[FeatSmallVolume] = 0
	}

	raw[FeatIOPS] = idleScore(in.IOPS, th.IOPSIdle)
	raw[FeatLatency] = idleScore(in.LatencyMs, th.LatencyIdleMs)

	if in.FullnessKnown {
		raw[FeatFullness] = clamp01(in.FullnessPct / 100)
	} else {
		raw[FeatFullness] = 0
	}

	if in.TotalFiles > 0 {
		raw[FeatColdRatio] = clamp01(float64(in.ColdCount) / float64(in.TotalFiles))
		raw[FeatOldRatio] = clamp01(float64(in.OldCount) / float64(in.TotalFiles))
		raw[FeatRestore] = 1 - clamp01(float64(in.RestorableCount)/float64(in.TotalFiles))
	} else {
		raw[FeatColdRatio] = 0
		raw[FeatOldRatio] = 0
		raw[FeatRestore] = 1
	}

	raw[FeatBlacklist] = clamp01(in.BlacklistRatioPct / 100)
	raw[FeatSizeAccessRatio] = clamp01(in.SizeAccessRatio)

	weighted := map[string]float64{
		FeatSmallVolume:     w.SmallVolume * raw[FeatSmallVolume],
		FeatIOPS:            w.IOPS * raw[FeatIOPS],
		FeatLatency:         w.Latency * raw[FeatLatency],
		FeatFullness:        w.Fullness * raw[FeatFullness],
		FeatColdRatio:       w.ColdFileRatio * raw[FeatColdRatio],
		FeatOldRatio:        w.OldFileRatio * raw[FeatOldRatio],
		FeatBlacklist:       w.BlacklistRatio * raw[FeatBlacklist],
		FeatRestore:         w.RestorePressure * raw[FeatRestore],
		FeatSizeAccessRatio: w.SizeAccessRatio * raw[FeatSizeAccessRatio],
	}

	var sum float64
	for _, name := range featureOrder {
		sum += weighted[name]
	}

	return Vector{
		Raw:      raw,
		Weighted: weighted,
		Score:    round4(sum),
	}
}

// ShouldScan applies the mode's scan score threshold.
func ShouldScan(v Vector, mc config.ModeConfig) bool {
	return v.Score >= mc.Thresholds.ScanScore
}

// idleScore is high when the measured load is low relative to the idle
// threshold. A zero or negative threshold means the signal is unusable.
func idleScore(measured, idleThreshold float64) float64 {
	if idleThreshold <= 0 || measured < 0 || math.IsNaN(measured) {
		return 0
	}
	return 1 - clamp01(measured/idleThreshold)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 1)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
