// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config defines the settings file format and manages loading,
// saving and change notification. A Configuration is an immutable snapshot;
// the orchestrator captures one at the start of each tick and mid-tick
// changes take effect on the next tick.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Well-known mode names. Modes are data, not code; any name present in the
// Modes map is usable.
const (
	ModeDefault = "default"
	ModeEco     = "eco"
	ModeSuper   = "super"
)

type Configuration struct {
	Mode      string                `json:"mode"`
	Blacklist []string              `json:"blacklist"`
	Modes     map[string]ModeConfig `json:"modes"`
}

type ModeConfig struct {
	Weights    Weights    `json:"weights"`
	Thresholds Thresholds `json:"thresholds"`
}

type Weights struct {
	SmallVolume     float64 `json:"small_volume_weight"`
	IOPS            float64 `json:"iops_weight"`
	Latency         float64 `json:"latency_weight"`
	Fullness        float64 `json:"fullness_weight"`
	ColdFileRatio   float64 `json:"cold_file_ratio_weight"`
	OldFileRatio    float64 `json:"old_file_ratio_weight"`
	BlacklistRatio  float64 `json:"blacklist_file_ratio_weight"`
	RestorePressure float64 `json:"restore_pressure_weight"`
	SizeAccessRatio float64 `json:"size_access_ratio_weight"`
}

type Thresholds struct {
	SmallVolumeGB       float64 `json:"small_volume_threshold_gb"`
	IOPSIdle            float64 `json:"iops_idle_threshold"`
	LatencyIdleMs       float64 `json:"latency_idle_threshold_ms"`
	ScanScore           float64 `json:"scan_score_threshold"`
	MinHoursBetweenScan float64 `json:"min_hours_between_scans"`
	MinColdFileAgeDays  int     `json:"min_cold_file_age_days"`
	MinOldFileAgeDays   int     `json:"min_old_file_age_days"`
}

// ModeFor returns the configuration for the named mode, falling back to the
// default mode when the name is unknown.
func (c Configuration) ModeFor(name string) (string, ModeConfig) {
	if mc, ok := c.Modes[name]; ok {
		return name, mc
	}
	return ModeDefault, c.Modes[ModeDefault]
}

// New returns a configuration with the built-in three modes.
func New() Configuration {
	return Configuration{
		Mode:      ModeDefault,
		Blacklist: []string{},
		Modes: map[string]ModeConfig{
			ModeDefault: {
				Weights: Weights{
					SmallVolume:     0.05,
					IOPS:            0.1,
					Latency:         0.1,
					Fullness:        0.3,
					ColdFileRatio:   0.3,
					OldFileRatio:    0.05,
					BlacklistRatio:  0.05,
					RestorePressure: 0.025,
					SizeAccessRatio: 0.025,
				},
				Thresholds: Thresholds{
					SmallVolumeGB:       1,
					IOPSIdle:            10,
					LatencyIdleMs:       5,
					ScanScore:           0.5,
					MinHoursBetweenScan: 6,
					MinColdFileAgeDays:  180,
					MinOldFileAgeDays:   180,
				},
			},
			ModeEco: {
				Weights: Weights{
					SmallVolume:     0.1,
					IOPS:            0.15,
					Latency:         0.15,
					Fullness:        0.25,
					ColdFileRatio:   0.2,
					OldFileRatio:    0.05,
					BlacklistRatio:  0.05,
					RestorePressure: 0.025,
					SizeAccessRatio: 0.025,
				},
				Thresholds: Thresholds{
					SmallVolumeGB:       2,
					IOPSIdle:            5,
					LatencyIdleMs:       3,
					ScanScore:           0.7,
					MinHoursBetweenScan: 12,
					MinColdFileAgeDays:  240,
					MinOldFileAgeDays:   365,
				},
			},
			ModeSuper: {
				Weights: Weights{
					SmallVolume:     0.025,
					IOPS:            0.05,
					Latency:         0.05,
					Fullness:        0.35,
					ColdFileRatio:   0.35,
					OldFileRatio:    0.1,
					BlacklistRatio:  0.025,
					RestorePressure: 0.025,
					SizeAccessRatio: 0.025,
				},
				Thresholds: Thresholds{
					SmallVolumeGB:       0.5,
					IOPSIdle:            25,
					LatencyIdleMs:       10,
					ScanScore:           0.35,
					MinHoursBetweenScan: 3,
					MinColdFileAgeDays:  90,
					MinOldFileAgeDays:   120,
				},
			},
		},
	}
}

// Read parses a configuration. Unknown keys are rejected.
func Read(r io.Reader) (Configuration, error) {
	var cfg Configuration
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Configuration{}, fmt.Errorf("parse configuration: %w", err)
	}
	if err := cfg.check(); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

// Load reads the configuration file at path.
func Load(path string) (Configuration, error) {
	fd, err := os.Open(path)
	if err != nil {
		return Configuration{}, err
	}
	defer fd.Close()
	return Read(fd)
}

// Save atomically writes the configuration to path.
func Save(path string, cfg Configuration) error {
	if err := cfg.check(); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (c Configuration) check() error {
	if len(c.Modes) == 0 {
		return fmt.Errorf("configuration: no modes defined")
	}
	if _, ok := c.Modes[ModeDefault]; !ok {
		return fmt.Errorf("configuration: %q mode is required", ModeDefault)
	}
	if _, ok := c.Modes[c.Mode]; !ok {
		return fmt.Errorf("configuration: active mode %q is not defined", c.Mode)
	}
	for name, mc := range c.Modes {
		if mc.Thresholds.MinColdFileAgeDays < 0 || mc.Thresholds.MinOldFileAgeDays < 0 {
			return fmt.Errorf("configuration: mode %q: negative age threshold", name)
		}
		if mc.Thresholds.MinHoursBetweenScan < 0 {
			return fmt.Errorf("configuration: mode %q: negative cooldown", name)
		}
	}
	return nil
}
