// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package telemetry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/coldmove/coldmove/internal/tier"
)

// inventory is the on-disk description of the share estate for the static
// provider: the share list plus whatever capacity and performance figures
// the operator cares to pin.
type inventory struct {
	Shares      []tier.ShareDescriptor  `json:"shares"`
	Capacity    map[string]SpaceMetrics `json:"capacity,omitempty"`    // keyed by volume
	Performance map[string]PerfMetrics  `json:"performance,omitempty"` // keyed by share
	ArchiveFree map[string]int64        `json:"archiveFree,omitempty"` // keyed by share
}

// LoadStatic builds a static provider from an inventory file.
func LoadStatic(path string) (*Static, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	var inv inventory
	dec := json.NewDecoder(fd)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&inv); err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", path, err)
	}

	s := NewStatic(inv.Shares...)
	for volume, m := range inv.Capacity {
		s.SetCapacity(volume, m)
	}
	for share, m := range inv.Performance {
		s.SetPerformance(share, m)
	}
	for share, free := range inv.ArchiveFree {
		s.SetArchiveFree(share, free)
	}
	return s, nil
}
