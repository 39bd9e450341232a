// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package telemetry

import (
	"context"
	"sync"

	"github.com/coldmove/coldmove/internal/tier"
)

// Static is a Provider backed by in-memory tables, for development and
// tests. The zero value is usable.
type Static struct {
	mut         sync.RWMutex
	shares      []tier.ShareDescriptor
	capacity    map[string]SpaceMetrics
	performance map[string]PerfMetrics
	archiveFree map[string]int64
}

var _ Provider = (*Static)(nil)

func NewStatic(shares ...tier.ShareDescriptor) *Static {
	return &Static{
		shares:      shares,
		capacity:    make(map[string]SpaceMetrics),
		performance: make(map[string]PerfMetrics),
		archiveFree: make(map[string]int64),
	}
}

func (s *Static) SetCapacity(volume string, m SpaceMetrics) {
	s.mut.Lock()
	defer s.mut.Unlock()
	if s.capacity == nil {
		s.capacity = make(map[string]SpaceMetrics)
	}
	s.capacity[volume] = m
}

func (s *Static) SetPerformance(share string, m PerfMetrics) {
	s.mut.Lock()
	defer s.mut.Unlock()
	if s.performance == nil {
		s.performance = make(map[string]PerfMetrics)
	}
	s.performance[share] = m
}

func (s *Static) SetArchiveFree(share string, bytes int64) {
	s.mut.Lock()
	defer s.mut.Unlock()
	if s.archiveFree == nil {
		s.archiveFree = make(map[string]int64)
	}
	s.archiveFree[share] = bytes
}

func (s *Static) Shares(_ context.Context) ([]tier.ShareDescriptor, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	out := make([]tier.ShareDescriptor, len(s.shares))
	copy(out, s.shares)
	return out, nil
}

func (s *Static) Capacity(_ context.Context, volume string) (SpaceMetrics, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	m, ok := s.capacity[volume]
	if !ok {
		return SpaceMetrics{}, nil
	}
	m.Known = true
	if m.Size > 0 && m.PercentUsed == 0 {
		m.PercentUsed = float64(m.Used) / float64(m.Size) * 100
	}
	return m, nil
}

func (s *Static) Performance(_ context.Context, share string) (PerfMetrics, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return s.performance[share], nil
}

func (s *Static) ArchiveFree(_ context.Context, share string) (int64, string, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	for _, desc := range s.shares {
		if desc.Share == share {
			return s.archiveFree[share], desc.ArchiveVolume, nil
		}
	}
	return 0, "", ErrUnavailable
}
