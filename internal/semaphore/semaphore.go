// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package semaphore bounds the number of share workers running at once.
package semaphore

import (
	"context"
	"sync"
)

type Semaphore struct {
	max       int
	available int
	mut       sync.Mutex
	cond      *sync.Cond
}

func New(max int) *Semaphore {
	if max < 1 {
		max = 1
	}
	s := &Semaphore{
		max:       max,
		available: max,
	}
	s.cond = sync.NewCond(&s.mut)
	return s
}

// TakeWithContext acquires one slot, or returns the context's error if it
// is cancelled while waiting.
func (s *Semaphore) TakeWithContext(ctx context.Context) error {
	done := make(chan struct{})
	var err error
	go func() {
		err = s.takeInner(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.cond.Broadcast()
		<-done
	}
	return err
}

func (s *Semaphore) takeInner(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mut.Lock()
	defer s.mut.Unlock()
	for s.available < 1 {
		s.cond.Wait()
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	s.available--
	return nil
}

func (s *Semaphore) Give() {
	s.mut.Lock()
	if s.available < s.max {
		s.available++
	}
	s.cond.Broadcast()
	s.mut.Unlock()
}
