// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"errors"
	"os"
	"sync"
)

// A Handler is notified after the configuration has been replaced and
// saved.
type Handler interface {
	Changed(Configuration)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(Configuration)

func (fn HandlerFunc) Changed(cfg Configuration) { fn(cfg) }

// Wrapper ties a Configuration to a file on disk and publishes change
// notifications to subscribers. Snapshot returns a copy; mutation goes
// through Replace only.
type Wrapper struct {
	path string

	mut sync.Mutex
	cfg Configuration

	subsMut sync.Mutex
	subs    []Handler
}

// Wrap wraps an existing configuration and ties it to a file on disk.
func Wrap(path string, cfg Configuration) *Wrapper {
	return &Wrapper{path: path, cfg: cfg}
}

// LoadOrCreate returns a wrapper for the file at path, writing the built-in
// defaults there first if the file does not exist.
func LoadOrCreate(path string) (*Wrapper, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = New()
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return Wrap(path, cfg), nil
}

// Snapshot returns the current configuration.
func (w *Wrapper) Snapshot() Configuration {
	w.mut.Lock()
	defer w.mut.Unlock()
	return w.cfg
}

// Replace validates, saves and installs a new configuration, then notifies
// subscribers.
func (w *Wrapper) Replace(cfg Configuration) error {
	w.mut.Lock()
	if err := Save(w.path, cfg); err != nil {
		w.mut.Unlock()
		return err
	}
	w.cfg = cfg
	w.mut.Unlock()

	w.subsMut.Lock()
	subs := make([]Handler, len(w.subs))
	copy(subs, w.subs)
	w.subsMut.Unlock()
	for _, sub := range subs {
		sub.Changed(cfg)
	}
	return nil
}

// Subscribe registers a change handler.
func (w *Wrapper) Subscribe(h Handler) {
	w.subsMut.Lock()
	w.subs = append(w.subs, h)
	w.subsMut.Unlock()
}
