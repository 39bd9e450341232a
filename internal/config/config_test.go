// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestReadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := Read(strings.NewReader(`{"mode": "default", "frobnicate": true}`))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestReadRequiresDefaultMode(t *testing.T) {
	t.Parallel()

	_, err := Read(strings.NewReader(`{"mode": "eco", "blacklist": [], "modes": {"eco": {}}}`))
	if err == nil {
		t.Fatal("expected error for missing default mode")
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	cfg := New()
	cfg.Blacklist = []string{"secret", "tmp"}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Mode != ModeDefault {
		t.Errorf("mode %q", loaded.Mode)
	}
	if len(loaded.Blacklist) != 2 || loaded.Blacklist[0] != "secret" {
		t.Errorf("blacklist %v", loaded.Blacklist)
	}
	if loaded.Modes[ModeDefault].Thresholds.ScanScore != 0.5 {
		t.Errorf("scan score threshold %v", loaded.Modes[ModeDefault].Thresholds.ScanScore)
	}
}

func TestModeForFallsBack(t *testing.T) {
	t.Parallel()

	cfg := New()
	name, mc := cfg.ModeFor("turbo")
	if name != ModeDefault {
		t.Errorf("expected fallback to default, got %q", name)
	}
	if mc.Thresholds.ScanScore != cfg.Modes[ModeDefault].Thresholds.ScanScore {
		t.Error("expected default mode thresholds")
	}
}

func TestWrapperReplaceNotifies(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	w, err := LoadOrCreate(path)
	if err != nil {
		t.Fatal(err)
	}

	var notified Configuration
	w.Subscribe(HandlerFunc(func(cfg Configuration) { notified = cfg }))

	cfg := w.Snapshot()
	cfg.Mode = ModeEco
	if err := w.Replace(cfg); err != nil {
		t.Fatal(err)
	}
	if notified.Mode != ModeEco {
		t.Errorf("subscriber saw mode %q", notified.Mode)
	}
	if w.Snapshot().Mode != ModeEco {
		t.Error("snapshot not updated")
	}

	// The file must reflect the change too.
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Mode != ModeEco {
		t.Errorf("file has mode %q", loaded.Mode)
	}
}
