// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package slogutil configures the process-wide slog handler and provides
// small helpers for structured logging. Per-package log levels are
// controlled with the CMTRACE environment variable:
//
//	CMTRACE="scanner,planner"          # scanner and planner at DEBUG level
//	CMTRACE="scanner:WARN,journal"     # explicit levels after a colon
package slogutil

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	// GlobalRecorder keeps the most recent log lines for the API.
	GlobalRecorder = &lineRecorder{level: -1000}
	// ErrorRecorder keeps only error lines.
	ErrorRecorder = &lineRecorder{level: slog.LevelError}

	levelsMut sync.RWMutex
	levels    = make(map[string]slog.Level)
	defLevel  = slog.LevelInfo
)

func init() {
	slog.SetDefault(slog.New(&recordingHandler{
		recs: []*lineRecorder{GlobalRecorder, ErrorRecorder},
		next: slog.NewTextHandler(logWriter(), &slog.HandlerOptions{Level: slog.LevelDebug}),
	}))
	SetLevelOverrides(os.Getenv("CMTRACE"))
}

func logWriter() io.Writer {
	if os.Getenv("LOGGER_DISCARD") != "" {
		// Completely disable logging, for example when running benchmarks.
		return io.Discard
	}
	return os.Stdout
}

// Error returns a standard attr for an error value.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// SetDefaultLevel sets the level for packages with no explicit override.
func SetDefaultLevel(level slog.Level) {
	levelsMut.Lock()
	defLevel = level
	levelsMut.Unlock()
}

// SetPackageLevel overrides the level for a single package.
func SetPackageLevel(pkg string, level slog.Level) {
	levelsMut.Lock()
	levels[pkg] = level
	levelsMut.Unlock()
}

// SetLevelOverrides parses a CMTRACE-style specification and applies it.
func SetLevelOverrides(spec string) {
	for _, pkg := range strings.Split(spec, ",") {
		pkg = strings.TrimSpace(pkg)
		if pkg == "" {
			continue
		}
		level := slog.LevelDebug
		if cutPkg, levelStr, ok := strings.Cut(pkg, ":"); ok {
			pkg = cutPkg
			if err := level.UnmarshalText([]byte(levelStr)); err != nil {
				slog.Warn("Bad log level requested in CMTRACE", slog.String("pkg", pkg), slog.String("level", levelStr))
				continue
			}
		}
		SetPackageLevel(pkg, level)
	}
}

func levelFor(pkg string) slog.Level {
	levelsMut.RLock()
	defer levelsMut.RUnlock()
	if lvl, ok := levels[pkg]; ok {
		return lvl
	}
	return defLevel
}
