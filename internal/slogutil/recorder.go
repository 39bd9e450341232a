// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package slogutil

import (
	"context"
	"log/slog"
	"path"
	"runtime"
	"strings"
	"sync"
	"time"
)

const maxLogLines = 1000

// Line is one recorded log line.
type Line struct {
	When    time.Time  `json:"when"`
	Message string     `json:"message"`
	Level   slog.Level `json:"level"`
}

// Recorder exposes recent log lines.
type Recorder interface {
	Since(t time.Time) []Line
	Clear()
}

type lineRecorder struct {
	level slog.Level
	mut   sync.Mutex
	lines []Line
}

func (r *lineRecorder) record(line Line) {
	if line.Level < r.level {
		return
	}
	r.mut.Lock()
	r.lines = append(r.lines, line)
	if len(r.lines) > maxLogLines {
		r.lines = r.lines[len(r.lines)-maxLogLines:]
	}
	r.mut.Unlock()
}

func (r *lineRecorder) Clear() {
	r.mut.Lock()
	r.lines = nil
	r.mut.Unlock()
}

func (r *lineRecorder) Since(t time.Time) []Line {
	r.mut.Lock()
	defer r.mut.Unlock()
	for i := range r.lines {
		if r.lines[i].When.After(t) {
			return r.lines[i:]
		}
	}
	return nil
}

// recordingHandler filters records against the per-package level, records
// them, and forwards to the wrapped handler.
type recordingHandler struct {
	recs  []*lineRecorder
	next  slog.Handler
	attrs []slog.Attr
}

var _ slog.Handler = (*recordingHandler)(nil)

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *recordingHandler) Handle(ctx context.Context, rec slog.Record) error {
	fr := runtime.CallersFrames([]uintptr{rec.PC})
	if fram, _ := fr.Next(); fram.Function != "" {
		if lvl := levelFor(funcNameToPkg(fram.Function)); lvl > rec.Level {
			return nil
		}
	}
	line := Line{When: rec.Time, Message: rec.Message, Level: rec.Level}
	for _, r := range h.recs {
		r.record(line)
	}
	return h.next.Handle(ctx, rec)
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{
		recs:  h.recs,
		next:  h.next.WithAttrs(attrs),
		attrs: append(h.attrs, attrs...),
	}
}

func (h *recordingHandler) WithGroup(name string) slog.Handler {
	return &recordingHandler{
		recs:  h.recs,
		next:  h.next.WithGroup(name),
		attrs: h.attrs,
	}
}

func funcNameToPkg(fn string) string {
	fn = path.Base(strings.ToLower(fn))
	pkg, _, _ := strings.Cut(fn, ".")
	return pkg
}
