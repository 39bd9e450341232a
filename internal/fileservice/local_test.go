// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fileservice

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coldmove/coldmove/internal/tier"
)

func TestLocalRoundtrip(t *testing.T) {
	t.Parallel()

	svc := NewLocal(t.TempDir())
	ctx := context.Background()

	const path = `\\host\data1\proj\note.txt`
	w, err := svc.Create(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, "hello"); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	info, err := svc.Stat(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size != 5 {
		t.Errorf("size %d", info.Size)
	}
	if info.Path != path {
		t.Errorf("path %q", info.Path)
	}

	r, err := svc.Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	bs, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		t.Fatal(err)
	}
	if string(bs) != "hello" {
		t.Errorf("content %q", bs)
	}

	if err := svc.Remove(ctx, path); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Stat(ctx, path); !IsNotExist(err) {
		t.Errorf("expected not-exist, got %v", err)
	}
}

func TestLocalChtimes(t *testing.T) {
	t.Parallel()

	svc := NewLocal(t.TempDir())
	ctx := context.Background()

	const path = `\\host\data1\old.txt`
	w, err := svc.Create(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "x")
	w.Close()

	stamp := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := svc.Chtimes(ctx, path, stamp, stamp); err != nil {
		t.Fatal(err)
	}
	info, err := svc.Stat(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.Modified.Equal(stamp) {
		t.Errorf("modified %v, expected %v", info.Modified, stamp)
	}
}

func TestLocalWalk(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, p := range []string{
		"host/data1/a/one.txt",
		"host/data1/a/two.txt",
		"host/data1/b/three.txt",
	} {
		full := filepath.Join(root, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewLocal(root)
	var files, dirs []string
	err := svc.Walk(context.Background(), `\\host\data1`, func(path string, info FileInfo, err error) error {
		if err != nil {
			t.Fatalf("walk error at %s: %v", path, err)
		}
		if info.IsDir {
			dirs = append(dirs, path)
		} else {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Errorf("files %v", files)
	}
	if len(dirs) != 2 {
		t.Errorf("dirs %v", dirs)
	}
}

func TestLocalWalkSkipDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, p := range []string{
		"host/data1/keep/one.txt",
		"host/data1/skipme/two.txt",
	} {
		full := filepath.Join(root, p)
		os.MkdirAll(filepath.Dir(full), 0o755)
		os.WriteFile(full, []byte("data"), 0o644)
	}

	svc := NewLocal(root)
	var files []string
	err := svc.Walk(context.Background(), `\\host\data1`, func(path string, info FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir && tier.BasePath(path) == "skipme" {
			return SkipDir
		}
		if !info.IsDir {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Errorf("expected one file, got %v", files)
	}
}
