// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fileservice

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/coldmove/coldmove/internal/tier"
)

// Local serves the Client interface from a directory tree on local disk.
// A UNC path `\\host\share\a\b` maps to `<root>/host/share/a/b`.
type Local struct {
	root string
}

var _ Client = (*Local)(nil)

func NewLocal(root string) *Local {
	return &Local{root: root}
}

func (l *Local) resolve(uncPath string) (string, error) {
	host, share, rest, ok := tier.SplitUNC(uncPath)
	if !ok {
		return "", fmt.Errorf("resolve %q: %w", uncPath, ErrNotExist)
	}
	parts := []string{l.root, host, share}
	if rest != "" {
		parts = append(parts, filepath.FromSlash(backToSlash(rest)))
	}
	return filepath.Join(parts...), nil
}

func backToSlash(uncRest string) string {
	out := make([]rune, 0, len(uncRest))
	for _, r := range uncRest {
		if r == '\\' {
			r = '/'
		}
		out = append(out, r)
	}
	return string(out)
}

func (l *Local) info(uncPath, osPath string) (FileInfo, error) {
	fi, err := os.Stat(osPath)
	if err != nil {
		return FileInfo{Path: uncPath}, err
	}
	accessed, created := statTimes(fi)
	return FileInfo{
		Path:     uncPath,
		Size:     fi.Size(),
		Created:  created.UTC(),
		Accessed: accessed.UTC(),
		Modified: fi.ModTime().UTC(),
		IsDir:    fi.IsDir(),
	}, nil
}

func (l *Local) Walk(ctx context.Context, root string, fn WalkFunc) error {
	osRoot, err := l.resolve(root)
	if err != nil {
		return err
	}
	return l.walk(ctx, tier.NormalizePath(root), osRoot, fn)
}

func (l *Local) walk(ctx context.Context, uncDir, osDir string, fn WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(osDir)
	if err != nil {
		return fn(uncDir, FileInfo{Path: uncDir}, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		uncPath := tier.JoinPath(uncDir, entry.Name())
		osPath := filepath.Join(osDir, entry.Name())
		info, err := l.info(uncPath, osPath)
		if err := fn(uncPath, info, err); err != nil {
			if err == SkipDir {
				continue
			}
			return err
		}
		if info.IsDir {
			if err := l.walk(ctx, uncPath, osPath, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Local) Open(_ context.Context, path string) (io.ReadCloser, error) {
	osPath, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Open(osPath)
}

func (l *Local) Create(_ context.Context, path string) (io.WriteCloser, error) {
	osPath, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(osPath), 0o755); err != nil {
		return nil, err
	}
	return os.Create(osPath)
}

func (l *Local) Remove(_ context.Context, path string) error {
	osPath, err := l.resolve(path)
	if err != nil {
		return err
	}
	return os.Remove(osPath)
}

func (l *Local) Stat(_ context.Context, path string) (FileInfo, error) {
	osPath, err := l.resolve(path)
	if err != nil {
		return FileInfo{Path: path}, err
	}
	return l.info(tier.NormalizePath(path), osPath)
}

func (l *Local) Chtimes(_ context.Context, path string, accessed, modified time.Time) error {
	osPath, err := l.resolve(path)
	if err != nil {
		return err
	}
	return os.Chtimes(osPath, accessed, modified)
}

func (l *Local) MkdirAll(_ context.Context, path string) error {
	osPath, err := l.resolve(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(osPath, 0o755)
}
