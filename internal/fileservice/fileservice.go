// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package fileservice abstracts the remote file service that exposes the
// data and archive shares. Paths are UNC form (`\\host\share\...`). The
// production client speaks SMB to the filer; Local serves the same
// interface from a directory on the local disk for development and tests.
package fileservice

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"time"
)

var (
	// SkipDir, returned from a WalkFunc, abandons the directory.
	SkipDir = fs.SkipDir

	ErrNotExist   = fs.ErrNotExist
	ErrPermission = fs.ErrPermission
)

// FileInfo is the metadata for one remote file or directory.
type FileInfo struct {
	Path     string
	Size     int64
	Created  time.Time
	Accessed time.Time
	Modified time.Time
	IsDir    bool
}

// WalkFunc is called for every directory and file found. A non-nil err
// means the entry could not be read; info is then zero except for Path.
type WalkFunc func(path string, info FileInfo, err error) error

// Client is the remote file service.
type Client interface {
	// Walk traverses root depth-first, directories before their contents.
	Walk(ctx context.Context, root string, fn WalkFunc) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Create(ctx context.Context, path string) (io.WriteCloser, error)
	Remove(ctx context.Context, path string) error
	Stat(ctx context.Context, path string) (FileInfo, error)
	// Chtimes stamps access and modification times on an existing file.
	Chtimes(ctx context.Context, path string, accessed, modified time.Time) error
	MkdirAll(ctx context.Context, path string) error
}

// IsNotExist reports whether err indicates a missing file or share.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsPermission reports whether err indicates an access denial.
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}
