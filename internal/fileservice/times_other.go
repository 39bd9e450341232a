// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build !linux

package fileservice

import (
	"io/fs"
	"time"
)

func statTimes(fi fs.FileInfo) (accessed, created time.Time) {
	return fi.ModTime(), fi.ModTime()
}
