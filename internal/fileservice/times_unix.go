// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build linux

package fileservice

import (
	"io/fs"
	"syscall"
	"time"
)

// statTimes extracts access and creation times where the platform provides
// them; creation falls back to the modification time.
func statTimes(fi fs.FileInfo) (accessed, created time.Time) {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		accessed = time.Unix(st.Atim.Sec, st.Atim.Nsec)
		created = time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
		return accessed, created
	}
	return fi.ModTime(), fi.ModTime()
}
