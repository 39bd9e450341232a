// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package build holds the version identity stamped at link time.
package build

import "fmt"

const ProgramName = "coldmove"

// Set at build time via -ldflags.
var (
	Version = "v0.0.0-dev"
	Commit  = "unknown"
)

func LongVersion() string {
	return fmt.Sprintf("%s %s (%s)", ProgramName, Version, Commit)
}
