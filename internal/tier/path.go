// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package tier

import (
	"strings"
)

const (
	// StubSuffix is appended to the original path when a launcher stub is
	// written after archival.
	StubSuffix = "_shortcut.bat"

	uncSep = `\`
)

// NormalizePath coerces a path into UNC form: backslash separators and a
// leading `\\`.
func NormalizePath(path string) string {
	path = strings.ReplaceAll(path, "/", uncSep)
	if !strings.HasPrefix(path, uncSep+uncSep) {
		path = uncSep + uncSep + strings.TrimLeft(path, uncSep)
	}
	return path
}

// JoinPath appends elements to a UNC base path.
func JoinPath(base string, elems ...string) string {
	parts := append([]string{strings.TrimRight(base, uncSep)}, elems...)
	return NormalizePath(strings.Join(parts, uncSep))
}

// BasePath returns the last element of a UNC path.
func BasePath(path string) string {
	path = strings.TrimRight(NormalizePath(path), uncSep)
	if idx := strings.LastIndex(path, uncSep); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// SplitUNC splits a normalized UNC path into host, share and the remainder
// relative to the share root. The remainder may be empty.
func SplitUNC(path string) (host, share, rest string, ok bool) {
	path = NormalizePath(path)
	parts := strings.SplitN(strings.TrimPrefix(path, uncSep+uncSep), uncSep, 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", false
	}
	host, share = parts[0], parts[1]
	if len(parts) == 3 {
		rest = parts[2]
	}
	return host, share, rest, true
}

// IsStub reports whether the path names a launcher stub or any other batch
// file; such files are excluded from scans and never migrated.
func IsStub(path string) bool {
	return strings.HasSuffix(path, StubSuffix) || strings.HasSuffix(path, ".bat")
}

// StubPath returns the launcher stub path for an archived original.
func StubPath(originalPath string) string {
	return originalPath + StubSuffix
}

// Blacklisted reports whether any blacklist token occurs in the path,
// case-insensitively.
func Blacklisted(path string, blacklist []string) bool {
	if len(blacklist) == 0 {
		return false
	}
	lower := strings.ToLower(path)
	for _, token := range blacklist {
		if token == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(token)) {
			return true
		}
	}
	return false
}
