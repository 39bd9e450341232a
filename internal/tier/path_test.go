// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package tier

import "testing"

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, out string
	}{
		{`\\host\data1\a\b.txt`, `\\host\data1\a\b.txt`},
		{`//host/data1/a/b.txt`, `\\host\data1\a\b.txt`},
		{`host\data1`, `\\host\data1`},
		{`\host\data1`, `\\host\data1`},
	}
	for _, tc := range cases {
		if got := NormalizePath(tc.in); got != tc.out {
			t.Errorf("NormalizePath(%q) == %q, expected %q", tc.in, got, tc.out)
		}
	}
}

func TestSplitUNC(t *testing.T) {
	t.Parallel()

	host, share, rest, ok := SplitUNC(`\\192.0.2.14\data2\proj\report.pdf`)
	if !ok {
		t.Fatal("expected ok")
	}
	if host != "192.0.2.14" || share != "data2" || rest != `proj\report.pdf` {
		t.Errorf("unexpected split: %q %q %q", host, share, rest)
	}

	if _, _, _, ok := SplitUNC(`\\hostonly`); ok {
		t.Error("expected failure for path without share")
	}
}

func TestJoinPath(t *testing.T) {
	t.Parallel()

	got := JoinPath(`\\host\archive1\`, "report.pdf")
	if got != `\\host\archive1\report.pdf` {
		t.Errorf("unexpected join: %q", got)
	}
}

func TestIsStub(t *testing.T) {
	t.Parallel()

	for path, expected := range map[string]bool{
		`\\h\s\file.txt`:              false,
		`\\h\s\file.txt_shortcut.bat`: true,
		`\\h\s\job.bat`:               true,
	} {
		if got := IsStub(path); got != expected {
			t.Errorf("IsStub(%q) == %v, expected %v", path, got, expected)
		}
	}
}

func TestBlacklisted(t *testing.T) {
	t.Parallel()

	blacklist := []string{"Secret", "tmp"}
	if !Blacklisted(`\\h\s\proj\secret\r.pdf`, blacklist) {
		t.Error("expected case-insensitive match")
	}
	if Blacklisted(`\\h\s\proj\public\r.pdf`, blacklist) {
		t.Error("unexpected match")
	}
	if Blacklisted(`\\h\s\anything`, nil) {
		t.Error("empty blacklist must not match")
	}
}
