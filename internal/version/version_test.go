/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package version_test

import (
	"testing"

	"bennypowers.dev/ivywatch/internal/version"
)

func setBuild(t *testing.T, v, commit, tag, dirty string) {
	t.Helper()
	old := []string{version.Version, version.GitCommit, version.GitTag, version.GitDirty}
	version.Version, version.GitCommit, version.GitTag, version.GitDirty = v, commit, tag, dirty
	t.Cleanup(func() {
		version.Version, version.GitCommit, version.GitTag, version.GitDirty = old[0], old[1], old[2], old[3]
	})
}

func TestGetVersion_Ldflags(t *testing.T) {
	setBuild(t, "v1.2.0", "0123456789abcdef", "v1.2.0", "")
	if got := version.GetVersion(); got != "v1.2.0" {
		t.Errorf("GetVersion() = %q, want %q", got, "v1.2.0")
	}
	if got := version.GetFullVersion(); got != "v1.2.0 (commit: 0123456789abcdef)" {
		t.Errorf("GetFullVersion() = %q", got)
	}
}

func TestGetBuildInfo(t *testing.T) {
	setBuild(t, "v1.2.0", "abc", "v1.2.0", "dirty")
	info := version.GetBuildInfo()
	if info.Version != "v1.2.0" || info.GitCommit != "abc" || info.GitDirty != "dirty" {
		t.Errorf("Unexpected build info %+v", info)
	}
	if info.GoVersion == "" {
		t.Error("Expected the Go version to be set")
	}
}
