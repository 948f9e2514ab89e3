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
	"encoding/json"
	"strings"
	"testing"

	"bennypowers.dev/ivywatch/cmd/version"
	buildinfo "bennypowers.dev/ivywatch/internal/version"
)

func TestRender(t *testing.T) {
	old := []string{buildinfo.Version, buildinfo.GitCommit}
	buildinfo.Version, buildinfo.GitCommit = "v1.4.0", "0123456789abcdef"
	t.Cleanup(func() { buildinfo.Version, buildinfo.GitCommit = old[0], old[1] })

	tests := []struct {
		format string
		want   string
	}{
		{"text", "ivywatch v1.4.0"},
		{"", "ivywatch v1.4.0"},
		{version.FormatFull, "ivywatch v1.4.0 (commit: 0123456789abcdef)"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := version.Render(tt.format)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestRender_JSON(t *testing.T) {
	got, err := version.Render("json")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	var info buildinfo.Info
	if err := json.Unmarshal([]byte(got), &info); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\n%s", err, got)
	}
	if info.Version == "" || info.GoVersion == "" {
		t.Errorf("Expected version and Go version, got %+v", info)
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := version.Render("yaml")
	if err == nil || !strings.Contains(err.Error(), `unknown format "yaml"`) {
		t.Errorf("Expected an unknown format error, got %v", err)
	}
}
