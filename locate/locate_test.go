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
package locate_test

import (
	"errors"
	"slices"
	"testing"

	"bennypowers.dev/ivywatch/internal/mapfs"
	"bennypowers.dev/ivywatch/locate"
)

func fixture() *mapfs.MapFileSystem {
	mfs := mapfs.New()
	mfs.AddFile("/ws/job/ivy.xml", "<ivy-module/>", 0644)
	mfs.AddFile("/ws/job/conf/a.properties", "a=1", 0644)
	mfs.AddFile("/ws/job/conf/b.properties", "b=2", 0644)
	mfs.AddFile("/ws/job/conf/nested/c.properties", "c=3", 0644)
	mfs.AddFile("/node/shared/ivysettings.xml", "<ivysettings/>", 0644)
	mfs.AddFile("/etc/ivy/global.properties", "g=1", 0644)
	return mfs
}

func TestLocate(t *testing.T) {
	l := locate.New(fixture(), "/ws/job", "/node")
	env := map[string]string{"CONF": "conf", "ROOT": "/etc/ivy"}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"workspace relative", "ivy.xml", "/ws/job/ivy.xml", false},
		{"node root relative", "shared/ivysettings.xml", "/node/shared/ivysettings.xml", false},
		{"absolute", "/etc/ivy/global.properties", "/etc/ivy/global.properties", false},
		{"macro expanded", "${CONF}/a.properties", "/ws/job/conf/a.properties", false},
		{"macro absolute", "$ROOT/global.properties", "/etc/ivy/global.properties", false},
		{"trimmed", "  ivy.xml ", "/ws/job/ivy.xml", false},
		{"missing", "nope.xml", "", true},
		{"directory", "conf", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Locate(tt.path, env)
			if tt.wantErr {
				if !errors.Is(err, locate.ErrNotFound) {
					t.Errorf("Expected ErrNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Locate failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Locate(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestLocatePrefersWorkspace(t *testing.T) {
	mfs := fixture()
	mfs.AddFile("/node/ivy.xml", "<ivy-module/>", 0644)
	l := locate.New(mfs, "/ws/job", "/node")
	got, err := l.Locate("ivy.xml", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "/ws/job/ivy.xml" {
		t.Errorf("Expected workspace copy, got %q", got)
	}
}

func TestSettings(t *testing.T) {
	l := locate.New(fixture(), "/ws/job", "/node")
	env := map[string]string{"HOST": "repo.example.com"}

	src, err := l.Settings("https://${HOST}/ivysettings.xml", env)
	if err != nil {
		t.Fatal(err)
	}
	if !src.IsURL() || src.URL != "https://repo.example.com/ivysettings.xml" {
		t.Errorf("Expected URL source, got %+v", src)
	}

	src, err = l.Settings("shared/ivysettings.xml", env)
	if err != nil {
		t.Fatal(err)
	}
	if src.IsURL() || src.File != "/node/shared/ivysettings.xml" {
		t.Errorf("Expected file source, got %+v", src)
	}

	src, err = l.Settings("file:///node/shared/ivysettings.xml", env)
	if err != nil {
		t.Fatal(err)
	}
	if src.File != "/node/shared/ivysettings.xml" {
		t.Errorf("Expected file: URL to resolve to a path, got %+v", src)
	}

	if _, err := l.Settings("missing.xml", env); !errors.Is(err, locate.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestIsRemote(t *testing.T) {
	tests := map[string]bool{
		"http://repo/ivysettings.xml":  true,
		"https://repo/ivysettings.xml": true,
		"ivysettings.xml":              false,
		"/abs/ivysettings.xml":         false,
		"C:/ivy/ivysettings.xml":       false,
		"https:///no-host":             false,
	}
	for in, want := range tests {
		if got := locate.IsRemote(in); got != want {
			t.Errorf("IsRemote(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSplitPaths(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"abcd/", []string{"abcd/"}},
		{"abcd/;efgh/", []string{"abcd/", "efgh/"}},
		{" /abcd/ ; /efgh", []string{"/abcd/", "/efgh"}},
		{";;a;", []string{"a"}},
	}
	for _, tt := range tests {
		if got := locate.SplitPaths(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("SplitPaths(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProperties(t *testing.T) {
	l := locate.New(fixture(), "/ws/job", "/node")

	props, err := l.Properties("conf/a.properties; /etc/ivy/global.properties", nil)
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	if string(props.Content) != "a=1\ng=1\n" {
		t.Errorf("Content = %q", props.Content)
	}
	want := []string{"/ws/job/conf/a.properties", "/etc/ivy/global.properties"}
	if !slices.Equal(props.Files, want) {
		t.Errorf("Files = %q, want %q", props.Files, want)
	}
}

func TestPropertiesGlob(t *testing.T) {
	l := locate.New(fixture(), "/ws/job", "/node")

	props, err := l.Properties("conf/**/*.properties", nil)
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	want := []string{
		"/ws/job/conf/a.properties",
		"/ws/job/conf/b.properties",
		"/ws/job/conf/nested/c.properties",
	}
	if !slices.Equal(props.Files, want) {
		t.Errorf("Files = %q, want %q", props.Files, want)
	}
	if string(props.Content) != "a=1\nb=2\nc=3\n" {
		t.Errorf("Content = %q", props.Content)
	}

	abs, err := l.Properties("/etc/ivy/*.properties", nil)
	if err != nil {
		t.Fatalf("Absolute glob failed: %v", err)
	}
	if !slices.Equal(abs.Files, []string{"/etc/ivy/global.properties"}) {
		t.Errorf("Files = %q", abs.Files)
	}
}

func TestPropertiesErrors(t *testing.T) {
	l := locate.New(fixture(), "/ws/job", "/node")

	if props, err := l.Properties("", nil); err != nil || len(props.Content) != 0 {
		t.Errorf("Expected empty list to yield nothing, got %q / %v", props.Content, err)
	}
	if _, err := l.Properties("conf/a.properties;missing.properties", nil); !errors.Is(err, locate.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing file, got %v", err)
	}
	if _, err := l.Properties("conf/*.yaml", nil); !errors.Is(err, locate.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unmatched glob, got %v", err)
	}
}
