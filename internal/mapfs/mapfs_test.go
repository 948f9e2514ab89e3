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
package mapfs_test

import (
	"errors"
	"io/fs"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	ivyfs "bennypowers.dev/ivywatch/fs"
	"bennypowers.dev/ivywatch/internal/mapfs"
)

var _ ivyfs.FileSystem = (*mapfs.MapFileSystem)(nil)

func TestTouch(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/repo/core-1.0.jar", "jar", 0644)

	republished := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	if err := mfs.Touch("/repo/core-1.0.jar", republished); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	info, err := mfs.Stat("/repo/core-1.0.jar")
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(republished) {
		t.Errorf("Expected mod time %v, got %v", republished, info.ModTime())
	}

	if err := mfs.Touch("/repo/missing.jar", republished); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected fs.ErrNotExist, got %v", err)
	}
}

func TestSetModTime(t *testing.T) {
	mfs := mapfs.New()
	later := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	mfs.SetModTime(later)

	if err := mfs.WriteFile("/cache/util-2.0.jar", []byte("jar"), 0644); err != nil {
		t.Fatal(err)
	}
	info, err := mfs.Stat("/cache/util-2.0.jar")
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(later) {
		t.Errorf("Expected mod time %v, got %v", later, info.ModTime())
	}
}

func TestDirectoriesHidePlaceholders(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddDir("/empty", 0755)
	if err := mfs.MkdirAll("/state/baselines", 0755); err != nil {
		t.Fatal(err)
	}
	mfs.AddFile("/state/baselines/nightly.json", "{}", 0644)

	entries, err := mfs.ReadDir("/empty")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected an empty directory, got %d entries", len(entries))
	}
	if !mfs.Exists("/empty") {
		t.Error("Expected the directory to exist")
	}

	files := mfs.Files()
	slices.Sort(files)
	if d := cmp.Diff([]string{"/state/baselines/nightly.json"}, files); d != "" {
		t.Errorf("Files() mismatch (-want +got):\n%s", d)
	}
}

func TestRemove(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/tmp/ivysettings.xml", "<ivysettings/>", 0644)

	if err := mfs.Remove("/tmp/ivysettings.xml"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if mfs.Exists("/tmp/ivysettings.xml") {
		t.Error("Expected the file to be removed")
	}
	if err := mfs.Remove("/tmp/ivysettings.xml"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected fs.ErrNotExist, got %v", err)
	}
}

func TestTempDir(t *testing.T) {
	mfs := mapfs.New()
	if got := mfs.TempDir(); got != "/tmp" {
		t.Errorf("TempDir() = %q, want %q", got, "/tmp")
	}
	mfs.SetTempDir("/scratch")
	if got := mfs.TempDir(); got != "/scratch" {
		t.Errorf("TempDir() = %q, want %q", got, "/scratch")
	}
}
