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

// Package locate turns the paths a job is configured with into concrete
// readable locations on the polling node.
package locate

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"bennypowers.dev/ivywatch/fs"
	"bennypowers.dev/ivywatch/vars"
)

// ErrNotFound is returned when a path resolves to no existing file.
var ErrNotFound = errors.New("file not found")

// NotFoundError reports the expanded path that could not be found.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("can't find the file '%s'", e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// Locator resolves paths against a job workspace and a node root.
type Locator struct {
	fs        fs.FileSystem
	workspace string
	nodeRoot  string
}

// New creates a Locator. workspace and nodeRoot may be empty.
func New(fsys fs.FileSystem, workspace, nodeRoot string) *Locator {
	return &Locator{fs: fsys, workspace: workspace, nodeRoot: nodeRoot}
}

// Locate expands macros in path with env and returns the first existing
// candidate among: workspace-relative, node-root-relative, absolute.
func (l *Locator) Locate(path string, env map[string]string) (string, error) {
	resolved := vars.ReplaceMacro(strings.TrimSpace(path), env)
	if resolved == "" {
		return "", &NotFoundError{Path: path}
	}
	for _, candidate := range l.candidates(resolved) {
		if info, err := l.fs.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", &NotFoundError{Path: resolved}
}

func (l *Locator) candidates(path string) []string {
	var out []string
	if filepath.IsAbs(path) {
		return []string{filepath.Clean(path)}
	}
	for _, base := range []string{l.workspace, l.nodeRoot} {
		if base != "" {
			out = append(out, filepath.Join(base, path))
		}
	}
	if abs, err := filepath.Abs(path); err == nil && len(out) == 0 {
		out = append(out, abs)
	}
	return out
}

// Source is where resolution settings come from: a remote URL or a local file.
type Source struct {
	URL  string
	File string
}

// IsURL reports whether the settings are fetched remotely.
func (s Source) IsURL() bool {
	return s.URL != ""
}

func (s Source) String() string {
	if s.IsURL() {
		return s.URL
	}
	return s.File
}

// IsRemote reports whether value is a URL with a scheme the engine can fetch.
func IsRemote(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	}
	return false
}

// Settings resolves a settings value, which is either a URL or a path.
// file: URLs are treated as absolute paths.
func (l *Locator) Settings(value string, env map[string]string) (Source, error) {
	expanded := vars.ReplaceMacro(strings.TrimSpace(value), env)
	if IsRemote(expanded) {
		return Source{URL: expanded}, nil
	}
	if u, err := url.Parse(expanded); err == nil && strings.EqualFold(u.Scheme, "file") {
		expanded = u.Path
	}
	path, err := l.Locate(expanded, env)
	if err != nil {
		return Source{}, err
	}
	return Source{File: path}, nil
}

// SplitPaths splits a ';'-separated list of paths, trimming each entry and
// dropping empty ones.
func SplitPaths(value string) []string {
	var out []string
	for p := range strings.SplitSeq(value, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Properties is the concatenated content of a job's properties files.
type Properties struct {
	// Files are the located files, in the order they were read.
	Files   []string
	Content []byte
}

// Properties reads every file named in the ';'-separated list and
// concatenates their content, each followed by a newline. Entries may be
// doublestar glob patterns, matched relative to the workspace or, for
// absolute patterns, the filesystem root. A pattern matching nothing is an
// error, like a missing plain path.
func (l *Locator) Properties(list string, env map[string]string) (Properties, error) {
	var props Properties
	for _, entry := range SplitPaths(list) {
		paths, err := l.expand(entry, env)
		if err != nil {
			return Properties{}, err
		}
		for _, path := range paths {
			data, err := l.fs.ReadFile(path)
			if err != nil {
				return Properties{}, fmt.Errorf("failed to read properties file %s: %w", path, err)
			}
			props.Files = append(props.Files, path)
			props.Content = append(props.Content, data...)
			props.Content = append(props.Content, '\n')
		}
	}
	return props, nil
}

func (l *Locator) expand(entry string, env map[string]string) ([]string, error) {
	resolved := vars.ReplaceMacro(entry, env)
	if !hasMeta(resolved) {
		path, err := l.Locate(resolved, env)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	root, pattern := l.workspace, filepath.ToSlash(resolved)
	if filepath.IsAbs(resolved) {
		root, pattern = "/", strings.TrimPrefix(pattern, "/")
	}
	if root == "" {
		return nil, fmt.Errorf("relative pattern %q needs a workspace: %w", resolved, ErrNotFound)
	}
	matches, err := doublestar.Glob(fs.Sub(l.fs, root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", resolved, err)
	}
	if len(matches) == 0 {
		return nil, &NotFoundError{Path: resolved}
	}
	slices.Sort(matches)
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(root, filepath.FromSlash(m))
	}
	return paths, nil
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}
