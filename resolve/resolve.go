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

// Package resolve is the boundary between polling and the dependency
// resolution engine. The Adapter runs an Engine and normalizes its report
// into a snapshot.Result.
package resolve

import (
	"context"

	"bennypowers.dev/ivywatch/locate"
)

// Logger is an interface for logging messages during resolution.
type Logger interface {
	Info(format string, args ...any)
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

// ArtifactOrigin is where the engine found an artifact of a resolved module.
type ArtifactOrigin struct {
	Name string
	Ext  string
	// Location is a filesystem path when Local is true, otherwise a URL.
	Location string
	Local    bool
}

// Node is one resolved module of a report.
type Node interface {
	// ID is the module identity, "org:name" or "org:name:branch".
	ID() string
	Revision() string
	// Downloaded reports whether the module's artifacts were fetched.
	Downloaded() bool
	// Artifacts returns the saved origins of the module's artifacts.
	Artifacts() ([]ArtifactOrigin, error)
}

// Report is the outcome of a resolution that ran to completion.
// Problems do not prevent the report from being used.
type Report struct {
	Nodes    []Node
	Problems []string
}

// HasProblems reports whether the engine recorded any problem.
func (r *Report) HasProblems() bool {
	return r != nil && len(r.Problems) > 0
}

// EngineRequest is what an Engine resolves.
type EngineRequest struct {
	// Descriptor is the path of the module descriptor.
	Descriptor string
	Settings   locate.Source
	// Variables seed the resolution context for ${var} substitution.
	Variables map[string]string
	// Download asks the engine to fetch artifact payloads.
	Download bool
	// CacheDir overrides the cache configured in the settings when set.
	CacheDir string
	Logger   Logger
}

// Engine resolves a module descriptor into a report.
// An error means no report could be produced at all.
type Engine interface {
	Resolve(ctx context.Context, req EngineRequest) (*Report, error)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)    {}
func (nopLogger) Warning(string, ...any) {}
func (nopLogger) Debug(string, ...any)   {}
func (nopLogger) Error(string, ...any)   {}
