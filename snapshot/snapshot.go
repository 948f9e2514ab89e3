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

// Package snapshot holds the normalized view of a resolved dependency graph
// that polling cycles compare against each other.
package snapshot

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Artifact is one resolved artifact of a module revision.
type Artifact struct {
	Name      string `json:"name"`
	Extension string `json:"ext,omitempty"`
	// LastModified is the modification time of the cached file, in epoch milliseconds.
	LastModified int64 `json:"lastModified"`
}

// FullName returns "name.ext", or just the name when the artifact has no extension.
// It is the identity of an artifact within a Dependency.
func (a Artifact) FullName() string {
	if a.Extension == "" {
		return a.Name
	}
	return a.Name + "." + a.Extension
}

// Dependency is one resolved module: its revision and the artifacts found for it.
// Artifact order is whatever the resolver produced and carries no meaning.
type Dependency struct {
	Revision  string     `json:"revision"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// Artifact returns the artifact with the given full name.
func (d Dependency) Artifact(fullName string) (Artifact, bool) {
	for _, a := range d.Artifacts {
		if a.FullName() == fullName {
			return a, true
		}
	}
	return Artifact{}, false
}

// Snapshot maps module identities (e.g. "org:name" or "org:name:branch")
// to their resolved state.
type Snapshot struct {
	Dependencies map[string]Dependency `json:"dependencies"`
}

// New creates a snapshot from the given dependencies.
// The map is copied; the snapshot never shares state with the caller.
func New(deps map[string]Dependency) *Snapshot {
	s := &Snapshot{Dependencies: make(map[string]Dependency, len(deps))}
	for id, dep := range deps {
		s.Dependencies[id] = Dependency{
			Revision:  dep.Revision,
			Artifacts: slices.Clone(dep.Artifacts),
		}
	}
	return s
}

// Len returns the number of dependencies.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Dependencies)
}

// IDs returns the module identities in sorted order.
func (s *Snapshot) IDs() []string {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.Dependencies))
}

// Get returns the dependency recorded for id.
func (s *Snapshot) Get(id string) (Dependency, bool) {
	if s == nil {
		return Dependency{}, false
	}
	dep, ok := s.Dependencies[id]
	return dep, ok
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	return New(s.Dependencies)
}

// Validate checks the invariants every stored snapshot must hold:
// non-empty revisions and unique artifact full names per dependency.
func (s *Snapshot) Validate() error {
	for _, id := range s.IDs() {
		dep := s.Dependencies[id]
		if dep.Revision == "" {
			return fmt.Errorf("dependency %s has no revision", id)
		}
		seen := make(map[string]bool, len(dep.Artifacts))
		for _, a := range dep.Artifacts {
			if a.Name == "" {
				return fmt.Errorf("dependency %s has an artifact without a name", id)
			}
			if seen[a.FullName()] {
				return fmt.Errorf("dependency %s lists artifact %s twice", id, a.FullName())
			}
			seen[a.FullName()] = true
		}
	}
	return nil
}

// Parse decodes a JSON snapshot and validates it.
func Parse(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if s.Dependencies == nil {
		s.Dependencies = make(map[string]Dependency)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return &s, nil
}

// Format renders the snapshot as indented JSON.
func (s *Snapshot) Format() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
