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

// Package ivy is a small Apache Ivy compatible resolution engine.
// It reads ivy.xml module descriptors and ivysettings.xml files, resolves
// transitive dependencies against filesystem and URL repositories, and
// implements resolve.Engine.
package ivy

import "regexp"

// ModuleID identifies a module independently of its revision.
type ModuleID struct {
	Org    string
	Name   string
	Branch string
}

// String returns "org:name", or "org:name:branch" when a branch is set.
// This is the module identity used in snapshots.
func (m ModuleID) String() string {
	if m.Branch == "" {
		return m.Org + ":" + m.Name
	}
	return m.Org + ":" + m.Name + ":" + m.Branch
}

// RevisionID is a module at a concrete revision.
type RevisionID struct {
	Module   ModuleID
	Revision string
}

// String uses Ivy's notation, "org#name;rev" or "org#name#branch;rev".
func (r RevisionID) String() string {
	s := r.Module.Org + "#" + r.Module.Name
	if r.Module.Branch != "" {
		s += "#" + r.Module.Branch
	}
	return s + ";" + r.Revision
}

// Artifact is a published file of a module.
type Artifact struct {
	Name string
	Type string
	Ext  string
}

var variableRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// substitute replaces ${name} references with their values.
// Unknown references are kept.
func substitute(s string, vars map[string]string) string {
	if len(vars) == 0 {
		return s
	}
	return variableRef.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := vars[m[2:len(m)-1]]; ok {
			return v
		}
		return m
	})
}
