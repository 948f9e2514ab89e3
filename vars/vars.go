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

// Package vars builds the variable bindings a resolution runs with:
// the job's inherited environment, Java properties files and inline
// property definitions, and ${var} macro expansion over them.
package vars

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/magiconair/properties"

	"bennypowers.dev/ivywatch/fs"
)

// Well-known variables contributed by the polling node.
const (
	JobName    = "JOB_NAME"
	NodeName   = "NODE_NAME"
	NodeLabels = "NODE_LABELS"
	Workspace  = "WORKSPACE"
)

// Scope describes the job and node a polling cycle runs for.
type Scope struct {
	Job       string
	Node      string
	Labels    []string
	Workspace string
}

// Provider returns the environment inherited by a job on a node.
type Provider interface {
	Environment(ctx context.Context, scope Scope) (map[string]string, error)
}

// OSProvider exposes the process environment plus the node variables.
type OSProvider struct {
	// Environ defaults to os.Environ.
	Environ func() []string
}

// Environment implements Provider.
func (p OSProvider) Environment(_ context.Context, scope Scope) (map[string]string, error) {
	environ := p.Environ
	if environ == nil {
		environ = os.Environ
	}
	env := make(map[string]string)
	for _, kv := range environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	env[JobName] = scope.Job
	if scope.Node != "" {
		env[NodeName] = scope.Node
		env[NodeLabels] = strings.Join(scope.Labels, " ")
	}
	if scope.Workspace != "" {
		env[Workspace] = scope.Workspace
	}
	return env, nil
}

// StaticProvider returns a fixed environment, plus the node variables.
// Useful in tests and for hosts that compute the environment themselves.
type StaticProvider map[string]string

// Environment implements Provider.
func (p StaticProvider) Environment(ctx context.Context, scope Scope) (map[string]string, error) {
	env, _ := OSProvider{Environ: func() []string { return nil }}.Environment(ctx, scope)
	return Merge(env, p), nil
}

// Merge combines layers of bindings. Later layers win on key collision.
func Merge(layers ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

var macro = regexp.MustCompile(`\$([A-Za-z0-9_]+|\{[A-Za-z0-9_.-]+\}|\$)`)

// ReplaceMacro expands $VAR and ${VAR} references in s. Unknown variables
// are left untouched and "$$" is an escaped dollar sign. Replacement values
// are not expanded again.
func ReplaceMacro(s string, vars map[string]string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return macro.ReplaceAllStringFunc(s, func(m string) string {
		key := m[1:]
		if key == "$" {
			return "$"
		}
		key = strings.TrimSuffix(strings.TrimPrefix(key, "{"), "}")
		if v, ok := vars[key]; ok {
			return v
		}
		return m
	})
}

// ParseFile parses the content of a .properties file, which is
// ISO-8859-1 encoded. Property values are not expanded.
func ParseFile(data []byte) (map[string]string, error) {
	return parse(data, properties.ISO_8859_1)
}

// ParseString parses inline property definitions in properties syntax.
func ParseString(s string) (map[string]string, error) {
	return parse([]byte(s), properties.UTF8)
}

func parse(data []byte, enc properties.Encoding) (map[string]string, error) {
	l := &properties.Loader{Encoding: enc, DisableExpansion: true}
	p, err := l.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse properties: %w", err)
	}
	return p.Map(), nil
}

// LoadFile reads and parses a .properties file from fsys.
func LoadFile(fsys fs.FileSystem, path string) (map[string]string, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read properties file %s: %w", path, err)
	}
	props, err := ParseFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return props, nil
}

// Bindings computes the variables a resolution runs with:
// the environment, overridden by the properties file content, overridden by
// the inline properties content. The inline content is macro-expanded with
// the environment before parsing.
func Bindings(env map[string]string, fileContent []byte, inline string) (map[string]string, error) {
	fromFiles, err := ParseFile(fileContent)
	if err != nil {
		return nil, fmt.Errorf("properties files: %w", err)
	}
	fromInline, err := ParseString(ReplaceMacro(inline, env))
	if err != nil {
		return nil, fmt.Errorf("properties content: %w", err)
	}
	return Merge(env, fromFiles, fromInline), nil
}
