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
package ivy

import (
	"slices"
	"sync"
)

// DependencyGraph tracks which modules depend on which during a resolution.
// When the conflict manager replaces a module revision, the outgoing edges
// of the evicted revision are dropped, and modules only it required become
// unreachable from the root.
type DependencyGraph struct {
	mu sync.RWMutex

	// dependsOn maps module id -> set of module ids it depends on
	// e.g., "acme:app" -> {"acme:core": true, "acme:util": true}
	dependsOn map[string]map[string]bool

	// dependents maps module id -> set of modules that depend on it
	// e.g., "acme:core" -> {"acme:app": true}
	dependents map[string]map[string]bool
}

// NewDependencyGraph creates a new empty dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		dependsOn:  make(map[string]map[string]bool),
		dependents: make(map[string]map[string]bool),
	}
}

// AddDependency records that module depends on dep.
// Updates both dependsOn and dependents maps.
func (g *DependencyGraph) AddDependency(module, dep string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dependsOn[module] == nil {
		g.dependsOn[module] = make(map[string]bool)
	}
	g.dependsOn[module][dep] = true

	if g.dependents[dep] == nil {
		g.dependents[dep] = make(map[string]bool)
	}
	g.dependents[dep][module] = true
}

// Dependents returns all modules that directly depend on module.
func (g *DependencyGraph) Dependents(module string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependents[module])
}

// Dependencies returns all modules module directly depends on.
func (g *DependencyGraph) Dependencies(module string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependsOn[module])
}

// ClearDependencies removes the outgoing edges of module, keeping the
// edges pointing at it. Used when a module's revision is replaced.
// Returns the modules it depended on.
func (g *DependencyGraph) ClearDependencies(module string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	deps := sortedKeys(g.dependsOn[module])
	for _, dep := range deps {
		delete(g.dependents[dep], module)
	}
	delete(g.dependsOn, module)
	return deps
}

// Reachable returns every module reachable from root, excluding root.
// Uses breadth-first traversal.
func (g *DependencyGraph) Reachable(root string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]bool{root: true}
	queue := []string{root}
	var result []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for dep := range g.dependsOn[current] {
			if !visited[dep] {
				visited[dep] = true
				result = append(result, dep)
				queue = append(queue, dep)
			}
		}
	}

	slices.Sort(result)
	return result
}

func sortedKeys(set map[string]bool) []string {
	if set == nil {
		return nil
	}
	result := make([]string, 0, len(set))
	for k := range set {
		result = append(result, k)
	}
	slices.Sort(result)
	return result
}
