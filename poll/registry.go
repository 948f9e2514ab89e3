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
package poll

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// KindIvy is the trigger kind polling Ivy dependencies.
const KindIvy = "ivy"

// Trigger is a job that can be polled.
type Trigger interface {
	Name() string
	Poll(ctx context.Context) (PollResult, error)
}

// Factory creates a trigger of one kind.
type Factory func(cfg Config, deps Deps) (Trigger, error)

// Registry maps trigger kinds to their factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// NewDefaultRegistry creates a registry knowing the ivy kind.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(KindIvy, func(cfg Config, deps Deps) (Trigger, error) {
		return NewController(cfg, deps)
	})
	return r
}

// Register adds a factory. Registering a kind twice is an error.
func (r *Registry) Register(kind string, f Factory) error {
	kind = strings.TrimSpace(kind)
	if kind == "" || f == nil {
		return fmt.Errorf("poll: invalid registration for kind %q", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("poll: trigger kind %q is already registered", kind)
	}
	r.factories[kind] = f
	return nil
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// New creates a trigger of the given kind.
func (r *Registry) New(kind string, cfg Config, deps Deps) (Trigger, error) {
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("poll: unknown trigger kind %q (known: %s)", kind, strings.Join(r.Kinds(), ", "))
	}
	return f(cfg, deps)
}
