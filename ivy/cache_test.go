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
package ivy_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bennypowers.dev/ivywatch/internal/mapfs"
	"bennypowers.dev/ivywatch/ivy"
	"bennypowers.dev/ivywatch/resolve"
)

func TestDescriptorCache_GetOrLoad(t *testing.T) {
	cache := ivy.NewDescriptorCache(10)
	id := coreID("1.0")

	var calls atomic.Int32
	loader := func() (*ivy.ModuleRevision, error) {
		calls.Add(1)
		return &ivy.ModuleRevision{Descriptor: &ivy.Descriptor{ID: id}}, nil
	}

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mr, err := cache.GetOrLoad(id, loader)
			if err != nil {
				t.Errorf("GetOrLoad() error = %v", err)
				return
			}
			if mr.Descriptor.ID != id {
				t.Errorf("Expected %s, got %s", id, mr.Descriptor.ID)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("Expected loader to run once, ran %d times", calls.Load())
	}
	if _, ok := cache.Get(id); !ok {
		t.Error("Expected cached entry")
	}
}

func TestDescriptorCache_Errors(t *testing.T) {
	cache := ivy.NewDescriptorCache(10)
	id := coreID("1.0")

	_, err := cache.GetOrLoad(id, func() (*ivy.ModuleRevision, error) {
		return nil, ivy.ErrNotFound
	})
	if !errors.Is(err, ivy.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, ok := cache.Get(id); ok {
		t.Error("Expected failed load not to be returned by Get")
	}
}

func TestDescriptorCache_Eviction(t *testing.T) {
	cache := ivy.NewDescriptorCache(2)
	load := func() (*ivy.ModuleRevision, error) { return &ivy.ModuleRevision{}, nil }

	for _, rev := range []string{"1", "2", "3"} {
		if _, err := cache.GetOrLoad(coreID(rev), load); err != nil {
			t.Fatalf("GetOrLoad() error = %v", err)
		}
	}
	if cache.Size() != 2 {
		t.Errorf("Expected size 2, got %d", cache.Size())
	}
	if _, ok := cache.Get(coreID("1")); ok {
		t.Error("Expected oldest entry to be evicted")
	}
	if _, ok := cache.Get(coreID("3")); !ok {
		t.Error("Expected newest entry to be cached")
	}
}

func TestArtifactCache(t *testing.T) {
	mfs := mapfs.New()
	cache := ivy.NewArtifactCache(mfs, "/cache")
	id := ivy.RevisionID{Module: ivy.ModuleID{Org: "acme", Name: "core"}, Revision: "1.1"}
	jar := ivy.Artifact{Name: "core", Type: "jar", Ext: "jar"}
	src := ivy.Artifact{Name: "core-sources", Type: "source", Ext: "zip"}

	if cache.Root() != "/cache" {
		t.Errorf("Expected root /cache, got %s", cache.Root())
	}

	path, err := cache.Store(id, jar, []byte("bytes"))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if path != "/cache/acme/core/jars/core-1.1.jar" {
		t.Errorf("Expected /cache/acme/core/jars/core-1.1.jar, got %s", path)
	}
	if path != cache.Path(id, jar) {
		t.Errorf("Expected Store to write at Path(), got %s", path)
	}
	data, err := mfs.ReadFile(path)
	if err != nil || string(data) != "bytes" {
		t.Errorf("Expected cached content, got %q (%v)", data, err)
	}

	origins := []resolve.ArtifactOrigin{
		{Name: "core", Ext: "jar", Location: "/repo/acme/core/1.1/core.jar", Local: true},
		{Name: "core-sources", Ext: "zip", Location: "https://repo.example.com/core-sources.zip"},
	}
	if err := cache.SaveOrigins(id, origins, []string{jar.Type, src.Type}); err != nil {
		t.Fatalf("SaveOrigins() error = %v", err)
	}
	got, err := cache.Origins(id)
	if err != nil {
		t.Fatalf("Origins() error = %v", err)
	}
	if diff := cmp.Diff(origins, got); diff != "" {
		t.Errorf("Origins() mismatch (-want +got):\n%s", diff)
	}
}

func TestArtifactCache_MissingOrigins(t *testing.T) {
	cache := ivy.NewArtifactCache(mapfs.New(), "/cache")
	if _, err := cache.Origins(coreID("1.0")); err == nil {
		t.Error("Expected error for module without saved origins")
	}
}

func TestArtifactCache_CorruptOrigins(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/cache/acme/core/ivydata-1.0.properties", "artifact.broken.location = /x\n", 0644)
	cache := ivy.NewArtifactCache(mfs, "/cache")
	if _, err := cache.Origins(coreID("1.0")); err == nil {
		t.Error("Expected error for malformed origin key")
	}
}

func TestDependencyGraph(t *testing.T) {
	g := ivy.NewDependencyGraph()
	g.AddDependency("acme:app", "acme:core")
	g.AddDependency("acme:app", "acme:util")
	g.AddDependency("acme:util", "acme:core")
	g.AddDependency("acme:core", "acme:legacy")
	g.AddDependency("acme:legacy", "acme:app")

	if diff := cmp.Diff([]string{"acme:core", "acme:util"}, g.Dependencies("acme:app")); diff != "" {
		t.Errorf("Dependencies() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"acme:app", "acme:util"}, g.Dependents("acme:core")); diff != "" {
		t.Errorf("Dependents() mismatch (-want +got):\n%s", diff)
	}
	want := []string{"acme:core", "acme:legacy", "acme:util"}
	if diff := cmp.Diff(want, g.Reachable("acme:app")); diff != "" {
		t.Errorf("Reachable() mismatch (-want +got):\n%s", diff)
	}

	cleared := g.ClearDependencies("acme:core")
	if diff := cmp.Diff([]string{"acme:legacy"}, cleared); diff != "" {
		t.Errorf("ClearDependencies() mismatch (-want +got):\n%s", diff)
	}
	if len(g.Dependents("acme:legacy")) != 0 {
		t.Errorf("Expected legacy to lose its dependents, got %v", g.Dependents("acme:legacy"))
	}
	if diff := cmp.Diff([]string{"acme:app", "acme:util"}, g.Dependents("acme:core")); diff != "" {
		t.Errorf("Expected incoming edges to survive (-want +got):\n%s", diff)
	}
	want = []string{"acme:core", "acme:util"}
	if diff := cmp.Diff(want, g.Reachable("acme:app")); diff != "" {
		t.Errorf("Reachable() after clear mismatch (-want +got):\n%s", diff)
	}
}
