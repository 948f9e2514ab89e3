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
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"bennypowers.dev/ivywatch/fs"
)

// ErrNotFound is returned when a repository has no such module or artifact.
var ErrNotFound = errors.New("not found")

// Resource is a file found in a repository.
type Resource struct {
	Location string
	// Local is true when Location is a path on the local filesystem.
	Local bool
}

// Repository finds module descriptors and artifacts.
type Repository interface {
	Name() string
	// ListRevisions returns the revisions the repository holds for a module.
	ListRevisions(ctx context.Context, mod ModuleID) ([]string, error)
	// FindDescriptor returns the ivy file of a module revision.
	FindDescriptor(ctx context.Context, id RevisionID) (Resource, []byte, error)
	// FindArtifact returns an artifact of a module revision.
	FindArtifact(ctx context.Context, id RevisionID, a Artifact) (Resource, []byte, error)
}

type storage interface {
	list(ctx context.Context, dir string) ([]string, error)
	read(ctx context.Context, location string) ([]byte, error)
	isNotFound(err error) bool
	local() bool
}

// patternRepository lays modules out according to ivy and artifact patterns.
type patternRepository struct {
	name      string
	ivys      []*Pattern
	artifacts []*Pattern
	store     storage
}

func newPatternRepository(name string, ivys, artifacts []string, store storage) (*patternRepository, error) {
	r := &patternRepository{name: name, store: store}
	for _, p := range ivys {
		parsed, err := ParsePattern(p)
		if err != nil {
			return nil, fmt.Errorf("resolver %s: %w", name, err)
		}
		r.ivys = append(r.ivys, parsed)
	}
	for _, p := range artifacts {
		parsed, err := ParsePattern(p)
		if err != nil {
			return nil, fmt.Errorf("resolver %s: %w", name, err)
		}
		r.artifacts = append(r.artifacts, parsed)
	}
	return r, nil
}

func (r *patternRepository) Name() string {
	return r.name
}

func (r *patternRepository) ListRevisions(ctx context.Context, mod ModuleID) ([]string, error) {
	patterns, artifact := r.ivys, descriptorArtifact()
	if len(patterns) == 0 {
		patterns, artifact = r.artifacts, defaultArtifact(mod)
	}

	seen := make(map[string]bool)
	var revs []string
	for _, p := range patterns {
		parent, segment, ok := p.RevisionListing(Values(RevisionID{Module: mod}, artifact))
		if !ok {
			continue
		}
		names, err := r.store.list(ctx, parent)
		if err != nil {
			if r.store.isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("resolver %s: failed to list %s: %w", r.name, parent, err)
		}
		for _, rev := range matchRevisions(segment, names) {
			if !seen[rev] {
				seen[rev] = true
				revs = append(revs, rev)
			}
		}
	}
	return revs, nil
}

// matchRevisions extracts the revision from every name matching segment,
// a path segment with one "[revision]" token.
func matchRevisions(segment string, names []string) []string {
	before, after, _ := strings.Cut(segment, "["+TokenRevision+"]")
	glob := escapeGlob(before) + "*" + escapeGlob(after)
	re := regexp.MustCompile("^" + regexp.QuoteMeta(before) + "(.+)" + regexp.QuoteMeta(after) + "$")

	var revs []string
	for _, name := range names {
		if ok, _ := doublestar.Match(glob, name); !ok {
			continue
		}
		if m := re.FindStringSubmatch(name); m != nil {
			revs = append(revs, m[1])
		}
	}
	return revs
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (r *patternRepository) FindDescriptor(ctx context.Context, id RevisionID) (Resource, []byte, error) {
	return r.find(ctx, r.ivys, Values(id, descriptorArtifact()))
}

func (r *patternRepository) FindArtifact(ctx context.Context, id RevisionID, a Artifact) (Resource, []byte, error) {
	return r.find(ctx, r.artifacts, Values(id, a))
}

func (r *patternRepository) find(ctx context.Context, patterns []*Pattern, values map[string]string) (Resource, []byte, error) {
	for _, p := range patterns {
		location := p.Expand(values)
		data, err := r.store.read(ctx, location)
		if err == nil {
			return Resource{Location: location, Local: r.store.local()}, data, nil
		}
		if !r.store.isNotFound(err) {
			return Resource{}, nil, fmt.Errorf("resolver %s: %w", r.name, err)
		}
	}
	return Resource{}, nil, ErrNotFound
}

type fileStorage struct {
	fs fs.FileSystem
}

func (s fileStorage) list(_ context.Context, dir string) ([]string, error) {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func (s fileStorage) read(_ context.Context, location string) ([]byte, error) {
	return s.fs.ReadFile(location)
}

func (fileStorage) isNotFound(err error) bool {
	return errors.Is(err, iofs.ErrNotExist)
}

func (fileStorage) local() bool {
	return true
}

type urlStorage struct {
	fetcher Fetcher
}

func (s urlStorage) list(ctx context.Context, dir string) ([]string, error) {
	dir = strings.TrimSuffix(dir, "/") + "/"
	body, err := s.fetcher.Fetch(ctx, dir)
	if err != nil {
		return nil, err
	}
	return ParseListing(dir, body)
}

func (s urlStorage) read(ctx context.Context, location string) ([]byte, error) {
	return s.fetcher.Fetch(ctx, location)
}

func (urlStorage) isNotFound(err error) bool {
	return isNotFound(err)
}

func (urlStorage) local() bool {
	return false
}

// NewFileRepository creates a repository on a filesystem. Relative
// patterns are resolved against baseDir.
func NewFileRepository(name string, fsys fs.FileSystem, baseDir string, ivys, artifacts []string) (Repository, error) {
	abs := func(patterns []string) []string {
		out := make([]string, len(patterns))
		for i, p := range patterns {
			if !filepath.IsAbs(p) && baseDir != "" {
				p = filepath.Join(baseDir, p)
			}
			out[i] = p
		}
		return out
	}
	return newPatternRepository(name, abs(ivys), abs(artifacts), fileStorage{fs: fsys})
}

// NewURLRepository creates a repository served over HTTP. Revisions are
// listed by parsing the server's directory listings.
func NewURLRepository(name string, fetcher Fetcher, ivys, artifacts []string) (Repository, error) {
	return newPatternRepository(name, ivys, artifacts, urlStorage{fetcher: fetcher})
}

// ChainRepository asks its children in order.
type ChainRepository struct {
	name     string
	children []Repository
}

// NewChainRepository creates a chain of repositories.
func NewChainRepository(name string, children ...Repository) *ChainRepository {
	return &ChainRepository{name: name, children: children}
}

func (c *ChainRepository) Name() string {
	return c.name
}

// ListRevisions returns the union of the children's revisions. A child
// that fails is skipped unless every child fails.
func (c *ChainRepository) ListRevisions(ctx context.Context, mod ModuleID) ([]string, error) {
	seen := make(map[string]bool)
	var revs []string
	var errs []error
	for _, child := range c.children {
		found, err := child.ListRevisions(ctx, mod)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, rev := range found {
			if !seen[rev] {
				seen[rev] = true
				revs = append(revs, rev)
			}
		}
	}
	if len(errs) == len(c.children) {
		return nil, errors.Join(errs...)
	}
	return revs, nil
}

// FindDescriptor returns the first child's descriptor.
func (c *ChainRepository) FindDescriptor(ctx context.Context, id RevisionID) (Resource, []byte, error) {
	return c.first(func(r Repository) (Resource, []byte, error) {
		return r.FindDescriptor(ctx, id)
	})
}

// FindArtifact returns the first child's artifact.
func (c *ChainRepository) FindArtifact(ctx context.Context, id RevisionID, a Artifact) (Resource, []byte, error) {
	return c.first(func(r Repository) (Resource, []byte, error) {
		return r.FindArtifact(ctx, id, a)
	})
}

func (c *ChainRepository) first(find func(Repository) (Resource, []byte, error)) (Resource, []byte, error) {
	var errs []error
	for _, child := range c.children {
		res, data, err := find(child)
		if err == nil {
			return res, data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return Resource{}, nil, errors.Join(errs...)
	}
	return Resource{}, nil, ErrNotFound
}

// NewRepository builds the repository a resolver spec describes.
func NewRepository(spec ResolverSpec, fsys fs.FileSystem, fetcher Fetcher, baseDir string) (Repository, error) {
	switch spec.Kind {
	case KindFilesystem:
		return NewFileRepository(spec.Name, fsys, baseDir, spec.IvyPatterns, spec.ArtifactPatterns)
	case KindURL:
		if fetcher == nil {
			return nil, fmt.Errorf("resolver %s: no fetcher for url resolvers", spec.Name)
		}
		return NewURLRepository(spec.Name, fetcher, spec.IvyPatterns, spec.ArtifactPatterns)
	case KindChain:
		children := make([]Repository, 0, len(spec.Children))
		for _, child := range spec.Children {
			r, err := NewRepository(child, fsys, fetcher, baseDir)
			if err != nil {
				return nil, err
			}
			children = append(children, r)
		}
		return NewChainRepository(spec.Name, children...), nil
	}
	return nil, fmt.Errorf("resolver %s: unsupported type %q", spec.Name, spec.Kind)
}
