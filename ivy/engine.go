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
	"maps"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"bennypowers.dev/ivywatch/fs"
	"bennypowers.dev/ivywatch/locate"
	"bennypowers.dev/ivywatch/resolve"
)

// Variables the engine defines while loading settings.
const (
	VarSettingsFile = "ivy.settings.file"
	VarSettingsDir  = "ivy.settings.dir"
)

// DefaultConcurrency is the default number of concurrent repository lookups.
var DefaultConcurrency = runtime.GOMAXPROCS(0) * 2

// Engine resolves ivy.xml descriptors against the repositories declared in
// an ivysettings.xml. It implements resolve.Engine.
type Engine struct {
	fs          fs.FileSystem
	fetcher     Fetcher
	concurrency int
	cacheSize   int
}

var _ resolve.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency bounds the number of concurrent repository lookups.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithDescriptorCacheSize sets how many descriptors a resolution keeps.
func WithDescriptorCacheSize(n int) Option {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// New creates an engine. fetcher serves URL settings and url resolvers and
// may be nil when only local files are used.
func New(fsys fs.FileSystem, fetcher Fetcher, opts ...Option) *Engine {
	e := &Engine{
		fs:          fsys,
		fetcher:     fetcher,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve resolves the descriptor of req transitively. Dependencies that
// can't be resolved are reported as problems. An error is returned only
// when the settings or the root descriptor can't be loaded.
func (e *Engine) Resolve(ctx context.Context, req resolve.EngineRequest) (*resolve.Report, error) {
	log := req.Logger
	if log == nil {
		log = discard{}
	}

	settings, baseDir, err := e.loadSettings(ctx, req.Settings, req.Variables)
	if err != nil {
		return nil, err
	}
	repo, err := NewRepository(settings.Resolvers[settings.DefaultResolver], e.fs, e.fetcher, baseDir)
	if err != nil {
		return nil, err
	}

	data, err := e.fs.ReadFile(req.Descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to read ivy file: %w", err)
	}
	root, err := ParseDescriptor(data, settings.Variables)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Descriptor, err)
	}

	cacheDir := req.CacheDir
	if cacheDir == "" {
		cacheDir = settings.DefaultCacheDir
		if cacheDir != "" && !filepath.IsAbs(cacheDir) && baseDir != "" {
			cacheDir = filepath.Join(baseDir, cacheDir)
		}
	}
	if cacheDir == "" {
		cacheDir = filepath.Join(e.fs.TempDir(), "ivywatch-cache")
	}

	r := &resolution{
		engine:    e,
		repo:      repo,
		vars:      settings.Variables,
		log:       log,
		cache:     NewDescriptorCache(e.cacheSize),
		artifacts: NewArtifactCache(e.fs, cacheDir),
		graph:     NewDependencyGraph(),
		selected:  make(map[string]*selection),
	}

	log.Info(":: resolving dependencies :: %s", root.ID)
	log.Debug("\tusing resolver %s, cache %s", repo.Name(), cacheDir)
	if err := r.walk(ctx, root); err != nil {
		return nil, err
	}

	nodes, err := r.nodes(ctx, root, req.Download)
	if err != nil {
		return nil, err
	}
	return &resolve.Report{Nodes: nodes, Problems: r.problems}, nil
}

// loadSettings reads and parses the settings. The returned directory is
// the base for relative filesystem patterns, empty for remote settings.
func (e *Engine) loadSettings(ctx context.Context, src locate.Source, vars map[string]string) (*Settings, string, error) {
	bindings := maps.Clone(vars)
	if bindings == nil {
		bindings = make(map[string]string)
	}

	var data []byte
	var baseDir string
	var err error
	if src.IsURL() {
		if e.fetcher == nil {
			return nil, "", fmt.Errorf("can't fetch ivy settings %s: no fetcher", src.URL)
		}
		data, err = e.fetcher.Fetch(ctx, src.URL)
		bindings[VarSettingsFile] = src.URL
		dir := src.URL
		if i := strings.LastIndex(dir, "/"); i >= 0 {
			dir = dir[:i]
		}
		bindings[VarSettingsDir] = dir
	} else {
		data, err = e.fs.ReadFile(src.File)
		baseDir = filepath.Dir(src.File)
		bindings[VarSettingsFile] = src.File
		bindings[VarSettingsDir] = baseDir
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load ivy settings %s: %w", src, err)
	}

	settings, err := ParseSettings(data, bindings)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", src, err)
	}
	return settings, baseDir, nil
}

type selection struct {
	mr *ModuleRevision
	// transitive is true once any caller asked for the module's dependencies.
	transitive bool
}

// request is a dependency declared by the revision fromRev of module from.
type request struct {
	from    string
	fromRev string
	dep     Dependency
}

type found struct {
	mr  *ModuleRevision
	err error
}

type resolution struct {
	engine    *Engine
	repo      Repository
	vars      map[string]string
	log       resolve.Logger
	cache     *DescriptorCache
	artifacts *ArtifactCache
	graph     *DependencyGraph

	selected map[string]*selection

	mu       sync.Mutex
	problems []string
}

func (r *resolution) problem(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.mu.Lock()
	r.problems = append(r.problems, msg)
	r.mu.Unlock()
	r.log.Warning("\t%s", msg)
}

// walk resolves the dependency graph level by level. Lookups of a level
// run concurrently; their results are applied in declaration order so
// conflicts are settled deterministically. The latest revision of a
// module wins.
func (r *resolution) walk(ctx context.Context, root *Descriptor) error {
	rootKey := root.ID.Module.String()
	level := requests(rootKey, root.ID.Revision, root.Dependencies)

	for len(level) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		results := make([]found, len(level))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.engine.concurrency)
		for i, req := range level {
			g.Go(func() error {
				mr, err := r.find(gctx, req.dep)
				results[i] = found{mr, err}
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return err
		}

		var next []request
		for i, req := range level {
			if req.from != rootKey {
				if from, ok := r.selected[req.from]; !ok || from.mr.Descriptor.ID.Revision != req.fromRev {
					// requested by an evicted revision
					continue
				}
			}
			key := req.dep.Module.String()
			if key == rootKey {
				r.log.Debug("\tignoring dependency of %s on the module being resolved", req.from)
				continue
			}

			res := results[i]
			if res.err != nil {
				r.problem("unresolved dependency: %s: %v", RevisionID{Module: req.dep.Module, Revision: req.dep.Constraint}, res.err)
				continue
			}
			r.graph.AddDependency(req.from, key)

			id := res.mr.Descriptor.ID
			cur, ok := r.selected[key]
			switch {
			case !ok:
				r.log.Info("\tfound %s in %s", id, res.mr.Repository.Name())
				r.selected[key] = &selection{mr: res.mr, transitive: req.dep.Transitive}
				if req.dep.Transitive {
					next = append(next, requests(key, id.Revision, res.mr.Descriptor.Dependencies)...)
				}
			case cur.mr.Descriptor.ID.Revision == id.Revision:
				if req.dep.Transitive && !cur.transitive {
					cur.transitive = true
					next = append(next, requests(key, id.Revision, res.mr.Descriptor.Dependencies)...)
				}
			case CompareRevisions(id.Revision, cur.mr.Descriptor.ID.Revision) > 0:
				r.log.Info("\tfound %s in %s", id, res.mr.Repository.Name())
				r.log.Debug("\t%s evicted by %s", cur.mr.Descriptor.ID, id)
				r.graph.ClearDependencies(key)
				transitive := cur.transitive || req.dep.Transitive
				r.selected[key] = &selection{mr: res.mr, transitive: transitive}
				if transitive {
					next = append(next, requests(key, id.Revision, res.mr.Descriptor.Dependencies)...)
				}
			default:
				r.log.Debug("\t%s evicted by %s", id, cur.mr.Descriptor.ID)
			}
		}
		level = next
	}
	return nil
}

func requests(from, rev string, deps []Dependency) []request {
	out := make([]request, len(deps))
	for i, d := range deps {
		out[i] = request{from: from, fromRev: rev, dep: d}
	}
	return out
}

// find picks the revision of a dependency. Dynamic constraints take the
// newest listed revision that satisfies them.
func (r *resolution) find(ctx context.Context, dep Dependency) (*ModuleRevision, error) {
	c, err := ParseConstraint(dep.Constraint)
	if err != nil {
		return nil, err
	}
	if !c.IsDynamic() {
		return r.load(ctx, RevisionID{Module: dep.Module, Revision: c.String()})
	}

	revs, err := r.repo.ListRevisions(ctx, dep.Module)
	if err != nil {
		return nil, err
	}
	SortRevisions(revs)
	for _, rev := range revs {
		if !c.AcceptRevision(rev) {
			continue
		}
		mr, err := r.load(ctx, RevisionID{Module: dep.Module, Revision: rev})
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if c.NeedsStatus() && !c.Accept(rev, mr.Descriptor.Status) {
			continue
		}
		return mr, nil
	}
	return nil, ErrNotFound
}

// load reads the descriptor of a module revision. A module published
// without an ivy file gets a default descriptor when its main artifact
// exists.
func (r *resolution) load(ctx context.Context, id RevisionID) (*ModuleRevision, error) {
	return r.cache.GetOrLoad(id, func() (*ModuleRevision, error) {
		res, data, err := r.repo.FindDescriptor(ctx, id)
		if errors.Is(err, ErrNotFound) {
			if _, _, aerr := r.repo.FindArtifact(ctx, id, defaultArtifact(id.Module)); aerr != nil {
				return nil, aerr
			}
			r.log.Debug("\tno ivy file found for %s: using default data", id)
			return &ModuleRevision{Descriptor: defaultDescriptor(id), Repository: r.repo}, nil
		}
		if err != nil {
			return nil, err
		}

		d, err := ParseDescriptor(data, r.vars)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", res.Location, err)
		}
		if d.ID.Module.Org != id.Module.Org || d.ID.Module.Name != id.Module.Name {
			return nil, fmt.Errorf("%s: bad module: expected %s found %s", res.Location, id.Module, d.ID.Module)
		}
		if d.ID.Revision == "" {
			d.ID.Revision = id.Revision
		}
		d.ID.Module.Branch = id.Module.Branch
		return &ModuleRevision{Descriptor: d, Repository: r.repo, Location: res.Location}, nil
	})
}

// nodes returns the modules still reachable from the root once conflicts
// are settled, downloading their artifacts when asked to.
func (r *resolution) nodes(ctx context.Context, root *Descriptor, download bool) ([]resolve.Node, error) {
	keys := r.graph.Reachable(root.ID.Module.String())
	nodes := make([]*node, 0, len(keys))
	for _, key := range keys {
		sel, ok := r.selected[key]
		if !ok {
			continue
		}
		nodes = append(nodes, &node{
			key:   key,
			id:    sel.mr.Descriptor.ID,
			cache: r.artifacts,
		})
	}

	if download {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.engine.concurrency)
		for _, n := range nodes {
			mr := r.selected[n.key].mr
			g.Go(func() error {
				n.downloaded = r.download(gctx, mr)
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	out := make([]resolve.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out, nil
}

// download fetches every published artifact of a module revision into the
// cache and saves where each came from. It reports whether all of them
// were retrieved.
func (r *resolution) download(ctx context.Context, mr *ModuleRevision) bool {
	id := mr.Descriptor.ID
	ok := true
	var origins []resolve.ArtifactOrigin
	var types []string
	for _, a := range mr.Descriptor.Publications {
		ref := fmt.Sprintf("%s!%s.%s", id, a.Name, a.Ext)
		res, data, err := mr.Repository.FindArtifact(ctx, id, a)
		if err != nil {
			ok = false
			r.problem("download failed: %s: %v", ref, err)
			continue
		}
		if _, err := r.artifacts.Store(id, a, data); err != nil {
			ok = false
			r.problem("download failed: %s: %v", ref, err)
			continue
		}
		r.log.Debug("\t[SUCCESSFUL ] %s", ref)
		origins = append(origins, resolve.ArtifactOrigin{
			Name:     a.Name,
			Ext:      a.Ext,
			Location: res.Location,
			Local:    res.Local,
		})
		types = append(types, a.Type)
	}
	if err := r.artifacts.SaveOrigins(id, origins, types); err != nil {
		r.problem("%v", err)
		return false
	}
	return ok
}

type node struct {
	key        string
	id         RevisionID
	downloaded bool
	cache      *ArtifactCache
}

var _ resolve.Node = (*node)(nil)

func (n *node) ID() string       { return n.key }
func (n *node) Revision() string { return n.id.Revision }
func (n *node) Downloaded() bool { return n.downloaded }

func (n *node) Artifacts() ([]resolve.ArtifactOrigin, error) {
	return n.cache.Origins(n.id)
}

type discard struct{}

func (discard) Info(string, ...any)    {}
func (discard) Warning(string, ...any) {}
func (discard) Debug(string, ...any)   {}
