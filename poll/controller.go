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

// Package poll runs polling cycles: resolve a job's dependencies, compare
// them with the stored baseline and decide whether a build is needed.
package poll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"bennypowers.dev/ivywatch/audit"
	"bennypowers.dev/ivywatch/diff"
	"bennypowers.dev/ivywatch/fs"
	"bennypowers.dev/ivywatch/internal/logging"
	"bennypowers.dev/ivywatch/locate"
	"bennypowers.dev/ivywatch/resolve"
	"bennypowers.dev/ivywatch/snapshot"
	"bennypowers.dev/ivywatch/vars"
)

// CacheDirName is the directory under the cache root holding each job's
// resolution cache.
const CacheDirName = "ivy-trigger-cache"

// Deps are the collaborators of a Controller.
type Deps struct {
	FS fs.FileSystem
	// Locator defaults to one rooted at the job workspace and the node root.
	Locator *locate.Locator
	// Env defaults to the process environment.
	Env    vars.Provider
	Engine resolve.Engine
	Store  snapshot.Store
	// Audit defaults to discarding the narrative.
	Audit  audit.Sink
	Logger *slog.Logger
	Node   Node
	// CacheRoot defaults to the filesystem's temp dir.
	CacheRoot string
	// Metrics may be nil.
	Metrics *Metrics
}

// PollResult is the outcome of one cycle.
type PollResult struct {
	Changed bool
	Outcome diff.Outcome
	// Skipped is true when the node may not poll this job.
	Skipped  bool
	Duration time.Duration
}

// Controller polls one job.
type Controller struct {
	cfg     Config
	deps    Deps
	locator *locate.Locator
	logger  *slog.Logger
}

var _ Trigger = (*Controller)(nil)

// NewController validates cfg and creates its controller.
func NewController(cfg Config, deps Deps) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.FS == nil {
		return nil, errors.New("poll: a filesystem is required")
	}
	if deps.Engine == nil {
		return nil, errors.New("poll: a resolution engine is required")
	}
	if deps.Store == nil {
		return nil, errors.New("poll: a baseline store is required")
	}
	if deps.Env == nil {
		deps.Env = vars.OSProvider{}
	}
	if deps.Audit == nil {
		deps.Audit = audit.NewWriterSink(io.Discard)
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.CacheRoot == "" {
		deps.CacheRoot = deps.FS.TempDir()
	}
	locator := deps.Locator
	if locator == nil {
		locator = locate.New(deps.FS, cfg.Workspace, deps.Node.Root)
	}
	return &Controller{
		cfg:     cfg,
		deps:    deps,
		locator: locator,
		logger:  deps.Logger.With("job", cfg.Name),
	}, nil
}

// Name returns the job name.
func (c *Controller) Name() string {
	return c.cfg.Name
}

// Poll runs one cycle. Resolution problems are reported through the
// outcome and the polling log; the error is reserved for baseline storage
// failures and for a polling log that can't be opened. A corrupt baseline
// is discarded and the cycle runs as a first run.
func (c *Controller) Poll(ctx context.Context) (PollResult, error) {
	start := time.Now()
	log, err := c.deps.Audit.Open(c.cfg.Name)
	if err != nil {
		return PollResult{}, fmt.Errorf("failed to open polling log: %w", err)
	}
	log.SetDebug(c.cfg.Debug)

	result, resolved, err := c.poll(ctx, log)
	result.Duration = time.Since(start)

	if cerr := log.Close(); cerr != nil {
		c.logger.Warn("failed to save polling log", "error", cerr)
	}
	c.deps.Metrics.observe(c.cfg.Name, result, resolved)

	if err != nil {
		c.logger.Error("poll failed", "error", err, "duration", result.Duration)
		return result, err
	}
	c.logger.Info("poll finished",
		"changed", result.Changed,
		"outcome", result.Outcome.String(),
		"skipped", result.Skipped,
		"dependencies", resolved,
		"duration", result.Duration,
	)
	return result, nil
}

// Snapshot resolves the job's dependencies without comparing them or
// touching the baseline. The narrative is written to the polling log.
func (c *Controller) Snapshot(ctx context.Context) (snapshot.Result, error) {
	log, err := c.deps.Audit.Open(c.cfg.Name)
	if err != nil {
		return snapshot.Result{}, fmt.Errorf("failed to open polling log: %w", err)
	}
	log.SetDebug(c.cfg.Debug)
	result := c.resolve(ctx, log)
	if cerr := log.Close(); cerr != nil {
		c.logger.Warn("failed to save polling log", "error", cerr)
	}
	return result, nil
}

// poll returns the cycle's result and the number of resolved
// dependencies, -1 when none were resolved.
func (c *Controller) poll(ctx context.Context, log *audit.Log) (PollResult, int, error) {
	if c.cfg.LabelRestriction && !c.deps.Node.HasLabel(c.cfg.Label) {
		log.Error("Polling is restricted to nodes labelled '%s' and %s is not one of them.", c.cfg.Label, c.nodeName())
		return PollResult{Outcome: diff.Skipped, Skipped: true}, -1, nil
	}

	current := c.resolve(ctx, log)

	previous, _, err := c.deps.Store.Load(c.cfg.Name)
	var corrupt *snapshot.CorruptBaselineError
	if errors.As(err, &corrupt) {
		log.Error("The recorded dependencies can't be read and will be recorded again: %v", corrupt.Err)
		c.logger.Warn("discarding corrupt baseline", "path", corrupt.Path, "error", corrupt.Err)
		previous, err = nil, nil
	}
	if err != nil {
		return PollResult{Outcome: diff.ResolutionError}, -1, fmt.Errorf("failed to load the baseline of %s: %w", c.cfg.Name, err)
	}

	differ := diff.New(log, diff.Options{TrackArtifacts: c.cfg.TrackArtifacts})
	verdict := differ.Compare(previous, current)
	result := PollResult{Changed: verdict.Changed, Outcome: verdict.Outcome}

	resolved := -1
	if current.OK() {
		resolved = current.Snapshot.Len()
	}
	if verdict.ReplaceBaseline {
		if err := c.deps.Store.Save(c.cfg.Name, current.Snapshot); err != nil {
			return result, resolved, fmt.Errorf("failed to save the baseline of %s: %w", c.cfg.Name, err)
		}
	}
	if verdict.Changed {
		c.logger.Debug("change detected", "reason", verdict.Reason)
	}
	return result, resolved, nil
}

func (c *Controller) nodeName() string {
	if c.deps.Node.Name == "" {
		return "this node"
	}
	return c.deps.Node.Name
}

// resolve locates the job's files and resolves its dependencies.
func (c *Controller) resolve(ctx context.Context, log *audit.Log) snapshot.Result {
	log.Info("Given job Ivy file value: %s", c.cfg.Descriptor)
	log.Info("Given job Ivy settings file value: %s", c.cfg.Settings)

	env, err := c.deps.Env.Environment(ctx, vars.Scope{
		Job:       c.cfg.Name,
		Node:      c.deps.Node.Name,
		Labels:    c.deps.Node.Labels,
		Workspace: c.cfg.Workspace,
	})
	if err != nil {
		log.Error("Can't read the environment variables: %v", err)
		return snapshot.Failed(&resolve.ResolutionError{Op: "read environment", Err: err})
	}

	descriptor, err := c.locator.Locate(c.cfg.Descriptor, env)
	if err != nil {
		log.Error("You have to provide a valid Ivy file.")
		return snapshot.Failed(&resolve.ResolutionError{Op: "locate ivy file", Err: err})
	}
	settings, err := c.locator.Settings(c.cfg.Settings, env)
	if err != nil {
		log.Error("You have to provide a valid IvySettings file or URL.")
		return snapshot.Failed(&resolve.ResolutionError{Op: "locate ivy settings", Err: err})
	}
	log.Info("Resolved job Ivy file value: %s", descriptor)
	log.Info("Resolved job Ivy settings file value: %s", settings)

	req := resolve.Request{
		Descriptor:        descriptor,
		Settings:          settings,
		Variables:         env,
		PropertiesContent: c.cfg.PropertiesContent,
		Download:          c.cfg.TrackArtifacts,
		CacheDir:          filepath.Join(c.deps.CacheRoot, CacheDirName, c.cfg.Name),
	}

	if strings.TrimSpace(c.cfg.PropertiesFiles) != "" {
		log.Info("Given job properties file path: %s", c.cfg.PropertiesFiles)
		props, err := c.locator.Properties(c.cfg.PropertiesFiles, env)
		if err != nil {
			log.Error("Can't read the properties files: %v", err)
			return snapshot.Failed(&resolve.ResolutionError{Op: "read properties files", Err: err})
		}
		log.Info("Resolved properties file value: %s", strings.Join(props.Files, ";"))

		path, err := c.writeTemp(props.Content)
		if err != nil {
			log.Error("Can't write the temporary properties file: %v", err)
			return snapshot.Failed(&resolve.ResolutionError{Op: "write properties file", Err: err})
		}
		log.Debug("Temporary properties file path is %s", path)
		defer func() {
			if err := c.deps.FS.Remove(path); err != nil {
				log.Warning("Can't delete the temporary properties file %s: %v", path, err)
			}
		}()
		req.PropertiesFile = path
	}

	return resolve.NewAdapter(c.deps.Engine, c.deps.FS, log).Resolve(ctx, req)
}

var tempSeq atomic.Uint64

func (c *Controller) writeTemp(content []byte) (string, error) {
	dir := c.deps.FS.TempDir()
	if err := c.deps.FS.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("ivywatch-%s-%d-%d.properties", c.cfg.Name, time.Now().UnixNano(), tempSeq.Add(1))
	path := filepath.Join(dir, name)
	if err := c.deps.FS.WriteFile(path, content, 0600); err != nil {
		return "", err
	}
	return path, nil
}
