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
package resolve

import (
	"context"
	"fmt"
	"strings"

	"bennypowers.dev/ivywatch/fs"
	"bennypowers.dev/ivywatch/locate"
	"bennypowers.dev/ivywatch/snapshot"
	"bennypowers.dev/ivywatch/vars"
)

// Request describes one resolution for the Adapter.
type Request struct {
	Descriptor string
	Settings   locate.Source
	// Variables are the inherited environment bindings.
	Variables map[string]string
	// PropertiesFile, when set, names a .properties file whose entries
	// override Variables.
	PropertiesFile string
	// PropertiesContent holds inline definitions overriding everything
	// else. It is macro-expanded against Variables first.
	PropertiesContent string
	Download          bool
	CacheDir          string
}

// AuditLogger is what the Adapter narrates to.
type AuditLogger interface {
	Logger
	Error(format string, args ...any)
}

// Adapter runs an Engine and converts its report into a snapshot.
// Failures never escape as errors: they become a failed Result.
type Adapter struct {
	engine Engine
	fs     fs.FileSystem
	log    AuditLogger
}

// NewAdapter creates an Adapter. fsys is used to read the properties file
// and to stat cached artifacts. log may be nil.
func NewAdapter(engine Engine, fsys fs.FileSystem, log AuditLogger) *Adapter {
	if log == nil {
		log = nopLogger{}
	}
	return &Adapter{engine: engine, fs: fsys, log: log}
}

// Resolve runs one resolution and returns its snapshot.
func (a *Adapter) Resolve(ctx context.Context, req Request) snapshot.Result {
	bindings, err := a.bindings(req)
	if err != nil {
		a.log.Error("Can't read the resolution variables: %v", err)
		return snapshot.Failed(&ResolutionError{Op: "load variables", Err: err})
	}

	a.log.Info("\nResolving Ivy dependencies.")
	report, err := a.engine.Resolve(ctx, EngineRequest{
		Descriptor: req.Descriptor,
		Settings:   req.Settings,
		Variables:  bindings,
		Download:   req.Download,
		CacheDir:   req.CacheDir,
		Logger:     a.log,
	})
	if err != nil {
		a.log.Error("Resolution error: %v", err)
		return snapshot.Failed(&ResolutionError{Op: "resolve " + req.Descriptor, Err: err})
	}
	if report == nil {
		return snapshot.Failed(&ResolutionError{Op: "resolve " + req.Descriptor, Err: fmt.Errorf("engine returned no report")})
	}

	if report.HasProblems() {
		a.log.Error("%s", "Errors:\n"+strings.Join(report.Problems, "\n"))
	}

	deps := make(map[string]snapshot.Dependency, len(report.Nodes))
	for _, node := range report.Nodes {
		id, rev := node.ID(), node.Revision()
		if rev == "" {
			a.log.Warning("Dependency %s has no resolved revision, skipping it.", id)
			continue
		}
		dep := snapshot.Dependency{Revision: rev}
		if node.Downloaded() {
			artifacts, err := a.artifacts(node)
			if err != nil {
				a.log.Error("%v", err)
			}
			dep.Artifacts = artifacts
		}
		deps[id] = dep
	}

	return snapshot.Succeeded(snapshot.New(deps))
}

func (a *Adapter) bindings(req Request) (map[string]string, error) {
	var fileContent []byte
	if req.PropertiesFile != "" {
		data, err := a.fs.ReadFile(req.PropertiesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read properties file %s: %w", req.PropertiesFile, err)
		}
		fileContent = data
	}
	return vars.Bindings(req.Variables, fileContent, req.PropertiesContent)
}

// artifacts collects the local artifacts of a node with their modification
// times. Any failure, including a panic inside the engine, yields no
// artifacts for the node and a PartialArtifactError.
func (a *Adapter) artifacts(node Node) (result []snapshot.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &PartialArtifactError{Module: node.ID(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	origins, err := node.Artifacts()
	if err != nil {
		return nil, &PartialArtifactError{Module: node.ID(), Err: err}
	}

	seen := make(map[string]bool, len(origins))
	for _, o := range origins {
		if !o.Local || o.Location == "" {
			a.log.Debug("Skipping artifact %s of %s: no local origin.", o.Name, node.ID())
			continue
		}
		info, err := a.fs.Stat(o.Location)
		if err != nil {
			a.log.Debug("Skipping artifact %s of %s: %v", o.Name, node.ID(), err)
			continue
		}
		artifact := snapshot.Artifact{
			Name:         o.Name,
			Extension:    o.Ext,
			LastModified: info.ModTime().UnixMilli(),
		}
		if seen[artifact.FullName()] {
			continue
		}
		seen[artifact.FullName()] = true
		result = append(result, artifact)
	}
	return result, nil
}
