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

// Package cli wires the polling packages together for the ivywatch
// commands: job flags, the on-disk state layout and the watch config file.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bennypowers.dev/ivywatch/audit"
	"bennypowers.dev/ivywatch/fs"
	"bennypowers.dev/ivywatch/ivy"
	"bennypowers.dev/ivywatch/poll"
	"bennypowers.dev/ivywatch/snapshot"
	"bennypowers.dev/ivywatch/vars"
)

// DefaultStateDir holds baselines, polling logs and resolution caches.
const DefaultStateDir = ".ivywatch"

// State directory layout.
const (
	BaselinesDir = "baselines"
	LogsDir      = "logs"
)

// AddJobFlags registers the flags describing one job.
func AddJobFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("job", "default", "Job name, used for the baseline and the polling log")
	f.String("ivy", "ivy.xml", "Path of the ivy.xml, may contain ${VAR} macros")
	f.String("settings", "ivysettings.xml", "Path or URL of the ivysettings.xml")
	f.String("properties-file", "", "';'-separated properties files or globs")
	f.StringArray("properties", nil, "Inline property definition KEY=VALUE (repeatable)")
	f.String("workspace", ".", "Job workspace, the first base for relative paths")
	f.Bool("track-artifacts", false, "Also detect changes of artifact modification times")
	f.String("label", "", "Only poll on nodes carrying this label")
	f.Bool("debug", false, "Write debug lines to the polling log")
	f.Bool("verbose", false, "Mirror the polling log to stderr")
}

// JobFromFlags reads the flags registered by AddJobFlags.
func JobFromFlags(cmd *cobra.Command) (poll.Config, error) {
	f := cmd.Flags()
	var errs []string
	str := func(name string) string {
		v, err := f.GetString(name)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	boolean := func(name string) bool {
		v, err := f.GetBool(name)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	props, err := f.GetStringArray("properties")
	if err != nil {
		errs = append(errs, err.Error())
	}

	workspace, err := filepath.Abs(str("workspace"))
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg := poll.Config{
		Name:              str("job"),
		Descriptor:        str("ivy"),
		Settings:          str("settings"),
		PropertiesFiles:   str("properties-file"),
		PropertiesContent: strings.Join(props, "\n"),
		Workspace:         workspace,
		TrackArtifacts:    boolean("track-artifacts"),
		Label:             str("label"),
		Debug:             boolean("debug"),
	}
	cfg.LabelRestriction = cfg.Label != ""
	if len(errs) > 0 {
		return poll.Config{}, fmt.Errorf("error reading job flags: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Options describe where a process keeps its state and how it reports.
type Options struct {
	StateDir string
	Node     poll.Node
	Logger   *slog.Logger
	// Mirror receives a copy of every polling log when non-nil.
	Mirror  io.Writer
	Metrics *poll.Metrics
	// Concurrency bounds parallel repository lookups; 0 uses the default.
	Concurrency int
}

// NewDeps builds the collaborators of a controller on the real filesystem.
func NewDeps(osfs fs.FileSystem, opts Options) poll.Deps {
	stateDir := opts.StateDir
	if stateDir == "" {
		stateDir = DefaultStateDir
	}
	return poll.Deps{
		FS:        osfs,
		Env:       vars.OSProvider{},
		Engine:    ivy.New(osfs, ivy.NewHTTPFetcher(), ivy.WithConcurrency(opts.Concurrency)),
		Store:     snapshot.NewFileStore(osfs, filepath.Join(stateDir, BaselinesDir)),
		Audit:     audit.NewFileSink(osfs, filepath.Join(stateDir, LogsDir), opts.Mirror),
		Logger:    opts.Logger,
		Node:      opts.Node,
		CacheRoot: stateDir,
		Metrics:   opts.Metrics,
	}
}

// CurrentNode describes the machine the process runs on. The name
// defaults to the host name.
func CurrentNode(name string, labels []string, root string) poll.Node {
	if name == "" {
		if host, err := os.Hostname(); err == nil {
			name = host
		}
	}
	return poll.Node{Name: name, Labels: labels, Root: root}
}

// ShellHook returns a change handler running command through sh with
// IVYWATCH_JOB set to the job that changed.
func ShellHook(command string, stdout, stderr io.Writer) func(ctx context.Context, job string) error {
	return func(ctx context.Context, job string) error {
		c := exec.CommandContext(ctx, "sh", "-c", command)
		c.Env = append(os.Environ(), "IVYWATCH_JOB="+job)
		c.Stdout = stdout
		c.Stderr = stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("on-change command for %s: %w", job, err)
		}
		return nil
	}
}
