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

// Package diff decides whether a freshly resolved dependency snapshot
// differs from the stored baseline enough to warrant a rebuild.
//
// Checks run in a fixed order and stop at the first difference:
//
//  1. a failed or empty resolution never triggers and never replaces the baseline
//  2. with no baseline the current snapshot becomes the baseline
//  3. a different number of dependencies triggers
//  4. per dependency: a vanished module or a different revision triggers
//  5. with artifact tracking: a vanished artifact or a different
//     modification time triggers
//
// Every check is narrated to an audit.Logger.
package diff

import (
	"fmt"
	"time"

	"bennypowers.dev/ivywatch/audit"
	"bennypowers.dev/ivywatch/snapshot"
)

// Outcome classifies how a comparison ended.
type Outcome int

const (
	// ResolutionError means the current resolution produced no snapshot.
	ResolutionError Outcome = iota
	// EmptyResult means the current resolution found no dependencies.
	EmptyResult
	// FirstRun means there was no baseline to compare against.
	FirstRun
	// Compared means a full comparison ran against the baseline.
	Compared
	// Skipped means the cycle did not resolve anything, because the node
	// may not poll the job.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case ResolutionError:
		return "resolution-error"
	case EmptyResult:
		return "empty-result"
	case FirstRun:
		return "first-run"
	case Compared:
		return "compared"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// IsError reports whether the outcome is one of the error states.
func (o Outcome) IsError() bool {
	return o == ResolutionError || o == EmptyResult
}

// Verdict is the result of comparing a snapshot against the baseline.
type Verdict struct {
	// Changed is true when a rebuild is warranted.
	Changed bool
	Outcome Outcome
	// ReplaceBaseline is true when the current snapshot must become the
	// new baseline. It is never true for error outcomes.
	ReplaceBaseline bool
	// Reason summarizes the first difference found, if any.
	Reason string
}

// Options controls which checks run.
type Options struct {
	// TrackArtifacts enables the per-artifact modification time checks.
	// When false, only module presence and revisions are compared.
	TrackArtifacts bool
}

// Differ compares snapshots and narrates what it checks.
type Differ struct {
	opts Options
	log  audit.Logger
}

// New creates a Differ. A nil logger discards the narrative.
func New(log audit.Logger, opts Options) *Differ {
	if log == nil {
		log = discard{}
	}
	return &Differ{opts: opts, log: log}
}

// Compare evaluates the current resolution result against the previous
// baseline, which is nil on the first run.
func (d *Differ) Compare(previous *snapshot.Snapshot, current snapshot.Result) Verdict {
	switch {
	case current.Kind == snapshot.ResolutionFailed:
		d.log.Error("Can't record the resolved dependencies graph.")
		return Verdict{Outcome: ResolutionError, Reason: errReason(current.Err)}
	case current.Kind == snapshot.EmptyResult || current.Snapshot.Len() == 0:
		d.log.Error("Can't record any dependencies. Check your settings.")
		return Verdict{Outcome: EmptyResult, Reason: "no dependencies resolved"}
	}

	cur := current.Snapshot
	for _, id := range cur.IDs() {
		d.log.Info("Resolved dependency %s ...", id)
	}

	if previous == nil {
		d.log.Info("\nRecording dependencies state. Waiting for next schedule to compare changes between polls.")
		return Verdict{Outcome: FirstRun, ReplaceBaseline: true}
	}

	verdict := Verdict{Outcome: Compared, ReplaceBaseline: true}

	if previous.Len() != cur.Len() {
		d.log.Info("\nThe number of resolved dependencies has changed.")
		verdict.Changed = true
		verdict.Reason = fmt.Sprintf("dependency count changed from %d to %d", previous.Len(), cur.Len())
		return verdict
	}

	d.log.Info("\nChecking comparison to previous recorded dependencies.")
	for _, id := range previous.IDs() {
		if reason, changed := d.dependencyChanged(id, previous.Dependencies[id], cur); changed {
			verdict.Changed = true
			verdict.Reason = reason
			return verdict
		}
	}

	return verdict
}

func (d *Differ) dependencyChanged(id string, prev snapshot.Dependency, cur *snapshot.Snapshot) (string, bool) {
	d.log.Info("Checking previous recording dependency %s", id)

	next, ok := cur.Get(id)
	if !ok {
		d.log.Info("....The previous dependency %s doesn't exist anymore.", id)
		return fmt.Sprintf("%s is no longer resolved", id), true
	}

	if prev.Revision != next.Revision {
		d.log.Info("....The dependency version has changed.")
		d.log.Info("....The previous version recorded was %s.", prev.Revision)
		d.log.Info("....The new computed version is %s.", next.Revision)
		return fmt.Sprintf("%s revision changed from %s to %s", id, prev.Revision, next.Revision), true
	}

	if !d.opts.TrackArtifacts {
		return "", false
	}

	for _, a := range next.Artifacts {
		d.log.Info("..Dependency resolved artifact: %s", a.FullName())
	}

	// A different count is only informational; the per-artifact scan decides.
	if len(prev.Artifacts) != len(next.Artifacts) {
		d.log.Info("....The number of artifacts of the dependency has changed.")
	}

	d.log.Info("...Checking comparison to previous recorded artifacts.")
	for _, a := range prev.Artifacts {
		if reason, changed := d.artifactChanged(id, a, next); changed {
			return reason, true
		}
	}
	return "", false
}

func (d *Differ) artifactChanged(id string, prev snapshot.Artifact, next snapshot.Dependency) (string, bool) {
	name := prev.FullName()
	d.log.Info("....Checking previous recording artifact %s", name)

	current, ok := next.Artifact(name)
	if !ok {
		d.log.Info("....The previous artifact %s doesn't exist anymore.", name)
		return fmt.Sprintf("%s artifact %s is no longer resolved", id, name), true
	}

	if prev.LastModified != current.LastModified {
		d.log.Info("....The artifact version of the dependency has changed.")
		d.log.Info("....The previous publication date recorded was %s.", formatMillis(prev.LastModified))
		d.log.Info("....The new computed publication date is %s.", formatMillis(current.LastModified))
		return fmt.Sprintf("%s artifact %s was republished", id, name), true
	}

	d.log.Info("....No changes for the %s artifact", name)
	return "", false
}

// Changed is a convenience for callers that only need the boolean.
// previous may be nil; current may be nil or empty.
func Changed(previous, current *snapshot.Snapshot, opts Options) bool {
	return New(nil, opts).Compare(previous, snapshot.Succeeded(current)).Changed
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func errReason(err error) string {
	if err == nil {
		return "resolution failed"
	}
	return err.Error()
}

type discard struct{}

func (discard) Info(string, ...any)  {}
func (discard) Error(string, ...any) {}
