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
package snapshot

import "errors"

// Kind tells whether a resolution pass produced a usable snapshot.
type Kind int

const (
	// Success means the snapshot holds at least one dependency.
	Success Kind = iota
	// ResolutionFailed means no snapshot could be produced at all.
	ResolutionFailed
	// EmptyResult means resolution ran but found no dependencies.
	EmptyResult
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case ResolutionFailed:
		return "resolution-failed"
	case EmptyResult:
		return "empty-result"
	default:
		return "unknown"
	}
}

// ErrEmptyResult is carried by EmptyResult results.
var ErrEmptyResult = errors.New("resolution returned no dependencies")

// Result is the outcome of one resolution pass.
// Snapshot is non-nil and non-empty exactly when Kind is Success.
type Result struct {
	Kind     Kind
	Snapshot *Snapshot
	Err      error
}

// Succeeded wraps a snapshot. An empty or nil snapshot yields an EmptyResult.
func Succeeded(s *Snapshot) Result {
	if s.Len() == 0 {
		return Result{Kind: EmptyResult, Err: ErrEmptyResult}
	}
	return Result{Kind: Success, Snapshot: s}
}

// Failed reports a resolution that produced nothing.
func Failed(err error) Result {
	if err == nil {
		err = errors.New("resolution failed")
	}
	return Result{Kind: ResolutionFailed, Err: err}
}

// OK reports whether the result carries a usable snapshot.
func (r Result) OK() bool {
	return r.Kind == Success && r.Snapshot.Len() > 0
}
