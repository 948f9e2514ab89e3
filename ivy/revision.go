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
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
)

// Module statuses, from least to most mature.
const (
	StatusIntegration = "integration"
	StatusMilestone   = "milestone"
	StatusRelease     = "release"
)

var statusRank = map[string]int{
	StatusIntegration: 0,
	StatusMilestone:   1,
	StatusRelease:     2,
}

// StatusAtLeast reports whether status is at least as mature as least.
// Unknown statuses rank as integration.
func StatusAtLeast(status, least string) bool {
	return statusRank[status] >= statusRank[least]
}

type constraintKind int

const (
	exactKind constraintKind = iota
	latestKind
	prefixKind
	rangeKind
)

// Constraint is a parsed dependency revision constraint.
type Constraint struct {
	raw  string
	kind constraintKind

	// latest.<status>
	status string
	// prefix for "1.+"
	prefix string
	// range bounds; empty means unbounded
	lower, upper         string
	lowerIncl, upperIncl bool
}

// ParseConstraint parses a revision constraint as written in a dependency
// declaration: an exact revision, latest.integration, latest.milestone,
// latest.release, a prefix such as "1.2.+", or a range such as "[1.0,2.0[".
func ParseConstraint(raw string) (Constraint, error) {
	raw = strings.TrimSpace(raw)
	c := Constraint{raw: raw}
	switch {
	case raw == "":
		return c, fmt.Errorf("empty revision constraint")
	case strings.HasPrefix(raw, "latest."):
		status := strings.TrimPrefix(raw, "latest.")
		if _, ok := statusRank[status]; !ok {
			return c, fmt.Errorf("unknown status in revision constraint %q", raw)
		}
		c.kind, c.status = latestKind, status
	case strings.HasSuffix(raw, "+"):
		c.kind, c.prefix = prefixKind, strings.TrimSuffix(raw, "+")
	case isRange(raw):
		if err := c.parseRange(); err != nil {
			return c, err
		}
	default:
		c.kind = exactKind
	}
	return c, nil
}

func isRange(raw string) bool {
	return len(raw) >= 3 && strings.ContainsRune("[](", rune(raw[0])) &&
		strings.ContainsRune("[])", rune(raw[len(raw)-1])) && strings.Contains(raw, ",")
}

func (c *Constraint) parseRange() error {
	open, close := c.raw[0], c.raw[len(c.raw)-1]
	lower, upper, _ := strings.Cut(c.raw[1:len(c.raw)-1], ",")
	c.kind = rangeKind
	c.lower, c.upper = strings.TrimSpace(lower), strings.TrimSpace(upper)
	c.lowerIncl, c.upperIncl = open == '[', close == ']'
	if (open == '(' && c.lower != "") || (close == ')' && c.upper != "") {
		return fmt.Errorf("invalid revision range %q", c.raw)
	}
	if c.lower == "" && c.upper == "" {
		return fmt.Errorf("invalid revision range %q: no bounds", c.raw)
	}
	return nil
}

// String returns the constraint as written.
func (c Constraint) String() string {
	return c.raw
}

// IsDynamic reports whether the constraint needs a repository listing.
func (c Constraint) IsDynamic() bool {
	return c.kind != exactKind
}

// NeedsStatus reports whether Accept depends on the module status, which
// is only known once its descriptor is loaded.
func (c Constraint) NeedsStatus() bool {
	return c.kind == latestKind && c.status != StatusIntegration
}

// AcceptRevision reports whether rev satisfies the constraint, ignoring status.
func (c Constraint) AcceptRevision(rev string) bool {
	switch c.kind {
	case exactKind:
		return rev == c.raw
	case latestKind:
		return true
	case prefixKind:
		return strings.HasPrefix(rev, c.prefix)
	case rangeKind:
		if c.lower != "" {
			cmp := CompareRevisions(rev, c.lower)
			if cmp < 0 || (cmp == 0 && !c.lowerIncl) {
				return false
			}
		}
		if c.upper != "" {
			cmp := CompareRevisions(rev, c.upper)
			if cmp > 0 || (cmp == 0 && !c.upperIncl) {
				return false
			}
		}
		return true
	}
	return false
}

// Accept reports whether a module at rev with the given status satisfies
// the constraint.
func (c Constraint) Accept(rev, status string) bool {
	if !c.AcceptRevision(rev) {
		return false
	}
	if c.kind == latestKind {
		return StatusAtLeast(status, c.status)
	}
	return true
}

// CompareRevisions orders two revisions. Revisions that both parse as
// semantic versions are compared as such; otherwise they are compared
// piecewise, numeric runs numerically and the rest lexically.
func CompareRevisions(a, b string) int {
	if a == b {
		return 0
	}
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		if c := va.Compare(vb); c != 0 {
			return c
		}
	}
	return naturalCompare(a, b)
}

// SortRevisions sorts revisions newest first.
func SortRevisions(revs []string) {
	slices.SortFunc(revs, func(a, b string) int {
		return CompareRevisions(b, a)
	})
}

func naturalCompare(a, b string) int {
	ca, cb := chunks(a), chunks(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := ca[i], cb[i]
		nx, errX := strconv.ParseUint(x, 10, 64)
		ny, errY := strconv.ParseUint(y, 10, 64)
		switch {
		case errX == nil && errY == nil:
			if nx != ny {
				if nx < ny {
					return -1
				}
				return 1
			}
		case errX == nil:
			// a number is newer than a qualifier: 1.0.1 > 1.0.beta
			return 1
		case errY == nil:
			return -1
		default:
			if c := strings.Compare(x, y); c != 0 {
				return c
			}
		}
	}
	return len(ca) - len(cb)
}

// chunks splits a revision into runs of digits and runs of letters;
// separators are dropped.
func chunks(s string) []string {
	var out []string
	var cur strings.Builder
	kind := 0 // 1 digit, 2 letter
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		k := 0
		switch {
		case unicode.IsDigit(r):
			k = 1
		case unicode.IsLetter(r):
			k = 2
		}
		if k != kind {
			flush()
			kind = k
		}
		if k != 0 {
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
