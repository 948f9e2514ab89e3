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
	"regexp"
	"slices"
	"strings"
)

// Pattern tokens.
const (
	TokenOrganisation = "organisation"
	TokenOrg          = "org"
	TokenOrgPath      = "orgPath"
	TokenModule       = "module"
	TokenRevision     = "revision"
	TokenArtifact     = "artifact"
	TokenType         = "type"
	TokenExt          = "ext"
	TokenBranch       = "branch"
)

// Pattern is a repository layout pattern with token placeholders.
// Supported tokens:
//   - [organisation], [org] - Module organisation (e.g., "org.apache")
//   - [orgPath] - Organisation with dots replaced by slashes
//   - [module] - Module name
//   - [revision] - Module revision
//   - [artifact], [type], [ext] - Artifact name, type and extension
//   - [branch] - Module branch
//
// Parts enclosed in parentheses are optional: they are dropped when a
// token inside them expands to an empty value, e.g. "(-[branch])".
type Pattern struct {
	pattern string
	tokens  []string
}

var tokenPattern = regexp.MustCompile(`\[(\w+)\]`)
var optionalPattern = regexp.MustCompile(`\(([^()]*)\)`)

var validTokens = map[string]bool{
	TokenOrganisation: true,
	TokenOrg:          true,
	TokenOrgPath:      true,
	TokenModule:       true,
	TokenRevision:     true,
	TokenArtifact:     true,
	TokenType:         true,
	TokenExt:          true,
	TokenBranch:       true,
}

// ParsePattern parses a layout pattern.
func ParsePattern(pattern string) (*Pattern, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}

	var tokens []string
	for _, match := range tokenPattern.FindAllStringSubmatch(pattern, -1) {
		if !validTokens[match[1]] {
			return nil, fmt.Errorf("unknown pattern token: [%s]", match[1])
		}
		tokens = append(tokens, match[1])
	}

	return &Pattern{
		pattern: pattern,
		tokens:  tokens,
	}, nil
}

// Expand substitutes tokens with their values. Tokens without a value
// expand to the empty string.
func (p *Pattern) Expand(values map[string]string) string {
	expanded := optionalPattern.ReplaceAllStringFunc(p.pattern, func(group string) string {
		inner := group[1 : len(group)-1]
		for _, m := range tokenPattern.FindAllStringSubmatch(inner, -1) {
			if values[m[1]] == "" {
				return ""
			}
		}
		return inner
	})
	return tokenPattern.ReplaceAllStringFunc(expanded, func(token string) string {
		return values[token[1:len(token)-1]]
	})
}

// Pattern returns the original pattern.
func (p *Pattern) Pattern() string {
	return p.pattern
}

// Tokens returns the tokens used in the pattern.
func (p *Pattern) Tokens() []string {
	return p.tokens
}

// HasRevision returns true if the pattern contains a [revision] token.
// Only such patterns can list the revisions of a module.
func (p *Pattern) HasRevision() bool {
	return slices.Contains(p.tokens, TokenRevision)
}

// RevisionListing splits the pattern, expanded for everything but the
// revision, into the parent location to list and the single path segment
// the revision appears in, with the revision left as the "[revision]" token.
// For "/repo/[org]/[module]/[revision]/ivy.xml" it returns
// "/repo/acme/core" and "[revision]".
func (p *Pattern) RevisionListing(values map[string]string) (parent, segment string, ok bool) {
	if !p.HasRevision() {
		return "", "", false
	}
	v := make(map[string]string, len(values)+1)
	for k, val := range values {
		v[k] = val
	}
	v[TokenRevision] = "[" + TokenRevision + "]"

	expanded := p.Expand(v)
	idx := strings.Index(expanded, "[revision]")
	start := strings.LastIndex(expanded[:idx], "/")
	end := strings.Index(expanded[idx:], "/")
	if end < 0 {
		end = len(expanded)
	} else {
		end += idx
	}
	if start >= 0 {
		parent = expanded[:start]
	}
	return parent, expanded[start+1 : end], true
}

// Values builds the token values for an artifact of a module revision.
func Values(id RevisionID, a Artifact) map[string]string {
	return map[string]string{
		TokenOrganisation: id.Module.Org,
		TokenOrg:          id.Module.Org,
		TokenOrgPath:      strings.ReplaceAll(id.Module.Org, ".", "/"),
		TokenModule:       id.Module.Name,
		TokenBranch:       id.Module.Branch,
		TokenRevision:     id.Revision,
		TokenArtifact:     a.Name,
		TokenType:         a.Type,
		TokenExt:          a.Ext,
	}
}

// descriptorArtifact is the artifact an ivy pattern is expanded with.
func descriptorArtifact() Artifact {
	return Artifact{Name: "ivy", Type: "ivy", Ext: "xml"}
}
