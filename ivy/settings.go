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
	"encoding/xml"
	"fmt"
	"maps"
	"strings"
)

// Resolver kinds understood in ivysettings.xml.
const (
	KindFilesystem = "filesystem"
	KindURL        = "url"
	KindChain      = "chain"
)

// ResolverSpec is a resolver declared in the settings.
type ResolverSpec struct {
	Kind             string
	Name             string
	IvyPatterns      []string
	ArtifactPatterns []string
	// Children of a chain resolver, in order.
	Children []ResolverSpec
}

// Settings is a parsed ivysettings.xml.
type Settings struct {
	// Variables holds the bindings the settings were evaluated with,
	// including the properties they define.
	Variables       map[string]string
	DefaultResolver string
	DefaultCacheDir string
	Resolvers       map[string]ResolverSpec
}

type xmlSettings struct {
	XMLName    xml.Name `xml:"ivysettings"`
	Properties []struct {
		Name     string `xml:"name,attr"`
		Value    string `xml:"value,attr"`
		Override string `xml:"override,attr"`
	} `xml:"property"`
	Settings struct {
		DefaultResolver string `xml:"defaultResolver,attr"`
	} `xml:"settings"`
	Caches struct {
		DefaultCacheDir string `xml:"defaultCacheDir,attr"`
	} `xml:"caches"`
	Resolvers struct {
		Items []xmlResolver `xml:",any"`
	} `xml:"resolvers"`
}

type xmlResolver struct {
	XMLName   xml.Name
	Name      string        `xml:"name,attr"`
	Ivys      []xmlPattern  `xml:"ivy"`
	Artifacts []xmlPattern  `xml:"artifact"`
	Children  []xmlResolver `xml:",any"`
}

type xmlPattern struct {
	Pattern string `xml:"pattern,attr"`
}

// ParseSettings parses an ivysettings.xml document. Properties are
// evaluated in document order on top of vars; a property with
// override="false" does not replace an existing binding. ${name}
// references anywhere else are substituted once all properties are known.
func ParseSettings(data []byte, vars map[string]string) (*Settings, error) {
	var raw xmlSettings
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse ivy settings: %w", err)
	}

	bindings := maps.Clone(vars)
	if bindings == nil {
		bindings = make(map[string]string)
	}
	for _, p := range raw.Properties {
		if p.Name == "" {
			continue
		}
		if _, exists := bindings[p.Name]; exists && strings.EqualFold(p.Override, "false") {
			continue
		}
		bindings[p.Name] = substitute(p.Value, bindings)
	}

	s := &Settings{
		Variables:       bindings,
		DefaultResolver: substitute(raw.Settings.DefaultResolver, bindings),
		DefaultCacheDir: substitute(raw.Caches.DefaultCacheDir, bindings),
		Resolvers:       make(map[string]ResolverSpec),
	}

	var first string
	for _, r := range raw.Resolvers.Items {
		spec, err := resolverSpec(r, bindings)
		if err != nil {
			return nil, err
		}
		if _, dup := s.Resolvers[spec.Name]; dup {
			return nil, fmt.Errorf("failed to parse ivy settings: duplicate resolver %q", spec.Name)
		}
		s.Resolvers[spec.Name] = spec
		if first == "" {
			first = spec.Name
		}
	}

	if s.DefaultResolver == "" {
		if len(s.Resolvers) != 1 {
			return nil, fmt.Errorf("failed to parse ivy settings: no default resolver")
		}
		s.DefaultResolver = first
	}
	if _, ok := s.Resolvers[s.DefaultResolver]; !ok {
		return nil, fmt.Errorf("failed to parse ivy settings: unknown default resolver %q", s.DefaultResolver)
	}
	return s, nil
}

func resolverSpec(r xmlResolver, vars map[string]string) (ResolverSpec, error) {
	spec := ResolverSpec{
		Kind: r.XMLName.Local,
		Name: substitute(r.Name, vars),
	}
	if spec.Name == "" {
		return spec, fmt.Errorf("failed to parse ivy settings: %s resolver without a name", spec.Kind)
	}
	switch spec.Kind {
	case KindFilesystem, KindURL:
		for _, p := range r.Ivys {
			spec.IvyPatterns = append(spec.IvyPatterns, substitute(p.Pattern, vars))
		}
		for _, p := range r.Artifacts {
			spec.ArtifactPatterns = append(spec.ArtifactPatterns, substitute(p.Pattern, vars))
		}
		if len(spec.ArtifactPatterns) == 0 {
			return spec, fmt.Errorf("failed to parse ivy settings: resolver %q has no artifact pattern", spec.Name)
		}
	case KindChain:
		for _, child := range r.Children {
			c, err := resolverSpec(child, vars)
			if err != nil {
				return spec, err
			}
			spec.Children = append(spec.Children, c)
		}
		if len(spec.Children) == 0 {
			return spec, fmt.Errorf("failed to parse ivy settings: chain %q is empty", spec.Name)
		}
	default:
		return spec, fmt.Errorf("failed to parse ivy settings: unsupported resolver type %q", spec.Kind)
	}
	return spec, nil
}
