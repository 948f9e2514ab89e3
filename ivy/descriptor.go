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
	"strings"
)

// Default values applied to descriptors.
const (
	DefaultStatus       = StatusIntegration
	DefaultArtifactType = "jar"
)

// Dependency is a dependency declaration of a descriptor.
type Dependency struct {
	Module     ModuleID
	Constraint string
	Transitive bool
}

// Descriptor is a parsed ivy.xml module descriptor.
type Descriptor struct {
	ID           RevisionID
	Status       string
	Publications []Artifact
	Dependencies []Dependency
}

type xmlDescriptor struct {
	XMLName xml.Name `xml:"ivy-module"`
	Info    struct {
		Organisation string `xml:"organisation,attr"`
		Module       string `xml:"module,attr"`
		Revision     string `xml:"revision,attr"`
		Branch       string `xml:"branch,attr"`
		Status       string `xml:"status,attr"`
	} `xml:"info"`
	Publications struct {
		Artifacts []struct {
			Name string `xml:"name,attr"`
			Type string `xml:"type,attr"`
			Ext  string `xml:"ext,attr"`
		} `xml:"artifact"`
	} `xml:"publications"`
	Dependencies struct {
		Items []struct {
			Org        string `xml:"org,attr"`
			Name       string `xml:"name,attr"`
			Rev        string `xml:"rev,attr"`
			Branch     string `xml:"branch,attr"`
			Transitive string `xml:"transitive,attr"`
		} `xml:"dependency"`
	} `xml:"dependencies"`
}

// ParseDescriptor parses an ivy.xml document. ${name} references in
// attributes are substituted from vars.
func ParseDescriptor(data []byte, vars map[string]string) (*Descriptor, error) {
	var raw xmlDescriptor
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse ivy file: %w", err)
	}

	v := func(s string) string { return strings.TrimSpace(substitute(s, vars)) }

	info := raw.Info
	d := &Descriptor{
		ID: RevisionID{
			Module:   ModuleID{Org: v(info.Organisation), Name: v(info.Module), Branch: v(info.Branch)},
			Revision: v(info.Revision),
		},
		Status: v(info.Status),
	}
	if d.ID.Module.Org == "" || d.ID.Module.Name == "" {
		return nil, fmt.Errorf("failed to parse ivy file: info requires organisation and module")
	}
	if d.Status == "" {
		d.Status = DefaultStatus
	}

	for _, a := range raw.Publications.Artifacts {
		art := Artifact{Name: v(a.Name), Type: v(a.Type), Ext: v(a.Ext)}
		if art.Name == "" {
			art.Name = d.ID.Module.Name
		}
		if art.Type == "" {
			art.Type = DefaultArtifactType
		}
		if art.Ext == "" {
			art.Ext = art.Type
		}
		d.Publications = append(d.Publications, art)
	}
	if len(d.Publications) == 0 {
		d.Publications = []Artifact{defaultArtifact(d.ID.Module)}
	}

	for _, dep := range raw.Dependencies.Items {
		mod := ModuleID{Org: v(dep.Org), Name: v(dep.Name), Branch: v(dep.Branch)}
		if mod.Org == "" {
			mod.Org = d.ID.Module.Org
		}
		if mod.Name == "" {
			return nil, fmt.Errorf("failed to parse ivy file: dependency without name in %s", d.ID)
		}
		constraint := v(dep.Rev)
		if constraint == "" {
			constraint = "latest.integration"
		}
		d.Dependencies = append(d.Dependencies, Dependency{
			Module:     mod,
			Constraint: constraint,
			Transitive: !strings.EqualFold(v(dep.Transitive), "false"),
		})
	}
	return d, nil
}

// defaultDescriptor stands in for a module published without an ivy file.
func defaultDescriptor(id RevisionID) *Descriptor {
	return &Descriptor{
		ID:           id,
		Status:       DefaultStatus,
		Publications: []Artifact{defaultArtifact(id.Module)},
	}
}

func defaultArtifact(m ModuleID) Artifact {
	return Artifact{Name: m.Name, Type: DefaultArtifactType, Ext: DefaultArtifactType}
}
