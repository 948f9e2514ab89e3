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
package poll

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Config describes one polling job. Field tags match the watch config file.
type Config struct {
	// Name identifies the job. It names the baseline slot and the log.
	Name string `mapstructure:"name"`
	// Descriptor is the path of the ivy.xml, possibly containing ${VAR} macros.
	Descriptor string `mapstructure:"ivy"`
	// Settings is a path or URL of the ivysettings.xml.
	Settings string `mapstructure:"settings"`
	// PropertiesFiles is a ';'-separated list of properties files or globs.
	PropertiesFiles string `mapstructure:"properties-files"`
	// PropertiesContent holds inline key=value definitions.
	PropertiesContent string `mapstructure:"properties"`
	// Workspace is the job's working directory, the first base for
	// relative paths.
	Workspace string `mapstructure:"workspace"`

	TrackArtifacts   bool   `mapstructure:"track-artifacts"`
	LabelRestriction bool   `mapstructure:"label-restriction"`
	Label            string `mapstructure:"label"`
	Debug            bool   `mapstructure:"debug"`
}

// Validate checks the configuration once, before any polling happens.
func (c Config) Validate() error {
	var errs []error
	name := strings.TrimSpace(c.Name)
	switch {
	case name == "":
		errs = append(errs, errors.New("job name is required"))
	case name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		errs = append(errs, fmt.Errorf("job name %q can't be used as a file name", c.Name))
	}
	if strings.TrimSpace(c.Descriptor) == "" {
		errs = append(errs, errors.New("ivy file is required"))
	}
	if strings.TrimSpace(c.Settings) == "" {
		errs = append(errs, errors.New("ivy settings file or URL is required"))
	}
	if c.LabelRestriction && strings.TrimSpace(c.Label) == "" {
		errs = append(errs, errors.New("label is required when the job is restricted to a label"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid job %q: %w", c.Name, errors.Join(errs...))
	}
	return nil
}

// Node is the machine a job polls on.
type Node struct {
	Name   string   `mapstructure:"name"`
	Labels []string `mapstructure:"labels"`
	// Root is the node's root directory, the second base for relative paths.
	Root string `mapstructure:"root"`
}

// HasLabel reports whether the node carries label. The node name counts as
// one of its labels.
func (n Node) HasLabel(label string) bool {
	label = strings.TrimSpace(label)
	return label == n.Name || slices.Contains(n.Labels, label)
}
