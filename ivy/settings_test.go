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
package ivy_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"bennypowers.dev/ivywatch/ivy"
)

const chainSettings = `<?xml version="1.0" encoding="UTF-8"?>
<ivysettings>
  <property name="repo.dir" value="${ivy.settings.dir}/repository"/>
  <property name="remote" value="https://repo.example.com/ivy" override="false"/>
  <settings defaultResolver="main"/>
  <caches defaultCacheDir="${ivy.settings.dir}/cache"/>
  <resolvers>
    <chain name="main">
      <filesystem name="local">
        <ivy pattern="${repo.dir}/[organisation]/[module]/[revision]/ivy.xml"/>
        <artifact pattern="${repo.dir}/[organisation]/[module]/[revision]/[artifact].[ext]"/>
      </filesystem>
      <url name="shared">
        <ivy pattern="${remote}/[organisation]/[module]/[revision]/ivy.xml"/>
        <artifact pattern="${remote}/[organisation]/[module]/[revision]/[artifact].[ext]"/>
      </url>
    </chain>
  </resolvers>
</ivysettings>`

func TestParseSettings(t *testing.T) {
	s, err := ivy.ParseSettings([]byte(chainSettings), map[string]string{
		"ivy.settings.dir": "/ivy",
		"remote":           "https://mirror.example.com",
	})
	if err != nil {
		t.Fatalf("ParseSettings() error = %v", err)
	}

	if s.DefaultResolver != "main" {
		t.Errorf("Expected default resolver main, got %s", s.DefaultResolver)
	}
	if s.DefaultCacheDir != "/ivy/cache" {
		t.Errorf("Expected cache dir /ivy/cache, got %s", s.DefaultCacheDir)
	}
	if s.Variables["repo.dir"] != "/ivy/repository" {
		t.Errorf("Expected repo.dir /ivy/repository, got %s", s.Variables["repo.dir"])
	}

	want := ivy.ResolverSpec{
		Kind: ivy.KindChain,
		Name: "main",
		Children: []ivy.ResolverSpec{
			{
				Kind:             ivy.KindFilesystem,
				Name:             "local",
				IvyPatterns:      []string{"/ivy/repository/[organisation]/[module]/[revision]/ivy.xml"},
				ArtifactPatterns: []string{"/ivy/repository/[organisation]/[module]/[revision]/[artifact].[ext]"},
			},
			{
				Kind:             ivy.KindURL,
				Name:             "shared",
				IvyPatterns:      []string{"https://mirror.example.com/[organisation]/[module]/[revision]/ivy.xml"},
				ArtifactPatterns: []string{"https://mirror.example.com/[organisation]/[module]/[revision]/[artifact].[ext]"},
			},
		},
	}
	if diff := cmp.Diff(want, s.Resolvers["main"]); diff != "" {
		t.Errorf("resolver mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSettings_PropertyOverride(t *testing.T) {
	data := `<ivysettings>
  <property name="a" value="settings"/>
  <property name="b" value="settings" override="false"/>
  <property name="c" value="${a}-${b}"/>
  <resolvers>
    <filesystem name="only">
      <artifact pattern="/repo/[module].[ext]"/>
    </filesystem>
  </resolvers>
</ivysettings>`

	s, err := ivy.ParseSettings([]byte(data), map[string]string{"a": "env", "b": "env"})
	if err != nil {
		t.Fatalf("ParseSettings() error = %v", err)
	}
	want := map[string]string{"a": "settings", "b": "env", "c": "settings-env"}
	for k, v := range want {
		if s.Variables[k] != v {
			t.Errorf("Expected %s=%s, got %s", k, v, s.Variables[k])
		}
	}
	if s.DefaultResolver != "only" {
		t.Errorf("Expected single resolver to be the default, got %q", s.DefaultResolver)
	}
}

func TestParseSettings_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `<ivysettings><resolvers>`},
		{"no resolvers", `<ivysettings/>`},
		{
			"unknown default",
			`<ivysettings><settings defaultResolver="nope"/><resolvers>
			  <filesystem name="a"><artifact pattern="/r/[module]"/></filesystem>
			</resolvers></ivysettings>`,
		},
		{
			"ambiguous default",
			`<ivysettings><resolvers>
			  <filesystem name="a"><artifact pattern="/r/[module]"/></filesystem>
			  <filesystem name="b"><artifact pattern="/r/[module]"/></filesystem>
			</resolvers></ivysettings>`,
		},
		{
			"duplicate resolver",
			`<ivysettings><settings defaultResolver="a"/><resolvers>
			  <filesystem name="a"><artifact pattern="/r/[module]"/></filesystem>
			  <filesystem name="a"><artifact pattern="/s/[module]"/></filesystem>
			</resolvers></ivysettings>`,
		},
		{
			"no artifact pattern",
			`<ivysettings><resolvers>
			  <filesystem name="a"><ivy pattern="/r/[module]/ivy.xml"/></filesystem>
			</resolvers></ivysettings>`,
		},
		{
			"empty chain",
			`<ivysettings><resolvers><chain name="c"/></resolvers></ivysettings>`,
		},
		{
			"unsupported resolver",
			`<ivysettings><resolvers><ibiblio name="m2"/></resolvers></ivysettings>`,
		},
		{
			"unnamed resolver",
			`<ivysettings><resolvers>
			  <filesystem><artifact pattern="/r/[module]"/></filesystem>
			</resolvers></ivysettings>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ivy.ParseSettings([]byte(tt.data), nil); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestParseDescriptor(t *testing.T) {
	data := `<?xml version="1.0" encoding="UTF-8"?>
<ivy-module version="2.0">
  <info organisation="acme" module="app" revision="${app.version}" status="release"/>
  <publications>
    <artifact name="app" type="war"/>
    <artifact type="source" ext="zip"/>
  </publications>
  <dependencies>
    <dependency name="core" rev="1.+"/>
    <dependency org="other" name="util" rev="2.0" transitive="false"/>
    <dependency org="other" name="edge" branch="trunk"/>
  </dependencies>
</ivy-module>`

	d, err := ivy.ParseDescriptor([]byte(data), map[string]string{"app.version": "3.1"})
	if err != nil {
		t.Fatalf("ParseDescriptor() error = %v", err)
	}

	want := &ivy.Descriptor{
		ID: ivy.RevisionID{
			Module:   ivy.ModuleID{Org: "acme", Name: "app"},
			Revision: "3.1",
		},
		Status: ivy.StatusRelease,
		Publications: []ivy.Artifact{
			{Name: "app", Type: "war", Ext: "war"},
			{Name: "app", Type: "source", Ext: "zip"},
		},
		Dependencies: []ivy.Dependency{
			{Module: ivy.ModuleID{Org: "acme", Name: "core"}, Constraint: "1.+", Transitive: true},
			{Module: ivy.ModuleID{Org: "other", Name: "util"}, Constraint: "2.0", Transitive: false},
			{Module: ivy.ModuleID{Org: "other", Name: "edge", Branch: "trunk"}, Constraint: "latest.integration", Transitive: true},
		},
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("ParseDescriptor() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDescriptor_Defaults(t *testing.T) {
	d, err := ivy.ParseDescriptor([]byte(`<ivy-module><info organisation="acme" module="lib"/></ivy-module>`), nil)
	if err != nil {
		t.Fatalf("ParseDescriptor() error = %v", err)
	}
	if d.Status != ivy.StatusIntegration {
		t.Errorf("Expected integration status, got %s", d.Status)
	}
	want := []ivy.Artifact{{Name: "lib", Type: "jar", Ext: "jar"}}
	if diff := cmp.Diff(want, d.Publications); diff != "" {
		t.Errorf("publications mismatch (-want +got):\n%s", diff)
	}
	if len(d.Dependencies) != 0 {
		t.Errorf("Expected no dependencies, got %v", d.Dependencies)
	}
}

func TestParseDescriptor_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `<ivy-module><info`},
		{"no module", `<ivy-module><info organisation="acme"/></ivy-module>`},
		{"nameless dependency", `<ivy-module><info organisation="acme" module="a"/><dependencies><dependency rev="1"/></dependencies></ivy-module>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ivy.ParseDescriptor([]byte(tt.data), nil); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}
