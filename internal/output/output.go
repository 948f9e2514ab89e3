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

// Package output provides shared output utilities for ivywatch CLI commands.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"

	"bennypowers.dev/ivywatch/diff"
	"bennypowers.dev/ivywatch/fs"
	"bennypowers.dev/ivywatch/poll"
	"bennypowers.dev/ivywatch/snapshot"
)

// Formats accepted by the renderers.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Write outputs content to w, or to a file when viper's "output" flag is set.
func Write(osfs fs.FileSystem, w io.Writer, content string) error {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if outputPath := viper.GetString("output"); outputPath != "" {
		return osfs.WriteFile(outputPath, []byte(content), 0644)
	}
	_, err := io.WriteString(w, content)
	return err
}

// Snapshot renders a snapshot. The text format lists one dependency per
// line, followed by its artifacts.
func Snapshot(s *snapshot.Snapshot, format string) (string, error) {
	switch format {
	case FormatJSON:
		if s == nil {
			s = snapshot.New(nil)
		}
		data, err := s.Format()
		if err != nil {
			return "", fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return string(data), nil
	case "", FormatText:
		var b strings.Builder
		for _, id := range s.IDs() {
			dep := s.Dependencies[id]
			fmt.Fprintf(&b, "%s %s\n", id, dep.Revision)
			for _, a := range dep.Artifacts {
				fmt.Fprintf(&b, "  %s %s\n", a.FullName(), time.UnixMilli(a.LastModified).UTC().Format(time.RFC3339))
			}
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

type pollJSON struct {
	Job        string `json:"job"`
	Changed    bool   `json:"changed"`
	Outcome    string `json:"outcome"`
	Skipped    bool   `json:"skipped,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

// PollResult renders the result of one cycle: "changed" or "unchanged" as
// text, or a JSON object.
func PollResult(job string, r poll.PollResult, format string) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(pollJSON{
			Job:        job,
			Changed:    r.Changed,
			Outcome:    r.Outcome.String(),
			Skipped:    r.Skipped,
			DurationMS: r.Duration.Milliseconds(),
		}, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode poll result: %w", err)
		}
		return string(data), nil
	case "", FormatText:
		return changedText(r.Changed), nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

type verdictJSON struct {
	Changed bool   `json:"changed"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// Verdict renders the result of an offline comparison.
func Verdict(v diff.Verdict, format string) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(verdictJSON{
			Changed: v.Changed,
			Outcome: v.Outcome.String(),
			Reason:  v.Reason,
		}, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode verdict: %w", err)
		}
		return string(data), nil
	case "", FormatText:
		if v.Reason != "" {
			return changedText(v.Changed) + ": " + v.Reason, nil
		}
		return changedText(v.Changed), nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

func changedText(changed bool) string {
	if changed {
		return "changed"
	}
	return "unchanged"
}
