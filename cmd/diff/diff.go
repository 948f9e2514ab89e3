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

// Package diff provides the diff command, comparing two stored snapshots.
package diff

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bennypowers.dev/ivywatch/audit"
	"bennypowers.dev/ivywatch/diff"
	"bennypowers.dev/ivywatch/fs"
	"bennypowers.dev/ivywatch/internal/output"
	"bennypowers.dev/ivywatch/snapshot"
)

// Cmd is the diff command.
var Cmd = &cobra.Command{
	Use:   "diff PREVIOUS.json CURRENT.json",
	Short: "Compare two dependency snapshots",
	Long: `Compare two snapshots, as printed by the snapshot command or stored as
baselines, the way a poll compares a fresh resolution with its baseline.
The comparison narrative goes to stderr.`,
	Args: cobra.ExactArgs(2),
	RunE: run,
}

func init() {
	Cmd.Flags().Bool("track-artifacts", false, "Also compare artifact modification times")
	Cmd.Flags().BoolP("quiet", "q", false, "Do not print the comparison narrative")
	Cmd.Flags().StringP("format", "f", output.FormatText, "Output format (text, json)")
}

func run(cmd *cobra.Command, args []string) error {
	track, _ := cmd.Flags().GetBool("track-artifacts")
	quiet, _ := cmd.Flags().GetBool("quiet")
	format, _ := cmd.Flags().GetString("format")
	osfs := fs.NewOSFileSystem()

	previous, err := load(osfs, args[0])
	if err != nil {
		return err
	}
	current, err := load(osfs, args[1])
	if err != nil {
		return err
	}

	var narrative io.Writer = cmd.ErrOrStderr()
	if quiet {
		narrative = nil
	}
	log := audit.New(narrative)
	defer func() { _ = log.Close() }()

	verdict := diff.New(log, diff.Options{TrackArtifacts: track}).
		Compare(previous, snapshot.Succeeded(current))

	out, err := output.Verdict(verdict, format)
	if err != nil {
		return err
	}
	return output.Write(osfs, cmd.OutOrStdout(), out)
}

func load(osfs fs.FileSystem, path string) (*snapshot.Snapshot, error) {
	data, err := osfs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	s, err := snapshot.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
