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

// Package snapshot provides the snapshot command, printing a job's
// resolved dependencies.
package snapshot

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"bennypowers.dev/ivywatch/fs"
	"bennypowers.dev/ivywatch/internal/cli"
	"bennypowers.dev/ivywatch/internal/output"
	"bennypowers.dev/ivywatch/poll"
)

// Cmd is the snapshot command.
var Cmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Resolve a job and print its dependency snapshot",
	Long: `Resolve a job's Ivy dependencies and print the snapshot a poll would
compare. The baseline is left untouched.`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	cli.AddJobFlags(Cmd)
	Cmd.Flags().String("state-dir", cli.DefaultStateDir, "Directory holding polling logs and caches")
	Cmd.Flags().StringP("format", "f", output.FormatJSON, "Output format (json, text)")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := cli.JobFromFlags(cmd)
	if err != nil {
		return err
	}
	// label restrictions only apply to scheduled polls
	cfg.LabelRestriction, cfg.Label = false, ""
	stateDir, _ := cmd.Flags().GetString("state-dir")
	format, _ := cmd.Flags().GetString("format")
	verbose, _ := cmd.Flags().GetBool("verbose")

	opts := cli.Options{StateDir: stateDir, Node: cli.CurrentNode("", nil, ""), Logger: slog.Default()}
	if verbose {
		opts.Mirror = cmd.ErrOrStderr()
	}
	osfs := fs.NewOSFileSystem()

	c, err := poll.NewController(cfg, cli.NewDeps(osfs, opts))
	if err != nil {
		return err
	}
	result, err := c.Snapshot(cmd.Context())
	if err != nil {
		return err
	}
	if !result.OK() {
		return fmt.Errorf("resolution of %s failed: %w", cfg.Descriptor, result.Err)
	}

	out, err := output.Snapshot(result.Snapshot, format)
	if err != nil {
		return err
	}
	return output.Write(osfs, cmd.OutOrStdout(), out)
}
