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

// Package poll provides the poll command, running a single polling cycle.
package poll

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"bennypowers.dev/ivywatch/fs"
	"bennypowers.dev/ivywatch/internal/cli"
	"bennypowers.dev/ivywatch/internal/output"
	"bennypowers.dev/ivywatch/poll"
)

// Cmd is the poll command.
var Cmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll a job's Ivy dependencies once",
	Long: `Resolve a job's Ivy dependencies and compare them with the baseline
recorded by the previous poll. Prints "changed" when a build is warranted,
"unchanged" otherwise. The first poll of a job only records the baseline.`,
	Example: `  ivywatch poll --job nightly --ivy ivy.xml --settings https://repo.example.com/ivysettings.xml
  ivywatch poll --job nightly --properties-file 'conf/*.properties' --track-artifacts --format json`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	cli.AddJobFlags(Cmd)
	Cmd.Flags().String("state-dir", cli.DefaultStateDir, "Directory holding baselines, polling logs and caches")
	Cmd.Flags().String("node", "", "Node name (default: host name)")
	Cmd.Flags().StringSlice("node-labels", nil, "Labels of this node")
	Cmd.Flags().StringP("format", "f", output.FormatText, "Output format (text, json)")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := cli.JobFromFlags(cmd)
	if err != nil {
		return err
	}
	stateDir, _ := cmd.Flags().GetString("state-dir")
	nodeName, _ := cmd.Flags().GetString("node")
	labels, _ := cmd.Flags().GetStringSlice("node-labels")
	format, _ := cmd.Flags().GetString("format")
	verbose, _ := cmd.Flags().GetBool("verbose")

	opts := cli.Options{
		StateDir: stateDir,
		Node:     cli.CurrentNode(nodeName, labels, ""),
		Logger:   slog.Default(),
	}
	if verbose {
		opts.Mirror = cmd.ErrOrStderr()
	}
	osfs := fs.NewOSFileSystem()

	trigger, err := poll.NewDefaultRegistry().New(poll.KindIvy, cfg, cli.NewDeps(osfs, opts))
	if err != nil {
		return err
	}
	result, err := trigger.Poll(cmd.Context())
	if err != nil {
		return fmt.Errorf("polling %s: %w", cfg.Name, err)
	}

	out, err := output.PollResult(cfg.Name, result, format)
	if err != nil {
		return err
	}
	return output.Write(osfs, cmd.OutOrStdout(), out)
}
