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

// Package version provides the version command for ivywatch.
package version

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"bennypowers.dev/ivywatch/fs"
	"bennypowers.dev/ivywatch/internal/output"
	"bennypowers.dev/ivywatch/internal/version"
)

// FormatFull prints the release together with its commit.
const FormatFull = "full"

// Cmd is the version command.
var Cmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ivywatch build",
	Long: `Print the ivywatch release. --format full adds the commit it was built
from; --format json prints the whole build record, including the Go toolchain.`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", output.FormatText, "Build format (text, full, json)")
}

func run(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("error reading format flag: %w", err)
	}
	out, err := Render(format)
	if err != nil {
		return err
	}
	return output.Write(fs.NewOSFileSystem(), cmd.OutOrStdout(), out)
}

// Render describes the running build in the given format.
func Render(format string) (string, error) {
	switch format {
	case output.FormatJSON:
		data, err := json.MarshalIndent(version.GetBuildInfo(), "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode build info: %w", err)
		}
		return string(data), nil
	case FormatFull:
		return "ivywatch " + version.GetFullVersion(), nil
	case "", output.FormatText:
		return "ivywatch " + version.GetVersion(), nil
	default:
		return "", fmt.Errorf("unknown format %q (text, full, json)", format)
	}
}
