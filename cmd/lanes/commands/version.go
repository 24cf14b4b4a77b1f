package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/lanes/version"
)

var versionJSON bool

// VersionCmd prints build information.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show lanes version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeVersion(cmd.OutOrStdout(), version.Get(), versionJSON)
	},
}

func init() {
	VersionCmd.Flags().BoolVarP(&versionJSON, "json", "j", false, "Output version info as JSON")
}

func writeVersion(w io.Writer, info version.Info, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(info); err != nil {
			return fmt.Errorf("failed to format version info: %w", err)
		}
		return nil
	}

	rows := pterm.TableData{
		{"Version", info.Version},
		{"Commit", info.Short()},
		{"Built", info.BuildTime},
		{"Go", info.GoVersion},
		{"Platform", info.Platform},
	}
	if info.Modified {
		rows = append(rows, []string{"Tree", "modified"})
	}
	table, err := pterm.DefaultTable.WithData(rows).Srender()
	if err != nil {
		return fmt.Errorf("failed to render version info: %w", err)
	}
	_, err = fmt.Fprintln(w, table)
	return err
}
