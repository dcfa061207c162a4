package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/law-makers/rclookup/internal/extract"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the fields extracted from a result page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetAppFromCmd(cmd)
		if a == nil {
			return fmt.Errorf("application not initialized")
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Key", "Page Label", "Match"})

		for _, f := range a.Resolver.Fields() {
			match := f.Match
			if match == "" {
				match = extract.MatchExact
			}
			t.AppendRow(table.Row{f.Key, f.Label, match})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}
