package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/rclookup/internal/extract"
	"github.com/law-makers/rclookup/internal/output"
	"github.com/law-makers/rclookup/pkg/models"
)

var (
	format  string
	outFile string
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <plate>",
	Short: "Look up one registration plate",
	Long: `Resolves a single plate and prints the extracted record.

Spaces and case in the plate are ignored. Fields the page does not show
are reported as "Not Found".`,
	Example: `  # Print a table
  rclookup get "MH 12 AB 1234"

  # JSON for scripts
  rclookup get MH12AB1234 --format json

  # Escalate to headless Chrome when blocked
  rclookup get MH12AB1234 --browser -v`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json or csv")
	getCmd.Flags().StringVarP(&outFile, "output", "o", "", "Write output to a file instead of stdout")
}

func runGet(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}
	if err := checkFormat(format); err != nil {
		return err
	}

	res, err := a.Resolver.Lookup(cmd.Context(), args[0])
	log.Debug().
		Str("plate", res.VehicleNo).
		Int("attempts", res.Attempts).
		Dur("took", res.Duration).
		Bool("cached", res.Cached).
		Msg("Lookup finished")

	if werr := writeResults(cmd, []models.Result{res}, a.Resolver.Fields()); werr != nil {
		return werr
	}
	return err
}

func checkFormat(f string) error {
	switch strings.ToLower(f) {
	case "table", "json", "csv":
		return nil
	}
	return fmt.Errorf("invalid format: %s (must be table, json or csv)", f)
}

// writeResults renders results in the selected format to stdout or --output
func writeResults(cmd *cobra.Command, results []models.Result, fields []extract.FieldSpec) error {
	var w io.Writer = cmd.OutOrStdout()
	color := true
	if outFile != "" {
		file, err := os.Create(outFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		w = file
		color = false
	}

	keys := extract.Keys(fields)
	var err error
	switch strings.ToLower(format) {
	case "json":
		if len(results) == 1 {
			err = output.WriteJSON(w, results[0], true)
		} else {
			err = output.WriteJSON(w, results, true)
		}
	case "csv":
		err = output.WriteCSV(w, results, keys)
	default:
		if len(results) == 1 {
			output.WriteRecordTable(w, results[0], keys, color)
		} else {
			output.WriteSummaryTable(w, results, summaryKeys(keys), color)
		}
	}
	if err != nil {
		return err
	}

	if outFile != "" {
		log.Info().Str("file", outFile).Int("results", len(results)).Msg("Output saved")
	}
	return nil
}

// summaryKeys picks the columns shown in the batch table
func summaryKeys(keys []string) []string {
	wanted := map[string]bool{"Owner Name": true, "Maker Model": true, "Registered RTO": true, "Insurance Upto": true}
	var out []string
	for _, k := range keys {
		if wanted[k] {
			out = append(out, k)
		}
	}
	return out
}
