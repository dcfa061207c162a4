package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/law-makers/rclookup/internal/resolver"
	"github.com/law-makers/rclookup/pkg/models"
)

var (
	inputFile   string
	concurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch [plates...]",
	Short: "Look up many plates",
	Long: `Resolves plates given as arguments and/or read from a file, one per line.

Blank lines and lines starting with # are skipped. Duplicates that differ
only in spacing or case are fetched once. Output keeps input order.`,
	Example: `  # From a file, as CSV
  rclookup batch -i plates.txt --format csv -o out.csv

  # Arguments, two at a time
  rclookup batch MH12AB1234 DL3CAB1234 -c 2`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&inputFile, "input", "i", "", "File with one plate per line")
	batchCmd.Flags().IntVarP(&concurrency, "concurrency", "c", resolver.DefaultBatchConcurrency, "Lookups in flight at once")
	batchCmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json or csv")
	batchCmd.Flags().StringVarP(&outFile, "output", "o", "", "Write output to a file instead of stdout")
}

func runBatch(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}
	if err := checkFormat(format); err != nil {
		return err
	}

	plates := append([]string{}, args...)
	if inputFile != "" {
		fromFile, err := readPlates(inputFile)
		if err != nil {
			return err
		}
		plates = append(plates, fromFile...)
	}
	if len(plates) == 0 {
		return fmt.Errorf("no plates given: pass them as arguments or with --input")
	}

	bar := progressbar.NewOptions(len(plates),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Resolving"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	results := a.Resolver.ResolveBatch(cmd.Context(), plates, concurrency, func(models.Result) {
		_ = bar.Add(1)
	})
	_ = bar.Finish()

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	log.Info().Int("total", len(results)).Int("failed", failed).Msg("Batch finished")

	if err := writeResults(cmd, results, a.Resolver.Fields()); err != nil {
		return err
	}
	if cmd.Context().Err() != nil {
		return cmd.Context().Err()
	}
	return nil
}

func readPlates(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer file.Close()

	var plates []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		plates = append(plates, line)
	}
	return plates, scanner.Err()
}
