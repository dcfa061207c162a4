package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/rclookup/internal/detect"
	"github.com/law-makers/rclookup/internal/output"
	"github.com/law-makers/rclookup/pkg/models"
)

var dumpFormat string

var dumpCmd = &cobra.Command{
	Use:   "dump <plate>",
	Short: "Fetch a result page once and save it for inspection",
	Long: `Warms the session, fetches the search page for a plate once and writes it
as Markdown or raw HTML. Nothing is retried or extracted, so this shows
exactly what the upstream returned when labels stop matching.`,
	Example: `  rclookup dump MH12AB1234 -o page.md
  rclookup dump MH12AB1234 --format html -o page.html`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVar(&dumpFormat, "format", "markdown", "Output format: markdown or html")
	dumpCmd.Flags().StringVarP(&outFile, "output", "o", "", "Write the page to a file instead of stdout")
}

func runDump(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}

	q := models.NewPlateQuery(args[0])
	if q.IsZero() {
		return fmt.Errorf("plate is empty")
	}

	info := a.Session.Ensure(cmd.Context())
	if info.Degraded {
		log.Warn().Str("error", info.Error).Msg("Session warm-up failed, fetching anyway")
	}

	resp, err := a.HTTP.Fetch(cmd.Context(), q, a.Session)
	if err != nil {
		return err
	}

	verdict := detect.Classify(resp.Status, resp.Body, a.Config.DetectRules())
	log.Info().
		Int("status", resp.Status).
		Int("bytes", len(resp.Body)).
		Bool("blocked", verdict.Blocked).
		Str("reason", string(verdict.Reason)).
		Str("detail", verdict.Detail).
		Msg("Page fetched")

	var content string
	switch strings.ToLower(dumpFormat) {
	case "html":
		content = resp.Body
	case "markdown", "md":
		content, err = output.ToMarkdown(resp.Body, resp.URL)
		if err != nil {
			return fmt.Errorf("failed to convert page: %w", err)
		}
	default:
		return fmt.Errorf("invalid format: %s (must be markdown or html)", dumpFormat)
	}

	if outFile == "" {
		fmt.Fprintln(cmd.OutOrStdout(), content)
		return nil
	}
	if err := os.WriteFile(outFile, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	log.Info().Str("file", outFile).Msg("Page saved")
	return nil
}
