package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/rclookup/internal/session"
	"github.com/law-makers/rclookup/internal/ui"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the upstream cookie session",
	Long: `The session is the cookie set obtained by visiting the site root before
searching. With --persist-session it is saved in the OS keyring (or a file
under ~/.rclookup/sessions when no keyring is available) and reused by
later runs.`,
}

var sessionWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Visit the site root now and store fresh cookies",
	Example: `  rclookup session warm --persist-session
  rclookup session warm --session mirror --base-url https://mirror.example/ --persist-session`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetAppFromCmd(cmd)
		if a == nil {
			return fmt.Errorf("application not initialized")
		}

		a.Session.Invalidate(cmd.Context())
		info := a.Session.Ensure(cmd.Context())
		if info.Degraded {
			return fmt.Errorf("warm-up failed: %s", info.Error)
		}
		if a.Persister == nil {
			log.Warn().Msg("Session persistence is off, cookies will not outlive this run")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s Session %q warmed with %d cookies\n",
			ui.Success("✓"), a.Config.SessionName, info.Cookies)
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current session and stored snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetAppFromCmd(cmd)
		if a == nil {
			return fmt.Errorf("application not initialized")
		}

		info := a.Session.Info()
		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetTitle("Session " + a.Config.SessionName)
		t.AppendHeader(table.Row{"Property", "Value"})
		t.AppendRow(table.Row{"Base URL", a.Config.BaseURL})
		t.AppendRow(table.Row{"Valid", info.Valid})
		t.AppendRow(table.Row{"Degraded", info.Degraded})
		t.AppendRow(table.Row{"Cookies", info.Cookies})
		if !info.WarmedAt.IsZero() {
			t.AppendRow(table.Row{"Warmed", info.WarmedAt.Format(time.RFC3339)})
		}
		if info.Error != "" {
			t.AppendRow(table.Row{"Last error", info.Error})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		names, err := persisterFor(a.Persister).List()
		if err != nil {
			return fmt.Errorf("failed to list snapshots: %w", err)
		}
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Info("No stored snapshots"))
			return nil
		}

		st := table.NewWriter()
		st.SetOutputMirror(cmd.OutOrStdout())
		st.AppendHeader(table.Row{"Snapshot"})
		for _, n := range names {
			st.AppendRow(table.Row{n})
		}
		st.SetStyle(table.StyleRounded)
		st.Render()
		return nil
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the current session and delete its stored snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetAppFromCmd(cmd)
		if a == nil {
			return fmt.Errorf("application not initialized")
		}

		a.Session.Invalidate(cmd.Context())
		if err := persisterFor(a.Persister).Delete(a.Config.SessionName); err != nil {
			return fmt.Errorf("failed to delete snapshot: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Session %q cleared\n", ui.Success("✓"), a.Config.SessionName)
		return nil
	},
}

// persisterFor lets show and clear reach stored snapshots even when this run
// does not persist its own session.
func persisterFor(p session.Persister) session.Persister {
	if p != nil {
		return p
	}
	return session.NewKeyringPersister("")
}

func init() {
	sessionCmd.AddCommand(sessionWarmCmd, sessionShowCmd, sessionClearCmd)
	rootCmd.AddCommand(sessionCmd)
}
