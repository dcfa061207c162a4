package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/rclookup/internal/api"
	"github.com/law-makers/rclookup/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve lookups over HTTP",
	Long: `Starts a JSON API:

  GET /                    health text
  GET /api/vehicle/{vno}   lookup envelope

The listen address falls back to $PORT when --addr is not given.`,
	Example: `  rclookup serve --addr :8000

  # Ping a public URL every 10 minutes so the host does not idle out
  rclookup serve --keepalive-url https://my-app.example/`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", config.DefaultServeAddr, "Listen address")
	serveCmd.Flags().String("keepalive-url", "", "URL to ping on the keep-alive schedule")
}

func runServe(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}

	srv, err := api.New(a.Resolver)
	if err != nil {
		return err
	}

	if a.Config.KeepAliveURL != "" {
		ka, err := api.NewKeepAlive(a.Config.KeepAliveURL, a.Config.KeepAliveSchedule)
		if err != nil {
			return err
		}
		ka.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			ka.Stop(ctx)
		}()
	}

	err = srv.ListenAndServe(cmd.Context(), a.Config.ServeAddr)
	log.Info().Dur("uptime", a.Uptime()).Msg("Server stopped")
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
