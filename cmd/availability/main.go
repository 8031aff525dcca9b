// Command availability queries the availability engine directly against
// Postgres, without the HTTP API.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-availability/internal/app"
	"github.com/hackgods/clinic-availability/internal/config"
	"github.com/hackgods/clinic-availability/internal/logging"
)

var (
	cfg    config.Config
	logger zerolog.Logger
	pretty bool
)

var rootCmd = &cobra.Command{
	Use:   "availability",
	Short: "Query clinic appointment availability",
	Long: `Compute bookable slots, pick the optimal appointment or normalize
dates using the same engine that backs the API.

Examples:
  availability query --org <id> --from 2025-03-10 --to 2025-03-16
  availability optimal --org <id> --service <id> --time morning
  availability normalize 2025-03-10T02:30:00Z`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		logger = logging.NewWithWriter(os.Stderr, cfg.Env, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	rootCmd.AddCommand(queryCmd, optimalCmd, normalizeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withEngine opens the engine for the duration of fn.
func withEngine(cmd *cobra.Command, fn func(deps *app.Deps) error) error {
	deps, err := app.Open(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn().Err(err).Msg("close connections")
		}
	}()
	return fn(deps)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
