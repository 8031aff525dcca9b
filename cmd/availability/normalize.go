package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-availability/internal/calendar"
)

var normalizeTZ string

// normalizeCmd needs no database, so it skips config loading.
var normalizeCmd = &cobra.Command{
	Use:   "normalize <date>...",
	Short: "Validate dates and show their clinic-local calendar reading",
	Args:  cobra.MinimumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := time.LoadLocation(normalizeTZ)
		if err != nil {
			return fmt.Errorf("--tz: %w", err)
		}
		out := make([]calendar.Normalization, 0, len(args))
		for _, a := range args {
			out = append(out, calendar.ValidateAndNormalizeIn(a, loc))
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	tz := os.Getenv("CLINIC_TIMEZONE")
	if tz == "" {
		tz = "America/Sao_Paulo"
	}
	normalizeCmd.Flags().StringVar(&normalizeTZ, "tz", tz, "clinic timezone")
}
