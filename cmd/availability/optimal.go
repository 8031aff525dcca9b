package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-availability/internal/app"
	"github.com/hackgods/clinic-availability/internal/availability"
)

var optimalFlags struct {
	org, service     string
	doctor, location string
	timePreference   string
	maxDaysOut       int
	duration         int
	quick            bool
}

var optimalCmd = &cobra.Command{
	Use:   "optimal",
	Short: "Find the best appointment for a service",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildCriteria()
		if err != nil {
			return err
		}
		return withEngine(cmd, func(deps *app.Deps) error {
			best, err := deps.Service.FindOptimalAppointment(cmd.Context(), c)
			if err != nil {
				return err
			}
			if best == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "no availability in the lookahead window")
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"appointment": best})
		})
	},
}

func init() {
	f := optimalCmd.Flags()
	f.StringVar(&optimalFlags.org, "org", "", "organization id (required)")
	f.StringVar(&optimalFlags.service, "service", "", "service id (required)")
	f.StringVar(&optimalFlags.doctor, "doctor", "", "preferred doctor")
	f.StringVar(&optimalFlags.location, "location", "", "preferred location")
	f.StringVar(&optimalFlags.timePreference, "time", "any", "any, morning, afternoon or evening")
	f.IntVar(&optimalFlags.maxDaysOut, "max-days", 0, "lookahead window in days")
	f.IntVar(&optimalFlags.duration, "duration", 0, "slot length in minutes")
	f.BoolVar(&optimalFlags.quick, "quick", false, "quick booking, one week lookahead")
	_ = optimalCmd.MarkFlagRequired("org")
	_ = optimalCmd.MarkFlagRequired("service")
}

func buildCriteria() (availability.Criteria, error) {
	org, err := uuid.Parse(optimalFlags.org)
	if err != nil {
		return availability.Criteria{}, fmt.Errorf("--org: %w", err)
	}
	svc, err := uuid.Parse(optimalFlags.service)
	if err != nil {
		return availability.Criteria{}, fmt.Errorf("--service: %w", err)
	}
	c := availability.Criteria{
		OrganizationID: org,
		ServiceID:      svc,
		Duration:       optimalFlags.duration,
		Preferences: availability.Preferences{
			MaxDaysOut:     optimalFlags.maxDaysOut,
			QuickBooking:   optimalFlags.quick,
			TimePreference: availability.TimePreference(optimalFlags.timePreference),
		},
	}
	if c.Preferences.PreferredDoctorID, err = flagUUID("--doctor", optimalFlags.doctor); err != nil {
		return c, err
	}
	if c.Preferences.PreferredLocationID, err = flagUUID("--location", optimalFlags.location); err != nil {
		return c, err
	}
	return c, nil
}
