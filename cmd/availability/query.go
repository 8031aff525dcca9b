package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-availability/internal/app"
	"github.com/hackgods/clinic-availability/internal/availability"
)

var queryFlags struct {
	org, from, to               string
	doctor, service, location   string
	duration                    int
	bypassNotice, standardRules bool
	availableOnly               bool
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Compute availability for a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := buildQuery()
		if err != nil {
			return err
		}
		return withEngine(cmd, func(deps *app.Deps) error {
			res, err := deps.Service.GetAvailability(cmd.Context(), q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"availability": res.ByDate(),
				"validation":   res.Validation,
			})
		})
	},
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryFlags.org, "org", "", "organization id (required)")
	f.StringVar(&queryFlags.from, "from", "", "start date, YYYY-MM-DD (required)")
	f.StringVar(&queryFlags.to, "to", "", "end date, YYYY-MM-DD (defaults to --from)")
	f.StringVar(&queryFlags.doctor, "doctor", "", "restrict to one doctor")
	f.StringVar(&queryFlags.service, "service", "", "restrict to doctors offering this service")
	f.StringVar(&queryFlags.location, "location", "", "restrict to one location")
	f.IntVar(&queryFlags.duration, "duration", 0, "slot length in minutes")
	f.BoolVar(&queryFlags.bypassNotice, "bypass-notice", false, "ignore the minimum-notice rule")
	f.BoolVar(&queryFlags.standardRules, "standard-rules", false, "force the minimum-notice rule")
	f.BoolVar(&queryFlags.availableOnly, "available-only", false, "drop unavailable slots")
	_ = queryCmd.MarkFlagRequired("org")
	_ = queryCmd.MarkFlagRequired("from")
}

func buildQuery() (availability.Query, error) {
	org, err := uuid.Parse(queryFlags.org)
	if err != nil {
		return availability.Query{}, fmt.Errorf("--org: %w", err)
	}
	q := availability.Query{
		OrganizationID:      org,
		StartDate:           queryFlags.from,
		EndDate:             queryFlags.to,
		Duration:            queryFlags.duration,
		BypassMinimumNotice: queryFlags.bypassNotice,
		UseStandardRules:    queryFlags.standardRules,
		IncludeUnavailable:  !queryFlags.availableOnly,
	}
	if q.DoctorID, err = flagUUID("--doctor", queryFlags.doctor); err != nil {
		return q, err
	}
	if q.ServiceID, err = flagUUID("--service", queryFlags.service); err != nil {
		return q, err
	}
	if q.LocationID, err = flagUUID("--location", queryFlags.location); err != nil {
		return q, err
	}
	return q, nil
}

func flagUUID(name, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &id, nil
}
