package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-availability/internal/availability"
	"github.com/hackgods/clinic-availability/internal/calendar"
	"github.com/hackgods/clinic-availability/internal/metrics"
	"github.com/hackgods/clinic-availability/internal/monitor"
)

// paramError is a malformed query parameter.
type paramError struct {
	field string
	msg   string
}

func (e *paramError) Error() string { return e.field + ": " + e.msg }

func availabilityHandler(engine AvailabilityEngine, registry *monitor.Registry, m *metrics.AvailabilityMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		release, err := registry.Acquire(r.URL.Path + "?" + r.URL.Query().Encode())
		if err != nil {
			m.ObserveRejectedQuery()
			writeError(w, http.StatusTooManyRequests, "too_many_identical_queries", err.Error())
			return
		}
		defer release()

		q, err := parseAvailabilityQuery(r)
		if err != nil {
			writeParamError(w, err)
			return
		}

		res, err := engine.GetAvailability(r.Context(), q)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			Availability: res.ByDate(),
			Validation:   res.Validation,
			Cached:       res.Cached,
		})
	}
}

func optimalAppointmentHandler(engine AvailabilityEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := parseCriteria(r)
		if err != nil {
			writeParamError(w, err)
			return
		}

		best, err := engine.FindOptimalAppointment(r.Context(), c)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}
		if best == nil {
			writeError(w, http.StatusNotFound, "no_availability", "no bookable slot in the search window")
			return
		}

		writeJSON(w, http.StatusOK, OptimalAppointmentResponse{Appointment: best})
	}
}

func validateHandler(engine AvailabilityEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ValidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Source == "" {
			req.Source = "api"
		}

		writeJSON(w, http.StatusOK, engine.Validator().ValidateAvailabilityData(req.Days, req.Source))
	}
}

func normalizeDateHandler(loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value := r.URL.Query().Get("value")
		if value == "" {
			writeError(w, http.StatusBadRequest, "missing_value", "value is required")
			return
		}

		writeJSON(w, http.StatusOK, calendar.ValidateAndNormalizeIn(value, loc))
	}
}

func parseAvailabilityQuery(r *http.Request) (availability.Query, error) {
	params := r.URL.Query()

	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		return availability.Query{}, &paramError{field: "organization_id", msg: "must be a valid UUID"}
	}

	q := availability.Query{
		OrganizationID:      orgID,
		StartDate:           params.Get("start_date"),
		EndDate:             params.Get("end_date"),
		BypassMinimumNotice: bypassesMinimumNotice(params.Get("role")),
	}
	if q.StartDate == "" {
		return q, &paramError{field: "start_date", msg: "is required"}
	}

	if q.DoctorID, err = optionalUUID(params.Get("doctor_id"), "doctor_id"); err != nil {
		return q, err
	}
	if q.ServiceID, err = optionalUUID(params.Get("service_id"), "service_id"); err != nil {
		return q, err
	}
	if q.LocationID, err = optionalUUID(params.Get("location_id"), "location_id"); err != nil {
		return q, err
	}
	if q.Duration, err = optionalInt(params.Get("duration"), "duration"); err != nil {
		return q, err
	}
	if q.UseStandardRules, err = optionalBool(params.Get("use_standard_rules"), "use_standard_rules", false); err != nil {
		return q, err
	}
	if q.IncludeUnavailable, err = optionalBool(params.Get("include_unavailable"), "include_unavailable", true); err != nil {
		return q, err
	}

	return q, nil
}

func parseCriteria(r *http.Request) (availability.Criteria, error) {
	params := r.URL.Query()

	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		return availability.Criteria{}, &paramError{field: "organization_id", msg: "must be a valid UUID"}
	}
	serviceID, err := uuid.Parse(params.Get("service_id"))
	if err != nil {
		return availability.Criteria{}, &paramError{field: "service_id", msg: "must be a valid UUID"}
	}

	c := availability.Criteria{
		OrganizationID: orgID,
		ServiceID:      serviceID,
		Preferences: availability.Preferences{
			TimePreference: availability.TimePreference(strings.ToLower(params.Get("time_preference"))),
		},
	}

	if c.Duration, err = optionalInt(params.Get("duration"), "duration"); err != nil {
		return c, err
	}
	if c.Preferences.MaxDaysOut, err = optionalInt(params.Get("max_days_out"), "max_days_out"); err != nil {
		return c, err
	}
	if c.Preferences.MaxDaysOut < 0 {
		return c, &paramError{field: "max_days_out", msg: "must not be negative"}
	}
	if c.Preferences.QuickBooking, err = optionalBool(params.Get("quick"), "quick", false); err != nil {
		return c, err
	}
	if c.Preferences.PreferredDoctorID, err = optionalUUID(params.Get("preferred_doctor_id"), "preferred_doctor_id"); err != nil {
		return c, err
	}
	if c.Preferences.PreferredLocationID, err = optionalUUID(params.Get("preferred_location_id"), "preferred_location_id"); err != nil {
		return c, err
	}

	return c, nil
}

// bypassesMinimumNotice maps the caller's role to the notice policy.
// Patients book under the standard rules.
func bypassesMinimumNotice(role string) bool {
	switch strings.ToLower(role) {
	case "doctor", "staff", "admin", "superadmin":
		return true
	default:
		return false
	}
}

func optionalUUID(raw, field string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, &paramError{field: field, msg: "must be a valid UUID"}
	}
	return &id, nil
}

func optionalInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{field: field, msg: "must be an integer"}
	}
	return n, nil
}

func optionalBool(raw, field string, def bool) (bool, error) {
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def, &paramError{field: field, msg: "must be true or false"}
	}
	return b, nil
}

func writeParamError(w http.ResponseWriter, err error) {
	var pe *paramError
	if errors.As(err, &pe) {
		writeError(w, http.StatusBadRequest, "invalid_"+pe.field, pe.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
}

func handleAvailabilityError(w http.ResponseWriter, err error) {
	var fe *availability.FieldError
	switch {
	case errors.As(err, &fe):
		writeError(w, http.StatusBadRequest, "invalid_"+fe.Field, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request_cancelled", err.Error())
	case errors.Is(err, availability.ErrUpstream):
		writeError(w, http.StatusBadGateway, "upstream_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
