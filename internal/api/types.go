package api

import (
	"github.com/hackgods/clinic-availability/internal/availability"
)

type AvailabilityResponse struct {
	Availability map[string]availability.DayAvailability `json:"availability"`
	Validation   availability.ValidationResult           `json:"validation"`
	Cached       bool                                    `json:"cached"`
}

type OptimalAppointmentResponse struct {
	Appointment *availability.OptimalAppointmentCandidate `json:"appointment"`
}

type ValidateRequest struct {
	Source string                         `json:"source"`
	Days   []availability.DayAvailability `json:"days"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
