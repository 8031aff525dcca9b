package availability

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the read-only view of the clinic data store. Adapters are
// responsible for returning normalized rows: canonical date and HH:MM
// strings, doctor names joined in, cancelled appointments optional.
//
// A nil doctorID means every doctor of the organization.
type Repository interface {
	FetchDoctorSchedules(ctx context.Context, orgID uuid.UUID, dayOfWeek int, doctorID *uuid.UUID) ([]Schedule, error)
	FetchAppointments(ctx context.Context, orgID uuid.UUID, date string, doctorID *uuid.UUID) ([]Appointment, error)
	FetchAvailabilityBlocks(ctx context.Context, orgID uuid.UUID, date string, doctorID *uuid.UUID) ([]Block, error)

	// Doctor-service association
	FetchDoctorsForService(ctx context.Context, orgID, serviceID uuid.UUID) ([]ServiceDoctor, error)
}
