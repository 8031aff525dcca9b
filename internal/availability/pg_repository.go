package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// querier is the subset of *pgxpool.Pool the repository needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgRepository reads schedules, bookings and blocks from Postgres. Dates
// and times are formatted by the database so rows arrive canonical and no
// timezone conversion happens in Go.
type PgRepository struct {
	db querier
}

func NewPgRepository(db querier) *PgRepository {
	return &PgRepository{db: db}
}

// Helpers

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.DoctorName,
		&s.LocationID,
		&s.DayOfWeek,
		&s.StartTime,
		&s.EndTime,
		&s.IsActive,
	)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&status,
	)
	if err != nil {
		return nil, err
	}

	a.Status = AppointmentStatus(status)
	return &a, nil
}

func scanBlock(row pgx.Row) (*Block, error) {
	var b Block

	err := row.Scan(
		&b.ID,
		&b.DoctorID,
		&b.StartDate,
		&b.StartTime,
		&b.EndDate,
		&b.EndTime,
		&b.Reason,
		&b.BlockType,
	)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func scanServiceDoctor(row pgx.Row) (*ServiceDoctor, error) {
	var d ServiceDoctor

	if err := row.Scan(&d.DoctorID, &d.Fee); err != nil {
		return nil, err
	}

	return &d, nil
}

// collect drains rows through scan.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	var result []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// doctorFilter turns an optional doctor into a nullable query argument.
func doctorFilter(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

// Interface methods

func (r *PgRepository) FetchDoctorSchedules(ctx context.Context, orgID uuid.UUID, dayOfWeek int, doctorID *uuid.UUID) ([]Schedule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.doctor_id, d.name, s.location_id, s.day_of_week,
		       to_char(s.start_time, 'HH24:MI'), to_char(s.end_time, 'HH24:MI'), s.is_active
		FROM doctor_schedules s
		JOIN doctors d ON d.id = s.doctor_id
		WHERE s.organization_id = $1
		  AND s.day_of_week = $2
		  AND s.is_active
		  AND ($3::uuid IS NULL OR s.doctor_id = $3)
		ORDER BY s.start_time, d.name
	`, orgID, dayOfWeek, doctorFilter(doctorID))
	if err != nil {
		return nil, fmt.Errorf("query doctor schedules: %w", err)
	}

	return collect(rows, scanSchedule)
}

func (r *PgRepository) FetchAppointments(ctx context.Context, orgID uuid.UUID, date string, doctorID *uuid.UUID) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, doctor_id, to_char(appointment_date, 'YYYY-MM-DD'),
		       to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), status
		FROM appointments
		WHERE organization_id = $1
		  AND appointment_date = $2::date
		  AND status <> 'cancelled'
		  AND ($3::uuid IS NULL OR doctor_id = $3)
	`, orgID, date, doctorFilter(doctorID))
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}

	return collect(rows, scanAppointment)
}

func (r *PgRepository) FetchAvailabilityBlocks(ctx context.Context, orgID uuid.UUID, date string, doctorID *uuid.UUID) ([]Block, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, COALESCE(doctor_id, '00000000-0000-0000-0000-000000000000'::uuid),
		       to_char(start_at, 'YYYY-MM-DD'), to_char(start_at, 'HH24:MI'),
		       to_char(end_at, 'YYYY-MM-DD'), to_char(end_at, 'HH24:MI'),
		       COALESCE(reason, ''), COALESCE(block_type, '')
		FROM availability_blocks
		WHERE organization_id = $1
		  AND start_at::date <= $2::date
		  AND end_at > $2::date
		  AND ($3::uuid IS NULL OR doctor_id IS NULL OR doctor_id = $3)
	`, orgID, date, doctorFilter(doctorID))
	if err != nil {
		return nil, fmt.Errorf("query availability blocks: %w", err)
	}

	return collect(rows, scanBlock)
}

func (r *PgRepository) FetchDoctorsForService(ctx context.Context, orgID, serviceID uuid.UUID) ([]ServiceDoctor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ds.doctor_id, COALESCE(ds.fee, s.base_fee, 0)::float8
		FROM doctor_services ds
		JOIN services s ON s.id = ds.service_id
		WHERE s.organization_id = $1
		  AND ds.service_id = $2
	`, orgID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("query service doctors: %w", err)
	}

	return collect(rows, scanServiceDoctor)
}
