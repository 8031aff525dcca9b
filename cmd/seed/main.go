package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-availability/internal/calendar"
	"github.com/hackgods/clinic-availability/internal/config"
	"github.com/hackgods/clinic-availability/internal/db"
	"github.com/hackgods/clinic-availability/internal/logging"
)

type shift struct {
	weekday    int
	start, end string
}

// Every doctor gets a morning and an afternoon shift on weekdays, with
// a lunch gap, plus a Saturday morning.
var weeklyShifts = []shift{
	{1, "08:00", "12:00"}, {1, "14:00", "18:00"},
	{2, "08:00", "12:00"}, {2, "14:00", "18:00"},
	{3, "08:00", "12:00"}, {3, "14:00", "18:00"},
	{4, "08:00", "12:00"}, {4, "14:00", "18:00"},
	{5, "08:00", "12:00"}, {5, "14:00", "17:00"},
	{6, "08:00", "12:00"},
}

var specialties = []string{
	"Clinica Geral",
	"Cardiologia",
	"Dermatologia",
	"Pediatria",
	"Ortopedia",
	"Ginecologia",
}

const (
	doctorCount       = 8
	locationCount     = 2
	appointmentsDaily = 6
	seedDays          = 21
)

type seeded struct {
	orgID     uuid.UUID
	locations []uuid.UUID
	doctors   []uuid.UUID
	services  []uuid.UUID
}

func main() {
	cfg, err := config.Load()
	logger := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}
	logger.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	ctx = context.Background()
	tx, err := pool.Begin(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("begin tx")
	}
	defer tx.Rollback(ctx)

	s, err := seedCatalog(ctx, tx, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed catalog")
	}

	today := calendar.FromTime(time.Now().In(cfg.ClinicTimezone))
	if err := seedAppointments(ctx, tx, s, today, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed appointments")
	}
	if err := seedBlocks(ctx, tx, s, today, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed blocks")
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Fatal().Err(err).Msg("commit")
	}

	logger.Info().
		Str("organization_id", s.orgID.String()).
		Int("doctors", len(s.doctors)).
		Int("services", len(s.services)).
		Msg("seed complete")
}

func seedCatalog(ctx context.Context, tx pgx.Tx, logger zerolog.Logger) (*seeded, error) {
	s := &seeded{orgID: uuid.New()}

	if _, err := tx.Exec(ctx, `
		INSERT INTO organizations (id, name) VALUES ($1, $2)
	`, s.orgID, "Clinica "+gofakeit.LastName()); err != nil {
		return nil, fmt.Errorf("insert organization: %w", err)
	}

	for i := 0; i < locationCount; i++ {
		id := uuid.New()
		addr := gofakeit.Address()
		if _, err := tx.Exec(ctx, `
			INSERT INTO locations (id, organization_id, name, address, latitude, longitude)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, id, s.orgID, "Unidade "+addr.City, addr.Street, addr.Latitude, addr.Longitude); err != nil {
			return nil, fmt.Errorf("insert location: %w", err)
		}
		s.locations = append(s.locations, id)
	}

	for _, svc := range []struct {
		name     string
		duration int
		fee      float64
	}{
		{"Consulta", 30, 250},
		{"Retorno", 30, 120},
		{"Avaliacao", 60, 400},
	} {
		id := uuid.New()
		if _, err := tx.Exec(ctx, `
			INSERT INTO services (id, organization_id, name, duration_minutes, base_fee)
			VALUES ($1, $2, $3, $4, $5)
		`, id, s.orgID, svc.name, svc.duration, svc.fee); err != nil {
			return nil, fmt.Errorf("insert service: %w", err)
		}
		s.services = append(s.services, id)
	}

	for i := 0; i < doctorCount; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.FirstName() + " " + gofakeit.LastName()
		specialty := specialties[gofakeit.Number(0, len(specialties)-1)]
		if _, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, organization_id, name, specialty) VALUES ($1, $2, $3, $4)
		`, id, s.orgID, name, specialty); err != nil {
			return nil, fmt.Errorf("insert doctor: %w", err)
		}
		s.doctors = append(s.doctors, id)

		// Half of the doctors charge their own fee for the first service.
		for j, svc := range s.services {
			var fee any
			if j == 0 && i%2 == 0 {
				fee = float64(gofakeit.Number(200, 350))
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO doctor_services (doctor_id, service_id, fee) VALUES ($1, $2, $3)
			`, id, svc, fee); err != nil {
				return nil, fmt.Errorf("insert doctor service: %w", err)
			}
		}

		loc := s.locations[i%len(s.locations)]
		for _, sh := range weeklyShifts {
			if _, err := tx.Exec(ctx, `
				INSERT INTO doctor_schedules (id, organization_id, doctor_id, location_id, day_of_week, start_time, end_time)
				VALUES ($1, $2, $3, $4, $5, $6::time, $7::time)
			`, uuid.New(), s.orgID, id, loc, sh.weekday, sh.start, sh.end); err != nil {
				return nil, fmt.Errorf("insert schedule: %w", err)
			}
		}
	}

	logger.Info().
		Int("locations", len(s.locations)).
		Int("doctors", len(s.doctors)).
		Msg("catalog seeded")
	return s, nil
}

// seedAppointments books random slots inside each doctor's shifts.
func seedAppointments(ctx context.Context, tx pgx.Tx, s *seeded, today calendar.Date, logger zerolog.Logger) error {
	statuses := []string{"scheduled", "confirmed", "pending", "cancelled"}
	count := 0

	days, err := calendar.Range(today, today.AddDays(seedDays-1))
	if err != nil {
		return err
	}

	for _, d := range days {
		var shifts []shift
		for _, sh := range weeklyShifts {
			if sh.weekday == d.Weekday() {
				shifts = append(shifts, sh)
			}
		}
		if len(shifts) == 0 {
			continue
		}

		taken := make(map[string]bool)
		for i := 0; i < appointmentsDaily; i++ {
			doctor := s.doctors[gofakeit.Number(0, len(s.doctors)-1)]
			sh := shifts[gofakeit.Number(0, len(shifts)-1)]
			start := calendar.MustParseTime(sh.start)
			end := calendar.MustParseTime(sh.end)
			slots := int(end-start) / 30
			at := start + calendar.TimeOfDay(gofakeit.Number(0, slots-1)*30)

			key := doctor.String() + at.String()
			if taken[key] {
				continue
			}
			taken[key] = true

			if _, err := tx.Exec(ctx, `
				INSERT INTO appointments (id, organization_id, doctor_id, service_id, appointment_date, start_time, end_time, status)
				VALUES ($1, $2, $3, $4, $5::date, $6::time, $7::time, $8)
			`, uuid.New(), s.orgID, doctor, s.services[0], d.String(), at.String(), (at + 30).String(),
				statuses[gofakeit.Number(0, len(statuses)-1)]); err != nil {
				return fmt.Errorf("insert appointment: %w", err)
			}
			count++
		}
	}

	logger.Info().Int("appointments", count).Msg("appointments seeded")
	return nil
}

// seedBlocks adds a multi-day vacation for one doctor, a lunch meeting
// for another and an org-wide closure.
func seedBlocks(ctx context.Context, tx pgx.Tx, s *seeded, today calendar.Date, logger zerolog.Logger) error {
	blocks := []struct {
		doctor     any
		start, end string
		reason     string
		kind       string
	}{
		{s.doctors[0], today.AddDays(3).String() + " 00:00", today.AddDays(7).String() + " 23:59", "Ferias", "vacation"},
		{s.doctors[1], today.AddDays(1).String() + " 10:00", today.AddDays(1).String() + " 11:30", "Reuniao clinica", "meeting"},
		{nil, today.AddDays(10).String() + " 00:00", today.AddDays(10).String() + " 23:59", "Feriado", "holiday"},
	}

	for _, b := range blocks {
		if _, err := tx.Exec(ctx, `
			INSERT INTO availability_blocks (id, organization_id, doctor_id, start_at, end_at, reason, block_type)
			VALUES ($1, $2, $3, $4::timestamp, $5::timestamp, $6, $7)
		`, uuid.New(), s.orgID, b.doctor, b.start, b.end, b.reason, b.kind); err != nil {
			return fmt.Errorf("insert block: %w", err)
		}
	}

	logger.Info().Int("blocks", len(blocks)).Msg("blocks seeded")
	return nil
}
