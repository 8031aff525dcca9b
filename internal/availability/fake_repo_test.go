package availability

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-availability/internal/calendar"
)

// fakeRepo is an in-memory Repository with per-date failure injection.
type fakeRepo struct {
	mu sync.Mutex

	schedules      []Schedule
	appointments   []Appointment
	blocks         []Block
	serviceDoctors map[uuid.UUID][]ServiceDoctor

	failAppointments map[string]error
	panicOnDate      string
	serviceErr       error
	onSchedules      func(dayOfWeek int)

	scheduleCalls int
}

func (f *fakeRepo) FetchDoctorSchedules(_ context.Context, _ uuid.UUID, dayOfWeek int, doctorID *uuid.UUID) ([]Schedule, error) {
	f.mu.Lock()
	f.scheduleCalls++
	hook := f.onSchedules
	f.mu.Unlock()

	if hook != nil {
		hook(dayOfWeek)
	}

	var out []Schedule
	for _, s := range f.schedules {
		if s.DayOfWeek != dayOfWeek {
			continue
		}
		if doctorID != nil && s.DoctorID != *doctorID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeRepo) FetchAppointments(_ context.Context, _ uuid.UUID, date string, doctorID *uuid.UUID) ([]Appointment, error) {
	if err := f.failAppointments[date]; err != nil {
		return nil, err
	}
	if date == f.panicOnDate {
		panic("corrupt row")
	}

	var out []Appointment
	for _, a := range f.appointments {
		if a.Date != date {
			continue
		}
		if doctorID != nil && a.DoctorID != *doctorID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRepo) FetchAvailabilityBlocks(_ context.Context, _ uuid.UUID, date string, doctorID *uuid.UUID) ([]Block, error) {
	d := calendar.MustParse(date)

	var out []Block
	for _, b := range f.blocks {
		if d.Before(calendar.MustParse(b.StartDate)) || d.After(calendar.MustParse(b.EndDate)) {
			continue
		}
		if doctorID != nil && b.DoctorID != uuid.Nil && b.DoctorID != *doctorID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeRepo) FetchDoctorsForService(_ context.Context, _ uuid.UUID, serviceID uuid.UUID) ([]ServiceDoctor, error) {
	if f.serviceErr != nil {
		return nil, f.serviceErr
	}
	return f.serviceDoctors[serviceID], nil
}

func (f *fakeRepo) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scheduleCalls
}

// recordingObserver counts what the engine reports.
type recordingObserver struct {
	mu         sync.Mutex
	outcomes   []string
	degraded   int
	cacheHits  int
	cacheMiss  int
	violations []string
}

func (o *recordingObserver) ObserveQuery(outcome string, _ float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) ObserveDay(int, int) {}

func (o *recordingObserver) ObserveDegradedDate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.degraded++
}

func (o *recordingObserver) ObserveCache(hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.cacheHits++
	} else {
		o.cacheMiss++
	}
}

func (o *recordingObserver) ObserveIntegrityViolation(code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.violations = append(o.violations, code)
}
