package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/clinic-availability/internal/calendar"
	redisclient "github.com/hackgods/clinic-availability/internal/redis"
)

var (
	ErrMissingOrganization = errors.New("organization id is required")
	ErrRangeTooLarge       = errors.New("date range is too large")
	ErrUpstream            = errors.New("availability store unavailable")
)

// FieldError names the query field that failed validation.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e *FieldError) Unwrap() error { return e.Err }

// Config holds the booking policy and execution limits of the engine.
type Config struct {
	DefaultDuration    int // minutes
	MinimumNoticeHours int
	MaxRangeDays       int
	DateWorkers        int
	CacheTTL           time.Duration
	LookaheadDays      int
	// Location is used only to read "now" for the notice rule and "today"
	// for the scorer.
	Location *time.Location
}

// Query is the input of GetAvailability.
type Query struct {
	OrganizationID uuid.UUID
	StartDate      string
	EndDate        string // defaults to StartDate
	DoctorID       *uuid.UUID
	ServiceID      *uuid.UUID
	LocationID     *uuid.UUID
	Duration       int // minutes, defaults to Config.DefaultDuration

	// BypassMinimumNotice lifts the minimum-notice rule; UseStandardRules
	// forces it back on.
	BypassMinimumNotice bool
	UseStandardRules    bool
	IncludeUnavailable  bool
}

func (q Query) bypassNotice() bool {
	return q.BypassMinimumNotice && !q.UseStandardRules
}

type Service struct {
	repo      Repository
	cache     Cache
	locker    redisclient.Locker
	validator *Validator
	observer  Observer
	logger    zerolog.Logger
	cfg       Config
	now       func() time.Time
}

type Option func(*Service)

func WithCache(c Cache) Option               { return func(s *Service) { s.cache = c } }
func WithLocker(l redisclient.Locker) Option { return func(s *Service) { s.locker = l } }
func WithValidator(v *Validator) Option      { return func(s *Service) { s.validator = v } }
func WithObserver(o Observer) Option         { return func(s *Service) { s.observer = o } }
func WithLogger(l zerolog.Logger) Option     { return func(s *Service) { s.logger = l } }
func WithClock(now func() time.Time) Option  { return func(s *Service) { s.now = now } }

func NewService(repo Repository, cfg Config, opts ...Option) *Service {
	if cfg.DefaultDuration == 0 {
		cfg.DefaultDuration = DefaultSlotDuration
	}
	if cfg.DateWorkers <= 0 {
		cfg.DateWorkers = 1
	}
	if cfg.LookaheadDays <= 0 {
		cfg.LookaheadDays = DefaultLookaheadDays
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	s := &Service{
		repo:     repo,
		observer: NopObserver{},
		logger:   zerolog.Nop(),
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = NewValidator(nil, s.observer)
	}
	return s
}

// GetAvailability computes one DayAvailability per date of the range.
// Input errors are returned as *FieldError. Failures while resolving the
// service's doctors abort the query; failures on a single date degrade
// that date only. Cancelling ctx stops the query between dates.
func (s *Service) GetAvailability(ctx context.Context, q Query) (*AvailabilityResult, error) {
	started := time.Now()
	res, outcome, err := s.getAvailability(ctx, q)
	s.observer.ObserveQuery(outcome, time.Since(started).Seconds())
	return res, err
}

func (s *Service) getAvailability(ctx context.Context, q Query) (*AvailabilityResult, string, error) {
	q, start, end, err := s.normalize(q)
	if err != nil {
		return nil, OutcomeInvalid, err
	}

	cutoff := s.noticeCutoff(q)
	key := cacheKey(q, cutoff)
	if days, ok := s.cached(ctx, key); ok {
		return s.finish(days, true), OutcomeCached, nil
	}

	days, err := s.computeAndStore(ctx, key, q, start, end, cutoff)
	if err != nil {
		if ctx.Err() != nil {
			return nil, OutcomeCancelled, err
		}
		return nil, OutcomeUpstream, err
	}

	return s.finish(days, false), OutcomeOK, nil
}

func (s *Service) normalize(q Query) (Query, calendar.Date, calendar.Date, error) {
	if q.OrganizationID == uuid.Nil {
		return q, calendar.Date{}, calendar.Date{}, &FieldError{Field: "organization_id", Err: ErrMissingOrganization}
	}
	if q.Duration == 0 {
		q.Duration = s.cfg.DefaultDuration
	}
	if err := ValidateDuration(q.Duration); err != nil {
		return q, calendar.Date{}, calendar.Date{}, &FieldError{Field: "duration", Err: err}
	}

	start, err := calendar.Parse(q.StartDate)
	if err != nil {
		return q, calendar.Date{}, calendar.Date{}, &FieldError{Field: "start_date", Err: err}
	}
	if q.EndDate == "" {
		q.EndDate = q.StartDate
	}
	end, err := calendar.Parse(q.EndDate)
	if err != nil {
		return q, calendar.Date{}, calendar.Date{}, &FieldError{Field: "end_date", Err: err}
	}
	if start.After(end) {
		return q, calendar.Date{}, calendar.Date{}, &FieldError{
			Field: "end_date",
			Err:   fmt.Errorf("%w: %s > %s", calendar.ErrInvalidRange, start, end),
		}
	}
	if days := calendar.DaysBetween(start, end) + 1; s.cfg.MaxRangeDays > 0 && days > s.cfg.MaxRangeDays {
		return q, calendar.Date{}, calendar.Date{}, &FieldError{
			Field: "end_date",
			Err:   fmt.Errorf("%w: %d days requested, at most %d allowed", ErrRangeTooLarge, days, s.cfg.MaxRangeDays),
		}
	}

	return q, start, end, nil
}

func (s *Service) cached(ctx context.Context, key string) ([]DayAvailability, bool) {
	if s.cache == nil {
		return nil, false
	}
	days, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("availability cache read failed")
		return nil, false
	}
	s.observer.ObserveCache(ok)
	return days, ok
}

// computeAndStore computes the days and memoizes them. With a locker, only
// the replica holding the fill lock writes the cache entry.
func (s *Service) computeAndStore(ctx context.Context, key string, q Query, start, end calendar.Date, cutoff *calendar.Moment) ([]DayAvailability, error) {
	if s.cache == nil {
		return s.computeDays(ctx, q, start, end, cutoff)
	}

	store := func(days []DayAvailability) {
		if hasDegradedDays(days) {
			return
		}
		if err := s.cache.Set(ctx, key, days, s.cfg.CacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("availability cache write failed")
		}
	}

	if s.locker == nil {
		days, err := s.computeDays(ctx, q, start, end, cutoff)
		if err == nil {
			store(days)
		}
		return days, err
	}

	var (
		days       []DayAvailability
		computeErr error
		computed   bool
	)
	lockErr := s.locker.WithKeyLock(ctx, "fill:"+key, func(context.Context) error {
		computed = true
		days, computeErr = s.computeDays(ctx, q, start, end, cutoff)
		if computeErr == nil {
			store(days)
		}
		return computeErr
	})
	if computed {
		return days, computeErr
	}
	if !errors.Is(lockErr, redisclient.ErrLockNotAcquired) {
		s.logger.Warn().Err(lockErr).Str("key", key).Msg("cache fill lock unavailable")
	}
	return s.computeDays(ctx, q, start, end, cutoff)
}

func (s *Service) computeDays(ctx context.Context, q Query, start, end calendar.Date, cutoff *calendar.Moment) ([]DayAvailability, error) {
	var serviceDoctors map[uuid.UUID]bool
	if q.ServiceID != nil {
		rows, err := s.repo.FetchDoctorsForService(ctx, q.OrganizationID, *q.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve doctors for service %s: %w", ErrUpstream, *q.ServiceID, err)
		}
		serviceDoctors = make(map[uuid.UUID]bool, len(rows))
		for _, r := range rows {
			serviceDoctors[r.DoctorID] = true
		}
	}

	dates, err := calendar.Range(start, end)
	if err != nil {
		return nil, err
	}

	days := make([]DayAvailability, len(dates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.DateWorkers)
	for i, date := range dates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			days[i] = s.computeDay(gctx, q, date, serviceDoctors, cutoff)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return days, nil
}

func (s *Service) computeDay(ctx context.Context, q Query, date calendar.Date, serviceDoctors map[uuid.UUID]bool, cutoff *calendar.Moment) DayAvailability {
	slots, err := s.slotsForDate(ctx, q, date, serviceDoctors)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn().Err(err).
				Str("organization_id", q.OrganizationID.String()).
				Str("date", date.String()).
				Msg("availability degraded for date")
			s.observer.ObserveDegradedDate()
		}
		day := newDayAvailability(date, nil)
		day.Note = "slot computation failed for this date"
		return day
	}

	if cutoff != nil {
		applyMinimumNotice(slots, date, *cutoff)
	}
	if !q.IncludeUnavailable {
		slots = availableOnly(slots)
	}

	day := newDayAvailability(date, slots)
	s.observer.ObserveDay(day.TotalSlots, day.AvailableSlots)
	return day
}

func (s *Service) slotsForDate(ctx context.Context, q Query, date calendar.Date, serviceDoctors map[uuid.UUID]bool) (slots []TimeSlot, err error) {
	defer func() {
		if r := recover(); r != nil {
			slots, err = nil, fmt.Errorf("slot computation panicked: %v", r)
		}
	}()

	weekday := date.Weekday()
	rows, err := s.repo.FetchDoctorSchedules(ctx, q.OrganizationID, weekday, q.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("fetch schedules: %w", err)
	}

	var schedules []Schedule
	for _, sch := range rows {
		if !sch.IsActive || sch.DayOfWeek != weekday {
			continue
		}
		if q.DoctorID != nil && sch.DoctorID != *q.DoctorID {
			continue
		}
		if q.LocationID != nil && sch.LocationID != *q.LocationID {
			continue
		}
		if serviceDoctors != nil && !serviceDoctors[sch.DoctorID] {
			continue
		}
		schedules = append(schedules, sch)
	}
	if len(schedules) == 0 {
		return nil, nil
	}

	appts, err := s.repo.FetchAppointments(ctx, q.OrganizationID, date.String(), q.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("fetch appointments: %w", err)
	}
	blocks, err := s.repo.FetchAvailabilityBlocks(ctx, q.OrganizationID, date.String(), q.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("fetch blocks: %w", err)
	}

	return GenerateSlots(GenerateInput{
		Date:         date,
		Schedules:    schedules,
		Appointments: appts,
		Blocks:       blocks,
		Duration:     q.Duration,
	})
}

// noticeCutoff is the earliest bookable moment, to the minute, or nil when
// the minimum-notice rule does not apply to q.
func (s *Service) noticeCutoff(q Query) *calendar.Moment {
	if q.bypassNotice() || s.cfg.MinimumNoticeHours <= 0 {
		return nil
	}
	now := s.now().In(s.cfg.Location)
	c := calendar.Moment{Date: calendar.FromTime(now), Time: calendar.ClockOf(now)}.
		AddMinutes(s.cfg.MinimumNoticeHours * 60)
	return &c
}

// applyMinimumNotice marks available slots starting before cutoff.
func applyMinimumNotice(slots []TimeSlot, date calendar.Date, cutoff calendar.Moment) {
	for i := range slots {
		if !slots[i].Available {
			continue
		}
		start, err := calendar.ParseTime(slots[i].StartTime)
		if err != nil {
			continue
		}
		if (calendar.Moment{Date: date, Time: start}).Before(cutoff) {
			slots[i].Available = false
			slots[i].Reason = ReasonMinimumNotice
		}
	}
}

// Degraded days are not memoized so a transient store error is retried on
// the next query.
func hasDegradedDays(days []DayAvailability) bool {
	for _, d := range days {
		if d.Note != "" {
			return true
		}
	}
	return false
}

func availableOnly(slots []TimeSlot) []TimeSlot {
	out := make([]TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.Available {
			out = append(out, s)
		}
	}
	return out
}

func (s *Service) finish(days []DayAvailability, cached bool) *AvailabilityResult {
	validation := s.validator.ValidateAvailabilityData(days, "GetAvailability")
	if !validation.IsValid {
		s.logger.Error().
			Int("violations", len(validation.Errors)).
			Str("first_code", validation.Errors[0].Code).
			Str("first_date", validation.Errors[0].Date).
			Msg("availability failed integrity validation")
	}
	return &AvailabilityResult{Days: days, Validation: validation, Cached: cached}
}

// Validator exposes the engine's validator to callers validating data
// computed elsewhere.
func (s *Service) Validator() *Validator {
	return s.validator
}
