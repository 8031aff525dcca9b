package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-availability/internal/calendar"
)

var ErrInvalidTimePreference = errors.New("time preference must be one of any, morning, afternoon, evening")

// Scoring weights; they sum to 1.0.
const (
	WeightTimeProximity = 0.40
	WeightLocation      = 0.30
	WeightDoctor        = 0.20
	WeightService       = 0.10
)

// Factor scores.
const (
	// NeutralLocationScore stands in for distance scoring, which is not
	// modeled: every location scores the same.
	NeutralLocationScore = 0.7
	PreferredDoctorScore = 1.0
	DefaultDoctorScore   = 0.8
	ServiceFitScore      = 0.9
)

const (
	DefaultLookaheadDays = 14
	QuickBookingDays     = 7
)

type TimePreference string

const (
	TimeAny       TimePreference = "any"
	TimeMorning   TimePreference = "morning"
	TimeAfternoon TimePreference = "afternoon"
	TimeEvening   TimePreference = "evening"
)

// window returns the [from, to) start-time range of the preference.
func (p TimePreference) window() (calendar.TimeOfDay, calendar.TimeOfDay, error) {
	switch p {
	case "", TimeAny:
		return 0, calendar.MinutesPerDay, nil
	case TimeMorning:
		return 6 * 60, 12 * 60, nil
	case TimeAfternoon:
		return 12 * 60, 18 * 60, nil
	case TimeEvening:
		return 18 * 60, 22 * 60, nil
	default:
		return 0, 0, fmt.Errorf("%w: got %q", ErrInvalidTimePreference, string(p))
	}
}

// Coordinates of the patient. Accepted for a future distance score; unused.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

type Preferences struct {
	MaxDaysOut          int
	QuickBooking        bool
	TimePreference      TimePreference
	PreferredDoctorID   *uuid.UUID
	PreferredLocationID *uuid.UUID
}

type Criteria struct {
	OrganizationID uuid.UUID
	ServiceID      uuid.UUID
	UserLocation   *Coordinates
	Preferences    Preferences
	Duration       int
}

type FactorScores struct {
	TimeProximity float64 `json:"time_proximity"`
	Location      float64 `json:"location"`
	Doctor        float64 `json:"doctor"`
	Service       float64 `json:"service"`
}

type OptimalAppointmentCandidate struct {
	DoctorID       uuid.UUID    `json:"doctor_id"`
	DoctorName     string       `json:"doctor_name"`
	LocationID     uuid.UUID    `json:"location_id"`
	Date           string       `json:"date"`
	StartTime      string       `json:"start_time"`
	EndTime        string       `json:"end_time"`
	Fee            float64      `json:"fee"`
	DaysUntil      int          `json:"days_until"`
	CompositeScore float64      `json:"composite_score"`
	Scores         FactorScores `json:"scores"`
	Rationale      string       `json:"rationale"`
}

// ScoreInput is what the scorer ranks, already computed by the aggregator.
type ScoreInput struct {
	Days              []DayAvailability
	Today             calendar.Date
	WindowDays        int
	TimePreference    TimePreference
	PreferredDoctorID *uuid.UUID
	Fees              map[uuid.UUID]float64
}

// FindOptimalAppointment computes availability over the lookahead window
// and returns the best slot, or nil when nothing is bookable.
func (s *Service) FindOptimalAppointment(ctx context.Context, c Criteria) (*OptimalAppointmentCandidate, error) {
	if c.OrganizationID == uuid.Nil {
		return nil, &FieldError{Field: "organization_id", Err: ErrMissingOrganization}
	}
	if c.ServiceID == uuid.Nil {
		return nil, &FieldError{Field: "service_id", Err: errors.New("service id is required")}
	}
	if _, _, err := c.Preferences.TimePreference.window(); err != nil {
		return nil, &FieldError{Field: "time_preference", Err: err}
	}

	window := s.lookahead(c.Preferences)
	today := calendar.FromTime(s.now().In(s.cfg.Location))
	serviceID := c.ServiceID

	res, err := s.GetAvailability(ctx, Query{
		OrganizationID:     c.OrganizationID,
		StartDate:          today.String(),
		EndDate:            today.AddDays(window - 1).String(),
		ServiceID:          &serviceID,
		LocationID:         c.Preferences.PreferredLocationID,
		Duration:           c.Duration,
		UseStandardRules:   true,
		IncludeUnavailable: false,
	})
	if err != nil {
		return nil, err
	}

	doctors, err := s.repo.FetchDoctorsForService(ctx, c.OrganizationID, c.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("%w: load service fees: %w", ErrUpstream, err)
	}
	fees := make(map[uuid.UUID]float64, len(doctors))
	for _, d := range doctors {
		fees[d.DoctorID] = d.Fee
	}

	ranked, err := RankCandidates(ScoreInput{
		Days:              res.Days,
		Today:             today,
		WindowDays:        window,
		TimePreference:    c.Preferences.TimePreference,
		PreferredDoctorID: c.Preferences.PreferredDoctorID,
		Fees:              fees,
	})
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, nil
	}

	best := ranked[0]
	s.logger.Debug().
		Str("organization_id", c.OrganizationID.String()).
		Str("date", best.Date).
		Str("start_time", best.StartTime).
		Float64("score", best.CompositeScore).
		Int("candidates", len(ranked)).
		Msg("optimal appointment selected")
	return &best, nil
}

func (s *Service) lookahead(p Preferences) int {
	switch {
	case p.MaxDaysOut > 0:
		return p.MaxDaysOut
	case p.QuickBooking:
		return QuickBookingDays
	default:
		return s.cfg.LookaheadDays
	}
}

// RankCandidates filters available slots by time preference, scores them
// and sorts best first. Equal scores keep the earlier date, then the
// earlier start time.
func RankCandidates(in ScoreInput) ([]OptimalAppointmentCandidate, error) {
	from, to, err := in.TimePreference.window()
	if err != nil {
		return nil, err
	}
	if in.WindowDays <= 0 {
		in.WindowDays = DefaultLookaheadDays
	}

	var out []OptimalAppointmentCandidate
	for _, day := range in.Days {
		date, err := calendar.Parse(day.Date)
		if err != nil {
			continue
		}
		daysUntil := calendar.DaysBetween(in.Today, date)

		for _, slot := range day.Slots {
			if !slot.Available {
				continue
			}
			start, err := calendar.ParseTime(slot.StartTime)
			if err != nil || start < from || start >= to {
				continue
			}

			scores := FactorScores{
				TimeProximity: timeProximityScore(daysUntil, in.WindowDays),
				Location:      NeutralLocationScore,
				Doctor:        doctorScore(slot.DoctorID, in.PreferredDoctorID),
				Service:       ServiceFitScore,
			}
			cand := OptimalAppointmentCandidate{
				DoctorID:       slot.DoctorID,
				DoctorName:     slot.DoctorName,
				LocationID:     slot.LocationID,
				Date:           day.Date,
				StartTime:      slot.StartTime,
				EndTime:        slot.EndTime,
				Fee:            in.Fees[slot.DoctorID],
				DaysUntil:      daysUntil,
				CompositeScore: compositeScore(scores),
				Scores:         scores,
			}
			cand.Rationale = rationale(cand, in.PreferredDoctorID)
			out = append(out, cand)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.StartTime < b.StartTime
	})
	return out, nil
}

// timeProximityScore decays linearly from 1.0 today to 0.0 at the window edge.
func timeProximityScore(daysUntil, windowDays int) float64 {
	score := float64(windowDays-daysUntil) / float64(windowDays)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func doctorScore(doctorID uuid.UUID, preferred *uuid.UUID) float64 {
	if preferred != nil && *preferred == doctorID {
		return PreferredDoctorScore
	}
	return DefaultDoctorScore
}

func compositeScore(s FactorScores) float64 {
	return WeightTimeProximity*s.TimeProximity +
		WeightLocation*s.Location +
		WeightDoctor*s.Doctor +
		WeightService*s.Service
}

func rationale(c OptimalAppointmentCandidate, preferred *uuid.UUID) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %s at %s: in %d day", c.DoctorName, c.Date, c.StartTime, c.DaysUntil)
	if c.DaysUntil != 1 {
		b.WriteString("s")
	}
	if preferred != nil && *preferred == c.DoctorID {
		b.WriteString(", preferred doctor")
	}
	return b.String()
}
