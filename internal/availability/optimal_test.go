package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-availability/internal/calendar"
)

func openDay(date string, slots ...TimeSlot) DayAvailability {
	return newDayAvailability(calendar.MustParse(date), slots)
}

func openSlot(doctor uuid.UUID, name, start string) TimeSlot {
	st := calendar.MustParseTime(start)
	return TimeSlot{
		StartTime:  start,
		EndTime:    (st + 30).String(),
		DoctorID:   doctor,
		DoctorName: name,
		LocationID: centro,
		Available:  true,
	}
}

// fourteenDays returns today..today+13 with slots only where given.
func fourteenDays(today calendar.Date, open map[int][]TimeSlot) []DayAvailability {
	days := make([]DayAvailability, 14)
	for i := range days {
		days[i] = newDayAvailability(today.AddDays(i), open[i])
	}
	return days
}

func TestRankCandidates_ProximityBeatsPreferredDoctorFarOut(t *testing.T) {
	today := calendar.MustParse("2025-06-09")
	days := fourteenDays(today, map[int][]TimeSlot{
		1:  {openSlot(drBruno, "Dr. Bruno", "09:00")},
		10: {openSlot(drAna, "Dra. Ana", "09:00")},
	})

	ranked, err := RankCandidates(ScoreInput{
		Days:              days,
		Today:             today,
		WindowDays:        14,
		PreferredDoctorID: &drAna,
	})
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	best := ranked[0]
	assert.Equal(t, "2025-06-10", best.Date)
	assert.Equal(t, drBruno, best.DoctorID)
	assert.Equal(t, 1, best.DaysUntil)
	assert.InDelta(t, 13.0/14.0, best.Scores.TimeProximity, 1e-9)
	assert.Equal(t, NeutralLocationScore, best.Scores.Location)
	assert.Equal(t, DefaultDoctorScore, best.Scores.Doctor)
	assert.Equal(t, ServiceFitScore, best.Scores.Service)
	assert.InDelta(t, 0.4*13.0/14.0+0.3*0.7+0.2*0.8+0.1*0.9, best.CompositeScore, 1e-9)

	runnerUp := ranked[1]
	assert.Equal(t, "2025-06-19", runnerUp.Date)
	assert.Equal(t, PreferredDoctorScore, runnerUp.Scores.Doctor)
	assert.InDelta(t, 0.4*4.0/14.0+0.3*0.7+0.2*1.0+0.1*0.9, runnerUp.CompositeScore, 1e-9)
}

// The doctor differential (0.2 * 0.2 = 0.04) outweighs one day of
// proximity (0.4 / 14 ~ 0.0286).
func TestRankCandidates_PreferredDoctorOneDayLaterWins(t *testing.T) {
	today := calendar.MustParse("2025-06-09")
	days := fourteenDays(today, map[int][]TimeSlot{
		1: {openSlot(drBruno, "Dr. Bruno", "09:00")},
		2: {openSlot(drAna, "Dra. Ana", "09:00")},
	})

	ranked, err := RankCandidates(ScoreInput{Days: days, Today: today, WindowDays: 14, PreferredDoctorID: &drAna})
	require.NoError(t, err)

	assert.Equal(t, drAna, ranked[0].DoctorID)
	assert.Equal(t, "2025-06-11", ranked[0].Date)
}

func TestRankCandidates_TieBreaksOnEarlierTime(t *testing.T) {
	today := calendar.MustParse("2025-06-09")
	days := []DayAvailability{
		openDay("2025-06-10",
			openSlot(drAna, "Dra. Ana", "10:00"),
			openSlot(drBruno, "Dr. Bruno", "08:30"),
			openSlot(drAna, "Dra. Ana", "09:00"),
		),
	}

	ranked, err := RankCandidates(ScoreInput{Days: days, Today: today, WindowDays: 14})
	require.NoError(t, err)

	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"08:30", "09:00", "10:00"}, []string{ranked[0].StartTime, ranked[1].StartTime, ranked[2].StartTime})
	assert.Equal(t, ranked[0].CompositeScore, ranked[2].CompositeScore)
}

func TestRankCandidates_SkipsUnavailable(t *testing.T) {
	today := calendar.MustParse("2025-06-09")
	busy := openSlot(drAna, "Dra. Ana", "08:00")
	busy.Available = false
	busy.Reason = ReasonBooked

	ranked, err := RankCandidates(ScoreInput{
		Days:  []DayAvailability{openDay("2025-06-09", busy, openSlot(drAna, "Dra. Ana", "08:30"))},
		Today: today,
	})
	require.NoError(t, err)

	require.Len(t, ranked, 1)
	assert.Equal(t, "08:30", ranked[0].StartTime)
	assert.Equal(t, 1.0, ranked[0].Scores.TimeProximity)
}

func TestRankCandidates_TimePreference(t *testing.T) {
	today := calendar.MustParse("2025-06-09")
	days := []DayAvailability{openDay("2025-06-09",
		openSlot(drAna, "Dra. Ana", "05:30"),
		openSlot(drAna, "Dra. Ana", "06:00"),
		openSlot(drAna, "Dra. Ana", "11:30"),
		openSlot(drAna, "Dra. Ana", "12:00"),
		openSlot(drAna, "Dra. Ana", "17:30"),
		openSlot(drAna, "Dra. Ana", "18:00"),
		openSlot(drAna, "Dra. Ana", "21:30"),
		openSlot(drAna, "Dra. Ana", "22:00"),
	)}

	tests := []struct {
		pref TimePreference
		want []string
	}{
		{TimeMorning, []string{"06:00", "11:30"}},
		{TimeAfternoon, []string{"12:00", "17:30"}},
		{TimeEvening, []string{"18:00", "21:30"}},
		{TimeAny, []string{"05:30", "06:00", "11:30", "12:00", "17:30", "18:00", "21:30", "22:00"}},
		{"", []string{"05:30", "06:00", "11:30", "12:00", "17:30", "18:00", "21:30", "22:00"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.pref), func(t *testing.T) {
			ranked, err := RankCandidates(ScoreInput{Days: days, Today: today, TimePreference: tt.pref})
			require.NoError(t, err)

			var got []string
			for _, c := range ranked {
				got = append(got, c.StartTime)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := RankCandidates(ScoreInput{Days: days, Today: today, TimePreference: "night"})
	assert.ErrorIs(t, err, ErrInvalidTimePreference)
}

func TestTimeProximityScore(t *testing.T) {
	assert.Equal(t, 1.0, timeProximityScore(0, 14))
	assert.InDelta(t, 0.5, timeProximityScore(7, 14), 1e-9)
	assert.Equal(t, 0.0, timeProximityScore(14, 14))
	assert.Equal(t, 0.0, timeProximityScore(20, 14))
}

func TestRationale(t *testing.T) {
	c := OptimalAppointmentCandidate{DoctorID: drAna, DoctorName: "Dra. Ana", Date: "2025-06-11", StartTime: "09:00", DaysUntil: 2}
	assert.Equal(t, "Dra. Ana on 2025-06-11 at 09:00: in 2 days, preferred doctor", rationale(c, &drAna))

	c.DaysUntil = 1
	assert.Equal(t, "Dra. Ana on 2025-06-11 at 09:00: in 1 day", rationale(c, nil))
}

func optimalRepo() *fakeRepo {
	return &fakeRepo{
		schedules: []Schedule{
			shift(drAna, "Dra. Ana", 2, "08:00", "09:00"),    // Tuesday
			shift(drBruno, "Dr. Bruno", 3, "08:00", "09:00"), // Wednesday
			shift(drAna, "Dra. Ana", 5, "14:00", "15:00"),    // Friday
		},
		serviceDoctors: map[uuid.UUID][]ServiceDoctor{
			consultaID: {{DoctorID: drAna, Fee: 250}, {DoctorID: drBruno, Fee: 180}},
		},
	}
}

func optimalService(repo Repository) *Service {
	monday := func() time.Time { return time.Date(2025, 6, 9, 7, 0, 0, 0, time.UTC) }
	return NewService(repo, Config{MinimumNoticeHours: 2}, WithClock(monday))
}

func TestFindOptimalAppointment_EarliestWins(t *testing.T) {
	svc := optimalService(optimalRepo())

	best, err := svc.FindOptimalAppointment(context.Background(), Criteria{
		OrganizationID: orgID,
		ServiceID:      consultaID,
	})
	require.NoError(t, err)
	require.NotNil(t, best)

	assert.Equal(t, drAna, best.DoctorID)
	assert.Equal(t, "2025-06-10", best.Date)
	assert.Equal(t, "08:00", best.StartTime)
	assert.Equal(t, "08:30", best.EndTime)
	assert.Equal(t, 250.0, best.Fee)
	assert.Equal(t, centro, best.LocationID)
	assert.Equal(t, "Dra. Ana on 2025-06-10 at 08:00: in 1 day", best.Rationale)
}

func TestFindOptimalAppointment_PreferredDoctor(t *testing.T) {
	svc := optimalService(optimalRepo())

	best, err := svc.FindOptimalAppointment(context.Background(), Criteria{
		OrganizationID: orgID,
		ServiceID:      consultaID,
		Preferences:    Preferences{PreferredDoctorID: &drBruno},
	})
	require.NoError(t, err)
	require.NotNil(t, best)

	assert.Equal(t, drBruno, best.DoctorID)
	assert.Equal(t, "2025-06-11", best.Date)
	assert.Equal(t, 180.0, best.Fee)
	assert.InDelta(t, 0.4*12.0/14.0+0.3*0.7+0.2*1.0+0.1*0.9, best.CompositeScore, 1e-9)
}

func TestFindOptimalAppointment_TimePreferenceAndWindow(t *testing.T) {
	svc := optimalService(optimalRepo())

	best, err := svc.FindOptimalAppointment(context.Background(), Criteria{
		OrganizationID: orgID,
		ServiceID:      consultaID,
		Preferences:    Preferences{TimePreference: TimeAfternoon},
	})
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, "2025-06-13", best.Date)
	assert.Equal(t, "14:00", best.StartTime)

	// Friday is outside a two-day window.
	best, err = svc.FindOptimalAppointment(context.Background(), Criteria{
		OrganizationID: orgID,
		ServiceID:      consultaID,
		Preferences:    Preferences{TimePreference: TimeAfternoon, MaxDaysOut: 2},
	})
	require.NoError(t, err)
	assert.Nil(t, best)
}

func TestFindOptimalAppointment_Lookahead(t *testing.T) {
	svc := NewService(&fakeRepo{}, Config{LookaheadDays: 21})

	assert.Equal(t, 21, svc.lookahead(Preferences{}))
	assert.Equal(t, QuickBookingDays, svc.lookahead(Preferences{QuickBooking: true}))
	assert.Equal(t, 3, svc.lookahead(Preferences{QuickBooking: true, MaxDaysOut: 3}))
	assert.Equal(t, DefaultLookaheadDays, NewService(&fakeRepo{}, Config{}).lookahead(Preferences{}))
}

func TestFindOptimalAppointment_NoAvailability(t *testing.T) {
	repo := optimalRepo()
	repo.schedules = nil
	svc := optimalService(repo)

	best, err := svc.FindOptimalAppointment(context.Background(), Criteria{OrganizationID: orgID, ServiceID: consultaID})
	require.NoError(t, err)
	assert.Nil(t, best)
}

func TestFindOptimalAppointment_InvalidCriteria(t *testing.T) {
	svc := optimalService(optimalRepo())

	_, err := svc.FindOptimalAppointment(context.Background(), Criteria{ServiceID: consultaID})
	assert.ErrorIs(t, err, ErrMissingOrganization)

	_, err = svc.FindOptimalAppointment(context.Background(), Criteria{OrganizationID: orgID})
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "service_id", fe.Field)

	_, err = svc.FindOptimalAppointment(context.Background(), Criteria{
		OrganizationID: orgID,
		ServiceID:      consultaID,
		Preferences:    Preferences{TimePreference: "night"},
	})
	assert.ErrorIs(t, err, ErrInvalidTimePreference)
}
