package availability

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-availability/internal/calendar"
)

var (
	drAna   = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	drBruno = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	centro  = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
)

func shift(doctor uuid.UUID, name string, weekday int, start, end string) Schedule {
	return Schedule{
		ID:         uuid.New(),
		DoctorID:   doctor,
		DoctorName: name,
		LocationID: centro,
		DayOfWeek:  weekday,
		StartTime:  start,
		EndTime:    end,
		IsActive:   true,
	}
}

func booking(doctor uuid.UUID, date, start, end string, status AppointmentStatus) Appointment {
	return Appointment{ID: uuid.New(), DoctorID: doctor, Date: date, StartTime: start, EndTime: end, Status: status}
}

func startTimes(slots []TimeSlot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.StartTime
	}
	return out
}

func countAvailable(slots []TimeSlot) int {
	n := 0
	for _, s := range slots {
		if s.Available {
			n++
		}
	}
	return n
}

func TestGenerateSlots_MorningShiftAllAvailable(t *testing.T) {
	monday := calendar.MustParse("2025-06-09")
	require.Equal(t, 1, monday.Weekday())

	slots, err := GenerateSlots(GenerateInput{
		Date:      monday,
		Schedules: []Schedule{shift(drAna, "Dra. Ana", 1, "08:00", "12:00")},
		Duration:  30,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}, startTimes(slots))
	assert.Equal(t, 8, countAvailable(slots))
	assert.Equal(t, "12:00", slots[7].EndTime)
	for _, s := range slots {
		assert.Empty(t, s.Reason)
		assert.Equal(t, "Dra. Ana", s.DoctorName)
		assert.Equal(t, centro, s.LocationID)
	}
}

func TestGenerateSlots_BookedSlot(t *testing.T) {
	slots, err := GenerateSlots(GenerateInput{
		Date:         calendar.MustParse("2025-06-09"),
		Schedules:    []Schedule{shift(drAna, "Dra. Ana", 1, "08:00", "12:00")},
		Appointments: []Appointment{booking(drAna, "2025-06-09", "09:00", "09:30", StatusConfirmed)},
		Duration:     30,
	})
	require.NoError(t, err)

	require.Len(t, slots, 8)
	assert.Equal(t, 7, countAvailable(slots))
	assert.False(t, slots[2].Available)
	assert.Equal(t, "09:00", slots[2].StartTime)
	assert.Equal(t, ReasonBooked, slots[2].Reason)
}

func TestGenerateSlots_MultiDayBlockCoversWholeDate(t *testing.T) {
	thursday := calendar.MustParse("2025-06-12")
	require.Equal(t, 4, thursday.Weekday())

	slots, err := GenerateSlots(GenerateInput{
		Date:      thursday,
		Schedules: []Schedule{shift(drAna, "Dra. Ana", 4, "14:00", "18:00")},
		Blocks: []Block{{
			ID:        uuid.New(),
			DoctorID:  drAna,
			StartDate: "2025-06-10",
			StartTime: "09:00",
			EndDate:   "2025-06-12",
			EndTime:   "10:00",
			Reason:    "Ferias",
		}},
		Duration: 30,
	})
	require.NoError(t, err)

	require.Len(t, slots, 8)
	for _, s := range slots {
		assert.False(t, s.Available, s.StartTime)
		assert.Equal(t, "Ferias", s.Reason)
	}
}

func TestGenerateSlots_BlockEndingAtMidnightStaysOnItsDay(t *testing.T) {
	evening := Block{
		ID:        uuid.New(),
		DoctorID:  drAna,
		StartDate: "2025-06-10",
		StartTime: "20:00",
		EndDate:   "2025-06-11",
		EndTime:   "00:00",
		Reason:    "Evento",
	}
	assert.False(t, evening.MultiDay())

	wednesday, err := GenerateSlots(GenerateInput{
		Date:      calendar.MustParse("2025-06-11"),
		Schedules: []Schedule{shift(drAna, "Dra. Ana", 3, "08:00", "12:00")},
		Blocks:    []Block{evening},
		Duration:  30,
	})
	require.NoError(t, err)
	require.Len(t, wednesday, 8)
	assert.Equal(t, 8, countAvailable(wednesday))

	tuesday, err := GenerateSlots(GenerateInput{
		Date:      calendar.MustParse("2025-06-10"),
		Schedules: []Schedule{shift(drAna, "Dra. Ana", 2, "18:00", "24:00")},
		Blocks:    []Block{evening},
		Duration:  60,
	})
	require.NoError(t, err)
	require.Len(t, tuesday, 6)
	assert.Equal(t, []string{"18:00", "19:00", "20:00", "21:00", "22:00", "23:00"}, startTimes(tuesday))
	assert.Equal(t, 2, countAvailable(tuesday))
	assert.Equal(t, "24:00", tuesday[5].EndTime)
	assert.Equal(t, "Evento", tuesday[5].Reason)
}

func TestGenerateSlots_BlockEndingAtMidnightAfterSeveralDays(t *testing.T) {
	vacation := Block{
		ID:        uuid.New(),
		DoctorID:  drAna,
		StartDate: "2025-06-09",
		StartTime: "00:00",
		EndDate:   "2025-06-11",
		EndTime:   "00:00",
		Reason:    "Ferias",
	}

	tuesday, err := GenerateSlots(GenerateInput{
		Date:      calendar.MustParse("2025-06-10"),
		Schedules: []Schedule{shift(drAna, "Dra. Ana", 2, "08:00", "10:00")},
		Blocks:    []Block{vacation},
		Duration:  30,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, countAvailable(tuesday))

	wednesday, err := GenerateSlots(GenerateInput{
		Date:      calendar.MustParse("2025-06-11"),
		Schedules: []Schedule{shift(drAna, "Dra. Ana", 3, "08:00", "10:00")},
		Blocks:    []Block{vacation},
		Duration:  30,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, countAvailable(wednesday))
}

func TestGenerateSlots_TouchingIntervalsDoNotConflict(t *testing.T) {
	slots, err := GenerateSlots(GenerateInput{
		Date:      calendar.MustParse("2025-06-09"),
		Schedules: []Schedule{shift(drAna, "Dra. Ana", 1, "08:00", "10:00")},
		Appointments: []Appointment{
			booking(drAna, "2025-06-09", "07:30", "08:00", StatusScheduled),
			booking(drAna, "2025-06-09", "10:00", "10:30", StatusScheduled),
		},
		Duration: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, countAvailable(slots))
}

func TestGenerateSlots_PartialOverlapConflicts(t *testing.T) {
	slots, err := GenerateSlots(GenerateInput{
		Date:         calendar.MustParse("2025-06-09"),
		Schedules:    []Schedule{shift(drAna, "Dra. Ana", 1, "08:00", "10:00")},
		Appointments: []Appointment{booking(drAna, "2025-06-09", "08:15", "08:45", StatusPending)},
		Duration:     30,
	})
	require.NoError(t, err)

	assert.False(t, slots[0].Available)
	assert.False(t, slots[1].Available)
	assert.True(t, slots[2].Available)
	assert.True(t, slots[3].Available)
}

func TestGenerateSlots_IgnoresCancelledAndOtherDoctors(t *testing.T) {
	slots, err := GenerateSlots(GenerateInput{
		Date:      calendar.MustParse("2025-06-09"),
		Schedules: []Schedule{shift(drAna, "Dra. Ana", 1, "08:00", "09:00")},
		Appointments: []Appointment{
			booking(drAna, "2025-06-09", "08:00", "08:30", StatusCancelled),
			booking(drBruno, "2025-06-09", "08:30", "09:00", StatusConfirmed),
			booking(drAna, "2025-06-10", "08:30", "09:00", StatusConfirmed),
		},
		Duration: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, countAvailable(slots))
}

func TestGenerateSlots_BlockReasonTakesPrecedence(t *testing.T) {
	slots, err := GenerateSlots(GenerateInput{
		Date:         calendar.MustParse("2025-06-09"),
		Schedules:    []Schedule{shift(drAna, "Dra. Ana", 1, "08:00", "09:00")},
		Appointments: []Appointment{booking(drAna, "2025-06-09", "08:00", "08:30", StatusConfirmed)},
		Blocks: []Block{{
			ID:        uuid.New(),
			DoctorID:  drAna,
			StartDate: "2025-06-09",
			StartTime: "08:00",
			EndDate:   "2025-06-09",
			EndTime:   "08:30",
			BlockType: "meeting",
		}},
		Duration: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, "meeting", slots[0].Reason)
	assert.True(t, slots[1].Available)
}

func TestGenerateSlots_BlockReasonFallbacks(t *testing.T) {
	block := Block{StartDate: "2025-06-09", EndDate: "2025-06-09", StartTime: "08:00", EndTime: "09:00"}

	tests := []struct {
		name      string
		reason    string
		blockType string
		want      string
	}{
		{"reason", "Congresso", "leave", "Congresso"},
		{"block type", "", "leave", "leave"},
		{"default", "", "", ReasonBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := block
			b.Reason, b.BlockType = tt.reason, tt.blockType
			assert.Equal(t, tt.want, b.reason())
		})
	}
}

func TestGenerateSlots_OrganizationWideBlock(t *testing.T) {
	slots, err := GenerateSlots(GenerateInput{
		Date: calendar.MustParse("2025-06-09"),
		Schedules: []Schedule{
			shift(drAna, "Dra. Ana", 1, "08:00", "09:00"),
			shift(drBruno, "Dr. Bruno", 1, "08:00", "09:00"),
		},
		Blocks: []Block{{
			ID:        uuid.New(),
			StartDate: "2025-06-09",
			StartTime: "08:00",
			EndDate:   "2025-06-09",
			EndTime:   "08:30",
			Reason:    "Dedetizacao",
		}},
		Duration: 30,
	})
	require.NoError(t, err)

	require.Len(t, slots, 4)
	assert.Equal(t, 2, countAvailable(slots))
	assert.Equal(t, "Dedetizacao", slots[0].Reason)
	assert.Equal(t, "Dedetizacao", slots[1].Reason)
}

func TestGenerateSlots_SplitShiftsSortedAcrossDoctors(t *testing.T) {
	slots, err := GenerateSlots(GenerateInput{
		Date: calendar.MustParse("2025-06-09"),
		Schedules: []Schedule{
			shift(drBruno, "Dr. Bruno", 1, "14:00", "15:00"),
			shift(drAna, "Dra. Ana", 1, "08:00", "09:00"),
			shift(drBruno, "Dr. Bruno", 1, "08:00", "09:00"),
		},
		Duration: 60,
	})
	require.NoError(t, err)

	require.Len(t, slots, 3)
	assert.Equal(t, []string{"08:00", "08:00", "14:00"}, startTimes(slots))
	assert.Equal(t, "Dr. Bruno", slots[0].DoctorName)
	assert.Equal(t, "Dra. Ana", slots[1].DoctorName)
	assert.Equal(t, "Dr. Bruno", slots[2].DoctorName)
}

func TestGenerateSlots_Deterministic(t *testing.T) {
	in := GenerateInput{
		Date: calendar.MustParse("2025-06-09"),
		Schedules: []Schedule{
			shift(drAna, "Dra. Ana", 1, "08:00", "12:00"),
			shift(drBruno, "Dr. Bruno", 1, "09:00", "13:00"),
		},
		Appointments: []Appointment{booking(drBruno, "2025-06-09", "10:00", "11:00", StatusConfirmed)},
		Duration:     20,
	}

	first, err := GenerateSlots(in)
	require.NoError(t, err)
	second, err := GenerateSlots(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateSlots_ScheduleLengthEdges(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{"exactly one slot", "08:00", "08:30", 1},
		{"shorter than one slot", "08:00", "08:20", 0},
		{"remainder dropped", "08:00", "09:10", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots, err := GenerateSlots(GenerateInput{
				Date:      calendar.MustParse("2025-06-09"),
				Schedules: []Schedule{shift(drAna, "Dra. Ana", 1, tt.start, tt.end)},
				Duration:  30,
			})
			require.NoError(t, err)
			assert.Len(t, slots, tt.want)
		})
	}
}

func TestGenerateSlots_EmptyAndInactiveSchedules(t *testing.T) {
	slots, err := GenerateSlots(GenerateInput{Date: calendar.MustParse("2025-06-09"), Duration: 30})
	require.NoError(t, err)
	assert.Empty(t, slots)

	inactive := shift(drAna, "Dra. Ana", 1, "08:00", "12:00")
	inactive.IsActive = false
	slots, err = GenerateSlots(GenerateInput{
		Date:      calendar.MustParse("2025-06-09"),
		Schedules: []Schedule{inactive},
		Duration:  30,
	})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateSlots_InvalidDuration(t *testing.T) {
	for _, d := range []int{0, 4, 481, -30} {
		_, err := GenerateSlots(GenerateInput{Date: calendar.MustParse("2025-06-09"), Duration: d})
		assert.ErrorIs(t, err, ErrInvalidDuration, "duration %d", d)
	}

	for _, d := range []int{MinSlotDuration, MaxSlotDuration} {
		_, err := GenerateSlots(GenerateInput{Date: calendar.MustParse("2025-06-09"), Duration: d})
		assert.NoError(t, err, "duration %d", d)
	}
}

func TestGenerateSlots_MalformedScheduleTime(t *testing.T) {
	_, err := GenerateSlots(GenerateInput{
		Date:      calendar.MustParse("2025-06-09"),
		Schedules: []Schedule{shift(drAna, "Dra. Ana", 1, "8h", "12:00")},
		Duration:  30,
	})
	assert.ErrorIs(t, err, errInvalidSchedule)
}
