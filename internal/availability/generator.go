package availability

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-availability/internal/calendar"
)

var ErrInvalidDuration = fmt.Errorf("slot duration must be between %d and %d minutes", MinSlotDuration, MaxSlotDuration)

var errInvalidSchedule = errors.New("invalid schedule row")

// GenerateInput is everything the generator needs for one date.
// Appointments and blocks of other doctors or dates are ignored.
type GenerateInput struct {
	Date         calendar.Date
	Schedules    []Schedule
	Appointments []Appointment
	Blocks       []Block
	Duration     int
}

type interval struct {
	start, end calendar.TimeOfDay
	reason     string
}

func (i interval) overlaps(start, end calendar.TimeOfDay) bool {
	return i.start < end && i.end > start
}

// ValidateDuration checks the slot duration bounds.
func ValidateDuration(minutes int) error {
	if minutes < MinSlotDuration || minutes > MaxSlotDuration {
		return fmt.Errorf("%w: got %d", ErrInvalidDuration, minutes)
	}
	return nil
}

// GenerateSlots walks every active schedule row in duration steps and marks
// each candidate against blocks first, then appointments. Rows are
// generated independently and the result is sorted by start time.
func GenerateSlots(in GenerateInput) ([]TimeSlot, error) {
	if err := ValidateDuration(in.Duration); err != nil {
		return nil, err
	}

	date := in.Date.String()
	busy := make(map[uuid.UUID][]interval)
	blocked := make(map[uuid.UUID][]interval)
	wholeDay := make(map[uuid.UUID]string)

	var slots []TimeSlot
	for _, sch := range in.Schedules {
		if !sch.IsActive {
			continue
		}

		start, err := calendar.ParseTime(sch.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w %s: start: %w", errInvalidSchedule, sch.ID, err)
		}
		end, err := calendar.ParseEndTime(sch.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w %s: end: %w", errInvalidSchedule, sch.ID, err)
		}

		doctor := sch.DoctorID
		if _, seen := busy[doctor]; !seen {
			appts, err := appointmentIntervals(in.Appointments, doctor, date)
			if err != nil {
				return nil, err
			}
			busy[doctor] = appts

			blks, allDay, err := blockIntervals(in.Blocks, doctor, in.Date)
			if err != nil {
				return nil, err
			}
			blocked[doctor] = blks
			if allDay != "" {
				wholeDay[doctor] = allDay
			}
		}

		step := calendar.TimeOfDay(in.Duration)
		for cur := start; cur+step <= end; cur += step {
			slot := TimeSlot{
				StartTime:  cur.String(),
				EndTime:    (cur + step).String(),
				DoctorID:   doctor,
				DoctorName: sch.DoctorName,
				LocationID: sch.LocationID,
			}
			slot.Available, slot.Reason = classify(cur, cur+step, wholeDay[doctor], blocked[doctor], busy[doctor])
			slots = append(slots, slot)
		}
	}

	sortSlots(slots)
	return slots, nil
}

func classify(start, end calendar.TimeOfDay, wholeDayReason string, blocks, appts []interval) (bool, string) {
	if wholeDayReason != "" {
		return false, wholeDayReason
	}
	for _, b := range blocks {
		if b.overlaps(start, end) {
			return false, b.reason
		}
	}
	for _, a := range appts {
		if a.overlaps(start, end) {
			return false, ReasonBooked
		}
	}
	return true, ""
}

func appointmentIntervals(appts []Appointment, doctor uuid.UUID, date string) ([]interval, error) {
	var out []interval
	for _, a := range appts {
		if a.DoctorID != doctor || !a.Blocks() {
			continue
		}
		if a.Date != "" && a.Date != date {
			continue
		}
		start, err := calendar.ParseTime(a.StartTime)
		if err != nil {
			return nil, fmt.Errorf("appointment %s start: %w", a.ID, err)
		}
		end, err := calendar.ParseEndTime(a.EndTime)
		if err != nil {
			return nil, fmt.Errorf("appointment %s end: %w", a.ID, err)
		}
		out = append(out, interval{start: start, end: end})
	}
	return out, nil
}

// blockIntervals returns the same-day block intervals for a doctor, or a
// non-empty reason when a multi-day block covers the whole date.
func blockIntervals(blocks []Block, doctor uuid.UUID, date calendar.Date) ([]interval, string, error) {
	var out []interval
	for _, b := range blocks {
		if !b.AppliesTo(doctor) {
			continue
		}
		b = b.endingBeforeMidnight()
		from, err := calendar.Parse(b.StartDate)
		if err != nil {
			return nil, "", fmt.Errorf("block %s start date: %w", b.ID, err)
		}
		to, err := calendar.Parse(b.EndDate)
		if err != nil {
			return nil, "", fmt.Errorf("block %s end date: %w", b.ID, err)
		}
		if date.Before(from) || date.After(to) {
			continue
		}

		if b.MultiDay() || b.StartTime == "" || b.EndTime == "" {
			return nil, b.reason(), nil
		}

		start, err := calendar.ParseTime(b.StartTime)
		if err != nil {
			return nil, "", fmt.Errorf("block %s start time: %w", b.ID, err)
		}
		end, err := calendar.ParseEndTime(b.EndTime)
		if err != nil {
			return nil, "", fmt.Errorf("block %s end time: %w", b.ID, err)
		}
		out = append(out, interval{start: start, end: end, reason: b.reason()})
	}
	return out, "", nil
}

// sortSlots orders by start time; HH:MM strings sort chronologically.
// Doctor name and id make the order total.
func sortSlots(slots []TimeSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.DoctorName != b.DoctorName {
			return a.DoctorName < b.DoctorName
		}
		return a.DoctorID.String() < b.DoctorID.String()
	})
}
