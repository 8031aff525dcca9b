package availability

import (
	"github.com/google/uuid"

	"github.com/hackgods/clinic-availability/internal/calendar"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Reasons attached to unavailable slots.
const (
	ReasonBooked        = "Ocupado"
	ReasonBlocked       = "Bloqueado"
	ReasonMinimumNotice = "Antecedência mínima"
)

// Slot duration bounds, in minutes.
const (
	MinSlotDuration     = 5
	MaxSlotDuration     = 480
	DefaultSlotDuration = 30
)

// Schedule is one recurring weekly shift of a doctor. A doctor may have
// several rows for the same weekday (split shifts).
type Schedule struct {
	ID         uuid.UUID
	DoctorID   uuid.UUID
	DoctorName string
	LocationID uuid.UUID
	DayOfWeek  int
	StartTime  string // HH:MM
	EndTime    string // HH:MM
	IsActive   bool
}

// Appointment is an existing booking, read as a date-scoped snapshot.
type Appointment struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Date      string // YYYY-MM-DD
	StartTime string // HH:MM
	EndTime   string // HH:MM
	Status    AppointmentStatus
}

// Blocks reports whether the appointment occupies its interval.
func (a Appointment) Blocks() bool {
	return a.Status != StatusCancelled
}

// Block is a vacation, leave or closure. DoctorID == uuid.Nil applies to
// every doctor of the organization.
type Block struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	StartDate string // YYYY-MM-DD
	StartTime string // HH:MM
	EndDate   string // YYYY-MM-DD
	EndTime   string // HH:MM
	Reason    string
	BlockType string
}

// AppliesTo reports whether the block targets the given doctor.
func (b Block) AppliesTo(doctorID uuid.UUID) bool {
	return b.DoctorID == uuid.Nil || b.DoctorID == doctorID
}

// MultiDay reports whether the block spans more than one calendar date.
// A block ending at 00:00 does not reach its end date.
func (b Block) MultiDay() bool {
	n := b.endingBeforeMidnight()
	return n.StartDate != n.EndDate
}

// endingBeforeMidnight rewrites an end of D 00:00 as D-1 24:00, so the
// half-open span never touches D.
func (b Block) endingBeforeMidnight() Block {
	if b.EndTime != "00:00" && b.EndTime != "00:00:00" {
		return b
	}
	end, err := calendar.Parse(b.EndDate)
	if err != nil || b.EndDate <= b.StartDate {
		return b
	}
	b.EndDate = end.AddDays(-1).String()
	b.EndTime = calendar.EndOfDay.String()
	return b
}

func (b Block) reason() string {
	switch {
	case b.Reason != "":
		return b.Reason
	case b.BlockType != "":
		return b.BlockType
	default:
		return ReasonBlocked
	}
}

// ServiceDoctor is one row of the doctor-service association.
type ServiceDoctor struct {
	DoctorID uuid.UUID
	Fee      float64
}

// TimeSlot is a generated, never persisted, bookable interval.
type TimeSlot struct {
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	DoctorID   uuid.UUID `json:"doctor_id"`
	DoctorName string    `json:"doctor_name"`
	LocationID uuid.UUID `json:"location_id"`
	Available  bool      `json:"available"`
	Reason     string    `json:"reason,omitempty"`
}

// DayAvailability aggregates the slots of one calendar date.
type DayAvailability struct {
	Date           string     `json:"date"`
	DayOfWeek      int        `json:"day_of_week"`
	DayOfWeekName  string     `json:"day_of_week_name"`
	Slots          []TimeSlot `json:"slots"`
	TotalSlots     int        `json:"total_slots"`
	AvailableSlots int        `json:"available_slots"`
	Note           string     `json:"note,omitempty"`
}

// newDayAvailability derives the counts from slots so they cannot drift.
func newDayAvailability(date calendar.Date, slots []TimeSlot) DayAvailability {
	if slots == nil {
		slots = []TimeSlot{}
	}
	available := 0
	for _, s := range slots {
		if s.Available {
			available++
		}
	}
	return DayAvailability{
		Date:           date.String(),
		DayOfWeek:      date.Weekday(),
		DayOfWeekName:  date.WeekdayName(),
		Slots:          slots,
		TotalSlots:     len(slots),
		AvailableSlots: available,
	}
}

// AvailabilityResult is what GetAvailability returns.
type AvailabilityResult struct {
	Days       []DayAvailability
	Validation ValidationResult
	Cached     bool
}

// ByDate returns the date -> DayAvailability mapping.
func (r *AvailabilityResult) ByDate() map[string]DayAvailability {
	out := make(map[string]DayAvailability, len(r.Days))
	for _, d := range r.Days {
		out[d.Date] = d
	}
	return out
}
