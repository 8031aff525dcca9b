package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrInvalidTime = errors.New("invalid time of day, expected HH:MM")

// MinutesPerDay bounds TimeOfDay: 0 <= t < MinutesPerDay.
const MinutesPerDay = 24 * 60

// TimeOfDay is minutes since midnight.
type TimeOfDay int

// ParseTime reads HH:MM. A trailing :SS (as returned by TIME columns) is
// accepted only when the seconds are zero.
func ParseTime(s string) (TimeOfDay, error) {
	if len(s) == 8 && s[5] == ':' {
		if s[6:] != "00" {
			return 0, fmt.Errorf("%w: %q has non-zero seconds", ErrInvalidTime, s)
		}
		s = s[:5]
	}
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	h, err := strconv.Atoi(s[0:2])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(s[3:5])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	return TimeOfDay(h*60 + m), nil
}

// EndOfDay is the 24:00 sentinel closing an interval at midnight.
const EndOfDay TimeOfDay = MinutesPerDay

// ParseEndTime is ParseTime for the exclusive end of an interval: it also
// accepts 24:00, which Postgres TIME columns allow.
func ParseEndTime(s string) (TimeOfDay, error) {
	if s == "24:00" || s == "24:00:00" {
		return EndOfDay, nil
	}
	return ParseTime(s)
}

// MustParseTime is ParseTime for literals known to be valid.
func MustParseTime(s string) TimeOfDay {
	t, err := ParseTime(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ClockOf reads the wall-clock minutes of t in t's own location.
func ClockOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) Minutes() int { return int(t) }

// String renders HH:MM. Values at or past midnight render as 24:00 and
// beyond, which only happens for slot ends computed by addition.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Valid reports whether t lies within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

// Moment is a (date, time of day) pair compared without timezone math.
type Moment struct {
	Date Date
	Time TimeOfDay
}

// absoluteMinutes places the moment on a single minute scale.
func (m Moment) absoluteMinutes() int {
	return m.Date.ordinal()*MinutesPerDay + int(m.Time)
}

// AddMinutes returns the moment n minutes later, rolling over days.
func (m Moment) AddMinutes(n int) Moment {
	abs := m.absoluteMinutes() + n
	days := floorDiv(abs, MinutesPerDay)
	y, mo, d := civilFromDays(days)
	return Moment{
		Date: Date{year: y, month: mo, day: d},
		Time: TimeOfDay(abs - days*MinutesPerDay),
	}
}

func (m Moment) Before(o Moment) bool {
	return m.absoluteMinutes() < o.absoluteMinutes()
}
