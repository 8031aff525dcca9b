package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Normalization is the outcome of ValidateAndNormalize.
type Normalization struct {
	IsValid              bool   `json:"is_valid"`
	NormalizedDate       string `json:"normalized_date,omitempty"`
	Error                string `json:"error,omitempty"`
	DisplacementDetected bool   `json:"displacement_detected"`
	// WrittenDate and LocalDate are set when a date-time was supplied.
	WrittenDate string `json:"written_date,omitempty"`
	LocalDate   string `json:"local_date,omitempty"`
}

// ValidateAndNormalize is ValidateAndNormalizeIn with UTC as the reference
// location.
func ValidateAndNormalize(s string) Normalization {
	return ValidateAndNormalizeIn(s, time.UTC)
}

// ValidateAndNormalizeIn accepts a canonical date, or a date-time with an
// offset as produced by serializing a native date object. For a date-time,
// the date written in the string is compared with the calendar day the
// instant falls on in loc. A mismatch is the ±1 day displacement: it is
// reported, and no date is returned, because either reading may be wrong.
func ValidateAndNormalizeIn(s string, loc *time.Location) Normalization {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)

	if canonicalDate.MatchString(s) {
		d, err := Parse(s)
		if err != nil {
			return Normalization{Error: err.Error()}
		}
		return Normalization{IsValid: true, NormalizedDate: d.String()}
	}

	if len(s) < 11 || !canonicalDate.MatchString(s[:10]) || (s[10] != 'T' && s[10] != ' ') {
		return Normalization{Error: fmt.Errorf("%w: %q", ErrInvalidDateFormat, s).Error()}
	}

	written, err := Parse(s[:10])
	if err != nil {
		return Normalization{Error: err.Error()}
	}

	instant, hasOffset, err := parseDateTime(s)
	if err != nil {
		return Normalization{Error: err.Error()}
	}
	if !hasOffset {
		// A floating wall-clock time cannot be displaced.
		return Normalization{IsValid: true, NormalizedDate: written.String(), WrittenDate: written.String()}
	}

	local := FromTime(instant.In(loc))
	out := Normalization{
		WrittenDate: written.String(),
		LocalDate:   local.String(),
	}
	if local != written {
		out.DisplacementDetected = true
		out.Error = fmt.Sprintf("date-time %q is written as %s but falls on %s in %s; send a plain YYYY-MM-DD date",
			s, written, local, loc)
		return out
	}

	out.IsValid = true
	out.NormalizedDate = written.String()
	return out
}

var errUnsupportedDateTime = errors.New("unsupported date-time layout")

func parseDateTime(s string) (time.Time, bool, error) {
	s = strings.Replace(s, " ", "T", 1)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("%w: %q", errUnsupportedDateTime, s)
}
