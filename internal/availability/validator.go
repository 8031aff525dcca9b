package availability

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-availability/internal/calendar"
)

// Consistency violation codes. These are reported, never returned as errors.
const (
	CodeAvailableSlotsMismatch = "AVAILABLE_SLOTS_MISMATCH"
	CodeImpossibleSlotCount    = "IMPOSSIBLE_SLOT_COUNT"
	CodeInvalidDateFormat      = "INVALID_DATE_FORMAT"
	CodeTotalSlotsMismatch     = "TOTAL_SLOTS_MISMATCH"
)

type ValidationError struct {
	Code    string `json:"code"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors"`
}

// TransformationEntry is one audit record written per validation.
type TransformationEntry struct {
	Component    string
	Operation    string
	Input        string
	Output       string
	RulesApplied []string
	At           time.Time
}

// TransformationLog receives audit entries. It never influences results.
type TransformationLog interface {
	Record(entry TransformationEntry)
}

// ZerologTransformationLog writes entries as structured log lines.
type ZerologTransformationLog struct {
	logger zerolog.Logger
}

func NewZerologTransformationLog(logger zerolog.Logger) *ZerologTransformationLog {
	return &ZerologTransformationLog{logger: logger.With().Str("log", "transformation").Logger()}
}

func (l *ZerologTransformationLog) Record(e TransformationEntry) {
	l.logger.Info().
		Str("component", e.Component).
		Str("operation", e.Operation).
		Str("input", e.Input).
		Str("output", e.Output).
		Strs("rules", e.RulesApplied).
		Time("at", e.At).
		Msg("transformation")
}

var validationRules = []string{
	CodeInvalidDateFormat,
	CodeTotalSlotsMismatch,
	CodeAvailableSlotsMismatch,
	CodeImpossibleSlotCount,
}

// Validator re-checks availability structures before they leave the engine.
type Validator struct {
	log      TransformationLog
	observer Observer
	now      func() time.Time
}

// NewValidator builds a validator. A nil log disables the audit entries;
// validation itself always runs.
func NewValidator(log TransformationLog, observer Observer) *Validator {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Validator{log: log, observer: observer, now: time.Now}
}

// ValidateAvailabilityData checks every day for count and date consistency.
func (v *Validator) ValidateAvailabilityData(days []DayAvailability, source string) ValidationResult {
	result := ValidationResult{IsValid: true, Errors: []ValidationError{}}

	for _, day := range days {
		for _, e := range checkDay(day) {
			result.Errors = append(result.Errors, e)
			v.observer.ObserveIntegrityViolation(e.Code)
		}
	}
	result.IsValid = len(result.Errors) == 0

	if v.log != nil {
		v.log.Record(TransformationEntry{
			Component:    "DataIntegrityValidator",
			Operation:    "validateAvailabilityData:" + source,
			Input:        summarizeDays(days),
			Output:       fmt.Sprintf("valid=%t errors=%d", result.IsValid, len(result.Errors)),
			RulesApplied: validationRules,
			At:           v.now(),
		})
	}

	return result
}

func checkDay(day DayAvailability) []ValidationError {
	var errs []ValidationError

	if _, err := calendar.Parse(day.Date); err != nil {
		errs = append(errs, ValidationError{
			Code:    CodeInvalidDateFormat,
			Date:    day.Date,
			Message: err.Error(),
		})
	}

	if day.TotalSlots != len(day.Slots) {
		errs = append(errs, ValidationError{
			Code:    CodeTotalSlotsMismatch,
			Date:    day.Date,
			Message: fmt.Sprintf("total_slots=%d but %d slots present", day.TotalSlots, len(day.Slots)),
		})
	}

	available := 0
	for _, s := range day.Slots {
		if s.Available {
			available++
		}
	}
	if day.AvailableSlots != available {
		errs = append(errs, ValidationError{
			Code:    CodeAvailableSlotsMismatch,
			Date:    day.Date,
			Message: fmt.Sprintf("available_slots=%d but %d slots marked available", day.AvailableSlots, available),
		})
	}

	if day.AvailableSlots > day.TotalSlots {
		errs = append(errs, ValidationError{
			Code:    CodeImpossibleSlotCount,
			Date:    day.Date,
			Message: fmt.Sprintf("available_slots=%d exceeds total_slots=%d", day.AvailableSlots, day.TotalSlots),
		})
	}

	return errs
}

func summarizeDays(days []DayAvailability) string {
	if len(days) == 0 {
		return "days=0"
	}
	total, available := 0, 0
	for _, d := range days {
		total += d.TotalSlots
		available += d.AvailableSlots
	}
	return fmt.Sprintf("days=%d range=%s..%s total=%d available=%d",
		len(days), days[0].Date, days[len(days)-1].Date, total, available)
}
