// Package calendar does date arithmetic on plain calendar days.
//
// Dates travel between components as canonical YYYY-MM-DD strings and are
// manipulated as (year, month, day) triples. Nothing in this package converts
// a date into an instant, so results never depend on the process timezone.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	ErrInvalidDateFormat = errors.New("invalid date format, expected YYYY-MM-DD")
	ErrInvalidDateValue  = errors.New("invalid date value")
	ErrInvalidRange      = errors.New("start date is after end date")
)

var canonicalDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Date is an immutable calendar day. The zero value is not a valid date.
type Date struct {
	year  int
	month int
	day   int
}

// Parse reads a strict YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	if !canonicalDate.MatchString(s) {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}

	// The regexp guarantees the digits, so Atoi cannot fail here.
	y, _ := strconv.Atoi(s[0:4])
	m, _ := strconv.Atoi(s[5:7])
	d, _ := strconv.Atoi(s[8:10])

	return New(y, m, d)
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// New builds a date from its parts, checking month and day ranges.
func New(year, month, day int) (Date, error) {
	if year < 0 || year > 9999 {
		return Date{}, fmt.Errorf("%w: year %d out of range", ErrInvalidDateValue, year)
	}
	if month < 1 || month > 12 {
		return Date{}, fmt.Errorf("%w: month %d out of range", ErrInvalidDateValue, month)
	}
	if day < 1 || day > DaysInMonth(year, month) {
		return Date{}, fmt.Errorf("%w: day %d out of range for %04d-%02d", ErrInvalidDateValue, day, year, month)
	}
	return Date{year: year, month: month, day: day}, nil
}

// FromTime reads the calendar fields of t as rendered in t's own location.
// Callers choose the location; no offset arithmetic happens here.
func FromTime(t time.Time) Date {
	return Date{year: t.Year(), month: int(t.Month()), day: t.Day()}
}

func (d Date) Year() int  { return d.year }
func (d Date) Month() int { return d.month }
func (d Date) Day() int   { return d.day }

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool { return d == Date{} }

// String renders the canonical YYYY-MM-DD form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
}

// AddDays returns the date n days after d; n may be negative.
func (d Date) AddDays(n int) Date {
	y, m, day := civilFromDays(d.ordinal() + n)
	return Date{year: y, month: m, day: day}
}

// Weekday returns 0 for Sunday through 6 for Saturday.
func (d Date) Weekday() int {
	// Day 0 of the ordinal scale, 1970-01-01, was a Thursday.
	return floorMod(d.ordinal()+4, 7)
}

// WeekdayName returns the localized weekday name.
func (d Date) WeekdayName() string {
	return weekdayNames[d.Weekday()]
}

func (d Date) Before(o Date) bool { return Compare(d, o) < 0 }
func (d Date) After(o Date) bool  { return Compare(d, o) > 0 }

// ordinal counts days since 1970-01-01.
func (d Date) ordinal() int {
	return daysFromCivil(d.year, d.month, d.day)
}

// Compare returns -1, 0 or 1 comparing the parsed triples.
func Compare(a, b Date) int {
	switch {
	case a.year != b.year:
		return sign(a.year - b.year)
	case a.month != b.month:
		return sign(a.month - b.month)
	default:
		return sign(a.day - b.day)
	}
}

// DaysBetween returns the number of days from a to b (negative if b is earlier).
func DaysBetween(a, b Date) int {
	return b.ordinal() - a.ordinal()
}

// AddDays parses s, shifts it by n days and returns the canonical string.
func AddDays(s string, n int) (string, error) {
	d, err := Parse(s)
	if err != nil {
		return "", err
	}
	out := d.AddDays(n)
	if out.year < 0 || out.year > 9999 {
		return "", fmt.Errorf("%w: %s%+d days leaves the supported range", ErrInvalidDateValue, s, n)
	}
	return out.String(), nil
}

// CompareStrings parses both dates and compares them.
func CompareStrings(a, b string) (int, error) {
	da, err := Parse(a)
	if err != nil {
		return 0, err
	}
	db, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return Compare(da, db), nil
}

// Range returns every date from start to end, both inclusive.
func Range(start, end Date) ([]Date, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, start, end)
	}
	out := make([]Date, 0, DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out, nil
}

// GenerateRange is Range over canonical strings.
func GenerateRange(start, end string) ([]string, error) {
	s, err := Parse(start)
	if err != nil {
		return nil, err
	}
	e, err := Parse(end)
	if err != nil {
		return nil, err
	}
	dates, err := Range(s, e)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out, nil
}

// DayOfWeekName returns the localized weekday name for a canonical date.
func DayOfWeekName(s string) (string, error) {
	d, err := Parse(s)
	if err != nil {
		return "", err
	}
	return d.WeekdayName(), nil
}

// Portuguese (pt-BR), the clinic locale.
var weekdayNames = [7]string{
	"Domingo",
	"Segunda-feira",
	"Terça-feira",
	"Quarta-feira",
	"Quinta-feira",
	"Sexta-feira",
	"Sábado",
}

// WeekdayNameOf returns the localized name for a 0..6 weekday index.
func WeekdayNameOf(weekday int) string {
	if weekday < 0 || weekday > 6 {
		return ""
	}
	return weekdayNames[weekday]
}

func IsLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

func DaysInMonth(y, m int) int {
	switch m {
	case 2:
		if IsLeapYear(y) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// daysFromCivil and civilFromDays convert between proleptic Gregorian
// dates and a day count, using eras of 400 years (146097 days).
func daysFromCivil(y, m, d int) int {
	if m <= 2 {
		y--
	}
	era := floorDiv(y, 400)
	yoe := y - era*400
	mp := (m + 9) % 12
	doy := (153*mp+2)/5 + d - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

func civilFromDays(z int) (y, m, d int) {
	z += 719468
	era := floorDiv(z, 146097)
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y = yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d = doy - (153*mp+2)/5 + 1
	if mp < 10 {
		m = mp + 3
	} else {
		m = mp - 9
	}
	if m <= 2 {
		y++
	}
	return y, m, d
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
