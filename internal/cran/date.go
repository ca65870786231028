package cran

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout used for dates in input files and the store.
const DateLayout = "2006-01-02"

type dateKind uint8

const (
	dateAbsent dateKind = iota
	dateFinite
	datePosInf
	dateNegInf
)

// Date is a calendar date that may be absent or unbounded. The archive
// dataset uses ±Inf as a sentinel for packages whose dates could not be
// resolved; those are kept distinct from missing values.
type Date struct {
	t    time.Time
	kind dateKind
}

// NewDate returns a finite date truncated to the calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), kind: dateFinite}
}

// Absent returns the missing date.
func Absent() Date { return Date{} }

// PosInf returns the +Inf sentinel.
func PosInf() Date { return Date{kind: datePosInf} }

// NegInf returns the -Inf sentinel.
func NegInf() Date { return Date{kind: dateNegInf} }

// ParseDate parses a date cell. Empty, NA and NaN cells are absent, Inf and
// -Inf are the unbounded sentinels. Anything else must be YYYY-MM-DD,
// optionally followed by a time of day which is discarded.
func ParseDate(s string) (Date, error) {
	v := strings.TrimSpace(s)
	switch strings.ToLower(v) {
	case "", "na", "nan", "<na>":
		return Absent(), nil
	case "inf", "+inf", "infinity", "+infinity":
		return PosInf(), nil
	case "-inf", "-infinity":
		return NegInf(), nil
	}

	if len(v) > len(DateLayout) {
		v = strings.TrimSpace(v[:len(DateLayout)])
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return Absent(), fmt.Errorf("invalid date %q: %w", s, err)
	}
	return NewDate(t), nil
}

// MustDate parses a YYYY-MM-DD string and panics on failure. Intended for
// constants and tests.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsAbsent reports whether the date is missing.
func (d Date) IsAbsent() bool { return d.kind == dateAbsent }

// IsFinite reports whether the date holds a real calendar day.
func (d Date) IsFinite() bool { return d.kind == dateFinite }

// IsUnbounded reports whether the date is +Inf or -Inf.
func (d Date) IsUnbounded() bool { return d.kind == datePosInf || d.kind == dateNegInf }

// Time returns the calendar day. It is the zero time unless IsFinite.
func (d Date) Time() time.Time { return d.t }

// Before reports whether d is strictly before o. Absent dates compare false.
func (d Date) Before(o Date) bool {
	if d.IsAbsent() || o.IsAbsent() {
		return false
	}
	return d.rank() < o.rank() || (d.IsFinite() && o.IsFinite() && d.t.Before(o.t))
}

func (d Date) rank() int {
	switch d.kind {
	case dateNegInf:
		return -1
	case datePosInf:
		return 1
	}
	return 0
}

// DaysSince returns the whole days from o to d. Both must be finite.
func (d Date) DaysSince(o Date) (float64, bool) {
	if !d.IsFinite() || !o.IsFinite() {
		return 0, false
	}
	return d.t.Sub(o.t).Hours() / 24, true
}

// String renders the date the way ParseDate accepts it.
func (d Date) String() string {
	switch d.kind {
	case dateFinite:
		return d.t.Format(DateLayout)
	case datePosInf:
		return "Inf"
	case dateNegInf:
		return "-Inf"
	}
	return ""
}

// Display renders the date for tables, using "NA" for absent values.
func (d Date) Display() string {
	if d.IsAbsent() {
		return "NA"
	}
	return d.String()
}
