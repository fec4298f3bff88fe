// Package flexdate parses the free-text dates the platform stores on
// disaster events and records. Dates arrive at year, year-month, or full
// precision, with 1- or 2-digit month and day components.
package flexdate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Date is a parsed flexible date. Month and Day are zero when the source
// string did not carry them.
type Date struct {
	Year  int
	Month int
	Day   int
}

// Parse accepts "YYYY", "YYYY-M", "YYYY-MM", "YYYY-M-D" and "YYYY-MM-DD".
func Parse(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, eris.New("flexdate: empty date")
	}

	parts := strings.Split(s, "-")
	if len(parts) > 3 {
		return Date{}, eris.Errorf("flexdate: malformed date %q", s)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 4 || year <= 0 {
		return Date{}, eris.Errorf("flexdate: malformed year in %q", s)
	}
	d := Date{Year: year}

	if len(parts) >= 2 {
		m, err := strconv.Atoi(parts[1])
		if err != nil || len(parts[1]) < 1 || len(parts[1]) > 2 || m < 1 || m > 12 {
			return Date{}, eris.Errorf("flexdate: malformed month in %q", s)
		}
		d.Month = m
	}

	if len(parts) == 3 {
		day, err := strconv.Atoi(parts[2])
		if err != nil || len(parts[2]) < 1 || len(parts[2]) > 2 || day < 1 || day > 31 {
			return Date{}, eris.Errorf("flexdate: malformed day in %q", s)
		}
		if day > daysIn(d.Year, d.Month) {
			return Date{}, eris.Errorf("flexdate: day out of range in %q", s)
		}
		d.Day = day
	}

	return d, nil
}

// Lower returns the earliest calendar day the date can denote: "2021"
// becomes 2021-01-01, "2021-6" becomes 2021-06-01.
func (d Date) Lower() time.Time {
	month := d.Month
	if month == 0 {
		month = 1
	}
	day := d.Day
	if day == 0 {
		day = 1
	}
	return time.Date(d.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// Upper returns the latest calendar day the date can denote: "2021"
// becomes 2021-12-31, "2021-2" becomes 2021-02-28 (or -29).
func (d Date) Upper() time.Time {
	month := d.Month
	if month == 0 {
		month = 12
	}
	day := d.Day
	if day == 0 {
		day = daysIn(d.Year, month)
	}
	return time.Date(d.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// LowerBound is Lower formatted as an ISO date for use in a `>=` predicate.
func (d Date) LowerBound() string { return d.Lower().Format("2006-01-02") }

// UpperBound is Upper formatted as an ISO date for use in a `<=` predicate.
func (d Date) UpperBound() string { return d.Upper().Format("2006-01-02") }

// String renders the date at its own precision, zero-padded.
func (d Date) String() string {
	switch {
	case d.Day != 0:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	case d.Month != 0:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	default:
		return fmt.Sprintf("%04d", d.Year)
	}
}

// Covers reports whether a full date t falls inside the (possibly
// partial) range this date denotes. A year-only date covers the whole
// year, a year-month date the whole month.
func (d Date) Covers(t time.Time) bool {
	return !t.Before(d.Lower()) && !t.After(d.Upper())
}

func daysIn(year, month int) int {
	if month < 1 || month > 12 {
		return 31
	}
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
