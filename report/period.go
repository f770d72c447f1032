package report

import (
	"fmt"
	"time"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// PERIOD - Column boundaries for period reports
// =============================================================================

// Period is an inclusive range of calendar days.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d time.Time) bool {
	d = ledger.DayOf(d)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Label names the period column, e.g. "2025-01" for a month, "2025-Q1", "2025".
func (p Period) Label(every Periodicity) string {
	switch every {
	case Monthly:
		return p.Start.Format("2006-01")
	case Quarterly:
		return fmt.Sprintf("%d-Q%d", p.Start.Year(), (int(p.Start.Month())-1)/3+1)
	case HalfYearly:
		return fmt.Sprintf("%d-H%d", p.Start.Year(), (int(p.Start.Month())-1)/6+1)
	case Yearly:
		return p.Start.Format("2006")
	}
	return p.String()
}

func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + "]"
}

// Periodicity splits a date range into report columns.
type Periodicity string

const (
	None       Periodicity = ""
	Monthly    Periodicity = "monthly"
	Quarterly  Periodicity = "quarterly"
	HalfYearly Periodicity = "half-yearly"
	Yearly     Periodicity = "yearly"
)

// ParsePeriodicity accepts the names above, case-sensitively, plus "none".
func ParsePeriodicity(s string) (Periodicity, error) {
	switch p := Periodicity(s); p {
	case None, Monthly, Quarterly, HalfYearly, Yearly:
		return p, nil
	case "none":
		return None, nil
	}
	return None, fmt.Errorf("unknown periodicity %q", s)
}

func (every Periodicity) months() int {
	switch every {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case HalfYearly:
		return 6
	case Yearly:
		return 12
	}
	return 0
}

// Split returns the periods covering [from, to]. Periods are aligned to
// calendar boundaries (Jan 1, Apr 1, Jul 1, Oct 1 for quarters); the first
// and last are clipped to from and to. None returns a single period.
func (every Periodicity) Split(from, to time.Time) []Period {
	from, to = ledger.DayOf(from), ledger.DayOf(to)
	if to.Before(from) {
		return nil
	}
	n := every.months()
	if n == 0 {
		return []Period{{Start: from, End: to}}
	}

	var out []Period
	// Align to the first month of the bucket containing from
	month := (int(from.Month())-1)/n*n + 1
	start := ledger.Date(from.Year(), time.Month(month), 1)
	for !start.After(to) {
		next := start.AddDate(0, n, 0)
		p := Period{Start: start, End: next.AddDate(0, 0, -1)}
		if p.Start.Before(from) {
			p.Start = from
		}
		if p.End.After(to) {
			p.End = to
		}
		out = append(out, p)
		start = next
	}
	return out
}

// indexOf returns the column holding d, or -1.
func indexOf(periods []Period, d time.Time) int {
	for i, p := range periods {
		if p.Contains(d) {
			return i
		}
	}
	return -1
}
