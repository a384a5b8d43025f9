package ledger

import "time"

// =============================================================================
// PERIOD - Calendar window for account statements
// =============================================================================

// Period is an inclusive range of calendar dates.
//
// Examples:
//   - March 2024:        Mar 1 - Mar 31
//   - Q2 2024:           Apr 1 - Jun 30
//   - Fiscal year 2024:  Apr 1 2024 - Mar 31 2025 (fiscal start April)
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod builds a period from two dates, truncated to calendar days.
func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: DateOf(start), End: DateOf(end)}
	if p.End.Before(p.Start) {
		return Period{}, Invalid("to", "period ends before it starts")
	}
	return p, nil
}

// Contains reports whether t falls on a day inside [Start, End].
func (p Period) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Days is the number of calendar days covered, both ends included.
func (p Period) Days() int {
	return DaysBetween(p.Start, p.End) + 1
}

// EndExclusive is midnight after the last day, the upper bound for
// timestamp range queries.
func (p Period) EndExclusive() time.Time {
	return p.End.AddDate(0, 0, 1)
}

func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + "]"
}

// PeriodType defines how a period is derived from a date.
type PeriodType string

const (
	PeriodMonth      PeriodType = "month"
	PeriodQuarter    PeriodType = "quarter"
	PeriodYear       PeriodType = "year"
	PeriodFiscalYear PeriodType = "fiscal_year"
)

func (t PeriodType) Valid() bool {
	switch t {
	case PeriodMonth, PeriodQuarter, PeriodYear, PeriodFiscalYear:
		return true
	}
	return false
}

// PeriodConfig picks the period containing a date.
type PeriodConfig struct {
	Type PeriodType

	// For fiscal year: the month the fiscal year starts in (1-12).
	FiscalYearStartMonth time.Month
}

// =============================================================================
// PERIOD CALCULATOR
// =============================================================================

// PeriodFor returns the period that contains date.
func (pc PeriodConfig) PeriodFor(date time.Time) Period {
	date = DateOf(date)
	year, month := date.Year(), date.Month()

	switch pc.Type {
	case PeriodMonth:
		return Period{Start: NewDate(year, month, 1), End: EndOfMonth(year, month)}

	case PeriodQuarter:
		first := time.Month((int(month)-1)/3*3 + 1)
		return Period{Start: NewDate(year, first, 1), End: EndOfMonth(year, first+2)}

	case PeriodFiscalYear:
		return pc.fiscalYearPeriod(date)

	default:
		return Period{Start: NewDate(year, time.January, 1), End: NewDate(year, time.December, 31)}
	}
}

func (pc PeriodConfig) fiscalYearPeriod(date time.Time) Period {
	startMonth := pc.FiscalYearStartMonth
	if startMonth < time.January || startMonth > time.December {
		startMonth = time.January
	}

	start := NewDate(date.Year(), startMonth, 1)
	// before this year's fiscal start we are still in the previous fiscal year
	if date.Before(start) {
		start = NewDate(date.Year()-1, startMonth, 1)
	}
	return Period{Start: start, End: start.AddDate(1, 0, -1)}
}

// Next returns the period of the same type that follows p.
func (pc PeriodConfig) Next(p Period) Period {
	return pc.PeriodFor(p.End.AddDate(0, 0, 1))
}

// Previous returns the period of the same type that precedes p.
func (pc PeriodConfig) Previous(p Period) Period {
	return pc.PeriodFor(p.Start.AddDate(0, 0, -1))
}

// ParsePeriodType validates a user-supplied period name.
func ParsePeriodType(s string) (PeriodType, error) {
	t := PeriodType(s)
	if !t.Valid() {
		return "", Invalid("period", "unknown period %q", s)
	}
	return t, nil
}
