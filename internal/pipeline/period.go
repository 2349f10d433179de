package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Period is a trailing time window ending now.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// ParsePeriod accepts week, month, year or all (case-insensitive).
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodWeek, PeriodMonth, PeriodYear, PeriodAll:
		return p, nil
	case "":
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("unknown period %q (want week, month, year or all)", s)
	}
}

// Range returns the [since, until] bounds of the period relative to now.
// PeriodAll has a zero since.
func (p Period) Range(now time.Time) (since, until time.Time) {
	switch p {
	case PeriodWeek:
		return now.AddDate(0, 0, -7), now
	case PeriodMonth:
		return now.AddDate(0, -1, 0), now
	case PeriodYear:
		return now.AddDate(-1, 0, 0), now
	default:
		return time.Time{}, now
	}
}

// Label is the display name for the period.
func (p Period) Label() string {
	switch p {
	case PeriodWeek:
		return "Last 7 days"
	case PeriodMonth:
		return "Last month"
	case PeriodYear:
		return "Last year"
	default:
		return "All time"
	}
}
