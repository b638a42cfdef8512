// Package timewindow resolves relative reporting windows ("Last Quarter", "Year-to-Date", ...)
// into concrete calendar dates anchored at a given instant.
package timewindow

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the format of resolved window boundaries.
const DateLayout = time.DateOnly

// Kind identifies a relative window.
type Kind string

const (
	Today         Kind = "today"
	Yesterday     Kind = "yesterday"
	Last7Days     Kind = "last_7_days"
	Last30Days    Kind = "last_30_days"
	Last90Days    Kind = "last_90_days"
	MonthToDate   Kind = "month_to_date"
	LastMonth     Kind = "last_month"
	QuarterToDate Kind = "quarter_to_date"
	LastQuarter   Kind = "last_quarter"
	YearToDate    Kind = "year_to_date"
	LastYear      Kind = "last_year"
	CustomRange   Kind = "custom_range"
)

var (
	ErrUnknownWindow      = errors.New("unknown time window")
	ErrInvalidCustomRange = errors.New("invalid custom range")
)

var aliases = map[string]Kind{
	"today":         Today,
	"yesterday":     Yesterday,
	"last7days":     Last7Days,
	"lastweek":      Last7Days,
	"last30days":    Last30Days,
	"last90days":    Last90Days,
	"thismonth":     MonthToDate,
	"monthtodate":   MonthToDate,
	"mtd":           MonthToDate,
	"lastmonth":     LastMonth,
	"thisquarter":   QuarterToDate,
	"quartertodate": QuarterToDate,
	"qtd":           QuarterToDate,
	"lastquarter":   LastQuarter,
	"yeartodate":    YearToDate,
	"thisyear":      YearToDate,
	"ytd":           YearToDate,
	"lastyear":      LastYear,
	"customrange":   CustomRange,
	"custom":        CustomRange,
}

// Window is a closed date range [Start, End], both at midnight in the anchor's location.
type Window struct {
	Start time.Time
	End   time.Time
}

// StartDate formats the lower bound.
func (w Window) StartDate() string {
	return w.Start.Format(DateLayout)
}

// EndDate formats the upper bound.
func (w Window) EndDate() string {
	return w.End.Format(DateLayout)
}

// ParseKind matches a label case-insensitively, ignoring spaces, hyphens and underscores.
func ParseKind(label string) (Kind, error) {
	replacer := strings.NewReplacer(" ", "", "-", "", "_", "")

	kind, ok := aliases[replacer.Replace(strings.ToLower(strings.TrimSpace(label)))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownWindow, label)
	}

	return kind, nil
}

// Resolve computes the window of the given kind anchored at now. Custom ranges
// go through Custom instead.
func Resolve(kind Kind, now time.Time) (Window, error) {
	today := startOfDay(now)

	switch kind {
	case Today:
		return Window{Start: today, End: today}, nil
	case Yesterday:
		day := today.AddDate(0, 0, -1)

		return Window{Start: day, End: day}, nil
	case Last7Days:
		return trailingDays(today, 7), nil
	case Last30Days:
		return trailingDays(today, 30), nil
	case Last90Days:
		return trailingDays(today, 90), nil
	case MonthToDate:
		return Window{Start: startOfMonth(today), End: today}, nil
	case LastMonth:
		start := startOfMonth(today).AddDate(0, -1, 0)

		return Window{Start: start, End: startOfMonth(today).AddDate(0, 0, -1)}, nil
	case QuarterToDate:
		return Window{Start: startOfQuarter(today), End: today}, nil
	case LastQuarter:
		current := startOfQuarter(today)

		return Window{Start: current.AddDate(0, -3, 0), End: current.AddDate(0, 0, -1)}, nil
	case YearToDate:
		return Window{Start: startOfYear(today), End: today}, nil
	case LastYear:
		current := startOfYear(today)

		return Window{Start: current.AddDate(-1, 0, 0), End: current.AddDate(0, 0, -1)}, nil
	case CustomRange:
		return Window{}, fmt.Errorf("%w: custom range needs explicit dates", ErrInvalidCustomRange)
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrUnknownWindow, kind)
	}
}

// Custom builds a window from explicit YYYY-MM-DD bounds in loc.
func Custom(start, end string, loc *time.Location) (Window, error) {
	from, err := time.ParseInLocation(DateLayout, start, loc)
	if err != nil {
		return Window{}, fmt.Errorf("%w: start %q: %w", ErrInvalidCustomRange, start, err)
	}

	to, err := time.ParseInLocation(DateLayout, end, loc)
	if err != nil {
		return Window{}, fmt.Errorf("%w: end %q: %w", ErrInvalidCustomRange, end, err)
	}

	if to.Before(from) {
		return Window{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidCustomRange, end, start)
	}

	return Window{Start: from, End: to}, nil
}

// trailingDays covers n days ending today, inclusive.
func trailingDays(today time.Time, n int) Window {
	return Window{Start: today.AddDate(0, 0, -(n - 1)), End: today}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func startOfQuarter(t time.Time) time.Time {
	month := time.Month(((int(t.Month())-1)/3)*3 + 1)

	return time.Date(t.Year(), month, 1, 0, 0, 0, 0, t.Location())
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

// FromConfig resolves an authored window: either a label such as "Last 30 Days" or an
// object {"type": "Custom Range", "start": "2024-01-01", "end": "2024-01-31"}.
func FromConfig(raw any, now time.Time) (Window, error) {
	switch v := raw.(type) {
	case string:
		kind, err := ParseKind(v)
		if err != nil {
			return Window{}, err
		}

		return Resolve(kind, now)
	case map[string]any:
		label, _ := v["type"].(string)

		kind, err := ParseKind(label)
		if err != nil {
			return Window{}, err
		}

		if kind != CustomRange {
			return Resolve(kind, now)
		}

		start, _ := v["start"].(string)
		end, _ := v["end"].(string)

		return Custom(start, end, now.Location())
	default:
		return Window{}, fmt.Errorf("%w: unsupported value %v", ErrUnknownWindow, raw)
	}
}
