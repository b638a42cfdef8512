package timewindow_test

import (
	"testing"
	"time"

	"github.com/dukex/flowforge/pkg/timewindow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	anchor := time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)

	testCases := []struct {
		label string
		start string
		end   string
	}{
		{"Today", "2024-03-15", "2024-03-15"},
		{"Yesterday", "2024-03-14", "2024-03-14"},
		{"Last 7 Days", "2024-03-09", "2024-03-15"},
		{"Last 30 Days", "2024-02-15", "2024-03-15"},
		{"This Month", "2024-03-01", "2024-03-15"},
		{"Last Month", "2024-02-01", "2024-02-29"},
		{"Quarter-to-Date", "2024-01-01", "2024-03-15"},
		{"Last Quarter", "2023-10-01", "2023-12-31"},
		{"Year-to-Date", "2024-01-01", "2024-03-15"},
		{"last_year", "2023-01-01", "2023-12-31"},
	}

	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			kind, err := timewindow.ParseKind(tc.label)
			require.NoError(t, err)

			window, err := timewindow.Resolve(kind, anchor)
			require.NoError(t, err)
			assert.Equal(t, tc.start, window.StartDate())
			assert.Equal(t, tc.end, window.EndDate())
		})
	}
}

func TestResolve_QuarterBoundaries(t *testing.T) {
	testCases := []struct {
		name   string
		anchor time.Time
		start  string
		end    string
	}{
		{"first day of quarter", time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), "2024-04-01", "2024-06-30"},
		{"last day of quarter", time.Date(2024, time.September, 30, 23, 59, 0, 0, time.UTC), "2024-04-01", "2024-06-30"},
		{"fourth quarter", time.Date(2024, time.November, 2, 0, 0, 0, 0, time.UTC), "2024-07-01", "2024-09-30"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			window, err := timewindow.Resolve(timewindow.LastQuarter, tc.anchor)
			require.NoError(t, err)
			assert.Equal(t, tc.start, window.StartDate())
			assert.Equal(t, tc.end, window.EndDate())
		})
	}
}

func TestResolve_LastMonthAcrossYear(t *testing.T) {
	anchor := time.Date(2024, time.January, 31, 8, 0, 0, 0, time.UTC)

	window, err := timewindow.Resolve(timewindow.LastMonth, anchor)
	require.NoError(t, err)
	assert.Equal(t, "2023-12-01", window.StartDate())
	assert.Equal(t, "2023-12-31", window.EndDate())
}

func TestResolve_UsesAnchorLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	// 2024-04-01 02:00 UTC is still March 31st at UTC-5.
	anchor := time.Date(2024, time.April, 1, 2, 0, 0, 0, time.UTC).In(loc)

	window, err := timewindow.Resolve(timewindow.YearToDate, anchor)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-31", window.EndDate())
}

func TestResolve_CustomRangeNeedsDates(t *testing.T) {
	_, err := timewindow.Resolve(timewindow.CustomRange, time.Now())
	assert.ErrorIs(t, err, timewindow.ErrInvalidCustomRange)
}

func TestParseKind_Unknown(t *testing.T) {
	_, err := timewindow.ParseKind("fortnight")
	assert.ErrorIs(t, err, timewindow.ErrUnknownWindow)
}

func TestCustom(t *testing.T) {
	window, err := timewindow.Custom("2024-01-10", "2024-02-20", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", window.StartDate())
	assert.Equal(t, "2024-02-20", window.EndDate())

	_, err = timewindow.Custom("2024-02-20", "2024-01-10", time.UTC)
	require.ErrorIs(t, err, timewindow.ErrInvalidCustomRange)

	_, err = timewindow.Custom("20/01/2024", "2024-01-10", time.UTC)
	assert.ErrorIs(t, err, timewindow.ErrInvalidCustomRange)
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

	window, err := timewindow.FromConfig("Last Quarter", anchor)
	require.NoError(t, err)
	assert.Equal(t, "2023-10-01", window.StartDate())

	window, err = timewindow.FromConfig(map[string]any{
		"type":  "Custom Range",
		"start": "2024-01-01",
		"end":   "2024-01-31",
	}, anchor)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", window.EndDate())

	window, err = timewindow.FromConfig(map[string]any{"type": "ytd"}, anchor)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", window.StartDate())

	_, err = timewindow.FromConfig(42, anchor)
	assert.ErrorIs(t, err, timewindow.ErrUnknownWindow)
}
