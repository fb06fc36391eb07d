package timesheet

import "math"

// hours treats anything that is not a usable non-negative number as zero.
func hours(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// CalculateDailyTotals sums every entry per weekday. An empty list yields zeros.
func CalculateDailyTotals(entries []TimeEntry) DailyTotal {
	var total DailyTotal
	for _, e := range entries {
		for _, d := range Days {
			total.Set(d, total.Get(d)+hours(e.Hours.Get(d)))
		}
	}
	return total
}

// CalculateWeeklyTotal sums the seven daily totals.
func CalculateWeeklyTotal(daily DailyTotal) float64 {
	var sum float64
	for _, d := range Days {
		sum += hours(daily.Get(d))
	}
	return sum
}

// RowTotal is the weekly sum of a single entry.
func RowTotal(e TimeEntry) float64 {
	return CalculateWeeklyTotal(e.Hours)
}

// Recalculate refreshes the derived total.
func (t *Timesheet) Recalculate() {
	t.TotalHours = CalculateWeeklyTotal(CalculateDailyTotals(t.Entries))
}

// DailyTotals is a convenience for CalculateDailyTotals(t.Entries).
func (t Timesheet) DailyTotals() DailyTotal {
	return CalculateDailyTotals(t.Entries)
}
