package services

import (
	"fmt"
	"time"

	"kpitracker/models"
)

// CurrentPeriod returns the period identifier containing now for the given
// interval: "2025-W07" (ISO week), "2025-02" or "2025-Q1".
func CurrentPeriod(interval models.Interval, now time.Time) string {
	switch interval {
	case models.IntervalWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case models.IntervalMonthly:
		return fmt.Sprintf("%d-%02d", now.Year(), int(now.Month()))
	case models.IntervalQuarterly:
		quarter := (int(now.Month())-1)/3 + 1
		return fmt.Sprintf("%d-Q%d", now.Year(), quarter)
	}
	return now.Format("2006-01-02")
}

// NextDueDate returns the deadline for the current period. A weekly KPI run
// on a Monday is due next Monday, not today.
func NextDueDate(interval models.Interval, now time.Time) time.Time {
	switch interval {
	case models.IntervalWeekly:
		daysAhead := (int(time.Monday) - int(now.Weekday()) + 7) % 7
		if daysAhead == 0 {
			daysAhead = 7
		}
		return midnight(now).AddDate(0, 0, daysAhead)
	case models.IntervalMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	case models.IntervalQuarterly:
		quarter := (int(now.Month()) - 1) / 3
		startMonth := time.Month(quarter*3 + 1)
		next := time.Date(now.Year(), startMonth, 1, 0, 0, 0, 0, now.Location()).AddDate(0, 3, 0)
		return next
	}
	return now.AddDate(0, 0, 7)
}

// AdjustToBusinessDay moves weekend due dates to the following Monday.
func AdjustToBusinessDay(date time.Time) time.Time {
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, 2)
	case time.Sunday:
		return date.AddDate(0, 0, 1)
	}
	return date
}

// DaysUntil is the whole-day difference from `from` to `to`, both normalized
// to midnight first. Positive means `to` lies in the future of `from` ("days
// remaining"), negative means it has passed ("days overdue"). This is the one
// sign convention used across all engines.
func DaysUntil(from, to time.Time) int {
	f := midnight(from)
	t := midnight(to)
	return int(t.Sub(f).Hours() / 24)
}

// DueDateFor prefers the KPI's stored deadline, which submission rolls
// forward and which may therefore lie in the past when a period was missed.
// A KPI without one falls back to the computed next due date.
func DueDateFor(kpi *models.KPI, now time.Time) time.Time {
	if !kpi.DueDate.IsZero() {
		return kpi.DueDate
	}
	return NextDueDate(kpi.Interval, now)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
