package services

import (
	"context"
	"time"

	"kpitracker/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValueLookup is the narrow read contract the engines consume. FindValue
// returns (nil, nil) when no value exists for the period. FindAllValues
// returns the history newest first.
type ValueLookup interface {
	FindValue(ctx context.Context, kpiID primitive.ObjectID, period string) (*models.KPIValue, error)
	FindAllValues(ctx context.Context, kpiID primitive.ObjectID) ([]models.KPIValue, error)
}

// StatusThresholds configure the traffic-light boundaries per call.
type StatusThresholds struct {
	WarningDays  int // yellow when due within this many days
	CriticalDays int // red when days remaining drop below this
}

func DefaultStatusThresholds() StatusThresholds {
	return StatusThresholds{WarningDays: 3, CriticalDays: 0}
}

// SeverityStep maps a days-overdue ceiling to an operational severity tier.
type SeverityStep struct {
	MaxDays  int
	Severity models.OverdueSeverity
}

// DefaultSeverityLadder is monotonically non-decreasing in days overdue.
var DefaultSeverityLadder = []SeverityStep{
	{MaxDays: 3, Severity: 2},
	{MaxDays: 7, Severity: 3},
	{MaxDays: 14, Severity: 4},
}

// DefaultSeverityTop applies beyond the last ladder step.
const DefaultSeverityTop models.OverdueSeverity = 5

type StatusService interface {
	EvaluateKPI(ctx context.Context, kpi *models.KPI, now time.Time, thresholds StatusThresholds) (models.Status, error)
	EvaluateKPIStrict(ctx context.Context, kpi *models.KPI, now time.Time, thresholds StatusThresholds) (models.Status, error)
	EvaluateAll(ctx context.Context, kpis []models.KPI, now time.Time, thresholds StatusThresholds) (map[primitive.ObjectID]models.Status, error)
}

type statusService struct {
	values ValueLookup
}

func NewStatusService(values ValueLookup) StatusService {
	return &statusService{values: values}
}

func (s *statusService) EvaluateKPI(ctx context.Context, kpi *models.KPI, now time.Time, thresholds StatusThresholds) (models.Status, error) {
	return s.evaluate(ctx, kpi, now, thresholds, false, nil)
}

// EvaluateKPIStrict additionally rolls weekend due dates forward to the next
// business day before measuring proximity.
func (s *statusService) EvaluateKPIStrict(ctx context.Context, kpi *models.KPI, now time.Time, thresholds StatusThresholds) (models.Status, error) {
	return s.evaluate(ctx, kpi, now, thresholds, true, nil)
}

// EvaluateAll walks a batch of KPIs. The lookup cache lives for exactly this
// call so concurrent passes never observe each other's results.
func (s *statusService) EvaluateAll(ctx context.Context, kpis []models.KPI, now time.Time, thresholds StatusThresholds) (map[primitive.ObjectID]models.Status, error) {
	cache := make(map[string]*models.KPIValue, len(kpis))
	result := make(map[primitive.ObjectID]models.Status, len(kpis))
	for i := range kpis {
		status, err := s.evaluate(ctx, &kpis[i], now, thresholds, false, cache)
		if err != nil {
			return nil, err
		}
		result[kpis[i].ID] = status
	}
	return result, nil
}

func (s *statusService) evaluate(ctx context.Context, kpi *models.KPI, now time.Time, thresholds StatusThresholds, strict bool, cache map[string]*models.KPIValue) (models.Status, error) {
	period := CurrentPeriod(kpi.Interval, now)

	value, err := s.lookup(ctx, kpi.ID, period, cache)
	if err != nil {
		return "", err
	}
	// A recorded value for the current period is always green, no matter
	// how close the due date is.
	if value != nil {
		return models.StatusGreen, nil
	}

	dueDate := DueDateFor(kpi, now)
	if strict {
		dueDate = AdjustToBusinessDay(dueDate)
	}

	daysDiff := DaysUntil(now, dueDate)
	switch {
	case daysDiff < thresholds.CriticalDays:
		return models.StatusRed, nil
	case daysDiff <= thresholds.WarningDays:
		return models.StatusYellow, nil
	}
	return models.StatusGreen, nil
}

func (s *statusService) lookup(ctx context.Context, kpiID primitive.ObjectID, period string, cache map[string]*models.KPIValue) (*models.KPIValue, error) {
	key := kpiID.Hex() + "/" + period
	if cache != nil {
		if v, ok := cache[key]; ok {
			return v, nil
		}
	}
	value, err := s.values.FindValue(ctx, kpiID, period)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache[key] = value
	}
	return value, nil
}

// AggregateStatus collapses many statuses into one overall status.
// AggregateSeverityMax is the documented default.
func AggregateStatus(statuses []models.Status, strategy models.AggregationStrategy) models.Status {
	if len(statuses) == 0 {
		return models.StatusGreen
	}

	if strategy == models.AggregatePercentage {
		var red, yellow int
		for _, st := range statuses {
			switch st {
			case models.StatusRed:
				red++
			case models.StatusYellow:
				yellow++
			}
		}
		total := float64(len(statuses))
		switch {
		case float64(red)/total > 0.20:
			return models.StatusRed
		case red > 0 || float64(yellow)/total > 0.30:
			return models.StatusYellow
		}
		return models.StatusGreen
	}

	overall := models.StatusGreen
	for _, st := range statuses {
		overall = models.MaxStatus(overall, st)
	}
	return overall
}

// OverdueSeverityFor walks the ladder and returns the first matching tier.
// Severity never decreases as days overdue grow.
func OverdueSeverityFor(daysOverdue int, ladder []SeverityStep, top models.OverdueSeverity) models.OverdueSeverity {
	for _, step := range ladder {
		if daysOverdue <= step.MaxDays {
			return step.Severity
		}
	}
	return top
}
