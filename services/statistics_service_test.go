package services

import (
	"testing"

	"kpitracker/models"
)

// history builds a newest-first value list from newest-first numbers.
func history(values ...float64) []models.KPIValue {
	list := make([]models.KPIValue, len(values))
	for i, v := range values {
		list[i] = models.KPIValue{Value: v}
	}
	return list
}

func withPeriods(periods []string, values []float64) []models.KPIValue {
	list := make([]models.KPIValue, len(values))
	for i := range values {
		list[i] = models.KPIValue{Period: periods[i], Value: values[i]}
	}
	return list
}

func TestSnapshotDescriptives(t *testing.T) {
	snapshot := NewStatisticsService().Snapshot(history(30, 20, 10))

	if snapshot.Count != 3 {
		t.Fatalf("expected count 3, got %d", snapshot.Count)
	}
	if snapshot.Average == nil || *snapshot.Average != 20 {
		t.Fatalf("expected mean 20, got %v", snapshot.Average)
	}
	if snapshot.Min == nil || *snapshot.Min != 10 || snapshot.Max == nil || *snapshot.Max != 30 {
		t.Fatalf("expected min 10 max 30, got %v %v", snapshot.Min, snapshot.Max)
	}
	if snapshot.Variance == nil || *snapshot.Variance < 66.66 || *snapshot.Variance > 66.68 {
		t.Fatalf("expected population variance near 66.67, got %v", snapshot.Variance)
	}
	if snapshot.StdDev == nil || *snapshot.StdDev < 8.15 || *snapshot.StdDev > 8.17 {
		t.Fatalf("expected stddev near 8.165, got %v", snapshot.StdDev)
	}
	if snapshot.Latest.Value != 30 || snapshot.Oldest.Value != 10 {
		t.Fatalf("expected latest 30 oldest 10, got %v %v", snapshot.Latest.Value, snapshot.Oldest.Value)
	}
}

func TestSnapshotMedian(t *testing.T) {
	snapshot := NewStatisticsService().Snapshot(history(300, 250, 200, 150, 100))
	if snapshot.Median == nil || *snapshot.Median != 200 {
		t.Fatalf("expected median 200, got %v", snapshot.Median)
	}

	// Even count averages the middle pair.
	snapshot = NewStatisticsService().Snapshot(history(40, 30, 20, 10))
	if snapshot.Median == nil || *snapshot.Median != 25 {
		t.Fatalf("expected median 25, got %v", snapshot.Median)
	}
}

func TestSnapshotEmpty(t *testing.T) {
	snapshot := NewStatisticsService().Snapshot(nil)
	if snapshot.Count != 0 {
		t.Fatalf("expected count 0, got %d", snapshot.Count)
	}
	if snapshot.Average != nil || snapshot.Min != nil || snapshot.Max != nil || snapshot.Median != nil {
		t.Fatalf("expected all numeric fields absent, got %+v", snapshot)
	}
	if snapshot.Trend.Direction != models.TrendNoData {
		t.Fatalf("expected no_data trend, got %s", snapshot.Trend.Direction)
	}
}

func TestSnapshotSinglePointHasNoVariance(t *testing.T) {
	snapshot := NewStatisticsService().Snapshot(history(42))
	if snapshot.Variance != nil || snapshot.StdDev != nil {
		t.Fatalf("expected variance and stddev absent below two points, got %+v", snapshot)
	}
}

func TestVarianceZeroForIdenticalValues(t *testing.T) {
	service := NewStatisticsService()
	snapshot := service.Snapshot(history(7, 7, 7, 7))
	if snapshot.Variance == nil || *snapshot.Variance != 0 {
		t.Fatalf("expected variance exactly 0, got %v", snapshot.Variance)
	}
	if snapshot.StdDev == nil || *snapshot.StdDev != 0 {
		t.Fatalf("expected stddev exactly 0, got %v", snapshot.StdDev)
	}

	// Zero spread must short-circuit the outlier check, never divide.
	for _, threshold := range []float64{0.5, 2, 10} {
		if outliers := service.DetectOutliers(history(7, 7, 7, 7), threshold); len(outliers) != 0 {
			t.Fatalf("expected no outliers at threshold %.1f, got %d", threshold, len(outliers))
		}
	}
}

func TestSimpleTrendClassification(t *testing.T) {
	service := NewStatisticsService()

	trend := service.SimpleTrend(history(120, 110, 100))
	if trend.Direction != models.TrendRising {
		t.Fatalf("expected rising, got %s", trend.Direction)
	}
	if trend.ChangePercent == nil || *trend.ChangePercent != 20 {
		t.Fatalf("expected +20%%, got %v", trend.ChangePercent)
	}

	trend = service.SimpleTrend(history(80, 90, 100))
	if trend.Direction != models.TrendFalling {
		t.Fatalf("expected falling, got %s", trend.Direction)
	}

	trend = service.SimpleTrend(history(102, 101, 100))
	if trend.Direction != models.TrendStable {
		t.Fatalf("expected stable within ±5%%, got %s", trend.Direction)
	}

	trend = service.SimpleTrend(history(100))
	if trend.Direction != models.TrendNoData {
		t.Fatalf("expected no_data below two points, got %s", trend.Direction)
	}
}

func TestSimpleTrendUsesLastThreeValues(t *testing.T) {
	// Older values beyond the window must not influence the change.
	trend := NewStatisticsService().SimpleTrend(history(120, 110, 100, 5, 5))
	if trend.Direction != models.TrendRising {
		t.Fatalf("expected rising over the three-value window, got %s", trend.Direction)
	}
	if trend.ChangePercent == nil || *trend.ChangePercent != 20 {
		t.Fatalf("expected +20%%, got %v", trend.ChangePercent)
	}
}

func TestDetailedTrendConfidenceBounds(t *testing.T) {
	service := NewStatisticsService()

	inputs := [][]float64{
		{100, 100, 100, 100, 100, 100},
		{120, 80, 140, 60, 150, 50},
		{10, 20, 30},
		{1, 1000},
	}
	for _, values := range inputs {
		trend := service.DetailedTrend(history(values...), 6)
		if trend.Confidence == nil {
			t.Fatalf("expected confidence for %v", values)
		}
		if *trend.Confidence < 0 || *trend.Confidence > 1 {
			t.Fatalf("confidence %.2f out of [0,1] for %v", *trend.Confidence, values)
		}
	}
}

func TestDetailedTrendVolatile(t *testing.T) {
	trend := NewStatisticsService().DetailedTrend(history(120, 40, 160, 30, 150, 20), 6)
	if trend.Direction != models.TrendVolatile {
		t.Fatalf("expected volatile, got %s", trend.Direction)
	}
	if trend.Volatility == nil || *trend.Volatility <= 0 {
		t.Fatalf("expected positive volatility, got %v", trend.Volatility)
	}
}

func TestDetectOutliers(t *testing.T) {
	values := history(200, 10, 10, 10, 10)
	outliers := NewStatisticsService().DetectOutliers(values, 2)
	if len(outliers) != 1 {
		t.Fatalf("expected one outlier, got %d", len(outliers))
	}
	if outliers[0].Value.Value != 200 {
		t.Fatalf("expected the 200 spike, got %v", outliers[0].Value.Value)
	}
	if outliers[0].ZScore <= 2 {
		t.Fatalf("expected z-score above threshold, got %.2f", outliers[0].ZScore)
	}
}

func TestDetectOutliersRequiresThreePoints(t *testing.T) {
	if outliers := NewStatisticsService().DetectOutliers(history(1, 1000), 0.1); outliers != nil {
		t.Fatalf("expected no outliers below three points, got %d", len(outliers))
	}
}

func TestCorrelatePerfectLinear(t *testing.T) {
	periods := []string{"2025-01", "2025-02", "2025-03", "2025-04", "2025-05"}
	a := withPeriods(periods, []float64{2, 4, 6, 8, 10})
	b := withPeriods(periods, []float64{1, 2, 3, 4, 5})

	result := NewStatisticsService().Correlate(a, b)
	if result.Status != models.AnalysisOK {
		t.Fatalf("expected ok, got %s", result.Status)
	}
	if result.Coefficient == nil || *result.Coefficient < 0.99 {
		t.Fatalf("expected r near 1.0, got %v", result.Coefficient)
	}
	if result.Strength != models.CorrelationVeryStrong {
		t.Fatalf("expected very_strong, got %s", result.Strength)
	}
	if result.Relationship != "positive" {
		t.Fatalf("expected positive, got %s", result.Relationship)
	}
}

func TestCorrelatePairsByPeriod(t *testing.T) {
	a := withPeriods([]string{"2025-01", "2025-02", "2025-03", "2025-04"}, []float64{1, 2, 3, 4})
	b := withPeriods([]string{"2025-02", "2025-03", "2025-04", "2025-09"}, []float64{4, 6, 8, 100})

	result := NewStatisticsService().Correlate(a, b)
	if result.PairedPoints != 3 {
		t.Fatalf("expected 3 paired points after the inner join, got %d", result.PairedPoints)
	}
	if result.Coefficient == nil || *result.Coefficient < 0.99 {
		t.Fatalf("expected r near 1.0 over matched periods, got %v", result.Coefficient)
	}
}

func TestCorrelateInsufficientData(t *testing.T) {
	a := withPeriods([]string{"2025-01", "2025-02"}, []float64{1, 2})
	b := withPeriods([]string{"2025-01", "2025-02"}, []float64{2, 4})

	result := NewStatisticsService().Correlate(a, b)
	if result.Status != models.AnalysisInsufficientData {
		t.Fatalf("expected insufficient_data, got %s", result.Status)
	}
	if result.Coefficient != nil {
		t.Fatalf("expected null coefficient, got %v", *result.Coefficient)
	}
}

func TestForecastIncreasingSeries(t *testing.T) {
	// Newest first: the underlying series is 10,20,30,40,50.
	result := NewStatisticsService().Forecast(history(50, 40, 30, 20, 10), 3)
	if result.Status != models.AnalysisOK {
		t.Fatalf("expected ok, got %s", result.Status)
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		t.Fatalf("confidence %.2f out of [0,1]", result.Confidence)
	}
	if result.Confidence < 0.99 {
		t.Fatalf("expected near-perfect fit, got %.2f", result.Confidence)
	}
	if len(result.Points) != 3 {
		t.Fatalf("expected 3 forecast points, got %d", len(result.Points))
	}
	previous := 50.0
	for _, point := range result.Points {
		if point.Value <= previous {
			t.Fatalf("expected increasing forecasts, got %.2f after %.2f", point.Value, previous)
		}
		if point.Lower > point.Value || point.Upper < point.Value {
			t.Fatalf("expected value inside band, got %+v", point)
		}
		previous = point.Value
	}
}

func TestForecastFlatSeries(t *testing.T) {
	result := NewStatisticsService().Forecast(history(5, 5, 5, 5), 2)
	if result.Status != models.AnalysisOK {
		t.Fatalf("expected ok for a flat series, got %s", result.Status)
	}
	if result.Confidence != 1 {
		t.Fatalf("expected full confidence for a flat series, got %.2f", result.Confidence)
	}
	for _, point := range result.Points {
		if point.Value != 5 {
			t.Fatalf("expected flat forecast 5, got %.2f", point.Value)
		}
	}
}

func TestForecastLowConfidence(t *testing.T) {
	result := NewStatisticsService().Forecast(history(10, 50, 10, 50, 10), 3)
	if result.Status != models.AnalysisLowConfidenceFcst {
		t.Fatalf("expected low_confidence_forecast, got %s", result.Status)
	}
	if len(result.Points) != 0 {
		t.Fatalf("expected no numeric forecasts at low confidence, got %d", len(result.Points))
	}
}

func TestTargetDelta(t *testing.T) {
	target := 200.0
	if got := TargetDelta(150, &target); got != -25 {
		t.Fatalf("expected -25%%, got %.2f", got)
	}
	zero := 0.0
	if got := TargetDelta(150, &zero); got != 0 {
		t.Fatalf("expected zero delta for a zero target, got %.2f", got)
	}
	if got := TargetDelta(150, nil); got != 0 {
		t.Fatalf("expected zero delta without a target, got %.2f", got)
	}
}

func TestForecastDataSentinels(t *testing.T) {
	service := NewStatisticsService()

	if result := service.Forecast(nil, 3); result.Status != models.AnalysisNoData {
		t.Fatalf("expected no_historical_data, got %s", result.Status)
	}
	if result := service.Forecast(history(1, 2), 3); result.Status != models.AnalysisInsufficientFcst {
		t.Fatalf("expected insufficient_data_for_forecast, got %s", result.Status)
	}
}
