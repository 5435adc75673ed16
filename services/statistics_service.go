package services

import (
	"math"

	"kpitracker/models"

	"github.com/montanaflynn/stats"
)

const (
	defaultOutlierThreshold = 2.0
	defaultTrendWindow      = 3
	defaultForecastPeriods  = 3

	// minForecastConfidence is the sqrt(R²) floor below which no numeric
	// forecast is produced.
	minForecastConfidence = 0.5

	// volatileRelativeStdDev marks a windowed trend as volatile instead of
	// rising/falling/stable.
	volatileRelativeStdDev = 0.3
)

type StatisticsService interface {
	Snapshot(values []models.KPIValue) models.StatisticsSnapshot
	SimpleTrend(values []models.KPIValue) models.Trend
	DetailedTrend(values []models.KPIValue, window int) models.Trend
	DetectOutliers(values []models.KPIValue, threshold float64) []models.Outlier
	Correlate(a, b []models.KPIValue) models.CorrelationResult
	Forecast(values []models.KPIValue, periods int) models.ForecastResult
}

type statisticsService struct{}

func NewStatisticsService() StatisticsService {
	return &statisticsService{}
}

// Snapshot computes the descriptive aggregate over a history given newest
// first. An empty history yields the sentinel snapshot with all numeric
// fields absent.
func (s *statisticsService) Snapshot(values []models.KPIValue) models.StatisticsSnapshot {
	if len(values) == 0 {
		return models.StatisticsSnapshot{Trend: models.Trend{Direction: models.TrendNoData}}
	}

	data := numbers(values)
	snapshot := models.StatisticsSnapshot{
		Count:  len(values),
		Latest: &values[0],
		Oldest: &values[len(values)-1],
		Trend:  s.SimpleTrend(values),
	}

	if mean, err := stats.Mean(data); err == nil {
		snapshot.Average = floatPtr(round2(mean))
	}
	if min, err := stats.Min(data); err == nil {
		snapshot.Min = floatPtr(min)
	}
	if max, err := stats.Max(data); err == nil {
		snapshot.Max = floatPtr(max)
	}
	if median, err := stats.Median(data); err == nil {
		snapshot.Median = floatPtr(median)
	}

	// Variance and standard deviation are undefined below two points, not
	// zero.
	if len(values) >= 2 {
		if variance, err := stats.PopulationVariance(data); err == nil {
			snapshot.Variance = floatPtr(round2(variance))
		}
		if stdDev, err := stats.StandardDeviationPopulation(data); err == nil {
			snapshot.StdDev = floatPtr(round2(stdDev))
		}
	}

	return snapshot
}

// SimpleTrend classifies the percentage change across the last three values.
func (s *statisticsService) SimpleTrend(values []models.KPIValue) models.Trend {
	if len(values) < 2 {
		return models.Trend{Direction: models.TrendNoData, DataPoints: len(values)}
	}

	window := len(values)
	if window > defaultTrendWindow {
		window = defaultTrendWindow
	}

	newest := values[0].Value
	oldest := values[window-1].Value
	trend := models.Trend{DataPoints: window}

	if oldest == 0 {
		trend.Direction = models.TrendStable
		return trend
	}

	change := round2((newest - oldest) / oldest * 100)
	trend.ChangePercent = floatPtr(change)
	switch {
	case change > 5:
		trend.Direction = models.TrendRising
	case change < -5:
		trend.Direction = models.TrendFalling
	default:
		trend.Direction = models.TrendStable
	}
	return trend
}

// DetailedTrend extends SimpleTrend over a configurable window with a
// volatility measure and a confidence score. Confidence grows with the
// number of data points, shrinks with relative volatility, and is clamped
// to [0,1].
func (s *statisticsService) DetailedTrend(values []models.KPIValue, window int) models.Trend {
	if window < 2 {
		window = defaultTrendWindow
	}
	if len(values) < 2 {
		return models.Trend{Direction: models.TrendNoData, DataPoints: len(values)}
	}
	if window > len(values) {
		window = len(values)
	}

	data := numbers(values[:window])
	trend := models.Trend{DataPoints: window}

	volatility := 0.0
	if sd, err := stats.StandardDeviationPopulation(data); err == nil {
		volatility = sd
	}
	trend.Volatility = floatPtr(round2(volatility))

	mean, _ := stats.Mean(data)
	relative := 0.0
	if mean != 0 {
		relative = volatility / math.Abs(mean)
	}

	confidence := math.Min(1, float64(window)/6.0) / (1 + relative)
	confidence = math.Max(0, math.Min(1, confidence))
	trend.Confidence = floatPtr(round2(confidence))

	newest := data[0]
	oldest := data[len(data)-1]
	if oldest == 0 {
		trend.Direction = models.TrendStable
		return trend
	}

	change := round2((newest - oldest) / oldest * 100)
	trend.ChangePercent = floatPtr(change)
	switch {
	case relative > volatileRelativeStdDev:
		trend.Direction = models.TrendVolatile
	case change > 5:
		trend.Direction = models.TrendRising
	case change < -5:
		trend.Direction = models.TrendFalling
	default:
		trend.Direction = models.TrendStable
	}
	return trend
}

// DetectOutliers flags values whose z-score exceeds the threshold. Fewer
// than three points, or a history with no variance, reports no outliers.
func (s *statisticsService) DetectOutliers(values []models.KPIValue, threshold float64) []models.Outlier {
	if threshold <= 0 {
		threshold = defaultOutlierThreshold
	}
	if len(values) < 3 {
		return nil
	}

	data := numbers(values)
	mean, err := stats.Mean(data)
	if err != nil {
		return nil
	}
	stdDev, err := stats.StandardDeviationPopulation(data)
	if err != nil || stdDev == 0 {
		return nil
	}

	var outliers []models.Outlier
	for i := range values {
		z := math.Abs(values[i].Value-mean) / stdDev
		if z > threshold {
			outliers = append(outliers, models.Outlier{Value: values[i], ZScore: round2(z)})
		}
	}
	return outliers
}

// Correlate pairs two histories by period identifier (values without a
// counterpart are dropped) and computes the Pearson coefficient over the
// pairs. Fewer than three pairs is an insufficient_data result.
func (s *statisticsService) Correlate(a, b []models.KPIValue) models.CorrelationResult {
	byPeriod := make(map[string]float64, len(b))
	for i := range b {
		byPeriod[b[i].Period] = b[i].Value
	}

	var x, y []float64
	for i := range a {
		if v, ok := byPeriod[a[i].Period]; ok {
			x = append(x, a[i].Value)
			y = append(y, v)
		}
	}

	if len(x) < 3 {
		return models.CorrelationResult{Status: models.AnalysisInsufficientData, PairedPoints: len(x)}
	}

	r, err := stats.Pearson(x, y)
	if err != nil || math.IsNaN(r) {
		// A series without variance has no defined coefficient.
		return models.CorrelationResult{Status: models.AnalysisOK, Relationship: "none", PairedPoints: len(x)}
	}

	result := models.CorrelationResult{
		Status:       models.AnalysisOK,
		Coefficient:  floatPtr(round2(r)),
		Strength:     correlationStrength(r),
		PairedPoints: len(x),
	}
	switch {
	case r > 0:
		result.Relationship = "positive"
	case r < 0:
		result.Relationship = "negative"
	default:
		result.Relationship = "none"
	}
	return result
}

func correlationStrength(r float64) models.CorrelationStrength {
	abs := math.Abs(r)
	switch {
	case abs >= 0.9:
		return models.CorrelationVeryStrong
	case abs >= 0.7:
		return models.CorrelationStrong
	case abs >= 0.5:
		return models.CorrelationModerate
	case abs >= 0.3:
		return models.CorrelationWeak
	}
	return models.CorrelationVeryWeak
}

// Forecast fits an ordinary least-squares line and projects future periods.
// The history arrives newest first and is reversed once here, because the
// regression runs oldest first with x = 1..n. Confidence is sqrt(R²); below
// 0.5 no numeric forecast is produced. The ±20%-of-slope band is a crude
// heuristic, not a statistical interval.
func (s *statisticsService) Forecast(values []models.KPIValue, periods int) models.ForecastResult {
	if periods <= 0 {
		periods = defaultForecastPeriods
	}
	if len(values) == 0 {
		return models.ForecastResult{Status: models.AnalysisNoData}
	}
	if len(values) < 3 {
		return models.ForecastResult{Status: models.AnalysisInsufficientFcst}
	}

	n := len(values)
	series := make(stats.Series, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		// values[n-1-i] walks the history oldest first.
		v := values[n-1-i].Value
		series[i] = stats.Coordinate{X: float64(i + 1), Y: v}
		xs[i] = float64(i + 1)
		ys[i] = v
	}

	// A flat series predicts itself: slope 0 with full confidence.
	if allEqual(ys) {
		result := models.ForecastResult{Status: models.AnalysisOK, Confidence: 1, Intercept: ys[0]}
		for i := 1; i <= periods; i++ {
			result.Points = append(result.Points, models.ForecastPoint{
				PeriodsAhead: i, Value: ys[0], Lower: ys[0], Upper: ys[0],
			})
		}
		return result
	}

	fitted, err := stats.LinearRegression(series)
	if err != nil || len(fitted) < 2 {
		return models.ForecastResult{Status: models.AnalysisInsufficientFcst}
	}
	slope := (fitted[1].Y - fitted[0].Y) / (fitted[1].X - fitted[0].X)
	intercept := fitted[0].Y - slope*fitted[0].X

	confidence := 0.0
	if r, err := stats.Pearson(xs, ys); err == nil && !math.IsNaN(r) {
		confidence = math.Sqrt(r * r)
	}
	confidence = math.Max(0, math.Min(1, confidence))

	if confidence < minForecastConfidence {
		return models.ForecastResult{Status: models.AnalysisLowConfidenceFcst, Confidence: round2(confidence)}
	}

	result := models.ForecastResult{
		Status:     models.AnalysisOK,
		Confidence: round2(confidence),
		Slope:      round2(slope),
		Intercept:  round2(intercept),
	}
	band := 0.2 * math.Abs(slope)
	for i := 1; i <= periods; i++ {
		value := intercept + slope*float64(n+i)
		result.Points = append(result.Points, models.ForecastPoint{
			PeriodsAhead: i,
			Value:        round2(value),
			Lower:        round2(value - band),
			Upper:        round2(value + band),
		})
	}
	return result
}

// TargetDelta is the percentage deviation of a value from its target. A
// missing or zero target yields a zero delta rather than dividing.
func TargetDelta(value float64, target *float64) float64 {
	if target == nil || *target == 0 {
		return 0
	}
	return round2((value - *target) / *target * 100)
}

func numbers(values []models.KPIValue) []float64 {
	data := make([]float64, len(values))
	for i := range values {
		data[i] = values[i].Value
	}
	return data
}

func allEqual(data []float64) bool {
	for _, v := range data[1:] {
		if v != data[0] {
			return false
		}
	}
	return true
}

func round2(v float64) float64 {
	rounded, err := stats.Round(v, 2)
	if err != nil {
		return v
	}
	return rounded
}

func floatPtr(v float64) *float64 {
	return &v
}
