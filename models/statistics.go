package models

// AnalysisStatus signals "not enough data" conditions as values instead of
// errors. Every statistical operation returns one.
type AnalysisStatus string

const (
	AnalysisOK                AnalysisStatus = "ok"
	AnalysisNoData            AnalysisStatus = "no_historical_data"
	AnalysisInsufficientData  AnalysisStatus = "insufficient_data"
	AnalysisInsufficientFcst  AnalysisStatus = "insufficient_data_for_forecast"
	AnalysisLowConfidenceFcst AnalysisStatus = "low_confidence_forecast"
)

type TrendDirection string

const (
	TrendRising   TrendDirection = "rising"
	TrendFalling  TrendDirection = "falling"
	TrendStable   TrendDirection = "stable"
	TrendVolatile TrendDirection = "volatile"
	TrendNoData   TrendDirection = "no_data"
)

type Trend struct {
	Direction     TrendDirection `json:"direction"`
	ChangePercent *float64       `json:"change_percent,omitempty"`
	Volatility    *float64       `json:"volatility,omitempty"`
	Confidence    *float64       `json:"confidence,omitempty"`
	DataPoints    int            `json:"data_points"`
}

// StatisticsSnapshot is an immutable aggregate over a KPI's value history.
// All numeric fields are nil when they are undefined for the input size,
// never a computed zero.
type StatisticsSnapshot struct {
	Count    int       `json:"count"`
	Average  *float64  `json:"average,omitempty"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
	Median   *float64  `json:"median,omitempty"`
	Variance *float64  `json:"variance,omitempty"`
	StdDev   *float64  `json:"std_dev,omitempty"`
	Latest   *KPIValue `json:"latest,omitempty"`
	Oldest   *KPIValue `json:"oldest,omitempty"`
	Trend    Trend     `json:"trend"`
}

type Outlier struct {
	Value  KPIValue `json:"value"`
	ZScore float64  `json:"z_score"`
}

type CorrelationStrength string

const (
	CorrelationVeryStrong CorrelationStrength = "very_strong"
	CorrelationStrong     CorrelationStrength = "strong"
	CorrelationModerate   CorrelationStrength = "moderate"
	CorrelationWeak       CorrelationStrength = "weak"
	CorrelationVeryWeak   CorrelationStrength = "very_weak"
)

type CorrelationResult struct {
	Status       AnalysisStatus      `json:"status"`
	Coefficient  *float64            `json:"coefficient,omitempty"`
	Strength     CorrelationStrength `json:"strength,omitempty"`
	Relationship string              `json:"relationship,omitempty"` // positive, negative, none
	PairedPoints int                 `json:"paired_points"`
}

type ForecastPoint struct {
	PeriodsAhead int     `json:"periods_ahead"`
	Value        float64 `json:"value"`
	Lower        float64 `json:"lower"`
	Upper        float64 `json:"upper"`
}

type ForecastResult struct {
	Status     AnalysisStatus  `json:"status"`
	Confidence float64         `json:"confidence"`
	Slope      float64         `json:"slope"`
	Intercept  float64         `json:"intercept"`
	Points     []ForecastPoint `json:"points,omitempty"`
}
