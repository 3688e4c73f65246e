package models

import "time"

// ModelKind identifies a forecasting strategy.
type ModelKind string

const (
	ModelKindProphet               ModelKind = "prophet"
	ModelKindARIMA                 ModelKind = "arima"
	ModelKindFallbackMovingAverage ModelKind = "fallback_moving_average"
)

// MetricType selects the numeric bounds and priors a model applies to its
// forecasts. Probability metrics are capped to [0,1], load metrics are
// non-negative, general metrics are unconstrained.
type MetricType string

const (
	MetricTypeProbability MetricType = "probability"
	MetricTypeLoad        MetricType = "load"
	MetricTypeGeneral     MetricType = "general"
)

// VolatilityClass is a coarse classification of a series' coefficient of
// variation.
type VolatilityClass string

const (
	VolatilityLow    VolatilityClass = "low"
	VolatilityMedium VolatilityClass = "medium"
	VolatilityHigh   VolatilityClass = "high"
)

// Confidence labels how decisively the winning model outperformed its
// closest competitor.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Downgrade returns the confidence one step lower. Low stays low.
func (c Confidence) Downgrade() Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	case ConfidenceMedium:
		return ConfidenceLow
	default:
		return ConfidenceLow
	}
}

// DataQualityReport describes the statistical properties of a series that
// drive candidate eligibility. Produced fresh per assessment and never
// mutated afterwards.
type DataQualityReport struct {
	Length            int             `json:"length"`
	MissingRatio      float64         `json:"missing_ratio"`
	Variance          float64         `json:"variance"`
	HasSeasonality    bool            `json:"has_seasonality"`
	SeasonalityPeriod *int            `json:"seasonality_period,omitempty"`
	VolatilityClass   VolatilityClass `json:"volatility_class"`
	TrendDirection    int             `json:"trend_direction"`
	TrendStrength     float64         `json:"trend_strength"`
	RecommendedModels []ModelKind     `json:"recommended_models"`
}

// ForecastPoint is one step of a forecast with its uncertainty interval.
// Invariant: Lower <= Predicted <= Upper.
type ForecastPoint struct {
	Timestamp time.Time `json:"date"`
	Predicted float64   `json:"predicted_value"`
	Lower     float64   `json:"lower_bound"`
	Upper     float64   `json:"upper_bound"`
}

// ForecastResult is an ordered forecast of exactly the requested number of
// periods.
type ForecastResult struct {
	Points    []ForecastPoint `json:"points"`
	ModelUsed ModelKind       `json:"model_used"`
}

// AccuracyMetrics are the standard forecast accuracy measures computed on a
// held-out window. MAPE is nil when it is undefined: a zero true value would
// divide by zero, and a constant window makes percentage errors meaningless.
type AccuracyMetrics struct {
	MAE        float64  `json:"mae"`
	RMSE       float64  `json:"rmse"`
	MAPE       *float64 `json:"mape"`
	SampleSize int      `json:"sample_size"`
}

// FittedModel is an opaque trained model owned by the adapter that produced
// it. It lives for the duration of one selection request; ownership transfers
// to the caller only when the model is selected.
type FittedModel interface {
	// Kind identifies the strategy that produced the model.
	Kind() ModelKind
	// Predict generates a forecast for the given number of future periods.
	// Fails with a ForecastHorizonError when periods < 1.
	Predict(periods int) (*ForecastResult, error)
	// Diagnostics exposes residual statistics of the fit: residual_mean,
	// residual_std, residual_acf1 and sample_size.
	Diagnostics() map[string]float64
}

// SelectionState is the terminal state of one selection request.
type SelectionState string

const (
	StateSelected         SelectionState = "SELECTED"
	StateFallbackSelected SelectionState = "FALLBACK_SELECTED"
	StateFailed           SelectionState = "FAILED"
)

// SelectionResult is the outcome of one model selection call. The core does
// not persist it; callers own the record and any history they keep.
type SelectionResult struct {
	SelectionID     string                        `json:"selection_id"`
	SelectedModel   ModelKind                     `json:"selected_model"`
	Model           FittedModel                   `json:"-"`
	SelectionReason string                        `json:"selection_reason"`
	Confidence      Confidence                    `json:"confidence"`
	State           SelectionState                `json:"state"`
	ForecastData    []ForecastPoint               `json:"forecast_data"`
	CandidateScores map[ModelKind]AccuracyMetrics `json:"all_candidate_scores"`
	DataAssessment  *DataQualityReport            `json:"data_assessment"`
}
