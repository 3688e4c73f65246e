package services

import (
	"context"

	"github.com/vedanthundare/gurukul-forecast/internal/models"
)

// CandidateModelAdapter is the uniform fit contract every forecasting
// strategy implements. Each adapter hides its own hyperparameter search and
// declares its availability up front, so the selector never branches on
// implementation details.
type CandidateModelAdapter interface {
	// Kind identifies the strategy.
	Kind() models.ModelKind
	// Available reports whether the strategy can fit at all in this build
	// and configuration. Unavailable adapters are treated exactly like a
	// fit failure: excluded, never fatal.
	Available() bool
	// Fit trains the strategy on the given series and returns the fitted
	// model. Fails with a ModelFitError when the series is unusable for
	// this strategy or estimation does not converge.
	Fit(ctx context.Context, train *models.TimeSeries) (models.FittedModel, error)
}

// clipForecastPoint applies the numeric bounds of the metric type to one
// forecast step: load metrics are non-negative, probability metrics live in
// [0,1]. The lower <= predicted <= upper invariant is restored after
// clipping.
func clipForecastPoint(p models.ForecastPoint, metricType models.MetricType) models.ForecastPoint {
	switch metricType {
	case models.MetricTypeLoad:
		if p.Lower < 0 {
			p.Lower = 0
		}
		if p.Predicted < 0 {
			p.Predicted = 0
		}
		if p.Upper < 0 {
			p.Upper = 0
		}
	case models.MetricTypeProbability:
		p.Lower = clamp01(p.Lower)
		p.Predicted = clamp01(p.Predicted)
		p.Upper = clamp01(p.Upper)
	}
	if p.Lower > p.Predicted {
		p.Lower = p.Predicted
	}
	if p.Upper < p.Predicted {
		p.Upper = p.Predicted
	}
	return p
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
