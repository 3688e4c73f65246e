package services

import (
	"context"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/sirupsen/logrus"

	"github.com/vedanthundare/gurukul-forecast/internal/config"
	"github.com/vedanthundare/gurukul-forecast/internal/models"
	"github.com/vedanthundare/gurukul-forecast/internal/utils"
)

// MovingAverageAdapter is the last-resort strategy: a trailing-window mean
// with linear trend extrapolation. It fits anything with at least one finite
// observation, which is what makes the fallback guarantee hold.
type MovingAverageAdapter struct {
	cfg        config.FallbackConfig
	metricType models.MetricType
	logger     *logrus.Logger
}

// NewMovingAverageAdapter creates the fallback adapter.
func NewMovingAverageAdapter(cfg config.FallbackConfig, metricType models.MetricType, logger *logrus.Logger) *MovingAverageAdapter {
	return &MovingAverageAdapter{cfg: cfg, metricType: metricType, logger: logger}
}

// Kind identifies the strategy.
func (a *MovingAverageAdapter) Kind() models.ModelKind {
	return models.ModelKindFallbackMovingAverage
}

// Available always reports true; the fallback has no failure modes beyond a
// series with no finite observations at all.
func (a *MovingAverageAdapter) Available() bool {
	return true
}

// Fit computes the trailing-window mean and the trend slope over that
// window.
func (a *MovingAverageAdapter) Fit(ctx context.Context, train *models.TimeSeries) (models.FittedModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, utils.NewModelFitError(string(a.Kind()), "fit cancelled", err)
	}

	values := train.ObservedValues()
	if len(values) == 0 {
		return nil, utils.NewModelFitError(string(a.Kind()), "series has no finite observations", nil)
	}

	window := a.cfg.Window
	if window > len(values) {
		window = len(values)
	}
	tail := values[len(values)-window:]

	base := mean(tail)
	if window >= 2 {
		sma := trend.NewSmaWithPeriod[float64](window)
		smoothed := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
		if len(smoothed) > 0 {
			base = smoothed[len(smoothed)-1]
		}
	}

	slope, _, _ := linearRegression(tail)

	residuals := make([]float64, len(tail))
	for i, v := range tail {
		residuals[i] = v - base
	}

	a.logger.WithFields(logrus.Fields{
		"window": window,
		"base":   base,
		"slope":  slope,
	}).Debug("Moving-average fallback fitted")

	return &fittedMovingAverage{
		train:       train,
		metricType:  a.metricType,
		base:        base,
		slope:       slope,
		residuals:   residuals,
		residualStd: stddev(tail),
		intervalZ:   a.cfg.IntervalZ,
	}, nil
}

// fittedMovingAverage extrapolates the trailing mean along the window's
// linear trend.
type fittedMovingAverage struct {
	train       *models.TimeSeries
	metricType  models.MetricType
	base        float64
	slope       float64
	residuals   []float64
	residualStd float64
	intervalZ   float64
}

// Kind identifies the strategy that produced the model.
func (m *fittedMovingAverage) Kind() models.ModelKind {
	return models.ModelKindFallbackMovingAverage
}

// Predict extrapolates base + slope*h with an interval from the window
// spread. A single-point window degenerates to a flat forecast with a
// zero-width interval.
func (m *fittedMovingAverage) Predict(periods int) (*models.ForecastResult, error) {
	if periods < 1 {
		return nil, utils.NewForecastHorizonError(periods)
	}

	timestamps := m.train.FutureTimestamps(periods)
	points := make([]models.ForecastPoint, periods)
	for h := 0; h < periods; h++ {
		predicted := m.base + m.slope*float64(h+1)
		margin := m.intervalZ * m.residualStd
		points[h] = clipForecastPoint(models.ForecastPoint{
			Timestamp: timestamps[h],
			Predicted: predicted,
			Lower:     predicted - margin,
			Upper:     predicted + margin,
		}, m.metricType)
	}

	return &models.ForecastResult{
		Points:    points,
		ModelUsed: models.ModelKindFallbackMovingAverage,
	}, nil
}

// Diagnostics exposes the window residual statistics.
func (m *fittedMovingAverage) Diagnostics() map[string]float64 {
	return map[string]float64{
		"residual_mean": mean(m.residuals),
		"residual_std":  m.residualStd,
		"residual_acf1": residualACF1(m.residuals),
		"sample_size":   float64(len(m.residuals)),
	}
}
