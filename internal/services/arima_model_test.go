package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedanthundare/gurukul-forecast/internal/config"
	"github.com/vedanthundare/gurukul-forecast/internal/models"
	"github.com/vedanthundare/gurukul-forecast/internal/testutil"
	"github.com/vedanthundare/gurukul-forecast/internal/utils"
)

func newARIMAAdapter(metricType models.MetricType) *ARIMAAdapter {
	return NewARIMAAdapter(config.Default().Forecast.ARIMA, metricType, newTestLogger())
}

func TestARIMAFitRejectsShortSeries(t *testing.T) {
	adapter := newARIMAAdapter(models.MetricTypeGeneral)

	_, err := adapter.Fit(context.Background(), testutil.NoisySeries(5, 10, 1, 1))
	require.Error(t, err)

	var fitErr *utils.ModelFitError
	require.True(t, errors.As(err, &fitErr))
	assert.Equal(t, "arima", fitErr.Model)
}

func TestARIMAFitTrendingSeries(t *testing.T) {
	adapter := newARIMAAdapter(models.MetricTypeGeneral)
	series := testutil.TrendSeries(60, 10, 1, 0.5, 7)

	model, err := adapter.Fit(context.Background(), series)
	require.NoError(t, err)
	assert.Equal(t, models.ModelKindARIMA, model.Kind())

	forecast, err := model.Predict(5)
	require.NoError(t, err)
	require.Len(t, forecast.Points, 5)
	assert.Equal(t, models.ModelKindARIMA, forecast.ModelUsed)

	for _, p := range forecast.Points {
		assert.LessOrEqual(t, p.Lower, p.Predicted)
		assert.LessOrEqual(t, p.Predicted, p.Upper)
	}
	// The upward trend continues into the forecast.
	assert.Greater(t, forecast.Points[4].Predicted, forecast.Points[0].Predicted)
}

func TestARIMAFitConstantSeries(t *testing.T) {
	adapter := newARIMAAdapter(models.MetricTypeGeneral)

	model, err := adapter.Fit(context.Background(), testutil.ConstantSeries(30, 42))
	require.NoError(t, err)

	forecast, err := model.Predict(3)
	require.NoError(t, err)
	for _, p := range forecast.Points {
		assert.InDelta(t, 42.0, p.Predicted, 1e-6)
	}
}

func TestARIMAPredictRejectsBadHorizon(t *testing.T) {
	adapter := newARIMAAdapter(models.MetricTypeGeneral)

	model, err := adapter.Fit(context.Background(), testutil.NoisySeries(30, 10, 1, 2))
	require.NoError(t, err)

	for _, periods := range []int{0, -3} {
		_, err := model.Predict(periods)
		require.Error(t, err)
		var horizonErr *utils.ForecastHorizonError
		assert.True(t, errors.As(err, &horizonErr))
	}
}

func TestARIMAFitIsDeterministic(t *testing.T) {
	adapter := newARIMAAdapter(models.MetricTypeGeneral)
	series := testutil.SeasonalSeries(80, 7, 50, 10, 1, 42)

	first, err := adapter.Fit(context.Background(), series)
	require.NoError(t, err)
	second, err := adapter.Fit(context.Background(), series)
	require.NoError(t, err)

	forecastA, err := first.Predict(10)
	require.NoError(t, err)
	forecastB, err := second.Predict(10)
	require.NoError(t, err)

	assert.Equal(t, forecastA.Points, forecastB.Points)
}

func TestARIMALoadForecastIsNonNegative(t *testing.T) {
	adapter := newARIMAAdapter(models.MetricTypeLoad)

	// A load series decaying toward zero must not forecast below it.
	values := make([]float64, 30)
	for i := range values {
		values[i] = 10 - 0.33*float64(i)
		if values[i] < 0.5 {
			values[i] = 0.5
		}
	}
	model, err := adapter.Fit(context.Background(), testutil.DailySeries(values))
	require.NoError(t, err)

	forecast, err := model.Predict(10)
	require.NoError(t, err)
	for _, p := range forecast.Points {
		assert.GreaterOrEqual(t, p.Lower, 0.0)
		assert.GreaterOrEqual(t, p.Predicted, 0.0)
		assert.LessOrEqual(t, p.Lower, p.Predicted)
		assert.LessOrEqual(t, p.Predicted, p.Upper)
	}
}

func TestARIMAFitCancelledContext(t *testing.T) {
	adapter := newARIMAAdapter(models.MetricTypeGeneral)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := adapter.Fit(ctx, testutil.NoisySeries(30, 10, 1, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimateARIMARejectsDegenerateInput(t *testing.T) {
	t.Run("too short after differencing", func(t *testing.T) {
		_, err := estimateARIMA([]float64{1, 2, 3, 4}, 2, 1, 2)
		assert.Error(t, err)
	})

	t.Run("constant series cannot identify AR terms", func(t *testing.T) {
		values := make([]float64, 20)
		for i := range values {
			values[i] = 42
		}
		_, err := estimateARIMA(values, 1, 0, 0)
		assert.Error(t, err)
	})
}

func TestARIMADiagnostics(t *testing.T) {
	adapter := newARIMAAdapter(models.MetricTypeGeneral)

	model, err := adapter.Fit(context.Background(), testutil.NoisySeries(40, 10, 1, 6))
	require.NoError(t, err)

	diag := model.Diagnostics()
	assert.Contains(t, diag, "residual_mean")
	assert.Contains(t, diag, "residual_std")
	assert.Contains(t, diag, "residual_acf1")
	assert.Contains(t, diag, "aic")
	assert.Greater(t, diag["sample_size"], 0.0)
}
