package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedanthundare/gurukul-forecast/internal/config"
	"github.com/vedanthundare/gurukul-forecast/internal/models"
	"github.com/vedanthundare/gurukul-forecast/internal/testutil"
)

// stubModel returns canned predictions so metric math can be checked exactly.
type stubModel struct {
	kind  models.ModelKind
	preds []float64
}

func (m *stubModel) Kind() models.ModelKind { return m.kind }

func (m *stubModel) Predict(periods int) (*models.ForecastResult, error) {
	points := make([]models.ForecastPoint, periods)
	for i := range points {
		v := m.preds[len(m.preds)-1]
		if i < len(m.preds) {
			v = m.preds[i]
		}
		points[i] = models.ForecastPoint{
			Timestamp: testutil.BaseDate.Add(time.Duration(i) * 24 * time.Hour),
			Predicted: v,
			Lower:     v - 1,
			Upper:     v + 1,
		}
	}
	return &models.ForecastResult{Points: points, ModelUsed: m.kind}, nil
}

func (m *stubModel) Diagnostics() map[string]float64 { return map[string]float64{} }

type stubAdapter struct {
	kind   models.ModelKind
	preds  []float64
	fitErr error
}

func (a *stubAdapter) Kind() models.ModelKind { return a.kind }
func (a *stubAdapter) Available() bool        { return true }

func (a *stubAdapter) Fit(ctx context.Context, train *models.TimeSeries) (models.FittedModel, error) {
	if a.fitErr != nil {
		return nil, a.fitErr
	}
	return &stubModel{kind: a.kind, preds: a.preds}, nil
}

func newEvaluator(cfg config.EvaluationConfig) *ModelPerformanceEvaluator {
	return NewModelPerformanceEvaluator(cfg, newTestLogger())
}

func defaultEvaluationConfig() config.EvaluationConfig {
	return config.Default().Forecast.Evaluation
}

func TestTrainTestSplit(t *testing.T) {
	evaluator := newEvaluator(defaultEvaluationConfig())

	tests := []struct {
		name      string
		n         int
		wantTrain int
		wantTest  int
	}{
		{"ten points", 10, 8, 2},
		{"five points", 5, 4, 1},
		{"two points keeps one of each", 2, 1, 1},
		{"hundred points", 100, 80, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := testutil.NoisySeries(tt.n, 10, 1, 1)
			train, test, err := evaluator.TrainTestSplit(series)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTrain, train.Len())
			assert.Equal(t, tt.wantTest, test.Len())
			// Chronology is preserved across the cut.
			assert.True(t, train.Last().Timestamp.Before(test.At(0).Timestamp))
		})
	}

	t.Run("single point cannot split", func(t *testing.T) {
		_, _, err := evaluator.TrainTestSplit(testutil.ConstantSeries(1, 5))
		assert.Error(t, err)
	})
}

func TestEvaluateModelMetrics(t *testing.T) {
	evaluator := newEvaluator(defaultEvaluationConfig())
	train := testutil.DailySeries([]float64{1, 2, 3})
	test := testutil.DailySeries([]float64{10, 20})

	adapter := &stubAdapter{kind: models.ModelKindARIMA, preds: []float64{12, 18}}
	result, err := evaluator.EvaluateModel(context.Background(), adapter, train, test)
	require.NoError(t, err)

	assert.Equal(t, models.ModelKindARIMA, result.Kind)
	assert.InDelta(t, 2.0, result.Metrics.MAE, 1e-9)
	assert.InDelta(t, 2.0, result.Metrics.RMSE, 1e-9)
	require.NotNil(t, result.Metrics.MAPE)
	assert.InDelta(t, 15.0, *result.Metrics.MAPE, 1e-9)
	assert.Equal(t, 2, result.Metrics.SampleSize)
	assert.False(t, result.CrossValidated)
}

func TestEvaluateModelMAPEUndefinedOnZeroTruth(t *testing.T) {
	evaluator := newEvaluator(defaultEvaluationConfig())
	train := testutil.DailySeries([]float64{1, 2, 3})
	test := testutil.DailySeries([]float64{0, 10})

	adapter := &stubAdapter{kind: models.ModelKindProphet, preds: []float64{1, 8}}
	result, err := evaluator.EvaluateModel(context.Background(), adapter, train, test)
	require.NoError(t, err)

	assert.Nil(t, result.Metrics.MAPE)
	assert.InDelta(t, 1.5, result.Metrics.MAE, 1e-9)
}

func TestEvaluateModelMAPEUndefinedOnConstantWindow(t *testing.T) {
	evaluator := newEvaluator(defaultEvaluationConfig())
	train := testutil.ConstantSeries(3, 42)
	test := testutil.ConstantSeries(10, 42)

	adapter := &stubAdapter{kind: models.ModelKindARIMA, preds: []float64{42}}
	result, err := evaluator.EvaluateModel(context.Background(), adapter, train, test)
	require.NoError(t, err)

	assert.Nil(t, result.Metrics.MAPE)
	assert.InDelta(t, 0.0, result.Metrics.MAE, 1e-9)
	assert.InDelta(t, 0.0, result.Metrics.RMSE, 1e-9)
}

func TestEvaluateModelSkipsMissingTestPoints(t *testing.T) {
	evaluator := newEvaluator(defaultEvaluationConfig())
	train := testutil.DailySeries([]float64{1, 2, 3})
	test := testutil.WithMissing(testutil.DailySeries([]float64{10, 20, 30}), 1)

	adapter := &stubAdapter{kind: models.ModelKindARIMA, preds: []float64{10, 99, 30}}
	result, err := evaluator.EvaluateModel(context.Background(), adapter, train, test)
	require.NoError(t, err)

	// The missing middle point never contributes to the score.
	assert.Equal(t, 2, result.Metrics.SampleSize)
	assert.InDelta(t, 0.0, result.Metrics.MAE, 1e-9)
}

func TestEvaluateModelPropagatesFitError(t *testing.T) {
	evaluator := newEvaluator(defaultEvaluationConfig())
	train := testutil.DailySeries([]float64{1, 2, 3})
	test := testutil.DailySeries([]float64{4})

	adapter := &stubAdapter{kind: models.ModelKindARIMA, fitErr: errors.New("did not converge")}
	_, err := evaluator.EvaluateModel(context.Background(), adapter, train, test)
	assert.Error(t, err)
}

func TestEvaluateModelCrossValidates(t *testing.T) {
	cfg := defaultEvaluationConfig()
	cfg.CVMinTrainPoints = 10
	evaluator := newEvaluator(cfg)

	train := testutil.NoisySeries(40, 10, 1, 2)
	test := testutil.DailySeries([]float64{10, 11})

	adapter := &stubAdapter{kind: models.ModelKindARIMA, preds: []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10}}
	result, err := evaluator.EvaluateModel(context.Background(), adapter, train, test)
	require.NoError(t, err)
	assert.True(t, result.CrossValidated)
}

func makeResult(kind models.ModelKind, mae, rmse float64) *EvaluationResult {
	return &EvaluationResult{
		Kind:    kind,
		Model:   &stubModel{kind: kind, preds: []float64{1}},
		Metrics: models.AccuracyMetrics{MAE: mae, RMSE: rmse, SampleSize: 10},
	}
}

func TestCompareModelsRanksByMAE(t *testing.T) {
	evaluator := newEvaluator(defaultEvaluationConfig())

	report, err := evaluator.CompareModels([]*EvaluationResult{
		makeResult(models.ModelKindProphet, 3.4, 4.0),
		makeResult(models.ModelKindARIMA, 2.1, 3.0),
	})
	require.NoError(t, err)

	assert.Equal(t, models.ModelKindARIMA, report.Best.Kind)
	assert.Equal(t, models.ModelKindProphet, report.RunnerUp.Kind)
	assert.InDelta(t, 2.1/3.4, report.AdvantageRatio, 1e-9)
	assert.Equal(t, models.ConfidenceHigh, report.Confidence)
}

func TestCompareModelsConfidenceThresholds(t *testing.T) {
	evaluator := newEvaluator(defaultEvaluationConfig())

	tests := []struct {
		name    string
		bestMAE float64
		want    models.Confidence
	}{
		{"clear winner", 5.0, models.ConfidenceHigh},
		{"moderate winner", 9.0, models.ConfidenceMedium},
		{"marginal winner", 9.8, models.ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := evaluator.CompareModels([]*EvaluationResult{
				makeResult(models.ModelKindARIMA, tt.bestMAE, tt.bestMAE),
				makeResult(models.ModelKindProphet, 10.0, 10.0),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.Confidence)
		})
	}
}

func TestCompareModelsSingleCandidate(t *testing.T) {
	evaluator := newEvaluator(defaultEvaluationConfig())

	report, err := evaluator.CompareModels([]*EvaluationResult{
		makeResult(models.ModelKindARIMA, 2.0, 2.5),
	})
	require.NoError(t, err)

	assert.Equal(t, models.ModelKindARIMA, report.Best.Kind)
	assert.Nil(t, report.RunnerUp)
	assert.Equal(t, 1.0, report.AdvantageRatio)
	assert.Equal(t, models.ConfidenceMedium, report.Confidence)
}

func TestCompareModelsTieBreaksOnRMSE(t *testing.T) {
	evaluator := newEvaluator(defaultEvaluationConfig())

	report, err := evaluator.CompareModels([]*EvaluationResult{
		makeResult(models.ModelKindProphet, 2.0, 3.5),
		makeResult(models.ModelKindARIMA, 2.0, 2.5),
	})
	require.NoError(t, err)

	assert.Equal(t, models.ModelKindARIMA, report.Best.Kind)
	assert.Equal(t, models.ConfidenceLow, report.Confidence)
}

func TestCompareModelsFullTieKeepsInputOrder(t *testing.T) {
	evaluator := newEvaluator(defaultEvaluationConfig())

	report, err := evaluator.CompareModels([]*EvaluationResult{
		makeResult(models.ModelKindProphet, 2.0, 2.0),
		makeResult(models.ModelKindARIMA, 2.0, 2.0),
	})
	require.NoError(t, err)

	assert.Equal(t, models.ModelKindProphet, report.Best.Kind)
}

func TestCompareModelsEmpty(t *testing.T) {
	evaluator := newEvaluator(defaultEvaluationConfig())
	_, err := evaluator.CompareModels(nil)
	assert.Error(t, err)
}

func TestAverageMetrics(t *testing.T) {
	mapeA, mapeB := 10.0, 20.0

	t.Run("both mape present", func(t *testing.T) {
		avg := averageMetrics(
			models.AccuracyMetrics{MAE: 1, RMSE: 2, MAPE: &mapeA, SampleSize: 5},
			models.AccuracyMetrics{MAE: 3, RMSE: 4, MAPE: &mapeB, SampleSize: 7},
		)
		assert.Equal(t, 2.0, avg.MAE)
		assert.Equal(t, 3.0, avg.RMSE)
		require.NotNil(t, avg.MAPE)
		assert.Equal(t, 15.0, *avg.MAPE)
		assert.Equal(t, 12, avg.SampleSize)
	})

	t.Run("nil mape wins", func(t *testing.T) {
		avg := averageMetrics(
			models.AccuracyMetrics{MAE: 1, RMSE: 2, MAPE: &mapeA},
			models.AccuracyMetrics{MAE: 3, RMSE: 4},
		)
		assert.Nil(t, avg.MAPE)
	})
}
