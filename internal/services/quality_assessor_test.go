package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedanthundare/gurukul-forecast/internal/config"
	"github.com/vedanthundare/gurukul-forecast/internal/models"
	"github.com/vedanthundare/gurukul-forecast/internal/testutil"
	"github.com/vedanthundare/gurukul-forecast/internal/utils"
)

func newAssessor() *DataQualityAssessor {
	return NewDataQualityAssessor(config.Default().Forecast.Assessor, newTestLogger())
}

func TestAssessRejectsTooFewObservations(t *testing.T) {
	assessor := newAssessor()

	_, err := assessor.Assess(testutil.DailySeries([]float64{5}))
	require.Error(t, err)

	var insufficient *utils.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Length)
	assert.Equal(t, 2, insufficient.Required)
}

func TestAssessShortSeriesRecommendsFallbackOnly(t *testing.T) {
	assessor := newAssessor()

	report, err := assessor.Assess(testutil.NoisySeries(5, 100, 2, 1))
	require.NoError(t, err)

	assert.Equal(t, 5, report.Length)
	assert.Equal(t, []models.ModelKind{models.ModelKindFallbackMovingAverage}, report.RecommendedModels)
}

func TestAssessSeasonalSeries(t *testing.T) {
	assessor := newAssessor()
	series := testutil.SeasonalSeries(100, 7, 50, 10, 1, 42)

	report, err := assessor.Assess(series)
	require.NoError(t, err)

	assert.True(t, report.HasSeasonality)
	require.NotNil(t, report.SeasonalityPeriod)
	assert.Equal(t, 7, *report.SeasonalityPeriod)
	assert.Equal(t, []models.ModelKind{models.ModelKindProphet, models.ModelKindARIMA}, report.RecommendedModels)
}

func TestAssessTrendingSeries(t *testing.T) {
	assessor := newAssessor()
	series := testutil.TrendSeries(60, 10, 1, 0.5, 7)

	report, err := assessor.Assess(series)
	require.NoError(t, err)

	assert.Equal(t, 1, report.TrendDirection)
	assert.Greater(t, report.TrendStrength, 0.3)
	assert.False(t, report.HasSeasonality)
	assert.Equal(t, []models.ModelKind{models.ModelKindARIMA, models.ModelKindProphet}, report.RecommendedModels)
}

func TestAssessConstantSeries(t *testing.T) {
	assessor := newAssessor()

	report, err := assessor.Assess(testutil.ConstantSeries(30, 42))
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.Variance)
	assert.Equal(t, models.VolatilityLow, report.VolatilityClass)
	assert.False(t, report.HasSeasonality)
	assert.Equal(t, 0, report.TrendDirection)
}

func TestAssessMissingRatio(t *testing.T) {
	assessor := newAssessor()
	series := testutil.WithMissing(testutil.NoisySeries(20, 50, 2, 3), 2, 7)

	report, err := assessor.Assess(series)
	require.NoError(t, err)

	assert.Equal(t, 18, report.Length)
	assert.InDelta(t, 0.1, report.MissingRatio, 1e-9)
}

func TestAssessVolatilityClasses(t *testing.T) {
	assessor := newAssessor()

	tests := []struct {
		name   string
		series *models.TimeSeries
		want   models.VolatilityClass
	}{
		{"low", testutil.NoisySeries(40, 100, 1, 5), models.VolatilityLow},
		{"medium", testutil.NoisySeries(40, 10, 3, 5), models.VolatilityMedium},
		{"high", testutil.NoisySeries(40, 2, 5, 5), models.VolatilityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := assessor.Assess(tt.series)
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.VolatilityClass)
		})
	}
}

func TestAssessIsDeterministic(t *testing.T) {
	assessor := newAssessor()
	series := testutil.SeasonalSeries(80, 7, 20, 5, 1, 99)

	first, err := assessor.Assess(series)
	require.NoError(t, err)
	second, err := assessor.Assess(series)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
