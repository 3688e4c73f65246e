// Package testutil provides deterministic time-series generators for tests.
// Every generator takes an explicit seed so test runs are reproducible.
package testutil

import (
	"math"
	"math/rand"
	"time"

	"github.com/vedanthundare/gurukul-forecast/internal/models"
)

// BaseDate anchors generated series to a fixed calendar date.
var BaseDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DailyPoints builds a daily series from raw values starting at BaseDate.
func DailyPoints(values []float64) []models.TimePoint {
	points := make([]models.TimePoint, len(values))
	for i, v := range values {
		points[i] = models.TimePoint{
			Timestamp: BaseDate.AddDate(0, 0, i),
			Value:     v,
		}
	}
	return points
}

// DailySeries builds a validated daily TimeSeries from raw values. Panics on
// invalid input; generators in this package always produce valid series.
func DailySeries(values []float64) *models.TimeSeries {
	series, err := models.NewTimeSeries(DailyPoints(values))
	if err != nil {
		panic(err)
	}
	return series
}

// ConstantSeries generates n identical daily values.
func ConstantSeries(n int, value float64) *models.TimeSeries {
	values := make([]float64, n)
	for i := range values {
		values[i] = value
	}
	return DailySeries(values)
}

// SeasonalSeries generates a daily sinusoid with the given period, amplitude
// and additive Gaussian noise around the given level.
func SeasonalSeries(n, period int, level, amplitude, noiseStd float64, seed int64) *models.TimeSeries {
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	for i := range values {
		values[i] = level +
			amplitude*math.Sin(2*math.Pi*float64(i)/float64(period)) +
			rng.NormFloat64()*noiseStd
	}
	return DailySeries(values)
}

// TrendSeries generates a daily linear trend with additive Gaussian noise.
func TrendSeries(n int, start, slope, noiseStd float64, seed int64) *models.TimeSeries {
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	for i := range values {
		values[i] = start + slope*float64(i) + rng.NormFloat64()*noiseStd
	}
	return DailySeries(values)
}

// NoisySeries generates daily Gaussian noise around a level.
func NoisySeries(n int, level, noiseStd float64, seed int64) *models.TimeSeries {
	return TrendSeries(n, level, 0, noiseStd, seed)
}

// WithMissing returns a copy of the series with the values at the given
// indices replaced by NaN.
func WithMissing(series *models.TimeSeries, indices ...int) *models.TimeSeries {
	points := series.Points()
	missing := make(map[int]bool, len(indices))
	for _, i := range indices {
		missing[i] = true
	}
	out := make([]models.TimePoint, len(points))
	for i, p := range points {
		if missing[i] {
			p.Value = math.NaN()
		}
		out[i] = p
	}
	rebuilt, err := models.NewTimeSeries(out)
	if err != nil {
		panic(err)
	}
	return rebuilt
}

// ProbabilitySeries generates daily values inside [lo, hi], a sub-range of
// [0,1], oscillating with the given period plus noise. Values are clamped so
// the series is a valid probability metric.
func ProbabilitySeries(n, period int, lo, hi, noiseStd float64, seed int64) *models.TimeSeries {
	rng := rand.New(rand.NewSource(seed))
	center := (lo + hi) / 2
	amplitude := (hi - lo) / 2
	values := make([]float64, n)
	for i := range values {
		v := center + amplitude*math.Sin(2*math.Pi*float64(i)/float64(period)) + rng.NormFloat64()*noiseStd
		values[i] = math.Max(0, math.Min(1, v))
	}
	return DailySeries(values)
}
