package services

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/sirupsen/logrus"

	"github.com/vedanthundare/gurukul-forecast/internal/config"
	"github.com/vedanthundare/gurukul-forecast/internal/models"
	"github.com/vedanthundare/gurukul-forecast/internal/utils"
)

// DataQualityAssessor classifies a time series to decide which forecasting
// strategies are viable for it. Assessment is a pure function of the input;
// the assessor holds only configuration.
type DataQualityAssessor struct {
	cfg    config.AssessorConfig
	logger *logrus.Logger
}

// NewDataQualityAssessor creates a new assessor.
func NewDataQualityAssessor(cfg config.AssessorConfig, logger *logrus.Logger) *DataQualityAssessor {
	return &DataQualityAssessor{cfg: cfg, logger: logger}
}

// Assess inspects the series and produces a quality report including the
// ordered list of recommended models. Fails with an InsufficientDataError
// when fewer than the configured minimum of finite observations are present,
// in which case the caller is expected to route to the fallback strategy.
func (a *DataQualityAssessor) Assess(series *models.TimeSeries) (*models.DataQualityReport, error) {
	values := series.ObservedValues()
	if len(values) < a.cfg.MinPoints {
		return nil, utils.NewInsufficientDataError(len(values), a.cfg.MinPoints)
	}

	report := &models.DataQualityReport{
		Length:       len(values),
		MissingRatio: a.missingRatio(series),
		Variance:     variance(values),
	}
	report.VolatilityClass = a.classifyVolatility(values)
	report.HasSeasonality, report.SeasonalityPeriod = a.detectSeasonality(values)
	report.TrendDirection, report.TrendStrength = a.detectTrend(values)
	report.RecommendedModels = a.recommendModels(report)

	a.logger.WithFields(logrus.Fields{
		"length":          report.Length,
		"missing_ratio":   report.MissingRatio,
		"volatility":      report.VolatilityClass,
		"has_seasonality": report.HasSeasonality,
		"recommended":     report.RecommendedModels,
	}).Debug("Series quality assessed")

	return report, nil
}

// missingRatio is the fraction of calendar periods, inferred from the
// dominant sampling interval, with no finite observation. Both gaps in the
// timestamp grid and non-finite values count as missing.
func (a *DataQualityAssessor) missingRatio(series *models.TimeSeries) float64 {
	interval := series.DominantInterval()
	if interval <= 0 {
		return 0
	}
	span := series.Last().Timestamp.Sub(series.At(0).Timestamp)
	expected := int(span/interval) + 1
	if expected < series.Len() {
		expected = series.Len()
	}

	observed := series.ObservedLen()
	ratio := 1 - float64(observed)/float64(expected)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

func (a *DataQualityAssessor) classifyVolatility(values []float64) models.VolatilityClass {
	m := mean(values)
	sd := math.Sqrt(variance(values))

	cv := 0.0
	if math.Abs(m) > 1e-12 {
		cv = sd / math.Abs(m)
	}

	switch {
	case cv < a.cfg.LowVolatilityCV:
		return models.VolatilityLow
	case cv > a.cfg.HighVolatilityCV:
		return models.VolatilityHigh
	default:
		return models.VolatilityMedium
	}
}

// detectSeasonality looks for a dominant periodic autocorrelation peak. The
// series is first-differenced so a trend does not mask the periodic signal,
// then the configured candidate periods and any local ACF maxima are checked
// against the significance threshold. A period only counts when the series
// covers at least two full cycles.
func (a *DataQualityAssessor) detectSeasonality(values []float64) (bool, *int) {
	n := len(values)
	maxLag := n / 2
	if maxLag < a.cfg.MinSeasonalPeriod {
		return false, nil
	}

	diffed := difference(values, 1)
	if variance(diffed) < 1e-12 {
		return false, nil
	}

	acf := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag && lag < len(diffed); lag++ {
		acf[lag] = autocorr(diffed, lag)
	}

	bestPeriod := 0
	bestStrength := 0.0

	consider := func(period int) {
		if period < a.cfg.MinSeasonalPeriod || period > maxLag || period >= len(acf) {
			return
		}
		if n < 2*period {
			return
		}
		if acf[period] > a.cfg.SeasonalityThreshold && acf[period] > bestStrength {
			bestPeriod = period
			bestStrength = acf[period]
		}
	}

	for _, period := range a.cfg.CandidatePeriods {
		consider(period)
	}
	for lag := a.cfg.MinSeasonalPeriod; lag < maxLag && lag < len(acf)-1; lag++ {
		if acf[lag] > acf[lag-1] && acf[lag] > acf[lag+1] {
			consider(lag)
		}
	}

	if bestPeriod == 0 {
		return false, nil
	}
	return true, &bestPeriod
}

// detectTrend estimates trend direction and strength from an EMA-smoothed
// copy of the series, so single spikes do not register as a trend.
func (a *DataQualityAssessor) detectTrend(values []float64) (direction int, strength float64) {
	smoothed := values
	if period := a.cfg.TrendSmoothingPeriod; period > 1 && len(values) >= 2*period {
		ema := trend.NewEmaWithPeriod[float64](period)
		smoothed = helper.ChanToSlice(ema.Compute(helper.SliceToChan(values)))
	}

	slope, _, r2 := linearRegression(smoothed)
	if r2 < a.cfg.TrendStrengthThreshold {
		return 0, r2
	}
	if slope > 0 {
		return 1, r2
	}
	if slope < 0 {
		return -1, r2
	}
	return 0, r2
}

// recommendModels produces the ordered preference list. Short series get the
// fallback only; seasonal series with at least two full cycles prefer the
// additive seasonal model; everything else prefers the autoregressive model.
func (a *DataQualityAssessor) recommendModels(report *models.DataQualityReport) []models.ModelKind {
	if report.Length < a.cfg.MinAdvancedLength {
		return []models.ModelKind{models.ModelKindFallbackMovingAverage}
	}
	if report.HasSeasonality && report.SeasonalityPeriod != nil && report.Length >= 2*(*report.SeasonalityPeriod) {
		return []models.ModelKind{models.ModelKindProphet, models.ModelKindARIMA}
	}
	return []models.ModelKind{models.ModelKindARIMA, models.ModelKindProphet}
}
