package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vedanthundare/gurukul-forecast/internal/config"
	"github.com/vedanthundare/gurukul-forecast/internal/models"
	"github.com/vedanthundare/gurukul-forecast/internal/utils"
)

// probabilityEps keeps the logit transform finite at the [0,1] boundary.
const probabilityEps = 1e-6

// ProphetAdapter fits an additive model decomposing the series into a linear
// trend plus optional weekly and yearly seasonal components, with an
// uncertainty interval from the residual spread.
//
// The metric type selects the growth shape: probability metrics are fit in
// logit space so the inverse transform caps every forecast to [0,1]
// (logistic growth), while load and general metrics use linear growth. The
// per-metric prior scale shrinks seasonal components toward zero, hardest
// for probability metrics where overfit seasonal swings would saturate the
// caps.
type ProphetAdapter struct {
	cfg        config.ProphetConfig
	metricType models.MetricType
	logger     *logrus.Logger
}

// NewProphetAdapter creates a new additive-model adapter for the given
// metric type.
func NewProphetAdapter(cfg config.ProphetConfig, metricType models.MetricType, logger *logrus.Logger) *ProphetAdapter {
	return &ProphetAdapter{cfg: cfg, metricType: metricType, logger: logger}
}

// Kind identifies the strategy.
func (a *ProphetAdapter) Kind() models.ModelKind {
	return models.ModelKindProphet
}

// Available reports whether the strategy is enabled in this configuration.
func (a *ProphetAdapter) Available() bool {
	return a.cfg.Enabled
}

func (a *ProphetAdapter) priorScale() float64 {
	switch a.metricType {
	case models.MetricTypeProbability:
		return a.cfg.ProbabilityPriorScale
	case models.MetricTypeLoad:
		return a.cfg.LoadPriorScale
	default:
		return a.cfg.GeneralPriorScale
	}
}

// Fit trains the additive model. Fails with a ModelFitError when the series
// carries fewer observations than the configured minimum.
func (a *ProphetAdapter) Fit(ctx context.Context, train *models.TimeSeries) (models.FittedModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, utils.NewModelFitError(string(a.Kind()), "fit cancelled", err)
	}

	obs := train.Observations()
	if len(obs) < a.cfg.MinTrainPoints {
		return nil, utils.NewModelFitError(string(a.Kind()),
			fmt.Sprintf("need at least %d observations, got %d", a.cfg.MinTrainPoints, len(obs)), nil)
	}

	interval := train.DominantInterval()
	if interval <= 0 {
		return nil, utils.NewModelFitError(string(a.Kind()), "cannot infer sampling interval", nil)
	}

	logistic := a.metricType == models.MetricTypeProbability

	// Grid indices anchor every observation to the sampling grid so gaps do
	// not shift the seasonal phase.
	epoch := obs[0].Timestamp
	indices := make([]float64, len(obs))
	working := make([]float64, len(obs))
	for i, p := range obs {
		indices[i] = gridIndex(epoch, p.Timestamp, interval)
		if logistic {
			working[i] = logit(p.Value)
		} else {
			working[i] = p.Value
		}
	}

	slope, intercept := regressOnIndices(indices, working)

	detrended := make([]float64, len(obs))
	for i := range obs {
		detrended[i] = working[i] - (intercept + slope*indices[i])
	}

	weekly := a.seasonalComponent(indices, detrended, periodSamples(a.cfg.WeeklyPeriodDays, interval), len(obs))
	yearly := a.seasonalComponent(indices, detrended, periodSamples(a.cfg.YearlyPeriodDays, interval), len(obs))

	residuals := make([]float64, len(obs))
	for i := range obs {
		seasonal := seasonalAt(weekly, indices[i]) + seasonalAt(yearly, indices[i])
		residuals[i] = detrended[i] - seasonal
	}

	a.logger.WithFields(logrus.Fields{
		"observations": len(obs),
		"weekly":       weekly != nil,
		"yearly":       yearly != nil,
		"logistic":     logistic,
	}).Debug("Additive model fitted")

	return &fittedProphet{
		train:       train,
		metricType:  a.metricType,
		logistic:    logistic,
		epoch:       epoch,
		interval:    interval,
		slope:       slope,
		intercept:   intercept,
		weekly:      weekly,
		yearly:      yearly,
		residuals:   residuals,
		residualStd: stddev(residuals),
		intervalZ:   a.cfg.IntervalZ,
	}, nil
}

// seasonalComponent learns the per-phase mean of the detrended series for
// one seasonal period. The component is only enabled when the training
// window covers the configured minimum number of full cycles, and each
// phase's effect is shrunk toward zero by the metric-type prior scale.
func (a *ProphetAdapter) seasonalComponent(indices, detrended []float64, period, n int) *seasonal {
	if period < 2 || n < a.cfg.MinCycles*period {
		return nil
	}

	sums := make([]float64, period)
	counts := make([]float64, period)
	for i, idx := range indices {
		phase := int(math.Round(idx)) % period
		if phase < 0 {
			phase += period
		}
		sums[phase] += detrended[i]
		counts[phase]++
	}

	shrinkWeight := 1.0 / a.priorScale()
	effects := make([]float64, period)
	for phase := 0; phase < period; phase++ {
		if counts[phase] == 0 {
			continue
		}
		raw := sums[phase] / counts[phase]
		effects[phase] = raw * counts[phase] / (counts[phase] + shrinkWeight)
	}
	return &seasonal{period: period, effects: effects}
}

type seasonal struct {
	period  int
	effects []float64
}

func seasonalAt(s *seasonal, index float64) float64 {
	if s == nil {
		return 0
	}
	phase := int(math.Round(index)) % s.period
	if phase < 0 {
		phase += s.period
	}
	return s.effects[phase]
}

// fittedProphet is the trained additive model handed back to the selector.
type fittedProphet struct {
	train       *models.TimeSeries
	metricType  models.MetricType
	logistic    bool
	epoch       time.Time
	interval    time.Duration
	slope       float64
	intercept   float64
	weekly      *seasonal
	yearly      *seasonal
	residuals   []float64
	residualStd float64
	intervalZ   float64
}

// Kind identifies the strategy that produced the model.
func (m *fittedProphet) Kind() models.ModelKind {
	return models.ModelKindProphet
}

// Predict generates point estimates with an uncertainty interval widening
// with the horizon. For probability metrics the entire interval is produced
// in logit space, so the inverse transform keeps every bound inside [0,1].
func (m *fittedProphet) Predict(periods int) (*models.ForecastResult, error) {
	if periods < 1 {
		return nil, utils.NewForecastHorizonError(periods)
	}

	timestamps := m.train.FutureTimestamps(periods)
	points := make([]models.ForecastPoint, periods)
	for h := 0; h < periods; h++ {
		idx := gridIndex(m.epoch, timestamps[h], m.interval)
		center := m.intercept + m.slope*idx + seasonalAt(m.weekly, idx) + seasonalAt(m.yearly, idx)

		se := m.residualStd * math.Sqrt(1+0.05*float64(h))
		lower := center - m.intervalZ*se
		upper := center + m.intervalZ*se

		if m.logistic {
			center = sigmoid(center)
			lower = sigmoid(lower)
			upper = sigmoid(upper)
		}

		points[h] = clipForecastPoint(models.ForecastPoint{
			Timestamp: timestamps[h],
			Predicted: center,
			Lower:     lower,
			Upper:     upper,
		}, m.metricType)
	}

	return &models.ForecastResult{
		Points:    points,
		ModelUsed: models.ModelKindProphet,
	}, nil
}

// Diagnostics exposes residual statistics of the fit, in the model's working
// space.
func (m *fittedProphet) Diagnostics() map[string]float64 {
	return map[string]float64{
		"residual_mean": mean(m.residuals),
		"residual_std":  m.residualStd,
		"residual_acf1": residualACF1(m.residuals),
		"sample_size":   float64(len(m.residuals)),
	}
}

// gridIndex places a timestamp on the sampling grid anchored at epoch.
func gridIndex(epoch time.Time, ts time.Time, interval time.Duration) float64 {
	return float64(ts.Sub(epoch)) / float64(interval)
}

// periodSamples converts a period in days to a period in samples at the
// series' sampling interval. Returns 0 when the interval is coarser than the
// period.
func periodSamples(days int, interval time.Duration) int {
	if days <= 0 || interval <= 0 {
		return 0
	}
	period := time.Duration(days) * 24 * time.Hour
	if interval > period {
		return 0
	}
	return int(math.Round(float64(period) / float64(interval)))
}

// regressOnIndices fits working = intercept + slope*index by least squares
// over arbitrary (possibly gapped) grid positions.
func regressOnIndices(indices, working []float64) (slope, intercept float64) {
	n := float64(len(indices))
	if n < 2 {
		return 0, mean(working)
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i := range indices {
		sumX += indices[i]
		sumY += working[i]
		sumXY += indices[i] * working[i]
		sumX2 += indices[i] * indices[i]
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func logit(v float64) float64 {
	if v < probabilityEps {
		v = probabilityEps
	}
	if v > 1-probabilityEps {
		v = 1 - probabilityEps
	}
	return math.Log(v / (1 - v))
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
