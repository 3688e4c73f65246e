package services

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/vedanthundare/gurukul-forecast/internal/config"
	"github.com/vedanthundare/gurukul-forecast/internal/models"
	"github.com/vedanthundare/gurukul-forecast/internal/utils"
)

// ARIMAAdapter fits autoregressive integrated moving-average models. Order
// selection is a bounded grid search over (p,d,q) minimizing AIC on the
// training data, with a fixed failover order when every candidate errors out.
//
// Estimation is pure Go: AR coefficients via the Yule-Walker equations
// (Levinson-Durbin recursion), MA coefficients from the residual
// autocorrelations, innovation variance from the one-step in-sample errors.
type ARIMAAdapter struct {
	cfg        config.ARIMAConfig
	metricType models.MetricType
	logger     *logrus.Logger
}

// NewARIMAAdapter creates a new ARIMA adapter for the given metric type.
func NewARIMAAdapter(cfg config.ARIMAConfig, metricType models.MetricType, logger *logrus.Logger) *ARIMAAdapter {
	return &ARIMAAdapter{cfg: cfg, metricType: metricType, logger: logger}
}

// Kind identifies the strategy.
func (a *ARIMAAdapter) Kind() models.ModelKind {
	return models.ModelKindARIMA
}

// Available reports whether the strategy is enabled in this configuration.
func (a *ARIMAAdapter) Available() bool {
	return a.cfg.Enabled
}

// Fit searches the bounded (p,d,q) grid and returns the order with the
// lowest AIC. Fails with a ModelFitError when the series is too short or no
// order, including the failover, can be estimated.
func (a *ARIMAAdapter) Fit(ctx context.Context, train *models.TimeSeries) (models.FittedModel, error) {
	values := train.ObservedValues()
	if len(values) < a.cfg.MinTrainPoints {
		return nil, utils.NewModelFitError(string(a.Kind()),
			fmt.Sprintf("need at least %d observations, got %d", a.cfg.MinTrainPoints, len(values)), nil)
	}

	var best *arimaFit
	bestAIC := math.Inf(1)

	for d := 0; d <= a.cfg.MaxD; d++ {
		for p := 0; p <= a.cfg.MaxP; p++ {
			for q := 0; q <= a.cfg.MaxQ; q++ {
				if err := ctx.Err(); err != nil {
					return nil, utils.NewModelFitError(string(a.Kind()), "order search cancelled", err)
				}
				fit, err := estimateARIMA(values, p, d, q)
				if err != nil {
					continue
				}
				if fit.aic < bestAIC {
					bestAIC = fit.aic
					best = fit
				}
			}
		}
	}

	if best == nil {
		// Grid search failed everywhere; fall over to the fixed order.
		fit, err := estimateARIMA(values, a.cfg.FailoverP, a.cfg.FailoverD, a.cfg.FailoverQ)
		if err != nil {
			return nil, utils.NewModelFitError(string(a.Kind()), "no (p,d,q) order could be estimated", err)
		}
		a.logger.WithField("order", fit.orderString()).Warn("ARIMA grid search failed, using failover order")
		best = fit
	}

	a.logger.WithFields(logrus.Fields{
		"order": best.orderString(),
		"aic":   best.aic,
	}).Debug("ARIMA order selected")

	return &fittedARIMA{
		fit:        best,
		train:      train,
		metricType: a.metricType,
		intervalZ:  a.cfg.IntervalZ,
	}, nil
}

// arimaFit holds the estimated coefficients and the state needed to continue
// the series beyond the training window.
type arimaFit struct {
	p, d, q  int
	arCoeffs []float64
	maCoeffs []float64
	mean     float64 // mean of the stationary (differenced) series

	// lastCentered and lastErrors seed the forecast recursion.
	lastCentered []float64
	lastErrors   []float64
	// integrationTails holds the last value of each differencing stage of
	// the original series, used to invert the differencing.
	integrationTails []float64

	residuals   []float64
	residualStd float64
	aic         float64
}

func (f *arimaFit) orderString() string {
	return fmt.Sprintf("(%d,%d,%d)", f.p, f.d, f.q)
}

// estimateARIMA fits a single (p,d,q) order.
func estimateARIMA(values []float64, p, d, q int) (*arimaFit, error) {
	stationary := difference(values, d)
	if len(stationary) <= p+q+2 {
		return nil, fmt.Errorf("series too short after differencing: %d points for order (%d,%d,%d)",
			len(stationary), p, d, q)
	}
	if variance(stationary) < 1e-12 && (p > 0 || q > 0) {
		return nil, fmt.Errorf("constant series cannot identify order (%d,%d,%d)", p, d, q)
	}

	m := mean(stationary)
	centered := make([]float64, len(stationary))
	for i, v := range stationary {
		centered[i] = v - m
	}

	acfSeq := make([]float64, p+1)
	for k := 0; k <= p; k++ {
		acfSeq[k] = autocorr(centered, k)
	}
	arCoeffs, err := levinsonDurbin(acfSeq, p)
	if err != nil {
		return nil, err
	}

	// One-step residuals from the AR part alone seed the MA estimation.
	arResiduals := make([]float64, 0, len(centered)-p)
	for t := p; t < len(centered); t++ {
		pred := 0.0
		for i := 0; i < p; i++ {
			pred += arCoeffs[i] * centered[t-1-i]
		}
		arResiduals = append(arResiduals, centered[t]-pred)
	}

	maCoeffs := make([]float64, q)
	for j := 0; j < q && j < len(arResiduals); j++ {
		c := autocorr(arResiduals, j+1)
		if math.Abs(c) > 0.9 {
			c = math.Copysign(0.9, c)
		}
		maCoeffs[j] = c
	}

	// Full one-step innovations with both AR and MA terms.
	errs := make([]float64, len(centered))
	residuals := make([]float64, 0, len(centered)-p)
	for t := p; t < len(centered); t++ {
		pred := 0.0
		for i := 0; i < p; i++ {
			pred += arCoeffs[i] * centered[t-1-i]
		}
		for j := 0; j < q; j++ {
			if t-1-j >= 0 {
				pred += maCoeffs[j] * errs[t-1-j]
			}
		}
		errs[t] = centered[t] - pred
		residuals = append(residuals, errs[t])
	}

	nEff := float64(len(residuals))
	rss := 0.0
	for _, r := range residuals {
		rss += r * r
	}
	sigma2 := rss / nEff
	if sigma2 < 1e-12 {
		sigma2 = 1e-12
	}
	k := float64(p + q + 1)
	aic := nEff*math.Log(sigma2) + 2*k

	lastCentered := make([]float64, p)
	if p > 0 {
		copy(lastCentered, centered[len(centered)-p:])
	}
	lastErrors := make([]float64, q)
	if q > 0 {
		copy(lastErrors, errs[len(errs)-q:])
	}

	tails := make([]float64, d)
	seq := values
	for k := 0; k < d; k++ {
		tails[k] = seq[len(seq)-1]
		seq = difference(seq, 1)
	}

	return &arimaFit{
		p: p, d: d, q: q,
		arCoeffs:         arCoeffs,
		maCoeffs:         maCoeffs,
		mean:             m,
		lastCentered:     lastCentered,
		lastErrors:       lastErrors,
		integrationTails: tails,
		residuals:        residuals,
		residualStd:      math.Sqrt(sigma2),
		aic:              aic,
	}, nil
}

// fittedARIMA is the trained model handed back to the selector.
type fittedARIMA struct {
	fit        *arimaFit
	train      *models.TimeSeries
	metricType models.MetricType
	intervalZ  float64
}

// Kind identifies the strategy that produced the model.
func (m *fittedARIMA) Kind() models.ModelKind {
	return models.ModelKindARIMA
}

// Predict generates point forecasts with confidence intervals from the
// forecast standard error. Bounds are clipped per the metric type.
func (m *fittedARIMA) Predict(periods int) (*models.ForecastResult, error) {
	if periods < 1 {
		return nil, utils.NewForecastHorizonError(periods)
	}

	f := m.fit

	// Forecast recursion in the centered stationary space; future
	// innovations are their expectation, zero.
	centered := make([]float64, len(f.lastCentered))
	copy(centered, f.lastCentered)
	errs := make([]float64, len(f.lastErrors))
	copy(errs, f.lastErrors)

	stationary := make([]float64, periods)
	for h := 0; h < periods; h++ {
		pred := 0.0
		for i := 0; i < f.p; i++ {
			pred += f.arCoeffs[i] * centered[len(centered)-1-i]
		}
		for j := 0; j < f.q; j++ {
			pred += f.maCoeffs[j] * errs[len(errs)-1-j]
		}
		stationary[h] = pred + f.mean
		if f.p > 0 {
			centered = append(centered, pred)
		}
		if f.q > 0 {
			errs = append(errs, 0)
		}
	}

	// Invert the differencing by cumulative summation from the stored
	// tails, innermost stage first.
	forecast := stationary
	for k := f.d - 1; k >= 0; k-- {
		running := f.integrationTails[k]
		for i := range forecast {
			running += forecast[i]
			forecast[i] = running
		}
	}

	timestamps := m.train.FutureTimestamps(periods)
	points := make([]models.ForecastPoint, periods)
	for h := 0; h < periods; h++ {
		se := f.residualStd
		if f.d > 0 {
			se *= math.Sqrt(float64(h + 1))
		} else {
			se *= math.Sqrt(1 + 0.1*float64(h))
		}
		points[h] = clipForecastPoint(models.ForecastPoint{
			Timestamp: timestamps[h],
			Predicted: forecast[h],
			Lower:     forecast[h] - m.intervalZ*se,
			Upper:     forecast[h] + m.intervalZ*se,
		}, m.metricType)
	}

	return &models.ForecastResult{
		Points:    points,
		ModelUsed: models.ModelKindARIMA,
	}, nil
}

// Diagnostics exposes residual statistics of the fit.
func (m *fittedARIMA) Diagnostics() map[string]float64 {
	return map[string]float64{
		"residual_mean": mean(m.fit.residuals),
		"residual_std":  m.fit.residualStd,
		"residual_acf1": residualACF1(m.fit.residuals),
		"sample_size":   float64(len(m.fit.residuals)),
		"aic":           m.fit.aic,
	}
}
