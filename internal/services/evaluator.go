package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/vedanthundare/gurukul-forecast/internal/config"
	"github.com/vedanthundare/gurukul-forecast/internal/models"
	"github.com/vedanthundare/gurukul-forecast/internal/utils"
)

// EvaluationResult is one candidate's score on held-out data.
type EvaluationResult struct {
	Kind           models.ModelKind
	Model          models.FittedModel
	Metrics        models.AccuracyMetrics
	CrossValidated bool
}

// ComparisonReport ranks evaluated candidates and carries the confidence of
// the top choice.
type ComparisonReport struct {
	Ranked []*EvaluationResult
	Best   *EvaluationResult
	// RunnerUp is nil when only one candidate was evaluated.
	RunnerUp *EvaluationResult
	// AdvantageRatio is best MAE divided by runner-up MAE; 1 means no
	// measurable advantage.
	AdvantageRatio float64
	Confidence     models.Confidence
}

// ModelPerformanceEvaluator compares fitted candidates on held-out data
// using a chronological split, optionally hardened by rolling-origin
// cross-validation.
type ModelPerformanceEvaluator struct {
	cfg    config.EvaluationConfig
	logger *logrus.Logger
}

// NewModelPerformanceEvaluator creates a new evaluator.
func NewModelPerformanceEvaluator(cfg config.EvaluationConfig, logger *logrus.Logger) *ModelPerformanceEvaluator {
	return &ModelPerformanceEvaluator{cfg: cfg, logger: logger}
}

// TrainTestSplit splits the series chronologically: the test portion is the
// most recent TestFraction of points, never fewer than MinTestPoints, and
// the training portion keeps at least one point. Time ordering is preserved;
// there is no shuffling.
func (e *ModelPerformanceEvaluator) TrainTestSplit(series *models.TimeSeries) (train, test *models.TimeSeries, err error) {
	n := series.Len()
	if n < 2 {
		return nil, nil, fmt.Errorf("cannot split series of %d points", n)
	}

	testN := int(math.Round(float64(n) * e.cfg.TestFraction))
	if testN < e.cfg.MinTestPoints {
		testN = e.cfg.MinTestPoints
	}
	if testN > n-1 {
		testN = n - 1
	}

	return series.Slice(0, n-testN), series.Slice(n-testN, n), nil
}

// EvaluateModel fits the adapter on the training window, forecasts the test
// window and scores the forecast. When the training window is long enough
// and cross-validation is enabled, rolling-origin folds are averaged into
// the reported metrics.
func (e *ModelPerformanceEvaluator) EvaluateModel(ctx context.Context, adapter CandidateModelAdapter, train, test *models.TimeSeries) (*EvaluationResult, error) {
	model, err := adapter.Fit(ctx, train)
	if err != nil {
		return nil, err
	}

	metrics, err := e.scoreForecast(model, test)
	if err != nil {
		return nil, utils.NewModelFitError(string(adapter.Kind()), "holdout scoring failed", err)
	}

	result := &EvaluationResult{
		Kind:    adapter.Kind(),
		Model:   model,
		Metrics: *metrics,
	}

	if e.cfg.CVEnabled && train.Len() >= e.cfg.CVMinTrainPoints && e.cfg.CVFolds > 0 {
		if cv := e.rollingOriginMetrics(ctx, adapter, train); cv != nil {
			result.Metrics = averageMetrics(result.Metrics, *cv)
			result.CrossValidated = true
		}
	}

	e.logger.WithFields(logrus.Fields{
		"model":           result.Kind,
		"mae":             result.Metrics.MAE,
		"rmse":            result.Metrics.RMSE,
		"cross_validated": result.CrossValidated,
	}).Debug("Candidate evaluated")

	return result, nil
}

// scoreForecast predicts the length of the test window and computes the
// accuracy metrics against its observed points, aligned by position.
func (e *ModelPerformanceEvaluator) scoreForecast(model models.FittedModel, test *models.TimeSeries) (*models.AccuracyMetrics, error) {
	forecast, err := model.Predict(test.Len())
	if err != nil {
		return nil, err
	}

	testPoints := test.Points()
	var sumAbs, sumSq, sumAbsPct float64
	var actuals []float64
	hasZeroTruth := false

	for i := 0; i < len(testPoints) && i < len(forecast.Points); i++ {
		if !testPoints[i].IsObserved() {
			continue
		}
		actual := testPoints[i].Value
		diff := actual - forecast.Points[i].Predicted
		sumAbs += math.Abs(diff)
		sumSq += diff * diff
		if actual == 0 {
			hasZeroTruth = true
		} else {
			sumAbsPct += math.Abs(diff/actual) * 100
		}
		actuals = append(actuals, actual)
	}

	if len(actuals) == 0 {
		return nil, errors.New("test window has no finite observations")
	}

	n := float64(len(actuals))
	metrics := &models.AccuracyMetrics{
		MAE:        sumAbs / n,
		RMSE:       math.Sqrt(sumSq / n),
		SampleSize: len(actuals),
	}
	// MAPE stays nil when a zero truth would divide by zero, and on a
	// degenerate constant window where a percentage error carries no signal.
	if !hasZeroTruth && (len(actuals) < 2 || variance(actuals) > 0) {
		mape := sumAbsPct / n
		metrics.MAPE = &mape
	}
	return metrics, nil
}

// rollingOriginMetrics re-scores the adapter on progressively larger
// training windows inside the training data. Folds whose fit fails are
// skipped; nil is returned when no fold produced a score.
func (e *ModelPerformanceEvaluator) rollingOriginMetrics(ctx context.Context, adapter CandidateModelAdapter, train *models.TimeSeries) *models.AccuracyMetrics {
	n := train.Len()
	chunk := n / (e.cfg.CVFolds + 1)
	if chunk < 1 {
		return nil
	}

	var folds []models.AccuracyMetrics
	for fold := 1; fold <= e.cfg.CVFolds; fold++ {
		trainEnd := fold * chunk
		testEnd := trainEnd + chunk
		if testEnd > n {
			testEnd = n
		}
		if trainEnd < 2 || testEnd <= trainEnd {
			continue
		}

		subTrain := train.Slice(0, trainEnd)
		subTest := train.Slice(trainEnd, testEnd)

		model, err := adapter.Fit(ctx, subTrain)
		if err != nil {
			continue
		}
		metrics, err := e.scoreForecast(model, subTest)
		if err != nil {
			continue
		}
		folds = append(folds, *metrics)
	}

	if len(folds) == 0 {
		return nil
	}

	avg := folds[0]
	for _, m := range folds[1:] {
		avg = averageMetrics(avg, m)
	}
	return &avg
}

// averageMetrics blends two metric sets with equal weight. MAPE survives
// only when both sides carry one, since a nil marks a zero-truth window.
func averageMetrics(a, b models.AccuracyMetrics) models.AccuracyMetrics {
	out := models.AccuracyMetrics{
		MAE:        (a.MAE + b.MAE) / 2,
		RMSE:       (a.RMSE + b.RMSE) / 2,
		SampleSize: a.SampleSize + b.SampleSize,
	}
	if a.MAPE != nil && b.MAPE != nil {
		mape := (*a.MAPE + *b.MAPE) / 2
		out.MAPE = &mape
	}
	return out
}

// CompareModels ranks candidates ascending by MAE, falling through to RMSE
// when two MAE values are within the tie epsilon. The sort is stable, so
// candidates that tie on both metrics keep the caller's preference order.
// The best/runner-up MAE ratio sets the confidence label.
func (e *ModelPerformanceEvaluator) CompareModels(results []*EvaluationResult) (*ComparisonReport, error) {
	if len(results) == 0 {
		return nil, errors.New("no evaluation results to compare")
	}

	ranked := make([]*EvaluationResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		if math.Abs(ranked[i].Metrics.MAE-ranked[j].Metrics.MAE) > e.cfg.TieEpsilon {
			return ranked[i].Metrics.MAE < ranked[j].Metrics.MAE
		}
		if math.Abs(ranked[i].Metrics.RMSE-ranked[j].Metrics.RMSE) > e.cfg.TieEpsilon {
			return ranked[i].Metrics.RMSE < ranked[j].Metrics.RMSE
		}
		return false
	})

	report := &ComparisonReport{
		Ranked:         ranked,
		Best:           ranked[0],
		AdvantageRatio: 1,
	}

	if len(ranked) == 1 {
		// A single surviving candidate has nothing to beat; medium reflects
		// that the choice was not contested.
		report.Confidence = models.ConfidenceMedium
		return report, nil
	}

	report.RunnerUp = ranked[1]
	if report.RunnerUp.Metrics.MAE > e.cfg.TieEpsilon {
		report.AdvantageRatio = report.Best.Metrics.MAE / report.RunnerUp.Metrics.MAE
	}

	switch {
	case report.AdvantageRatio < e.cfg.HighConfidenceRatio:
		report.Confidence = models.ConfidenceHigh
	case report.AdvantageRatio < e.cfg.MediumConfidenceRatio:
		report.Confidence = models.ConfidenceMedium
	default:
		report.Confidence = models.ConfidenceLow
	}

	return report, nil
}
