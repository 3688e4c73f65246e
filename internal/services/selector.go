package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vedanthundare/gurukul-forecast/internal/config"
	"github.com/vedanthundare/gurukul-forecast/internal/models"
	"github.com/vedanthundare/gurukul-forecast/internal/telemetry"
	"github.com/vedanthundare/gurukul-forecast/internal/utils"
)

// SmartModelSelector ties assessment, candidate fitting and evaluation into
// one decision: which forecasting strategy to trust for a given series.
//
// Every call is independent; the selector holds only configuration and
// collaborators, never per-series state, so concurrent calls with separate
// series need no locking. Recoverable failures (too little data, a candidate
// that will not fit) become routing decisions, not errors; only an invalid
// series or horizon reaches the caller as an error.
type SmartModelSelector struct {
	cfg       config.ForecastConfig
	logger    *logrus.Logger
	tracer    trace.Tracer
	assessor  *DataQualityAssessor
	evaluator *ModelPerformanceEvaluator
}

// NewSmartModelSelector creates a selector from the forecast configuration.
func NewSmartModelSelector(cfg config.ForecastConfig, logger *logrus.Logger) *SmartModelSelector {
	return &SmartModelSelector{
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer(telemetry.TracerName),
		assessor:  NewDataQualityAssessor(cfg.Assessor, logger),
		evaluator: NewModelPerformanceEvaluator(cfg.Evaluation, logger),
	}
}

// Assessor exposes the selector's quality assessor for callers that want the
// report without a full selection.
func (s *SmartModelSelector) Assessor() *DataQualityAssessor {
	return s.assessor
}

// SelectBestModel runs the full selection pipeline: assess the series,
// filter candidates, evaluate the survivors on held-out data, and return the
// winner with its forecast and a numeric justification.
//
// Fatal errors are limited to an invalid horizon (ForecastHorizonError), an
// invalid series (InvalidSeriesError), and a series on which not even the
// fallback can be computed. Everything else degrades to the fallback
// moving-average with confidence low.
func (s *SmartModelSelector) SelectBestModel(ctx context.Context, series *models.TimeSeries, metricType models.MetricType, periods int) (result *models.SelectionResult, err error) {
	if periods < 1 {
		return nil, utils.NewForecastHorizonError(periods)
	}
	if series == nil || series.Len() == 0 {
		return nil, utils.NewInvalidSeriesError("series is empty")
	}
	if metricType == "" {
		metricType = models.MetricTypeGeneral
	}

	selectionID := uuid.New().String()
	log := s.logger.WithFields(logrus.Fields{
		"selection_id": selectionID,
		"metric_type":  metricType,
		"periods":      periods,
		"points":       series.Len(),
	})

	ctx, span := s.tracer.Start(ctx, "selector.SelectBestModel",
		trace.WithAttributes(
			attribute.String("forecast.metric_type", string(metricType)),
			attribute.Int("forecast.periods", periods),
			attribute.Int("forecast.series_points", series.Len()),
		))
	defer func() {
		if result != nil {
			span.SetAttributes(
				attribute.String("forecast.selected_model", string(result.SelectedModel)),
				attribute.String("forecast.state", string(result.State)),
				attribute.String("forecast.confidence", string(result.Confidence)),
			)
		}
		span.End()
	}()

	report, err := s.assessor.Assess(series)
	if err != nil {
		var insufficient *utils.InsufficientDataError
		if errors.As(err, &insufficient) {
			log.WithError(err).Info("State ASSESSED: routing straight to fallback")
			return s.selectFallback(ctx, log, series, metricType, periods, nil,
				"insufficient data for advanced modeling", selectionID)
		}
		return nil, err
	}
	log.WithField("recommended", report.RecommendedModels).Debug("State ASSESSED")

	advanced := make([]models.ModelKind, 0, len(report.RecommendedModels))
	for _, kind := range report.RecommendedModels {
		if kind != models.ModelKindFallbackMovingAverage {
			advanced = append(advanced, kind)
		}
	}
	if len(advanced) == 0 {
		return s.selectFallback(ctx, log, series, metricType, periods, report,
			fmt.Sprintf("series too short for advanced modeling (%d points)", report.Length), selectionID)
	}

	train, test, err := s.evaluator.TrainTestSplit(series)
	if err != nil {
		return s.selectFallback(ctx, log, series, metricType, periods, report,
			"series cannot be split for evaluation", selectionID)
	}

	// Fit and evaluate every recommended candidate; failures exclude the
	// candidate, never the whole call.
	results := make([]*EvaluationResult, 0, len(advanced))
	for _, kind := range advanced {
		adapter := s.adapterFor(kind, metricType)
		if adapter == nil {
			continue
		}
		if !adapter.Available() {
			log.WithField("model", kind).Info("Candidate unavailable, excluded")
			continue
		}
		evaluated, evalErr := s.evaluator.EvaluateModel(ctx, adapter, train, test)
		if evalErr != nil {
			log.WithField("model", kind).WithError(evalErr).Warn("Candidate excluded after fit failure")
			continue
		}
		results = append(results, evaluated)
	}
	log.WithField("candidates", len(results)).Debug("State CANDIDATES_FITTED")

	if len(results) == 0 {
		return s.selectFallback(ctx, log, series, metricType, periods, report,
			"all candidate models failed to fit", selectionID)
	}

	comparison, err := s.evaluator.CompareModels(results)
	if err != nil {
		return s.selectFallback(ctx, log, series, metricType, periods, report,
			"candidate comparison failed", selectionID)
	}
	log.WithField("best", comparison.Best.Kind).Debug("State EVALUATED")

	// Refit the winner on the full series so the returned model has seen
	// the held-out window too. The evaluation fit is the safety net.
	finalModel := comparison.Best.Model
	if adapter := s.adapterFor(comparison.Best.Kind, metricType); adapter != nil {
		if refit, refitErr := adapter.Fit(ctx, series); refitErr == nil {
			finalModel = refit
		} else {
			log.WithError(refitErr).Warn("Full-series refit failed, keeping evaluation fit")
		}
	}

	forecast, err := finalModel.Predict(periods)
	if err != nil {
		return nil, fmt.Errorf("selected model failed to forecast: %w", err)
	}

	confidence := comparison.Confidence
	if diagnosticsFlagged(finalModel.Diagnostics()) {
		confidence = confidence.Downgrade()
		log.WithField("model", comparison.Best.Kind).Debug("Residual diagnostics flagged, confidence downgraded")
	}

	scores := make(map[models.ModelKind]models.AccuracyMetrics, len(results))
	for _, r := range results {
		scores[r.Kind] = r.Metrics
	}

	result = &models.SelectionResult{
		SelectionID:     selectionID,
		SelectedModel:   comparison.Best.Kind,
		Model:           finalModel,
		SelectionReason: selectionReason(comparison),
		Confidence:      confidence,
		State:           models.StateSelected,
		ForecastData:    forecast.Points,
		CandidateScores: scores,
		DataAssessment:  report,
	}
	log.WithFields(logrus.Fields{
		"selected":   result.SelectedModel,
		"confidence": result.Confidence,
	}).Info("State SELECTED")
	return result, nil
}

// selectFallback fits the moving-average strategy on the full series. This
// is the one place a selection can still fail: a series with no usable
// observations at all.
func (s *SmartModelSelector) selectFallback(ctx context.Context, log *logrus.Entry, series *models.TimeSeries, metricType models.MetricType, periods int, report *models.DataQualityReport, reason, selectionID string) (*models.SelectionResult, error) {
	adapter := NewMovingAverageAdapter(s.cfg.Fallback, metricType, s.logger)
	model, err := adapter.Fit(ctx, series)
	if err != nil {
		log.WithError(err).Error("State FAILED: fallback could not be computed")
		return nil, utils.NewInvalidSeriesError("series has no usable observations for any model")
	}

	forecast, err := model.Predict(periods)
	if err != nil {
		return nil, err
	}

	log.WithField("reason", reason).Info("State FALLBACK_SELECTED")
	return &models.SelectionResult{
		SelectionID:     selectionID,
		SelectedModel:   models.ModelKindFallbackMovingAverage,
		Model:           model,
		SelectionReason: reason,
		Confidence:      models.ConfidenceLow,
		State:           models.StateFallbackSelected,
		ForecastData:    forecast.Points,
		CandidateScores: map[models.ModelKind]models.AccuracyMetrics{},
		DataAssessment:  report,
	}, nil
}

func (s *SmartModelSelector) adapterFor(kind models.ModelKind, metricType models.MetricType) CandidateModelAdapter {
	switch kind {
	case models.ModelKindProphet:
		return NewProphetAdapter(s.cfg.Prophet, metricType, s.logger)
	case models.ModelKindARIMA:
		return NewARIMAAdapter(s.cfg.ARIMA, metricType, s.logger)
	case models.ModelKindFallbackMovingAverage:
		return NewMovingAverageAdapter(s.cfg.Fallback, metricType, s.logger)
	default:
		return nil
	}
}

// selectionReason names the winner's numeric advantage over the runner-up.
func selectionReason(comparison *ComparisonReport) string {
	best := comparison.Best
	if comparison.RunnerUp == nil {
		return fmt.Sprintf("%s was the only candidate to fit successfully (MAE %.2f)",
			best.Kind, best.Metrics.MAE)
	}

	runner := comparison.RunnerUp
	improvement := (1 - comparison.AdvantageRatio) * 100
	if improvement < 0.05 {
		return fmt.Sprintf("%s MAE %.2f vs %s MAE %.2f (no measurable advantage, tie broken by RMSE)",
			best.Kind, best.Metrics.MAE, runner.Kind, runner.Metrics.MAE)
	}
	return fmt.Sprintf("%s MAE %.2f vs %s MAE %.2f (%.1f%% improvement)",
		best.Kind, best.Metrics.MAE, runner.Kind, runner.Metrics.MAE, improvement)
}

// diagnosticsFlagged reports whether the residual diagnostics of a fit
// indicate a biased or autocorrelated fit: a residual mean far from zero
// relative to the residual spread, or strong lag-1 residual autocorrelation.
func diagnosticsFlagged(diag map[string]float64) bool {
	std := diag["residual_std"]
	if std > 0 && math.Abs(diag["residual_mean"]) > 0.25*std {
		return true
	}
	return math.Abs(diag["residual_acf1"]) > 0.5
}
