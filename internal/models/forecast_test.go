package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidenceDowngrade(t *testing.T) {
	assert.Equal(t, ConfidenceMedium, ConfidenceHigh.Downgrade())
	assert.Equal(t, ConfidenceLow, ConfidenceMedium.Downgrade())
	assert.Equal(t, ConfidenceLow, ConfidenceLow.Downgrade())
}

func TestSelectionResultJSON(t *testing.T) {
	mape := 12.5
	result := SelectionResult{
		SelectionID:     "sel-1",
		SelectedModel:   ModelKindARIMA,
		SelectionReason: "arima MAE 2.10 vs prophet MAE 3.40 (38.2% improvement)",
		Confidence:      ConfidenceHigh,
		State:           StateSelected,
		ForecastData: []ForecastPoint{
			{
				Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
				Predicted: 10,
				Lower:     8,
				Upper:     12,
			},
		},
		CandidateScores: map[ModelKind]AccuracyMetrics{
			ModelKindARIMA: {MAE: 2.1, RMSE: 2.9, MAPE: &mape, SampleSize: 20},
		},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "SELECTED", decoded["state"])
	assert.Equal(t, "arima", decoded["selected_model"])
	assert.Contains(t, decoded, "forecast_data")
	assert.Contains(t, decoded, "all_candidate_scores")
	// The fitted model itself never serializes.
	assert.NotContains(t, decoded, "Model")

	points := decoded["forecast_data"].([]any)
	point := points[0].(map[string]any)
	assert.Contains(t, point, "predicted_value")
	assert.Contains(t, point, "lower_bound")
	assert.Contains(t, point, "upper_bound")
}

func TestAccuracyMetricsNilMAPE(t *testing.T) {
	data, err := json.Marshal(AccuracyMetrics{MAE: 1, RMSE: 2, SampleSize: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"mae":1,"rmse":2,"mape":null,"sample_size":5}`, string(data))
}
