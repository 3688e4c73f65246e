package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsufficientDataError(t *testing.T) {
	err := NewInsufficientDataError(3, 10)
	require.Error(t, err)
	assert.Equal(t, "insufficient data: 3 points, need at least 10", err.Error())

	var typed *InsufficientDataError
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, 3, typed.Length)
	assert.Equal(t, 10, typed.Required)
}

func TestModelFitError(t *testing.T) {
	cause := fmt.Errorf("matrix is singular")
	err := NewModelFitError("arima", "estimation failed", cause)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arima")
	assert.Contains(t, err.Error(), "estimation failed")
	assert.Contains(t, err.Error(), "matrix is singular")

	var typed *ModelFitError
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestModelFitErrorWithoutCause(t *testing.T) {
	err := NewModelFitError("prophet", "too few observations", nil)
	assert.Equal(t, "model prophet failed to fit: too few observations", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

func TestInvalidSeriesError(t *testing.T) {
	err := NewInvalidSeriesErrorf("duplicate timestamp at index %d", 4)
	require.Error(t, err)
	assert.Equal(t, "invalid series: duplicate timestamp at index 4", err.Error())

	var typed *InvalidSeriesError
	assert.True(t, errors.As(err, &typed))
}

func TestForecastHorizonError(t *testing.T) {
	err := NewForecastHorizonError(0)
	require.Error(t, err)
	assert.Equal(t, "forecast horizon must be at least 1 period, got 0", err.Error())

	var typed *ForecastHorizonError
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, 0, typed.Periods)
}
