package utils

import "fmt"

// InsufficientDataError indicates a series is too short for statistical
// modeling. Callers are expected to recover by routing to the fallback
// moving-average strategy instead of surfacing this error.
type InsufficientDataError struct {
	Length   int
	Required int
}

// Error returns the error message string.
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d points, need at least %d", e.Length, e.Required)
}

// NewInsufficientDataError creates a new InsufficientDataError.
//
// Parameters:
//   - length: The number of usable observations in the series.
//   - required: The minimum number of observations required.
//
// Returns:
//   - An error interface wrapping the InsufficientDataError.
func NewInsufficientDataError(length, required int) error {
	return &InsufficientDataError{Length: length, Required: required}
}

// ModelFitError indicates a specific candidate model failed to fit, either
// because its implementation is unavailable or because estimation did not
// converge. Callers recover by excluding the candidate, not by aborting.
type ModelFitError struct {
	Model   string
	Message string
	Err     error
}

// Error returns the error message string.
func (e *ModelFitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model %s failed to fit: %s: %v", e.Model, e.Message, e.Err)
	}
	return fmt.Sprintf("model %s failed to fit: %s", e.Model, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ModelFitError) Unwrap() error {
	return e.Err
}

// NewModelFitError creates a new ModelFitError for the named model.
func NewModelFitError(model, message string, err error) error {
	return &ModelFitError{Model: model, Message: message, Err: err}
}

// InvalidSeriesError indicates the input series itself is unusable: empty,
// non-increasing timestamps, or duplicate timestamps. This is fatal and is
// surfaced to the caller.
type InvalidSeriesError struct {
	Message string
}

// Error returns the error message string.
func (e *InvalidSeriesError) Error() string {
	return "invalid series: " + e.Message
}

// NewInvalidSeriesError creates a new InvalidSeriesError with a specific message.
func NewInvalidSeriesError(message string) error {
	return &InvalidSeriesError{Message: message}
}

// NewInvalidSeriesErrorf creates a new InvalidSeriesError with a formatted message.
func NewInvalidSeriesErrorf(format string, args ...interface{}) error {
	return &InvalidSeriesError{Message: fmt.Sprintf(format, args...)}
}

// ForecastHorizonError indicates a forecast was requested for fewer than one
// period. The request is rejected, never silently clamped.
type ForecastHorizonError struct {
	Periods int
}

// Error returns the error message string.
func (e *ForecastHorizonError) Error() string {
	return fmt.Sprintf("forecast horizon must be at least 1 period, got %d", e.Periods)
}

// NewForecastHorizonError creates a new ForecastHorizonError.
func NewForecastHorizonError(periods int) error {
	return &ForecastHorizonError{Periods: periods}
}
