package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/vedanthundare/gurukul-forecast/internal/utils"
)

// timeFormats are the timestamp layouts accepted on the wire, checked in order.
var timeFormats = []string{
	time.RFC3339,
	"2006-01-02",
}

// TimePoint is a single observation in a time series. A non-finite value
// (NaN or Inf) is a placeholder for a missing observation at that timestamp.
type TimePoint struct {
	Timestamp time.Time `json:"date"`
	Value     float64   `json:"value"`
}

// IsObserved reports whether the point carries a usable (finite) value.
func (p TimePoint) IsObserved() bool {
	return !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0)
}

// UnmarshalJSON accepts {"date": "...", "value": n} with the date either as
// RFC 3339 or as a bare calendar day. A null value marks a missing observation.
func (p *TimePoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Date  string   `json:"date"`
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var parseErr error
	for _, layout := range timeFormats {
		var ts time.Time
		if ts, parseErr = time.Parse(layout, raw.Date); parseErr == nil {
			p.Timestamp = ts
			break
		}
	}
	if parseErr != nil {
		return fmt.Errorf("invalid date %q: %w", raw.Date, parseErr)
	}

	if raw.Value == nil {
		p.Value = math.NaN()
	} else {
		p.Value = *raw.Value
	}
	return nil
}

// MarshalJSON emits the point with an RFC 3339 date. Missing observations
// serialize with a null value.
func (p TimePoint) MarshalJSON() ([]byte, error) {
	raw := struct {
		Date  string   `json:"date"`
		Value *float64 `json:"value"`
	}{Date: p.Timestamp.Format(time.RFC3339)}
	if p.IsObserved() {
		v := p.Value
		raw.Value = &v
	}
	return json.Marshal(raw)
}

// TimeSeries is an ordered sequence of observations with strictly increasing
// timestamps. Construct through NewTimeSeries so the ordering invariant holds
// for the lifetime of the value; the slice is never mutated after validation.
type TimeSeries struct {
	points []TimePoint
}

// NewTimeSeries validates and wraps a sequence of points. It fails with an
// InvalidSeriesError when the sequence is empty, out of order, or contains
// duplicate timestamps. Non-finite values are accepted and treated as missing
// observations by consumers.
func NewTimeSeries(points []TimePoint) (*TimeSeries, error) {
	if len(points) == 0 {
		return nil, utils.NewInvalidSeriesError("series is empty")
	}
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1].Timestamp, points[i].Timestamp
		if cur.Equal(prev) {
			return nil, utils.NewInvalidSeriesErrorf("duplicate timestamp %s at index %d", cur.Format(time.RFC3339), i)
		}
		if cur.Before(prev) {
			return nil, utils.NewInvalidSeriesErrorf("timestamps not increasing at index %d (%s before %s)",
				i, cur.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
	}
	owned := make([]TimePoint, len(points))
	copy(owned, points)
	return &TimeSeries{points: owned}, nil
}

// Len returns the total number of points, observed or missing.
func (s *TimeSeries) Len() int {
	return len(s.points)
}

// Points returns a copy of the underlying points.
func (s *TimeSeries) Points() []TimePoint {
	out := make([]TimePoint, len(s.points))
	copy(out, s.points)
	return out
}

// At returns the point at index i.
func (s *TimeSeries) At(i int) TimePoint {
	return s.points[i]
}

// Last returns the final point of the series.
func (s *TimeSeries) Last() TimePoint {
	return s.points[len(s.points)-1]
}

// Observations returns only the points carrying finite values, in order.
func (s *TimeSeries) Observations() []TimePoint {
	out := make([]TimePoint, 0, len(s.points))
	for _, p := range s.points {
		if p.IsObserved() {
			out = append(out, p)
		}
	}
	return out
}

// ObservedValues returns the finite values of the series, in order.
func (s *TimeSeries) ObservedValues() []float64 {
	out := make([]float64, 0, len(s.points))
	for _, p := range s.points {
		if p.IsObserved() {
			out = append(out, p.Value)
		}
	}
	return out
}

// ObservedLen returns the number of finite observations.
func (s *TimeSeries) ObservedLen() int {
	n := 0
	for _, p := range s.points {
		if p.IsObserved() {
			n++
		}
	}
	return n
}

// Slice returns the sub-series covering points [i, j). The ordering invariant
// is inherited from the parent, so no revalidation happens.
func (s *TimeSeries) Slice(i, j int) *TimeSeries {
	sub := make([]TimePoint, j-i)
	copy(sub, s.points[i:j])
	return &TimeSeries{points: sub}
}

// DominantInterval infers the sampling interval of the series as the median
// gap between consecutive points. Series with fewer than two points report a
// daily interval, matching the serialization format's calendar orientation.
func (s *TimeSeries) DominantInterval() time.Duration {
	if len(s.points) < 2 {
		return 24 * time.Hour
	}
	gaps := make([]time.Duration, 0, len(s.points)-1)
	for i := 1; i < len(s.points); i++ {
		gaps = append(gaps, s.points[i].Timestamp.Sub(s.points[i-1].Timestamp))
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	return gaps[len(gaps)/2]
}

// FutureTimestamps continues the series beyond its last point at the dominant
// sampling interval, producing the timestamps for an n-period forecast.
func (s *TimeSeries) FutureTimestamps(n int) []time.Time {
	interval := s.DominantInterval()
	last := s.Last().Timestamp
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		last = last.Add(interval)
		out[i] = last
	}
	return out
}
