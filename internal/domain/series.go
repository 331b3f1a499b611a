// Package domain defines the price series model shared by the analysis
// engine, the providers, and the API layer.
package domain

import (
	"fmt"
	"math"
	"time"
)

// Bar is a single OHLCV observation.
type Bar struct {
	Timestamp time.Time `json:"ts"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// PriceSeries is an ordered sequence of bars with strictly increasing
// timestamps. Construct via NewPriceSeries so malformed input is rejected
// up front; the analysis core assumes a validated series.
type PriceSeries struct {
	Symbol string
	Bars   []Bar
}

// MalformedSeriesError reports the first structural violation found in a
// candidate series: non-monotonic or duplicate timestamps, or a non-finite
// price/volume value.
type MalformedSeriesError struct {
	Index  int
	Reason string
}

func (e *MalformedSeriesError) Error() string {
	return fmt.Sprintf("malformed price series at index %d: %s", e.Index, e.Reason)
}

// InsufficientDataError reports a series too short for the configured
// lookback window and horizon set.
type InsufficientDataError struct {
	Required int
	Actual   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need %d bars, have %d", e.Required, e.Actual)
}

// NewPriceSeries validates bars and wraps them in a PriceSeries. The bars
// slice is not copied; the caller must not mutate it afterwards.
func NewPriceSeries(symbol string, bars []Bar) (*PriceSeries, error) {
	for i, b := range bars {
		if i > 0 {
			prev := bars[i-1].Timestamp
			if b.Timestamp.Equal(prev) {
				return nil, &MalformedSeriesError{Index: i, Reason: "duplicate timestamp"}
			}
			if b.Timestamp.Before(prev) {
				return nil, &MalformedSeriesError{Index: i, Reason: "non-monotonic timestamp"}
			}
		}
		for _, v := range [5]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &MalformedSeriesError{Index: i, Reason: "non-finite value"}
			}
		}
	}
	return &PriceSeries{Symbol: symbol, Bars: bars}, nil
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int { return len(s.Bars) }

// Closes returns the closing prices in order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Returns computes simple one-period returns; element i corresponds to the
// change from bar i to bar i+1, so the result is one shorter than the series.
func (s *PriceSeries) Returns() []float64 {
	if len(s.Bars) < 2 {
		return nil
	}
	rets := make([]float64, len(s.Bars)-1)
	for i := 1; i < len(s.Bars); i++ {
		rets[i-1] = (s.Bars[i].Close - s.Bars[i-1].Close) / s.Bars[i-1].Close
	}
	return rets
}

// ForwardReturn computes the relative close-to-close change from index t to
// t+h. The second return is false when t+h falls past the series end.
func (s *PriceSeries) ForwardReturn(t, h int) (float64, bool) {
	if t < 0 || h <= 0 || t+h >= len(s.Bars) {
		return 0, false
	}
	base := s.Bars[t].Close
	if base == 0 {
		return 0, false
	}
	return (s.Bars[t+h].Close - base) / base, true
}
