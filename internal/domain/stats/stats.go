// Package stats provides the shared statistical primitives for the
// percentile engine: a first-class "undefined" value marker plus the
// basic estimators every aggregation layer reuses.
package stats

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
)

// Value is a statistic that may be undefined. Undefined values serialize
// as JSON null and are never coerced to zero by aggregation code.
type Value struct {
	Float float64
	Valid bool
}

// Defined wraps a concrete statistic.
func Defined(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{Float: f, Valid: true}
}

// Undefined returns the missing-value marker.
func Undefined() Value {
	return Value{}
}

var nullJSON = []byte("null")

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return nullJSON, nil
	}
	return json.Marshal(v.Float)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), nullJSON) {
		*v = Value{}
		return nil
	}
	if err := json.Unmarshal(data, &v.Float); err != nil {
		return err
	}
	v.Valid = true
	return nil
}

// Mean returns the arithmetic mean, undefined for an empty sample.
func Mean(xs []float64) Value {
	if len(xs) == 0 {
		return Undefined()
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return Defined(sum / float64(len(xs)))
}

// StdDev returns the sample standard deviation (n-1 denominator),
// undefined for samples smaller than 2.
func StdDev(xs []float64) Value {
	if len(xs) < 2 {
		return Undefined()
	}
	m := Mean(xs).Float
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return Defined(math.Sqrt(ss / float64(len(xs)-1)))
}

// Median returns the sample median, undefined for an empty sample.
func Median(xs []float64) Value {
	return Percentile(xs, 50)
}

// Percentile returns the p-th percentile (0-100) using linear
// interpolation between closest ranks, undefined for an empty sample.
func Percentile(xs []float64, p float64) Value {
	if len(xs) == 0 {
		return Undefined()
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return Defined(sorted[lo])
	}
	frac := rank - float64(lo)
	return Defined(sorted[lo]*(1-frac) + sorted[hi]*frac)
}

// Variance returns the sample variance (n-1 denominator), undefined for
// samples smaller than 2.
func Variance(xs []float64) Value {
	sd := StdDev(xs)
	if !sd.Valid {
		return Undefined()
	}
	return Defined(sd.Float * sd.Float)
}

// Correlation returns the Pearson correlation of two equal-length series,
// undefined when either side has zero variance or fewer than 2 points.
func Correlation(xs, ys []float64) Value {
	n := len(xs)
	if n != len(ys) || n < 2 {
		return Undefined()
	}
	mx := Mean(xs).Float
	my := Mean(ys).Float
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		dy := ys[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return Undefined()
	}
	return Defined(sxy / math.Sqrt(sxx*syy))
}

// LinearSlope returns the least-squares slope of y against x, undefined
// when x has zero variance or fewer than 2 points are given.
func LinearSlope(xs, ys []float64) Value {
	n := len(xs)
	if n != len(ys) || n < 2 {
		return Undefined()
	}
	mx := Mean(xs).Float
	my := Mean(ys).Float
	var sxy, sxx float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		sxy += dx * (ys[i] - my)
		sxx += dx * dx
	}
	if sxx == 0 {
		return Undefined()
	}
	return Defined(sxy / sxx)
}
