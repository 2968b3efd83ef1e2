package anomaly

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Label classifies how far the newest value sits from its baseline.
type Label string

const (
	LabelNormal  Label = "normal"
	LabelWarning Label = "warning"
	LabelAnomaly Label = "anomaly"
)

// Level returns 0 for normal, 1 for warning and 2 for anomaly.
func (l Label) Level() int {
	switch l {
	case LabelWarning:
		return 1
	case LabelAnomaly:
		return 2
	}
	return 0
}

// Thresholds configures scoring for one metric.
type Thresholds struct {
	// MinSamples is the shortest series (baseline plus current) that gets scored.
	MinSamples int `koanf:"min_samples" yaml:"min_samples"`
	// StdFloor bounds the baseline standard deviation from below.
	StdFloor float64 `koanf:"std_floor" yaml:"std_floor"`
	// Low is the |z| at which a value becomes a warning.
	Low float64 `koanf:"low" yaml:"low"`
	// High is the |z| at which a value becomes an anomaly.
	High float64 `koanf:"high" yaml:"high"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSamples: 15,
		StdFloor:   0.5,
		Low:        1.5,
		High:       2.5,
	}
}

func (t Thresholds) Validate() error {
	if t.MinSamples < 2 {
		return fmt.Errorf("min_samples must be at least 2, got %d", t.MinSamples)
	}
	if t.StdFloor <= 0 {
		return fmt.Errorf("std_floor must be positive, got %v", t.StdFloor)
	}
	if t.Low <= 0 || t.High < t.Low {
		return fmt.Errorf("thresholds must satisfy 0 < low <= high, got low=%v high=%v", t.Low, t.High)
	}
	return nil
}

// Result is the score of the last value of a series.
type Result struct {
	Z     float64 `json:"z"`
	Label Label   `json:"label"`
}

// Score computes the z-score of the last element of series against all
// elements before it. Series shorter than MinSamples score as normal.
//
// Values are rescaled by a power of two before any arithmetic, so finite
// inputs of any magnitude never overflow and the z-score is unchanged.
func (t Thresholds) Score(series []float64) Result {
	if len(series) < t.MinSamples || len(series) < 2 {
		return Result{Z: 0, Label: LabelNormal}
	}

	exp, ok := scaleExponent(series)
	if !ok {
		return Result{Z: 0, Label: LabelNormal}
	}
	scaled := make([]float64, len(series))
	for i, v := range series {
		scaled[i] = math.Ldexp(v, -exp)
	}

	baseline := scaled[:len(scaled)-1]
	current := scaled[len(scaled)-1]

	mean, std := meanStd(baseline)
	if floor := math.Ldexp(t.StdFloor, -exp); std < floor {
		std = floor
	}

	return t.result((current - mean) / std)
}

func (t Thresholds) result(z float64) Result {
	switch {
	case math.IsNaN(z):
		return Result{Z: 0, Label: LabelNormal}
	case math.IsInf(z, 0):
		// Largest finite z keeps the result encodable.
		return Result{Z: math.Copysign(math.MaxFloat64, z), Label: LabelAnomaly}
	}
	z = round2(z)
	return Result{Z: z, Label: t.classify(z)}
}

func (t Thresholds) classify(z float64) Label {
	absZ := math.Abs(z)
	switch {
	case absZ >= t.High:
		return LabelAnomaly
	case absZ >= t.Low:
		return LabelWarning
	}
	return LabelNormal
}

// scaleExponent returns e such that every value divided by 2^e lies in (-2, 2).
// It reports false if any value is not finite.
func scaleExponent(values []float64) (int, bool) {
	var maxAbs float64
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	_, exp := math.Frexp(maxAbs)
	return exp - 1, true
}

// meanStd returns the mean and population standard deviation of values.
// Deviations are taken from the first value so identical values give an
// exact zero.
func meanStd(values []float64) (float64, float64) {
	pivot := values[0]
	n := float64(len(values))

	var sum, sumSq float64
	for _, v := range values {
		d := v - pivot
		sum += d
		sumSq += d * d
	}
	offset := sum / n
	variance := sumSq/n - offset*offset
	if variance < 0 {
		variance = 0
	}
	return pivot + offset, math.Sqrt(variance)
}

// round2 rounds half away from zero to two decimal places.
func round2(z float64) float64 {
	return decimal.NewFromFloat(z).Round(2).InexactFloat64()
}
