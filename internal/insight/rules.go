package insight

import (
	"fmt"

	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
)

// Severity of an insight, mirroring how a dashboard would color it.
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Level names the band a metric value falls in.
type Level string

const (
	LevelHigh        Level = "high"
	LevelLow         Level = "low"
	LevelComfortable Level = "comfortable"
	LevelNormal      Level = "normal"
	LevelVeryClose   Level = "very_close"
	LevelNearby      Level = "nearby"
	LevelClear       Level = "clear"
)

// Rules holds the fixed comfort and proximity bands.
type Rules struct {
	TemperatureHigh float64 `koanf:"temperature_high" yaml:"temperature_high"`
	TemperatureLow  float64 `koanf:"temperature_low" yaml:"temperature_low"`
	HumidityHigh    float64 `koanf:"humidity_high" yaml:"humidity_high"`
	HumidityLow     float64 `koanf:"humidity_low" yaml:"humidity_low"`
	DistanceClose   int     `koanf:"distance_very_close" yaml:"distance_very_close"`
	DistanceNearby  int     `koanf:"distance_nearby" yaml:"distance_nearby"`
}

func DefaultRules() Rules {
	return Rules{
		TemperatureHigh: 32,
		TemperatureLow:  18,
		HumidityHigh:    70,
		HumidityLow:     30,
		DistanceClose:   30,
		DistanceNearby:  50,
	}
}

func (r Rules) Validate() error {
	if r.TemperatureLow >= r.TemperatureHigh {
		return fmt.Errorf("temperature_low (%v) must be below temperature_high (%v)", r.TemperatureLow, r.TemperatureHigh)
	}
	if r.HumidityLow >= r.HumidityHigh {
		return fmt.Errorf("humidity_low (%v) must be below humidity_high (%v)", r.HumidityLow, r.HumidityHigh)
	}
	if r.DistanceClose <= 0 || r.DistanceNearby <= r.DistanceClose {
		return fmt.Errorf("distance bands must satisfy 0 < very_close < nearby, got %d/%d", r.DistanceClose, r.DistanceNearby)
	}
	return nil
}

// Insight is one human-readable observation about a reading.
type Insight struct {
	Metric   v1.Metric `json:"metric"`
	Level    Level     `json:"level"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

// Evaluate returns one insight per metric, in metric order.
// The reading's distance is expected to be normalized already.
func (r Rules) Evaluate(reading v1.Reading) []Insight {
	return []Insight{
		r.temperature(reading.Temperature),
		r.humidity(reading.Humidity),
		r.distance(reading.Distance),
	}
}

func (r Rules) temperature(v float64) Insight {
	in := Insight{Metric: v1.MetricTemperature}
	switch {
	case v > r.TemperatureHigh:
		in.Level, in.Severity, in.Message = LevelHigh, SeverityCritical, "High temperature detected"
	case v < r.TemperatureLow:
		in.Level, in.Severity, in.Message = LevelLow, SeverityWarning, "Low temperature detected"
	default:
		in.Level, in.Severity, in.Message = LevelComfortable, SeverityOK, "Temperature is comfortable"
	}
	return in
}

func (r Rules) humidity(v float64) Insight {
	in := Insight{Metric: v1.MetricHumidity}
	switch {
	case v > r.HumidityHigh:
		in.Level, in.Severity, in.Message = LevelHigh, SeverityWarning, "High humidity"
	case v < r.HumidityLow:
		in.Level, in.Severity, in.Message = LevelLow, SeverityWarning, "Low humidity"
	default:
		in.Level, in.Severity, in.Message = LevelNormal, SeverityOK, "Humidity is normal"
	}
	return in
}

func (r Rules) distance(v int) Insight {
	in := Insight{Metric: v1.MetricDistance}
	switch {
	case v < r.DistanceClose:
		in.Level, in.Severity = LevelVeryClose, SeverityCritical
		in.Message = fmt.Sprintf("Object very close (%d cm)", v)
	case v < r.DistanceNearby:
		in.Level, in.Severity = LevelNearby, SeverityWarning
		in.Message = fmt.Sprintf("Object nearby (%d cm)", v)
	default:
		in.Level, in.Severity, in.Message = LevelClear, SeverityOK, "No object nearby"
	}
	return in
}
