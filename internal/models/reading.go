package models

// SensorKind is the logical quantity a measurement source reports.
type SensorKind string

const (
	SensorKindMoisture SensorKind = "moisture"
	SensorKindBattery  SensorKind = "battery"
)

// SensorSample is a single raw measurement. It is consumed immediately and never persisted.
type SensorSample struct {
	Kind  SensorKind `json:"kind"`
	Value int        `json:"value"`
}

// FilteredReading is the reduced result of SampleCount samples of one kind.
type FilteredReading struct {
	Kind        SensorKind `json:"kind"`
	Value       int        `json:"value"`
	SampleCount int        `json:"sample_count"`
}

// BatteryScale converts a raw battery ADC value to volts:
// raw * Numerator / Denominator / ReferenceDivider.
type BatteryScale struct {
	Numerator        float64 `yaml:"numerator" json:"numerator"`
	Denominator      float64 `yaml:"denominator" json:"denominator"`
	ReferenceDivider float64 `yaml:"reference_divider" json:"reference_divider"`
}
