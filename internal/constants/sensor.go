package constants

import "time"

// Reduction selects how repeated samples collapse into one reading.
type Reduction string

const (
	ReductionMean   Reduction = "mean"
	ReductionMedian Reduction = "median"
)

// Reductions lists every supported Reduction.
var Reductions = []Reduction{ReductionMean, ReductionMedian}

// Reference calibration for the capacitive moisture probe: raw ADC value at 100% saturation.
const DefaultMaxWetValue = 720

// Reference sampling parameters per sensor kind.
const (
	DefaultMoistureSamples = 10
	DefaultBatterySamples  = 5

	DefaultMoistureSettlingDelay = 1 * time.Second
	DefaultBatterySettlingDelay  = 10 * time.Millisecond
)

// Reference battery divider calibration (raw * 2 / 4095 / 0.3275 volts).
const (
	DefaultBatteryScaleNumerator        = 2.0
	DefaultBatteryScaleDenominator      = 4095.0
	DefaultBatteryScaleReferenceDivider = 0.3275
)
