package services

import "github.com/benmeehan/soil-node/internal/models"

// MoisturePercent converts a raw probe value to percent of saturation, truncated toward
// zero. Values past maxWet exceed 100 and are not clamped.
func MoisturePercent(raw, maxWet int) int {
	if maxWet <= 0 {
		return 0
	}
	return int(float64(raw) / float64(maxWet) * 100)
}

// BatteryCentivolts converts a raw battery divider value to hundredths of a volt.
func BatteryCentivolts(raw int, scale models.BatteryScale) int {
	if scale.Denominator == 0 || scale.ReferenceDivider == 0 {
		return 0
	}
	return int(float64(raw) * scale.Numerator / scale.Denominator / scale.ReferenceDivider * 100)
}
