// Package hardware holds the narrow capability interfaces the telemetry cycle drives,
// and their Linux adapters.
package hardware

import "errors"

var ErrNotInitialized = errors.New("measurement source not initialized")

// PowerGate switches supply power to a sensor so it only draws current while sampled.
type PowerGate interface {
	Enable() error
	Disable() error
}

// MeasurementSource produces one raw integer reading on demand.
type MeasurementSource interface {
	Init() error
	Read() (int, error)
	Close() error
}

// Status is a node state shown on the status indicator.
type Status string

const (
	StatusOff       Status = "off"
	StatusNotJoined Status = "not_joined"
	StatusReady     Status = "ready"
	StatusResetting Status = "resetting"
)

// StatusIndicator reflects node status to an observer. It never affects the cycle result.
type StatusIndicator interface {
	Show(status Status) error
}
