package models

import (
	"time"

	"github.com/benmeehan/soil-node/internal/constants"
	"github.com/benmeehan/soil-node/pkg/codec"
)

// CycleOutcome is the result of one wake cycle. The entry point either resets the node
// (FatalResetRequested) or sleeps for NextSleepDuration.
type CycleOutcome struct {
	Sent                bool
	NextSleepDuration   time.Duration
	FatalResetRequested bool

	// Interrupted is set when the cycle context was cancelled before completion.
	Interrupted bool

	JoinState constants.JoinState
	Moisture  FilteredReading
	Battery   FilteredReading
	Degraded  []SensorKind
	Uplink    []byte
	Downlink  codec.DownlinkPacket
}
