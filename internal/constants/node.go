package constants

import "time"

// Reference values used when the configuration leaves a field empty.
const (
	DefaultDeviceID        = 0x01
	DefaultProtocolVersion = "1.1.0"
	DefaultDownlinkMaxSize = 64

	DefaultSleepInterval     = 30 * time.Second
	DefaultPostTransmitDelay = 1 * time.Second
	DefaultReceiveTimeout    = 5 * time.Second

	DefaultJoinTimeout      = 120 * time.Second
	DefaultJoinPollInterval = 2500 * time.Millisecond

	DefaultTopicPrefix        = "soilnode"
	DefaultMQTTQOS            = 1
	DefaultMQTTConnectRetries = 3

	DefaultADCBaudRate    = 115200
	DefaultADCReadTimeout = 500 * time.Millisecond
)

// SensorUnavailableValue is encoded in place of a reading whose source could not be
// initialised. It lies outside every meaningful moisture and centivolt range.
const SensorUnavailableValue uint32 = 0xFFFFFFFF

// ExitResetRequested is the process exit status asking the supervisor for a full reset.
const ExitResetRequested = 2
