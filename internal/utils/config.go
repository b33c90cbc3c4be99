package utils

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/benmeehan/soil-node/internal/constants"
	"github.com/benmeehan/soil-node/internal/models"
	"github.com/benmeehan/soil-node/pkg/codec"
	"github.com/benmeehan/soil-node/pkg/file"
	"github.com/benmeehan/soil-node/pkg/network"
)

// Environment variables that override the configuration file.
const (
	EnvMQTTBroker = "SOILNODE_MQTT_BROKER"
	EnvLogLevel   = "SOILNODE_LOG_LEVEL"
)

// SensorConfig describes how one sensor is sampled.
type SensorConfig struct {
	Channel       int                 `yaml:"channel"`        // ADC bridge channel
	Samples       int                 `yaml:"samples"`        // Readings taken per cycle
	SettlingDelay time.Duration       `yaml:"settling_delay"` // Wait after powering before each reading
	Reduction     constants.Reduction `yaml:"reduction"`      // mean or median
	PowerLine     *uint32             `yaml:"power_line"`     // GPIO line gating the sensor supply, if any
}

// Config represents the structure of the configuration file.
type Config struct {
	Device struct {
		ID           uint8  `yaml:"id"`            // Identifier carried in every uplink
		IdentityFile string `yaml:"identity_file"` // Path to the device identity file
	} `yaml:"device"`

	Protocol struct {
		Version         string `yaml:"version"`           // Uplink layout version
		DownlinkMaxSize int    `yaml:"downlink_max_size"` // Largest accepted downlink in bytes
	} `yaml:"protocol"`

	Cycle struct {
		SleepInterval     time.Duration `yaml:"sleep_interval"`      // Sleep between wake cycles
		PostTransmitDelay time.Duration `yaml:"post_transmit_delay"` // Guard delay after the uplink
		ReceiveDownlink   bool          `yaml:"receive_downlink"`    // Open a downlink window after the uplink
		ReceiveTimeout    time.Duration `yaml:"receive_timeout"`     // Length of the downlink window
	} `yaml:"cycle"`

	Join struct {
		Mode         string        `yaml:"mode"`          // otaa or abp
		Timeout      time.Duration `yaml:"timeout"`       // Reset the node when joining takes longer
		PollInterval time.Duration `yaml:"poll_interval"` // Interval between membership checks
	} `yaml:"join"`

	Sensors struct {
		Moisture struct {
			SensorConfig `yaml:",inline"`
			MaxWetValue  int `yaml:"max_wet_value"` // Raw value at 100% saturation
		} `yaml:"moisture"`

		Battery struct {
			SensorConfig `yaml:",inline"`
			Disabled     bool                `yaml:"disabled"` // No battery divider wired
			Scale        models.BatteryScale `yaml:"scale"`
		} `yaml:"battery"`
	} `yaml:"sensors"`

	Hardware struct {
		ADCPort        string        `yaml:"adc_port"`         // Serial port of the ADC bridge
		ADCBaudRate    int           `yaml:"adc_baud_rate"`    // Baud rate of the ADC bridge
		ADCReadTimeout time.Duration `yaml:"adc_read_timeout"` // Per reading timeout
		GPIOChip       string        `yaml:"gpio_chip"`        // GPIO character device, e.g. gpiochip0
		Indicator      struct {
			Enabled   bool   `yaml:"enabled"`    // Drive LEDs instead of logging status
			RedLine   uint32 `yaml:"red_line"`   // Not joined / resetting
			GreenLine uint32 `yaml:"green_line"` // Ready
		} `yaml:"indicator"`
	} `yaml:"hardware"`

	MQTT struct {
		Broker         string        `yaml:"broker"`          // MQTT broker address
		ClientID       string        `yaml:"client_id"`       // MQTT client ID prefix
		CACertificate  string        `yaml:"ca_certificate"`  // Path to the CA certificate, empty for plain TCP
		Username       string        `yaml:"username"`        // Optional broker username
		Password       string        `yaml:"password"`        // Optional broker password
		TopicPrefix    string        `yaml:"topic_prefix"`    // Prefix of every gateway topic
		QOS            int           `yaml:"qos"`             // MQTT QoS level
		ConnectTimeout time.Duration `yaml:"connect_timeout"` // Broker connect timeout
		ConnectRetries int           `yaml:"connect_retries"` // Retries after a failed connect
	} `yaml:"mqtt"`

	Storage struct {
		SessionDir     string `yaml:"session_dir"`      // Directory of the persisted session
		SessionKeyFile string `yaml:"session_key_file"` // AES key sealing the session, derived from the AppKey when empty
	} `yaml:"storage"`

	Log struct {
		Level string `yaml:"level"` // zerolog level name
	} `yaml:"log"`
}

// DefaultConfig returns a Config holding the reference defaults. LoadConfig decodes the
// file on top of it, so keys absent from the file keep these values and explicit zeros stay.
func DefaultConfig() *Config {
	var c Config
	c.Device.ID = constants.DefaultDeviceID
	c.Protocol.Version = constants.DefaultProtocolVersion
	c.Protocol.DownlinkMaxSize = constants.DefaultDownlinkMaxSize

	c.Cycle.SleepInterval = constants.DefaultSleepInterval
	c.Cycle.PostTransmitDelay = constants.DefaultPostTransmitDelay
	c.Cycle.ReceiveTimeout = constants.DefaultReceiveTimeout

	c.Join.Mode = string(network.ActivationOTAA)
	c.Join.Timeout = constants.DefaultJoinTimeout
	c.Join.PollInterval = constants.DefaultJoinPollInterval

	c.Sensors.Moisture.SensorConfig = SensorConfig{
		Samples:       constants.DefaultMoistureSamples,
		SettlingDelay: constants.DefaultMoistureSettlingDelay,
		Reduction:     constants.ReductionMean,
	}
	c.Sensors.Moisture.MaxWetValue = constants.DefaultMaxWetValue

	c.Sensors.Battery.SensorConfig = SensorConfig{
		Samples:       constants.DefaultBatterySamples,
		SettlingDelay: constants.DefaultBatterySettlingDelay,
		Reduction:     constants.ReductionMedian,
	}
	c.Sensors.Battery.Scale = models.BatteryScale{
		Numerator:        constants.DefaultBatteryScaleNumerator,
		Denominator:      constants.DefaultBatteryScaleDenominator,
		ReferenceDivider: constants.DefaultBatteryScaleReferenceDivider,
	}

	c.Hardware.ADCBaudRate = constants.DefaultADCBaudRate
	c.Hardware.ADCReadTimeout = constants.DefaultADCReadTimeout

	c.MQTT.TopicPrefix = constants.DefaultTopicPrefix
	c.MQTT.QOS = constants.DefaultMQTTQOS
	c.MQTT.ConnectRetries = constants.DefaultMQTTConnectRetries

	c.Log.Level = "info"
	return &c
}

// LoadConfig loads the YAML configuration from the specified file over the reference
// defaults, applies environment overrides and validates the result.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	config := DefaultConfig()
	err := fileClient.ReadYamlFile(filename, config)
	if err != nil {
		return nil, err
	}

	config.applyEnv(os.LookupEnv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", filename, err)
	}
	return config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvMQTTBroker); ok && v != "" {
		c.MQTT.Broker = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
}

// Validate rejects configurations the node cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if _, err := codec.ParseLayout(c.Protocol.Version); err != nil {
		errs = append(errs, err)
	}
	if c.Protocol.DownlinkMaxSize < 0 {
		errs = append(errs, errors.New("protocol.downlink_max_size must not be negative"))
	}
	if _, err := network.ParseActivationMode(c.Join.Mode); err != nil {
		errs = append(errs, fmt.Errorf("join.mode: %w", err))
	}

	for name, d := range map[string]time.Duration{
		"cycle.sleep_interval":  c.Cycle.SleepInterval,
		"cycle.receive_timeout": c.Cycle.ReceiveTimeout,
		"join.timeout":          c.Join.Timeout,
		"join.poll_interval":    c.Join.PollInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.Cycle.PostTransmitDelay < 0 {
		errs = append(errs, errors.New("cycle.post_transmit_delay must not be negative"))
	}

	errs = append(errs, validateSensor("sensors.moisture", c.Sensors.Moisture.SensorConfig)...)
	if c.Sensors.Moisture.MaxWetValue <= 0 {
		errs = append(errs, errors.New("sensors.moisture.max_wet_value must be positive"))
	}
	if !c.Sensors.Battery.Disabled {
		errs = append(errs, validateSensor("sensors.battery", c.Sensors.Battery.SensorConfig)...)
		if c.Sensors.Battery.Scale.Denominator == 0 || c.Sensors.Battery.Scale.ReferenceDivider == 0 {
			errs = append(errs, errors.New("sensors.battery.scale denominator and reference_divider must be non-zero"))
		}
	}

	if c.Hardware.ADCPort == "" {
		errs = append(errs, errors.New("hardware.adc_port is required"))
	}
	if c.Hardware.GPIOChip == "" && (c.Sensors.Moisture.PowerLine != nil || c.Sensors.Battery.PowerLine != nil || c.Hardware.Indicator.Enabled) {
		errs = append(errs, errors.New("hardware.gpio_chip is required when GPIO lines are configured"))
	}

	if c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}
	if c.MQTT.QOS < 0 || c.MQTT.QOS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QOS))
	}
	if c.MQTT.ConnectRetries < 0 {
		errs = append(errs, errors.New("mqtt.connect_retries must not be negative"))
	}
	if c.Storage.SessionDir == "" {
		errs = append(errs, errors.New("storage.session_dir is required"))
	}
	if c.Device.IdentityFile == "" {
		errs = append(errs, errors.New("device.identity_file is required"))
	}

	return errors.Join(errs...)
}

func validateSensor(name string, s SensorConfig) []error {
	var errs []error
	if s.Samples < 1 {
		errs = append(errs, fmt.Errorf("%s.samples must be at least 1, got %d", name, s.Samples))
	}
	if s.SettlingDelay < 0 {
		errs = append(errs, fmt.Errorf("%s.settling_delay must not be negative", name))
	}
	if !slices.Contains(constants.Reductions, s.Reduction) {
		errs = append(errs, fmt.Errorf("%s.reduction %q is not one of %v", name, s.Reduction, constants.Reductions))
	}
	if s.Channel < 0 {
		errs = append(errs, fmt.Errorf("%s.channel must not be negative", name))
	}
	return errs
}
