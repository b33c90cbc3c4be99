package service_registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/soil-node/internal/models"
	"github.com/benmeehan/soil-node/internal/services"
	"github.com/benmeehan/soil-node/internal/utils"
	"github.com/benmeehan/soil-node/pkg/clock"
	"github.com/benmeehan/soil-node/pkg/codec"
	"github.com/benmeehan/soil-node/pkg/encryption"
	"github.com/benmeehan/soil-node/pkg/file"
	"github.com/benmeehan/soil-node/pkg/hardware"
	"github.com/benmeehan/soil-node/pkg/identity"
	"github.com/benmeehan/soil-node/pkg/mqtt"
	"github.com/benmeehan/soil-node/pkg/network"
	"github.com/benmeehan/soil-node/pkg/session"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gpio "github.com/temoto/gpio-cdev-go"
)

// component is a handle released when the cycle ends.
type component struct {
	name  string
	close func() error
}

// ServiceRegistry builds the component graph of one wake cycle and releases it afterwards.
type ServiceRegistry struct {
	config     *utils.Config
	fileClient file.FileOperations
	deviceInfo identity.DeviceInfoInterface
	clock      clock.Clock
	Logger     zerolog.Logger

	connectMQTT func(opts mqtt.Options) (mqtt.MQTTClient, error)
	openChip    func(path string) (gpio.Chiper, error)
	openPort    hardware.PortOpener

	components []component // in construction order
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(config *utils.Config, fileClient file.FileOperations, deviceInfo identity.DeviceInfoInterface,
	clk clock.Clock, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		config:      config,
		fileClient:  fileClient,
		deviceInfo:  deviceInfo,
		clock:       clk,
		Logger:      logger,
		connectMQTT: connectMQTT(fileClient, uint64(config.MQTT.ConnectRetries), logger),
		openChip: func(path string) (gpio.Chiper, error) {
			return gpio.Open(path, hardware.ConsumerLabel)
		},
		openPort: hardware.OpenSerialPort,
	}
}

// connectMQTT connects to the broker, retrying with exponential backoff.
func connectMQTT(fileClient file.FileOperations, retries uint64, logger zerolog.Logger) func(mqtt.Options) (mqtt.MQTTClient, error) {
	return func(opts mqtt.Options) (mqtt.MQTTClient, error) {
		service := mqtt.NewMqttService(fileClient)
		connect := func() error {
			return service.Initialize(opts)
		}
		notify := func(err error, next time.Duration) {
			logger.Warn().Err(err).Dur("retry_in", next).Msg("Broker connection failed")
		}
		if err := backoff.RetryNotify(connect, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries), notify); err != nil {
			return nil, err
		}
		return service, nil
	}
}

func (sr *ServiceRegistry) register(name string, close func() error) {
	sr.components = append(sr.components, component{name: name, close: close})
	sr.Logger.Debug().Str("component", name).Msg("Component opened")
}

// cycleGraph collects what the ordered constructors produce.
type cycleGraph struct {
	codec     *codec.Codec
	chip      gpio.Chiper
	gates     map[models.SensorKind]hardware.PowerGate
	indicator hardware.StatusIndicator
	adc       *hardware.SerialADC
	store     session.SessionStore
	network   network.NetworkTransport
	mode      network.ActivationMode
}

// BuildCycle constructs every component of a cycle in a fixed order. When a constructor
// fails, the components already opened are closed again.
func (sr *ServiceRegistry) BuildCycle() (*services.CycleService, error) {
	config := sr.config
	id := sr.deviceInfo.GetDeviceIdentity()
	g := &cycleGraph{gates: make(map[models.SensorKind]hardware.PowerGate)}

	moistureLine := config.Sensors.Moisture.PowerLine
	batteryLine := config.Sensors.Battery.PowerLine
	batteryEnabled := !config.Sensors.Battery.Disabled

	componentsInOrder := []struct {
		name        string
		enabled     bool
		constructor func() error
	}{
		{
			name:    "codec",
			enabled: true,
			constructor: func() (err error) {
				g.codec, err = codec.New(config.Protocol.Version, config.Protocol.DownlinkMaxSize)
				return err
			},
		},
		{
			name:    "gpio_chip",
			enabled: moistureLine != nil || (batteryEnabled && batteryLine != nil) || config.Hardware.Indicator.Enabled,
			constructor: func() (err error) {
				g.chip, err = sr.openChip(config.Hardware.GPIOChip)
				if err != nil {
					return err
				}
				sr.register("gpio_chip", g.chip.Close)
				return nil
			},
		},
		{
			name:    "moisture_power_gate",
			enabled: moistureLine != nil,
			constructor: func() error {
				gate, err := hardware.NewGPIOPowerGate(g.chip, *moistureLine)
				if err != nil {
					return err
				}
				g.gates[models.SensorKindMoisture] = gate
				sr.register("moisture_power_gate", gate.Close)
				return nil
			},
		},
		{
			name:    "battery_power_gate",
			enabled: batteryEnabled && batteryLine != nil,
			constructor: func() error {
				gate, err := hardware.NewGPIOPowerGate(g.chip, *batteryLine)
				if err != nil {
					return err
				}
				g.gates[models.SensorKindBattery] = gate
				sr.register("battery_power_gate", gate.Close)
				return nil
			},
		},
		{
			name:    "status_indicator",
			enabled: true,
			constructor: func() error {
				if !config.Hardware.Indicator.Enabled {
					g.indicator = hardware.NewLogIndicator(sr.Logger)
					return nil
				}
				indicator, err := hardware.NewGPIOIndicator(g.chip, config.Hardware.Indicator.RedLine, config.Hardware.Indicator.GreenLine)
				if err != nil {
					return err
				}
				g.indicator = indicator
				sr.register("status_indicator", indicator.Close)
				return nil
			},
		},
		{
			name:    "adc",
			enabled: true,
			constructor: func() error {
				// Opened lazily by the sampler so a missing bridge degrades the readings.
				g.adc = hardware.NewSerialADC(config.Hardware.ADCPort, config.Hardware.ADCBaudRate,
					config.Hardware.ADCReadTimeout, sr.openPort)
				sr.register("adc", g.adc.Close)
				return nil
			},
		},
		{
			name:    "session_store",
			enabled: true,
			constructor: func() error {
				sealer, err := sr.sessionSealer(id)
				if err != nil {
					return err
				}
				g.store = session.NewFileStore(config.Storage.SessionDir, sealer, sr.Logger)
				return nil
			},
		},
		{
			name:    "network",
			enabled: true,
			constructor: func() (err error) {
				g.mode, err = network.ParseActivationMode(config.Join.Mode)
				if err != nil {
					return err
				}
				client, err := sr.connectMQTT(mqtt.Options{
					Broker:         config.MQTT.Broker,
					ClientID:       sr.clientID(id),
					CACertPath:     config.MQTT.CACertificate,
					Username:       config.MQTT.Username,
					Password:       config.MQTT.Password,
					ConnectTimeout: config.MQTT.ConnectTimeout,
				})
				if err != nil {
					return err
				}
				mqttNetwork := network.NewMQTTNetwork(client, id, network.MQTTConfig{
					TopicPrefix: config.MQTT.TopicPrefix,
					QOS:         byte(config.MQTT.QOS),
				}, sr.Logger)
				g.network = mqttNetwork
				sr.register("network", mqttNetwork.Close)
				return nil
			},
		},
	}

	for _, c := range componentsInOrder {
		if !c.enabled {
			sr.Logger.Debug().Str("component", c.name).Msg("Component is disabled, skipping")
			continue
		}
		if err := c.constructor(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to create %s", c.name)
			if closeErr := sr.Close(); closeErr != nil {
				sr.Logger.Warn().Err(closeErr).Msg("Failed to release partially built cycle")
			}
			return nil, fmt.Errorf("failed to create %s: %w", c.name, err)
		}
	}

	return sr.assemble(g), nil
}

func (sr *ServiceRegistry) assemble(g *cycleGraph) *services.CycleService {
	config := sr.config

	moisture := services.SensorChannel{
		Kind:          models.SensorKindMoisture,
		Source:        g.adc.Channel(config.Sensors.Moisture.Channel),
		Gate:          g.gates[models.SensorKindMoisture],
		Samples:       config.Sensors.Moisture.Samples,
		SettlingDelay: config.Sensors.Moisture.SettlingDelay,
		Reduction:     config.Sensors.Moisture.Reduction,
	}

	var battery *services.SensorChannel
	if !config.Sensors.Battery.Disabled {
		battery = &services.SensorChannel{
			Kind:          models.SensorKindBattery,
			Source:        g.adc.Channel(config.Sensors.Battery.Channel),
			Gate:          g.gates[models.SensorKindBattery],
			Samples:       config.Sensors.Battery.Samples,
			SettlingDelay: config.Sensors.Battery.SettlingDelay,
			Reduction:     config.Sensors.Battery.Reduction,
		}
	}

	joiner := services.NewJoinService(g.network, g.indicator, sr.clock, g.mode,
		config.Join.Timeout, config.Join.PollInterval, sr.Logger)

	return services.NewCycleService(
		services.CycleSettings{
			DeviceID:          config.Device.ID,
			MaxWetValue:       config.Sensors.Moisture.MaxWetValue,
			BatteryScale:      config.Sensors.Battery.Scale,
			SleepInterval:     config.Cycle.SleepInterval,
			PostTransmitDelay: config.Cycle.PostTransmitDelay,
			ReceiveDownlink:   config.Cycle.ReceiveDownlink,
			ReceiveTimeout:    config.Cycle.ReceiveTimeout,
		},
		g.store,
		joiner,
		services.NewSamplerService(sr.clock, sr.Logger),
		g.codec,
		g.network,
		g.indicator,
		moisture,
		battery,
		sr.clock,
		sr.Logger,
	)
}

// sessionSealer returns the cipher protecting the persisted session: the configured key
// file, or a key derived from the device's root or session key. nil stores it unsealed.
func (sr *ServiceRegistry) sessionSealer(id *identity.Identity) (encryption.EncryptionManagerInterface, error) {
	manager := encryption.NewEncryptionManager(sr.fileClient)

	if path := sr.config.Storage.SessionKeyFile; path != "" {
		if err := manager.Initialize(path); err != nil {
			return nil, err
		}
		return manager, nil
	}

	var secret []byte
	switch {
	case !id.AppKey.IsZero():
		secret = id.AppKey[:]
	case !id.NwkSKey.IsZero():
		secret = id.NwkSKey[:]
	default:
		sr.Logger.Warn().Msg("No key material for session sealing, storing session unsealed")
		return nil, nil
	}

	if err := manager.InitializeDerived(secret, id.DevEUI[:]); err != nil {
		return nil, err
	}
	return manager, nil
}

// clientID makes the broker client id unique per cycle so a lingering session of the
// previous wake does not kick the new one off.
func (sr *ServiceRegistry) clientID(id *identity.Identity) string {
	prefix := sr.config.MQTT.ClientID
	if prefix == "" {
		prefix = id.DevEUI.String()
	}
	return prefix + "-" + uuid.NewString()[:8]
}

// Close releases every opened component in reverse order.
func (sr *ServiceRegistry) Close() error {
	var closeErrors []error
	for i := len(sr.components) - 1; i >= 0; i-- {
		c := sr.components[i]
		if err := c.close(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("failed to close %s: %w", c.name, err))
		}
	}
	sr.components = nil

	if len(closeErrors) > 0 {
		for _, e := range closeErrors {
			sr.Logger.Error().Err(e).Msg("Component close failure")
		}
		return errors.Join(closeErrors...)
	}
	return nil
}
