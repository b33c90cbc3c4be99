package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/soil-node/internal/constants"
	"github.com/benmeehan/soil-node/internal/models"
	"github.com/benmeehan/soil-node/pkg/clock"
	"github.com/benmeehan/soil-node/pkg/codec"
	"github.com/benmeehan/soil-node/pkg/hardware"
	"github.com/benmeehan/soil-node/pkg/network"
	"github.com/benmeehan/soil-node/pkg/session"
	"github.com/rs/zerolog"
)

var ErrTransmitFailure = errors.New("uplink transmit failed")

// CycleSettings are the deployment constants of a wake cycle.
type CycleSettings struct {
	DeviceID          uint8
	MaxWetValue       int
	BatteryScale      models.BatteryScale
	SleepInterval     time.Duration
	PostTransmitDelay time.Duration
	ReceiveDownlink   bool
	ReceiveTimeout    time.Duration
}

// CycleService runs one wake cycle: restore, join, sample, encode, transmit, persist, sleep.
type CycleService struct {
	Settings  CycleSettings
	Store     session.SessionStore
	Joiner    *JoinService
	Sampler   *SamplerService
	Codec     *codec.Codec
	Network   network.NetworkTransport
	Indicator hardware.StatusIndicator
	Moisture  SensorChannel
	Battery   *SensorChannel // nil when no battery sensor is wired
	Clock     clock.Clock
	Logger    zerolog.Logger
}

func NewCycleService(settings CycleSettings, store session.SessionStore, joiner *JoinService,
	sampler *SamplerService, packetCodec *codec.Codec, net network.NetworkTransport,
	indicator hardware.StatusIndicator, moisture SensorChannel, battery *SensorChannel,
	clk clock.Clock, logger zerolog.Logger) *CycleService {

	return &CycleService{
		Settings:  settings,
		Store:     store,
		Joiner:    joiner,
		Sampler:   sampler,
		Codec:     packetCodec,
		Network:   net,
		Indicator: indicator,
		Moisture:  moisture,
		Battery:   battery,
		Clock:     clk,
		Logger:    logger,
	}
}

// Run executes the cycle. Only a join timeout prevents the session from being persisted
// and a sleep from being scheduled; it is reported as FatalResetRequested.
func (c *CycleService) Run(ctx context.Context) models.CycleOutcome {
	outcome := models.CycleOutcome{}

	restored := c.Store.Restore()
	c.Logger.Debug().Bool("present", restored.Present).Msg("Session restored")

	joined, err := c.Joiner.Run(ctx, restored)
	outcome.JoinState = joined.State
	switch {
	case errors.Is(err, ErrJoinTimeout):
		outcome.FatalResetRequested = true
		c.Logger.Error().Err(err).Msg("Requesting device reset")
		return outcome
	case err != nil:
		outcome.Interrupted = true
		c.Logger.Warn().Err(err).Msg("Cycle interrupted while joining")
		return outcome
	}

	if err := c.measureAndSend(ctx, &outcome); err != nil {
		outcome.Interrupted = true
		c.Logger.Warn().Err(err).Msg("Cycle interrupted, persisting session")
	}

	c.persist()

	showStatus(c.Indicator, hardware.StatusOff, c.Logger)
	outcome.NextSleepDuration = c.Settings.SleepInterval
	c.Logger.Info().Bool("sent", outcome.Sent).Dur("sleep", outcome.NextSleepDuration).Msg("Cycle complete")
	return outcome
}

// measureAndSend covers sampling through the downlink window. Only cancellation is returned.
func (c *CycleService) measureAndSend(ctx context.Context, outcome *models.CycleOutcome) error {
	moisture, err := c.Sampler.Sample(ctx, c.Moisture)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	packet := codec.UplinkPacket{DeviceID: c.Settings.DeviceID, MoisturePercent: constants.SensorUnavailableValue}
	if err != nil {
		c.Logger.Error().Err(err).Msg("Moisture reading unavailable")
		outcome.Degraded = append(outcome.Degraded, models.SensorKindMoisture)
	} else {
		percent := MoisturePercent(moisture.Value, c.Settings.MaxWetValue)
		packet.MoisturePercent = uint32(percent)
		outcome.Moisture = moisture
		c.Logger.Info().Int("average", moisture.Value).Int("percent", percent).Msg("Moisture measured")
	}

	if c.Codec.Layout().Has(codec.FieldBattery) {
		centivolts := constants.SensorUnavailableValue
		if c.Battery == nil {
			outcome.Degraded = append(outcome.Degraded, models.SensorKindBattery)
		} else {
			battery, err := c.Sampler.Sample(ctx, *c.Battery)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				c.Logger.Error().Err(err).Msg("Battery reading unavailable")
				outcome.Degraded = append(outcome.Degraded, models.SensorKindBattery)
			} else {
				centivolts = uint32(BatteryCentivolts(battery.Value, c.Settings.BatteryScale))
				outcome.Battery = battery
				c.Logger.Info().Int("raw", battery.Value).Uint32("centivolts", centivolts).Msg("Battery measured")
			}
		}
		packet.BatteryCentivolts = &centivolts
	}

	data, err := c.Codec.Encode(packet)
	if err != nil {
		c.Logger.Error().Err(err).Msg("Failed to encode uplink")
		return nil
	}
	outcome.Uplink = data

	if err := c.transmit(ctx, data); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Logger.Error().Err(err).Msg("Uplink lost, continuing cycle")
	} else {
		outcome.Sent = true
		c.Logger.Info().Hex("payload", data).Msg("Uplink sent")
	}

	if err := c.Clock.Sleep(ctx, c.Settings.PostTransmitDelay); err != nil {
		return err
	}

	if c.Settings.ReceiveDownlink {
		outcome.Downlink = c.receive(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// transmit sends data, converting transport errors and panics into ErrTransmitFailure.
func (c *CycleService) transmit(ctx context.Context, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrTransmitFailure, r)
		}
	}()

	if err := c.Network.Send(ctx, data); err != nil {
		return fmt.Errorf("%w: %v", ErrTransmitFailure, err)
	}
	return nil
}

func (c *CycleService) receive(ctx context.Context) codec.DownlinkPacket {
	data, err := c.Network.Receive(ctx, c.Settings.ReceiveTimeout)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("Downlink receive failed")
		return codec.DownlinkPacket{}
	}

	downlink, err := c.Codec.DecodeDownlink(data)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("Discarding downlink")
		return codec.DownlinkPacket{}
	}
	if !downlink.Empty() {
		c.Logger.Info().Hex("payload", downlink.Payload).Msg("Downlink received")
	}
	return downlink
}

// persist writes the network session back whole; failures are logged and the next cycle
// joins again.
func (c *CycleService) persist() {
	blob, err := c.Network.ExportSession()
	if err != nil {
		c.Logger.Error().Err(err).Msg("Failed to export network session")
		return
	}
	if err := c.Store.Save(session.DeviceSession{Present: true, Payload: blob}); err != nil {
		c.Logger.Error().Err(err).Msg("Failed to persist network session")
		return
	}
	c.Logger.Debug().Int("size", len(blob)).Msg("Network session persisted")
}
