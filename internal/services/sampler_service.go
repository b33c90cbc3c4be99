package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/benmeehan/soil-node/internal/constants"
	"github.com/benmeehan/soil-node/internal/models"
	"github.com/benmeehan/soil-node/pkg/clock"
	"github.com/benmeehan/soil-node/pkg/hardware"
	"github.com/rs/zerolog"
)

var ErrSensorUnavailable = errors.New("sensor unavailable")

// SensorChannel is one sensor and how to sample it.
type SensorChannel struct {
	Kind          models.SensorKind
	Source        hardware.MeasurementSource
	Gate          hardware.PowerGate // nil when the sensor is always powered
	Samples       int
	SettlingDelay time.Duration
	Reduction     constants.Reduction
}

func (c SensorChannel) validate() error {
	if c.Source == nil {
		return fmt.Errorf("%s: no measurement source", c.Kind)
	}
	if c.Samples < 1 {
		return fmt.Errorf("%s: sample count must be at least 1, got %d", c.Kind, c.Samples)
	}
	if c.SettlingDelay < 0 {
		return fmt.Errorf("%s: settling delay must not be negative", c.Kind)
	}
	if c.Reduction != constants.ReductionMean && c.Reduction != constants.ReductionMedian {
		return fmt.Errorf("%s: unknown reduction %q", c.Kind, c.Reduction)
	}
	return nil
}

// SamplerService takes repeated readings from a sensor and reduces them to one value.
type SamplerService struct {
	Clock  clock.Clock
	Logger zerolog.Logger
}

func NewSamplerService(clk clock.Clock, logger zerolog.Logger) *SamplerService {
	return &SamplerService{Clock: clk, Logger: logger}
}

// Sample powers the sensor for every reading, waits for it to settle, reads it and powers
// it down again. Failed reads are skipped. ErrSensorUnavailable is returned when the
// source cannot be initialised or no read succeeds.
func (s *SamplerService) Sample(ctx context.Context, ch SensorChannel) (models.FilteredReading, error) {
	if err := ch.validate(); err != nil {
		return models.FilteredReading{}, err
	}

	logger := s.Logger.With().Str("sensor", string(ch.Kind)).Logger()

	if err := ch.Source.Init(); err != nil {
		logger.Error().Err(err).Msg("Failed to initialise measurement source")
		return models.FilteredReading{}, fmt.Errorf("%w: %s: %v", ErrSensorUnavailable, ch.Kind, err)
	}

	samples := make([]int, 0, ch.Samples)
	for i := 0; i < ch.Samples; i++ {
		value, err := s.readOnce(ctx, ch)
		if err != nil {
			if ctx.Err() != nil {
				return models.FilteredReading{}, ctx.Err()
			}
			logger.Warn().Err(err).Int("sample", i).Msg("Skipping failed reading")
			continue
		}
		samples = append(samples, value)
	}

	if len(samples) == 0 {
		return models.FilteredReading{}, fmt.Errorf("%w: %s: no successful readings", ErrSensorUnavailable, ch.Kind)
	}

	value := Reduce(samples, ch.Reduction)
	logger.Debug().Ints("samples", samples).Int("value", value).Str("reduction", string(ch.Reduction)).Msg("Sensor sampled")

	return models.FilteredReading{Kind: ch.Kind, Value: value, SampleCount: len(samples)}, nil
}

func (s *SamplerService) readOnce(ctx context.Context, ch SensorChannel) (int, error) {
	if ch.Gate != nil {
		if err := ch.Gate.Enable(); err != nil {
			return 0, fmt.Errorf("failed to power sensor: %w", err)
		}
		defer func() {
			if err := ch.Gate.Disable(); err != nil {
				s.Logger.Warn().Err(err).Str("sensor", string(ch.Kind)).Msg("Failed to power down sensor")
			}
		}()
	}

	if err := s.Clock.Sleep(ctx, ch.SettlingDelay); err != nil {
		return 0, err
	}
	return ch.Source.Read()
}

// Reduce collapses samples with reduction. Mean truncates toward zero; median takes the
// element at len/2 of the sorted samples. samples must not be empty.
func Reduce(samples []int, reduction constants.Reduction) int {
	switch reduction {
	case constants.ReductionMedian:
		sorted := append([]int(nil), samples...)
		sort.Ints(sorted)
		return sorted[len(sorted)/2]
	default:
		sum := 0
		for _, v := range samples {
			sum += v
		}
		return sum / len(samples)
	}
}
