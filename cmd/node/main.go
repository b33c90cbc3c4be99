package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benmeehan/soil-node/internal/constants"
	"github.com/benmeehan/soil-node/internal/models"
	"github.com/benmeehan/soil-node/internal/service_registry"
	"github.com/benmeehan/soil-node/internal/utils"
	"github.com/benmeehan/soil-node/pkg/clock"
	"github.com/benmeehan/soil-node/pkg/file"
	"github.com/benmeehan/soil-node/pkg/identity"
	"github.com/benmeehan/soil-node/pkg/network"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	once := flag.Bool("once", false, "run a single cycle and exit")
	pretty := flag.Bool("pretty", false, "write human readable logs to the console")
	flag.Parse()

	// Set up structured logging
	var logger zerolog.Logger
	if *pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	logger = logger.With().Timestamp().Logger()

	// Load configuration from file
	fileClient := file.NewFileService()
	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(config.Log.Level)
	if err != nil {
		logger.Fatal().Err(err).Str("level", config.Log.Level).Msg("Invalid log level")
	}
	logger = logger.Level(level)

	// Initialize DeviceInfo
	deviceInfo := identity.NewDeviceInfo(config.Device.IdentityFile, fileClient)
	if err := deviceInfo.LoadDeviceInfo(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load device information")
	}
	mode, err := network.ParseActivationMode(config.Join.Mode)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid join mode")
	}
	if err := network.CheckCredentials(mode, deviceInfo.GetDeviceIdentity()); err != nil {
		logger.Fatal().Err(err).Str("mode", string(mode)).Msg("Device identity cannot join")
	}
	logger.Info().Str("dev_eui", deviceInfo.GetDevEUI().String()).Uint8("device_id", config.Device.ID).Msg("Node starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, config, fileClient, deviceInfo, *once, logger)
	stop()
	os.Exit(code)
}

// run repeats wake cycles until a reset is requested or the process is stopped. Every
// cycle is built from scratch, as it would be after a deep sleep.
func run(ctx context.Context, config *utils.Config, fileClient file.FileOperations,
	deviceInfo identity.DeviceInfoInterface, once bool, logger zerolog.Logger) int {

	clk := clock.Real{}
	for {
		cycleLogger := logger.With().Str("cycle_id", uuid.NewString()).Logger()

		outcome, err := runCycle(ctx, config, fileClient, deviceInfo, clk, cycleLogger)
		if err != nil {
			cycleLogger.Error().Err(err).Msg("Cycle could not start, sleeping until the next wake")
			outcome.NextSleepDuration = config.Cycle.SleepInterval
		}

		if outcome.FatalResetRequested {
			cycleLogger.Error().Msg("Resetting device")
			return constants.ExitResetRequested
		}
		if once || outcome.Interrupted || ctx.Err() != nil {
			return 0
		}

		cycleLogger.Info().Dur("duration", outcome.NextSleepDuration).Msg("Entering deep sleep")
		if err := clk.Sleep(ctx, outcome.NextSleepDuration); err != nil {
			logger.Info().Msg("Shutting down gracefully...")
			return 0
		}
	}
}

func runCycle(ctx context.Context, config *utils.Config, fileClient file.FileOperations,
	deviceInfo identity.DeviceInfoInterface, clk clock.Clock, logger zerolog.Logger) (models.CycleOutcome, error) {

	serviceRegistry := service_registry.NewServiceRegistry(config, fileClient, deviceInfo, clk, logger)
	cycle, err := serviceRegistry.BuildCycle()
	if err != nil {
		return models.CycleOutcome{}, err
	}
	defer func() {
		if err := serviceRegistry.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to release cycle components")
		}
	}()

	return cycle.Run(ctx), nil
}
