package services

import (
	"context"
	"errors"
	"time"

	"github.com/benmeehan/soil-node/internal/constants"
	"github.com/benmeehan/soil-node/internal/state_managers"
	"github.com/benmeehan/soil-node/pkg/clock"
	"github.com/benmeehan/soil-node/pkg/hardware"
	"github.com/benmeehan/soil-node/pkg/network"
	"github.com/benmeehan/soil-node/pkg/session"
	"github.com/rs/zerolog"
)

var ErrJoinTimeout = errors.New("network join timed out")

// JoinResult describes how a cycle reached its terminal join state.
type JoinResult struct {
	State      constants.JoinState
	History    []constants.JoinState
	Handshakes int
	Polls      int
	Elapsed    time.Duration
}

// JoinService establishes network membership for one cycle.
type JoinService struct {
	Network      network.NetworkTransport
	Indicator    hardware.StatusIndicator
	Clock        clock.Clock
	Mode         network.ActivationMode
	Timeout      time.Duration
	PollInterval time.Duration
	Logger       zerolog.Logger
}

func NewJoinService(net network.NetworkTransport, indicator hardware.StatusIndicator, clk clock.Clock,
	mode network.ActivationMode, timeout, pollInterval time.Duration, logger zerolog.Logger) *JoinService {

	return &JoinService{
		Network:      net,
		Indicator:    indicator,
		Clock:        clk,
		Mode:         mode,
		Timeout:      timeout,
		PollInterval: pollInterval,
		Logger:       logger,
	}
}

// Run uses the restored session when the network accepts it and otherwise starts one
// handshake and polls until joined. ErrJoinTimeout is returned once more than Timeout has
// passed since the handshake started; the node must then be reset.
func (j *JoinService) Run(ctx context.Context, restored session.DeviceSession) (JoinResult, error) {
	sm := state_managers.NewJoinStateManager(j.Logger)
	result := func() JoinResult {
		return JoinResult{State: sm.State(), History: sm.History()}
	}

	if restored.Present {
		if err := j.Network.RestoreSession(restored.Payload); err != nil {
			j.Logger.Warn().Err(err).Msg("Restored session rejected, joining again")
		} else if j.Network.HasJoined() {
			if err := sm.Fire(constants.JoinEventSessionConfirmed); err != nil {
				return result(), err
			}
			showStatus(j.Indicator, hardware.StatusReady, j.Logger)
			j.Logger.Info().Msg("Network session already established")
			return result(), nil
		}
	}

	if err := sm.Fire(constants.JoinEventSessionMissing); err != nil {
		return result(), err
	}
	showStatus(j.Indicator, hardware.StatusNotJoined, j.Logger)

	start := j.Clock.Now()
	res := result()
	res.Handshakes = 1
	if err := j.Network.Join(ctx, j.Mode); err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		j.Logger.Error().Err(err).Str("mode", string(j.Mode)).Msg("Join handshake failed to start")
	} else {
		j.Logger.Info().Str("mode", string(j.Mode)).Msg("Join handshake started")
	}

	for {
		res.Elapsed = j.Clock.Now().Sub(start)

		if j.Network.HasJoined() {
			if err := sm.Fire(constants.JoinEventJoinAccepted); err != nil {
				return res, err
			}
			res.State, res.History = sm.State(), sm.History()
			showStatus(j.Indicator, hardware.StatusReady, j.Logger)
			j.Logger.Info().Dur("elapsed", res.Elapsed).Int("polls", res.Polls).Msg("Join successful")
			return res, nil
		}

		if res.Elapsed > j.Timeout {
			if err := sm.Fire(constants.JoinEventDeadlineExceeded); err != nil {
				return res, err
			}
			res.State, res.History = sm.State(), sm.History()
			showStatus(j.Indicator, hardware.StatusResetting, j.Logger)
			j.Logger.Error().Dur("elapsed", res.Elapsed).Dur("timeout", j.Timeout).Msg("Join timed out")
			return res, ErrJoinTimeout
		}

		if err := j.Clock.Sleep(ctx, j.PollInterval); err != nil {
			return res, err
		}
		res.Polls++
		j.Logger.Debug().Int("polls", res.Polls).Msg("Not yet joined")
	}
}

// showStatus updates the indicator. Failures only affect what an observer sees.
func showStatus(indicator hardware.StatusIndicator, status hardware.Status, logger zerolog.Logger) {
	if indicator == nil {
		return
	}
	if err := indicator.Show(status); err != nil {
		logger.Warn().Err(err).Str("status", string(status)).Msg("Failed to update status indicator")
	}
}
