package state_managers

import (
	"fmt"

	"github.com/benmeehan/soil-node/internal/constants"
	"github.com/rs/zerolog"
)

type transitionKey struct {
	from  constants.JoinState
	event constants.JoinEvent
}

var validTransitions = map[transitionKey]constants.JoinState{
	{constants.JoinStateRestoring, constants.JoinEventSessionConfirmed}: constants.JoinStateJoined,
	{constants.JoinStateRestoring, constants.JoinEventSessionMissing}:   constants.JoinStateJoining,
	{constants.JoinStateJoining, constants.JoinEventJoinAccepted}:       constants.JoinStateJoined,
	{constants.JoinStateJoining, constants.JoinEventDeadlineExceeded}:   constants.JoinStateTimedOut,
}

// Transition returns the state reached from state on event, or an error when the
// machine does not define that edge.
func Transition(state constants.JoinState, event constants.JoinEvent) (constants.JoinState, error) {
	next, ok := validTransitions[transitionKey{state, event}]
	if !ok {
		return state, fmt.Errorf("invalid join transition from %s on %s", state, event)
	}
	return next, nil
}

// IsTerminal reports whether a cycle's join ends in state.
func IsTerminal(state constants.JoinState) bool {
	return state == constants.JoinStateJoined || state == constants.JoinStateTimedOut
}

// JoinStateManager tracks the join state of one cycle and the path it took.
type JoinStateManager struct {
	state   constants.JoinState
	history []constants.JoinState
	logger  zerolog.Logger
}

// NewJoinStateManager starts in Restoring.
func NewJoinStateManager(logger zerolog.Logger) *JoinStateManager {
	return &JoinStateManager{
		state:   constants.JoinStateRestoring,
		history: []constants.JoinState{constants.JoinStateRestoring},
		logger:  logger,
	}
}

func (sm *JoinStateManager) Fire(event constants.JoinEvent) error {
	next, err := Transition(sm.state, event)
	if err != nil {
		sm.logger.Error().Err(err).Msg("Rejected join transition")
		return err
	}
	sm.logger.Debug().Str("from", string(sm.state)).Str("to", string(next)).Str("event", string(event)).Msg("Join state changed")
	sm.state = next
	sm.history = append(sm.history, next)
	return nil
}

func (sm *JoinStateManager) State() constants.JoinState {
	return sm.state
}

func (sm *JoinStateManager) IsTerminal() bool {
	return IsTerminal(sm.state)
}

// History returns every state visited, starting with Restoring.
func (sm *JoinStateManager) History() []constants.JoinState {
	return append([]constants.JoinState(nil), sm.history...)
}
