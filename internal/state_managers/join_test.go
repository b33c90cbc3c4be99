package state_managers

import (
	"testing"

	"github.com/benmeehan/soil-node/internal/constants"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    constants.JoinState
		event   constants.JoinEvent
		want    constants.JoinState
		wantErr bool
	}{
		{"restored session", constants.JoinStateRestoring, constants.JoinEventSessionConfirmed, constants.JoinStateJoined, false},
		{"no session", constants.JoinStateRestoring, constants.JoinEventSessionMissing, constants.JoinStateJoining, false},
		{"accepted", constants.JoinStateJoining, constants.JoinEventJoinAccepted, constants.JoinStateJoined, false},
		{"deadline", constants.JoinStateJoining, constants.JoinEventDeadlineExceeded, constants.JoinStateTimedOut, false},
		{"restoring cannot time out", constants.JoinStateRestoring, constants.JoinEventDeadlineExceeded, constants.JoinStateRestoring, true},
		{"joined is terminal", constants.JoinStateJoined, constants.JoinEventSessionMissing, constants.JoinStateJoined, true},
		{"timed out is terminal", constants.JoinStateTimedOut, constants.JoinEventJoinAccepted, constants.JoinStateTimedOut, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.from, tt.event)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJoinStateManager_History(t *testing.T) {
	sm := NewJoinStateManager(zerolog.Nop())
	assert.False(t, sm.IsTerminal())

	require.NoError(t, sm.Fire(constants.JoinEventSessionMissing))
	require.NoError(t, sm.Fire(constants.JoinEventJoinAccepted))
	assert.Error(t, sm.Fire(constants.JoinEventDeadlineExceeded))

	assert.Equal(t, constants.JoinStateJoined, sm.State())
	assert.True(t, sm.IsTerminal())
	assert.Equal(t, []constants.JoinState{
		constants.JoinStateRestoring,
		constants.JoinStateJoining,
		constants.JoinStateJoined,
	}, sm.History())
}
