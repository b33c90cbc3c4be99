// Package network is the node's link to the backend: join handshakes, session state
// and uplink/downlink exchange.
package network

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benmeehan/soil-node/pkg/identity"
)

var (
	ErrNotJoined      = errors.New("network not joined")
	ErrNoSession      = errors.New("no session state")
	ErrInvalidSession = errors.New("invalid session state")
	ErrUnknownMode    = errors.New("unknown activation mode")
)

// ActivationMode selects the join handshake.
type ActivationMode string

const (
	// ActivationOTAA negotiates session keys with the backend.
	ActivationOTAA ActivationMode = "otaa"
	// ActivationABP uses a pre-shared address and session keys.
	ActivationABP ActivationMode = "abp"
)

func ParseActivationMode(s string) (ActivationMode, error) {
	switch m := ActivationMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ActivationOTAA, ActivationABP:
		return m, nil
	case "":
		return ActivationOTAA, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// CheckCredentials reports whether id carries the keys mode needs.
func CheckCredentials(mode ActivationMode, id *identity.Identity) error {
	switch mode {
	case ActivationOTAA:
		return id.CanJoinOTAA()
	case ActivationABP:
		return id.CanJoinABP()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// NetworkTransport is what the join and cycle services need from the radio stack.
type NetworkTransport interface {
	// RestoreSession loads a session exported by a previous cycle.
	RestoreSession(blob []byte) error
	HasJoined() bool
	// Join starts one handshake. Completion is observed through HasJoined.
	Join(ctx context.Context, mode ActivationMode) error
	ExportSession() ([]byte, error)
	Send(ctx context.Context, payload []byte) error
	// Receive waits up to timeout for one downlink. A nil payload means nothing arrived.
	Receive(ctx context.Context, timeout time.Duration) ([]byte, error)
	Close() error
}
