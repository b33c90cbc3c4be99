package mocks

import (
	"context"
	"time"

	"github.com/benmeehan/soil-node/pkg/network"
	"github.com/stretchr/testify/mock"
)

// MockNetworkTransport is a mock implementation of the NetworkTransport interface
type MockNetworkTransport struct {
	mock.Mock
}

func (m *MockNetworkTransport) RestoreSession(blob []byte) error {
	args := m.Called(blob)
	return args.Error(0)
}

func (m *MockNetworkTransport) HasJoined() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockNetworkTransport) Join(ctx context.Context, mode network.ActivationMode) error {
	args := m.Called(ctx, mode)
	return args.Error(0)
}

func (m *MockNetworkTransport) ExportSession() ([]byte, error) {
	args := m.Called()
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNetworkTransport) Send(ctx context.Context, payload []byte) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *MockNetworkTransport) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	args := m.Called(ctx, timeout)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNetworkTransport) Close() error {
	args := m.Called()
	return args.Error(0)
}
