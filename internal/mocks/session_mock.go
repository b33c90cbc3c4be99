package mocks

import (
	"github.com/benmeehan/soil-node/pkg/session"
	"github.com/stretchr/testify/mock"
)

// MockSessionStore is a mock implementation of the SessionStore interface
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Restore() session.DeviceSession {
	args := m.Called()
	return args.Get(0).(session.DeviceSession)
}

func (m *MockSessionStore) Save(s session.DeviceSession) error {
	args := m.Called(s)
	return args.Error(0)
}
