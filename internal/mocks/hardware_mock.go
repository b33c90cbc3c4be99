package mocks

import (
	"github.com/benmeehan/soil-node/pkg/hardware"
	"github.com/stretchr/testify/mock"
)

// MockMeasurementSource is a mock implementation of the MeasurementSource interface
type MockMeasurementSource struct {
	mock.Mock
}

func (m *MockMeasurementSource) Init() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMeasurementSource) Read() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockMeasurementSource) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockPowerGate is a mock implementation of the PowerGate interface
type MockPowerGate struct {
	mock.Mock
}

func (m *MockPowerGate) Enable() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockPowerGate) Disable() error {
	args := m.Called()
	return args.Error(0)
}

// MockStatusIndicator is a mock implementation of the StatusIndicator interface
type MockStatusIndicator struct {
	mock.Mock
}

func (m *MockStatusIndicator) Show(status hardware.Status) error {
	args := m.Called(status)
	return args.Error(0)
}
