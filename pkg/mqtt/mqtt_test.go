package mqtt_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/benmeehan/soil-node/internal/mocks"
	"github.com/benmeehan/soil-node/pkg/mqtt"
)

func TestInitialize_CACertificateUnreadable(t *testing.T) {
	// Setup
	fileClient := new(mocks.MockFileOperations)
	fileClient.On("ReadFileRaw", "/etc/soil-node/ca.pem").Return(nil, errors.New("permission denied"))
	service := mqtt.NewMqttService(fileClient)

	// Execute
	err := service.Initialize(mqtt.Options{
		Broker:     "ssl://localhost:8883",
		ClientID:   "node-1",
		CACertPath: "/etc/soil-node/ca.pem",
	})

	// Assert
	assert.ErrorContains(t, err, "failed to read CA certificate")
	fileClient.AssertExpectations(t)
}

func TestInitialize_CACertificateInvalid(t *testing.T) {
	fileClient := new(mocks.MockFileOperations)
	fileClient.On("ReadFileRaw", "ca.pem").Return([]byte("not a certificate"), nil)
	service := mqtt.NewMqttService(fileClient)

	err := service.Initialize(mqtt.Options{Broker: "ssl://localhost:8883", ClientID: "node-1", CACertPath: "ca.pem"})

	assert.ErrorContains(t, err, "failed to append CA certificate")
}
