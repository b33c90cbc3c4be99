package mocks

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/mock"
)

// MockMQTTClient is a mock implementation of the MQTTClient interface
type MockMQTTClient struct {
	mock.Mock
}

func (m *MockMQTTClient) Connect() mqtt.Token {
	args := m.Called()
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	args := m.Called(topic, qos, retained, payload)
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	args := m.Called(topic, qos, callback)
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Unsubscribe(topics ...string) mqtt.Token {
	args := m.Called(topics)
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

// CompletedToken is an mqtt.Token that has already finished.
type CompletedToken struct {
	err  error
	done chan struct{}
}

func NewCompletedToken(err error) *CompletedToken {
	done := make(chan struct{})
	close(done)
	return &CompletedToken{err: err, done: done}
}

func (t *CompletedToken) Wait() bool                       { return true }
func (t *CompletedToken) WaitTimeout(_ time.Duration) bool { return true }
func (t *CompletedToken) Done() <-chan struct{}            { return t.done }
func (t *CompletedToken) Error() error                     { return t.err }

// Message is a broker delivery handed straight to a subscription handler.
type Message struct {
	topic   string
	payload []byte
}

func NewMockMessage(topic string, payload []byte) *Message {
	return &Message{topic: topic, payload: payload}
}

func (m *Message) Topic() string     { return m.topic }
func (m *Message) Payload() []byte   { return m.payload }
func (m *Message) Qos() byte         { return 1 }
func (m *Message) Duplicate() bool   { return false }
func (m *Message) Retained() bool    { return false }
func (m *Message) MessageID() uint16 { return 0 }
func (m *Message) Ack()              {}
