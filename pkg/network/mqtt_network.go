package network

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/soil-node/pkg/identity"
	"github.com/benmeehan/soil-node/pkg/mqtt"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	downlinkBuffer    = 4
	disconnectQuiesce = 250
)

// MQTTConfig holds the broker-side addressing of the node.
type MQTTConfig struct {
	TopicPrefix string
	QOS         byte
}

// MQTTNetwork implements NetworkTransport over a broker bridged to the radio gateway.
// Broker callbacks run on the client's goroutines, so session state is guarded by mu.
type MQTTNetwork struct {
	client   mqtt.MQTTClient
	identity *identity.Identity
	config   MQTTConfig
	logger   zerolog.Logger

	mu            sync.Mutex
	session       *sessionState
	pendingNonce  string
	acceptTopic   string
	downlinkTopic string
	downlinks     chan []byte
}

func NewMQTTNetwork(client mqtt.MQTTClient, id *identity.Identity, config MQTTConfig, logger zerolog.Logger) *MQTTNetwork {
	return &MQTTNetwork{
		client:    client,
		identity:  id,
		config:    config,
		logger:    logger,
		downlinks: make(chan []byte, downlinkBuffer),
	}
}

func (n *MQTTNetwork) joinRequestTopic() string {
	return fmt.Sprintf("%s/join/request", n.config.TopicPrefix)
}

func (n *MQTTNetwork) joinAcceptTopic() string {
	return fmt.Sprintf("%s/%s/join/accept", n.config.TopicPrefix, n.identity.DevEUI)
}

func (n *MQTTNetwork) uplinkTopic(addr identity.DevAddr) string {
	return fmt.Sprintf("%s/%s/up", n.config.TopicPrefix, addr)
}

func (n *MQTTNetwork) downTopic(addr identity.DevAddr) string {
	return fmt.Sprintf("%s/%s/down", n.config.TopicPrefix, addr)
}

func (n *MQTTNetwork) RestoreSession(blob []byte) error {
	if len(blob) == 0 {
		return ErrNoSession
	}

	var state sessionState
	if err := json.Unmarshal(blob, &state); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !state.valid() {
		return ErrInvalidSession
	}

	n.mu.Lock()
	n.session = &state
	n.mu.Unlock()

	n.logger.Debug().Str("dev_addr", state.DevAddr.String()).Uint32("f_cnt_up", state.FCntUp).Msg("Session restored")
	return nil
}

func (n *MQTTNetwork) HasJoined() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.session != nil
}

func (n *MQTTNetwork) Join(ctx context.Context, mode ActivationMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch mode {
	case ActivationABP:
		return n.joinABP()
	case ActivationOTAA:
		return n.joinOTAA()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

func (n *MQTTNetwork) joinABP() error {
	if err := n.identity.CanJoinABP(); err != nil {
		return err
	}

	n.mu.Lock()
	n.session = &sessionState{
		Activation: ActivationABP,
		DevAddr:    n.identity.DevAddr,
		NwkSKey:    n.identity.NwkSKey,
		AppSKey:    n.identity.AppSKey,
	}
	n.mu.Unlock()

	n.logger.Info().Str("dev_addr", n.identity.DevAddr.String()).Msg("Activated by personalization")
	return nil
}

func (n *MQTTNetwork) joinOTAA() error {
	if err := n.identity.CanJoinOTAA(); err != nil {
		return err
	}

	nonce, err := identity.NewDevNonce()
	if err != nil {
		return err
	}
	devNonce := hex.EncodeToString(nonce[:])

	n.mu.Lock()
	n.pendingNonce = devNonce
	subscribed := n.acceptTopic != ""
	n.mu.Unlock()

	if !subscribed {
		topic := n.joinAcceptTopic()
		if err := n.subscribe(topic, n.handleJoinAccept); err != nil {
			return err
		}
		n.mu.Lock()
		n.acceptTopic = topic
		n.mu.Unlock()
	}

	payload, err := json.Marshal(JoinRequest{
		DevEUI:   n.identity.DevEUI,
		JoinEUI:  n.identity.JoinEUI,
		DevNonce: devNonce,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal join request: %w", err)
	}

	token := n.client.Publish(n.joinRequestTopic(), n.config.QOS, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish join request: %w", token.Error())
	}

	n.logger.Info().Str("dev_eui", n.identity.DevEUI.String()).Str("dev_nonce", devNonce).Msg("Join request sent")
	return nil
}

func (n *MQTTNetwork) handleJoinAccept(_ paho.Client, msg paho.Message) {
	var accept JoinAccept
	if err := json.Unmarshal(msg.Payload(), &accept); err != nil {
		n.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("Discarding malformed join accept")
		return
	}

	state := &sessionState{
		Activation: ActivationOTAA,
		DevAddr:    accept.DevAddr,
		NwkSKey:    accept.NwkSKey,
		AppSKey:    accept.AppSKey,
	}
	if !state.valid() {
		n.logger.Warn().Str("topic", msg.Topic()).Msg("Discarding join accept without session keys")
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pendingNonce == "" || accept.DevNonce != n.pendingNonce {
		n.logger.Warn().Str("dev_nonce", accept.DevNonce).Msg("Discarding join accept for another request")
		return
	}
	n.pendingNonce = ""
	n.session = state

	n.logger.Info().Str("dev_addr", state.DevAddr.String()).Msg("Join accepted")
}

func (n *MQTTNetwork) ExportSession() ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.session == nil {
		return nil, ErrNotJoined
	}
	return json.Marshal(n.session)
}

func (n *MQTTNetwork) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.mu.Lock()
	if n.session == nil {
		n.mu.Unlock()
		return ErrNotJoined
	}
	addr := n.session.DevAddr
	fCnt := n.session.FCntUp
	n.mu.Unlock()

	if err := n.ensureDownlinkSubscription(addr); err != nil {
		n.logger.Warn().Err(err).Msg("Downlinks unavailable this cycle")
	}

	data, err := json.Marshal(UplinkEnvelope{
		DevAddr: addr,
		FCnt:    fCnt,
		FPort:   defaultFPort,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal uplink: %w", err)
	}

	token := n.client.Publish(n.uplinkTopic(addr), n.config.QOS, false, data)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish uplink: %w", token.Error())
	}

	n.mu.Lock()
	n.session.FCntUp++
	n.mu.Unlock()

	n.logger.Debug().Uint32("f_cnt", fCnt).Int("size", len(payload)).Msg("Uplink sent")
	return nil
}

func (n *MQTTNetwork) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	n.mu.Lock()
	if n.session == nil {
		n.mu.Unlock()
		return nil, ErrNotJoined
	}
	addr := n.session.DevAddr
	n.mu.Unlock()

	if err := n.ensureDownlinkSubscription(addr); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload := <-n.downlinks:
		return payload, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (n *MQTTNetwork) ensureDownlinkSubscription(addr identity.DevAddr) error {
	n.mu.Lock()
	subscribed := n.downlinkTopic != ""
	n.mu.Unlock()
	if subscribed {
		return nil
	}

	topic := n.downTopic(addr)
	if err := n.subscribe(topic, n.handleDownlink); err != nil {
		return err
	}

	n.mu.Lock()
	n.downlinkTopic = topic
	n.mu.Unlock()
	return nil
}

func (n *MQTTNetwork) handleDownlink(_ paho.Client, msg paho.Message) {
	var env DownlinkEnvelope
	if err := json.Unmarshal(msg.Payload(), &env); err != nil {
		n.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("Discarding malformed downlink")
		return
	}

	n.mu.Lock()
	if n.session == nil || env.DevAddr != n.session.DevAddr {
		n.mu.Unlock()
		return
	}
	if env.FCnt < n.session.FCntDown {
		n.mu.Unlock()
		n.logger.Warn().Uint32("f_cnt", env.FCnt).Msg("Discarding replayed downlink")
		return
	}
	n.session.FCntDown = env.FCnt + 1
	n.mu.Unlock()

	select {
	case n.downlinks <- env.Payload:
	default:
		n.logger.Warn().Uint32("f_cnt", env.FCnt).Msg("Downlink buffer full, dropping")
	}
}

func (n *MQTTNetwork) subscribe(topic string, handler paho.MessageHandler) error {
	token := n.client.Subscribe(topic, n.config.QOS, handler)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}
	return nil
}

// Close drops the subscriptions and disconnects from the broker.
func (n *MQTTNetwork) Close() error {
	n.mu.Lock()
	var topics []string
	for _, t := range []string{n.acceptTopic, n.downlinkTopic} {
		if t != "" {
			topics = append(topics, t)
		}
	}
	n.acceptTopic, n.downlinkTopic = "", ""
	n.mu.Unlock()

	var err error
	if len(topics) > 0 {
		token := n.client.Unsubscribe(topics...)
		if token.Wait() && token.Error() != nil {
			err = fmt.Errorf("failed to unsubscribe: %w", token.Error())
		}
	}
	n.client.Disconnect(disconnectQuiesce)
	return err
}
