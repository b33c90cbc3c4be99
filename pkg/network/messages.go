package network

import "github.com/benmeehan/soil-node/pkg/identity"

const defaultFPort = 1

// JoinRequest is published by the node to start an OTAA handshake.
type JoinRequest struct {
	DevEUI   identity.EUI64 `json:"dev_eui"`
	JoinEUI  identity.EUI64 `json:"join_eui"`
	DevNonce string         `json:"dev_nonce"`
}

// JoinAccept is the backend's answer to a JoinRequest.
type JoinAccept struct {
	DevNonce string             `json:"dev_nonce"`
	DevAddr  identity.DevAddr   `json:"dev_addr"`
	NwkSKey  identity.AES128Key `json:"nwk_s_key"`
	AppSKey  identity.AES128Key `json:"app_s_key"`
}

// UplinkEnvelope carries one application payload to the backend.
type UplinkEnvelope struct {
	DevAddr identity.DevAddr `json:"dev_addr"`
	FCnt    uint32           `json:"f_cnt"`
	FPort   uint8            `json:"f_port"`
	Payload []byte           `json:"payload"`
}

// DownlinkEnvelope carries one application payload to the node.
type DownlinkEnvelope struct {
	DevAddr identity.DevAddr `json:"dev_addr"`
	FCnt    uint32           `json:"f_cnt"`
	FPort   uint8            `json:"f_port"`
	Payload []byte           `json:"payload"`
}

// sessionState is the exported session blob.
type sessionState struct {
	Activation ActivationMode     `json:"activation"`
	DevAddr    identity.DevAddr   `json:"dev_addr"`
	NwkSKey    identity.AES128Key `json:"nwk_s_key"`
	AppSKey    identity.AES128Key `json:"app_s_key"`
	FCntUp     uint32             `json:"f_cnt_up"`
	FCntDown   uint32             `json:"f_cnt_down"`
}

func (s *sessionState) valid() bool {
	return !s.DevAddr.IsZero() && !s.NwkSKey.IsZero() && !s.AppSKey.IsZero()
}
