// Package codec encodes the uplink telemetry packet and surfaces downlink payloads.
//
// Uplink layout: DeviceID(1) | Moisture(4) [| Battery(4)]
// Integers are unsigned 32-bit little-endian. There is no length prefix and no checksum;
// integrity is left to the transport.
package codec

import (
	"encoding/binary"
	"fmt"
)

// Codec encodes and decodes packets for one fixed protocol version.
type Codec struct {
	layout      Layout
	downlinkMax int
}

// New creates a Codec for the given protocol version. downlinkMax bounds accepted
// downlink payloads; zero or less disables the bound.
func New(version string, downlinkMax int) (*Codec, error) {
	layout, err := ParseLayout(version)
	if err != nil {
		return nil, err
	}
	return &Codec{layout: layout, downlinkMax: downlinkMax}, nil
}

// Layout returns the active layout.
func (c *Codec) Layout() Layout {
	return c.layout
}

// Encode serialises p. Fields absent from the layout are ignored; a battery value is
// required when the layout carries it. Moisture is not range checked.
func (c *Codec) Encode(p UplinkPacket) ([]byte, error) {
	data := make([]byte, c.layout.Size())
	data[0] = p.DeviceID

	offset := deviceIDSize
	for _, field := range c.layout.Fields {
		var value uint32
		switch field {
		case FieldMoisture:
			value = p.MoisturePercent
		case FieldBattery:
			if p.BatteryCentivolts == nil {
				return nil, fmt.Errorf("%w: %s", ErrMissingField, field)
			}
			value = *p.BatteryCentivolts
		}
		binary.LittleEndian.PutUint32(data[offset:offset+fieldSize], value)
		offset += fieldSize
	}

	return data, nil
}

// DecodeUplink parses an uplink encoded with the same layout.
func (c *Codec) DecodeUplink(data []byte) (UplinkPacket, error) {
	if len(data) != c.layout.Size() {
		return UplinkPacket{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidLength, len(data), c.layout.Size())
	}

	p := UplinkPacket{DeviceID: data[0]}
	offset := deviceIDSize
	for _, field := range c.layout.Fields {
		value := binary.LittleEndian.Uint32(data[offset : offset+fieldSize])
		switch field {
		case FieldMoisture:
			p.MoisturePercent = value
		case FieldBattery:
			p.BatteryCentivolts = &value
		}
		offset += fieldSize
	}

	return p, nil
}

// DecodeDownlink passes data through. A zero-length input means nothing was received.
func (c *Codec) DecodeDownlink(data []byte) (DownlinkPacket, error) {
	if len(data) == 0 {
		return DownlinkPacket{}, nil
	}
	if c.downlinkMax > 0 && len(data) > c.downlinkMax {
		return DownlinkPacket{}, fmt.Errorf("%w: %d > %d", ErrDownlinkTooLarge, len(data), c.downlinkMax)
	}

	payload := make([]byte, len(data))
	copy(payload, data)
	return DownlinkPacket{Payload: payload}, nil
}
