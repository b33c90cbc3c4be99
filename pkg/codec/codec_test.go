package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/soil-node/pkg/codec"
)

func uint32Ptr(v uint32) *uint32 { return &v }

// TestCodec_Encode_CurrentLayout checks the exact wire bytes of the moisture+battery layout.
func TestCodec_Encode_CurrentLayout(t *testing.T) {
	c, err := codec.New("1.1.0", 64)
	require.NoError(t, err)

	data, err := c.Encode(codec.UplinkPacket{
		DeviceID:          0x01,
		MoisturePercent:   50,
		BatteryCentivolts: uint32Ptr(305),
	})

	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x32, 0x00, 0x00, 0x00, 0x31, 0x01, 0x00, 0x00}, data)
	assert.Equal(t, 9, c.Layout().Size())
}

// TestCodec_Encode_LegacyLayout checks that 1.0 packets carry moisture only.
func TestCodec_Encode_LegacyLayout(t *testing.T) {
	c, err := codec.New("1.0.3", 64)
	require.NoError(t, err)

	data, err := c.Encode(codec.UplinkPacket{
		DeviceID:          0x07,
		MoisturePercent:   42,
		BatteryCentivolts: uint32Ptr(330),
	})

	require.NoError(t, err)
	assert.Equal(t, []byte{0x07, 0x2a, 0x00, 0x00, 0x00}, data)
	assert.False(t, c.Layout().Has(codec.FieldBattery))
}

// TestCodec_RoundTrip encodes then decodes with the same layout.
func TestCodec_RoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		version string
		packet  codec.UplinkPacket
	}{
		{"legacy zero", "1.0.0", codec.UplinkPacket{DeviceID: 0, MoisturePercent: 0}},
		{"legacy max", "1.0.0", codec.UplinkPacket{DeviceID: 0xFF, MoisturePercent: 0xFFFFFFFF}},
		{"current typical", "1.1.0", codec.UplinkPacket{DeviceID: 1, MoisturePercent: 50, BatteryCentivolts: uint32Ptr(305)}},
		{"current out of range moisture", "1.3.2", codec.UplinkPacket{DeviceID: 9, MoisturePercent: 250, BatteryCentivolts: uint32Ptr(0)}},
		{"current max", "1.1.0", codec.UplinkPacket{DeviceID: 0xFF, MoisturePercent: 0xFFFFFFFF, BatteryCentivolts: uint32Ptr(0xFFFFFFFF)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := codec.New(tc.version, 0)
			require.NoError(t, err)

			data, err := c.Encode(tc.packet)
			require.NoError(t, err)
			assert.Len(t, data, c.Layout().Size())

			decoded, err := c.DecodeUplink(data)
			require.NoError(t, err)
			assert.Equal(t, tc.packet, decoded)
		})
	}
}

// TestCodec_Encode_MissingBattery fails when the layout needs a battery field.
func TestCodec_Encode_MissingBattery(t *testing.T) {
	c, err := codec.New("1.1.0", 64)
	require.NoError(t, err)

	_, err = c.Encode(codec.UplinkPacket{DeviceID: 1, MoisturePercent: 10})
	assert.ErrorIs(t, err, codec.ErrMissingField)
}

// TestCodec_DecodeUplink_InvalidLength rejects payloads of the wrong size.
func TestCodec_DecodeUplink_InvalidLength(t *testing.T) {
	c, err := codec.New("1.1.0", 64)
	require.NoError(t, err)

	_, err = c.DecodeUplink([]byte{0x01, 0x02, 0x03, 0x04, 0x05})
	assert.ErrorIs(t, err, codec.ErrInvalidLength)
}

// TestNew_UnsupportedVersion rejects versions without a layout.
func TestNew_UnsupportedVersion(t *testing.T) {
	for _, version := range []string{"0.9.0", "2.0.0", "not-a-version"} {
		_, err := codec.New(version, 64)
		assert.ErrorIs(t, err, codec.ErrUnsupportedVersion, version)
	}
}

// TestCodec_DecodeDownlink covers empty, normal and oversized downlinks.
func TestCodec_DecodeDownlink(t *testing.T) {
	c, err := codec.New("1.1.0", 4)
	require.NoError(t, err)

	empty, err := c.DecodeDownlink(nil)
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	input := []byte{0xde, 0xad}
	packet, err := c.DecodeDownlink(input)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad}, packet.Payload)

	input[0] = 0x00
	assert.Equal(t, byte(0xde), packet.Payload[0], "payload must not alias the input buffer")

	_, err = c.DecodeDownlink([]byte{1, 2, 3, 4, 5})
	assert.ErrorIs(t, err, codec.ErrDownlinkTooLarge)
}
