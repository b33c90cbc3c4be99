package identity

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// EUI64 represents an 8-byte Extended Unique Identifier
type EUI64 [8]byte

// String returns hex string representation
func (e EUI64) String() string {
	return hex.EncodeToString(e[:])
}

// IsZero reports whether every byte is zero.
func (e EUI64) IsZero() bool {
	return e == EUI64{}
}

// MarshalJSON implements json.Marshaler
func (e EUI64) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (e *EUI64) UnmarshalJSON(data []byte) error {
	return unmarshalHex(data, e[:], "EUI64")
}

// DevAddr represents a 4-byte device address
type DevAddr [4]byte

// String returns hex string representation
func (d DevAddr) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether every byte is zero.
func (d DevAddr) IsZero() bool {
	return d == DevAddr{}
}

// MarshalJSON implements json.Marshaler
func (d DevAddr) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *DevAddr) UnmarshalJSON(data []byte) error {
	return unmarshalHex(data, d[:], "DevAddr")
}

// AES128Key represents a 128-bit AES key
type AES128Key [16]byte

// String returns hex string representation
func (k AES128Key) String() string {
	return hex.EncodeToString(k[:])
}

// IsZero reports whether every byte is zero.
func (k AES128Key) IsZero() bool {
	return k == AES128Key{}
}

// MarshalJSON implements json.Marshaler
func (k AES128Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (k *AES128Key) UnmarshalJSON(data []byte) error {
	return unmarshalHex(data, k[:], "AES128Key")
}

// unmarshalHex decodes a JSON hex string into dst, which must match its length exactly.
// An empty string leaves dst zeroed.
func unmarshalHex(data []byte, dst []byte, name string) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("invalid %s length: got %d bytes, want %d", name, len(b), len(dst))
	}

	copy(dst, b)
	return nil
}
