package codec

import "errors"

var (
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
	ErrMissingField       = errors.New("packet is missing a field required by the layout")
	ErrInvalidLength      = errors.New("payload length does not match the layout")
	ErrDownlinkTooLarge   = errors.New("downlink payload exceeds the maximum size")
)
