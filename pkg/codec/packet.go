package codec

// UplinkPacket is the fixed set of fields sent every cycle.
// BatteryCentivolts is nil when the active layout does not carry it.
type UplinkPacket struct {
	DeviceID          uint8
	MoisturePercent   uint32
	BatteryCentivolts *uint32
}

// DownlinkPacket is an opaque payload received from the backend.
type DownlinkPacket struct {
	Payload []byte
}

// Empty reports whether nothing was received.
func (d DownlinkPacket) Empty() bool {
	return len(d.Payload) == 0
}
