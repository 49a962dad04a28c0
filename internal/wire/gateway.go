package wire

import "encoding/binary"

// GatewayHeaderLen is the width of the gateway envelope prefixed to every
// outbound frame ahead of the SOFH. The gateway multiplexes many sessions
// over one transport connection and uses this field to route the frame; it
// plays no part in SBE decoding and is opaque to the session state machine
// beyond carrying the connection identifier the transport assigned when it
// connected.
const GatewayHeaderLen = 8

// PutGatewayHeader writes connectionID as a little-endian uint64 into the
// first GatewayHeaderLen bytes of dst.
func PutGatewayHeader(dst []byte, connectionID uint64) {
	binary.LittleEndian.PutUint64(dst[:GatewayHeaderLen], connectionID)
}

// GatewayConnectionID reads the connection identifier out of a gateway
// envelope.
func GatewayConnectionID(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src[:GatewayHeaderLen])
}
