package ilink3_test

import (
	"encoding/base64"
	"sync/atomic"

	"github.com/jpietraszuk/ilink3/internal/wire"
)

type fakeClock struct {
	ms atomic.Int64
	ns atomic.Int64
}

func (c *fakeClock) NowMs() int64    { return c.ms.Load() }
func (c *fakeClock) NowNanos() int64 { return c.ns.Load() }
func (c *fakeClock) SetMs(v int64)   { c.ms.Store(v) }
func (c *fakeClock) SetNanos(v int64) { c.ns.Store(v) }

func testUserKey() string {
	return base64.RawURLEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func buildMessage(templateID uint16, blockLength uint16, encode func([]byte)) []byte {
	buf := make([]byte, wire.SBEHeaderLen+int(blockLength))
	wire.PutHeader(buf, blockLength, templateID)
	encode(buf[wire.SBEHeaderLen:])
	return buf
}

// decodeSent strips the gateway header and SOFH a Session writes and
// returns the SBE header plus the payload region.
func decodeSent(raw []byte) (wire.Header, []byte, error) {
	after := raw[wire.GatewayHeaderLen:]
	_, err := wire.ReadSOFH(after)
	if err != nil {
		return wire.Header{}, nil, err
	}
	sbe := after[wire.SOFHLen:]
	h := wire.ReadHeader(sbe)
	return h, sbe[wire.SBEHeaderLen : wire.SBEHeaderLen+int(h.BlockLength)], nil
}
