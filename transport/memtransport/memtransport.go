// Package memtransport is an in-process ilink3.Transport used by tests and
// examples: two MemTransport values, obtained from NewPair, talk to each
// other over buffered channels with no real network involved.
package memtransport

import (
	"errors"
	"sync/atomic"

	"github.com/jpietraszuk/ilink3"
)

// ErrClosed is returned by ReadMessage once the peer has closed its side.
var ErrClosed = errors.New("memtransport: closed")

// MemTransport is a bounded-capacity, non-blocking channel pair
// implementing both ilink3.Transport and connector.Link.
type MemTransport struct {
	out      chan []byte
	in       chan []byte
	position atomic.Int64
}

// NewPair returns two MemTransport values wired to each other, each with
// an outbound buffer of the given capacity. Sends past capacity report
// ilink3.ErrBackPressure instead of blocking.
func NewPair(capacity int) (a, b *MemTransport) {
	ab := make(chan []byte, capacity)
	ba := make(chan []byte, capacity)
	a = &MemTransport{out: ab, in: ba}
	b = &MemTransport{out: ba, in: ab}
	return a, b
}

// TryClaim implements ilink3.Transport.
func (t *MemTransport) TryClaim(length int) (*ilink3.Claim, error) {
	if len(t.out) >= cap(t.out) {
		return nil, ilink3.ErrBackPressure
	}
	buf := make([]byte, length)
	pos := t.position.Add(1)
	return ilink3.NewClaim(buf, pos, func() error {
		select {
		case t.out <- buf:
			return nil
		default:
			return ilink3.ErrBackPressure
		}
	}), nil
}

// ReadMessage blocks for the next message sent by the peer.
func (t *MemTransport) ReadMessage() ([]byte, error) {
	msg, ok := <-t.in
	if !ok {
		return nil, ErrClosed
	}
	return msg, nil
}

// Close closes this side's outbound channel, causing the peer's
// ReadMessage to return ErrClosed once drained.
func (t *MemTransport) Close() error {
	close(t.out)
	return nil
}
