// Package wstransport adapts a websocket connection into an ilink3.Transport
// (plus the ReadMessage/Close methods connector.Link expects), giving the
// demo binaries a real, if unglamorous, "reliable ordered transport" to
// run the session engine over.
package wstransport

import (
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/jpietraszuk/ilink3"
)

// WSTransport frames every claim/commit as one binary websocket message.
// Outbound messages queue on a bounded channel drained by a writer
// goroutine, so TryClaim never blocks: once the queue is full it reports
// ilink3.ErrBackPressure instead of blocking the caller on conn.Write.
type WSTransport struct {
	conn     *websocket.Conn
	sendCh   chan []byte
	position atomic.Int64
	writeErr atomic.Value
}

// New wraps conn. sendBuffer bounds how many committed frames may be
// queued for the writer goroutine before TryClaim starts reporting
// back-pressure.
func New(conn *websocket.Conn, sendBuffer int) *WSTransport {
	t := &WSTransport{conn: conn, sendCh: make(chan []byte, sendBuffer)}
	go t.writeLoop()
	return t
}

func (t *WSTransport) writeLoop() {
	for buf := range t.sendCh {
		if err := t.conn.WriteMessage(websocket.BinaryMessage, buf); err != nil {
			t.writeErr.Store(err)
			return
		}
	}
}

// TryClaim implements ilink3.Transport.
func (t *WSTransport) TryClaim(length int) (*ilink3.Claim, error) {
	if err, ok := t.writeErr.Load().(error); ok && err != nil {
		return nil, &ilink3.ClosedError{Reason: err.Error()}
	}
	if len(t.sendCh) >= cap(t.sendCh) {
		return nil, ilink3.ErrBackPressure
	}
	buf := make([]byte, length)
	pos := t.position.Add(1)
	return ilink3.NewClaim(buf, pos, func() error {
		select {
		case t.sendCh <- buf:
			return nil
		default:
			return ilink3.ErrBackPressure
		}
	}), nil
}

// ReadMessage blocks for the next inbound websocket frame.
func (t *WSTransport) ReadMessage() ([]byte, error) {
	_, msg, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Close stops the writer goroutine and closes the underlying connection.
func (t *WSTransport) Close() error {
	close(t.sendCh)
	return t.conn.Close()
}
