package connector

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/jpietraszuk/ilink3"
	"github.com/jpietraszuk/ilink3/internal/wire"
)

// Link is the reliable transport plus the inbound half a Connector needs:
// ilink3.Transport for outbound claims, and ReadMessage/Close for inbound
// SOFH-framed messages; the Connector strips the SOFH and hands the SBE
// header and payload to the core's OnMessage. The ilink3 core itself never
// reads; this boundary exists only in the ambient layer.
type Link interface {
	ilink3.Transport
	ReadMessage() ([]byte, error)
	Close() error
}

// DialFunc opens a new Link and returns the connection identifier the
// gateway assigned it.
type DialFunc func(ctx context.Context) (Link, uint64, error)

// Connector owns the reconnect-with-backoff loop and the single goroutine
// that serializes Session.OnMessage and Session.Poll: incoming messages,
// the poll ticker, and the initiate outcome all funnel through one select.
type Connector struct {
	cfg     *ilink3.Config
	offsets *wire.OffsetTable
	dial    DialFunc
	opts    Options
}

// New builds a Connector. cfg and offsets are reused across reconnects;
// dial is called once per connect attempt.
func New(cfg *ilink3.Config, offsets *wire.OffsetTable, dial DialFunc, opts ...Option) *Connector {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Connector{cfg: cfg, offsets: offsets, dial: dial, opts: o}
}

// Run connects, negotiates, and pumps the session until it unbinds, the
// link fails, or ctx is cancelled, redialing with backoff when the link
// fails. It returns nil once a session unbinds (including after a failed
// negotiate/establish), and an error when ctx is cancelled or the backoff
// policy is exhausted.
func (c *Connector) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		link, connID, err := c.dialWithBackoff(ctx)
		if err != nil {
			return err
		}
		sessionUUID := newSessionUUID()
		session, reply := ilink3.NewSession(c.cfg, link, ilink3.SystemClock{}, c.offsets, sessionUUID, connID)
		c.opts.Logger.WithField("uuid", sessionUUID).WithField("connectionId", connID).Info("session starting")

		err = c.runSession(ctx, link, session, reply)
		link.Close()
		if err != nil {
			c.opts.Logger.WithError(err).Warn("session ended, reconnecting")
			continue
		}
		return nil
	}
}

func (c *Connector) dialWithBackoff(ctx context.Context) (Link, uint64, error) {
	var link Link
	var connID uint64
	op := func() error {
		var err error
		link, connID, err = c.dial(ctx)
		return err
	}
	err := backoff.Retry(op, backoff.WithContext(c.opts.Backoff, ctx))
	return link, connID, err
}

func (c *Connector) runSession(ctx context.Context, link Link, session *ilink3.Session, reply ilink3.InitiateReply) error {
	incoming := make(chan []byte, 64)
	readErrs := make(chan error, 1)
	go func() {
		for {
			msg, err := link.ReadMessage()
			if err != nil {
				readErrs <- err
				close(incoming)
				return
			}
			incoming <- msg
		}
	}()

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	initiateDone := reply.Done()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErrs:
			return err
		case msg, ok := <-incoming:
			if !ok {
				continue
			}
			if _, err := wire.ReadSOFH(msg); err != nil {
				c.opts.Logger.WithError(err).Debug("dropped malformed message")
				continue
			}
			if err := session.OnMessage(msg[wire.SOFHLen:]); err != nil {
				c.opts.Logger.WithError(err).Debug("dropped malformed message")
			}
		case now := <-ticker.C:
			session.Poll(now.UnixMilli())
		case <-initiateDone:
			if err := reply.Err(); err != nil {
				c.opts.Logger.WithError(err).Warn("negotiate/establish failed")
			} else {
				c.opts.Logger.Info("session established")
			}
			initiateDone = nil
		}
		if session.State() == ilink3.StateUnbound {
			return nil
		}
	}
}

func newSessionUUID() uint64 {
	id := uuid.New()
	return binary.BigEndian.Uint64(id[:8])
}
