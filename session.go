package ilink3

import (
	"encoding/binary"
	"log/slog"

	"github.com/eapache/queue"

	"github.com/jpietraszuk/ilink3/auth"
	"github.com/jpietraszuk/ilink3/internal/wire"
)

// Session drives a single iLink3 client connection: Negotiate/Establish,
// sequencing, gap-filling retransmit, keepalive, and termination. All
// unexported fields are touched only from Poll and the On* methods, which
// callers must serialize onto one goroutine.
type Session struct {
	config    *Config
	transport Transport
	clock     Clock
	offsets   *wire.OffsetTable
	logger    *slog.Logger

	uuid         uint64
	connectionID uint64

	state State

	nextSentSeqNo uint64
	nextRecvSeqNo uint64

	retransmitFillSeqNo uint64
	retransmitQueue     *queue.Queue

	lastNegotiateRequestTimestamp int64
	lastEstablishRequestTimestamp int64

	resendTime                int64
	nextReceiveMessageTimeInMs int64
	nextSendMessageTimeInMs    int64

	backpressuredNotApplied     bool
	notAppliedRetransmitFromSeqNo uint64
	notAppliedRetransmitMsgCount  int32

	resendTerminateReason     string
	resendTerminateErrorCodes int32

	newlyAllocated bool

	initiateReply *initiateReply

	stats sessionStats
}

// NewSession constructs a Session for a freshly connected transport.
// uuid identifies this session leg and is echoed by the gateway on every
// session-layer message; connectionID is assigned by the transport.
// offsets tells the core where to find seqNum/sendingTimeEpoch/possRetrans
// in business templates the caller registers ahead of time.
//
// It returns the Session and the InitiateReply that resolves once
// Negotiate/Establish completes or fails.
func NewSession(cfg *Config, transport Transport, clock Clock, offsets *wire.OffsetTable, uuid, connectionID uint64) (*Session, InitiateReply) {
	sentSeq := cfg.InitialSentSeqNo
	if sentSeq == AutomaticSeqNo {
		sentSeq = 1
	}
	recvSeq := cfg.InitialRecvSeqNo
	if recvSeq == AutomaticSeqNo {
		recvSeq = 1
	}
	reply := newInitiateReply()
	s := &Session{
		config:          cfg,
		transport:       transport,
		clock:           clock,
		offsets:         offsets,
		logger:          cfg.Logger.With("lib", "ilink3"),
		uuid:            uuid,
		connectionID:    connectionID,
		state:           StateConnected,
		nextSentSeqNo:   sentSeq,
		nextRecvSeqNo:   recvSeq,
		retransmitQueue: newRetransmitQueue(),
		newlyAllocated:  cfg.InitialSentSeqNo == AutomaticSeqNo && cfg.InitialRecvSeqNo == AutomaticSeqNo,
		initiateReply:   reply,
	}
	return s, reply
}

// UUID returns the session's 64-bit identifier.
func (s *Session) UUID() uint64 { return s.uuid }

// ConnectionID returns the transport-assigned connection identifier.
func (s *Session) ConnectionID() uint64 { return s.connectionID }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// NextSentSeqNo returns the sequence number that will be stamped on the
// next successfully claimed business message.
func (s *Session) NextSentSeqNo() uint64 { return s.nextSentSeqNo }

// NextRecvSeqNo returns the sequence number expected on the next in-order
// inbound business message.
func (s *Session) NextRecvSeqNo() uint64 { return s.nextRecvSeqNo }

// RetransmitFillSeqNo returns the last sequence number expected from the
// currently outstanding retransmit request, or notAwaitingRetransmit (0)
// if none is in flight.
func (s *Session) RetransmitFillSeqNo() uint64 { return s.retransmitFillSeqNo }

// Stats returns a snapshot of the session's counters.
func (s *Session) Stats() Stats { return s.stats.snapshot() }

func (s *Session) sign(canonical string) ([auth.SignatureLen]byte, error) {
	return auth.Sign(s.config.UserKey, canonical)
}

func (s *Session) authCanonicalNegotiate(ts int64) string {
	return auth.NegotiateCanonicalRequest(ts, s.uuid, s.config.SessionID, s.config.FirmID)
}

func (s *Session) authCanonicalEstablish(ts int64) string {
	return auth.EstablishCanonicalRequest(ts, s.uuid, s.config.SessionID, s.config.FirmID,
		s.config.TradingSystemName, s.config.TradingSystemVersion, s.config.TradingSystemVendor,
		s.nextSentSeqNo, s.config.KeepAliveIntervalMs)
}

// TryClaim reserves space for an outbound business message of templateID
// and blockLength. On success the payload's seqNum and sendingTimeEpoch
// fields (per the registered OffsetTable) are stamped and nextSentSeqNo is
// advanced; possRetrans, if present, is left false. Valid only in
// Established or AwaitingKeepalive.
func (s *Session) TryClaim(templateID uint16, blockLength uint16) (*Claim, []byte, error) {
	if !s.state.sendable() {
		return nil, nil, ErrInvalidState
	}
	claim, payload, err := s.claimFrame(templateID, blockLength)
	if err != nil {
		return nil, nil, err
	}
	if off := s.offsets.SeqNumOffset(templateID); off != wire.MissingOffset && off+8 <= len(payload) {
		binary.LittleEndian.PutUint64(payload[off:off+8], s.nextSentSeqNo)
		s.nextSentSeqNo++
	}
	if off := s.offsets.SendingTimeEpochOffset(templateID); off != wire.MissingOffset && off+8 <= len(payload) {
		binary.LittleEndian.PutUint64(payload[off:off+8], uint64(s.clock.NowNanos()))
	}
	return claim, payload, nil
}

// Commit publishes a claim obtained from TryClaim and refreshes the send
// keepalive deadline.
func (s *Session) Commit(claim *Claim) error {
	if !s.state.sendable() {
		return ErrInvalidState
	}
	if err := claim.Commit(); err != nil {
		return err
	}
	s.nextSendMessageTimeInMs = s.clock.NowMs() + int64(s.config.KeepAliveIntervalMs)
	s.stats.MessagesSent.Add(1)
	return nil
}

// Terminate sends a Terminate message. On success the session moves to
// Unbinding; on back-pressure the reason is parked and the session moves
// to ResendTerminate for retry on the next Poll.
func (s *Session) Terminate(reason string, errorCodes int32) (*Claim, error) {
	claim, err := s.sendTerminateMsg(reason, errorCodes)
	if err != nil {
		if err == ErrBackPressure {
			s.resendTerminateReason = reason
			s.resendTerminateErrorCodes = errorCodes
			s.state = StateResendTerminate
			return nil, nil
		}
		return nil, err
	}
	s.state = StateUnbinding
	s.nextSendMessageTimeInMs = s.clock.NowMs() + int64(s.config.KeepAliveIntervalMs)
	return claim, nil
}

// RequestDisconnect notifies the handler that the owner should drop the
// transport connection and marks the session Unbound.
func (s *Session) RequestDisconnect(reason DisconnectReason) {
	s.state = StateUnbound
	if s.config.Handler != nil {
		s.config.Handler.OnDisconnect(reason)
	}
}

func (s *Session) fail(err error) {
	if s.initiateReply != nil {
		s.initiateReply.complete(err)
	}
	if s.config.Handler != nil {
		s.config.Handler.OnError(err)
	}
}

func (s *Session) resetTimers(now int64) {
	s.nextReceiveMessageTimeInMs = now + int64(s.config.KeepAliveIntervalMs)
	s.nextSendMessageTimeInMs = now + int64(s.config.KeepAliveIntervalMs)
}
