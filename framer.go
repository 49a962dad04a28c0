package ilink3

import (
	"github.com/jpietraszuk/ilink3/internal/wire"
)

// claimFrame reserves gatewayHeaderLen+SOFH+SBEheader+payloadLength bytes
// on the transport, writes the three fixed headers, and returns the claim
// together with the payload region left for the caller to fill. Mirrors
// ILink3Proxy's claim-then-write-headers sequence.
func (s *Session) claimFrame(templateID uint16, blockLength uint16) (*Claim, []byte, error) {
	total := GatewayHeaderLen + SOFHLen + SBEHeaderLen + int(blockLength)
	claim, err := s.transport.TryClaim(total)
	if err != nil {
		return nil, nil, err
	}
	buf := claim.Buffer()
	wire.PutGatewayHeader(buf, s.connectionID)
	off := GatewayHeaderLen
	wire.PutSOFH(buf[off:], uint32(SBEHeaderLen)+uint32(blockLength))
	off += SOFHLen
	wire.PutHeader(buf[off:], blockLength, templateID)
	off += SBEHeaderLen
	return claim, buf[off : off+int(blockLength)], nil
}

// Framing widths re-exported for callers that need to size buffers
// themselves (e.g. transport implementations sizing a ring buffer slot).
const (
	GatewayHeaderLen = wire.GatewayHeaderLen
	SOFHLen          = wire.SOFHLen
	SBEHeaderLen     = wire.SBEHeaderLen
)

func (s *Session) sendNegotiate(now int64) (*Claim, error) {
	ts := s.clock.NowNanos()
	canonical := s.authCanonicalNegotiate(ts)
	sig, err := s.sign(canonical)
	if err != nil {
		return nil, &SigningError{Err: err}
	}
	claim, payload, err := s.claimFrame(wire.TemplateNegotiate, wire.NegotiateBlockLength)
	if err != nil {
		return nil, err
	}
	msg := &wire.Negotiate{
		HMACSignature:    sig,
		AccessKeyID:      s.config.AccessKeyID,
		UUID:             s.uuid,
		RequestTimestamp: ts,
		Session:          s.config.SessionID,
		Firm:             s.config.FirmID,
	}
	wire.EncodeNegotiate(payload, msg)
	if err := claim.Commit(); err != nil {
		return nil, err
	}
	s.lastNegotiateRequestTimestamp = ts
	s.logger.Debug("sent negotiate", "templateId", wire.TemplateNegotiate, "canonicalLen", len(canonical))
	return claim, nil
}

func (s *Session) sendEstablish(now int64) (*Claim, error) {
	ts := s.clock.NowNanos()
	canonical := s.authCanonicalEstablish(ts)
	sig, err := s.sign(canonical)
	if err != nil {
		return nil, &SigningError{Err: err}
	}
	claim, payload, err := s.claimFrame(wire.TemplateEstablish, wire.EstablishBlockLength)
	if err != nil {
		return nil, err
	}
	msg := &wire.Establish{
		HMACSignature:        sig,
		AccessKeyID:          s.config.AccessKeyID,
		UUID:                 s.uuid,
		RequestTimestamp:     ts,
		NextSeqNo:            s.nextSentSeqNo,
		KeepAliveInterval:    s.config.KeepAliveIntervalMs,
		Session:              s.config.SessionID,
		Firm:                 s.config.FirmID,
		TradingSystemName:    s.config.TradingSystemName,
		TradingSystemVersion: s.config.TradingSystemVersion,
		TradingSystemVendor:  s.config.TradingSystemVendor,
	}
	wire.EncodeEstablish(payload, msg)
	if err := claim.Commit(); err != nil {
		return nil, err
	}
	s.lastEstablishRequestTimestamp = ts
	s.logger.Debug("sent establish", "templateId", wire.TemplateEstablish, "canonicalLen", len(canonical))
	return claim, nil
}

func (s *Session) sendTerminateMsg(reason string, errorCodes int32) (*Claim, error) {
	claim, payload, err := s.claimFrame(wire.TemplateTerminate, wire.TerminateBlockLength)
	if err != nil {
		return nil, err
	}
	wire.EncodeTerminate(payload, &wire.Terminate{
		UUID:             s.uuid,
		RequestTimestamp: s.clock.NowNanos(),
		ErrorCodes:       errorCodes,
		Reason:           reason,
	})
	if err := claim.Commit(); err != nil {
		return nil, err
	}
	return claim, nil
}

func (s *Session) sendSequenceMsg(lapsed wire.KeepAliveLapsed) (*Claim, error) {
	claim, payload, err := s.claimFrame(wire.TemplateSequence, wire.SequenceBlockLength)
	if err != nil {
		return nil, err
	}
	wire.EncodeSequence(payload, &wire.Sequence{
		UUID:                    s.uuid,
		NextSeqNo:               s.nextSentSeqNo,
		FaultToleranceIndicator: wire.FTIPrimary,
		KeepAliveLapsed:         lapsed,
	})
	if err := claim.Commit(); err != nil {
		return nil, err
	}
	return claim, nil
}

func (s *Session) sendRetransmitRequestMsg(fromSeqNo uint64, msgCount int32) (*Claim, error) {
	claim, payload, err := s.claimFrame(wire.TemplateRetransmitReq, wire.RetransmitRequestBlockLength)
	if err != nil {
		return nil, err
	}
	wire.EncodeRetransmitRequest(payload, &wire.RetransmitRequest{
		UUID:             s.uuid,
		RequestTimestamp: s.clock.NowNanos(),
		FromSeqNo:        fromSeqNo,
		MsgCount:         msgCount,
	})
	if err := claim.Commit(); err != nil {
		return nil, err
	}
	s.stats.RetransmitRequestsSent.Add(1)
	return claim, nil
}
