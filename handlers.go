package ilink3

import (
	"fmt"

	"github.com/jpietraszuk/ilink3/internal/wire"
)

// OnMessage is the single inbound entry point: buf must start at the SBE
// message header (any gateway envelope and SOFH the transport read must
// already be stripped by the caller). It decodes the header, dispatches
// session-layer templates to their dedicated handlers, and delivers
// everything else to onMessageBusiness.
func (s *Session) OnMessage(buf []byte) error {
	if len(buf) < wire.SBEHeaderLen {
		return fmt.Errorf("ilink3: short message: %d bytes", len(buf))
	}
	header := wire.ReadHeader(buf)
	if wire.SBEHeaderLen+int(header.BlockLength) > len(buf) {
		return fmt.Errorf("ilink3: truncated message: template %d wants %d bytes, have %d", header.TemplateID, header.BlockLength, len(buf)-wire.SBEHeaderLen)
	}
	payload := buf[wire.SBEHeaderLen : wire.SBEHeaderLen+int(header.BlockLength)]
	now := s.clock.NowMs()

	switch header.TemplateID {
	case wire.TemplateNegotiationResp:
		r := wire.DecodeNegotiationResponse(payload)
		s.onNegotiationResponse(now, r.UUID, r.RequestTimestamp)
	case wire.TemplateNegotiationReject:
		r := wire.DecodeNegotiationReject(payload)
		s.onNegotiationReject(r.Reason, r.ErrorCodes)
	case wire.TemplateEstablishmentAck:
		r := wire.DecodeEstablishmentAck(payload)
		s.onEstablishmentAck(now, r.UUID, r.RequestTimestamp, r.NextSeqNo, r.PreviousSeqNo, r.PreviousUUID)
	case wire.TemplateEstablishReject:
		r := wire.DecodeEstablishmentReject(payload)
		s.onEstablishmentReject(r.Reason, r.ErrorCodes)
	case wire.TemplateTerminate:
		r := wire.DecodeTerminate(payload)
		s.onTerminate(now, r.UUID, r.Reason, r.ErrorCodes)
	case wire.TemplateSequence:
		r := wire.DecodeSequence(payload)
		s.onSequence(now, r.UUID, r.NextSeqNo, r.KeepAliveLapsed)
	case wire.TemplateRetransmitReject:
		r := wire.DecodeRetransmitReject(payload)
		s.onRetransmitReject(r.UUID, r.Reason, r.RequestTimestamp, r.ErrorCodes)
	case wire.TemplateNotApplied:
		r := wire.DecodeNotApplied(payload)
		s.onNotApplied(r.UUID, r.FromSeqNo, r.MsgCount)
	case wire.TemplateRetransmitComplete:
		s.onReplayComplete()
	case wire.TemplateRetransmission:
		s.logger.Debug("retransmission batch header received")
	default:
		s.onMessageBusiness(now, header.TemplateID, buf, wire.SBEHeaderLen, int(header.BlockLength), header.Version)
	}
	return nil
}

func (s *Session) checkEcho(uuid uint64, requestTimestamp, savedTimestamp int64) error {
	if uuid != s.uuid || requestTimestamp != savedTimestamp {
		return &IllegalResponseError{Message: fmt.Sprintf(
			"ilink3: echo mismatch: uuid=%d requestTimestamp=%d (want uuid=%d requestTimestamp=%d)",
			uuid, requestTimestamp, s.uuid, savedTimestamp)}
	}
	return nil
}

func (s *Session) onNegotiationResponse(now int64, uuid uint64, requestTimestamp int64) {
	if err := s.checkEcho(uuid, requestTimestamp, s.lastNegotiateRequestTimestamp); err != nil {
		s.fail(err)
		s.RequestDisconnect(DisconnectFailedAuthentication)
		return
	}
	s.state = StateNegotiated
	if _, err := s.sendEstablish(now); err != nil {
		if err != ErrBackPressure {
			s.fail(err)
			return
		}
		return
	}
	s.state = StateSentEstablish
	s.resendTime = now + int64(s.config.KeepAliveIntervalMs)
}

func (s *Session) onNegotiationReject(reason string, errorCodes int32) {
	s.state = StateNegotiateRejected
	s.fail(&RejectError{Message: reason, ErrorCodes: errorCodes})
	s.RequestDisconnect(DisconnectFailedAuthentication)
}

func (s *Session) onEstablishmentAck(now int64, uuid uint64, requestTimestamp int64, nextSeqNo, previousSeqNo, previousUUID uint64) {
	if err := s.checkEcho(uuid, requestTimestamp, s.lastEstablishRequestTimestamp); err != nil {
		s.fail(err)
		s.RequestDisconnect(DisconnectFailedAuthentication)
		return
	}
	s.state = StateEstablished
	s.initiateReply.complete(nil)
	s.resetTimers(now)

	if previousUUID == uuid && previousSeqNo+1 > s.nextRecvSeqNo {
		if _, err := s.beginGapWorkflow(previousSeqNo, previousSeqNo+1); err != nil && err != ErrBackPressure {
			s.fail(err)
			return
		}
	}
	s.checkLowSequence(nextSeqNo)
}

func (s *Session) onEstablishmentReject(reason string, errorCodes int32) {
	s.state = StateEstablishRejected
	s.fail(&RejectError{Message: reason, ErrorCodes: errorCodes})
	s.RequestDisconnect(DisconnectFailedAuthentication)
}

func (s *Session) onTerminate(now int64, uuid uint64, reason string, errorCodes int32) {
	if uuid != s.uuid {
		s.logger.Debug("terminate with mismatched uuid ignored", "uuid", uuid)
		return
	}
	if s.state == StateUnbinding {
		s.state = StateUnbound
		s.RequestDisconnect(DisconnectLogout)
		return
	}
	claim, err := s.sendTerminateMsg(reason, errorCodes)
	if err != nil {
		if err == ErrBackPressure {
			s.resendTerminateReason = reason
			s.resendTerminateErrorCodes = errorCodes
			s.state = StateResendTerminateAck
			return
		}
		s.fail(err)
		return
	}
	_ = claim
	s.state = StateUnbound
	s.RequestDisconnect(DisconnectRemoteTerminate)
}

func (s *Session) onSequence(now int64, uuid uint64, nextSeqNo uint64, keepAliveLapsed wire.KeepAliveLapsed) {
	if uuid != s.uuid {
		return
	}
	s.nextReceiveMessageTimeInMs = now + int64(s.config.KeepAliveIntervalMs)
	if s.state == StateAwaitingKeepalive {
		s.state = StateEstablished
	}

	if !s.checkLowSequence(nextSeqNo) {
		return
	}
	// A forward jump in nextSeqNo is accepted as-is: unlike a business
	// message (onMessageBusiness), a Sequence never starts the gap workflow.
	s.nextRecvSeqNo = nextSeqNo

	if keepAliveLapsed == wire.Lapsed {
		if _, err := s.sendSequenceMsg(wire.NotLapsed); err != nil && err != ErrBackPressure {
			s.fail(err)
			return
		}
	}
	if s.config.Handler != nil {
		s.config.Handler.OnSequence(uuid, nextSeqNo)
	}
}

// checkLowSequence terminates the session and reports the failure if
// seqNo is behind nextRecvSeqNo. It returns false when it did so, meaning
// the caller must stop processing the triggering message.
func (s *Session) checkLowSequence(seqNo uint64) bool {
	if seqNo >= s.nextRecvSeqNo {
		return true
	}
	err := &LowSequenceError{SeqNo: seqNo, Expected: s.nextRecvSeqNo}
	s.fail(err)
	if _, tErr := s.Terminate(err.Error(), 0); tErr != nil && tErr != ErrBackPressure {
		s.logger.Debug("terminate after low sequence failed", "error", tErr)
	}
	return false
}

func (s *Session) onNotApplied(uuid uint64, fromSeqNo uint64, msgCount int32) {
	if uuid != s.uuid {
		if s.config.OnNotAppliedWrongUUID == NotAppliedUUIDTerminate {
			s.fail(&IllegalResponseError{Message: fmt.Sprintf("ilink3: notApplied with wrong uuid %d", uuid)})
			s.RequestDisconnect(DisconnectFailedAuthentication)
		} else {
			s.logger.Debug("notApplied with wrong uuid ignored", "uuid", uuid)
		}
		return
	}
	s.state = StateRetransmitting
	response := &NotAppliedResponse{}
	if s.config.Handler != nil {
		s.config.Handler.OnNotApplied(fromSeqNo, msgCount, response)
	}
	if response.ShouldRetransmit() {
		if _, err := s.sendRetransmitRequestMsg(fromSeqNo, msgCount); err != nil {
			if err == ErrBackPressure {
				s.backpressuredNotApplied = true
				s.notAppliedRetransmitFromSeqNo = fromSeqNo
				s.notAppliedRetransmitMsgCount = msgCount
				return
			}
			s.fail(err)
			return
		}
		s.backpressuredNotApplied = false
		return
	}
	if _, err := s.sendSequenceMsg(wire.NotLapsed); err != nil && err != ErrBackPressure {
		s.fail(err)
		return
	}
	s.state = StateEstablished
}

func (s *Session) onReplayComplete() {
	s.state = StateEstablished
}

func (s *Session) onRetransmitReject(uuid uint64, reason string, requestTimestamp int64, errorCodes int32) {
	if uuid != s.uuid {
		return
	}
	if s.config.Handler != nil {
		s.config.Handler.OnRetransmitReject(reason, requestTimestamp, errorCodes)
	}
	if _, err := s.retransmitFilled(); err != nil && err != ErrBackPressure {
		s.fail(err)
	}
}

func (s *Session) onMessageBusiness(now int64, templateID uint16, buffer []byte, offset, blockLength int, version uint16) {
	s.nextReceiveMessageTimeInMs = now + int64(s.config.KeepAliveIntervalMs)
	s.stats.MessagesReceived.Add(1)

	if s.state != StateEstablished && s.state != StateAwaitingKeepalive && s.state != StateRetransmitting {
		s.logger.Debug("business message discarded outside established", "templateId", templateID, "state", s.state)
		return
	}
	if s.state == StateAwaitingKeepalive {
		s.state = StateEstablished
	}

	payload := buffer[offset : offset+blockLength]
	seqNo, hasSeqNo := s.offsets.SeqNum(templateID, payload)
	if !hasSeqNo {
		// No registered seqNum offset means a control message, not a
		// sequenced business message: accept silently.
		return
	}
	possRetrans := s.offsets.IsPossRetrans(templateID, payload)

	if possRetrans {
		if seqNo == s.retransmitFillSeqNo {
			if _, err := s.retransmitFilled(); err != nil && err != ErrBackPressure {
				s.fail(err)
			}
			return
		}
		s.deliver(templateID, buffer, offset, blockLength, version, true)
		return
	}

	if !s.checkLowSequence(seqNo) {
		return
	}
	if seqNo == s.nextRecvSeqNo {
		s.nextRecvSeqNo++
		s.deliver(templateID, buffer, offset, blockLength, version, false)
		return
	}
	// seqNo > nextRecvSeqNo: gap. Request the missing range; the message
	// that revealed the gap is not delivered.
	if _, err := s.beginGapWorkflow(seqNo-1, seqNo+1); err != nil && err != ErrBackPressure {
		s.fail(err)
	}
}

func (s *Session) deliver(templateID uint16, buffer []byte, offset, blockLength int, version uint16, possRetrans bool) {
	if s.config.Handler != nil {
		s.config.Handler.OnBusinessMessage(templateID, buffer, offset, blockLength, version, possRetrans)
	}
}
