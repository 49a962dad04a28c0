package ilink3

import (
	"fmt"

	"github.com/jpietraszuk/ilink3/internal/wire"
)

// Poll drives the state machine forward. now is the current monotonic
// time in milliseconds. It must be called repeatedly from the single
// owning goroutine; every send it attempts degrades to a retry on the
// next call if the transport is back-pressured.
func (s *Session) Poll(now int64) {
	switch s.state {
	case StateConnected:
		s.pollConnected(now)
	case StateSentNegotiate:
		s.pollResend(now, s.sendNegotiate, StateRetryNegotiate)
	case StateRetryNegotiate:
		s.pollRetryTimeout(now, "negotiate")
	case StateNegotiated:
		s.pollNegotiated(now)
	case StateSentEstablish:
		s.pollResend(now, s.sendEstablish, StateRetryEstablish)
	case StateRetryEstablish:
		s.pollRetryTimeout(now, "establish")
	case StateEstablished:
		s.pollEstablished(now)
	case StateAwaitingKeepalive:
		s.pollAwaitingKeepalive(now)
	case StateRetransmitting:
		s.pollRetransmitting(now)
	case StateResendTerminate:
		s.pollResendTerminate(now, StateUnbinding)
	case StateResendTerminateAck:
		s.pollResendTerminate(now, StateUnbound)
	case StateUnbinding:
		s.pollUnbinding(now)
	}
}

func (s *Session) pollConnected(now int64) {
	var err error
	if s.config.ReEstablishLastSession && !s.newlyAllocated {
		_, err = s.sendEstablish(now)
		if err == nil {
			s.state = StateSentEstablish
			s.resendTime = now + int64(s.config.KeepAliveIntervalMs)
		}
	} else {
		_, err = s.sendNegotiate(now)
		if err == nil {
			s.state = StateSentNegotiate
			s.resendTime = now + int64(s.config.KeepAliveIntervalMs)
		}
	}
	if err != nil && err != ErrBackPressure {
		s.fail(err)
	}
}

func (s *Session) pollResend(now int64, send func(int64) (*Claim, error), retryState State) {
	if now <= s.resendTime {
		return
	}
	_, err := send(now)
	if err != nil {
		if err != ErrBackPressure {
			s.fail(err)
		}
		return
	}
	s.state = retryState
	s.resendTime = now + int64(s.config.KeepAliveIntervalMs)
}

func (s *Session) pollRetryTimeout(now int64, what string) {
	if now <= s.resendTime {
		return
	}
	s.state = StateUnbound
	s.fail(&TimeoutError{Message: what + " timed out after resend"})
	s.RequestDisconnect(DisconnectFailedAuthentication)
}

func (s *Session) pollNegotiated(now int64) {
	_, err := s.sendEstablish(now)
	if err != nil {
		if err != ErrBackPressure {
			s.fail(err)
		}
		return
	}
	s.state = StateSentEstablish
	s.resendTime = now + int64(s.config.KeepAliveIntervalMs)
}

func (s *Session) pollEstablished(now int64) {
	if now > s.nextReceiveMessageTimeInMs {
		_, err := s.sendSequenceMsg(wire.Lapsed)
		if err != nil {
			if err != ErrBackPressure {
				s.fail(err)
			}
			return
		}
		s.nextReceiveMessageTimeInMs = now + int64(s.config.KeepAliveIntervalMs)
		s.state = StateAwaitingKeepalive
		return
	}
	if now > s.nextSendMessageTimeInMs {
		_, err := s.sendSequenceMsg(wire.NotLapsed)
		if err != nil && err != ErrBackPressure {
			s.fail(err)
		}
	}
}

func (s *Session) pollAwaitingKeepalive(now int64) {
	if now <= s.nextReceiveMessageTimeInMs {
		return
	}
	s.stats.KeepAliveTimeouts.Add(1)
	reason := formatExpired(2 * int64(s.config.KeepAliveIntervalMs))
	if _, err := s.Terminate(reason, 0); err != nil && err != ErrBackPressure {
		s.fail(err)
	}
}

func (s *Session) pollRetransmitting(now int64) {
	if !s.backpressuredNotApplied {
		return
	}
	if _, err := s.sendRetransmitRequestMsg(s.notAppliedRetransmitFromSeqNo, s.notAppliedRetransmitMsgCount); err != nil {
		if err != ErrBackPressure {
			s.fail(err)
		}
		return
	}
	s.backpressuredNotApplied = false
}

func (s *Session) pollResendTerminate(now int64, onSuccess State) {
	claim, err := s.sendTerminateMsg(s.resendTerminateReason, s.resendTerminateErrorCodes)
	if err != nil {
		if err != ErrBackPressure {
			s.fail(err)
		}
		return
	}
	_ = claim
	s.state = onSuccess
	s.nextSendMessageTimeInMs = now + int64(s.config.KeepAliveIntervalMs)
	if onSuccess == StateUnbound {
		s.RequestDisconnect(DisconnectRemoteTerminate)
	}
}

func (s *Session) pollUnbinding(now int64) {
	if now <= s.nextSendMessageTimeInMs {
		return
	}
	s.state = StateUnbound
	s.RequestDisconnect(DisconnectLogout)
}

func formatExpired(ms int64) string {
	return fmt.Sprintf("%dms expired without message", ms)
}
