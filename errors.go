package ilink3

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Transport implementations and by Session
// methods that consult the transport.
var (
	// ErrBackPressure is returned by Transport.TryClaim when the outbound
	// buffer is momentarily full. It is not fatal: the caller (Session)
	// retries the same send on the next Poll.
	ErrBackPressure = errors.New("ilink3: transport back-pressured")

	// ErrInvalidState is returned by TryClaim and Commit when called
	// outside the states that permit sending. It does not mutate session
	// state. Terminate does not check the session state and never returns
	// it.
	ErrInvalidState = errors.New("ilink3: session not in a sendable state")
)

// ClosedError wraps the reason a Transport reports it can no longer accept
// claims. Unlike ErrBackPressure this is fatal to the session.
type ClosedError struct {
	Reason string
}

func (e *ClosedError) Error() string {
	return fmt.Sprintf("ilink3: transport closed: %s", e.Reason)
}

// IllegalResponseError reports a Negotiate/Establish response whose
// uuid or requestTimestamp echo did not match what was sent.
type IllegalResponseError struct {
	Message string
}

func (e *IllegalResponseError) Error() string { return e.Message }

// RejectError reports a NegotiationReject/EstablishmentReject from the peer.
type RejectError struct {
	Message    string
	ErrorCodes int32
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("%s,errorCodes=%d", e.Message, e.ErrorCodes)
}

// TimeoutError reports a Negotiate/Establish request that received no
// response before its resend/retry deadline elapsed twice.
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string { return e.Message }

// LowSequenceError reports an inbound Sequence or business message whose
// seqNum is below nextRecvSeqNo. It always accompanies a Terminate.
type LowSequenceError struct {
	SeqNo    uint64
	Expected uint64
}

func (e *LowSequenceError) Error() string {
	return fmt.Sprintf("seqNo=%d,expecting=%d", e.SeqNo, e.Expected)
}

// SigningError wraps a failure of the HMAC primitive. It is always fatal.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string { return "ilink3: hmac signing failed: " + e.Err.Error() }
func (e *SigningError) Unwrap() error { return e.Err }
