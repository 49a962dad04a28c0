package ilink3

// State is the lifecycle stage of a Session: a small-uint enum with a
// String method for logging.
type State uint8

// Session lifecycle states.
const (
	StateConnected State = iota
	StateSentNegotiate
	StateRetryNegotiate
	StateNegotiated
	StateNegotiateRejected
	StateSentEstablish
	StateRetryEstablish
	StateEstablished
	StateAwaitingKeepalive
	StateRetransmitting
	StateResendTerminate
	StateResendTerminateAck
	StateUnbinding
	StateUnbound
	StateEstablishRejected
)

var stateNames = [...]string{
	StateConnected:          "Connected",
	StateSentNegotiate:      "SentNegotiate",
	StateRetryNegotiate:     "RetryNegotiate",
	StateNegotiated:         "Negotiated",
	StateNegotiateRejected:  "NegotiateRejected",
	StateSentEstablish:      "SentEstablish",
	StateRetryEstablish:     "RetryEstablish",
	StateEstablished:        "Established",
	StateAwaitingKeepalive:  "AwaitingKeepalive",
	StateRetransmitting:     "Retransmitting",
	StateResendTerminate:    "ResendTerminate",
	StateResendTerminateAck: "ResendTerminateAck",
	StateUnbinding:          "Unbinding",
	StateUnbound:            "Unbound",
	StateEstablishRejected:  "EstablishRejected",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if int(s) < len(stateNames) && stateNames[s] != "" {
		return stateNames[s]
	}
	return "Unknown"
}

// sendable reports whether tryClaim/commit may be called in this state.
func (s State) sendable() bool {
	return s == StateEstablished || s == StateAwaitingKeepalive
}

// terminal reports whether the session has finished and should be
// discarded by its owner.
func (s State) terminal() bool {
	return s == StateUnbound
}
