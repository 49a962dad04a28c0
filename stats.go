package ilink3

import "sync/atomic"

// Stats is a point-in-time snapshot of a Session's atomic counters.
type Stats struct {
	MessagesSent           uint64
	MessagesReceived       uint64
	RetransmitRequestsSent uint64
	GapsDetected           uint64
	KeepAliveTimeouts      uint64
}

type sessionStats struct {
	MessagesSent           atomic.Uint64
	MessagesReceived       atomic.Uint64
	RetransmitRequestsSent atomic.Uint64
	GapsDetected           atomic.Uint64
	KeepAliveTimeouts      atomic.Uint64
}

func (s *sessionStats) snapshot() Stats {
	return Stats{
		MessagesSent:           s.MessagesSent.Load(),
		MessagesReceived:       s.MessagesReceived.Load(),
		RetransmitRequestsSent: s.RetransmitRequestsSent.Load(),
		GapsDetected:           s.GapsDetected.Load(),
		KeepAliveTimeouts:      s.KeepAliveTimeouts.Load(),
	}
}
