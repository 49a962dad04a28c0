package ilink3

import "time"

// Clock supplies time to a Session. Timer deadlines (resend, keepalive) are
// tracked in monotonic milliseconds; message sendingTimeEpoch fields are
// stamped in nanoseconds. The two are never unified, per the protocol's own
// distinction between transport timers and wire timestamps.
type Clock interface {
	// NowMs returns the current time in milliseconds, used for all Session
	// timer comparisons and Poll's now argument.
	NowMs() int64

	// NowNanos returns the current time in nanoseconds since the Unix
	// epoch, used to stamp sendingTimeEpoch and requestTimestamp fields.
	NowNanos() int64
}

// SystemClock is a Clock backed by time.Now.
type SystemClock struct{}

// NowMs implements Clock.
func (SystemClock) NowMs() int64 { return time.Now().UnixMilli() }

// NowNanos implements Clock.
func (SystemClock) NowNanos() int64 { return time.Now().UnixNano() }
