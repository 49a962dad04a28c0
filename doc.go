// Package ilink3 implements the client-side session layer of the iLink3
// order-entry protocol: negotiate/establish handshake, HMAC-SHA256
// authentication, monotonic sequence-number discipline with chunked
// retransmit on gaps, bidirectional keepalive, and zero-copy outbound
// message framing over a caller-supplied reliable ordered transport.
//
// A Session is single-threaded and cooperatively polled: all state
// transitions happen inside Poll or one of the On* event handlers, both of
// which must only ever be called from one goroutine. Nothing in this
// package blocks; back-pressure and timeouts are represented as errors or
// deadlines and retried on the next Poll.
package ilink3
