package ilink3_test

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/jpietraszuk/ilink3"
	"github.com/jpietraszuk/ilink3/internal/wire"
	"github.com/jpietraszuk/ilink3/transport/memtransport"
)

type businessDelivery struct {
	templateID  uint16
	possRetrans bool
}

type recordingHandler struct {
	errs      []error
	disconns  []ilink3.DisconnectReason
	sequences []uint64
	business  []businessDelivery
}

func (h *recordingHandler) OnBusinessMessage(templateID uint16, buffer []byte, offset, blockLength int, version uint16, possRetrans bool) {
	h.business = append(h.business, businessDelivery{templateID: templateID, possRetrans: possRetrans})
}
func (h *recordingHandler) OnNotApplied(uint64, int32, *ilink3.NotAppliedResponse) {}
func (h *recordingHandler) OnRetransmitReject(string, int64, int32)               {}
func (h *recordingHandler) OnSequence(uuid uint64, nextSeqNo uint64) {
	h.sequences = append(h.sequences, nextSeqNo)
}
func (h *recordingHandler) OnError(err error) { h.errs = append(h.errs, err) }
func (h *recordingHandler) OnDisconnect(reason ilink3.DisconnectReason) {
	h.disconns = append(h.disconns, reason)
}

func newTestSession(t *testing.T, opts ...ilink3.Option) (*ilink3.Session, ilink3.InitiateReply, *memtransport.MemTransport, *fakeClock, *recordingHandler) {
	t.Helper()
	client, exchange := memtransport.NewPair(16)
	clock := &fakeClock{}
	handler := &recordingHandler{}
	cfgOpts := append([]ilink3.Option{
		ilink3.WithKeepAlive(500),
		ilink3.WithHandler(handler),
	}, opts...)
	cfg := ilink3.NewConfig("S1", "F1", testUserKey(), cfgOpts...)
	session, reply := ilink3.NewSession(cfg, client, clock, wire.NewOffsetTable(), 42, 1)
	return session, reply, exchange, clock, handler
}

// S1: Negotiate/Establish happy path.
func TestNegotiateEstablishHappyPath(t *testing.T) {
	session, reply, exchange, clock, _ := newTestSession(t)

	session.Poll(0)
	if session.State() != ilink3.StateSentNegotiate {
		t.Fatalf("state after first poll = %v, want SentNegotiate", session.State())
	}

	raw, err := exchange.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	header, payload, err := decodeSent(raw)
	if err != nil {
		t.Fatalf("decodeSent: %v", err)
	}
	if header.TemplateID != wire.TemplateNegotiate {
		t.Fatalf("templateId = %d, want Negotiate", header.TemplateID)
	}
	neg := wire.DecodeNegotiate(payload)

	respondNegotiate := buildMessage(wire.TemplateNegotiationResp, wire.NegotiationResponseBlockLength, func(dst []byte) {
		encodeNegotiationResponse(dst, neg.UUID, neg.RequestTimestamp)
	})
	if err := session.OnMessage(respondNegotiate); err != nil {
		t.Fatalf("OnMessage(NegotiationResponse): %v", err)
	}
	if session.State() != ilink3.StateSentEstablish {
		t.Fatalf("state after NegotiationResponse = %v, want SentEstablish", session.State())
	}

	raw, err = exchange.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	header, payload, err = decodeSent(raw)
	if err != nil {
		t.Fatalf("decodeSent: %v", err)
	}
	if header.TemplateID != wire.TemplateEstablish {
		t.Fatalf("templateId = %d, want Establish", header.TemplateID)
	}
	est := wire.DecodeEstablish(payload)

	ack := buildMessage(wire.TemplateEstablishmentAck, wire.EstablishmentAckBlockLength, func(dst []byte) {
		encodeEstablishmentAck(dst, est.UUID, est.RequestTimestamp, 1, 0, 0)
	})
	if err := session.OnMessage(ack); err != nil {
		t.Fatalf("OnMessage(EstablishmentAck): %v", err)
	}

	if session.State() != ilink3.StateEstablished {
		t.Fatalf("state = %v, want Established", session.State())
	}
	if session.NextRecvSeqNo() != 1 || session.NextSentSeqNo() != 1 {
		t.Errorf("nextRecvSeqNo=%d nextSentSeqNo=%d, want 1,1", session.NextRecvSeqNo(), session.NextSentSeqNo())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := reply.Wait(ctx); err != nil {
		t.Errorf("reply.Wait = %v, want nil", err)
	}
	_ = clock
}

// S4: echo mismatch on NegotiationResponse.
func TestEchoMismatchOnNegotiationResponse(t *testing.T) {
	session, reply, exchange, _, handler := newTestSession(t)

	session.Poll(0)
	raw, err := exchange.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	_, payload, err := decodeSent(raw)
	if err != nil {
		t.Fatalf("decodeSent: %v", err)
	}
	neg := wire.DecodeNegotiate(payload)

	wrong := buildMessage(wire.TemplateNegotiationResp, wire.NegotiationResponseBlockLength, func(dst []byte) {
		encodeNegotiationResponse(dst, neg.UUID, neg.RequestTimestamp+1)
	})
	if err := session.OnMessage(wrong); err != nil {
		t.Fatalf("OnMessage: %v", err)
	}

	if session.State() == ilink3.StateNegotiated {
		t.Error("state advanced to Negotiated despite echo mismatch")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := reply.Wait(ctx); err == nil {
		t.Error("reply.Wait = nil, want IllegalResponseError")
	}
	if len(handler.disconns) != 1 || handler.disconns[0] != ilink3.DisconnectFailedAuthentication {
		t.Errorf("disconnects = %v, want [FailedAuthentication]", handler.disconns)
	}
}

// S3: keepalive expiry.
func TestKeepaliveExpiry(t *testing.T) {
	session, _, exchange, clock, _ := newTestSession(t, ilink3.WithKeepAlive(200))
	establishSession(t, session, exchange, clock)

	clock.SetMs(201)
	session.Poll(201)
	if session.State() != ilink3.StateAwaitingKeepalive {
		t.Fatalf("state at T=201 = %v, want AwaitingKeepalive", session.State())
	}
	raw, err := exchange.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	header, payload, err := decodeSent(raw)
	if err != nil {
		t.Fatalf("decodeSent: %v", err)
	}
	if header.TemplateID != wire.TemplateSequence {
		t.Fatalf("templateId = %d, want Sequence", header.TemplateID)
	}
	seq := wire.DecodeSequence(payload)
	if seq.KeepAliveLapsed != wire.Lapsed {
		t.Error("first keepalive Sequence should be Lapsed")
	}

	clock.SetMs(402)
	session.Poll(402)
	if session.State() != ilink3.StateUnbinding {
		t.Fatalf("state at T=402 = %v, want Unbinding", session.State())
	}
	raw, err = exchange.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	header, payload, err = decodeSent(raw)
	if err != nil {
		t.Fatalf("decodeSent: %v", err)
	}
	if header.TemplateID != wire.TemplateTerminate {
		t.Fatalf("templateId = %d, want Terminate", header.TemplateID)
	}
	term := wire.DecodeTerminate(payload)
	if term.Reason != "400ms expired without message" {
		t.Errorf("terminate reason = %q, want %q", term.Reason, "400ms expired without message")
	}
}

// S6: low sequence number on Sequence.
func TestLowSequenceOnSequenceTerminates(t *testing.T) {
	session, _, exchange, clock, handler := newTestSession(t)
	establishSession(t, session, exchange, clock)

	// Advance nextRecvSeqNo to 10 by feeding an in-order Sequence bump.
	feedSequence(t, session, exchange, 10, wire.NotLapsed)
	if session.NextRecvSeqNo() != 10 {
		t.Fatalf("nextRecvSeqNo = %d, want 10", session.NextRecvSeqNo())
	}

	low := buildMessage(wire.TemplateSequence, wire.SequenceBlockLength, func(dst []byte) {
		wire.EncodeSequence(dst, &wire.Sequence{UUID: 42, NextSeqNo: 5, FaultToleranceIndicator: wire.FTIPrimary, KeepAliveLapsed: wire.NotLapsed})
	})
	if err := session.OnMessage(low); err != nil {
		t.Fatalf("OnMessage: %v", err)
	}

	if len(handler.errs) == 0 {
		t.Fatal("expected a LowSequenceError to be reported")
	}
	if got := handler.errs[len(handler.errs)-1].Error(); got != "seqNo=5,expecting=10" {
		t.Errorf("error = %q, want %q", got, "seqNo=5,expecting=10")
	}

	raw, err := exchange.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	header, _, err := decodeSent(raw)
	if err != nil {
		t.Fatalf("decodeSent: %v", err)
	}
	if header.TemplateID != wire.TemplateTerminate {
		t.Fatalf("templateId = %d, want Terminate", header.TemplateID)
	}
}

// A template with no registered seqNum offset is a control message: it
// must never reach OnBusinessMessage. BusinessReject (521) is one such
// template — it has no case in OnMessage's switch, so it falls through to
// onMessageBusiness with no registered offset.
func TestNoSeqNumTemplateNotDelivered(t *testing.T) {
	session, _, exchange, clock, handler := newTestSession(t)
	establishSession(t, session, exchange, clock)

	msg := buildMessage(wire.TemplateBusinessReject, wire.BusinessRejectBlockLength, func(dst []byte) {
		binary.LittleEndian.PutUint64(dst[0:], 42)
	})
	if err := session.OnMessage(msg); err != nil {
		t.Fatalf("OnMessage: %v", err)
	}
	if len(handler.business) != 0 {
		t.Errorf("business deliveries = %v, want none for a template with no registered seqNum offset", handler.business)
	}
}

// The message that reveals a sequence gap is not itself delivered: only
// the retransmit request it triggers is observable.
func TestGapRevealingBusinessMessageNotDelivered(t *testing.T) {
	session, exchange, _, handler := newBusinessTestSession(t)

	msg := buildBusinessMessage(5, false) // nextRecvSeqNo is 1: seqNo 5 reveals a gap
	if err := session.OnMessage(msg); err != nil {
		t.Fatalf("OnMessage: %v", err)
	}
	if len(handler.business) != 0 {
		t.Errorf("business deliveries = %v, want none for the gap-revealing message", handler.business)
	}

	raw, err := exchange.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	_, payload, err := decodeSent(raw)
	if err != nil {
		t.Fatalf("decodeSent: %v", err)
	}
	req := wire.DecodeRetransmitRequest(payload)
	if req.FromSeqNo != 1 || req.MsgCount != 4 {
		t.Errorf("retransmit request = (from=%d,count=%d), want (1,4)", req.FromSeqNo, req.MsgCount)
	}
}

// The fill-boundary possRetrans message is consumed by retransmitFilled and
// never delivered either; messages before the boundary are.
func TestRetransmitFillBoundaryMessageNotDelivered(t *testing.T) {
	session, exchange, _, handler := newBusinessTestSession(t)

	// Reveal a gap so retransmitFillSeqNo becomes 4.
	if err := session.OnMessage(buildBusinessMessage(5, false)); err != nil {
		t.Fatalf("OnMessage: %v", err)
	}
	if _, err := exchange.ReadMessage(); err != nil {
		t.Fatalf("ReadMessage (retransmit request): %v", err)
	}
	if session.RetransmitFillSeqNo() != 4 {
		t.Fatalf("retransmitFillSeqNo = %d, want 4", session.RetransmitFillSeqNo())
	}

	// A possRetrans replay before the boundary is delivered.
	if err := session.OnMessage(buildBusinessMessage(2, true)); err != nil {
		t.Fatalf("OnMessage: %v", err)
	}
	if len(handler.business) != 1 || handler.business[0].templateID != businessTemplateID {
		t.Fatalf("business deliveries = %v, want one delivery of the replayed message", handler.business)
	}

	// The boundary message (seqNo == retransmitFillSeqNo) is not delivered.
	if err := session.OnMessage(buildBusinessMessage(4, true)); err != nil {
		t.Fatalf("OnMessage: %v", err)
	}
	if len(handler.business) != 1 {
		t.Errorf("business deliveries = %v, want still one after the fill-boundary message", handler.business)
	}
	if session.RetransmitFillSeqNo() != 0 {
		t.Errorf("retransmitFillSeqNo = %d, want cleared (0) after the fill completes", session.RetransmitFillSeqNo())
	}
}

// S5: terminate parks on back-pressure and retries on the next poll.
func TestTerminateBackPressureParksAndRetries(t *testing.T) {
	session, _, exchange, clock, _ := newTestSession(t)
	establishSession(t, session, exchange, clock)

	// Fill the outbound channel so the next claim back-pressures.
	fillTransport(t, session, 16)

	if _, err := session.Terminate("bye", 0); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if session.State() != ilink3.StateResendTerminate {
		t.Fatalf("state after back-pressured terminate = %v, want ResendTerminate", session.State())
	}

	// Drain the fillers so the retry succeeds.
	drainTransport(t, exchange, 16)

	session.Poll(clock.NowMs())
	if session.State() != ilink3.StateUnbinding {
		t.Fatalf("state after retry = %v, want Unbinding", session.State())
	}
}

func establishSession(t *testing.T, session *ilink3.Session, exchange *memtransport.MemTransport, clock *fakeClock) {
	t.Helper()
	session.Poll(0)
	raw, err := exchange.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	_, payload, err := decodeSent(raw)
	if err != nil {
		t.Fatalf("decodeSent: %v", err)
	}
	neg := wire.DecodeNegotiate(payload)

	resp := buildMessage(wire.TemplateNegotiationResp, wire.NegotiationResponseBlockLength, func(dst []byte) {
		encodeNegotiationResponse(dst, neg.UUID, neg.RequestTimestamp)
	})
	if err := session.OnMessage(resp); err != nil {
		t.Fatalf("OnMessage: %v", err)
	}

	raw, err = exchange.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	_, payload, err = decodeSent(raw)
	if err != nil {
		t.Fatalf("decodeSent: %v", err)
	}
	est := wire.DecodeEstablish(payload)

	ack := buildMessage(wire.TemplateEstablishmentAck, wire.EstablishmentAckBlockLength, func(dst []byte) {
		encodeEstablishmentAck(dst, est.UUID, est.RequestTimestamp, 1, 0, 0)
	})
	if err := session.OnMessage(ack); err != nil {
		t.Fatalf("OnMessage: %v", err)
	}
	if session.State() != ilink3.StateEstablished {
		t.Fatalf("state = %v, want Established", session.State())
	}
}

// businessTemplateID is an application template with a registered seqNum
// and possRetrans offset, used to exercise onMessageBusiness's delivery
// rules. It carries no sendingTimeEpoch field.
const businessTemplateID uint16 = 600
const businessBlockLength = 9

func buildBusinessMessage(seqNo uint64, possRetrans bool) []byte {
	return buildMessage(businessTemplateID, businessBlockLength, func(dst []byte) {
		binary.LittleEndian.PutUint64(dst[0:8], seqNo)
		if possRetrans {
			dst[8] = wire.BooleanFlagTrue
		}
	})
}

func newBusinessTestSession(t *testing.T) (*ilink3.Session, *memtransport.MemTransport, *fakeClock, *recordingHandler) {
	t.Helper()
	client, exchange := memtransport.NewPair(16)
	clock := &fakeClock{}
	handler := &recordingHandler{}
	offsets := wire.NewOffsetTable()
	offsets.RegisterApplication(businessTemplateID, 0, wire.MissingOffset, 8)
	cfg := ilink3.NewConfig("S1", "F1", testUserKey(),
		ilink3.WithKeepAlive(500),
		ilink3.WithHandler(handler),
	)
	session, _ := ilink3.NewSession(cfg, client, clock, offsets, 42, 1)
	establishSession(t, session, exchange, clock)
	return session, exchange, clock, handler
}

func feedSequence(t *testing.T, session *ilink3.Session, exchange *memtransport.MemTransport, nextSeqNo uint64, lapsed wire.KeepAliveLapsed) {
	t.Helper()
	msg := buildMessage(wire.TemplateSequence, wire.SequenceBlockLength, func(dst []byte) {
		wire.EncodeSequence(dst, &wire.Sequence{UUID: 42, NextSeqNo: nextSeqNo, FaultToleranceIndicator: wire.FTIPrimary, KeepAliveLapsed: lapsed})
	})
	if err := session.OnMessage(msg); err != nil {
		t.Fatalf("OnMessage(Sequence): %v", err)
	}
	if lapsed == wire.Lapsed {
		if _, err := exchange.ReadMessage(); err != nil {
			t.Fatalf("ReadMessage (Sequence reply): %v", err)
		}
	}
}

// fillTransport commits n Terminate frames directly, saturating the
// transport's outbound capacity without disturbing sequence numbers.
func fillTransport(t *testing.T, session *ilink3.Session, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := session.Terminate("filler", 0); err != nil {
			t.Fatalf("filler Terminate %d: %v", i, err)
		}
	}
}

func drainTransport(t *testing.T, exchange *memtransport.MemTransport, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := exchange.ReadMessage(); err != nil {
			t.Fatalf("drain %d: %v", i, err)
		}
	}
}

func encodeNegotiationResponse(dst []byte, uuid uint64, requestTimestamp int64) {
	binary.LittleEndian.PutUint64(dst[0:], uuid)
	binary.LittleEndian.PutUint64(dst[8:], uint64(requestTimestamp))
	binary.LittleEndian.PutUint64(dst[16:], 0) // previousUUID
}

func encodeEstablishmentAck(dst []byte, uuid uint64, requestTimestamp int64, nextSeqNo, previousSeqNo, previousUUID uint64) {
	binary.LittleEndian.PutUint64(dst[0:], uuid)
	binary.LittleEndian.PutUint64(dst[8:], uint64(requestTimestamp))
	binary.LittleEndian.PutUint64(dst[16:], nextSeqNo)
	binary.LittleEndian.PutUint64(dst[24:], previousSeqNo)
	binary.LittleEndian.PutUint64(dst[32:], previousUUID)
}
