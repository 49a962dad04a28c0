package wire

import "encoding/binary"

// Block lengths of the response/reject templates the session core decodes
// but never encodes. Layout mirrors the request templates: fixed-width
// integers followed by a fixed-width reason string where the template
// carries one.
const (
	NegotiationResponseBlockLength = 8 + 8 + 8
	NegotiationRejectBlockLength   = 8 + 8 + 4 + reasonLen
	EstablishmentAckBlockLength    = 8 + 8 + 8 + 8 + 8
	EstablishmentRejectBlockLength = 8 + 8 + 4 + reasonLen
	RetransmitRejectBlockLength    = 8 + 8 + 4 + reasonLen
	RetransmissionBlockLength      = 8 + 8 + 8 + 8 + 4
	RetransmitCompleteBlockLength  = 8 + 8 + 8 + 8 + 4
	NotAppliedBlockLength          = 8 + 8 + 4
	BusinessRejectBlockLength      = 8 + 8 + 4 + 4 + reasonLen
)

func putFixedString(dst []byte, s string, width int) {
	n := copy(dst[:width], s)
	for i := n; i < width; i++ {
		dst[i] = 0
	}
}

func fixedString(src []byte) string {
	n := 0
	for n < len(src) && src[n] != 0 {
		n++
	}
	return string(src[:n])
}

// Negotiate is the payload of template 500, the session-establishing
// authentication handshake's first leg.
type Negotiate struct {
	HMACSignature [hmacSignatureLen]byte
	AccessKeyID   string
	UUID          uint64
	RequestTimestamp int64
	Session       string
	Firm          string
}

// EncodeNegotiate writes msg into dst, which must be at least
// NegotiateBlockLength bytes.
func EncodeNegotiate(dst []byte, msg *Negotiate) {
	off := 0
	copy(dst[off:off+hmacSignatureLen], msg.HMACSignature[:])
	off += hmacSignatureLen
	putFixedString(dst[off:], msg.AccessKeyID, accessKeyIDLen)
	off += accessKeyIDLen
	binary.LittleEndian.PutUint64(dst[off:], msg.UUID)
	off += 8
	binary.LittleEndian.PutUint64(dst[off:], uint64(msg.RequestTimestamp))
	off += 8
	putFixedString(dst[off:], msg.Session, sessionIDLen)
	off += sessionIDLen
	putFixedString(dst[off:], msg.Firm, firmIDLen)
}

// DecodeNegotiate parses a Negotiate payload, for tests and for mock
// counterparty implementations exercising the same wire format.
func DecodeNegotiate(src []byte) *Negotiate {
	msg := &Negotiate{}
	off := 0
	copy(msg.HMACSignature[:], src[off:off+hmacSignatureLen])
	off += hmacSignatureLen
	msg.AccessKeyID = fixedString(src[off : off+accessKeyIDLen])
	off += accessKeyIDLen
	msg.UUID = binary.LittleEndian.Uint64(src[off:])
	off += 8
	msg.RequestTimestamp = int64(binary.LittleEndian.Uint64(src[off:]))
	off += 8
	msg.Session = fixedString(src[off : off+sessionIDLen])
	off += sessionIDLen
	msg.Firm = fixedString(src[off : off+firmIDLen])
	return msg
}

// Establish is the payload of template 503, sent after a successful
// Negotiate to open the sequenced application stream.
type Establish struct {
	HMACSignature       [hmacSignatureLen]byte
	AccessKeyID         string
	UUID                uint64
	RequestTimestamp    int64
	NextSeqNo           uint64
	KeepAliveInterval   int32
	Session             string
	Firm                string
	TradingSystemName   string
	TradingSystemVersion string
	TradingSystemVendor string
}

// EncodeEstablish writes msg into dst, which must be at least
// EstablishBlockLength bytes.
func EncodeEstablish(dst []byte, msg *Establish) {
	off := 0
	copy(dst[off:off+hmacSignatureLen], msg.HMACSignature[:])
	off += hmacSignatureLen
	putFixedString(dst[off:], msg.AccessKeyID, accessKeyIDLen)
	off += accessKeyIDLen
	binary.LittleEndian.PutUint64(dst[off:], msg.UUID)
	off += 8
	binary.LittleEndian.PutUint64(dst[off:], uint64(msg.RequestTimestamp))
	off += 8
	binary.LittleEndian.PutUint64(dst[off:], msg.NextSeqNo)
	off += 8
	binary.LittleEndian.PutUint32(dst[off:], uint32(msg.KeepAliveInterval))
	off += 4
	putFixedString(dst[off:], msg.Session, sessionIDLen)
	off += sessionIDLen
	putFixedString(dst[off:], msg.Firm, firmIDLen)
	off += firmIDLen
	putFixedString(dst[off:], msg.TradingSystemName, tradingSystemNameLen)
	off += tradingSystemNameLen
	putFixedString(dst[off:], msg.TradingSystemVersion, tradingSystemVersionLen)
	off += tradingSystemVersionLen
	putFixedString(dst[off:], msg.TradingSystemVendor, tradingSystemVendorLen)
}

// DecodeEstablish parses an Establish payload.
func DecodeEstablish(src []byte) *Establish {
	msg := &Establish{}
	off := 0
	copy(msg.HMACSignature[:], src[off:off+hmacSignatureLen])
	off += hmacSignatureLen
	msg.AccessKeyID = fixedString(src[off : off+accessKeyIDLen])
	off += accessKeyIDLen
	msg.UUID = binary.LittleEndian.Uint64(src[off:])
	off += 8
	msg.RequestTimestamp = int64(binary.LittleEndian.Uint64(src[off:]))
	off += 8
	msg.NextSeqNo = binary.LittleEndian.Uint64(src[off:])
	off += 8
	msg.KeepAliveInterval = int32(binary.LittleEndian.Uint32(src[off:]))
	off += 4
	msg.Session = fixedString(src[off : off+sessionIDLen])
	off += sessionIDLen
	msg.Firm = fixedString(src[off : off+firmIDLen])
	off += firmIDLen
	msg.TradingSystemName = fixedString(src[off : off+tradingSystemNameLen])
	off += tradingSystemNameLen
	msg.TradingSystemVersion = fixedString(src[off : off+tradingSystemVersionLen])
	off += tradingSystemVersionLen
	msg.TradingSystemVendor = fixedString(src[off : off+tradingSystemVendorLen])
	return msg
}

// Terminate is the payload of template 507, sent (and received) to close a
// session, optionally carrying a human-readable reason.
type Terminate struct {
	UUID             uint64
	RequestTimestamp int64
	ErrorCodes       int32
	Reason           string
}

// EncodeTerminate writes msg into dst, which must be at least
// TerminateBlockLength bytes.
func EncodeTerminate(dst []byte, msg *Terminate) {
	off := 0
	binary.LittleEndian.PutUint64(dst[off:], msg.UUID)
	off += 8
	binary.LittleEndian.PutUint64(dst[off:], uint64(msg.RequestTimestamp))
	off += 8
	binary.LittleEndian.PutUint32(dst[off:], uint32(msg.ErrorCodes))
	off += 4
	putFixedString(dst[off:], msg.Reason, reasonLen)
}

// DecodeTerminate parses a Terminate payload.
func DecodeTerminate(src []byte) *Terminate {
	msg := &Terminate{}
	off := 0
	msg.UUID = binary.LittleEndian.Uint64(src[off:])
	off += 8
	msg.RequestTimestamp = int64(binary.LittleEndian.Uint64(src[off:]))
	off += 8
	msg.ErrorCodes = int32(binary.LittleEndian.Uint32(src[off:]))
	off += 4
	msg.Reason = fixedString(src[off : off+reasonLen])
	return msg
}

// Sequence is the payload of template 506, the heartbeat/keepalive
// message that also carries the sender's next outbound sequence number.
type Sequence struct {
	UUID            uint64
	NextSeqNo       uint64
	FaultToleranceIndicator FTI
	KeepAliveLapsed KeepAliveLapsed
}

// EncodeSequence writes msg into dst, which must be at least
// SequenceBlockLength bytes.
func EncodeSequence(dst []byte, msg *Sequence) {
	off := 0
	binary.LittleEndian.PutUint64(dst[off:], msg.UUID)
	off += 8
	binary.LittleEndian.PutUint64(dst[off:], msg.NextSeqNo)
	off += 8
	dst[off] = byte(msg.FaultToleranceIndicator)
	off++
	dst[off] = byte(msg.KeepAliveLapsed)
}

// DecodeSequence parses a Sequence payload.
func DecodeSequence(src []byte) *Sequence {
	msg := &Sequence{}
	off := 0
	msg.UUID = binary.LittleEndian.Uint64(src[off:])
	off += 8
	msg.NextSeqNo = binary.LittleEndian.Uint64(src[off:])
	off += 8
	msg.FaultToleranceIndicator = FTI(src[off])
	off++
	msg.KeepAliveLapsed = KeepAliveLapsed(src[off])
	return msg
}

// RetransmitRequest is the payload of template 508, asking the
// counterparty to replay a bounded range of previously sent messages.
type RetransmitRequest struct {
	UUID             uint64
	RequestTimestamp int64
	FromSeqNo        uint64
	MsgCount         int32
}

// EncodeRetransmitRequest writes msg into dst, which must be at least
// RetransmitRequestBlockLength bytes.
func EncodeRetransmitRequest(dst []byte, msg *RetransmitRequest) {
	off := 0
	binary.LittleEndian.PutUint64(dst[off:], msg.UUID)
	off += 8
	binary.LittleEndian.PutUint64(dst[off:], uint64(msg.RequestTimestamp))
	off += 8
	binary.LittleEndian.PutUint64(dst[off:], msg.FromSeqNo)
	off += 8
	binary.LittleEndian.PutUint32(dst[off:], uint32(msg.MsgCount))
}

// DecodeRetransmitRequest parses a RetransmitRequest payload.
func DecodeRetransmitRequest(src []byte) *RetransmitRequest {
	msg := &RetransmitRequest{}
	off := 0
	msg.UUID = binary.LittleEndian.Uint64(src[off:])
	off += 8
	msg.RequestTimestamp = int64(binary.LittleEndian.Uint64(src[off:]))
	off += 8
	msg.FromSeqNo = binary.LittleEndian.Uint64(src[off:])
	off += 8
	msg.MsgCount = int32(binary.LittleEndian.Uint32(src[off:]))
	return msg
}

// NegotiationResponse is the payload of template 501: a successful
// Negotiate acknowledgement.
type NegotiationResponse struct {
	UUID             uint64
	RequestTimestamp int64
	PreviousUUID     uint64
}

// DecodeNegotiationResponse parses a NegotiationResponse payload.
func DecodeNegotiationResponse(src []byte) *NegotiationResponse {
	return &NegotiationResponse{
		UUID:             binary.LittleEndian.Uint64(src[0:]),
		RequestTimestamp: int64(binary.LittleEndian.Uint64(src[8:])),
		PreviousUUID:     binary.LittleEndian.Uint64(src[16:]),
	}
}

// NegotiationReject is the payload of template 502.
type NegotiationReject struct {
	UUID             uint64
	RequestTimestamp int64
	ErrorCodes       int32
	Reason           string
}

// DecodeNegotiationReject parses a NegotiationReject payload.
func DecodeNegotiationReject(src []byte) *NegotiationReject {
	return &NegotiationReject{
		UUID:             binary.LittleEndian.Uint64(src[0:]),
		RequestTimestamp: int64(binary.LittleEndian.Uint64(src[8:])),
		ErrorCodes:       int32(binary.LittleEndian.Uint32(src[16:])),
		Reason:           fixedString(src[20 : 20+reasonLen]),
	}
}

// EstablishmentAck is the payload of template 504.
type EstablishmentAck struct {
	UUID             uint64
	RequestTimestamp int64
	NextSeqNo        uint64
	PreviousSeqNo    uint64
	PreviousUUID     uint64
}

// DecodeEstablishmentAck parses an EstablishmentAck payload.
func DecodeEstablishmentAck(src []byte) *EstablishmentAck {
	return &EstablishmentAck{
		UUID:             binary.LittleEndian.Uint64(src[0:]),
		RequestTimestamp: int64(binary.LittleEndian.Uint64(src[8:])),
		NextSeqNo:        binary.LittleEndian.Uint64(src[16:]),
		PreviousSeqNo:    binary.LittleEndian.Uint64(src[24:]),
		PreviousUUID:     binary.LittleEndian.Uint64(src[32:]),
	}
}

// EstablishmentReject is the payload of template 505.
type EstablishmentReject struct {
	UUID             uint64
	RequestTimestamp int64
	ErrorCodes       int32
	Reason           string
}

// DecodeEstablishmentReject parses an EstablishmentReject payload.
func DecodeEstablishmentReject(src []byte) *EstablishmentReject {
	return &EstablishmentReject{
		UUID:             binary.LittleEndian.Uint64(src[0:]),
		RequestTimestamp: int64(binary.LittleEndian.Uint64(src[8:])),
		ErrorCodes:       int32(binary.LittleEndian.Uint32(src[16:])),
		Reason:           fixedString(src[20 : 20+reasonLen]),
	}
}

// RetransmitReject is the payload of template 510.
type RetransmitReject struct {
	UUID             uint64
	RequestTimestamp int64
	ErrorCodes       int32
	Reason           string
}

// DecodeRetransmitReject parses a RetransmitReject payload.
func DecodeRetransmitReject(src []byte) *RetransmitReject {
	return &RetransmitReject{
		UUID:             binary.LittleEndian.Uint64(src[0:]),
		RequestTimestamp: int64(binary.LittleEndian.Uint64(src[8:])),
		ErrorCodes:       int32(binary.LittleEndian.Uint32(src[16:])),
		Reason:           fixedString(src[20 : 20+reasonLen]),
	}
}

// Retransmission is the payload of template 509 that precedes a batch of
// replayed business messages.
type Retransmission struct {
	UUID             uint64
	LastUUID         uint64
	RequestTimestamp int64
	FromSeqNo        uint64
	MsgCount         int32
}

// DecodeRetransmission parses a Retransmission payload.
func DecodeRetransmission(src []byte) *Retransmission {
	return &Retransmission{
		UUID:             binary.LittleEndian.Uint64(src[0:]),
		LastUUID:         binary.LittleEndian.Uint64(src[8:]),
		RequestTimestamp: int64(binary.LittleEndian.Uint64(src[16:])),
		FromSeqNo:        binary.LittleEndian.Uint64(src[24:]),
		MsgCount:         int32(binary.LittleEndian.Uint32(src[32:])),
	}
}

// RetransmitComplete is the payload of template 511, marking the end of a
// replay batch.
type RetransmitComplete struct {
	UUID             uint64
	RequestTimestamp int64
	LastUUID         uint64
	FromSeqNo        uint64
	MsgCount         int32
}

// DecodeRetransmitComplete parses a RetransmitComplete payload.
func DecodeRetransmitComplete(src []byte) *RetransmitComplete {
	return &RetransmitComplete{
		UUID:             binary.LittleEndian.Uint64(src[0:]),
		RequestTimestamp: int64(binary.LittleEndian.Uint64(src[8:])),
		LastUUID:         binary.LittleEndian.Uint64(src[16:]),
		FromSeqNo:        binary.LittleEndian.Uint64(src[24:]),
		MsgCount:         int32(binary.LittleEndian.Uint32(src[32:])),
	}
}

// NotApplied is the payload of template 513: the counterparty telling us
// it did not apply a range of sequence numbers. The session's handler
// decides whether that range is retransmitted.
type NotApplied struct {
	UUID      uint64
	FromSeqNo uint64
	MsgCount  int32
}

// DecodeNotApplied parses a NotApplied payload.
func DecodeNotApplied(src []byte) *NotApplied {
	return &NotApplied{
		UUID:      binary.LittleEndian.Uint64(src[0:]),
		FromSeqNo: binary.LittleEndian.Uint64(src[8:]),
		MsgCount:  int32(binary.LittleEndian.Uint32(src[16:])),
	}
}

// BusinessReject is the payload of template 521: the counterparty
// rejecting an individual sequenced business message.
type BusinessReject struct {
	UUID             uint64
	RequestTimestamp int64
	RefSeqNum        int32
	ErrorCodes       int32
	Reason           string
}

// DecodeBusinessReject parses a BusinessReject payload.
func DecodeBusinessReject(src []byte) *BusinessReject {
	return &BusinessReject{
		UUID:             binary.LittleEndian.Uint64(src[0:]),
		RequestTimestamp: int64(binary.LittleEndian.Uint64(src[8:])),
		RefSeqNum:        int32(binary.LittleEndian.Uint32(src[16:])),
		ErrorCodes:       int32(binary.LittleEndian.Uint32(src[20:])),
		Reason:           fixedString(src[24 : 24+reasonLen]),
	}
}
