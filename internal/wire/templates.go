// Package wire encodes the on-wire layout the core session engine writes
// and reads: the gateway envelope, the Simple Open Framing Header, the SBE
// message header, and the fixed session-layer templates (Negotiate,
// Establish, Terminate, Sequence, RetransmitRequest). It is an internal
// implementation detail of package ilink3, never imported by callers
// directly.
package wire

// Session-layer template IDs used directly by the core.
const (
	TemplateNegotiate          uint16 = 500
	TemplateNegotiationResp    uint16 = 501
	TemplateNegotiationReject  uint16 = 502
	TemplateEstablish          uint16 = 503
	TemplateEstablishmentAck   uint16 = 504
	TemplateEstablishReject    uint16 = 505
	TemplateSequence           uint16 = 506
	TemplateTerminate          uint16 = 507
	TemplateRetransmitReq      uint16 = 508
	TemplateRetransmission     uint16 = 509
	TemplateRetransmitReject   uint16 = 510
	TemplateRetransmitComplete uint16 = 511
	TemplateNotApplied         uint16 = 513
	TemplateBusinessReject     uint16 = 521
)

// SchemaID is the iLink3 SBE schema identifier stamped into every message
// header. Version is the schema version this codec speaks.
const (
	SchemaID uint16 = 1
	Version  uint16 = 2
)

// FTI values for Sequence506.FTI.
type FTI uint8

// Sequence message failover trading indicator values.
const (
	FTIPrimary FTI = 0
	FTIBackup  FTI = 1
)

// KeepAliveLapsed values for Sequence506.KeepAliveLapsed.
type KeepAliveLapsed uint8

// Sequence message keepalive-lapsed values.
const (
	NotLapsed KeepAliveLapsed = 0
	Lapsed    KeepAliveLapsed = 1
)

// BooleanFlagTrue is the single-byte encoding of a true possRetrans flag.
// Any other byte value (typically 0x00) means false.
const BooleanFlagTrue byte = 0x01

// Fixed character-array widths for identifier fields carried in Negotiate
// and Establish. iLink3 SBE messages use fixed-width char arrays for these
// rather than length-prefixed strings; Encode/Decode pad with NUL and
// truncate on overflow, matching the behaviour a generated SBE codec has.
const (
	accessKeyIDLen         = 8
	sessionIDLen           = 30
	firmIDLen              = 30
	tradingSystemNameLen   = 20
	tradingSystemVendorLen = 20
	tradingSystemVersionLen = 20
	reasonLen              = 80
	hmacSignatureLen       = 32
)

// BlockLength of each fixed template's payload, used both to size claims
// and to stamp the SBE header. Field order matches the Encode/Decode
// functions in messages.go.
const (
	NegotiateBlockLength = hmacSignatureLen + accessKeyIDLen + 8 + 8 + sessionIDLen + firmIDLen

	EstablishBlockLength = hmacSignatureLen + accessKeyIDLen + 8 + 8 + 8 + 4 +
		sessionIDLen + firmIDLen + tradingSystemNameLen + tradingSystemVersionLen + tradingSystemVendorLen

	TerminateBlockLength = 8 + 8 + 4 + reasonLen

	SequenceBlockLength = 8 + 8 + 1 + 1

	RetransmitRequestBlockLength = 8 + 8 + 8 + 4
)
