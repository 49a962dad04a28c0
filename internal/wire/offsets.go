package wire

import "encoding/binary"

// MissingOffset marks a field absent from a template's layout.
const MissingOffset = -1

// OffsetTable is a dense, template-ID-indexed lookup of the three fields
// the session core must find in every business message without knowing its
// schema: the sequence number, the sending-time epoch, and the
// possibly-duplicate flag. Business templates are registered once, at
// startup, by the code generated from (or hand-written against) the
// counterparty's SBE schema; the session core never needs to know their
// layout beyond these three offsets.
//
// Lookups are array index operations, not map lookups: RegisterApplication
// grows the backing slices to fit, so steady-state Poll work never
// allocates or hashes.
type OffsetTable struct {
	seqNum          []int
	sendingTimeNano []int
	possRetrans     []int
}

// NewOffsetTable returns an empty table.
func NewOffsetTable() *OffsetTable {
	return &OffsetTable{}
}

func (t *OffsetTable) grow(templateID uint16) {
	need := int(templateID) + 1
	for len(t.seqNum) < need {
		t.seqNum = append(t.seqNum, MissingOffset)
		t.sendingTimeNano = append(t.sendingTimeNano, MissingOffset)
		t.possRetrans = append(t.possRetrans, MissingOffset)
	}
}

// RegisterApplication records the byte offsets, within the payload (after
// the SBE header), of a business template's seqNum, sendingTimeEpoch and
// possRetrans fields. Pass MissingOffset for a field the template does not
// carry.
func (t *OffsetTable) RegisterApplication(templateID uint16, seqNumOffset, sendingTimeEpochOffset, possRetransOffset int) {
	t.grow(templateID)
	t.seqNum[templateID] = seqNumOffset
	t.sendingTimeNano[templateID] = sendingTimeEpochOffset
	t.possRetrans[templateID] = possRetransOffset
}

// SeqNumOffset returns the seqNum field offset for templateID, or
// MissingOffset if unregistered or the template carries none.
func (t *OffsetTable) SeqNumOffset(templateID uint16) int {
	if int(templateID) >= len(t.seqNum) {
		return MissingOffset
	}
	return t.seqNum[templateID]
}

// SendingTimeEpochOffset returns the sendingTimeEpoch field offset for
// templateID, or MissingOffset.
func (t *OffsetTable) SendingTimeEpochOffset(templateID uint16) int {
	if int(templateID) >= len(t.sendingTimeNano) {
		return MissingOffset
	}
	return t.sendingTimeNano[templateID]
}

// PossRetransOffset returns the possRetrans flag byte offset for
// templateID, or MissingOffset if the template carries none (treated as
// always-not-a-retransmit).
func (t *OffsetTable) PossRetransOffset(templateID uint16) int {
	if int(templateID) >= len(t.possRetrans) {
		return MissingOffset
	}
	return t.possRetrans[templateID]
}

// SeqNum reads the seqNum out of message using templateID's registered
// offset. ok is false if the template has no registered seqNum field.
func (t *OffsetTable) SeqNum(templateID uint16, message []byte) (seqNo uint64, ok bool) {
	off := t.SeqNumOffset(templateID)
	if off == MissingOffset || off+8 > len(message) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(message[off : off+8]), true
}

// IsPossRetrans reports whether message is flagged as a possible
// retransmit under templateID's registered offset. A template with no
// registered offset is never a retransmit.
func (t *OffsetTable) IsPossRetrans(templateID uint16, message []byte) bool {
	off := t.PossRetransOffset(templateID)
	if off == MissingOffset || off >= len(message) {
		return false
	}
	return message[off] == BooleanFlagTrue
}

