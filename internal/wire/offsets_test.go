package wire

import (
	"encoding/binary"
	"testing"
)

func TestOffsetTableMissingByDefault(t *testing.T) {
	tab := NewOffsetTable()
	if got := tab.SeqNumOffset(999); got != MissingOffset {
		t.Errorf("SeqNumOffset for unregistered template = %d, want MissingOffset", got)
	}
}

func TestOffsetTableRegisterAndRead(t *testing.T) {
	tab := NewOffsetTable()
	tab.RegisterApplication(600, 0, 8, 16)

	msg := make([]byte, 17)
	binary.LittleEndian.PutUint64(msg[0:8], 123)
	msg[16] = BooleanFlagTrue

	seqNo, ok := tab.SeqNum(600, msg)
	if !ok || seqNo != 123 {
		t.Errorf("SeqNum = (%d, %v), want (123, true)", seqNo, ok)
	}
	if !tab.IsPossRetrans(600, msg) {
		t.Error("IsPossRetrans = false, want true")
	}
}

func TestOffsetTableNoPossRetransField(t *testing.T) {
	tab := NewOffsetTable()
	tab.RegisterApplication(601, 0, MissingOffset, MissingOffset)

	msg := make([]byte, 8)
	if tab.IsPossRetrans(601, msg) {
		t.Error("template with no possRetrans field must never report true")
	}
}
