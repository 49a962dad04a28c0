package wire

import (
	"encoding/binary"
	"fmt"
)

// SOFHLen is the width of the Simple Open Framing Header: a 4-byte
// big-endian message length followed by a 2-byte encoding type.
const SOFHLen = 6

// SBEEncodingType is the standard SOFH encoding type for SBE 1.0
// little-endian messages.
const SBEEncodingType uint16 = 0xEB50

// PutSOFH writes a SOFH into the first SOFHLen bytes of dst. messageLength
// is the length of everything that follows the SOFH: the SBE header plus
// its payload. It does not include the gateway header.
func PutSOFH(dst []byte, messageLength uint32) {
	binary.BigEndian.PutUint32(dst[0:4], messageLength+SOFHLen)
	binary.BigEndian.PutUint16(dst[4:6], SBEEncodingType)
}

// ReadSOFH parses a SOFH from the front of src, returning the length of the
// SBE header plus payload that follows it.
func ReadSOFH(src []byte) (messageLength uint32, err error) {
	if len(src) < SOFHLen {
		return 0, fmt.Errorf("wire: short SOFH: %d bytes", len(src))
	}
	total := binary.BigEndian.Uint32(src[0:4])
	encType := binary.BigEndian.Uint16(src[4:6])
	if encType != SBEEncodingType {
		return 0, fmt.Errorf("wire: unexpected SOFH encoding type %#x", encType)
	}
	if total < SOFHLen {
		return 0, fmt.Errorf("wire: SOFH length %d shorter than header", total)
	}
	return total - SOFHLen, nil
}
