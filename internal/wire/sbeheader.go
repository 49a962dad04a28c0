package wire

import "encoding/binary"

// SBEHeaderLen is the width of the standard SBE message header: block
// length, template ID, schema ID and version, all little-endian uint16s
// except blockLength which is a uint16 as well in this schema.
const SBEHeaderLen = 8

// Header is a decoded SBE message header.
type Header struct {
	BlockLength uint16
	TemplateID  uint16
	SchemaID    uint16
	Version     uint16
}

// PutHeader writes an SBE header into the first SBEHeaderLen bytes of dst.
func PutHeader(dst []byte, blockLength, templateID uint16) {
	binary.LittleEndian.PutUint16(dst[0:2], blockLength)
	binary.LittleEndian.PutUint16(dst[2:4], templateID)
	binary.LittleEndian.PutUint16(dst[4:6], SchemaID)
	binary.LittleEndian.PutUint16(dst[6:8], Version)
}

// ReadHeader parses an SBE header from the front of src.
func ReadHeader(src []byte) Header {
	return Header{
		BlockLength: binary.LittleEndian.Uint16(src[0:2]),
		TemplateID:  binary.LittleEndian.Uint16(src[2:4]),
		SchemaID:    binary.LittleEndian.Uint16(src[4:6]),
		Version:     binary.LittleEndian.Uint16(src[6:8]),
	}
}
