package codec

import "encoding/binary"

// EncodeFixedU16 encodes v as 2 little-endian bytes.
func EncodeFixedU16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// DecodeFixedU16 decodes 2 little-endian bytes.
func DecodeFixedU16(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, ErrInsufficientData
	}
	return binary.LittleEndian.Uint16(b), nil
}

// EncodeFixedU32 encodes v as 4 little-endian bytes.
func EncodeFixedU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// DecodeFixedU32 decodes 4 little-endian bytes.
func DecodeFixedU32(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, ErrInsufficientData
	}
	return binary.LittleEndian.Uint32(b), nil
}

// EncodeFixedU64 encodes v as 8 little-endian bytes.
func EncodeFixedU64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// DecodeFixedU64 decodes 8 little-endian bytes.
func DecodeFixedU64(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, ErrInsufficientData
	}
	return binary.LittleEndian.Uint64(b), nil
}
