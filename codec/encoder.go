package codec

// Encoder is a growable byte builder mirroring Scanner's read surface on
// the write side. Grounded on the teacher's RLP EncodeToBytes builder
// style, adapted to JAM's structured grammar.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns the accumulated output.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// WriteBytes appends b verbatim (used for fixed-size arrays, which carry no
// length prefix).
func (e *Encoder) WriteBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// WriteByte appends a single byte.
func (e *Encoder) WriteByte(b byte) {
	e.buf = append(e.buf, b)
}

// WriteVarint appends the varint encoding of v.
func (e *Encoder) WriteVarint(v uint64) {
	e.buf = append(e.buf, EncodeVarint(v)...)
}

// WriteFixedU16/U32/U64 append fixed-width little-endian integers.
func (e *Encoder) WriteFixedU16(v uint16) { e.buf = append(e.buf, EncodeFixedU16(v)...) }
func (e *Encoder) WriteFixedU32(v uint32) { e.buf = append(e.buf, EncodeFixedU32(v)...) }
func (e *Encoder) WriteFixedU64(v uint64) { e.buf = append(e.buf, EncodeFixedU64(v)...) }

// WriteOptionalTag appends the optional-field tag byte.
func (e *Encoder) WriteOptionalTag(present bool) {
	if present {
		e.buf = append(e.buf, 0x01)
	} else {
		e.buf = append(e.buf, 0x00)
	}
}

// WriteDiscriminant appends a tagged-union discriminant byte.
func (e *Encoder) WriteDiscriminant(tag byte) {
	e.buf = append(e.buf, tag)
}

// WriteSequenceLen appends the varint(len) prefix of a variable-length
// sequence.
func (e *Encoder) WriteSequenceLen(n int) {
	e.WriteVarint(uint64(n))
}

// WriteBytesSeq appends a varint-length-prefixed byte string, the codec's
// "variable-length sequence of bytes" shape.
func (e *Encoder) WriteBytesSeq(b []byte) {
	e.WriteSequenceLen(len(b))
	e.WriteBytes(b)
}

// ReadBytesSeq reads a varint-length-prefixed byte string.
func (s *Scanner) ReadBytesSeq() ([]byte, error) {
	n, err := s.ReadSequenceLen()
	if err != nil {
		return nil, err
	}
	return s.ReadBytes(n)
}
