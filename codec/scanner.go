package codec

// Scanner is a cursor over an immutable byte slice. It never allocates;
// decoded values either borrow a sub-slice of the underlying buffer or are
// copied out explicitly by the caller. Grounded on the teacher's RLP
// Stream-style decode cursor, adapted to JAM's varint-length-prefixed
// structured grammar instead of RLP's string/list tags.
type Scanner struct {
	buf []byte
	pos int
}

// NewScanner wraps buf for sequential decoding.
func NewScanner(buf []byte) *Scanner {
	return &Scanner{buf: buf}
}

// Remaining returns the number of unread bytes.
func (s *Scanner) Remaining() int {
	return len(s.buf) - s.pos
}

// Advance skips n bytes without returning them. It fails if fewer than n
// bytes remain.
func (s *Scanner) Advance(n int) error {
	if n < 0 || s.Remaining() < n {
		return ErrBufferOverrun
	}
	s.pos += n
	return nil
}

// ReadBytes returns a borrowed sub-slice of the next n bytes and advances
// the cursor past them.
func (s *Scanner) ReadBytes(n int) ([]byte, error) {
	if n < 0 || s.Remaining() < n {
		return nil, ErrBufferOverrun
	}
	b := s.buf[s.pos : s.pos+n]
	s.pos += n
	return b, nil
}

// ReadByte returns the next byte and advances the cursor by one.
func (s *Scanner) ReadByte() (byte, error) {
	if s.Remaining() < 1 {
		return 0, ErrBufferOverrun
	}
	b := s.buf[s.pos]
	s.pos++
	return b, nil
}

// ReadVarint decodes a varint from the cursor position.
func (s *Scanner) ReadVarint() (uint64, error) {
	if s.Remaining() == 0 {
		return 0, ErrEmptyBuffer
	}
	v, n, err := DecodeVarint(s.buf[s.pos:])
	if err != nil {
		return 0, err
	}
	s.pos += n
	return v, nil
}

// ReadFixedU16/U32/U64 decode fixed-width little-endian integers.
func (s *Scanner) ReadFixedU16() (uint16, error) {
	b, err := s.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return DecodeFixedU16(b)
}

func (s *Scanner) ReadFixedU32() (uint32, error) {
	b, err := s.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return DecodeFixedU32(b)
}

func (s *Scanner) ReadFixedU64() (uint64, error) {
	b, err := s.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return DecodeFixedU64(b)
}

// ReadHash reads a fixed 32-byte array, copying it out (the caller's hash
// type owns its bytes, unlike ReadBytes's borrowed slice).
func (s *Scanner) ReadHash() ([32]byte, error) {
	var h [32]byte
	b, err := s.ReadBytes(32)
	if err != nil {
		return h, err
	}
	copy(h[:], b)
	return h, nil
}

// ReadOptionalTag reads the optional-field tag byte (0x00 absent, 0x01
// present) and reports which case applies.
func (s *Scanner) ReadOptionalTag() (present bool, err error) {
	b, err := s.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, ErrInvalidFormat
	}
}

// ReadDiscriminant reads a tagged-union discriminant byte.
func (s *Scanner) ReadDiscriminant() (byte, error) {
	return s.ReadByte()
}

// ReadSequenceLen reads the varint(len) prefix of a variable-length
// sequence.
func (s *Scanner) ReadSequenceLen() (int, error) {
	n, err := s.ReadVarint()
	if err != nil {
		return 0, err
	}
	if n > uint64(s.Remaining()) {
		// A cheap sanity bound: a sequence can never claim more elements
		// than there are bytes left, since every element is at least one
		// byte. Catches corrupt length prefixes before an allocation.
		return 0, ErrInsufficientData
	}
	return int(n), nil
}
