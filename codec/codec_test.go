package codec

import (
	"bytes"
	"math"
	"testing"
)

func TestVarintBoundaryValues(t *testing.T) {
	cases := []struct {
		v    uint64
		want []byte
	}{
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x80}},
		{math.MaxUint64, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
	}
	for _, c := range cases {
		got := EncodeVarint(c.v)
		if !bytes.Equal(got, c.want) {
			t.Fatalf("EncodeVarint(%d) = %x, want %x", c.v, got, c.want)
		}
		v, n, err := DecodeVarint(got)
		if err != nil {
			t.Fatalf("DecodeVarint(%x) error: %v", got, err)
		}
		if v != c.v {
			t.Fatalf("DecodeVarint(%x) = %d, want %d", got, v, c.v)
		}
		if n != len(got) {
			t.Fatalf("DecodeVarint consumed %d bytes, want %d", n, len(got))
		}
	}
}

func TestVarintRoundTripRange(t *testing.T) {
	values := []uint64{
		0, 1, 63, 64, 126, 127, 128, 129,
		1 << 13, 1<<14 - 1, 1 << 14, 1 << 14 + 1,
		1 << 20, 1 << 21, 1 << 28, 1 << 35, 1 << 42, 1 << 49,
		1<<56 - 1, 1 << 56, 1 << 56 + 1,
		1 << 60, math.MaxUint64 - 1, math.MaxUint64,
	}
	for _, v := range values {
		enc := EncodeVarint(v)
		got, n, err := DecodeVarint(enc)
		if err != nil {
			t.Fatalf("DecodeVarint(encode(%d)) error: %v", v, err)
		}
		if got != v {
			t.Fatalf("round-trip(%d) = %d", v, got)
		}
		if n != len(enc) {
			t.Fatalf("round-trip(%d) consumed %d of %d bytes", v, n, len(enc))
		}
	}
}

func TestDecodeVarintEmptyBuffer(t *testing.T) {
	_, _, err := DecodeVarint(nil)
	if err != ErrEmptyBuffer {
		t.Fatalf("err = %v, want ErrEmptyBuffer", err)
	}
}

func TestDecodeVarintInsufficientData(t *testing.T) {
	_, _, err := DecodeVarint([]byte{0x80})
	if err != ErrInsufficientData {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestDecodeVarintNonCanonical(t *testing.T) {
	// 0x80 0x64 claims the two-byte (l=1) form but encodes 100, which fits
	// in the single-byte form: non-canonical, must be rejected.
	_, _, err := DecodeVarint([]byte{0x80, 0x64})
	if err != ErrValueOutOfRange {
		t.Fatalf("err = %v, want ErrValueOutOfRange", err)
	}
}

func TestFixedIntRoundTrip(t *testing.T) {
	if v, _ := DecodeFixedU32(EncodeFixedU32(0xdeadbeef)); v != 0xdeadbeef {
		t.Fatalf("u32 round-trip = %x", v)
	}
	if v, _ := DecodeFixedU64(EncodeFixedU64(0x0102030405060708)); v != 0x0102030405060708 {
		t.Fatalf("u64 round-trip = %x", v)
	}
}

func TestScannerReadBytesOverrun(t *testing.T) {
	s := NewScanner([]byte{1, 2, 3})
	if _, err := s.ReadBytes(4); err != ErrBufferOverrun {
		t.Fatalf("err = %v, want ErrBufferOverrun", err)
	}
}

func TestScannerOptionalTag(t *testing.T) {
	s := NewScanner([]byte{0x01, 0x00, 0x02})
	present, err := s.ReadOptionalTag()
	if err != nil || !present {
		t.Fatalf("expected present=true, err=nil, got present=%v err=%v", present, err)
	}
	present, err = s.ReadOptionalTag()
	if err != nil || present {
		t.Fatalf("expected present=false, err=nil, got present=%v err=%v", present, err)
	}
	if _, err := s.ReadOptionalTag(); err != ErrInvalidFormat {
		t.Fatalf("err = %v, want ErrInvalidFormat", err)
	}
}

func TestEncoderScannerSequenceRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.WriteSequenceLen(3)
	e.WriteBytesSeq([]byte("abc"))
	e.WriteBytesSeq([]byte{})

	s := NewScanner(e.Bytes())
	n, err := s.ReadSequenceLen()
	if err != nil || n != 3 {
		t.Fatalf("n=%d err=%v, want 3,nil", n, err)
	}
	b, err := s.ReadBytesSeq()
	if err != nil || string(b) != "abc" {
		t.Fatalf("b=%q err=%v, want abc,nil", b, err)
	}
	b, err = s.ReadBytesSeq()
	if err != nil || len(b) != 0 {
		t.Fatalf("b=%q err=%v, want empty,nil", b, err)
	}
	if s.Remaining() != 0 {
		t.Fatalf("Remaining() = %d, want 0", s.Remaining())
	}
}

func TestScannerReadHash(t *testing.T) {
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i)
	}
	s := NewScanner(data)
	h, err := s.ReadHash()
	if err != nil {
		t.Fatalf("ReadHash error: %v", err)
	}
	for i := range h {
		if h[i] != byte(i) {
			t.Fatalf("h[%d] = %d, want %d", i, h[i], i)
		}
	}
}
