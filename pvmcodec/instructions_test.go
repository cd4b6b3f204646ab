package pvmcodec

import "testing"

// roundTrip encodes then decodes, checking the (opcode, class, args) match
// after re-materialising NoOfBytesToSkip, per spec.md §4.2's codec law.
func roundTrip(t *testing.T, opcode byte, args Args) Decoded {
	t.Helper()
	enc := Encode(opcode, args)
	dec, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode(Encode(%d, %+v)) error: %v", opcode, args, err)
	}
	if dec.NoOfBytesToSkip != len(enc) {
		t.Fatalf("NoOfBytesToSkip = %d, want %d (encoded length)", dec.NoOfBytesToSkip, len(enc))
	}
	if dec.Opcode != opcode {
		t.Fatalf("opcode = %d, want %d", dec.Opcode, opcode)
	}
	return dec
}

func TestNoArgsRoundTrip(t *testing.T) {
	dec := roundTrip(t, 3, Args{})
	if dec.Class != ClassNoArgs {
		t.Fatalf("class = %v, want ClassNoArgs", dec.Class)
	}
}

func TestOneImmRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 127, -128, 32767, -32768, 1 << 20, -(1 << 20), 1<<31 - 1, -(1 << 31)} {
		dec := roundTrip(t, 10, Args{Imm: [2]int64{v, 0}})
		if dec.Class != ClassOneImm {
			t.Fatalf("class = %v, want ClassOneImm", dec.Class)
		}
		if dec.Args.Imm[0] != v {
			t.Fatalf("imm = %d, want %d", dec.Args.Imm[0], v)
		}
	}
}

func TestOneRegOneImmRoundTrip(t *testing.T) {
	dec := roundTrip(t, 40, Args{Reg: [3]byte{5}, Imm: [2]int64{-42}})
	if dec.Class != ClassOneRegOneImm {
		t.Fatalf("class = %v, want ClassOneRegOneImm", dec.Class)
	}
	if dec.Args.Reg[0] != 5 || dec.Args.Imm[0] != -42 {
		t.Fatalf("got reg=%d imm=%d, want reg=5 imm=-42", dec.Args.Reg[0], dec.Args.Imm[0])
	}
}

func TestRegisterIndexClampedTo12(t *testing.T) {
	// Register nibbles only go up to 15, but valid indices stop at 12; both
	// the encoder and decoder must clamp.
	dec := roundTrip(t, 40, Args{Reg: [3]byte{15}, Imm: [2]int64{0}})
	if dec.Args.Reg[0] != 12 {
		t.Fatalf("reg = %d, want clamped to 12", dec.Args.Reg[0])
	}
}

func TestTwoRegRoundTrip(t *testing.T) {
	dec := roundTrip(t, 100, Args{Reg: [3]byte{3, 9}})
	if dec.Class != ClassTwoReg {
		t.Fatalf("class = %v, want ClassTwoReg", dec.Class)
	}
	if dec.Args.Reg[0] != 3 || dec.Args.Reg[1] != 9 {
		t.Fatalf("got regs=%v, want [3 9]", dec.Args.Reg)
	}
}

func TestThreeRegRoundTrip(t *testing.T) {
	dec := roundTrip(t, 140, Args{Reg: [3]byte{1, 2, 11}})
	if dec.Class != ClassThreeReg {
		t.Fatalf("class = %v, want ClassThreeReg", dec.Class)
	}
	if dec.Args.Reg != [3]byte{1, 2, 11} {
		t.Fatalf("got regs=%v, want [1 2 11]", dec.Args.Reg)
	}
}

func TestTwoRegTwoImmRoundTrip(t *testing.T) {
	dec := roundTrip(t, 200, Args{Reg: [3]byte{4, 6}, Imm: [2]int64{1000, -2000}})
	if dec.Class != ClassTwoRegTwoImm {
		t.Fatalf("class = %v, want ClassTwoRegTwoImm", dec.Class)
	}
	if dec.Args.Imm[0] != 1000 || dec.Args.Imm[1] != -2000 {
		t.Fatalf("got imms=%v, want [1000 -2000]", dec.Args.Imm)
	}
}

func TestOneRegOneExtImmRoundTrip(t *testing.T) {
	dec := roundTrip(t, 250, Args{Reg: [3]byte{7}, ExtImm: -1234567890123})
	if dec.Class != ClassOneRegOneExtImm {
		t.Fatalf("class = %v, want ClassOneRegOneExtImm", dec.Class)
	}
	if dec.Args.ExtImm != -1234567890123 {
		t.Fatalf("extimm = %d, want -1234567890123", dec.Args.ExtImm)
	}
}

func TestDecodeEmptyBuffer(t *testing.T) {
	if _, err := Decode(nil); err != ErrEmptyBuffer {
		t.Fatalf("err = %v, want ErrEmptyBuffer", err)
	}
}

func TestDecodeInsufficientData(t *testing.T) {
	// Opcode 40 is ClassOneRegOneImm, which needs at least 2 operand bytes.
	if _, err := Decode([]byte{40, 0}); err != ErrInsufficientData {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}
