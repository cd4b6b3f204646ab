package pvm

import "errors"

// ErrOutOfBounds is returned by any access outside a region's bounds.
var ErrOutOfBounds = errors.New("pvm: memory access out of bounds")

// pageSize matches the teacher's EVM memory-expansion granularity concept,
// adapted to the PVM's fixed-size segmented address space instead of a
// linearly growable byte slice (core/vm/memory.go).
const pageSize = 4096

// Memory is the PVM's segmented address space: a read-only code/data
// segment, a growable read-write heap, and a fixed-size stack. Every
// access is bounds-checked; there is no implicit growth, unlike the
// teacher's EVM memory which auto-expands on write.
type Memory struct {
	readOnly  []byte
	readWrite []byte
	stack     []byte
	heapLimit int
}

// NewMemory constructs a Memory with the given segment sizes. heapLimit
// bounds how far readWrite may grow via Grow.
func NewMemory(readOnly []byte, readWriteInit []byte, stackSize, heapLimit int) *Memory {
	rw := make([]byte, len(readWriteInit), max(len(readWriteInit), pageSize))
	copy(rw, readWriteInit)
	return &Memory{
		readOnly:  append([]byte(nil), readOnly...),
		readWrite: rw,
		stack:     make([]byte, stackSize),
		heapLimit: heapLimit,
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ReadOnlyLen, ReadWriteLen, StackLen report each segment's current size.
func (m *Memory) ReadOnlyLen() int  { return len(m.readOnly) }
func (m *Memory) ReadWriteLen() int { return len(m.readWrite) }
func (m *Memory) StackLen() int     { return len(m.stack) }

// ReadAt reads n bytes starting at addr from whichever segment contains it.
// The three segments are laid out contiguously in address space: [0,
// len(readOnly)) is read-only, [len(readOnly), len(readOnly)+len(readWrite))
// is the heap, and the stack occupies the top of the address space.
func (m *Memory) ReadAt(addr uint32, n int) ([]byte, error) {
	seg, off, err := m.locate(addr, n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), seg[off:off+n]...), nil
}

// WriteAt writes data at addr; it fails if addr falls in the read-only
// segment or the write would cross a segment boundary.
func (m *Memory) WriteAt(addr uint32, data []byte) error {
	if int(addr) < len(m.readOnly) {
		return ErrOutOfBounds
	}
	seg, off, err := m.locate(addr, len(data))
	if err != nil {
		return err
	}
	copy(seg[off:off+len(data)], data)
	return nil
}

func (m *Memory) locate(addr uint32, n int) ([]byte, int, error) {
	a := int(addr)
	if a < 0 || n < 0 {
		return nil, 0, ErrOutOfBounds
	}
	roEnd := len(m.readOnly)
	rwEnd := roEnd + len(m.readWrite)
	stackStart := 1<<32 - len(m.stack)

	switch {
	case a+n <= roEnd:
		return m.readOnly, a, nil
	case a >= roEnd && a+n <= rwEnd:
		return m.readWrite, a - roEnd, nil
	case a >= stackStart && a+n <= 1<<32:
		return m.stack, a - stackStart, nil
	default:
		return nil, 0, ErrOutOfBounds
	}
}

// Grow extends the read-write heap by n bytes, failing if that would
// exceed heapLimit.
func (m *Memory) Grow(n int) error {
	if len(m.readWrite)+n > m.heapLimit {
		return ErrOutOfBounds
	}
	m.readWrite = append(m.readWrite, make([]byte, n)...)
	return nil
}
