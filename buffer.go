package itemstore

import "encoding/binary"

// BufferMode selects which capability set of a Buffer is active.
type BufferMode int

const (
	// modeWrite: caller appends bytes; reads are rejected.
	modeWrite BufferMode = iota
	// modeRead: caller consumes bytes; writes are rejected.
	modeRead
)

// Buffer is a reusable staging area for one description or payload at a
// time. It operates in one of two modes, Write or Read; switching mode
// resets the active cursor to the start of the currently populated region.
// Capacity is an optimization hint only — the buffer grows on demand.
//
// A Buffer is owned by a single Store and borrowed transiently within one
// operation; callers must not retain a Buffer's views across calls.
type Buffer struct {
	data []byte
	mode BufferMode
	pos  int // read cursor into data, or write cursor == len(data)
}

// NewBuffer returns an empty Buffer in Write mode with the given initial
// capacity hint.
func NewBuffer(capacityHint int) *Buffer {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &Buffer{data: make([]byte, 0, capacityHint), mode: modeWrite}
}

// Reset clears the buffer and switches it to Write mode.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.pos = 0
	b.mode = modeWrite
}

// SetMode switches the active mode, resetting the cursor to the start of
// the populated region. Switching from Write to Read makes the bytes
// written so far available to read; switching from Read to Write keeps
// every populated byte, read or not, and permits further appends from the
// end of data. Use Reset to discard the contents.
func (b *Buffer) SetMode(mode BufferMode) {
	b.mode = mode
	b.pos = 0
}

// TransferableData returns the number of bytes currently pending transfer:
// in Write mode, the number of bytes appended so far; in Read mode, the
// number of bytes not yet consumed.
func (b *Buffer) TransferableData() int {
	if b.mode == modeWrite {
		return len(b.data)
	}
	return len(b.data) - b.pos
}

func (b *Buffer) requireWrite() error {
	if b.mode != modeWrite {
		return ErrInvalidState
	}
	return nil
}

func (b *Buffer) requireRead() error {
	if b.mode != modeRead {
		return ErrInvalidState
	}
	return nil
}

// PutBytes appends p to the buffer. Fails with ErrInvalidState outside
// Write mode.
func (b *Buffer) PutBytes(p []byte) error {
	if err := b.requireWrite(); err != nil {
		return err
	}
	b.grow(len(p))
	b.data = append(b.data, p...)
	return nil
}

// PutU8 appends a single byte.
func (b *Buffer) PutU8(v uint8) error {
	return b.PutBytes([]byte{v})
}

// PutU16 appends a big-endian uint16.
func (b *Buffer) PutU16(v uint16) error {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return b.PutBytes(tmp[:])
}

// PutU32 appends a big-endian uint32.
func (b *Buffer) PutU32(v uint32) error {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return b.PutBytes(tmp[:])
}

// PutU64 appends a big-endian uint64.
func (b *Buffer) PutU64(v uint64) error {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return b.PutBytes(tmp[:])
}

// PutStoreItemDescription appends the normative 25-byte encoding of d.
func (b *Buffer) PutStoreItemDescription(d Description) error {
	if err := b.requireWrite(); err != nil {
		return err
	}
	buf := d.encode()
	b.grow(len(buf))
	b.data = append(b.data, buf[:]...)
	return nil
}

// GetBytes consumes and returns the next n bytes. Fails with
// ErrInvalidState outside Read mode, or ErrInvalidArgument if fewer than n
// bytes remain.
func (b *Buffer) GetBytes(n int) ([]byte, error) {
	if err := b.requireRead(); err != nil {
		return nil, err
	}
	if n < 0 || b.pos+n > len(b.data) {
		return nil, ErrInvalidArgument
	}
	out := b.data[b.pos : b.pos+n]
	b.pos += n
	return out, nil
}

// GetU8 consumes a single byte.
func (b *Buffer) GetU8() (uint8, error) {
	p, err := b.GetBytes(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// GetU16 consumes a big-endian uint16.
func (b *Buffer) GetU16() (uint16, error) {
	p, err := b.GetBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p), nil
}

// GetU32 consumes a big-endian uint32.
func (b *Buffer) GetU32() (uint32, error) {
	p, err := b.GetBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p), nil
}

// GetU64 consumes a big-endian uint64.
func (b *Buffer) GetU64() (uint64, error) {
	p, err := b.GetBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(p), nil
}

// grow ensures the write-mode backing array can hold n more bytes without
// reallocating on every append; a pure optimization, never required for
// correctness since append already grows on demand.
func (b *Buffer) grow(n int) {
	if cap(b.data)-len(b.data) >= n {
		return
	}
	next := make([]byte, len(b.data), len(b.data)+n)
	copy(next, b.data)
	b.data = next
}
