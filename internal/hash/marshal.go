package hash

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInvalidState is returned when a marshaled engine cannot be restored.
var ErrInvalidState = errors.New("hash: invalid engine state")

// The marshaled layout is shared with crypto/sha256, so a state saved by
// either implementation can be resumed by the other.
const (
	magic         = "sha\x03"
	marshaledSize = len(magic) + 8*4 + BlockSize + 8
)

// MarshalBinary snapshots the engine so hashing can resume later.
func (e *Engine) MarshalBinary() ([]byte, error) {
	return e.AppendBinary(make([]byte, 0, marshaledSize))
}

// AppendBinary appends the marshaled engine state to b.
func (e *Engine) AppendBinary(b []byte) ([]byte, error) {
	b = append(b, magic...)
	for _, word := range e.state {
		b = binary.BigEndian.AppendUint32(b, word)
	}
	n := e.buffered()
	b = append(b, e.buffer[:n]...)
	b = append(b, make([]byte, BlockSize-n)...)
	b = binary.BigEndian.AppendUint64(b, e.Len())
	return b, nil
}

// UnmarshalBinary restores a state produced by MarshalBinary.
func (e *Engine) UnmarshalBinary(data []byte) error {
	if len(data) != marshaledSize {
		return fmt.Errorf("state is %d bytes, want %d: %w", len(data), marshaledSize, ErrInvalidState)
	}
	if string(data[:len(magic)]) != magic {
		return fmt.Errorf("unknown state identifier: %w", ErrInvalidState)
	}
	data = data[len(magic):]
	for i := range e.state {
		e.state[i] = binary.BigEndian.Uint32(data)
		data = data[4:]
	}
	copy(e.buffer[:], data[:BlockSize])
	e.bitCount = binary.BigEndian.Uint64(data[BlockSize:]) << 3
	return nil
}
