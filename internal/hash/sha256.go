// Package hash implements the SHA-256 message digest defined in FIPS 180-4.
//
// An Engine absorbs a message in chunks of any size and produces a 32-byte
// digest. Engines are plain values owned by the caller: they share no state,
// so independent engines may run on separate goroutines, but a single engine
// must not be used concurrently without external locking.
package hash

import (
	"encoding"
	"encoding/binary"
	"encoding/hex"
	stdhash "hash"
)

const (
	// Size is the length of a SHA-256 digest in bytes.
	Size = 32
	// BlockSize is the number of bytes consumed by one compression step.
	BlockSize = 64
)

// lengthOffset is where the 8-byte bit length starts in the final block.
const lengthOffset = BlockSize - 8

var iv = [8]uint32{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
	0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

var (
	_ stdhash.Hash               = (*Engine)(nil)
	_ encoding.BinaryMarshaler   = (*Engine)(nil)
	_ encoding.BinaryUnmarshaler = (*Engine)(nil)
)

// Sum is a SHA-256 digest.
type Sum [Size]byte

// String returns the lowercase hex encoding of the digest.
func (s Sum) String() string { return hex.EncodeToString(s[:]) }

// Engine holds the running state of one message digest.
//
// The bit counter is 64 bits wide and wraps for messages of 2^61 bytes or
// more; digests of such messages do not match FIPS 180-4.
type Engine struct {
	state    [8]uint32
	bitCount uint64
	buffer   [BlockSize]byte
}

// New returns an engine ready to absorb a new message.
func New() *Engine {
	e := new(Engine)
	e.Reset()
	return e
}

// Reset returns the engine to its initial state so it can hash a new message.
func (e *Engine) Reset() {
	e.state = iv
	e.bitCount = 0
	e.buffer = [BlockSize]byte{}
}

// Size returns the digest length in bytes.
func (e *Engine) Size() int { return Size }

// BlockSize returns the block length in bytes.
func (e *Engine) BlockSize() int { return BlockSize }

// Len returns the number of message bytes absorbed so far.
func (e *Engine) Len() uint64 { return e.bitCount >> 3 }

func (e *Engine) buffered() int {
	return int((e.bitCount >> 3) % BlockSize)
}

// Update absorbs data into the running digest. Any length is accepted,
// including zero, and the result does not depend on how a message is split
// across calls.
func (e *Engine) Update(data []byte) {
	index := e.buffered()
	e.bitCount += uint64(len(data)) << 3

	if index+len(data) < BlockSize {
		copy(e.buffer[index:], data)
		return
	}

	n := copy(e.buffer[index:], data)
	block(&e.state, e.buffer[:])
	data = data[n:]

	for len(data) >= BlockSize {
		block(&e.state, data[:BlockSize])
		data = data[BlockSize:]
	}
	copy(e.buffer[:], data)
}

// Write absorbs p. It always returns len(p) and a nil error.
func (e *Engine) Write(p []byte) (int, error) {
	e.Update(p)
	return len(p), nil
}

// Finalize pads the message and returns its digest. The padding is applied to
// a copy, so the engine is left untouched: Finalize may be called again, and
// further updates extend the same message.
func (e *Engine) Finalize() Sum {
	d := *e
	return d.finish()
}

// Sum appends the digest of the absorbed message to b without changing the
// engine.
func (e *Engine) Sum(b []byte) []byte {
	sum := e.Finalize()
	return append(b, sum[:]...)
}

func (e *Engine) finish() Sum {
	bitCount := e.bitCount
	index := e.buffered()

	var pad [2 * BlockSize]byte
	pad[0] = 0x80
	padLen := lengthOffset - index
	if index >= lengthOffset {
		padLen += BlockSize
	}
	binary.BigEndian.PutUint64(pad[padLen:], bitCount)
	e.Update(pad[:padLen+8])

	var sum Sum
	for i, word := range e.state {
		binary.BigEndian.PutUint32(sum[i*4:], word)
	}
	return sum
}

// Sum256 returns the digest of data.
func Sum256(data []byte) Sum {
	var e Engine
	e.Reset()
	e.Update(data)
	return e.finish()
}
