// Package buffer implements a logically linear array of bytes stored as
// discontiguous chunks. Passing a Buffer between layers avoids copying the
// regions themselves; only GetRange over a chunk boundary ever copies.
package buffer

import (
	"github.com/dd0wney/cluso-ramstore/pkg/pools"
)

// chunk is one physically contiguous region of the buffer.
type chunk struct {
	data []byte
}

// Buffer manages an ordered collection of chunks. The buffer does not own
// externally supplied chunk memory; callers must keep chunk slices alive for
// the lifetime of the buffer. Arenas allocated by GetRange are owned by the
// buffer and returned to the byte pool on Reset.
type Buffer struct {
	chunks   []chunk
	totalLen uint32

	// Arenas allocated when GetRange must assemble a contiguous copy of a
	// range that straddles chunks.
	arenas [][]byte
}

// New creates an empty buffer.
func New() *Buffer {
	return &Buffer{
		chunks: make([]chunk, 0, 10),
	}
}

// NewWith creates a buffer holding a single initial chunk.
func NewWith(first []byte) *Buffer {
	b := New()
	b.Append(first)
	return b
}

// Prepend adds data to the front of the buffer without copying it.
func (b *Buffer) Prepend(data []byte) {
	b.chunks = append(b.chunks, chunk{})
	copy(b.chunks[1:], b.chunks)
	b.chunks[0] = chunk{data: data}
	b.totalLen += uint32(len(data))
}

// Append adds data to the end of the buffer without copying it.
func (b *Buffer) Append(data []byte) {
	b.chunks = append(b.chunks, chunk{data: data})
	b.totalLen += uint32(len(data))
}

// TotalLength returns the sum of the individual sizes of all chunks.
func (b *Buffer) TotalLength() uint32 {
	return b.totalLen
}

// NumChunks returns the number of chunks composing this buffer.
func (b *Buffer) NumChunks() int {
	return len(b.chunks)
}

// findChunk locates the chunk containing the given logical offset and
// returns its index and the offset within it. Returns ok=false when offset
// is past the end of the buffer.
func (b *Buffer) findChunk(offset uint32) (idx int, chunkOffset uint32, ok bool) {
	remaining := offset
	for i := range b.chunks {
		l := uint32(len(b.chunks[i].data))
		if remaining < l {
			return i, remaining, true
		}
		remaining -= l
	}
	return 0, 0, false
}

// Peek returns the longest contiguous run of bytes starting at offset
// without copying. The returned slice is nil when offset is out of range.
func (b *Buffer) Peek(offset uint32) []byte {
	idx, chunkOffset, ok := b.findChunk(offset)
	if !ok {
		return nil
	}
	return b.chunks[idx].data[chunkOffset:]
}

// GetRange returns length bytes starting at offset as one contiguous slice.
// If the range lies within a single chunk the slice aliases that chunk;
// otherwise the bytes are copied into an arena owned by the buffer. Returns
// nil when the range extends past the end of the buffer.
func (b *Buffer) GetRange(offset, length uint32) []byte {
	if offset+length > b.totalLen {
		return nil
	}
	idx, chunkOffset, ok := b.findChunk(offset)
	if !ok {
		return nil
	}

	c := b.chunks[idx].data
	if chunkOffset+length <= uint32(len(c)) {
		return c[chunkOffset : chunkOffset+length]
	}

	// Range straddles chunks: assemble a contiguous copy in an arena.
	arena := pools.GetBytesSized(int(length))
	b.Copy(offset, length, arena)
	b.arenas = append(b.arenas, arena)
	return arena
}

// Copy copies up to length bytes starting at offset into dest and returns
// the number of bytes copied. Copies less than length when the buffer ends
// early or dest is too small.
func (b *Buffer) Copy(offset, length uint32, dest []byte) uint32 {
	if uint32(len(dest)) < length {
		length = uint32(len(dest))
	}
	idx, chunkOffset, ok := b.findChunk(offset)
	if !ok {
		return 0
	}

	var copied uint32
	for idx < len(b.chunks) && copied < length {
		n := copy(dest[copied:length], b.chunks[idx].data[chunkOffset:])
		copied += uint32(n)
		chunkOffset = 0
		idx++
	}
	return copied
}

// Reset drops all chunks and returns owned arenas to the pool. The buffer
// can be reused afterwards.
func (b *Buffer) Reset() {
	for _, arena := range b.arenas {
		pools.PutBytes(arena)
	}
	b.arenas = nil
	b.chunks = b.chunks[:0]
	b.totalLen = 0
}

// Iterator walks the chunks of a buffer in order. The buffer must not be
// modified during the lifetime of the iterator.
type Iterator struct {
	buf        *Buffer
	chunkIndex int
}

// Iter creates an iterator over the buffer's chunks.
func (b *Buffer) Iter() *Iterator {
	return &Iterator{buf: b}
}

// Done reports whether all chunks have been visited.
func (it *Iterator) Done() bool {
	return it.chunkIndex >= len(it.buf.chunks)
}

// Next advances to the next chunk.
func (it *Iterator) Next() {
	it.chunkIndex++
}

// Data returns the current chunk's bytes.
func (it *Iterator) Data() []byte {
	return it.buf.chunks[it.chunkIndex].data
}
