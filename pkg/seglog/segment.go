package seglog

import (
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/dd0wney/cluso-ramstore/pkg/pools"
)

const (
	// DefaultSegmentSize is the segment capacity used unless configured
	// otherwise.
	DefaultSegmentSize = 64 * 1024

	// entryHeaderSize frames every entry: [type:1][length:4][crc:4].
	entryHeaderSize = 9
)

var (
	ErrSegmentFull   = errors.New("segment full")
	ErrSegmentClosed = errors.New("segment closed")
	ErrCorruptEntry  = errors.New("corrupt segment entry")
)

// Ref is a stable reference to an entry payload inside a segment. It stays
// valid and byte-stable until the segment is freed.
type Ref struct {
	SegmentID uint64
	Offset    uint32
	Length    uint32
}

// Segment is a fixed-capacity byte region with an append cursor. Closing a
// segment is irreversible; appends to a closed segment fail.
type Segment struct {
	id     uint64
	buf    []byte
	head   uint32
	closed bool
}

// NewSegment allocates an open segment with the given capacity.
func NewSegment(id uint64, capacity uint32) *Segment {
	return &Segment{
		id:  id,
		buf: make([]byte, capacity),
	}
}

// OpenSegment wraps existing segment bytes (e.g. a recovery segment received
// from a backup) for iteration. The segment is closed.
func OpenSegment(id uint64, data []byte) *Segment {
	return &Segment{
		id:     id,
		buf:    data,
		head:   uint32(len(data)),
		closed: true,
	}
}

// ID returns the segment's identifier.
func (s *Segment) ID() uint64 {
	return s.id
}

// Append writes an entry header and payload at the cursor and returns a
// reference to the payload bytes. Fails with ErrSegmentFull when the
// remaining capacity is insufficient; the caller closes the segment and
// rotates to a new one.
func (s *Segment) Append(kind RecordType, payload []byte) (Ref, error) {
	if s.closed {
		return Ref{}, ErrSegmentClosed
	}
	need := uint32(entryHeaderSize + len(payload))
	if s.head+need > uint32(len(s.buf)) {
		return Ref{}, ErrSegmentFull
	}

	hdr := pools.NewBufferBuilder(entryHeaderSize)
	hdr.WriteByte(byte(kind))
	hdr.WriteUint32BE(uint32(len(payload)))
	hdr.WriteUint32BE(crc32.ChecksumIEEE(payload))
	copy(s.buf[s.head:], hdr.Bytes())
	hdr.Release()

	offset := s.head + entryHeaderSize
	copy(s.buf[offset:], payload)
	s.head += need

	return Ref{SegmentID: s.id, Offset: offset, Length: uint32(len(payload))}, nil
}

// Close marks the segment immutable. Subsequent appends fail.
func (s *Segment) Close() {
	s.closed = true
}

// Closed reports whether the segment has been closed.
func (s *Segment) Closed() bool {
	return s.closed
}

// AppendedBytes returns the number of bytes written so far.
func (s *Segment) AppendedBytes() uint32 {
	return s.head
}

// Remaining returns the capacity left for payload bytes in one more entry.
func (s *Segment) Remaining() uint32 {
	used := s.head + entryHeaderSize
	if used >= uint32(len(s.buf)) {
		return 0
	}
	return uint32(len(s.buf)) - used
}

// Bytes returns the appended portion of the segment. Used when shipping the
// segment to a backup or packaging recovery data.
func (s *Segment) Bytes() []byte {
	return s.buf[:s.head]
}

// Payload resolves a reference to the payload bytes it points at. A
// reference outside the appended region is a programming error and panics.
func (s *Segment) Payload(ref Ref) []byte {
	if ref.SegmentID != s.id || ref.Offset+ref.Length > s.head {
		panic(fmt.Sprintf("seglog: reference %+v outside segment %d (head %d)", ref, s.id, s.head))
	}
	return s.buf[ref.Offset : ref.Offset+ref.Length]
}

// Iterate yields each entry in append order. Iteration stops early when fn
// returns an error or an entry fails its checksum.
func (s *Segment) Iterate(fn func(kind RecordType, ref Ref, payload []byte) error) error {
	var off uint32
	for off < s.head {
		if off+entryHeaderSize > s.head {
			return fmt.Errorf("segment %d: truncated header at offset %d: %w", s.id, off, ErrCorruptEntry)
		}
		kind := RecordType(s.buf[off])
		length := uint32(s.buf[off+1])<<24 | uint32(s.buf[off+2])<<16 | uint32(s.buf[off+3])<<8 | uint32(s.buf[off+4])
		sum := uint32(s.buf[off+5])<<24 | uint32(s.buf[off+6])<<16 | uint32(s.buf[off+7])<<8 | uint32(s.buf[off+8])

		payloadOff := off + entryHeaderSize
		if payloadOff+length > s.head {
			return fmt.Errorf("segment %d: truncated payload at offset %d: %w", s.id, off, ErrCorruptEntry)
		}
		payload := s.buf[payloadOff : payloadOff+length]
		if crc32.ChecksumIEEE(payload) != sum {
			return fmt.Errorf("segment %d: checksum mismatch at offset %d: %w", s.id, off, ErrCorruptEntry)
		}

		ref := Ref{SegmentID: s.id, Offset: payloadOff, Length: length}
		if err := fn(kind, ref, payload); err != nil {
			return err
		}
		off = payloadOff + length
	}
	return nil
}
