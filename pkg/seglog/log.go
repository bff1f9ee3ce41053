// Package seglog implements the master's append-only in-memory log,
// partitioned into fixed-size segments. Every live object and tombstone
// lives inside exactly one segment; the index holds references into log
// storage and must never outlive the segment it points into.
package seglog

import (
	"errors"
	"fmt"
)

var (
	// ErrLogFull is returned when the configured segment budget is
	// exhausted.
	ErrLogFull = errors.New("log full")
	// ErrEntryTooBig is returned when an entry cannot fit even in an empty
	// segment.
	ErrEntryTooBig = errors.New("entry exceeds segment capacity")
)

// Log is the append-only log. It rotates to a fresh segment when the head
// segment fills up; rotation is never observable to clients.
type Log struct {
	segmentSize uint32
	maxSegments int // 0 means unbounded

	head          *Segment
	segments      map[uint64]*Segment
	nextSegmentID uint64

	onSegmentClosed func(*Segment)
}

// NewLog creates a log with the given segment capacity. maxSegments bounds
// resident segments; 0 means unbounded.
func NewLog(segmentSize uint32, maxSegments int) *Log {
	if segmentSize == 0 {
		segmentSize = DefaultSegmentSize
	}
	return &Log{
		segmentSize: segmentSize,
		maxSegments: maxSegments,
		segments:    make(map[uint64]*Segment),
	}
}

// OnSegmentClosed registers a callback invoked whenever a head segment is
// closed during rotation. A replication layer hooks this to ship closed
// segments to backups.
func (l *Log) OnSegmentClosed(fn func(*Segment)) {
	l.onSegmentClosed = fn
}

// SegmentSize returns the configured per-segment capacity.
func (l *Log) SegmentSize() uint32 {
	return l.segmentSize
}

// NumSegments returns the number of resident segments.
func (l *Log) NumSegments() int {
	return len(l.segments)
}

// AppendedBytes returns the total bytes appended across all resident
// segments.
func (l *Log) AppendedBytes() uint64 {
	var total uint64
	for _, s := range l.segments {
		total += uint64(s.AppendedBytes())
	}
	return total
}

func (l *Log) rotate() error {
	if l.maxSegments > 0 && len(l.segments) >= l.maxSegments {
		return ErrLogFull
	}
	l.nextSegmentID++
	seg := NewSegment(l.nextSegmentID, l.segmentSize)
	l.segments[seg.ID()] = seg
	l.head = seg
	return nil
}

// Append writes a record to the head segment, closing and rotating when the
// head is full. The returned reference remains valid and byte-stable until
// the segment is freed.
func (l *Log) Append(kind RecordType, payload []byte) (Ref, error) {
	if uint32(entryHeaderSize+len(payload)) > l.segmentSize {
		return Ref{}, ErrEntryTooBig
	}
	if l.head == nil {
		if err := l.rotate(); err != nil {
			return Ref{}, err
		}
	}

	ref, err := l.head.Append(kind, payload)
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, ErrSegmentFull) && !errors.Is(err, ErrSegmentClosed) {
		return Ref{}, err
	}

	l.closeHead()
	if err := l.rotate(); err != nil {
		return Ref{}, err
	}
	return l.head.Append(kind, payload)
}

func (l *Log) closeHead() {
	if l.head == nil || l.head.Closed() {
		return
	}
	l.head.Close()
	if l.onSegmentClosed != nil {
		l.onSegmentClosed(l.head)
	}
}

// HeadSegmentID returns the id of the current head segment, or 0 when
// nothing has been appended yet.
func (l *Log) HeadSegmentID() uint64 {
	if l.head == nil {
		return 0
	}
	return l.head.ID()
}

// Payload resolves a reference against resident segments. A reference to a
// freed or unknown segment is a programming error and panics: an index
// entry pointed past the log's lifetime guarantees.
func (l *Log) Payload(ref Ref) []byte {
	seg, ok := l.segments[ref.SegmentID]
	if !ok {
		panic(fmt.Sprintf("seglog: reference to non-resident segment %d", ref.SegmentID))
	}
	return seg.Payload(ref)
}

// FreeSegment releases a closed segment. Only the (out of scope) log
// cleaner calls this after proving no index entry points into the segment.
func (l *Log) FreeSegment(id uint64) error {
	seg, ok := l.segments[id]
	if !ok {
		return fmt.Errorf("segment %d not resident", id)
	}
	if !seg.Closed() {
		return fmt.Errorf("segment %d still open", id)
	}
	delete(l.segments, id)
	return nil
}
