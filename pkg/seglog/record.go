package seglog

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// RecordType tags each log entry.
type RecordType uint8

const (
	RecordInvalid RecordType = iota
	// RecordObject is a live object record.
	RecordObject
	// RecordTombstone marks a deleted object and carries the deleted version.
	RecordTombstone
)

func (t RecordType) String() string {
	switch t {
	case RecordObject:
		return "object"
	case RecordTombstone:
		return "tombstone"
	default:
		return "invalid"
	}
}

var ErrRecordTooShort = errors.New("record too short")

// objectHeaderSize is the fixed-width prefix of an encoded Object.
const objectHeaderSize = 24

// tombstoneSize is the full size of an encoded Tombstone.
const tombstoneSize = 32

// Object is a live object record stored inline in the log.
type Object struct {
	TableID  uint64
	ObjectID uint64
	Version  uint64
	Data     []byte
}

// Encode serializes the object: [table:8][id:8][version:8][data:N],
// big-endian.
func (o *Object) Encode() []byte {
	buf := make([]byte, objectHeaderSize+len(o.Data))
	binary.BigEndian.PutUint64(buf[0:8], o.TableID)
	binary.BigEndian.PutUint64(buf[8:16], o.ObjectID)
	binary.BigEndian.PutUint64(buf[16:24], o.Version)
	copy(buf[objectHeaderSize:], o.Data)
	return buf
}

// DecodeObject parses an encoded object record. The returned Data aliases b.
func DecodeObject(b []byte) (*Object, error) {
	if len(b) < objectHeaderSize {
		return nil, fmt.Errorf("object record of %d bytes: %w", len(b), ErrRecordTooShort)
	}
	return &Object{
		TableID:  binary.BigEndian.Uint64(b[0:8]),
		ObjectID: binary.BigEndian.Uint64(b[8:16]),
		Version:  binary.BigEndian.Uint64(b[16:24]),
		Data:     b[objectHeaderSize:],
	}, nil
}

// Tombstone marks a deleted object. SegmentID identifies the segment holding
// the superseded object record; the log cleaner uses it to decide when the
// tombstone itself may be dropped.
type Tombstone struct {
	TableID       uint64
	ObjectID      uint64
	SegmentID     uint64
	ObjectVersion uint64
}

// Encode serializes the tombstone:
// [table:8][id:8][segment:8][version:8], big-endian.
func (t *Tombstone) Encode() []byte {
	buf := make([]byte, tombstoneSize)
	binary.BigEndian.PutUint64(buf[0:8], t.TableID)
	binary.BigEndian.PutUint64(buf[8:16], t.ObjectID)
	binary.BigEndian.PutUint64(buf[16:24], t.SegmentID)
	binary.BigEndian.PutUint64(buf[24:32], t.ObjectVersion)
	return buf
}

// DecodeTombstone parses an encoded tombstone record.
func DecodeTombstone(b []byte) (*Tombstone, error) {
	if len(b) < tombstoneSize {
		return nil, fmt.Errorf("tombstone record of %d bytes: %w", len(b), ErrRecordTooShort)
	}
	return &Tombstone{
		TableID:       binary.BigEndian.Uint64(b[0:8]),
		ObjectID:      binary.BigEndian.Uint64(b[8:16]),
		SegmentID:     binary.BigEndian.Uint64(b[16:24]),
		ObjectVersion: binary.BigEndian.Uint64(b[24:32]),
	}, nil
}
