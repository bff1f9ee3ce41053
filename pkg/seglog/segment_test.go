package seglog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment_AppendAndIterate(t *testing.T) {
	seg := NewSegment(1, 1024)

	obj := &Object{TableID: 0, ObjectID: 7, Version: 1, Data: []byte("item0")}
	ref1, err := seg.Append(RecordObject, obj.Encode())
	require.NoError(t, err)

	tomb := &Tombstone{TableID: 0, ObjectID: 8, SegmentID: 1, ObjectVersion: 3}
	ref2, err := seg.Append(RecordTombstone, tomb.Encode())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), ref1.SegmentID)
	assert.True(t, ref2.Offset > ref1.Offset)

	// References resolve to stable bytes.
	decoded, err := DecodeObject(seg.Payload(ref1))
	require.NoError(t, err)
	assert.Equal(t, "item0", string(decoded.Data))

	var kinds []RecordType
	err = seg.Iterate(func(kind RecordType, ref Ref, payload []byte) error {
		kinds = append(kinds, kind)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []RecordType{RecordObject, RecordTombstone}, kinds)
}

func TestSegment_Full(t *testing.T) {
	seg := NewSegment(1, 64)

	// First append fits.
	_, err := seg.Append(RecordObject, make([]byte, 32))
	require.NoError(t, err)

	// Second one doesn't.
	_, err = seg.Append(RecordObject, make([]byte, 32))
	assert.ErrorIs(t, err, ErrSegmentFull)
}

func TestSegment_CloseIsIrreversible(t *testing.T) {
	seg := NewSegment(1, 1024)
	seg.Close()
	assert.True(t, seg.Closed())

	_, err := seg.Append(RecordObject, []byte("x"))
	assert.ErrorIs(t, err, ErrSegmentClosed)
}

func TestSegment_IterateDetectsCorruption(t *testing.T) {
	seg := NewSegment(1, 1024)
	ref, err := seg.Append(RecordObject, (&Object{ObjectID: 1, Version: 1, Data: []byte("abc")}).Encode())
	require.NoError(t, err)

	// Flip a payload byte behind the checksum's back.
	seg.buf[ref.Offset] ^= 0xFF

	err = seg.Iterate(func(RecordType, Ref, []byte) error { return nil })
	assert.ErrorIs(t, err, ErrCorruptEntry)
}

func TestOpenSegment_RoundTrip(t *testing.T) {
	src := NewSegment(87, 1024)
	obj := &Object{TableID: 123, ObjectID: 5, Version: 2, Data: []byte("payload")}
	_, err := src.Append(RecordObject, obj.Encode())
	require.NoError(t, err)
	src.Close()

	// Ship the bytes, reopen elsewhere.
	reopened := OpenSegment(87, src.Bytes())
	var seen int
	err = reopened.Iterate(func(kind RecordType, ref Ref, payload []byte) error {
		seen++
		decoded, err := DecodeObject(payload)
		require.NoError(t, err)
		assert.Equal(t, uint64(123), decoded.TableID)
		assert.Equal(t, "payload", string(decoded.Data))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}

func TestRecord_EncodeDecode(t *testing.T) {
	obj := &Object{TableID: 1, ObjectID: 2, Version: 3, Data: []byte("hello")}
	decoded, err := DecodeObject(obj.Encode())
	require.NoError(t, err)
	assert.Equal(t, obj.TableID, decoded.TableID)
	assert.Equal(t, obj.ObjectID, decoded.ObjectID)
	assert.Equal(t, obj.Version, decoded.Version)
	assert.Equal(t, obj.Data, decoded.Data)

	tomb := &Tombstone{TableID: 4, ObjectID: 5, SegmentID: 6, ObjectVersion: 7}
	dt, err := DecodeTombstone(tomb.Encode())
	require.NoError(t, err)
	assert.Equal(t, *tomb, *dt)

	_, err = DecodeObject([]byte("short"))
	assert.ErrorIs(t, err, ErrRecordTooShort)
	_, err = DecodeTombstone([]byte("short"))
	assert.ErrorIs(t, err, ErrRecordTooShort)
}
