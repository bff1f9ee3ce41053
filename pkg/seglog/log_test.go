package seglog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_AppendResolves(t *testing.T) {
	l := NewLog(1024, 0)

	obj := &Object{TableID: 0, ObjectID: 0, Version: 1, Data: []byte("item0")}
	ref, err := l.Append(RecordObject, obj.Encode())
	require.NoError(t, err)

	decoded, err := DecodeObject(l.Payload(ref))
	require.NoError(t, err)
	assert.Equal(t, "item0", string(decoded.Data))
	assert.Equal(t, uint64(1), decoded.Version)
}

func TestLog_RotatesOnFullSegment(t *testing.T) {
	l := NewLog(128, 0)

	var closed []uint64
	l.OnSegmentClosed(func(s *Segment) {
		closed = append(closed, s.ID())
	})

	// Each record takes 9 header + 24 object header + 40 data = 73 bytes, so
	// a second append must rotate.
	data := make([]byte, 40)
	ref1, err := l.Append(RecordObject, (&Object{ObjectID: 1, Version: 1, Data: data}).Encode())
	require.NoError(t, err)
	ref2, err := l.Append(RecordObject, (&Object{ObjectID: 2, Version: 1, Data: data}).Encode())
	require.NoError(t, err)

	assert.NotEqual(t, ref1.SegmentID, ref2.SegmentID)
	assert.Equal(t, 2, l.NumSegments())
	assert.Equal(t, []uint64{ref1.SegmentID}, closed)

	// Both references still resolve after rotation.
	o1, err := DecodeObject(l.Payload(ref1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), o1.ObjectID)
	o2, err := DecodeObject(l.Payload(ref2))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), o2.ObjectID)
}

func TestLog_EntryTooBig(t *testing.T) {
	l := NewLog(64, 0)
	_, err := l.Append(RecordObject, make([]byte, 128))
	assert.ErrorIs(t, err, ErrEntryTooBig)
}

func TestLog_Full(t *testing.T) {
	l := NewLog(128, 1)

	data := make([]byte, 40)
	_, err := l.Append(RecordObject, (&Object{ObjectID: 1, Version: 1, Data: data}).Encode())
	require.NoError(t, err)

	// Rotation would exceed the one-segment budget.
	_, err = l.Append(RecordObject, (&Object{ObjectID: 2, Version: 1, Data: data}).Encode())
	assert.ErrorIs(t, err, ErrLogFull)
}

func TestLog_FreeSegment(t *testing.T) {
	l := NewLog(128, 0)

	data := make([]byte, 40)
	ref1, err := l.Append(RecordObject, (&Object{ObjectID: 1, Version: 1, Data: data}).Encode())
	require.NoError(t, err)
	_, err = l.Append(RecordObject, (&Object{ObjectID: 2, Version: 1, Data: data}).Encode())
	require.NoError(t, err)

	// First segment was closed by rotation; it can be freed.
	require.NoError(t, l.FreeSegment(ref1.SegmentID))
	assert.Equal(t, 1, l.NumSegments())

	// Freeing the open head is refused.
	err = l.FreeSegment(l.HeadSegmentID())
	assert.Error(t, err)

	// Resolving into the freed segment is a programming error.
	assert.Panics(t, func() { l.Payload(ref1) })
}
