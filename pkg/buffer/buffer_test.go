package buffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_AppendPrepend(t *testing.T) {
	b := New()
	b.Append([]byte("world"))
	b.Prepend([]byte("hello "))

	assert.Equal(t, uint32(11), b.TotalLength())
	assert.Equal(t, 2, b.NumChunks())

	got := make([]byte, 11)
	n := b.Copy(0, 11, got)
	assert.Equal(t, uint32(11), n)
	assert.Equal(t, "hello world", string(got))
}

func TestBuffer_Peek(t *testing.T) {
	b := New()
	b.Append([]byte("abc"))
	b.Append([]byte("defgh"))

	// Peek returns the run to the end of the containing chunk.
	assert.Equal(t, []byte("abc"), b.Peek(0))
	assert.Equal(t, []byte("bc"), b.Peek(1))
	assert.Equal(t, []byte("defgh"), b.Peek(3))
	assert.Equal(t, []byte("gh"), b.Peek(6))
	assert.Nil(t, b.Peek(8))
}

func TestBuffer_GetRange_SingleChunk(t *testing.T) {
	data := []byte("0123456789")
	b := NewWith(data)

	got := b.GetRange(2, 5)
	require.NotNil(t, got)
	assert.Equal(t, "23456", string(got))

	// Within one chunk no copy happens: the result aliases the chunk.
	data[2] = 'X'
	assert.Equal(t, "X3456", string(got))
}

func TestBuffer_GetRange_Straddling(t *testing.T) {
	b := New()
	b.Append([]byte("abcd"))
	b.Append([]byte("efgh"))
	b.Append([]byte("ijkl"))

	got := b.GetRange(2, 8)
	require.NotNil(t, got)
	assert.Equal(t, "cdefghij", string(got))

	// Out of range
	assert.Nil(t, b.GetRange(8, 8))
	assert.Nil(t, b.GetRange(12, 1))
}

func TestBuffer_Copy_Partial(t *testing.T) {
	b := New()
	b.Append([]byte("abcd"))
	b.Append([]byte("efgh"))

	dst := make([]byte, 3)
	n := b.Copy(6, 10, dst)
	assert.Equal(t, uint32(2), n)
	assert.True(t, bytes.HasPrefix(dst, []byte("gh")))
}

func TestBuffer_Iterator(t *testing.T) {
	b := New()
	chunks := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, c := range chunks {
		b.Append(c)
	}

	var visited [][]byte
	for it := b.Iter(); !it.Done(); it.Next() {
		visited = append(visited, it.Data())
	}

	require.Len(t, visited, 3)
	for i, c := range chunks {
		assert.Equal(t, c, visited[i])
	}
}

func TestBuffer_Reset(t *testing.T) {
	b := New()
	b.Append([]byte("abcd"))
	b.Append([]byte("efgh"))
	_ = b.GetRange(2, 4) // forces an arena

	b.Reset()
	assert.Equal(t, uint32(0), b.TotalLength())
	assert.Equal(t, 0, b.NumChunks())

	b.Append([]byte("reuse"))
	assert.Equal(t, uint32(5), b.TotalLength())
}
