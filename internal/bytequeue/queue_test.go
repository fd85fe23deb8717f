package bytequeue_test

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/advdv/broute/internal/bytequeue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsert(t *testing.T) {
	t.Run("should hold bytes before wrapping", func(t *testing.T) {
		q := bytequeue.New(8)
		q.Insert([]byte("xxabcxx"), 2, 3)

		assert.Equal(t, 3, q.Len())
		assert.Equal(t, 3, q.Head())
		assert.Equal(t, []byte("abc"), q.Slice(0, 3))
		assert.Equal(t, byte('b'), q.At(1))
	})

	t.Run("should retain the last capacity bytes after wrapping", func(t *testing.T) {
		q := bytequeue.New(4)
		_, err := q.Write([]byte("abc"))
		require.NoError(t, err)
		_, err = q.Write([]byte("def"))
		require.NoError(t, err)

		assert.Equal(t, 4, q.Len())
		assert.Equal(t, 2, q.Head())
		assert.Equal(t, []byte("cdef"), q.Slice(0, 4))
		assert.Equal(t, []byte("ef"), q.Slice(2, 2))
	})

	t.Run("should keep the tail of oversized inserts", func(t *testing.T) {
		q := bytequeue.New(4)
		_, _ = q.Write([]byte("a"))
		_, _ = q.Write([]byte("0123456789"))

		assert.Equal(t, 4, q.Len())
		assert.Equal(t, (1+10)%4, q.Head())
		assert.Equal(t, []byte("6789"), q.Slice(0, 4))
	})

	t.Run("should match a sequence of single byte writes", func(t *testing.T) {
		const input = "the quick brown fox jumps over the lazy dog"
		for capacity := 1; capacity < 12; capacity++ {
			q := bytequeue.New(capacity)
			for i := range len(input) {
				_, _ = q.Write([]byte{input[i]})

				exp := input[max(0, i+1-capacity) : i+1]
				require.Equal(t, exp, string(q.Slice(0, q.Len())), "cap %d at %d", capacity, i)
			}
		}
	})
}

func TestReadStream(t *testing.T) {
	t.Run("should read across the wrap point", func(t *testing.T) {
		q := bytequeue.New(6)
		_, _ = q.Write([]byte("abcd"))

		n, err := q.ReadStream(strings.NewReader("efgh"), 4)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Equal(t, []byte("cdefgh"), q.Slice(0, 6))
	})

	t.Run("should limit reads to the capacity", func(t *testing.T) {
		q := bytequeue.New(3)
		n, err := q.ReadStream(strings.NewReader("abcdef"), 100)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, []byte("abc"), q.Slice(0, 3))
	})

	t.Run("should advance by the bytes actually read", func(t *testing.T) {
		q := bytequeue.New(8)
		n, err := q.ReadStream(iotest.OneByteReader(strings.NewReader("abcdef")), 4)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, 1, q.Len())
		assert.Equal(t, 1, q.Head())
	})

	t.Run("should report eof", func(t *testing.T) {
		q := bytequeue.New(8)
		n, err := q.ReadStream(bytes.NewReader(nil), 4)
		require.ErrorIs(t, err, io.EOF)
		assert.Equal(t, 0, n)
	})
}

func TestIndexOf(t *testing.T) {
	t.Run("should find targets in unwrapped data", func(t *testing.T) {
		q := bytequeue.New(32)
		_, _ = q.Write([]byte("aab--ab--abc"))

		assert.Equal(t, 9, q.IndexOf([]byte("abc"), 0, -1))
		assert.Equal(t, 3, q.IndexOf([]byte("--"), 0, -1))
		assert.Equal(t, 7, q.IndexOf([]byte("--"), 4, -1))
		assert.Equal(t, -1, q.IndexOf([]byte("abc"), 0, 11))
		assert.Equal(t, 1, q.IndexOf([]byte("ab"), 0, -1))
		assert.Equal(t, -1, q.IndexOf([]byte("zz"), 0, -1))
		assert.Equal(t, 4, q.IndexOf(nil, 4, -1))
	})

	t.Run("should restart at a partial overlap", func(t *testing.T) {
		q := bytequeue.New(32)
		_, _ = q.Write([]byte("ababac"))
		assert.Equal(t, 2, q.IndexOf([]byte("abac"), 0, -1))

		q = bytequeue.New(32)
		_, _ = q.Write([]byte("\r\n\r\r\n--b"))
		assert.Equal(t, 3, q.IndexOf([]byte("\r\n--b"), 0, -1))
	})

	t.Run("should find a target that straddles the wrap point", func(t *testing.T) {
		q := bytequeue.New(8)
		_, _ = q.Write([]byte("xxxxxx"))
		_, _ = q.Write([]byte("--bou"))

		require.Equal(t, 3, q.Head())
		assert.Equal(t, []byte("xxx--bou"), q.Slice(0, 8))
		assert.Equal(t, 3, q.IndexOf([]byte("--bou"), 0, -1))
		assert.Equal(t, 3, q.IndexOf([]byte("--bou"), 3, -1))
		assert.Equal(t, -1, q.IndexOf([]byte("--bou"), 4, -1))
	})
}

func TestPanics(t *testing.T) {
	assert.PanicsWithValue(t, "bytequeue: capacity must be positive", func() { bytequeue.New(0) })
	assert.Panics(t, func() { bytequeue.New(2).Slice(0, 1) })
	assert.Panics(t, func() { bytequeue.New(2).At(0) })
}
