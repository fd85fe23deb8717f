// Package bytequeue implements a fixed-capacity circular byte buffer that retains the most recent bytes
// written to it. Positions are logical: 0 is the oldest byte still held.
package bytequeue

import (
	"io"
)

// Queue is a ring of bytes. It is not safe for concurrent use.
type Queue struct {
	data     []byte
	head     int // next write position
	occupied int
}

// New inits a queue that holds at most capacity bytes.
func New(capacity int) *Queue {
	if capacity <= 0 {
		panic("bytequeue: capacity must be positive")
	}

	return &Queue{data: make([]byte, capacity)}
}

// Cap returns the capacity.
func (q *Queue) Cap() int { return len(q.data) }

// Len returns the number of bytes held.
func (q *Queue) Len() int { return q.occupied }

// Head returns the physical position the next byte is written to.
func (q *Queue) Head() int { return q.head }

// Write appends p, keeping only the last Cap() bytes. It never fails.
func (q *Queue) Write(p []byte) (int, error) {
	q.Insert(p, 0, len(p))

	return len(p), nil
}

// Insert appends p[offset:offset+length]. When length exceeds the capacity only the trailing bytes are
// stored but the head still advances by length.
func (q *Queue) Insert(p []byte, offset, length int) {
	src := p[offset : offset+length]
	if len(src) > len(q.data) {
		src = src[len(src)-len(q.data):]
	}

	start := (q.head + length - len(src)) % len(q.data)
	n := copy(q.data[start:], src)
	copy(q.data, src[n:])

	q.advance(length)
}

// ReadStream reads at most min(length, Cap()) bytes from r into the queue and advances by the number of
// bytes actually read. The ring is filled in at most two regions, each with a single Read call.
func (q *Queue) ReadStream(r io.Reader, length int) (int, error) {
	length = min(length, len(q.data))
	if length <= 0 {
		return 0, nil
	}

	first := min(length, len(q.data)-q.head)

	n, err := r.Read(q.data[q.head : q.head+first])
	q.advance(n)

	if err != nil || n < first || first == length {
		return n, err
	}

	m, err := r.Read(q.data[:length-first])
	q.advance(m)

	return n + m, err
}

// At returns the byte at logical position i.
func (q *Queue) At(i int) byte {
	if i < 0 || i >= q.occupied {
		panic("bytequeue: index out of range")
	}

	return q.data[q.abs(i)]
}

// IndexOf returns the logical position of the first occurrence of target that starts at or after from and
// ends at or before to. A negative to means Len(). It returns -1 when target does not occur.
func (q *Queue) IndexOf(target []byte, from, to int) int {
	if to < 0 || to > q.occupied {
		to = q.occupied
	}

	from = max(from, 0)
	if len(target) == 0 {
		if from <= to {
			return from
		}

		return -1
	}

	for i, last := from, to-len(target); i <= last; {
		next, j := -1, 0
		for ; j < len(target); j++ {
			b := q.data[q.abs(i+j)]
			if j > 0 && next < 0 && b == target[0] {
				next = i + j
			}

			if b != target[j] {
				break
			}
		}

		switch {
		case j == len(target):
			return i
		case next > 0:
			i = next
		default:
			i += j + 1
		}
	}

	return -1
}

// Slice copies length bytes starting at logical position offset.
func (q *Queue) Slice(offset, length int) []byte {
	if offset < 0 || length < 0 || offset+length > q.occupied {
		panic("bytequeue: slice out of range")
	}

	out := make([]byte, length)
	if length == 0 {
		return out
	}

	start := q.abs(offset)
	n := copy(out, q.data[start:min(start+length, len(q.data))])
	copy(out[n:], q.data)

	return out
}

func (q *Queue) advance(n int) {
	q.head = (q.head + n) % len(q.data)
	q.occupied = min(q.occupied+n, len(q.data))
}

// abs maps a logical position onto the backing array. Before the first wrap the oldest byte sits at 0,
// after it the oldest byte sits at head.
func (q *Queue) abs(i int) int {
	if q.occupied < len(q.data) {
		return i
	}

	return (q.head + i) % len(q.data)
}
