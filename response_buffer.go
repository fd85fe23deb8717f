package broute

import (
	"bytes"
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrBufferFull is returned when a write would grow the response buffer past its limit.
var ErrBufferFull = errors.New("response buffer is full")

var bufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// ResponseBuffer holds the status, headers and body of a response until it is flushed. Until the first flush
// the whole response can be reset and replaced.
type ResponseBuffer struct {
	resp   http.ResponseWriter
	limit  int
	buf    *bytes.Buffer
	header http.Header
	status int

	wroteHeader bool // status is fixed until Reset
	sentHeader  bool // status and headers went to resp
	flushed     bool // flushed explicitly, Reset is no longer possible
}

// NewResponseWriter buffers writes to resp. A negative limit disables the size limit.
func NewResponseWriter(resp http.ResponseWriter, limit int) ResponseWriter {
	return newBufferResponse(resp, limit)
}

func newBufferResponse(resp http.ResponseWriter, limit int) *ResponseBuffer {
	buf, _ := bufPool.Get().(*bytes.Buffer)
	buf.Reset()

	return &ResponseBuffer{
		resp:   resp,
		limit:  limit,
		buf:    buf,
		header: http.Header{},
		status: http.StatusOK,
	}
}

// Header returns the buffered headers. Changes after the first flush are not sent.
func (w *ResponseBuffer) Header() http.Header { return w.header }

// WriteHeader records the status. The first call wins until the buffer is reset.
func (w *ResponseBuffer) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}

	w.status, w.wroteHeader = status, true
}

// Write buffers p. It writes nothing and returns ErrBufferFull if that would exceed the limit.
func (w *ResponseBuffer) Write(p []byte) (int, error) {
	if w.limit >= 0 && w.buf.Len()+len(p) > w.limit {
		return 0, ErrBufferFull
	}

	w.wroteHeader = true

	return w.buf.Write(p)
}

// Reset discards the buffered status, headers and body. It panics after an explicit flush since part of the
// response has reached the client already.
func (w *ResponseBuffer) Reset() {
	if w.flushed {
		panic("broute: cannot reset response, it was already flushed")
	}

	w.buf.Reset()
	w.header = http.Header{}
	w.status, w.wroteHeader = http.StatusOK, false
}

// FlushBuffer writes the buffered response to the underlying writer.
func (w *ResponseBuffer) FlushBuffer() error {
	if !w.sentHeader {
		dst := w.resp.Header()
		for k, v := range w.header {
			dst[k] = v
		}

		w.resp.WriteHeader(w.status)
		w.sentHeader = true
	}

	if w.buf.Len() < 1 {
		return nil
	}

	defer w.buf.Reset()
	if _, err := w.resp.Write(w.buf.Bytes()); err != nil {
		return errors.Wrap(err, "write buffered response")
	}

	return nil
}

// FlushError flushes the buffer and then the underlying writer. It is picked up by [http.ResponseController].
func (w *ResponseBuffer) FlushError() error {
	w.flushed = true
	if err := w.FlushBuffer(); err != nil {
		return err
	}

	if err := http.NewResponseController(w.resp).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return errors.Wrap(err, "flush underlying response")
	}

	return nil
}

// Flush implements [http.Flusher].
func (w *ResponseBuffer) Flush() { _ = w.FlushError() }

// Unwrap returns the underlying writer for [http.ResponseController].
func (w *ResponseBuffer) Unwrap() http.ResponseWriter { return w.resp }

// Free returns the buffer to the pool. The writer must not be used afterwards.
func (w *ResponseBuffer) Free() {
	if w.buf == nil {
		return
	}

	bufPool.Put(w.buf)
	w.buf = nil
}

var _ ResponseWriter = (*ResponseBuffer)(nil)
