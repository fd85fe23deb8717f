// Package multipart decodes multipart/form-data bodies in a single streaming pass. The raw body is spooled
// to a file while boundaries are searched for in a small ring buffer, so memory use is bounded by the chunk
// size no matter how large the parts are. Decoded parts are byte ranges into the spool file.
package multipart

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"mime"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/advdv/broute/internal/bytequeue"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/text/encoding/htmlindex"
)

// ErrNoBoundary is returned when a content type does not carry a multipart boundary.
var ErrNoBoundary = errors.New("no multipart boundary")

const (
	// DefaultChunkSize is the number of bytes read from the body per step.
	DefaultChunkSize = 512
	// DefaultMaxHeaderBytes bounds the header block of a single part.
	DefaultMaxHeaderBytes = 16 << 10
	// DefaultMaxValueBytes bounds the text parts read by [Form.Value].
	DefaultMaxValueBytes = 1 << 20
)

var blankLine = []byte("\r\n\r\n")

// Options configure decoding.
type Options struct {
	// Dir holds the spool file, the OS temp dir when empty.
	Dir string
	// ChunkSize is the number of bytes read per step, DefaultChunkSize when zero.
	ChunkSize int
	// Charset of the part headers and text values, utf-8 when empty.
	Charset string
	// MaxHeaderBytes drops parts with larger header blocks, DefaultMaxHeaderBytes when zero.
	MaxHeaderBytes int
	// MaxValueBytes is the largest part [Form.Value] reads into memory, DefaultMaxValueBytes when zero.
	MaxValueBytes int64
}

func (o Options) withDefaults() Options {
	if o.Dir == "" {
		o.Dir = os.TempDir()
	}

	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}

	if o.Charset == "" {
		o.Charset = "utf-8"
	}

	if o.MaxHeaderBytes <= 0 {
		o.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	if o.MaxValueBytes <= 0 {
		o.MaxValueBytes = DefaultMaxValueBytes
	}

	return o
}

// BoundaryFromContentType returns the boundary token of a multipart/form-data content type.
func BoundaryFromContentType(ct string) (string, bool) {
	mt, params, err := mime.ParseMediaType(ct)
	if err == nil {
		if mt != "multipart/form-data" {
			return "", false
		}

		b := params["boundary"]

		return b, b != ""
	}

	// lenient fallback for values mime rejects, e.g. unquoted tokens with special characters
	lct := strings.ToLower(ct)
	if !strings.HasPrefix(strings.TrimSpace(lct), "multipart/form-data") {
		return "", false
	}

	idx := strings.Index(lct, "boundary=")
	if idx < 0 {
		return "", false
	}

	b, _, _ := strings.Cut(ct[idx+len("boundary="):], ";")
	b = strings.Trim(strings.TrimSpace(b), `"`)

	return b, b != ""
}

type state int

const (
	stateAwaitingBoundary state = iota
	stateInHeaders
	stateInBody
	stateDone
)

type decoder struct {
	opts  Options
	ring  *bytequeue.Queue
	spool *os.File
	total int64

	delim     []byte // "--" + boundary
	nextDelim []byte // "\r\n--" + boundary

	state      state
	searchFrom int64
	delimFrom  int64
	partStart  int64
	drop       bool
	current    *Part

	parts []*Part
}

// Decode reads the multipart body from r, spooling it into a new file in opts.Dir. Parts that are malformed
// or not terminated before the end of the stream are omitted. The returned form owns the spool file and must
// be cleared by the caller. On error the spool file is removed.
func Decode(ctx context.Context, r io.Reader, boundary string, opts Options) (_ *Form, err error) {
	if boundary == "" {
		return nil, ErrNoBoundary
	}

	opts = opts.withDefaults()

	path := filepath.Join(opts.Dir, "broute-"+uuid.NewString()+".spool")

	spool, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "create spool file")
	}

	form := &Form{
		Boundary: []byte(boundary), SpoolPath: path, Charset: opts.Charset, maxValueBytes: opts.MaxValueBytes,
	}

	defer func() {
		if cerr := spool.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close spool file")
		}

		if err != nil {
			err = errors.CombineErrors(err, form.Clear())
		}
	}()

	dec := &decoder{
		opts:      opts,
		spool:     spool,
		delim:     []byte("--" + boundary),
		nextDelim: []byte("\r\n--" + boundary),
	}
	dec.ring = bytequeue.New(2 * max(opts.ChunkSize, len(dec.delim)+4))

	if err := dec.run(ctx, io.TeeReader(r, spool)); err != nil {
		return nil, err
	}

	form.Parts = dec.parts

	return form, nil
}

func (d *decoder) run(ctx context.Context, r io.Reader) error {
	for d.state != stateDone {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "decode multipart")
		}

		n, rerr := d.ring.ReadStream(r, d.opts.ChunkSize)
		d.total += int64(n)

		for d.step() {
		}

		switch {
		case errors.Is(rerr, io.EOF):
			return nil
		case rerr != nil:
			return errors.Wrap(rerr, "read multipart body")
		}
	}

	return nil
}

// step advances the state machine over the data seen so far. It reports whether progress was made.
func (d *decoder) step() bool {
	switch d.state {
	case stateAwaitingBoundary:
		pos := d.find(d.delim, d.searchFrom)
		if pos < 0 {
			d.searchFrom = max(d.searchFrom, d.total-int64(len(d.delim)-1))
			return false
		}

		after := pos + int64(len(d.delim))
		if d.total < after+2 {
			d.searchFrom = pos // wait for the two bytes that tell a terminator apart

			return false
		}

		if bytes.Equal(d.read(after, after+2), []byte("--")) {
			d.state = stateDone

			return false
		}

		d.state, d.partStart, d.searchFrom, d.delimFrom = stateInHeaders, after, after, after

		return true

	case stateInHeaders:
		end := d.find(blankLine, d.searchFrom)
		next := d.find(d.nextDelim, d.delimFrom)

		if next >= 0 && (end < 0 || next < end) {
			d.state, d.searchFrom = stateAwaitingBoundary, next+2 // headers never ended

			return true
		}

		if end < 0 {
			d.searchFrom = max(d.searchFrom, d.total-int64(len(blankLine)-1))
			d.delimFrom = max(d.delimFrom, d.total-int64(len(d.nextDelim)-1))

			if d.total-d.partStart > int64(d.opts.MaxHeaderBytes) {
				d.state, d.drop, d.current, d.searchFrom = stateInBody, true, nil, d.delimFrom
				return true
			}

			return false
		}

		if end-d.partStart > int64(d.opts.MaxHeaderBytes) {
			d.current, d.drop = nil, true
		} else {
			d.current, d.drop = d.parseHeaders(d.read(d.partStart, end))
		}

		if d.current != nil {
			d.current.Offset = end + int64(len(blankLine))
		}

		d.state, d.searchFrom = stateInBody, end+int64(len(blankLine))

		return true

	case stateInBody:
		pos := d.find(d.nextDelim, d.searchFrom)
		if pos < 0 {
			d.searchFrom = max(d.searchFrom, d.total-int64(len(d.nextDelim)-1))
			return false
		}

		if !d.drop && d.current != nil {
			d.current.Length = pos - d.current.Offset
			d.parts = append(d.parts, d.current)
		}

		d.state, d.current, d.drop, d.searchFrom = stateAwaitingBoundary, nil, false, pos+2

		return true

	default:
		return false
	}
}

// find returns the absolute offset of target at or after from, or -1.
func (d *decoder) find(target []byte, from int64) int64 {
	base := d.total - int64(d.ring.Len())

	idx := d.ring.IndexOf(target, int(max(from-base, 0)), -1)
	if idx < 0 {
		return -1
	}

	return base + int64(idx)
}

// read returns the bytes in [start, end) of the stream, from the ring when they are still held and from the
// spool file otherwise.
func (d *decoder) read(start, end int64) []byte {
	base := d.total - int64(d.ring.Len())
	if start >= base {
		return d.ring.Slice(int(start-base), int(end-start))
	}

	buf := make([]byte, end-start)
	if _, err := d.spool.ReadAt(buf, start); err != nil {
		return nil
	}

	return buf
}

// parseHeaders turns a raw header block into a part. Blocks without a form-data disposition or a name are
// dropped.
func (d *decoder) parseHeaders(block []byte) (*Part, bool) {
	block = bytes.TrimPrefix(block, []byte("\r\n"))
	if !isUTF8(d.opts.Charset) {
		if enc, err := htmlindex.Get(d.opts.Charset); err == nil {
			if decoded, err := enc.NewDecoder().Bytes(block); err == nil {
				block = decoded
			}
		}
	}

	hdr, err := textproto.NewReader(bufio.NewReader(io.MultiReader(
		bytes.NewReader(block), strings.NewReader("\r\n\r\n")))).ReadMIMEHeader()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, true
	}

	part := &Part{
		ContentDisposition: hdr.Get("Content-Disposition"),
		ContentType:        hdr.Get("Content-Type"),
	}

	disp, params, err := mime.ParseMediaType(part.ContentDisposition)
	if err == nil {
		if !strings.EqualFold(disp, "form-data") {
			return nil, true
		}

		part.Name, part.FileName = params["name"], params["filename"]
	} else {
		part.Name = dispositionParam(part.ContentDisposition, "name")
		part.FileName = dispositionParam(part.ContentDisposition, "filename")
	}

	if part.Name == "" {
		return nil, true
	}

	return part, false
}

// dispositionParam scans for key="value" in headers that mime cannot parse.
func dispositionParam(header, key string) string {
	for _, field := range strings.Split(header, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(field), "=")
		if ok && strings.EqualFold(strings.TrimSpace(k), key) {
			return strings.Trim(strings.TrimSpace(v), `"`)
		}
	}

	return ""
}

func isUTF8(charset string) bool {
	cs := strings.ToLower(strings.ReplaceAll(charset, "-", ""))
	return cs == "" || cs == "utf8"
}
