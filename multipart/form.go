package multipart

import (
	"crypto/rand"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"golang.org/x/text/encoding/htmlindex"
)

const wipeBlockSize = 32 << 10

// Part is a single decoded part. The body is the byte range [Offset, Offset+Length) of the spool file.
type Part struct {
	ContentDisposition string
	ContentType        string
	Name               string
	FileName           string
	Offset             int64
	Length             int64
}

// IsFile reports whether the part was sent as a file upload.
func (p *Part) IsFile() bool { return p.FileName != "" }

// Form is the result of decoding a multipart body.
type Form struct {
	Boundary  []byte
	SpoolPath string
	Charset   string
	Parts     []*Part

	mu            sync.Mutex
	retained      bool
	cleared       bool
	maxValueBytes int64
}

// Part returns the first part with the given field name, or nil.
func (f *Form) Part(name string) *Part {
	p, _ := lo.Find(f.Parts, func(p *Part) bool { return p.Name == name })
	return p
}

// Open returns a reader over the body of p.
func (f *Form) Open(p *Part) (io.ReadCloser, error) {
	file, err := os.Open(f.SpoolPath)
	if err != nil {
		return nil, errors.Wrap(err, "open spool file")
	}

	return struct {
		io.Reader
		io.Closer
	}{io.NewSectionReader(file, p.Offset, p.Length), file}, nil
}

// ReadPart reads the whole body of p.
func (f *Form) ReadPart(p *Part) ([]byte, error) {
	rc, err := f.Open(p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, p.Length)
	if _, err := io.ReadFull(rc, buf); err != nil {
		return nil, errors.Wrapf(err, "read part %q", p.Name)
	}

	return buf, nil
}

// Value returns the text of the first non-file part with the given name, decoded from the form's charset.
// Parts longer than the form's value limit are not read and count as absent.
func (f *Form) Value(name string) (string, bool) {
	p, ok := lo.Find(f.Parts, func(p *Part) bool { return p.Name == name && !p.IsFile() })
	if !ok || (f.maxValueBytes > 0 && p.Length > f.maxValueBytes) {
		return "", false
	}

	data, err := f.ReadPart(p)
	if err != nil {
		return "", false
	}

	if !isUTF8(f.Charset) {
		if enc, err := htmlindex.Get(f.Charset); err == nil {
			if decoded, err := enc.NewDecoder().Bytes(data); err == nil {
				data = decoded
			}
		}
	}

	return string(data), true
}

// Retain transfers ownership of the spool file to the caller: it is no longer cleared when the request that
// produced the form completes.
func (f *Form) Retain() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retained = true
}

// Retained reports whether Retain was called.
func (f *Form) Retained() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.retained
}

// Clear overwrites the spool file with random bytes and deletes it. Calling it more than once is a no-op.
func (f *Form) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cleared {
		return nil
	}

	if err := wipe(f.SpoolPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "wipe spool file")
	}

	if err := os.Remove(f.SpoolPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "remove spool file")
	}

	f.cleared = true

	return nil
}

func wipe(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	block := make([]byte, wipeBlockSize)
	for left := info.Size(); left > 0; left -= int64(len(block)) {
		chunk := block[:min(left, int64(len(block)))]
		if _, err := rand.Read(chunk); err != nil {
			return err
		}

		if _, err := file.Write(chunk); err != nil {
			return err
		}
	}

	return file.Sync()
}
