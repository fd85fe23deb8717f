package broute

import (
	"encoding"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
)

// ResultEncoder writes the result of a dispatched handler to the response.
type ResultEncoder interface {
	EncodeResult(w ResponseWriter, r *http.Request, res Result) error
}

// ResultEncoderFunc allows casting a function to a [ResultEncoder].
type ResultEncoderFunc func(w ResponseWriter, r *http.Request, res Result) error

// EncodeResult implements [ResultEncoder].
func (f ResultEncoderFunc) EncodeResult(w ResponseWriter, r *http.Request, res Result) error {
	return f(w, r, res)
}

// DefaultEncoder renders nil as 204, strings, numbers, booleans and text marshalers as plain text, byte
// slices and readers as an octet stream and anything else as JSON.
var DefaultEncoder ResultEncoder = ResultEncoderFunc(encodeDefault)

func encodeDefault(w ResponseWriter, _ *http.Request, res Result) error {
	switch v := res.Value.(type) {
	case nil:
		w.WriteHeader(http.StatusNoContent)
		return nil
	case []byte:
		w.Header().Set("Content-Type", "application/octet-stream")
		_, err := w.Write(v)

		return errors.Wrap(err, "write bytes")
	case io.Reader:
		if c, ok := v.(io.Closer); ok {
			defer c.Close()
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		_, err := io.Copy(w, v)

		return errors.Wrap(err, "copy reader")
	case string:
		return writeText(w, v)
	case encoding.TextMarshaler:
		text, err := v.MarshalText()
		if err != nil {
			return errors.Wrap(err, "marshal text")
		}

		return writeText(w, string(text))
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return writeText(w, fmt.Sprint(v))
	default:
		w.Header().Set("Content-Type", "application/json")

		return errors.Wrap(json.NewEncoder(w).Encode(v), "encode json")
	}
}

func writeText(w ResponseWriter, s string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := io.WriteString(w, s)

	return errors.Wrap(err, "write text")
}
