package broute

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/advdv/broute/multipart"
	"github.com/cockroachdb/errors"
)

// readRequest classifies and reads the body of r. Multipart bodies are decoded into a spooled form, url
// encoded forms become extra parameters and text-like bodies are also provided as text.
func (m *ServeMux) readRequest(w ResponseWriter, r *http.Request) (*Request, error) {
	req := &Request{Method: r.Method, Target: r.URL.EscapedPath()}
	if r.URL.RawQuery != "" {
		req.Target += "?" + r.URL.RawQuery
	}

	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}

	body := io.Reader(r.Body)
	if m.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, m.maxBodyBytes)
	}

	ct := r.Header.Get("Content-Type")
	mt, params, _ := mime.ParseMediaType(ct)

	switch {
	case mt == "multipart/form-data" || strings.HasPrefix(strings.ToLower(ct), "multipart/form-data"):
		boundary, ok := params["boundary"]
		if !ok {
			boundary, ok = multipart.BoundaryFromContentType(ct)
		}

		if !ok {
			return nil, NewError(CodeBadRequest, multipart.ErrNoBoundary)
		}

		opts := m.decode
		if cs := params["charset"]; cs != "" {
			opts.Charset = cs
		}

		form, err := multipart.Decode(r.Context(), body, boundary, opts)
		if err != nil {
			return nil, bodyError(err)
		}

		req.Form = form

	case mt == "application/x-www-form-urlencoded":
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, bodyError(err)
		}

		vals, _ := url.ParseQuery(string(data))
		req.BodyBytes, req.Extra = data, make(map[string]string, len(vals))
		for k, v := range vals {
			req.Extra[k] = v[len(v)-1]
		}

	default:
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, bodyError(err)
		}

		req.BodyBytes = data
		if isTextual(mt) {
			req.Body = string(data)
		}
	}

	return req, nil
}

// releaseForm clears the spool file of a form unless a handler retained it.
func (m *ServeMux) releaseForm(form *multipart.Form) {
	if form == nil || form.Retained() {
		return
	}

	if err := form.Clear(); err != nil {
		m.logs.LogSpoolCleanupError(err)
	}
}

// errAborted marks body read errors caused by the client going away.
var errAborted = errors.New("request aborted")

func bodyError(err error) error {
	var mbe *http.MaxBytesError

	switch {
	case errors.As(err, &mbe):
		return NewError(CodeRequestEntityTooLarge, err)
	case errors.Is(err, context.Canceled), errors.Is(err, io.ErrUnexpectedEOF):
		return errors.Mark(err, errAborted)
	default:
		return NewError(CodeBadRequest, err)
	}
}

func isTextual(mt string) bool {
	switch {
	case mt == "", strings.HasPrefix(mt, "text/"):
		return true
	case mt == "application/json", strings.HasSuffix(mt, "+json"):
		return true
	case mt == "application/xml", strings.HasSuffix(mt, "+xml"):
		return true
	default:
		return false
	}
}
