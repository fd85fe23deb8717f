package broute

import (
	"net/http"
)

// ResponseWriter implements the http.ResponseWriter but the underlying bytes are buffered. This allows
// middleware to reset the writer and formulate a completely new response.
type ResponseWriter interface {
	http.ResponseWriter
	Reset()
	Free()
	FlushBuffer() error
}

// BareHandler serves HTTP requests with a buffered response and may return an error. Middleware, mounted
// handlers and the route dispatcher are all bare handlers.
type BareHandler interface {
	ServeBareHTTP(w ResponseWriter, r *http.Request) error
}

// BareHandlerFunc allow casting a function to an implementation of [BareHandler].
type BareHandlerFunc func(ResponseWriter, *http.Request) error

// ServeBareHTTP implements the [BareHandler] interface.
func (f BareHandlerFunc) ServeBareHTTP(w ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// FromStd turns a standard library handler into a bare handler that never returns an error.
func FromStd(h http.Handler) BareHandler {
	return BareHandlerFunc(func(w ResponseWriter, r *http.Request) error {
		h.ServeHTTP(w, r)
		return nil
	})
}

// ToStd converts a bare handler into a standard library http.Handler. The implementation
// creates a buffered response writer and flushes it implicitly after serving the request.
// Errors that carry a [Code] are rendered with that status, any other error is logged and
// rendered as a 500.
func ToStd(h BareHandler, bufLimit int, logs Logger) http.Handler {
	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		bresp := newBufferResponse(resp, bufLimit)
		defer bresp.Free()

		if err := h.ServeBareHTTP(bresp, req); err != nil {
			renderError(bresp, err, logs)
		}

		if err := bresp.FlushBuffer(); err != nil {
			logs.LogImplicitFlushError(err)
		}
	})
}

func renderError(w *ResponseBuffer, err error, logs Logger) {
	code := CodeOf(err)
	if code == CodeUnknown || w.flushed {
		logs.LogUnhandledServeError(err)
	}

	if w.flushed {
		return // part of the response reached the client already
	}

	w.Reset()

	if code == CodeUnknown {
		// if all fails we don't want the client to end up with a white screen so
		// we render a 500 error with the standard text.
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	http.Error(w, err.Error(), int(code))
}
