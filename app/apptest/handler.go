package apptest

import (
	"net/http"
	"net/http/httptest"

	"github.com/advdv/broute"
)

// CallHandler invokes a [broute.BareHandler] with a buffered response writer and
// returns the recorded response. It handles the boilerplate of wrapping
// [httptest.ResponseRecorder] in a [broute.ResponseWriter] and flushing the
// buffer afterward.
func CallHandler(handler broute.BareHandler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	w := broute.NewResponseWriter(rec, -1)

	if err := handler.ServeBareHTTP(w, req); err != nil {
		panic("apptest: handler returned error: " + err.Error())
	}

	if err := w.FlushBuffer(); err != nil {
		panic("apptest: FlushBuffer failed: " + err.Error())
	}

	return rec
}
