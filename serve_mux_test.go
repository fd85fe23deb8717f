package broute_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/advdv/broute"
	bmultipart "github.com/advdv/broute/multipart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func middleware1(next broute.BareHandler) broute.BareHandler {
	return broute.BareHandlerFunc(func(w broute.ResponseWriter, r *http.Request) error {
		return next.ServeBareHTTP(w, r.WithContext(context.WithValue(r.Context(), "foo", "bar"))) //nolint:staticcheck
	})
}

func TestServeMux(t *testing.T) {
	mux := broute.NewServeMux()
	mux.Use(middleware1)
	mux.Handle("GET /blog/{slug}", broute.Func(func(ctx context.Context, slug string) string {
		return fmt.Sprintf("hello %v, %s", ctx.Value("foo"), slug)
	}, "slug"), "blog_post")

	loc, err := mux.Reverse("blog_post", "foo")
	require.NoError(t, err)
	require.Equal(t, `/blog/foo`, loc)

	rec := serve(mux, http.MethodGet, "/blog/first-post")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, `hello bar, first-post`, rec.Body.String())

	rec = serve(mux, http.MethodGet, "/blog/111")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeMuxNotFound(t *testing.T) {
	mux := broute.NewServeMux()
	mux.HandleFunc("GET /{num:int}", func(num int) int { return num * 2 }, "num")

	rec := serve(mux, http.MethodGet, "/15")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "30", rec.Body.String())

	rec = serve(mux, http.MethodGet, "/abc")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Not Found: no route for GET /abc\n", rec.Body.String())

	rec = serve(mux, http.MethodDelete, "/15")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

type item struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func TestServeMuxBodies(t *testing.T) {
	logs := broute.NewTestLogger(t)
	mux := broute.NewServeMuxWith(broute.MuxConfig{BufLimit: -1, Logger: logs, MaxBodyBytes: 1 << 10})

	mux.HandleFunc("POST /items", func(it item) item { it.ID = 1; return it }, "item")
	mux.HandleFunc("POST /items/{id:int}/rename", func(id int, name string) item {
		return item{ID: id, Name: name}
	}, "id", "name")
	mux.HandleFunc("POST /items/{id:int}/reprice", func(id int, price float64) item {
		return item{ID: id, Price: price}
	}, "id", "price")
	mux.HandleFunc("PUT /raw", func(b []byte) []byte { return bytes.ToUpper(b) }, "body")
	mux.HandleFunc("DELETE /items/{id:int}", func(int) {}, "id")

	t.Run("should decode a json body into a struct", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"name":"pen","price":1.5}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		require.JSONEq(t, `{"id":1,"name":"pen","price":1.5}`, rec.Body.String())
	})

	t.Run("should bind fields of a json object body the parameter type cannot take whole", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/items/7/reprice", strings.NewReader(`{"price":2.5}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.JSONEq(t, `{"id":7,"name":"","price":2.5}`, rec.Body.String())
	})

	t.Run("should bind the whole text body to string parameters", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/items/7/rename", strings.NewReader(`pencil`))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.JSONEq(t, `{"id":7,"name":"pencil","price":0}`, rec.Body.String())
	})

	t.Run("should bind url encoded forms", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/items/8/rename?name=query", strings.NewReader("name=a&name=form"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.JSONEq(t, `{"id":8,"name":"form","price":0}`, rec.Body.String())
	})

	t.Run("should pass raw bytes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/raw", strings.NewReader("abc"))
		req.Header.Set("Content-Type", "application/octet-stream")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
		require.Equal(t, "ABC", rec.Body.String())
	})

	t.Run("should answer handlers without a result with no content", func(t *testing.T) {
		rec := serve(mux, http.MethodDelete, "/items/1")
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Empty(t, rec.Body.String())
	})

	t.Run("should reject bodies that are too large", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/raw", strings.NewReader(strings.Repeat("a", 2<<10)))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("should treat an aborted body read as benign", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/raw", iotest.ErrReader(io.ErrUnexpectedEOF))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, int64(1), logs.NumLogAbortedRequest)
		require.Equal(t, int64(0), logs.NumLogUnhandledServeError)
	})
}

func TestServeMuxHandlerErrors(t *testing.T) {
	logs := broute.NewTestLogger(t)
	mux := broute.NewServeMuxWith(broute.MuxConfig{BufLimit: -1, Logger: logs})

	mux.HandleFunc("GET /users/{id:int}", func(id int) (string, error) {
		if id == 0 {
			return "", broute.Errorf(broute.CodeNotFound, "no user %d", id)
		}

		return "", fmt.Errorf("database down")
	}, "id")

	rec := serve(mux, http.MethodGet, "/users/0")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Not Found: no user 0\n", rec.Body.String())

	rec = serve(mux, http.MethodGet, "/users/1")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, int64(1), logs.NumLogUnhandledServeError)
}

func newMultipartRequest(t *testing.T, target string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	for name, content := range files {
		fw, err := mw.CreateFormFile(name, name+".txt")
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func TestServeMuxMultipart(t *testing.T) {
	dir := t.TempDir()
	mux := broute.NewServeMuxWith(broute.MuxConfig{
		BufLimit:  -1,
		Logger:    broute.NewTestLogger(t),
		Multipart: bmultipart.Options{Dir: dir, ChunkSize: 7},
	})

	var retained *bmultipart.Form
	mux.HandleFunc("POST /upload", func(form *bmultipart.Form, doc *bmultipart.Part, title string, keep bool) (string, error) {
		data, err := form.ReadPart(doc)
		if err != nil {
			return "", err
		}

		if keep {
			form.Retain()
			retained = form
		}

		return title + ":" + string(data), nil
	}, "form", "doc", "title", "keep")

	t.Run("should clear the spool file after the request", func(t *testing.T) {
		req := newMultipartRequest(t, "/upload", map[string]string{"title": "report"},
			map[string]string{"doc": "contents of the document"})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "report:contents of the document", rec.Body.String())

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("should keep retained spool files", func(t *testing.T) {
		req := newMultipartRequest(t, "/upload?keep=true", map[string]string{"title": "kept"},
			map[string]string{"doc": "more"})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, "kept:more", rec.Body.String())
		require.NotNil(t, retained)

		_, err := os.Stat(retained.SpoolPath)
		require.NoError(t, err)
		require.NoError(t, retained.Clear())
	})

	t.Run("should reject multipart bodies without a boundary", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("x"))
		req.Header.Set("Content-Type", "multipart/form-data")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleStd(t *testing.T) {
	mux := broute.NewServeMux()
	mux.Use(middleware1)
	mux.HandleStd("GET /std", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "std:%s,val:%v", r.URL.Path, r.Context().Value("foo")) //nolint:staticcheck
	}))
	mux.HandleStd("GET /teapot", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "custom error", http.StatusTeapot)
	}))
	mux.HandleStd("GET /metrics", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "metrics")
	}), "metrics")

	rec := serve(mux, http.MethodGet, "/std")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "std:/std,val:bar", rec.Body.String())

	rec = serve(mux, http.MethodGet, "/teapot")
	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "custom error\n", rec.Body.String())

	loc, err := mux.Reverse("metrics")
	require.NoError(t, err)
	require.Equal(t, "/metrics", loc)
	require.Equal(t, "metrics", serve(mux, http.MethodGet, "/metrics").Body.String())
}

func TestUseAfterHandle(t *testing.T) {
	mux := broute.NewServeMux()
	mux.HandleFunc("GET /blog/{slug}", func(slug string) string { return slug }, "slug")
	require.PanicsWithValue(t, "broute: cannot call Use() after calling Handle", func() {
		mux.Use(middleware1)
	})
}

func TestHandleInvalidPattern(t *testing.T) {
	mux := broute.NewServeMux()
	require.Panics(t, func() {
		mux.HandleFunc("GET /x/{id:decimal}", func(id string) string { return id }, "id")
	})
	require.PanicsWithValue(t, `broute: cannot bind string, need a non-variadic func`, func() {
		mux.HandleFunc("GET /x", "nope")
	})
}
