package broute

import (
	"context"
	"net/http"
	"strings"

	"github.com/advdv/broute/argtype"
	"github.com/advdv/broute/multipart"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// MuxConfig configures a [ServeMux]. Zero values select the defaults.
type MuxConfig struct {
	// BufLimit bounds the buffered response, -1 disables the limit.
	BufLimit int
	// MaxBodyBytes bounds the request body, zero disables the limit.
	MaxBodyBytes int64
	Logger       Logger
	Registry     *argtype.Registry
	Encoder      ResultEncoder
	// Multipart configures decoding of multipart/form-data bodies.
	Multipart multipart.Options
}

// ServeMux is an HTTP multiplexer that dispatches requests to bound handlers through a route trie. Standard
// library and bare handlers can be registered next to it for paths that need full control of the response.
type ServeMux struct {
	logs         Logger
	bufLimit     int
	maxBodyBytes int64
	reverser     *Reverser
	router       *Router
	encoder      ResultEncoder
	decode       multipart.Options
	mux          *http.ServeMux
	middlewares  struct {
		captured bool
		buffered []Middleware
	}
}

// NewServeMux creates a new ServeMux with default settings.
func NewServeMux() *ServeMux {
	return NewServeMuxWith(MuxConfig{BufLimit: -1})
}

// NewServeMuxWith creates a ServeMux with custom settings.
func NewServeMuxWith(cfg MuxConfig) *ServeMux {
	if cfg.Logger == nil {
		cfg.Logger = NewZapLogger(zap.L())
	}

	if cfg.Registry == nil {
		cfg.Registry = argtype.New()
	}

	if cfg.Encoder == nil {
		cfg.Encoder = DefaultEncoder
	}

	return &ServeMux{
		logs:         cfg.Logger,
		bufLimit:     cfg.BufLimit,
		maxBodyBytes: cfg.MaxBodyBytes,
		reverser:     NewReverser(cfg.Registry),
		router:       NewRouter(cfg.Registry),
		encoder:      cfg.Encoder,
		decode:       cfg.Multipart,
		mux:          http.NewServeMux(),
	}
}

// Router returns the route trie the mux dispatches to.
func (m *ServeMux) Router() *Router { return m.router }

// Reverse returns the url based on the name and parameter values.
func (m *ServeMux) Reverse(name string, vals ...string) (string, error) {
	return m.reverser.Reverse(name, vals...)
}

// Use allows providing of middleware.
func (m *ServeMux) Use(mw ...Middleware) {
	m.ensureNoUseAfterHandle()
	m.middlewares.buffered = append(m.middlewares.buffered, mw...)
}

// Handle binds b to a pattern such as "GET /users/{id:int}". Without a method the binding serves any method.
// The optional name allows reversing the route. Handle panics on invalid patterns.
func (m *ServeMux) Handle(pattern string, b *Binding, name ...string) {
	m.capture()

	method, tmpl := splitMethodPattern(pattern)
	if err := m.router.AddRoute(method, tmpl, b); err != nil {
		panic("broute: " + err.Error())
	}

	if len(name) > 0 {
		m.reverser.Named(name[0], tmpl)
	}
}

// HandleFunc binds the function fn, see [Func] for the supported signatures.
func (m *ServeMux) HandleFunc(pattern string, fn any, params ...string) {
	m.Handle(pattern, Func(fn, params...))
}

// HandleStd registers a standard library [http.Handler] for a standard library pattern. Middleware registered
// via [ServeMux.Use] is applied.
func (m *ServeMux) HandleStd(pattern string, handler http.Handler, name ...string) {
	m.HandleBare(pattern, FromStd(handler), name...)
}

// HandleBare registers a bare handler for a standard library pattern. These patterns take precedence over
// the bound routes.
func (m *ServeMux) HandleBare(pattern string, handler BareHandler, name ...string) {
	m.capture()

	if len(name) > 0 {
		_, path := splitMethodPattern(pattern)
		m.reverser.Named(name[0], path)
	}

	m.mux.Handle(pattern, ToStd(Wrap(handler, m.middlewares.buffered...), m.bufLimit, m.logs))
}

// ServeHTTP makes the server mux implement the http.Handler interface.
func (m *ServeMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mux.ServeHTTP(w, r)
}

// serveRoute reads the request, dispatches it to the route trie and encodes the result.
func (m *ServeMux) serveRoute(w ResponseWriter, r *http.Request) error {
	req, err := m.readRequest(w, r)
	if errors.Is(err, errAborted) {
		m.logs.LogAbortedRequest(err)
		return nil
	} else if err != nil {
		return err
	}

	defer m.releaseForm(req.Form)

	ctx := context.WithValue(r.Context(), ctxKeyRequest, r)

	res, err := m.router.Dispatch(ctx, req)
	if err != nil {
		return err
	}

	if !res.Found {
		return Errorf(CodeNotFound, "no route for %s %s", r.Method, r.URL.Path)
	}

	return m.encoder.EncodeResult(w, r, res)
}

// capture freezes the middleware and installs the route dispatcher as the catch-all of the base mux.
func (m *ServeMux) capture() {
	if m.middlewares.captured {
		return
	}

	m.middlewares.captured = true
	m.mux.Handle("/", ToStd(Wrap(BareHandlerFunc(m.serveRoute), m.middlewares.buffered...), m.bufLimit, m.logs))
}

func (m *ServeMux) ensureNoUseAfterHandle() {
	if m.middlewares.captured {
		panic("broute: cannot call Use() after calling Handle")
	}
}

// splitMethodPattern splits "GET /path" into its method and path. The method is empty when absent.
func splitMethodPattern(pattern string) (method, path string) {
	pattern = strings.TrimSpace(pattern)
	if method, path, ok := strings.Cut(pattern, " "); ok && !strings.HasPrefix(method, "/") {
		return method, strings.TrimSpace(path)
	}

	return "", pattern
}
