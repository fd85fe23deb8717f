package broute

import (
	"net/http"
	"net/url"
	"strings"
)

// MountStd mounts a standard library [http.Handler], e.g. a file server, on a sub-path pattern. The mounted
// handler receives requests with the mount prefix stripped from the path. Middleware registered via
// [ServeMux.Use] is applied and sees the original path.
func (m *ServeMux) MountStd(pattern string, handler http.Handler) {
	m.MountBare(pattern, FromStd(handler))
}

// MountBare mounts a BareHandler on a sub-path pattern. The mounted handler receives
// requests with the mount prefix stripped from the path. Middleware registered via Use()
// sees the original path; the strip happens after middleware.
func (m *ServeMux) MountBare(pattern string, handler BareHandler) {
	m.capture()

	method, path := splitMethodPattern(pattern)
	path = "/" + strings.Trim(path, "/")
	if path == "/" {
		panic("broute: cannot mount on the root path")
	}

	if method != "" {
		method += " "
	}

	stdHandler := ToStd(Wrap(stripPrefixBare(path, handler), m.middlewares.buffered...), m.bufLimit, m.logs)

	m.mux.Handle(method+path, stdHandler)
	m.mux.Handle(method+path+"/", stdHandler)
}

func stripPrefixBare(prefix string, handler BareHandler) BareHandler {
	return BareHandlerFunc(func(w ResponseWriter, r *http.Request) error {
		p := strings.TrimPrefix(r.URL.Path, prefix)
		if p == "" {
			p = "/"
		}

		rp := ""
		if r.URL.RawPath != "" {
			rp = strings.TrimPrefix(r.URL.RawPath, prefix)
			if rp == "" {
				rp = "/"
			}
		}

		r2 := new(http.Request)
		*r2 = *r
		r2.URL = new(url.URL)
		*r2.URL = *r.URL
		r2.URL.Path = p
		r2.URL.RawPath = rp

		return handler.ServeBareHTTP(w, r2)
	})
}
