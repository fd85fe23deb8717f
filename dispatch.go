package broute

import (
	"context"
	"net/url"
	"reflect"
	"strings"

	"github.com/advdv/broute/multipart"
)

type ctxKey int

const ctxKeyRequest ctxKey = iota

// Request is the transport independent input of a dispatch.
type Request struct {
	Method string
	// Target is the path with an optional query string, e.g. "/users/15?verbose=true".
	Target    string
	Body      string
	BodyBytes []byte
	// Extra parameters take precedence over the query string.
	Extra map[string]string
	Form  *multipart.Form
}

// Result of a dispatch. Type is the declared result type of the handler when known, the dynamic type of Value
// otherwise and nil for handlers without a result.
type Result struct {
	Found bool
	Value any
	Type  reflect.Type
}

// Dispatch routes req to its handler, binds the arguments and invokes it. When nothing matches the result is
// not found and the error is nil. Any error is the handler's own.
func (rt *Router) Dispatch(ctx context.Context, req *Request) (Result, error) {
	path, rawQuery, _ := strings.Cut(req.Target, "?")

	b, route, ok := rt.lookup(req.Method, path)
	if !ok {
		return Result{}, nil
	}

	args := rt.bind(ctx, b, req, route, mergeQuery(rawQuery, req.Extra))

	val, err := b.invoke(ctx, args)
	if err != nil {
		return Result{Found: true}, err
	}

	res := Result{Found: true, Type: b.Result}
	if d, ok := val.(Deferred); ok {
		if val, err = d.Await(ctx); err != nil {
			return Result{Found: true}, err
		}

		res.Type = nil
	}

	res.Value = val
	if res.Type == nil && val != nil {
		res.Type = reflect.TypeOf(val)
	}

	return res, nil
}

// mergeQuery decodes the query string, the last value of a key wins, and lays extra over it.
func mergeQuery(rawQuery string, extra map[string]string) map[string]string {
	vals, _ := url.ParseQuery(rawQuery) // keeps what parsed before an error

	merged := make(map[string]string, len(vals)+len(extra))
	for k, v := range vals {
		merged[k] = v[len(v)-1]
	}

	for k, v := range extra {
		merged[k] = v
	}

	return merged
}
