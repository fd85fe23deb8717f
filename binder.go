package broute

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"github.com/advdv/broute/multipart"
	"github.com/tidwall/gjson"
)

var (
	bytesType   = reflect.TypeFor[[]byte]()
	formType    = reflect.TypeFor[*multipart.Form]()
	partType    = reflect.TypeFor[*multipart.Part]()
	requestType = reflect.TypeFor[*http.Request]()
)

// bind resolves the arguments of b from the request. It never fails: values that are missing or cannot be
// converted take the parameter default or the zero value.
func (rt *Router) bind(ctx context.Context, b *Binding, req *Request, route map[string]routeValue,
	query map[string]string,
) []any {
	args := make([]any, len(b.Params))
	for i, p := range b.Params {
		args[i] = rt.bindParam(ctx, p, req, route, query)
	}

	return args
}

func (rt *Router) bindParam(ctx context.Context, p Param, req *Request, route map[string]routeValue,
	query map[string]string,
) any {
	switch p.Type {
	case bytesType:
		return req.BodyBytes
	case contextType:
		return ctx
	case formType:
		return req.Form
	case partType:
		if req.Form == nil {
			return (*multipart.Part)(nil)
		}

		return req.Form.Part(p.Name)
	case requestType:
		r, _ := ctx.Value(ctxKeyRequest).(*http.Request)
		return r
	}

	if rv, ok := route[p.Name]; ok {
		if isAny(p.Type) || reflect.TypeOf(rv.value).AssignableTo(p.Type) {
			return rv.value
		}

		if v, ok := rt.convert(p, rv.raw); ok {
			return v
		}

		return fallback(p)
	}

	raw, fromBody, ok := lookupRaw(p.Name, req, query)
	if !ok {
		return fallback(p)
	}

	if v, ok := rt.convert(p, raw); ok {
		return v
	}

	// a body the declared type cannot take may still be an object carrying the parameter as a field
	if fromBody {
		if field, ok := jsonField(raw, p.Name); ok {
			if v, ok := rt.convert(p, field); ok {
				return v
			}
		}
	}

	return fallback(p)
}

// lookupRaw finds the raw text for a parameter: the query and extra parameters first, then a text part of the
// form and finally the whole body. Empty values count as absent.
func lookupRaw(name string, req *Request, query map[string]string) (raw string, fromBody, ok bool) {
	if v := query[name]; v != "" {
		return v, false, true
	}

	if req.Form != nil {
		if v, ok := req.Form.Value(name); ok && v != "" {
			return v, false, true
		}
	}

	if req.Body != "" {
		return req.Body, true, true
	}

	return "", false, false
}

func jsonField(body, name string) (string, bool) {
	if !strings.HasPrefix(strings.TrimSpace(body), "{") || !gjson.Valid(body) {
		return "", false
	}

	var (
		raw   string
		found bool
	)

	gjson.Parse(body).ForEach(func(key, value gjson.Result) bool {
		if key.String() != name {
			return true
		}

		raw, found = value.Raw, true
		if value.Type == gjson.String {
			raw = value.String()
		}

		return false
	})

	return raw, found
}

// convert parses raw as the declared type: with the registry, then as JSON.
func (rt *Router) convert(p Param, raw string) (any, bool) {
	if isAny(p.Type) {
		v, _, ok := rt.reg.TryParse(raw)
		return v, ok
	}

	if v, err := rt.reg.ParseAs(p.Type, raw); err == nil {
		return v, true
	}

	ptr := reflect.New(p.Type)
	if err := json.Unmarshal([]byte(raw), ptr.Interface()); err == nil {
		return ptr.Elem().Interface(), true
	}

	return nil, false
}

func fallback(p Param) any {
	if p.HasDefault {
		return p.Default
	}

	if p.Type == nil {
		return nil
	}

	return reflect.Zero(p.Type).Interface()
}

func isAny(t reflect.Type) bool {
	return t == nil || (t.Kind() == reflect.Interface && t.NumMethod() == 0)
}
