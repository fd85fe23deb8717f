package broute

import (
	"context"
	"fmt"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// HandlerFunc receives the bound arguments in declaration order and returns the result of the request.
type HandlerFunc func(ctx context.Context, args []any) (any, error)

// Param declares a handler argument.
type Param struct {
	Name       string
	Type       reflect.Type
	Default    any
	HasDefault bool
}

// P declares a parameter of type T.
func P[T any](name string) Param {
	return Param{Name: name, Type: reflect.TypeFor[T]()}
}

// Binding couples a handler with its ordered parameter declarations. Result is the declared result type, if
// known.
type Binding struct {
	Handler HandlerFunc
	Params  []Param
	Result  reflect.Type
}

// NewBinding binds h to the given parameters.
func NewBinding(h HandlerFunc, params ...Param) *Binding {
	return &Binding{Handler: h, Params: params}
}

// WithDefault sets the value used for the named parameter when the request provides none or it cannot be
// converted.
func (b *Binding) WithDefault(name string, v any) *Binding {
	_, idx, ok := lo.FindIndexOf(b.Params, func(p Param) bool { return p.Name == name })
	if !ok {
		panic(fmt.Sprintf("broute: no parameter named %q", name))
	}

	b.Params[idx].Default, b.Params[idx].HasDefault = v, true

	return b
}

// Deferred results are awaited before the result is returned.
type Deferred interface {
	Await(ctx context.Context) (any, error)
}

// DeferFunc allows casting a function to a [Deferred].
type DeferFunc func(ctx context.Context) (any, error)

// Await implements [Deferred].
func (f DeferFunc) Await(ctx context.Context) (any, error) { return f(ctx) }

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// Func binds an ordinary function. Parameters of type context.Context receive the request context and take no
// name; every other parameter takes the next name from names. Supported results are (), (T), (error) and
// (T, error). Func panics when fn cannot be bound.
func Func(fn any, names ...string) *Binding {
	fv := reflect.ValueOf(fn)
	ft := fv.Type()

	if ft.Kind() != reflect.Func || ft.IsVariadic() {
		panic(fmt.Sprintf("broute: cannot bind %T, need a non-variadic func", fn))
	}

	params := make([]Param, 0, ft.NumIn())
	for i := range ft.NumIn() {
		in := ft.In(i)
		if in == contextType {
			params = append(params, Param{Type: in})
			continue
		}

		if len(names) < 1 {
			panic(fmt.Sprintf("broute: no name for parameter %d (%v) of %T", i, in, fn))
		}

		params = append(params, Param{Name: names[0], Type: in})
		names = names[1:]
	}

	if len(names) > 0 {
		panic(fmt.Sprintf("broute: %d unused parameter names for %T: %v", len(names), fn, names))
	}

	var result reflect.Type
	switch {
	case ft.NumOut() == 0:
	case ft.NumOut() == 1 && ft.Out(0) == errorType:
	case ft.NumOut() == 1:
		result = ft.Out(0)
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
		result = ft.Out(0)
	default:
		panic(fmt.Sprintf("broute: unsupported results of %T, need (), (T), (error) or (T, error)", fn))
	}

	return &Binding{
		Params: params,
		Result: result,
		Handler: func(_ context.Context, args []any) (any, error) {
			in := make([]reflect.Value, len(args))
			for i, arg := range args {
				in[i] = argValue(arg, ft.In(i))
			}

			return results(fv.Call(in))
		},
	}
}

func argValue(arg any, t reflect.Type) reflect.Value {
	if arg == nil {
		return reflect.Zero(t)
	}

	v := reflect.ValueOf(arg)
	switch {
	case v.Type().AssignableTo(t):
		return v
	case v.Type().ConvertibleTo(t):
		return v.Convert(t)
	default:
		return reflect.Zero(t)
	}
}

func results(out []reflect.Value) (any, error) {
	var err error
	if last := len(out) - 1; last >= 0 && out[last].Type() == errorType {
		if !out[last].IsNil() {
			err, _ = out[last].Interface().(error)
		}

		out = out[:last]
	}

	if len(out) == 0 {
		return nil, err
	}

	return out[0].Interface(), err
}

// invoke calls the handler, turning a panic into an error. A panic with an error value returns that error.
func (b *Binding) invoke(ctx context.Context, args []any) (res any, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		if perr, ok := r.(error); ok {
			res, err = nil, perr
			return
		}

		res, err = nil, errors.Newf("broute: handler panicked: %v", r)
	}()

	return b.Handler(ctx, args)
}
