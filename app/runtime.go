package app

import (
	"context"

	"github.com/advdv/broute/multipart"
)

// Runtime provides access to app-scoped dependencies.
// Inject this into handler constructors via fx instead of pulling from context.
//
// Example:
//
//	type Handlers struct {
//	    rt *app.Runtime[Env]
//	}
//
//	func NewHandlers(rt *app.Runtime[Env]) *Handlers {
//	    return &Handlers{rt: rt}
//	}
//
//	func (h *Handlers) Upload(ctx context.Context, form *multipart.Form, doc *multipart.Part) (string, error) {
//	    return h.rt.Archive(ctx, form, doc)
//	}
type Runtime[E Environment] struct {
	env      E
	mux      *Mux
	archiver Archiver
}

// RuntimeParams holds optional dependencies for Runtime.
type RuntimeParams struct {
	Archiver Archiver
}

// NewRuntime creates a new Runtime with the given dependencies.
func NewRuntime[E Environment](env E, mux *Mux, params RuntimeParams) *Runtime[E] {
	archiver := params.Archiver
	if archiver == nil {
		archiver = disabledArchiver{}
	}

	return &Runtime[E]{
		env:      env,
		mux:      mux,
		archiver: archiver,
	}
}

// Env returns the environment configuration.
func (r *Runtime[E]) Env() E {
	return r.env
}

// Reverse returns the URL for a named route with the given parameters.
// The route must have been registered with a name using Handle.
func (r *Runtime[E]) Reverse(name string, params ...string) (string, error) {
	return r.mux.Reverse(name, params...)
}

// Archive stores part of form with the configured [Archiver]. It returns [ErrArchiveDisabled] when no
// archive bucket is configured.
func (r *Runtime[E]) Archive(ctx context.Context, form *multipart.Form, part *multipart.Part) (string, error) {
	return r.archiver.Archive(ctx, form, part)
}
