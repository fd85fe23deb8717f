// Package broute is an embeddable HTTP request-processing core. It matches request paths against typed route
// templates, binds handler arguments from the path, the query string and the body, invokes the handler and
// hands back a typed result for serialization.
//
// # Routes
//
// Templates consist of literal segments and typed parameter segments:
//
//	mux := broute.NewServeMux()
//	mux.HandleFunc("GET /users/{id:int}", func(ctx context.Context, id int, verbose bool) (User, error) {
//	    return users.Get(ctx, id, verbose)
//	}, "id", "verbose")
//
// Parameter types are resolved by alias through an [argtype.Registry]. A parameter without a type is a
// string. Routes are kept in a trie; at every depth a literal segment wins over a parameter, and among
// parameters the type with the highest priority that parses the segment is taken. There is no backtracking.
//
// # Argument binding
//
// Arguments are resolved in declaration order:
//
//   - []byte receives the raw body and context.Context the request context
//   - *multipart.Form receives the decoded form, *multipart.Part the part with the parameter's name
//   - *http.Request receives the originating request
//   - a value extracted from the path with the parameter's name is used when it fits the declared type,
//     otherwise its raw text is converted
//   - otherwise the query string and url encoded form, a text part of a multipart form, a field of a
//     JSON object body or, at last, the whole body text is converted
//
// Conversion tries the registry, then JSON, then falls back to the default of the parameter. Binding never
// fails the request.
//
// # Multipart bodies
//
// Multipart bodies are decoded in a single streaming pass into a spool file, see the multipart package. The
// spool file is overwritten and deleted when the request completes unless the handler calls
// [multipart.Form.Retain], which makes it responsible for calling [multipart.Form.Clear].
//
// # Responses and errors
//
// Responses are buffered in a [ResponseWriter] so they can be reset and replaced when an error occurs. A
// handler result is rendered by the [ResultEncoder] of the mux. Errors created with [NewError] or [Errorf]
// are rendered with their [Code], other errors are logged and rendered as 500 Internal Server Error.
// Requests that match no route are answered with 404.
//
// # Middleware, mounting and reversing
//
// [Middleware] wraps the [BareHandler] that serves a request and must be registered with [ServeMux.Use]
// before any route. Standard library handlers can be registered with [ServeMux.HandleStd] or mounted on a
// prefix with [ServeMux.MountStd]. Named routes are turned back into URLs with [ServeMux.Reverse].
package broute
