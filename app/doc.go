// Package app runs a [broute.ServeMux] as a complete service. It wires configuration from the
// environment, structured logging, tracing, AWS clients and the HTTP server lifecycle with fx.
//
// An application embeds [BaseEnvironment] into its own environment struct and registers its routes
// in a routing function whose parameters are injected:
//
//	type Env struct {
//	    app.BaseEnvironment
//	}
//
//	func main() {
//	    app.NewApp[Env](func(m *app.Mux, rt *app.Runtime[Env]) {
//	        m.HandleFunc("GET /hello/{name}", func(ctx context.Context, name string) string {
//	            app.Log(ctx).Info("greeting", zap.String("name", name))
//	            return "hello " + name
//	        }, "name")
//	    }).Run()
//	}
//
// # Environment
//
//   - BR_PORT and BR_SERVICE_NAME are required
//   - BR_READINESS_CHECK_PATH serves the health endpoint, "/health" by default
//   - BR_LOG_LEVEL sets the zap level, "info" by default
//   - BR_OTEL_EXPORTER selects "stdout", "xrayudp" or "none"
//   - BR_SPOOL_DIR, BR_CHUNK_SIZE, BR_BUFFER_LIMIT and BR_MAX_BODY_BYTES configure the mux
//   - BR_REQUEST_TIMEOUT bounds requests and sets the server timeouts
//   - BR_ARCHIVE_BUCKET enables archiving of multipart parts to S3
//
// Handlers obtain a trace-correlated logger with [Log] and app-scoped dependencies through [Runtime].
package app
