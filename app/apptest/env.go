package apptest

import (
	"strconv"
	"testing"
)

// Env provides a chainable builder for setting [app.BaseEnvironment] env vars
// via t.Setenv. Create one with [SetBaseEnv].
type Env struct {
	t testing.TB
}

// SetBaseEnv sets all [app.BaseEnvironment] env vars to sensible test defaults.
// Port is required because each test must use a unique port to avoid collisions.
//
// Defaults:
//   - BR_SERVICE_NAME: "test"
//   - BR_READINESS_CHECK_PATH: "/health"
//   - BR_OTEL_EXPORTER: "none"
//   - BR_SPOOL_DIR: a temporary directory removed with the test
//   - BR_REQUEST_TIMEOUT: "30s"
//   - BR_ARCHIVE_BUCKET: "" (archiving disabled)
//   - AWS_REGION: "us-east-1"
//   - AWS_ACCESS_KEY_ID: "test"
//   - AWS_SECRET_ACCESS_KEY: "test"
//
// Use the returned [Env] to override individual values:
//
//	apptest.SetBaseEnv(t, 18085).ServiceName("svc").ArchiveBucket("uploads")
func SetBaseEnv(t testing.TB, port int) *Env {
	t.Helper()
	t.Setenv("BR_PORT", strconv.Itoa(port))
	t.Setenv("BR_SERVICE_NAME", "test")
	t.Setenv("BR_READINESS_CHECK_PATH", "/health")
	t.Setenv("BR_OTEL_EXPORTER", "none")
	t.Setenv("BR_SPOOL_DIR", t.TempDir())
	t.Setenv("BR_REQUEST_TIMEOUT", "30s")
	t.Setenv("BR_ARCHIVE_BUCKET", "")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	return &Env{t: t}
}

// ServiceName overrides BR_SERVICE_NAME.
func (e *Env) ServiceName(name string) *Env {
	e.t.Helper()
	e.t.Setenv("BR_SERVICE_NAME", name)
	return e
}

// ReadinessCheckPath overrides BR_READINESS_CHECK_PATH.
func (e *Env) ReadinessCheckPath(path string) *Env {
	e.t.Helper()
	e.t.Setenv("BR_READINESS_CHECK_PATH", path)
	return e
}

// SpoolDir overrides BR_SPOOL_DIR.
func (e *Env) SpoolDir(dir string) *Env {
	e.t.Helper()
	e.t.Setenv("BR_SPOOL_DIR", dir)
	return e
}

// ChunkSize overrides BR_CHUNK_SIZE.
func (e *Env) ChunkSize(n int) *Env {
	e.t.Helper()
	e.t.Setenv("BR_CHUNK_SIZE", strconv.Itoa(n))
	return e
}

// RequestTimeout overrides BR_REQUEST_TIMEOUT.
func (e *Env) RequestTimeout(d string) *Env {
	e.t.Helper()
	e.t.Setenv("BR_REQUEST_TIMEOUT", d)
	return e
}

// ArchiveBucket overrides BR_ARCHIVE_BUCKET.
func (e *Env) ArchiveBucket(bucket string) *Env {
	e.t.Helper()
	e.t.Setenv("BR_ARCHIVE_BUCKET", bucket)
	return e
}
