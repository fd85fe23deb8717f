package broute

import (
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

// Logger can be implemented to get informed about important states.
type Logger interface {
	LogUnhandledServeError(err error)
	LogImplicitFlushError(err error)
	LogSpoolCleanupError(err error)
	LogAbortedRequest(err error)
}

type zapLogger struct{ *zap.Logger }

func (l zapLogger) LogUnhandledServeError(err error) {
	l.Logger.Error("unhandled server error", zap.Error(err))
}

func (l zapLogger) LogImplicitFlushError(err error) {
	l.Logger.Error("error while flushing implicitly", zap.Error(err))
}

func (l zapLogger) LogSpoolCleanupError(err error) {
	l.Logger.Warn("failed to clear multipart spool file", zap.Error(err))
}

func (l zapLogger) LogAbortedRequest(err error) {
	l.Logger.Debug("request aborted while reading the body", zap.Error(err))
}

// NewZapLogger reports events to l, named "broute".
func NewZapLogger(l *zap.Logger) Logger {
	return zapLogger{l.Named("broute")}
}

// TestLogger counts events and reports them to the test log.
type TestLogger struct {
	tb testing.TB

	NumLogUnhandledServeError int64
	NumLogImplicitFlushError  int64
	NumLogSpoolCleanupError   int64
	NumLogAbortedRequest      int64
}

func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogUnhandledServeError(err error) {
	atomic.AddInt64(&l.NumLogUnhandledServeError, 1)
	l.tb.Logf("broute: unhandled server error: %s", err)
}

func (l *TestLogger) LogImplicitFlushError(err error) {
	atomic.AddInt64(&l.NumLogImplicitFlushError, 1)
	l.tb.Logf("broute: error while flushing implicitly: %s", err)
}

func (l *TestLogger) LogSpoolCleanupError(err error) {
	atomic.AddInt64(&l.NumLogSpoolCleanupError, 1)
	l.tb.Logf("broute: failed to clear spool file: %s", err)
}

func (l *TestLogger) LogAbortedRequest(err error) {
	atomic.AddInt64(&l.NumLogAbortedRequest, 1)
	l.tb.Logf("broute: request aborted: %s", err)
}

var _ Logger = &TestLogger{}
