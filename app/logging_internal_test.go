package app

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEnv struct {
	level   zapcore.Level
	otelExp string
	bucket  string
}

func (e testEnv) port() int                  { return 8080 }
func (e testEnv) serviceName() string        { return "test" }
func (e testEnv) readinessCheckPath() string { return "/health" }
func (e testEnv) logLevel() zapcore.Level    { return e.level }
func (e testEnv) otelExporter() string {
	if e.otelExp == "" {
		return "stdout"
	}
	return e.otelExp
}
func (e testEnv) spoolDir() string              { return "" }
func (e testEnv) chunkSize() int                { return 512 }
func (e testEnv) bufferLimit() int              { return -1 }
func (e testEnv) maxBodyBytes() int64           { return 0 }
func (e testEnv) requestTimeout() time.Duration { return 30 * time.Second }
func (e testEnv) archiveBucket() string         { return e.bucket }
func (e testEnv) awsRegion() string             { return "us-east-1" }

func TestNewLogger(t *testing.T) {
	for _, lvl := range []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel} {
		t.Run(lvl.String(), func(t *testing.T) {
			logger, err := NewLogger(testEnv{level: lvl})
			require.NoError(t, err)
			require.NotNil(t, logger)
			require.True(t, logger.Core().Enabled(lvl))
			if lvl > zapcore.DebugLevel {
				require.False(t, logger.Core().Enabled(lvl-1))
			}
		})
	}
}

func TestMuxLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := newMuxLogger(zap.New(core))

	for _, tt := range []struct {
		log   func(error)
		msg   string
		level zapcore.Level
	}{
		{logger.LogUnhandledServeError, "unhandled server error", zapcore.ErrorLevel},
		{logger.LogImplicitFlushError, "error while flushing implicitly", zapcore.ErrorLevel},
		{logger.LogSpoolCleanupError, "failed to clear multipart spool file", zapcore.WarnLevel},
		{logger.LogAbortedRequest, "request aborted while reading the body", zapcore.DebugLevel},
	} {
		t.Run(tt.msg, func(t *testing.T) {
			tt.log(errors.New("test error"))

			entries := logs.TakeAll()
			require.Len(t, entries, 1)
			require.Equal(t, tt.msg, entries[0].Message)
			require.Equal(t, "app.broute", entries[0].LoggerName)
			require.Equal(t, tt.level, entries[0].Level)
			require.Equal(t, "test error", entries[0].ContextMap()["error"])
		})
	}
}
