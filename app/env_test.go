package app_test

import (
	"os"
	"testing"
	"time"

	"github.com/advdv/broute/app"
	"github.com/advdv/broute/app/apptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type customEnv struct {
	app.BaseEnvironment
	TableName string `env:"TABLE_NAME" envDefault:"items"`
}

func TestParseEnvDefaults(t *testing.T) {
	t.Setenv("BR_PORT", "8080")
	t.Setenv("BR_SERVICE_NAME", "svc")

	env, err := app.ParseEnv[customEnv]()()
	require.NoError(t, err)

	assert.Equal(t, 8080, env.Port)
	assert.Equal(t, "svc", env.ServiceName)
	assert.Equal(t, "/health", env.ReadinessCheckPath)
	assert.Equal(t, zapcore.InfoLevel, env.LogLevel)
	assert.Equal(t, "stdout", env.OtelExporter)
	assert.Equal(t, 512, env.ChunkSize)
	assert.Equal(t, -1, env.BufferLimit)
	assert.Equal(t, int64(0), env.MaxBodyBytes)
	assert.Equal(t, 30*time.Second, env.RequestTimeout)
	assert.Empty(t, env.ArchiveBucket)
	assert.Equal(t, "items", env.TableName)
}

func TestParseEnvOverrides(t *testing.T) {
	apptest.SetBaseEnv(t, 9090).ServiceName("other").ChunkSize(64).RequestTimeout("2s").ArchiveBucket("uploads")
	t.Setenv("BR_LOG_LEVEL", "DEBUG")

	env, err := app.ParseEnv[app.BaseEnvironment]()()
	require.NoError(t, err)

	assert.Equal(t, 9090, env.Port)
	assert.Equal(t, "other", env.ServiceName)
	assert.Equal(t, zapcore.DebugLevel, env.LogLevel)
	assert.Equal(t, "none", env.OtelExporter)
	assert.Equal(t, 64, env.ChunkSize)
	assert.Equal(t, 2*time.Second, env.RequestTimeout)
	assert.Equal(t, "uploads", env.ArchiveBucket)
	assert.NotEmpty(t, env.SpoolDir)
}

func TestParseEnvErrors(t *testing.T) {
	t.Run("missing required", func(t *testing.T) {
		apptest.SetBaseEnv(t, 9092)
		require.NoError(t, os.Unsetenv("BR_PORT"))

		_, err := app.ParseEnv[app.BaseEnvironment]()()
		require.ErrorContains(t, err, "failed to parse environment")
	})

	t.Run("invalid chunk size", func(t *testing.T) {
		apptest.SetBaseEnv(t, 9091).ChunkSize(0)

		_, err := app.ParseEnv[app.BaseEnvironment]()()
		require.ErrorContains(t, err, "BR_CHUNK_SIZE must be positive")
	})
}
