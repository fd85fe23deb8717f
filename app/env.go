package app

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment defines the interface that all environment configurations must implement.
// Embed BaseEnvironment in your struct to satisfy this interface.
type Environment interface {
	port() int
	serviceName() string
	readinessCheckPath() string
	logLevel() zapcore.Level
	otelExporter() string
	spoolDir() string
	chunkSize() int
	bufferLimit() int
	maxBodyBytes() int64
	requestTimeout() time.Duration
	archiveBucket() string
	awsRegion() string
}

// BaseEnvironment contains the environment variables every application reads.
// Embed this in your custom environment struct.
type BaseEnvironment struct {
	Port               int           `env:"BR_PORT,required"`
	ServiceName        string        `env:"BR_SERVICE_NAME,required"`
	ReadinessCheckPath string        `env:"BR_READINESS_CHECK_PATH" envDefault:"/health"`
	LogLevel           zapcore.Level `env:"BR_LOG_LEVEL" envDefault:"info"`
	OtelExporter       string        `env:"BR_OTEL_EXPORTER" envDefault:"stdout"`
	// SpoolDir holds the spool files of multipart bodies, the system temp dir when empty.
	SpoolDir       string        `env:"BR_SPOOL_DIR"`
	ChunkSize      int           `env:"BR_CHUNK_SIZE" envDefault:"512"`
	BufferLimit    int           `env:"BR_BUFFER_LIMIT" envDefault:"-1"`
	MaxBodyBytes   int64         `env:"BR_MAX_BODY_BYTES" envDefault:"0"`
	RequestTimeout time.Duration `env:"BR_REQUEST_TIMEOUT" envDefault:"30s"`
	// ArchiveBucket receives archived multipart parts. Archiving is disabled when empty.
	ArchiveBucket string `env:"BR_ARCHIVE_BUCKET"`
	AWSRegion     string `env:"AWS_REGION"`
}

func (e BaseEnvironment) port() int {
	return e.Port
}

func (e BaseEnvironment) serviceName() string {
	return e.ServiceName
}

func (e BaseEnvironment) readinessCheckPath() string {
	return e.ReadinessCheckPath
}

func (e BaseEnvironment) logLevel() zapcore.Level {
	return e.LogLevel
}

func (e BaseEnvironment) otelExporter() string {
	return e.OtelExporter
}

func (e BaseEnvironment) spoolDir() string              { return e.SpoolDir }
func (e BaseEnvironment) chunkSize() int                { return e.ChunkSize }
func (e BaseEnvironment) bufferLimit() int              { return e.BufferLimit }
func (e BaseEnvironment) maxBodyBytes() int64           { return e.MaxBodyBytes }
func (e BaseEnvironment) requestTimeout() time.Duration { return e.RequestTimeout }
func (e BaseEnvironment) archiveBucket() string         { return e.ArchiveBucket }
func (e BaseEnvironment) awsRegion() string             { return e.AWSRegion }

var _ Environment = BaseEnvironment{}

// ParseEnv parses environment variables into the given Environment type.
func ParseEnv[E Environment]() func() (E, error) {
	return func() (e E, err error) {
		if err := env.Parse(&e); err != nil {
			return e, errors.Wrap(err, "failed to parse environment")
		}

		if e.chunkSize() < 1 {
			return e, errors.Newf("BR_CHUNK_SIZE must be positive, got: %d", e.chunkSize())
		}

		return e, nil
	}
}
