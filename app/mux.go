package app

import (
	"github.com/advdv/broute"
	"github.com/advdv/broute/multipart"
	"go.uber.org/zap"
)

// Mux is an alias for broute.ServeMux.
type Mux = broute.ServeMux

// NewMux creates a new Mux configured from the environment.
func NewMux(env Environment, logs *zap.Logger) *Mux {
	return broute.NewServeMuxWith(broute.MuxConfig{
		BufLimit:     env.bufferLimit(),
		MaxBodyBytes: env.maxBodyBytes(),
		Logger:       newMuxLogger(logs),
		Multipart: multipart.Options{
			Dir:       env.spoolDir(),
			ChunkSize: env.chunkSize(),
		},
	})
}
