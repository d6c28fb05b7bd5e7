// Package server provides server manager configuration options.
package server

import (
	"time"

	"github.com/gin-gonic/gin"

	httpopts "github.com/kart-io/rag-agent/pkg/options/server/http"
)

// Options contains all configuration for the server manager.
type Options struct {
	// HTTP contains the HTTP server configuration.
	HTTP *httpopts.Options

	// Middleware is applied to the engine at construction time.
	Middleware []gin.HandlerFunc

	// ShutdownTimeout is the graceful shutdown timeout.
	ShutdownTimeout time.Duration
}

// Option configures the manager options.
type Option func(*Options)

// NewOptions creates manager options with defaults.
func NewOptions() *Options {
	return &Options{
		HTTP:            httpopts.NewOptions(),
		ShutdownTimeout: 30 * time.Second,
	}
}

// WithHTTPOptions sets the HTTP server options.
func WithHTTPOptions(o *httpopts.Options) Option {
	return func(opts *Options) {
		opts.HTTP = o
	}
}

// WithMiddleware sets the middleware applied to the HTTP engine.
func WithMiddleware(mw ...gin.HandlerFunc) Option {
	return func(opts *Options) {
		opts.Middleware = mw
	}
}

// WithShutdownTimeout sets the graceful shutdown timeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(opts *Options) {
		opts.ShutdownTimeout = d
	}
}
