package internal

import "github.com/starford/raido/internal/pipeline"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	observer pipeline.Observer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithProgress registers an observer for migration progress. Serve wires its
// own observer for SSE; this one is for embedding Migrate in other programs.
func WithProgress(fn pipeline.Observer) Option {
	return func(a *application) {
		a.observer = fn
	}
}
