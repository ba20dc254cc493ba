// Package gen generates Go constants naming the classes, properties,
// relations and storage names of a frozen mapping graph.
//
// The generated package lets application code refer to mapping identifiers
// without string literals:
//
//	cfg, err := gen.NewConfig(gen.WithPackage("shopmap"), gen.WithTarget("./shopmap"))
//	if err != nil {
//		return err
//	}
//	files, err := gen.New(g, cfg).Generate(ctx)
package gen

import (
	"go/token"
	"runtime"

	"go.uber.org/zap"
)

// DefaultHeader is the header comment of generated files.
const DefaultHeader = "Code generated by relmap. DO NOT EDIT."

// Config holds the generator configuration.
type Config struct {
	// Package is the name of the generated package.
	Package string
	// Target is the output directory.
	Target string
	// Header is the comment written at the top of each file.
	Header string
	// Workers bounds the files written concurrently.
	Workers int
	// Logger receives progress messages.
	Logger *zap.Logger
}

// Option configures code generation.
type Option func(*Config) error

// WithPackage sets the name of the generated package.
func WithPackage(name string) Option {
	return func(c *Config) error {
		if !token.IsIdentifier(name) {
			return NewConfigError("Package", name, "not a valid Go package name")
		}
		c.Package = name
		return nil
	}
}

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "output directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithHeader sets the file header comment.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithWorkers sets the number of files written concurrently.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return NewConfigError("Workers", n, "must be positive")
		}
		c.Workers = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) error {
		c.Logger = l
		return nil
	}
}

// NewConfig returns a configuration with defaults applied before opts.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Package: "mapping",
		Target:  "mapping",
		Header:  DefaultHeader,
		Workers: runtime.GOMAXPROCS(0),
		Logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}
