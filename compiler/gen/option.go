package gen

import (
	"errors"
	"go/token"
	"path/filepath"
	"runtime"
)

// Config holds the generation settings.
type Config struct {
	// Target is the output directory.
	Target string
	// Package is the name of the generated package. Defaults to the base
	// name of Target.
	Package string
	// Header is the comment written at the top of every file.
	Header string
	// Workers bounds the number of files rendered in parallel.
	Workers int
}

// Option configures code generation.
type Option func(*Config) error

// NewConfig returns a config for the target directory with opts applied.
func NewConfig(target string, opts ...Option) (*Config, error) {
	if target == "" {
		return nil, NewConfigError("Target", nil, "target directory cannot be empty")
	}
	c := &Config{
		Target:  target,
		Package: filepath.Base(target),
		Header:  "Code generated by veloxql. DO NOT EDIT.",
		Workers: runtime.GOMAXPROCS(0),
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	if !token.IsIdentifier(c.Package) {
		return nil, NewConfigError("Package", c.Package, "not a valid package name; use WithPackage")
	}
	return c, nil
}

// WithPackage sets the package name of the generated files.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if !token.IsIdentifier(pkg) || token.IsKeyword(pkg) {
			return NewConfigError("Package", pkg, "not a valid package name")
		}
		c.Package = pkg
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

// WithWorkers sets the number of parallel workers.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return NewConfigError("Workers", n, "must be positive")
		}
		c.Workers = n
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
