package generation

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrEmptyPrompt    = errors.New("prompt cannot be empty")
	ErrProviderFailed = errors.New("generation provider failed")
	ErrNoAPIKey       = errors.New("no generation API key configured")
)

// Request describes one generation call.
type Request struct {
	Prompt string
	System string // optional system instruction
	Model  string // optional override of the provider default
}

// Result is the outcome of a successful generation.
type Result struct {
	Text     string
	Provider string
	Model    string
}

// Generator produces text for a prompt. Implementations are safe for
// concurrent use.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)

	// Provider returns the provider name.
	Provider() string

	// Close releases any resources held by the generator.
	Close() error
}

// GeneratorFunc adapts a function to the Generator interface. Useful for
// tests and for callers that already hold a closure over their provider.
type GeneratorFunc func(ctx context.Context, req Request) (*Result, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}

func (f GeneratorFunc) Provider() string { return "func" }

func (f GeneratorFunc) Close() error { return nil }

// ValidateRequest validates a generation request.
func ValidateRequest(req Request) error {
	if req.Prompt == "" {
		return ErrEmptyPrompt
	}
	return nil
}
