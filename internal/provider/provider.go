// Package provider wraps the external text generation APIs behind Generator.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrProvider wraps every failure of a generation call.
var ErrProvider = errors.New("generation provider error")

// Generator produces a completion for a prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options are shared by all provider constructors.
type Options struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// Client is a Generator holding process-wide connections that must be
// released on shutdown.
type Client interface {
	Generator
	Close()
}

// New builds the provider named by kind ("anthropic" or "openai").
func New(kind string, opts Options) (Client, error) {
	switch kind {
	case "anthropic":
		return NewAnthropic(opts), nil
	case "openai":
		return NewOpenAI(opts), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", kind)
	}
}

// newHTTPClient returns the client each provider owns and closes.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
		Timeout:   5 * time.Minute,
	}
}

func wrapErr(err error) error {
	return fmt.Errorf("%w: %v", ErrProvider, err)
}
