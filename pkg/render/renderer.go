// Package render converts report documents into PDF bytes using an ordered
// chain of backends. Individual backend failures are swallowed; the first
// backend producing non-empty output wins.
package render

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Document is the renderable input shared by all backends.
type Document struct {
	Title string
	HTML  string
	// Lines is a plain-text digest used by backends that cannot lay out
	// HTML (the gofpdf fallback).
	Lines []string
}

// Backend renders a document to PDF bytes, or fails.
type Backend interface {
	Name() string
	Render(ctx context.Context, doc Document) ([]byte, error)
}

// Chain tries backends in priority order.
type Chain struct {
	backends []Backend
	timeout  time.Duration
	logger   *zap.Logger
}

// NewChain builds a render chain over the given backends.
func NewChain(logger *zap.Logger, backends ...Backend) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{backends: backends, logger: logger}
}

// WithTimeout bounds every Render call across the whole chain. Zero means
// no limit.
func (c *Chain) WithTimeout(d time.Duration) *Chain {
	c.timeout = d
	return c
}

// Render walks the chain and returns the first non-empty PDF along with the
// name of the backend that produced it. It fails only when every backend has
// failed.
func (c *Chain) Render(ctx context.Context, doc Document) ([]byte, string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var lastErr error
	for _, backend := range c.backends {
		out, err := backend.Render(ctx, doc)
		if err != nil {
			c.logger.Warn("pdf backend failed",
				zap.String("backend", backend.Name()),
				zap.Error(err))
			lastErr = err
			continue
		}
		if len(out) == 0 {
			c.logger.Warn("pdf backend produced empty output",
				zap.String("backend", backend.Name()))
			lastErr = fmt.Errorf("%s: empty output", backend.Name())
			continue
		}
		return out, backend.Name(), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no pdf backends configured")
	}
	return nil, "", fmt.Errorf("all pdf backends failed: %w", lastErr)
}
