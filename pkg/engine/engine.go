package engine

import (
	"context"
)

// Engine is the external text-completion capability consumed by the
// generator. Implementations handle provider-specific transport; callers only
// see a prompt in and completion text out. Every call may block on network
// I/O and must honor ctx cancellation.
type Engine interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleteFunc adapts a plain function to the Engine interface, mostly used
// for test doubles.
type CompleteFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleteFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
