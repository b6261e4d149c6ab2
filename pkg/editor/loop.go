package editor

import (
	"context"

	"github.com/ritzau/graph-editor/pkg/model"
)

type request struct {
	fn   func() error
	done chan error
}

// Run processes dispatched work one item at a time, in arrival order, until
// ctx is cancelled. Each item runs to completion before the next one starts.
func (s *Shell) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.requests:
			req.done <- req.fn()
		}
	}
}

// Dispatch runs cmd on the loop and waits for it to finish
func (s *Shell) Dispatch(ctx context.Context, cmd Command) error {
	return s.do(ctx, func() error { return s.Apply(cmd) })
}

// UpdateStyle replaces the style configuration from outside the loop
func (s *Shell) UpdateStyle(ctx context.Context, style model.StyleConfig) error {
	return s.do(ctx, func() error {
		s.SetStyle(style)
		return nil
	})
}

func (s *Shell) do(ctx context.Context, fn func() error) error {
	req := request{fn: fn, done: make(chan error, 1)}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once accepted the work always completes; wait for it even if ctx ends
	return <-req.done
}
