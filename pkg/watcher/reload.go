package watcher

import (
	"context"

	"github.com/ritzau/graph-editor/pkg/logging"
)

// Reloader re-reads a file on every change event and hands the result on.
// A removed file is still passed to Load, which decides what absence means.
type Reloader[T any] struct {
	Load  func(path string) (T, error)
	Apply func(ctx context.Context, v T) error
}

// Run consumes events until the channel closes or ctx is cancelled.
// Load and Apply failures are logged and the previous value stays in effect.
func (r Reloader[T]) Run(ctx context.Context, events <-chan ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			r.handle(ctx, event)
		}
	}
}

func (r Reloader[T]) handle(ctx context.Context, event ChangeEvent) {
	v, err := r.Load(event.Path)
	if err != nil {
		logging.Warn("reload failed, keeping previous configuration", "path", event.Path, "change", event.Type.String(), "error", err)
		return
	}
	if err := r.Apply(ctx, v); err != nil {
		logging.Warn("failed to apply reloaded configuration", "path", event.Path, "error", err)
		return
	}
	logging.Info("configuration reloaded", "path", event.Path, "change", event.Type.String())
}
