package watcher

import (
	"context"
	"time"

	"github.com/ritzau/graph-editor/pkg/logging"
)

// Debouncer collapses bursts of change events (an editor save often produces
// several) into one event carrying the most recent change.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer. An event is emitted once the
// input has been quiet for quietPeriod, or at the latest maxWait after the
// first event of a burst.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		pending   *ChangeEvent
		count     int
		quiet     <-chan time.Time
		deadline  <-chan time.Time
		quietT    *time.Timer
		deadlineT *time.Timer
	)

	stop := func() {
		if quietT != nil {
			quietT.Stop()
		}
		if deadlineT != nil {
			deadlineT.Stop()
		}
		quiet, deadline = nil, nil
		quietT, deadlineT = nil, nil
	}

	flush := func() {
		stop()
		if pending == nil {
			return
		}
		logging.Debug("flushing accumulated events", "count", count)
		d.output <- *pending
		pending = nil
		count = 0
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			pending = &event
			count++

			if quietT != nil {
				quietT.Stop()
			}
			quietT = time.NewTimer(d.quietPeriod)
			quiet = quietT.C

			if deadlineT == nil {
				deadlineT = time.NewTimer(d.maxWait)
				deadline = deadlineT.C
			}

		case <-quiet:
			flush()

		case <-deadline:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
