package feed

import (
	"context"
	"time"
)

// Debouncer coalesces a burst of change notifications into a single resync
// request. A write storm (bulk ingredient add, a partner logging several
// expenses) then costs one refetch instead of one per row.
type Debouncer struct {
	window time.Duration
	in     chan struct{}
	out    chan struct{}
}

func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		in:     make(chan struct{}, 1),
		out:    make(chan struct{}, 1),
	}
}

// Notify records that something changed. Never blocks; notifications
// arriving while one is already pending fold into it.
func (d *Debouncer) Notify() {
	select {
	case d.in <- struct{}{}:
	default:
	}
}

// Resyncs emits one value per quiet period that followed at least one
// notification.
func (d *Debouncer) Resyncs() <-chan struct{} {
	return d.out
}

// Run pumps notifications into debounced resync requests until ctx ends.
func (d *Debouncer) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-d.in:
			// Restart the quiet-period timer on every notification.
			if timer == nil {
				timer = time.NewTimer(d.window)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(d.window)
			}
		case <-fire:
			timer = nil
			fire = nil
			select {
			case d.out <- struct{}{}:
			default:
				// A resync is already queued; folding is fine.
			}
		}
	}
}
