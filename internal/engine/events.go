package engine

import (
	"time"

	"github.com/bamsammich/cpx/internal/event"
)

// emitEvent sends e without blocking. Slow consumers lose events, never
// stall a transfer.
func emitEvent(ch chan<- event.Event, e event.Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}
