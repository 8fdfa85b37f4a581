package queue

import (
	"sync/atomic"
)

const (
	cancelPending int32 = iota
	cancelSuppressed
	cancelDelivered
)

// Cancellation gates whether a submitted request's callback will ever
// fire. It starts pending; exactly one of Cancel (suppression) or
// delivery wins, decided by a single compare-and-swap, so the callback
// fires at most once for every interleaving with a finishing worker.
//
// Cancellation is cooperative: it does not abort the in-flight network
// operation, it only guarantees the completion is discarded at drain.
type Cancellation struct {
	state atomic.Int32
}

// Cancel suppresses future delivery. It reports whether this call won:
// false means the callback was already delivered or the request was
// already cancelled.
func (c *Cancellation) Cancel() bool {
	return c.state.CompareAndSwap(cancelPending, cancelSuppressed)
}

// Cancelled reports whether delivery has been suppressed.
func (c *Cancellation) Cancelled() bool {
	return c.state.Load() == cancelSuppressed
}

// Drop implements handle.Dropper so that clearing a cancellation table
// at shutdown suppresses every outstanding request.
func (c *Cancellation) Drop() {
	c.Cancel()
}

// claimDelivery attempts to move pending -> delivered. Only the winner
// may invoke the callback.
func (c *Cancellation) claimDelivery() bool {
	return c.state.CompareAndSwap(cancelPending, cancelDelivered)
}
