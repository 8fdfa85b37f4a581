// Package queue performs HTTP requests on background workers and delivers
// their outcomes to a single consumer in bounded batches.
//
// The host side is a single-threaded loop that must never block on
// network I/O. Submit hands a request to a fixed pool of workers and
// returns a Cancellation token immediately; workers resolve exchanges
// concurrently and park completion records in a FIFO buffer. The host
// calls Drain once per loop iteration to pop a bounded batch of records
// and run their callbacks on its own goroutine.
//
//	q := queue.New(queue.Config{Workers: 4})
//	defer q.Close()
//
//	c, _ := q.Submit(req, func(out queue.Outcome) {
//	    // runs on the goroutine calling Drain
//	})
//
//	// host loop
//	for {
//	    q.Drain(10)
//	}
//
// # Cancellation
//
// Cancellation is cooperative. Cancel does not abort the in-flight socket
// operation; it flips the token so the eventual completion is discarded
// at drain. For every request exactly one of two things happens: the
// callback fires once, or it never fires. The decision is a single
// compare-and-swap on the token, so the guarantee holds for every
// interleaving with a concurrently finishing worker.
//
// # Ordering
//
// Completions are delivered in arrival order, which is generally not
// submission order: network latency varies per request.
//
// # Failures
//
// Worker-side failures never escape the queue boundary. They resolve to
// Outcome values (Timeout, Cancelled or TransportError) delivered
// through the callback like any success. Transport failures are retried
// a bounded number of times, with reattempts of the same request spaced
// by the configured inter-attempt delay.
package queue
