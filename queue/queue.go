package queue

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	fqerrors "github.com/hostloop/fetchq/errors"
)

// DefaultBacklogThreshold is the pending-request count above which Drain
// batches are scaled up to relieve backlog growth.
const DefaultBacklogThreshold = 500

// defaultMaxAttempts bounds automatic reattempts of a transport failure.
const defaultMaxAttempts = 3

// Config configures a Queue. Workers must be at least 1.
type Config struct {
	// Workers is the number of goroutines performing HTTP exchanges.
	Workers int

	// RetryEvery is the minimum spacing between successive reattempts
	// of the same failed request. Zero disables pacing.
	RetryEvery time.Duration

	// MaxAttempts caps attempts per request, counting the first.
	// Zero means defaultMaxAttempts.
	MaxAttempts int

	// Client performs the exchanges. Nil means a dedicated default
	// client; per-request timeouts come from Options, not from here.
	Client *http.Client

	// CompletionBuffer is the completion channel capacity. Zero means
	// a generous default; workers block once it fills, which is the
	// back-pressure the drain rate implies.
	CompletionBuffer int

	Logger *zap.Logger
}

// Queue bridges concurrently completing HTTP work into bounded, ordered,
// single-consumer delivery. Workers resolve requests in parallel and park
// completions in a FIFO buffer; the host drains that buffer on its own
// goroutine, one bounded batch per tick.
type Queue struct {
	completions chan completion
	closing     chan struct{}
	wake        chan struct{}

	client      *http.Client
	log         *zap.Logger
	retryEvery  time.Duration
	maxAttempts int

	inflight atomic.Int64

	mu      sync.Mutex
	closed  bool
	backlog []task
	cancel  context.CancelFunc
	workers *errgroup.Group
}

type task struct {
	req    Request
	cancel *Cancellation
	cb     Callback
}

// New creates a queue and starts its worker pool.
func New(cfg Config) *Queue {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	buffer := cfg.CompletionBuffer
	if buffer <= 0 {
		buffer = 1024
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	q := &Queue{
		completions: make(chan completion, buffer),
		closing:     make(chan struct{}),
		wake:        make(chan struct{}, 1),
		client:      client,
		log:         log,
		retryEvery:  cfg.RetryEvery,
		maxAttempts: maxAttempts,
		cancel:      cancel,
		workers:     g,
	}

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			q.worker(ctx)
			return nil
		})
	}

	return q
}

// Submit hands a request to the worker pool and returns its cancellation
// token. It never suspends: the backlog is unbounded, and back-pressure
// lives on the drain side through the completion buffer, never here. The
// request must already own its body and options copies.
func (q *Queue) Submit(req Request, cb Callback) (*Cancellation, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, fqerrors.Closed(fqerrors.PhaseSubmit, "request queue")
	}
	c := &Cancellation{}
	q.inflight.Add(1)
	q.backlog = append(q.backlog, task{req: req, cancel: c, cb: cb})
	select {
	case q.wake <- struct{}{}:
	default:
	}
	q.mu.Unlock()
	return c, nil
}

// InFlight returns the number of requests submitted but not yet resolved
// by a worker. Diagnostic only; liveness is tracked by the cancellation
// table, not here.
func (q *Queue) InFlight() int {
	return int(q.inflight.Load())
}

// Ready returns the number of completions currently buffered for drain.
func (q *Queue) Ready() int {
	return len(q.completions)
}

// Drain pops up to max completion records in FIFO arrival order, invoking
// each callback on the calling goroutine unless its cancellation token
// claimed suppression first. It returns the number of callbacks invoked
// and never blocks once the buffer is empty.
func (q *Queue) Drain(max int) int {
	delivered := 0
	for popped := 0; popped < max; popped++ {
		select {
		case rec := <-q.completions:
			if rec.cancel.claimDelivery() {
				rec.cb(rec.outcome)
				delivered++
			} else {
				q.log.Debug("discarding suppressed completion",
					zap.String("outcome", rec.outcome.Kind.String()))
			}
		default:
			return delivered
		}
	}
	return delivered
}

// Close stops the worker pool. Backlog entries that no worker has picked
// up are resolved as Cancelled and buffered like any other completion, so
// a final Drain after Close observes them (their callbacks remain gated
// on their tokens). Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.closing)
	q.cancel()
	_ = q.workers.Wait()

	// Workers are gone; whatever they left in the backlog resolves as
	// cancelled.
	q.mu.Lock()
	leftover := q.backlog
	q.backlog = nil
	q.mu.Unlock()
	for _, t := range leftover {
		q.finish(t, Outcome{Kind: OutcomeCancelled})
	}
}

func (q *Queue) worker(ctx context.Context) {
	for {
		t, ok := q.next(ctx)
		if !ok {
			return
		}
		q.finish(t, q.perform(ctx, t))
	}
}

// next pops the oldest backlog entry, sleeping on the wake signal while
// the backlog is empty. It returns false once the queue shuts down. A
// popped entry re-arms the signal when more work remains, so one token
// wakes the whole idle pool in a chain.
func (q *Queue) next(ctx context.Context) (task, bool) {
	for {
		q.mu.Lock()
		if len(q.backlog) > 0 {
			t := q.backlog[0]
			q.backlog = q.backlog[1:]
			if len(q.backlog) > 0 {
				select {
				case q.wake <- struct{}{}:
				default:
				}
			}
			q.mu.Unlock()
			return t, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return task{}, false
		}
		select {
		case <-q.wake:
		case <-ctx.Done():
			return task{}, false
		}
	}
}

// finish parks a resolved task in the completion buffer. A full buffer
// blocks the worker, which is the back-pressure the drain rate implies;
// during shutdown the record is dropped instead, since every token is
// suppressed before the queue is discarded.
func (q *Queue) finish(t task, out Outcome) {
	q.inflight.Add(-1)
	select {
	case q.completions <- completion{cancel: t.cancel, cb: t.cb, outcome: out}:
	case <-q.closing:
		select {
		case q.completions <- completion{cancel: t.cancel, cb: t.cb, outcome: out}:
		default:
		}
	}
}

// perform runs one exchange, retrying transport failures with the
// configured inter-attempt spacing. Timeouts and queue shutdown are
// terminal on the first occurrence.
func (q *Queue) perform(ctx context.Context, t task) Outcome {
	var limiter *rate.Limiter
	if q.retryEvery > 0 {
		limiter = rate.NewLimiter(rate.Every(q.retryEvery), 1)
	}

	var out Outcome
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return Outcome{Kind: OutcomeCancelled}
			}
		}

		out = q.attempt(ctx, t.req)
		if out.Kind != OutcomeTransportError {
			return out
		}
		if attempt < q.maxAttempts {
			q.log.Debug("retrying request",
				zap.String("url", t.req.URL.String()),
				zap.Int("attempt", attempt),
				zap.Error(out.Err))
		}
	}
	return out
}

func (q *Queue) attempt(ctx context.Context, req Request) Outcome {
	reqCtx := ctx
	if req.Options.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, req.Options.Timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, req.Method.String(), req.URL.String(), body)
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, Err: err}
	}
	for k, vs := range req.Options.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := q.client.Do(httpReq)
	if err != nil {
		return classifyError(ctx, reqCtx, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyError(ctx, reqCtx, err)
	}

	return Outcome{
		Kind:   OutcomeSuccess,
		Status: resp.StatusCode,
		Body:   payload,
		Header: resp.Header,
	}
}

func classifyError(queueCtx, reqCtx context.Context, err error) Outcome {
	switch {
	case queueCtx.Err() != nil:
		return Outcome{Kind: OutcomeCancelled}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(reqCtx.Err(), context.DeadlineExceeded):
		return Outcome{Kind: OutcomeTimeout}
	default:
		return Outcome{
			Kind: OutcomeTransportError,
			Err:  fqerrors.Wrap(fqerrors.PhaseTransport, fqerrors.KindInvalidInput, err, "request failed"),
		}
	}
}

// BacklogMultiplier scales a drain batch by how far pending exceeds
// threshold, never below 1, so a large backlog drains faster than it
// accumulates.
func BacklogMultiplier(pending, threshold int) int {
	if threshold <= 0 {
		return 1
	}
	m := pending / threshold
	if m < 1 {
		return 1
	}
	return m
}
