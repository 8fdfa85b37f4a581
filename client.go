package fetchq

import (
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/hostloop/fetchq/config"
	fqerrors "github.com/hostloop/fetchq/errors"
	"github.com/hostloop/fetchq/handle"
	"github.com/hostloop/fetchq/jsonval"
	"github.com/hostloop/fetchq/queue"
)

// Absent is the reserved handle meaning "no body" or "no options" in
// Submit. It is never a live table id.
const Absent handle.ID = 0

// Client owns one request queue and the resource tables whose handles
// cross the host boundary. It replaces any process-wide singleton: create
// as many independent clients as needed, each with its own id namespaces.
type Client struct {
	queue      *queue.Queue
	log        *zap.Logger
	cfg        config.Config
	httpClient *http.Client

	bodies  *handle.Table[[]byte]
	options *handle.Table[*queue.Options]
	docs    *handle.Table[*jsonval.Value]
	cancels *handle.Table[*queue.Cancellation]

	// submitMu keeps the peek-then-insert id reservation atomic when
	// submissions arrive from more than one goroutine.
	submitMu sync.Mutex

	backlogThreshold int

	mu     sync.Mutex
	closed bool
}

// Option customizes a Client beyond its file-sourced configuration.
type Option func(*Client)

// WithLogger installs a logger. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithHTTPClient substitutes the transport used by the workers.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBacklogThreshold overrides the pending count above which tick
// batches scale up.
func WithBacklogThreshold(n int) Option {
	return func(c *Client) { c.backlogThreshold = n }
}

// New validates cfg and starts the worker pool. Configuration problems
// are fatal: no client is created.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:              cfg,
		log:              zap.NewNop(),
		bodies:           handle.NewTable[[]byte](),
		options:          handle.NewTable[*queue.Options](),
		docs:             handle.NewTable[*jsonval.Value](),
		cancels:          handle.NewTable[*queue.Cancellation](),
		backlogThreshold: queue.DefaultBacklogThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.queue = queue.New(queue.Config{
		Workers:    cfg.Workers,
		RetryEvery: cfg.RetryDelay,
		Client:     c.httpClient,
		Logger:     c.log,
	})
	return c, nil
}

// Submit validates and enqueues one HTTP exchange, returning a handle
// that cancels it. The callback runs on the goroutine calling Tick, at
// most once; body and options are copied here, so destroying either
// handle afterwards never touches the in-flight request.
//
// bodyID and optionsID may be Absent for an empty body or default options.
func (c *Client) Submit(method queue.Method, uri string, bodyID, optionsID handle.ID, cb queue.Callback) (handle.ID, error) {
	if !method.Valid() {
		return 0, fqerrors.InvalidMethod(method.String())
	}

	u, err := url.Parse(uri)
	if err != nil {
		return 0, fqerrors.MalformedURI(uri, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return 0, fqerrors.MalformedURI(uri, nil)
	}

	var body []byte
	if bodyID != Absent {
		stored, ok := c.bodies.Get(bodyID)
		if !ok {
			return 0, fqerrors.NotFound(fqerrors.PhaseSubmit, "body", int64(bodyID))
		}
		body = make([]byte, len(stored))
		copy(body, stored)
	}

	reqOptions := queue.Options{Header: make(http.Header)}
	if optionsID != Absent {
		stored, ok := c.options.Get(optionsID)
		if !ok {
			return 0, fqerrors.NotFound(fqerrors.PhaseSubmit, "options", int64(optionsID))
		}
		reqOptions = stored.Clone()
	}

	req := queue.Request{
		Method:  method,
		URL:     u,
		Body:    body,
		Options: reqOptions,
	}

	// Two-phase registration: the delivery hook must know its own id to
	// remove its token, and the id must exist before the first Tick can
	// observe the completion.
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	token := c.cancels.PeekNextID()
	wrapped := func(out queue.Outcome) {
		cb(out)
		c.cancels.Detach(token)
	}

	cancellation, err := c.queue.Submit(req, wrapped)
	if err != nil {
		return 0, err
	}
	c.cancels.Insert(cancellation)

	c.log.Debug("request submitted",
		zap.Int64("handle", int64(token)),
		zap.String("method", method.String()),
		zap.String("url", u.String()))
	return token, nil
}

// Cancel removes the cancellation token for id, guaranteeing its callback
// never runs. It reports whether the token was still registered; false is
// the normal answer for an already-delivered or already-cancelled request,
// not an error.
func (c *Client) Cancel(id handle.ID) bool {
	_, found := c.cancels.Remove(id)
	return found
}

// Active reports whether a request is still pending: neither delivered
// nor cancelled.
func (c *Client) Active(id handle.ID) bool {
	_, ok := c.cancels.Get(id)
	return ok
}

// Pending returns the number of requests still awaiting delivery.
func (c *Client) Pending() int {
	return c.cancels.Len()
}

// Tick delivers up to one batch of completed callbacks on the calling
// goroutine. The batch is the configured per-tick budget, scaled up when
// the backlog exceeds the threshold. Call it once per host loop
// iteration; it returns the number of callbacks invoked and never blocks
// once the completion buffer is empty.
func (c *Client) Tick() int {
	multiplier := queue.BacklogMultiplier(c.Pending(), c.backlogThreshold)
	if multiplier > 1 {
		c.log.Warn("request backlog exceeds threshold, scaling drain batch",
			zap.Int("pending", c.Pending()),
			zap.Int("multiplier", multiplier))
	}
	return c.queue.Drain(c.cfg.CallbacksPerTick * multiplier)
}

// Shutdown suppresses every outstanding callback, stops the workers and
// destroys all resource tables. No callback fires after Shutdown begins.
// It is idempotent.
func (c *Client) Shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	// Clearing the cancellation table first forces every in-flight
	// request into the suppressed state before the queue goes away.
	c.cancels.Clear()
	c.queue.Close()

	c.bodies.Clear()
	c.options.Clear()
	c.docs.Clear()
	c.log.Debug("client shut down")
}
