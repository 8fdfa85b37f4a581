package queue

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Method identifies the HTTP method of a request.
type Method int

const (
	MethodGet Method = iota
	MethodPost
	MethodPut
	MethodDelete
)

var methodNames = map[Method]string{
	MethodGet:    http.MethodGet,
	MethodPost:   http.MethodPost,
	MethodPut:    http.MethodPut,
	MethodDelete: http.MethodDelete,
}

// String returns the wire name of the method, or "METHOD(n)" for an
// unknown code.
func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("METHOD(%d)", int(m))
}

// Valid reports whether the method code is one of the supported four.
func (m Method) Valid() bool {
	_, ok := methodNames[m]
	return ok
}

// ParseMethod maps a method name (case-sensitive wire form) to its code.
func ParseMethod(s string) (Method, bool) {
	for m, name := range methodNames {
		if name == s {
			return m, true
		}
	}
	return 0, false
}

// Options carries per-request transport settings. Header keys may repeat;
// a zero Timeout means no deadline beyond the transport's own.
type Options struct {
	Header  http.Header
	Timeout time.Duration
}

// NewOptions creates an empty option set with the given timeout.
func NewOptions(timeout time.Duration) *Options {
	return &Options{
		Header:  make(http.Header),
		Timeout: timeout,
	}
}

// Clone returns an independent copy. Requests take a clone at submit time
// so later mutation of the option set never affects in-flight work.
func (o *Options) Clone() Options {
	c := Options{Timeout: o.Timeout}
	if o.Header != nil {
		c.Header = o.Header.Clone()
	} else {
		c.Header = make(http.Header)
	}
	return c
}

// Request describes one HTTP exchange. It is immutable once submitted:
// Body and Options are private copies owned by the request.
type Request struct {
	Method  Method
	URL     *url.URL
	Body    []byte
	Options Options
}

// OutcomeKind is the terminal classification of one request.
type OutcomeKind uint8

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeCancelled
	OutcomeTimeout
	OutcomeTransportError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeTransportError:
		return "transport_error"
	}
	return fmt.Sprintf("outcome(%d)", uint8(k))
}

// Outcome is the resolved result of a request, delivered to its callback
// during Drain. Status, Body and Header are set only for OutcomeSuccess;
// Err only for OutcomeTransportError. An HTTP error status is still a
// Success: the exchange completed and the status is the caller's to judge.
type Outcome struct {
	Err    error
	Header http.Header
	Body   []byte
	Status int
	Kind   OutcomeKind
}

// Callback receives a request's Outcome on the drain goroutine.
type Callback func(Outcome)

// completion is the worker-to-consumer hand-off record.
type completion struct {
	cancel  *Cancellation
	cb      Callback
	outcome Outcome
}
