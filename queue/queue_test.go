package queue

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func okServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// drainAll ticks the queue until n callbacks were seen or the deadline
// passes, draining at most batch per tick.
func drainAll(t *testing.T, q *Queue, batch int, seen *atomic.Int64, n int64) int {
	t.Helper()
	drains := 0
	deadline := time.Now().Add(5 * time.Second)
	for seen.Load() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out: %d of %d callbacks delivered", seen.Load(), n)
		}
		if q.Drain(batch) == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		drains++
	}
	return drains
}

func TestQueue_DeliverSuccess(t *testing.T) {
	srv := okServer(t)
	q := New(Config{Workers: 2})
	defer q.Close()

	var seen atomic.Int64
	var got Outcome
	_, err := q.Submit(Request{
		Method:  MethodGet,
		URL:     mustURL(t, srv.URL),
		Options: Options{Header: make(http.Header)},
	}, func(out Outcome) {
		got = out
		seen.Add(1)
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	drainAll(t, q, 10, &seen, 1)

	if got.Kind != OutcomeSuccess {
		t.Fatalf("Expected success, got %v (%v)", got.Kind, got.Err)
	}
	if got.Status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", got.Status)
	}
	if string(got.Body) != "ok" {
		t.Fatalf("Expected body 'ok', got %q", got.Body)
	}
}

func TestQueue_HundredRequestsExactlyOnce(t *testing.T) {
	srv := okServer(t)
	q := New(Config{Workers: 8})
	defer q.Close()

	const n = 100
	counts := make([]atomic.Int64, n)
	var seen atomic.Int64

	for i := 0; i < n; i++ {
		c := &counts[i]
		_, err := q.Submit(Request{
			Method:  MethodGet,
			URL:     mustURL(t, srv.URL),
			Options: Options{Header: make(http.Header)},
		}, func(Outcome) {
			c.Add(1)
			seen.Add(1)
		})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	// Let every completion arrive first so the drain count is exact.
	deadline := time.Now().Add(5 * time.Second)
	for q.Ready() < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d completions ready", q.Ready())
		}
		time.Sleep(time.Millisecond)
	}

	drains := 0
	for seen.Load() < n {
		if q.Drain(10) != 10 {
			t.Fatal("full batches expected while backlog remains")
		}
		drains++
	}

	for i := range counts {
		if c := counts[i].Load(); c != 1 {
			t.Fatalf("request %d: callback fired %d times", i, c)
		}
	}
	// 100 callbacks at 10 per drain is exactly 10 productive drains.
	if drains != 10 {
		t.Fatalf("Expected 10 productive drains, got %d", drains)
	}
}

func TestQueue_DrainCap(t *testing.T) {
	srv := okServer(t)
	q := New(Config{Workers: 4})
	defer q.Close()

	const n = 20
	var seen atomic.Int64
	for i := 0; i < n; i++ {
		if _, err := q.Submit(Request{
			Method:  MethodGet,
			URL:     mustURL(t, srv.URL),
			Options: Options{Header: make(http.Header)},
		}, func(Outcome) { seen.Add(1) }); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	// Wait until everything is buffered, then check the cap.
	deadline := time.Now().Add(5 * time.Second)
	for q.Ready() < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d completions ready", q.Ready())
		}
		time.Sleep(time.Millisecond)
	}

	if got := q.Drain(7); got != 7 {
		t.Fatalf("Drain(7) delivered %d", got)
	}
	if got := q.Drain(100); got != n-7 {
		t.Fatalf("second Drain delivered %d, want %d", got, n-7)
	}
	if got := q.Drain(100); got != 0 {
		t.Fatalf("empty Drain delivered %d", got)
	}
}

func TestQueue_SubmitNeverBlocksWhileWorkersStalled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	var releaseOnce sync.Once
	releaseSrv := func() { releaseOnce.Do(func() { close(release) }) }
	defer releaseSrv()

	q := New(Config{Workers: 1})
	defer q.Close()

	// Far more submissions than workers, against a server that answers
	// nothing: every Submit must still return immediately.
	const n = 8
	u := mustURL(t, srv.URL)
	var seen atomic.Int64
	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		for i := 0; i < n; i++ {
			if _, err := q.Submit(Request{
				Method:  MethodGet,
				URL:     u,
				Options: Options{Header: make(http.Header)},
			}, func(Outcome) { seen.Add(1) }); err != nil {
				t.Errorf("Submit %d: %v", i, err)
				return
			}
		}
	}()

	select {
	case <-submitted:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit suspended while the worker was stalled on the network")
	}

	releaseSrv()
	drainAll(t, q, 10, &seen, n)
	if got := seen.Load(); got != n {
		t.Fatalf("delivered %d of %d callbacks", got, n)
	}
}

func TestQueue_CloseWhileWorkersStalled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	q := New(Config{Workers: 2})

	u := mustURL(t, srv.URL)
	for i := 0; i < 6; i++ {
		if _, err := q.Submit(Request{
			Method:  MethodGet,
			URL:     u,
			Options: Options{Header: make(http.Header)},
		}, func(Outcome) {}); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	// Close must abort the stalled exchanges and return; it must not
	// wait for the server.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		q.Close()
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close hung while workers were stalled on the network")
	}
}

func TestQueue_CancelSuppressesCallback(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	q := New(Config{Workers: 1})
	defer q.Close()

	fired := false
	c, err := q.Submit(Request{
		Method:  MethodGet,
		URL:     mustURL(t, srv.URL),
		Options: Options{Header: make(http.Header)},
	}, func(Outcome) { fired = true })
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if !c.Cancel() {
		t.Fatal("Cancel should win while the request is in flight")
	}
	close(release)

	// Let the worker finish and the record arrive, then drain.
	deadline := time.Now().Add(5 * time.Second)
	for q.Ready() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("completion never arrived")
		}
		time.Sleep(time.Millisecond)
	}
	if got := q.Drain(10); got != 0 {
		t.Fatalf("Drain delivered %d suppressed callbacks", got)
	}
	if fired {
		t.Fatal("callback fired after Cancel")
	}
}

func TestQueue_CancelRace(t *testing.T) {
	srv := okServer(t)
	q := New(Config{Workers: 4})
	defer q.Close()

	// Cancel concurrently with the worker finishing; whatever the
	// interleaving, each callback fires at most once, and never after
	// a Cancel that reported success.
	const n = 50
	var fired [n]atomic.Int64
	cancels := make([]*Cancellation, n)

	for i := 0; i < n; i++ {
		idx := i
		c, err := q.Submit(Request{
			Method:  MethodGet,
			URL:     mustURL(t, srv.URL),
			Options: Options{Header: make(http.Header)},
		}, func(Outcome) { fired[idx].Add(1) })
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		cancels[i] = c
	}

	var wg sync.WaitGroup
	won := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			won[i] = cancels[i].Cancel()
		}(i)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			q.Drain(10)
			if q.InFlight() == 0 && q.Ready() == 0 {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
	wg.Wait()
	<-done

	for i := 0; i < n; i++ {
		f := fired[i].Load()
		if f > 1 {
			t.Fatalf("request %d: callback fired %d times", i, f)
		}
		if won[i] && f != 0 {
			t.Fatalf("request %d: callback fired although Cancel won", i)
		}
		if !won[i] && f != 1 {
			t.Fatalf("request %d: Cancel lost but callback fired %d times", i, f)
		}
	}
}

func TestQueue_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	q := New(Config{Workers: 1})
	defer q.Close()

	var seen atomic.Int64
	var got Outcome
	_, err := q.Submit(Request{
		Method: MethodGet,
		URL:    mustURL(t, srv.URL),
		Options: Options{
			Header:  make(http.Header),
			Timeout: 50 * time.Millisecond,
		},
	}, func(out Outcome) {
		got = out
		seen.Add(1)
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	drainAll(t, q, 10, &seen, 1)

	if got.Kind != OutcomeTimeout {
		t.Fatalf("Expected timeout outcome, got %v", got.Kind)
	}
	if n := seen.Load(); n != 1 {
		t.Fatalf("callback fired %d times", n)
	}
}

func TestQueue_TransportError(t *testing.T) {
	q := New(Config{Workers: 1, MaxAttempts: 2, RetryEvery: time.Millisecond})
	defer q.Close()

	var seen atomic.Int64
	var got Outcome
	// Closed port: connection refused on every attempt.
	_, err := q.Submit(Request{
		Method:  MethodGet,
		URL:     mustURL(t, "http://127.0.0.1:1/unreachable"),
		Options: Options{Header: make(http.Header)},
	}, func(out Outcome) {
		got = out
		seen.Add(1)
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	drainAll(t, q, 10, &seen, 1)

	if got.Kind != OutcomeTransportError {
		t.Fatalf("Expected transport error, got %v", got.Kind)
	}
	if got.Err == nil {
		t.Fatal("transport error outcome carries no error")
	}
}

func TestQueue_SubmitAfterClose(t *testing.T) {
	q := New(Config{Workers: 1})
	q.Close()

	_, err := q.Submit(Request{
		Method:  MethodGet,
		URL:     mustURL(t, "http://example.com/"),
		Options: Options{Header: make(http.Header)},
	}, func(Outcome) {})
	if err == nil {
		t.Fatal("Submit after Close should fail")
	}
}

func TestQueue_CloseIdempotent(t *testing.T) {
	q := New(Config{Workers: 2})
	q.Close()
	q.Close()
}

func TestBacklogMultiplier(t *testing.T) {
	cases := []struct {
		pending, threshold, want int
	}{
		{0, 500, 1},
		{499, 500, 1},
		{500, 500, 1},
		{1000, 500, 2},
		{2600, 500, 5},
		{100, 0, 1},
	}
	for _, c := range cases {
		if got := BacklogMultiplier(c.pending, c.threshold); got != c.want {
			t.Fatalf("BacklogMultiplier(%d, %d) = %d, want %d",
				c.pending, c.threshold, got, c.want)
		}
	}
}

func TestParseMethod(t *testing.T) {
	for _, name := range []string{"GET", "POST", "PUT", "DELETE"} {
		m, ok := ParseMethod(name)
		if !ok {
			t.Fatalf("ParseMethod(%q) failed", name)
		}
		if m.String() != name {
			t.Fatalf("round trip %q -> %q", name, m.String())
		}
	}
	if _, ok := ParseMethod("PATCH"); ok {
		t.Fatal("PATCH should not parse")
	}
	if Method(42).Valid() {
		t.Fatal("Method(42) should be invalid")
	}
}

func TestOptions_CloneIsolation(t *testing.T) {
	o := NewOptions(time.Second)
	o.Header.Add("X-Token", "a")

	c := o.Clone()
	o.Header.Set("X-Token", "mutated")
	o.Timeout = 5 * time.Second

	if got := c.Header.Get("X-Token"); got != "a" {
		t.Fatalf("clone observed mutation: %q", got)
	}
	if c.Timeout != time.Second {
		t.Fatalf("clone timeout changed: %v", c.Timeout)
	}
}
