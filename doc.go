// Package fetchq lets a single-threaded host loop issue HTTP requests
// without blocking, receiving results only when it asks for them.
//
// The host calls Tick once per iteration of its own loop; between ticks a
// pool of background workers performs the network I/O. Every resource that
// crosses the boundary (request bodies, option sets, parsed JSON
// documents, outstanding-request tokens) lives in a handle table and is
// referred to by a small integer id, never by reference.
//
//	cfg, err := config.Load("fetchq.ini")
//	client, err := fetchq.New(cfg)
//	defer client.Shutdown()
//
//	body := client.BodyFromString(`{"hello": "world"}`)
//	opts := client.NewOptions(5 * time.Second)
//	client.OptionsAddHeader(opts, "Content-Type", "application/json")
//
//	req, err := client.Submit(queue.MethodPost, "https://example.com/api",
//	    body, opts, func(out queue.Outcome) {
//	        // runs on the host goroutine, during a Tick
//	    })
//
//	for hostLoopRunning {
//	    client.Tick()
//	}
//
// A request can be abandoned with Cancel(req): its callback is then
// guaranteed never to run, even if the network operation later finishes.
// Shutdown extends the same guarantee to everything still outstanding.
//
// The heavy lifting lives in the subpackages: handle (generic id tables),
// queue (workers, completion buffering, drain), jsonval (document model
// with dot-path lookup) and config (startup values).
package fetchq
