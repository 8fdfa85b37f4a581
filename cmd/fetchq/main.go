package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/hostloop/fetchq"
	"github.com/hostloop/fetchq/config"
	"github.com/hostloop/fetchq/handle"
	"github.com/hostloop/fetchq/queue"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to INI config (optional; built-in defaults otherwise)")
		methodName  = flag.String("method", "GET", "HTTP method: GET, POST, PUT or DELETE")
		bodyStr     = flag.String("body", "", "Request body")
		headers     = flag.String("headers", "", "Request headers (Name=Value,Name2=Value2)")
		timeout     = flag.Duration("timeout", 10*time.Second, "Per-request timeout (0 disables)")
		jsonPath    = flag.String("json", "", "Dot-path to extract from each JSON response body")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg := config.Config{
		Workers:          4,
		CallbacksPerTick: 10,
		RetryDelay:       100 * time.Millisecond,
	}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	var opts []fetchq.Option
	if *verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = log.Sync() }()
		opts = append(opts, fetchq.WithLogger(log))
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cfg, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	urls := flag.Args()
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: fetchq [flags] URL [URL...]")
		fmt.Fprintln(os.Stderr, "       fetchq -i  (interactive mode)")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(cfg, opts, *methodName, *bodyStr, *headers, *timeout, *jsonPath, urls); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, opts []fetchq.Option, methodName, bodyStr, headers string, timeout time.Duration, jsonPath string, urls []string) error {
	method, ok := queue.ParseMethod(strings.ToUpper(methodName))
	if !ok {
		return fmt.Errorf("unsupported method %q", methodName)
	}

	client, err := fetchq.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer client.Shutdown()

	bodyID := fetchq.Absent
	if bodyStr != "" {
		bodyID = client.BodyFromString(bodyStr)
	}

	optsID := client.NewOptions(timeout)
	if headers != "" {
		for _, kv := range strings.Split(headers, ",") {
			name, value, found := strings.Cut(kv, "=")
			if !found {
				return fmt.Errorf("malformed header %q", kv)
			}
			if err := client.OptionsAddHeader(optsID, name, value); err != nil {
				return err
			}
		}
	}

	failed := false
	for _, u := range urls {
		target := u
		_, err := client.Submit(method, target, bodyID, optsID, func(out queue.Outcome) {
			printOutcome(client, target, out, jsonPath, &failed)
		})
		if err != nil {
			return fmt.Errorf("submit %s: %w", target, err)
		}
	}

	// The host loop: tick until everything was delivered.
	for client.Pending() > 0 {
		client.Tick()
		time.Sleep(10 * time.Millisecond)
	}

	if failed {
		return fmt.Errorf("one or more requests failed")
	}
	return nil
}

func printOutcome(client *fetchq.Client, target string, out queue.Outcome, jsonPath string, failed *bool) {
	switch out.Kind {
	case queue.OutcomeSuccess:
		fmt.Printf("%s: %d (%d bytes)\n", target, out.Status, len(out.Body))
		if jsonPath != "" {
			printExtract(client, out.Body, jsonPath)
		}
	case queue.OutcomeTimeout:
		fmt.Printf("%s: timed out\n", target)
		*failed = true
	case queue.OutcomeCancelled:
		fmt.Printf("%s: cancelled\n", target)
		*failed = true
	default:
		fmt.Printf("%s: %v\n", target, out.Err)
		*failed = true
	}
}

func printExtract(client *fetchq.Client, body []byte, path string) {
	docID, err := client.ParseJSON(string(body))
	if err != nil {
		fmt.Printf("  %s: %v\n", path, err)
		return
	}
	defer func(id handle.ID) { _ = client.DestroyJSON(id) }(docID)

	subID, err := client.JSONGetPath(docID, path)
	if err != nil {
		fmt.Printf("  %s: %v\n", path, err)
		return
	}
	defer func(id handle.ID) { _ = client.DestroyJSON(id) }(subID)

	doc, err := client.JSON(subID)
	if err != nil {
		fmt.Printf("  %s: %v\n", path, err)
		return
	}
	text, err := doc.Serialize(false)
	if err != nil {
		fmt.Printf("  %s: %v\n", path, err)
		return
	}
	fmt.Printf("  %s = %s\n", path, text)
}
