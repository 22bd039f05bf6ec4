// Command fetchjson fetches a JSON document and prints it indented.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/internal/hostlog"
)

const defaultURL = "https://api.collegefootballdata.com/games?year=2018&seasonType=regular"

func main() {
	url := flag.String("url", envOr("FETCHJSON_URL", defaultURL), "document to fetch")
	indent := flag.Int("indent", 4, "spaces per indent level")
	retries := flag.Int("retries", 3, "retries on connection errors and 5xx")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Parse()

	logger := hostlog.New(os.Stderr, "fetchjson", hostlog.Debug())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	client := newClient(*retries, time.Second, 10*time.Second, logger)
	logger.Debug("fetching", "url", *url)
	if err := fetchJSON(ctx, client, *url, *indent, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "fetchjson: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
