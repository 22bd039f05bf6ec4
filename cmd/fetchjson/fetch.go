package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// maxBody bounds how much of a response is read.
const maxBody = 64 << 20

// newClient returns an HTTP client that retries connection errors and 5xx
// responses.
func newClient(retries int, waitMin, waitMax time.Duration, logger *slog.Logger) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retries
	retryClient.RetryWaitMin = waitMin
	retryClient.RetryWaitMax = waitMax
	retryClient.Logger = nil // suppress default logging
	retryClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.Warn("retrying", "url", req.URL.String(), "attempt", attempt)
		}
	}

	return retryClient.StandardClient()
}

// fetchJSON GETs url and writes the document to w re-indented with indent
// spaces per level.
func fetchJSON(ctx context.Context, client *http.Client, url string, indent int, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("get %s: %s", url, resp.Status)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, body, "", strings.Repeat(" ", indent)); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	out.WriteByte('\n')

	_, err = out.WriteTo(w)
	return err
}
