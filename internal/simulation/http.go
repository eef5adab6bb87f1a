package simulation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// httpClient wraps http.Client with the service's base URL.
type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// apiError is the error body the service returns for non-2xx responses.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("status %d %s: %s", e.Status, e.Code, e.Message)
}

// do sends body as JSON and decodes a 2xx response into out. Non-2xx
// responses come back as *apiError together with the status code.
func (c *httpClient) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return resp.StatusCode, apiErr
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

// fanOut runs fn for every index in [0, n) on a pool of clients goroutines
// and stops handing out work once ctx is done. progress, when non-nil, is
// called at most once per progressInterval with the number of finished calls.
func fanOut(ctx context.Context, clients, n int, fn func(ctx context.Context, i int), progress func(done, total int)) {
	jobs := make(chan int, clients*clientChannelMultiplier)
	var (
		wg         sync.WaitGroup
		done       atomic.Int64
		lastReport atomic.Int64
	)

	for range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fn(ctx, i)
				finished := done.Add(1)

				if progress == nil {
					continue
				}
				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					progress(int(finished), n)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range n {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()
}
