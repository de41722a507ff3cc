// Package health probes the launched Document Filler over HTTP.
//
// The service has no dedicated health endpoint; any HTTP answer below 500
// from the configured path means uvicorn is up and serving.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// probeTimeout bounds a single request.
const probeTimeout = 3 * time.Second

// Result is the outcome of a successful probe.
type Result struct {
	URL        string        `json:"url"`
	StatusCode int           `json:"statusCode"`
	Latency    time.Duration `json:"latency"`
	Attempts   int           `json:"attempts"`
}

// Prober issues readiness requests.
type Prober struct {
	client *http.Client

	// initialInterval and maxInterval shape the retry backoff.
	initialInterval time.Duration
	maxInterval     time.Duration
}

// NewProber returns a Prober with a per-request timeout.
func NewProber() *Prober {
	return &Prober{
		client:          &http.Client{Timeout: probeTimeout},
		initialInterval: 250 * time.Millisecond,
		maxInterval:     2 * time.Second,
	}
}

// Probe performs a single GET against url.
func (p *Prober) Probe(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request for %s: %w", url, err))
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("GET %s: server error %s", url, resp.Status)
	}
	return &Result{
		URL:        url,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
		Attempts:   1,
	}, nil
}

// WaitReady probes url with exponential backoff until it answers or
// timeout elapses. The last probe error is returned on timeout.
func (p *Prober) WaitReady(ctx context.Context, url string, timeout time.Duration) (*Result, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialInterval
	b.MaxInterval = p.maxInterval

	attempts := 0
	res, err := backoff.Retry(ctx, func() (*Result, error) {
		attempts++
		return p.Probe(ctx, url)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("service at %s not ready after %d attempt(s): %w", url, attempts, err)
	}
	res.Attempts = attempts
	return res, nil
}
