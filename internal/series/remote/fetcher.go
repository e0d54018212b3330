package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/climate-series/internal/common"
	"github.com/i474232898/climate-series/internal/series"
)

// Fetcher downloads series documents from static JSON routes.
type Fetcher struct {
	baseURL *url.URL
	httpCfg HTTPClientConfig
	logger  *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewFetcher creates a Fetcher resolving relative routes against baseURL.
// maxRetries of zero disables transport retries.
func NewFetcher(client *http.Client, baseURL string, maxRetries int) (*Fetcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}

	return &Fetcher{
		baseURL: base,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      maxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		logger:   slog.Default(),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}, nil
}

// breaker returns the circuit breaker of one target URL, so a failing route
// never blocks the others.
func (f *Fetcher) breaker(target string) *gobreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	cb, ok := f.breakers[target]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:         target,
			MaxRequests:  5,
			Interval:     1 * time.Minute,
			Timeout:      30 * time.Second,
			IsSuccessful: countsAsSuccess,
		})
		f.breakers[target] = cb
	}
	return cb
}

// Fetch issues a GET for route and decodes the body as an ordered record list.
func (f *Fetcher) Fetch(ctx context.Context, route string) ([]series.Record, error) {
	ref, err := url.Parse(route)
	if err != nil {
		return nil, fmt.Errorf("invalid route %q: %w", route, err)
	}
	target := f.baseURL.ResolveReference(ref).String()

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, f.httpCfg, f.breaker(target), buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !common.HasAny(ct, "application/json", "+json") {
		f.logger.Warn("unexpected content type for series route", "url", target, "contentType", ct)
	}

	var records []series.Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, &series.Error{Kind: series.KindParse, Err: fmt.Errorf("decode %s: %w", target, err)}
	}
	if records == nil {
		records = []series.Record{}
	}
	return records, nil
}
