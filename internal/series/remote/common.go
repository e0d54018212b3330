package remote

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/climate-series/internal/series"
)

// BackoffConfig controls exponential backoff between transport-level retries.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

var (
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// statusError carries a non-200 response through the circuit breaker.
type statusError struct {
	status     int
	statusText string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d %s", e.status, e.statusText)
}

// countsAsSuccess keeps caller errors and cancellations out of the breaker's
// failure count. Only transport failures and 5xx responses trip it.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var serr *statusError
	if errors.As(err, &serr) {
		return serr.status < 500
	}
	return false
}

// doRequestWithResilience executes the request behind a circuit breaker.
// Only transport failures and 5xx responses are retried, and only when
// MaxRetries is positive. Any non-200 response is returned as a NETWORK_ERROR.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	for {
		if ctx.Err() != nil {
			return nil, series.NetworkError(0, ctx.Err().Error(), ctx.Err())
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				return nil, &statusError{status: resp.StatusCode, statusText: statusText(resp)}
			}
			return resp, nil
		})
		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, series.NetworkError(0, "circuit breaker open", err)
		}

		var serr *statusError
		isStatus := errors.As(err, &serr)
		if attempt >= cfg.Backoff.MaxRetries || (isStatus && serr.status < 500) {
			if isStatus {
				return nil, series.NetworkError(serr.status, serr.statusText, nil)
			}
			return nil, series.NetworkError(0, err.Error(), err)
		}

		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, series.NetworkError(0, ctx.Err().Error(), ctx.Err())
		case <-timer.C:
		}
		attempt++
	}
}

// statusText returns the reason phrase of the response, e.g. "Not Found".
func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
