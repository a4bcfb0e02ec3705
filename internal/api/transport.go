package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// upstreamFailure marks a 5xx so the breaker counts it while the response still reaches the caller.
type upstreamFailure struct {
	code int
}

func (e *upstreamFailure) Error() string {
	return fmt.Sprintf("upstream status %d", e.code)
}

// breakerTransport wraps each round trip in a circuit breaker. Transport errors and 5xx
// responses count as failures; 4xx responses are the caller's problem and count as successes.
type breakerTransport struct {
	next    http.RoundTripper
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func newBreakerTransport(next http.RoundTripper, cfg config.CircuitBreakerConfig, logger *slog.Logger) *breakerTransport {
	maxRequests := cfg.MaxRequests
	if maxRequests == 0 {
		maxRequests = 1
	}
	st := gobreaker.Settings{
		Name:        "storefront-backend",
		MaxRequests: maxRequests,
		Timeout:     cfg.OpenTimeout,
		Interval:    time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			level := slog.LevelInfo
			if to == gobreaker.StateOpen {
				level = slog.LevelWarn
			}
			logger.Log(context.Background(), level, "Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &breakerTransport{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](st),
	}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.breaker.Execute(func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &upstreamFailure{code: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		var uf *upstreamFailure
		if errors.As(err, &uf) && resp != nil {
			return resp, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}
	return resp, nil
}
