// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

package tmdb

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/medialetter/medialetter/internal/logging"
)

// Ensure CircuitBreakerClient implements Provider.
var _ Provider = (*CircuitBreakerClient)(nil)

// CircuitBreakerClient wraps Client with a circuit breaker so that a
// dead or rate-limited metadata provider cannot stall a large batch:
// once the circuit opens, per-item lookups fail fast and the
// aggregator ships those items unenriched.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient creates a TMDB client with circuit breaker
// protection. Circuit breaker configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
func NewCircuitBreakerClient(apiKey string, opts ...Option) *CircuitBreakerClient {
	client := NewClient(apiKey, opts...)
	cbName := "tmdb-api"

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening TMDB circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(_ string, from, to gobreaker.State) {
			logging.Info().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] TMDB state transition")
		},
	})

	return &CircuitBreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// execute wraps a TMDB API call with circuit breaker protection.
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] TMDB request rejected")
		}
		return nil, err
	}
	return result, nil
}

// SearchMovie searches for movies with circuit breaker protection.
func (cbc *CircuitBreakerClient) SearchMovie(ctx context.Context, title string, year int) ([]SearchResult, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.client.SearchMovie(ctx, title, year)
	})
	if err != nil {
		return nil, err
	}
	results, ok := result.([]SearchResult)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type for SearchMovie")
	}
	return results, nil
}

// SearchTV searches for TV series with circuit breaker protection.
func (cbc *CircuitBreakerClient) SearchTV(ctx context.Context, title string, year int) ([]SearchResult, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.client.SearchTV(ctx, title, year)
	})
	if err != nil {
		return nil, err
	}
	results, ok := result.([]SearchResult)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type for SearchTV")
	}
	return results, nil
}

// MovieByID fetches movie details with circuit breaker protection.
func (cbc *CircuitBreakerClient) MovieByID(ctx context.Context, id int) (*Details, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.client.MovieByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	details, ok := result.(*Details)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type for MovieByID")
	}
	return details, nil
}

// TVByID fetches series details with circuit breaker protection.
func (cbc *CircuitBreakerClient) TVByID(ctx context.Context, id int) (*Details, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.client.TVByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	details, ok := result.(*Details)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type for TVByID")
	}
	return details, nil
}

// Ping tests connectivity with circuit breaker protection.
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.Ping(ctx)
	})
	return err
}

// State returns the current circuit breaker state.
func (cbc *CircuitBreakerClient) State() gobreaker.State {
	return cbc.cb.State()
}

// Counts returns the current circuit breaker counts.
func (cbc *CircuitBreakerClient) Counts() gobreaker.Counts {
	return cbc.cb.Counts()
}
