package api

import (
	"context"
	"errors"
	"fmt"
	"guild-battle-tracker/internal/constants"
	"guild-battle-tracker/internal/metrics"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/valyala/fasthttp"
)

var (
	// ErrNotConfigured is returned by clients whose credentials are missing.
	ErrNotConfigured = errors.New("service not configured")
	// ErrServiceUnavailable is returned while a service's circuit is open.
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)

// StatusError is a non-2xx answer from an external service.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error: %d %s", e.Service, e.StatusCode, e.Body)
}

// httpClient is the fasthttp transport shared by the external service
// clients. Every call runs through a per-service circuit breaker.
type httpClient struct {
	service string
	client  *fasthttp.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  zerolog.Logger
}

func newHTTPClient(service string, timeout time.Duration, logger zerolog.Logger) *httpClient {
	log := logger.With().Str("service", service).Logger()
	settings := gobreaker.Settings{
		Name:        service,
		MaxRequests: constants.BreakerMaxRequests,
		Interval:    constants.BreakerInterval,
		Timeout:     constants.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= constants.BreakerFailureThreshold
		},
		// client errors say nothing about the health of the service
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}

	return &httpClient{
		service: service,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		logger:  log,
	}
}

type request struct {
	method  string
	url     string
	headers map[string]string
	body    any
}

// doRequest sends req and decodes a JSON response into T.
func doRequest[T any](ctx context.Context, c *httpClient, req request) (*T, error) {
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.send(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w", c.service, ErrServiceUnavailable)
	}
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", c.service, err)
	}
	return &result, nil
}

func (c *httpClient) send(ctx context.Context, r request) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.url)
	req.Header.SetMethod(r.method)
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", c.service, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBodyRaw(payload)
	}

	start := time.Now()
	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err != nil {
		metrics.RecordUpstream(c.service, "transport_error", time.Since(start))
		c.logger.Error().Err(err).Str("method", r.method).Msg("request failed")
		return nil, fmt.Errorf("%s request failed: %w", c.service, err)
	}

	c.recordRateLimit(resp)

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		metrics.RecordUpstream(c.service, strconv.Itoa(status), time.Since(start))
		c.logger.Warn().Int("status", status).Msg("unexpected status")
		return nil, &StatusError{Service: c.service, StatusCode: status, Body: truncate(string(resp.Body()), 512)}
	}

	metrics.RecordUpstream(c.service, "success", time.Since(start))
	c.logger.Debug().
		Str("method", r.method).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Msg("request completed")

	// resp is released on return
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

func (c *httpClient) recordRateLimit(resp *fasthttp.Response) {
	remaining := string(resp.Header.Peek("X-Ratelimit-Remaining-Requests"))
	if remaining == "" {
		return
	}
	if val, err := strconv.Atoi(remaining); err == nil {
		c.logger.Debug().Int("remaining", val).Msg("rate limit")
		if val == 0 {
			c.logger.Warn().Str("reset", string(resp.Header.Peek("X-Ratelimit-Reset-Requests"))).Msg("rate limit exhausted")
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
