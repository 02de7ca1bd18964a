package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/shahid-2020/cryptohlcv/internal/logger"
	"github.com/shahid-2020/cryptohlcv/internal/ratelimit"
	"github.com/shahid-2020/cryptohlcv/internal/retry"
	"github.com/shahid-2020/cryptohlcv/types"
)

const (
	DefaultTimeout   = 12 * time.Second
	DefaultUserAgent = "cryptohlcv/1.0 (+https://github.com/shahid-2020/cryptohlcv)"

	maxErrorBody = 512
	maxDrainBody = 64 << 10
)

var DefaultRetryOnStatus = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

type Client struct {
	httpClient    *http.Client
	userAgent     string
	limiter       *ratelimit.RateLimiter
	retryer       *retry.Retryer
	retryOnStatus []int
	logger        *slog.Logger
}

type RateLimitConfig struct {
	RequestsPerSecond int
	RequestsPerMinute int
	RequestsPerHour   int
}

type RetryConfig struct {
	MaxAttempts uint
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// RetryOnStatus defaults to DefaultRetryOnStatus when nil.
	RetryOnStatus []int
}

type ClientConfig struct {
	HttpClient      *http.Client
	UserAgent       string
	RateLimitConfig RateLimitConfig
	RetryConfig     RetryConfig
	Sleeper         retry.Sleeper
	Logger          *slog.Logger
}

func NewClient(config ClientConfig) *Client {
	if config.HttpClient == nil {
		config.HttpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.RetryConfig.RetryOnStatus == nil {
		config.RetryConfig.RetryOnStatus = DefaultRetryOnStatus
	}
	if config.Logger == nil {
		config.Logger = logger.Discard()
	}

	c := &Client{
		httpClient:    config.HttpClient,
		userAgent:     config.UserAgent,
		limiter:       ratelimit.NewRateLimiter(config.RateLimitConfig.RequestsPerSecond, config.RateLimitConfig.RequestsPerMinute, config.RateLimitConfig.RequestsPerHour),
		retryOnStatus: config.RetryConfig.RetryOnStatus,
		logger:        config.Logger,
	}

	policy := retry.Policy{
		MaxAttempts: config.RetryConfig.MaxAttempts,
		BaseDelay:   config.RetryConfig.BaseDelay,
		MaxDelay:    config.RetryConfig.MaxDelay,
	}
	c.retryer = retry.NewRetryer(policy,
		retry.WithSleeper(config.Sleeper),
		retry.OnRetry(func(attempt uint, delay time.Duration, err error) {
			c.logger.Warn("retrying request", "attempt", attempt+1, "delay", delay, "error", err)
		}),
	)
	c.logger.Debug("http client ready",
		"user_agent", c.userAgent,
		"max_attempts", c.retryer.Policy().MaxAttempts,
		"retry_schedule", c.retryer.Schedule(),
	)

	return c
}

// Fetch issues one logical GET. Retryable statuses and transport failures are
// retried with backoff; any other non-2xx status comes back at once as a
// *types.StatusError. Once attempts run out the last transport failure is
// returned as a *types.TransportError, or types.ErrNoResponse when every
// attempt got a retryable status.
func (c *Client) Fetch(ctx context.Context, rawURL string, query Query, header http.Header) ([]byte, error) {
	target, err := buildURL(rawURL, query)
	if err != nil {
		return nil, err
	}

	var (
		body         []byte
		settled      bool
		attempts     int
		lastStatus   int
		transportErr error
	)

	err = c.retryer.Do(ctx, func(attempt uint) (bool, error) {
		attempts++
		if err := c.limiter.Wait(ctx); err != nil {
			settled = true
			return false, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			settled = true
			return false, fmt.Errorf("failed to create request: %w", err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("User-Agent", c.userAgent)
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", "application/json")
		}

		res, err := c.httpClient.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				settled = true
				return false, ctxErr
			}
			transportErr = err
			return true, err
		}
		defer res.Body.Close()

		if slices.Contains(c.retryOnStatus, res.StatusCode) {
			lastStatus = res.StatusCode
			_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxDrainBody))
			return true, fmt.Errorf("retryable status %d", res.StatusCode)
		}

		data, err := io.ReadAll(res.Body)
		if err != nil {
			transportErr = fmt.Errorf("failed to read response body: %w", err)
			return true, transportErr
		}

		settled = true
		if res.StatusCode < 200 || res.StatusCode > 299 {
			return false, &types.StatusError{
				URL:        target,
				StatusCode: res.StatusCode,
				Body:       truncate(string(data), maxErrorBody),
			}
		}

		body = data
		return false, nil
	})

	switch {
	case err == nil:
		return body, nil
	case settled, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	case transportErr != nil:
		return nil, &types.TransportError{URL: target, Attempts: attempts, Err: transportErr}
	default:
		return nil, fmt.Errorf("%w: %s returned %d on all %d attempts", types.ErrNoResponse, target, lastStatus, attempts)
	}
}

func buildURL(rawURL string, query Query) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if query != nil {
		q := u.Query()
		for k, vs := range query.Values() {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
