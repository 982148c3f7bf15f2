package upstream

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
	"github.com/riskibarqy/contest-feed/internal/platform/resilience"
	"github.com/valyala/bytebufferpool"
	"golang.org/x/time/rate"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxBodyBytes     = 6 << 20
)

var errTransient = crerr.New("upstream transient failure")

// ErrCircuitOpen is returned while a source's breaker rejects calls.
var ErrCircuitOpen = resilience.ErrCircuitOpen

type ClientConfig struct {
	Source     string
	HTTPClient *http.Client
	UserAgent  string
	MaxRetries int
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	RateBurst int
	Logger    *logging.Logger
	Breaker   *resilience.CircuitBreaker
	// Secrets are scrubbed from error text and logged URLs.
	Secrets []string
}

// Client performs upstream calls for one source: breaker check, rate limit,
// shared in-flight GETs, bounded retries on transient failures.
type Client struct {
	source     string
	httpClient *http.Client
	userAgent  string
	maxRetries int
	limiter    *rate.Limiter
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
	secrets    []string
	flight     resilience.SingleFlight[[]byte]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	secrets := make([]string, 0, len(cfg.Secrets))
	for _, secret := range cfg.Secrets {
		if strings.TrimSpace(secret) != "" {
			secrets = append(secrets, secret)
		}
	}

	return &Client{
		source:     cfg.Source,
		httpClient: httpClient,
		userAgent:  userAgent,
		maxRetries: maxInt(cfg.MaxRetries, 0),
		limiter:    limiter,
		logger:     logger,
		breaker:    cfg.Breaker,
		secrets:    secrets,
	}
}

// Request describes one upstream call.
type Request struct {
	Method string
	URL    string
	Query  url.Values
	Header http.Header
	Body   []byte
}

func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, target any) error {
	raw, err := c.Do(ctx, Request{
		Method: http.MethodGet,
		URL:    rawURL,
		Query:  query,
		Header: http.Header{"Accept": []string{"application/json"}},
	})
	if err != nil {
		return err
	}
	return DecodeJSON(raw, target)
}

func (c *Client) PostJSON(ctx context.Context, rawURL string, header http.Header, body any, target any) error {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	merged := http.Header{
		"Accept":       []string{"application/json"},
		"Content-Type": []string{"application/json"},
	}
	for key, values := range header {
		merged[key] = values
	}

	raw, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		URL:    rawURL,
		Header: merged,
		Body:   payload,
	})
	if err != nil {
		return err
	}
	return DecodeJSON(raw, target)
}

func (c *Client) GetHTML(ctx context.Context, rawURL string) ([]byte, error) {
	return c.Do(ctx, Request{
		Method: http.MethodGet,
		URL:    rawURL,
		Header: http.Header{"Accept": []string{"text/html,application/xhtml+xml"}},
	})
}

// Do runs req and returns the raw 2xx body.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	fullURL := req.URL
	if encoded := req.Query.Encode(); encoded != "" {
		separator := "?"
		if strings.Contains(fullURL, "?") {
			separator = "&"
		}
		fullURL += separator + encoded
	}

	// Admission happens inside run so deduplicated GETs share one breaker slot.
	run := func() ([]byte, error) {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "upstream circuit breaker rejected request", "source", c.source, "state", c.breaker.State())
			return nil, crerr.Wrapf(err, "%s upstream", c.source)
		}
		raw, err := c.executeRequest(ctx, req, fullURL)
		c.breaker.Done(err != nil && isTransient(err))
		return raw, err
	}

	if req.Method != http.MethodGet {
		return run()
	}
	raw, err, _ := c.flight.Do(fullURL, run)
	return raw, err
}

func (c *Client) executeRequest(ctx context.Context, spec Request, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, crerr.Wrap(err, "wait for rate limiter")
			}
		}

		var body io.Reader
		if len(spec.Body) > 0 {
			body = bytes.NewReader(spec.Body)
		}
		req, err := http.NewRequestWithContext(ctx, spec.Method, fullURL, body)
		if err != nil {
			return nil, crerr.Wrap(err, "build request")
		}
		req.Header.Set("User-Agent", c.userAgent)
		for key, values := range spec.Header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errTransient, c.sanitize(err.Error()))
		} else {
			raw, readErr := readBody(resp.Body)
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: upstream status=%d body=%s", errTransient, resp.StatusCode, c.sanitize(abbreviateBody(raw)))
			default:
				lastErr = fmt.Errorf("upstream status=%d body=%s", resp.StatusCode, c.sanitize(abbreviateBody(raw)))
				c.logger.WarnContext(ctx, "upstream request rejected", "source", c.source, "url", c.sanitize(fullURL), "status", resp.StatusCode)
				return nil, lastErr
			}
		}

		if attempt == c.maxRetries || ctx.Err() != nil {
			break
		}
		backoff := time.Duration(attempt+1) * 500 * time.Millisecond
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("upstream request failed")
	}
	c.logger.WarnContext(ctx, "upstream request failed", "source", c.source, "url", c.sanitize(fullURL), "error", lastErr)
	return nil, lastErr
}

func readBody(body io.Reader) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if _, err := buf.ReadFrom(io.LimitReader(body, maxBodyBytes)); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.B)
	return out, nil
}

func DecodeJSON(raw []byte, target any) error {
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode upstream payload: %w", err)
	}
	return nil
}

func (c *Client) sanitize(value string) string {
	value = strings.TrimSpace(value)
	for _, secret := range c.secrets {
		value = strings.ReplaceAll(value, secret, "REDACTED")
		value = strings.ReplaceAll(value, url.QueryEscape(secret), "REDACTED")
	}
	return value
}

func isTransient(err error) bool {
	return err != nil && stderrors.Is(err, errTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
