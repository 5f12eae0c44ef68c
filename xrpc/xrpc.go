package xrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
)

// Retry budget for throttling (429) was exhausted. A wrapped *Error may
// carry the last server hint.
var ErrRateLimited = errors.New("rate limited, retries exhausted")

// Retry budget for server faults (5xx, network errors) was exhausted.
var ErrUnavailable = errors.New("service unavailable, retries exhausted")

// Response body did not deserialize. Parse failures are not transient and
// are never retried.
var ErrParse = errors.New("invalid response body")

// Target host is not HTTPS. Checked before any network call; loopback
// addresses are exempt so tests can run against local servers.
var ErrInsecureHost = errors.New("host must use https")

const defaultTimeout = 30 * time.Second

// XRPC query client for a single host. Construct with NewClient, or fill
// in the fields directly (Host is the only required one).
type Client struct {
	// URL method, hostname, and optional port; no path or trailing slash
	Host string
	// HTTP client to use; defaults to one with a 30s per-call timeout
	Client *http.Client
	// optional bearer token, sent as-is in the Authorization header
	AuthToken string
	UserAgent string
	Headers   map[string]string
	// receives per-attempt notifications; nil means no observation
	Observer RequestObserver
	// bounded retry schedule; zero value gets DefaultBackoffPolicy
	Backoff BackoffPolicy
	// sleep function used between retries; tests inject a fake. Defaults
	// to a context-aware real sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(host string) (*Client, error) {
	if err := checkHost(host); err != nil {
		return nil, err
	}
	return &Client{
		Host:    host,
		Backoff: DefaultBackoffPolicy(),
	}, nil
}

// JSON error body returned by XRPC endpoints
type XRPCError struct {
	ErrStr  string `json:"error"`
	Message string `json:"message"`
}

func (xe *XRPCError) Error() string {
	return fmt.Sprintf("%s: %s", xe.ErrStr, xe.Message)
}

type RatelimitInfo struct {
	Limit     int
	Remaining int
	Policy    string
	Reset     time.Time
	// parsed Retry-After hint, if the server sent one
	RetryAfter time.Duration
}

// HTTP-level call failure. StatusCode is 0 for transport-level failures.
type Error struct {
	StatusCode int
	Wrapped    error
	Ratelimit  *RatelimitInfo
}

func (e *Error) Error() string {
	if e.Wrapped == nil {
		return fmt.Sprintf("XRPC ERROR %d", e.StatusCode)
	}
	if e.StatusCode == http.StatusTooManyRequests && e.Ratelimit != nil && e.Ratelimit.RetryAfter > 0 {
		return fmt.Sprintf("XRPC ERROR %d: %s (retry after %s)", e.StatusCode, e.Wrapped, e.Ratelimit.RetryAfter)
	}
	return fmt.Sprintf("XRPC ERROR %d: %s", e.StatusCode, e.Wrapped)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

func (e *Error) IsThrottled() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

func checkHost(host string) error {
	u, err := url.Parse(host)
	if err != nil {
		return fmt.Errorf("invalid host URL: %w", err)
	}
	if u.Scheme == "https" {
		return nil
	}
	if u.Scheme == "http" {
		hostname := u.Hostname()
		if hostname == "localhost" || hostname == "::1" {
			return nil
		}
		if ip := net.ParseIP(hostname); ip != nil && ip.IsLoopback() {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInsecureHost, host)
}

// converts a map of string keys and any values into a URL-encoded string.
// Slice-of-string values become repeated query parameters.
func makeParams(p map[string]any) string {
	params := url.Values{}
	for k, v := range p {
		if s, ok := v.([]string); ok {
			for _, item := range s {
				params.Add(k, item)
			}
		} else {
			params.Add(k, fmt.Sprint(v))
		}
	}
	return params.Encode()
}

func (c *Client) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return &http.Client{Timeout: defaultTimeout}
}

func (c *Client) backoff() BackoffPolicy {
	if c.Backoff.MaxAttempts == 0 {
		return DefaultBackoffPolicy()
	}
	return c.Backoff
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Executes an XRPC query (HTTP GET) against the host and decodes the JSON
// response into out. Throttling and server faults are retried per the
// backoff policy; everything else is terminal.
func (c *Client) Do(ctx context.Context, method string, params map[string]any, out any) error {
	if err := checkHost(c.Host); err != nil {
		return err
	}

	pol := c.backoff()
	throttleAttempts := 0
	faultAttempts := 0
	var lastErr error

	for {
		status, hint, err := c.attempt(ctx, method, params, out)
		if err == nil {
			return nil
		}
		lastErr = err

		// parse failures are structural, never transient
		if errors.Is(err, ErrParse) {
			return lastErr
		}

		var attempts int
		if status == http.StatusTooManyRequests {
			throttleAttempts++
			attempts = throttleAttempts
		} else {
			faultAttempts++
			attempts = faultAttempts
		}

		step := pol.Next(attempts, status, hint)
		switch step.State {
		case StateFailed:
			return lastErr
		case StateExhausted:
			if status == http.StatusTooManyRequests {
				return c.exhausted(lastErr, ErrRateLimited)
			}
			return c.exhausted(lastErr, ErrUnavailable)
		case StateWaiting:
			if err := c.sleep(ctx, step.Wait); err != nil {
				return err
			}
		default:
			return lastErr
		}
	}
}

// wraps the terminal error so callers can match the sentinel with errors.Is
// while keeping the HTTP detail
func (c *Client) exhausted(last error, sentinel error) error {
	var xe *Error
	if errors.As(last, &xe) {
		return &Error{
			StatusCode: xe.StatusCode,
			Wrapped:    fmt.Errorf("%w: %w", sentinel, xe.Wrapped),
			Ratelimit:  xe.Ratelimit,
		}
	}
	return fmt.Errorf("%w: %w", sentinel, last)
}

// Runs one HTTP attempt. Returns the observed status (statusNetworkError
// for transport failures), any 429 retry hint, and the attempt's error.
func (c *Client) attempt(ctx context.Context, method string, params map[string]any, out any) (int, time.Duration, error) {
	var paramStr string
	if len(params) > 0 {
		paramStr = "?" + makeParams(params)
	}
	uri := c.Host + "/xrpc/" + method + paramStr

	req, err := http.NewRequestWithContext(ctx, "GET", uri, nil)
	if err != nil {
		return statusNetworkError, 0, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	} else {
		req.Header.Set("User-Agent", "atpeek/"+versioninfo.Short())
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	start := time.Now()
	c.observeStart("GET", uri, start)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		c.observeEnd(statusNetworkError, time.Since(start))
		return statusNetworkError, 0, &Error{StatusCode: statusNetworkError, Wrapped: err}
	}
	defer resp.Body.Close()
	c.observeEnd(resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		rl := ratelimitFromResponse(resp)
		var xe XRPCError
		wrapped := error(&xe)
		if err := json.NewDecoder(resp.Body).Decode(&xe); err != nil {
			wrapped = fmt.Errorf("status %d with undecodable error body", resp.StatusCode)
		}
		hint := time.Duration(0)
		if rl != nil {
			hint = rl.RetryAfter
		}
		return resp.StatusCode, hint, &Error{StatusCode: resp.StatusCode, Wrapped: wrapped, Ratelimit: rl}
	}

	if out == nil {
		return resp.StatusCode, 0, nil
	}
	// read fully before decoding: a response is only ever applied after
	// complete, successful deserialization
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return statusNetworkError, 0, &Error{StatusCode: statusNetworkError, Wrapped: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, 0, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return resp.StatusCode, 0, nil
}

func ratelimitFromResponse(resp *http.Response) *RatelimitInfo {
	var rl *RatelimitInfo
	if resp.Header.Get("ratelimit-limit") != "" {
		rl = &RatelimitInfo{
			Policy: resp.Header.Get("ratelimit-policy"),
		}
		if n, err := strconv.ParseInt(resp.Header.Get("ratelimit-reset"), 10, 64); err == nil {
			rl.Reset = time.Unix(n, 0)
		}
		if n, err := strconv.ParseInt(resp.Header.Get("ratelimit-limit"), 10, 64); err == nil {
			rl.Limit = int(n)
		}
		if n, err := strconv.ParseInt(resp.Header.Get("ratelimit-remaining"), 10, 64); err == nil {
			rl.Remaining = int(n)
		}
	}
	if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
			if rl == nil {
				rl = &RatelimitInfo{}
			}
			rl.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return rl
}

// observation is best-effort and never a dependency of correctness; recover
// any observer panic, similar to an HTTP server recovering handler panics
func (c *Client) observeStart(method, uri string, ts time.Time) {
	if c.Observer == nil {
		return
	}
	defer func() { recover() }()
	c.Observer.OnRequestStart(method, uri, ts)
}

func (c *Client) observeEnd(status int, dur time.Duration) {
	if c.Observer == nil {
		return
	}
	defer func() { recover() }()
	c.Observer.OnRequestEnd(status, dur)
}
