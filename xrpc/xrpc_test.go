package xrpc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMakeParams tests the makeParams function.
func TestMakeParams(t *testing.T) {
	testCases := []struct {
		name     string
		input    map[string]any
		expected string
	}{
		{
			name:     "empty input",
			input:    map[string]any{},
			expected: "",
		},
		{
			name: "single value",
			input: map[string]any{
				"key": "value",
			},
			expected: "key=value",
		},
		{
			name: "numeric value",
			input: map[string]any{
				"limit": 50,
			},
			expected: "limit=50",
		},
		{
			name: "slice of strings becomes repeated params",
			input: map[string]any{
				"uriPatterns": []string{"at://a/b/c", "did:plc:xyz"},
			},
			expected: "uriPatterns=at%3A%2F%2Fa%2Fb%2Fc&uriPatterns=did%3Aplc%3Axyz",
		},
		{
			name: "mixed values",
			input: map[string]any{
				"cursor": "abc",
				"subs":   []string{"one", "two"},
			},
			expected: "cursor=abc&subs=one&subs=two",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := makeParams(tc.input)
			if result != tc.expected {
				t.Errorf("got %q, want %q", result, tc.expected)
			}
		})
	}
}

func TestCheckHost(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(checkHost("https://mod.bsky.app"))
	assert.NoError(checkHost("http://localhost:8080"))
	assert.NoError(checkHost("http://127.0.0.1:3999"))

	assert.ErrorIs(checkHost("http://example.com"), ErrInsecureHost)
	assert.ErrorIs(checkHost("ftp://example.com"), ErrInsecureHost)
}

// observer that records every attempt
type countingObserver struct {
	mu       sync.Mutex
	starts   int
	statuses []int
}

func (o *countingObserver) OnRequestStart(method, url string, ts time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
}

func (o *countingObserver) OnRequestEnd(status int, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func testClient(t *testing.T, srv *httptest.Server) (*Client, *countingObserver, *time.Duration) {
	t.Helper()
	obs := &countingObserver{}
	var slept time.Duration
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	c.Observer = obs
	c.Sleep = func(ctx context.Context, d time.Duration) error {
		slept += d
		return nil
	}
	return c, obs, &slept
}

func TestDoThrottledThenSuccess(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":"RateLimitExceeded","message":"slow down"}`)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c, obs, slept := testClient(t, srv)

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.Do(ctx, "com.example.query", nil, &out)
	assert.NoError(err)
	assert.True(out.OK)

	// exactly 3 attempts observed, waits honored the 1s server hint twice
	assert.Equal(3, obs.starts)
	assert.Equal([]int{429, 429, 200}, obs.statuses)
	assert.GreaterOrEqual(*slept, 2*time.Second)
}

func TestDoRateLimitExhausted(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"RateLimitExceeded","message":"slow down"}`)
	}))
	defer srv.Close()

	c, obs, _ := testClient(t, srv)

	err := c.Do(ctx, "com.example.query", nil, nil)
	assert.ErrorIs(err, ErrRateLimited)

	var xe *Error
	assert.ErrorAs(err, &xe)
	assert.Equal(429, xe.StatusCode)
	assert.True(xe.IsThrottled())
	if assert.NotNil(xe.Ratelimit) {
		assert.Equal(time.Second, xe.Ratelimit.RetryAfter)
	}

	// attempts never exceed the configured cap
	assert.Equal(c.Backoff.MaxAttempts, obs.starts)
}

func TestDoServerFaultExhausted(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, obs, _ := testClient(t, srv)

	err := c.Do(ctx, "com.example.query", nil, nil)
	assert.ErrorIs(err, ErrUnavailable)
	assert.Equal(c.Backoff.MaxAttempts, obs.starts)
}

func TestDoParseErrorNotRetried(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"labels": [truncated`)
	}))
	defer srv.Close()

	c, obs, _ := testClient(t, srv)

	var out map[string]any
	err := c.Do(ctx, "com.example.query", nil, &out)
	assert.ErrorIs(err, ErrParse)
	assert.Equal(1, obs.starts)
}

func TestDoPlainClientErrorNotRetried(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"InvalidRequest","message":"bad params"}`)
	}))
	defer srv.Close()

	c, obs, _ := testClient(t, srv)

	err := c.Do(ctx, "com.example.query", nil, nil)
	var xe *Error
	assert.ErrorAs(err, &xe)
	assert.Equal(400, xe.StatusCode)
	assert.Equal(1, obs.starts)
}

func TestDoInsecureHostRejected(t *testing.T) {
	assert := assert.New(t)

	c := &Client{Host: "http://labeler.example.com"}
	err := c.Do(context.Background(), "com.example.query", nil, nil)
	assert.ErrorIs(err, ErrInsecureHost)
}

func TestDoRepeatedQueryParams(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var gotPatterns []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPatterns = r.URL.Query()["uriPatterns"]
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c, _, _ := testClient(t, srv)

	var out map[string]any
	err := c.Do(ctx, "com.atproto.label.queryLabels", map[string]any{
		"uriPatterns": []string{"did:plc:a", "at://did:plc:a/app.bsky.feed.post/1"},
	}, &out)
	assert.NoError(err)
	assert.Equal([]string{"did:plc:a", "at://did:plc:a/app.bsky.feed.post/1"}, gotPatterns)
}

func TestObserverPanicIgnored(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	assert.NoError(err)
	c.Observer = panickyObserver{}

	var out map[string]any
	assert.NoError(c.Do(ctx, "com.example.query", nil, &out))
}

type panickyObserver struct{}

func (panickyObserver) OnRequestStart(method, url string, ts time.Time) { panic("boom") }
func (panickyObserver) OnRequestEnd(status int, dur time.Duration)      { panic("boom") }
