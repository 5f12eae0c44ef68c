package identity

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-peek/atpeek/atproto/syntax"
)

// DNS resolver with fixed TXT records; anything else is NXDOMAIN
type fakeResolver struct {
	txt map[string][]string
}

func (r fakeResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	if recs, ok := r.txt[name]; ok {
		return recs, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// sends every request to the test server, regardless of requested hostname
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func testDirectory(t *testing.T, srv *httptest.Server, txt map[string][]string) *BaseDirectory {
	t.Helper()
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return &BaseDirectory{
		PLCURL:     srv.URL,
		HTTPClient: &http.Client{Transport: rewriteTransport{target: target}},
		Resolver:   fakeResolver{txt: txt},
	}
}

func TestResolveHandleDNS(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	dir := BaseDirectory{
		Resolver: fakeResolver{txt: map[string][]string{
			"_atproto.alice.example.com": {"other-record", "did=did:plc:abc123"},
		}},
	}

	did, err := dir.ResolveHandle(ctx, syntax.Handle("alice.example.com"))
	assert.NoError(err)
	assert.Equal(syntax.DID("did:plc:abc123"), did)

	// malformed DID in the TXT record is a resolution failure, not a miss
	dir.Resolver = fakeResolver{txt: map[string][]string{
		"_atproto.alice.example.com": {"did=not-a-did"},
	}}
	_, err = dir.ResolveHandle(ctx, syntax.Handle("alice.example.com"))
	assert.ErrorIs(err, ErrHandleResolutionFailed)
}

func TestResolveHandleWellKnownFallback(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/atproto-did" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "did:plc:abc123\n")
	}))
	defer srv.Close()

	dir := testDirectory(t, srv, nil)

	did, err := dir.ResolveHandle(ctx, syntax.Handle("alice.example"))
	assert.NoError(err)
	assert.Equal(syntax.DID("did:plc:abc123"), did)

	// same handle again resolves to the same DID
	again, err := dir.ResolveHandle(ctx, syntax.Handle("alice.example"))
	assert.NoError(err)
	assert.Equal(did, again)
}

func TestResolveHandleNotFound(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dir := testDirectory(t, srv, nil)
	_, err := dir.ResolveHandle(ctx, syntax.Handle("nobody.example"))
	assert.ErrorIs(err, ErrHandleNotFound)
}

func TestResolveHandleGarbageBody(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not a did</html>")
	}))
	defer srv.Close()

	dir := testDirectory(t, srv, nil)
	_, err := dir.ResolveHandle(ctx, syntax.Handle("garbage.example"))
	assert.ErrorIs(err, ErrHandleResolutionFailed)
}

func TestLookupHandle(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/atproto-did", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "did:plc:abc123")
	})
	mux.HandleFunc("/did:plc:abc123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": "did:plc:abc123",
			"alsoKnownAs": ["at://alice.example"],
			"service": [{
				"id": "#atproto_pds",
				"type": "AtprotoPersonalDataServer",
				"serviceEndpoint": "https://pds.example.com"
			}]
		}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := testDirectory(t, srv, nil)

	ident, err := dir.LookupHandle(ctx, syntax.Handle("Alice.Example"))
	assert.NoError(err)
	assert.Equal(syntax.DID("did:plc:abc123"), ident.DID)
	assert.Equal(syntax.Handle("alice.example"), ident.Handle)
	assert.Equal("https://pds.example.com", ident.PDSEndpoint())
}

func TestLookupHandleMismatch(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/atproto-did", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "did:plc:abc123")
	})
	mux.HandleFunc("/did:plc:abc123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "did:plc:abc123", "alsoKnownAs": ["at://someone-else.example"]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := testDirectory(t, srv, nil)
	_, err := dir.LookupHandle(ctx, syntax.Handle("alice.example"))
	assert.ErrorIs(err, ErrHandleMismatch)
}

func TestResolveDIDPLC(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/did:plc:abc123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "did:plc:abc123"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := testDirectory(t, srv, nil)

	doc, err := dir.ResolveDID(ctx, syntax.DID("did:plc:abc123"))
	assert.NoError(err)
	assert.Equal(syntax.DID("did:plc:abc123"), doc.DID)

	_, err = dir.ResolveDID(ctx, syntax.DID("did:plc:missing"))
	assert.ErrorIs(err, ErrDIDNotFound)

	_, err = dir.ResolveDID(ctx, syntax.DID("did:keyish:zAbc"))
	assert.ErrorIs(err, ErrDIDResolutionFailed)
}

func TestResolveDIDInsecurePLCURL(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var dialed bool
	dir := BaseDirectory{
		PLCURL: "http://plc.example.com",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			dialed = true
			return nil, fmt.Errorf("unexpected network call to %s", req.URL)
		})},
	}

	// a plaintext PLC endpoint is rejected before any request is made
	_, err := dir.ResolveDID(ctx, syntax.DID("did:plc:abc123"))
	assert.ErrorIs(err, ErrInsecureURL)
	assert.False(dialed)

	// loopback stays allowed
	dir.PLCURL = "http://127.0.0.1:3999"
	_, err = dir.ResolveDID(ctx, syntax.DID("did:plc:abc123"))
	assert.NotErrorIs(err, ErrInsecureURL)
}
