package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/at-peek/atpeek/atproto/syntax"
)

// Interface for identity lookup, by DID or handle.
//
// The Lookup methods resolve the identifier all the way to an Identity,
// including the declared service endpoints. Implementations other than
// direct resolution (API-backed, mock for tests) satisfy the same
// interface.
type Directory interface {
	LookupHandle(ctx context.Context, handle syntax.Handle) (*Identity, error)
	LookupDID(ctx context.Context, did syntax.DID) (*Identity, error)
	Lookup(ctx context.Context, atid syntax.AtIdentifier) (*Identity, error)
}

// Handle was syntactically invalid, in a situation where a valid handle is required.
var ErrInvalidHandle = errors.New("invalid handle")

// Indicates that the handle resolution process failed. A wrapped error may provide more context.
var ErrHandleResolutionFailed = errors.New("handle resolution failed")

// Indicates that resolution completed successfully, but the handle does not exist.
var ErrHandleNotFound = errors.New("handle not found")

// Indicates that resolution completed successfully, but the handle mapped to a different DID.
var ErrHandleMismatch = errors.New("handle/DID mismatch")

// Indicates that the DID does not exist.
var ErrDIDNotFound = errors.New("DID not found")

// Indicates that the DID resolution process failed. A wrapped error may provide more context.
var ErrDIDResolutionFailed = errors.New("DID resolution failed")

// Indicates that the identity resolved, but the DID document declared no repository service endpoint.
var ErrServiceNotFound = errors.New("no repository service declared for identity")

// Indicates a configured endpoint URL is not HTTPS. Checked before any
// network call; loopback addresses are exempt so tests and local
// development servers work.
var ErrInsecureURL = errors.New("endpoint must use https")

var DefaultPLCURL = "https://plc.directory"

// Returns a reasonable Directory implementation for applications doing
// direct resolution.
func DefaultDirectory() Directory {
	return &BaseDirectory{
		PLCURL:     DefaultPLCURL,
		HTTPClient: RobustHTTPClient(),
		Resolver: &net.Resolver{
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				d := net.Dialer{Timeout: time.Second * 3}
				return d.DialContext(ctx, network, address)
			},
		},
		// main Bluesky PDS host only supports the HTTP resolution method
		SkipDNSDomainSuffixes: []string{".bsky.social"},
		PLCLimiter:            rate.NewLimiter(rate.Limit(20), 20),
	}
}

// interface for the DNS TXT lookups done during handle resolution. A
// *net.Resolver satisfies it; tests can substitute a fake.
type DNSResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

var _ DNSResolver = (*net.Resolver)(nil)

// Directly resolves on every call. The zero value is usable with default
// HTTP client and system DNS resolver.
type BaseDirectory struct {
	// should have URL method, hostname, and optional port; no path or trailing slash
	PLCURL string
	// if non-nil, rate-limits requests to the PLC directory
	PLCLimiter *rate.Limiter
	// HTTP client used for did:web, did:plc, and well-known handle resolution
	HTTPClient *http.Client
	// DNS resolver used for TXT handle resolution
	Resolver DNSResolver
	// handle domain suffixes for which DNS resolution is skipped entirely
	SkipDNSDomainSuffixes []string
	UserAgent             string
}

var _ Directory = (*BaseDirectory)(nil)

func (d *BaseDirectory) LookupHandle(ctx context.Context, h syntax.Handle) (*Identity, error) {
	h = h.Normalize()
	did, err := d.ResolveHandle(ctx, h)
	if err != nil {
		return nil, err
	}
	doc, err := d.ResolveDID(ctx, did)
	if err != nil {
		return nil, err
	}
	ident := ParseIdentity(doc)
	declared, err := ident.DeclaredHandle()
	if err != nil {
		return nil, err
	}
	if declared != h {
		return nil, ErrHandleMismatch
	}
	ident.Handle = declared
	return &ident, nil
}

func (d *BaseDirectory) LookupDID(ctx context.Context, did syntax.DID) (*Identity, error) {
	doc, err := d.ResolveDID(ctx, did)
	if err != nil {
		return nil, err
	}
	ident := ParseIdentity(doc)
	declared, err := ident.DeclaredHandle()
	if err != nil {
		// identity with no declared handle is still usable by DID
		ident.Handle = syntax.HandleInvalid
		return &ident, nil
	}
	resolvedDID, err := d.ResolveHandle(ctx, declared)
	if err != nil || resolvedDID != did {
		ident.Handle = syntax.HandleInvalid
	} else {
		ident.Handle = declared
	}
	return &ident, nil
}

func (d *BaseDirectory) Lookup(ctx context.Context, a syntax.AtIdentifier) (*Identity, error) {
	handle, err := a.AsHandle()
	if nil == err { // if *not* an error
		return d.LookupHandle(ctx, handle)
	}
	did, err := a.AsDID()
	if nil == err { // if *not* an error
		return d.LookupDID(ctx, did)
	}
	return nil, ErrInvalidHandle
}

func (d *BaseDirectory) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return http.DefaultClient
}

// https-only rule for configurable endpoint URLs, applied before any request
// is built
func checkSecureURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
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
	return fmt.Errorf("%w: %s", ErrInsecureURL, raw)
}
