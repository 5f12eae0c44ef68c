package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/at-peek/atpeek/atproto/syntax"
)

// maximum response size accepted from the well-known resolution route
const wellKnownMaxBytes = 2048

// Resolves a handle to a DID. Tries a DNS TXT record on
// "_atproto.<handle>" first, then falls back to fetching
// "https://<handle>/.well-known/atproto-did".
//
// Does not cross-verify against the DID document; the Lookup methods do
// that.
func (d *BaseDirectory) ResolveHandle(ctx context.Context, handle syntax.Handle) (syntax.DID, error) {
	start := nowFunc()
	did, method, err := d.resolveHandle(ctx, handle)
	handleResolution.WithLabelValues(method, outcomeLabel(err)).Inc()
	handleResolutionDuration.WithLabelValues(method, outcomeLabel(err)).Observe(nowFunc().Sub(start).Seconds())
	return did, err
}

func (d *BaseDirectory) resolveHandle(ctx context.Context, handle syntax.Handle) (syntax.DID, string, error) {
	if handle.IsInvalidHandle() {
		return "", "none", ErrInvalidHandle
	}

	if !d.skipDNS(handle) {
		did, dnsErr := d.resolveHandleDNS(ctx, handle)
		if dnsErr == nil {
			return did, "dns", nil
		}
	}

	did, err := d.resolveHandleWellKnown(ctx, handle)
	if err != nil {
		return "", "wellknown", err
	}
	return did, "wellknown", nil
}

func (d *BaseDirectory) skipDNS(handle syntax.Handle) bool {
	for _, suffix := range d.SkipDNSDomainSuffixes {
		if strings.HasSuffix(handle.String(), suffix) {
			return true
		}
	}
	return false
}

func (d *BaseDirectory) resolveHandleDNS(ctx context.Context, handle syntax.Handle) (syntax.DID, error) {
	resolver := d.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	records, err := resolver.LookupTXT(ctx, "_atproto."+handle.String())
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return "", ErrHandleNotFound
		}
		return "", fmt.Errorf("%w: DNS TXT lookup: %w", ErrHandleResolutionFailed, err)
	}
	for _, rec := range records {
		val, ok := strings.CutPrefix(strings.Trim(rec, "\""), "did=")
		if !ok {
			continue
		}
		did, err := syntax.ParseDID(val)
		if err != nil {
			return "", fmt.Errorf("%w: invalid DID in handle DNS record: %w", ErrHandleResolutionFailed, err)
		}
		return did, nil
	}
	return "", ErrHandleNotFound
}

func (d *BaseDirectory) resolveHandleWellKnown(ctx context.Context, handle syntax.Handle) (syntax.DID, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", "https://"+handle.String()+"/.well-known/atproto-did", nil)
	if err != nil {
		return "", err
	}
	d.setUserAgent(req)

	resp, err := d.httpClient().Do(req)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return "", ErrHandleNotFound
		}
		return "", fmt.Errorf("%w: well-known fetch: %w", ErrHandleResolutionFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", ErrHandleNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: well-known route status %d", ErrHandleResolutionFailed, resp.StatusCode)
	}
	if resp.ContentLength > wellKnownMaxBytes {
		return "", fmt.Errorf("%w: well-known route returned too much data", ErrHandleResolutionFailed)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, wellKnownMaxBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading well-known response: %w", ErrHandleResolutionFailed, err)
	}
	did, err := syntax.ParseDID(strings.TrimSpace(string(b)))
	if err != nil {
		return "", fmt.Errorf("%w: well-known body not a DID: %w", ErrHandleResolutionFailed, err)
	}
	return did, nil
}
