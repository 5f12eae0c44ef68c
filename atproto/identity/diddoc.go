package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/at-peek/atpeek/atproto/syntax"
)

// Indicates that the DID document declared no handle ("alsoKnownAs").
var ErrHandleNotDeclared = errors.New("DID document did not declare a handle")

type DIDDocument struct {
	DID         syntax.DID   `json:"id"`
	AlsoKnownAs []string     `json:"alsoKnownAs,omitempty"`
	Service     []DocService `json:"service,omitempty"`
}

type DocService struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

// Fetches and parses the DID document for the supported DID methods. This
// does *not* bi-directionally verify the declared handle; use the Lookup
// methods for that.
func (d *BaseDirectory) ResolveDID(ctx context.Context, did syntax.DID) (*DIDDocument, error) {
	start := nowFunc()
	doc, err := d.resolveDID(ctx, did)
	didResolution.WithLabelValues(did.Method(), outcomeLabel(err)).Inc()
	didResolutionDuration.WithLabelValues(did.Method(), outcomeLabel(err)).Observe(nowFunc().Sub(start).Seconds())
	return doc, err
}

func (d *BaseDirectory) resolveDID(ctx context.Context, did syntax.DID) (*DIDDocument, error) {
	switch did.Method() {
	case "plc":
		return d.resolveDIDPLC(ctx, did)
	case "web":
		return d.resolveDIDWeb(ctx, did)
	default:
		return nil, fmt.Errorf("%w: unsupported DID method: %s", ErrDIDResolutionFailed, did.Method())
	}
}

func (d *BaseDirectory) resolveDIDPLC(ctx context.Context, did syntax.DID) (*DIDDocument, error) {
	plcURL := d.PLCURL
	if plcURL == "" {
		plcURL = DefaultPLCURL
	}
	if err := checkSecureURL(plcURL); err != nil {
		return nil, err
	}
	if d.PLCLimiter != nil {
		if err := d.PLCLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", plcURL+"/"+did.String(), nil)
	if err != nil {
		return nil, err
	}
	d.setUserAgent(req)
	resp, err := d.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: PLC directory lookup: %w", ErrDIDResolutionFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrDIDNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: PLC directory status %d", ErrDIDResolutionFailed, resp.StatusCode)
	}

	var doc DIDDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: parsing did:plc document: %w", ErrDIDResolutionFailed, err)
	}
	return &doc, nil
}

func (d *BaseDirectory) resolveDIDWeb(ctx context.Context, did syntax.DID) (*DIDDocument, error) {
	hostname := did.Identifier()
	handle, err := syntax.ParseHandle(hostname)
	if err != nil {
		return nil, fmt.Errorf("%w: did:web identifier not a simple hostname: %s", ErrDIDResolutionFailed, hostname)
	}
	if !handle.AllowedTLD() {
		return nil, fmt.Errorf("%w: did:web hostname has disallowed TLD: %s", ErrDIDResolutionFailed, hostname)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", "https://"+hostname+"/.well-known/did.json", nil)
	if err != nil {
		return nil, err
	}
	d.setUserAgent(req)
	resp, err := d.httpClient().Do(req)
	// NXDOMAIN means the DID does not exist, not that resolution failed
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return nil, ErrDIDNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: did:web well-known fetch: %w", ErrDIDResolutionFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrDIDNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: did:web well-known status %d", ErrDIDResolutionFailed, resp.StatusCode)
	}

	var doc DIDDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: parsing did:web document: %w", ErrDIDResolutionFailed, err)
	}
	return &doc, nil
}

func (d *BaseDirectory) setUserAgent(req *http.Request) {
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}
}
