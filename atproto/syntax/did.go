package syntax

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var didRegex = regexp.MustCompile(`^did:[a-z]+:[a-zA-Z0-9._:%-]*[a-zA-Z0-9._-]$`)

// String type for a syntactically valid DID: the canonical, stable account
// identifier produced by resolution.
//
// Always use [ParseDID] instead of wrapping strings directly, especially
// when working with input.
type DID string

func ParseDID(raw string) (DID, error) {
	if raw == "" {
		return "", errors.New("expected DID, got empty string")
	}
	if len(raw) > 2048 {
		return "", errors.New("DID is too long (2048 chars max)")
	}
	if !didRegex.MatchString(raw) {
		return "", fmt.Errorf("DID syntax didn't validate via regex: %s", raw)
	}
	return DID(raw), nil
}

// The method segment of the DID (eg, "plc" or "web"), normalized to
// lower-case.
func (d DID) Method() string {
	parts := strings.SplitN(string(d), ":", 3)
	if len(parts) < 2 {
		// impossible for a parsed DID; avoid out-of-bounds anyway
		return ""
	}
	return strings.ToLower(parts[1])
}

// The final opaque identifier segment of the DID.
func (d DID) Identifier() string {
	parts := strings.SplitN(string(d), ":", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// Lower-cases the "did:<method>:" prefix. The opaque identifier segment is
// left untouched; equality of normalized DIDs is exact string match.
func (d DID) Normalize() DID {
	parts := strings.SplitN(string(d), ":", 3)
	if len(parts) < 3 {
		return d
	}
	return DID("did:" + strings.ToLower(parts[1]) + ":" + parts[2])
}

func (d DID) AtIdentifier() AtIdentifier {
	return AtIdentifier(d)
}

func (d DID) String() string {
	return string(d)
}

func (d DID) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DID) UnmarshalText(text []byte) error {
	did, err := ParseDID(string(text))
	if err != nil {
		return err
	}
	*d = did
	return nil
}
