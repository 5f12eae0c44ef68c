package syntax

import (
	"fmt"
	"strings"
)

// String type for a syntactically valid AT-URI referencing a single record:
// "at://<authority>/<collection>/<rkey>".
//
// Unlike the general protocol syntax, a bare authority or
// authority+collection form is rejected here: the engine only ever refers
// to concrete records, so all three segments must be present and non-empty.
//
// Always use [ParseATURI] instead of wrapping strings directly, especially
// when working with input.
type ATURI string

func ParseATURI(raw string) (ATURI, error) {
	if raw == "" {
		return "", fmt.Errorf("expected AT-URI, got empty string")
	}
	if len(raw) > 8192 {
		return "", fmt.Errorf("AT-URI is too long (8192 chars max)")
	}
	rest, ok := strings.CutPrefix(raw, "at://")
	if !ok {
		return "", fmt.Errorf("AT-URI must start with at://: %s", raw)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return "", fmt.Errorf("AT-URI must have authority, collection, and record key segments: %s", raw)
	}
	if _, err := ParseAtIdentifier(parts[0]); err != nil {
		return "", fmt.Errorf("AT-URI authority segment neither a DID nor a handle: %s", parts[0])
	}
	if _, err := ParseNSID(parts[1]); err != nil {
		return "", fmt.Errorf("AT-URI collection segment not an NSID: %s", parts[1])
	}
	if _, err := ParseRecordKey(parts[2]); err != nil {
		return "", fmt.Errorf("AT-URI record key segment invalid: %s", parts[2])
	}
	return ATURI(raw), nil
}

func (u ATURI) Authority() AtIdentifier {
	parts := strings.SplitN(string(u), "/", 4)
	if len(parts) < 3 {
		return ""
	}
	return AtIdentifier(parts[2])
}

func (u ATURI) Collection() NSID {
	parts := strings.SplitN(string(u), "/", 5)
	if len(parts) < 4 {
		return ""
	}
	return NSID(parts[3])
}

func (u ATURI) RecordKey() RecordKey {
	parts := strings.SplitN(string(u), "/", 5)
	if len(parts) < 5 {
		return ""
	}
	return RecordKey(parts[4])
}

func (u ATURI) Normalize() ATURI {
	auth := u.Authority()
	coll := u.Collection()
	rkey := u.RecordKey()
	if auth == "" || coll == "" || rkey == "" {
		// invalid AT-URI; leave as-is
		return u
	}
	return ATURI("at://" + auth.Normalize().String() + "/" + coll.Normalize().String() + "/" + rkey.String())
}

func (u ATURI) String() string {
	return string(u)
}

func (u ATURI) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *ATURI) UnmarshalText(text []byte) error {
	aturi, err := ParseATURI(string(text))
	if err != nil {
		return err
	}
	*u = aturi
	return nil
}
