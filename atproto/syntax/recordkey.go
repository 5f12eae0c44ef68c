package syntax

import (
	"errors"
	"regexp"
)

var recordKeyRegex = regexp.MustCompile(`^[a-zA-Z0-9_~.:-]{1,512}$`)

// String type for a syntactically valid record key, the final path segment
// of an AT-URI.
//
// Always use [ParseRecordKey] instead of wrapping strings directly,
// especially when working with input.
type RecordKey string

func ParseRecordKey(raw string) (RecordKey, error) {
	if raw == "" {
		return "", errors.New("expected record key, got empty string")
	}
	if raw == "." || raw == ".." {
		return "", errors.New("record key can not be '.' or '..'")
	}
	if len(raw) > 512 {
		return "", errors.New("record key is too long (512 chars max)")
	}
	if !recordKeyRegex.MatchString(raw) {
		return "", errors.New("record key syntax didn't validate via regex")
	}
	return RecordKey(raw), nil
}

func (r RecordKey) String() string {
	return string(r)
}

func (r RecordKey) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RecordKey) UnmarshalText(text []byte) error {
	rkey, err := ParseRecordKey(string(text))
	if err != nil {
		return err
	}
	*r = rkey
	return nil
}
