package syntax

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	handleRegex = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

	// Sentinel handle value indicating that handle resolution failed.
	HandleInvalid = Handle("handle.invalid")
)

// String type for a syntactically valid atproto handle (domain name).
//
// Always use [ParseHandle] instead of wrapping strings directly, especially
// when working with input. Handles are case-insensitive; compare after
// calling Normalize.
type Handle string

func ParseHandle(raw string) (Handle, error) {
	if raw == "" {
		return "", errors.New("expected handle, got empty string")
	}
	if len(raw) > 253 {
		return "", errors.New("handle is too long (253 chars max)")
	}
	if !strings.Contains(raw, ".") {
		return "", fmt.Errorf("handle must contain at least one dot: %s", raw)
	}
	if !handleRegex.MatchString(raw) {
		return "", fmt.Errorf("handle syntax didn't validate via regex: %s", raw)
	}
	return Handle(raw), nil
}

func (h Handle) Normalize() Handle {
	return Handle(strings.ToLower(string(h)))
}

// Reports whether the top-level domain is usable for atproto handles. The
// syntax of reserved TLDs is valid, but they never resolve on the real
// network ('.test' excepted, for development).
func (h Handle) AllowedTLD() bool {
	switch h.TLD() {
	case "local", "arpa", "invalid", "localhost", "internal", "onion", "alt":
		return false
	}
	return true
}

func (h Handle) TLD() string {
	parts := strings.Split(string(h.Normalize()), ".")
	return parts[len(parts)-1]
}

func (h Handle) IsInvalidHandle() bool {
	return h.Normalize() == HandleInvalid
}

func (h Handle) AtIdentifier() AtIdentifier {
	return AtIdentifier(h)
}

func (h Handle) String() string {
	return string(h)
}

func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Handle) UnmarshalText(text []byte) error {
	handle, err := ParseHandle(string(text))
	if err != nil {
		return err
	}
	*h = handle
	return nil
}
