package syntax

import (
	"errors"
	"strings"
)

// Union string type for a Handle or a DID: the two forms an account subject
// can take.
type AtIdentifier string

func ParseAtIdentifier(raw string) (AtIdentifier, error) {
	if raw == "" {
		return "", errors.New("expected account identifier, got empty string")
	}
	if strings.HasPrefix(raw, "did:") {
		did, err := ParseDID(raw)
		if err != nil {
			return "", err
		}
		return AtIdentifier(did), nil
	}
	handle, err := ParseHandle(raw)
	if err != nil {
		return "", err
	}
	return AtIdentifier(handle), nil
}

func (a AtIdentifier) IsDID() bool {
	return strings.HasPrefix(string(a), "did:")
}

func (a AtIdentifier) IsHandle() bool {
	return a != "" && !a.IsDID()
}

func (a AtIdentifier) AsDID() (DID, error) {
	if !a.IsDID() {
		return "", errors.New("identifier is not a DID")
	}
	return DID(a), nil
}

func (a AtIdentifier) AsHandle() (Handle, error) {
	if !a.IsHandle() {
		return "", errors.New("identifier is not a handle")
	}
	return Handle(a), nil
}

func (a AtIdentifier) Normalize() AtIdentifier {
	if a.IsHandle() {
		return AtIdentifier(Handle(a).Normalize())
	}
	return AtIdentifier(DID(a).Normalize())
}

func (a AtIdentifier) String() string {
	return string(a)
}

func (a AtIdentifier) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AtIdentifier) UnmarshalText(text []byte) error {
	atid, err := ParseAtIdentifier(string(text))
	if err != nil {
		return err
	}
	*a = atid
	return nil
}
