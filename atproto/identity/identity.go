package identity

import (
	"strings"

	"github.com/at-peek/atpeek/atproto/syntax"
)

// Compact summary of a resolved identity: the DID, the declared handle, and
// any declared service endpoints.
type Identity struct {
	DID    syntax.DID
	Handle syntax.Handle

	AlsoKnownAs []string
	Services    map[string]Service
}

type Service struct {
	Type string
	URL  string
}

// Extracts the identity fields from a DID document. Does not do any
// bi-directional handle verification; the Handle field is left unset.
func ParseIdentity(doc *DIDDocument) Identity {
	svc := make(map[string]Service, len(doc.Service))
	for _, s := range doc.Service {
		if !strings.HasPrefix(s.ID, "#") {
			continue
		}
		// ignore duplicate IDs; first declaration wins
		if _, ok := svc[s.ID[1:]]; ok {
			continue
		}
		svc[s.ID[1:]] = Service{Type: s.Type, URL: s.ServiceEndpoint}
	}
	return Identity{
		DID:         doc.DID,
		AlsoKnownAs: doc.AlsoKnownAs,
		Services:    svc,
	}
}

// The handle declared in the DID document's alsoKnownAs list, as an at://
// URI. Returns an error if none was declared or the declared value is not a
// valid handle.
func (i *Identity) DeclaredHandle() (syntax.Handle, error) {
	for _, aka := range i.AlsoKnownAs {
		rest, ok := strings.CutPrefix(aka, "at://")
		if !ok || strings.Contains(rest, "/") {
			continue
		}
		handle, err := syntax.ParseHandle(rest)
		if err == nil {
			return handle.Normalize(), nil
		}
	}
	return "", ErrHandleNotDeclared
}

// The declared endpoint URL of the account's repository host (PDS), or
// empty string if the DID document declares none.
func (i *Identity) PDSEndpoint() string {
	return i.GetServiceEndpoint("atproto_pds", "AtprotoPersonalDataServer")
}

// The declared endpoint URL of the account's labeler service, or empty
// string if the DID document declares none.
func (i *Identity) LabelerEndpoint() string {
	return i.GetServiceEndpoint("atproto_labeler", "AtprotoLabeler")
}

// Looks up a service endpoint by fragment ID, falling back to a scan for
// the declared type.
func (i *Identity) GetServiceEndpoint(id, svcType string) string {
	if svc, ok := i.Services[id]; ok && svc.Type == svcType {
		return svc.URL
	}
	for _, svc := range i.Services {
		if svc.Type == svcType {
			return svc.URL
		}
	}
	return ""
}
