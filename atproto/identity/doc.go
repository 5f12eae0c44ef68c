/*
Package identity resolves handles and DIDs from the network.

The main abstractions are the Directory interface, and the Identity struct
holding the resolved DID, handle, and declared service endpoints. The
BaseDirectory implementation does direct resolution on every call: DNS TXT
lookup with HTTPS well-known fallback for handles, then a method-specific
DID document fetch. Resolution failures are terminal; callers decide
whether to retry.
*/
package identity
