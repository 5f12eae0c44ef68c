// Package syntax provides string types for the identifier formats the label
// engine works with: handles, DIDs, AT-URIs, NSIDs, record keys, and
// datetimes.
//
// These are thin validated string aliases. They check protocol-level syntax
// only; resolution and application policy checks live elsewhere.
package syntax
