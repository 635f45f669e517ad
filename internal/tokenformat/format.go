// Package tokenformat implements the two token serialization paths
// described by the server's TokenFormat capability: an opaque
// symmetrically-encrypted blob (the default for authorization codes,
// refresh tokens, and access tokens unless a signing handler is
// configured) and a signed JWT (used for identity tokens always, and
// for access tokens when a handler is configured).
package tokenformat

import "github.com/hooklift/oidc/types"

// Format protects a ticket into its wire representation and reverses
// the operation. Protect/Unprotect are the data-format
// protect/unprotect referenced throughout the design: the JWT path is
// one implementation, opaque symmetric encryption another.
type Format interface {
	Protect(ticket *types.Ticket) (string, error)
	Unprotect(data string, expectedUsage types.Usage) (*types.Ticket, error)
}
