// Package identity resolves connection attempts to a stable user identity.
// The chat core never authenticates; it only consumes the resolved result.
package identity

import "net/http"

// Anonymous is the sentinel identity for unauthenticated connections.
const Anonymous = "Anonymous User"

// Identity is the result of resolving a connection attempt.
type Identity struct {
	Name          string
	Authenticated bool
}

// Provider resolves an inbound HTTP request to an Identity. Implementations
// must return the anonymous identity rather than an error when resolution
// fails; whether anonymous connections are admitted is policy, not auth.
type Provider interface {
	Resolve(r *http.Request) Identity
}

// anonymous is what every provider falls back to.
func anonymous() Identity {
	return Identity{Name: Anonymous, Authenticated: false}
}

// QueryProvider trusts a query parameter to carry the username. Intended for
// development and tests, where an upstream proxy or nothing at all performs
// authentication.
type QueryProvider struct {
	Param string
}

// NewQueryProvider creates a QueryProvider reading the given parameter.
func NewQueryProvider(param string) *QueryProvider {
	if param == "" {
		param = "username"
	}
	return &QueryProvider{Param: param}
}

// Resolve returns the identity named by the query parameter, or the
// anonymous identity if the parameter is absent or empty.
func (p *QueryProvider) Resolve(r *http.Request) Identity {
	name := r.URL.Query().Get(p.Param)
	if name == "" {
		return anonymous()
	}
	return Identity{Name: name, Authenticated: true}
}
