package main

import (
	"github.com/julienschmidt/httprouter"
)

// MiddlewareMap contains middlwares chain to use for public-facing
// and ops requests. The auth wrapper guards the routes which
// require an authenticated user.
type MiddlewareMap struct {
	public func(httprouter.Handle) httprouter.Handle
	ops    func(httprouter.Handle) httprouter.Handle
	auth   func(httprouter.Handle) httprouter.Handle
}

// withAuth chains the auth wrapper inside the public chain.
func (m *MiddlewareMap) withAuth(h httprouter.Handle) httprouter.Handle {
	if m.auth == nil {
		return m.public(h)
	}
	return m.public(m.auth(h))
}
