package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupAuthRoutes injects the user accounts endpoints.
func (api *APIHandler) SetupAuthRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.POST("/v1/auth/register", m.public(api.Register))
	router.POST("/v1/auth/login", m.public(api.Login))
	router.GET("/v1/auth/me", m.withAuth(api.Me))
	router.POST("/v1/auth/logout", m.withAuth(api.Logout))
	return router
}
