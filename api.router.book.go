package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupBookRoutes injects book related the api endpoints. Reads are
// public while any change to a book requires an authenticated user.
func (api *APIHandler) SetupBookRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.GET("/", m.public(api.Index))
	router.GET("/status", m.public(api.Status))
	router.GET("/v1/books", m.public(api.GetAllBooks))
	router.GET("/v1/books/:id", m.public(api.GetOneBook))
	router.GET("/v1/isbn/:isbn", m.public(api.GetBookByISBN))

	router.POST("/v1/books", m.withAuth(api.CreateBook))
	router.PATCH("/v1/books/:id", m.withAuth(api.UpdateBook))
	router.PUT("/v1/books/:id", m.withAuth(api.UpdateBook))
	router.DELETE("/v1/books/:id", m.withAuth(api.DeleteOneBook))
	router.POST("/v1/books/:id/borrow", m.withAuth(api.BorrowBook))
	router.POST("/v1/books/:id/return", m.withAuth(api.ReturnBook))
	return router
}
