package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// CreateBook godoc
// @Summary      Create a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        book  body      BookInput  true  "book to create"
// @Success      201   {object}  APIResponse
// @Failure      400   {object}  APIError
// @Failure      409   {object}  APIError
// @Router       /v1/books [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input BookInput
	if err := DecodeRequestBody(r, &input); err != nil {
		api.sendError(w, r, "failed to create the book", &ValidationError{Field: "body", Message: err.Error()})
		return
	}

	book, err := api.bookService.Create(r.Context(), input)
	if err != nil {
		api.sendError(w, r, "failed to create the book", err, api.userField(r))
		return
	}
	api.logger.Info("success to create book",
		zap.Uint("book.id", book.ID),
		zap.String("request.id", GetValueFromContext(r.Context(), ContextRequestID)),
		api.userField(r),
	)
	api.sendResponse(w, r, http.StatusCreated, "Book created successfully.", nil, book)
}

// GetAllBooks godoc
// @Summary      List books
// @Description  Without filter the books are paged by offset and limit. The q, author and available filters are exclusive in that order.
// @Tags         books
// @Produce      json
// @Param        q          query     string  false  "title or author substring"
// @Param        author     query     string  false  "author substring"
// @Param        available  query     bool    false  "availability"
// @Param        offset     query     int     false  "offset"
// @Param        limit      query     int     false  "limit"
// @Success      200        {object}  APIResponse
// @Failure      400        {object}  APIError
// @Router       /v1/books [get]
//
//nolint:bodyclose
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	// listing may take longer than a single book operation.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(api.config.Server.LongRequestWriteTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		api.logger.Error("http: failed to update the write deadline", zap.String("request.id", requestID), zap.Error(err))
	}

	q := r.URL.Query()
	var books []Book
	var err error
	switch {
	case q.Has("q"):
		books, err = api.bookService.Search(r.Context(), q.Get("q"))
	case q.Has("author"):
		books, err = api.bookService.SearchByAuthor(r.Context(), q.Get("author"))
	case q.Has("available"):
		var available bool
		available, err = strconv.ParseBool(q.Get("available"))
		if err != nil {
			err = &ValidationError{Field: "available", Message: "must be true or false"}
			break
		}
		if available {
			books, err = api.bookService.ListAvailable(r.Context())
		} else {
			books, err = api.bookService.ListBorrowed(r.Context())
		}
	default:
		var offset, limit int
		if offset, err = queryInt(q.Get("offset"), "offset"); err != nil {
			break
		}
		if limit, err = queryInt(q.Get("limit"), "limit"); err != nil {
			break
		}
		books, err = api.bookService.List(r.Context(), offset, limit)
	}

	if err != nil {
		api.sendError(w, r, "failed to get books", err)
		return
	}
	api.logger.Info("success to get books", zap.String("request.id", requestID), zap.Int("count", len(books)))
	total := len(books)
	api.sendResponse(w, r, http.StatusOK, "Books fetched successfully.", &total, books)
}

// GetOneBook godoc
// @Summary      Get a book by id
// @Tags         books
// @Produce      json
// @Param        id   path      int  true  "book id"
// @Success      200  {object}  APIResponse
// @Failure      400  {object}  APIError
// @Failure      404  {object}  APIError
// @Router       /v1/books/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := GetBookIDFromParams(ps)
	if err != nil {
		api.sendError(w, r, "book id provided is not valid", err, zap.String("book.id", ps.ByName("id")))
		return
	}
	book, err := api.bookService.GetByID(r.Context(), id)
	if err != nil {
		api.sendError(w, r, "failed to get the book", err, zap.Uint("book.id", id))
		return
	}
	api.sendResponse(w, r, http.StatusOK, "Book fetched successfully.", nil, book)
}

// GetBookByISBN godoc
// @Summary      Get a book by isbn
// @Tags         books
// @Produce      json
// @Param        isbn  path      string  true  "book isbn"
// @Success      200   {object}  APIResponse
// @Failure      404   {object}  APIError
// @Router       /v1/isbn/{isbn} [get]
func (api *APIHandler) GetBookByISBN(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	isbn := ps.ByName("isbn")
	book, err := api.bookService.GetByISBN(r.Context(), isbn)
	if err != nil {
		api.sendError(w, r, "failed to get the book", err, zap.String("book.isbn", isbn))
		return
	}
	api.sendResponse(w, r, http.StatusOK, "Book fetched successfully.", nil, book)
}

// UpdateBook godoc
// @Summary      Update a book
// @Description  Only the provided fields are changed. An empty isbn clears it.
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int        true  "book id"
// @Param        book  body      BookPatch  true  "fields to change"
// @Success      200   {object}  APIResponse
// @Failure      400   {object}  APIError
// @Failure      404   {object}  APIError
// @Failure      409   {object}  APIError
// @Router       /v1/books/{id} [patch]
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := GetBookIDFromParams(ps)
	if err != nil {
		api.sendError(w, r, "book id provided is not valid", err, zap.String("book.id", ps.ByName("id")))
		return
	}

	var patch BookPatch
	if err = DecodeRequestBody(r, &patch); err != nil {
		api.sendError(w, r, "failed to update the book", &ValidationError{Field: "body", Message: err.Error()}, zap.Uint("book.id", id))
		return
	}

	book, err := api.bookService.Update(r.Context(), id, patch)
	if err != nil {
		api.sendError(w, r, "failed to update the book", err, zap.Uint("book.id", id), api.userField(r))
		return
	}
	api.logger.Info("success to update book",
		zap.Uint("book.id", id),
		zap.String("request.id", GetValueFromContext(r.Context(), ContextRequestID)),
		api.userField(r),
	)
	api.sendResponse(w, r, http.StatusOK, "Book updated successfully.", nil, book)
}

// DeleteOneBook godoc
// @Summary      Delete a book
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "book id"
// @Success      200  {object}  APIResponse
// @Failure      404  {object}  APIError
// @Router       /v1/books/{id} [delete]
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := GetBookIDFromParams(ps)
	if err != nil {
		api.sendError(w, r, "book id provided is not valid", err, zap.String("book.id", ps.ByName("id")))
		return
	}

	deleted, err := api.bookService.Delete(r.Context(), id)
	if err == nil && !deleted {
		err = ErrBookNotFound
	}
	if err != nil {
		api.sendError(w, r, "failed to delete the book", err, zap.Uint("book.id", id), api.userField(r))
		return
	}
	api.logger.Info("success to delete book",
		zap.Uint("book.id", id),
		zap.String("request.id", GetValueFromContext(r.Context(), ContextRequestID)),
		api.userField(r),
	)
	api.sendResponse(w, r, http.StatusOK, "Book deleted successfully.", nil, map[string]uint{"id": id})
}

// BorrowBook godoc
// @Summary      Borrow a book
// @Description  The book is lent for 7 days.
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "book id"
// @Success      200  {object}  APIResponse
// @Failure      404  {object}  APIError
// @Failure      409  {object}  APIError
// @Router       /v1/books/{id}/borrow [post]
func (api *APIHandler) BorrowBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := GetBookIDFromParams(ps)
	if err != nil {
		api.sendError(w, r, "book id provided is not valid", err, zap.String("book.id", ps.ByName("id")))
		return
	}

	book, err := api.bookService.Borrow(r.Context(), id)
	if err != nil {
		api.sendError(w, r, "failed to borrow the book", err, zap.Uint("book.id", id), api.userField(r))
		return
	}
	api.logger.Info("success to borrow book",
		zap.Uint("book.id", id),
		zap.Bool("book.borrowed", book.IsBorrowed()),
		zap.Timep("book.borrowed_until", book.BorrowedUntil),
		zap.String("request.id", GetValueFromContext(r.Context(), ContextRequestID)),
		api.userField(r),
	)
	api.sendResponse(w, r, http.StatusOK, "Book borrowed successfully.", nil, book)
}

// ReturnBook godoc
// @Summary      Return a book
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "book id"
// @Success      200  {object}  APIResponse
// @Failure      404  {object}  APIError
// @Router       /v1/books/{id}/return [post]
func (api *APIHandler) ReturnBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := GetBookIDFromParams(ps)
	if err != nil {
		api.sendError(w, r, "book id provided is not valid", err, zap.String("book.id", ps.ByName("id")))
		return
	}

	book, err := api.bookService.Return(r.Context(), id)
	if err != nil {
		api.sendError(w, r, "failed to return the book", err, zap.Uint("book.id", id), api.userField(r))
		return
	}
	api.logger.Info("success to return book",
		zap.Uint("book.id", id),
		zap.Bool("book.borrowed", book.IsBorrowed()),
		zap.String("request.id", GetValueFromContext(r.Context(), ContextRequestID)),
		api.userField(r),
	)
	api.sendResponse(w, r, http.StatusOK, "Book returned successfully.", nil, book)
}

// userField provides the authenticated user id as log field.
func (api *APIHandler) userField(r *http.Request) zap.Field {
	if claims := GetClaimsFromContext(r.Context()); claims != nil {
		return zap.Uint("user.id", claims.UserID)
	}
	return zap.Skip()
}

// queryInt parses an optional integer query parameter.
func queryInt(value, name string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ValidationError{Field: name, Message: "must be an integer"}
	}
	return n, nil
}
