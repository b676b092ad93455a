// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/librasync/internal/platform/request"
	"github.com/taibuivan/librasync/internal/platform/respond"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterAdminRoutes mounts the backend catalog.
func (handler *Handler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/books", handler.listAvailable)
	router.Get("/books/unavailable", handler.listUnavailable)
	handler.registerBookRoutes(router)
}

// RegisterPatronRoutes mounts the frontend catalog.
func (handler *Handler) RegisterPatronRoutes(router chi.Router) {
	router.Get("/booklist", handler.listAvailable)
	router.Get("/books-filtered-by-category", handler.listByCategory)
	router.Get("/books-filtered-by-publisher", handler.listByPublisher)
	handler.registerBookRoutes(router)
}

func (handler *Handler) registerBookRoutes(router chi.Router) {
	router.Post("/books/add", handler.createBook)
	router.Get("/books/{id}", handler.getBook)
	router.Put("/books/{id}", handler.putBook)
	router.Delete("/books/{id}", handler.deleteBook)
}

func (handler *Handler) listAvailable(writer http.ResponseWriter, request *http.Request) {
	books, err := handler.service.ListAvailable(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Books successfully fetched.", books)
}

func (handler *Handler) listUnavailable(writer http.ResponseWriter, request *http.Request) {
	books, err := handler.service.ListUnavailable(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Unavailable book list fetched successfully.", books)
}

func (handler *Handler) listByCategory(writer http.ResponseWriter, request *http.Request) {
	books, err := handler.service.ListByCategory(request.Context(), request.URL.Query().Get(FieldCategory))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Books successfully fetched.", books)
}

func (handler *Handler) listByPublisher(writer http.ResponseWriter, request *http.Request) {
	books, err := handler.service.ListByPublisher(request.Context(), request.URL.Query().Get(FieldPublisher))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Books successfully fetched.", books)
}

func (handler *Handler) getBook(writer http.ResponseWriter, request *http.Request) {
	bookID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	book, err := handler.service.Get(request.Context(), bookID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Book successfully fetched.", book)
}

func (handler *Handler) decodeInput(request *http.Request) (*Input, error) {
	var input Input
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		return nil, err
	}
	input.SessionID = requestutil.SessionToken(request, input.SessionID)
	return &input, nil
}

func (handler *Handler) createBook(writer http.ResponseWriter, request *http.Request) {
	input, err := handler.decodeInput(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	book, err := handler.service.Create(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, "Book successfully added.", book)
}

func (handler *Handler) putBook(writer http.ResponseWriter, request *http.Request) {
	bookID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	input, err := handler.decodeInput(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	book, created, err := handler.service.Put(request.Context(), bookID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if created {
		respond.Created(writer, "Book successfully added.", book)
		return
	}
	respond.OK(writer, "Book successfully edited.", book)
}

func (handler *Handler) deleteBook(writer http.ResponseWriter, request *http.Request) {
	bookID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	input, err := handler.decodeInput(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), bookID, input.SessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Book successfully deleted.", nil)
}
