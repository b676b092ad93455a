// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package circulation

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

// RegisterAdminRoutes mounts the backend borrow records and borrowers report.
func (handler *Handler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/borrowed-books", handler.listRecords)
	router.Get("/borrowed-books/users", handler.listBorrowers)
	router.Post("/borrowed-books/{id}", handler.mirrorRecord)
	router.Delete("/borrowed-books/{id}", handler.returnBook)
}

// RegisterPatronRoutes mounts the frontend borrow and the return mirror.
func (handler *Handler) RegisterPatronRoutes(router chi.Router) {
	router.Post("/books/{id}/borrow", handler.borrowBook)
	router.Delete("/borrowed-books/{id}", handler.returnBook)
}

func (handler *Handler) borrowBook(writer http.ResponseWriter, request *http.Request) {
	bookID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input BorrowInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	input.SessionID = requestutil.SessionToken(request, input.SessionID)

	record, err := handler.service.Borrow(request.Context(), bookID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, "Book successfully borrowed.", record)
}

func (handler *Handler) mirrorRecord(writer http.ResponseWriter, request *http.Request) {
	recordID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input MirrorInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	record, err := handler.service.Mirror(request.Context(), recordID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, "Book successfully borrowed.", record)
}

func (handler *Handler) returnBook(writer http.ResponseWriter, request *http.Request) {
	recordID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Return(request.Context(), recordID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Borrow record successfully deleted.", nil)
}

func (handler *Handler) listRecords(writer http.ResponseWriter, request *http.Request) {
	records, err := handler.service.List(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Borrow records successfully fetched.", records)
}

func (handler *Handler) listBorrowers(writer http.ResponseWriter, request *http.Request) {
	borrowers, err := handler.service.Borrowers(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Borrowed books successfully fetched.", borrowers)
}
