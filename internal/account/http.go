// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/librasync/internal/platform/request"
	"github.com/taibuivan/librasync/internal/platform/respond"
)

type Handler struct {
	service   *Service
	directory *Directory
}

// NewHandler builds the account routes. directory is nil on the frontend.
func NewHandler(service *Service, directory *Directory) *Handler {
	return &Handler{service: service, directory: directory}
}

// RegisterAdminRoutes mounts backend registration, login and the user directory.
func (handler *Handler) RegisterAdminRoutes(router chi.Router) {
	handler.RegisterPatronRoutes(router)
	router.Post("/service-token", handler.serviceToken)
	router.Get("/front-end/users", handler.listFrontendUsers)
	router.Post("/front-end/users", handler.syncFrontendUser)
}

// RegisterPatronRoutes mounts registration and login.
func (handler *Handler) RegisterPatronRoutes(router chi.Router) {
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
}

func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input RegisterInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.service.Register(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, "User registration successfully.", account)
}

func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var credentials Credentials
	if err := requestutil.DecodeJSON(request, &credentials); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.Login(request.Context(), credentials)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Login successfully.", result)
}

func (handler *Handler) serviceToken(writer http.ResponseWriter, request *http.Request) {
	var credentials Credentials
	if err := requestutil.DecodeJSON(request, &credentials); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.ServiceToken(request.Context(), credentials)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Service token issued.", result)
}

func (handler *Handler) listFrontendUsers(writer http.ResponseWriter, request *http.Request) {
	users, err := handler.directory.List(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Frontend users successfully fetched.", users)
}

// syncFrontendUser answers 201 for new and updated users alike.
func (handler *Handler) syncFrontendUser(writer http.ResponseWriter, request *http.Request) {
	var user FrontendUser
	if err := requestutil.DecodeJSON(request, &user); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if _, err := handler.directory.Sync(request.Context(), &user); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, "User successfully synced with backend.", user)
}
