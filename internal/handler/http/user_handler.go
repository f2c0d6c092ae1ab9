package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/user"
)

// Authorizer is satisfied by *auth.Middleware.
type Authorizer interface {
	Authorize(res auth.Resource, act auth.Action) func(http.Handler) http.Handler
}

type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=150"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
	Phone           string `json:"phone" validate:"max=15"`
	Address         string `json:"address"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type UpdateProfileRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	FirstName string  `json:"first_name" validate:"max=150"`
	LastName  string  `json:"last_name" validate:"max=150"`
	Phone     string  `json:"phone" validate:"max=15"`
	Address   string  `json:"address"`
	Password  *string `json:"password,omitempty" validate:"omitempty,min=8"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin staff customer"`
}

type AuthResponse struct {
	User    *user.User `json:"user"`
	Access  string     `json:"access"`
	Refresh string     `json:"refresh"`
}

type UserHandler struct {
	service  user.Service
	validate *validator.Validate
}

func NewUserHandler(service user.Service) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *UserHandler) RegisterRoutes(router chi.Router, authz Authorizer) {
	router.With(authz.Authorize(auth.ResourceAuth, auth.ActionCreate)).Post("/auth/register", h.handleRegister)
	router.With(authz.Authorize(auth.ResourceAuth, auth.ActionCreate)).Post("/auth/login", h.handleLogin)
	router.With(authz.Authorize(auth.ResourceAuth, auth.ActionCreate)).Post("/auth/token/refresh", h.handleRefresh)
	router.With(authz.Authorize(auth.ResourceAuth, auth.ActionDelete)).Post("/auth/logout", h.handleLogout)

	router.With(authz.Authorize(auth.ResourceProfile, auth.ActionRead)).Get("/profile", h.handleGetProfile)
	router.With(authz.Authorize(auth.ResourceProfile, auth.ActionUpdate)).Put("/profile", h.handleUpdateProfile)

	router.With(authz.Authorize(auth.ResourceUsers, auth.ActionRead)).Get("/users", h.handleListUsers)
	router.With(authz.Authorize(auth.ResourceUsers, auth.ActionRead)).Get("/users/{id}", h.handleGetUser)
	router.With(authz.Authorize(auth.ResourceUsers, auth.ActionUpdate)).Patch("/users/{id}/role", h.handleUpdateRole)
	router.With(authz.Authorize(auth.ResourceUsers, auth.ActionDelete)).Delete("/users/{id}", h.handleDeleteUser)
}

func (h *UserHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	created, err := h.service.Register(r.Context(), user.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to register user")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *UserHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	u, tokens, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondWithServiceError(w, err, "Failed to log in")
		return
	}

	log.Info().Stringer("user_id", u.ID).Msg("User logged in")
	respondWithJSON(w, http.StatusOK, AuthResponse{User: u, Access: tokens.Access, Refresh: tokens.Refresh})
}

func (h *UserHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	access, err := h.service.Refresh(r.Context(), req.Refresh)
	if err != nil {
		respondWithServiceError(w, err, "Failed to refresh token")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (h *UserHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if err := h.service.Logout(r.Context(), req.Refresh); err != nil {
		respondWithServiceError(w, err, "Failed to log out")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (h *UserHandler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetUserByID(r.Context(), principal(r).UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get profile")
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), principal(r).UserID, user.ProfileUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
		Password:  req.Password,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update profile")
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list users")
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

func (h *UserHandler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	u, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get user by id")
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	u, err := h.service.UpdateRole(r.Context(), principal(r), id, auth.Role(req.Role))
	if err != nil {
		respondWithServiceError(w, err, "Failed to update role")
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
