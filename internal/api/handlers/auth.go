package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medtech/go-cds/internal/api/middleware"
	"github.com/medtech/go-cds/internal/domain/user"
)

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// AuthHandler handles registration and login
type AuthHandler struct {
	store    UserStore
	secret   []byte
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewAuthHandler creates a new handler
func NewAuthHandler(store UserStore, secret []byte, tokenTTL time.Duration, logger *zap.Logger) *AuthHandler {
	if tokenTTL == 0 {
		tokenTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{store: store, secret: secret, tokenTTL: tokenTTL, logger: logger}
}

// PublicRoutes returns the unauthenticated routes
func (h *AuthHandler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register/doctor", h.RegisterDoctor)
	r.Post("/register/patient", h.RegisterPatient)
	r.Post("/login", h.Login)
	return r
}

// Me handles GET /auth/me, mounted behind the auth middleware.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		jsonError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	u, err := h.store.GetByID(r.Context(), claims.UserID)
	if err != nil {
		jsonError(w, "user not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// RegisterRequest is the request body for account registration
type RegisterRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	Specialty string `json:"specialty,omitempty"`
}

// AuthResponse carries the issued token and its subject
type AuthResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

// RegisterDoctor handles POST /auth/register/doctor
func (h *AuthHandler) RegisterDoctor(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, user.RoleDoctor)
}

// RegisterPatient handles POST /auth/register/patient
func (h *AuthHandler) RegisterPatient(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, user.RolePatient)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, role user.Role) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		jsonError(w, "a valid email is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		jsonError(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	hash, salt, err := user.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password failed", zap.Error(err))
		jsonError(w, "registration failed", http.StatusInternalServerError)
		return
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		Name:         req.Name,
		Role:         role,
		Specialty:    req.Specialty,
		PasswordHash: hash,
		Salt:         salt,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.store.Create(r.Context(), u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			jsonError(w, "email already registered", http.StatusConflict)
			return
		}
		h.logger.Error("create user failed", zap.Error(err))
		jsonError(w, "registration failed", http.StatusInternalServerError)
		return
	}

	token, err := middleware.NewToken(h.secret, u, h.tokenTTL)
	if err != nil {
		h.logger.Error("sign token failed", zap.Error(err))
		jsonError(w, "registration failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user registered",
		zap.String("user_id", u.ID),
		zap.String("role", string(u.Role)),
	)
	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: u})
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	u, err := h.store.GetByEmail(r.Context(), req.Email)
	if err != nil || !user.CheckPassword(req.Password, u.PasswordHash, u.Salt) {
		// Same response for unknown email and wrong password.
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := middleware.NewToken(h.secret, u, h.tokenTTL)
	if err != nil {
		h.logger.Error("sign token failed", zap.Error(err))
		jsonError(w, "login failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user logged in", zap.String("user_id", u.ID))
	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: u})
}
