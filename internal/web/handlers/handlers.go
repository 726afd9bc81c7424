// Package handlers exposes the JSON API. Handlers stay thin: decode, call a
// service, map the error, encode. All policy (validation, ownership, roles,
// claim atomicity) lives in the services.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/foodbridge/foodbridge/config"
	"github.com/foodbridge/foodbridge/internal/auth"
	"github.com/foodbridge/foodbridge/internal/database"
	"github.com/foodbridge/foodbridge/internal/donations"
	"github.com/foodbridge/foodbridge/internal/notify"
	"github.com/foodbridge/foodbridge/internal/roles"
	"github.com/foodbridge/foodbridge/internal/token"
	"github.com/foodbridge/foodbridge/pkg/models"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	db         *database.DB
	cfg        *config.Config
	auth       *auth.Service
	donations  *donations.Service
	roles      *roles.Service
	tokens     *token.Service
	dispatcher notify.Dispatcher
}

// New creates a new handler.
func New(db *database.DB, cfg *config.Config, authService *auth.Service, donationService *donations.Service, roleService *roles.Service, tokenService *token.Service, dispatcher notify.Dispatcher) *Handler {
	return &Handler{
		db:         db,
		cfg:        cfg,
		auth:       authService,
		donations:  donationService,
		roles:      roleService,
		tokens:     tokenService,
		dispatcher: dispatcher,
	}
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  authUserView `json:"user"`
}

// authUserView is the user shape returned by signup and login. The password
// hash never leaves the server.
type authUserView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Signup handles POST /api/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		jsonError(w, "Email and password are required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		jsonError(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	user, err := h.auth.Signup(r.Context(), req.Email, req.Password, req.FullName, req.Phone, req.Location)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			jsonError(w, "An account with this email already exists", http.StatusConflict)
			return
		}
		log.Printf("Signup failed for %s: %v", req.Email, err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeAuthResponse(w, user, http.StatusCreated)
}

// Login handles POST /api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			jsonError(w, "Invalid email or password", http.StatusUnauthorized)
			return
		}
		log.Printf("Login failed for %s: %v", req.Email, err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeAuthResponse(w, user, http.StatusOK)
}

func (h *Handler) writeAuthResponse(w http.ResponseWriter, user *models.User, status int) {
	ttl := time.Duration(h.cfg.JWT.TTLSeconds) * time.Second
	tok, err := h.tokens.GenerateToken(user.ID, user.Email, ttl)
	if err != nil {
		log.Printf("Token generation failed for %s: %v", user.ID, err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	jsonResponse(w, authResponse{
		Token: tok,
		User:  authUserView{ID: user.ID, Email: user.Email},
	})
}

// --- helpers ---

func jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeDonationError maps donation service errors onto the API contract.
// Ownership failures and missing rows share one generic 403 so probing ids
// reveals nothing; lost claim races get 409 with a human-readable message.
func writeDonationError(w http.ResponseWriter, err error) {
	var verr *donations.ValidationError
	switch {
	case errors.As(err, &verr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"field": verr.Field,
			"error": verr.Message,
		})
	case errors.Is(err, donations.ErrUnauthenticated):
		jsonError(w, "Authentication required", http.StatusUnauthorized)
	case errors.Is(err, donations.ErrNotFoundOrForbidden):
		jsonError(w, "Donation not found or not yours", http.StatusForbidden)
	case errors.Is(err, donations.ErrNotAvailable):
		jsonError(w, "This donation is no longer available", http.StatusConflict)
	default:
		log.Printf("Donation handler error: %v", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
	}
}
