package handler

import (
	"context"
	"net/http"
	"strings"

	"cmrp/models"
	"cmrp/utils"

	"github.com/sirupsen/logrus"
)

// UserAccounts is the citizen registry as seen by the auth endpoints
type UserAccounts interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
}

// TokenIssuer signs tokens for citizens and authenticates officer/admin logins
type TokenIssuer interface {
	Issue(p models.Principal, src utils.TokenSource, user interface{}) (*models.TokenResponse, error)
	OfficerLogin(ctx context.Context, username, password string) (*models.TokenResponse, error)
}

// AuthHandler handles registration and login for all three registries
type AuthHandler struct {
	users  UserAccounts
	tokens TokenIssuer
	logger logrus.FieldLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users UserAccounts, tokens TokenIssuer, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger.WithField("component", "auth_handler")}
}

// Register handles POST /api/auth/register. The account is always a citizen.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.Register(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	h.issueForUser(w, u, http.StatusCreated)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.Login(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	h.issueForUser(w, u, http.StatusOK)
}

func (h *AuthHandler) issueForUser(w http.ResponseWriter, u *models.User, code int) {
	resp, err := h.tokens.Issue(u.Principal(), utils.SourceUser, u)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, code, resp)
}

// Me handles GET /api/auth/me. Citizens get their stored account; officers
// and the admin get the identity carried by their token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	if p.Role != models.RoleCitizen {
		respondWithJSON(w, http.StatusOK, p)
		return
	}

	u, err := h.users.Get(r.Context(), p.ID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

// OfficerLogin handles POST /api/officer/login. Credentials arrive as form fields
// (username, password); a JSON body is accepted too.
func (h *AuthHandler) OfficerLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if !decodeJSON(w, r, &creds) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request", "Failed to parse form")
			return
		}
		creds.Username = r.PostForm.Get("username")
		creds.Password = r.PostForm.Get("password")
	}

	resp, err := h.tokens.OfficerLogin(r.Context(), creds.Username, creds.Password)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}
