package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"cmrp/models"
	"cmrp/utils"
)

// AuthSettings configures token issuance and the built-in admin login
type AuthSettings struct {
	Secret        []byte
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string
	EmailDomain   string
}

// AuthService issues and verifies bearer tokens for all three registries:
// citizens (users), officers, and the configured admin.
type AuthService struct {
	users    UserStore
	officers *OfficerService
	settings AuthSettings
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, officers *OfficerService, settings AuthSettings) *AuthService {
	return &AuthService{users: users, officers: officers, settings: settings}
}

// Issue signs a token for p and wraps it with the user payload returned to the client
func (s *AuthService) Issue(p models.Principal, src utils.TokenSource, user interface{}) (*models.TokenResponse, error) {
	token, err := utils.GenerateJWT(p, src, s.settings.Secret, s.settings.TokenTTL)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{AccessToken: token, TokenType: "bearer", User: user}, nil
}

// OfficerLogin authenticates the admin credential pair or an officer account.
// Officers get the synthetic subject {username}@{domain}.
func (s *AuthService) OfficerLogin(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", models.ErrUnauthenticated)
	}

	if s.isAdmin(username, password) {
		p := s.AdminPrincipal()
		return s.Issue(p, utils.SourceAdmin, p)
	}

	o, err := s.officers.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	p := models.Principal{
		ID:    o.ID,
		Email: o.Username + "@" + s.settings.EmailDomain,
		Name:  o.Name,
		Role:  models.RoleOfficer,
	}
	return s.Issue(p, utils.SourceOfficer, p)
}

// AdminPrincipal is the fixed identity behind the admin credential pair
func (s *AuthService) AdminPrincipal() models.Principal {
	return models.Principal{
		ID:    "admin",
		Email: "admin@" + s.settings.EmailDomain,
		Name:  "Administrator",
		Role:  models.RoleAdmin,
	}
}

func (s *AuthService) isAdmin(username, password string) bool {
	if s.settings.AdminPassword == "" || username != s.settings.AdminUsername {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.settings.AdminPassword)) == 1
}

// Authenticate verifies a bearer token and confirms the identity still exists in the
// registry named by the token source. Officers must also still be active.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.Principal, error) {
	claims, err := utils.ParseJWT(token, s.settings.Secret)
	if err != nil {
		return models.Principal{}, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}

	switch claims.Source {
	case utils.SourceUser:
		u, err := s.users.GetByID(ctx, claims.UserID)
		if errors.Is(err, models.ErrNotFound) {
			return models.Principal{}, fmt.Errorf("%w: account no longer exists", models.ErrUnauthenticated)
		}
		if err != nil {
			return models.Principal{}, err
		}
		// the stored role wins so promotions take effect without a new token
		return u.Principal(), nil

	case utils.SourceOfficer:
		o, err := s.officers.Get(ctx, claims.UserID)
		if errors.Is(err, models.ErrNotFound) {
			return models.Principal{}, fmt.Errorf("%w: officer no longer exists", models.ErrUnauthenticated)
		}
		if err != nil {
			return models.Principal{}, err
		}
		if !o.IsActive {
			return models.Principal{}, fmt.Errorf("%w: officer is inactive", models.ErrUnauthenticated)
		}
		return claims.Principal(), nil

	case utils.SourceAdmin:
		if claims.Role != models.RoleAdmin {
			return models.Principal{}, fmt.Errorf("%w: malformed admin token", models.ErrUnauthenticated)
		}
		return claims.Principal(), nil
	}

	return models.Principal{}, fmt.Errorf("%w: unknown token source", models.ErrUnauthenticated)
}
