package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/campuslink/commons/internal/auth"
	"github.com/campuslink/commons/internal/models"
	"github.com/campuslink/commons/internal/storage"
	"github.com/campuslink/commons/pkg/config"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

// AuthResult is returned by register and login
type AuthResult struct {
	Token string   `json:"token"`
	User  *Profile `json:"user"`
}

// AccountService registers members, issues sessions and resolves bearer tokens
type AccountService struct {
	users  storage.UserStore
	issuer *auth.Issuer
	cfg    config.AuthConfig
}

// NewAccountService creates an account service
func NewAccountService(users storage.UserStore, issuer *auth.Issuer, cfg config.AuthConfig) *AccountService {
	return &AccountService{users: users, issuer: issuer, cfg: cfg}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// allowedEmail applies the domain allow-list. An empty list allows everything.
func (s *AccountService) allowedEmail(email string) bool {
	if len(s.cfg.AllowedEmailDomains) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	return lo.Contains(s.cfg.AllowedEmailDomains, email[at+1:])
}

func (s *AccountService) restricted(action string) error {
	return Forbidden("%s is restricted to: %s", action, strings.Join(s.cfg.AllowedEmailDomains, ", "))
}

// Register creates a member and signs them in
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = CleanText(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, ValidationError("name, email, password required")
	}
	if !strings.Contains(email, "@") {
		return nil, ValidationError("email is invalid")
	}
	if !s.allowedEmail(email) {
		return nil, s.restricted("Registration")
	}

	hash, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := nowUTC()
	user := &models.User{
		ID:                   uuid.NewString(),
		Name:                 name,
		Email:                email,
		PasswordHash:         hash,
		Interests:            []string{},
		NotificationSettings: models.DefaultNotificationSettings(),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, Conflict("email already in use")
		}
		return nil, fromStorage(err, "user")
	}

	return s.signIn(ctx, user)
}

// Login checks credentials and signs the member in
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ValidationError("email and password required")
	}
	if !s.allowedEmail(email) {
		return nil, s.restricted("Login")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, Unauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, fromStorage(err, "user")
	}
	if user.IsDeleted {
		return nil, Unauthenticated("invalid credentials")
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Unauthenticated("invalid credentials")
	}

	return s.signIn(ctx, user)
}

func (s *AccountService) signIn(ctx context.Context, user *models.User) (*AuthResult, error) {
	token, err := s.issuer.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: newProfile(user)}, nil
}

// Logout revokes token
func (s *AccountService) Logout(ctx context.Context, token string) error {
	return s.issuer.Revoke(ctx, token)
}

// Authenticate resolves a bearer token to an active member
func (s *AccountService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.issuer.Resolve(ctx, token)
	if errors.Is(err, auth.ErrInvalidToken) {
		return nil, Unauthenticated("invalid or expired token")
	}
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, Unauthenticated("invalid or expired token")
	}
	if err != nil {
		return nil, fromStorage(err, "user")
	}
	if user.IsDeleted {
		return nil, Unauthenticated("account has been deactivated")
	}
	return user, nil
}
