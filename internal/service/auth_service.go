package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"safevoice/config"
	"safevoice/internal/auth"
	"safevoice/internal/authz"
	"safevoice/internal/domain"
	"safevoice/internal/models"
	"safevoice/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,64}$`)

const minPasswordLen = 8

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// GoogleIdentity is the verified profile returned by Google.
type GoogleIdentity struct {
	ID    string
	Email string
	Name  string
}

type AuthService struct {
	cfg   *config.Config
	repos *repository.Repos
}

func NewAuthService(cfg *config.Config, repos *repository.Repos) *AuthService {
	return &AuthService{cfg: cfg, repos: repos}
}

// Register always creates a free-plan user regardless of client input.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, *TokenPair, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !usernamePattern.MatchString(username) {
		return nil, nil, domain.Validation("invalid_username", "username must be 3-64 letters, digits, dots, dashes or underscores")
	}
	if !strings.Contains(email, "@") || utf8.RuneCountInString(email) > 255 {
		return nil, nil, domain.Validation("invalid_email", "a valid email is required")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, nil, err
	}

	if taken, err := s.repos.Users.ExistsUsername(ctx, username, 0); err != nil {
		return nil, nil, err
	} else if taken {
		return nil, nil, domain.ErrUsernameTaken
	}
	if taken, err := s.repos.Users.ExistsEmail(ctx, email, 0); err != nil {
		return nil, nil, err
	} else if taken {
		return nil, nil, domain.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	u := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Plan:         domain.PlanFree,
		IsActive:     true,
	}
	if err := s.repos.Users.Create(ctx, u); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}
	pair, err := s.issue(u)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Login accepts a username or an email as login.
func (s *AuthService) Login(ctx context.Context, login, password string) (*models.User, *TokenPair, error) {
	u, err := s.repos.Users.GetByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if u.PasswordHash == "" {
		return nil, nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, nil, domain.ErrAccountDisabled
	}
	now := utcNow()
	if err := s.repos.Users.UpdateFields(ctx, u.ID, map[string]interface{}{"last_login_at": now}); err != nil {
		return nil, nil, err
	}
	u.LastLoginAt = &now
	pair, err := s.issue(u)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// LoginWithGoogle finds the user by Google id, links an existing account with
// the same email, or creates a new free user. The bool reports creation.
func (s *AuthService) LoginWithGoogle(ctx context.Context, g GoogleIdentity) (*models.User, *TokenPair, bool, error) {
	if g.ID == "" || g.Email == "" {
		return nil, nil, false, domain.Validation("invalid_google_profile", "google profile is missing id or email")
	}
	email := strings.ToLower(g.Email)

	u, err := s.repos.Users.GetByGoogleID(ctx, g.ID)
	created := false
	switch {
	case err == nil:
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil, false, err
	default:
		u, err = s.repos.Users.GetByEmail(ctx, email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, false, err
		}
		gid := g.ID
		if u != nil {
			u.GoogleID = &gid
			if err := s.repos.Users.UpdateFields(ctx, u.ID, map[string]interface{}{"google_id": gid}); err != nil {
				return nil, nil, false, err
			}
		} else {
			username, err := s.freeUsername(ctx, g.Name, email)
			if err != nil {
				return nil, nil, false, err
			}
			u = &models.User{
				Username: username,
				Email:    email,
				GoogleID: &gid,
				Role:     domain.RoleUser,
				Plan:     domain.PlanFree,
				IsActive: true,
			}
			if err := s.repos.Users.Create(ctx, u); err != nil {
				return nil, nil, false, fmt.Errorf("create google user: %w", err)
			}
			created = true
		}
	}
	if !u.IsActive {
		return nil, nil, false, domain.ErrAccountDisabled
	}
	pair, err := s.issue(u)
	if err != nil {
		return nil, nil, false, err
	}
	return u, pair, created, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	rc, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	var pair *TokenPair
	err = s.repos.Transaction(ctx, func(tx *repository.Repos) error {
		revoked, err := tx.Tokens.IsRevoked(ctx, rc.JTI)
		if err != nil {
			return err
		}
		if revoked {
			return domain.ErrInvalidToken
		}
		u, err := tx.Users.GetByID(ctx, rc.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrInvalidToken
			}
			return err
		}
		if !u.IsActive {
			return domain.ErrAccountDisabled
		}
		if err := tx.Tokens.Revoke(ctx, rc.JTI, rc.UserID, rc.ExpiresAt); err != nil {
			return err
		}
		pair, err = s.issue(u)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes the caller's refresh token.
func (s *AuthService) Logout(ctx context.Context, p authz.Principal, refreshToken string) error {
	rc, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil || rc.UserID != p.UserID {
		return domain.ErrInvalidToken
	}
	return s.repos.Tokens.Revoke(ctx, rc.JTI, rc.UserID, rc.ExpiresAt)
}

func (s *AuthService) ChangePassword(ctx context.Context, p authz.Principal, current, next string) error {
	if err := authz.Require(p, authz.ViewProfile); err != nil {
		return err
	}
	u, err := s.repos.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return notFoundOr(err, "user")
	}
	if u.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
			return domain.ErrWrongPassword
		}
	}
	if err := checkPassword(next); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repos.Users.UpdateFields(ctx, u.ID, map[string]interface{}{"password_hash": string(hash)})
}

// LoadPrincipal resolves the caller from the current user row, so role, plan
// and deactivation take effect immediately for existing tokens.
func (s *AuthService) LoadPrincipal(ctx context.Context, userID uint) (authz.Principal, error) {
	u, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.Anonymous(), domain.ErrInvalidToken
		}
		return authz.Anonymous(), err
	}
	if !u.IsActive {
		return authz.Anonymous(), domain.ErrAccountDisabled
	}
	return authz.Principal{UserID: u.ID, Role: u.Role, Plan: u.Plan, Authenticated: true}, nil
}

func (s *AuthService) EnsureActive(ctx context.Context, userID uint) error {
	_, err := s.LoadPrincipal(ctx, userID)
	return err
}

func (s *AuthService) issue(u *models.User) (*TokenPair, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, auth.Subject{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     string(u.Role),
		Plan:     string(u.Plan),
	})
	if err != nil {
		return nil, err
	}
	refresh, _, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.JWT.AccessExpiry.Seconds()),
	}, nil
}

// freeUsername derives a unique username from a display name or email.
func (s *AuthService) freeUsername(ctx context.Context, name, email string) (string, error) {
	base := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	if !usernamePattern.MatchString(base) {
		base, _, _ = strings.Cut(email, "@")
	}
	base = unsafeUsernameChars.ReplaceAllString(base, "")
	if len(base) < 3 {
		base = "user"
	}
	if len(base) > 56 {
		base = base[:56]
	}
	candidate := base
	for i := 1; i < 1000; i++ {
		taken, err := s.repos.Users.ExistsUsername(ctx, candidate, 0)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return "", domain.ErrUsernameTaken
}

var unsafeUsernameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

func checkPassword(pw string) error {
	if utf8.RuneCountInString(pw) < minPasswordLen {
		return domain.Validation("weak_password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	return nil
}
