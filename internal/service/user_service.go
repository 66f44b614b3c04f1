package service

import (
	"context"
	"strings"
	"time"

	"safevoice/internal/authz"
	"safevoice/internal/domain"
	"safevoice/internal/models"
	"safevoice/internal/repository"
)

type ProfileView struct {
	ID           uint                 `json:"id"`
	Username     string               `json:"username"`
	Email        string               `json:"email"`
	Role         domain.Role          `json:"role"`
	Plan         domain.Plan          `json:"plan"`
	IsActive     bool                 `json:"is_active"`
	Organization *models.Organization `json:"organization"`
	GoogleLinked bool                 `json:"google_linked"`
	LastLoginAt  *time.Time           `json:"last_login_at"`
	CreatedAt    time.Time            `json:"created_at"`
	Capabilities []authz.Capability   `json:"capabilities"`
}

func NewProfileView(u *models.User) ProfileView {
	p := authz.Principal{UserID: u.ID, Role: u.Role, Plan: u.Plan, Authenticated: u.IsActive}
	return ProfileView{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         u.Role,
		Plan:         u.Plan,
		IsActive:     u.IsActive,
		Organization: u.Organization,
		GoogleLinked: u.GoogleID != nil,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		Capabilities: authz.Capabilities(p),
	}
}

type AdminUserView struct {
	ProfileView
	ReportCount int64 `json:"report_count"`
}

type ProfileUpdate struct {
	Username *string
	Email    *string
	Role     *string
	Plan     *string
}

// AdminUserUpdate lists the user fields a premium admin may change.
type AdminUserUpdate struct {
	Role              *string
	Plan              *string
	IsActive          *bool
	OrganizationID    *uint
	ClearOrganization bool
}

type UserService struct {
	repos *repository.Repos
}

func NewUserService(repos *repository.Repos) *UserService {
	return &UserService{repos: repos}
}

func (s *UserService) Profile(ctx context.Context, p authz.Principal) (*ProfileView, error) {
	if err := authz.Require(p, authz.ViewProfile); err != nil {
		return nil, err
	}
	u, err := s.repos.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	v := NewProfileView(u)
	return &v, nil
}

// UpdateProfile changes the caller's own username or email. Role and plan
// are never self-service.
func (s *UserService) UpdateProfile(ctx context.Context, p authz.Principal, in ProfileUpdate) (*ProfileView, error) {
	if err := authz.Require(p, authz.ViewProfile); err != nil {
		return nil, err
	}
	if in.Role != nil || in.Plan != nil {
		return nil, domain.Permission("role_plan_admin_only", "role and plan can only be changed by a premium admin")
	}
	fields := map[string]interface{}{}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if !usernamePattern.MatchString(username) {
			return nil, domain.Validation("invalid_username", "username must be 3-64 letters, digits, dots, dashes or underscores")
		}
		taken, err := s.repos.Users.ExistsUsername(ctx, username, p.UserID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.ErrUsernameTaken
		}
		fields["username"] = username
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !strings.Contains(email, "@") {
			return nil, domain.Validation("invalid_email", "a valid email is required")
		}
		taken, err := s.repos.Users.ExistsEmail(ctx, email, p.UserID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.ErrEmailTaken
		}
		fields["email"] = email
	}
	if len(fields) > 0 {
		if err := s.repos.Users.UpdateFields(ctx, p.UserID, fields); err != nil {
			return nil, err
		}
	}
	return s.Profile(ctx, p)
}

func (s *UserService) SetFCMToken(ctx context.Context, p authz.Principal, token string) error {
	if err := authz.Require(p, authz.ViewNotifications); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if len(token) > 512 {
		return domain.Validation("invalid_fcm_token", "fcm token is too long")
	}
	return s.repos.Users.UpdateFields(ctx, p.UserID, map[string]interface{}{"fcm_token": token})
}

func (s *UserService) List(ctx context.Context, p authz.Principal, f repository.UserFilter, page, limit int) ([]AdminUserView, int64, error) {
	if err := authz.Require(p, authz.ManageUsers); err != nil {
		return nil, 0, err
	}
	page, limit = pageBounds(page, limit)
	users, total, err := s.repos.Admin.ListUsers(ctx, f, page, limit)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uint, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	counts, err := s.repos.Admin.UserReportCounts(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	out := make([]AdminUserView, len(users))
	for i := range users {
		out[i] = AdminUserView{ProfileView: NewProfileView(&users[i]), ReportCount: counts[users[i].ID]}
	}
	return out, total, nil
}

func (s *UserService) Get(ctx context.Context, p authz.Principal, id uint) (*AdminUserView, error) {
	if err := authz.Require(p, authz.ManageUsers); err != nil {
		return nil, err
	}
	u, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	counts, err := s.repos.Admin.UserReportCounts(ctx, []uint{id})
	if err != nil {
		return nil, err
	}
	return &AdminUserView{ProfileView: NewProfileView(u), ReportCount: counts[id]}, nil
}

func (s *UserService) Update(ctx context.Context, p authz.Principal, id uint, in AdminUserUpdate) (*AdminUserView, error) {
	if err := authz.Require(p, authz.ManageUsers); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if in.Role != nil {
		role, err := domain.ParseRole(*in.Role)
		if err != nil {
			return nil, err
		}
		fields["role"] = role
	}
	if in.Plan != nil {
		plan, err := domain.ParsePlan(*in.Plan)
		if err != nil {
			return nil, err
		}
		fields["plan"] = plan
	}
	if in.IsActive != nil {
		if !*in.IsActive && id == p.UserID {
			return nil, domain.ErrSelfDeactivate
		}
		fields["is_active"] = *in.IsActive
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repos) error {
		if _, err := tx.Users.GetByIDForUpdate(ctx, id); err != nil {
			return notFoundOr(err, "user")
		}
		switch {
		case in.ClearOrganization:
			fields["organization_id"] = nil
		case in.OrganizationID != nil:
			if _, err := tx.Organizations.GetByID(ctx, *in.OrganizationID); err != nil {
				return notFoundOr(err, "organization")
			}
			fields["organization_id"] = *in.OrganizationID
		}
		if len(fields) == 0 {
			return nil
		}
		return tx.Users.UpdateFields(ctx, id, fields)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, p, id)
}

func (s *UserService) ChangePlan(ctx context.Context, p authz.Principal, id uint, plan string) (*AdminUserView, error) {
	if err := authz.Require(p, authz.ChangePlan); err != nil {
		return nil, err
	}
	return s.Update(ctx, p, id, AdminUserUpdate{Plan: &plan})
}

// Deactivate is the only form of user deletion.
func (s *UserService) Deactivate(ctx context.Context, p authz.Principal, id uint) error {
	inactive := false
	_, err := s.Update(ctx, p, id, AdminUserUpdate{IsActive: &inactive})
	return err
}
