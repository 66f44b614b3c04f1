package service_test

import (
	"context"
	"testing"

	"safevoice/internal/domain"
	"safevoice/internal/service"
	"safevoice/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestRegisterForcesFreeUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, pair, err := e.auth.Register(ctx, service.RegisterInput{Username: "amina", Email: "Amina@Example.com", Password: "longenough"})
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, u.Role)
	require.Equal(t, domain.PlanFree, u.Plan)
	require.Equal(t, "amina@example.com", u.Email)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	tests := []struct {
		name string
		in   service.RegisterInput
		code string
	}{
		{"duplicate username", service.RegisterInput{Username: "amina", Email: "other@example.com", Password: "longenough"}, "username_taken"},
		{"duplicate email", service.RegisterInput{Username: "amina2", Email: "amina@example.com", Password: "longenough"}, "email_taken"},
		{"short password", service.RegisterInput{Username: "bob", Email: "bob@example.com", Password: "short"}, "weak_password"},
		{"bad username", service.RegisterInput{Username: "a b", Email: "ab@example.com", Password: "longenough"}, "invalid_username"},
		{"bad email", service.RegisterInput{Username: "carol", Email: "carol", Password: "longenough"}, "invalid_email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.auth.Register(ctx, tt.in)
			var de *domain.Error
			require.ErrorAs(t, err, &de)
			require.Equal(t, tt.code, de.Code)
		})
	}
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.fx.User(domain.RoleUser, domain.PlanFree)

	for _, login := range []string{u.Username, u.Email} {
		got, pair, err := e.auth.Login(ctx, login, testutil.Password)
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.NotNil(t, got.LastLoginAt)
		require.NotEmpty(t, pair.AccessToken)
	}

	_, _, err := e.auth.Login(ctx, u.Username, "wrong-password")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, _, err = e.auth.Login(ctx, "nobody", testutil.Password)
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, e.repos.Users.UpdateFields(ctx, u.ID, map[string]interface{}{"is_active": false}))
	_, _, err = e.auth.Login(ctx, u.Username, testutil.Password)
	require.ErrorIs(t, err, domain.ErrAccountDisabled)
	_, err = e.auth.LoadPrincipal(ctx, u.ID)
	require.ErrorIs(t, err, domain.ErrAccountDisabled)
}

func TestRefreshRotationAndLogout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.fx.User(domain.RoleUser, domain.PlanFree)
	_, pair, err := e.auth.Login(ctx, u.Username, testutil.Password)
	require.NoError(t, err)

	next, err := e.auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = e.auth.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrInvalidToken)

	other := e.fx.User(domain.RoleUser, domain.PlanFree)
	err = e.auth.Logout(ctx, testutil.Principal(other), next.RefreshToken)
	require.ErrorIs(t, err, domain.ErrInvalidToken)

	require.NoError(t, e.auth.Logout(ctx, testutil.Principal(u), next.RefreshToken))
	_, err = e.auth.Refresh(ctx, next.RefreshToken)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.fx.User(domain.RoleUser, domain.PlanFree)
	p := testutil.Principal(u)

	require.ErrorIs(t, e.auth.ChangePassword(ctx, p, "not-it", "newpassword1"), domain.ErrWrongPassword)
	requireKind(t, e.auth.ChangePassword(ctx, p, testutil.Password, "short"), domain.KindValidation)
	require.NoError(t, e.auth.ChangePassword(ctx, p, testutil.Password, "newpassword1"))

	_, _, err := e.auth.Login(ctx, u.Username, "newpassword1")
	require.NoError(t, err)
}

func TestGoogleLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	existing := e.fx.User(domain.RoleUser, domain.PlanPremium)

	u, _, created, err := e.auth.LoginWithGoogle(ctx, service.GoogleIdentity{ID: "g-1", Email: existing.Email, Name: "Whoever"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, existing.ID, u.ID)

	u, _, created, err = e.auth.LoginWithGoogle(ctx, service.GoogleIdentity{ID: "g-1", Email: "changed@example.com"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, existing.ID, u.ID)

	u, _, created, err = e.auth.LoginWithGoogle(ctx, service.GoogleIdentity{ID: "g-2", Email: "new.person@example.com", Name: "New Person"})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "new_person", u.Username)
	require.Equal(t, domain.PlanFree, u.Plan)

	_, _, _, err = e.auth.LoginWithGoogle(ctx, service.GoogleIdentity{Email: "x@example.com"})
	requireKind(t, err, domain.KindValidation)
}
