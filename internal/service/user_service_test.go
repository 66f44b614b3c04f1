package service_test

import (
	"context"
	"testing"

	"safevoice/internal/authz"
	"safevoice/internal/domain"
	"safevoice/internal/models"
	"safevoice/internal/repository"
	"safevoice/internal/service"
	"safevoice/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestProfileUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.fx.User(domain.RoleUser, domain.PlanFree)
	taken := e.fx.User(domain.RoleUser, domain.PlanFree)
	p := testutil.Principal(u)

	_, err := e.users.UpdateProfile(ctx, p, service.ProfileUpdate{Role: strPtr("admin")})
	requireKind(t, err, domain.KindPermission)
	_, err = e.users.UpdateProfile(ctx, p, service.ProfileUpdate{Plan: strPtr("premium")})
	requireKind(t, err, domain.KindPermission)
	_, err = e.users.UpdateProfile(ctx, p, service.ProfileUpdate{Username: strPtr(taken.Username)})
	require.ErrorIs(t, err, domain.ErrUsernameTaken)

	v, err := e.users.UpdateProfile(ctx, p, service.ProfileUpdate{Username: strPtr("renamed"), Email: strPtr("Renamed@Example.com")})
	require.NoError(t, err)
	require.Equal(t, "renamed", v.Username)
	require.Equal(t, "renamed@example.com", v.Email)
	require.Equal(t, domain.RoleUser, v.Role)
	require.Contains(t, v.Capabilities, authz.SubmitReport)

	require.NoError(t, e.users.SetFCMToken(ctx, p, "device-token"))
	stored, err := e.repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "device-token", stored.FCMToken)
}

func TestAdminUserManagement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.fx.User(domain.RoleUser, domain.PlanFree)
	e.fx.Report(u)
	e.fx.Report(u)
	freeAdmin := e.fx.User(domain.RoleAdmin, domain.PlanFree)
	premiumAdmin := e.fx.User(domain.RoleAdmin, domain.PlanPremium)
	ap := testutil.Principal(premiumAdmin)

	_, _, err := e.users.List(ctx, testutil.Principal(freeAdmin), repository.UserFilter{}, 1, 20)
	require.ErrorIs(t, err, domain.ErrForbidden)

	list, total, err := e.users.List(ctx, ap, repository.UserFilter{Role: "user"}, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.EqualValues(t, 2, list[0].ReportCount)

	v, err := e.users.ChangePlan(ctx, ap, u.ID, "premium")
	require.NoError(t, err)
	require.Equal(t, domain.PlanPremium, v.Plan)
	_, err = e.users.ChangePlan(ctx, ap, u.ID, "gold")
	requireKind(t, err, domain.KindValidation)

	org, err := e.repos.Organizations.GetOrCreate(ctx, "Acme", "")
	require.NoError(t, err)
	v, err = e.users.Update(ctx, ap, u.ID, service.AdminUserUpdate{Role: strPtr("admin"), OrganizationID: &org.ID})
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, v.Role)
	require.Equal(t, "Acme", v.Organization.Name)

	missing := uint(9999)
	_, err = e.users.Update(ctx, ap, u.ID, service.AdminUserUpdate{OrganizationID: &missing})
	requireKind(t, err, domain.KindNotFound)

	require.ErrorIs(t, e.users.Deactivate(ctx, ap, premiumAdmin.ID), domain.ErrSelfDeactivate)
	require.NoError(t, e.users.Deactivate(ctx, ap, u.ID))
	_, err = e.auth.LoadPrincipal(ctx, u.ID)
	require.ErrorIs(t, err, domain.ErrAccountDisabled)

	requireKind(t, e.users.Deactivate(ctx, ap, 9999), domain.KindNotFound)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.fx.User(domain.RoleUser, domain.PlanPremium)
	for _, title := range []string{"100% sure", "1000 sure", "pay_roll", "payxroll", "yes!no"} {
		title := title
		e.fx.Report(owner, func(r *models.Report) { r.Title = title })
	}
	admin := testutil.Principal(e.fx.User(domain.RoleAdmin, domain.PlanPremium))

	tests := []struct {
		search string
		want   string
	}{
		{"100%", "100% sure"},
		{"y_r", "pay_roll"},
		{"s!n", "yes!no"},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			list, total, err := e.reports.AdminList(ctx, admin, service.ReportListFilter{Search: tt.search}, 1, 20)
			require.NoError(t, err)
			require.EqualValues(t, 1, total)
			require.Equal(t, tt.want, list[0].Title)
		})
	}

	require.NoError(t, e.db.Model(owner).Update("username", "hundred%club").Error)
	other := e.fx.User(domain.RoleUser, domain.PlanFree)
	require.NoError(t, e.db.Model(other).Update("username", "hundredxclub").Error)

	users, total, err := e.users.List(ctx, admin, repository.UserFilter{Search: "d%c"}, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "hundred%club", users[0].Username)
}
