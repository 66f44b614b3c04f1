package handler_test

import (
	"net/http"
	"strconv"
	"testing"

	"safevoice/internal/domain"
	"safevoice/internal/models"
	"safevoice/internal/testutil"

	"github.com/stretchr/testify/require"
)

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func TestRegisterLoginRefresh(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodPost, "/api/v1/auth/register", map[string]interface{}{
		"username": "whistler", "email": "W@Example.com", "password": "longenough1", "role": "admin", "plan": "premium",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := decode(t, w)["user"].(map[string]interface{})
	require.Equal(t, "user", user["role"])
	require.Equal(t, "free", user["plan"])
	require.Equal(t, "w@example.com", user["email"])

	w = a.do(http.MethodPost, "/api/v1/auth/register", map[string]interface{}{
		"username": "whistler", "email": "other@example.com", "password": "longenough1",
	}, nil)
	requireCode(t, w, http.StatusConflict, "username_taken")

	w = a.do(http.MethodPost, "/api/v1/auth/login", map[string]interface{}{"username": "whistler", "password": "nope"}, nil)
	requireCode(t, w, http.StatusUnauthorized, "invalid_credentials")

	w = a.do(http.MethodPost, "/api/v1/auth/login", map[string]interface{}{"email": "w@example.com", "password": "longenough1"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	refresh := decode(t, w)["refresh_token"].(string)

	w = a.do(http.MethodPost, "/api/v1/auth/refresh", map[string]interface{}{"refresh_token": refresh}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotEmpty(t, decode(t, w)["access_token"])

	w = a.do(http.MethodPost, "/api/v1/auth/refresh", map[string]interface{}{"refresh_token": refresh}, nil)
	requireCode(t, w, http.StatusUnauthorized, "invalid_token")

	var logs int64
	require.NoError(t, a.db.Model(&models.AuditLog{}).Where("action IN ?", []string{"register", "login"}).Count(&logs).Error)
	require.EqualValues(t, 2, logs)
}

func TestAuthRequired(t *testing.T) {
	a := newAPI(t)
	u := a.fx.User(domain.RoleUser, domain.PlanFree)

	w := a.do(http.MethodGet, "/api/v1/me/profile", nil, nil)
	requireCode(t, w, http.StatusUnauthorized, "missing_authorization")

	w = a.do(http.MethodGet, "/api/v1/me/profile", nil, u)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, u.Username, decode(t, w)["username"])

	// Role changes apply to tokens already issued.
	require.NoError(t, a.db.Model(&models.User{}).Where("id = ?", u.ID).Update("role", string(domain.RoleAdmin)).Error)
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/admin/reports", nil, u).Code)

	require.NoError(t, a.db.Model(&models.User{}).Where("id = ?", u.ID).Update("is_active", false).Error)
	w = a.do(http.MethodGet, "/api/v1/me/profile", nil, u)
	requireCode(t, w, http.StatusUnauthorized, "account_disabled")
}

func TestProfileUpdateRejectsRoleAndPlan(t *testing.T) {
	a := newAPI(t)
	u := a.fx.User(domain.RoleUser, domain.PlanFree)

	for _, body := range []map[string]interface{}{{"role": "admin"}, {"plan": "premium"}} {
		w := a.do(http.MethodPatch, "/api/v1/me/profile", body, u)
		requireCode(t, w, http.StatusForbidden, "role_plan_admin_only")
	}

	w := a.do(http.MethodPatch, "/api/v1/me/profile", map[string]interface{}{"username": "renamed"}, u)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "renamed", decode(t, w)["username"])
}

func TestAccessRequestReviewOverHTTP(t *testing.T) {
	a := newAPI(t)
	user := a.fx.User(domain.RoleUser, domain.PlanFree)
	admin := a.fx.User(domain.RoleAdmin, domain.PlanFree)

	w := a.do(http.MethodPost, "/api/v1/admin-requests", map[string]interface{}{"request_type": "individual"}, user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := uint(decode(t, w)["id"].(float64))

	w = a.do(http.MethodPost, "/api/v1/admin-requests", map[string]interface{}{"request_type": "individual"}, user)
	requireCode(t, w, http.StatusConflict, "pending_request_exists")

	w = a.do(http.MethodPost, "/api/v1/admin/access-requests/"+itoa(id)+"/review", map[string]interface{}{"action": "approve"}, user)
	requireCode(t, w, http.StatusForbidden, "forbidden")

	w = a.do(http.MethodPost, "/api/v1/admin/access-requests/"+itoa(id)+"/review", map[string]interface{}{"action": "approve"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var reloaded models.User
	require.NoError(t, a.db.First(&reloaded, user.ID).Error)
	require.Equal(t, domain.RoleAdmin, reloaded.Role)
	require.Nil(t, reloaded.OrganizationID)

	w = a.do(http.MethodGet, "/api/v1/me/notifications/unread-count", nil, user)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, decode(t, w)["unread"])
}

func TestAdminUserManagement(t *testing.T) {
	a := newAPI(t)
	freeAdmin := a.fx.User(domain.RoleAdmin, domain.PlanFree)
	premiumAdmin := a.fx.User(domain.RoleAdmin, domain.PlanPremium)
	target := a.fx.User(domain.RoleUser, domain.PlanFree)

	requireCode(t, a.do(http.MethodGet, "/api/v1/admin/users", nil, freeAdmin), http.StatusForbidden, "forbidden")

	w := a.do(http.MethodPost, "/api/v1/admin/users/"+itoa(target.ID)+"/plan", map[string]interface{}{"plan": "premium"}, premiumAdmin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "premium", decode(t, w)["plan"])

	w = a.do(http.MethodDelete, "/api/v1/admin/users/"+itoa(premiumAdmin.ID), nil, premiumAdmin)
	requireCode(t, w, http.StatusBadRequest, "self_deactivate")

	w = a.do(http.MethodDelete, "/api/v1/admin/users/"+itoa(target.ID), nil, premiumAdmin)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(http.MethodPost, "/api/v1/auth/login", map[string]interface{}{"username": target.Username, "password": testutil.Password}, nil)
	requireCode(t, w, http.StatusUnauthorized, "account_disabled")

	w = a.do(http.MethodGet, "/api/v1/admin/audit-logs?action=user_deactivate", nil, premiumAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, decode(t, w)["total"])
}
