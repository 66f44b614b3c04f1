package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"safevoice/internal/domain"
	"safevoice/internal/models"

	"github.com/stretchr/testify/require"
)

func TestReportTriageAndExportFlow(t *testing.T) {
	a := newAPI(t)
	submitter := a.fx.User(domain.RoleUser, domain.PlanFree)
	freeAdmin := a.fx.User(domain.RoleAdmin, domain.PlanFree)
	premiumAdmin := a.fx.User(domain.RoleAdmin, domain.PlanPremium)

	w := a.do(http.MethodPost, "/api/v1/reports", map[string]interface{}{
		"title":       "Cash for contracts",
		"category":    "abuse",
		"description": "The manager asked for a cut.",
	}, submitter)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	require.Equal(t, "pending", created["status"])
	id := uint(created["id"].(float64))

	w = a.do(http.MethodPatch, "/api/v1/admin/reports/"+itoa(id), map[string]interface{}{"status": "under_review"}, freeAdmin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "under_review", decode(t, w)["status"])

	w = a.do(http.MethodGet, "/api/v1/me/notifications", nil, submitter)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["notifications"].([]interface{})
	require.Len(t, list, 1)
	msg := list[0].(map[string]interface{})["message"].(string)
	require.Contains(t, msg, "Pending")
	require.Contains(t, msg, "Under Review")
	require.Equal(t, 1, a.mailer.Count())

	w = a.do(http.MethodGet, "/api/v1/admin/reports/export", nil, freeAdmin)
	requireCode(t, w, http.StatusForbidden, "forbidden")

	w = a.do(http.MethodGet, "/api/v1/admin/reports/export", nil, premiumAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	require.Contains(t, w.Header().Get("Content-Disposition"), "reports_")
	require.True(t, strings.HasPrefix(w.Body.String(),
		"ID,Title,Category,Status,Priority,Anonymous,Premium,Submitted At,Last Status Update\n"))
	require.Contains(t, w.Body.String(), "Cash for contracts")
}

func TestReportDescriptionRoundTrip(t *testing.T) {
	a := newAPI(t)
	user := a.fx.User(domain.RoleUser, domain.PlanPremium)
	const desc = `Supervisor <j.doe> said a<b was "fine" & paid me`

	w := a.do(http.MethodPost, "/api/v1/reports", map[string]interface{}{
		"title": "Kickbacks & <favors>", "category": "corruption", "description": desc,
	}, user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := uint(decode(t, w)["id"].(float64))

	w = a.do(http.MethodGet, "/api/v1/reports/"+itoa(id), nil, user)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	require.Equal(t, desc, got["description"])
	require.Equal(t, "Kickbacks & <favors>", got["title"])
}

func TestExportRejectsBadFilter(t *testing.T) {
	a := newAPI(t)
	premiumAdmin := a.fx.User(domain.RoleAdmin, domain.PlanPremium)

	tests := []struct {
		query string
		code  string
	}{
		{"status=bogus", "invalid_status"},
		{"category=fraud", "invalid_category"},
		{"priority=maybe", "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := a.do(http.MethodGet, "/api/v1/admin/reports/export?"+tt.query, nil, premiumAdmin)
			requireCode(t, w, http.StatusBadRequest, tt.code)
			require.Contains(t, w.Header().Get("Content-Type"), "application/json")
			require.Empty(t, w.Header().Get("Content-Disposition"))
		})
	}
}

func TestSubmitterCannotEditAfterTriage(t *testing.T) {
	a := newAPI(t)
	user := a.fx.User(domain.RoleUser, domain.PlanFree)
	r := a.fx.Report(user, func(r *models.Report) { r.Status = domain.StatusUnderReview })

	w := a.do(http.MethodPatch, "/api/v1/reports/"+itoa(r.ID), map[string]interface{}{"title": "new"}, user)
	requireCode(t, w, http.StatusConflict, "report_locked")
}

func TestFreeQuotaOverHTTP(t *testing.T) {
	a := newAPI(t)
	user := a.fx.User(domain.RoleUser, domain.PlanFree)
	for i := 0; i < domain.FreeReportQuota; i++ {
		a.fx.Report(user)
	}

	w := a.do(http.MethodPost, "/api/v1/reports", map[string]interface{}{
		"title": "one too many", "category": "other", "description": "x",
	}, user)
	requireCode(t, w, http.StatusBadRequest, "free_quota_exceeded")

	w = a.do(http.MethodGet, "/api/v1/me/quota", nil, user)
	require.Equal(t, http.StatusOK, w.Code)
	q := decode(t, w)
	require.Equal(t, true, q["limited"])
	require.EqualValues(t, 0, q["remaining"])
}

func TestMultipartCreate(t *testing.T) {
	a := newAPI(t)
	user := a.fx.User(domain.RoleUser, domain.PlanPremium)

	tests := []struct {
		name     string
		filename string
		content  []byte
		status   int
		code     string
	}{
		{"png evidence", "photo.png", pngBytes, http.StatusCreated, ""},
		{"no file", "", nil, http.StatusCreated, ""},
		{"disallowed extension", "run.exe", pngBytes, http.StatusBadRequest, "unsupported_file_type"},
		{"content does not match extension", "doc.pdf", pngBytes, http.StatusBadRequest, "file_content_mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ctype := multipartReport(t, map[string]string{
				"title":        "Evidence attached",
				"category":     "corruption",
				"description":  "see file",
				"is_anonymous": "true",
			}, tt.filename, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", body)
			req.Header.Set("Content-Type", ctype)
			w := a.send(req, user)
			if tt.code != "" {
				requireCode(t, w, tt.status, tt.code)
				return
			}
			require.Equal(t, tt.status, w.Code, w.Body.String())
			out := decode(t, w)
			require.Equal(t, true, out["is_anonymous"])
			if tt.filename != "" {
				require.NotNil(t, out["file"])
			}
		})
	}
}

func TestPublicTokenLookup(t *testing.T) {
	a := newAPI(t)
	owner := a.fx.User(domain.RoleUser, domain.PlanFree)
	r := a.fx.Report(owner, func(r *models.Report) { r.InternalNotes = "do not leak" })

	anon := a.do(http.MethodGet, "/api/v1/reports/by-token/"+r.Token, nil, nil)
	require.Equal(t, http.StatusOK, anon.Code)
	authed := a.do(http.MethodGet, "/api/v1/reports/by-token/"+r.Token, nil, owner)
	require.Equal(t, http.StatusOK, authed.Code)
	require.JSONEq(t, anon.Body.String(), authed.Body.String())

	body := decode(t, anon)
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	require.ElementsMatch(t, []string{
		"id", "title", "category", "status", "submitted_at", "is_anonymous", "priority_flag", "file_url",
	}, keys)
	require.NotContains(t, anon.Body.String(), "do not leak")

	for _, tok := range []string{"not-a-uuid", "2b0c6a59-9b5f-4a7e-9d38-8f1f2a7f0c11"} {
		w := a.do(http.MethodGet, "/api/v1/reports/by-token/"+tok, nil, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	}

	// Free-plan reports have no certificate.
	w := a.do(http.MethodGet, "/api/v1/reports/by-token/"+r.Token+"/certificate", nil, nil)
	requireCode(t, w, http.StatusForbidden, "premium_required")
}

func TestCertificatePDF(t *testing.T) {
	a := newAPI(t)
	owner := a.fx.User(domain.RoleUser, domain.PlanPremium)
	r := a.fx.Report(owner)

	w := a.do(http.MethodGet, "/api/v1/reports/"+itoa(r.ID)+"/certificate", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}

func TestReportVisibility(t *testing.T) {
	a := newAPI(t)
	owner := a.fx.User(domain.RoleUser, domain.PlanFree)
	other := a.fx.User(domain.RoleUser, domain.PlanFree)
	r := a.fx.Report(owner)

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/reports/"+itoa(r.ID), nil, owner).Code)
	requireCode(t, a.do(http.MethodGet, "/api/v1/reports/"+itoa(r.ID), nil, other), http.StatusNotFound, "report_not_found")
	requireCode(t, a.do(http.MethodGet, "/api/v1/admin/reports/"+itoa(r.ID), nil, owner), http.StatusForbidden, "forbidden")
	require.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/v1/reports/abc", nil, owner).Code)
}

func TestInternalCommentsOverHTTP(t *testing.T) {
	a := newAPI(t)
	owner := a.fx.User(domain.RoleUser, domain.PlanFree)
	admin := a.fx.User(domain.RoleAdmin, domain.PlanFree)
	r := a.fx.Report(owner)
	path := "/api/v1/reports/" + itoa(r.ID) + "/comments"

	w := a.do(http.MethodPost, path, map[string]interface{}{"message": "note", "is_internal": true}, owner)
	requireCode(t, w, http.StatusForbidden, "forbidden")

	w = a.do(http.MethodPost, path, map[string]interface{}{"message": "triage note", "is_internal": true}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = a.do(http.MethodPost, path, map[string]interface{}{"message": "any update?"}, owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodGet, path, nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode(t, w)["data"], 1)

	w = a.do(http.MethodGet, path, nil, admin)
	require.Len(t, decode(t, w)["data"], 2)
}
