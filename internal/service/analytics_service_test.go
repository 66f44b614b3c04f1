package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"safevoice/internal/domain"
	"safevoice/internal/models"
	"safevoice/internal/service"
	"safevoice/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestAdminAnalyticsTiers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.fx.User(domain.RoleUser, domain.PlanPremium)
	e.fx.Report(owner, func(r *models.Report) { r.IsAnonymous = true; r.PriorityFlag = true })
	e.fx.Report(owner, func(r *models.Report) { r.Category = domain.CategoryOther; r.IsPremium = false })
	e.fx.Report(owner, func(r *models.Report) { r.Status = domain.StatusResolved })

	basic, err := e.analytics.Admin(ctx, testutil.Principal(e.fx.User(domain.RoleAdmin, domain.PlanFree)))
	require.NoError(t, err)
	require.Equal(t, service.TierBasic, basic.Tier)
	require.EqualValues(t, 3, basic.TotalReports)
	require.Len(t, basic.ByStatus, len(domain.ReportStatuses))
	require.Len(t, basic.ByCategory, len(domain.Categories))
	require.EqualValues(t, 2, basic.ByStatus["pending"])
	require.EqualValues(t, 0, basic.ByStatus["escalated"])
	require.EqualValues(t, 0, basic.ByCategory["harassment"])
	require.Nil(t, basic.MonthlyTrend)
	require.Nil(t, basic.PlanSplit)

	full, err := e.analytics.Admin(ctx, testutil.Principal(e.fx.User(domain.RoleAdmin, domain.PlanPremium)))
	require.NoError(t, err)
	require.Equal(t, service.TierFull, full.Tier)
	require.Len(t, full.MonthlyTrend, domain.TrendMonths)
	require.Equal(t, time.Now().UTC().Format("2006-01"), full.MonthlyTrend[domain.TrendMonths-1].Period)
	require.EqualValues(t, 3, full.MonthlyTrend[domain.TrendMonths-1].Count)
	require.Equal(t, service.PlanSplit{Premium: 2, Free: 1}, *full.PlanSplit)
	require.Equal(t, service.AnonymitySplit{Anonymous: 1, Identified: 2}, *full.AnonymitySplit)
	require.EqualValues(t, 1, *full.PriorityFlagged)

	_, err = e.analytics.Admin(ctx, testutil.Principal(owner))
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestMonthlyTrendIsAlwaysSixMonths(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ap := testutil.Principal(e.fx.User(domain.RoleAdmin, domain.PlanPremium))
	e.analytics.Now = func() time.Time { return time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC) }

	a, err := e.analytics.Admin(ctx, ap)
	require.NoError(t, err)
	periods := make([]string, len(a.MonthlyTrend))
	for i, m := range a.MonthlyTrend {
		periods[i] = m.Period
		require.Zero(t, m.Count)
	}
	require.Equal(t, []string{"2024-09", "2024-10", "2024-11", "2024-12", "2025-01", "2025-02"}, periods)
}

func TestDailyBuckets(t *testing.T) {
	first := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{
		first.Add(2 * time.Hour),
		first.Add(5 * time.Hour),
		first.AddDate(0, 0, 2).Add(23 * time.Hour),
		first.AddDate(0, 0, -1),
		first.AddDate(0, 0, 30),
	}
	out := service.DailyBuckets(times, first, 30)
	require.Len(t, out, 30)
	require.Equal(t, "2025-03-01", out[0].Period)
	require.Equal(t, "2025-03-30", out[29].Period)
	require.EqualValues(t, 2, out[0].Count)
	require.EqualValues(t, 1, out[2].Count)

	var sum int64
	for _, b := range out {
		sum += b.Count
	}
	require.EqualValues(t, 3, sum)
}

func TestMyAnalytics(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.fx.User(domain.RoleUser, domain.PlanFree)
	other := e.fx.User(domain.RoleUser, domain.PlanFree)
	e.fx.Report(u, func(r *models.Report) { r.PriorityFlag = true })
	e.fx.Report(u, func(r *models.Report) { r.SubmittedAt = time.Now().UTC().AddDate(0, 0, -60) })
	e.fx.Report(other)

	a, err := e.analytics.Mine(ctx, testutil.Principal(u))
	require.NoError(t, err)
	require.EqualValues(t, 2, a.TotalReports)
	require.EqualValues(t, 1, a.PriorityFlagged)
	require.Len(t, a.DailyActivity, domain.ActivityDays)
	require.Equal(t, time.Now().UTC().Format("2006-01-02"), a.DailyActivity[domain.ActivityDays-1].Period)
	require.EqualValues(t, 1, a.DailyActivity[domain.ActivityDays-1].Count)
}

func TestExportCSV(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.fx.User(domain.RoleUser, domain.PlanFree)
	e.fx.Report(owner, func(r *models.Report) { r.Title = "=HYPERLINK(\"x\")"; r.PriorityFlag = true })
	e.fx.Report(owner, func(r *models.Report) { r.Category = domain.CategoryCorruption })

	premium := testutil.Principal(e.fx.User(domain.RoleAdmin, domain.PlanPremium))

	_, err := e.export.Prepare(testutil.Principal(e.fx.User(domain.RoleAdmin, domain.PlanFree)), service.ReportListFilter{})
	require.ErrorIs(t, err, domain.ErrForbidden)

	for _, f := range []service.ReportListFilter{{Status: "bogus"}, {Category: "fraud"}} {
		_, err = e.export.Prepare(premium, f)
		requireKind(t, err, domain.KindValidation)
	}

	var buf bytes.Buffer
	exp, err := e.export.Prepare(premium, service.ReportListFilter{})
	require.NoError(t, err)
	require.Regexp(t, `^reports_\d{8}_\d{6}\.csv$`, exp.Filename)
	require.NoError(t, exp.WriteCSV(ctx, &buf))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, service.ExportHeader, rows[0])
	require.Equal(t, "'=HYPERLINK(\"x\")", rows[1][1])
	require.Equal(t, "Yes", rows[1][4])
	require.Equal(t, "Corruption", rows[2][2])
	require.Equal(t, "", rows[2][8])

	buf.Reset()
	exp, err = e.export.Prepare(premium, service.ReportListFilter{Category: "corruption"})
	require.NoError(t, err)
	require.NoError(t, exp.WriteCSV(ctx, &buf))
	rows, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
}
