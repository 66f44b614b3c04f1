package service

import (
	"context"
	"time"

	"safevoice/internal/authz"
	"safevoice/internal/domain"
	"safevoice/internal/repository"
)

const (
	TierBasic = "basic"
	TierFull  = "full"
)

type PeriodCount struct {
	Period string `json:"period"`
	Count  int64  `json:"count"`
}

type PlanSplit struct {
	Premium int64 `json:"premium"`
	Free    int64 `json:"free"`
}

type AnonymitySplit struct {
	Anonymous  int64 `json:"anonymous"`
	Identified int64 `json:"identified"`
}

// Analytics is the admin dashboard payload. The full-tier fields are nil on the basic tier.
type Analytics struct {
	Tier            string           `json:"tier"`
	TotalReports    int64            `json:"total_reports"`
	ByStatus        map[string]int64 `json:"by_status"`
	ByCategory      map[string]int64 `json:"by_category"`
	MonthlyTrend    []PeriodCount    `json:"monthly_trend,omitempty"`
	PlanSplit       *PlanSplit       `json:"plan_split,omitempty"`
	AnonymitySplit  *AnonymitySplit  `json:"anonymity_split,omitempty"`
	PriorityFlagged *int64           `json:"priority_flagged,omitempty"`
	TotalUsers      *int64           `json:"total_users,omitempty"`
	Organizations   *int64           `json:"organizations,omitempty"`
	PendingRequests *int64           `json:"pending_access_requests,omitempty"`
}

type UserAnalytics struct {
	TotalReports    int64            `json:"total_reports"`
	ByStatus        map[string]int64 `json:"by_status"`
	ByCategory      map[string]int64 `json:"by_category"`
	PriorityFlagged int64            `json:"priority_flagged"`
	DailyActivity   []PeriodCount    `json:"daily_activity"`
}

type AnalyticsService struct {
	repos *repository.Repos
	Now   func() time.Time
}

func NewAnalyticsService(repos *repository.Repos) *AnalyticsService {
	return &AnalyticsService{repos: repos, Now: utcNow}
}

// Admin returns the basic tier to any admin and the full tier to premium admins.
func (s *AnalyticsService) Admin(ctx context.Context, p authz.Principal) (*Analytics, error) {
	if err := authz.Require(p, authz.BasicAnalytics); err != nil {
		return nil, err
	}
	all := repository.ReportScope{}
	a := &Analytics{Tier: TierBasic}
	var err error
	if a.TotalReports, a.ByStatus, a.ByCategory, err = s.breakdown(ctx, all); err != nil {
		return nil, err
	}
	if !authz.Allows(p, authz.FullAnalytics) {
		return a, nil
	}

	a.Tier = TierFull
	if a.MonthlyTrend, err = s.monthlyTrend(ctx, all); err != nil {
		return nil, err
	}
	premium, err := s.repos.Admin.CountReportsWhere(ctx, all, "is_premium = ?", true)
	if err != nil {
		return nil, err
	}
	a.PlanSplit = &PlanSplit{Premium: premium, Free: a.TotalReports - premium}
	anonymous, err := s.repos.Admin.CountReportsWhere(ctx, all, "is_anonymous = ?", true)
	if err != nil {
		return nil, err
	}
	a.AnonymitySplit = &AnonymitySplit{Anonymous: anonymous, Identified: a.TotalReports - anonymous}
	flagged, err := s.repos.Admin.CountReportsWhere(ctx, all, "priority_flag = ?", true)
	if err != nil {
		return nil, err
	}
	a.PriorityFlagged = &flagged
	return s.addCounts(ctx, a)
}

func (s *AnalyticsService) addCounts(ctx context.Context, a *Analytics) (*Analytics, error) {
	users, err := s.repos.Users.Count(ctx)
	if err != nil {
		return nil, err
	}
	orgs, err := s.repos.Organizations.Count(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.repos.AccessRequests.CountByStatus(ctx, domain.RequestPending)
	if err != nil {
		return nil, err
	}
	a.TotalUsers, a.Organizations, a.PendingRequests = &users, &orgs, &pending
	return a, nil
}

// Mine summarizes the caller's own reports with a 30-day daily activity series.
func (s *AnalyticsService) Mine(ctx context.Context, p authz.Principal) (*UserAnalytics, error) {
	if err := authz.Require(p, authz.ViewOwnReports); err != nil {
		return nil, err
	}
	owner := p.UserID
	scope := repository.ReportScope{OwnerID: &owner}
	out := &UserAnalytics{}
	var err error
	if out.TotalReports, out.ByStatus, out.ByCategory, err = s.breakdown(ctx, scope); err != nil {
		return nil, err
	}
	if out.PriorityFlagged, err = s.repos.Admin.CountReportsWhere(ctx, scope, "priority_flag = ?", true); err != nil {
		return nil, err
	}

	today := truncateDay(s.Now())
	first := today.AddDate(0, 0, -(domain.ActivityDays - 1))
	times, err := s.repos.Reports.SubmittedTimes(ctx, owner, first)
	if err != nil {
		return nil, err
	}
	out.DailyActivity = DailyBuckets(times, first, domain.ActivityDays)
	return out, nil
}

// breakdown returns the total plus zero-filled status and category counts.
func (s *AnalyticsService) breakdown(ctx context.Context, scope repository.ReportScope) (int64, map[string]int64, map[string]int64, error) {
	total, err := s.repos.Admin.CountReports(ctx, scope)
	if err != nil {
		return 0, nil, nil, err
	}
	rawStatus, err := s.repos.Admin.CountReportsByStatus(ctx, scope)
	if err != nil {
		return 0, nil, nil, err
	}
	rawCategory, err := s.repos.Admin.CountReportsByCategory(ctx, scope)
	if err != nil {
		return 0, nil, nil, err
	}
	byStatus := make(map[string]int64, len(domain.ReportStatuses))
	for _, st := range domain.ReportStatuses {
		byStatus[string(st)] = rawStatus[string(st)]
	}
	byCategory := make(map[string]int64, len(domain.Categories))
	for _, c := range domain.Categories {
		byCategory[string(c)] = rawCategory[string(c)]
	}
	return total, byStatus, byCategory, nil
}

func (s *AnalyticsService) monthlyTrend(ctx context.Context, scope repository.ReportScope) ([]PeriodCount, error) {
	months := MonthWindows(s.Now(), domain.TrendMonths)
	out := make([]PeriodCount, len(months))
	for i, start := range months {
		n, err := s.repos.Admin.CountReportsBetween(ctx, scope, start, start.AddDate(0, 1, 0))
		if err != nil {
			return nil, err
		}
		out[i] = PeriodCount{Period: start.Format("2006-01"), Count: n}
	}
	return out, nil
}

// MonthWindows returns the first instant of the n calendar months ending
// with the month of now, oldest first.
func MonthWindows(now time.Time, n int) []time.Time {
	now = now.UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		out[i] = current.AddDate(0, i-(n-1), 0)
	}
	return out
}

// DailyBuckets counts times per UTC day for days consecutive days from first.
func DailyBuckets(times []time.Time, first time.Time, days int) []PeriodCount {
	first = truncateDay(first)
	out := make([]PeriodCount, days)
	for i := range out {
		out[i].Period = first.AddDate(0, 0, i).Format("2006-01-02")
	}
	for _, t := range times {
		idx := int(truncateDay(t).Sub(first).Hours() / 24)
		if idx >= 0 && idx < days {
			out[idx].Count++
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
