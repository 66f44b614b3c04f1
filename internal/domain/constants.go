package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", Validation("invalid_role", "role must be one of: user, admin")
	}
	return r, nil
}

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPremium
}

func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", Validation("invalid_plan", "plan must be one of: free, premium")
	}
	return p, nil
}

type ReportStatus string

const (
	StatusPending     ReportStatus = "pending"
	StatusUnderReview ReportStatus = "under_review"
	StatusResolved    ReportStatus = "resolved"
	StatusRejected    ReportStatus = "rejected"
	StatusEscalated   ReportStatus = "escalated"
)

// ReportStatuses is the display order used by analytics and exports.
var ReportStatuses = []ReportStatus{
	StatusPending,
	StatusUnderReview,
	StatusResolved,
	StatusRejected,
	StatusEscalated,
}

var reportTransitions = map[ReportStatus][]ReportStatus{
	StatusPending:     {StatusUnderReview, StatusEscalated, StatusRejected, StatusResolved},
	StatusUnderReview: {StatusResolved, StatusRejected, StatusEscalated},
	StatusEscalated:   {StatusUnderReview},
}

func (s ReportStatus) Valid() bool {
	for _, v := range ReportStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether an admin may move a report from s to next.
// Staying on the same status is not a transition.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	for _, allowed := range reportTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ReportStatus) Terminal() bool {
	return len(reportTransitions[s]) == 0
}

func (s ReportStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusUnderReview:
		return "Under Review"
	case StatusResolved:
		return "Resolved"
	case StatusRejected:
		return "Rejected"
	case StatusEscalated:
		return "Escalated"
	}
	return string(s)
}

func ParseReportStatus(s string) (ReportStatus, error) {
	st := ReportStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", Validation("invalid_status", "status must be one of: pending, under_review, resolved, rejected, escalated")
	}
	return st, nil
}

type Category string

const (
	CategoryAbuse      Category = "abuse"
	CategoryCorruption Category = "corruption"
	CategoryHarassment Category = "harassment"
	CategoryOther      Category = "other"
)

var Categories = []Category{
	CategoryAbuse,
	CategoryCorruption,
	CategoryHarassment,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

func (c Category) Label() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", Validation("invalid_category", "category must be one of: abuse, corruption, harassment, other")
	}
	return c, nil
}

type AccessRequestType string

const (
	RequestIndividual   AccessRequestType = "individual"
	RequestOrganization AccessRequestType = "organization"
)

func ParseAccessRequestType(s string) (AccessRequestType, error) {
	t := AccessRequestType(strings.ToLower(strings.TrimSpace(s)))
	if t != RequestIndividual && t != RequestOrganization {
		return "", Validation("invalid_request_type", "request_type must be one of: individual, organization")
	}
	return t, nil
}

type AccessRequestStatus string

const (
	RequestPending  AccessRequestStatus = "pending"
	RequestApproved AccessRequestStatus = "approved"
	RequestRejected AccessRequestStatus = "rejected"
)

func ParseAccessRequestStatus(s string) (AccessRequestStatus, error) {
	st := AccessRequestStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case RequestPending, RequestApproved, RequestRejected:
		return st, nil
	}
	return "", Validation("invalid_request_status", "status must be one of: pending, approved, rejected")
}

const (
	NotificationReportStatus  = "report_status"
	NotificationAccessRequest = "access_request"
)

const (
	FreeReportQuota = 3
	QuotaWindow     = 30 * 24 * time.Hour
	TrendMonths     = 6
	ActivityDays    = 30
)

// AnonymousDisplayName replaces the submitter's username on anonymous reports.
const AnonymousDisplayName = "Anonymous User"
