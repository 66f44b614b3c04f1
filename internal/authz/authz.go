// Package authz holds the role/plan predicates and the capability table
// every route and service consults.
package authz

import (
	"sort"

	"safevoice/internal/domain"
)

// Principal is the caller of an operation, resolved from a fresh user row.
type Principal struct {
	UserID        uint
	Role          domain.Role
	Plan          domain.Plan
	Authenticated bool
}

func Anonymous() Principal {
	return Principal{}
}

func IsAuthenticated(p Principal) bool {
	return p.Authenticated && p.UserID != 0
}

func IsAdmin(p Principal) bool {
	return IsAuthenticated(p) && p.Role == domain.RoleAdmin
}

func IsPremiumAdmin(p Principal) bool {
	return IsAdmin(p) && p.Plan == domain.PlanPremium
}

// IsOwner reports whether p owns an object whose owner id is ownerID.
func IsOwner(p Principal, ownerID *uint) bool {
	return IsAuthenticated(p) && ownerID != nil && *ownerID == p.UserID
}

func IsOwnerOrAdmin(p Principal, ownerID *uint) bool {
	return IsAdmin(p) || IsOwner(p, ownerID)
}

type Capability string

const (
	SubmitReport         Capability = "submit_report"
	ViewOwnReports       Capability = "view_own_reports"
	Comment              Capability = "comment"
	RequestAdminAccess   Capability = "request_admin_access"
	ViewNotifications    Capability = "view_notifications"
	ViewProfile          Capability = "view_profile"
	ReviewAccessRequests Capability = "review_access_requests"
	ListReports          Capability = "list_reports"
	ViewReportAdmin      Capability = "view_report_admin"
	TriageReport         Capability = "triage_report"
	BasicAnalytics       Capability = "basic_analytics"
	InternalComments     Capability = "internal_comments"
	FullAnalytics        Capability = "full_analytics"
	ExportReports        Capability = "export_reports"
	ManageUsers          Capability = "manage_users"
	ChangePlan           Capability = "change_plan"
	ViewAuditLog         Capability = "view_audit_log"
)

var requirements = map[Capability]func(Principal) bool{
	SubmitReport:       IsAuthenticated,
	ViewOwnReports:     IsAuthenticated,
	Comment:            IsAuthenticated,
	RequestAdminAccess: IsAuthenticated,
	ViewNotifications:  IsAuthenticated,
	ViewProfile:        IsAuthenticated,

	ReviewAccessRequests: IsAdmin,
	ListReports:          IsAdmin,
	ViewReportAdmin:      IsAdmin,
	TriageReport:         IsAdmin,
	BasicAnalytics:       IsAdmin,
	InternalComments:     IsAdmin,

	FullAnalytics: IsPremiumAdmin,
	ExportReports: IsPremiumAdmin,
	ManageUsers:   IsPremiumAdmin,
	ChangePlan:    IsPremiumAdmin,
	ViewAuditLog:  IsPremiumAdmin,
}

// Allows reports whether p holds capability c. Unknown capabilities are denied.
func Allows(p Principal, c Capability) bool {
	pred, ok := requirements[c]
	return ok && pred(p)
}

// Require returns nil when p holds c, ErrUnauthenticated for anonymous
// callers and ErrForbidden otherwise.
func Require(p Principal, c Capability) error {
	if !IsAuthenticated(p) {
		return domain.ErrUnauthenticated
	}
	if !Allows(p, c) {
		return domain.ErrForbidden
	}
	return nil
}

// Capabilities lists what p may do, sorted, for clients that gate UI on it.
func Capabilities(p Principal) []Capability {
	out := make([]Capability, 0, len(requirements))
	for c, pred := range requirements {
		if pred(p) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
