package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for transport mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnauthenticated
	KindPermission
	KindNotFound
	KindConflict
	KindQuotaExceeded
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindQuotaExceeded:
		return "quota_exceeded"
	}
	return "unknown"
}

// Error is the error type every service returns for expected failures.
// Code is a stable machine-readable identifier, Message is safe to show users.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func Validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func Permission(code, msg string) *Error {
	return &Error{Kind: KindPermission, Code: code, Message: msg}
}

func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Code: resource + "_not_found", Message: resource + " not found"}
}

func InvalidTransition(from, to ReportStatus) *Error {
	msg := fmt.Sprintf("cannot move report from %s to %s", from, to)
	if from.Terminal() {
		msg = fmt.Sprintf("report is %s and its status can no longer change", from)
	}
	return &Error{Kind: KindConflict, Code: "invalid_status_transition", Message: msg}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Code: "unauthenticated", Message: "authentication required"}
	ErrForbidden       = Permission("forbidden", "you do not have permission to perform this action")

	ErrInvalidCredentials = &Error{Kind: KindUnauthenticated, Code: "invalid_credentials", Message: "invalid username or password"}
	ErrAccountDisabled    = &Error{Kind: KindUnauthenticated, Code: "account_disabled", Message: "this account has been deactivated"}
	ErrInvalidToken       = &Error{Kind: KindUnauthenticated, Code: "invalid_token", Message: "token is invalid or expired"}
	ErrUsernameTaken      = Conflict("username_taken", "username already in use")
	ErrEmailTaken         = Conflict("email_taken", "email already registered")
	ErrWrongPassword      = Validation("wrong_password", "current password is incorrect")

	ErrQuotaExceeded = &Error{
		Kind:    KindQuotaExceeded,
		Code:    "free_quota_exceeded",
		Message: fmt.Sprintf("free plan allows %d reports per 30 days, upgrade to premium to submit more", FreeReportQuota),
	}
	ErrReportLocked      = Conflict("report_locked", "report can only be changed while it is pending")
	ErrAnonymityLocked   = Validation("anonymity_immutable", "is_anonymous cannot be changed after submission")
	ErrPriorityAdminOnly = Permission("priority_admin_only", "only admins can set the priority flag")

	ErrPendingRequestExists  = Conflict("pending_request_exists", "you already have a pending admin access request")
	ErrAlreadyAdmin          = Conflict("already_admin", "you already have admin access")
	ErrRequestAlreadyHandled = Conflict("request_already_reviewed", "access request has already been reviewed")
	ErrSelfReview            = Permission("self_review", "you cannot review your own access request")
	ErrSelfDeactivate        = Validation("self_deactivate", "you cannot deactivate your own account")
)
