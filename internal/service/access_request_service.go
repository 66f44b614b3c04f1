package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"safevoice/internal/authz"
	"safevoice/internal/domain"
	"safevoice/internal/models"
	"safevoice/internal/repository"

	"go.uber.org/zap"
)

type AccessRequestInput struct {
	RequestType             string
	OrganizationName        *string
	OrganizationDescription *string
}

type AccessReviewInput struct {
	Approve bool
	Notes   string
}

type AccessRequestService struct {
	repos         *repository.Repos
	notifications *NotificationService
	mailer        Mailer
	log           *zap.Logger
	Now           func() time.Time
}

func NewAccessRequestService(repos *repository.Repos, notifications *NotificationService, mailer Mailer, log *zap.Logger) *AccessRequestService {
	return &AccessRequestService{
		repos:         repos,
		notifications: notifications,
		mailer:        mailer,
		log:           log,
		Now:           utcNow,
	}
}

// Submit files a request for admin access. A user may hold one pending
// request at a time, checked under a lock on their user row.
func (s *AccessRequestService) Submit(ctx context.Context, p authz.Principal, in AccessRequestInput) (*models.AdminAccessRequest, error) {
	if err := authz.Require(p, authz.RequestAdminAccess); err != nil {
		return nil, err
	}
	reqType, err := domain.ParseAccessRequestType(in.RequestType)
	if err != nil {
		return nil, err
	}
	req := &models.AdminAccessRequest{
		UserID:      p.UserID,
		RequestType: reqType,
		Status:      domain.RequestPending,
		SubmittedAt: s.Now(),
	}
	switch reqType {
	case domain.RequestOrganization:
		name, err := requiredText("organization_name", deref(in.OrganizationName), 255)
		if err != nil {
			return nil, err
		}
		req.OrganizationName = &name
		desc, err := optionalText("organization_description", deref(in.OrganizationDescription), 5000)
		if err != nil {
			return nil, err
		}
		if desc != "" {
			req.OrganizationDescription = &desc
		}
	case domain.RequestIndividual:
		// blank organization fields count as absent
		if strings.TrimSpace(deref(in.OrganizationName)) != "" || strings.TrimSpace(deref(in.OrganizationDescription)) != "" {
			return nil, domain.Validation("organization_fields_forbidden", "organization fields are only allowed for organization requests")
		}
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repos) error {
		u, err := tx.Users.GetByIDForUpdate(ctx, p.UserID)
		if err != nil {
			return notFoundOr(err, "user")
		}
		if u.IsAdmin() {
			return domain.ErrAlreadyAdmin
		}
		n, err := tx.AccessRequests.CountPending(ctx, u.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrPendingRequestExists
		}
		if err := tx.AccessRequests.Create(ctx, req); err != nil {
			return fmt.Errorf("create access request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *AccessRequestService) ListMine(ctx context.Context, p authz.Principal) ([]models.AdminAccessRequest, error) {
	if err := authz.Require(p, authz.RequestAdminAccess); err != nil {
		return nil, err
	}
	return s.repos.AccessRequests.ListByUser(ctx, p.UserID)
}

// List is the admin queue. An empty status lists every request.
func (s *AccessRequestService) List(ctx context.Context, p authz.Principal, status string, page, limit int) ([]models.AdminAccessRequest, int64, error) {
	if err := authz.Require(p, authz.ReviewAccessRequests); err != nil {
		return nil, 0, err
	}
	var st domain.AccessRequestStatus
	if status != "" {
		var err error
		if st, err = domain.ParseAccessRequestStatus(status); err != nil {
			return nil, 0, err
		}
	}
	page, limit = pageBounds(page, limit)
	return s.repos.AccessRequests.List(ctx, st, page, limit)
}

// Review approves or rejects a pending request. Approval promotes the
// requester and, for organization requests, attaches the organization.
func (s *AccessRequestService) Review(ctx context.Context, p authz.Principal, id uint, in AccessReviewInput) (*models.AdminAccessRequest, error) {
	if err := authz.Require(p, authz.ReviewAccessRequests); err != nil {
		return nil, err
	}
	notes, err := optionalText("notes", in.Notes, 5000)
	if err != nil {
		return nil, err
	}

	var (
		requester    *models.User
		notification *models.Notification
	)
	err = s.repos.Transaction(ctx, func(tx *repository.Repos) error {
		req, err := tx.AccessRequests.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "access_request")
		}
		if req.UserID == p.UserID {
			return domain.ErrSelfReview
		}
		if req.Status != domain.RequestPending {
			return domain.ErrRequestAlreadyHandled
		}
		if requester, err = tx.Users.GetByIDForUpdate(ctx, req.UserID); err != nil {
			return notFoundOr(err, "user")
		}

		now := s.Now()
		reviewer := p.UserID
		req.ReviewedAt = &now
		req.ReviewedByID = &reviewer
		req.Notes = notes

		var msg string
		if in.Approve {
			req.Status = domain.RequestApproved
			fields := map[string]interface{}{"role": domain.RoleAdmin}
			if req.RequestType == domain.RequestOrganization && req.OrganizationName != nil {
				org, err := tx.Organizations.GetOrCreate(ctx, *req.OrganizationName, deref(req.OrganizationDescription))
				if err != nil {
					return fmt.Errorf("organization: %w", err)
				}
				fields["organization_id"] = org.ID
			}
			if err := tx.Users.UpdateFields(ctx, requester.ID, fields); err != nil {
				return err
			}
			msg = "Your request for admin access has been approved."
		} else {
			req.Status = domain.RequestRejected
			msg = "Your request for admin access has been rejected."
		}
		if notes != "" {
			msg += " Notes: " + notes
		}
		if err := tx.AccessRequests.Update(ctx, req); err != nil {
			return err
		}
		notification = &models.Notification{
			UserID:  requester.ID,
			Type:    domain.NotificationAccessRequest,
			Message: msg,
		}
		return s.notifications.Record(ctx, tx, notification)
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Deliver(ctx, notification, "Admin access request")
	if s.mailer != nil {
		s.mailer.AccessRequestReviewed(requester.Email, requester.Username, in.Approve, notes)
	}

	out, err := s.repos.AccessRequests.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "access_request")
	}
	return out, nil
}
