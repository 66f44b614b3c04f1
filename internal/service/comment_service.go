package service

import (
	"context"
	"fmt"
	"time"

	"safevoice/internal/authz"
	"safevoice/internal/domain"
	"safevoice/internal/models"
	"safevoice/internal/repository"
)

const maxCommentLen = 5000

type CommentView struct {
	ID         uint      `json:"id"`
	ReportID   uint      `json:"report_id"`
	SenderID   *uint     `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	FromAdmin  bool      `json:"from_admin"`
	Mine       bool      `json:"mine"`
	Message    string    `json:"message"`
	IsInternal bool      `json:"is_internal"`
	SentAt     time.Time `json:"sent_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewCommentView renders c as seen by viewer. The submitter of an anonymous
// report is shown as "Anonymous User" without an id, whatever their role.
func NewCommentView(c *models.ReportComment, r *models.Report, viewer authz.Principal) CommentView {
	v := CommentView{
		ID:         c.ID,
		ReportID:   c.ReportID,
		Mine:       viewer.UserID == c.SenderID,
		Message:    c.Message,
		IsInternal: c.IsInternal,
		SentAt:     c.SentAt,
		UpdatedAt:  c.UpdatedAt,
	}
	if r.IsAnonymous && r.SubmittedByID != nil && *r.SubmittedByID == c.SenderID {
		v.SenderName = domain.AnonymousDisplayName
		return v
	}
	id := c.SenderID
	v.SenderID = &id
	v.SenderName = c.Sender.Username
	v.FromAdmin = c.Sender.Role == domain.RoleAdmin
	return v
}

type CommentService struct {
	repos *repository.Repos
	Now   func() time.Time
}

func NewCommentService(repos *repository.Repos) *CommentService {
	return &CommentService{repos: repos, Now: utcNow}
}

// List returns the thread oldest first. Internal notes are only listed for admins.
func (s *CommentService) List(ctx context.Context, p authz.Principal, reportID uint) ([]CommentView, error) {
	if err := authz.Require(p, authz.Comment); err != nil {
		return nil, err
	}
	r, err := s.report(ctx, p, reportID)
	if err != nil {
		return nil, err
	}
	list, err := s.repos.Comments.ListByReport(ctx, r.ID, authz.Allows(p, authz.InternalComments))
	if err != nil {
		return nil, err
	}
	out := make([]CommentView, len(list))
	for i := range list {
		out[i] = NewCommentView(&list[i], r, p)
	}
	return out, nil
}

func (s *CommentService) Create(ctx context.Context, p authz.Principal, reportID uint, message string, internal bool) (*CommentView, error) {
	if err := authz.Require(p, authz.Comment); err != nil {
		return nil, err
	}
	if internal {
		if err := authz.Require(p, authz.InternalComments); err != nil {
			return nil, err
		}
	}
	msg, err := requiredText("message", message, maxCommentLen)
	if err != nil {
		return nil, err
	}
	r, err := s.report(ctx, p, reportID)
	if err != nil {
		return nil, err
	}
	c := &models.ReportComment{
		ReportID:   r.ID,
		SenderID:   p.UserID,
		Message:    msg,
		IsInternal: internal,
		SentAt:     s.Now(),
	}
	if err := s.repos.Comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return s.view(ctx, r, c.ID, p)
}

// Update edits a comment's message. Only its sender may do so.
func (s *CommentService) Update(ctx context.Context, p authz.Principal, reportID, commentID uint, message string) (*CommentView, error) {
	if err := authz.Require(p, authz.Comment); err != nil {
		return nil, err
	}
	msg, err := requiredText("message", message, maxCommentLen)
	if err != nil {
		return nil, err
	}
	r, err := s.report(ctx, p, reportID)
	if err != nil {
		return nil, err
	}
	c, err := s.repos.Comments.GetByID(ctx, r.ID, commentID)
	if err != nil {
		return nil, notFoundOr(err, "comment")
	}
	if c.IsInternal && !authz.Allows(p, authz.InternalComments) {
		return nil, domain.NotFound("comment")
	}
	if c.SenderID != p.UserID {
		return nil, domain.Permission("not_comment_sender", "you can only edit your own comments")
	}
	c.Message = msg
	if err := s.repos.Comments.Update(ctx, c); err != nil {
		return nil, err
	}
	return s.view(ctx, r, c.ID, p)
}

func (s *CommentService) view(ctx context.Context, r *models.Report, id uint, p authz.Principal) (*CommentView, error) {
	c, err := s.repos.Comments.GetByID(ctx, r.ID, id)
	if err != nil {
		return nil, notFoundOr(err, "comment")
	}
	v := NewCommentView(c, r, p)
	return &v, nil
}

func (s *CommentService) report(ctx context.Context, p authz.Principal, id uint) (*models.Report, error) {
	r, err := s.repos.Reports.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "report")
	}
	if !authz.IsOwnerOrAdmin(p, r.SubmittedByID) {
		return nil, domain.NotFound("report")
	}
	return r, nil
}
