package service

import (
	"context"
	"time"

	"safevoice/internal/authz"
	"safevoice/internal/domain"
	"safevoice/internal/models"
	"safevoice/internal/repository"

	"go.uber.org/zap"
)

// Pusher delivers a payload to a user's live connections.
type Pusher interface {
	BroadcastToUser(userID uint, payload interface{})
}

type NotificationView struct {
	ID          uint       `json:"id"`
	Type        string     `json:"type"`
	Message     string     `json:"message"`
	IsRead      bool       `json:"is_read"`
	ReadAt      *time.Time `json:"read_at"`
	CreatedAt   time.Time  `json:"created_at"`
	ReportID    *uint      `json:"report_id"`
	ReportTitle string     `json:"report_title,omitempty"`
}

func NewNotificationView(n *models.Notification) NotificationView {
	v := NotificationView{
		ID:        n.ID,
		Type:      n.Type,
		Message:   n.Message,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
		ReportID:  n.ReportID,
	}
	if n.Report != nil {
		v.ReportTitle = n.Report.Title
	}
	return v
}

type NotificationService struct {
	repos *repository.Repos
	hub   Pusher
	fcm   *FCMService
	log   *zap.Logger
	Now   func() time.Time
}

func NewNotificationService(repos *repository.Repos, hub Pusher, fcm *FCMService, log *zap.Logger) *NotificationService {
	return &NotificationService{repos: repos, hub: hub, fcm: fcm, log: log, Now: utcNow}
}

// Record writes n inside tx. Deliver it once tx has committed.
func (s *NotificationService) Record(ctx context.Context, tx *repository.Repos, n *models.Notification) error {
	n.CreatedAt = s.Now()
	return tx.Notifications.Create(ctx, n)
}

// Deliver pushes a committed notification over the hub and FCM. Failures are logged only.
func (s *NotificationService) Deliver(ctx context.Context, n *models.Notification, title string) {
	if n == nil {
		return
	}
	if s.hub != nil {
		s.hub.BroadcastToUser(n.UserID, map[string]interface{}{
			"type":         "notification",
			"notification": NewNotificationView(n),
		})
	}
	if s.fcm == nil {
		return
	}
	u, err := s.repos.Users.GetByID(ctx, n.UserID)
	if err != nil || u.FCMToken == "" {
		return
	}
	data := map[string]interface{}{"notification_id": n.ID}
	if n.ReportID != nil {
		data["report_id"] = *n.ReportID
	}
	token := u.FCMToken
	go func() {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.fcm.SendToUser(pushCtx, token, n.Type, title, n.Message, data)
	}()
}

func (s *NotificationService) List(ctx context.Context, p authz.Principal, unreadOnly bool, page, limit int) ([]NotificationView, error) {
	if err := authz.Require(p, authz.ViewNotifications); err != nil {
		return nil, err
	}
	page, limit = pageBounds(page, limit)
	list, err := s.repos.Notifications.ListByUserID(ctx, p.UserID, unreadOnly, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	out := make([]NotificationView, len(list))
	for i := range list {
		out[i] = NewNotificationView(&list[i])
	}
	return out, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, p authz.Principal) (int64, error) {
	if err := authz.Require(p, authz.ViewNotifications); err != nil {
		return 0, err
	}
	return s.repos.Notifications.CountUnread(ctx, p.UserID)
}

func (s *NotificationService) MarkRead(ctx context.Context, p authz.Principal, id uint) error {
	if err := authz.Require(p, authz.ViewNotifications); err != nil {
		return err
	}
	found, err := s.repos.Notifications.MarkRead(ctx, id, p.UserID, s.Now())
	if err != nil {
		return err
	}
	if !found {
		return domain.NotFound("notification")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, p authz.Principal) (int64, error) {
	if err := authz.Require(p, authz.ViewNotifications); err != nil {
		return 0, err
	}
	return s.repos.Notifications.MarkAllRead(ctx, p.UserID, s.Now())
}
