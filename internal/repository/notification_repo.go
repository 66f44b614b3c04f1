package repository

import (
	"context"
	"time"

	"safevoice/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(n).Error
}

func (r *NotificationRepository) ListByUserID(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	q := r.db.WithContext(ctx).Preload("Report", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "title", "token", "status")
	}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var list []models.Notification
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var c int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&c).Error
	return c, err
}

// MarkRead returns false when no notification with id belongs to userID.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uint, at time.Time) (bool, error) {
	var c int64
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ? AND user_id = ?", id, userID).Count(&c).Error; err != nil {
		return false, err
	}
	if c == 0 {
		return false, nil
	}
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at}).Error
	return true, err
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

// DetachReport clears report_id on notifications about a deleted report.
func (r *NotificationRepository) DetachReport(ctx context.Context, reportID uint) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("report_id = ?", reportID).
		Update("report_id", nil).Error
}
