package repository

import (
	"context"

	"safevoice/internal/domain"
	"safevoice/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccessRequestRepository struct {
	db *gorm.DB
}

func NewAccessRequestRepository(db *gorm.DB) *AccessRequestRepository {
	return &AccessRequestRepository{db: db}
}

func (r *AccessRequestRepository) Create(ctx context.Context, req *models.AdminAccessRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(req).Error
}

func (r *AccessRequestRepository) GetByID(ctx context.Context, id uint) (*models.AdminAccessRequest, error) {
	var req models.AdminAccessRequest
	if err := r.db.WithContext(ctx).Preload("User").First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *AccessRequestRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.AdminAccessRequest, error) {
	var req models.AdminAccessRequest
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *AccessRequestRepository) CountPending(ctx context.Context, userID uint) (int64, error) {
	var c int64
	err := r.db.WithContext(ctx).Model(&models.AdminAccessRequest{}).
		Where("user_id = ? AND status = ?", userID, domain.RequestPending).
		Count(&c).Error
	return c, err
}

func (r *AccessRequestRepository) ListByUser(ctx context.Context, userID uint) ([]models.AdminAccessRequest, error) {
	var list []models.AdminAccessRequest
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("submitted_at DESC, id DESC").Find(&list).Error
	return list, err
}

// List returns requests with an optional status filter, oldest pending first.
func (r *AccessRequestRepository) List(ctx context.Context, status domain.AccessRequestStatus, page, limit int) ([]models.AdminAccessRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.AdminAccessRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.AdminAccessRequest
	err := q.Preload("User").Order("submitted_at ASC, id ASC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}

func (r *AccessRequestRepository) Update(ctx context.Context, req *models.AdminAccessRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(req).Error
}

func (r *AccessRequestRepository) CountByStatus(ctx context.Context, status domain.AccessRequestStatus) (int64, error) {
	var c int64
	err := r.db.WithContext(ctx).Model(&models.AdminAccessRequest{}).Where("status = ?", status).Count(&c).Error
	return c, err
}
