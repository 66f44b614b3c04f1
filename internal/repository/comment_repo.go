package repository

import (
	"context"

	"safevoice/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, c *models.ReportComment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

func (r *CommentRepository) GetByID(ctx context.Context, reportID, id uint) (*models.ReportComment, error) {
	var c models.ReportComment
	err := r.db.WithContext(ctx).Preload("Sender").Where("report_id = ?", reportID).First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByReport returns comments oldest first. Internal notes are included
// only when includeInternal is set.
func (r *CommentRepository) ListByReport(ctx context.Context, reportID uint, includeInternal bool) ([]models.ReportComment, error) {
	q := r.db.WithContext(ctx).Preload("Sender").Where("report_id = ?", reportID)
	if !includeInternal {
		q = q.Where("is_internal = ?", false)
	}
	var list []models.ReportComment
	err := q.Order("sent_at ASC, id ASC").Find(&list).Error
	return list, err
}

func (r *CommentRepository) Update(ctx context.Context, c *models.ReportComment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(c).Error
}

func (r *CommentRepository) DeleteByReport(ctx context.Context, reportID uint) error {
	return r.db.WithContext(ctx).Where("report_id = ?", reportID).Delete(&models.ReportComment{}).Error
}
