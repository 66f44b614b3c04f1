package repository

import (
	"context"
	"time"

	"safevoice/internal/domain"
	"safevoice/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportFilter narrows report listings. Zero values mean no filter.
type ReportFilter struct {
	SubmittedByID *uint
	Status        domain.ReportStatus
	Category      domain.Category
	Priority      *bool
	Search        string
}

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(report).Error
}

func (r *ReportRepository) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	var rep models.Report
	err := r.db.WithContext(ctx).Preload("SubmittedBy").Preload("ReviewedBy").First(&rep, id).Error
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *ReportRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Report, error) {
	var rep models.Report
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&rep, id).Error
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *ReportRepository) GetByToken(ctx context.Context, token string) (*models.Report, error) {
	var rep models.Report
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&rep).Error; err != nil {
		return nil, err
	}
	return &rep, nil
}

// Update writes every column, so the description goes through its serializer.
func (r *ReportRepository) Update(ctx context.Context, rep *models.Report) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(rep).Error
}

func (r *ReportRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Report{}, id).Error
}

// CountSubmittedSince counts a user's reports with submitted_at >= since, any status.
func (r *ReportRepository) CountSubmittedSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var c int64
	err := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("submitted_by_id = ? AND submitted_at >= ?", userID, since).
		Count(&c).Error
	return c, err
}

// OldestSubmittedSince returns the earliest submitted_at in the window, or nil.
func (r *ReportRepository) OldestSubmittedSince(ctx context.Context, userID uint, since time.Time) (*time.Time, error) {
	var rep models.Report
	err := r.db.WithContext(ctx).Select("id", "submitted_at").
		Where("submitted_by_id = ? AND submitted_at >= ?", userID, since).
		Order("submitted_at ASC").Limit(1).Find(&rep).Error
	if err != nil || rep.ID == 0 {
		return nil, err
	}
	return &rep.SubmittedAt, nil
}

func (r *ReportRepository) List(ctx context.Context, f ReportFilter, page, limit int) ([]models.Report, int64, error) {
	q := applyReportFilter(r.db.WithContext(ctx).Model(&models.Report{}), f)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Report
	err := q.Preload("SubmittedBy").Order("submitted_at DESC, id DESC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}

// Each walks every matching report in id order, batchSize rows at a time.
func (r *ReportRepository) Each(ctx context.Context, f ReportFilter, batchSize int, fn func([]models.Report) error) error {
	var batch []models.Report
	q := applyReportFilter(r.db.WithContext(ctx).Model(&models.Report{}), f)
	return q.FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	}).Error
}

// SubmittedTimes returns submitted_at of a user's reports since the given time.
func (r *ReportRepository) SubmittedTimes(ctx context.Context, userID uint, since time.Time) ([]time.Time, error) {
	var reps []models.Report
	err := r.db.WithContext(ctx).Select("id", "submitted_at").
		Where("submitted_by_id = ? AND submitted_at >= ?", userID, since).
		Find(&reps).Error
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(reps))
	for i := range reps {
		out[i] = reps[i].SubmittedAt
	}
	return out, nil
}

func applyReportFilter(q *gorm.DB, f ReportFilter) *gorm.DB {
	if f.SubmittedByID != nil {
		q = q.Where("submitted_by_id = ?", *f.SubmittedByID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Priority != nil {
		q = q.Where("priority_flag = ?", *f.Priority)
	}
	if f.Search != "" {
		q = q.Where("title LIKE ? ESCAPE '!'", containsPattern(f.Search))
	}
	return q
}
