package repository

import (
	"context"
	"time"

	"safevoice/internal/models"

	"gorm.io/gorm"
)

// ReportScope restricts aggregate queries to one submitter when OwnerID is set.
type ReportScope struct {
	OwnerID *uint
}

type countRow struct {
	Bucket string
	Count  int64
}

type UserFilter struct {
	Search   string
	Role     string
	Plan     string
	IsActive *bool
}

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) reports(ctx context.Context, s ReportScope) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Report{})
	if s.OwnerID != nil {
		q = q.Where("submitted_by_id = ?", *s.OwnerID)
	}
	return q
}

func (r *AdminRepository) CountReports(ctx context.Context, s ReportScope) (int64, error) {
	var c int64
	err := r.reports(ctx, s).Count(&c).Error
	return c, err
}

// CountReportsWhere counts reports in scope matching an extra condition.
func (r *AdminRepository) CountReportsWhere(ctx context.Context, s ReportScope, query string, args ...interface{}) (int64, error) {
	var c int64
	err := r.reports(ctx, s).Where(query, args...).Count(&c).Error
	return c, err
}

// CountReportsBetween counts reports with from <= submitted_at < to.
func (r *AdminRepository) CountReportsBetween(ctx context.Context, s ReportScope, from, to time.Time) (int64, error) {
	return r.CountReportsWhere(ctx, s, "submitted_at >= ? AND submitted_at < ?", from, to)
}

// CountReportsByStatus groups report counts by status. Missing statuses are absent.
func (r *AdminRepository) CountReportsByStatus(ctx context.Context, s ReportScope) (map[string]int64, error) {
	return r.groupCount(ctx, s, "status")
}

func (r *AdminRepository) CountReportsByCategory(ctx context.Context, s ReportScope) (map[string]int64, error) {
	return r.groupCount(ctx, s, "category")
}

func (r *AdminRepository) groupCount(ctx context.Context, s ReportScope, column string) (map[string]int64, error) {
	var rows []countRow
	err := r.reports(ctx, s).
		Select(column + " AS bucket, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Bucket] = row.Count
	}
	return out, nil
}

// ListUsers returns users with search, role/plan/active filters, and pagination.
func (r *AdminRepository) ListUsers(ctx context.Context, f UserFilter, page, limit int) ([]models.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if f.Search != "" {
		pattern := containsPattern(f.Search)
		q = q.Where("username LIKE ? ESCAPE '!' OR email LIKE ? ESCAPE '!'", pattern, pattern)
	}
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Plan != "" {
		q = q.Where("plan = ?", f.Plan)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := q.Preload("Organization").Order("created_at DESC, id DESC").Limit(limit).Offset((page - 1) * limit).Find(&users).Error
	return users, total, err
}

// UserReportCounts returns report totals for the given users.
func (r *AdminRepository) UserReportCounts(ctx context.Context, userIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		SubmittedByID uint
		Count         int64
	}
	err := r.db.WithContext(ctx).Model(&models.Report{}).
		Select("submitted_by_id, COUNT(*) AS count").
		Where("submitted_by_id IN ?", userIDs).
		Group("submitted_by_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SubmittedByID] = row.Count
	}
	return out, nil
}
