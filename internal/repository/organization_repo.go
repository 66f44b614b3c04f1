package repository

import (
	"context"
	"errors"

	"safevoice/internal/models"

	"gorm.io/gorm"
)

type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// GetOrCreate returns the organization named name, creating it on first use.
// When a concurrent caller inserts the same name first, its row is returned.
func (r *OrganizationRepository) GetOrCreate(ctx context.Context, name, description string) (*models.Organization, error) {
	db := r.db.WithContext(ctx)
	org, err := r.byName(db, name)
	if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
		return org, err
	}

	org = &models.Organization{Name: name, Description: description}
	// Savepoint inside an outer transaction, so a failed insert leaves it usable.
	err = db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(org).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.byName(db, name)
	}
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (r *OrganizationRepository) byName(db *gorm.DB, name string) (*models.Organization, error) {
	var org models.Organization
	if err := db.Where("name = ?", name).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id uint) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepository) Count(ctx context.Context) (int64, error) {
	var c int64
	err := r.db.WithContext(ctx).Model(&models.Organization{}).Count(&c).Error
	return c, err
}
