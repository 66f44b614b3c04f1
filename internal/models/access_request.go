package models

import (
	"time"

	"safevoice/internal/domain"
)

// AdminAccessRequest is a user's request to be promoted to admin.
type AdminAccessRequest struct {
	ID                      uint                       `gorm:"primaryKey" json:"id"`
	UserID                  uint                       `gorm:"not null;index" json:"user_id"`
	RequestType             domain.AccessRequestType   `gorm:"size:20;not null" json:"request_type"`
	OrganizationName        *string                    `gorm:"size:255" json:"organization_name"`
	OrganizationDescription *string                    `gorm:"type:text" json:"organization_description"`
	Status                  domain.AccessRequestStatus `gorm:"size:10;not null;default:'pending';index" json:"status"`
	Notes                   string                     `gorm:"type:text" json:"notes"`
	SubmittedAt             time.Time                  `gorm:"not null;index" json:"submitted_at"`
	ReviewedAt              *time.Time                 `json:"reviewed_at"`
	ReviewedByID            *uint                      `gorm:"index" json:"reviewed_by_id"`

	User       *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	ReviewedBy *User `gorm:"foreignKey:ReviewedByID;constraint:OnDelete:SET NULL" json:"-"`
}

func (AdminAccessRequest) TableName() string { return "admin_access_requests" }
