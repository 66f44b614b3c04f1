package models

import (
	"time"

	"safevoice/internal/domain"
)

type User struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Username       string      `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email          string      `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash   string      `gorm:"size:255" json:"-"`
	GoogleID       *string     `gorm:"uniqueIndex;size:255" json:"-"` // nil for password signups
	Role           domain.Role `gorm:"size:10;not null;default:'user';index" json:"role"`
	Plan           domain.Plan `gorm:"size:10;not null;default:'free';index" json:"plan"`
	OrganizationID *uint       `gorm:"index" json:"organization_id"`
	IsActive       bool        `gorm:"not null;default:true;index" json:"is_active"`
	FCMToken       string      `gorm:"size:512" json:"-"`
	LastLoginAt    *time.Time  `json:"last_login_at"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	Organization *Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:SET NULL" json:"organization,omitempty"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool { return u.Role == domain.RoleAdmin }

// QuotaApplies reports whether the free-tier submission limit binds this user.
func (u *User) QuotaApplies() bool {
	return u.Role == domain.RoleUser && u.Plan == domain.PlanFree
}
