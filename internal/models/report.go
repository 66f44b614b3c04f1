package models

import (
	"time"

	"safevoice/internal/domain"
)

type Report struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	Token            string              `gorm:"uniqueIndex;size:36;not null" json:"token"`
	SubmittedByID    *uint               `gorm:"index" json:"submitted_by"`
	Title            string              `gorm:"size:255;not null" json:"title"`
	Category         domain.Category     `gorm:"size:20;not null;index" json:"category"`
	Description      string              `gorm:"type:text;serializer:encrypted" json:"description"`
	Status           domain.ReportStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	IsAnonymous      bool                `gorm:"not null;index" json:"is_anonymous"`
	IsPremium        bool                `gorm:"not null;index" json:"is_premium"` // submitter plan at creation
	PriorityFlag     bool                `gorm:"not null;index" json:"priority_flag"`
	EvidenceType     string              `gorm:"size:50" json:"evidence_type"`
	FileKey          string              `gorm:"size:512" json:"-"`
	FileURL          string              `gorm:"size:1024" json:"file_url"`
	FileName         string              `gorm:"size:255" json:"file_name"`
	FileMIME         string              `gorm:"size:100" json:"file_mime"`
	FileSize         int64               `json:"file_size"`
	ReviewedByID     *uint               `gorm:"index" json:"reviewed_by_id"`
	InternalNotes    string              `gorm:"type:text" json:"-"`
	ResolutionNotes  string              `gorm:"type:text" json:"resolution_notes"`
	SubmittedAt      time.Time           `gorm:"not null;index" json:"submitted_at"`
	LastStatusUpdate *time.Time          `json:"last_status_update"`
	UpdatedAt        time.Time           `json:"updated_at"`

	SubmittedBy *User `gorm:"foreignKey:SubmittedByID;constraint:OnDelete:CASCADE" json:"-"`
	ReviewedBy  *User `gorm:"foreignKey:ReviewedByID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Report) TableName() string { return "reports" }

func (r *Report) HasFile() bool { return r.FileKey != "" }
