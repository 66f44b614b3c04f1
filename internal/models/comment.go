package models

import "time"

type ReportComment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReportID   uint      `gorm:"not null;index" json:"report_id"`
	SenderID   uint      `gorm:"not null;index" json:"sender_id"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	IsInternal bool      `gorm:"not null;index" json:"is_internal"`
	SentAt     time.Time `gorm:"not null;index" json:"sent_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Report *Report `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"-"`
	Sender User    `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ReportComment) TableName() string { return "report_comments" }
