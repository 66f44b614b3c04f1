package models

import "time"

type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	ReportID  *uint      `gorm:"index" json:"report_id"`
	Type      string     `gorm:"size:50;not null;index" json:"type"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	IsRead    bool       `gorm:"not null;index" json:"is_read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`

	User   User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Report *Report `gorm:"foreignKey:ReportID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}
