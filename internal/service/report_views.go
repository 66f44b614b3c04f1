package service

import (
	"time"

	"safevoice/internal/domain"
	"safevoice/internal/models"
)

type FileView struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	MIME string `json:"mime"`
	Size int64  `json:"size"`
}

func newFileView(r *models.Report) *FileView {
	if !r.HasFile() {
		return nil
	}
	return &FileView{URL: r.FileURL, Name: r.FileName, MIME: r.FileMIME, Size: r.FileSize}
}

// ReportView is what a submitter sees of their own report.
type ReportView struct {
	ID               uint                `json:"id"`
	Token            string              `json:"token"`
	Title            string              `json:"title"`
	Category         domain.Category     `json:"category"`
	Description      string              `json:"description"`
	Status           domain.ReportStatus `json:"status"`
	StatusLabel      string              `json:"status_label"`
	IsAnonymous      bool                `json:"is_anonymous"`
	IsPremium        bool                `json:"is_premium"`
	PriorityFlag     bool                `json:"priority_flag"`
	EvidenceType     string              `json:"evidence_type"`
	File             *FileView           `json:"file"`
	ResolutionNotes  string              `json:"resolution_notes"`
	SubmittedAt      time.Time           `json:"submitted_at"`
	LastStatusUpdate *time.Time          `json:"last_status_update"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func NewReportView(r *models.Report) ReportView {
	return ReportView{
		ID:               r.ID,
		Token:            r.Token,
		Title:            r.Title,
		Category:         r.Category,
		Description:      r.Description,
		Status:           r.Status,
		StatusLabel:      r.Status.Label(),
		IsAnonymous:      r.IsAnonymous,
		IsPremium:        r.IsPremium,
		PriorityFlag:     r.PriorityFlag,
		EvidenceType:     r.EvidenceType,
		File:             newFileView(r),
		ResolutionNotes:  r.ResolutionNotes,
		SubmittedAt:      r.SubmittedAt,
		LastStatusUpdate: r.LastStatusUpdate,
		UpdatedAt:        r.UpdatedAt,
	}
}

// AdminReportView adds triage fields. The submitter is hidden on anonymous reports.
type AdminReportView struct {
	ReportView
	SubmittedBy   *uint  `json:"submitted_by"`
	SubmitterName string `json:"submitter_name"`
	InternalNotes string `json:"internal_notes"`
	ReviewedByID  *uint  `json:"reviewed_by_id"`
	ReviewedBy    string `json:"reviewed_by"`
}

// NewAdminReportView expects SubmittedBy and ReviewedBy to be preloaded when set.
func NewAdminReportView(r *models.Report) AdminReportView {
	v := AdminReportView{
		ReportView:    NewReportView(r),
		InternalNotes: r.InternalNotes,
		ReviewedByID:  r.ReviewedByID,
	}
	if r.IsAnonymous {
		v.SubmitterName = domain.AnonymousDisplayName
	} else {
		v.SubmittedBy = r.SubmittedByID
		if r.SubmittedBy != nil {
			v.SubmitterName = r.SubmittedBy.Username
		}
	}
	if r.ReviewedBy != nil {
		v.ReviewedBy = r.ReviewedBy.Username
	}
	return v
}

// PublicReportView is the projection served to anyone holding the report token.
type PublicReportView struct {
	ID           uint                `json:"id"`
	Title        string              `json:"title"`
	Category     domain.Category     `json:"category"`
	Status       domain.ReportStatus `json:"status"`
	SubmittedAt  time.Time           `json:"submitted_at"`
	IsAnonymous  bool                `json:"is_anonymous"`
	PriorityFlag bool                `json:"priority_flag"`
	FileURL      *string             `json:"file_url"`
}

func NewPublicReportView(r *models.Report) PublicReportView {
	v := PublicReportView{
		ID:           r.ID,
		Title:        r.Title,
		Category:     r.Category,
		Status:       r.Status,
		SubmittedAt:  r.SubmittedAt,
		IsAnonymous:  r.IsAnonymous,
		PriorityFlag: r.PriorityFlag,
	}
	if r.HasFile() {
		url := r.FileURL
		v.FileURL = &url
	}
	return v
}

type QuotaStatus struct {
	Plan       domain.Plan `json:"plan"`
	Limited    bool        `json:"limited"`
	Limit      *int        `json:"limit"`
	Used       int64       `json:"used"`
	Remaining  *int64      `json:"remaining"`
	WindowDays int         `json:"window_days"`
	ResetsAt   *time.Time  `json:"resets_at,omitempty"`
}
