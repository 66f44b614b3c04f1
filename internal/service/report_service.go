package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"safevoice/internal/authz"
	"safevoice/internal/domain"
	"safevoice/internal/models"
	"safevoice/internal/repository"
	"safevoice/pkg/certificate"
	"safevoice/pkg/evidence"
	"safevoice/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxTitleLen        = 255
	maxDescriptionLen  = 10000
	maxEvidenceTypeLen = 50
	maxNotesLen        = 10000
)

type CreateReportInput struct {
	Title        string
	Category     string
	Description  string
	EvidenceType string
	IsAnonymous  bool
	PriorityFlag bool
	File         *evidence.Upload
}

// UpdateReportInput carries a partial update. Nil fields are left unchanged.
type UpdateReportInput struct {
	Title        *string
	Category     *string
	Description  *string
	EvidenceType *string
	IsAnonymous  *bool
	File         *evidence.Upload
	RemoveFile   bool

	Status          *string
	PriorityFlag    *bool
	InternalNotes   *string
	ResolutionNotes *string
}

func (in UpdateReportInput) hasContent() bool {
	return in.Title != nil || in.Category != nil || in.Description != nil ||
		in.EvidenceType != nil || in.File != nil || in.RemoveFile
}

func (in UpdateReportInput) hasAdmin() bool {
	return in.Status != nil || in.PriorityFlag != nil || in.InternalNotes != nil || in.ResolutionNotes != nil
}

type ReportListFilter struct {
	Status   string
	Category string
	Priority *bool
	Search   string
}

// stored is an uploaded attachment that is not yet referenced by a committed row.
type stored struct {
	key     string
	url     string
	checked *evidence.Checked
}

type statusChange struct {
	report       *models.Report
	from, to     domain.ReportStatus
	notification *models.Notification
	submitter    *models.User
}

type ReportService struct {
	repos         *repository.Repos
	store         storage.Store
	validator     *evidence.Validator
	notifications *NotificationService
	mailer        Mailer
	frontendURL   string
	log           *zap.Logger
	Now           func() time.Time
}

func NewReportService(
	repos *repository.Repos,
	store storage.Store,
	validator *evidence.Validator,
	notifications *NotificationService,
	mailer Mailer,
	frontendURL string,
	log *zap.Logger,
) *ReportService {
	return &ReportService{
		repos:         repos,
		store:         store,
		validator:     validator,
		notifications: notifications,
		mailer:        mailer,
		frontendURL:   frontendURL,
		log:           log,
		Now:           utcNow,
	}
}

// Create files a new pending report. Free-plan users are held to the rolling
// quota, checked again under a lock on their user row.
func (s *ReportService) Create(ctx context.Context, p authz.Principal, in CreateReportInput) (*ReportView, error) {
	if err := authz.Require(p, authz.SubmitReport); err != nil {
		return nil, err
	}
	if in.PriorityFlag {
		return nil, domain.ErrPriorityAdminOnly
	}
	title, err := requiredText("title", in.Title, maxTitleLen)
	if err != nil {
		return nil, err
	}
	category, err := domain.ParseCategory(in.Category)
	if err != nil {
		return nil, err
	}
	description, err := requiredText("description", in.Description, maxDescriptionLen)
	if err != nil {
		return nil, err
	}
	evidenceType, err := s.evidenceType(in.EvidenceType)
	if err != nil {
		return nil, err
	}

	submitter, err := s.repos.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	if err := s.checkQuota(ctx, s.repos, submitter); err != nil {
		return nil, err
	}

	var file *stored
	if in.File != nil {
		if file, err = s.storeFile(ctx, p.UserID, *in.File); err != nil {
			return nil, err
		}
		if evidenceType == "" {
			evidenceType = string(file.checked.Kind)
		}
	}

	now := s.Now()
	report := &models.Report{
		Token:        uuid.NewString(),
		Title:        title,
		Category:     category,
		Description:  description,
		Status:       domain.StatusPending,
		IsAnonymous:  in.IsAnonymous,
		EvidenceType: evidenceType,
		SubmittedAt:  now,
	}
	if file != nil {
		attachFile(report, file)
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repos) error {
		u, err := tx.Users.GetByIDForUpdate(ctx, p.UserID)
		if err != nil {
			return notFoundOr(err, "user")
		}
		if !u.IsActive {
			return domain.ErrAccountDisabled
		}
		if err := s.checkQuota(ctx, tx, u); err != nil {
			return err
		}
		report.SubmittedByID = &u.ID
		report.IsPremium = u.Plan == domain.PlanPremium
		if err := tx.Reports.Create(ctx, report); err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		return nil
	})
	if err != nil {
		s.discard(file)
		return nil, err
	}

	v := NewReportView(report)
	return &v, nil
}

// Quota reports the caller's position against the free-plan limit.
func (s *ReportService) Quota(ctx context.Context, p authz.Principal) (*QuotaStatus, error) {
	if err := authz.Require(p, authz.ViewOwnReports); err != nil {
		return nil, err
	}
	since := s.Now().Add(-domain.QuotaWindow)
	used, err := s.repos.Reports.CountSubmittedSince(ctx, p.UserID, since)
	if err != nil {
		return nil, err
	}
	q := &QuotaStatus{Plan: p.Plan, Used: used, WindowDays: int(domain.QuotaWindow / (24 * time.Hour))}
	if p.Role != domain.RoleUser || p.Plan != domain.PlanFree {
		return q, nil
	}
	limit := domain.FreeReportQuota
	remaining := int64(limit) - used
	if remaining < 0 {
		remaining = 0
	}
	q.Limited = true
	q.Limit = &limit
	q.Remaining = &remaining
	if remaining == 0 {
		oldest, err := s.repos.Reports.OldestSubmittedSince(ctx, p.UserID, since)
		if err != nil {
			return nil, err
		}
		if oldest != nil {
			resets := oldest.Add(domain.QuotaWindow)
			q.ResetsAt = &resets
		}
	}
	return q, nil
}

// List returns the caller's own reports.
func (s *ReportService) List(ctx context.Context, p authz.Principal, f ReportListFilter, page, limit int) ([]ReportView, int64, error) {
	if err := authz.Require(p, authz.ViewOwnReports); err != nil {
		return nil, 0, err
	}
	rf, err := toRepoFilter(f)
	if err != nil {
		return nil, 0, err
	}
	owner := p.UserID
	rf.SubmittedByID = &owner
	page, limit = pageBounds(page, limit)
	list, total, err := s.repos.Reports.List(ctx, rf, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ReportView, len(list))
	for i := range list {
		out[i] = NewReportView(&list[i])
	}
	return out, total, nil
}

// AdminList returns every report matching the filter, newest first.
func (s *ReportService) AdminList(ctx context.Context, p authz.Principal, f ReportListFilter, page, limit int) ([]AdminReportView, int64, error) {
	if err := authz.Require(p, authz.ListReports); err != nil {
		return nil, 0, err
	}
	rf, err := toRepoFilter(f)
	if err != nil {
		return nil, 0, err
	}
	page, limit = pageBounds(page, limit)
	list, total, err := s.repos.Reports.List(ctx, rf, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]AdminReportView, len(list))
	for i := range list {
		out[i] = NewAdminReportView(&list[i])
	}
	return out, total, nil
}

// Get returns a report to its submitter or to an admin. Anyone else gets NotFound.
func (s *ReportService) Get(ctx context.Context, p authz.Principal, id uint) (*ReportView, error) {
	if err := authz.Require(p, authz.ViewOwnReports); err != nil {
		return nil, err
	}
	r, err := s.visible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	v := NewReportView(r)
	return &v, nil
}

func (s *ReportService) AdminGet(ctx context.Context, p authz.Principal, id uint) (*AdminReportView, error) {
	if err := authz.Require(p, authz.ViewReportAdmin); err != nil {
		return nil, err
	}
	r, err := s.repos.Reports.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "report")
	}
	v := NewAdminReportView(r)
	return &v, nil
}

// ByToken is the unauthenticated lookup used by the tracking page.
func (s *ReportService) ByToken(ctx context.Context, token string) (*PublicReportView, error) {
	r, err := s.byToken(ctx, token)
	if err != nil {
		return nil, err
	}
	v := NewPublicReportView(r)
	return &v, nil
}

// Update applies submitter content edits and, for admins, triage fields.
func (s *ReportService) Update(ctx context.Context, p authz.Principal, id uint, in UpdateReportInput) (*ReportView, error) {
	if err := authz.Require(p, authz.ViewOwnReports); err != nil {
		return nil, err
	}
	r, err := s.update(ctx, p, id, in)
	if err != nil {
		return nil, err
	}
	v := NewReportView(r)
	return &v, nil
}

// Review is the admin panel update: status, priority and notes only.
func (s *ReportService) Review(ctx context.Context, p authz.Principal, id uint, in UpdateReportInput) (*AdminReportView, error) {
	if err := authz.Require(p, authz.TriageReport); err != nil {
		return nil, err
	}
	if in.hasContent() || in.IsAnonymous != nil {
		return nil, domain.Validation("content_not_editable", "only status, priority_flag, internal_notes and resolution_notes can be changed here")
	}
	r, err := s.update(ctx, p, id, in)
	if err != nil {
		return nil, err
	}
	v := NewAdminReportView(r)
	return &v, nil
}

func (s *ReportService) update(ctx context.Context, p authz.Principal, id uint, in UpdateReportInput) (*models.Report, error) {
	current, err := s.visible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := checkEdit(p, current, in); err != nil {
		return nil, err
	}
	edit, err := s.prepareEdit(in)
	if err != nil {
		return nil, err
	}

	var file *stored
	if in.File != nil {
		if file, err = s.storeFile(ctx, p.UserID, *in.File); err != nil {
			return nil, err
		}
	}

	var (
		change  *statusChange
		oldFile string
	)
	err = s.repos.Transaction(ctx, func(tx *repository.Repos) error {
		r, err := tx.Reports.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "report")
		}
		if err := checkEdit(p, r, in); err != nil {
			return err
		}

		edit.applyContent(r)
		if file != nil || in.RemoveFile {
			oldFile = r.FileKey
			clearFile(r)
			if file != nil {
				attachFile(r, file)
				if edit.evidenceType == nil {
					r.EvidenceType = string(file.checked.Kind)
				}
			}
		}

		if edit.priority != nil {
			r.PriorityFlag = *edit.priority
		}
		if edit.internalNotes != nil {
			r.InternalNotes = *edit.internalNotes
		}
		if edit.resolutionNotes != nil {
			r.ResolutionNotes = *edit.resolutionNotes
		}
		if edit.status != nil && *edit.status != r.Status {
			if change, err = s.transition(ctx, tx, p, r, *edit.status); err != nil {
				return err
			}
		}
		return tx.Reports.Update(ctx, r)
	})
	if err != nil {
		s.discard(file)
		return nil, err
	}

	if oldFile != "" {
		s.deleteObject(oldFile)
	}
	s.announce(ctx, change)

	updated, err := s.repos.Reports.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "report")
	}
	return updated, nil
}

// Delete removes a report with its comments. Submitters may only delete
// pending reports; admins may delete any.
func (s *ReportService) Delete(ctx context.Context, p authz.Principal, id uint) error {
	if err := authz.Require(p, authz.ViewOwnReports); err != nil {
		return err
	}
	var fileKey string
	err := s.repos.Transaction(ctx, func(tx *repository.Repos) error {
		r, err := tx.Reports.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "report")
		}
		if !authz.IsOwnerOrAdmin(p, r.SubmittedByID) {
			return domain.NotFound("report")
		}
		if !authz.IsAdmin(p) && r.Status != domain.StatusPending {
			return domain.ErrReportLocked
		}
		if err := tx.Comments.DeleteByReport(ctx, r.ID); err != nil {
			return err
		}
		if err := tx.Notifications.DetachReport(ctx, r.ID); err != nil {
			return err
		}
		fileKey = r.FileKey
		return tx.Reports.Delete(ctx, r.ID)
	})
	if err != nil {
		return err
	}
	if fileKey != "" {
		s.deleteObject(fileKey)
	}
	return nil
}

// Certificate renders the PDF receipt of a premium report for its submitter or an admin.
func (s *ReportService) Certificate(ctx context.Context, p authz.Principal, id uint) (string, []byte, error) {
	if err := authz.Require(p, authz.ViewOwnReports); err != nil {
		return "", nil, err
	}
	r, err := s.visible(ctx, p, id)
	if err != nil {
		return "", nil, err
	}
	if !r.IsPremium && !authz.IsAdmin(p) {
		return "", nil, errPremiumRequired
	}
	return s.renderCertificate(r)
}

// CertificateByToken serves the certificate to a token holder. Only premium reports have one.
func (s *ReportService) CertificateByToken(ctx context.Context, token string) (string, []byte, error) {
	r, err := s.byToken(ctx, token)
	if err != nil {
		return "", nil, err
	}
	if !r.IsPremium {
		return "", nil, errPremiumRequired
	}
	return s.renderCertificate(r)
}

var errPremiumRequired = domain.Permission("premium_required", "certificates are available for reports submitted on the premium plan")

func (s *ReportService) renderCertificate(r *models.Report) (string, []byte, error) {
	d := certificate.Data{
		Title:       r.Title,
		Category:    r.Category.Label(),
		Status:      r.Status.Label(),
		Priority:    r.PriorityFlag,
		SubmittedAt: r.SubmittedAt,
		Token:       r.Token,
		VerifyURL:   certificate.VerifyURL(s.frontendURL, r.Token),
		IssuedAt:    s.Now(),
	}
	if r.HasFile() {
		d.Attachment = &certificate.Attachment{Name: r.FileName, MIME: r.FileMIME, URL: r.FileURL}
	}
	pdf, err := certificate.Render(d)
	if err != nil {
		return "", nil, fmt.Errorf("render certificate: %w", err)
	}
	return certificate.Filename(r.Token), pdf, nil
}

// transition moves r to next and records the submitter notification in tx.
func (s *ReportService) transition(ctx context.Context, tx *repository.Repos, p authz.Principal, r *models.Report, next domain.ReportStatus) (*statusChange, error) {
	if !authz.Allows(p, authz.TriageReport) {
		return nil, domain.ErrForbidden
	}
	from := r.Status
	if !from.CanTransitionTo(next) {
		return nil, domain.InvalidTransition(from, next)
	}
	now := s.Now()
	reviewer := p.UserID
	r.Status = next
	r.LastStatusUpdate = &now
	r.ReviewedByID = &reviewer

	change := &statusChange{report: r, from: from, to: next}
	if r.SubmittedByID == nil {
		return change, nil
	}
	submitter, err := tx.Users.GetByID(ctx, *r.SubmittedByID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	reportID := r.ID
	n := &models.Notification{
		UserID:   submitter.ID,
		ReportID: &reportID,
		Type:     domain.NotificationReportStatus,
		Message:  fmt.Sprintf("Your report %q changed status from %s to %s.", r.Title, from.Label(), next.Label()),
	}
	if err := s.notifications.Record(ctx, tx, n); err != nil {
		return nil, fmt.Errorf("record notification: %w", err)
	}
	change.notification = n
	change.submitter = submitter
	return change, nil
}

// announce runs the post-commit side effects of a status change.
func (s *ReportService) announce(ctx context.Context, c *statusChange) {
	if c == nil || c.notification == nil {
		return
	}
	s.notifications.Deliver(ctx, c.notification, "Report status updated")
	if s.mailer != nil && c.submitter != nil {
		s.mailer.ReportStatusChanged(c.submitter.Email, c.submitter.Username, c.report.Title, c.from, c.to)
	}
}

func (s *ReportService) visible(ctx context.Context, p authz.Principal, id uint) (*models.Report, error) {
	r, err := s.repos.Reports.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "report")
	}
	if !authz.IsOwnerOrAdmin(p, r.SubmittedByID) {
		return nil, domain.NotFound("report")
	}
	return r, nil
}

func (s *ReportService) byToken(ctx context.Context, token string) (*models.Report, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, domain.NotFound("report")
	}
	r, err := s.repos.Reports.GetByToken(ctx, token)
	if err != nil {
		return nil, notFoundOr(err, "report")
	}
	return r, nil
}

// checkEdit decides whether p may apply in to r. Locked reports are
// rejected before any field-level rule.
func checkEdit(p authz.Principal, r *models.Report, in UpdateReportInput) error {
	admin := authz.IsAdmin(p)
	owner := authz.IsOwner(p, r.SubmittedByID)
	if !admin && !owner {
		return domain.NotFound("report")
	}
	if !admin && r.Status != domain.StatusPending {
		return domain.ErrReportLocked
	}
	if in.IsAnonymous != nil && *in.IsAnonymous != r.IsAnonymous {
		return domain.ErrAnonymityLocked
	}
	if in.hasAdmin() && !authz.Allows(p, authz.TriageReport) {
		return domain.Permission("admin_only_fields", "status, priority_flag, internal_notes and resolution_notes can only be set by admins")
	}
	if in.hasContent() {
		if !owner {
			return domain.Permission("submitter_only_fields", "only the submitter can edit report content")
		}
		if r.Status != domain.StatusPending {
			return domain.ErrReportLocked
		}
	}
	return nil
}

type reportEdit struct {
	title, description, evidenceType *string
	category                         *domain.Category
	status                           *domain.ReportStatus
	priority                         *bool
	internalNotes, resolutionNotes   *string
}

func (s *ReportService) prepareEdit(in UpdateReportInput) (*reportEdit, error) {
	e := &reportEdit{priority: in.PriorityFlag}
	if in.Title != nil {
		v, err := requiredText("title", *in.Title, maxTitleLen)
		if err != nil {
			return nil, err
		}
		e.title = &v
	}
	if in.Description != nil {
		v, err := requiredText("description", *in.Description, maxDescriptionLen)
		if err != nil {
			return nil, err
		}
		e.description = &v
	}
	if in.Category != nil {
		c, err := domain.ParseCategory(*in.Category)
		if err != nil {
			return nil, err
		}
		e.category = &c
	}
	if in.EvidenceType != nil {
		v, err := s.evidenceType(*in.EvidenceType)
		if err != nil {
			return nil, err
		}
		e.evidenceType = &v
	}
	if in.Status != nil {
		st, err := domain.ParseReportStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		e.status = &st
	}
	for _, pair := range []struct {
		field string
		in    *string
		out   **string
	}{
		{"internal_notes", in.InternalNotes, &e.internalNotes},
		{"resolution_notes", in.ResolutionNotes, &e.resolutionNotes},
	} {
		if pair.in == nil {
			continue
		}
		v, err := optionalText(pair.field, *pair.in, maxNotesLen)
		if err != nil {
			return nil, err
		}
		*pair.out = &v
	}
	return e, nil
}

func (e *reportEdit) applyContent(r *models.Report) {
	if e.title != nil {
		r.Title = *e.title
	}
	if e.description != nil {
		r.Description = *e.description
	}
	if e.category != nil {
		r.Category = *e.category
	}
	if e.evidenceType != nil {
		r.EvidenceType = *e.evidenceType
	}
}

func (s *ReportService) evidenceType(in string) (string, error) {
	return optionalText("evidence_type", in, maxEvidenceTypeLen)
}

func (s *ReportService) checkQuota(ctx context.Context, repos *repository.Repos, u *models.User) error {
	if !u.QuotaApplies() {
		return nil
	}
	n, err := repos.Reports.CountSubmittedSince(ctx, u.ID, s.Now().Add(-domain.QuotaWindow))
	if err != nil {
		return err
	}
	if n >= domain.FreeReportQuota {
		return domain.ErrQuotaExceeded
	}
	return nil
}

// storeFile validates and uploads an attachment before any row references it.
func (s *ReportService) storeFile(ctx context.Context, ownerID uint, up evidence.Upload) (*stored, error) {
	checked, err := s.validator.Validate(up)
	if err != nil {
		return nil, evidenceError(err)
	}
	key := evidence.ObjectKey(ownerID, checked.Filename)
	obj, err := s.store.Put(ctx, key, up.File, checked.Size, checked.MIME)
	if err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}
	return &stored{key: obj.Key, url: obj.URL, checked: checked}, nil
}

func (s *ReportService) discard(f *stored) {
	if f != nil {
		s.deleteObject(f.key)
	}
}

func (s *ReportService) deleteObject(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn("delete attachment", zap.String("key", key), zap.Error(err))
	}
}

func attachFile(r *models.Report, f *stored) {
	r.FileKey = f.key
	r.FileURL = f.url
	r.FileName = f.checked.Filename
	r.FileMIME = f.checked.MIME
	r.FileSize = f.checked.Size
}

func clearFile(r *models.Report) {
	r.FileKey, r.FileURL, r.FileName, r.FileMIME, r.FileSize = "", "", "", "", 0
}

func evidenceError(err error) error {
	var tooLarge *evidence.TooLargeError
	switch {
	case errors.As(err, &tooLarge):
		return domain.Validation("file_too_large", tooLarge.Error())
	case errors.Is(err, evidence.ErrEmpty):
		return domain.Validation("file_empty", err.Error())
	case errors.Is(err, evidence.ErrUnsupportedType):
		return domain.Validation("unsupported_file_type", "allowed files: jpg, jpeg, png, mp4, mov, avi, pdf")
	case errors.Is(err, evidence.ErrContentMismatch):
		return domain.Validation("file_content_mismatch", err.Error())
	}
	return err
}

func toRepoFilter(f ReportListFilter) (repository.ReportFilter, error) {
	rf := repository.ReportFilter{Priority: f.Priority, Search: f.Search}
	if f.Status != "" {
		st, err := domain.ParseReportStatus(f.Status)
		if err != nil {
			return rf, err
		}
		rf.Status = st
	}
	if f.Category != "" {
		c, err := domain.ParseCategory(f.Category)
		if err != nil {
			return rf, err
		}
		rf.Category = c
	}
	return rf, nil
}
