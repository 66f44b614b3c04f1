package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"safevoice/config"
	"safevoice/internal/domain"
	"safevoice/internal/middleware"
	"safevoice/internal/service"
	"safevoice/pkg/evidence"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipartSlack covers form fields sent next to the largest allowed file.
const multipartSlack = 1 << 20

type ReportHandler struct {
	reports   *service.ReportService
	analytics *service.AnalyticsService
	log       *zap.Logger
	maxBody   int64
}

func NewReportHandler(reports *service.ReportService, analytics *service.AnalyticsService, upload config.UploadConfig, log *zap.Logger) *ReportHandler {
	largest := upload.MaxImageMB
	for _, mb := range []int64{upload.MaxVideoMB, upload.MaxDocumentMB} {
		if mb > largest {
			largest = mb
		}
	}
	return &ReportHandler{reports: reports, analytics: analytics, log: log, maxBody: largest<<20 + multipartSlack}
}

type createReportRequest struct {
	Title        string `json:"title"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	EvidenceType string `json:"evidence_type"`
	IsAnonymous  bool   `json:"is_anonymous"`
	PriorityFlag bool   `json:"priority_flag"`
}

// reportPatch is the JSON body of PATCH /reports/:id and /admin/reports/:id.
type reportPatch struct {
	Title           *string `json:"title"`
	Category        *string `json:"category"`
	Description     *string `json:"description"`
	EvidenceType    *string `json:"evidence_type"`
	IsAnonymous     *bool   `json:"is_anonymous"`
	RemoveFile      bool    `json:"remove_file"`
	Status          *string `json:"status"`
	PriorityFlag    *bool   `json:"priority_flag"`
	InternalNotes   *string `json:"internal_notes"`
	ResolutionNotes *string `json:"resolution_notes"`
}

func (p reportPatch) input() service.UpdateReportInput {
	return service.UpdateReportInput{
		Title:           p.Title,
		Category:        p.Category,
		Description:     p.Description,
		EvidenceType:    p.EvidenceType,
		IsAnonymous:     p.IsAnonymous,
		RemoveFile:      p.RemoveFile,
		Status:          p.Status,
		PriorityFlag:    p.PriorityFlag,
		InternalNotes:   p.InternalNotes,
		ResolutionNotes: p.ResolutionNotes,
	}
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// Create handles POST /reports as JSON or multipart with an optional "file".
func (h *ReportHandler) Create(c *gin.Context) {
	var in service.CreateReportInput
	if isMultipart(c) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
		up, closeFn, err := formUpload(c)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		defer closeFn()
		anon, err := formBool(c, "is_anonymous")
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		priority, err := formBool(c, "priority_flag")
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		in = service.CreateReportInput{
			Title:        c.PostForm("title"),
			Category:     c.PostForm("category"),
			Description:  c.PostForm("description"),
			EvidenceType: c.PostForm("evidence_type"),
			IsAnonymous:  anon != nil && *anon,
			PriorityFlag: priority != nil && *priority,
			File:         up,
		}
	} else {
		var req createReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid body")
			return
		}
		in = service.CreateReportInput{
			Title:        req.Title,
			Category:     req.Category,
			Description:  req.Description,
			EvidenceType: req.EvidenceType,
			IsAnonymous:  req.IsAnonymous,
			PriorityFlag: req.PriorityFlag,
		}
	}
	v, err := h.reports.Create(c.Request.Context(), middleware.GetPrincipal(c), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func reportFilter(c *gin.Context) (service.ReportListFilter, bool) {
	priority, ok := queryBool(c, "priority")
	if !ok {
		return service.ReportListFilter{}, false
	}
	return service.ReportListFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Priority: priority,
		Search:   c.Query("search"),
	}, true
}

// List handles GET /reports: the caller's own reports.
func (h *ReportHandler) List(c *gin.Context) {
	f, ok := reportFilter(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	list, total, err := h.reports.List(c.Request.Context(), middleware.GetPrincipal(c), f, page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, paged(list, total, page, limit))
}

func (h *ReportHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	v, err := h.reports.Get(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *ReportHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in service.UpdateReportInput
	if isMultipart(c) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
		up, closeFn, err := formUpload(c)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		defer closeFn()
		if in, err = formPatch(c); err != nil {
			respondError(c, h.log, err)
			return
		}
		in.File = up
	} else {
		var req reportPatch
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid body")
			return
		}
		in = req.input()
	}
	v, err := h.reports.Update(c.Request.Context(), middleware.GetPrincipal(c), id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *ReportHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.reports.Delete(c.Request.Context(), middleware.GetPrincipal(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Analytics handles GET /reports/analytics for the caller's own reports.
func (h *ReportHandler) Analytics(c *gin.Context) {
	a, err := h.analytics.Mine(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// ByToken is public: anyone holding the token sees the restricted projection.
func (h *ReportHandler) ByToken(c *gin.Context) {
	v, err := h.reports.ByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *ReportHandler) Certificate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	name, pdf, err := h.reports.Certificate(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	sendPDF(c, name, pdf)
}

func (h *ReportHandler) CertificateByToken(c *gin.Context) {
	name, pdf, err := h.reports.CertificateByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	sendPDF(c, name, pdf)
}

func sendPDF(c *gin.Context, name string, pdf []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

var errBodyTooLarge = domain.Validation("file_too_large", "upload exceeds the maximum allowed size")

// formUpload opens the optional "file" part. The returned func closes it.
func formUpload(c *gin.Context) (*evidence.Upload, func(), error) {
	fh, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, errBodyTooLarge
		}
		return nil, nil, domain.Validation("invalid_multipart", "could not read multipart form")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &evidence.Upload{Filename: fh.Filename, Size: fh.Size, File: f}, func() { _ = f.Close() }, nil
}

func formString(c *gin.Context, key string) *string {
	if v, ok := c.GetPostForm(key); ok {
		return &v
	}
	return nil
}

func formBool(c *gin.Context, key string) (*bool, error) {
	v, ok := c.GetPostForm(key)
	if !ok || v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, domain.Validation("invalid_"+key, key+" must be true or false")
	}
	return &b, nil
}

func formPatch(c *gin.Context) (service.UpdateReportInput, error) {
	in := service.UpdateReportInput{
		Title:           formString(c, "title"),
		Category:        formString(c, "category"),
		Description:     formString(c, "description"),
		EvidenceType:    formString(c, "evidence_type"),
		Status:          formString(c, "status"),
		InternalNotes:   formString(c, "internal_notes"),
		ResolutionNotes: formString(c, "resolution_notes"),
	}
	var err error
	if in.IsAnonymous, err = formBool(c, "is_anonymous"); err != nil {
		return in, err
	}
	if in.PriorityFlag, err = formBool(c, "priority_flag"); err != nil {
		return in, err
	}
	remove, err := formBool(c, "remove_file")
	if err != nil {
		return in, err
	}
	in.RemoveFile = remove != nil && *remove
	return in, nil
}
