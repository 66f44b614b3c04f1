package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"safevoice/internal/authz"
	"safevoice/internal/models"
	"safevoice/internal/repository"
)

var ExportHeader = []string{
	"ID", "Title", "Category", "Status", "Priority", "Anonymous", "Premium", "Submitted At", "Last Status Update",
}

const exportBatchSize = 500

type ExportService struct {
	repos *repository.Repos
	Now   func() time.Time
}

func NewExportService(repos *repository.Repos) *ExportService {
	return &ExportService{repos: repos, Now: utcNow}
}

// Export is an authorized, validated export ready to stream.
type Export struct {
	Filename string

	repos  *repository.Repos
	filter repository.ReportFilter
}

// Prepare checks the caller and the filter. Nothing is written yet, so
// errors can still be sent as a normal JSON response.
func (s *ExportService) Prepare(p authz.Principal, f ReportListFilter) (*Export, error) {
	if err := authz.Require(p, authz.ExportReports); err != nil {
		return nil, err
	}
	rf, err := toRepoFilter(f)
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename: "reports_" + s.Now().Format("20060102_150405") + ".csv",
		repos:    s.repos,
		filter:   rf,
	}, nil
}

// WriteCSV streams every matching report to w.
func (x *Export) WriteCSV(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	err := x.repos.Reports.Each(ctx, x.filter, exportBatchSize, func(batch []models.Report) error {
		for i := range batch {
			if err := cw.Write(exportRow(&batch[i])); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func exportRow(r *models.Report) []string {
	last := ""
	if r.LastStatusUpdate != nil {
		last = r.LastStatusUpdate.UTC().Format(time.RFC3339)
	}
	return []string{
		strconv.FormatUint(uint64(r.ID), 10),
		csvSafe(r.Title),
		r.Category.Label(),
		r.Status.Label(),
		yesNo(r.PriorityFlag),
		yesNo(r.IsAnonymous),
		yesNo(r.IsPremium),
		r.SubmittedAt.UTC().Format(time.RFC3339),
		last,
	}
}

// csvSafe keeps spreadsheet apps from evaluating user text as a formula.
func csvSafe(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
