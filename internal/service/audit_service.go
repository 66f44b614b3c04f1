package service

import (
	"context"
	"encoding/json"
	"fmt"

	"safevoice/internal/authz"
	"safevoice/internal/models"
	"safevoice/internal/repository"

	"go.uber.org/zap"
)

// AuditEntry describes one action for the audit trail.
type AuditEntry struct {
	ActorID    uint
	Action     string
	Resource   string
	ResourceID uint
	IP         string
	UserAgent  string
	Metadata   map[string]interface{}
}

type AuditService struct {
	repos *repository.Repos
	log   *zap.Logger
}

func NewAuditService(repos *repository.Repos, log *zap.Logger) *AuditService {
	return &AuditService{repos: repos, log: log}
}

// Record writes e. Failures are logged and never surface to the caller.
func (s *AuditService) Record(ctx context.Context, e AuditEntry) {
	row := &models.AuditLog{
		Action:    e.Action,
		Resource:  e.Resource,
		IP:        e.IP,
		UserAgent: e.UserAgent,
	}
	if e.ActorID != 0 {
		actor := e.ActorID
		row.UserID = &actor
	}
	if e.ResourceID != 0 {
		row.ResourceID = fmt.Sprint(e.ResourceID)
	}
	if len(e.Metadata) > 0 {
		if b, err := json.Marshal(e.Metadata); err == nil {
			row.Metadata = string(b)
		}
	}
	if err := s.repos.Audit.Create(ctx, row); err != nil {
		s.log.Warn("audit log write failed", zap.String("action", e.Action), zap.Error(err))
	}
}

func (s *AuditService) List(ctx context.Context, p authz.Principal, f repository.AuditLogFilter, page, limit int) ([]models.AuditLog, int64, error) {
	if err := authz.Require(p, authz.ViewAuditLog); err != nil {
		return nil, 0, err
	}
	page, limit = pageBounds(page, limit)
	return s.repos.Audit.List(ctx, f, page, limit)
}
