package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// Repos bundles every repository over one connection or transaction.
type Repos struct {
	db *gorm.DB

	Users          *UserRepository
	Organizations  *OrganizationRepository
	AccessRequests *AccessRequestRepository
	Reports        *ReportRepository
	Comments       *CommentRepository
	Notifications  *NotificationRepository
	Tokens         *TokenRepository
	Audit          *AuditLogRepository
	Admin          *AdminRepository
}

func NewRepos(db *gorm.DB) *Repos {
	return &Repos{
		db:             db,
		Users:          NewUserRepository(db),
		Organizations:  NewOrganizationRepository(db),
		AccessRequests: NewAccessRequestRepository(db),
		Reports:        NewReportRepository(db),
		Comments:       NewCommentRepository(db),
		Notifications:  NewNotificationRepository(db),
		Tokens:         NewTokenRepository(db),
		Audit:          NewAuditLogRepository(db),
		Admin:          NewAdminRepository(db),
	}
}

// Transaction runs fn with repositories bound to a single transaction.
// Any error returned by fn rolls the transaction back.
func (r *Repos) Transaction(ctx context.Context, fn func(tx *Repos) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepos(tx))
	})
}

// likeEscape must match the ESCAPE clause in queries. A backslash would
// need different quoting on MySQL and Postgres.
const likeEscape = "!"

// containsPattern builds a LIKE pattern matching s literally anywhere.
func containsPattern(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return "%" + r.Replace(s) + "%"
}
