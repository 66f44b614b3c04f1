// Package testutil opens throwaway databases and builds fixtures for tests.
package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"safevoice/config"
	"safevoice/internal/authz"
	"safevoice/internal/database"
	"safevoice/internal/domain"
	"safevoice/internal/models"
	"safevoice/pkg/sealbox"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const Password = "password123"

var (
	hashOnce sync.Once
	hash     string
)

// OpenDB returns a migrated in-memory SQLite database private to t.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	box, err := sealbox.NewFromSecret("test-field-key")
	require.NoError(t, err)
	database.RegisterEncryption(box)

	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// Config returns a configuration suitable for tests.
func Config() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Env: "test"},
		JWT: config.JWTConfig{
			AccessSecret:  "test-access",
			RefreshSecret: "test-refresh",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: time.Hour,
			Issuer:        "safevoice-test",
		},
		Upload: config.UploadConfig{
			MaxImageMB:    5,
			MaxVideoMB:    20,
			MaxDocumentMB: 10,
			ImageExts:     []string{"jpg", "jpeg", "png"},
			VideoExts:     []string{"mp4", "mov", "avi"},
			DocumentExts:  []string{"pdf"},
		},
		App:       config.AppConfig{Name: "SafeVoice", FrontendBaseURL: "https://safevoice.test"},
		RateLimit: config.RateLimitConfig{Requests: 10000, Auth: 10000, Public: 10000, Writes: 10000, Window: time.Minute},
	}
}

// Fixtures creates rows in one database.
type Fixtures struct {
	t  *testing.T
	db *gorm.DB
	n  int
}

func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

// User creates an active user whose password is Password.
func (f *Fixtures) User(role domain.Role, plan domain.Plan) *models.User {
	f.t.Helper()
	hashOnce.Do(func() {
		b, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
		if err != nil {
			panic(err)
		}
		hash = string(b)
	})
	f.n++
	u := &models.User{
		Username:     fmt.Sprintf("%s_%s_%d", role, plan, f.n),
		Email:        fmt.Sprintf("%s_%s_%d@example.com", role, plan, f.n),
		PasswordHash: hash,
		Role:         role,
		Plan:         plan,
		IsActive:     true,
	}
	require.NoError(f.t, f.db.Create(u).Error)
	return u
}

// Report inserts a report directly, bypassing quota and validation.
func (f *Fixtures) Report(owner *models.User, mutate ...func(*models.Report)) *models.Report {
	f.t.Helper()
	f.n++
	r := &models.Report{
		Token:       uuid.NewString(),
		Title:       fmt.Sprintf("Report %d", f.n),
		Category:    domain.CategoryAbuse,
		Description: "details",
		Status:      domain.StatusPending,
		IsPremium:   owner != nil && owner.Plan == domain.PlanPremium,
		SubmittedAt: time.Now().UTC(),
	}
	if owner != nil {
		r.SubmittedByID = &owner.ID
	}
	for _, m := range mutate {
		m(r)
	}
	require.NoError(f.t, f.db.Omit("SubmittedBy", "ReviewedBy").Create(r).Error)
	return r
}

func Principal(u *models.User) authz.Principal {
	return authz.Principal{UserID: u.ID, Role: u.Role, Plan: u.Plan, Authenticated: u.IsActive}
}

// MailCall records one Mailer invocation.
type MailCall struct {
	Kind     string
	To       string
	Title    string
	From     domain.ReportStatus
	Next     domain.ReportStatus
	Approved bool
}

// Mailer records emails instead of sending them.
type Mailer struct {
	mu    sync.Mutex
	Calls []MailCall
}

func (m *Mailer) ReportStatusChanged(to, _, title string, from, next domain.ReportStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MailCall{Kind: "status", To: to, Title: title, From: from, Next: next})
}

func (m *Mailer) AccessRequestReviewed(to, _ string, approved bool, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MailCall{Kind: "access", To: to, Approved: approved})
}

func (m *Mailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Pusher records hub broadcasts.
type Pusher struct {
	mu   sync.Mutex
	Sent map[uint]int
}

func (p *Pusher) BroadcastToUser(userID uint, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Sent == nil {
		p.Sent = map[uint]int{}
	}
	p.Sent[userID]++
}

func (p *Pusher) Count(userID uint) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Sent[userID]
}
