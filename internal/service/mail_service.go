package service

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"safevoice/config"
	"safevoice/internal/domain"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Mailer sends the transactional emails. Implementations must not block
// the caller on delivery.
type Mailer interface {
	ReportStatusChanged(to, username, title string, from, next domain.ReportStatus)
	AccessRequestReviewed(to, username string, approved bool, notes string)
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type MailService struct {
	cfg     config.MailConfig
	appName string
	policy  *bluemonday.Policy
	log     *zap.Logger
	send    SendFunc
}

func NewMailService(cfg config.MailConfig, appName string, log *zap.Logger) *MailService {
	if !cfg.Enabled {
		log.Info("mail disabled: SMTP_ENABLED is false")
	}
	return &MailService{
		cfg:     cfg,
		appName: appName,
		policy:  bluemonday.UGCPolicy(),
		log:     log,
		send:    smtp.SendMail,
	}
}

// WithSender replaces the SMTP transport.
func (s *MailService) WithSender(fn SendFunc) *MailService {
	s.send = fn
	return s
}

var (
	statusTmpl = template.Must(template.New("status").Parse(
		`<p>Hello {{.Username}},</p>
<p>The status of your report <strong>{{.Title}}</strong> changed from <em>{{.From}}</em> to <em>{{.To}}</em>.</p>
<p>Sign in to {{.App}} to see details and messages from the review team.</p>`))

	accessTmpl = template.Must(template.New("access").Parse(
		`<p>Hello {{.Username}},</p>
{{if .Approved}}<p>Congratulations! You have been approved as an admin on {{.App}}. You can now sign in and start reviewing reports.</p>
{{else}}<p>Unfortunately, your request to become an admin on {{.App}} was not approved. Feel free to reach out for feedback.</p>
{{end}}{{if .Notes}}<p>Reviewer notes: {{.Notes}}</p>{{end}}`))
)

func (s *MailService) ReportStatusChanged(to, username, title string, from, next domain.ReportStatus) {
	body, err := s.render(statusTmpl, map[string]string{
		"Username": username,
		"Title":    title,
		"From":     from.Label(),
		"To":       next.Label(),
		"App":      s.appName,
	})
	if err != nil {
		s.log.Error("render status email", zap.Error(err))
		return
	}
	s.sendAsync([]string{to}, fmt.Sprintf("[%s] Your report is now %s", s.appName, next.Label()), body)
}

func (s *MailService) AccessRequestReviewed(to, username string, approved bool, notes string) {
	body, err := s.render(accessTmpl, map[string]interface{}{
		"Username": username,
		"Approved": approved,
		"Notes":    notes,
		"App":      s.appName,
	})
	if err != nil {
		s.log.Error("render access email", zap.Error(err))
		return
	}
	s.sendAsync([]string{to}, s.appName+" Admin Application Update", body)
}

func (s *MailService) sendAsync(to []string, subject, body string) {
	if !s.cfg.Enabled || len(to) == 0 || to[0] == "" {
		return
	}
	go func() {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)

		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: %s <%s>\r\n"+
			"Subject: %s\r\n"+
			"MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n%s",
			strings.Join(to, ","), s.cfg.FromName, s.cfg.From, subject, body))

		if err := s.send(addr, auth, s.cfg.From, to, msg); err != nil {
			s.log.Warn("send email failed", zap.Strings("to", to), zap.String("subject", subject), zap.Error(err))
			return
		}
		s.log.Info("email sent", zap.Strings("to", to), zap.String("subject", subject))
	}()
}

// render executes t and passes the resulting HTML through the UGC policy.
func (s *MailService) render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return s.policy.Sanitize(buf.String()), nil
}
