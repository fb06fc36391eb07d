package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/config"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxRetries = 3

// EmailService defines the interface for sending emails
type EmailService interface {
	SendTimesheetDecision(to string, data DecisionEmail) error
	SendPendingReminder(to string, data PendingReminderEmail) error
}

// DecisionEmail tells an employee a submitted week was approved or rejected.
type DecisionEmail struct {
	EmployeeName  string
	WeekStart     string
	WeekEnd       string
	Status        string
	TotalHours    float64
	AdminComments string
	Link          string
}

// PendingReminderEmail lists the weeks an employee still has to submit.
type PendingReminderEmail struct {
	EmployeeName string
	Weeks        []string
	Link         string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type emailServiceImpl struct {
	cfg       config.SMTPConfig
	templates *template.Template
	send      sendFunc
	backoff   time.Duration
}

// NewEmailService creates a new email service instance
func NewEmailService(cfg config.SMTPConfig) (EmailService, error) {
	return newEmailService(cfg, smtp.SendMail)
}

func newEmailService(cfg config.SMTPConfig, send sendFunc) (*emailServiceImpl, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &emailServiceImpl{
		cfg:       cfg,
		templates: tmpl,
		send:      send,
		backoff:   time.Second,
	}, nil
}

// SendTimesheetDecision sends the approval or rejection notice
func (s *emailServiceImpl) SendTimesheetDecision(to string, data DecisionEmail) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, "timesheet_decision.html", data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	subject := fmt.Sprintf("Timesheet for week of %s %s", data.WeekStart, data.Status)
	err := s.sendHTML(to, subject, body.String())
	metrics.RecordEmail("timesheet_decision", err)
	return err
}

// SendPendingReminder sends the weekly pending timesheet reminder
func (s *emailServiceImpl) SendPendingReminder(to string, data PendingReminderEmail) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, "pending_reminder.html", data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	subject := "You have 1 pending timesheet"
	if len(data.Weeks) != 1 {
		subject = fmt.Sprintf("You have %d pending timesheets", len(data.Weeks))
	}
	err := s.sendHTML(to, subject, body.String())
	metrics.RecordEmail("pending_reminder", err)
	return err
}

func (s *emailServiceImpl) sendHTML(to, subject, htmlBody string) error {
	// Skip sending if SMTP is not configured
	if s.cfg.Host == "" {
		slog.Warn("SMTP not configured, skipping email send", "to", to, "subject", subject)
		return nil
	}

	from := s.cfg.From

	headers := fmt.Sprintf("From: %s <%s>\r\n", s.cfg.FromName, from)
	headers += fmt.Sprintf("To: %s\r\n", to)
	headers += fmt.Sprintf("Subject: %s\r\n", subject)
	headers += "MIME-Version: 1.0\r\n"
	headers += "Content-Type: text/html; charset=\"UTF-8\"\r\n"
	headers += "\r\n"

	message := []byte(headers + htmlBody)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := s.send(addr, auth, from, []string{to}, message)
		if err == nil {
			slog.Info("Email sent successfully", "to", to, "subject", subject, "attempt", attempt)
			return nil
		}

		lastErr = err
		slog.Error("Failed to send email",
			"to", to,
			"subject", subject,
			"attempt", attempt,
			"max_retries", maxRetries,
			"error", err,
		)

		// Exponential backoff: 1s, 2s
		if attempt < maxRetries {
			time.Sleep(s.backoff * time.Duration(1<<(attempt-1)))
		}
	}

	return fmt.Errorf("failed to send email after %d attempts: %w", maxRetries, lastErr)
}
