// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/your-org/academy-backend/internal/config"
)

// Service delivers transactional email, one recipient at a time or in
// throttled batches. A recipient failure is data in the result, never an
// error; the only fatal condition is a transport that cannot exist at all.
type Service struct {
	config    *config.Config
	templates map[string]*template.Template
	sendDelay time.Duration

	// send is the actual transport call; swapped for a fake in tests
	send func(*Email) error
}

// NewService creates the email service. Incomplete SMTP settings are a
// configuration error surfaced here, before any send is attempted.
func NewService(cfg *config.Config) (*Service, error) {
	if cfg.External.Email.SMTPHost == "" || cfg.External.Email.SMTPUsername == "" {
		return nil, fmt.Errorf("SMTP configuration incomplete: missing host or username")
	}

	service := &Service{
		config:    cfg,
		templates: make(map[string]*template.Template),
		sendDelay: cfg.External.Email.SendDelay,
	}
	service.send = service.sendSMTP

	// Load email templates
	if err := service.loadTemplates(); err != nil {
		log.Printf("Warning: Failed to load email templates: %v", err)
	}

	return service, nil
}

// SendOne delivers a single message and reports the outcome in-band
func (s *Service) SendOne(ctx context.Context, address, subject, htmlBody string, attachments []Attachment) *SendResult {
	email := &Email{
		To:          []string{address},
		Subject:     subject,
		HTMLContent: htmlBody,
		Attachments: attachments,
	}
	return s.deliver(ctx, email)
}

// SendBatch partitions recipients into sequential chunks of batchSize and
// attempts each send independently, pausing briefly between sends to stay
// under provider rate limits. No recipient failure aborts the batch.
func (s *Service) SendBatch(ctx context.Context, recipients []string, subject, htmlBody string, attachments []Attachment, batchSize int) *BatchResult {
	if batchSize <= 0 {
		batchSize = s.config.External.Email.BatchSize
	}
	if batchSize <= 0 {
		batchSize = 50
	}

	result := &BatchResult{
		Results: make([]RecipientResult, 0, len(recipients)),
	}

	for start := 0; start < len(recipients); start += batchSize {
		end := start + batchSize
		if end > len(recipients) {
			end = len(recipients)
		}

		chunkFailed := false
		for i, recipient := range recipients[start:end] {
			if start+i > 0 && s.sendDelay > 0 {
				time.Sleep(s.sendDelay)
			}

			sr := s.SendOne(ctx, recipient, subject, htmlBody, attachments)
			result.TotalAttempted++
			if sr.Status == SendStatusSent {
				result.TotalSent++
			} else {
				chunkFailed = true
			}

			result.Results = append(result.Results, RecipientResult{
				Recipient:  recipient,
				SendResult: *sr,
			})
		}

		if chunkFailed {
			result.FailedBatches++
		} else {
			result.SuccessfulBatches++
		}
	}

	return result
}

// SendEnrollmentConfirmation sends the post-settlement confirmation email
func (s *Service) SendEnrollmentConfirmation(ctx context.Context, toEmail, toName string, courseNames []string, total int64) error {
	data := GetConfirmationData(
		s.config.External.Email.FromName,
		s.config.App.BaseURL,
		toName,
		toEmail,
		courseNames,
		fmt.Sprintf("$%.2f", float64(total)/100),
	)

	htmlContent, err := s.renderTemplate("enrollment_confirmation", data)
	if err != nil {
		return fmt.Errorf("failed to render enrollment confirmation template: %w", err)
	}

	sr := s.SendOne(ctx, toEmail, fmt.Sprintf("Enrollment Confirmed - %s", s.config.External.Email.FromName), htmlContent, nil)
	if sr.Status != SendStatusSent {
		return fmt.Errorf("failed to send enrollment confirmation: %s", sr.Error)
	}
	return nil
}

// deliver validates and sends one message
func (s *Service) deliver(ctx context.Context, email *Email) *SendResult {
	var attachmentBytes int
	for _, att := range email.Attachments {
		attachmentBytes += len(att.Data)
	}
	if attachmentBytes > MaxAttachmentBytes {
		return &SendResult{
			Status: SendStatusFailed,
			Error:  fmt.Sprintf("combined attachment size %d exceeds limit of %d bytes", attachmentBytes, MaxAttachmentBytes),
		}
	}

	if err := ctx.Err(); err != nil {
		return &SendResult{Status: SendStatusFailed, Error: err.Error()}
	}

	if err := s.send(email); err != nil {
		return &SendResult{Status: SendStatusFailed, Error: err.Error()}
	}

	return &SendResult{
		Status:    SendStatusSent,
		MessageID: uuid.New().String(),
	}
}

// loadTemplates loads all email templates
func (s *Service) loadTemplates() error {
	templateDir := s.config.External.Email.TemplateDir
	if templateDir == "" {
		templateDir = "./templates/emails"
	}

	templates := []string{
		"enrollment_confirmation",
		"payment_failed",
		"announcement",
	}

	for _, name := range templates {
		templatePath := filepath.Join(templateDir, name+".html")
		tmpl, err := template.ParseFiles(templatePath)
		if err != nil {
			log.Printf("Warning: Could not load template %s: %v", name, err)
			s.templates[name] = s.createFallbackTemplate(name)
		} else {
			s.templates[name] = tmpl
		}
	}

	return nil
}

// renderTemplate renders an email template with data
func (s *Service) renderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := s.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return buf.String(), nil
}

// createFallbackTemplate creates a basic HTML template as fallback
func (s *Service) createFallbackTemplate(name string) *template.Template {
	basicTemplate := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #333;">{{.SiteName}}</h1>
        <p>Hello {{.UserName}},</p>
        {{if .CourseNames}}
        <p>Your enrollment is confirmed for:</p>
        <ul>
        {{range .CourseNames}}<li>{{.}}</li>{{end}}
        </ul>
        <p>Total paid: {{.Total}}</p>
        {{else}}
        <p>This is a notification from {{.SiteName}}.</p>
        {{end}}
        <p>If you have any questions, please contact our support team.</p>
        <p>Best regards,<br>{{.SiteName}} Team</p>
        <hr>
        <p style="font-size: 12px; color: #666;">
            &copy; {{.Year}} {{.SiteName}}. All rights reserved.
        </p>
    </div>
</body>
</html>`

	tmpl, _ := template.New(name).Parse(basicTemplate)
	return tmpl
}
