// internal/pkg/email/types.go
package email

import (
	"time"
)

// MaxAttachmentBytes is the combined attachment size ceiling per message.
// Requests above it are rejected before the transport is touched.
const MaxAttachmentBytes = 25 << 20 // 25 MiB

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeEnrollmentConfirmation EmailType = "enrollment_confirmation"
	EmailTypePaymentFailed          EmailType = "payment_failed"
	EmailTypeAnnouncement           EmailType = "announcement"
)

// Attachment is a file attached to an outgoing message
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Email represents an outgoing message
type Email struct {
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"html_content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Type        EmailType    `json:"type"`
}

// SendStatus is the outcome of one delivery attempt
type SendStatus string

const (
	SendStatusSent   SendStatus = "sent"
	SendStatusFailed SendStatus = "failed"
)

// SendResult is the outcome of sending to one recipient
type SendResult struct {
	Status    SendStatus `json:"status"`
	MessageID string     `json:"message_id,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// RecipientResult pairs a recipient with its delivery outcome
type RecipientResult struct {
	Recipient string `json:"recipient"`
	SendResult
}

// BatchResult aggregates a batch send. A batch counts as failed when any
// recipient in it failed; individual outcomes are in Results either way.
type BatchResult struct {
	TotalAttempted    int               `json:"total_attempted"`
	TotalSent         int               `json:"total_sent"`
	SuccessfulBatches int               `json:"successful_batches"`
	FailedBatches     int               `json:"failed_batches"`
	Results           []RecipientResult `json:"results"`
}

// AllSent reports full success
func (b *BatchResult) AllSent() bool {
	return b.TotalAttempted > 0 && b.TotalSent == b.TotalAttempted
}

// NoneSent reports total failure
func (b *BatchResult) NoneSent() bool {
	return b.TotalSent == 0
}

// EnrollmentConfirmationData contains data for the confirmation template
type EnrollmentConfirmationData struct {
	SiteName    string   `json:"site_name"`
	SiteURL     string   `json:"site_url"`
	UserName    string   `json:"user_name"`
	UserEmail   string   `json:"user_email"`
	CourseNames []string `json:"course_names"`
	Total       string   `json:"total"`
	Year        int      `json:"year"`
}

// GetConfirmationData returns template data for an enrollment confirmation
func GetConfirmationData(siteName, siteURL, userName, userEmail string, courseNames []string, total string) EnrollmentConfirmationData {
	return EnrollmentConfirmationData{
		SiteName:    siteName,
		SiteURL:     siteURL,
		UserName:    userName,
		UserEmail:   userEmail,
		CourseNames: courseNames,
		Total:       total,
		Year:        time.Now().Year(),
	}
}
