// internal/interfaces/http/handlers/email_admin.go
package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/academy-backend/internal/config"
	"github.com/your-org/academy-backend/internal/pkg/email"
)

// EmailHandler handles admin bulk-email endpoints
type EmailHandler struct {
	emailService *email.Service
	config       *config.Config
}

// NewEmailHandler creates a new email handler
func NewEmailHandler(svc *email.Service, cfg *config.Config) *EmailHandler {
	return &EmailHandler{
		emailService: svc,
		config:       cfg,
	}
}

type attachmentRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
	Data        string `json:"data" binding:"required"` // base64
}

type batchEmailRequest struct {
	Recipients  []string            `json:"recipients" binding:"required,min=1,dive,email"`
	Subject     string              `json:"subject" binding:"required"`
	HTMLContent string              `json:"html_content" binding:"required"`
	Attachments []attachmentRequest `json:"attachments"`
	BatchSize   int                 `json:"batch_size"`
}

// SendBatch dispatches an announcement to a recipient list in chunks.
// Full success returns 200, partial delivery 207 with per-recipient
// outcomes, and total failure 502.
func (h *EmailHandler) SendBatch(c *gin.Context) {
	var req batchEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	attachments := make([]email.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		data, err := base64.StdEncoding.DecodeString(a.Data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Attachment data must be base64 encoded",
			})
			return
		}
		attachments = append(attachments, email.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Data:        data,
		})
	}

	result := h.emailService.SendBatch(c.Request.Context(), req.Recipients, req.Subject, req.HTMLContent, attachments, req.BatchSize)

	switch {
	case result.AllSent():
		c.JSON(http.StatusOK, gin.H{
			"message": "All emails sent",
			"data":    result,
		})
	case result.NoneSent():
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "No emails could be delivered",
			"data":  result,
		})
	default:
		c.JSON(http.StatusMultiStatus, gin.H{
			"message": "Some emails failed to send",
			"data":    result,
		})
	}
}

// SendOne sends a single message, mainly for SMTP configuration checks
func (h *EmailHandler) SendOne(c *gin.Context) {
	var req struct {
		Recipient   string `json:"recipient" binding:"required,email"`
		Subject     string `json:"subject" binding:"required"`
		HTMLContent string `json:"html_content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result := h.emailService.SendOne(c.Request.Context(), req.Recipient, req.Subject, req.HTMLContent, nil)
	if result.Status != email.SendStatusSent {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": result.Error,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email sent",
		"data":    result,
	})
}
