// internal/interfaces/http/handlers/enrollment.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/academy-backend/internal/config"
	"github.com/your-org/academy-backend/internal/domain/cart"
	"github.com/your-org/academy-backend/internal/domain/checkout"
	"github.com/your-org/academy-backend/internal/domain/enrollment"
	"github.com/your-org/academy-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// EnrollmentHandler handles enrollment intake and status endpoints
type EnrollmentHandler struct {
	enrollmentService *enrollment.Service
	cartService       *cart.Service
	checkoutService   *checkout.Service
	config            *config.Config
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(db *gorm.DB, enrollmentService *enrollment.Service, checkoutService *checkout.Service, cfg *config.Config) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollmentService: enrollmentService,
		cartService:       cart.NewService(db, enrollmentService, cfg),
		checkoutService:   checkoutService,
		config:            cfg,
	}
}

// Create records a PENDING enrollment claim, places the course in the
// user's cart, and hands back the gateway checkout URL for the whole cart.
// The two writes travel together: an enrollment form submission is what
// puts a course in the cart.
func (h *EnrollmentHandler) Create(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	var req enrollment.CreatePendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	cartResponse, err := h.cartService.AddItem(userID, req.CourseID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, cart.ErrCourseNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error": err.Error(),
		})
		return
	}

	e, err := h.enrollmentService.CreatePending(userID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to record enrollment",
		})
		return
	}

	session, err := h.checkoutService.Begin(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to start checkout session",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Enrollment submitted",
		"data": gin.H{
			"enrollment":   e,
			"cart":         cartResponse,
			"session_id":   session.ID,
			"checkout_url": session.URL,
		},
	})
}

// Status reports whether the user already holds a completed enrollment for
// a course. The storefront uses this to swap the enroll button for an
// "already enrolled" badge.
func (h *EnrollmentHandler) Status(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	courseID, err := strconv.ParseUint(c.Query("course_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid course ID",
		})
		return
	}

	status, err := h.enrollmentService.CheckStatus(userID, uint(courseID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to check enrollment status",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": status,
	})
}

// ListMine returns the current user's enrollment history
func (h *EnrollmentHandler) ListMine(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	enrollments, err := h.enrollmentService.ListByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load enrollments",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": enrollments,
	})
}

// ListAll returns all enrollments with pagination (admin)
func (h *EnrollmentHandler) ListAll(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	enrollments, total, err := h.enrollmentService.ListAll(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load enrollments",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": enrollments,
		"pagination": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}
