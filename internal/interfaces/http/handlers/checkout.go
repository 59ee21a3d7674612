// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/academy-backend/internal/config"
	"github.com/your-org/academy-backend/internal/domain/checkout"
	"github.com/your-org/academy-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// CheckoutHandler handles checkout session creation and settlement
type CheckoutHandler struct {
	checkoutService *checkout.Service
	config          *config.Config
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, svc *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: svc,
		config:          cfg,
	}
}

// Begin creates a gateway checkout session for the user's cart
func (h *CheckoutHandler) Begin(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	session, err := h.checkoutService.Begin(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Cart is empty",
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to create checkout session",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"session_id":   session.ID,
			"checkout_url": session.URL,
		},
	})
}

// Return handles the browser redirect back from the payment gateway.
// Visitors without a valid token are bounced to sign-in with the full
// return URL preserved, so reconciliation resumes after they log in.
// A missing session reference goes back to the cart instead of erroring.
func (h *CheckoutHandler) Return(c *gin.Context) {
	sessionID := c.Query("session_id")

	userID, authenticated := middleware.GetUserIDFromContext(c)
	if !authenticated {
		callback := url.QueryEscape("/checkout/return?session_id=" + sessionID)
		c.Redirect(http.StatusFound, h.config.App.BaseURL+"/login?redirect="+callback)
		return
	}

	if sessionID == "" {
		c.Redirect(http.StatusFound, h.config.App.BaseURL+"/cart")
		return
	}

	// Reconcile absorbs gateway and ledger failures; the confirmation page
	// renders regardless and repair happens out of band.
	if err := h.checkoutService.Reconcile(c.Request.Context(), userID, sessionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Thank you for your enrollment",
		"data": gin.H{
			"session_id": sessionID,
		},
	})
}

// Resolve is the admin repair path for sessions whose return redirect was
// never processed. Unlike Return, gateway errors surface to the caller.
func (h *CheckoutHandler) Resolve(c *gin.Context) {
	var req struct {
		UserID    uint   `json:"user_id" binding:"required"`
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.checkoutService.ResolvePending(c.Request.Context(), req.UserID, req.SessionID); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session resolved",
	})
}
