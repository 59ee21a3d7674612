// internal/interfaces/http/handlers/checkout_test.go
package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/your-org/academy-backend/internal/config"
)

func testCheckoutHandler() *CheckoutHandler {
	cfg := &config.Config{}
	cfg.App.BaseURL = "http://localhost:3000"
	return &CheckoutHandler{config: cfg}
}

func TestReturnRedirectsAnonymousVisitorToSignIn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := testCheckoutHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/checkout/return?session_id=cs_123", nil)

	// No user_id in context: the gateway redirect arrived without a token.
	h.Return(c)

	assert.Equal(t, http.StatusFound, w.Code)
	location := w.Header().Get("Location")
	assert.Contains(t, location, "/login?redirect=")
	// The session reference survives the round trip through sign-in.
	assert.Contains(t, location, "cs_123")
}

func TestReturnWithoutSessionGoesBackToCart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := testCheckoutHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/checkout/return", nil)
	c.Set("user_id", uint(7))

	h.Return(c)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://localhost:3000/cart", w.Header().Get("Location"))
}
