// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/academy-backend/internal/config"
	"github.com/your-org/academy-backend/internal/domain/checkout"
	"github.com/your-org/academy-backend/internal/domain/enrollment"
	"github.com/your-org/academy-backend/internal/domain/payment"
	"github.com/your-org/academy-backend/internal/interfaces/http/handlers"
	"github.com/your-org/academy-backend/internal/interfaces/http/middleware"
	"github.com/your-org/academy-backend/internal/pkg/email"
	"gorm.io/gorm"
)

// Request body limits. Email bodies carry base64 attachments, so their
// ceiling is the attachment limit plus inflation and envelope headroom;
// every other group gets the tight default.
const (
	defaultRequestBytes = 10 << 20
	MaxRequestBytes     = email.MaxAttachmentBytes/3*4 + 2<<20
)

// SetupRoutes wires every route group onto the API router
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config, gateway payment.Gateway, mailer *email.Service) {
	enrollmentService := enrollment.NewService(db, redisClient, cfg)
	checkoutService := checkout.NewService(db, redisClient, cfg, gateway, mailer)

	authHandler := handlers.NewAuthHandler(db, cfg)
	courseHandler := handlers.NewCourseHandler(db, cfg)
	cartHandler := handlers.NewCartHandler(db, enrollmentService, cfg)
	enrollmentHandler := handlers.NewEnrollmentHandler(db, enrollmentService, checkoutService, cfg)
	checkoutHandler := handlers.NewCheckoutHandler(db, redisClient, cfg, checkoutService)
	emailHandler := handlers.NewEmailHandler(mailer, cfg)

	// Authentication
	auth := rg.Group("/auth")
	auth.Use(middleware.RequestSizeLimit(defaultRequestBytes))
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.POST("/logout", authHandler.Logout)
			protected.GET("/me", authHandler.GetCurrentUser)
			protected.GET("/validate", authHandler.ValidateToken)
		}
	}

	// Public course catalog
	courses := rg.Group("/courses")
	{
		courses.GET("", courseHandler.ListCourses)
		courses.GET("/:id", courseHandler.GetCourse)
	}

	// Cart, authenticated
	cart := rg.Group("/cart")
	cart.Use(middleware.RequestSizeLimit(defaultRequestBytes))
	cart.Use(middleware.AuthMiddleware(cfg))
	{
		cart.GET("", cartHandler.GetCart)
		cart.GET("/total", cartHandler.GetTotal)
		cart.POST("/items", cartHandler.AddItem)
		cart.PUT("/items/:id", cartHandler.UpdateItem)
		cart.DELETE("/items/:id", cartHandler.RemoveItem)
		cart.DELETE("", cartHandler.ClearCart)
	}

	// Enrollment intake and status
	enrollments := rg.Group("/enrollments")
	enrollments.Use(middleware.RequestSizeLimit(defaultRequestBytes))
	enrollments.Use(middleware.AuthMiddleware(cfg))
	{
		enrollments.POST("", enrollmentHandler.Create)
		enrollments.GET("", enrollmentHandler.ListMine)
		enrollments.GET("/status", enrollmentHandler.Status)
	}

	// Checkout. The return URL is a browser redirect from the gateway, so
	// it carries no Authorization header guarantee; optional auth lets the
	// handler bounce anonymous visitors to sign-in instead of 401ing.
	co := rg.Group("/checkout")
	co.Use(middleware.RequestSizeLimit(defaultRequestBytes))
	{
		co.GET("/return", middleware.OptionalAuthMiddleware(cfg), checkoutHandler.Return)

		started := co.Group("")
		started.Use(middleware.AuthMiddleware(cfg))
		{
			started.POST("", checkoutHandler.Begin)
		}
	}

	// Admin
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		adminCourses := admin.Group("/courses")
		adminCourses.Use(middleware.RequestSizeLimit(defaultRequestBytes))
		{
			adminCourses.POST("", courseHandler.CreateCourse)
			adminCourses.PUT("/:id", courseHandler.UpdateCourse)
			adminCourses.DELETE("/:id", courseHandler.DeleteCourse)
		}

		adminEnrollments := admin.Group("/enrollments")
		{
			adminEnrollments.GET("", enrollmentHandler.ListAll)
		}

		adminCheckout := admin.Group("/checkout")
		adminCheckout.Use(middleware.RequestSizeLimit(defaultRequestBytes))
		{
			adminCheckout.POST("/resolve", checkoutHandler.Resolve)
		}

		// Email bodies ride the global MaxRequestBytes ceiling so base64
		// attachments can reach the size check in pkg/email.
		adminEmail := admin.Group("/email")
		{
			adminEmail.POST("/send", emailHandler.SendOne)
			adminEmail.POST("/batch", emailHandler.SendBatch)
		}
	}
}
