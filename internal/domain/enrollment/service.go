// internal/domain/enrollment/service.go
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/your-org/academy-backend/internal/config"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no enrollment row exists for a lookup
var ErrNotFound = errors.New("enrollment not found")

// Service is the source of truth for a user's claim/settlement state per course
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
}

// NewService creates a new enrollment service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
	}
}

// CreatePendingRequest carries the enrollment form fields
type CreatePendingRequest struct {
	CourseID  uint   `json:"course_id" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes"`
}

// StatusResponse is the UI-gating shape for "already purchased" checks
type StatusResponse struct {
	Completed    bool  `json:"completed"`
	EnrollmentID *uint `json:"enrollment_id"`
}

// CreatePending inserts a new PENDING enrollment row. It deliberately does
// not deduplicate against earlier PENDING rows for the same pair; the
// latest-first lookup rule makes re-submission safe.
func (s *Service) CreatePending(userID uint, req *CreatePendingRequest) (*Enrollment, error) {
	e := Enrollment{
		UserID:        userID,
		CourseID:      req.CourseID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Phone:         req.Phone,
		Notes:         req.Notes,
		PaymentStatus: PaymentStatusPending,
	}

	if err := s.db.Create(&e).Error; err != nil {
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}
	return &e, nil
}

// FindLatestByUserAndCourse returns the most recently created enrollment
// for the pair, or ErrNotFound. Older rows for the same pair are history
// and must never be acted on.
func (s *Service) FindLatestByUserAndCourse(userID, courseID uint) (*Enrollment, error) {
	var e Enrollment
	err := s.db.Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("created_at DESC").
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find enrollment: %w", err)
	}
	return &e, nil
}

// FindByPaymentID returns the enrollments recorded against a gateway session
func (s *Service) FindByPaymentID(paymentID string) ([]Enrollment, error) {
	var rows []Enrollment
	err := s.db.Where("payment_id = ?", paymentID).Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find enrollments by payment id: %w", err)
	}
	return rows, nil
}

// MarkCompleted records settlement for an enrollment. Pure bookkeeping, no
// charging happens here. Idempotent: a second call with the same session id
// finds the row already completed and leaves it untouched.
func (s *Service) MarkCompleted(enrollmentID uint, gatewaySessionID string, amount int64) error {
	var e Enrollment
	if err := s.db.Where("id = ?", enrollmentID).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load enrollment: %w", err)
	}

	if e.PaymentStatus == PaymentStatusCompleted {
		// Duplicate reconciliation attempt (two browser tabs, webhook retry).
		return nil
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"payment_status": PaymentStatusCompleted,
		"payment_id":     gatewaySessionID,
		"payment_amount": amount,
		"payment_date":   now,
	}
	if err := s.db.Model(&e).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to mark enrollment completed: %w", err)
	}

	s.cacheCompleted(e.UserID, e.CourseID, e.ID)
	return nil
}

// MarkFailed records confirmed non-settlement. Terminal, like MarkCompleted.
func (s *Service) MarkFailed(enrollmentID uint, gatewaySessionID string) error {
	var e Enrollment
	if err := s.db.Where("id = ?", enrollmentID).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load enrollment: %w", err)
	}

	if e.IsSettled() {
		return nil
	}

	updates := map[string]interface{}{
		"payment_status": PaymentStatusFailed,
		"payment_id":     gatewaySessionID,
	}
	if err := s.db.Model(&e).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to mark enrollment failed: %w", err)
	}
	return nil
}

// CheckStatus reports whether the latest enrollment for the pair is
// completed. Used by the UI to gate "already purchased" courses.
func (s *Service) CheckStatus(userID, courseID uint) (*StatusResponse, error) {
	// Completed status is terminal, so a cache hit is always current.
	if id, ok := s.cachedCompleted(userID, courseID); ok {
		return &StatusResponse{Completed: true, EnrollmentID: &id}, nil
	}

	e, err := s.FindLatestByUserAndCourse(userID, courseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &StatusResponse{Completed: false, EnrollmentID: nil}, nil
		}
		return nil, err
	}

	completed := e.PaymentStatus == PaymentStatusCompleted
	if completed {
		s.cacheCompleted(userID, courseID, e.ID)
	}
	return &StatusResponse{Completed: completed, EnrollmentID: &e.ID}, nil
}

// ListByUser returns a user's enrollments, newest first
func (s *Service) ListByUser(userID uint) ([]Enrollment, error) {
	var rows []Enrollment
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return rows, nil
}

// ListAll returns every enrollment for the admin back-office, newest first
func (s *Service) ListAll(limit, offset int) ([]Enrollment, int64, error) {
	var total int64
	if err := s.db.Model(&Enrollment{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count enrollments: %w", err)
	}

	var rows []Enrollment
	err := s.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return rows, total, nil
}

func statusCacheKey(userID, courseID uint) string {
	return fmt.Sprintf("enrollment:completed:%d:%d", userID, courseID)
}

func (s *Service) cacheCompleted(userID, courseID, enrollmentID uint) {
	if s.redisClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.redisClient.Set(ctx, statusCacheKey(userID, courseID), enrollmentID, 24*time.Hour)
}

func (s *Service) cachedCompleted(userID, courseID uint) (uint, bool) {
	if s.redisClient == nil {
		return 0, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := s.redisClient.Get(ctx, statusCacheKey(userID, courseID)).Uint64()
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// InvalidateStatus drops the cached completed flag for a pair. Called by the
// cart store when a claim is withdrawn.
func (s *Service) InvalidateStatus(userID, courseID uint) {
	if s.redisClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.redisClient.Del(ctx, statusCacheKey(userID, courseID))
}
