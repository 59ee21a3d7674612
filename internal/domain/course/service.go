// internal/domain/course/service.go
package course

import (
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/academy-backend/internal/config"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a course does not exist or is not visible
var ErrNotFound = errors.New("course not found")

// Service handles course catalog business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new course service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateCourseRequest represents admin course creation data
type CreateCourseRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Price       int64  `json:"price" binding:"required,min=0"`
	Duration    string `json:"duration"`
	Status      Status `json:"status"`
}

// UpdateCourseRequest represents admin course update data
type UpdateCourseRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	Duration    *string `json:"duration"`
	Status      *Status `json:"status"`
}

// ListActive returns all active courses for the public catalog
func (s *Service) ListActive() ([]Course, error) {
	var courses []Course
	err := s.db.Where("status = ?", StatusActive).Order("name ASC").Find(&courses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

// Get returns a single course by id regardless of status
func (s *Service) Get(id uint) (*Course, error) {
	var c Course
	err := s.db.Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &c, nil
}

// GetActive returns a course only if it is open for enrollment
func (s *Service) GetActive(id uint) (*Course, error) {
	var c Course
	err := s.db.Where("id = ? AND status = ?", id, StatusActive).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &c, nil
}

// GetBySlug returns an active course by its URL slug
func (s *Service) GetBySlug(slug string) (*Course, error) {
	var c Course
	err := s.db.Where("slug = ? AND status = ?", slug, StatusActive).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &c, nil
}

// Create creates a new course (admin)
func (s *Service) Create(req *CreateCourseRequest) (*Course, error) {
	slug := req.Slug
	if slug == "" {
		slug = generateSlug(req.Name)
	}

	status := req.Status
	if status == "" {
		status = StatusDraft
	}

	c := Course{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		Price:       req.Price,
		Duration:    req.Duration,
		Status:      status,
	}

	if err := s.db.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	return &c, nil
}

// Update updates an existing course (admin)
func (s *Service) Update(id uint, req *UpdateCourseRequest) (*Course, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Duration != nil {
		updates["duration"] = *req.Duration
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	if len(updates) == 0 {
		return c, nil
	}

	if err := s.db.Model(c).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}
	return c, nil
}

// Delete soft-deletes a course (admin)
func (s *Service) Delete(id uint) error {
	result := s.db.Delete(&Course{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete course: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// generateSlug derives a URL slug from a course name
func generateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	var b strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
