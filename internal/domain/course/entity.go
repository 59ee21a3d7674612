// internal/domain/course/entity.go
package course

import (
	"time"

	"gorm.io/gorm"
)

// Status represents the publication state of a course
type Status string

const (
	StatusDraft  Status = "draft"
	StatusActive Status = "active"
)

// Course represents a training course offered by the school
type Course struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	Price       int64          `gorm:"not null" json:"price"` // In cents; the only authoritative price
	Duration    string         `gorm:"size:100" json:"duration"`
	Status      Status         `gorm:"not null;default:'draft';index" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Course) TableName() string {
	return "courses"
}

// IsActive reports whether the course is open for enrollment
func (c *Course) IsActive() bool {
	return c.Status == StatusActive
}
