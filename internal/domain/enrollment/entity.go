// internal/domain/enrollment/entity.go
package enrollment

import (
	"time"

	"gorm.io/gorm"
)

// PaymentStatus represents the settlement state of an enrollment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Enrollment represents one user's claim on one course.
// Several rows may exist for the same (user, course) pair; the most
// recently created one is the row reconciliation acts on. COMPLETED and
// FAILED are terminal, a retry always creates a fresh row.
type Enrollment struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	UserID   uint `gorm:"not null;index:idx_enrollments_user_course" json:"user_id"`
	CourseID uint `gorm:"not null;index:idx_enrollments_user_course" json:"course_id"`

	// Form fields captured at submission time
	FirstName string `gorm:"size:100" json:"first_name"`
	LastName  string `gorm:"size:100" json:"last_name"`
	Email     string `gorm:"size:255" json:"email"`
	Phone     string `gorm:"size:20" json:"phone"`
	Notes     string `gorm:"type:text" json:"notes,omitempty"`

	PaymentStatus PaymentStatus `gorm:"not null;default:'pending';index" json:"payment_status"`
	PaymentID     *string       `gorm:"size:255;index" json:"payment_id"` // gateway session reference
	PaymentAmount *int64        `json:"payment_amount"`                   // in cents, always the course's stored price
	PaymentDate   *time.Time    `json:"payment_date"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Enrollment) TableName() string {
	return "enrollments"
}

// IsSettled reports whether the enrollment reached a terminal state
func (e *Enrollment) IsSettled() bool {
	return e.PaymentStatus == PaymentStatusCompleted || e.PaymentStatus == PaymentStatusFailed
}
