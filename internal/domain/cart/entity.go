// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/your-org/academy-backend/internal/domain/course"
	"gorm.io/gorm"
)

// Cart is a user's pending course selections. One per user; created lazily
// on first access and never deleted, only emptied.
type Cart struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items,omitempty"`
}

// CartItem is one course selection within a cart. At most one row per
// (cart, course) pair; enrollment is per-course-per-user, so quantity stays
// at 1 in practice.
type CartItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CartID    uint           `gorm:"not null;index:idx_cart_items_cart_course" json:"cart_id"`
	CourseID  uint           `gorm:"not null;index:idx_cart_items_cart_course" json:"course_id"`
	Quantity  int            `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Cart) TableName() string {
	return "carts"
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// CartItemResponse represents a cart item joined to its course
type CartItemResponse struct {
	ID       uint           `json:"id"`
	CourseID uint           `json:"course_id"`
	Quantity int            `json:"quantity"`
	Course   *course.Course `json:"course,omitempty"`
	AddedAt  time.Time      `json:"added_at"`
}

// CartTotals represents calculated cart totals
type CartTotals struct {
	ItemCount     int   `json:"item_count"`     // Number of unique courses
	TotalQuantity int   `json:"total_quantity"` // Sum of all quantities
	TotalAmount   int64 `json:"total_amount"`   // In cents
}

// CartResponse represents a cart with items and summary
type CartResponse struct {
	ID        uint               `json:"id"`
	UserID    uint               `json:"user_id"`
	Items     []CartItemResponse `json:"items"`
	Totals    CartTotals         `json:"totals"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
