// internal/domain/cart/service.go
package cart

import (
	"errors"
	"fmt"

	"github.com/your-org/academy-backend/internal/config"
	"github.com/your-org/academy-backend/internal/domain/course"
	"github.com/your-org/academy-backend/internal/domain/enrollment"
	"github.com/your-org/academy-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Service errors. ErrItemNotFound covers both a missing item and an item
// owned by someone else; ownership failures must not be distinguishable.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrCourseNotFound = errors.New("course not found")
	ErrItemNotFound   = errors.New("cart item not found")
)

// Service holds the authoritative per-user pending-selection state
type Service struct {
	db                *gorm.DB
	config            *config.Config
	enrollmentService *enrollment.Service
}

// NewService creates a new cart service
func NewService(db *gorm.DB, enrollmentService *enrollment.Service, cfg *config.Config) *Service {
	return &Service{
		db:                db,
		config:            cfg,
		enrollmentService: enrollmentService,
	}
}

// GetOrCreateCart returns the user's cart with items joined to their
// courses, creating the cart row on first access.
func (s *Service) GetOrCreateCart(userID uint) (*CartResponse, error) {
	if err := s.verifyUser(userID); err != nil {
		return nil, err
	}

	c, err := s.getOrCreateCartRow(userID)
	if err != nil {
		return nil, err
	}

	return s.buildResponse(c)
}

// AddItem adds a course to the user's cart. A course may only be in the
// cart once per user; adding it again returns the cart unchanged, never a
// duplicate row and never a quantity bump.
func (s *Service) AddItem(userID, courseID uint) (*CartResponse, error) {
	if _, err := s.lookupCourse(courseID); err != nil {
		return nil, err
	}

	if err := s.verifyUser(userID); err != nil {
		return nil, err
	}

	c, err := s.getOrCreateCartRow(userID)
	if err != nil {
		return nil, err
	}

	var existing CartItem
	result := s.db.Where("cart_id = ? AND course_id = ?", c.ID, courseID).First(&existing)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up cart item: %w", result.Error)
		}

		item := CartItem{
			CartID:   c.ID,
			CourseID: courseID,
			Quantity: 1,
		}
		if err := s.db.Create(&item).Error; err != nil {
			return nil, fmt.Errorf("failed to add cart item: %w", err)
		}
	}

	return s.buildResponse(c)
}

// RemoveItem removes a cart item after verifying it belongs to the user.
// Removal withdraws the pending claim: every enrollment row for the
// (user, course) pair is deleted first.
func (s *Service) RemoveItem(userID, cartItemID uint) (*CartResponse, error) {
	c, item, err := s.ownedItem(userID, cartItemID)
	if err != nil {
		return nil, err
	}

	if err := s.withdrawEnrollments(userID, item.CourseID); err != nil {
		return nil, err
	}

	if err := s.db.Delete(item).Error; err != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}

	return s.buildResponse(c)
}

// UpdateQuantity updates a cart item's quantity in place. A quantity of
// zero or less behaves exactly like RemoveItem.
func (s *Service) UpdateQuantity(userID, cartItemID uint, quantity int) (*CartResponse, error) {
	if quantity <= 0 {
		return s.RemoveItem(userID, cartItemID)
	}

	c, item, err := s.ownedItem(userID, cartItemID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(item).Update("quantity", quantity).Error; err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	return s.buildResponse(c)
}

// Clear empties the user's cart, withdrawing the pending enrollment claim
// for every carted course. The cart row itself survives.
func (s *Service) Clear(userID uint) error {
	var c Cart
	err := s.db.Where("user_id = ?", userID).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // nothing to clear
		}
		return fmt.Errorf("failed to load cart: %w", err)
	}

	var items []CartItem
	if err := s.db.Where("cart_id = ?", c.ID).Find(&items).Error; err != nil {
		return fmt.Errorf("failed to load cart items: %w", err)
	}

	for _, item := range items {
		if err := s.withdrawEnrollments(userID, item.CourseID); err != nil {
			return err
		}
	}

	if err := s.db.Where("cart_id = ?", c.ID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}

// Total returns the cart total in cents. Non-critical read path: any
// failure yields 0 rather than an error.
func (s *Service) Total(userID uint) int64 {
	items, err := s.Items(userID)
	if err != nil {
		return 0
	}

	var total int64
	for _, item := range items {
		if item.Course == nil {
			continue
		}
		total += item.Course.Price * int64(item.Quantity)
	}
	return total
}

// Items returns the user's cart items joined to their courses
func (s *Service) Items(userID uint) ([]CartItemResponse, error) {
	var c Cart
	err := s.db.Where("user_id = ?", userID).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []CartItemResponse{}, nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	return s.loadItems(c.ID)
}

// Private helper methods

func (s *Service) verifyUser(userID uint) error {
	var u user.User
	err := s.db.Select("id").Where("id = ?", userID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to resolve user: %w", err)
	}
	return nil
}

func (s *Service) lookupCourse(courseID uint) (*course.Course, error) {
	var crs course.Course
	err := s.db.Where("id = ? AND status = ?", courseID, course.StatusActive).First(&crs).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to look up course: %w", err)
	}
	return &crs, nil
}

// getOrCreateCartRow resolves the unique-owner invariant. Two concurrent
// first accesses may both attempt the insert; the loser of that race reads
// back the winner's row instead of failing on the unique constraint.
func (s *Service) getOrCreateCartRow(userID uint) (*Cart, error) {
	var c Cart
	err := s.db.Where("user_id = ?", userID).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	c = Cart{UserID: userID}
	if createErr := s.db.Create(&c).Error; createErr != nil {
		// Unique constraint violation: someone else created it first.
		var existing Cart
		if readErr := s.db.Where("user_id = ?", userID).First(&existing).Error; readErr == nil {
			return &existing, nil
		}
		return nil, fmt.Errorf("failed to create cart: %w", createErr)
	}
	return &c, nil
}

// ownedItem loads a cart item and checks it belongs to the user's cart.
// Missing and not-owned both come back as ErrItemNotFound.
func (s *Service) ownedItem(userID, cartItemID uint) (*Cart, *CartItem, error) {
	var item CartItem
	err := s.db.Where("id = ?", cartItemID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrItemNotFound
		}
		return nil, nil, fmt.Errorf("failed to load cart item: %w", err)
	}

	var c Cart
	if err := s.db.Where("id = ?", item.CartID).First(&c).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load cart: %w", err)
	}

	if c.UserID != userID {
		return nil, nil, ErrItemNotFound
	}

	return &c, &item, nil
}

// withdrawEnrollments deletes the pending claim rows for a pair. Settled
// rows stay: reconciliation clears the cart right after completing them,
// and a completed enrollment is not something cart mutation can revoke.
func (s *Service) withdrawEnrollments(userID, courseID uint) error {
	err := s.db.Where("user_id = ? AND course_id = ? AND payment_status = ?",
		userID, courseID, enrollment.PaymentStatusPending).
		Delete(&enrollment.Enrollment{}).Error
	if err != nil {
		return fmt.Errorf("failed to withdraw enrollments: %w", err)
	}

	if s.enrollmentService != nil {
		s.enrollmentService.InvalidateStatus(userID, courseID)
	}
	return nil
}

func (s *Service) loadItems(cartID uint) ([]CartItemResponse, error) {
	var dbItems []CartItem
	if err := s.db.Where("cart_id = ?", cartID).Order("created_at ASC").Find(&dbItems).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}

	items := make([]CartItemResponse, len(dbItems))
	for i, item := range dbItems {
		items[i] = CartItemResponse{
			ID:       item.ID,
			CourseID: item.CourseID,
			Quantity: item.Quantity,
			AddedAt:  item.CreatedAt,
		}

		var crs course.Course
		if err := s.db.Where("id = ?", item.CourseID).First(&crs).Error; err == nil {
			items[i].Course = &crs
		}
	}
	return items, nil
}

func (s *Service) buildResponse(c *Cart) (*CartResponse, error) {
	items, err := s.loadItems(c.ID)
	if err != nil {
		return nil, err
	}

	var totals CartTotals
	totals.ItemCount = len(items)
	for _, item := range items {
		totals.TotalQuantity += item.Quantity
		if item.Course != nil {
			totals.TotalAmount += item.Course.Price * int64(item.Quantity)
		}
	}

	return &CartResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		Items:     items,
		Totals:    totals,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}
